package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"
)

// Window returns the civil dates of the next days days, starting with the
// day containing now. Each date is midnight in now's location. Iteration
// is done by a DAILY rule in that location, so a DST change inside the
// window does not shift later days off midnight.
func Window(now time.Time, days int) ([]time.Time, error) {
	if days <= 0 {
		return nil, errors.New("window: days must be positive")
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   days,
		Dtstart: start,
	})
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	return r.All(), nil
}

// RefreshSchedule wraps the cron expression that tells subscribers when the
// feed is worth fetching again.
type RefreshSchedule struct {
	sched cron.Schedule
}

func ParseRefresh(expr string) (*RefreshSchedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", expr, err)
	}
	return &RefreshSchedule{sched: sched}, nil
}

// TTL is the time from now until the next scheduled refresh. Never zero:
// a client fetching exactly on the tick waits for the following one.
func (r *RefreshSchedule) TTL(now time.Time) time.Duration {
	next := r.sched.Next(now)
	d := next.Sub(now)
	if d <= 0 {
		d = r.sched.Next(next).Sub(now)
	}
	return d
}

// isoDuration renders d as an RFC 5545 DURATION value, e.g. "PT9H30M".
func isoDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "PT0S"
	}

	var b strings.Builder
	b.WriteString("P")
	if days := d / (24 * time.Hour); days > 0 {
		fmt.Fprintf(&b, "%dD", days)
		d -= days * 24 * time.Hour
	}
	if d == 0 {
		return b.String()
	}
	b.WriteString("T")
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= m * time.Minute
	}
	if s := d / time.Second; s > 0 {
		fmt.Fprintf(&b, "%dS", s)
	}
	return b.String()
}
