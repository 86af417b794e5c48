package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"ukprayer/internal/config"
	appLog "ukprayer/internal/log"
	"ukprayer/internal/metrics"
	"ukprayer/internal/model"
	"ukprayer/internal/store"
	"ukprayer/internal/timeconv"
)

const localDateTimeLayout = "20060102T150405"

// Interval is a named span between two prayer times of the same day.
type Interval struct {
	Start model.Prayer
	End   model.Prayer
	Label string
}

// Intervals are the events emitted for every day of a feed.
var Intervals = []Interval{
	{Start: model.Dawn, End: model.Sunrise, Label: "Fajr"},
	{Start: model.Noon, End: model.Sunset, Label: "Dhuhr & Asr"},
	{Start: model.Maghrib, End: model.Midnight, Label: "Maghrib & Isha"},
}

// uidNamespace seeds the name-based UUIDs of feed events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://ukprayer/feed"))

// Event is one interval on one civil day, already in the display zone.
type Event struct {
	UID      string
	Location string
	Interval Interval
	Date     time.Time
	Start    time.Time
	End      time.Time
}

// Generator builds calendar feeds from the prayer table.
type Generator struct {
	store   *store.Store
	conv    *timeconv.Converter
	cfg     config.FeedConfig
	refresh *RefreshSchedule
	now     func() time.Time
}

// NewGenerator wires a generator. now may be nil, in which case time.Now is
// used; tests pass a fixed clock.
func NewGenerator(s *store.Store, conv *timeconv.Converter, cfg config.FeedConfig, now func() time.Time) (*Generator, error) {
	if s == nil || conv == nil {
		return nil, errors.New("feed: store and converter are required")
	}
	if cfg.Refresh == "" {
		cfg.Refresh = config.DefaultFeedRefresh
	}
	refresh, err := ParseRefresh(cfg.Refresh)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{store: s, conv: conv, cfg: cfg, refresh: refresh, now: now}, nil
}

// CacheTTL is how long a feed generated now stays current.
func (g *Generator) CacheTTL() time.Duration {
	return g.refresh.TTL(g.localNow())
}

// localNow is the clock in the display zone. The refresh schedule and the
// feed window both roll over at local midnight.
func (g *Generator) localNow() time.Time {
	return g.now().In(g.conv.Location())
}

// Events lists the feed events for location over the next windowDays civil
// days. Days the table has no record for (29 February against data taken
// from a common year) are skipped.
func (g *Generator) Events(location string, windowDays int) ([]Event, error) {
	loc := store.NormalizeLocation(location)
	year, err := g.store.Year(loc)
	if err != nil {
		return nil, err
	}

	days, err := Window(g.localNow(), windowDays)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(days)*len(Intervals))
	for _, date := range days {
		m, d := int(date.Month()), date.Day()
		month := year[m-1]
		if d > len(month) {
			appLog.Debug("feed: no record for date, skipping", "location", loc, "date", date.Format(time.DateOnly))
			metrics.IncFeedSkippedDay()
			continue
		}
		rec := month[d-1]

		for _, iv := range Intervals {
			start, err := g.conv.Instant(rec.Times[iv.Start], date.Year(), m, d)
			if err != nil {
				return nil, fmt.Errorf("feed %s %s %s: %w", loc, date.Format(time.DateOnly), iv.Start, err)
			}
			end, err := g.conv.Instant(rec.Times[iv.End], date.Year(), m, d)
			if err != nil {
				return nil, fmt.Errorf("feed %s %s %s: %w", loc, date.Format(time.DateOnly), iv.End, err)
			}
			// Midnight may fall after 00:00 UTC and belong to the next morning.
			if end.Before(start) {
				end = end.Add(24 * time.Hour)
			}
			events = append(events, Event{
				UID:      g.uid(loc, iv.Start, date),
				Location: loc,
				Interval: iv,
				Date:     date,
				Start:    start,
				End:      end,
			})
		}
	}
	return events, nil
}

// Generate renders the feed for location as an iCalendar document.
func (g *Generator) Generate(location string, windowDays int) (string, error) {
	events, err := g.Events(location, windowDays)
	if err != nil {
		return "", err
	}

	now := g.localNow()
	zone := g.conv.Location().String()
	name := store.DisplayName(location)
	ttl := isoDuration(g.refresh.TTL(now))

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(g.cfg.ProductID)
	cal.SetXWRCalName("Prayer times " + name)
	cal.SetXWRTimezone(zone)
	cal.SetXPublishedTTL(ttl)
	cal.SetRefreshInterval(ttl, &ical.KeyValues{Key: "VALUE", Value: []string{"DURATION"}})

	tzid := &ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{zone}}
	for _, ev := range events {
		ve := cal.AddEvent(ev.UID)
		ve.SetDtStampTime(now)
		ve.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(localDateTimeLayout), tzid)
		ve.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(localDateTimeLayout), tzid)
		ve.SetSummary(ev.Interval.Label)
		ve.SetLocation(name)
		ve.SetDescription(fmt.Sprintf("%s %s to %s %s (%s)",
			ev.Interval.Start, timeconv.Format(ev.Start, true),
			ev.Interval.End, timeconv.Format(ev.End, true),
			name))
	}

	metrics.AddFeedEvents(len(events))
	appLog.Debug("feed generated", "location", location, "events", len(events), "window_days", windowDays)
	return cal.Serialize(), nil
}

// uid is stable for a (location, prayer, date) triple, so clients update
// events in place across refreshes.
func (g *Generator) uid(loc string, p model.Prayer, date time.Time) string {
	key := strings.Join([]string{loc, string(p), date.Format(time.DateOnly)}, "/")
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@" + g.cfg.UIDDomain
}
