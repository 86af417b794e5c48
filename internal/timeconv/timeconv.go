// Package timeconv converts the UTC clock times of the prayer table into
// civil wall-clock time.
//
// Every leaf is resolved against its own calendar date, so the same "HH:MM"
// can render differently either side of a DST transition. Conversions never
// touch their input: each level of the table is rebuilt.
package timeconv

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"ukprayer/internal/model"
)

const (
	// DefaultZone is the civil zone all UK prayer times are displayed in.
	DefaultZone = "Europe/London"

	// DefaultReferenceYear stands in when the caller does not pin a year.
	// It is a leap year so that a 29 February leaf always has a date.
	DefaultReferenceYear = 2024

	// Layout24 and Layout12 are the two display renderings of a leaf.
	Layout24 = "15:04"
	Layout12 = "03:04 PM"
)

var (
	// ErrMalformedTime means a leaf is not a zero-padded 24h "HH:MM". With a
	// validated table this indicates corrupted source data.
	ErrMalformedTime = errors.New("malformed leaf time")

	// ErrNoDate is returned when a bare leaf is converted without month/day.
	ErrNoDate = errors.New("leaf has no calendar date")

	// ErrInvalidDate is returned when year/month/day do not name a real day.
	ErrInvalidDate = errors.New("calendar date does not exist")

	// ErrUnsupportedNode is returned for a nil node or a type outside the
	// Leaf/DayRecord/MonthRecord/LocationYear set.
	ErrUnsupportedNode = errors.New("unsupported node")
)

// Options selects the display format and pins the calendar date.
// Zero values mean "not supplied".
type Options struct {
	Use24Hour bool
	Year      int
	Month     int
	Day       int
}

// Converter is safe for concurrent use; it holds no mutable state.
type Converter struct {
	loc     *time.Location
	refYear int
}

// LoadZone resolves an IANA zone name, falling back to DefaultZone when
// name is empty. Zone data is embedded, so this does not depend on the host.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	return time.LoadLocation(name)
}

// NewConverter returns a converter into loc. referenceYear stands in for a
// missing year; 0 selects DefaultReferenceYear and it must be a leap year.
func NewConverter(loc *time.Location, referenceYear int) (*Converter, error) {
	if loc == nil {
		return nil, errors.New("timeconv: nil location")
	}
	if referenceYear == 0 {
		referenceYear = DefaultReferenceYear
	}
	if !IsLeap(referenceYear) {
		return nil, fmt.Errorf("timeconv: reference year %d is not a leap year", referenceYear)
	}
	return &Converter{loc: loc, refYear: referenceYear}, nil
}

// Location is the civil zone leaves are converted into.
func (c *Converter) Location() *time.Location { return c.loc }

// ReferenceYear is the year used when a conversion does not pin one.
func (c *Converter) ReferenceYear() int { return c.refYear }

// IsLeap reports whether year has a 29 February.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// ParseClock parses a strict zero-padded "HH:MM" 24-hour clock.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
		}
	}
	hour = int(s[0]-'0')*10 + int(s[1]-'0')
	minute = int(s[3]-'0')*10 + int(s[4]-'0')
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	return hour, minute, nil
}

// Format renders t as "15:04" or "03:04 PM".
func Format(t time.Time, use24Hour bool) string {
	if use24Hour {
		return t.Format(Layout24)
	}
	return t.Format(Layout12)
}

// Instant attaches year/month/day to a UTC leaf and returns the moment in
// the converter's zone.
func (c *Converter) Instant(leaf model.Leaf, year, month, day int) (time.Time, error) {
	h, m, err := ParseClock(string(leaf))
	if err != nil {
		return time.Time{}, err
	}
	d, err := civilDate(year, month, day)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.year, time.Month(d.month), d.day, h, m, 0, 0, time.UTC).In(c.loc), nil
}

// Convert rewrites every leaf under n from UTC into local time. The year is
// resolved once here and shared by the whole subtree.
func (c *Converter) Convert(n model.Node, opts Options) (model.Node, error) {
	return c.walk(n, c.context(opts), c.toLocal(opts.Use24Hour))
}

func (c *Converter) ConvertLeaf(l model.Leaf, opts Options) (model.Leaf, error) {
	return c.toLocal(opts.Use24Hour)(l, c.context(opts))
}

func (c *Converter) ConvertDay(d model.DayRecord, opts Options) (model.DayRecord, error) {
	return c.day(d, c.context(opts), c.toLocal(opts.Use24Hour))
}

func (c *Converter) ConvertMonth(m model.MonthRecord, opts Options) (model.MonthRecord, error) {
	return c.month(m, c.context(opts), c.toLocal(opts.Use24Hour))
}

func (c *Converter) ConvertYear(y model.LocationYear, opts Options) (model.LocationYear, error) {
	return c.year(y, c.context(opts), c.toLocal(opts.Use24Hour))
}

// ToUTC is the inverse of Convert: leaves are read as local "HH:MM" on their
// date and rewritten as UTC "HH:MM".
func (c *Converter) ToUTC(n model.Node, year int) (model.Node, error) {
	return c.walk(n, c.context(Options{Year: year}), c.fromLocal)
}

type dateCtx struct {
	year, month, day int
}

type leafFunc func(model.Leaf, dateCtx) (model.Leaf, error)

func (c *Converter) context(opts Options) dateCtx {
	ctx := dateCtx{year: opts.Year, month: opts.Month, day: opts.Day}
	if ctx.year == 0 {
		ctx.year = c.refYear
	}
	return ctx
}

func (c *Converter) toLocal(use24Hour bool) leafFunc {
	return func(l model.Leaf, ctx dateCtx) (model.Leaf, error) {
		t, err := c.Instant(l, ctx.year, ctx.month, ctx.day)
		if err != nil {
			return "", err
		}
		return model.Leaf(Format(t, use24Hour)), nil
	}
}

func (c *Converter) fromLocal(l model.Leaf, ctx dateCtx) (model.Leaf, error) {
	h, m, err := ParseClock(string(l))
	if err != nil {
		return "", err
	}
	d, err := civilDate(ctx.year, ctx.month, ctx.day)
	if err != nil {
		return "", err
	}
	t := time.Date(d.year, time.Month(d.month), d.day, h, m, 0, 0, c.loc).UTC()
	return model.Leaf(t.Format(Layout24)), nil
}

func (c *Converter) walk(n model.Node, ctx dateCtx, fn leafFunc) (model.Node, error) {
	switch v := n.(type) {
	case model.Leaf:
		return fn(v, ctx)
	case model.DayRecord:
		return c.day(v, ctx, fn)
	case model.MonthRecord:
		return c.month(v, ctx, fn)
	case model.LocationYear:
		return c.year(v, ctx, fn)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedNode, n)
	}
}

// day copies d, taking month/day from the record itself.
func (c *Converter) day(d model.DayRecord, ctx dateCtx, fn leafFunc) (model.DayRecord, error) {
	ctx.month, ctx.day = d.Month, d.Day

	out := model.DayRecord{
		Month: d.Month,
		Day:   d.Day,
		Times: make(map[model.Prayer]model.Leaf, len(d.Times)),
	}
	for p, l := range d.Times {
		conv, err := fn(l, ctx)
		if err != nil {
			return model.DayRecord{}, fmt.Errorf("%02d-%02d %s: %w", d.Month, d.Day, p, err)
		}
		out.Times[p] = conv
	}
	return out, nil
}

func (c *Converter) month(m model.MonthRecord, ctx dateCtx, fn leafFunc) (model.MonthRecord, error) {
	out := make(model.MonthRecord, len(m))
	for i, d := range m {
		conv, err := c.day(d, ctx, fn)
		if err != nil {
			return nil, err
		}
		out[i] = conv
	}
	return out, nil
}

func (c *Converter) year(y model.LocationYear, ctx dateCtx, fn leafFunc) (model.LocationYear, error) {
	out := make(model.LocationYear, len(y))
	for i, m := range y {
		conv, err := c.month(m, ctx, fn)
		if err != nil {
			return nil, err
		}
		out[i] = conv
	}
	return out, nil
}

func civilDate(year, month, day int) (dateCtx, error) {
	if month == 0 || day == 0 {
		return dateCtx{}, ErrNoDate
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return dateCtx{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return dateCtx{year: year, month: month, day: day}, nil
}
