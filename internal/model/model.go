package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Prayer is one of the seven named clock times stored per day.
type Prayer string

const (
	Imsaak   Prayer = "imsaak"
	Dawn     Prayer = "dawn"
	Sunrise  Prayer = "sunrise"
	Noon     Prayer = "noon"
	Sunset   Prayer = "sunset"
	Maghrib  Prayer = "maghrib"
	Midnight Prayer = "midnight"
)

// Prayers lists every prayer field in display order (earliest first).
var Prayers = []Prayer{Imsaak, Dawn, Sunrise, Noon, Sunset, Maghrib, Midnight}

// Metadata keys carried by a day record next to its prayer fields.
const (
	KeyMonth = "month"
	KeyDay   = "day"
)

// ParsePrayer lowercases name and checks it against the fixed prayer set.
func ParsePrayer(name string) (Prayer, bool) {
	p := Prayer(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Prayers {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Node is any addressable part of the time table. The set of
// implementations is closed: Leaf, DayRecord, MonthRecord and LocationYear.
type Node interface {
	node()
}

// Leaf is a single "HH:MM" clock time.
type Leaf string

// DayRecord holds one day's prayer times plus its position in the year.
type DayRecord struct {
	Month int
	Day   int
	Times map[Prayer]Leaf
}

// MonthRecord holds the days of one month, index = day-1.
type MonthRecord []DayRecord

// LocationYear holds the twelve months for one location, index = month-1.
type LocationYear []MonthRecord

func (Leaf) node()         {}
func (DayRecord) node()    {}
func (MonthRecord) node()  {}
func (LocationYear) node() {}

// Table maps a location slug to its year of prayer times.
type Table map[string]LocationYear

// MarshalJSON writes month and day first, then prayers in display order,
// matching the layout of the source data.
func (d DayRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"%s":%d,"%s":%d`, KeyMonth, d.Month, KeyDay, d.Day)
	for _, p := range Prayers {
		v, ok := d.Times[p]
		if !ok {
			continue
		}
		val, err := json.Marshal(string(v))
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, `,"%s":%s`, p, val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the flat source layout: month, day and one string
// per prayer. Unknown keys are rejected.
func (d *DayRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := DayRecord{Times: make(map[Prayer]Leaf, len(Prayers))}
	for k, v := range raw {
		switch k {
		case KeyMonth:
			if err := json.Unmarshal(v, &out.Month); err != nil {
				return fmt.Errorf("day record %q: %w", k, err)
			}
		case KeyDay:
			if err := json.Unmarshal(v, &out.Day); err != nil {
				return fmt.Errorf("day record %q: %w", k, err)
			}
		default:
			p, ok := ParsePrayer(k)
			if !ok || string(p) != k {
				return fmt.Errorf("day record: unknown key %q", k)
			}
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("day record %q: %w", k, err)
			}
			out.Times[p] = Leaf(s)
		}
	}
	*d = out
	return nil
}
