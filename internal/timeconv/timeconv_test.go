package timeconv

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukprayer/internal/model"
)

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	loc, err := LoadZone(DefaultZone)
	require.NoError(t, err)
	c, err := NewConverter(loc, 0)
	require.NoError(t, err)
	return c
}

func sampleDay(month, day int) model.DayRecord {
	return model.DayRecord{
		Month: month,
		Day:   day,
		Times: map[model.Prayer]model.Leaf{
			model.Imsaak:   "04:05",
			model.Dawn:     "04:15",
			model.Sunrise:  "05:40",
			model.Noon:     "12:05",
			model.Sunset:   "18:30",
			model.Maghrib:  "18:45",
			model.Midnight: "23:20",
		},
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{"00:00", 0, 0, false},
		{"05:15", 5, 15, false},
		{"23:59", 23, 59, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"5:15", 0, 0, true},
		{"05.15", 0, 0, true},
		{"ab:cd", 0, 0, true},
		{"", 0, 0, true},
		{"05:15:00", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.h, h)
			assert.Equal(t, tt.m, m)
		})
	}
}

func TestNewConverterRequiresLeapReferenceYear(t *testing.T) {
	loc, err := LoadZone("")
	require.NoError(t, err)

	_, err = NewConverter(loc, 2023)
	assert.Error(t, err)

	_, err = NewConverter(nil, 2024)
	assert.Error(t, err)

	c, err := NewConverter(loc, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultReferenceYear, c.ReferenceYear())
	assert.True(t, IsLeap(c.ReferenceYear()))
}

func TestConvertLeafScenarios(t *testing.T) {
	c := newTestConverter(t)

	tests := []struct {
		name string
		leaf model.Leaf
		opts Options
		want model.Leaf
	}{
		{"BST start day 24h", "04:15", Options{Use24Hour: true, Month: 3, Day: 31}, "05:15"},
		{"BST start day 12h", "04:15", Options{Use24Hour: false, Month: 3, Day: 31}, "05:15 AM"},
		{"christmas unchanged", "06:10", Options{Use24Hour: true, Month: 12, Day: 25}, "06:10"},
		{"afternoon 12h", "13:05", Options{Month: 1, Day: 10}, "01:05 PM"},
		{"midnight 12h", "00:00", Options{Month: 1, Day: 10}, "12:00 AM"},
		{"summer crosses midnight", "23:30", Options{Use24Hour: true, Month: 7, Day: 1}, "00:30"},
		{"day before BST start", "04:15", Options{Use24Hour: true, Month: 3, Day: 30}, "04:15"},
		{"last BST day 2024", "10:00", Options{Use24Hour: true, Year: 2024, Month: 10, Day: 26}, "11:00"},
		{"GMT again 2024", "10:00", Options{Use24Hour: true, Year: 2024, Month: 10, Day: 27}, "10:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ConvertLeaf(tt.leaf, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertLeafErrors(t *testing.T) {
	c := newTestConverter(t)

	_, err := c.ConvertLeaf("04:15", Options{Use24Hour: true})
	assert.ErrorIs(t, err, ErrNoDate)

	_, err = c.ConvertLeaf("4:15", Options{Month: 1, Day: 1})
	assert.ErrorIs(t, err, ErrMalformedTime)

	_, err = c.ConvertLeaf("04:15", Options{Year: 2025, Month: 2, Day: 29})
	assert.ErrorIs(t, err, ErrInvalidDate)

	// Reference year is a leap year, so 29 February always resolves.
	got, err := c.ConvertLeaf("04:15", Options{Use24Hour: true, Month: 2, Day: 29})
	require.NoError(t, err)
	assert.Equal(t, model.Leaf("04:15"), got)
}

func TestDSTSensitivity(t *testing.T) {
	c := newTestConverter(t)

	winter, err := c.Instant("00:30", 2024, 1, 15)
	require.NoError(t, err)
	summer, err := c.Instant("00:30", 2024, 7, 15)
	require.NoError(t, err)

	wClock := time.Duration(winter.Hour())*time.Hour + time.Duration(winter.Minute())*time.Minute
	sClock := time.Duration(summer.Hour())*time.Hour + time.Duration(summer.Minute())*time.Minute
	assert.Equal(t, time.Hour, sClock-wClock)

	w, err := c.ConvertLeaf("00:30", Options{Use24Hour: true, Month: 1, Day: 15})
	require.NoError(t, err)
	s, err := c.ConvertLeaf("00:30", Options{Use24Hour: true, Month: 7, Day: 15})
	require.NoError(t, err)
	assert.Equal(t, model.Leaf("00:30"), w)
	assert.Equal(t, model.Leaf("01:30"), s)
}

func TestConvertIsDeterministic(t *testing.T) {
	c := newTestConverter(t)
	day := sampleDay(6, 21)

	first, err := c.Convert(day, Options{Use24Hour: true})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Convert(day, Options{Use24Hour: true})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTwelveAndTwentyFourHourAgree(t *testing.T) {
	c := newTestConverter(t)
	day := sampleDay(8, 3)

	h24, err := c.ConvertDay(day, Options{Use24Hour: true})
	require.NoError(t, err)
	h12, err := c.ConvertDay(day, Options{Use24Hour: false})
	require.NoError(t, err)

	for _, p := range model.Prayers {
		a, err := time.Parse(Layout24, string(h24.Times[p]))
		require.NoError(t, err, p)
		b, err := time.Parse(Layout12, string(h12.Times[p]))
		require.NoError(t, err, p)
		assert.Equal(t, a, b, p)
		assert.True(t, a.Hour() >= 0 && a.Hour() < 24)
	}
}

func TestConvertDayKeepsMetadata(t *testing.T) {
	c := newTestConverter(t)
	day := sampleDay(3, 31)

	got, err := c.ConvertDay(day, Options{Use24Hour: true, Month: 1, Day: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, got.Month)
	assert.Equal(t, 31, got.Day)
	// The record's own date wins over the caller's month/day.
	assert.Equal(t, model.Leaf("05:15"), got.Times[model.Dawn])

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `{"month":3,"day":31,`)
}

func TestConvertDoesNotMutateSource(t *testing.T) {
	c := newTestConverter(t)

	year := make(model.LocationYear, 12)
	for m := 1; m <= 12; m++ {
		year[m-1] = model.MonthRecord{sampleDay(m, 1), sampleDay(m, 2)}
	}
	before, err := json.Marshal(year)
	require.NoError(t, err)

	out, err := c.Convert(year, Options{Use24Hour: false})
	require.NoError(t, err)

	converted, ok := out.(model.LocationYear)
	require.True(t, ok)
	require.Len(t, converted, 12)
	assert.Equal(t, model.Leaf("05:15 AM"), converted[6][0].Times[model.Dawn])

	after, err := json.Marshal(year)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))

	// Writing into the result must not reach back into the source.
	converted[6][0].Times[model.Dawn] = "XX:XX"
	assert.Equal(t, model.Leaf("04:15"), year[6][0].Times[model.Dawn])
}

func TestConvertConcurrentReaders(t *testing.T) {
	c := newTestConverter(t)
	month := model.MonthRecord{sampleDay(3, 30), sampleDay(3, 31)}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(use24 bool) {
			defer wg.Done()
			got, err := c.ConvertMonth(month, Options{Use24Hour: use24})
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, model.Leaf("04:15"), month[1].Times[model.Dawn])
}

func TestConvertPropagatesMalformedLeaf(t *testing.T) {
	c := newTestConverter(t)
	day := sampleDay(5, 5)
	day.Times[model.Noon] = "noon"

	_, err := c.Convert(model.MonthRecord{day}, Options{})
	assert.ErrorIs(t, err, ErrMalformedTime)
}

func TestConvertUnsupportedNode(t *testing.T) {
	c := newTestConverter(t)
	_, err := c.Convert(nil, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedNode)
}

func TestToUTCInvertsConvert(t *testing.T) {
	c := newTestConverter(t)
	month := model.MonthRecord{sampleDay(3, 30), sampleDay(3, 31), sampleDay(4, 1)}
	for _, d := range month {
		// Stay clear of local midnight; a wrapped clock loses its date.
		d.Times[model.Midnight] = "22:50"
	}

	local, err := c.Convert(month, Options{Use24Hour: true})
	require.NoError(t, err)

	back, err := c.ToUTC(local, 0)
	require.NoError(t, err)
	assert.Equal(t, month, back)
}
