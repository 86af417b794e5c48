package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayRecordMarshalKeepsDisplayOrder(t *testing.T) {
	d := DayRecord{
		Month: 3,
		Day:   31,
		Times: map[Prayer]Leaf{
			Midnight: "23:20",
			Dawn:     "04:15",
			Imsaak:   "04:05",
			Sunrise:  "05:40",
			Noon:     "12:05",
			Sunset:   "18:30",
			Maghrib:  "18:45",
		},
	}

	got, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t,
		`{"month":3,"day":31,"imsaak":"04:05","dawn":"04:15","sunrise":"05:40","noon":"12:05","sunset":"18:30","maghrib":"18:45","midnight":"23:20"}`,
		string(got))
}

func TestDayRecordUnmarshal(t *testing.T) {
	var d DayRecord
	err := json.Unmarshal([]byte(`{"month":12,"day":25,"dawn":"06:10","noon":"12:00"}`), &d)
	require.NoError(t, err)

	assert.Equal(t, 12, d.Month)
	assert.Equal(t, 25, d.Day)
	assert.Equal(t, Leaf("06:10"), d.Times[Dawn])
	assert.Equal(t, Leaf("12:00"), d.Times[Noon])
	assert.Len(t, d.Times, 2)
}

func TestDayRecordUnmarshalRejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown prayer", `{"month":1,"day":1,"asr":"15:00"}`},
		{"uppercase prayer", `{"month":1,"day":1,"Dawn":"06:00"}`},
		{"non-string time", `{"month":1,"day":1,"dawn":600}`},
		{"non-int month", `{"month":"jan","day":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d DayRecord
			assert.Error(t, json.Unmarshal([]byte(tt.in), &d))
		})
	}
}

func TestParsePrayer(t *testing.T) {
	p, ok := ParsePrayer(" Dawn ")
	assert.True(t, ok)
	assert.Equal(t, Dawn, p)

	_, ok = ParsePrayer("asr")
	assert.False(t, ok)

	_, ok = ParsePrayer("month")
	assert.False(t, ok)
}

func TestNodeVariants(t *testing.T) {
	nodes := []Node{Leaf("05:00"), DayRecord{}, MonthRecord{}, LocationYear{}}
	assert.Len(t, nodes, 4)
}
