package store

import (
	"time"

	"ukprayer/internal/model"
)

// FixtureDay is the set of UTC times every day of FixtureTable carries.
var FixtureDay = map[model.Prayer]model.Leaf{
	model.Imsaak:   "04:05",
	model.Dawn:     "04:15",
	model.Sunrise:  "05:40",
	model.Noon:     "12:05",
	model.Sunset:   "18:30",
	model.Maghrib:  "18:45",
	model.Midnight: "23:20",
}

// FixtureTable builds a complete, valid table for locations using
// FixtureDay for every day. leapFebruary controls whether February has 29
// records. Used by tests across packages.
func FixtureTable(leapFebruary bool, locations ...string) model.Table {
	sourceYear := 2023
	if leapFebruary {
		sourceYear = 2024
	}

	t := make(model.Table, len(locations))
	for _, loc := range locations {
		year := make(model.LocationYear, 12)
		for m := 1; m <= 12; m++ {
			n := time.Date(sourceYear, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
			month := make(model.MonthRecord, n)
			for d := 1; d <= n; d++ {
				times := make(map[model.Prayer]model.Leaf, len(FixtureDay))
				for p, l := range FixtureDay {
					times[p] = l
				}
				month[d-1] = model.DayRecord{Month: m, Day: d, Times: times}
			}
			year[m-1] = month
		}
		t[loc] = year
	}
	return t
}
