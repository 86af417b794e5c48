package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	appLog "ukprayer/internal/log"
	"ukprayer/internal/model"
	"ukprayer/internal/timeconv"
)

// Lookup rejections. These are client errors: the HTTP layer reports them
// with the failing value.
var (
	ErrUnknownLocation = errors.New("unknown location")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidPrayer   = errors.New("invalid prayer name")
)

// Locations is the fixed set of UK towns the table may contain.
var Locations = []string{
	"aberystwyth",
	"bangor-wales",
	"birmingham",
	"bournemouth",
	"brighton",
	"bristol",
	"cambridge",
	"cardiff",
	"dover",
	"dundee",
	"edinburgh",
	"exeter",
	"glasgow",
	"hull",
	"leeds",
	"leicester",
	"liverpool",
	"london",
	"luton",
	"manchester",
	"middlesbrough",
	"milton-keynes",
	"newcastle",
	"norwich",
	"nottingham",
	"oxford",
	"peterborough",
	"plymouth",
	"portsmouth",
	"sheffield",
	"southampton",
	"southend-on-sea",
	"stoke-on-trent",
	"swansea",
	"swindon",
}

var knownLocations = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Locations))
	for _, l := range Locations {
		m[l] = struct{}{}
	}
	return m
}()

// NormalizeLocation trims and lowercases a location slug.
func NormalizeLocation(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DisplayName turns a slug into a label: "milton-keynes" -> "Milton Keynes".
func DisplayName(slug string) string {
	words := strings.Split(NormalizeLocation(slug), "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// IsKnownLocation reports whether slug is one of Locations.
func IsKnownLocation(slug string) bool {
	_, ok := knownLocations[NormalizeLocation(slug)]
	return ok
}

// Store is the read-only prayer time table. It is never modified after
// Load returns, so lookups need no locking. Returned records share memory
// with the table and must be treated as read-only; timeconv rebuilds
// everything it converts.
type Store struct {
	table model.Table
}

// LoadFile reads a JSON table from path.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	appLog.Info("prayer table loaded", "path", path, "locations", len(s.table))
	return s, nil
}

// Load decodes and validates a table in the source layout:
// {"london": [[{"month":1,"day":1,"imsaak":"06:10",...}, ...], ...], ...}
func Load(r io.Reader) (*Store, error) {
	var t model.Table
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return New(t)
}

// New validates t and wraps it. The caller must not modify t afterwards.
func New(t model.Table) (*Store, error) {
	if len(t) == 0 {
		return nil, errors.New("table is empty")
	}
	for loc, year := range t {
		if err := validateYear(loc, year); err != nil {
			return nil, err
		}
	}
	return &Store{table: t}, nil
}

func validateYear(loc string, year model.LocationYear) error {
	if !IsKnownLocation(loc) || NormalizeLocation(loc) != loc {
		return fmt.Errorf("%w: %q", ErrUnknownLocation, loc)
	}
	if len(year) != 12 {
		return fmt.Errorf("%s: expected 12 months, got %d", loc, len(year))
	}
	for mi, month := range year {
		if len(month) < 28 || len(month) > 31 {
			return fmt.Errorf("%s: month %d has %d days", loc, mi+1, len(month))
		}
		for di, day := range month {
			if day.Month != mi+1 || day.Day != di+1 {
				return fmt.Errorf("%s: record at %02d-%02d claims %02d-%02d",
					loc, mi+1, di+1, day.Month, day.Day)
			}
			if len(day.Times) != len(model.Prayers) {
				return fmt.Errorf("%s %02d-%02d: expected %d prayer times, got %d",
					loc, mi+1, di+1, len(model.Prayers), len(day.Times))
			}
			for p, l := range day.Times {
				if known, ok := model.ParsePrayer(string(p)); !ok || known != p {
					return fmt.Errorf("%s %02d-%02d: %w: %q", loc, mi+1, di+1, ErrInvalidPrayer, p)
				}
				if _, _, err := timeconv.ParseClock(string(l)); err != nil {
					return fmt.Errorf("%s %02d-%02d %s: %w", loc, mi+1, di+1, p, err)
				}
			}
		}
	}
	return nil
}

// Available returns the loaded location slugs in sorted order.
func (s *Store) Available() []string {
	out := make([]string, 0, len(s.table))
	for k := range s.table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Has reports whether loc (after normalization) is in the table.
func (s *Store) Has(loc string) bool {
	_, ok := s.table[NormalizeLocation(loc)]
	return ok
}

func (s *Store) Year(loc string) (model.LocationYear, error) {
	key := NormalizeLocation(loc)
	y, ok := s.table[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, loc)
	}
	return y, nil
}

func (s *Store) Month(loc string, month int) (model.MonthRecord, error) {
	y, err := s.Year(loc)
	if err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: %d (want 1-12)", ErrInvalidMonth, month)
	}
	return y[month-1], nil
}

// DaysIn returns the number of day records stored for month, which for
// February depends on the year the data was captured in.
func (s *Store) DaysIn(loc string, month int) (int, error) {
	m, err := s.Month(loc, month)
	if err != nil {
		return 0, err
	}
	return len(m), nil
}

func (s *Store) Day(loc string, month, day int) (model.DayRecord, error) {
	m, err := s.Month(loc, month)
	if err != nil {
		return model.DayRecord{}, err
	}
	if day < 1 || day > len(m) {
		return model.DayRecord{}, fmt.Errorf("%w: %d (month %d has %d days)", ErrInvalidDay, day, month, len(m))
	}
	return m[day-1], nil
}

func (s *Store) Time(loc string, month, day int, prayer string) (model.Leaf, error) {
	p, ok := model.ParsePrayer(prayer)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrayer, prayer)
	}
	d, err := s.Day(loc, month, day)
	if err != nil {
		return "", err
	}
	return d.Times[p], nil
}
