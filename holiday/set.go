/*
Package holiday provides public-holiday data for day classification.

PURPOSE:
  Holiday membership decides whether a day scores as a holiday. The data
  comes from an external source queried per (year, jurisdiction); this
  package wraps that source in a cache with single-flight fills and offers
  a preloaded Calendar snapshot so classification performs no I/O.

KEY TYPES:
  Set:      Immutable holidays of one (year, jurisdiction)
  Source:   Where holidays come from (HTTP API, database)
  Cache:    Lazy, process-lifetime store of Sets; failures are not cached
  Calendar: Sets for a fixed list of years, fetched up front

SEE ALSO:
  - feiertage.go: HTTP client for feiertage-api.de
  - accounting/classifier.go: Consumer
*/
package holiday

import (
	"sort"

	"github.com/warp/oncall-ledger/generic"
)

// Holiday is one public holiday.
type Holiday struct {
	ID           generic.HolidayID `json:"id,omitempty"`
	Date         generic.Date      `json:"date"`
	Name         string            `json:"name"`
	Jurisdiction string            `json:"jurisdiction,omitempty"`
}

// Set is the immutable holiday list of one (year, jurisdiction).
type Set struct {
	Year         int
	Jurisdiction string

	holidays []Holiday
	dates    map[dayKey]struct{}
}

type dayKey int

func keyOf(d generic.Date) dayKey {
	return dayKey(d.Year()*10000 + int(d.Month())*100 + d.Day())
}

// NewSet copies holidays into a Set ordered by date. Several names on the
// same date (the source keys by name) still count as one holiday date.
func NewSet(year int, jurisdiction string, holidays []Holiday) *Set {
	s := &Set{
		Year:         year,
		Jurisdiction: jurisdiction,
		holidays:     make([]Holiday, len(holidays)),
		dates:        make(map[dayKey]struct{}, len(holidays)),
	}
	copy(s.holidays, holidays)
	sort.SliceStable(s.holidays, func(i, j int) bool {
		a, b := s.holidays[i], s.holidays[j]
		if a.Date.Equal(b.Date) {
			return a.Name < b.Name
		}
		return a.Date.Before(b.Date)
	})
	for _, h := range s.holidays {
		s.dates[keyOf(h.Date)] = struct{}{}
	}
	return s
}

// Contains reports whether d is a holiday in this set.
func (s *Set) Contains(d generic.Date) bool {
	if s == nil {
		return false
	}
	_, ok := s.dates[keyOf(d)]
	return ok
}

// Len returns the number of distinct holiday dates.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dates)
}

// Holidays returns a copy of the holidays, ordered by date.
func (s *Set) Holidays() []Holiday {
	if s == nil {
		return nil
	}
	out := make([]Holiday, len(s.holidays))
	copy(out, s.holidays)
	return out
}

// Equal reports whether both sets hold the same dates for the same key.
func (s *Set) Equal(other *Set) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Year != other.Year || s.Jurisdiction != other.Jurisdiction || len(s.dates) != len(other.dates) {
		return false
	}
	for k := range s.dates {
		if _, ok := other.dates[k]; !ok {
			return false
		}
	}
	return true
}
