package holiday

import (
	"context"
	"errors"
	"sort"

	"github.com/warp/oncall-ledger/generic"
)

// errYearNotLoaded is returned by a Calendar asked for a year it was not built with.
var errYearNotLoaded = errors.New("year not preloaded")

// Calendar is a fixed snapshot of holiday sets for some years of one
// jurisdiction. Lookups never perform I/O.
type Calendar struct {
	jurisdiction string
	sets         map[int]*Set
}

// NewCalendar builds a Calendar from sets already at hand.
func NewCalendar(jurisdiction string, sets ...*Set) *Calendar {
	cal := &Calendar{jurisdiction: jurisdiction, sets: make(map[int]*Set, len(sets))}
	for _, s := range sets {
		cal.sets[s.Year] = s
	}
	return cal
}

// Holidays returns the preloaded set for year. Asking for a year or a
// jurisdiction the calendar was not built with is a lookup failure.
func (c *Calendar) Holidays(_ context.Context, year int, jurisdiction string) (*Set, error) {
	set, ok := c.sets[year]
	if !ok || jurisdiction != c.jurisdiction {
		return nil, &generic.HolidayLookupError{Year: year, Jurisdiction: jurisdiction, Err: errYearNotLoaded}
	}
	return set, nil
}

// Jurisdiction returns the region the calendar was built for.
func (c *Calendar) Jurisdiction() string { return c.jurisdiction }

// Years returns the preloaded years, ascending.
func (c *Calendar) Years() []int {
	years := make([]int, 0, len(c.sets))
	for y := range c.sets {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
