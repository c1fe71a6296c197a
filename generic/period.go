package generic

import "time"

// =============================================================================
// RANGE - The window every report is computed over
// =============================================================================

// Range is an inclusive [Start, End] span of calendar days.
//
// A Range is never normalised: Start after End is a caller error and is
// rejected by Validate, not swapped.
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewRange builds a Range and validates it.
func NewRange(start, end Date) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// ParseRange parses both bounds as YYYY-MM-DD and validates the result.
func ParseRange(start, end string) (Range, error) {
	s, err := ParseDate("from", start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseDate("to", end)
	if err != nil {
		return Range{}, err
	}
	return NewRange(s, e)
}

// MonthRange returns the Range covering the whole calendar month.
func MonthRange(year int, month time.Month) Range {
	return Range{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// Validate returns *InvalidRangeError when End precedes Start or a bound is missing.
func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || r.Start.After(r.End) {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (r Range) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Len returns the number of days in the range, inclusive.
func (r Range) Len() int {
	if r.Start.After(r.End) {
		return 0
	}
	return DaysBetween(r.Start, r.End) + 1
}

// Each calls fn for every day in the range in ascending order and stops at
// the first error.
func (r Range) Each(fn func(Date) error) error {
	for d := r.Start; d.BeforeOrEqual(r.End); d = d.AddDays(1) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// Days returns all days in the range as a slice.
func (r Range) Days() []Date {
	days := make([]Date, 0, r.Len())
	_ = r.Each(func(d Date) error {
		days = append(days, d)
		return nil
	})
	return days
}

// Years returns the distinct calendar years the range touches, ascending.
func (r Range) Years() []int {
	if r.Start.After(r.End) {
		return nil
	}
	years := make([]int, 0, r.End.Year()-r.Start.Year()+1)
	for y := r.Start.Year(); y <= r.End.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// ClampStart returns the range with Start raised to from, and false when
// that leaves nothing (from after End).
func (r Range) ClampStart(from Date) (Range, bool) {
	if from.After(r.End) {
		return Range{}, false
	}
	return Range{Start: MaxDate(from, r.Start), End: r.End}, true
}

// String returns a string representation of the range.
func (r Range) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
