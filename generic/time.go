package generic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day (this IS a day-granular accounting system)
// =============================================================================

// DateLayout is the wire and storage format for calendar days.
const DateLayout = "2006-01-02"

// MinYear is the earliest year ParseDate accepts. It keeps every parsed
// date clear of the zero Date, which means "no date".
const MinYear = 1900

// Date is a calendar day. The zero value means "no date".
// Internally it is always midnight UTC so that comparisons and day
// arithmetic are never affected by DST or the host time zone.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping t's own calendar day.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD value supplied by a collaborator.
// field names the value in the returned *InvalidDateFormatError.
func ParseDate(field, value string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, &InvalidDateFormatError{Field: field, Value: value, Err: err}
	}
	if t.Year() < MinYear {
		return Date{}, &InvalidDateFormatError{Field: field, Value: value, Err: fmt.Errorf("year before %d", MinYear)}
	}
	return DateOf(t), nil
}

// ParseOptionalDate is ParseDate that maps an empty value to the zero Date.
func ParseOptionalDate(field, value string) (Date, error) {
	if strings.TrimSpace(value) == "" {
		return Date{}, nil
	}
	return ParseDate(field, value)
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int              { return d.t.Year() }
func (d Date) Month() time.Month      { return d.t.Month() }
func (d Date) Day() int               { return d.t.Day() }
func (d Date) Weekday() time.Weekday  { return d.t.Weekday() }
func (d Date) IsZero() bool           { return d.t.IsZero() }
func (d Date) IsWeekend() bool        { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return &InvalidDateFormatError{Value: string(data), Err: err}
	}
	if s == nil {
		*d = Date{}
		return nil
	}
	parsed, err := ParseOptionalDate("", *s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// DaysBetween counts calendar days from -> to (0 when equal, negative when to is earlier).
// Counted in whole Unix days; a time.Duration saturates past ~292 years.
func DaysBetween(from, to Date) int { return int((to.t.Unix() - from.t.Unix()) / 86400) }

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }
func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month+1, 1).AddDays(-1)
}
