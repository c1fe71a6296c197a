/*
Package accounting computes target vs. actual on-call workload.

PURPOSE:
  Every calendar day carries a point weight (weekday, weekend, holiday).
  An employee's TARGET is the sum of weights over the days they were
  employed within the queried range; their ACTUAL is the sum of weights of
  the days they were really on call. The report shows both and the
  difference.

COMPONENTS:
  DayClassifier:      date -> DayType -> weight
  ResolveEligibility: employee + range -> window that accrues target
  Engine:             orchestrates both into report rows

EXAMPLE (range Mon 2025-01-06 .. Sun 2025-01-12, no holidays):
  target = 1+1+1+1+1+2+2 = 9
  on call Sat + Wed       -> actual = 2+1 = 3, difference = -6

SEE ALSO:
  - holiday/cache.go: Holiday data
  - generic/errors.go: Error kinds
*/
package accounting

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/oncall-ledger/generic"
	"github.com/warp/oncall-ledger/holiday"
)

// =============================================================================
// DAY TYPE
// =============================================================================

type DayType int

const (
	Weekday DayType = iota + 1
	Weekend
	Holiday
)

func (t DayType) String() string {
	switch t {
	case Weekday:
		return "weekday"
	case Weekend:
		return "weekend"
	case Holiday:
		return "holiday"
	default:
		return fmt.Sprintf("DayType(%d)", int(t))
	}
}

func (t DayType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// =============================================================================
// WEIGHT POLICY
// =============================================================================

// WeightPolicy maps day types to points.
type WeightPolicy struct {
	Weekday generic.Points
	Weekend generic.Points
	Holiday generic.Points
}

// DefaultWeights scores weekdays 1, weekends 2, holidays 3.
func DefaultWeights() WeightPolicy {
	return WeightPolicy{
		Weekday: generic.NewPoints(1),
		Weekend: generic.NewPoints(2),
		Holiday: generic.NewPoints(3),
	}
}

// Validate rejects negative weights.
func (w WeightPolicy) Validate() error {
	for name, p := range map[string]generic.Points{"weekday": w.Weekday, "weekend": w.Weekend, "holiday": w.Holiday} {
		if p.Value.LessThan(decimal.Zero) {
			return fmt.Errorf("%s weight must not be negative: %s", name, p)
		}
	}
	return nil
}

// For returns the weight of a day type.
func (w WeightPolicy) For(t DayType) generic.Points {
	switch t {
	case Holiday:
		return w.Holiday
	case Weekend:
		return w.Weekend
	default:
		return w.Weekday
	}
}

// =============================================================================
// DAY CLASSIFIER
// =============================================================================

// HolidayProvider returns the holiday set of one (year, jurisdiction).
// Both *holiday.Cache and *holiday.Calendar satisfy it.
type HolidayProvider interface {
	Holidays(ctx context.Context, year int, jurisdiction string) (*holiday.Set, error)
}

// DayClassifier classifies dates for one jurisdiction.
type DayClassifier struct {
	holidays     HolidayProvider
	jurisdiction string
	weights      WeightPolicy
}

func NewDayClassifier(holidays HolidayProvider, jurisdiction string, weights WeightPolicy) *DayClassifier {
	return &DayClassifier{holidays: holidays, jurisdiction: jurisdiction, weights: weights}
}

// Classify returns Holiday when d is in the holiday set of d's year,
// otherwise Weekend on Saturday/Sunday, otherwise Weekday.
// Holiday lookup errors are returned unchanged.
func (c *DayClassifier) Classify(ctx context.Context, d generic.Date) (DayType, error) {
	set, err := c.holidays.Holidays(ctx, d.Year(), c.jurisdiction)
	if err != nil {
		return 0, err
	}
	switch {
	case set.Contains(d):
		return Holiday, nil
	case d.IsWeekend():
		return Weekend, nil
	default:
		return Weekday, nil
	}
}

// Weight returns the points d scores.
func (c *DayClassifier) Weight(ctx context.Context, d generic.Date) (generic.Points, error) {
	t, err := c.Classify(ctx, d)
	if err != nil {
		return generic.Points{}, err
	}
	return c.weights.For(t), nil
}

// Sum adds up the weights of every day in r.
func (c *DayClassifier) Sum(ctx context.Context, r generic.Range) (generic.Points, error) {
	total := generic.ZeroPoints()
	err := r.Each(func(d generic.Date) error {
		w, err := c.Weight(ctx, d)
		if err != nil {
			return err
		}
		total = total.Add(w)
		return nil
	})
	if err != nil {
		return generic.Points{}, err
	}
	return total, nil
}
