package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/oncall-ledger/generic"
	"github.com/warp/oncall-ledger/holiday"
)

// =============================================================================
// REPORT ROWS
// =============================================================================

// EmployeeAccounting is one report row.
type EmployeeAccounting struct {
	EmployeeID   generic.EmployeeID
	Window       generic.Range  // days that accrue target points
	Target       generic.Points // expected points over Window
	Actual       generic.Points // points from assignments within the queried range
	Difference   generic.Points // Actual - Target; negative means under target
	AssignedDays int
}

// Totals sums a report.
type Totals struct {
	Employees  int
	Target     generic.Points
	Actual     generic.Points
	Difference generic.Points
}

// Summarize adds up target, actual and difference over rows.
func Summarize(rows []EmployeeAccounting) Totals {
	t := Totals{
		Employees:  len(rows),
		Target:     generic.ZeroPoints(),
		Actual:     generic.ZeroPoints(),
		Difference: generic.ZeroPoints(),
	}
	for _, row := range rows {
		t.Target = t.Target.Add(row.Target)
		t.Actual = t.Actual.Add(row.Actual)
		t.Difference = t.Difference.Add(row.Difference)
	}
	return t
}

// =============================================================================
// ENGINE
// =============================================================================

// HolidayPrefetcher loads the holiday sets of several years at once.
// *holiday.Cache satisfies it.
type HolidayPrefetcher interface {
	Prefetch(ctx context.Context, jurisdiction string, years ...int) (*holiday.Calendar, error)
}

// Config wires an Engine. Directory and Assignments are only needed by Report.
type Config struct {
	Holidays     HolidayPrefetcher
	Jurisdiction string
	Weights      WeightPolicy // zero value selects DefaultWeights
	Directory    generic.Directory
	Assignments  generic.AssignmentSource
	Logger       logrus.FieldLogger
}

// Engine produces target/actual reports.
//
// GUARANTEES:
//   - Holiday sets for every year of the range are fetched before any day
//     is classified; aggregation itself performs no I/O.
//   - Any error aborts the whole report; no partial rows are returned.
//   - Inputs are never mutated.
type Engine struct {
	holidays     HolidayPrefetcher
	jurisdiction string
	weights      WeightPolicy
	directory    generic.Directory
	assignments  generic.AssignmentSource
	log          logrus.FieldLogger
}

// NewEngine builds an Engine; negative weights are rejected.
func NewEngine(cfg Config) (*Engine, error) {
	weights := cfg.Weights
	if weights.Weekday.IsZero() && weights.Weekend.IsZero() && weights.Holiday.IsZero() {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.Holidays == nil {
		return nil, fmt.Errorf("holiday prefetcher is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		holidays:     cfg.Holidays,
		jurisdiction: cfg.Jurisdiction,
		weights:      weights,
		directory:    cfg.Directory,
		assignments:  cfg.Assignments,
		log:          log,
	}, nil
}

// Jurisdiction returns the region whose holidays the engine uses.
func (e *Engine) Jurisdiction() string { return e.jurisdiction }

// Weights returns the active weight policy.
func (e *Engine) Weights() WeightPolicy { return e.weights }

// ClassifierFor prefetches the holidays of every year in r and returns a
// classifier that answers from that snapshot.
func (e *Engine) ClassifierFor(ctx context.Context, r generic.Range) (*DayClassifier, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	cal, err := e.holidays.Prefetch(ctx, e.jurisdiction, r.Years()...)
	if err != nil {
		return nil, err
	}
	return NewDayClassifier(cal, e.jurisdiction, e.weights), nil
}

// ComputeReport computes one row per eligible employee, in input order.
//
// Actual points count every assignment dated within r, including those
// before the employee's hire date; target points only count the
// eligibility window. Assignments outside r are ignored.
func (e *Engine) ComputeReport(ctx context.Context, employees []generic.Employee, assignments []generic.Assignment, r generic.Range) ([]EmployeeAccounting, error) {
	classifier, err := e.ClassifierFor(ctx, r)
	if err != nil {
		return nil, err
	}

	actual := make(map[generic.EmployeeID]generic.Points)
	assigned := make(map[generic.EmployeeID]int)
	for _, a := range assignments {
		if !r.Contains(a.Date) {
			continue
		}
		w, err := classifier.Weight(ctx, a.Date)
		if err != nil {
			return nil, err
		}
		if p, ok := actual[a.EmployeeID]; ok {
			actual[a.EmployeeID] = p.Add(w)
		} else {
			actual[a.EmployeeID] = w
		}
		assigned[a.EmployeeID]++
	}

	rows := make([]EmployeeAccounting, 0, len(employees))
	for _, emp := range employees {
		window, ok, err := ResolveEligibility(emp, r)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		target, err := classifier.Sum(ctx, window)
		if err != nil {
			return nil, err
		}
		act, found := actual[emp.ID]
		if !found {
			act = generic.ZeroPoints()
		}

		rows = append(rows, EmployeeAccounting{
			EmployeeID:   emp.ID,
			Window:       window,
			Target:       target,
			Actual:       act,
			Difference:   act.Sub(target),
			AssignedDays: assigned[emp.ID],
		})
	}
	return rows, nil
}

// Report loads employees and the assignments within r from the configured
// collaborators and computes the report. Collaborator failures come back
// as *generic.DirectoryError / *generic.AssignmentStoreError.
func (e *Engine) Report(ctx context.Context, r generic.Range) ([]EmployeeAccounting, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	employees, err := e.directory.ListEmployees(ctx)
	if err != nil {
		e.log.WithField("range", r.String()).WithError(err).Error("failed to list employees")
		return nil, &generic.DirectoryError{Err: err}
	}
	return e.ReportFor(ctx, employees, r)
}

// ReportFor is Report over an employee list the caller already read, so
// that rows and any names the caller shows come from one snapshot.
func (e *Engine) ReportFor(ctx context.Context, employees []generic.Employee, r generic.Range) ([]EmployeeAccounting, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	log := e.log.WithField("range", r.String())

	assignments, err := e.assignments.ListAssignments(ctx, r)
	if err != nil {
		log.WithError(err).Error("failed to list assignments")
		return nil, &generic.AssignmentStoreError{Err: err}
	}

	rows, err := e.ComputeReport(ctx, employees, assignments, r)
	if err != nil {
		log.WithError(err).Warn("report aborted")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"employees":   len(employees),
		"assignments": len(assignments),
		"rows":        len(rows),
		"took":        time.Since(started),
	}).Debug("report computed")
	return rows, nil
}
