/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	rosters. Dates are relative to today so the default report range (one
	month back) always shows data.

AVAILABLE SCENARIOS:

	small-team:     Three long-standing employees in a daily rotation
	new-hire:       A colleague hired two weeks ago joins the rotation
	year-boundary:  Rotation across New Year with fixed-date holidays

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create employees
 3. Seed fixed-date holidays into the holidays table
 4. Create assignments (one employee per day, round-robin)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "new-hire"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and helpers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/oncall-ledger/generic"
	"github.com/warp/oncall-ledger/holiday"
	"github.com/warp/oncall-ledger/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "Three employees sharing on-call duty in a daily rotation",
	},
	{
		ID:          "new-hire",
		Name:        "New Hire",
		Description: "Employee hired two weeks ago: shorter target window, one duty day before the hire date",
	},
	{
		ID:          "year-boundary",
		Name:        "Year Boundary",
		Description: "Rotation across New Year; holidays of both years are needed",
	},
}

type scenarioLoader func(h *Handler, ctx context.Context, today generic.Date) error

var scenarioLoaders = map[string]scenarioLoader{
	"small-team":    (*Handler).loadSmallTeamScenario,
	"new-hire":      (*Handler).loadNewHireScenario,
	"year-boundary": (*Handler).loadYearBoundaryScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		h.fail(w, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	h.holidaysChanged()

	if err := load(h, ctx, h.today()); err != nil {
		h.fail(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.holidaysChanged()
	h.currentScenario = req.ScenarioID

	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	h.holidaysChanged()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadSmallTeamScenario(ctx context.Context, today generic.Date) error {
	team, err := h.createEmployees(ctx, []sqlite.Employee{
		{FirstName: "Anna", LastName: "Schmidt", HireDate: generic.NewDate(2019, time.April, 1), Color: "#f4a261"},
		{FirstName: "Ben", LastName: "Weber", HireDate: generic.NewDate(2021, time.September, 15), Color: "#2a9d8f"},
		{FirstName: "Clara", LastName: "Fischer", HireDate: generic.NewDate(2023, time.January, 2), Color: "#e9c46a"},
	})
	if err != nil {
		return err
	}
	from := today.AddMonths(-2)
	if err := h.seedFixedHolidays(ctx, from.Year(), today.Year()); err != nil {
		return err
	}
	return h.rotate(ctx, team, from, today)
}

func (h *Handler) loadNewHireScenario(ctx context.Context, today generic.Date) error {
	hired := today.AddDays(-14)
	team, err := h.createEmployees(ctx, []sqlite.Employee{
		{FirstName: "Anna", LastName: "Schmidt", HireDate: generic.NewDate(2019, time.April, 1), Color: "#f4a261"},
		{FirstName: "Ben", LastName: "Weber", HireDate: generic.NewDate(2021, time.September, 15), Color: "#2a9d8f"},
	})
	if err != nil {
		return err
	}
	newcomer, err := h.createEmployees(ctx, []sqlite.Employee{
		{FirstName: "David", LastName: "Becker", HireDate: hired, Color: "#e76f51"},
	})
	if err != nil {
		return err
	}

	from := today.AddMonths(-2)
	if err := h.seedFixedHolidays(ctx, from.Year(), today.Year()); err != nil {
		return err
	}
	if err := h.rotate(ctx, team, from, hired.AddDays(-1)); err != nil {
		return err
	}
	if err := h.rotate(ctx, append(team, newcomer...), hired, today); err != nil {
		return err
	}

	// Shadow shift before the official start: counts as actual, not target.
	_, err = h.Store.CreateAssignment(ctx, sqlite.Assignment{Date: hired.AddDays(-3), EmployeeID: newcomer[0].ID})
	return err
}

func (h *Handler) loadYearBoundaryScenario(ctx context.Context, today generic.Date) error {
	team, err := h.createEmployees(ctx, []sqlite.Employee{
		{FirstName: "Emma", LastName: "Wagner", HireDate: generic.NewDate(2020, time.June, 1), Color: "#8ecae6"},
		{FirstName: "Felix", LastName: "Hoffmann", HireDate: generic.NewDate(2022, time.March, 1), Color: "#ffb703"},
	})
	if err != nil {
		return err
	}

	newYear := generic.StartOfYear(today.Year())
	from, to := newYear.AddDays(-14), newYear.AddDays(13)
	if err := h.seedFixedHolidays(ctx, from.Year(), to.Year()); err != nil {
		return err
	}
	return h.rotate(ctx, team, from, to)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createEmployees(ctx context.Context, emps []sqlite.Employee) ([]sqlite.Employee, error) {
	out := make([]sqlite.Employee, 0, len(emps))
	for _, e := range emps {
		saved, err := h.Store.SaveEmployee(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("failed to create employee %s: %w", e.Name(), err)
		}
		out = append(out, saved)
	}
	return out, nil
}

// rotate assigns one employee per day from..to, round-robin.
func (h *Handler) rotate(ctx context.Context, team []sqlite.Employee, from, to generic.Date) error {
	if len(team) == 0 || from.After(to) {
		return nil
	}
	i := 0
	return generic.Range{Start: from, End: to}.Each(func(d generic.Date) error {
		emp := team[i%len(team)]
		i++
		if _, err := h.Store.CreateAssignment(ctx, sqlite.Assignment{Date: d, EmployeeID: emp.ID}); err != nil {
			return fmt.Errorf("failed to assign %s on %s: %w", emp.Name(), d, err)
		}
		return nil
	})
}

// fixedHolidays are the NW holidays that fall on the same date every year.
var fixedHolidays = []struct {
	month time.Month
	day   int
	name  string
}{
	{time.January, 1, "Neujahrstag"},
	{time.May, 1, "Tag der Arbeit"},
	{time.October, 3, "Tag der Deutschen Einheit"},
	{time.November, 1, "Allerheiligen"},
	{time.December, 25, "1. Weihnachtstag"},
	{time.December, 26, "2. Weihnachtstag"},
}

// seedFixedHolidays writes the fixed-date holidays of the given years into
// the holidays table for the configured jurisdiction.
func (h *Handler) seedFixedHolidays(ctx context.Context, fromYear, toYear int) error {
	jurisdiction := h.Engine.Jurisdiction()
	for year := fromYear; year <= toYear; year++ {
		for _, f := range fixedHolidays {
			_, err := h.Store.SaveHoliday(ctx, holiday.Holiday{
				Date:         generic.NewDate(year, f.month, f.day),
				Name:         f.name,
				Jurisdiction: jurisdiction,
			})
			if err != nil {
				return fmt.Errorf("failed to seed holiday %s %d: %w", f.name, year, err)
			}
		}
	}
	return nil
}
