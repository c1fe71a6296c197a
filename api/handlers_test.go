/*
handlers_test.go - HTTP tests for the duty ledger API

Tests for:
- Target/actual report end-to-end (employees + assignments + holidays)
- Default report range, invalid input, error status mapping
- Holiday failures are not cached across requests
- Assignment constraints (duplicate, unknown employee, employee in use)
- Calendar month view and holiday endpoints
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/oncall-ledger/accounting"
	"github.com/warp/oncall-ledger/generic"
	"github.com/warp/oncall-ledger/holiday"
	"github.com/warp/oncall-ledger/store/sqlite"
)

// fixedNow is a Monday.
var fixedNow = time.Date(2025, time.January, 20, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	store   *sqlite.Store
	cache   *holiday.Cache
	handler *Handler
	router  http.Handler
	fetches atomic.Int32
	failing atomic.Bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{store: store}
	nwHolidays := map[int][]holiday.Holiday{
		2024: {{Date: generic.NewDate(2024, time.December, 25), Name: "1. Weihnachtstag"}},
		2025: {
			{Date: generic.NewDate(2025, time.January, 1), Name: "Neujahrstag"},
			{Date: generic.NewDate(2025, time.November, 1), Name: "Allerheiligen"},
		},
	}
	src := holiday.SourceFunc(func(_ context.Context, year int, _ string) ([]holiday.Holiday, error) {
		env.fetches.Add(1)
		if env.failing.Load() {
			return nil, errors.New("holiday service unavailable")
		}
		return nwHolidays[year], nil
	})

	log, _ := test.NewNullLogger()
	env.cache = holiday.NewCache(src, holiday.WithLogger(log))
	engine, err := accounting.NewEngine(accounting.Config{
		Holidays:     env.cache,
		Jurisdiction: "NW",
		Directory:    store,
		Assignments:  store,
		Logger:       log,
	})
	require.NoError(t, err)
	env.handler = NewHandler(store, engine, env.cache, log)
	env.handler.Now = func() time.Time { return fixedNow }
	env.router = NewRouter(env.handler, nil)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createEmployee(t *testing.T, first, last, hired string) EmployeeDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/employees", EmployeeRequest{FirstName: first, LastName: last, HireDate: hired})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[EmployeeDTO](t, rec)
}

func (e *testEnv) assign(t *testing.T, employeeID, date string) AssignmentDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/assignments", AssignmentRequest{Date: date, EmployeeID: employeeID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AssignmentDTO](t, rec)
}

func points(n int64) generic.Points { return generic.NewPoints(n) }

// =============================================================================
// REPORT
// =============================================================================

func TestReport_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: Anna (hired long ago) on call over the weekend and
	//        Ben (hired Thursday) with one duty day before the hire date
	anna := env.createEmployee(t, "Anna", "Schmidt", "2020-03-01")
	ben := env.createEmployee(t, "Ben", "Weber", "2025-01-09")
	env.assign(t, anna.ID, "2025-01-11")
	env.assign(t, anna.ID, "2025-01-12")
	env.assign(t, ben.ID, "2025-01-06")

	// WHEN: Requesting the report for Mon 6 - Sun 12 January
	rec := env.do(t, http.MethodGet, "/api/report?from=2025-01-06&to=2025-01-12", nil)

	// THEN: Targets follow the eligibility windows, actuals count all duty days
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ReportResponse](t, rec)
	require.Len(t, resp.Rows, 2)

	a := resp.Rows[0]
	assert.Equal(t, anna.ID, a.EmployeeID)
	assert.Equal(t, "Anna Schmidt", a.Name)
	assert.Equal(t, "2025-01-06", a.WindowStart)
	assert.True(t, a.Target.Equal(points(9)), "target %s", a.Target)
	assert.True(t, a.Actual.Equal(points(4)), "actual %s", a.Actual)
	assert.True(t, a.Difference.Equal(points(-5)), "difference %s", a.Difference)
	assert.Equal(t, 2, a.AssignedDays)

	b := resp.Rows[1]
	assert.Equal(t, ben.ID, b.EmployeeID)
	assert.Equal(t, "2025-01-09", b.WindowStart)
	assert.True(t, b.Target.Equal(points(6)), "target %s", b.Target)
	assert.True(t, b.Actual.Equal(points(1)), "actual %s", b.Actual)
	assert.True(t, b.Difference.Equal(points(-5)), "difference %s", b.Difference)

	assert.Equal(t, 2, resp.Totals.Employees)
	assert.True(t, resp.Totals.Target.Equal(points(15)))
	assert.True(t, resp.Totals.Actual.Equal(points(5)))
	assert.True(t, resp.Totals.Difference.Equal(points(-10)))
	assert.Equal(t, "NW", resp.Jurisdiction)
	assert.True(t, resp.Weights.Holiday.Equal(points(3)))
}

func TestReport_DefaultRangeIsLastMonthToToday(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/report", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ReportResponse](t, rec)
	assert.Equal(t, "2024-12-20", resp.From)
	assert.Equal(t, "2025-01-20", resp.To)
	assert.Empty(t, resp.Rows)

	// Both years of the range were loaded before any day was classified.
	assert.Equal(t, int32(2), env.fetches.Load())
}

func TestReport_HiredAfterRangeHasNoRow(t *testing.T) {
	env := newTestEnv(t)
	env.createEmployee(t, "Anna", "Schmidt", "2020-03-01")
	env.createEmployee(t, "Carl", "Late", "2025-02-01")

	rec := env.do(t, http.MethodGet, "/api/report?from=2025-01-01&to=2025-01-31", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ReportResponse](t, rec)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Anna Schmidt", resp.Rows[0].Name)
}

func TestReport_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, env *testEnv)
		path   string
		status int
	}{
		{
			name:   "inverted range",
			path:   "/api/report?from=2025-01-31&to=2025-01-01",
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed date",
			path:   "/api/report?from=01.01.2025&to=2025-01-31",
			status: http.StatusBadRequest,
		},
		{
			name:   "year before 1900",
			path:   "/api/report?from=0001-01-01&to=2025-01-31",
			status: http.StatusBadRequest,
		},
		{
			name:   "range over ten years",
			path:   "/api/report?from=1900-01-01&to=9999-12-31",
			status: http.StatusBadRequest,
		},
		{
			name: "employee without hire date",
			setup: func(t *testing.T, env *testEnv) {
				env.createEmployee(t, "No", "Date", "")
			},
			path:   "/api/report?from=2025-01-01&to=2025-01-31",
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "holiday source down",
			setup: func(t *testing.T, env *testEnv) {
				env.failing.Store(true)
			},
			path:   "/api/report?from=2025-01-01&to=2025-01-31",
			status: http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(t, env)
			}

			rec := env.do(t, http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestReport_SpanLimit(t *testing.T) {
	env := newTestEnv(t)
	env.createEmployee(t, "Anna", "Schmidt", "2020-03-01")

	// GIVEN: A range one day longer than ten years
	// WHEN: Requesting the report
	// THEN: It is rejected before any holiday is fetched
	rec := env.do(t, http.MethodGet, "/api/report?from=2015-01-01&to=2025-01-02", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "range too long")
	assert.Zero(t, env.fetches.Load())

	// Exactly ten years is allowed.
	rec = env.do(t, http.MethodGet, "/api/report?from=2015-01-01&to=2025-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[ReportResponse](t, rec).Rows, 1)
	assert.Equal(t, int32(11), env.fetches.Load())
}

func TestReport_HolidayFailureIsNotCached(t *testing.T) {
	env := newTestEnv(t)
	env.createEmployee(t, "Anna", "Schmidt", "2020-03-01")

	// GIVEN: The holiday source fails on the first request
	env.failing.Store(true)
	rec := env.do(t, http.MethodGet, "/api/report?from=2025-01-01&to=2025-01-31", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	// WHEN: The source recovers
	env.failing.Store(false)
	rec = env.do(t, http.MethodGet, "/api/report?from=2025-01-01&to=2025-01-31", nil)

	// THEN: The next request refetches and succeeds
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ReportResponse](t, rec)
	require.Len(t, resp.Rows, 1)
	// January 2025: 23 weekdays (one of them a holiday) + 8 weekend days
	assert.True(t, resp.Rows[0].Target.Equal(points(22+16+3)), "target %s", resp.Rows[0].Target)
	assert.Equal(t, int32(2), env.fetches.Load())
}

// =============================================================================
// EMPLOYEES & ASSIGNMENTS
// =============================================================================

func TestEmployees_CRUD(t *testing.T) {
	env := newTestEnv(t)

	created := env.createEmployee(t, "Anna", "Schmidt", "2020-03-01")
	assert.Equal(t, "#ffffff", created.Color)

	rec := env.do(t, http.MethodPut, "/api/employees/"+created.ID,
		EmployeeRequest{FirstName: "Anna", LastName: "Müller", HireDate: "2020-04-01", Color: "#00ff00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[EmployeeDTO](t, rec)
	assert.Equal(t, "Anna Müller", updated.Name)
	assert.Equal(t, "2020-04-01", updated.HireDate)

	rec = env.do(t, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EmployeeDTO](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/api/employees/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/employees/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployees_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  EmployeeRequest
	}{
		{"missing last name", EmployeeRequest{FirstName: "Anna", HireDate: "2020-01-01"}},
		{"bad colour", EmployeeRequest{FirstName: "Anna", LastName: "S", Color: "red"}},
		{"bad hire date", EmployeeRequest{FirstName: "Anna", LastName: "S", HireDate: "2020/01/01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/employees", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAssignments_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	anna := env.createEmployee(t, "Anna", "Schmidt", "2020-03-01")
	first := env.assign(t, anna.ID, "2025-01-11")

	t.Run("same employee same day", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/assignments", AssignmentRequest{Date: "2025-01-11", EmployeeID: anna.ID})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
	t.Run("unknown employee", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/assignments", AssignmentRequest{Date: "2025-01-11", EmployeeID: "ghost"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("malformed date", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/assignments", AssignmentRequest{Date: "11.01.2025", EmployeeID: anna.ID})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("employee with assignments cannot be deleted", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/employees/"+anna.ID, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
	t.Run("move and delete", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/assignments/"+first.ID, AssignmentRequest{Date: "2025-01-12", EmployeeID: anna.ID})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "2025-01-12", decode[AssignmentDTO](t, rec).Date)

		rec = env.do(t, http.MethodDelete, "/api/assignments/"+first.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = env.do(t, http.MethodDelete, "/api/assignments/"+first.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAssignments_ListByDayAndEmployee(t *testing.T) {
	env := newTestEnv(t)
	anna := env.createEmployee(t, "Anna", "Schmidt", "2020-03-01")
	ben := env.createEmployee(t, "Ben", "Weber", "2021-03-01")
	env.assign(t, anna.ID, "2025-01-11")
	env.assign(t, ben.ID, "2025-01-11")
	env.assign(t, ben.ID, "2025-01-12")

	rec := env.do(t, http.MethodGet, "/api/assignments?date=2025-01-11", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	day := decode[[]AssignmentDTO](t, rec)
	require.Len(t, day, 2)
	assert.Equal(t, "Anna Schmidt", day[0].EmployeeName)

	rec = env.do(t, http.MethodGet, "/api/assignments", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/employees/"+ben.ID+"/assignments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AssignmentDTO](t, rec), 2)
}

// =============================================================================
// CALENDAR & HOLIDAYS
// =============================================================================

func TestCalendar_Month(t *testing.T) {
	env := newTestEnv(t)
	anna := env.createEmployee(t, "Anna", "Schmidt", "2020-03-01")
	env.assign(t, anna.ID, "2025-01-01")

	rec := env.do(t, http.MethodGet, "/api/calendar?month=2025-01", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cal := decode[CalendarDTO](t, rec)
	require.Len(t, cal.Days, 31)
	assert.Equal(t, "2025-01", cal.Month)

	newYear := cal.Days[0]
	assert.Equal(t, "holiday", newYear.DayType)
	assert.True(t, newYear.Weight.Equal(points(3)))
	assert.Equal(t, []string{"Neujahrstag"}, newYear.Holidays)
	require.Len(t, newYear.Assignments, 1)
	assert.Equal(t, anna.ID, newYear.Assignments[0].EmployeeID)

	saturday := cal.Days[10]
	assert.Equal(t, "Saturday", saturday.Weekday)
	assert.Equal(t, "weekend", saturday.DayType)
	assert.Empty(t, saturday.Assignments)

	rec = env.do(t, http.MethodGet, "/api/calendar?month=January", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHolidays_ListAndPurge(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/holidays?year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[HolidayListResponse](t, rec)
	require.Len(t, list.Holidays, 2)
	assert.Equal(t, "Neujahrstag", list.Holidays[0].Name)
	assert.Equal(t, "NW", list.Holidays[0].Jurisdiction)

	// Served from the cache the second time
	env.do(t, http.MethodGet, "/api/holidays?year=2025", nil)
	assert.Equal(t, int32(1), env.fetches.Load())

	rec = env.do(t, http.MethodPost, "/api/admin/holidays/purge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"purged": 1}, decode[map[string]int](t, rec))

	env.do(t, http.MethodGet, "/api/holidays?year=2025", nil)
	assert.Equal(t, int32(2), env.fetches.Load())

	rec = env.do(t, http.MethodGet, "/api/holidays?year=next", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHolidays_ManualFromStore(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: A handler whose cache is filled from the holidays table
	log, _ := test.NewNullLogger()
	cache := holiday.NewCache(env.store, holiday.WithLogger(log))
	engine, err := accounting.NewEngine(accounting.Config{Holidays: cache, Jurisdiction: "NW", Directory: env.store, Assignments: env.store, Logger: log})
	require.NoError(t, err)
	h := NewHandler(env.store, engine, cache, log)
	h.HolidaysFromStore = true
	router := NewRouter(h, nil)
	serve := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
		return rec
	}

	rec := serve(http.MethodGet, "/api/holidays?year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[HolidayListResponse](t, rec).Holidays)

	// WHEN: A holiday is added
	rec = serve(http.MethodPost, "/api/holidays", HolidayRequest{Date: "2025-06-19", Name: "Fronleichnam"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[HolidayDTO](t, rec)

	// THEN: The cache was purged and the new holiday is visible
	rec = serve(http.MethodGet, "/api/holidays?year=2025", nil)
	list := decode[HolidayListResponse](t, rec)
	require.Len(t, list.Holidays, 1)
	assert.Equal(t, "Fronleichnam", list.Holidays[0].Name)

	rec = serve(http.MethodDelete, "/api/holidays/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(http.MethodDelete, "/api/holidays/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestStatusFor(t *testing.T) {
	d := generic.NewDate(2025, time.January, 1)
	dateErr := &generic.InvalidDateFormatError{Field: "date", Value: "x", Err: errors.New("bad")}

	tests := []struct {
		err  error
		want int
	}{
		{&generic.InvalidRangeError{Start: d, End: d.AddDays(-1)}, http.StatusBadRequest},
		{dateErr, http.StatusBadRequest},
		{&generic.MissingHireDateError{EmployeeID: "e"}, http.StatusUnprocessableEntity},
		{&generic.HolidayLookupError{Year: 2025, Jurisdiction: "NW", Err: errors.New("timeout")}, http.StatusBadGateway},
		{&generic.DirectoryError{Err: dateErr}, http.StatusInternalServerError},
		{&generic.AssignmentStoreError{Err: errors.New("disk")}, http.StatusInternalServerError},
		{fmt.Errorf("%w: too wide", generic.ErrRangeTooLong), http.StatusBadRequest},
		{generic.ErrDuplicateAssignment, http.StatusConflict},
		{generic.ErrEmployeeInUse, http.StatusConflict},
		{fmt.Errorf("lookup: %w", generic.ErrEmployeeNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
