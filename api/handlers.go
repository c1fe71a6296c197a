/*
handlers.go - HTTP API handlers for the on-call duty ledger

PURPOSE:
  Exposes employees, on-call assignments, holidays and the target/actual
  report via REST API. Handles HTTP request/response, JSON serialization,
  and delegates to the store and the accounting engine.

ENDPOINTS:
  Employees:
    GET    /api/employees                    List all employees
    POST   /api/employees                    Create employee
    GET    /api/employees/{id}               Get employee details
    PUT    /api/employees/{id}               Update employee
    DELETE /api/employees/{id}               Delete employee (no assignments)
    GET    /api/employees/{id}/assignments   Assignments of one employee

  Assignments:
    GET    /api/assignments?date=|from=&to=  Assignments of a day or range
    POST   /api/assignments                  Put an employee on call
    PUT    /api/assignments/{id}             Move an assignment
    DELETE /api/assignments/{id}             Remove an assignment

  Calendar:
    GET    /api/calendar?month=YYYY-MM       Days with type, weight, duty

  Holidays:
    GET    /api/holidays?year=               Holidays of a year (cached)
    POST   /api/holidays                     Add a manual holiday
    DELETE /api/holidays/{id}                Remove a manual holiday
    POST   /api/admin/holidays/purge         Drop the holiday cache

  Report:
    GET    /api/report?from=&to=             Target/actual per employee

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Engine: Target/actual accounting
  - Holidays: Process-wide holiday cache shared with the engine

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status (see statusFor):
  - 400: Invalid range, malformed date, invalid body
  - 404: Employee / assignment / holiday not found
  - 409: Duplicate assignment, employee still in use
  - 422: Employee without hire date blocks the report
  - 502: Holiday source unavailable
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/oncall-ledger/accounting"
	"github.com/warp/oncall-ledger/generic"
	"github.com/warp/oncall-ledger/holiday"
	"github.com/warp/oncall-ledger/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Engine   *accounting.Engine
	Holidays *holiday.Cache
	Log      logrus.FieldLogger

	// HolidaysFromStore is set when the cache is filled from the holidays
	// table; manual holiday edits then purge the cache.
	HolidaysFromStore bool

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(store *sqlite.Store, engine *accounting.Engine, cache *holiday.Cache, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:    store,
		Engine:   engine,
		Holidays: cache,
		Log:      log,
		Now:      time.Now,
	}
}

func (h *Handler) today() generic.Date {
	if h.Now == nil {
		return generic.Today()
	}
	return generic.DateOf(h.Now())
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployeeRecords(r.Context())
	if err != nil {
		h.fail(w, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates a new employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}

	saved, err := h.Store.SaveEmployee(r.Context(), emp)
	if err != nil {
		h.fail(w, "Failed to create employee", err)
		return
	}
	h.Log.WithField("employee_id", saved.ID).Info("employee created")
	writeJSON(w, http.StatusCreated, toEmployeeDTO(saved))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		h.fail(w, "Employee not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// UpdateEmployee replaces names, hire date and colour of an employee.
// PUT /api/employees/{id}
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		h.fail(w, "Employee not found", err)
		return
	}

	emp, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	emp.ID = id

	saved, err := h.Store.SaveEmployee(ctx, emp)
	if err != nil {
		h.fail(w, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(saved))
}

// DeleteEmployee removes an employee without assignments.
// DELETE /api/employees/{id}
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteEmployee(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete employee", err)
		return
	}
	h.Log.WithField("employee_id", id).Info("employee deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GetEmployeeAssignments returns one employee's assignments in a range.
// Without from/to the current year is used.
// GET /api/employees/{id}/assignments?from=&to=
func (h *Handler) GetEmployeeAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		h.fail(w, "Employee not found", err)
		return
	}

	year := h.today().Year()
	rng, err := parseRangeQuery(r, generic.StartOfYear(year), generic.EndOfYear(year))
	if err != nil {
		h.fail(w, "Invalid range", err)
		return
	}

	records, err := h.Store.ListAssignmentsByEmployee(ctx, id, rng)
	if err != nil {
		h.fail(w, "Failed to list assignments", err)
		return
	}
	dtos := make([]AssignmentDTO, len(records))
	for i, a := range records {
		dtos[i] = toAssignmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) decodeEmployee(w http.ResponseWriter, r *http.Request) (sqlite.Employee, bool) {
	var req EmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return sqlite.Employee{}, false
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "first_name and last_name are required", nil)
		return sqlite.Employee{}, false
	}
	if req.Color != "" && !colorPattern.MatchString(req.Color) {
		writeError(w, http.StatusBadRequest, "color must be #rrggbb", nil)
		return sqlite.Employee{}, false
	}
	hired, err := generic.ParseOptionalDate("hire_date", req.HireDate)
	if err != nil {
		h.fail(w, "Invalid hire date", err)
		return sqlite.Employee{}, false
	}

	return sqlite.Employee{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		HireDate:  hired,
		Color:     req.Color,
	}, true
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// ListAssignments returns the assignments of one day (?date=) or of a
// range (?from=&to=), with employee names.
// GET /api/assignments
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var rng generic.Range
	if v := q.Get("date"); v != "" {
		d, err := generic.ParseDate("date", v)
		if err != nil {
			h.fail(w, "Invalid date", err)
			return
		}
		rng = generic.Range{Start: d, End: d}
	} else {
		var err error
		if rng, err = generic.ParseRange(q.Get("from"), q.Get("to")); err != nil {
			h.fail(w, "date or from/to required", err)
			return
		}
	}

	views, err := h.Store.ListAssignmentViews(r.Context(), rng)
	if err != nil {
		h.fail(w, "Failed to list assignments", err)
		return
	}
	dtos := make([]AssignmentDTO, len(views))
	for i, v := range views {
		dtos[i] = toAssignmentViewDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAssignment puts an employee on call for a day.
// POST /api/assignments
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	date, employeeID, ok := h.decodeAssignment(w, r)
	if !ok {
		return
	}

	a, err := h.Store.CreateAssignment(r.Context(), sqlite.Assignment{Date: date, EmployeeID: employeeID})
	if err != nil {
		h.fail(w, "Failed to create assignment", err)
		return
	}
	h.Log.WithFields(logrus.Fields{
		"assignment_id": a.ID,
		"employee_id":   a.EmployeeID,
		"date":          a.Date.String(),
	}).Info("assignment created")
	writeJSON(w, http.StatusCreated, toAssignmentDTO(a))
}

// UpdateAssignment moves an assignment to another day or employee.
// PUT /api/assignments/{id}
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id := generic.AssignmentID(chi.URLParam(r, "id"))
	date, employeeID, ok := h.decodeAssignment(w, r)
	if !ok {
		return
	}

	a, err := h.Store.UpdateAssignment(r.Context(), id, date, employeeID)
	if err != nil {
		h.fail(w, "Failed to update assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// DeleteAssignment removes an assignment.
// DELETE /api/assignments/{id}
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	id := generic.AssignmentID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteAssignment(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete assignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeAssignment(w http.ResponseWriter, r *http.Request) (generic.Date, generic.EmployeeID, bool) {
	var req AssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return generic.Date{}, "", false
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return generic.Date{}, "", false
	}
	d, err := generic.ParseDate("date", req.Date)
	if err != nil {
		h.fail(w, "Invalid date", err)
		return generic.Date{}, "", false
	}
	return d, generic.EmployeeID(req.EmployeeID), true
}

// =============================================================================
// CALENDAR
// =============================================================================

// GetCalendar returns every day of a month with its day type, weight,
// holiday names and assignees. Defaults to the current month.
// GET /api/calendar?month=YYYY-MM
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := h.today()
	year, month := today.Year(), today.Month()

	if v := r.URL.Query().Get("month"); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			h.fail(w, "Invalid month", &generic.InvalidDateFormatError{Field: "month", Value: v, Err: err})
			return
		}
		year, month = t.Year(), t.Month()
	}
	rng := generic.MonthRange(year, month)
	jurisdiction := h.Engine.Jurisdiction()

	classifier, err := h.Engine.ClassifierFor(ctx, rng)
	if err != nil {
		h.fail(w, "Failed to load holidays", err)
		return
	}
	set, err := h.Holidays.Holidays(ctx, year, jurisdiction)
	if err != nil {
		h.fail(w, "Failed to load holidays", err)
		return
	}
	names := make(map[string][]string)
	for _, hol := range set.Holidays() {
		names[hol.Date.String()] = append(names[hol.Date.String()], hol.Name)
	}

	views, err := h.Store.ListAssignmentViews(ctx, rng)
	if err != nil {
		h.fail(w, "Failed to list assignments", err)
		return
	}
	onCall := make(map[string][]AssignmentDTO)
	for _, v := range views {
		key := v.Date.String()
		onCall[key] = append(onCall[key], toAssignmentViewDTO(v))
	}

	resp := CalendarDTO{
		Month:        fmt.Sprintf("%04d-%02d", year, month),
		Jurisdiction: jurisdiction,
		Days:         make([]CalendarDayDTO, 0, rng.Len()),
	}
	for _, d := range rng.Days() {
		dayType, err := classifier.Classify(ctx, d)
		if err != nil {
			h.fail(w, "Failed to classify day", err)
			return
		}
		assigned := onCall[d.String()]
		if assigned == nil {
			assigned = []AssignmentDTO{}
		}
		resp.Days = append(resp.Days, CalendarDayDTO{
			Date:        d.String(),
			Weekday:     d.Weekday().String(),
			DayType:     dayType.String(),
			Weight:      h.Engine.Weights().For(dayType),
			Holidays:    names[d.String()],
			Assignments: assigned,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns the holidays of a year in the configured
// jurisdiction, served through the cache. Defaults to the current year.
// GET /api/holidays?year=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := h.today().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	jurisdiction := h.Engine.Jurisdiction()
	set, err := h.Holidays.Holidays(r.Context(), year, jurisdiction)
	if err != nil {
		h.fail(w, "Failed to load holidays", err)
		return
	}

	resp := HolidayListResponse{Year: year, Jurisdiction: jurisdiction, Holidays: []HolidayDTO{}}
	for _, hol := range set.Holidays() {
		resp.Holidays = append(resp.Holidays, toHolidayDTO(hol, jurisdiction))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateHoliday adds a manually maintained holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	d, err := generic.ParseDate("date", req.Date)
	if err != nil {
		h.fail(w, "Invalid date", err)
		return
	}
	jurisdiction := strings.ToUpper(req.Jurisdiction)
	if jurisdiction == "" {
		jurisdiction = h.Engine.Jurisdiction()
	}

	saved, err := h.Store.SaveHoliday(r.Context(), holiday.Holiday{
		Date:         d,
		Name:         strings.TrimSpace(req.Name),
		Jurisdiction: jurisdiction,
	})
	if err != nil {
		h.fail(w, "Failed to create holiday", err)
		return
	}
	h.holidaysChanged()
	writeJSON(w, http.StatusCreated, toHolidayDTO(saved, jurisdiction))
}

// DeleteHoliday removes a manually maintained holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := generic.HolidayID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteHoliday(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete holiday", err)
		return
	}
	h.holidaysChanged()
	w.WriteHeader(http.StatusNoContent)
}

// PurgeHolidays drops every cached holiday set; the next lookup refetches.
// POST /api/admin/holidays/purge
func (h *Handler) PurgeHolidays(w http.ResponseWriter, r *http.Request) {
	n := h.Holidays.Len()
	h.Holidays.Purge()
	h.Log.WithField("entries", n).Info("holiday cache purged")
	writeJSON(w, http.StatusOK, map[string]int{"purged": n})
}

func (h *Handler) holidaysChanged() {
	if h.HolidaysFromStore {
		h.Holidays.Purge()
	}
}

// =============================================================================
// REPORT
// =============================================================================

// MaxReportYears bounds the span of a report range.
const MaxReportYears = 10

// GetReport returns target, actual and difference per eligible employee.
// Without from/to the range runs from one month ago to today.
// GET /api/report?from=&to=
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := h.today()

	rng, err := parseRangeQuery(r, today.AddMonths(-1), today)
	if err != nil {
		h.fail(w, "Invalid range", err)
		return
	}
	if rng.Start.AddMonths(12 * MaxReportYears).Before(rng.End) {
		h.fail(w, "Invalid range", fmt.Errorf("%w: %s spans more than %d years", generic.ErrRangeTooLong, rng, MaxReportYears))
		return
	}

	// Rows and names come from the same directory read.
	records, err := h.Store.ListEmployeeRecords(ctx)
	if err != nil {
		h.fail(w, "Failed to compute report", &generic.DirectoryError{Err: err})
		return
	}
	employees := make([]generic.Employee, len(records))
	byID := make(map[generic.EmployeeID]sqlite.Employee, len(records))
	for i, e := range records {
		employees[i] = generic.Employee{ID: e.ID, HireDate: e.HireDate}
		byID[e.ID] = e
	}

	rows, err := h.Engine.ReportFor(ctx, employees, rng)
	if err != nil {
		h.fail(w, "Failed to compute report", err)
		return
	}

	resp := ReportResponse{
		From:         rng.Start.String(),
		To:           rng.End.String(),
		Jurisdiction: h.Engine.Jurisdiction(),
		Weights:      toWeightsDTO(h.Engine.Weights()),
		Rows:         make([]ReportRowDTO, len(rows)),
		Totals:       toTotalsDTO(accounting.Summarize(rows)),
	}
	for i, row := range rows {
		emp := byID[row.EmployeeID]
		resp.Rows[i] = ReportRowDTO{
			EmployeeID:   string(row.EmployeeID),
			Name:         emp.Name(),
			Color:        emp.Color,
			HireDate:     emp.HireDate.String(),
			WindowStart:  row.Window.Start.String(),
			WindowEnd:    row.Window.End.String(),
			Target:       row.Target,
			Actual:       row.Actual,
			Difference:   row.Difference,
			AssignedDays: row.AssignedDays,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// parseRangeQuery reads ?from=&to=, substituting defaults for absent bounds.
func parseRangeQuery(r *http.Request, defFrom, defTo generic.Date) (generic.Range, error) {
	q := r.URL.Query()
	from, err := generic.ParseOptionalDate("from", q.Get("from"))
	if err != nil {
		return generic.Range{}, err
	}
	to, err := generic.ParseOptionalDate("to", q.Get("to"))
	if err != nil {
		return generic.Range{}, err
	}
	if from.IsZero() {
		from = defFrom
	}
	if to.IsZero() {
		to = defTo
	}
	return generic.NewRange(from, to)
}

// statusFor maps domain errors to HTTP status codes. Collaborator failures
// are checked before client errors: a malformed date stored in the
// database is a server-side fault, not bad input.
func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrMissingHireDate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generic.ErrHolidayLookup):
		return http.StatusBadGateway
	case errors.Is(err, generic.ErrDirectory), errors.Is(err, generic.ErrAssignmentStore):
		return http.StatusInternalServerError
	case errors.Is(err, generic.ErrDuplicateAssignment), errors.Is(err, generic.ErrEmployeeInUse):
		return http.StatusConflict
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status statusFor picks, logging server-side faults.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.WithError(err).WithField("status", status).Error(message)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
