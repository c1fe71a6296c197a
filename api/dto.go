/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the store records and report rows from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Employees:    EmployeeDTO, EmployeeRequest
  Assignments:  AssignmentDTO, AssignmentRequest
  Calendar:     CalendarDTO, CalendarDayDTO
  Holidays:     HolidayDTO, HolidayRequest
  Report:       ReportResponse, ReportRowDTO, TotalsDTO
  Scenarios:    ScenarioDTO, LoadScenarioRequest

DATES:
  All dates travel as "YYYY-MM-DD" strings. Request dates are parsed in
  handlers so that malformed values come back as 400 with the field name.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/oncall-ledger/accounting"
	"github.com/warp/oncall-ledger/generic"
	"github.com/warp/oncall-ledger/holiday"
	"github.com/warp/oncall-ledger/store/sqlite"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	HireDate  string `json:"hire_date,omitempty"`
	Color     string `json:"color"`
}

// EmployeeRequest is the body of POST and PUT /api/employees.
type EmployeeRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	HireDate  string `json:"hire_date"`
	Color     string `json:"color"`
}

func toEmployeeDTO(e sqlite.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Name:      e.Name(),
		HireDate:  e.HireDate.String(),
		Color:     e.Color,
	}
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// AssignmentDTO represents an on-call assignment.
type AssignmentDTO struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name,omitempty"`
	Color        string `json:"color,omitempty"`
	DayType      string `json:"day_type,omitempty"`
}

// AssignmentRequest is the body of POST and PUT /api/assignments.
type AssignmentRequest struct {
	Date       string `json:"date"`
	EmployeeID string `json:"employee_id"`
}

func toAssignmentDTO(a sqlite.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:         string(a.ID),
		Date:       a.Date.String(),
		EmployeeID: string(a.EmployeeID),
	}
}

func toAssignmentViewDTO(v sqlite.AssignmentView) AssignmentDTO {
	dto := toAssignmentDTO(v.Assignment)
	dto.EmployeeName = sqlite.Employee{FirstName: v.FirstName, LastName: v.LastName}.Name()
	dto.Color = v.Color
	return dto
}

// =============================================================================
// CALENDAR
// =============================================================================

// CalendarDTO is one month of days with their classification and duty.
type CalendarDTO struct {
	Month        string           `json:"month"` // YYYY-MM
	Jurisdiction string           `json:"jurisdiction"`
	Days         []CalendarDayDTO `json:"days"`
}

// CalendarDayDTO describes a single day.
type CalendarDayDTO struct {
	Date        string          `json:"date"`
	Weekday     string          `json:"weekday"`
	DayType     string          `json:"day_type"`
	Weight      generic.Points  `json:"weight"`
	Holidays    []string        `json:"holidays,omitempty"`
	Assignments []AssignmentDTO `json:"assignments"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents a public holiday.
type HolidayDTO struct {
	ID           string `json:"id,omitempty"`
	Date         string `json:"date"`
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction"`
}

// HolidayRequest is the body of POST /api/holidays.
type HolidayRequest struct {
	Date         string `json:"date"`
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// HolidayListResponse is the response of GET /api/holidays.
type HolidayListResponse struct {
	Year         int          `json:"year"`
	Jurisdiction string       `json:"jurisdiction"`
	Holidays     []HolidayDTO `json:"holidays"`
}

func toHolidayDTO(h holiday.Holiday, jurisdiction string) HolidayDTO {
	if h.Jurisdiction != "" {
		jurisdiction = h.Jurisdiction
	}
	return HolidayDTO{
		ID:           string(h.ID),
		Date:         h.Date.String(),
		Name:         h.Name,
		Jurisdiction: jurisdiction,
	}
}

// =============================================================================
// REPORT
// =============================================================================

// ReportResponse is the target/actual report for a date range.
type ReportResponse struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	Jurisdiction string         `json:"jurisdiction"`
	Weights      WeightsDTO     `json:"weights"`
	Rows         []ReportRowDTO `json:"rows"`
	Totals       TotalsDTO      `json:"totals"`
}

// WeightsDTO shows the point value of each day type.
type WeightsDTO struct {
	Weekday generic.Points `json:"weekday"`
	Weekend generic.Points `json:"weekend"`
	Holiday generic.Points `json:"holiday"`
}

// ReportRowDTO is one employee's line in the report.
type ReportRowDTO struct {
	EmployeeID   string         `json:"employee_id"`
	Name         string         `json:"name"`
	Color        string         `json:"color,omitempty"`
	HireDate     string         `json:"hire_date"`
	WindowStart  string         `json:"window_start"`
	WindowEnd    string         `json:"window_end"`
	Target       generic.Points `json:"target"`
	Actual       generic.Points `json:"actual"`
	Difference   generic.Points `json:"difference"`
	AssignedDays int            `json:"assigned_days"`
}

// TotalsDTO is the sum line of a report.
type TotalsDTO struct {
	Employees  int            `json:"employees"`
	Target     generic.Points `json:"target"`
	Actual     generic.Points `json:"actual"`
	Difference generic.Points `json:"difference"`
}

func toWeightsDTO(w accounting.WeightPolicy) WeightsDTO {
	return WeightsDTO{Weekday: w.Weekday, Weekend: w.Weekend, Holiday: w.Holiday}
}

func toTotalsDTO(t accounting.Totals) TotalsDTO {
	return TotalsDTO{Employees: t.Employees, Target: t.Target, Actual: t.Actual, Difference: t.Difference}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
