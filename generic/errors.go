/*
errors.go - Centralized error types for the duty ledger

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every kind has a sentinel (for errors.Is) and, where context helps, a
  structured type (for errors.As) that unwraps to the sentinel.

ERROR CATEGORIES:
  1. Input errors - Inverted range, unparseable date, missing hire date
  2. Holiday errors - External holiday source failed, nothing cached
  3. Collaborator errors - Directory / assignment store failures
  4. Store errors - Not found, duplicates, referential integrity

PROPAGATION:
  Every one of these aborts a report. There is no local recovery: no
  default holiday set, no default eligibility. Callers surface the error
  and retry the whole computation.

SEE ALSO:
  - accounting/engine.go: Raises and wraps these errors
  - holiday/cache.go: Raises HolidayLookupError
  - api/handlers.go: Maps them to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a query range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrRangeTooLong is returned when a report range spans more years than allowed.
	ErrRangeTooLong = errors.New("range too long")

	// ErrInvalidDateFormat is returned when a collaborator supplies a date
	// that cannot be parsed as YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrMissingHireDate is returned when an employee has no hire date.
	ErrMissingHireDate = errors.New("missing hire date")

	// ErrHolidayLookup is returned when the holiday source failed and no
	// cached value exists for the requested year.
	ErrHolidayLookup = errors.New("holiday lookup failed")

	// ErrAssignmentStore wraps failures of the assignment store.
	ErrAssignmentStore = errors.New("assignment store failed")

	// ErrDirectory wraps failures of the employee directory.
	ErrDirectory = errors.New("employee directory failed")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrAssignmentNotFound is returned when a referenced assignment doesn't exist.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrHolidayNotFound is returned when a manually maintained holiday doesn't exist.
	ErrHolidayNotFound = errors.New("holiday not found")

	// ErrDuplicateAssignment is returned when an employee is already on call that day.
	ErrDuplicateAssignment = errors.New("employee already assigned on this day")

	// ErrEmployeeInUse is returned when deleting an employee that still has assignments.
	ErrEmployeeInUse = errors.New("employee still has assignments")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRangeError reports a query range whose end precedes its start.
type InvalidRangeError struct {
	Start Date
	End   Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range [%s, %s]: end before start", e.Start, e.End)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// InvalidDateFormatError reports a value that is not a YYYY-MM-DD date.
type InvalidDateFormatError struct {
	Field string // e.g. "hire_date", "date"; may be empty
	Value string
	Err   error
}

func (e *InvalidDateFormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid date %q (use YYYY-MM-DD)", e.Value)
	}
	return fmt.Sprintf("invalid %s %q (use YYYY-MM-DD)", e.Field, e.Value)
}

func (e *InvalidDateFormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidDateFormat}
	}
	return []error{ErrInvalidDateFormat, e.Err}
}

// MissingHireDateError names the employee that has no hire date.
type MissingHireDateError struct {
	EmployeeID EmployeeID
}

func (e *MissingHireDateError) Error() string {
	return fmt.Sprintf("employee %s has no hire date", e.EmployeeID)
}

func (e *MissingHireDateError) Unwrap() error { return ErrMissingHireDate }

// HolidayLookupError reports a failed fetch for one (year, jurisdiction).
type HolidayLookupError struct {
	Year         int
	Jurisdiction string
	Err          error
}

func (e *HolidayLookupError) Error() string {
	return fmt.Sprintf("holiday lookup %d/%s: %v", e.Year, e.Jurisdiction, e.Err)
}

func (e *HolidayLookupError) Unwrap() []error { return []error{ErrHolidayLookup, e.Err} }

// DirectoryError wraps a failure of the employee directory unchanged.
type DirectoryError struct {
	Err error
}

func (e *DirectoryError) Error() string   { return "employee directory: " + e.Err.Error() }
func (e *DirectoryError) Unwrap() []error { return []error{ErrDirectory, e.Err} }

// AssignmentStoreError wraps a failure of the assignment store unchanged.
type AssignmentStoreError struct {
	Err error
}

func (e *AssignmentStoreError) Error() string   { return "assignment store: " + e.Err.Error() }
func (e *AssignmentStoreError) Unwrap() []error { return []error{ErrAssignmentStore, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
// Holiday lookup failures are never cached, so a later attempt refetches.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrHolidayLookup)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrRangeTooLong) ||
		errors.Is(err, ErrInvalidDateFormat) ||
		errors.Is(err, ErrDuplicateAssignment) ||
		errors.Is(err, ErrEmployeeInUse)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrHolidayNotFound)
}
