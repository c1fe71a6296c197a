/*
Package generic provides the core types of the on-call duty ledger.

PURPOSE:
  This package contains the vocabulary every other package speaks: calendar
  days and ranges, duty points, employee and assignment records, the error
  kinds of the accounting engine, and the interfaces of its collaborators
  (employee directory, assignment store).

KEY CONCEPTS IN THIS FILE (types.go):
  - Points: A quantity of duty points (decimal, never float)
  - Employee: The two fields the engine reads (ID, hire date)
  - Assignment: One employee on call on one calendar day

DESIGN PRINCIPLES:
  1. Precision: Points use decimal.Decimal so weights can become fractional
  2. Type Safety: Strong typing for IDs prevents mixing employee/assignment IDs
  3. Read-only: The engine never mutates records it is handed

USAGE:
  target := generic.NewPoints(9)
  diff := generic.NewPoints(5).Sub(target) // -4

SEE ALSO:
  - time.go: Date
  - period.go: Range
  - errors.go: Error kinds
  - store.go: Collaborator interfaces
*/
package generic

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POINTS - Duty workload quantity
// =============================================================================

type Points struct {
	Value decimal.Decimal
}

func NewPoints(value int64) Points { return Points{Value: decimal.NewFromInt(value)} }

// ParsePoints parses a decimal string such as "1.5".
func ParsePoints(s string) (Points, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Points{}, err
	}
	return Points{Value: d}, nil
}

func ZeroPoints() Points { return Points{Value: decimal.Zero} }

func (p Points) Add(b Points) Points       { return Points{Value: p.Value.Add(b.Value)} }
func (p Points) Sub(b Points) Points       { return Points{Value: p.Value.Sub(b.Value)} }
func (p Points) IsNegative() bool          { return p.Value.IsNegative() }
func (p Points) IsZero() bool              { return p.Value.IsZero() }
func (p Points) Equal(b Points) bool       { return p.Value.Equal(b.Value) }
func (p Points) LessThan(b Points) bool    { return p.Value.LessThan(b.Value) }
func (p Points) String() string            { return p.Value.String() }

// MarshalJSON writes points as a JSON number.
func (p Points) MarshalJSON() ([]byte, error) {
	return []byte(p.Value.String()), nil
}

func (p *Points) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	p.Value = d
	return nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type AssignmentID string
type HolidayID string

// =============================================================================
// RECORDS - Owned by collaborators, read by the engine
// =============================================================================

// Employee is what the engine needs from the employee directory.
// A zero HireDate means the directory has no value for it.
type Employee struct {
	ID       EmployeeID
	HireDate Date
}

// Assignment records one employee on call on one calendar day.
type Assignment struct {
	ID         AssignmentID
	Date       Date
	EmployeeID EmployeeID
}
