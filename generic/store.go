/*
store.go - Collaborator interfaces read by the accounting engine

PURPOSE:
  Defines the boundary between the accounting core and the record store.
  The engine only ever reads: it lists employees and lists the assignments
  that fall inside a query range. Writes (create/update/delete of employees
  and assignments) belong entirely to the store implementation.

KEY INTERFACES:
  Directory:        Employee listing (ID + hire date)
  AssignmentSource: Assignments within a range

ORDERING:
  ListEmployees must return a deterministic order; report rows follow it.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - accounting/engine.go: Consumer of these interfaces
*/
package generic

import "context"

// Directory provides the employees the engine reports on.
type Directory interface {
	// ListEmployees returns all employees in a stable order.
	// A record whose hire date is absent comes back with a zero HireDate;
	// a record whose hire date cannot be parsed fails with
	// *InvalidDateFormatError.
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// AssignmentSource provides recorded on-call assignments.
type AssignmentSource interface {
	// ListAssignments returns assignments dated within r, inclusive.
	ListAssignments(ctx context.Context, r Range) ([]Assignment, error)
}
