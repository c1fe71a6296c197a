// Package store provides in-memory collaborator implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/oncall-ledger/generic"
)

// =============================================================================
// MEMORY STORE - In-memory directory + assignment store (for testing/dev)
// =============================================================================

// Memory implements generic.Directory and generic.AssignmentSource.
// Employees keep insertion order; assignments are kept sorted by date.
type Memory struct {
	mu          sync.RWMutex
	employees   []generic.Employee
	index       map[generic.EmployeeID]int
	assignments []generic.Assignment

	// Injected failures, for exercising error propagation.
	DirectoryErr  error
	AssignmentErr error
}

var (
	_ generic.Directory        = (*Memory)(nil)
	_ generic.AssignmentSource = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{index: make(map[generic.EmployeeID]int)}
}

// PutEmployee inserts or replaces an employee, keeping its original position.
func (m *Memory) PutEmployee(emp generic.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.index[emp.ID]; ok {
		m.employees[i] = emp
		return
	}
	m.index[emp.ID] = len(m.employees)
	m.employees = append(m.employees, emp)
}

// Assign records an assignment.
func (m *Memory) Assign(a generic.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Binary search for insertion point keeps assignments ordered by date.
	i := sort.Search(len(m.assignments), func(i int) bool {
		return m.assignments[i].Date.After(a.Date)
	})
	m.assignments = append(m.assignments, generic.Assignment{})
	copy(m.assignments[i+1:], m.assignments[i:])
	m.assignments[i] = a
}

func (m *Memory) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.DirectoryErr != nil {
		return nil, m.DirectoryErr
	}
	result := make([]generic.Employee, len(m.employees))
	copy(result, m.employees)
	return result, nil
}

func (m *Memory) ListAssignments(_ context.Context, r generic.Range) ([]generic.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.AssignmentErr != nil {
		return nil, m.AssignmentErr
	}
	var result []generic.Assignment
	for _, a := range m.assignments {
		if r.Contains(a.Date) {
			result = append(result, a)
		}
	}
	return result, nil
}
