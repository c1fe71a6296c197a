/*
Package sqlite provides a SQLite-backed record store for the duty ledger.

PURPOSE:
  Persists employees, on-call assignments and manually maintained holidays,
  and exposes them to the accounting engine through the read-only
  collaborator interfaces.

INTERFACES IMPLEMENTED:
  generic.Directory:        ListEmployees (ID + hire date)
  generic.AssignmentSource: ListAssignments within a range
  holiday.Source:           Fetch holidays from the holidays table

KEY TABLES:
  employees:    Employee records (names, hire date, display colour)
  assignments:  One row per employee per on-call day
  holidays:     Manually maintained holidays per jurisdiction

INVARIANTS:
  - An employee is on call at most once per day
    (idx_assignments_employee_date)
  - Assignments reference existing employees; an employee with
    assignments cannot be deleted (FOREIGN KEY, no cascade)
  - Dates are stored as TEXT YYYY-MM-DD; unparseable values are reported
    as *generic.InvalidDateFormatError, never silently dropped

CONCURRENCY:
  Uses sync.RWMutex for thread-safety.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/oncall.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/warp/oncall-ledger/generic"
	"github.com/warp/oncall-ledger/holiday"
)

// DefaultColor is the display colour of employees that have none.
const DefaultColor = "#ffffff"

// Fixed-width so that TEXT ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ generic.Directory        = (*Store)(nil)
	_ generic.AssignmentSource = (*Store)(nil)
	_ holiday.Source           = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		hire_date TEXT,
		color TEXT NOT NULL DEFAULT '#ffffff',
		created_at TEXT NOT NULL
	);

	-- On-call assignments
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_employee_date
		ON assignments(employee_id, date);

	-- Range scans for reports and the calendar view (hot path)
	CREATE INDEX IF NOT EXISTS idx_assignments_date
		ON assignments(date);

	-- Holidays (manually maintained, per jurisdiction)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		jurisdiction TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(jurisdiction, date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes all data (for demo scenarios and tests).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"assignments", "employees", "holidays"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee represents an employee record.
type Employee struct {
	ID        generic.EmployeeID
	FirstName string
	LastName  string
	HireDate  generic.Date // zero when not recorded
	Color     string
	CreatedAt time.Time
}

// Name returns "First Last".
func (e Employee) Name() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	default:
		return e.FirstName + " " + e.LastName
	}
}

// SaveEmployee inserts or updates an employee. An empty ID gets a new UUID;
// the stored record is returned. Updates keep the original CreatedAt.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emp.ID == "" {
		emp.ID = generic.EmployeeID(uuid.NewString())
	}
	if emp.Color == "" {
		emp.Color = DefaultColor
	}
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO employees (id, first_name, last_name, hire_date, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			hire_date = excluded.hire_date,
			color = excluded.color
	`

	_, err := s.db.ExecContext(ctx, query,
		string(emp.ID), emp.FirstName, emp.LastName,
		nullDate(emp.HireDate), emp.Color,
		emp.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return Employee{}, err
	}
	return s.getEmployeeLocked(ctx, emp.ID)
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEmployeeLocked(ctx, id)
}

func (s *Store) getEmployeeLocked(ctx context.Context, id generic.EmployeeID) (Employee, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, hire_date, color, created_at FROM employees WHERE id = ?",
		string(id),
	)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Employee{}, generic.ErrEmployeeNotFound
	}
	return emp, err
}

// ListEmployeeRecords returns all employee records in creation order.
func (s *Store) ListEmployeeRecords(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, first_name, last_name, hire_date, color, created_at FROM employees ORDER BY created_at, rowid",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// ListEmployees implements generic.Directory.
func (s *Store) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	records, err := s.ListEmployeeRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]generic.Employee, len(records))
	for i, r := range records {
		out[i] = generic.Employee{ID: r.ID, HireDate: r.HireDate}
	}
	return out, nil
}

// DeleteEmployee removes an employee that has no assignments.
func (s *Store) DeleteEmployee(ctx context.Context, id generic.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", string(id))
	if isForeignKeyError(err) {
		return generic.ErrEmployeeInUse
	}
	if err != nil {
		return err
	}
	return requireAffected(res, generic.ErrEmployeeNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (Employee, error) {
	var emp Employee
	var id, createdAt string
	var hireDate sql.NullString
	if err := row.Scan(&id, &emp.FirstName, &emp.LastName, &hireDate, &emp.Color, &createdAt); err != nil {
		return Employee{}, err
	}
	emp.ID = generic.EmployeeID(id)

	d, err := generic.ParseOptionalDate("hire_date", hireDate.String)
	if err != nil {
		return Employee{}, fmt.Errorf("employee %s: %w", id, err)
	}
	emp.HireDate = d
	emp.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	return emp, nil
}

// =============================================================================
// ASSIGNMENT STORE (generic.AssignmentSource interface)
// =============================================================================

// Assignment is a stored on-call assignment.
type Assignment struct {
	ID         generic.AssignmentID
	Date       generic.Date
	EmployeeID generic.EmployeeID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AssignmentView is an assignment joined with the employee's display fields.
type AssignmentView struct {
	Assignment
	FirstName string
	LastName  string
	Color     string
}

// CreateAssignment puts an employee on call for a day. An empty ID gets a
// new UUID. Fails with ErrDuplicateAssignment if the employee is already on
// call that day and ErrEmployeeNotFound if the employee doesn't exist.
func (s *Store) CreateAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = generic.AssignmentID(uuid.NewString())
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assignments (id, date, employee_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(a.ID), a.Date.String(), string(a.EmployeeID),
		now.Format(timestampLayout), now.Format(timestampLayout),
	)
	if err := assignmentWriteError(err); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// UpdateAssignment moves an assignment to another day and/or employee.
func (s *Store) UpdateAssignment(ctx context.Context, id generic.AssignmentID, date generic.Date, employeeID generic.EmployeeID) (Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments SET date = ?, employee_id = ?, updated_at = ? WHERE id = ?`,
		date.String(), string(employeeID), now.Format(timestampLayout), string(id),
	)
	if err := assignmentWriteError(err); err != nil {
		return Assignment{}, err
	}
	if err := requireAffected(res, generic.ErrAssignmentNotFound); err != nil {
		return Assignment{}, err
	}
	return s.getAssignmentLocked(ctx, id)
}

// DeleteAssignment removes an assignment.
func (s *Store) DeleteAssignment(ctx context.Context, id generic.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM assignments WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	return requireAffected(res, generic.ErrAssignmentNotFound)
}

// GetAssignment retrieves an assignment by ID.
func (s *Store) GetAssignment(ctx context.Context, id generic.AssignmentID) (Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAssignmentLocked(ctx, id)
}

func (s *Store) getAssignmentLocked(ctx context.Context, id generic.AssignmentID) (Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, date, employee_id, created_at, updated_at FROM assignments WHERE id = ?",
		string(id),
	)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, generic.ErrAssignmentNotFound
	}
	return a, err
}

// ListAssignments implements generic.AssignmentSource.
func (s *Store) ListAssignments(ctx context.Context, r generic.Range) ([]generic.Assignment, error) {
	records, err := s.queryAssignments(ctx,
		`SELECT id, date, employee_id, created_at, updated_at FROM assignments
		 WHERE date BETWEEN ? AND ? ORDER BY date, rowid`,
		r.Start.String(), r.End.String(),
	)
	if err != nil {
		return nil, err
	}
	out := make([]generic.Assignment, len(records))
	for i, a := range records {
		out[i] = generic.Assignment{ID: a.ID, Date: a.Date, EmployeeID: a.EmployeeID}
	}
	return out, nil
}

// ListAssignmentsByEmployee returns one employee's assignments within r.
func (s *Store) ListAssignmentsByEmployee(ctx context.Context, employeeID generic.EmployeeID, r generic.Range) ([]Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT id, date, employee_id, created_at, updated_at FROM assignments
		 WHERE employee_id = ? AND date BETWEEN ? AND ? ORDER BY date`,
		string(employeeID), r.Start.String(), r.End.String(),
	)
}

// ListAssignmentViews returns the assignments within r joined with
// employee names and colours, ordered by date then creation.
func (s *Store) ListAssignmentViews(ctx context.Context, r generic.Range) ([]AssignmentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.date, a.employee_id, a.created_at, a.updated_at,
		       e.first_name, e.last_name, e.color
		FROM assignments a
		JOIN employees e ON a.employee_id = e.id
		WHERE a.date BETWEEN ? AND ?
		ORDER BY a.date, a.rowid`,
		r.Start.String(), r.End.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []AssignmentView
	for rows.Next() {
		var v AssignmentView
		var id, date, employeeID, createdAt, updatedAt string
		if err := rows.Scan(&id, &date, &employeeID, &createdAt, &updatedAt, &v.FirstName, &v.LastName, &v.Color); err != nil {
			return nil, err
		}
		a, err := buildAssignment(id, date, employeeID, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		v.Assignment = a
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

func scanAssignment(row scanner) (Assignment, error) {
	var id, date, employeeID, createdAt, updatedAt string
	if err := row.Scan(&id, &date, &employeeID, &createdAt, &updatedAt); err != nil {
		return Assignment{}, err
	}
	return buildAssignment(id, date, employeeID, createdAt, updatedAt)
}

func buildAssignment(id, date, employeeID, createdAt, updatedAt string) (Assignment, error) {
	d, err := generic.ParseDate("date", date)
	if err != nil {
		return Assignment{}, fmt.Errorf("assignment %s: %w", id, err)
	}
	a := Assignment{
		ID:         generic.AssignmentID(id),
		Date:       d,
		EmployeeID: generic.EmployeeID(employeeID),
	}
	a.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	a.UpdatedAt, _ = time.Parse(timestampLayout, updatedAt)
	return a, nil
}

func assignmentWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueConstraintError(err):
		return generic.ErrDuplicateAssignment
	case isForeignKeyError(err):
		return generic.ErrEmployeeNotFound
	default:
		return err
	}
}

// =============================================================================
// HOLIDAY SOURCE IMPLEMENTATION
// =============================================================================

// SaveHoliday stores a manually maintained holiday. An empty ID gets a new UUID.
func (s *Store) SaveHoliday(ctx context.Context, h holiday.Holiday) (holiday.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = generic.HolidayID(uuid.NewString())
	}

	query := `
		INSERT INTO holidays (id, jurisdiction, date, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(jurisdiction, date, name) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		string(h.ID), h.Jurisdiction, h.Date.String(), h.Name,
		time.Now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return holiday.Holiday{}, err
	}

	// On conflict the existing row wins; report its ID.
	var id string
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM holidays WHERE jurisdiction = ? AND date = ? AND name = ?",
		h.Jurisdiction, h.Date.String(), h.Name,
	).Scan(&id)
	if err != nil {
		return holiday.Holiday{}, err
	}
	h.ID = generic.HolidayID(id)
	return h, nil
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id generic.HolidayID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	return requireAffected(res, generic.ErrHolidayNotFound)
}

// ListHolidays returns all stored holidays of a jurisdiction (for admin UI).
func (s *Store) ListHolidays(ctx context.Context, jurisdiction string) ([]holiday.Holiday, error) {
	return s.queryHolidays(ctx,
		"SELECT id, jurisdiction, date, name FROM holidays WHERE jurisdiction = ? ORDER BY date, name",
		jurisdiction,
	)
}

// Fetch implements holiday.Source over the holidays table.
func (s *Store) Fetch(ctx context.Context, year int, jurisdiction string) ([]holiday.Holiday, error) {
	return s.queryHolidays(ctx,
		"SELECT id, jurisdiction, date, name FROM holidays WHERE jurisdiction = ? AND date BETWEEN ? AND ? ORDER BY date, name",
		jurisdiction, generic.StartOfYear(year).String(), generic.EndOfYear(year).String(),
	)
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]holiday.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []holiday.Holiday
	for rows.Next() {
		var h holiday.Holiday
		var id, date string
		if err := rows.Scan(&id, &h.Jurisdiction, &date, &h.Name); err != nil {
			return nil, err
		}
		d, err := generic.ParseDate("date", date)
		if err != nil {
			return nil, fmt.Errorf("holiday %s: %w", id, err)
		}
		h.ID = generic.HolidayID(id)
		h.Date = d
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// Helper functions

func nullDate(d generic.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
