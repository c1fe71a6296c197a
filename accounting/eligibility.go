package accounting

import "github.com/warp/oncall-ledger/generic"

// ResolveEligibility returns the part of r during which emp accrues target
// points: [max(hire date, r.Start), r.End]. ok is false when emp was hired
// after r.End; such an employee gets no report row at all.
//
// Employees without a hire date fail with *generic.MissingHireDateError.
func ResolveEligibility(emp generic.Employee, r generic.Range) (window generic.Range, ok bool, err error) {
	if emp.HireDate.IsZero() {
		return generic.Range{}, false, &generic.MissingHireDateError{EmployeeID: emp.ID}
	}
	window, ok = r.ClampStart(emp.HireDate)
	return window, ok, nil
}
