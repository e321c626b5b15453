package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan.
//
//	INITIATED -> PROGRESS -> COMPLETED
//	INITIATED -> REJECTED
//
// COMPLETED and REJECTED are terminal.
type LoanStatus string

const (
	LoanStatusInitiated LoanStatus = "INITIATED"
	LoanStatusProgress  LoanStatus = "PROGRESS"
	LoanStatusCompleted LoanStatus = "COMPLETED"
	LoanStatusRejected  LoanStatus = "REJECTED"
)

// IsValid reports whether s is a known status.
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusInitiated, LoanStatusProgress, LoanStatusCompleted, LoanStatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusCompleted || s == LoanStatusRejected
}

// MoneyPlaces is the number of decimal places derived amounts are rounded to.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Loan is an amortized loan with its append-only repayment history.
type Loan struct {
	ID               string
	Principal        decimal.Decimal
	InterestRate     decimal.Decimal
	TotalPayable     decimal.Decimal
	MonthlyDeduction decimal.Decimal
	TermMonths       int
	Status           LoanStatus
	CreatedDate      time.Time
	StartDate        time.Time
	EndDate          time.Time
	AccountIDs       []string
	Repayments       []*LoanRepayment
	UpdatedAt        time.Time
}

// LoanRepayment is a single payment towards a loan.
type LoanRepayment struct {
	ID          string
	LoanID      string
	PaymentDate time.Time
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

// TotalPaid sums all recorded repayments.
func (l *Loan) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, r := range l.Repayments {
		total = total.Add(r.Amount)
	}
	return total
}

// Remaining is what is still owed.
func (l *Loan) Remaining() decimal.Decimal {
	return l.TotalPayable.Sub(l.TotalPaid())
}

// EnsurePayable rejects payments against terminal loans.
func (l *Loan) EnsurePayable() error {
	switch l.Status {
	case LoanStatusCompleted:
		return ErrLoanCompleted
	case LoanStatusRejected:
		return ErrLoanRejected
	}
	return nil
}

// Schedule holds the values derived at origination.
type Schedule struct {
	TotalPayable     decimal.Decimal
	TermMonths       int
	MonthlyDeduction decimal.Decimal
}

// ComputeSchedule derives the amortization values for a loan:
//
//	totalPayable     = principal + principal*rate/100
//	months           = max(1, whole calendar months between start and end)
//	monthlyDeduction = totalPayable / months
//
// monthlyDeduction is rounded half away from zero to MoneyPlaces.
func ComputeSchedule(principal, rate decimal.Decimal, start, end time.Time) (Schedule, error) {
	if err := ValidateLoanTerms(principal, rate, start, end); err != nil {
		return Schedule{}, err
	}

	total := principal.Add(principal.Mul(rate).Div(hundred))

	months := WholeMonthsBetween(start, end)
	if months < 1 {
		months = 1
	}

	return Schedule{
		TotalPayable:     total,
		TermMonths:       months,
		MonthlyDeduction: total.Div(decimal.NewFromInt(int64(months))).Round(MoneyPlaces),
	}, nil
}

// ValidateLoanTerms checks origination inputs.
func ValidateLoanTerms(principal, rate decimal.Decimal, start, end time.Time) error {
	if !principal.IsPositive() {
		return ErrInvalidAmount
	}
	if rate.IsNegative() {
		return ErrInvalidAmount
	}
	if !DateOf(end).After(DateOf(start)) {
		return ErrInvalidRange
	}
	return nil
}

// WholeMonthsBetween counts complete calendar months from start to end. A
// month only counts once the day-of-month of start has been reached again.
func WholeMonthsBetween(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()

	months := (ey-sy)*12 + int(em) - int(sm)
	switch {
	case months > 0 && ed < sd:
		months--
	case months < 0 && ed > sd:
		months++
	}
	return months
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
