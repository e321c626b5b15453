package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every business error returned by the engine wraps exactly one
// of these, so callers can branch with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrMissingField      = errors.New("missing field")
	ErrInvalidRange      = errors.New("invalid range")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrExceedsBalance    = errors.New("repayment exceeds remaining balance")
)

var (
	// Account errors
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	ErrAccountInactive = fmt.Errorf("%w: account inactive", ErrInvalidState)

	// Transaction errors
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrInvalidKind         = fmt.Errorf("%w: unknown transaction kind", ErrInvalidAmount)

	// Loan errors
	ErrLoanNotFound  = fmt.Errorf("loan %w", ErrNotFound)
	ErrLoanCompleted = fmt.Errorf("%w: loan already completed", ErrInvalidState)
	ErrLoanRejected  = fmt.Errorf("%w: cannot pay rejected loan", ErrInvalidState)

	ErrLoanNotInitiated = fmt.Errorf("%w: loan is not in INITIATED status", ErrInvalidState)

	// User errors
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
)

// InsufficientFundsError is returned when a withdrawal or transfer exceeds the
// account balance. The FAILED transaction recorded for the attempt is attached.
type InsufficientFundsError struct {
	Balance     decimal.Decimal
	Requested   decimal.Decimal
	Transaction *Transaction
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, requested %s", e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// ExceedsBalanceError is returned when a repayment is larger than what is
// still owed on a loan.
type ExceedsBalanceError struct {
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *ExceedsBalanceError) Error() string {
	return fmt.Sprintf("repayment of %s exceeds remaining balance %s", e.Requested, e.Remaining)
}

func (e *ExceedsBalanceError) Unwrap() error {
	return ErrExceedsBalance
}

// MissingFieldError names the absent input field.
func MissingFieldError(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
