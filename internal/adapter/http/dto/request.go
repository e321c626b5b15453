package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/usecase"
)

// dateLayout is the wire format for calendar dates.
const dateLayout = "2006-01-02"

// LoginRequest represents a request to open a session.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *LoginRequest) ToUseCaseInput() usecase.AuthenticateInput {
	return usecase.AuthenticateInput{
		Email:    r.Email,
		Password: r.Password,
	}
}

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Name:     r.Name,
		Category: domain.AccountCategory(r.Category),
	}
}

// SetAccountStatusRequest activates or deactivates an account.
type SetAccountStatusRequest struct {
	Active *bool `json:"active"`
}

// ProcessTransactionRequest represents a deposit, withdrawal or transfer.
type ProcessTransactionRequest struct {
	AccountID    string          `json:"account_id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty string          `json:"counterparty,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ProcessTransactionRequest) ToUseCaseInput() usecase.ProcessTransactionInput {
	return usecase.ProcessTransactionInput{
		AccountID:    r.AccountID,
		Kind:         domain.TransactionKind(r.Kind),
		Amount:       r.Amount,
		Counterparty: r.Counterparty,
	}
}

// OriginateLoanRequest represents a loan application. Dates use YYYY-MM-DD.
type OriginateLoanRequest struct {
	Principal    *decimal.Decimal `json:"principal"`
	InterestRate *decimal.Decimal `json:"interest_rate"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	CreatedDate  string           `json:"created_date,omitempty"`
	Status       string           `json:"status,omitempty"`
	AccountIDs   []string         `json:"account_ids"`
}

// ToUseCaseInput converts to use case input. Malformed dates are reported as
// invalid ranges.
func (r *OriginateLoanRequest) ToUseCaseInput() (usecase.OriginateLoanInput, error) {
	input := usecase.OriginateLoanInput{
		Principal:    r.Principal,
		InterestRate: r.InterestRate,
		AccountIDs:   r.AccountIDs,
	}

	var err error
	if input.StartDate, err = parseDate("start_date", r.StartDate); err != nil {
		return input, err
	}
	if input.EndDate, err = parseDate("end_date", r.EndDate); err != nil {
		return input, err
	}
	if input.CreatedDate, err = parseDate("created_date", r.CreatedDate); err != nil {
		return input, err
	}
	if r.Status != "" {
		status := domain.LoanStatus(r.Status)
		input.Status = &status
	}
	return input, nil
}

// RepaymentRequest represents a payment against a loan.
type RepaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RepaymentRequest) ToUseCaseInput(loanID string) (usecase.ApplyRepaymentInput, error) {
	date, err := parseDate("payment_date", r.PaymentDate)
	if err != nil {
		return usecase.ApplyRepaymentInput{}, err
	}
	return usecase.ApplyRepaymentInput{
		LoanID:      loanID,
		Amount:      r.Amount,
		PaymentDate: date,
	}, nil
}

// CreateUserRequest represents a request to create an operator account.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateUserRequest) ToUseCaseInput() usecase.CreateUserInput {
	return usecase.CreateUserInput{
		Email:    r.Email,
		Name:     r.Name,
		Password: r.Password,
		Role:     domain.Role(r.Role),
	}
}

func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrInvalidRange, field)
	}
	return &t, nil
}
