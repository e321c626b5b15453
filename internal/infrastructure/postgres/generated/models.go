package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Category  string             `json:"category"`
	Balance   pgtype.Numeric     `json:"balance"`
	Active    bool               `json:"active"`
	Version   int64              `json:"version"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type Loan struct {
	ID               string             `json:"id"`
	Principal        pgtype.Numeric     `json:"principal"`
	InterestRate     pgtype.Numeric     `json:"interest_rate"`
	TotalPayable     pgtype.Numeric     `json:"total_payable"`
	MonthlyDeduction pgtype.Numeric     `json:"monthly_deduction"`
	TermMonths       int32              `json:"term_months"`
	Status           string             `json:"status"`
	CreatedDate      pgtype.Date        `json:"created_date"`
	StartDate        pgtype.Date        `json:"start_date"`
	EndDate          pgtype.Date        `json:"end_date"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

type LoanAccount struct {
	LoanID    string `json:"loan_id"`
	AccountID string `json:"account_id"`
	Position  int32  `json:"position"`
}

type LoanRepayment struct {
	ID          string             `json:"id"`
	LoanID      string             `json:"loan_id"`
	PaymentDate pgtype.Timestamptz `json:"payment_date"`
	Amount      pgtype.Numeric     `json:"amount"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

type Transaction struct {
	ID           string             `json:"id"`
	AccountID    string             `json:"account_id"`
	Kind         string             `json:"kind"`
	Amount       pgtype.Numeric     `json:"amount"`
	Status       string             `json:"status"`
	Counterparty string             `json:"counterparty"`
	BalanceAfter pgtype.Numeric     `json:"balance_after"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type User struct {
	ID             string             `json:"id"`
	Email          string             `json:"email"`
	Name           string             `json:"name"`
	HashedPassword string             `json:"hashed_password"`
	Role           string             `json:"role"`
	Active         bool               `json:"active"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}
