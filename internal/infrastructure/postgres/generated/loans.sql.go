package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const addLoanAccount = `-- name: AddLoanAccount :exec
INSERT INTO loan_accounts (loan_id, account_id, position) VALUES ($1, $2, $3)
`

type AddLoanAccountParams struct {
	LoanID    string `json:"loan_id"`
	AccountID string `json:"account_id"`
	Position  int32  `json:"position"`
}

func (q *Queries) AddLoanAccount(ctx context.Context, arg AddLoanAccountParams) error {
	_, err := q.db.Exec(ctx, addLoanAccount, arg.LoanID, arg.AccountID, arg.Position)
	return err
}

const createLoan = `-- name: CreateLoan :exec
INSERT INTO loans (id, principal, interest_rate, total_payable, monthly_deduction, term_months, status, created_date, start_date, end_date, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

type CreateLoanParams struct {
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

func (q *Queries) CreateLoan(ctx context.Context, arg CreateLoanParams) error {
	_, err := q.db.Exec(ctx, createLoan,
		arg.ID,
		arg.Principal,
		arg.InterestRate,
		arg.TotalPayable,
		arg.MonthlyDeduction,
		arg.TermMonths,
		arg.Status,
		arg.CreatedDate,
		arg.StartDate,
		arg.EndDate,
		arg.UpdatedAt,
	)
	return err
}

const createLoanRepayment = `-- name: CreateLoanRepayment :exec
INSERT INTO loan_repayments (id, loan_id, payment_date, amount, created_at)
VALUES ($1, $2, $3, $4, $5)
`

type CreateLoanRepaymentParams struct {
	ID          string             `json:"id"`
	LoanID      string             `json:"loan_id"`
	PaymentDate pgtype.Timestamptz `json:"payment_date"`
	Amount      pgtype.Numeric     `json:"amount"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateLoanRepayment(ctx context.Context, arg CreateLoanRepaymentParams) error {
	_, err := q.db.Exec(ctx, createLoanRepayment,
		arg.ID,
		arg.LoanID,
		arg.PaymentDate,
		arg.Amount,
		arg.CreatedAt,
	)
	return err
}

const getLoanByID = `-- name: GetLoanByID :one
SELECT id, principal, interest_rate, total_payable, monthly_deduction, term_months, status, created_date, start_date, end_date, updated_at FROM loans WHERE id = $1
`

func (q *Queries) GetLoanByID(ctx context.Context, id string) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByID, id)
	var i Loan
	err := row.Scan(
		&i.ID,
		&i.Principal,
		&i.InterestRate,
		&i.TotalPayable,
		&i.MonthlyDeduction,
		&i.TermMonths,
		&i.Status,
		&i.CreatedDate,
		&i.StartDate,
		&i.EndDate,
		&i.UpdatedAt,
	)
	return i, err
}

const getLoanByIDForUpdate = `-- name: GetLoanByIDForUpdate :one
SELECT id, principal, interest_rate, total_payable, monthly_deduction, term_months, status, created_date, start_date, end_date, updated_at FROM loans WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetLoanByIDForUpdate(ctx context.Context, id string) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByIDForUpdate, id)
	var i Loan
	err := row.Scan(
		&i.ID,
		&i.Principal,
		&i.InterestRate,
		&i.TotalPayable,
		&i.MonthlyDeduction,
		&i.TermMonths,
		&i.Status,
		&i.CreatedDate,
		&i.StartDate,
		&i.EndDate,
		&i.UpdatedAt,
	)
	return i, err
}

const listLoanAccountIDs = `-- name: ListLoanAccountIDs :many
SELECT account_id FROM loan_accounts WHERE loan_id = $1 ORDER BY position
`

func (q *Queries) ListLoanAccountIDs(ctx context.Context, loanID string) ([]string, error) {
	rows, err := q.db.Query(ctx, listLoanAccountIDs, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var account_id string
		if err := rows.Scan(&account_id); err != nil {
			return nil, err
		}
		items = append(items, account_id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLoanRepayments = `-- name: ListLoanRepayments :many
SELECT id, loan_id, payment_date, amount, created_at FROM loan_repayments
WHERE loan_id = $1
ORDER BY payment_date, id
`

func (q *Queries) ListLoanRepayments(ctx context.Context, loanID string) ([]LoanRepayment, error) {
	rows, err := q.db.Query(ctx, listLoanRepayments, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LoanRepayment{}
	for rows.Next() {
		var i LoanRepayment
		if err := rows.Scan(
			&i.ID,
			&i.LoanID,
			&i.PaymentDate,
			&i.Amount,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLoans = `-- name: ListLoans :many
SELECT id, principal, interest_rate, total_payable, monthly_deduction, term_months, status, created_date, start_date, end_date, updated_at FROM loans
ORDER BY created_date DESC, id DESC
LIMIT $1 OFFSET $2
`

type ListLoansParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListLoans(ctx context.Context, arg ListLoansParams) ([]Loan, error) {
	rows, err := q.db.Query(ctx, listLoans, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Loan{}
	for rows.Next() {
		var i Loan
		if err := rows.Scan(
			&i.ID,
			&i.Principal,
			&i.InterestRate,
			&i.TotalPayable,
			&i.MonthlyDeduction,
			&i.TermMonths,
			&i.Status,
			&i.CreatedDate,
			&i.StartDate,
			&i.EndDate,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateLoanStatus = `-- name: UpdateLoanStatus :execrows
UPDATE loans SET status = $2, updated_at = $3 WHERE id = $1
`

type UpdateLoanStatusParams struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateLoanStatus(ctx context.Context, arg UpdateLoanStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateLoanStatus, arg.ID, arg.Status, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
