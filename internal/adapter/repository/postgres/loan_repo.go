package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/postgres/generated"
	"github.com/iho/bankcore/internal/usecase"
)

// LoanRepository implements usecase.LoanRepository. Loans are stored across
// loans, loan_accounts and loan_repayments.
type LoanRepository struct {
	queries *generated.Queries
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(db generated.DBTX) *LoanRepository {
	return &LoanRepository{
		queries: generated.New(db),
	}
}

// Create inserts a loan and its linked accounts.
func (r *LoanRepository) Create(ctx context.Context, tx usecase.Tx, loan *domain.Loan) error {
	ptx, err := pgxTx(tx)
	if err != nil {
		return err
	}
	q := r.queries.WithTx(ptx)

	err = q.CreateLoan(ctx, generated.CreateLoanParams{
		ID:               loan.ID,
		Principal:        decimalToNumeric(loan.Principal),
		InterestRate:     decimalToNumeric(loan.InterestRate),
		TotalPayable:     decimalToNumeric(loan.TotalPayable),
		MonthlyDeduction: decimalToNumeric(loan.MonthlyDeduction),
		TermMonths:       int32(loan.TermMonths),
		Status:           string(loan.Status),
		CreatedDate:      timeToPgDate(loan.CreatedDate),
		StartDate:        timeToPgDate(loan.StartDate),
		EndDate:          timeToPgDate(loan.EndDate),
		UpdatedAt:        timeToPgTimestamptz(loan.UpdatedAt),
	})
	if err != nil {
		return err
	}

	for i, accountID := range loan.AccountIDs {
		if err := q.AddLoanAccount(ctx, generated.AddLoanAccountParams{
			LoanID:    loan.ID,
			AccountID: accountID,
			Position:  int32(i),
		}); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a loan with its accounts and repayments.
func (r *LoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	row, err := r.queries.GetLoanByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}

		return nil, err
	}

	return r.hydrate(ctx, r.queries, row)
}

// GetByIDForUpdate retrieves a loan with a FOR UPDATE lock on its row.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Loan, error) {
	ptx, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}
	q := r.queries.WithTx(ptx)

	row, err := q.GetLoanByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}

		return nil, err
	}

	return r.hydrate(ctx, q, row)
}

// UpdateStatus sets the status of a loan.
func (r *LoanRepository) UpdateStatus(ctx context.Context, tx usecase.Tx, id string, status domain.LoanStatus, updatedAt time.Time) error {
	ptx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	n, err := r.queries.WithTx(ptx).UpdateLoanStatus(ctx, generated.UpdateLoanStatusParams{
		ID:        id,
		Status:    string(status),
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrLoanNotFound
	}

	return nil
}

// AddRepayment appends a repayment.
func (r *LoanRepository) AddRepayment(ctx context.Context, tx usecase.Tx, repayment *domain.LoanRepayment) error {
	ptx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	return r.queries.WithTx(ptx).CreateLoanRepayment(ctx, generated.CreateLoanRepaymentParams{
		ID:          repayment.ID,
		LoanID:      repayment.LoanID,
		PaymentDate: timeToPgTimestamptz(repayment.PaymentDate),
		Amount:      decimalToNumeric(repayment.Amount),
		CreatedAt:   timeToPgTimestamptz(repayment.CreatedAt),
	})
}

// ListRepayments lists the repayments of a loan by payment date.
func (r *LoanRepository) ListRepayments(ctx context.Context, loanID string) ([]*domain.LoanRepayment, error) {
	rows, err := r.queries.ListLoanRepayments(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return rowsToRepayments(rows), nil
}

// List lists loans newest first.
func (r *LoanRepository) List(ctx context.Context, limit, offset int) ([]*domain.Loan, error) {
	rows, err := r.queries.ListLoans(ctx, generated.ListLoansParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loan, err := r.hydrate(ctx, r.queries, row)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}

	return loans, nil
}

func (r *LoanRepository) hydrate(ctx context.Context, q *generated.Queries, row generated.Loan) (*domain.Loan, error) {
	accountIDs, err := q.ListLoanAccountIDs(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	repayments, err := q.ListLoanRepayments(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	loan := rowToLoan(row)
	loan.AccountIDs = accountIDs
	loan.Repayments = rowsToRepayments(repayments)

	return loan, nil
}

func rowToLoan(row generated.Loan) *domain.Loan {
	return &domain.Loan{
		ID:               row.ID,
		Principal:        numericToDecimal(row.Principal),
		InterestRate:     numericToDecimal(row.InterestRate),
		TotalPayable:     numericToDecimal(row.TotalPayable),
		MonthlyDeduction: numericToDecimal(row.MonthlyDeduction),
		TermMonths:       int(row.TermMonths),
		Status:           domain.LoanStatus(row.Status),
		CreatedDate:      pgDateToTime(row.CreatedDate),
		StartDate:        pgDateToTime(row.StartDate),
		EndDate:          pgDateToTime(row.EndDate),
		UpdatedAt:        row.UpdatedAt.Time,
	}
}

func rowsToRepayments(rows []generated.LoanRepayment) []*domain.LoanRepayment {
	repayments := make([]*domain.LoanRepayment, 0, len(rows))
	for _, row := range rows {
		repayments = append(repayments, &domain.LoanRepayment{
			ID:          row.ID,
			LoanID:      row.LoanID,
			PaymentDate: row.PaymentDate.Time,
			Amount:      numericToDecimal(row.Amount),
			CreatedAt:   row.CreatedAt.Time,
		})
	}
	return repayments
}
