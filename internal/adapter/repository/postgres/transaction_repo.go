package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/postgres/generated"
	"github.com/iho/bankcore/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{
		queries: generated.New(db),
	}
}

// Create appends a transaction record.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	ptx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	return r.queries.WithTx(ptx).CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Kind:         string(t.Kind),
		Amount:       decimalToNumeric(t.Amount),
		Status:       string(t.Status),
		Counterparty: t.Counterparty,
		BalanceAfter: decimalToNumeric(t.BalanceAfter),
		CreatedAt:    timeToPgTimestamptz(t.CreatedAt),
	})
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return rowToTransaction(row), nil
}

// List lists all transactions newest first.
func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, generated.ListTransactionsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToTransactions(rows), nil
}

// ListByAccount lists the transactions of an account newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactionsByAccount(ctx, generated.ListTransactionsByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToTransactions(rows), nil
}

// NetByAccount sums the signed amounts of successful transactions per account.
func (r *TransactionRepository) NetByAccount(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.queries.NetByAccount(ctx)
	if err != nil {
		return nil, err
	}

	net := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		net[row.AccountID] = numericToDecimal(row.Net)
	}

	return net, nil
}

func rowsToTransactions(rows []generated.Transaction) []*domain.Transaction {
	transactions := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, rowToTransaction(row))
	}
	return transactions
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:           row.ID,
		AccountID:    row.AccountID,
		Kind:         domain.TransactionKind(row.Kind),
		Amount:       numericToDecimal(row.Amount),
		Status:       domain.TransactionStatus(row.Status),
		Counterparty: row.Counterparty,
		BalanceAfter: numericToDecimal(row.BalanceAfter),
		CreatedAt:    row.CreatedAt.Time,
	}
}
