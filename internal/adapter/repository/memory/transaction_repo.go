package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	s *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(s *Store) *TransactionRepository {
	return &TransactionRepository{s: s}
}

// Create appends a transaction inside a unit of work.
func (r *TransactionRepository) Create(_ context.Context, tx usecase.Tx, t *domain.Transaction) error {
	utx, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	cp := *t
	r.s.transactions[t.ID] = &cp
	utx.onRollback(func() { delete(r.s.transactions, t.ID) })
	return nil
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	t, ok := r.s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

// List returns all transactions newest first.
func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	return r.list(ctx, "", limit, offset)
}

// ListByAccount returns the transactions of an account newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	return r.list(ctx, accountID, limit, offset)
}

func (r *TransactionRepository) list(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	out := make([]*domain.Transaction, 0)
	for _, t := range r.s.transactions {
		if accountID != "" && t.AccountID != accountID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return page(out, limit, offset), nil
}

// NetByAccount sums the signed amounts of successful transactions per account.
func (r *TransactionRepository) NetByAccount(ctx context.Context) (map[string]decimal.Decimal, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	net := make(map[string]decimal.Decimal)
	for _, t := range r.s.transactions {
		if t.Status != domain.TransactionStatusSuccessful {
			continue
		}
		net[t.AccountID] = net[t.AccountID].Add(t.SignedAmount())
	}
	return net, nil
}
