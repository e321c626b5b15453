package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Tx, id string, balance decimal.Decimal, updatedAt time.Time) error
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error)
	// NetByAccount sums the signed amounts of SUCCESSFUL transactions per account.
	NetByAccount(ctx context.Context) (map[string]decimal.Decimal, error)
}

// LoanRepository defines data access for loans and their repayments.
// Loans are returned with Repayments populated, ordered by payment date.
type LoanRepository interface {
	Create(ctx context.Context, tx Tx, loan *domain.Loan) error
	GetByID(ctx context.Context, id string) (*domain.Loan, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*domain.Loan, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status domain.LoanStatus, updatedAt time.Time) error
	AddRepayment(ctx context.Context, tx Tx, repayment *domain.LoanRepayment) error
	ListRepayments(ctx context.Context, loanID string) ([]*domain.LoanRepayment, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Loan, error)
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Tx represents a unit of work against the record store.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxManager handles unit-of-work lifecycle.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// Retrier re-runs an operation on transient storage conflicts. Business errors
// must be returned as-is, never retried.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops the key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// Clock abstracts wall time so date defaults can be pinned in tests.
type Clock interface {
	Now() time.Time
}
