// Package memory is an in-process record store. Units of work are serialized
// by a single store-wide lock, which gives the same per-entity guarantees as
// row locks at the cost of concurrency.
package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/usecase"
)

// ErrForeignTx is returned when a Tx from another store is passed in.
var ErrForeignTx = errors.New("memory: transaction does not belong to this store")

// Store holds every record in maps guarded by one lock.
type Store struct {
	sem chan struct{}

	accounts     map[string]*domain.Account
	transactions map[string]*domain.Transaction
	loans        map[string]*domain.Loan
	repayments   map[string][]*domain.LoanRepayment
	users        map[string]*domain.User
	usersByEmail map[string]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		sem:          make(chan struct{}, 1),
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		loans:        make(map[string]*domain.Loan),
		repayments:   make(map[string][]*domain.LoanRepayment),
		users:        make(map[string]*domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (s *Store) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlock() {
	<-s.sem
}

// Ping always succeeds. It lets the store back a readiness check.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Begin starts a unit of work. It holds the store lock until Commit or
// Rollback.
func (s *Store) Begin(ctx context.Context) (usecase.Tx, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	return &Tx{store: s}, nil
}

// Tx is a unit of work with an undo log.
type Tx struct {
	store *Store
	undo  []func()
	done  bool
}

// Commit keeps every change and releases the store.
func (t *Tx) Commit(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.undo = nil
	t.store.unlock()
	return nil
}

// Rollback reverts every change in reverse order and releases the store.
// It is a no-op after Commit.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.done = true
	t.undo = nil
	t.store.unlock()
	return nil
}

func (t *Tx) onRollback(f func()) {
	t.undo = append(t.undo, f)
}

func (s *Store) tx(tx usecase.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s || t.done {
		return nil, ErrForeignTx
	}
	return t, nil
}

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	s *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(s *Store) *AccountRepository {
	return &AccountRepository{s: s}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := r.s.lock(ctx); err != nil {
		return err
	}
	defer r.s.unlock()

	cp := *account
	r.s.accounts[account.ID] = &cp
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	return r.get(id)
}

// GetByIDForUpdate retrieves an account inside a unit of work.
func (r *AccountRepository) GetByIDForUpdate(_ context.Context, tx usecase.Tx, id string) (*domain.Account, error) {
	if _, err := r.s.tx(tx); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r *AccountRepository) get(id string) (*domain.Account, error) {
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

// UpdateBalance sets a new balance and bumps the version.
func (r *AccountRepository) UpdateBalance(_ context.Context, tx usecase.Tx, id string, balance decimal.Decimal, updatedAt time.Time) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	a, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}

	prev := *a
	t.onRollback(func() { *a = prev })

	a.Balance = balance
	a.Version++
	a.UpdatedAt = updatedAt
	return nil
}

// SetActive activates or deactivates an account.
func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	if err := r.s.lock(ctx); err != nil {
		return err
	}
	defer r.s.unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Active = active
	a.UpdatedAt = updatedAt
	return nil
}

// List returns accounts ordered by ID.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	out := make([]*domain.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return page(out, limit, offset), nil
}

// page slices items by limit and offset.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
