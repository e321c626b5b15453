package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/usecase"
)

// LoanRepository implements usecase.LoanRepository.
type LoanRepository struct {
	s *Store
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(s *Store) *LoanRepository {
	return &LoanRepository{s: s}
}

// Create stores a new loan inside a unit of work.
func (r *LoanRepository) Create(_ context.Context, tx usecase.Tx, loan *domain.Loan) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	cp := *loan
	cp.AccountIDs = append([]string(nil), loan.AccountIDs...)
	cp.Repayments = nil
	r.s.loans[loan.ID] = &cp
	t.onRollback(func() { delete(r.s.loans, loan.ID) })
	return nil
}

// GetByID retrieves a loan with its repayments.
func (r *LoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	return r.get(id)
}

// GetByIDForUpdate retrieves a loan with its repayments inside a unit of work.
func (r *LoanRepository) GetByIDForUpdate(_ context.Context, tx usecase.Tx, id string) (*domain.Loan, error) {
	if _, err := r.s.tx(tx); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r *LoanRepository) get(id string) (*domain.Loan, error) {
	l, ok := r.s.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return r.withRepayments(l), nil
}

func (r *LoanRepository) withRepayments(l *domain.Loan) *domain.Loan {
	cp := *l
	cp.AccountIDs = append([]string(nil), l.AccountIDs...)
	cp.Repayments = r.repaymentsOf(l.ID)
	return &cp
}

func (r *LoanRepository) repaymentsOf(loanID string) []*domain.LoanRepayment {
	src := r.s.repayments[loanID]
	out := make([]*domain.LoanRepayment, 0, len(src))
	for _, rp := range src {
		cp := *rp
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.Before(out[j].PaymentDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UpdateStatus sets a loan's status inside a unit of work.
func (r *LoanRepository) UpdateStatus(_ context.Context, tx usecase.Tx, id string, status domain.LoanStatus, updatedAt time.Time) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	l, ok := r.s.loans[id]
	if !ok {
		return domain.ErrLoanNotFound
	}

	prevStatus, prevUpdated := l.Status, l.UpdatedAt
	t.onRollback(func() {
		l.Status = prevStatus
		l.UpdatedAt = prevUpdated
	})

	l.Status = status
	l.UpdatedAt = updatedAt
	return nil
}

// AddRepayment appends a repayment inside a unit of work.
func (r *LoanRepository) AddRepayment(_ context.Context, tx usecase.Tx, repayment *domain.LoanRepayment) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	if _, ok := r.s.loans[repayment.LoanID]; !ok {
		return domain.ErrLoanNotFound
	}

	prev := r.s.repayments[repayment.LoanID]
	cp := *repayment
	r.s.repayments[repayment.LoanID] = append(prev[:len(prev):len(prev)], &cp)
	t.onRollback(func() { r.s.repayments[repayment.LoanID] = prev })
	return nil
}

// ListRepayments returns a loan's repayments ordered by payment date.
func (r *LoanRepository) ListRepayments(ctx context.Context, loanID string) ([]*domain.LoanRepayment, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	return r.repaymentsOf(loanID), nil
}

// List returns loans newest first.
func (r *LoanRepository) List(ctx context.Context, limit, offset int) ([]*domain.Loan, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	out := make([]*domain.Loan, 0, len(r.s.loans))
	for _, l := range r.s.loans {
		out = append(out, r.withRepayments(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	return page(out, limit, offset), nil
}
