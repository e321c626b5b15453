package usecase

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/metrics"
)

// LoanUseCase originates loans and applies repayments against them.
type LoanUseCase struct {
	txManager   TxManager
	loanRepo    LoanRepository
	accountRepo AccountRepository
	idGen       IDGenerator
	retrier     Retrier
	clock       Clock
	metrics     *metrics.Metrics
}

// NewLoanUseCase creates a new LoanUseCase. retrier and m may be nil.
func NewLoanUseCase(
	txManager TxManager,
	loanRepo LoanRepository,
	accountRepo AccountRepository,
	idGen IDGenerator,
	retrier Retrier,
	m *metrics.Metrics,
) *LoanUseCase {
	return &LoanUseCase{
		txManager:   txManager,
		loanRepo:    loanRepo,
		accountRepo: accountRepo,
		idGen:       idGen,
		retrier:     retrier,
		clock:       clockwork.NewRealClock(),
		metrics:     m,
	}
}

// WithClock replaces the clock used for default dates.
func (uc *LoanUseCase) WithClock(c Clock) *LoanUseCase {
	uc.clock = c
	return uc
}

// OriginateLoanInput represents a loan application. Nil pointers are absent
// fields.
type OriginateLoanInput struct {
	Principal    *decimal.Decimal
	InterestRate *decimal.Decimal
	StartDate    *time.Time
	EndDate      *time.Time
	CreatedDate  *time.Time
	Status       *domain.LoanStatus
	AccountIDs   []string
}

// OriginateLoan validates the application, derives the schedule and persists
// the loan as INITIATED.
func (uc *LoanUseCase) OriginateLoan(ctx context.Context, input OriginateLoanInput) (*domain.Loan, error) {
	loan, err := uc.buildLoan(input)
	if err != nil {
		uc.recordError(err)
		return nil, err
	}

	err = retry(ctx, uc.retrier, func() error {
		return uc.createLoan(ctx, loan)
	})
	if err != nil {
		uc.recordError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoansOriginated.Inc()
	}

	return loan, nil
}

func (uc *LoanUseCase) buildLoan(input OriginateLoanInput) (*domain.Loan, error) {
	switch {
	case input.Principal == nil:
		return nil, domain.MissingFieldError("principal")
	case input.InterestRate == nil:
		return nil, domain.MissingFieldError("interest_rate")
	case input.StartDate == nil:
		return nil, domain.MissingFieldError("start_date")
	case input.EndDate == nil:
		return nil, domain.MissingFieldError("end_date")
	}

	if input.Status != nil && *input.Status != domain.LoanStatusInitiated {
		return nil, domain.ErrLoanNotInitiated
	}

	schedule, err := domain.ComputeSchedule(*input.Principal, *input.InterestRate, *input.StartDate, *input.EndDate)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now().UTC()
	created := domain.DateOf(now)
	if input.CreatedDate != nil {
		created = *input.CreatedDate
	}

	return &domain.Loan{
		ID:               uc.idGen.Generate(),
		Principal:        *input.Principal,
		InterestRate:     *input.InterestRate,
		TotalPayable:     schedule.TotalPayable,
		MonthlyDeduction: schedule.MonthlyDeduction,
		TermMonths:       schedule.TermMonths,
		Status:           domain.LoanStatusInitiated,
		CreatedDate:      created,
		StartDate:        *input.StartDate,
		EndDate:          *input.EndDate,
		AccountIDs:       dedupe(input.AccountIDs),
		Repayments:       []*domain.LoanRepayment{},
		UpdatedAt:        now,
	}, nil
}

func (uc *LoanUseCase) createLoan(ctx context.Context, loan *domain.Loan) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	for _, id := range loan.AccountIDs {
		if _, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, id); err != nil {
			return err
		}
	}

	if err := uc.loanRepo.Create(txCtx, tx, loan); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}

// ApplyRepaymentInput represents a payment towards a loan. PaymentDate
// defaults to now.
type ApplyRepaymentInput struct {
	LoanID      string
	Amount      decimal.Decimal
	PaymentDate *time.Time
}

// RepaymentResult is the appended repayment and the loan after applying it.
type RepaymentResult struct {
	Repayment *domain.LoanRepayment
	Loan      *domain.Loan
}

// ApplyRepayment records a repayment. An INITIATED loan moves to PROGRESS on
// its first payment and to COMPLETED once fully paid. A payment larger than
// the remaining balance is rejected with *domain.ExceedsBalanceError and
// nothing is written.
func (uc *LoanUseCase) ApplyRepayment(ctx context.Context, input ApplyRepaymentInput) (*RepaymentResult, error) {
	if input.LoanID == "" {
		err := domain.MissingFieldError("loan_id")
		uc.recordError(err)
		return nil, err
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		uc.recordError(err)
		return nil, err
	}

	var result *RepaymentResult
	err := retry(ctx, uc.retrier, func() error {
		var err error
		result, err = uc.applyRepayment(ctx, input)
		return err
	})
	if err != nil {
		uc.recordError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoanRepayments.Inc()
	}

	return result, nil
}

func (uc *LoanUseCase) applyRepayment(ctx context.Context, input ApplyRepaymentInput) (*RepaymentResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	// 1. Begin unit of work
	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// 2. Lock loan with its repayment history
	loan, err := uc.loanRepo.GetByIDForUpdate(txCtx, tx, input.LoanID)
	if err != nil {
		return nil, err
	}

	if err := loan.EnsurePayable(); err != nil {
		return nil, err
	}

	now := uc.clock.Now().UTC()
	var transitions []domain.LoanStatus

	// 3. First payment starts the loan
	if loan.Status == domain.LoanStatusInitiated {
		if err := uc.loanRepo.UpdateStatus(txCtx, tx, loan.ID, domain.LoanStatusProgress, now); err != nil {
			return nil, err
		}
		loan.Status = domain.LoanStatusProgress
		loan.UpdatedAt = now
		transitions = append(transitions, loan.Status)
	}

	// 4. Check against what is still owed
	alreadyPaid := loan.TotalPaid()
	remaining := loan.TotalPayable.Sub(alreadyPaid)
	if input.Amount.GreaterThan(remaining) {
		return nil, &domain.ExceedsBalanceError{Requested: input.Amount, Remaining: remaining}
	}

	paymentDate := now
	if input.PaymentDate != nil {
		paymentDate = *input.PaymentDate
	}

	repayment := &domain.LoanRepayment{
		ID:          uc.idGen.Generate(),
		LoanID:      loan.ID,
		PaymentDate: paymentDate,
		Amount:      input.Amount,
		CreatedAt:   now,
	}

	// 5. Append repayment and complete when fully paid
	if err := uc.loanRepo.AddRepayment(txCtx, tx, repayment); err != nil {
		return nil, err
	}
	loan.Repayments = append(loan.Repayments, repayment)

	if alreadyPaid.Add(input.Amount).GreaterThanOrEqual(loan.TotalPayable) {
		if err := uc.loanRepo.UpdateStatus(txCtx, tx, loan.ID, domain.LoanStatusCompleted, now); err != nil {
			return nil, err
		}
		loan.Status = domain.LoanStatusCompleted
		loan.UpdatedAt = now
		transitions = append(transitions, loan.Status)
	}

	// 6. Commit
	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	for _, status := range transitions {
		uc.recordStatus(status)
	}

	return &RepaymentResult{Repayment: repayment, Loan: loan}, nil
}

// RejectLoan declines an INITIATED loan.
func (uc *LoanUseCase) RejectLoan(ctx context.Context, id string) (*domain.Loan, error) {
	var loan *domain.Loan
	err := retry(ctx, uc.retrier, func() error {
		var err error
		loan, err = uc.rejectLoan(ctx, id)
		return err
	})
	if err != nil {
		uc.recordError(err)
		return nil, err
	}

	uc.recordStatus(loan.Status)

	return loan, nil
}

func (uc *LoanUseCase) rejectLoan(ctx context.Context, id string) (*domain.Loan, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	loan, err := uc.loanRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}

	if loan.Status != domain.LoanStatusInitiated {
		return nil, domain.ErrLoanNotInitiated
	}

	now := uc.clock.Now().UTC()
	if err := uc.loanRepo.UpdateStatus(txCtx, tx, id, domain.LoanStatusRejected, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	loan.Status = domain.LoanStatusRejected
	loan.UpdatedAt = now

	return loan, nil
}

// GetLoan retrieves a loan with its repayments.
func (uc *LoanUseCase) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	return uc.loanRepo.GetByID(ctx, id)
}

// ListLoansInput represents input for listing loans.
type ListLoansInput struct {
	Limit  int
	Offset int
}

// ListLoans lists loans with pagination.
func (uc *LoanUseCase) ListLoans(ctx context.Context, input ListLoansInput) ([]*domain.Loan, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.loanRepo.List(ctx, limit, offset)
}

// ListRepayments returns the repayment history of a loan ordered by payment date.
func (uc *LoanUseCase) ListRepayments(ctx context.Context, loanID string) ([]*domain.LoanRepayment, error) {
	if _, err := uc.loanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return uc.loanRepo.ListRepayments(ctx, loanID)
}

func (uc *LoanUseCase) recordStatus(status domain.LoanStatus) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.LoanStatusChanges.WithLabelValues(string(status)).Inc()
}

func (uc *LoanUseCase) recordError(err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.LoanErrors.WithLabelValues(ErrorType(err)).Inc()
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
