package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/metrics"
)

// LedgerUseCase applies deposits, withdrawals and transfers to account
// balances and records every attempt as a transaction.
type LedgerUseCase struct {
	txManager       TxManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	idGen           IDGenerator
	retrier         Retrier
	metrics         *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase. retrier and m may be nil.
func NewLedgerUseCase(
	txManager TxManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	idGen IDGenerator,
	retrier Retrier,
	m *metrics.Metrics,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		idGen:           idGen,
		retrier:         retrier,
		metrics:         m,
	}
}

// ProcessTransactionInput represents a request to move money on an account.
type ProcessTransactionInput struct {
	AccountID    string
	Kind         domain.TransactionKind
	Amount       decimal.Decimal
	Counterparty string
}

// ProcessTransaction applies a transaction to its account.
//
// A withdrawal or transfer larger than the balance is recorded as FAILED and
// returned as *domain.InsufficientFundsError carrying that record; the
// balance is left untouched.
func (uc *LedgerUseCase) ProcessTransaction(ctx context.Context, input ProcessTransactionInput) (*domain.Transaction, error) {
	start := time.Now()

	// 0. Validate inputs before touching storage
	request := &domain.Transaction{
		AccountID:    input.AccountID,
		Kind:         input.Kind,
		Amount:       input.Amount,
		Counterparty: input.Counterparty,
	}
	if err := request.Validate(); err != nil {
		uc.recordError(err)
		return nil, err
	}

	var result *domain.Transaction
	err := retry(ctx, uc.retrier, func() error {
		var err error
		result, err = uc.processTransaction(ctx, input)
		return err
	})

	if uc.metrics != nil {
		uc.metrics.TransactionDuration.Observe(time.Since(start).Seconds())
	}

	var insufficient *domain.InsufficientFundsError
	if errors.As(err, &insufficient) {
		uc.recordOutcome(insufficient.Transaction)
	}
	if err != nil {
		uc.recordError(err)
		return nil, err
	}

	uc.recordOutcome(result)

	return result, nil
}

func (uc *LedgerUseCase) processTransaction(ctx context.Context, input ProcessTransactionInput) (*domain.Transaction, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	// 1. Begin unit of work
	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// 2. Lock account
	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, input.AccountID)
	if err != nil {
		return nil, err
	}

	if err := account.EnsureActive(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.Transaction{
		ID:           uc.idGen.Generate(),
		AccountID:    account.ID,
		Kind:         input.Kind,
		Amount:       input.Amount,
		Counterparty: input.Counterparty,
		CreatedAt:    now,
	}

	// 3. Compute the new balance, or record the failed attempt
	var newBalance decimal.Decimal
	switch {
	case !input.Kind.IsDebit():
		newBalance = account.ApplyCredit(input.Amount)
	case account.CanDebit(input.Amount):
		newBalance = account.ApplyDebit(input.Amount)
	default:
		record.Status = domain.TransactionStatusFailed
		record.BalanceAfter = account.Balance

		if err := uc.transactionRepo.Create(txCtx, tx, record); err != nil {
			return nil, err
		}
		if err := tx.Commit(txCtx); err != nil {
			return nil, err
		}

		return nil, &domain.InsufficientFundsError{
			Balance:     account.Balance,
			Requested:   input.Amount,
			Transaction: record,
		}
	}

	// 4. Write balance and record together
	if err := uc.accountRepo.UpdateBalance(txCtx, tx, account.ID, newBalance, now); err != nil {
		return nil, err
	}

	record.Status = domain.TransactionStatusSuccessful
	record.BalanceAfter = newBalance

	if err := uc.transactionRepo.Create(txCtx, tx, record); err != nil {
		return nil, err
	}

	// 5. Commit
	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return record, nil
}

// GetTransaction retrieves a transaction by ID.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByID(ctx, id)
}

// ListTransactionsInput represents input for listing transactions. An empty
// AccountID lists across all accounts.
type ListTransactionsInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// ListTransactions lists transactions newest first.
func (uc *LedgerUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	if input.AccountID == "" {
		return uc.transactionRepo.List(ctx, limit, offset)
	}

	if _, err := uc.accountRepo.GetByID(ctx, input.AccountID); err != nil {
		return nil, err
	}

	return uc.transactionRepo.ListByAccount(ctx, input.AccountID, limit, offset)
}

func (uc *LedgerUseCase) recordOutcome(t *domain.Transaction) {
	if uc.metrics == nil || t == nil {
		return
	}

	uc.metrics.TransactionsProcessed.WithLabelValues(string(t.Kind), string(t.Status)).Inc()
	if t.Status == domain.TransactionStatusSuccessful {
		uc.metrics.TransactionAmount.WithLabelValues(string(t.Kind)).Observe(t.Amount.InexactFloat64())
	}
}

func (uc *LedgerUseCase) recordError(err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.LedgerErrors.WithLabelValues(ErrorType(err)).Inc()
}

// ErrorType classifies err into a low-cardinality label.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrExceedsBalance):
		return "exceeds_balance"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingField),
		errors.Is(err, domain.ErrInvalidRange):
		return "invalid_input"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

// retry runs operation through r, or once when r is nil.
func retry(ctx context.Context, r Retrier, operation func() error) error {
	if r == nil {
		return operation()
	}
	return r.Retry(ctx, operation)
}
