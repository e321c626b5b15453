package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/metrics"
	infra "github.com/iho/bankcore/internal/infrastructure/postgres"
	"github.com/iho/bankcore/internal/usecase"
)

const migrationsPath = "../../../infrastructure/postgres/migrations"

// testStack is the ledger wired against a real PostgreSQL database.
type testStack struct {
	pool           *pgxpool.Pool
	accounts       *AccountRepository
	ledger         *usecase.LedgerUseCase
	loans          *usecase.LoanUseCase
	accountUC      *usecase.AccountUseCase
	reconciliation *usecase.ReconciliationUseCase
}

// newTestStack connects to TEST_DATABASE_URL. The tests are skipped when it
// is unset or -short is given.
func newTestStack(t *testing.T) *testStack {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, infra.RunMigrations(dbURL, migrationsPath, zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infra.NewPoolWithConfig(ctx, infra.PoolConfig{DatabaseURL: dbURL, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE loan_repayments, loan_accounts, loans, transactions, accounts, users CASCADE")
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	ids := NewULIDGenerator()
	txm := NewTxManager(pool)
	accounts := NewAccountRepository(pool)
	transactions := NewTransactionRepository(pool)
	retrier := NewRetrier(zerolog.Nop(), m)

	return &testStack{
		pool:           pool,
		accounts:       accounts,
		ledger:         usecase.NewLedgerUseCase(txm, accounts, transactions, ids, retrier, m),
		loans:          usecase.NewLoanUseCase(txm, NewLoanRepository(pool), accounts, ids, retrier, m),
		accountUC:      usecase.NewAccountUseCase(accounts, ids, m),
		reconciliation: usecase.NewReconciliationUseCase(accounts, transactions),
	}
}

func (s *testStack) fundedAccount(t *testing.T, name string, balance int64) *domain.Account {
	t.Helper()
	ctx := context.Background()

	account, err := s.accountUC.CreateAccount(ctx, usecase.CreateAccountInput{Name: name, Category: domain.AccountCategoryChecking})
	require.NoError(t, err)

	if balance > 0 {
		_, err = s.ledger.ProcessTransaction(ctx, usecase.ProcessTransactionInput{
			AccountID: account.ID,
			Kind:      domain.TransactionKindDeposit,
			Amount:    decimal.NewFromInt(balance),
		})
		require.NoError(t, err)
	}
	return account
}

func TestIntegration_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	account := s.fundedAccount(t, "source", 1000)

	const attempts = 150
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		refused   atomic.Int32
		other     atomic.Int32
	)

	wg.Add(attempts)
	for range attempts {
		go func() {
			defer wg.Done()

			_, err := s.ledger.ProcessTransaction(ctx, usecase.ProcessTransactionInput{
				AccountID: account.ID,
				Kind:      domain.TransactionKindWithdraw,
				Amount:    decimal.NewFromInt(10),
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				refused.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 100, succeeded.Load())
	assert.EqualValues(t, 50, refused.Load())
	assert.EqualValues(t, 0, other.Load())

	got, err := s.accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero(), "balance %s", got.Balance)

	report, err := s.reconciliation.GenerateReconciliationReport(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
}

func TestIntegration_ConcurrentDepositsAndWithdrawals(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	account := s.fundedAccount(t, "mixed", 500)

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(rounds * 2)
	for range rounds {
		go func() {
			defer wg.Done()
			_, err := s.ledger.ProcessTransaction(ctx, usecase.ProcessTransactionInput{
				AccountID: account.ID, Kind: domain.TransactionKindDeposit, Amount: decimal.NewFromInt(3),
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.ledger.ProcessTransaction(ctx, usecase.ProcessTransactionInput{
				AccountID: account.ID, Kind: domain.TransactionKindTransfer, Amount: decimal.NewFromInt(2), Counterparty: "ext",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(550)), "balance %s", got.Balance)
}

func TestIntegration_LoanLifecycle(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	account := s.fundedAccount(t, "borrower", 0)

	principal := decimal.NewFromInt(1200)
	rate := decimal.NewFromInt(5)
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	loan, err := s.loans.OriginateLoan(ctx, usecase.OriginateLoanInput{
		Principal:    &principal,
		InterestRate: &rate,
		StartDate:    &start,
		EndDate:      &end,
		AccountIDs:   []string{account.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusInitiated, loan.Status)
	assert.Equal(t, 12, loan.TermMonths)
	assert.True(t, loan.TotalPayable.Equal(decimal.NewFromInt(1260)), "total %s", loan.TotalPayable)
	assert.True(t, loan.MonthlyDeduction.Equal(decimal.NewFromInt(105)), "monthly %s", loan.MonthlyDeduction)

	first, err := s.loans.ApplyRepayment(ctx, usecase.ApplyRepaymentInput{LoanID: loan.ID, Amount: decimal.NewFromInt(260)})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusProgress, first.Loan.Status)

	_, err = s.loans.ApplyRepayment(ctx, usecase.ApplyRepaymentInput{LoanID: loan.ID, Amount: decimal.NewFromInt(1001)})
	var exceeds *domain.ExceedsBalanceError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, exceeds.Remaining.Equal(decimal.NewFromInt(1000)))

	last, err := s.loans.ApplyRepayment(ctx, usecase.ApplyRepaymentInput{LoanID: loan.ID, Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCompleted, last.Loan.Status)

	stored, err := s.loans.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Repayments, 2)
	assert.Equal(t, []string{account.ID}, stored.AccountIDs)

	_, err = s.loans.ApplyRepayment(ctx, usecase.ApplyRepaymentInput{LoanID: loan.ID, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrLoanCompleted)
}
