package usecase_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/metrics"
	"github.com/iho/bankcore/internal/usecase"
)

func TestAccountUseCase_CreateAccount(t *testing.T) {
	f := newFixture()
	m := metrics.New(prometheus.NewRegistry())
	uc := usecase.NewAccountUseCase(f.accounts, f.ids, m)

	acc, err := uc.CreateAccount(context.Background(), usecase.CreateAccountInput{
		Name:     "  Payroll  ",
		Category: domain.AccountCategoryBusiness,
	})
	require.NoError(t, err)

	assert.Equal(t, "Payroll", acc.Name)
	assert.True(t, acc.Active)
	assert.True(t, acc.Balance.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccountsCreated))

	got, err := uc.GetAccount(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestAccountUseCase_CreateAccountValidation(t *testing.T) {
	uc := usecase.NewAccountUseCase(newFixture().accounts, &seqIDs{prefix: "acc"}, nil)

	_, err := uc.CreateAccount(context.Background(), usecase.CreateAccountInput{Name: " ", Category: domain.AccountCategorySavings})
	assert.ErrorIs(t, err, domain.ErrInvalidAccountName)

	_, err = uc.CreateAccount(context.Background(), usecase.CreateAccountInput{Name: "ok", Category: "GOLD"})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestAccountUseCase_SetAccountActiveGatesLedger(t *testing.T) {
	f := newFixture()
	accounts := usecase.NewAccountUseCase(f.accounts, f.ids, nil)
	ledger := newLedger(f, nil)

	acc, err := accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{Name: "Main", Category: domain.AccountCategoryChecking})
	require.NoError(t, err)

	acc, err = accounts.SetAccountActive(context.Background(), acc.ID, false)
	require.NoError(t, err)
	assert.False(t, acc.Active)

	_, err = ledger.ProcessTransaction(context.Background(), usecase.ProcessTransactionInput{
		AccountID: acc.ID, Kind: domain.TransactionKindDeposit, Amount: dec("1"),
	})
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	_, err = accounts.SetAccountActive(context.Background(), acc.ID, true)
	require.NoError(t, err)

	_, err = ledger.ProcessTransaction(context.Background(), usecase.ProcessTransactionInput{
		AccountID: acc.ID, Kind: domain.TransactionKindDeposit, Amount: dec("1"),
	})
	assert.NoError(t, err)

	_, err = accounts.SetAccountActive(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountUseCase_ListAccountsClampsPage(t *testing.T) {
	f := newFixture()
	uc := usecase.NewAccountUseCase(f.accounts, f.ids, nil)
	for i := 0; i < 3; i++ {
		f.account(t, "0", true)
	}

	list, err := uc.ListAccounts(context.Background(), usecase.ListAccountsInput{Limit: 0})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = uc.ListAccounts(context.Background(), usecase.ListAccountsInput{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
