package usecase_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankcore/internal/adapter/repository/memory"
	"github.com/iho/bankcore/internal/domain"
)

// seqIDs hands out predictable, sortable IDs.
type seqIDs struct {
	prefix string
	n      atomic.Int64
}

func (g *seqIDs) Generate() string {
	return fmt.Sprintf("%s-%06d", g.prefix, g.n.Add(1))
}

type fixture struct {
	store        *memory.Store
	accounts     *memory.AccountRepository
	transactions *memory.TransactionRepository
	loans        *memory.LoanRepository
	users        *memory.UserRepository
	ids          *seqIDs
}

func newFixture() *fixture {
	s := memory.New()
	return &fixture{
		store:        s,
		accounts:     memory.NewAccountRepository(s),
		transactions: memory.NewTransactionRepository(s),
		loans:        memory.NewLoanRepository(s),
		users:        memory.NewUserRepository(s),
		ids:          &seqIDs{prefix: "id"},
	}
}

func (f *fixture) account(t *testing.T, balance string, active bool) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		ID:       f.ids.Generate(),
		Name:     "test account",
		Category: domain.AccountCategoryChecking,
		Balance:  decimal.RequireFromString(balance),
		Active:   active,
	}
	require.NoError(t, f.accounts.Create(context.Background(), acc))
	return acc
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	acc, err := f.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decimalMatcher matches decimals by value rather than representation.
type decimalMatcher struct {
	want decimal.Decimal
}

func decimalEq(s string) gomock.Matcher {
	return decimalMatcher{want: dec(s)}
}

func (m decimalMatcher) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalMatcher) String() string {
	return "is decimal " + m.want.String()
}

func ptr[T any](v T) *T {
	return &v
}
