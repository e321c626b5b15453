package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountCategory classifies an account. It carries no business rule.
type AccountCategory string

const (
	AccountCategorySavings  AccountCategory = "SAVINGS"
	AccountCategoryChecking AccountCategory = "CHECKING"
	AccountCategoryBusiness AccountCategory = "BUSINESS"
)

// IsValid reports whether c is a known category.
func (c AccountCategory) IsValid() bool {
	switch c {
	case AccountCategorySavings, AccountCategoryChecking, AccountCategoryBusiness:
		return true
	}
	return false
}

// Account represents a customer account that holds a balance.
type Account struct {
	ID        string
	Name      string
	Category  AccountCategory
	Balance   decimal.Decimal
	Active    bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnsureActive returns ErrAccountInactive for an inactive account.
func (a *Account) EnsureActive() error {
	if !a.Active {
		return ErrAccountInactive
	}
	return nil
}

// CanDebit reports whether amount can leave the account without driving the
// balance negative.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(a.Balance)
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}
