package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the kind of money movement recorded against an account.
type TransactionKind string

const (
	TransactionKindDeposit  TransactionKind = "DEPOSIT"
	TransactionKindWithdraw TransactionKind = "WITHDRAW"
	TransactionKindTransfer TransactionKind = "TRANSFER"
)

// IsValid reports whether k is a known kind.
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindDeposit, TransactionKindWithdraw, TransactionKindTransfer:
		return true
	}
	return false
}

// IsDebit reports whether the kind takes money out of the account.
func (k TransactionKind) IsDebit() bool {
	return k == TransactionKindWithdraw || k == TransactionKindTransfer
}

// TransactionStatus is the outcome of processing a transaction.
type TransactionStatus string

const (
	TransactionStatusSuccessful TransactionStatus = "SUCCESSFUL"
	TransactionStatusFailed     TransactionStatus = "FAILED"
)

// Transaction is an append-only ledger record. Failed attempts are recorded
// too, so the table doubles as the audit trail.
type Transaction struct {
	ID           string
	AccountID    string
	Kind         TransactionKind
	Amount       decimal.Decimal
	Status       TransactionStatus
	Counterparty string
	BalanceAfter decimal.Decimal
	CreatedAt    time.Time
}

// Validate checks the request-level fields of a transaction.
func (t *Transaction) Validate() error {
	if t.AccountID == "" {
		return MissingFieldError("account_id")
	}
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	return ValidateAmount(t.Amount)
}

// SignedAmount returns the effect of a successful transaction on the balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Status != TransactionStatusSuccessful {
		return decimal.Zero
	}
	if t.Kind.IsDebit() {
		return t.Amount.Neg()
	}
	return t.Amount
}
