package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/domain"
)

// reconciliationPageSize is the page size used to walk all accounts.
const reconciliationPageSize = domain.MaxPageSize

// ReconciliationUseCase checks stored balances against the transaction log.
type ReconciliationUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(accountRepo AccountRepository, transactionRepo TransactionRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountID         string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	NegativeBalances   []string
	CheckedAt          time.Time
}

// Consistent reports whether every account reconciled and none is negative.
func (r *ReconciliationReport) Consistent() bool {
	return len(r.Discrepancies) == 0 && len(r.NegativeBalances) == 0
}

// GenerateReconciliationReport compares every account balance with the net of
// its successful transactions. Read-only.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	net, err := uc.transactionRepo.NetByAccount(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		Discrepancies:    make([]*ReconciliationResult, 0),
		NegativeBalances: make([]string, 0),
		CheckedAt:        time.Now().UTC(),
	}

	for offset := 0; ; offset += reconciliationPageSize {
		accounts, err := uc.accountRepo.List(ctx, reconciliationPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			result := reconcile(account, net[account.ID])
			report.TotalAccounts++
			if result.IsReconciled {
				report.ReconciledAccounts++
			} else {
				report.Discrepancies = append(report.Discrepancies, result)
			}
			if account.Balance.IsNegative() {
				report.NegativeBalances = append(report.NegativeBalances, account.ID)
			}
		}

		if len(accounts) < reconciliationPageSize {
			break
		}
	}

	return report, nil
}

func reconcile(account *domain.Account, calculated decimal.Decimal) *ReconciliationResult {
	diff := account.Balance.Sub(calculated)
	return &ReconciliationResult{
		AccountID:         account.ID,
		RecordedBalance:   account.Balance,
		CalculatedBalance: calculated,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
	}
}
