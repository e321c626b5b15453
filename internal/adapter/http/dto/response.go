package dto

import (
	"time"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Balance   string    `json:"balance"`
	Active    bool      `json:"active"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Category:  string(a.Category),
		Balance:   a.Balance.String(),
		Active:    a.Active,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Kind         string    `json:"kind"`
	Amount       string    `json:"amount"`
	Status       string    `json:"status"`
	Counterparty string    `json:"counterparty,omitempty"`
	BalanceAfter string    `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Kind:         string(t.Kind),
		Amount:       t.Amount.String(),
		Status:       string(t.Status),
		Counterparty: t.Counterparty,
		BalanceAfter: t.BalanceAfter.String(),
		CreatedAt:    t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txs []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// RepaymentResponse represents a single loan repayment.
type RepaymentResponse struct {
	ID          string    `json:"id"`
	LoanID      string    `json:"loan_id"`
	PaymentDate string    `json:"payment_date"`
	Amount      string    `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// RepaymentFromDomain converts domain repayment to response.
func RepaymentFromDomain(r *domain.LoanRepayment) *RepaymentResponse {
	return &RepaymentResponse{
		ID:          r.ID,
		LoanID:      r.LoanID,
		PaymentDate: r.PaymentDate.Format(dateLayout),
		Amount:      r.Amount.String(),
		CreatedAt:   r.CreatedAt,
	}
}

// RepaymentsFromDomain converts domain repayments to responses.
func RepaymentsFromDomain(repayments []*domain.LoanRepayment) []*RepaymentResponse {
	result := make([]*RepaymentResponse, len(repayments))
	for i, r := range repayments {
		result[i] = RepaymentFromDomain(r)
	}
	return result
}

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID               string               `json:"id"`
	Principal        string               `json:"principal"`
	InterestRate     string               `json:"interest_rate"`
	TotalPayable     string               `json:"total_payable"`
	MonthlyDeduction string               `json:"monthly_deduction"`
	TermMonths       int                  `json:"term_months"`
	Status           string               `json:"status"`
	TotalPaid        string               `json:"total_paid"`
	Remaining        string               `json:"remaining"`
	CreatedDate      string               `json:"created_date"`
	StartDate        string               `json:"start_date"`
	EndDate          string               `json:"end_date"`
	AccountIDs       []string             `json:"account_ids"`
	Repayments       []*RepaymentResponse `json:"repayments"`
}

// LoanFromDomain converts domain loan to response.
func LoanFromDomain(l *domain.Loan) *LoanResponse {
	accountIDs := l.AccountIDs
	if accountIDs == nil {
		accountIDs = []string{}
	}
	return &LoanResponse{
		ID:               l.ID,
		Principal:        l.Principal.String(),
		InterestRate:     l.InterestRate.String(),
		TotalPayable:     l.TotalPayable.StringFixed(2),
		MonthlyDeduction: l.MonthlyDeduction.StringFixed(2),
		TermMonths:       l.TermMonths,
		Status:           string(l.Status),
		TotalPaid:        l.TotalPaid().String(),
		Remaining:        l.Remaining().String(),
		CreatedDate:      l.CreatedDate.Format(dateLayout),
		StartDate:        l.StartDate.Format(dateLayout),
		EndDate:          l.EndDate.Format(dateLayout),
		AccountIDs:       accountIDs,
		Repayments:       RepaymentsFromDomain(l.Repayments),
	}
}

// LoansFromDomain converts domain loans to responses.
func LoansFromDomain(loans []*domain.Loan) []*LoanResponse {
	result := make([]*LoanResponse, len(loans))
	for i, l := range loans {
		result[i] = LoanFromDomain(l)
	}
	return result
}

// RepaymentResultResponse is returned after a repayment is applied.
type RepaymentResultResponse struct {
	Repayment *RepaymentResponse `json:"repayment"`
	Loan      *LoanResponse      `json:"loan"`
}

// RepaymentResultFromUseCase converts a repayment result to response.
func RepaymentResultFromUseCase(r *usecase.RepaymentResult) *RepaymentResultResponse {
	return &RepaymentResultResponse{
		Repayment: RepaymentFromDomain(r.Repayment),
		Loan:      LoanFromDomain(r.Loan),
	}
}

// SessionResponse represents an authenticated session.
type SessionResponse struct {
	Token          string    `json:"token,omitempty"`
	UserID         string    `json:"user_id"`
	DisplayName    string    `json:"display_name,omitempty"`
	Role           string    `json:"role"`
	ClientOrigin   string    `json:"client_origin,omitempty"`
	LoginAt        time.Time `json:"login_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresIn      int64     `json:"expires_in"`
}

// SessionFromDomain converts a session to response. The token is only
// included when withToken is set.
func SessionFromDomain(s *domain.Session, timeout time.Duration, withToken bool) *SessionResponse {
	resp := &SessionResponse{
		UserID:         s.Identity.UserID,
		DisplayName:    s.Identity.DisplayName,
		Role:           string(s.Identity.Role),
		ClientOrigin:   s.ClientOrigin,
		LoginAt:        s.LoginAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresIn:      int64(timeout.Seconds()),
	}
	if withToken {
		resp.Token = s.Token
	}
	return resp
}

// UserResponse represents a user without credentials.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromDomain converts domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

// DiscrepancyResponse is one unreconciled account.
type DiscrepancyResponse struct {
	AccountID         string `json:"account_id"`
	RecordedBalance   string `json:"recorded_balance"`
	CalculatedBalance string `json:"calculated_balance"`
	Difference        string `json:"difference"`
}

// ReconciliationResponse summarizes a reconciliation run.
type ReconciliationResponse struct {
	Consistent         bool                   `json:"consistent"`
	TotalAccounts      int                    `json:"total_accounts"`
	ReconciledAccounts int                    `json:"reconciled_accounts"`
	Discrepancies      []*DiscrepancyResponse `json:"discrepancies"`
	NegativeBalances   []string               `json:"negative_balances"`
	CheckedAt          time.Time              `json:"checked_at"`
}

// ReconciliationFromUseCase converts a reconciliation report to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationResponse {
	discrepancies := make([]*DiscrepancyResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = &DiscrepancyResponse{
			AccountID:         d.AccountID,
			RecordedBalance:   d.RecordedBalance.String(),
			CalculatedBalance: d.CalculatedBalance.String(),
			Difference:        d.Difference.String(),
		}
	}
	negative := r.NegativeBalances
	if negative == nil {
		negative = []string{}
	}
	return &ReconciliationResponse{
		Consistent:         r.Consistent(),
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      discrepancies,
		NegativeBalances:   negative,
		CheckedAt:          r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// InsufficientFundsResponse is returned with 422 when a debit is refused.
type InsufficientFundsResponse struct {
	ErrorResponse
	Balance     string               `json:"balance"`
	Requested   string               `json:"requested"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// ExceedsBalanceResponse is returned with 422 when a repayment is too large.
type ExceedsBalanceResponse struct {
	ErrorResponse
	Requested string `json:"requested"`
	Remaining string `json:"remaining"`
}

// ListResponse wraps a page of results.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
