package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankcore/internal/adapter/http/dto"
	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/usecase"
)

// LoanService defines the behavior needed by LoanHandler.
type LoanService interface {
	OriginateLoan(ctx context.Context, input usecase.OriginateLoanInput) (*domain.Loan, error)
	ApplyRepayment(ctx context.Context, input usecase.ApplyRepaymentInput) (*usecase.RepaymentResult, error)
	RejectLoan(ctx context.Context, id string) (*domain.Loan, error)
	GetLoan(ctx context.Context, id string) (*domain.Loan, error)
	ListLoans(ctx context.Context, input usecase.ListLoansInput) ([]*domain.Loan, error)
	ListRepayments(ctx context.Context, loanID string) ([]*domain.LoanRepayment, error)
}

// LoanHandler handles loan origination and servicing.
type LoanHandler struct {
	loanUC LoanService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loanUC LoanService) *LoanHandler {
	return &LoanHandler{loanUC: loanUC}
}

// Originate creates a loan and derives its repayment schedule.
func (h *LoanHandler) Originate(w http.ResponseWriter, r *http.Request) {
	var req dto.OriginateLoanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, "failed to originate loan", err)
		return
	}

	loan, err := h.loanUC.OriginateLoan(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to originate loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LoanFromDomain(loan))
}

// Repay applies a repayment to the loan in the path.
func (h *LoanHandler) Repay(w http.ResponseWriter, r *http.Request) {
	var req dto.RepaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "repayment refused", err)
		return
	}

	result, err := h.loanUC.ApplyRepayment(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "repayment refused", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RepaymentResultFromUseCase(result))
}

// Reject declines an INITIATED loan.
func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loanUC.RejectLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to reject loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// Get retrieves a loan by ID.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loanUC.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// List lists loans.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultPageSize)
	offset := parseIntQuery(r, "offset", 0)

	loans, err := h.loanUC.ListLoans(r.Context(), usecase.ListLoansInput{Limit: limit, Offset: offset})
	if err != nil {
		writeDomainError(w, r, "failed to list loans", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.LoanResponse]{
		Items:  dto.LoansFromDomain(loans),
		Limit:  limit,
		Offset: offset,
	})
}

// ListRepayments lists the repayment history of a loan.
func (h *LoanHandler) ListRepayments(w http.ResponseWriter, r *http.Request) {
	repayments, err := h.loanUC.ListRepayments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to list repayments", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RepaymentsFromDomain(repayments))
}
