package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankcore/internal/adapter/http/dto"
	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/usecase"
)

// LedgerService defines the behavior needed by TransactionHandler.
type LedgerService interface {
	ProcessTransaction(ctx context.Context, input usecase.ProcessTransactionInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
}

// TransactionHandler handles deposits, withdrawals and transfers.
type TransactionHandler struct {
	ledgerUC LedgerService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledgerUC LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerUC: ledgerUC}
}

// Process applies a single transaction against one account. A refused debit
// answers 422 with the FAILED transaction that was recorded.
func (h *TransactionHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req dto.ProcessTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	tx, err := h.ledgerUC.ProcessTransaction(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "transaction refused", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(tx))
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledgerUC.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(tx))
}

// List lists transactions, optionally filtered by ?account_id=.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("account_id"))
}

// ListByAccount lists the transactions of the account in the path.
func (h *TransactionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "id"))
}

func (h *TransactionHandler) list(w http.ResponseWriter, r *http.Request, accountID string) {
	limit := parseIntQuery(r, "limit", defaultPageSize)
	offset := parseIntQuery(r, "offset", 0)

	txs, err := h.ledgerUC.ListTransactions(r.Context(), usecase.ListTransactionsInput{
		AccountID: accountID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeDomainError(w, r, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.TransactionResponse]{
		Items:  dto.TransactionsFromDomain(txs),
		Limit:  limit,
		Offset: offset,
	})
}
