package handler

import (
	"context"
	"net/http"

	"github.com/iho/bankcore/internal/adapter/http/dto"
	"github.com/iho/bankcore/internal/usecase"
)

// Reconciler produces a ledger reconciliation report.
type Reconciler interface {
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	reconciler Reconciler
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconciler Reconciler) *LedgerHandler {
	return &LedgerHandler{reconciler: reconciler}
}

// Reconcile checks every account balance against its transactions. An
// inconsistent ledger answers 409 with the full report.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeDomainError(w, r, "failed to reconcile ledger", err)
		return
	}

	status := http.StatusOK
	if !report.Consistent() {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.ReconciliationFromUseCase(report))
}
