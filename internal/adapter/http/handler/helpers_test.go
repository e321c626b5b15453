package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/adapter/http/dto"
	"github.com/iho/bankcore/internal/domain"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/accounts?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/accounts?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"loan not found", domain.ErrLoanNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", domain.ErrTransactionNotFound), http.StatusNotFound},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid kind", domain.ErrInvalidKind, http.StatusBadRequest},
		{"missing field", domain.MissingFieldError("principal"), http.StatusBadRequest},
		{"invalid range", domain.ErrInvalidRange, http.StatusBadRequest},
		{"invalid category", domain.ErrInvalidCategory, http.StatusBadRequest},
		{"inactive account", domain.ErrAccountInactive, http.StatusConflict},
		{"completed loan", domain.ErrLoanCompleted, http.StatusConflict},
		{"duplicate user", domain.ErrUserExists, http.StatusConflict},
		{"insufficient funds", &domain.InsufficientFundsError{}, http.StatusUnprocessableEntity},
		{"exceeds balance", &domain.ExceedsBalanceError{}, http.StatusUnprocessableEntity},
		{"bad credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", domain.ErrInsufficientRole, http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "bad request", "details")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %s", ct)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Error != "bad request" || resp.Message != "details" {
		t.Fatalf("unexpected error response: %+v", resp)
	}
}

func TestWriteDomainError_InsufficientFunds(t *testing.T) {
	failed := &domain.Transaction{
		ID:           "tx-1",
		AccountID:    "acc-1",
		Kind:         domain.TransactionKindWithdraw,
		Amount:       decimal.RequireFromString("50"),
		Status:       domain.TransactionStatusFailed,
		BalanceAfter: decimal.RequireFromString("10"),
	}
	err := &domain.InsufficientFundsError{
		Balance:     decimal.RequireFromString("10"),
		Requested:   decimal.RequireFromString("50"),
		Transaction: failed,
	}

	rec := httptest.NewRecorder()
	writeDomainError(rec, httptest.NewRequest(http.MethodPost, "/", nil), "transaction refused", err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var resp dto.InsufficientFundsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Balance != "10" || resp.Requested != "50" {
		t.Fatalf("unexpected figures: %+v", resp)
	}
	if resp.Transaction == nil || resp.Transaction.Status != "FAILED" {
		t.Fatalf("expected FAILED transaction in body, got %+v", resp.Transaction)
	}
}

func TestWriteDomainError_ExceedsBalance(t *testing.T) {
	err := &domain.ExceedsBalanceError{
		Requested: decimal.RequireFromString("900"),
		Remaining: decimal.RequireFromString("800"),
	}

	rec := httptest.NewRecorder()
	writeDomainError(rec, httptest.NewRequest(http.MethodPost, "/", nil), "repayment refused", err)

	var resp dto.ExceedsBalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity || resp.Requested != "900" || resp.Remaining != "800" {
		t.Fatalf("unexpected response %d: %+v", rec.Code, resp)
	}
}

func TestWriteDomainError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, httptest.NewRequest(http.MethodGet, "/", nil), "failed", errors.New("password=hunter2"))

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if rec.Code != http.StatusInternalServerError || resp.Message != "internal error" {
		t.Fatalf("unexpected response %d: %+v", rec.Code, resp)
	}
}
