package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/adapter/http/dto"
	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/usecase"
)

type ledgerServiceStub struct {
	processFn func(ctx context.Context, input usecase.ProcessTransactionInput) (*domain.Transaction, error)
	getFn     func(ctx context.Context, id string) (*domain.Transaction, error)
	listFn    func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
}

func (s *ledgerServiceStub) ProcessTransaction(ctx context.Context, input usecase.ProcessTransactionInput) (*domain.Transaction, error) {
	return s.processFn(ctx, input)
}

func (s *ledgerServiceStub) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.getFn(ctx, id)
}

func (s *ledgerServiceStub) ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
	return s.listFn(ctx, input)
}

func TestTransactionHandler_Process_Success(t *testing.T) {
	var captured usecase.ProcessTransactionInput
	handler := NewTransactionHandler(&ledgerServiceStub{
		processFn: func(ctx context.Context, input usecase.ProcessTransactionInput) (*domain.Transaction, error) {
			captured = input
			return &domain.Transaction{
				ID:           "tx-1",
				AccountID:    input.AccountID,
				Kind:         input.Kind,
				Amount:       input.Amount,
				Status:       domain.TransactionStatusSuccessful,
				BalanceAfter: decimal.RequireFromString("150"),
			}, nil
		},
	})

	body := `{"account_id":"acc-1","kind":"DEPOSIT","amount":"50.00"}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.Process(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Kind != domain.TransactionKindDeposit || !captured.Amount.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("unexpected input: %+v", captured)
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "SUCCESSFUL" || resp.BalanceAfter != "150" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestTransactionHandler_Process_InsufficientFunds(t *testing.T) {
	handler := NewTransactionHandler(&ledgerServiceStub{
		processFn: func(ctx context.Context, input usecase.ProcessTransactionInput) (*domain.Transaction, error) {
			return nil, &domain.InsufficientFundsError{
				Balance:   decimal.RequireFromString("10"),
				Requested: input.Amount,
				Transaction: &domain.Transaction{
					ID:     "tx-failed",
					Kind:   input.Kind,
					Amount: input.Amount,
					Status: domain.TransactionStatusFailed,
				},
			}
		},
	})

	body := `{"account_id":"acc-1","kind":"TRANSFER","amount":"25","counterparty":"acc-2"}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.Process(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var resp dto.InsufficientFundsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Transaction == nil || resp.Transaction.ID != "tx-failed" || resp.Requested != "25" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestTransactionHandler_Process_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"unknown account", domain.ErrAccountNotFound, http.StatusNotFound},
		{"inactive account", domain.ErrAccountInactive, http.StatusConflict},
		{"bad amount", domain.ErrInvalidAmount, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(&ledgerServiceStub{
				processFn: func(ctx context.Context, input usecase.ProcessTransactionInput) (*domain.Transaction, error) {
					return nil, tt.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString(`{"account_id":"x","kind":"DEPOSIT","amount":"1"}`))
			rec := httptest.NewRecorder()

			handler.Process(rec, req)

			if rec.Code != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestTransactionHandler_ListByAccount(t *testing.T) {
	handler := NewTransactionHandler(&ledgerServiceStub{
		listFn: func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
			if input.AccountID != "acc-1" || input.Limit != defaultPageSize {
				t.Fatalf("unexpected input: %+v", input)
			}
			return []*domain.Transaction{{ID: "tx-2"}, {ID: "tx-1"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/accounts/acc-1/transactions", nil)
	req = setChiURLParam(req, "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.ListByAccount(rec, req)

	var resp dto.ListResponse[*dto.TransactionResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rec.Code != http.StatusOK || len(resp.Items) != 2 || resp.Items[0].ID != "tx-2" {
		t.Fatalf("unexpected response %d: %+v", rec.Code, resp)
	}
}

func TestTransactionHandler_ListFilter(t *testing.T) {
	handler := NewTransactionHandler(&ledgerServiceStub{
		listFn: func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
			if input.AccountID != "acc-9" {
				t.Fatalf("expected account filter, got %+v", input)
			}
			return nil, domain.ErrAccountNotFound
		},
	})

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/transactions?account_id=acc-9", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTransactionHandler_Get(t *testing.T) {
	handler := NewTransactionHandler(&ledgerServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Transaction, error) {
			if id == "tx-1" {
				return &domain.Transaction{ID: id}, nil
			}
			return nil, domain.ErrTransactionNotFound
		},
	})

	rec := httptest.NewRecorder()
	handler.Get(rec, setChiURLParam(httptest.NewRequest(http.MethodGet, "/transactions/tx-1", nil), "id", "tx-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Get(rec, setChiURLParam(httptest.NewRequest(http.MethodGet, "/transactions/nope", nil), "id", "nope"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
