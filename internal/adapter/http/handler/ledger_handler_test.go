package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankcore/internal/adapter/http/dto"
	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/usecase"
)

type userServiceStub struct {
	fn func(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error)
}

func (s *userServiceStub) CreateUser(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error) {
	return s.fn(ctx, input)
}

type reconcilerStub struct {
	report *usecase.ReconciliationReport
	err    error
}

func (s *reconcilerStub) GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error) {
	return s.report, s.err
}

type pingerStub struct{ err error }

func (p pingerStub) Ping(ctx context.Context) error { return p.err }

func TestUserHandler_Create(t *testing.T) {
	handler := NewUserHandler(&userServiceStub{
		fn: func(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error) {
			if input.Role != domain.RoleViewer {
				t.Fatalf("unexpected role %q", input.Role)
			}
			return &domain.User{ID: "u1", Email: input.Email, Role: input.Role, Active: true, HashedPassword: "secret"}, nil
		},
	})

	body := `{"email":"v@example.com","name":"V","password":"StrongPass1","role":"viewer"}`
	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("secret")) {
		t.Fatal("password hash must not be serialized")
	}
}

func TestUserHandler_Create_Duplicate(t *testing.T) {
	handler := NewUserHandler(&userServiceStub{
		fn: func(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	})

	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{}`)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLedgerHandler_Reconcile(t *testing.T) {
	tests := []struct {
		name     string
		report   *usecase.ReconciliationReport
		err      error
		expected int
	}{
		{"consistent", &usecase.ReconciliationReport{TotalAccounts: 1, ReconciledAccounts: 1}, nil, http.StatusOK},
		{"discrepancy", &usecase.ReconciliationReport{
			TotalAccounts: 1,
			Discrepancies: []*usecase.ReconciliationResult{{AccountID: "a", Difference: decimal.RequireFromString("1")}},
		}, nil, http.StatusConflict},
		{"failure", nil, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewLedgerHandler(&reconcilerStub{report: tt.report, err: tt.err})

			rec := httptest.NewRecorder()
			handler.Reconcile(rec, httptest.NewRequest(http.MethodGet, "/ledger/reconciliation", nil))

			if rec.Code != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, rec.Code)
			}
			if tt.err != nil {
				return
			}

			var resp dto.ReconciliationResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Consistent != (tt.expected == http.StatusOK) {
				t.Fatalf("unexpected consistency flag: %+v", resp)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil, nil).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(pingerStub{}, nil).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := resp["redis"]; ok {
		t.Fatal("redis should not be reported when not configured")
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(pingerStub{}, pingerStub{err: errors.New("refused")}).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
