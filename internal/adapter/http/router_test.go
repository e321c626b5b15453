package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iho/bankcore/internal/adapter/http/dto"
	"github.com/iho/bankcore/internal/adapter/http/handler"
	apimiddleware "github.com/iho/bankcore/internal/adapter/http/middleware"
	"github.com/iho/bankcore/internal/adapter/repository/memory"
	"github.com/iho/bankcore/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/bankcore/internal/adapter/repository/redis"
	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/metrics"
	"github.com/iho/bankcore/internal/usecase"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "AdminPass1"
)

type testServer struct {
	handler  http.Handler
	sessions *usecase.SessionRegistry
	users    *usecase.UserUseCase
	clock    *clockwork.FakeClock
	redis    *miniredis.Miniredis
}

func newTestServer(t *testing.T, opts ...func(*RouterConfig)) *testServer {
	t.Helper()

	store := memory.New()
	accounts := memory.NewAccountRepository(store)
	transactions := memory.NewTransactionRepository(store)
	loans := memory.NewLoanRepository(store)
	users := memory.NewUserRepository(store)
	ids := postgres.NewULIDGenerator()
	m := metrics.New(prometheus.NewRegistry())
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	sessions := usecase.NewSessionRegistry(usecase.SessionRegistryConfig{
		Timeout:       time.Minute,
		SweepInterval: 5 * time.Minute,
		Clock:         clock,
		Logger:        zerolog.Nop(),
		Metrics:       m,
	})
	userUC := usecase.NewUserUseCase(users, ids).WithHashCost(bcrypt.MinCost)
	ledgerUC := usecase.NewLedgerUseCase(store, accounts, transactions, ids, nil, m)
	loanUC := usecase.NewLoanUseCase(store, loans, accounts, ids, nil, m).WithClock(clock)

	_, _, err := userUC.EnsureUser(context.Background(), usecase.CreateUserInput{
		Email: adminEmail, Name: "Admin", Password: adminPassword, Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := RouterConfig{
		AccountHandler:     handler.NewAccountHandler(usecase.NewAccountUseCase(accounts, ids, m)),
		TransactionHandler: handler.NewTransactionHandler(ledgerUC),
		LoanHandler:        handler.NewLoanHandler(loanUC),
		SessionHandler:     handler.NewSessionHandler(userUC, sessions, m),
		UserHandler:        handler.NewUserHandler(userUC),
		LedgerHandler:      handler.NewLedgerHandler(usecase.NewReconciliationUseCase(accounts, transactions)),
		HealthHandler:      handler.NewHealthHandler(store, nil),
		AuthEnabled:        true,
		Sessions:           sessions,
		IdempotencyStore:   redisrepo.NewIdempotencyStore(client),
		IdempotencyTTL:     time.Hour,
		Logger:             zerolog.Nop(),
		Metrics:            m,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testServer{handler: NewRouter(cfg), sessions: sessions, users: userUC, clock: clock, redis: mr}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/sessions", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp dto.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/ready", "", nil).Code)
}

func TestNewRouter_RequiresSession(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/accounts", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/accounts", "forged", nil).Code)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions", "", dto.LoginRequest{Email: adminEmail, Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewRouter_LedgerFlow(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, adminEmail, adminPassword)

	rec := srv.do(t, http.MethodPost, "/api/v1/accounts", token, dto.CreateAccountRequest{Name: "Main", Category: "CHECKING"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decode[dto.AccountResponse](t, rec)

	rec = srv.do(t, http.MethodPost, "/api/v1/transactions", token, map[string]string{
		"account_id": account.ID, "kind": "DEPOSIT", "amount": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "100", decode[dto.TransactionResponse](t, rec).BalanceAfter)

	rec = srv.do(t, http.MethodPost, "/api/v1/transactions", token, map[string]string{
		"account_id": account.ID, "kind": "WITHDRAW", "amount": "150",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	refused := decode[dto.InsufficientFundsResponse](t, rec)
	assert.Equal(t, "100", refused.Balance)
	require.NotNil(t, refused.Transaction)
	assert.Equal(t, "FAILED", refused.Transaction.Status)

	rec = srv.do(t, http.MethodGet, "/api/v1/accounts/"+account.ID+"/transactions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.ListResponse[*dto.TransactionResponse]](t, rec).Items, 2)

	rec = srv.do(t, http.MethodGet, "/api/v1/ledger/reconciliation", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[dto.ReconciliationResponse](t, rec).Consistent)
}

func TestNewRouter_LoanFlow(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, adminEmail, adminPassword)

	rec := srv.do(t, http.MethodPost, "/api/v1/loans", token, map[string]any{
		"principal":     "1000",
		"interest_rate": "10",
		"start_date":    "2024-01-01",
		"end_date":      "2024-12-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[dto.LoanResponse](t, rec)
	assert.Equal(t, "INITIATED", loan.Status)
	assert.Equal(t, 11, loan.TermMonths)

	rec = srv.do(t, http.MethodPost, "/api/v1/loans/"+loan.ID+"/repayments", token, map[string]string{"amount": "2000"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "1100", decode[dto.ExceedsBalanceResponse](t, rec).Remaining)

	rec = srv.do(t, http.MethodPost, "/api/v1/loans/"+loan.ID+"/repayments", token, map[string]string{"amount": "1100"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "COMPLETED", decode[dto.RepaymentResultResponse](t, rec).Loan.Status)

	rec = srv.do(t, http.MethodPost, "/api/v1/loans/"+loan.ID+"/repayments", token, map[string]string{"amount": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/loans/"+loan.ID+"/reject", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/loans/"+loan.ID+"/repayments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*dto.RepaymentResponse](t, rec), 1)
}

func TestNewRouter_EnforcesRoles(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.login(t, adminEmail, adminPassword)

	rec := srv.do(t, http.MethodPost, "/api/v1/users", admin, dto.CreateUserRequest{
		Email: "viewer@example.com", Name: "Viewer", Password: "ViewerPass1", Role: "viewer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	viewer := srv.login(t, "viewer@example.com", "ViewerPass1")

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/accounts", viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPost, "/api/v1/accounts", viewer, dto.CreateAccountRequest{Name: "x", Category: "SAVINGS"}).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPost, "/api/v1/transactions", viewer, map[string]string{}).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/api/v1/ledger/reconciliation", viewer, nil).Code)
}

func TestNewRouter_SessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, adminEmail, adminPassword)

	rec := srv.do(t, http.MethodGet, "/api/v1/sessions/current", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decode[dto.SessionResponse](t, rec).Role)

	// a second login replaces the first session
	second := srv.login(t, adminEmail, adminPassword)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/sessions/current", token, nil).Code)

	// inactivity expires the session
	srv.clock.Advance(2 * time.Minute)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/sessions/current", second, nil).Code)

	third := srv.login(t, adminEmail, adminPassword)
	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, "/api/v1/sessions/current", third, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/sessions/current", third, nil).Code)
}

func TestNewRouter_IdempotentReplay(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, adminEmail, adminPassword)

	rec := srv.do(t, http.MethodPost, "/api/v1/accounts", token, dto.CreateAccountRequest{Name: "Main", Category: "SAVINGS"})
	require.Equal(t, http.StatusCreated, rec.Code)
	account := decode[dto.AccountResponse](t, rec)

	deposit := map[string]string{"account_id": account.ID, "kind": "DEPOSIT", "amount": "40"}
	first := srv.do(t, http.MethodPost, "/api/v1/transactions", token, deposit, apimiddleware.IdempotencyKeyHeader, "dep-1")
	require.Equal(t, http.StatusCreated, first.Code)

	replay := srv.do(t, http.MethodPost, "/api/v1/transactions", token, deposit, apimiddleware.IdempotencyKeyHeader, "dep-1")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("X-Idempotency-Replay"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/v1/accounts/"+account.ID, token, nil)
	assert.Equal(t, "40", decode[dto.AccountResponse](t, rec).Balance, "deposit applied once")
}

func TestNewRouter_LoginRateLimited(t *testing.T) {
	srv := newTestServer(t, func(cfg *RouterConfig) {
		cfg.LoginLimiter = apimiddleware.NewRateLimiter(1, 1, cfg.Metrics)
	})

	body := dto.LoginRequest{Email: adminEmail, Password: "wrong"}
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodPost, "/api/v1/sessions", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, srv.do(t, http.MethodPost, "/api/v1/sessions", "", body).Code)
}

func TestNewRouter_AuthDisabled(t *testing.T) {
	srv := newTestServer(t, func(cfg *RouterConfig) {
		cfg.AuthEnabled = false
	})

	rec := srv.do(t, http.MethodPost, "/api/v1/accounts", "", dto.CreateAccountRequest{Name: "Open", Category: "BUSINESS"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := newTestServer(t).handler

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/sessions",
		"GET /api/v1/sessions/current",
		"DELETE /api/v1/sessions/current",
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/{id}",
		"PATCH /api/v1/accounts/{id}/status",
		"GET /api/v1/accounts/{id}/transactions",
		"POST /api/v1/transactions/",
		"POST /api/v1/loans/",
		"POST /api/v1/loans/{id}/repayments",
		"POST /api/v1/loans/{id}/reject",
		"POST /api/v1/users",
		"GET /api/v1/ledger/reconciliation",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}
