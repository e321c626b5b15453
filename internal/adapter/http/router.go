package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/bankcore/internal/adapter/http/handler"
	"github.com/iho/bankcore/internal/adapter/http/middleware"
	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/metrics"
	"github.com/iho/bankcore/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler     *handler.AccountHandler
	TransactionHandler *handler.TransactionHandler
	LoanHandler        *handler.LoanHandler
	SessionHandler     *handler.SessionHandler
	UserHandler        *handler.UserHandler
	LedgerHandler      *handler.LedgerHandler
	HealthHandler      *handler.HealthHandler

	// AuthEnabled requires a bearer session on /api/v1 and enforces roles.
	AuthEnabled bool
	Sessions    middleware.SessionValidator

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	// LoginLimiter throttles POST /api/v1/sessions per client.
	LoginLimiter *middleware.RateLimiter

	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	role := func(min domain.Role) func(http.Handler) http.Handler {
		if !cfg.AuthEnabled {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RequireRole(min)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Login is the only unauthenticated API call
		login := http.Handler(http.HandlerFunc(cfg.SessionHandler.Login))
		if cfg.LoginLimiter != nil {
			login = cfg.LoginLimiter.Limit(login)
		}
		r.Method(http.MethodPost, "/sessions", login)

		r.Group(func(r chi.Router) {
			if cfg.AuthEnabled {
				r.Use(middleware.AuthMiddleware(cfg.Sessions))
			}

			// Idempotency middleware for mutating requests
			if cfg.IdempotencyStore != nil {
				idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
				r.Use(idempotencyMiddleware.Wrap)
			}

			// Sessions
			r.Get("/sessions/current", cfg.SessionHandler.Current)
			r.Delete("/sessions/current", cfg.SessionHandler.Logout)

			// Accounts
			r.Route("/accounts", func(r chi.Router) {
				r.With(role(domain.RoleAdmin)).Post("/", cfg.AccountHandler.Create)
				r.Get("/", cfg.AccountHandler.List)
				r.Get("/{id}", cfg.AccountHandler.Get)
				r.With(role(domain.RoleAdmin)).Patch("/{id}/status", cfg.AccountHandler.SetStatus)
				r.Get("/{id}/transactions", cfg.TransactionHandler.ListByAccount)
			})

			// Transactions
			r.Route("/transactions", func(r chi.Router) {
				r.With(role(domain.RoleOperator)).Post("/", cfg.TransactionHandler.Process)
				r.Get("/", cfg.TransactionHandler.List)
				r.Get("/{id}", cfg.TransactionHandler.Get)
			})

			// Loans
			r.Route("/loans", func(r chi.Router) {
				r.With(role(domain.RoleOperator)).Post("/", cfg.LoanHandler.Originate)
				r.Get("/", cfg.LoanHandler.List)
				r.Get("/{id}", cfg.LoanHandler.Get)
				r.With(role(domain.RoleOperator)).Post("/{id}/repayments", cfg.LoanHandler.Repay)
				r.Get("/{id}/repayments", cfg.LoanHandler.ListRepayments)
				r.With(role(domain.RoleAdmin)).Post("/{id}/reject", cfg.LoanHandler.Reject)
			})

			// Users
			r.With(role(domain.RoleAdmin)).Post("/users", cfg.UserHandler.Create)

			// Ledger
			r.With(role(domain.RoleAdmin)).Get("/ledger/reconciliation", cfg.LedgerHandler.Reconcile)
		})
	})

	return r
}
