package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/bankcore/internal/adapter/http"
	"github.com/iho/bankcore/internal/adapter/http/handler"
	"github.com/iho/bankcore/internal/adapter/http/middleware"
	"github.com/iho/bankcore/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankcore/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankcore/internal/adapter/repository/redis"
	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/config"
	"github.com/iho/bankcore/internal/infrastructure/logger"
	"github.com/iho/bankcore/internal/infrastructure/metrics"
	"github.com/iho/bankcore/internal/infrastructure/postgres"
	"github.com/iho/bankcore/internal/infrastructure/redis"
	"github.com/iho/bankcore/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lg := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "bankcore"})
	log.Logger = lg

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, lg zerolog.Logger) error {
	a, err := newApp(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer a.close()

	bg, cancel := context.WithCancel(ctx)
	defer cancel()
	a.start(bg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	lg.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	lg.Info().Msg("server stopped")
	return nil
}

// storage is the set of repositories behind one store driver.
type storage struct {
	txManager    usecase.TxManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	loans        usecase.LoanRepository
	users        usecase.UserRepository
	retrier      usecase.Retrier
	pinger       handler.Pinger
	close        func()
}

func openStorage(ctx context.Context, cfg *config.Config, lg zerolog.Logger, m *metrics.Metrics) (*storage, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		store := memory.New()
		lg.Warn().Msg("using in-memory store, data is lost on restart")
		return &storage{
			txManager:    store,
			accounts:     memory.NewAccountRepository(store),
			transactions: memory.NewTransactionRepository(store),
			loans:        memory.NewLoanRepository(store),
			users:        memory.NewUserRepository(store),
			pinger:       store,
			close:        func() {},
		}, nil
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, lg); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	pool, err := postgres.NewPoolWithConfig(connectCtx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	lg.Info().Msg("connected to postgres")

	return &storage{
		txManager:    postgresRepo.NewTxManager(pool),
		accounts:     postgresRepo.NewAccountRepository(pool),
		transactions: postgresRepo.NewTransactionRepository(pool),
		loans:        postgresRepo.NewLoanRepository(pool),
		users:        postgresRepo.NewUserRepository(pool),
		retrier:      postgresRepo.NewRetrier(lg, m),
		pinger:       pool,
		close:        pool.Close,
	}, nil
}

// app is the fully wired service.
type app struct {
	handler  http.Handler
	sessions *usecase.SessionRegistry
	limiter  *middleware.RateLimiter
	logger   zerolog.Logger
	closers  []func()
}

func newApp(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := openStorage(ctx, cfg, lg, m)
	if err != nil {
		return nil, err
	}
	a := &app{logger: lg, closers: []func(){store.close}}

	var (
		idempotencyStore usecase.IdempotencyStore
		redisPinger      handler.Pinger
	)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		lg.Info().Msg("connected to redis")
		a.closers = append(a.closers, func() { _ = client.Close() })
		idempotencyStore, redisPinger = newRedisDeps(client)
	} else {
		lg.Warn().Msg("REDIS_URL not set, idempotent replay disabled")
	}

	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(store.accounts, idGen, m)
	ledgerUC := usecase.NewLedgerUseCase(store.txManager, store.accounts, store.transactions, idGen, store.retrier, m)
	loanUC := usecase.NewLoanUseCase(store.txManager, store.loans, store.accounts, idGen, store.retrier, m)
	userUC := usecase.NewUserUseCase(store.users, idGen)
	reconciliationUC := usecase.NewReconciliationUseCase(store.accounts, store.transactions)

	a.sessions = usecase.NewSessionRegistry(usecase.SessionRegistryConfig{
		Timeout:       cfg.SessionTimeout,
		SweepInterval: cfg.SessionSweepInterval,
		Logger:        lg,
		Metrics:       m,
	})

	if err := bootstrapAdmin(ctx, cfg, userUC, lg); err != nil {
		a.close()
		return nil, err
	}

	a.limiter = middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst, m)

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC),
		TransactionHandler: handler.NewTransactionHandler(ledgerUC),
		LoanHandler:        handler.NewLoanHandler(loanUC),
		SessionHandler:     handler.NewSessionHandler(userUC, a.sessions, m),
		UserHandler:        handler.NewUserHandler(userUC),
		LedgerHandler:      handler.NewLedgerHandler(reconciliationUC),
		HealthHandler:      handler.NewHealthHandler(store.pinger, redisPinger),
		AuthEnabled:        cfg.AuthEnabled,
		Sessions:           a.sessions,
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		LoginLimiter:       a.limiter,
		Logger:             lg,
		Metrics:            m,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	if !cfg.AuthEnabled {
		lg.Warn().Msg("AUTH_ENABLED=false, API is open to anyone who can reach it")
	}

	return a, nil
}

func newRedisDeps(client goredis.UniversalClient) (usecase.IdempotencyStore, handler.Pinger) {
	return redisRepo.NewIdempotencyStore(client), redis.NewPinger(client)
}

// start launches the session sweeper and limiter cleanup. Both stop when ctx
// is cancelled.
func (a *app) start(ctx context.Context) {
	go func() {
		if err := a.sessions.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error().Err(err).Msg("session sweeper stopped")
		}
	}()
	go a.limiter.RunCleanup(ctx, limiterIdleTimeout)
}

func (a *app) close() {
	if a.sessions != nil {
		a.sessions.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func bootstrapAdmin(ctx context.Context, cfg *config.Config, users *usecase.UserUseCase, lg zerolog.Logger) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}

	user, created, err := users.EnsureUser(ctx, usecase.CreateUserInput{
		Email:    cfg.BootstrapAdminEmail,
		Name:     "Administrator",
		Password: cfg.BootstrapAdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	if created {
		lg.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("bootstrap admin created")
	}
	return nil
}
