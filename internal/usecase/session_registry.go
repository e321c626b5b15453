package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/metrics"
)

// SessionRegistryConfig configures a SessionRegistry.
type SessionRegistryConfig struct {
	Timeout       time.Duration // Sliding inactivity window
	SweepInterval time.Duration // How often Run removes expired sessions
	Clock         clockwork.Clock
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
	NewToken      func() string
}

// SessionRegistry tracks live sessions in memory. Each identity holds at most
// one session; logging in again evicts the previous one.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session // token -> session
	byUser   map[string]string          // user id -> token

	timeout  time.Duration
	interval time.Duration
	clock    clockwork.Clock
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	newToken func() string

	running  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSessionRegistry creates a new SessionRegistry.
func NewSessionRegistry(cfg SessionRegistryConfig) *SessionRegistry {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSessionTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.NewToken == nil {
		cfg.NewToken = uuid.NewString
	}

	return &SessionRegistry{
		sessions: make(map[string]*domain.Session),
		byUser:   make(map[string]string),
		timeout:  cfg.Timeout,
		interval: cfg.SweepInterval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		newToken: cfg.NewToken,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Timeout returns the sliding inactivity window.
func (r *SessionRegistry) Timeout() time.Duration {
	return r.timeout
}

// CreateSession opens a session for identity, evicting any session the same
// user already holds.
func (r *SessionRegistry) CreateSession(identity domain.Identity, clientOrigin string) (*domain.Session, error) {
	if identity.UserID == "" {
		return nil, domain.MissingFieldError("user_id")
	}

	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if token, ok := r.byUser[identity.UserID]; ok {
		r.removeLocked(token)
		if r.metrics != nil {
			r.metrics.SessionsEvicted.Inc()
		}
		r.logger.Debug().Str("user_id", identity.UserID).Msg("previous session evicted")
	}

	s := &domain.Session{
		Token:          r.newToken(),
		Identity:       identity,
		ClientOrigin:   clientOrigin,
		LoginAt:        now,
		LastActivityAt: now,
		Active:         true,
	}
	r.sessions[s.Token] = s
	r.byUser[identity.UserID] = s.Token

	if r.metrics != nil {
		r.metrics.SessionsCreated.Inc()
	}
	r.updateGaugeLocked()

	r.logger.Info().
		Str("user_id", identity.UserID).
		Str("origin", clientOrigin).
		Msg("session created")

	cp := *s
	return &cp, nil
}

// Validate returns a copy of the session behind token and slides its expiry.
// It reports false for unknown, inactive and expired tokens alike. Expired
// sessions are left for the sweeper.
func (r *SessionRegistry) Validate(token string) (*domain.Session, bool) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok || !s.Active || s.ExpiredAt(now, r.timeout) {
		return nil, false
	}

	s.LastActivityAt = now

	cp := *s
	return &cp, true
}

// Invalidate ends the session behind token. Unknown tokens are ignored.
func (r *SessionRegistry) Invalidate(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return
	}

	s.Active = false
	r.removeLocked(token)
	r.updateGaugeLocked()

	r.logger.Info().Str("user_id", s.Identity.UserID).Msg("session invalidated")
}

// Sweep removes every expired or inactive session and returns how many were
// removed.
func (r *SessionRegistry) Sweep() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, s := range r.sessions {
		if s.Active && !s.ExpiredAt(now, r.timeout) {
			continue
		}
		s.Active = false
		r.removeLocked(token)
		removed++
	}

	if removed > 0 {
		if r.metrics != nil {
			r.metrics.SessionsSwept.Add(float64(removed))
		}
		r.updateGaugeLocked()
		r.logger.Debug().Int("removed", removed).Msg("expired sessions swept")
	}

	return removed
}

// ActiveCount returns the number of sessions held, including expired ones not
// yet swept.
func (r *SessionRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps expired sessions every SweepInterval until ctx is cancelled or
// Stop is called.
func (r *SessionRegistry) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return nil
	}
	defer close(r.done)

	r.logger.Info().
		Dur("timeout", r.timeout).
		Dur("interval", r.interval).
		Msg("session sweeper started")

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("session sweeper shutting down")
			return ctx.Err()
		case <-r.stop:
			r.logger.Info().Msg("session sweeper stopped")
			return nil
		case <-ticker.Chan():
			r.Sweep()
		}
	}
}

// Stop ends Run and waits for it to return. Safe to call more than once, and
// before Run.
func (r *SessionRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.running.Load() {
		<-r.done
	}
}

func (r *SessionRegistry) removeLocked(token string) {
	s, ok := r.sessions[token]
	if !ok {
		return
	}
	delete(r.sessions, token)
	if r.byUser[s.Identity.UserID] == token {
		delete(r.byUser, s.Identity.UserID)
	}
}

func (r *SessionRegistry) updateGaugeLocked() {
	if r.metrics != nil {
		r.metrics.ActiveSessions.Set(float64(len(r.sessions)))
	}
}
