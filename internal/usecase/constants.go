package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a unit of work
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultSessionTimeout is the sliding inactivity window of a session
	DefaultSessionTimeout = time.Minute

	// DefaultSweepInterval is how often expired sessions are swept
	DefaultSweepInterval = 5 * time.Minute
)
