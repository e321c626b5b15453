package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bankcore"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	TransactionsProcessed *prometheus.CounterVec
	TransactionDuration   prometheus.Histogram
	TransactionAmount     *prometheus.HistogramVec
	LedgerErrors          *prometheus.CounterVec

	// Account metrics
	AccountsCreated   prometheus.Counter
	AccountOperations *prometheus.CounterVec

	// Loan metrics
	LoansOriginated   prometheus.Counter
	LoanRepayments    prometheus.Counter
	LoanStatusChanges *prometheus.CounterVec
	LoanErrors        *prometheus.CounterVec

	// Session metrics
	SessionsCreated prometheus.Counter
	SessionsEvicted prometheus.Counter
	SessionsSwept   prometheus.Counter
	ActiveSessions  prometheus.Gauge
	AuthAttempts    *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Database metrics
	DBRetries prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all metrics and registers them with reg. A nil reg registers
// with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		TransactionsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_processed_total",
				Help:      "Total number of ledger transactions by kind and status",
			},
			[]string{"kind", "status"},
		),
		TransactionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Duration of ledger transaction processing",
			Buckets:   prometheus.DefBuckets,
		}),
		TransactionAmount: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_amount",
				Help:      "Amounts of successful ledger transactions",
				Buckets:   []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"kind"},
		),
		LedgerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_errors_total",
				Help:      "Total number of rejected ledger transactions by error type",
			},
			[]string{"error_type"},
		),

		// Account metrics
		AccountsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_created_total",
			Help:      "Total number of accounts created",
		}),
		AccountOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_operations_total",
				Help:      "Total account lifecycle operations by type",
			},
			[]string{"operation"},
		),

		// Loan metrics
		LoansOriginated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_originated_total",
			Help:      "Total number of loans originated",
		}),
		LoanRepayments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_repayments_total",
			Help:      "Total number of loan repayments applied",
		}),
		LoanStatusChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loan_status_changes_total",
				Help:      "Total loan status transitions by target status",
			},
			[]string{"status"},
		),
		LoanErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loan_errors_total",
				Help:      "Total rejected loan operations by error type",
			},
			[]string{"error_type"},
		),

		// Session metrics
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		SessionsEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Sessions replaced by a newer login of the same identity",
		}),
		SessionsSwept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Expired or inactive sessions removed by the sweeper",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Current number of sessions in the registry",
		}),
		AuthAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Total login attempts by outcome",
			},
			[]string{"status"},
		),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_duration_seconds",
				Help:      "HTTP request duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served",
		}),

		// Database metrics
		DBRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_retries_total",
			Help:      "Units of work retried after a serialization failure or deadlock",
		}),

		// Rate limiting metrics
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total rate limit hits",
			},
			[]string{"route"},
		),
	}
}
