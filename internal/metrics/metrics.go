package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NegotiationsTotal tracks finished negotiations per provider and outcome
	NegotiationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletlink_negotiations_total",
			Help: "Total number of finished wallet negotiations",
		},
		[]string{"provider", "outcome"},
	)

	// NegotiationDuration tracks how long a negotiation took end to end
	NegotiationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletlink_negotiation_duration_seconds",
			Help:    "Wallet negotiation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// ErrorsTotal tracks classified connection errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletlink_errors_total",
			Help: "Total number of classified connection errors",
		},
		[]string{"category", "source"},
	)

	// ErrorsSuppressed tracks errors dropped by the duplicate gate
	ErrorsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletlink_errors_suppressed_total",
			Help: "Total number of duplicate error notifications suppressed",
		},
	)

	// RewardAddressRetries tracks "account changed" retries
	RewardAddressRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletlink_reward_address_retries_total",
			Help: "Total number of reward address query retries",
		},
		[]string{"provider"},
	)

	// ReEnables tracks re-enable fallbacks after the retry budget ran out
	ReEnables = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletlink_reenables_total",
			Help: "Total number of provider re-enables after exhausted retries",
		},
		[]string{"provider"},
	)

	// SessionConnected is 1 while a wallet session is connected
	SessionConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletlink_session_connected",
			Help: "Whether a wallet session is currently connected",
		},
	)

	// DBConnectionPoolUsage tracks audit database pool usage in percent
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletlink_db_pool_usage",
			Help: "Audit database connection pool usage percentage",
		},
	)
)
