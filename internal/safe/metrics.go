package safe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	walletEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_wallet_events_total",
		Help: "Wallet lifecycle events by kind",
	}, []string{"event"})

	transactionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_transaction_events_total",
		Help: "Transaction events by kind",
	}, []string{"event"})

	quorumReached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safe_quorum_reached_total",
		Help: "Transactions that reached their confirmation threshold",
	})

	broadcastDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "safe_broadcast_duration_seconds",
		Help:    "Time spent submitting assembled transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	storageInvariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safe_storage_invariant_violations_total",
		Help: "Broadcasts accepted by the chain that could not be recorded",
	})

	rosterCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_roster_cache_lookups_total",
		Help: "Owner roster cache lookups by result",
	}, []string{"result"})
)
