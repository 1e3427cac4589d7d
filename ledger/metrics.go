package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are process-wide; every ledger instance in the process reports into them.
var (
	transactionsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medchain",
			Subsystem: "ledger",
			Name:      "transactions_submitted_total",
			Help:      "Total number of transactions accepted into the pending pool.",
		},
		[]string{"kind"},
	)

	submissionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medchain",
			Subsystem: "ledger",
			Name:      "submissions_rejected_total",
			Help:      "Total number of submissions rejected before a transaction was created.",
		},
		[]string{"reason"},
	)

	blocksSealedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "medchain",
			Subsystem: "ledger",
			Name:      "blocks_sealed_total",
			Help:      "Total number of blocks mined and appended to a chain.",
		},
	)

	miningExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "medchain",
			Subsystem: "ledger",
			Name:      "mining_exhausted_total",
			Help:      "Total number of seals aborted by the mining iteration guard.",
		},
	)

	miningIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "medchain",
			Subsystem: "miner",
			Name:      "iterations",
			Help:      "Number of nonces tried per successful seal.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		},
	)

	miningDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "medchain",
			Subsystem: "miner",
			Name:      "duration_seconds",
			Help:      "Histogram of proof-of-work search durations.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	pendingTransactions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "medchain",
			Subsystem: "ledger",
			Name:      "pending_transactions",
			Help:      "Transactions waiting in the pending pool of the most recently active ledger.",
		},
	)

	chainLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "medchain",
			Subsystem: "ledger",
			Name:      "chain_length",
			Help:      "Number of blocks in the chain of the most recently active ledger.",
		},
	)
)
