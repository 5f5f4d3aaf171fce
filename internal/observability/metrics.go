package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for OutcomeLedger.
type Metrics struct {
	// --- Canonicalization ---
	CanonEventsEmitted *prometheus.CounterVec
	CanonEventsDropped *prometheus.CounterVec
	CanonDuplicates    prometheus.Counter
	DedupLRUSize       prometheus.Gauge

	// --- Replay ---
	ReplayWallets       prometheus.Counter
	ReplayEventsApplied prometheus.Counter
	ReplayEventErrors   *prometheus.CounterVec
	ReplayWalletDur     prometheus.Histogram
	ReplayRunDur        prometheus.Histogram

	// --- Ledger outcomes ---
	PhantomSellVolume    prometheus.Counter
	SettlementSells      prometheus.Counter
	WalletsFlagged       *prometheus.CounterVec
	WalletsReconstructed prometheus.Counter

	// --- Persistence ---
	PersistRowsWritten *prometheus.CounterVec
	PersistErrors      *prometheus.CounterVec
	PersistBatchDur    prometheus.Histogram

	// --- Ingestion ---
	IngestMessages   *prometheus.CounterVec
	IngestParseFails *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	durBuckets := []float64{
		0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005,
		0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
	}

	return &Metrics{
		CanonEventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outcome_canon_events_emitted_total",
			Help: "Canonical events emitted by kind",
		}, []string{"kind"}),

		CanonEventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outcome_canon_events_dropped_total",
			Help: "Raw events dropped during canonicalization",
		}, []string{"kind", "reason"}),

		CanonDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outcome_canon_duplicates_total",
			Help: "Raw events skipped as already-seen source refs",
		}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "outcome_canon_dedup_lru_size",
			Help: "Current number of source refs in the dedup LRU",
		}),

		ReplayWallets: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outcome_replay_wallets_total",
			Help: "Wallet ledgers replayed",
		}),

		ReplayEventsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outcome_replay_events_applied_total",
			Help: "Canonical events applied by the position ledger",
		}),

		ReplayEventErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outcome_replay_event_errors_total",
			Help: "Event-scoped errors during replay (non-fatal)",
		}, []string{"reason"}),

		ReplayWalletDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outcome_replay_wallet_duration_seconds",
			Help:    "Time to replay one wallet ledger",
			Buckets: durBuckets,
		}),

		ReplayRunDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outcome_replay_run_duration_seconds",
			Help:    "Time to replay a full batch across all wallets",
			Buckets: durBuckets,
		}),

		PhantomSellVolume: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outcome_phantom_sell_volume_total",
			Help: "Sell volume beyond tracked inventory (token units, 1e6 scale)",
		}),

		SettlementSells: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outcome_settlement_sells_total",
			Help: "Synthetic sells applied by resolution settlement",
		}),

		WalletsFlagged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outcome_wallets_flagged_total",
			Help: "Wallets flagged during a run",
		}, []string{"flag"}),

		WalletsReconstructed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outcome_wallets_reconstructable_total",
			Help: "Wallets whose ledger reconstruction passed the verdict",
		}),

		PersistRowsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outcome_persist_rows_written_total",
			Help: "Result rows written to Postgres",
		}, []string{"table"}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outcome_persist_errors_total",
			Help: "Persistence failures",
		}, []string{"op"}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outcome_persist_batch_duration_seconds",
			Help:    "Time to write one result batch",
			Buckets: durBuckets,
		}),

		IngestMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outcome_ingest_messages_total",
			Help: "Raw messages received from NATS by subject class",
		}, []string{"class"}),

		IngestParseFails: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outcome_ingest_parse_failures_total",
			Help: "Raw messages that failed JSON parsing",
		}, []string{"class"}),
	}
}
