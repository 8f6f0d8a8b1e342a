package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric the master and bidder
// processes expose.
type Metrics struct {
	// --- Master mutations ---
	AccountsCreated     *prometheus.CounterVec
	SetBudgetTotal      *prometheus.CounterVec
	SetAvailableTotal   *prometheus.CounterVec
	RecuperateTotal     *prometheus.CounterVec
	InvariantViolations *prometheus.CounterVec
	AccountCount        prometheus.Gauge

	// --- Sync protocol ---
	SyncToTotal      *prometheus.CounterVec
	SyncToRejected   *prometheus.CounterVec
	SyncToDuration   prometheus.Histogram
	SyncFromTotal    *prometheus.CounterVec
	SyncFromDuration prometheus.Histogram

	// --- Bid lifecycle (shadow side) ---
	BidsAuthorized *prometheus.CounterVec
	BidsRejected   *prometheus.CounterVec
	BidsCancelled  *prometheus.CounterVec
	BidsCommitted  *prometheus.CounterVec
	BidsDetached   *prometheus.CounterVec

	// --- RPC ---
	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	// --- Persistence ---
	SnapshotsSaved   prometheus.Counter
	SnapshotDuration prometheus.Histogram
}

// NewMetrics creates and registers every metric.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5,
	}

	return &Metrics{
		AccountsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_accounts_created_total",
			Help: "Accounts created, by type",
		}, []string{"type"}),

		SetBudgetTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_set_budget_total",
			Help: "setBudget calls, by result",
		}, []string{"result"}),

		SetAvailableTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_set_available_total",
			Help: "setAvailable calls, by result and recycle mode",
		}, []string{"result", "mode"}),

		RecuperateTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_recuperate_total",
			Help: "recuperate calls",
		}, []string{"result"}),

		InvariantViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_invariant_violations_total",
			Help: "Closed balance equation violations detected",
		}, []string{"field"}),

		AccountCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "banker_account_count",
			Help: "Accounts currently in the master tree",
		}),

		SyncToTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_sync_to_total",
			Help: "syncTo calls handled by the master, by result",
		}, []string{"result"}),

		SyncToRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_sync_to_rejected_total",
			Help: "syncTo calls rejected as stale, by shadow",
		}, []string{"shadow_id"}),

		SyncToDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "banker_sync_to_duration_seconds",
			Help:    "syncTo round-trip latency as observed by a shadow",
			Buckets: latencyBuckets,
		}),

		SyncFromTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_sync_from_total",
			Help: "syncFrom calls, by result",
		}, []string{"result"}),

		SyncFromDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "banker_sync_from_duration_seconds",
			Help:    "syncFrom round-trip latency as observed by a shadow",
			Buckets: latencyBuckets,
		}),

		BidsAuthorized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_bids_authorized_total",
			Help: "Bids authorized against a shadow account",
		}, []string{"account"}),

		BidsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_bids_rejected_total",
			Help: "Bid authorizations rejected (insufficient funds or duplicate bid ID)",
		}, []string{"account"}),

		BidsCancelled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_bids_cancelled_total",
			Help: "Bids cancelled without spend",
		}, []string{"account"}),

		BidsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_bids_committed_total",
			Help: "Bids committed, direct or detached",
		}, []string{"account", "path"}),

		BidsDetached: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_bids_detached_total",
			Help: "Bids detached for later commit elsewhere",
		}, []string{"account"}),

		RPCRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "banker_rpc_requests_total",
			Help: "RPC requests handled by the master, by method and result",
		}, []string{"method", "result"}),

		RPCDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "banker_rpc_duration_seconds",
			Help:    "RPC handler latency, by method",
			Buckets: latencyBuckets,
		}, []string{"method"}),

		SnapshotsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banker_snapshots_saved_total",
			Help: "Whole-tree snapshots written to the persistence store",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "banker_snapshot_duration_seconds",
			Help:    "Time taken to write a whole-tree snapshot",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}
