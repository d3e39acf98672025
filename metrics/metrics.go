// Package metrics exposes GroveDB's ambient operational counters through a
// Prometheus registry. It does not replace the per-operation cost ledger
// (package cost) — it mirrors cumulative totals from it so an embedder can
// scrape the process the same way it would any other Go service, without
// GroveDB owning an exporter or push pipeline (that dispatch is an external
// collaborator, see SPEC_FULL.md §4.12).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles GroveDB's counters and histograms. Transaction.Commit
// updates Commits, CommitBytes, SeekCount, HashNodeCalls and the three
// Storage* counters; CommitNodes, the proof and chunk counters and
// CommitLatency are registered but nothing in this module updates them.
// Metrics are created
// eagerly (not get-or-create on first use) since the label set is fixed and
// known up front, rather than discovered at runtime.
type Registry struct {
	prom *prometheus.Registry

	Commits         prometheus.Counter
	CommitNodes     prometheus.Counter
	CommitBytes     prometheus.Counter
	ProofsBuilt     prometheus.Counter
	ProofsVerified  prometheus.Counter
	ProofFailures   prometheus.Counter
	ChunkRequests   prometheus.Counter
	SeekCount       prometheus.Counter
	StorageAdded    prometheus.Counter
	StorageReplaced prometheus.Counter
	StorageRemoved  prometheus.Counter
	HashNodeCalls   prometheus.Counter
	CommitLatency   prometheus.Histogram
}

// NewRegistry creates a Registry with all metrics registered under the
// "grovedb_" namespace.
func NewRegistry() *Registry {
	r := &Registry{prom: prometheus.NewRegistry()}

	mk := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grovedb_" + name,
			Help: help,
		})
		r.prom.MustRegister(c)
		return c
	}

	r.Commits = mk("commits_total", "number of transactions committed")
	r.CommitNodes = mk("commit_nodes_total", "number of AVL nodes written across all commits")
	r.CommitBytes = mk("commit_bytes_total", "number of encoded node bytes written across all commits")
	r.ProofsBuilt = mk("proofs_built_total", "number of proofs produced")
	r.ProofsVerified = mk("proofs_verified_total", "number of proof verification attempts")
	r.ProofFailures = mk("proof_failures_total", "number of proof verification failures")
	r.ChunkRequests = mk("chunk_requests_total", "number of chunk/multi-chunk requests served")
	r.SeekCount = mk("seek_count_total", "cumulative cost.OperationCost.SeekCount")
	r.StorageAdded = mk("storage_cost_added_bytes_total", "cumulative cost.StorageCost.Added")
	r.StorageReplaced = mk("storage_cost_replaced_bytes_total", "cumulative cost.StorageCost.Replaced")
	r.StorageRemoved = mk("storage_cost_removed_bytes_total", "cumulative cost.StorageCost.Removed (all sections)")
	r.HashNodeCalls = mk("hash_node_calls_total", "cumulative cost.OperationCost.HashNodeCalls")

	r.CommitLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grovedb_commit_latency_seconds",
		Help:    "wall-clock latency of Transaction.Commit",
		Buckets: prometheus.DefBuckets,
	})
	r.prom.MustRegister(r.CommitLatency)

	return r
}

// Prometheus returns the underlying *prometheus.Registry so an embedder can
// mount it behind its own /metrics handler.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.prom
}
