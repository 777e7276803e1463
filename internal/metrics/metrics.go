// Package metrics exposes Prometheus counters and gauges for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared by the monitoring and dispatch
// services.
type Metrics struct {
	DraftsQueued   prometheus.Counter
	PostsSent      prometheus.Counter
	PostsFailed    prometheus.Counter
	PostsSkipped   prometheus.Counter
	CyclesRun      *prometheus.CounterVec
	CandidatesSeen prometheus.Counter
	QueueDepth     *prometheus.GaugeVec
}

// New registers the pipeline collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DraftsQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopost_drafts_queued_total",
			Help: "Drafts created by the monitoring service.",
		}),
		PostsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopost_posts_sent_total",
			Help: "Posts successfully published.",
		}),
		PostsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopost_posts_failed_total",
			Help: "Posts that failed to publish.",
		}),
		PostsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopost_posts_skipped_total",
			Help: "Posts skipped by quota or policy.",
		}),
		CyclesRun: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gopost_cycles_total",
			Help: "Service cycles executed, by service.",
		}, []string{"service"}),
		CandidatesSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopost_candidates_seen_total",
			Help: "Candidates already present in the dedup ledger.",
		}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gopost_queue_depth",
			Help: "Posts per status.",
		}, []string{"status"}),
	}
}

// NewNop returns metrics backed by a throwaway registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
