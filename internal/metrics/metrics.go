// Package metrics exposes Prometheus counters for cleanup runs. They
// are served over HTTP only in watch mode; one-shot runs leave metrics
// disabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"artifact-cleanup/internal/types"
)

type CleanupMetrics struct {
	runs             prometheus.Counter
	versionsKept     prometheus.Counter
	versionsDeleted  prometheus.Counter
	deletionsFailed  prometheus.Counter
	deletionsSkipped prometheus.Counter
}

// NewCleanupMetrics registers the cleanup counters on the given
// registerer. Callers own the registerer lifetime; registering twice
// on the same registerer is a programming error.
func NewCleanupMetrics(reg prometheus.Registerer) *CleanupMetrics {
	factory := promauto.With(reg)
	return &CleanupMetrics{
		runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "artifact_cleanup_runs_total",
			Help: "Total number of cleanup runs completed",
		}),
		versionsKept: factory.NewCounter(prometheus.CounterOpts{
			Name: "artifact_cleanup_versions_kept_total",
			Help: "Total number of versions given a KEEP verdict",
		}),
		versionsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "artifact_cleanup_versions_deleted_total",
			Help: "Total number of versions deleted",
		}),
		deletionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "artifact_cleanup_deletions_failed_total",
			Help: "Total number of deletion attempts that failed",
		}),
		deletionsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "artifact_cleanup_deletions_skipped_total",
			Help: "Total number of deletions skipped (dry-run, limit, or cancellation)",
		}),
	}
}

func (m *CleanupMetrics) ObserveRun(report types.RunReport) {
	if m == nil {
		return
	}
	summary := report.Summary()
	m.runs.Inc()
	m.versionsKept.Add(float64(summary.Kept))
	m.versionsDeleted.Add(float64(summary.Deleted))
	m.deletionsFailed.Add(float64(summary.Failed))
	m.deletionsSkipped.Add(float64(summary.Skipped))
}
