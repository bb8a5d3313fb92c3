package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics tracks inventory reconciliation commands.
type ReconcileMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	changes  *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation metrics on reg.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconcile_duration_seconds",
		Help:      "Time spent locking, loading and rewriting a group.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_total",
		Help:      "Reconciliation commands by operation and outcome.",
	}, []string{"op", "outcome"})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_row_changes_total",
		Help:      "Catalog rows created, updated or deleted by reconciliation.",
	}, []string{"kind"})
	reg.MustRegister(duration, total, changes)
	return &ReconcileMetrics{duration: duration, total: total, changes: changes}
}

// Observe records one finished command. outcome is "ok" or an error code.
func (m *ReconcileMetrics) Observe(op, outcome string, took time.Duration) {
	if m == nil || m.total == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(took.Seconds())
	m.total.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// AddChanges counts applied row changes of the given kind.
func (m *ReconcileMetrics) AddChanges(kind string, n int) {
	if m == nil || m.changes == nil || n <= 0 {
		return
	}
	m.changes.WithLabelValues(normalizeLabel(kind)).Add(float64(n))
}
