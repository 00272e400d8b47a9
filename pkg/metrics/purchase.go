package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Purchase outcomes reported by the purchase workflow.
const (
	OutcomeCommitted           = "committed"
	OutcomeInsufficientFunds   = "insufficient_funds"
	OutcomeOutOfStock          = "out_of_stock"
	OutcomeNotFound            = "not_found"
	OutcomeConcurrencyConflict = "concurrency_conflict"
	OutcomeRolledBack          = "rolled_back"
	OutcomeInvalid             = "invalid"
)

// PurchaseMetrics tracks purchase outcomes and latency.
type PurchaseMetrics struct {
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
}

func NewPurchaseMetrics(reg prometheus.Registerer) *PurchaseMetrics {
	if reg == nil {
		return &PurchaseMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hrthis_purchase_outcomes_total",
		Help: "Benefit purchase attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hrthis_purchase_duration_seconds",
		Help:    "Wall time of benefit purchase attempts.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(outcomes, duration)
	return &PurchaseMetrics{outcomes: outcomes, duration: duration}
}

// Observe records one finished attempt.
func (p *PurchaseMetrics) Observe(outcome string, elapsed time.Duration) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
	p.duration.Observe(elapsed.Seconds())
}
