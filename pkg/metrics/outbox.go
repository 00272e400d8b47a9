package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts publisher results per event type.
type OutboxMetrics struct {
	results *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hrthis_outbox_events_total",
		Help: "Outbox rows handled by the publisher, by event type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(results)
	return &OutboxMetrics{results: results}
}

func (o *OutboxMetrics) Published(eventType string) { o.inc(eventType, "published") }

func (o *OutboxMetrics) Failed(eventType string) { o.inc(eventType, "failed") }

func (o *OutboxMetrics) DeadLettered(eventType string) { o.inc(eventType, "dead_lettered") }

func (o *OutboxMetrics) Duplicate(eventType string) { o.inc(eventType, "duplicate") }

func (o *OutboxMetrics) inc(eventType, result string) {
	if o == nil || o.results == nil {
		return
	}
	o.results.WithLabelValues(normalizeLabel(eventType), result).Inc()
}
