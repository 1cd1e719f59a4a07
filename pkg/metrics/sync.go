package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncBacklogMetrics exports how many override rules await ERP sync.
type SyncBacklogMetrics struct {
	backlog *prometheus.GaugeVec
}

// NewSyncBacklogMetrics registers the backlog gauge on the provided registerer.
func NewSyncBacklogMetrics(reg prometheus.Registerer) *SyncBacklogMetrics {
	if reg == nil {
		return &SyncBacklogMetrics{}
	}
	backlog := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "override_rules_sync_backlog",
		Help: "Override rules not yet synced to the ERP, by state.",
	}, []string{"state"})
	reg.MustRegister(backlog)
	return &SyncBacklogMetrics{backlog: backlog}
}

// Set records the latest count for a sync state.
func (s *SyncBacklogMetrics) Set(state string, count int64) {
	if s == nil || s.backlog == nil {
		return
	}
	s.backlog.WithLabelValues(normalizeLabel(state, "unknown")).Set(float64(count))
}

// OutboxMetrics tracks the publisher loop.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	pending   prometheus.Gauge
}

// NewOutboxMetrics registers the publisher counters on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_attempts_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"result"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_pending_events",
		Help: "Unpublished outbox events still eligible for publishing.",
	})
	reg.MustRegister(published, pending)
	return &OutboxMetrics{published: published, pending: pending}
}

// IncResult counts a publish attempt with the given result (published, failed, dead).
func (o *OutboxMetrics) IncResult(result string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

// SetPending records the latest count of publishable outbox rows.
func (o *OutboxMetrics) SetPending(count int64) {
	if o == nil || o.pending == nil {
		return
	}
	o.pending.Set(float64(count))
}
