package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics instruments price resolution.
type PricingMetrics struct {
	resolutions *prometheus.CounterVec
	warnings    *prometheus.CounterVec
	duration    prometheus.Histogram
	storeErrors prometheus.Counter
}

// NewPricingMetrics registers the resolver metrics on the provided registerer.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_resolutions_total",
		Help: "Resolved pricing lines by price source.",
	}, []string{"source"})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_data_quality_warnings_total",
		Help: "Matched override rules that could not produce a price.",
	}, []string{"issue"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_resolve_duration_seconds",
		Help:    "Time spent resolving a price, store lookup included.",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})
	storeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_store_errors_total",
		Help: "Override rule store lookups that failed.",
	})
	reg.MustRegister(resolutions, warnings, duration, storeErrors)
	return &PricingMetrics{
		resolutions: resolutions,
		warnings:    warnings,
		duration:    duration,
		storeErrors: storeErrors,
	}
}

// IncResolution counts a priced line for the given source.
func (p *PricingMetrics) IncResolution(source string) {
	if p == nil || p.resolutions == nil {
		return
	}
	p.resolutions.WithLabelValues(normalizeLabel(source, "unknown")).Inc()
}

// IncDataQualityWarning counts a near-miss rule by issue.
func (p *PricingMetrics) IncDataQualityWarning(issue string) {
	if p == nil || p.warnings == nil {
		return
	}
	p.warnings.WithLabelValues(normalizeLabel(issue, "unknown")).Inc()
}

// ObserveDuration records how long a resolution took.
func (p *PricingMetrics) ObserveDuration(d time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.Observe(d.Seconds())
}

// IncStoreError counts a failed rule store lookup.
func (p *PricingMetrics) IncStoreError() {
	if p == nil || p.storeErrors == nil {
		return
	}
	p.storeErrors.Inc()
}
