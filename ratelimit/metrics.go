/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package ratelimit

import "github.com/prometheus/client_golang/prometheus"

const metricsLabelProvider = "provider"

// MetricsCollector represents a collector of admission decision metrics.
type MetricsCollector interface {
	// IncAllowed increments the total number of admitted requests for the provider.
	IncAllowed(provider string)

	// IncDenied increments the total number of denied requests for the provider.
	IncDenied(provider string)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for the rate limit registry.
type PrometheusMetrics struct {
	AllowedTotal *prometheus.CounterVec
	DeniedTotal  *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		AllowedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "rate_limit_allowed_total",
				Help:        "Number of requests admitted by the rate limiter.",
				ConstLabels: opts.ConstLabels,
			},
			[]string{metricsLabelProvider},
		),
		DeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "rate_limit_denied_total",
				Help:        "Number of requests denied by the rate limiter.",
				ConstLabels: opts.ConstLabels,
			},
			[]string{metricsLabelProvider},
		),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.AllowedTotal, pm.DeniedTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.AllowedTotal)
	prometheus.Unregister(pm.DeniedTotal)
}

// IncAllowed increments the total number of admitted requests for the provider.
func (pm *PrometheusMetrics) IncAllowed(provider string) {
	pm.AllowedTotal.With(prometheus.Labels{metricsLabelProvider: provider}).Inc()
}

// IncDenied increments the total number of denied requests for the provider.
func (pm *PrometheusMetrics) IncDenied(provider string) {
	pm.DeniedTotal.With(prometheus.Labels{metricsLabelProvider: provider}).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncAllowed(string) {}
func (disabledMetrics) IncDenied(string)  {}
