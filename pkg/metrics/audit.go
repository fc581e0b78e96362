package metrics

import (
	"github.com/marmos91/flashaudit/pkg/audit"
)

// NewAuditMetrics returns a Prometheus-backed audit.Metrics, or nil when
// metrics are disabled. A nil result can be passed to audit.WithMetrics.
func NewAuditMetrics() audit.Metrics {
	if !IsEnabled() || newPrometheusAuditMetrics == nil {
		return nil
	}
	return newPrometheusAuditMetrics()
}

// newPrometheusAuditMetrics is set by pkg/metrics/prometheus, which imports
// this package for the registry.
var newPrometheusAuditMetrics func() audit.Metrics

// RegisterAuditMetricsConstructor is called from pkg/metrics/prometheus init.
func RegisterAuditMetricsConstructor(constructor func() audit.Metrics) {
	newPrometheusAuditMetrics = constructor
}
