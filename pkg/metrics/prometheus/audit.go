// Package prometheus implements the metric sinks of pkg/metrics on top of
// client_golang. Import it for side effects:
//
//	import _ "github.com/marmos91/flashaudit/pkg/metrics/prometheus"
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/flashaudit/pkg/audit"
	"github.com/marmos91/flashaudit/pkg/metrics"
)

func init() {
	metrics.RegisterAuditMetricsConstructor(func() audit.Metrics {
		return NewAuditMetrics(metrics.GetRegistry())
	})
}

// auditMetrics is the Prometheus implementation of audit.Metrics.
type auditMetrics struct {
	operations  *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	bytes       *prometheus.CounterVec
	flushes     prometheus.Counter
	pagesErased prometheus.Counter
	partsMoved  prometheus.Counter
	reclaimed   prometheus.Counter
	flushTime   prometheus.Histogram
	pages       *prometheus.GaugeVec
	usageBytes  *prometheus.GaugeVec
	liveRecords prometheus.Gauge
}

// NewAuditMetrics registers the audit metrics on reg. It returns nil when reg
// is nil; all methods accept a nil receiver.
func NewAuditMetrics(reg prometheus.Registerer) *auditMetrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)

	return &auditMetrics{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashaudit_operations_total",
				Help: "Audit store operations by operation and result",
			},
			[]string{"operation", "result"}, // result: ok or an error kind
		),
		opDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flashaudit_operation_duration_seconds",
				Help:    "Audit store operation latency",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us .. 2.6s
			},
			[]string{"operation"},
		),
		bytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashaudit_payload_bytes_total",
				Help: "Record payload bytes written or read",
			},
			[]string{"operation"},
		),
		flushes: f.NewCounter(prometheus.CounterOpts{
			Name: "flashaudit_flushes_total",
			Help: "Completed flushes",
		}),
		pagesErased: f.NewCounter(prometheus.CounterOpts{
			Name: "flashaudit_flush_pages_erased_total",
			Help: "Pages erased by flush",
		}),
		partsMoved: f.NewCounter(prometheus.CounterOpts{
			Name: "flashaudit_flush_parts_moved_total",
			Help: "Valid record parts relocated by flush",
		}),
		reclaimed: f.NewCounter(prometheus.CounterOpts{
			Name: "flashaudit_flush_bytes_reclaimed_total",
			Help: "Tombstoned bytes reclaimed by flush",
		}),
		flushTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "flashaudit_flush_duration_seconds",
			Help:    "Flush latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 9),
		}),
		pages: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flashaudit_pages",
				Help: "Pages by state at the last usage report",
			},
			[]string{"state"}, // "used", "unused"
		),
		usageBytes: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flashaudit_bytes",
				Help: "Flash bytes by kind at the last usage report",
			},
			[]string{"kind"}, // "valid", "tombstoned", "free", "reclaimable"
		),
		liveRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "flashaudit_live_records",
			Help: "Valid records at the last usage report",
		}),
	}
}

func (m *auditMetrics) ObserveOperation(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, audit.ErrorKind(err)).Inc()
	m.opDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *auditMetrics) RecordBytes(op string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.WithLabelValues(op).Add(float64(n))
}

func (m *auditMetrics) RecordFlush(res audit.FlushResult) {
	if m == nil {
		return
	}
	m.flushes.Inc()
	m.pagesErased.Add(float64(res.PagesErased))
	m.partsMoved.Add(float64(res.PartsMoved))
	m.reclaimed.Add(float64(res.BytesReclaimed))
	m.flushTime.Observe(res.Duration.Seconds())
}

func (m *auditMetrics) RecordUsage(u *audit.Usage) {
	if m == nil || u == nil {
		return
	}
	m.pages.WithLabelValues(string(audit.PageUsed)).Set(float64(u.UsedPages))
	m.pages.WithLabelValues(string(audit.PageUnused)).Set(float64(u.UnusedPages))
	m.usageBytes.WithLabelValues("valid").Set(float64(u.ValidBytes))
	m.usageBytes.WithLabelValues("tombstoned").Set(float64(u.TombstonedBytes))
	m.usageBytes.WithLabelValues("free").Set(float64(u.FreeBytes))
	m.usageBytes.WithLabelValues("reclaimable").Set(float64(u.ReclaimableBytes))
	m.liveRecords.Set(float64(u.LiveRecords))
}
