package prometheus

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/flashaudit/pkg/audit"
	"github.com/marmos91/flashaudit/pkg/metrics"
)

func TestNilReceiverIsSafe(t *testing.T) {
	m := NewAuditMetrics(nil)
	require.Nil(t, m)

	assert.NotPanics(t, func() {
		m.ObserveOperation("add", time.Millisecond, nil)
		m.RecordBytes("add", 10)
		m.RecordFlush(audit.FlushResult{PagesErased: 1})
		m.RecordUsage(&audit.Usage{})
	})
}

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAuditMetrics(reg)

	m.ObserveOperation("add", 2*time.Millisecond, nil)
	m.ObserveOperation("add", time.Millisecond, fmt.Errorf("wrapped: %w", audit.ErrCtxCheck))
	m.ObserveOperation("retrieve", time.Millisecond, audit.ErrUnknownID)
	m.ObserveOperation("retrieve", time.Millisecond, errors.New("disk on fire"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("add", "ctx_check")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("retrieve", "unknown_id")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("retrieve", "other")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.opDuration))
}

func TestRecordBytesIgnoresEmpty(t *testing.T) {
	m := NewAuditMetrics(prometheus.NewRegistry())

	m.RecordBytes("add", 300)
	m.RecordBytes("add", 0)
	m.RecordBytes("retrieve", 120)

	assert.Equal(t, 300.0, testutil.ToFloat64(m.bytes.WithLabelValues("add")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.bytes.WithLabelValues("retrieve")))
}

func TestRecordFlush(t *testing.T) {
	m := NewAuditMetrics(prometheus.NewRegistry())

	m.RecordFlush(audit.FlushResult{Passes: 2, PagesErased: 3, PartsMoved: 5, BytesReclaimed: 4096, Duration: time.Millisecond})
	m.RecordFlush(audit.FlushResult{Passes: 1, PagesErased: 1, BytesReclaimed: 100})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.flushes))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.pagesErased))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.partsMoved))
	assert.Equal(t, 4196.0, testutil.ToFloat64(m.reclaimed))
}

func TestRecordUsage(t *testing.T) {
	m := NewAuditMetrics(prometheus.NewRegistry())

	m.RecordUsage(&audit.Usage{
		UsedPages:        3,
		UnusedPages:      13,
		LiveRecords:      7,
		ValidBytes:       1000,
		TombstonedBytes:  200,
		FreeBytes:        30000,
		ReclaimableBytes: 950,
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.pages.WithLabelValues("used")))
	assert.Equal(t, 13.0, testutil.ToFloat64(m.pages.WithLabelValues("unused")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.liveRecords))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.usageBytes.WithLabelValues("tombstoned")))
	assert.Equal(t, 950.0, testutil.ToFloat64(m.usageBytes.WithLabelValues("reclaimable")))
}

func TestRegisteredConstructor(t *testing.T) {
	metrics.Reset()
	t.Cleanup(metrics.Reset)
	assert.Nil(t, metrics.NewAuditMetrics())

	metrics.InitRegistry()
	m := metrics.NewAuditMetrics()
	require.NotNil(t, m)

	m.ObserveOperation("dispose", time.Millisecond, nil)
	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "flashaudit_operations_total")
	assert.Contains(t, names, "go_goroutines")
}
