package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSyncMetrics_Lifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	done := m.Started("download")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight.WithLabelValues("download")))

	done("success", 120)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("download")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("download", "success")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.products.WithLabelValues("download")))

	m.Rejected("download", "already_in_flight")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("download", "already_in_flight")))
}

func TestSyncMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *SyncMetrics
	assert.NotPanics(t, func() {
		m.Started("upload")("error", 0)
		m.Rejected("upload", "entity_not_found")
	})
}
