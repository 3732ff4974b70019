package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRecordSyncRun(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("driver", "completed"))
	assert.NotPanics(t, func() {
		RecordSyncRun("driver", "completed", 0.25)
	})
	after := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("driver", "completed"))
	assert.Equal(t, before+1, after)
}

func TestRecordStoreOperation(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name    string
		err     error
		outcome string
	}{
		{name: "success", err: nil, outcome: "ok"},
		{name: "failure", err: errors.New("connection refused"), outcome: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := StoreOperationsTotal.WithLabelValues("memory", "upsert", tt.outcome)
			before := testutil.ToFloat64(counter)
			RecordStoreOperation("memory", "upsert", tt.err)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestUpdateSyncCursor(t *testing.T) {
	InitRegistry()

	UpdateSyncCursor("2024", "driver:verstappen", 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(SyncCursorRound.WithLabelValues("2024", "driver:verstappen")))
}

func TestRecordBatchPages(t *testing.T) {
	InitRegistry()

	ok := BatchPagesTotal.WithLabelValues("laps", "ok")
	failed := BatchPagesTotal.WithLabelValues("laps", "failed")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordBatchPages("laps", 3, 0)
	RecordBatchPages("laps", 1, 1)

	assert.Equal(t, okBefore+4, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestUpstreamMetricsNoPanic(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordUpstreamRequest("results", "200", 0.12)
		UpdateBatchStagger(0.1)
		UpdateResponseCacheHitRatio(0.5)
		UpdateCircuitBreakerState("jolpica", 2)
		RecordCircuitBreakerTrip()
		RecordRoundWritten("constructor")
		UpdateTrackedEntities(4)
	})
}

func TestHandler(t *testing.T) {
	InitRegistry()
	RecordSyncRun("constructor", "fast_path", 0.01)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paddock_sync_runs_total")
}
