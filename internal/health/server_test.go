package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/paddock/internal/scheduler"
)

type stubStore struct {
	err error
}

func (s stubStore) HealthCheck(ctx context.Context) error {
	return s.err
}

type stubSync struct {
	last *scheduler.RunSummary
}

func (s stubSync) LastRun() *scheduler.RunSummary {
	return s.last
}

func serve(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(Config{ServiceName: "paddock", Version: "1.2.3", Commit: "abc", Port: "0"})

	rec := serve(t, srv, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "paddock", resp.Service)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "abc", resp.Commit)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestLiveEndpoint(t *testing.T) {
	srv := NewServer(Config{ServiceName: "paddock", Port: "0"})

	rec := serve(t, srv, "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("not ready until marked", func(t *testing.T) {
		srv := NewServer(Config{ServiceName: "paddock", Port: "0", Store: stubStore{}})

		rec := serve(t, srv, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp ReadyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "not_ready", resp.Checks["service"])
		assert.Equal(t, "ok", resp.Checks["store"])
	})

	t.Run("ready with healthy store", func(t *testing.T) {
		srv := NewServer(Config{ServiceName: "paddock", Port: "0", Store: stubStore{}})
		srv.SetReady(true)

		rec := serve(t, srv, "/ready")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ReadyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
	})

	t.Run("store failure", func(t *testing.T) {
		srv := NewServer(Config{ServiceName: "paddock", Port: "0", Store: stubStore{err: errors.New("connection refused")}})
		srv.SetReady(true)

		rec := serve(t, srv, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp ReadyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Checks["store"], "connection refused")
	})

	t.Run("sync status does not affect readiness", func(t *testing.T) {
		started := time.Date(2024, 4, 8, 6, 0, 0, 0, time.UTC)
		srv := NewServer(Config{
			ServiceName: "paddock",
			Port:        "0",
			Sync:        stubSync{last: &scheduler.RunSummary{Started: started, Synced: 3, Stale: 1}},
		})
		srv.SetReady(true)

		rec := serve(t, srv, "/ready")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ReadyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "2024-04-08T06:00:00Z synced=3 stale=1 failed=0", resp.Checks["last_sync"])
	})

	t.Run("pending sync", func(t *testing.T) {
		srv := NewServer(Config{ServiceName: "paddock", Port: "0", Sync: stubSync{}})
		srv.SetReady(true)

		rec := serve(t, srv, "/ready")
		var resp ReadyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "pending", resp.Checks["last_sync"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(Config{ServiceName: "paddock", Port: "0"})

	rec := serve(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShutdownWithoutStart(t *testing.T) {
	srv := NewServer(Config{ServiceName: "paddock", Port: "0"})
	assert.NoError(t, srv.Shutdown())
}
