package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickProbe(h *Health, times int) {
	h.mu.RLock()
	probes := make([]*probe, len(h.probes))
	copy(probes, h.probes)
	h.mu.RUnlock()

	for range times {
		for _, p := range probes {
			p.tick(context.Background())
		}
	}
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestIsReady_ManualGate(t *testing.T) {
	h := New()

	assert.False(t, h.IsReady(), "fresh service must not be ready")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady(), "draining flips readiness off")
}

func TestFailureThreshold(t *testing.T) {
	var failing bool
	h := New()
	h.AddReadinessCheck("flaky", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("dependency down")
		}
		return nil
	})
	h.SetReady(true)

	tickProbe(h, 1)
	require.True(t, h.IsReady())

	// One or two consecutive failures are tolerated.
	failing = true
	tickProbe(h, failureThreshold-1)
	assert.True(t, h.IsReady(), "below the failure threshold")

	tickProbe(h, 1)
	assert.False(t, h.IsReady(), "threshold reached")

	// A single success recovers.
	failing = false
	tickProbe(h, successThreshold)
	assert.True(t, h.IsReady())
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("always-ok", time.Second, func(_ context.Context) error { return nil })
	tickProbe(h, 1)

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeStatus(t, rec).Status)
}

func TestLiveEndpoint_Unhealthy(t *testing.T) {
	h := New()
	h.AddLivenessCheck("broken", time.Second, func(_ context.Context) error {
		return errors.New("wedged")
	})
	tickProbe(h, failureThreshold)

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeStatus(t, rec)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "wedged", resp.Checks["broken"])
}

func TestReadyEndpoint_NotReadyYet(t *testing.T) {
	h := New()

	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decodeStatus(t, rec).Checks, "_readiness")
}

func TestReadyEndpoint_IgnoresLivenessChecks(t *testing.T) {
	h := New()
	h.AddLivenessCheck("broken", time.Second, func(_ context.Context) error {
		return errors.New("wedged")
	})
	h.SetReady(true)
	tickProbe(h, failureThreshold)

	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "liveness failures must not affect readiness")
}

func TestStartAndStop(t *testing.T) {
	var calls int
	done := make(chan struct{})
	h := New()
	h.AddReadinessCheck("counted", time.Second, func(_ context.Context) error {
		if calls++; calls == 1 {
			close(done)
		}
		return nil
	})

	h.Start(context.Background(), 50*time.Millisecond)
	defer h.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("check never ran")
	}

	h.SetReady(true)
	assert.True(t, h.IsReady())
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(_ context.Context) error { return s.err }

func TestPingCheck(t *testing.T) {
	require.NoError(t, PingCheck(stubPinger{})(context.Background()))

	err := PingCheck(stubPinger{err: errors.New("refused")})(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
