package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vetrina/internal/health"
)

func ok(context.Context) error { return nil }

func ready(t *testing.T, h health.Handler) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReady(t *testing.T) {
	h := health.Handler{Probes: map[string]health.Probe{"postgres": ok, "redis": ok}}
	code, body := ready(t, h)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body)
}

func TestReadyReportsFailingProbe(t *testing.T) {
	h := health.Handler{Probes: map[string]health.Probe{
		"postgres": func(context.Context) error { return errors.New("db down") },
		"redis":    ok,
	}}
	code, body := ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "db down", body["postgres"])
	require.Equal(t, "ok", body["redis"])
}

func TestReadyProbeTimeout(t *testing.T) {
	h := health.Handler{Timeout: 10 * time.Millisecond, Probes: map[string]health.Probe{
		"redis": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}}
	code, body := ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, context.DeadlineExceeded.Error(), body["redis"])
}

func TestReadinessAfterShutdown(t *testing.T) {
	h := health.Handler{Probes: map[string]health.Probe{"redis": ok}}
	t.Cleanup(func() { health.SetReady(true) })

	health.SetReady(false)
	code, body := ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "draining", body["status"])

	health.SetReady(true)
	code, _ = ready(t, h)
	require.Equal(t, http.StatusOK, code)
}
