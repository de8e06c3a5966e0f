package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vetrina/internal/common"
	"github.com/noah-isme/backend-vetrina/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feed/swipe", nil)
	if userID != "" {
		req = req.WithContext(common.WithUserID(req.Context(), userID))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareEnforcesLimitPerUser(t *testing.T) {
	lim, err := ratelimit.NewMemoryLimiter("2-M")
	require.NoError(t, err)
	h := ratelimit.Handler{Limiter: lim}.Middleware(okHandler())

	require.Equal(t, http.StatusOK, serve(h, "alice").Code)
	second := serve(h, "alice")
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := serve(h, "alice")
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	require.NotEmpty(t, third.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, serve(h, "bob").Code)
}

func TestRedisLimiterSharesCounters(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first, err := ratelimit.NewRedisLimiter(client, "1-H", "swipes")
	require.NoError(t, err)
	second, err := ratelimit.NewRedisLimiter(client, "1-H", "swipes")
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, serve(ratelimit.Handler{Limiter: first}.Middleware(okHandler()), "carol").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(ratelimit.Handler{Limiter: second}.Middleware(okHandler()), "carol").Code)
}

func TestInvalidRate(t *testing.T) {
	_, err := ratelimit.NewMemoryLimiter("lots")
	require.Error(t, err)
}

func TestUserOrIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	require.Equal(t, "ip:10.0.0.7", ratelimit.UserOrIP(req))

	req = req.WithContext(common.WithUserID(req.Context(), "u1"))
	require.Equal(t, "user:u1", ratelimit.UserOrIP(req))
}
