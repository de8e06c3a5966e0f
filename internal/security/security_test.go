package security

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func readAll(status *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			*status = http.StatusRequestEntityTooLarge
			w.WriteHeader(*status)
			return
		}
		*status = http.StatusOK
		w.WriteHeader(http.StatusOK)
	})
}

func TestBodyLimit(t *testing.T) {
	var seen int
	handler := BodyLimit{Max: 5}.Middleware(readAll(&seen))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hey")))
	require.Equal(t, http.StatusOK, rr.Code)

	declared := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("content"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, declared)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")

	undeclared := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("excessive"))
	undeclared.ContentLength = -1
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, undeclared)
	require.Equal(t, http.StatusRequestEntityTooLarge, seen)
}

func TestHeaders(t *testing.T) {
	handler := Headers{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "https://example.com", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}
