package common_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vetrina/internal/common"
)

type errorResponse struct {
	Error common.ErrorBody `json:"error"`
}

func TestWriteErrorRendersAppErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("load store: %w", common.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{common.NewAppError("FORBIDDEN", "nope", http.StatusForbidden, nil), http.StatusForbidden, "FORBIDDEN"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		common.WriteError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.code, body.Error.Code)
	}
}

func TestDecodeJSONValidates(t *testing.T) {
	type payload struct {
		Like *bool `json:"like" validate:"required"`
	}

	var ok payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"like":false}`))
	require.NoError(t, common.DecodeJSON(req, &ok))
	require.NotNil(t, ok.Like)
	require.False(t, *ok.Like)

	var missing payload
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	err := common.DecodeJSON(req, &missing)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.Equal(t, map[string]string{"like": "required"}, appErr.Details)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"like":true,"extra":1}`))
	err = common.DecodeJSON(req, &missing)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	handler := common.Idem{R: client}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/feed/swipe", nil)
		req.Header.Set("Idempotency-Key", "abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusOK, send())
	require.Equal(t, http.StatusConflict, send())
	require.Equal(t, 1, calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	handler := common.Idem{R: client}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/feed/swipe", nil)
		req.Header.Set("Idempotency-Key", "retry-me")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}
	require.Equal(t, 2, calls)
}
