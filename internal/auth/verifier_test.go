package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vetrina/internal/auth"
	"github.com/noah-isme/backend-vetrina/internal/common"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, subject string, role auth.Role, exp time.Time) string {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer("vetrina").
		Audience([]string{"vetrina-api"}).
		Subject(subject).
		IssuedAt(time.Now()).
		Expiration(exp)
	if role != "" {
		b = b.Claim(auth.RoleClaim, string(role))
	}
	tok, err := b.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	require.NoError(t, err)
	return string(signed)
}

func newVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(auth.VerifierConfig{Secret: testSecret, Issuer: "vetrina", Audience: "vetrina-api"})
	require.NoError(t, err)
	return v
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	userID := uuid.New()
	p, err := newVerifier(t).Verify(sign(t, testSecret, userID.String(), auth.RoleStoreOwner, time.Now().Add(time.Minute)))
	require.NoError(t, err)
	require.Equal(t, userID, p.UserID)
	require.Equal(t, auth.RoleStoreOwner, p.Role)
}

func TestVerifierDefaultsToUserRole(t *testing.T) {
	p, err := newVerifier(t).Verify(sign(t, testSecret, uuid.NewString(), "", time.Now().Add(time.Minute)))
	require.NoError(t, err)
	require.Equal(t, auth.RoleUser, p.Role)
}

func TestVerifierRejects(t *testing.T) {
	v := newVerifier(t)
	future := time.Now().Add(time.Minute)

	_, err := v.Verify(sign(t, "other-secret", uuid.NewString(), auth.RoleUser, future))
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(sign(t, testSecret, uuid.NewString(), auth.RoleUser, time.Now().Add(-time.Hour)))
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(sign(t, testSecret, "not-a-uuid", auth.RoleUser, future))
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(sign(t, testSecret, uuid.NewString(), auth.Role("root"), future))
	require.ErrorIs(t, err, auth.ErrUnknownRole)

	_, err = v.Verify("garbage")
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	tok, err := jwt.NewBuilder().Issuer("vetrina").Audience([]string{"vetrina-api"}).Subject(uuid.NewString()).Expiration(future).Build()
	require.NoError(t, err)
	hs512, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512, []byte(testSecret)))
	require.NoError(t, err)
	_, err = v.Verify(string(hs512))
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := auth.NewVerifier(auth.VerifierConfig{})
	require.Error(t, err)
}

func TestMiddlewareChain(t *testing.T) {
	mw := auth.Middleware{Verifier: newVerifier(t)}
	var seenUser, seenRole string
	handler := mw.RequireAuth(auth.RequireRole(auth.RoleStoreOwner)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser, _ = common.UserID(r.Context())
		seenRole = common.UserRole(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	call := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stores/x/discounts", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	future := time.Now().Add(time.Minute)
	require.Equal(t, http.StatusUnauthorized, call(""))
	require.Equal(t, http.StatusUnauthorized, call("garbage"))
	require.Equal(t, http.StatusForbidden, call(sign(t, testSecret, uuid.NewString(), auth.RoleUser, future)))

	owner := uuid.New()
	require.Equal(t, http.StatusNoContent, call(sign(t, testSecret, owner.String(), auth.RoleStoreOwner, future)))
	require.Equal(t, owner.String(), seenUser)
	require.Equal(t, string(auth.RoleStoreOwner), seenRole)

	require.Equal(t, http.StatusNoContent, call(sign(t, testSecret, uuid.NewString(), auth.RoleAdmin, future)))
}
