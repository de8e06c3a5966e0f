package auth

import (
	"net/http"
	"slices"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-vetrina/internal/common"
)

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Verifier *Verifier
	Logger   *zerolog.Logger
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's id and role on the request context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || m.Verifier == nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		principal, err := m.Verifier.Verify(token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		ctx := common.WithUserID(r.Context(), principal.UserID.String())
		ctx = common.WithUserRole(ctx, string(principal.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request through only when the authenticated role is
// one of roles. Admins are always allowed.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(common.UserRole(r.Context()))
			if role != RoleAdmin && !slices.Contains(roles, role) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
