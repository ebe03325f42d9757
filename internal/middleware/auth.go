package middleware

import (
	"context"
	"net/http"
	"strings"

	"kanbanflow/internal/auth"
	"kanbanflow/internal/response"
)

// ContextKey type for context keys
type ContextKey string

const PrincipalContextKey ContextKey = "principal"

// Authenticate resolves the access token from the accessToken cookie or the
// Authorization header and stores the Principal in the request context.
func Authenticate(m *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ""
			if cookie, err := r.Cookie("accessToken"); err == nil {
				tokenString = cookie.Value
			}
			if tokenString == "" {
				if authHeader := r.Header.Get("Authorization"); authHeader != "" {
					tokenString = strings.TrimPrefix(authHeader, "Bearer ")
				}
			}
			if tokenString == "" {
				response.SendError(w, http.StatusUnauthorized, "Missing token")
				return
			}

			principal, err := m.VerifyAccess(r.Context(), tokenString)
			if err != nil {
				response.SendError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope allows only principals of the given scope. Must be used
// after Authenticate.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r)
			if !ok {
				response.SendError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if p.Scope != scope {
				response.SendError(w, http.StatusForbidden, "Forbidden: wrong scope for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal returns the authenticated principal from request context.
func GetPrincipal(r *http.Request) (auth.Principal, bool) {
	v := r.Context().Value(PrincipalContextKey)
	if v == nil {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
