// Package rbac gates HTTP routes on the caller's role. The guard loads the
// user from storage on every request; the role inside the access token is
// never the source of truth.
package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"fitlift/backend/internal/security"
	"fitlift/backend/internal/server/middleware"
	"fitlift/backend/internal/user/domain"
)

const bearerPrefix = "bearer "

// PrincipalResolver resolves a Bearer access token to a freshly loaded user.
// Implemented by the auth service.
type PrincipalResolver interface {
	CurrentUser(ctx context.Context, accessToken string) (*domain.User, *security.AccessClaims, error)
}

// Authenticate requires a valid access token whose subject still exists, and
// attaches the principal to the request context. No role restriction.
func Authenticate(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return guard(resolver, nil)
}

// RequireAnyRole requires a valid access token and a freshly loaded role that
// is a member of the given set. The set is checked explicitly, never by
// ordering. Missing/invalid token yields 401; a role outside the set yields
// 403. Re-evaluated on every request.
func RequireAnyRole(resolver PrincipalResolver, roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return guard(resolver, allowed)
}

func guard(resolver PrincipalResolver, allowed map[domain.Role]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			user, claims, err := resolver.CurrentUser(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			if allowed != nil && !allowed[user.Role] {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			ctx := middleware.WithPrincipal(r.Context(), &middleware.Principal{User: user, Claims: claims})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
