package middleware

import (
	"context"

	"fitlift/backend/internal/security"
	"fitlift/backend/internal/user/domain"
)

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// Principal is the authenticated caller attached to a request context: the
// freshly loaded user plus the access-token claims it authenticated with.
type Principal struct {
	User *domain.User
	// Claims is the decoded access token. Claims.Role is the role at issuance
	// time; authorization decisions must use User.Role instead.
	Claims *security.AccessClaims
}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal set by the role guard, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
