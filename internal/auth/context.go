package auth

import (
	"context"

	"github.com/clipstream/backend/internal/models"
)

// ctxKey is an unexported type for context keys defined in this package.
type ctxKey string

const principalKey ctxKey = "principal"

// WithPrincipal stores the authenticated user on the context.
func WithPrincipal(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// PrincipalFromContext returns the authenticated user resolved by the request
// authenticator, if any.
func PrincipalFromContext(ctx context.Context) (models.User, bool) {
	if ctx == nil {
		return models.User{}, false
	}
	user, ok := ctx.Value(principalKey).(models.User)
	return user, ok
}
