package middleware

import (
	"context"

	"github.com/cloudstory/cloudstory/internal/entities"
)

type contextKey struct{}

var userKey contextKey

// WithUser attaches an authenticated principal to the context.
func WithUser(ctx context.Context, u *entities.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated principal, if any.
func UserFromContext(ctx context.Context) (*entities.User, bool) {
	u, ok := ctx.Value(userKey).(*entities.User)
	return u, ok
}
