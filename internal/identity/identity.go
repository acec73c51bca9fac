// Package identity resolves the calling user. Handlers authenticate the
// request and stash the user on the context; everything downstream reads it
// back with UserFromContext.
package identity

import (
	"context"

	"github.com/KirkDiggler/vtt-api/internal/errors"
)

// User is the authenticated caller
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

type contextKey struct{}

// WithUser returns a context carrying the authenticated user
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the authenticated user, or Unauthenticated when the
// request never passed through authentication
func UserFromContext(ctx context.Context) (*User, error) {
	user, ok := ctx.Value(contextKey{}).(*User)
	if !ok || user == nil {
		return nil, errors.Unauthenticated("no authenticated user")
	}
	return user, nil
}
