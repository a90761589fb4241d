// Package session carries the authenticated user through a request context.
package session

import (
	"context"

	"devflow/internal/utils"

	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "user_id"

// WithUser returns a copy of ctx carrying the authenticated user id.
func WithUser(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// CurrentUser returns the authenticated user id, if any.
func CurrentUser(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

// RequireUser is CurrentUser for operations that need an actor.
func RequireUser(ctx context.Context) (uuid.UUID, error) {
	userID, ok := CurrentUser(ctx)
	if !ok {
		return uuid.Nil, utils.NewUnauthorizedError("sign in required")
	}
	return userID, nil
}
