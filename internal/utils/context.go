package utils

import (
	"context"
)

// Identity is the verified caller attached to a request by the auth gateway.
type Identity struct {
	UserID string
	Email  string
	Role   string
	Name   string
}

type contextKey string

const contextIdentityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, id)
}

// IdentityFromContext returns the identity set by the gateway, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextIdentityKey).(Identity)
	return id, ok
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}
