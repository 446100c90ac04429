package api

import (
	"context"
	"time"

	"github.com/pulsepoint/eris-api/models"
)

// StoreTimeout is the default timeout for state store calls made on behalf of a request
const StoreTimeout = 10 * time.Second

// WithStoreTimeout creates a context with store timeout
func WithStoreTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, StoreTimeout)
}

type actorKey struct{}

// WithActor stores the authenticated user in the context
func WithActor(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, actorKey{}, u)
}

// ActorFromContext returns the authenticated user of a request
func ActorFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(actorKey{}).(models.User)
	return u, ok
}
