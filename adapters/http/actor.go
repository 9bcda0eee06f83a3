package invoicehttp

import (
	"context"

	"github.com/goliatone/go-invoice/invoice"
)

type actorContextKey struct{}

// WithActor stores an actor id in context for HTTP handlers.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ContextActorProvider reads actor ids from request contexts.
type ContextActorProvider struct {
	Key      any
	Optional bool
}

// ActorID returns the actor id stored in context.
func (p ContextActorProvider) ActorID(ctx context.Context) (string, error) {
	key := p.Key
	if key == nil {
		key = actorContextKey{}
	}
	actorID, ok := ctx.Value(key).(string)
	if !ok || actorID == "" {
		if p.Optional {
			return "", nil
		}
		return "", invoice.NewError(invoice.KindValidation, "actor not found in context", nil)
	}
	return actorID, nil
}

// StaticActorProvider always returns the configured actor id.
type StaticActorProvider struct {
	ID string
}

// ActorID returns the configured actor id.
func (p StaticActorProvider) ActorID(ctx context.Context) (string, error) {
	_ = ctx
	return p.ID, nil
}
