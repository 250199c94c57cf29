package board

import (
	"context"

	"github.com/boozedog/ticketflow/internal/event"
)

type actorKey struct{}

// WithActor tags commands issued with ctx in the activity log.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return event.ActorWeb
}
