package core

import "context"

type contextKey string

const ctxKeyActor contextKey = "import_actor"

// ContextWithActor records who started an import. The name is stored on the
// ImportSession.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ActorFromContext returns the actor set by ContextWithActor, or "".
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActor).(string); ok {
		return v
	}
	return ""
}
