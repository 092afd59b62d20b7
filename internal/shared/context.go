package shared

import "context"

type actorContextKey struct{}

// Actor identifies the authenticated user acting on a request. The workflow
// core never authenticates; it only records this identity on documents.
type Actor struct {
	UserID int64
	Name   string
}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user from context. The zero Actor is
// returned for unauthenticated requests.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
