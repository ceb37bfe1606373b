package audit

import "context"

type actorKey struct{}

type actor struct {
	kind string
	ip   string
}

// WithActor attaches the credential kind and client IP of the request.
// Append uses them for events that leave ActorKind or IPAddress empty.
func WithActor(ctx context.Context, kind, ip string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{kind: kind, ip: ip})
}

func actorFrom(ctx context.Context) (actor, bool) {
	a, ok := ctx.Value(actorKey{}).(actor)
	return a, ok
}
