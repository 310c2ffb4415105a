package middleware

import (
	"context"

	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

type contextKey string

const (
	ctxUsername contextKey = "username"
	ctxRole     contextKey = "actor_role"
)

func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the authenticated caller. The zero Actor is
// returned for unauthenticated requests and is rejected by every service.
func ActorFromContext(ctx context.Context) auth.Actor {
	return auth.Actor{Username: UsernameFromContext(ctx), Role: RoleFromContext(ctx)}
}

// WithActor injects the caller identity into the context.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUsername, actor.Username)
	return context.WithValue(ctx, ctxRole, actor.Role)
}
