package shared

import "context"

// Role is the privilege level attached to an actor.
type Role string

const (
	RoleSeller     Role = "seller"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// AtLeast reports whether r grants the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return rank(r) >= rank(min)
}

func rank(r Role) int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleSupervisor:
		return 2
	case RoleSeller:
		return 1
	default:
		return 0
	}
}

// Actor identifies the authenticated user handling a request.
type Actor struct {
	ID   int64
	Name string
	Role Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in ctx.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
