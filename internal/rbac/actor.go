package rbac

import "context"

// Actor is the requester of an operation: either anonymous or an
// authenticated user. The zero value is an anonymous actor without a policy
// and is denied everything.
type Actor struct {
	identity *Identity
	policy   *Policy
}

// Anonymous returns an actor without identity.
func Anonymous(policy *Policy) Actor {
	return Actor{policy: policy}
}

// Authenticated returns an actor bound to id.
func Authenticated(policy *Policy, id Identity) Actor {
	return Actor{identity: &id, policy: policy}
}

// IsAuthenticated reports whether the actor resolved to a user.
func (a Actor) IsAuthenticated() bool {
	return a.identity != nil
}

// IsAnonymous is the negation of IsAuthenticated.
func (a Actor) IsAnonymous() bool {
	return a.identity == nil
}

// ID returns the user id of an authenticated actor.
func (a Actor) ID() (int64, bool) {
	if a.identity == nil {
		return 0, false
	}
	return a.identity.ID, true
}

// Identity returns a copy of the actor's identity.
func (a Actor) Identity() (Identity, bool) {
	if a.identity == nil {
		return Identity{}, false
	}
	return *a.identity, true
}

// Login returns the login of an authenticated actor or "".
func (a Actor) Login() string {
	if a.identity == nil {
		return ""
	}
	return a.identity.Login
}

// IsAdmin reports whether the actor holds the administrator role.
func (a Actor) IsAdmin() bool {
	return a.policy.IsAdmin(a)
}

// Can evaluates action for this actor against an optional target user.
func (a Actor) Can(action Action, target *Identity) bool {
	return a.policy.Evaluate(action, a, target)
}

type actorContextKey struct{}

// ContextWithActor stores the actor in ctx.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor carried by ctx, or the zero anonymous
// actor when none was resolved.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
