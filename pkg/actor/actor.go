// Package actor identifies the account performing an action.
//
// The actor is resolved once per request (HTTP middleware or event consumer)
// and travels in the context. Permission decisions are made from it by the
// custom-field permission oracle; this package holds identity only.
package actor

import (
	"context"
	"fmt"
)

// SystemID is the reserved account id of the system actor.
const SystemID int64 = 0

// Actor represents the account performing an action.
type Actor struct {
	// ID is the account id
	ID int64 `json:"id"`

	Username string `json:"username"`

	// IsActive mirrors the account's active flag at the time the actor was resolved
	IsActive bool `json:"is_active"`

	system bool
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil || a.system {
		return "system"
	}
	return fmt.Sprintf("%s (#%d)", a.Username, a.ID)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present.
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// MustFromContext retrieves the Actor from the context.
// Panics if no actor is present. Use only when actor is guaranteed to exist.
func MustFromContext(ctx context.Context) *Actor {
	a := FromContext(ctx)
	if a == nil {
		panic("actor not found in context")
	}
	return a
}

// SystemActor returns the actor used by background jobs and event consumers.
// It bypasses all permission predicates.
func SystemActor() *Actor {
	return &Actor{
		ID:       SystemID,
		Username: "system",
		IsActive: true,
		system:   true,
	}
}

// IsSystem reports whether the actor is the system actor.
// A nil actor is never the system; anonymous callers get no privileges.
func (a *Actor) IsSystem() bool {
	return a != nil && a.system
}
