package shared

import "context"

// Caller is the identity resolved by the gateway before a request reaches the
// engine. The engine trusts it and performs no credential checks of its own.
type Caller struct {
	UserID int64
	Roles  []string
	// Override lets administrative callers bypass business preconditions
	// (e.g. assigning a tutor before the modality clearance is approved).
	Override bool
}

// HasRole reports whether the caller carries the given role.
func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type callerContextKey struct{}

// ContextWithCaller stores the caller identity in context.
func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller identity from context.
func CallerFromContext(ctx context.Context) Caller {
	caller, _ := ctx.Value(callerContextKey{}).(Caller)
	return caller
}
