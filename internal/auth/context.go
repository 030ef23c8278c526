// ABOUTME: Identity type and context propagation for authenticated requests
// ABOUTME: Provides WithIdentity/FromContext for passing identity via context

package auth

import (
	"context"
	"slices"
)

// Identity holds the normalized identity extracted from a validated bearer
// token. It lives for one request and is discarded afterward.
type Identity struct {
	Subject     string   // "sub" claim; may be empty
	Roles       []string // from the configured namespaced roles claim
	Permissions []string // from the standard "permissions" claim
}

// HasAnyRole returns true if the identity holds at least one of the given roles.
func (id *Identity) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(id.Roles, r) {
			return true
		}
	}
	return false
}

// identityKey is the key type for storing an Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not
// present (anonymous request or identity middleware not mounted).
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
