// ABOUTME: Request identity attached by the access guard
// ABOUTME: Handlers read it with IdentityFromContext; only the guard can set it

package auth

import (
	"context"

	"github.com/2389/storefront-gateway/internal/store"
)

// Identity is the authenticated principal behind a request.
type Identity struct {
	PrincipalID string
	Kind        store.PrincipalKind
	Email       string
	DisplayName string
}

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// withIdentity is unexported so nothing outside the guard can forge an identity.
func withIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity set by the guard, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// MustIdentityFromContext returns the identity, panicking if the handler was
// mounted without a guard.
func MustIdentityFromContext(ctx context.Context) *Identity {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		panic("auth: Identity not found in context")
	}
	return id
}
