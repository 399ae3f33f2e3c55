// ABOUTME: Credential store interface and principal types for storefront-gateway
// ABOUTME: Defines Principal, PrincipalKind and the CredentialStore lookup/create contract

package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrPrincipalNotFound is returned when no principal matches the lookup.
var ErrPrincipalNotFound = errors.New("principal not found")

// ErrEmailExists is returned when creating a principal whose email is already
// registered for the same kind.
var ErrEmailExists = errors.New("email already registered")

// ErrInvalidKind is returned for a principal kind other than user or admin.
var ErrInvalidKind = errors.New("invalid principal kind")

// PrincipalKind separates shoppers from administrators. The two kinds live in
// disjoint tables and a session for one never authorizes the other.
type PrincipalKind string

const (
	KindUser  PrincipalKind = "user"
	KindAdmin PrincipalKind = "admin"
)

// Valid reports whether k is one of the known kinds.
func (k PrincipalKind) Valid() bool {
	return k == KindUser || k == KindAdmin
}

// Principal is a user or administrator that can hold a session.
type Principal struct {
	ID           string
	Kind         PrincipalKind
	Email        string
	DisplayName  string // users only
	PasswordHash string // bcrypt hash, empty for federated-only users
	Federated    bool   // created through a federated identity provider
	CreatedAt    time.Time
}

// CredentialStore is the persistence boundary used by the authenticator and
// the access guard.
type CredentialStore interface {
	// FindByEmail returns the principal of the given kind with that email,
	// or ErrPrincipalNotFound.
	FindByEmail(ctx context.Context, kind PrincipalKind, email string) (*Principal, error)

	// FindByID returns the principal of the given kind with that id,
	// or ErrPrincipalNotFound.
	FindByID(ctx context.Context, kind PrincipalKind, id string) (*Principal, error)

	// Create inserts p, returning ErrEmailExists if the email is taken
	// within p.Kind.
	Create(ctx context.Context, p *Principal) error

	// Delete removes a principal; sessions it holds stop validating.
	Delete(ctx context.Context, kind PrincipalKind, id string) error

	Count(ctx context.Context, kind PrincipalKind) (int, error)
}

// NormalizeEmail lower-cases and trims an email so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
