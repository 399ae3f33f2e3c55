// ABOUTME: Authenticator exchanging credentials for session tokens
// ABOUTME: Handles password login, federated find-or-create and registration

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/storefront-gateway/internal/store"
)

// Authenticator errors
var (
	// ErrInvalidCredentials is returned for an unknown email, an account
	// without a password and a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidInput = errors.New("invalid input")
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal *store.Principal
}

// AuthenticatorConfig configures an Authenticator.
type AuthenticatorConfig struct {
	Store  store.CredentialStore
	Codec  *TokenCodec
	Hasher *PasswordHasher
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Authenticator verifies credentials against the store and issues tokens.
type Authenticator struct {
	store  store.CredentialStore
	codec  *TokenCodec
	hasher *PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(cfg AuthenticatorConfig) (*Authenticator, error) {
	if cfg.Store == nil {
		return nil, errors.New("authenticator requires a credential store")
	}
	if cfg.Codec == nil {
		return nil, errors.New("authenticator requires a token codec")
	}
	if cfg.Hasher == nil {
		return nil, errors.New("authenticator requires a password hasher")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Authenticator{
		store:  cfg.Store,
		codec:  cfg.Codec,
		hasher: cfg.Hasher,
		logger: logger.With("component", "authenticator"),
		now:    now,
	}, nil
}

// LoginWithPassword checks email and password against the principal of the
// given kind. Every credential mismatch returns ErrInvalidCredentials after
// exactly one bcrypt comparison; storage faults are returned wrapped.
func (a *Authenticator) LoginWithPassword(ctx context.Context, email, password string, kind store.PrincipalKind) (*Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidKind, kind)
	}

	p, err := a.store.FindByEmail(ctx, kind, email)
	if errors.Is(err, store.ErrPrincipalNotFound) {
		a.hasher.CompareDummy(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s by email: %w", kind, err)
	}

	if p.PasswordHash == "" {
		// Federated-only account
		a.hasher.CompareDummy(password)
		return nil, ErrInvalidCredentials
	}

	if !a.hasher.Compare(p.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	a.logger.Info("password login", "kind", kind, "principal_id", p.ID)
	return a.issue(p)
}

// LoginWithFederatedIdentity signs in a user vouched for by an external
// identity provider. The first login creates a password-less user; later
// logins reuse that record unchanged.
func (a *Authenticator) LoginWithFederatedIdentity(ctx context.Context, email, displayName string) (*Session, error) {
	email, err := validateEmail(email)
	if err != nil {
		return nil, err
	}

	p, err := a.store.FindByEmail(ctx, store.KindUser, email)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrPrincipalNotFound):
		p, err = a.createFederated(ctx, email, displayName)
		if errors.Is(err, store.ErrEmailExists) {
			// Lost a race with a concurrent first login; use the winner
			p, err = a.store.FindByEmail(ctx, store.KindUser, email)
		}
		if err != nil {
			return nil, fmt.Errorf("creating federated user: %w", err)
		}
	default:
		return nil, fmt.Errorf("looking up user by email: %w", err)
	}

	a.logger.Info("federated login", "principal_id", p.ID)
	return a.issue(p)
}

// RegisterRequest describes a new password account.
type RegisterRequest struct {
	Kind        store.PrincipalKind
	Email       string
	Password    string
	DisplayName string
}

// Register creates a password account. It does not start a session.
func (a *Authenticator) Register(ctx context.Context, req RegisterRequest) (*store.Principal, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidKind, req.Kind)
	}
	email, err := validateEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	p := &store.Principal{
		ID:           uuid.New().String(),
		Kind:         req.Kind,
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating %s: %w", req.Kind, err)
	}

	a.logger.Info("registered principal", "kind", req.Kind, "principal_id", p.ID)
	return p, nil
}

// RegisterFederated creates a password-less user for an external identity.
// Unlike LoginWithFederatedIdentity it fails if the email is already known.
func (a *Authenticator) RegisterFederated(ctx context.Context, email, displayName string) (*store.Principal, error) {
	email, err := validateEmail(email)
	if err != nil {
		return nil, err
	}

	p, err := a.createFederated(ctx, email, displayName)
	if errors.Is(err, store.ErrEmailExists) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating federated user: %w", err)
	}
	return p, nil
}

// EmailAvailable reports whether email is free for a new principal of kind.
func (a *Authenticator) EmailAvailable(ctx context.Context, kind store.PrincipalKind, email string) (bool, error) {
	email, err := validateEmail(email)
	if err != nil {
		return false, err
	}
	_, err = a.store.FindByEmail(ctx, kind, email)
	if errors.Is(err, store.ErrPrincipalNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up %s by email: %w", kind, err)
	}
	return false, nil
}

func (a *Authenticator) createFederated(ctx context.Context, email, displayName string) (*store.Principal, error) {
	p := &store.Principal{
		ID:          uuid.New().String(),
		Kind:        store.KindUser,
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		Federated:   true,
		CreatedAt:   a.now().UTC(),
	}
	if err := a.store.Create(ctx, p); err != nil {
		return nil, err
	}
	a.logger.Info("created federated user", "principal_id", p.ID)
	return p, nil
}

func (a *Authenticator) issue(p *store.Principal) (*Session, error) {
	token, expiresAt, err := a.codec.Issue(p.ID, p.Kind, a.now())
	if err != nil {
		return nil, fmt.Errorf("issuing session token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Principal: p}, nil
}

// validateEmail normalises email and checks it is a bare address.
func validateEmail(email string) (string, error) {
	email = store.NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return email, nil
}
