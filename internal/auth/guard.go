// ABOUTME: Access guard middleware gating routes on a valid session cookie of one kind
// ABOUTME: One implementation, instantiated once for users and once for admins

package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/storefront-gateway/internal/store"
)

// ErrUnauthenticated is returned by Guard.Authenticate when the request
// carries no usable session. The cause is not exposed.
var ErrUnauthenticated = errors.New("not logged in")

// GuardConfig configures a Guard.
type GuardConfig struct {
	CookieName string
	Kind       store.PrincipalKind
	Codec      *TokenCodec
	Store      store.CredentialStore
	Logger     *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Guard admits requests holding a valid session for one principal kind.
type Guard struct {
	cookieName string
	kind       store.PrincipalKind
	codec      *TokenCodec
	store      store.CredentialStore
	logger     *slog.Logger
	now        func() time.Time
}

// NewGuard creates a Guard.
func NewGuard(cfg GuardConfig) *Guard {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Guard{
		cookieName: cfg.CookieName,
		kind:       cfg.Kind,
		codec:      cfg.Codec,
		store:      cfg.Store,
		logger:     logger.With("component", "guard", "kind", string(cfg.Kind)),
		now:        now,
	}
}

// NewUserGuard returns the guard for shopper routes (cookie userToken).
func NewUserGuard(codec *TokenCodec, st store.CredentialStore, logger *slog.Logger) *Guard {
	return NewGuard(GuardConfig{CookieName: UserCookieName, Kind: store.KindUser, Codec: codec, Store: st, Logger: logger})
}

// NewAdminGuard returns the guard for admin routes (cookie adminToken).
func NewAdminGuard(codec *TokenCodec, st store.CredentialStore, logger *slog.Logger) *Guard {
	return NewGuard(GuardConfig{CookieName: AdminCookieName, Kind: store.KindAdmin, Codec: codec, Store: st, Logger: logger})
}

// CookieName returns the cookie this guard reads.
func (g *Guard) CookieName() string {
	return g.cookieName
}

// Authenticate resolves the request's identity. A missing cookie, an invalid
// or expired token, a token of the other kind and a deleted principal all
// yield ErrUnauthenticated. Storage faults are returned wrapped.
func (g *Guard) Authenticate(r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := g.codec.Verify(cookie.Value, g.now())
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if claims.Kind != g.kind {
		return nil, ErrUnauthenticated
	}

	p, err := g.store.FindByID(r.Context(), g.kind, claims.PrincipalID())
	if errors.Is(err, store.ErrPrincipalNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s %s: %w", g.kind, claims.PrincipalID(), err)
	}

	return &Identity{
		PrincipalID: p.ID,
		Kind:        p.Kind,
		Email:       p.Email,
		DisplayName: p.DisplayName,
	}, nil
}

// Require wraps next so it only runs for authenticated requests of the
// guard's kind, with the Identity attached to the request context.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authenticate(r)
		if errors.Is(err, ErrUnauthenticated) {
			writeJSONError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		if err != nil {
			g.logger.Error("session lookup failed", "error", err, "path", r.URL.Path)
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// writeJSONError writes a {"error": msg} body. Messages are fixed strings
// chosen by this package, so no escaping is needed.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}` + "\n"))
}
