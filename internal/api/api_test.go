// ABOUTME: Tests for the storefront HTTP API
// ABOUTME: Drives the chi router with httptest against MockStore and real SQLite

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/storefront-gateway/internal/auth"
	"github.com/2389/storefront-gateway/internal/store"
)

var testSecret = []byte("storefront-api-test-secret-32b!!")

type testEnv struct {
	server *Server
	store  store.CredentialStore
	auth   *auth.Authenticator
	now    time.Time
}

type envOption func(*Config)

func withFederatedVerifier(v auth.IdentityVerifier) envOption {
	return func(c *Config) { c.FederatedVerifier = v }
}

func withOrigins(origins ...string) envOption {
	return func(c *Config) { c.AllowedOrigins = origins }
}

func newTestEnv(t *testing.T, environment string, s store.CredentialStore, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{store: s, now: time.Now().UTC()}
	clock := func() time.Time { return env.now }

	codec, err := auth.NewTokenCodec(testSecret, 24*time.Hour)
	require.NoError(t, err)
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	env.auth, err = auth.NewAuthenticator(auth.AuthenticatorConfig{Store: s, Codec: codec, Hasher: hasher, Now: clock})
	require.NoError(t, err)

	cfg := Config{
		Authenticator: env.auth,
		Store:         s,
		Cookies:       auth.NewCookiePolicy(environment, codec.TTL()),
		UserGuard:     auth.NewGuard(auth.GuardConfig{CookieName: auth.UserCookieName, Kind: store.KindUser, Codec: codec, Store: s, Now: clock}),
		AdminGuard:    auth.NewGuard(auth.GuardConfig{CookieName: auth.AdminCookieName, Kind: store.KindAdmin, Codec: codec, Store: s, Now: clock}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	env.server, err = New(cfg)
	require.NoError(t, err)
	return env
}

func (e *testEnv) createPrincipal(t *testing.T, kind store.PrincipalKind, email, password string) *store.Principal {
	t.Helper()
	p, err := e.auth.Register(context.Background(), auth.RegisterRequest{Kind: kind, Email: email, Password: password, DisplayName: "Tester"})
	require.NoError(t, err)
	return p
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), "body: %s", rec.Body.String())
	return m
}

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAdminLoginScenario(t *testing.T) {
	env := newTestEnv(t, "production", newSQLiteStore(t))
	env.createPrincipal(t, store.KindAdmin, "a@x.com", "secret123")

	// Login
	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "a@x.com", body["email"])

	cookie := findCookie(rec, auth.AdminCookieName)
	require.NotNil(t, cookie, "adminToken cookie not set")
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	assert.Equal(t, 86400, cookie.MaxAge)
	assert.Nil(t, findCookie(rec, auth.UserCookieName))

	// Dashboard with the cookie
	rec = env.do(t, http.MethodGet, "/api/admin/dashboard", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", decodeBody(t, rec)["email"])

	rec = env.do(t, http.MethodGet, "/admin-dashboard", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to admin dashboard", rec.Body.String())

	// The admin session does not open shopper pages
	rec = env.do(t, http.MethodGet, "/", nil, &http.Cookie{Name: auth.UserCookieName, Value: cookie.Value})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout clears the cookie
	rec = env.do(t, http.MethodPost, "/api/admin/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful", decodeBody(t, rec)["message"])
	cleared := findCookie(rec, auth.AdminCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestAdminLogin_WrongPasswordSetsNoCookie(t *testing.T) {
	env := newTestEnv(t, "development", store.NewMockStore())
	env.createPrincipal(t, store.KindAdmin, "a@x.com", "secret123")

	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "a@x.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, "invalid email or password", decodeBody(t, rec)["error"])
}

func TestLogin_UnknownEmailMatchesWrongPassword(t *testing.T) {
	env := newTestEnv(t, "development", store.NewMockStore())
	env.createPrincipal(t, store.KindUser, "u@x.com", "secret123")

	for _, path := range []string{"/api/user/login", "/api/admin/login"} {
		unknown := env.do(t, http.MethodPost, path, map[string]string{"email": "nobody@x.com", "password": "secret123"})
		wrong := env.do(t, http.MethodPost, path, map[string]string{"email": "u@x.com", "password": "not-it-123"})

		assert.Equal(t, http.StatusUnauthorized, unknown.Code, path)
		assert.Equal(t, unknown.Code, wrong.Code, path)
		assert.Equal(t, unknown.Body.String(), wrong.Body.String(), path)
	}
}

func TestLogin_MalformedBody(t *testing.T) {
	env := newTestEnv(t, "development", store.NewMockStore())

	rec := env.do(t, http.MethodPost, "/api/user/login", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request", decodeBody(t, rec)["error"])
}

func TestLogin_StorageFault(t *testing.T) {
	s := store.NewMockStore()
	env := newTestEnv(t, "development", s)
	s.SetErr(assert.AnError)

	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "a@x.com", "password": "secret123"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeBody(t, rec)["error"])
	assert.Empty(t, rec.Result().Cookies())
}

func TestGuardedRoutes_Unauthenticated(t *testing.T) {
	env := newTestEnv(t, "development", store.NewMockStore())

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/admin/dashboard"},
		{http.MethodPost, "/api/admin/logout"},
		{http.MethodGet, "/admin-order"},
		{http.MethodGet, "/admin-product-dashboard"},
		{http.MethodGet, "/api/user/me"},
		{http.MethodPost, "/api/user/logout"},
		{http.MethodGet, "/"},
		{http.MethodGet, "/all-product"},
		{http.MethodGet, "/product-cart"},
		{http.MethodGet, "/product-history"},
		{http.MethodGet, "/cart"},
	}
	for _, rt := range routes {
		rec := env.do(t, rt.method, rt.path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", rt.method, rt.path)
		assert.Equal(t, "not logged in", decodeBody(t, rec)["error"], "%s %s", rt.method, rt.path)
	}
}

func TestUserSession_CrossKindRejected(t *testing.T) {
	env := newTestEnv(t, "development", store.NewMockStore())
	env.createPrincipal(t, store.KindUser, "u@x.com", "secret123")

	rec := env.do(t, http.MethodPost, "/api/user/login", map[string]string{"email": "u@x.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	userCookie := findCookie(rec, auth.UserCookieName)
	require.NotNil(t, userCookie)
	assert.False(t, userCookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, userCookie.SameSite)

	// User token presented under the admin cookie name
	forged := &http.Cookie{Name: auth.AdminCookieName, Value: userCookie.Value}
	rec = env.do(t, http.MethodGet, "/api/admin/dashboard", nil, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// And under its own name on an admin route
	rec = env.do(t, http.MethodGet, "/admin-dashboard", nil, userCookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Still good for shopper routes
	rec = env.do(t, http.MethodGet, "/cart", nil, userCookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to cart", rec.Body.String())
}

func TestSessionExpiresAfterWindow(t *testing.T) {
	env := newTestEnv(t, "development", store.NewMockStore())
	env.createPrincipal(t, store.KindUser, "u@x.com", "secret123")

	rec := env.do(t, http.MethodPost, "/api/user/login", map[string]string{"email": "u@x.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, auth.UserCookieName)
	require.NotNil(t, cookie)

	env.now = env.now.Add(23 * time.Hour)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/user/me", nil, cookie).Code)

	env.now = env.now.Add(2 * time.Hour)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/user/me", nil, cookie).Code)
}

func TestUserRegisterAndMe(t *testing.T) {
	env := newTestEnv(t, "development", newSQLiteStore(t))

	rec := env.do(t, http.MethodPost, "/api/user/register", map[string]string{
		"username": "Shopper", "email": "Shopper@X.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "shopper@x.com", decodeBody(t, rec)["email"])
	assert.Empty(t, rec.Result().Cookies(), "registration must not start a session")

	rec = env.do(t, http.MethodPost, "/api/user/register", map[string]string{
		"username": "Again", "email": "shopper@x.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/user/register", map[string]string{
		"username": "Short", "email": "short@x.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/user/login", map[string]string{"email": "shopper@x.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, auth.UserCookieName)
	require.NotNil(t, cookie)

	rec = env.do(t, http.MethodGet, "/api/user/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	assert.Equal(t, "shopper@x.com", me["email"])
	assert.Equal(t, "Shopper", me["username"])
	assert.NotEmpty(t, me["id"])

	rec = env.do(t, http.MethodPost, "/api/user/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := findCookie(rec, auth.UserCookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestCheckEmail(t *testing.T) {
	env := newTestEnv(t, "development", store.NewMockStore())
	env.createPrincipal(t, store.KindUser, "taken@x.com", "secret123")

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/user/check-email", map[string]string{"email": "taken@x.com"}).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/user/check-email", map[string]string{"email": "free@x.com"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/user/check-email", map[string]string{"email": "nope"}).Code)
}

func TestGoogleLogin_TrustedBody(t *testing.T) {
	s := store.NewMockStore()
	env := newTestEnv(t, "development", s)

	req := map[string]string{"email": "g@gmail.com", "username": "G Shopper"}
	first := env.do(t, http.MethodPost, "/api/user/google-login", req)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	require.NotNil(t, findCookie(first, auth.UserCookieName))

	second := env.do(t, http.MethodPost, "/api/user/google-login", req)
	require.Equal(t, http.StatusOK, second.Code)

	count, err := s.Count(context.Background(), store.KindUser)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "second federated login must reuse the record")

	p, err := s.FindByEmail(context.Background(), store.KindUser, "g@gmail.com")
	require.NoError(t, err)
	assert.True(t, p.Federated)
	assert.Empty(t, p.PasswordHash)

	// A federated-only account cannot use password login
	rec := env.do(t, http.MethodPost, "/api/user/login", map[string]string{"email": "g@gmail.com", "password": ""})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleRegister(t *testing.T) {
	env := newTestEnv(t, "development", store.NewMockStore())

	req := map[string]string{"email": "g@gmail.com", "username": "G"}
	rec := env.do(t, http.MethodPost, "/api/user/google-register", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = env.do(t, http.MethodPost, "/api/user/google-register", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

type stubVerifier struct {
	ident *auth.FederatedIdentity
	err   error
	seen  string
}

func (v *stubVerifier) VerifyIdentity(ctx context.Context, credential string) (*auth.FederatedIdentity, error) {
	v.seen = credential
	return v.ident, v.err
}

func TestGoogleLogin_VerifiedCredential(t *testing.T) {
	v := &stubVerifier{ident: &auth.FederatedIdentity{Email: "verified@gmail.com", DisplayName: "Verified"}}
	s := store.NewMockStore()
	env := newTestEnv(t, "development", s, withFederatedVerifier(v))

	// Body email is ignored in favour of the verified claim
	rec := env.do(t, http.MethodPost, "/api/user/google-login", map[string]string{
		"credential": "id-token", "email": "attacker@x.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "verified@gmail.com", decodeBody(t, rec)["email"])
	assert.Equal(t, "id-token", v.seen)

	_, err := s.FindByEmail(context.Background(), store.KindUser, "attacker@x.com")
	assert.ErrorIs(t, err, store.ErrPrincipalNotFound)

	// Missing credential
	rec = env.do(t, http.MethodPost, "/api/user/google-login", map[string]string{"email": "verified@gmail.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Rejected credential
	v.err = auth.ErrUnverifiedIdentity
	rec = env.do(t, http.MethodPost, "/api/user/google-login", map[string]string{"credential": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestDeletedPrincipalLosesAccess(t *testing.T) {
	s := newSQLiteStore(t)
	env := newTestEnv(t, "development", s)
	admin := env.createPrincipal(t, store.KindAdmin, "a@x.com", "secret123")

	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, auth.AdminCookieName)

	require.NoError(t, s.Delete(context.Background(), store.KindAdmin, admin.ID))

	rec = env.do(t, http.MethodGet, "/api/admin/dashboard", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORS_AllowsConfiguredOriginWithCredentials(t *testing.T) {
	env := newTestEnv(t, "production", store.NewMockStore(), withOrigins("https://shop.example.com"))

	req := httptest.NewRequest(http.MethodOptions, "/api/user/login", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/user/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	s := store.NewMockStore()
	env := newTestEnv(t, "development", s)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", nil).Code)

	s.SetErr(assert.AnError)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/health/ready", nil).Code)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
