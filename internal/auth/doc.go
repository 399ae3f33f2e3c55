// Package auth implements storefront session authentication.
//
// # Sessions
//
// A session is an HS256 JWT (TokenCodec) naming a principal id and kind,
// valid for a fixed window (24h by default) and carried in an HttpOnly
// cookie: userToken for shoppers, adminToken for administrators. Tokens are
// never stored server-side and cannot be revoked before they expire;
// deleting the principal is the only way to cut a session short.
//
// # Cookie attributes
//
// CookiePolicy derives Secure and SameSite from the deployment environment.
// Production cookies are Secure with SameSite=None so a frontend on another
// origin can send them; development cookies are SameSite=Lax over HTTP.
//
// # Login
//
// Authenticator.LoginWithPassword answers every credential mismatch with
// ErrInvalidCredentials and runs one bcrypt comparison on every path.
// LoginWithFederatedIdentity finds or creates a password-less user for an
// email vouched for by an IdentityVerifier (Google via go-oidc).
//
// # Guards
//
// Guard is mounted once per kind. It reads its cookie, verifies the token,
// rejects tokens of the other kind, re-reads the principal so deleted
// accounts lose access, and attaches an Identity to the request context:
//
//	r.With(userGuard.Require).Get("/api/user/me", handleMe)
//
//	func handleMe(w http.ResponseWriter, r *http.Request) {
//	    id := auth.MustIdentityFromContext(r.Context())
//	    ...
//	}
package auth
