// ABOUTME: Session cookie policy choosing cookie attributes per deployment environment
// ABOUTME: Writes and clears the userToken/adminToken cookies

package auth

import (
	"net/http"
	"strings"
	"time"
)

// Session cookie names, one per principal kind.
const (
	UserCookieName  = "userToken"
	AdminCookieName = "adminToken"
)

// CookieAttributes are the security attributes applied to a session cookie.
type CookieAttributes struct {
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
	Path     string
}

// AttributesFor returns the cookie attributes for an environment.
// Production serves a cross-origin frontend over TLS, so cookies are Secure
// with SameSite=None. Every other environment runs same-site over plain
// HTTP and gets SameSite=Lax.
func AttributesFor(env string, maxAge time.Duration) CookieAttributes {
	attrs := CookieAttributes{
		HTTPOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
		Path:     "/",
	}
	if strings.EqualFold(strings.TrimSpace(env), "production") {
		attrs.Secure = true
		attrs.SameSite = http.SameSiteNoneMode
	}
	return attrs
}

// CookiePolicy writes session cookies with fixed attributes.
type CookiePolicy struct {
	attrs CookieAttributes
}

// NewCookiePolicy builds a policy for env whose cookies live for maxAge.
func NewCookiePolicy(env string, maxAge time.Duration) *CookiePolicy {
	return &CookiePolicy{attrs: AttributesFor(env, maxAge)}
}

// Attributes returns the attributes the policy applies.
func (p *CookiePolicy) Attributes() CookieAttributes {
	return p.attrs
}

// Set writes the named session cookie carrying token.
func (p *CookiePolicy) Set(w http.ResponseWriter, name, token string) {
	http.SetCookie(w, p.cookie(name, token, int(p.attrs.MaxAge/time.Second)))
}

// Clear tells the browser to drop the named cookie. The attributes must
// match the ones it was set with or some browsers keep the old cookie.
func (p *CookiePolicy) Clear(w http.ResponseWriter, name string) {
	c := p.cookie(name, "", -1)
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

func (p *CookiePolicy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     p.attrs.Path,
		MaxAge:   maxAge,
		HttpOnly: p.attrs.HTTPOnly,
		Secure:   p.attrs.Secure,
		SameSite: p.attrs.SameSite,
	}
}
