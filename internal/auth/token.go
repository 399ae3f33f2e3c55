// ABOUTME: Session token codec issuing and verifying HS256 JWTs
// ABOUTME: Tokens carry the principal id and kind and expire after a fixed window

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389/storefront-gateway/internal/store"
)

// Issuer is written to and required in the iss claim.
const Issuer = "storefront-gateway"

// MinSecretLength is the minimum HMAC secret length in bytes.
const MinSecretLength = 32

// Token errors
var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// wrong algorithm, malformed payload, missing claims and expiry.
	// Callers cannot tell them apart.
	ErrInvalidToken = errors.New("invalid token")

	ErrWeakSecret = fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Kind store.PrincipalKind `json:"kind"`
}

// PrincipalID returns the sub claim.
func (c *SessionClaims) PrincipalID() string {
	return c.Subject
}

// TokenCodec signs and verifies session tokens with a shared secret.
// It does no I/O; the current time is always passed in.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec creates a codec. Tokens it issues are valid for ttl.
func NewTokenCodec(secret []byte, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %v", ttl)
	}
	// exp is a whole-second claim; a fractional ttl would make the
	// reported expiry disagree with the token.
	if ttl%time.Second != 0 {
		return nil, fmt.Errorf("token ttl must be a whole number of seconds, got %v", ttl)
	}
	// Copy so later mutation of the caller's slice can't change the key
	s := make([]byte, len(secret))
	copy(s, secret)
	return &TokenCodec{secret: s, ttl: ttl}, nil
}

// TTL returns the validity window of issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the principal. The returned expiry is
// now (truncated to whole seconds) plus the codec's ttl.
func (c *TokenCodec) Issue(principalID string, kind store.PrincipalKind, now time.Time) (string, time.Time, error) {
	if principalID == "" {
		return "", time.Time{}, errors.New("principal id is required")
	}
	if !kind.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: %q", store.ErrInvalidKind, kind)
	}

	issuedAt := now.UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(c.ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind: kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the token's signature and claims at the given instant.
// A token is valid while now is strictly before its exp claim.
func (c *TokenCodec) Verify(tokenString string, now time.Time) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(Issuer),
		jwt.WithStrictDecoding(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || !claims.Kind.Valid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
