package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers both tampered and expired tokens. Callers never
// branch on the difference, so the codec does not expose one.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed credential payload. Fingerprint carries the bcrypt
// hash current at issue time; one-time links become useless as soon as the
// password changes because the fingerprint no longer matches.
type Claims struct {
	Username    string `json:"username"`
	Fingerprint string `json:"password"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 tokens with a shared secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Issue signs a claim for username expiring after the codec's default TTL.
func (c *Codec) Issue(username, fingerprint string) (string, error) {
	return c.IssueWithTTL(username, fingerprint, c.ttl)
}

// IssueWithTTL signs a claim with an explicit lifetime, used for the
// shorter-lived reset and first-login links.
func (c *Codec) IssueWithTTL(username, fingerprint string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Username:    username,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			// A fresh ID makes back-to-back logins mint distinct tokens,
			// so caching the newest one really does evict the previous.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks signature and expiry and returns the decoded claims.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
