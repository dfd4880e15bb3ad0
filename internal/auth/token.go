package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "fairshare"

var ErrInvalidToken = errors.New("invalid token")

// Tokens issues and verifies HS256 bearer tokens whose subject is a partner
// id. Logging in is handled elsewhere; these tokens only carry identity.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue signs a token for partnerID. A zero ttl never expires.
func (t *Tokens) Issue(partnerID string) (string, error) {
	if partnerID == "" {
		return "", fmt.Errorf("issue token: empty partner id")
	}
	now := t.now()
	c := claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:   tokenIssuer,
		Subject:  partnerID,
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
	}}
	if t.ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry and returns the identity.
func (t *Tokens) Verify(token string) (AuthContext, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AuthContext{}, ErrInvalidToken
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return AuthContext{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return AuthContext{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return AuthContext{PartnerID: c.Subject, TokenID: c.ID}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
