package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Config carries the signing secret and token lifetime. It is injected at
// construction; nothing in this package reads ambient state.
type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// Tokens issues and verifies the HMAC-signed bearer tokens the API uses.
type Tokens struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// ErrInvalidToken covers expired, malformed and wrongly signed tokens alike;
// callers get no detail beyond "not valid".
var ErrInvalidToken = errors.New("invalid token")

// NewTokens returns a token issuer/verifier for the given config.
func NewTokens(cfg Config) (*Tokens, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Tokens{secret: []byte(cfg.Secret), ttl: ttl, nowFunc: time.Now}, nil
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Issue signs a token for the identity.
func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.nowFunc()
	c := claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the identity it carries.
func (t *Tokens) Verify(token string) (*Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.nowFunc))
	if err != nil || !parsed.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: c.Subject, Email: c.Email, Name: c.Name}, nil
}
