package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// DefaultIssuer is used for both iss and aud when the config leaves them empty.
const DefaultIssuer = "readjourney"

type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Subject is the verified principal carried by a backend token.
type Subject struct {
	UserID    string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 backend tokens.
type Issuer struct {
	cfg Config
	now func() time.Time
}

func NewIssuer(cfg Config, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultIssuer
	}
	return &Issuer{cfg: cfg, now: now}
}

func (i *Issuer) Issue(userID, email, name string) (string, error) {
	now := i.now()
	c := claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) Verify(raw string) (Subject, error) {
	c := &claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) {
		return []byte(i.cfg.Secret), nil
	})
	if err != nil {
		return Subject{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Subject{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Subject{UserID: c.Subject, Email: c.Email, Name: c.Name, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Expired reports whether raw is a JWT whose exp claim lies before now. Tokens
// that are not JWTs, or carry no exp, are opaque and never reported as expired.
// The signature is not checked; only the issuing backend can do that.
func Expired(raw string, now time.Time) bool {
	c := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, c); err != nil {
		return false
	}
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}
