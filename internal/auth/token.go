// Package auth verifies the HS256 bearer tokens issued to clinic staff and turns
// them into a request actor.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/requestctx"
)

const bearerPrefix = "bearer "

var (
	ErrMissingToken     = errors.New("missing_token")
	ErrInvalidToken     = errors.New("invalid_token")
	ErrInvalidClaims    = errors.New("invalid_token_claims")
	ErrSecretNotDefined = errors.New("auth_secret_not_configured")
)

// Claims carries the staff member id in sub and the clinic role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	clock  clock.Clock
}

func NewVerifier(cfg config.Config, clk clock.Clock) (*Verifier, error) {
	if cfg.AuthJWTSecret == "" && cfg.IsProduction() {
		return nil, ErrSecretNotDefined
	}
	return &Verifier{secret: []byte(cfg.AuthJWTSecret), clock: clk}, nil
}

// FromHeader verifies an Authorization header value.
func (v *Verifier) FromHeader(header string) (requestctx.Actor, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return requestctx.Actor{}, ErrMissingToken
	}
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return requestctx.Actor{}, ErrInvalidToken
	}
	return v.Verify(strings.TrimSpace(header[len(bearerPrefix):]))
}

func (v *Verifier) Verify(raw string) (requestctx.Actor, error) {
	if len(v.secret) == 0 {
		return requestctx.Actor{}, ErrSecretNotDefined
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return requestctx.Actor{}, ErrInvalidToken
	}

	subject := strings.TrimSpace(claims.Subject)
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if subject == "" || role == "" {
		return requestctx.Actor{}, ErrInvalidClaims
	}
	return requestctx.Actor{UserID: subject, Role: role}, nil
}

// Issue signs a token for userID. Used by the CLI to mint staff tokens.
func (v *Verifier) Issue(userID, role string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrSecretNotDefined
	}
	now := v.clock.Now()
	claims := Claims{
		Role: strings.ToLower(strings.TrimSpace(role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
