package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Principal identifies the authenticated caller of a request.
type Principal struct {
	Subject string
	Claims  map[string]any
}

// ErrMissingToken reports a request with no bearer token.
var ErrMissingToken = errors.New("auth: missing authorization token")

// InvalidTokenError carries the validation failure cause for diagnostics.
type InvalidTokenError struct {
	Err error
}

func (e *InvalidTokenError) Error() string { return "auth: invalid token: " + e.Err.Error() }

func (e *InvalidTokenError) Unwrap() error { return e.Err }

// Authenticator validates a bearer token into a Principal. The strategy is
// selected once at startup: enforced validation when an identity pool is
// configured, anonymous passthrough otherwise.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// AnonymousPassthrough treats every caller as a fixed anonymous principal.
// Used in development mode, when no identity pool is configured.
type AnonymousPassthrough struct{}

func (AnonymousPassthrough) Authenticate(context.Context, string) (Principal, error) {
	return Principal{Subject: "anonymous"}, nil
}

// EnforcedTokenAuth validates RS256 bearer tokens against the identity
// provider's key set, expected audience and expected issuer.
type EnforcedTokenAuth struct {
	keys     *KeySet
	audience string
	issuer   string
}

// NewEnforcedTokenAuth creates an EnforcedTokenAuth strategy.
func NewEnforcedTokenAuth(keys *KeySet, audience, issuer string) (*EnforcedTokenAuth, error) {
	if keys == nil {
		return nil, errors.New("auth: key set must not be nil")
	}
	if audience == "" || issuer == "" {
		return nil, errors.New("auth: audience and issuer must not be empty")
	}
	return &EnforcedTokenAuth{keys: keys, audience: audience, issuer: issuer}, nil
}

func (a *EnforcedTokenAuth) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no key id")
		}
		return a.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(a.audience),
		jwt.WithIssuer(a.issuer),
	)
	if err != nil {
		return Principal{}, &InvalidTokenError{Err: err}
	}
	if !parsed.Valid {
		return Principal{}, &InvalidTokenError{Err: errors.New("token is not valid")}
	}

	sub, _ := claims["sub"].(string)
	return Principal{Subject: sub, Claims: claims}, nil
}
