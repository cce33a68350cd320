// Package auth verifies the credentials of site administrators.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// AuthMethod represents the authentication method used.
type AuthMethod string

const (
	// AuthMethodNone disables admin credentials; the site is read-only.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBasic indicates HTTP Basic or login form credentials.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodAPIKey indicates API key authentication.
	AuthMethodAPIKey AuthMethod = "apikey"
	// AuthMethodMulti indicates that basic and API key are both accepted.
	AuthMethodMulti AuthMethod = "multi"
)

// AuthInfo holds an authenticated admin identity.
type AuthInfo struct {
	Method  AuthMethod
	Subject string
}

// Authenticator validates a request and returns auth info.
type Authenticator interface {
	Authenticate(r *http.Request) (*AuthInfo, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownMode        = errors.New("unknown auth mode")
	ErrNoAuthenticators   = errors.New("multi auth mode requires basic users or API keys")
)

// Authenticators is the pair of authenticators a mode resolves to. Login
// checks credentials posted to the login endpoint and may be nil when the
// mode has no user accounts. Request checks credentials sent with every
// request. Both are nil for AuthMethodNone.
type Authenticators struct {
	Login   Authenticator
	Request Authenticator
}

// New builds the authenticators for mode from the configured basic users
// ("user:bcrypt_hash,...") and API keys ("key:name,...").
func New(mode, users, keys string) (Authenticators, error) {
	switch AuthMethod(mode) {
	case AuthMethodNone, "":
		return Authenticators{}, nil
	case AuthMethodBasic:
		basic, err := NewBasicAuthenticator(users)
		if err != nil {
			return Authenticators{}, err
		}
		return Authenticators{Login: NewFormLogin(basic), Request: basic}, nil
	case AuthMethodAPIKey:
		apiKeys, err := NewAPIKeyAuthenticator(keys)
		if err != nil {
			return Authenticators{}, err
		}
		return Authenticators{Request: apiKeys}, nil
	case AuthMethodMulti:
		return newMulti(users, keys)
	default:
		return Authenticators{}, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
}

func newMulti(users, keys string) (Authenticators, error) {
	var (
		result         Authenticators
		authenticators []Authenticator
	)

	if users != "" {
		basic, err := NewBasicAuthenticator(users)
		if err != nil {
			return Authenticators{}, fmt.Errorf("creating basic authenticator: %w", err)
		}
		result.Login = NewFormLogin(basic)
		authenticators = append(authenticators, basic)
	}

	if keys != "" {
		apiKeys, err := NewAPIKeyAuthenticator(keys)
		if err != nil {
			return Authenticators{}, fmt.Errorf("creating API key authenticator: %w", err)
		}
		authenticators = append(authenticators, apiKeys)
	}

	if len(authenticators) == 0 {
		return Authenticators{}, ErrNoAuthenticators
	}

	result.Request = NewMultiAuthenticator(authenticators...)
	return result, nil
}

// contextKey is the type for context keys in this package.
type contextKey string

// authInfoKey is the context key for AuthInfo.
const authInfoKey contextKey = "auth_info"

// FromContext retrieves AuthInfo from the context.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*AuthInfo)
	return info, ok
}

// WithAuthInfo stores AuthInfo in the context.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}
