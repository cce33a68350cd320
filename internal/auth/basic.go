package auth

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Login form field names accepted by FormLogin.
const (
	FormUsername = "username"
	FormPassword = "password"
)

// BasicAuthenticator checks admin usernames against bcrypt-hashed passwords.
type BasicAuthenticator struct {
	users map[string]string // username -> bcrypt hash
}

// NewBasicAuthenticator parses a "user1:hash1,user2:hash2" admin list. The
// username ends at the first colon; bcrypt hashes never contain one.
func NewBasicAuthenticator(usersConfig string) (*BasicAuthenticator, error) {
	trimmed := strings.TrimSpace(usersConfig)
	if trimmed == "" {
		return nil, fmt.Errorf("basic auth: users config must not be empty")
	}

	users := make(map[string]string)
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		username, hash, found := strings.Cut(entry, ":")
		if !found {
			return nil, fmt.Errorf("basic auth: invalid entry format, expected user:hash")
		}
		if username == "" || hash == "" {
			return nil, fmt.Errorf("basic auth: username and hash must not be empty")
		}

		users[username] = hash
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("basic auth: no valid user entries found")
	}

	return &BasicAuthenticator{users: users}, nil
}

// Authenticate checks the HTTP Basic credentials of the request.
func (a *BasicAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrUnauthenticated
	}
	return a.Verify(username, password)
}

// Verify checks one username and password pair.
func (a *BasicAuthenticator) Verify(username, password string) (*AuthInfo, error) {
	hash, exists := a.users[username]
	if !exists {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
	}

	return &AuthInfo{
		Method:  AuthMethodBasic,
		Subject: username,
	}, nil
}

// Method returns the authentication method type.
func (a *BasicAuthenticator) Method() AuthMethod {
	return AuthMethodBasic
}

// FormLogin accepts the credentials of the admin login form, falling back to
// an HTTP Basic header. It is meant for the login endpoint only, since it
// parses the request body.
type FormLogin struct {
	users *BasicAuthenticator
}

// NewFormLogin wraps users for the login endpoint.
func NewFormLogin(users *BasicAuthenticator) *FormLogin {
	return &FormLogin{users: users}
}

// Authenticate checks the username and password form fields, or the Basic
// header when the form carries no username.
func (f *FormLogin) Authenticate(r *http.Request) (*AuthInfo, error) {
	if username := r.PostFormValue(FormUsername); username != "" {
		return f.users.Verify(username, r.PostFormValue(FormPassword))
	}
	return f.users.Authenticate(r)
}

// Method returns the authentication method type.
func (f *FormLogin) Method() AuthMethod {
	return AuthMethodBasic
}
