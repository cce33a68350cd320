// Package session carries the admin authorization that gates content mutations.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/auth"
)

// Session is the authorization state of one caller. The zero value is an
// anonymous visitor.
type Session struct {
	Subject string
	Admin   bool
}

// Anonymous is a session without admin rights.
var Anonymous = Session{}

// AdminSession returns an admin session for subject.
func AdminSession(subject string) Session {
	return Session{Subject: subject, Admin: true}
}

// IsAdmin reports whether the session may mutate content.
func (s Session) IsAdmin() bool {
	return s.Admin
}

// Session errors.
var (
	ErrLoginDisabled = errors.New("admin login is disabled")
	ErrNotLoggedIn   = errors.New("not logged in")
)

const subjectKey = "admin_subject"

// Manager resolves the Session of a request. A request is admin when its
// cookie session was logged in through Login, or when the per-request
// authenticator accepts its credentials.
type Manager struct {
	sessions      *scs.SessionManager
	login         auth.Authenticator
	authenticator auth.Authenticator
	logger        *zap.Logger
}

// NewManager creates a session Manager. login checks credentials submitted to
// Login; authenticator checks credentials sent with each request. Either may
// be nil, which disables that path.
func NewManager(
	lifetime time.Duration,
	login auth.Authenticator,
	authenticator auth.Authenticator,
	logger *zap.Logger,
) *Manager {
	sessions := scs.New()
	sessions.Lifetime = lifetime
	sessions.Cookie.Name = "sitecms_session"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	return &Manager{
		sessions:      sessions,
		login:         login,
		authenticator: authenticator,
		logger:        logger,
	}
}

// Middleware loads and commits cookie sessions and stores the resolved
// Session in the request context for FromContext. WebSocket upgrades skip
// the cookie session so the connection can be hijacked.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	withCookie := m.sessions.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Current(r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	}))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		withCookie.ServeHTTP(w, r)
	})
}

// Login checks the request credentials and marks the cookie session as admin.
func (m *Manager) Login(r *http.Request) (Session, error) {
	if m.login == nil {
		return Anonymous, ErrLoginDisabled
	}

	info, err := m.login.Authenticate(r)
	if err != nil {
		return Anonymous, fmt.Errorf("admin login: %w", err)
	}

	// Renew the token on privilege change to prevent session fixation.
	if err := m.sessions.RenewToken(r.Context()); err != nil {
		return Anonymous, fmt.Errorf("renewing session token: %w", err)
	}
	m.sessions.Put(r.Context(), subjectKey, info.Subject)

	m.logger.Info("admin logged in", zap.String("subject", info.Subject))
	return AdminSession(info.Subject), nil
}

// Logout clears the admin flag of the cookie session.
func (m *Manager) Logout(r *http.Request) error {
	subject := m.sessions.GetString(r.Context(), subjectKey)
	if subject == "" {
		return ErrNotLoggedIn
	}

	if err := m.sessions.Destroy(r.Context()); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}

	m.logger.Info("admin logged out", zap.String("subject", subject))
	return nil
}

// Current returns the Session of the request.
func (m *Manager) Current(r *http.Request) Session {
	if subject := m.sessions.GetString(r.Context(), subjectKey); subject != "" {
		return AdminSession(subject)
	}

	if info, ok := auth.FromContext(r.Context()); ok {
		return AdminSession(info.Subject)
	}

	if m.authenticator == nil {
		return Anonymous
	}

	info, err := m.authenticator.Authenticate(r)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			m.logger.Debug("request credentials rejected",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		return Anonymous
	}

	return AdminSession(info.Subject)
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the Session stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionKey).(Session); ok {
		return s
	}
	return Anonymous
}
