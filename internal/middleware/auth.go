package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/auth"
	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/session"
)

// Realm is the HTTP Basic realm of the admin area.
const Realm = "sitecms"

// RequireAdmin rejects requests whose session is not admin. It must run
// inside the session middleware. method selects the challenge sent back:
// with AuthMethodNone nobody can sign in, so the answer is 403 instead of
// a 401 challenge. CORS preflight requests pass through.
func RequireAdmin(method auth.AuthMethod, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			s := session.FromContext(r.Context())
			if s.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("admin access denied",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", getRequestID(r)),
			)
			writeAuthError(w, method)
		})
	}
}

func writeAuthError(w http.ResponseWriter, method auth.AuthMethod) {
	w.Header().Set("Content-Type", "application/json")

	code := http.StatusUnauthorized
	message := auth.ErrUnauthenticated.Error()

	switch method {
	case auth.AuthMethodBasic:
		w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
	case auth.AuthMethodAPIKey:
		w.Header().Set("WWW-Authenticate", "API-Key")
	case auth.AuthMethodMulti:
		w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`", API-Key`)
	default:
		code = http.StatusForbidden
		message = "admin access is disabled"
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Code: code, Message: message})
}
