package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/auth"
	"github.com/vyrodovalexey/sitecms/internal/content"
	"github.com/vyrodovalexey/sitecms/internal/middleware"
	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/payload"
	"github.com/vyrodovalexey/sitecms/internal/render"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
	"github.com/vyrodovalexey/sitecms/internal/status"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

// subjectHeader marks a test request as coming from a logged-in admin.
const subjectHeader = "X-Test-Subject"

// pngHeader is enough of a PNG file for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

var homeSlides = []model.SlideItem{
	{ID: "default-1", Src: "https://images.example.com/1.jpg"},
	{ID: "default-2", Src: "https://images.example.com/2.jpg"},
	{ID: "default-3", Src: "https://images.example.com/3.jpg"},
}

type testEnv struct {
	store    *store.MemoryStore
	registry *slideshow.Registry
	board    *status.Board
	cache    *render.Cache
	hub      *WebSocketHandler
	site     *content.Site
	rest     *RESTHandler
	router   *mux.Router
}

// fakeSessions is a SessionManager that accepts one password.
type fakeSessions struct{}

func (fakeSessions) Login(r *http.Request) (session.Session, error) {
	user, password, ok := r.BasicAuth()
	if !ok || password != "secret" {
		return session.Anonymous, auth.ErrInvalidCredentials
	}
	return session.AdminSession(user), nil
}

func (fakeSessions) Logout(r *http.Request) error {
	if !session.FromContext(r.Context()).IsAdmin() {
		return session.ErrNotLoggedIn
	}
	return nil
}

// withTestSession resolves the session from subjectHeader.
func withTestSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.Anonymous
		if subject := r.Header.Get(subjectHeader); subject != "" {
			s = session.AdminSession(subject)
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
	})
}

// newTestEnv wires a mounted "home" slideshow, an unmounted "team"
// slideshow and the site content over a memory store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	env := &testEnv{
		store:    store.NewMemoryStore(store.DefaultQuota),
		registry: slideshow.NewRegistry(),
		cache:    render.NewCache(),
	}
	env.hub = NewWebSocketHandler(env.registry, logger)
	env.board = status.NewBoard(logger, env.hub)
	env.site = content.NewSite(env.store, logger)

	pages, err := render.NewPages()
	if err != nil {
		t.Fatalf("NewPages() unexpected error: %v", err)
	}

	shows := []struct {
		name     string
		key      string
		renderer slideshow.Renderer
	}{
		{name: "home", key: "test-home-slideshow", renderer: render.Fanout{env.cache, render.NewPush(env.hub, logger)}},
		{name: "team", key: "test-team-slideshow"},
	}
	for _, show := range shows {
		m := slideshow.New(slideshow.Config{
			Name:         show.name,
			StorageKey:   show.key,
			DefaultItems: homeSlides,
			Dwell:        time.Hour,
		}, slideshow.Deps{
			Storage:  env.store,
			Renderer: show.renderer,
			Notifier: env.board.For(show.name),
			Payload:  payload.DataURLReader{MaxBytes: slideshow.DefaultMaxUploadBytes},
			Logger:   logger,
		})
		if err := env.registry.Register(m); err != nil {
			t.Fatalf("Register() unexpected error: %v", err)
		}
	}

	t.Cleanup(func() {
		env.hub.CloseAllConnections()
		env.registry.Close()
		env.board.Close()
	})

	ctx := context.Background()
	if err := env.registry.InitAll(ctx); err != nil {
		t.Fatalf("InitAll() unexpected error: %v", err)
	}
	if err := env.site.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() unexpected error: %v", err)
	}

	env.router = mux.NewRouter()
	env.router.Use(withTestSession)
	admin := env.router.NewRoute().Subrouter()
	admin.Use(mux.MiddlewareFunc(middleware.RequireAdmin(auth.AuthMethodBasic, logger)))

	env.rest = NewRESTHandler(env.registry, env.board, logger)
	env.rest.SetReady(true)
	env.rest.RegisterRoutes(env.router)
	NewContentHandler(env.site, logger).RegisterRoutes(env.router)
	NewAdminHandler(fakeSessions{}, env.registry, env.site, env.store, logger).RegisterRoutes(env.router, admin)
	NewPageHandler(env.cache, pages, logger).RegisterRoutes(env.router, admin)
	env.hub.RegisterRoutes(env.router)

	return env
}

// do serves a request; a non-empty subject makes it an admin request.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, subject string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set(subjectHeader, subject)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) view(t *testing.T, name string) slideshow.View {
	t.Helper()

	m, ok := e.registry.Get(name)
	if !ok {
		t.Fatalf("slideshow %s not registered", name)
	}
	view, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() unexpected error: %v", err)
	}
	return view
}

// uploadRequest builds a multipart add-slide request. An empty filename
// sends the form without a file.
func uploadRequest(t *testing.T, path, filename, contentType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+UploadField+`"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart() unexpected error: %v", err)
		}
		_, _ = part.Write(data)
	} else if err := mw.WriteField("caption", "none"); err != nil {
		t.Fatalf("WriteField() unexpected error: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart Close() unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// decode unmarshals an APIResponse envelope.
func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) model.APIResponse[T] {
	t.Helper()

	var resp model.APIResponse[T]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
	return resp
}
