// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/auth"
	"github.com/vyrodovalexey/sitecms/internal/config"
	"github.com/vyrodovalexey/sitecms/internal/content"
	"github.com/vyrodovalexey/sitecms/internal/handler"
	"github.com/vyrodovalexey/sitecms/internal/middleware"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
	"github.com/vyrodovalexey/sitecms/internal/status"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

// formOverhead is the request body allowance on top of an encoded upload.
const formOverhead = 1 << 20

// Deps are the application components served over HTTP.
type Deps struct {
	Registry   *slideshow.Registry
	Site       *content.Site
	Board      *status.Board
	Sessions   SessionManager
	Views      handler.ViewSource
	Pages      handler.Fragments
	Hub        *handler.WebSocketHandler
	Store      store.Store
	AuthMethod auth.AuthMethod
}

// SessionManager resolves request sessions and handles admin login.
type SessionManager interface {
	handler.SessionManager
	Middleware(next http.Handler) http.Handler
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	probeServer *http.Server
	router      *mux.Router
	probeRouter *mux.Router
	config      *config.Config
	logger      *zap.Logger
	restHandler *handler.RESTHandler
	wsHandler   *handler.WebSocketHandler
}

// New creates a new Server instance. The server reports not ready until
// SetReady is called.
func New(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		probeRouter: mux.NewRouter(),
		config:      cfg,
		logger:      logger,
		wsHandler:   deps.Hub,
	}

	s.setupMiddleware(deps.Sessions)
	s.setupRoutes(deps)
	s.setupProbeRoutes()
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware(sessions SessionManager) {
	allowedOrigins := []string{"*"}
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		"Authorization",
		auth.APIKeyHeader,
		middleware.RequestIDHeader,
	}

	// Apply middleware in order (first applied = outermost)
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.CORS(allowedOrigins, allowedMethods, allowedHeaders)))
	s.router.Use(mux.MiddlewareFunc(middleware.MaxBody(s.bodyLimit())))

	if sessions != nil {
		s.router.Use(sessions.Middleware)
	}
}

// bodyLimit leaves room for multipart framing around the largest upload.
func (s *Server) bodyLimit() int64 {
	limit := s.config.MaxUploadBytes
	if limit <= 0 {
		limit = slideshow.DefaultMaxUploadBytes
	}
	return 4*limit + formOverhead
}

// setupRoutes configures the public, admin and websocket routes.
func (s *Server) setupRoutes(deps Deps) {
	admin := s.router.NewRoute().Subrouter()
	admin.Use(mux.MiddlewareFunc(middleware.RequireAdmin(deps.AuthMethod, s.logger)))

	s.restHandler = handler.NewRESTHandler(deps.Registry, deps.Board, s.logger)
	s.restHandler.RegisterRoutes(s.router)

	handler.NewContentHandler(deps.Site, s.logger).RegisterRoutes(s.router)
	handler.NewAdminHandler(deps.Sessions, deps.Registry, deps.Site, deps.Store, s.logger).RegisterRoutes(s.router, admin)

	if deps.Views != nil && deps.Pages != nil {
		handler.NewPageHandler(deps.Views, deps.Pages, s.logger).RegisterRoutes(s.router, admin)
	}

	if s.wsHandler != nil {
		s.wsHandler.RegisterRoutes(s.router)
	}

	// Preflight requests need a matching route for the CORS middleware to run.
	s.router.PathPrefix("/api/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupProbeRoutes configures the unauthenticated probe router.
func (s *Server) setupProbeRoutes() {
	s.restHandler.RegisterProbeRoutes(s.probeRouter)

	if s.config.MetricsEnabled {
		s.probeRouter.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupHTTPServer configures the HTTP servers.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	if s.config.ProbePort > 0 {
		s.probeServer = &http.Server{
			Addr:              s.config.ProbeAddress(),
			Handler:           s.probeRouter,
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       30 * time.Second,
			MaxHeaderBytes:    1 << 20,
		}
	}
}

// SetReady marks the application as ready to serve traffic.
func (s *Server) SetReady(ready bool) {
	s.restHandler.SetReady(ready)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// StartProbe starts the probe server and blocks until it stops. It returns
// immediately when the probe port is disabled.
func (s *Server) StartProbe() error {
	if s.probeServer == nil {
		return nil
	}

	s.logger.Info("starting probe server", zap.String("address", s.config.ProbeAddress()))

	if err := s.probeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("probe server listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.SetReady(false)

	// Close all WebSocket connections first
	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("probe server shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ProbeRouter returns the probe router for testing purposes.
func (s *Server) ProbeRouter() *mux.Router {
	return s.probeRouter
}
