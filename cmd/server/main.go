// Package main is the entry point for the site CMS server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/sitecms/internal/auth"
	"github.com/vyrodovalexey/sitecms/internal/config"
	"github.com/vyrodovalexey/sitecms/internal/content"
	"github.com/vyrodovalexey/sitecms/internal/handler"
	"github.com/vyrodovalexey/sitecms/internal/payload"
	"github.com/vyrodovalexey/sitecms/internal/render"
	"github.com/vyrodovalexey/sitecms/internal/server"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/slideshow"
	"github.com/vyrodovalexey/sitecms/internal/status"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.Int("probe_port", cfg.ProbePort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("auth_mode", cfg.AuthMode),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.String("site_file", cfg.SiteFile),
	)

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to build application", zap.Error(err))
		return 1
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.serve(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}

// application holds the long-lived components and the server exposing them.
type application struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    store.Store
	registry *slideshow.Registry
	site     *content.Site
	board    *status.Board
	server   *server.Server
}

// newApplication wires storage, slideshows, content and HTTP handlers.
// Nothing is read from storage until serve.
func newApplication(cfg *config.Config, logger *zap.Logger) (*application, error) {
	authenticators, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
	if err != nil {
		return nil, fmt.Errorf("creating authenticators: %w", err)
	}
	logger.Info("authentication configured",
		zap.String("mode", cfg.AuthMode),
		zap.Bool("login_enabled", authenticators.Login != nil),
		zap.Bool("request_credentials", authenticators.Request != nil),
	)

	site, err := config.LoadSite(cfg.SiteFile)
	if err != nil {
		return nil, err
	}

	kv, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	pages, err := render.NewPages()
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	registry := slideshow.NewRegistry()
	hub := handler.NewWebSocketHandler(registry, logger)
	board := status.NewBoard(logger, hub)
	cache := render.NewCache()
	push := render.NewPush(hub, logger)

	for _, show := range site.Slideshows {
		var renderer slideshow.Renderer
		if !show.Disabled {
			renderer = render.Fanout{cache, push}
		}

		dwell := show.Dwell
		if dwell == 0 {
			dwell = cfg.DwellInterval
		}

		m := slideshow.New(slideshow.Config{
			Name:           show.Name,
			StorageKey:     show.StorageKey,
			DefaultItems:   show.Items,
			Dwell:          dwell,
			MaxUploadBytes: cfg.MaxUploadBytes,
			StatusDuration: cfg.StatusDuration,
		}, slideshow.Deps{
			Storage:  kv,
			Renderer: renderer,
			Notifier: board.For(show.Name),
			Payload:  payload.DataURLReader{MaxBytes: cfg.MaxUploadBytes},
			Logger:   logger.Named("slideshow").With(zap.String("slideshow", show.Name)),
		})
		if err := registry.Register(m); err != nil {
			registry.Close()
			board.Close()
			_ = kv.Close()
			return nil, fmt.Errorf("registering slideshow: %w", err)
		}
	}

	cms := content.NewSite(kv, logger.Named("content"), content.WithMaxUploadBytes(cfg.MaxUploadBytes))
	sessions := session.NewManager(cfg.SessionLifetime, authenticators.Login, authenticators.Request, logger)

	srv := server.New(cfg, logger, server.Deps{
		Registry:   registry,
		Site:       cms,
		Board:      board,
		Sessions:   sessions,
		Views:      cache,
		Pages:      pages,
		Hub:        hub,
		Store:      kv,
		AuthMethod: auth.AuthMethod(cfg.AuthMode),
	})

	return &application{
		cfg:      cfg,
		logger:   logger,
		store:    kv,
		registry: registry,
		site:     cms,
		board:    board,
		server:   srv,
	}, nil
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StorageBackend {
	case "sqlite":
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, err
		}
		s, err := store.OpenSQLite(path, cfg.StorageQuota)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	case "memory", "":
		return store.NewMemoryStore(cfg.StorageQuota), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// load reads every slideshow and content collection, then marks the server
// ready.
func (a *application) load(ctx context.Context) error {
	if err := a.registry.InitAll(ctx); err != nil {
		return fmt.Errorf("initializing slideshows: %w", err)
	}
	if err := a.site.LoadAll(ctx); err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	a.server.SetReady(true)
	a.logger.Info("site loaded",
		zap.Strings("slideshows", a.registry.Names()),
	)
	return nil
}

// serve runs both servers until ctx is cancelled or one of them fails.
func (a *application) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.server.Start)
	g.Go(a.server.StartProbe)
	g.Go(func() error {
		return a.load(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// close stops slideshow loops and status timers and releases storage.
func (a *application) close() {
	a.registry.Close()
	a.board.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}
