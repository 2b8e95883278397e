// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vitrine/internal/api"
	"github.com/starford/vitrine/internal/events"
	"github.com/starford/vitrine/internal/mcpserver"
	"github.com/starford/vitrine/internal/registry"
	"github.com/starford/vitrine/internal/schema"
	"github.com/starford/vitrine/internal/storage"
	"github.com/starford/vitrine/internal/store"
	"github.com/starford/vitrine/internal/users"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. MCP mode logs to stderr so
	// stdout stays clean for the protocol.
	logOut := os.Stdout
	if app.mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_backend", cfg.Data.Backend),
		slog.String("data_path", cfg.Data.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the storage provider.
	var (
		provider storage.Provider
		jsonDir  *storage.JSONDir
	)
	switch cfg.Data.Backend {
	case BackendSQLite:
		db, err := storage.OpenSQLite(cfg.Data.Path)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		defer db.Close()
		provider = db
	default:
		if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		dir, err := storage.NewJSONDir(cfg.Data.Path)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		provider = dir
		jsonDir = dir
	}

	// Load every record set up front.
	st := store.New(provider, logger)
	if err := st.Load(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	reg := registry.New(st)
	comp := schema.New(st, reg)

	usrs := users.New(st, logger)
	if err := usrs.EnsureDefaults(); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(st, reg).ServeStdio()
	}

	// SSE broker fed by store notifications.
	broker := events.NewBroker()
	defer broker.Close()
	unsubscribe := st.Subscribe(broker.PublishKind)
	defer unsubscribe()

	apiRouter := api.NewRouter(st, reg, comp, usrs, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the data directory for external edits (JSON backend only).
	if jsonDir != nil {
		g.Go(func() error {
			return st.Watch(gCtx, jsonDir, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
