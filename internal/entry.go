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

	"github.com/starford/inkwell/internal/api"
	"github.com/starford/inkwell/internal/mcpserver"
	"github.com/starford/inkwell/internal/prefs"
	"github.com/starford/inkwell/internal/sse"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/watcher"
	"github.com/starford/inkwell/internal/workspace"
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

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_root", cfg.Workspace.Root),
		slog.String("store_dir", cfg.Store.Dir),
		slog.String("prefs_path", cfg.Prefs.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	p, ctrl, mgr, err := buildWorkspace(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctrl.Close()
		if err := mgr.Teardown(); err != nil {
			logger.Warn("storage teardown failed", slog.String("error", err.Error()))
		}
		_ = p.Close()
	}()

	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(ctrl, mgr, cfg.Workspace.Root).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(ctrl, mgr, broker,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Workspace.Root)

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
		_, _ = w.Write([]byte(`{"status":"ok","adapter":"` + string(mgr.Type()) + `"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the directory workspace for external changes.
	if cfg.Workspace.Root != "" {
		g.Go(func() error {
			if err := watcher.Watch(gCtx, cfg.Workspace.Root, logger, broker.PublishRefresh); err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
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

// buildWorkspace opens the settings store, restores the last-used storage
// backend, and builds the document controller over it.
func buildWorkspace(ctx context.Context, cfg *Config, logger *slog.Logger) (*prefs.Store, *workspace.Controller, *storage.Manager, error) {
	if cfg.Workspace.Root != "" {
		if err := os.MkdirAll(cfg.Workspace.Root, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create workspace root: %w", err)
		}
	}

	p, err := prefs.Open(cfg.Prefs.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init prefs: %w", err)
	}

	mgr := storage.NewManager(p, cfg.Workspace.Root, cfg.Store.Dir, logger)
	res, err := mgr.RestoreLastAdapter(ctx)
	if err != nil {
		_ = p.Close()
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}
	if !res.Ready {
		logger.Warn("storage backend not ready", slog.String("message", res.Message))
	} else {
		logger.Info("storage backend restored", slog.String("adapter", string(mgr.Type())))
	}

	ctrl := workspace.NewController(mgr, logger)
	return p, ctrl, mgr, nil
}
