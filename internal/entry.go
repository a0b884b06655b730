// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/snapcode/internal/api"
	"github.com/starford/snapcode/internal/history"
	"github.com/starford/snapcode/internal/mcpserver"
	"github.com/starford/snapcode/internal/snapshot"
	"github.com/starford/snapcode/internal/snapshotservice"
	"github.com/starford/snapcode/internal/sse"
	"github.com/starford/snapcode/internal/storage"
	"github.com/starford/snapcode/internal/watch"
)

// Run starts the application with the given options and blocks until a
// shutdown signal arrives or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	var sink io.Writer = os.Stdout
	if app.mcp {
		sink = os.Stderr
	}
	logger := newLogger(sink, cfg.App)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("root", cfg.Project.Root),
		slog.String("output", cfg.Project.Output),
		slog.Duration("cooldown", cfg.Watch.Cooldown),
		slog.Bool("http_enabled", cfg.App.HTTP.Enabled),
		slog.Bool("history_enabled", cfg.History.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Project.Root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	builder := snapshot.New(store,
		snapshot.WithOutput(cfg.Project.Output),
		snapshot.WithExclusions(snapshot.NewExclusionSet(cfg.Project.ExtraExcludes...)),
		snapshot.WithLogger(logger),
	)

	var records history.Store = history.Nop{}
	if cfg.History.Enabled() {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("init history: %w", err)
		}
		records = db
	}
	defer records.Close()

	broker := sse.NewBroker()
	defer broker.Close()

	watcher := watch.New(builder,
		watch.WithCooldown(cfg.Watch.Cooldown),
		watch.WithQueueSize(cfg.Watch.QueueSize),
		watch.WithOutOfRootLogging(cfg.Watch.LogOutOfRoot),
		watch.WithLogger(logger),
		watch.WithCallback(func(o watch.Outcome) {
			if _, err := records.Record(buildRecord(o, builder.Output())); err != nil {
				logger.Warn("history: record failed", slog.String("error", err.Error()))
			}
			broker.PublishBuild(buildEvent(o))
		}),
	)

	svc := snapshotservice.NewService(builder, watcher, records)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Run(gCtx)
	})

	var httpServer *http.Server
	if cfg.App.HTTP.Enabled {
		httpServer = &http.Server{
			Addr:              cfg.App.HTTP.Address(),
			Handler:           newHTTPHandler(svc, cfg.Auth, broker, sink),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	if app.mcp {
		srv := mcpserver.New(svc, app.version)
		g.Go(func() error {
			logger.Info("Serving MCP over stdio")
			defer cancel()
			if err := srv.ServeStdio(gCtx); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		if httpServer != nil {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped")
	return nil
}

// newLogger builds the process logger from the app config.
func newLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newHTTPHandler assembles the chi router with health checks and the API.
// Access logs go to logSink, never implicitly to stdout, which carries the
// MCP protocol in mcp mode.
func newHTTPHandler(svc *snapshotservice.Service, auth AuthConfig, broker *sse.Broker, logSink io.Writer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  log.New(logSink, "", log.LstdFlags),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", healthOK)

	r.Mount("/api", api.NewRouter(svc, auth.AuthEnabled(), auth.Token, broker))

	return r
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
