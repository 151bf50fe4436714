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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/jkleiven/rollcall/internal/api"
	"github.com/jkleiven/rollcall/internal/debounce"
	"github.com/jkleiven/rollcall/internal/index"
	"github.com/jkleiven/rollcall/internal/ingest"
	"github.com/jkleiven/rollcall/internal/ledger"
	"github.com/jkleiven/rollcall/internal/mcpserver"
	"github.com/jkleiven/rollcall/internal/models"
	"github.com/jkleiven/rollcall/internal/recon"
	"github.com/jkleiven/rollcall/internal/sse"
)

// Run starts the attendance service with the given options.
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
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Duration("cooldown", cfg.Ledger.Cooldown()),
		slog.Duration("minimum_gap", cfg.Ledger.MinimumGap()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the ledger directory exists.
	if err := os.MkdirAll(filepath.Dir(cfg.Ledger.Path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	// Initialize the ledger store.
	store, err := ledger.NewStore(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}

	// Initialize the SQLite read index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Resync(db, store, logger); err != nil {
		logger.Warn("initial resync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Reconciliation runner: the single writer to the ledger. After each
	// mutation the index is rebuilt and report clients are notified.
	tracker := debounce.NewTracker(cfg.Ledger.Cooldown())
	engine := recon.NewEngine(cfg.Ledger.MinimumGap())
	runner := recon.NewRunner(store, engine, tracker, logger, func(res recon.Result) {
		if res.Mutated {
			if err := index.Resync(db, store, logger); err != nil {
				logger.Warn("resync after write failed", slog.String("error", err.Error()))
			}
		}
		date := res.At.Format(models.DateLayout)
		switch res.Outcome {
		case recon.OutcomeCheckInAccepted:
			broker.PublishAttendance("checkin", res.Identity, date)
		case recon.OutcomeCheckOutAccepted:
			broker.PublishAttendance("checkout", res.Identity, date)
		case recon.OutcomeCheckOutRejectedGap:
			broker.PublishAttendance("rejected", res.Identity, date)
		}
	})
	defer runner.Close()

	// Build API service and router.
	svc := api.NewService(db, runner)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

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

	// Watch the ledger file for out-of-band edits.
	g.Go(func() error {
		return index.Watch(gCtx, db, store, logger, func() {
			broker.PublishLedgerUpdated()
		})
	})

	// Optional Kafka event source.
	if cfg.Ingest.Kafka.Enabled {
		consumer := ingest.NewConsumer(cfg.Ingest.Kafka.Brokers, cfg.Ingest.Kafka.Topic,
			cfg.Ingest.Kafka.GroupID, runner, logger)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Run(gCtx)
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

// RunMCP wires the stores and serves the MCP tool server on stdio.
// Logs go to stderr so stdout stays clean for the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.Ledger.Path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	store, err := ledger.NewStore(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Resync(db, store, logger); err != nil {
		logger.Warn("initial resync failed", slog.String("error", err.Error()))
	}

	tracker := debounce.NewTracker(cfg.Ledger.Cooldown())
	engine := recon.NewEngine(cfg.Ledger.MinimumGap())
	runner := recon.NewRunner(store, engine, tracker, logger, func(res recon.Result) {
		if res.Mutated {
			if err := index.Resync(db, store, logger); err != nil {
				logger.Warn("resync after write failed", slog.String("error", err.Error()))
			}
		}
	})
	defer runner.Close()

	return mcpserver.New(db, runner).ServeStdio()
}
