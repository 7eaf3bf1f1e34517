// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notionsite/internal/api"
	"github.com/starford/notionsite/internal/assets"
	"github.com/starford/notionsite/internal/ledger"
	"github.com/starford/notionsite/internal/mcpserver"
	"github.com/starford/notionsite/internal/metrics"
	"github.com/starford/notionsite/internal/models"
	"github.com/starford/notionsite/internal/naming"
	"github.com/starford/notionsite/internal/notion"
	"github.com/starford/notionsite/internal/pipeline"
	"github.com/starford/notionsite/internal/siteservice"
	"github.com/starford/notionsite/internal/sse"
	"github.com/starford/notionsite/internal/storage"
)

// ErrRecordsFailed is returned by Run when a pass completed with failed
// records.
var ErrRecordsFailed = errors.New("records failed")

// components are the long-lived collaborators shared by every mode.
type components struct {
	store    *storage.FS
	db       *ledger.DB
	svc      *siteservice.Service
	registry *prometheus.Registry
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// build wires storage, the ledger, the content-store client, the pipeline
// and the service. pub may be nil.
func build(cfg *Config, logger *slog.Logger, pub siteservice.Publisher) (*components, error) {
	logger.Info("Configuration loaded",
		slog.String("site_root", cfg.Site.Root),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.Int("collections", len(cfg.Collections)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Site.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}

	client := notion.NewClient(notion.Options{
		Token:   cfg.Notion.Token,
		BaseURL: cfg.Notion.BaseURL,
		Version: cfg.Notion.Version,
		Timeout: cfg.Notion.Timeout,
		Logger:  logger,
	})
	fetcher := assets.NewHTTPFetcher(cfg.Assets.Timeout)
	if cfg.Assets.MaxSize > 0 {
		fetcher.MaxSize = cfg.Assets.MaxSize
	}

	var (
		recorder metrics.Recorder = metrics.NoopRecorder{}
		registry *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	var svc *siteservice.Service
	p := pipeline.New(pipeline.Deps{
		Selector:  client,
		Renderer:  &notion.Renderer{Blocks: client},
		Pages:     client,
		Fetcher:   fetcher,
		Status:    client,
		Store:     store,
		AssetRoot: store.Root(),
		Slugger:   naming.Slugger{ExpandUmlauts: cfg.Naming.ExpandUmlauts},
		Metrics:   recorder,
		Logger:    logger,
		Observer:  func(e pipeline.Event) { svc.Observe(e) },
	})
	svc = siteservice.New(siteservice.Options{
		Collections: cfg.Collections,
		Runner:      p,
		Store:       store,
		Ledger:      db,
		OutputDir:   cfg.Site.OutputDir,
		Publisher:   pub,
		Logger:      logger,
	})

	if err := ledger.Sync(db, store, svc.Sources(), logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &components{store: store, db: db, svc: svc, registry: registry}, nil
}

// Run executes one pass per configured collection, or only the collection
// set with WithCollection, and logs each pass summary.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	c, err := build(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.db.Close()

	var passes []*models.Pass
	if app.collection != "" {
		p, runErr := c.svc.RunPass(ctx, app.collection)
		if p != nil {
			passes = append(passes, p)
		}
		err = runErr
	} else {
		passes, err = c.svc.RunAll(ctx)
	}

	failed := 0
	for _, p := range passes {
		logPass(logger, p)
		failed += p.Failed
	}
	if err != nil {
		if pipeline.IsSelectionError(err) {
			logger.Error("Selection failed, no records exported", slog.String("error", err.Error()))
		}
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d", ErrRecordsFailed, failed)
	}
	return nil
}

func logPass(logger *slog.Logger, p *models.Pass) {
	attrs := []any{
		slog.String("pass_id", p.ID),
		slog.String("collection", p.Collection),
		slog.String("status", p.Status),
		slog.Int("selected", p.Selected),
		slog.Int("succeeded", p.Succeeded),
		slog.Int("failed", p.Failed),
	}
	if p.Error != "" {
		attrs = append(attrs, slog.String("error", p.Error))
	}
	logger.Info("Pass finished", attrs...)
	for _, r := range p.Records {
		if r.State == models.StateFailed {
			logger.Warn("Record failed",
				slog.String("record_id", r.RecordID),
				slog.String("title", r.Title),
				slog.String("stage", r.Stage),
				slog.String("error", r.Error))
		}
	}
}

// Serve starts the HTTP server, the output watcher and the event broker.
func Serve(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := build(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.db.Close()

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, c.store.Root())

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if c.registry != nil {
		r.Handle("/metrics", metrics.HTTPHandler(c.registry))
	}

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the output index in sync with edits made outside of passes.
	g.Go(func() error {
		err := ledger.Watch(gCtx, c.db, c.store, c.svc.Sources(), logger, func(kind, path string) {
			broker.PublishOutputEvent(kind, path)
		})
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

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
		defer signal.Stop(quit)

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
		// A pass started over HTTP finishes before the ledger closes.
		c.svc.Wait()

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// ServeMCP runs the MCP server on stdio. Logs go to stderr.
func ServeMCP(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	c, err := build(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.db.Close()

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(c.svc, app.version).ServeStdio()
}
