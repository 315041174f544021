// Package app assembles the web service: it wires configuration,
// logging, metrics, the marketplace client, the pipeline driver and
// the HTTP router into one Application and owns the server lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"idqcli/internal/config"
	"idqcli/internal/infrastructure"
	"idqcli/internal/marketplace"
	customMiddleware "idqcli/internal/middleware"
	"idqcli/internal/pipeline"
	"idqcli/internal/refdata"
	"idqcli/internal/services"
	"idqcli/internal/tasktracker"
	handlers "idqcli/internal/transport/http"
	ws "idqcli/internal/websocket"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Application is the assembled web service.
type Application struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *infrastructure.Metrics
	Hub        *ws.Hub
	RunService *services.RunService
	Router     *chi.Mux
	Server     *http.Server
}

// New builds the application from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	metrics := infrastructure.NewMetrics()
	hub := ws.NewHub(cfg.WebSocket, logger)

	tokens := marketplace.NewOAuthTokenProvider(cfg.Marketplace)
	client := marketplace.NewHTTPReportClient(cfg.Marketplace, tokens, logger)
	poller := marketplace.NewPoller(client, cfg.Marketplace, logger, metrics)

	driver := pipeline.NewDriver(cfg.Pipeline, poller, logger, metrics, hub.BroadcastEvent)
	loader := services.NewHTTPReferenceLoader(refdata.NewClient(cfg.References.FetchTimeout), cfg.References)

	var tracker tasktracker.TaskTracker = tasktracker.Noop{}
	if cfg.TaskTracker.Enabled {
		tracker = tasktracker.NewHTTPTracker(cfg.TaskTracker)
	}

	runService := services.NewRunService(cfg, driver, loader, tracker, logger, metrics)
	healthService := services.NewHealthService(cfg, Version)

	app := &Application{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Hub:        hub,
		RunService: runService,
	}
	app.Router = app.buildRouter(healthService)
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

func (a *Application) buildRouter(healthService *services.HealthService) *chi.Mux {
	runHandler := handlers.NewRunHandler(a.RunService, a.Config, a.Logger)
	healthHandler := handlers.NewHealthHandler(healthService, a.Logger)
	metricsHandler := handlers.NewMetricsHandler(a.Metrics)

	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)
		r.Mount("/", runHandler.Routes())
	})
	r.Mount("/metrics", metricsHandler.Routes())
	r.Get("/healthz", healthHandler.LivenessCheck)
	r.Get("/ws", a.Hub.ServeWS)

	return r
}

// Run starts the hub and the HTTP server, blocking until ctx is
// cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	a.Hub.Start()
	defer a.Hub.Stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening",
			slog.String("addr", a.Server.Addr),
			slog.String("version", Version))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down",
		slog.String("timeout", a.Config.Server.ShutdownTimeout.String()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
