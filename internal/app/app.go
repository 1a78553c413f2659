// Package app wires configuration, services, and the HTTP router into a
// runnable server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"factorlens/internal/config"
	apierrors "factorlens/internal/errors"
	"factorlens/internal/factors"
	"factorlens/internal/infrastructure"
	mw "factorlens/internal/middleware"
	"factorlens/internal/prices"
	"factorlens/internal/regression"
	"factorlens/internal/services"
	handlers "factorlens/internal/transport/http"
	ws "factorlens/internal/websocket"
	"factorlens/pkg/contracts"
)

// Application is the composed server: configuration, services, and router
type Application struct {
	Config            *config.Config
	Router            *chi.Mux
	Server            *http.Server
	Logger            *slog.Logger
	Metrics           *infrastructure.Metrics
	WebSocketHub      *ws.Hub
	RegressionService *services.RegressionService
	HealthService     *services.HealthService
}

// New loads configuration and builds a fully wired application
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the application from an already validated config
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port))

	metrics, err := infrastructure.NewMetrics(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	hub := ws.NewHub(logger)

	engine := regression.NewEngine(logger,
		regression.WithCondThreshold(cfg.Regression.CondThreshold))
	priceClient := prices.NewClient(cfg.Prices, logger)
	factorClient := factors.NewClient(cfg.Factors, logger)

	regressionService := services.NewRegressionService(
		cfg, priceClient, factorClient, engine, hub, metrics, logger)
	healthService := services.NewHealthService(contracts.Version, hub, logger)

	app := &Application{
		Config:            cfg,
		Logger:            logger,
		Metrics:           metrics,
		WebSocketHub:      hub,
		RegressionService: regressionService,
		HealthService:     healthService,
	}
	app.Router = app.setupRouter()
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

func (a *Application) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r.Use(mw.RequestID)
	r.Use(mw.RealIP)
	r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.CORS(mw.CORSConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		Logger:         a.Logger,
	}))
	r.Use(mw.NewRateLimiter(100, 200, a.Logger).Handler)

	regressionHandler := handlers.NewRegressionHandler(a.RegressionService, errorHandler, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	metricsHandler := handlers.NewMetricsHandler(a.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			// Regression runs fetch upstream data; give them the long timeout
			r.Use(mw.Timeout(a.Config.Server.RequestTimeout, a.Logger))
			r.Mount("/regression", regressionHandler.Routes())
		})

		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
	})

	r.Get("/metrics", metricsHandler.Metrics)

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		if err := ws.ServeWS(a.WebSocketHub, a.Config.WebSocket, a.Logger, w, req); err != nil {
			a.Logger.ErrorContext(req.Context(), "websocket upgrade failed",
				slog.String("error", err.Error()))
		}
	})

	return r
}

// Run starts the websocket hub and the HTTP server, blocking until the
// context is cancelled or a termination signal arrives, then shuts down
// gracefully.
func (a *Application) Run(ctx context.Context) error {
	go a.WebSocketHub.Run()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-sigCh:
		a.Logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.Info("context cancelled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server, the websocket hub, and the metrics
// provider within the configured shutdown timeout.
func (a *Application) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("http server shutdown failed", slog.String("error", err.Error()))
		return err
	}

	a.WebSocketHub.Stop()

	if err := a.Metrics.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("metrics shutdown failed", slog.String("error", err.Error()))
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}

	a.Logger.Info("shutdown complete")
	return nil
}
