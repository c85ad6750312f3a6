package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/config"
	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/exporter"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/infrastructure"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/ingest"
	customMiddleware "github.com/raksha0612/praxiotech-intelligence-engine/internal/middleware"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/services"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/storage"
	handlers "github.com/raksha0612/praxiotech-intelligence-engine/internal/transport/http"
)

var (
	// BuildTime is set at compile time
	BuildTime = "unknown"
	// BuildID is set at compile time
	BuildID = "dev"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	IntelService  *services.IntelService
	HealthService *services.HealthService
	Store         *storage.ResultStore

	background sync.WaitGroup
}

// NewApplication creates a new application instance with dependency injection.
// configPath may be empty to use the standard config locations.
func NewApplication(ctx context.Context, configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_time", BuildTime),
		slog.String("build_id", BuildID))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	var archive services.ResultArchive
	if a.Config.Storage.Enabled {
		store, err := storage.Open(ctx, a.Config.Storage, a.Logger)
		if err != nil {
			return err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return err
		}
		a.Store = store
		archive = store
	}

	reports := exporter.New(a.Config.Output, a.Logger, a.Metrics)
	a.IntelService = services.NewIntelService(a.Config, ingest.NewLoader(a.Logger), reports, archive, a.Metrics, a.Logger)
	a.HealthService = services.NewHealthService(config.AppVersion, a.Config.Output.Dir, a.IntelService, a.Logger)
	return nil
}

// setupRouter wires middleware and routes.
// Order: RequestID → RealIP → OTel → Logger → Recoverer → SecurityHeaders → CORS → RateLimit
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			MaxAge:         300,
			Logger:         a.Logger,
		}))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	a.Router = r
}

// setupAPIRoutes registers the health and v1 routes
func (a *Application) setupAPIRoutes(r chi.Router) {
	health := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get("/api/health", health.HealthCheck)
	r.Get("/api/health/ready", health.ReadinessCheck)
	r.Get("/api/health/live", health.LivenessCheck)
	r.Get("/api/version", health.Version)

	// Reads are bounded by the write timeout; runs carry their own deadline.
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))
		r.Mount("/api/v1", handlers.NewIntelHandler(a.IntelService, a.Logger, a.ErrorHandler).Routes())
	})
	r.Mount("/api/v1/runs", handlers.NewRunsHandler(a.IntelService, a.Config.Server.RunTimeout, a.Logger, a.ErrorHandler).Routes())
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start restores the last archived run, starts the HTTP server and, when
// configured, runs the pipeline once in the background
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level),
		slog.Bool("archive", a.Store != nil))

	if err := a.IntelService.Restore(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Could not restore archived run", slog.String("error", err.Error()))
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if _, restored := a.IntelService.LastRun(); !restored && a.Config.Server.RunOnStart {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			a.startupRun(ctx)
		}()
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

func (a *Application) startupRun(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, a.Config.Server.RunTimeout)
	defer cancel()

	info, err := a.IntelService.Run(runCtx, services.RunOptions{Trigger: services.TriggerStartup})
	if err != nil {
		a.Logger.ErrorContext(ctx, "Startup run failed", slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "Startup run finished",
		slog.String("run_id", info.RunID),
		slog.Int("establishments", info.Establishments))
}

// Stop gracefully shuts down the server and releases resources
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	// startup runs watch the application context and stop with it
	a.background.Wait()

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing result archive", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	infrastructure.CloseLogFile()
	return errors.Join(errs...)
}

// Run starts the application and blocks until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.InfoContext(ctx, "Received shutdown signal")

	return a.Stop(ctx)
}

// Addr returns the configured listen address
func (a *Application) Addr() string {
	return a.Server.Addr
}
