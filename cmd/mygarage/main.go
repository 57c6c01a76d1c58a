package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mygarage/mygarage/internal/analytics"
	"github.com/mygarage/mygarage/internal/analytics/export"
	analytichttp "github.com/mygarage/mygarage/internal/analytics/http"
	"github.com/mygarage/mygarage/internal/app"
	"github.com/mygarage/mygarage/internal/auth"
	"github.com/mygarage/mygarage/internal/coverage"
	"github.com/mygarage/mygarage/internal/documents"
	"github.com/mygarage/mygarage/internal/expenses"
	"github.com/mygarage/mygarage/internal/fuel"
	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/maintenance"
	"github.com/mygarage/mygarage/internal/platform/cache"
	"github.com/mygarage/mygarage/internal/platform/db"
	"github.com/mygarage/mygarage/internal/settings"
	"github.com/mygarage/mygarage/internal/shared"
	"github.com/mygarage/mygarage/internal/vehicles"
	"github.com/mygarage/mygarage/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "mygarage_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	garageRepo := garage.NewRepository(dbpool)
	garageService := garage.NewService(garageRepo)
	garageHandler := garage.NewHandler(logger, garageService)

	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache, analytics.Params{
		ShortWindow: cfg.AnalyticsShortWindow,
		LongWindow:  cfg.AnalyticsLongWindow,
		Epsilon:     cfg.AnalyticsEpsilon,
	})
	pdfExporter := &export.PDFExporter{Endpoint: cfg.GotenbergURL, Client: http.DefaultClient}
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService, garageService, pdfExporter)

	vehiclesRepo := vehicles.NewRepository(dbpool)
	vehiclesService := vehicles.NewService(vehiclesRepo, garageService)
	vehiclesHandler := vehicles.NewHandler(logger, vehiclesService)

	maintenanceRepo := maintenance.NewRepository(dbpool)
	maintenanceService := maintenance.NewService(maintenanceRepo, garageService, analyticsService, logger)
	maintenanceHandler := maintenance.NewHandler(logger, maintenanceService)

	fuelRepo := fuel.NewRepository(dbpool)
	fuelService := fuel.NewService(fuelRepo, garageService, analyticsService, logger)
	fuelHandler := fuel.NewHandler(logger, fuelService)

	coverageRepo := coverage.NewRepository(dbpool)
	coverageService := coverage.NewService(coverageRepo, garageService)
	coverageHandler := coverage.NewHandler(logger, coverageService)

	expensesRepo := expenses.NewRepository(dbpool)
	expensesService := expenses.NewService(expensesRepo, garageService)
	expensesHandler := expenses.NewHandler(logger, expensesService)

	settingsRepo := settings.NewRepository(dbpool)
	settingsService := settings.NewService(settingsRepo)
	settingsManager := settings.NewManager(settingsService, logger)
	settingsManager.Start(ctx)
	settingsHandler := settings.NewHandler(logger, settingsService, settingsManager)

	documentsRepo := documents.NewRepository(dbpool)
	documentsService := documents.NewService(documentsRepo, garageService, settingsService)
	documentsHandler := documents.NewHandler(logger, documentsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		GarageHandler:      garageHandler,
		VehiclesHandler:    vehiclesHandler,
		MaintenanceHandler: maintenanceHandler,
		FuelHandler:        fuelHandler,
		CoverageHandler:    coverageHandler,
		ExpensesHandler:    expensesHandler,
		DocumentsHandler:   documentsHandler,
		SettingsHandler:    settingsHandler,
		AnalyticsHandler:   analyticsHandler,
		JobsHandler:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	settingsManager.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
