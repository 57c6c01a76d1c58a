package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/mygarage/mygarage/internal/analytics"
	"github.com/mygarage/mygarage/internal/app"
	"github.com/mygarage/mygarage/internal/coverage"
	"github.com/mygarage/mygarage/internal/expenses"
	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/platform/cache"
	"github.com/mygarage/mygarage/internal/platform/db"
	"github.com/mygarage/mygarage/internal/settings"
	"github.com/mygarage/mygarage/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	analyticsRepo := analytics.NewRepository(pool)
	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache, analytics.Params{
		ShortWindow: cfg.AnalyticsShortWindow,
		LongWindow:  cfg.AnalyticsLongWindow,
		Epsilon:     cfg.AnalyticsEpsilon,
	})

	garageRepo := garage.NewRepository(pool)
	garageService := garage.NewService(garageRepo)

	coverageRepo := coverage.NewRepository(pool)
	coverageService := coverage.NewService(coverageRepo, garageService)

	expensesRepo := expenses.NewRepository(pool)
	expensesService := expenses.NewService(expensesRepo, garageService)

	settingsRepo := settings.NewRepository(pool)
	settingsService := settings.NewService(settingsRepo)

	mailer := &jobs.SMTPMailer{
		Addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From: cfg.SMTPFrom,
	}

	emailJob := jobs.NewEmailJob(mailer, logger)
	warmupJob := jobs.NewSnapshotWarmupJob(analyticsService, pool, logger)
	anomalyJob := jobs.NewAnomalyScanJob(pool, client, logger)
	reminderJob := jobs.NewReminderScanJob(coverageService, expensesService, settingsService, pool, client, logger)

	warmupTask, err := jobs.NewSnapshotWarmupTask(jobs.SnapshotWarmupPayload{Months: 12})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	anomalyTask, err := jobs.NewAnomalyScanTask(jobs.AnomalyScanPayload{WindowMonths: 12, Z: 2.5})
	if err != nil {
		logger.Error("build anomaly task", slog.Any("error", err))
		os.Exit(1)
	}
	reminderTask, err := jobs.NewReminderScanTask()
	if err != nil {
		logger.Error("build reminder task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: emailJob.Handle},
			{Type: jobs.TaskSnapshotWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskAnomalyScan, Handler: anomalyJob.Handle},
			{Type: jobs.TaskReminderScan, Handler: reminderJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * 1", Task: anomalyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 7 * * *", Task: reminderTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
