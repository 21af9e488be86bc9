package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/titulaflow/titulaflow/internal/app"
	"github.com/titulaflow/titulaflow/internal/notify"
	"github.com/titulaflow/titulaflow/internal/periods"
	"github.com/titulaflow/titulaflow/internal/platform/db"
	"github.com/titulaflow/titulaflow/jobs"
)

func main() {
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

	notifyRepo := notify.NewRepository(pool)

	periodsRepo := periods.NewRepository(pool)
	// The worker already sits next to the queue, so its dispatcher writes
	// notifications straight to the repository.
	periodsService := periods.NewService(periodsRepo, notify.NewDispatcher(nil, notifyRepo, logger))

	sweepTask := jobs.NewPeriodSweepTask()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeNotificationDeliver, Handler: notify.NewDeliverHandler(notifyRepo, logger)},
			{Type: jobs.TaskTypePeriodSweep, Handler: jobs.NewPeriodSweepHandler(periodsService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
