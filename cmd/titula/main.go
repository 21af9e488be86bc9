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

	"github.com/titulaflow/titulaflow/internal/app"
	"github.com/titulaflow/titulaflow/internal/assignments"
	"github.com/titulaflow/titulaflow/internal/eligibility"
	"github.com/titulaflow/titulaflow/internal/issuance"
	"github.com/titulaflow/titulaflow/internal/legacy"
	"github.com/titulaflow/titulaflow/internal/notify"
	"github.com/titulaflow/titulaflow/internal/periods"
	"github.com/titulaflow/titulaflow/internal/platform/cache"
	"github.com/titulaflow/titulaflow/internal/platform/db"
	"github.com/titulaflow/titulaflow/internal/shared"
	"github.com/titulaflow/titulaflow/internal/storage"
	"github.com/titulaflow/titulaflow/internal/validations"
	"github.com/titulaflow/titulaflow/jobs"
	"github.com/titulaflow/titulaflow/report"
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	notifyRepo := notify.NewRepository(pool)

	// Without Redis the fan-out degrades to synchronous inserts; the core
	// workflow stays up.
	var enqueuer notify.Enqueuer
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, notifications fall back to direct inserts", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		asynqClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := asynqClient.Close(); err != nil {
				logger.Warn("asynq close", slog.Any("error", err))
			}
		}()
		enqueuer = asynqClient
	}
	dispatcher := notify.NewDispatcher(enqueuer, notifyRepo, logger)

	auditLogger := shared.NewAuditLogger(pool)
	legacyClient := legacy.NewClient(cfg.LegacyURL, logger)
	reportClient := report.NewClient(cfg.RendererURL)
	if err := reportClient.Ping(ctx); err != nil {
		logger.Warn("certificate renderer unreachable", slog.Any("error", err))
	}

	store, err := storage.NewDiskStore(cfg.StorageDir)
	if err != nil {
		logger.Error("init document storage", slog.Any("error", err))
		os.Exit(1)
	}

	periodsRepo := periods.NewRepository(pool)
	periodsService := periods.NewService(periodsRepo, dispatcher)
	periodsHandler := periods.NewHandler(logger, periodsService)

	validationsRepo := validations.NewRepository(pool)
	validationsService := validations.NewService(validationsRepo, dispatcher, auditLogger)
	validationsHandler := validations.NewHandler(logger, validationsService)

	eligibilityRepo := eligibility.NewRepository(pool)
	eligibilityService := eligibility.NewService(eligibilityRepo, legacyClient)
	eligibilityHandler := eligibility.NewHandler(logger, eligibilityService)

	assignmentsRepo := assignments.NewRepository(pool)
	assignmentsService := assignments.NewService(assignmentsRepo, validationsRepo, dispatcher)
	assignmentsHandler := assignments.NewHandler(logger, assignmentsService)

	issuanceRepo := issuance.NewRepository(pool)
	issuanceService := issuance.NewService(issuanceRepo, validationsRepo, reportClient, store, dispatcher, auditLogger)
	issuanceHandler := issuance.NewHandler(logger, issuanceService)

	notificationHandler := notify.NewHandler(logger, notifyRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		PeriodsHandler:      periodsHandler,
		ValidationsHandler:  validationsHandler,
		EligibilityHandler:  eligibilityHandler,
		AssignmentsHandler:  assignmentsHandler,
		IssuanceHandler:     issuanceHandler,
		NotificationHandler: notificationHandler,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
