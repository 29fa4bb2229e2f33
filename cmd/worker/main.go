package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradedesk/backoffice/internal/app"
	jobmetrics "github.com/tradedesk/backoffice/internal/jobs"
	"github.com/tradedesk/backoffice/internal/platform/cache"
	"github.com/tradedesk/backoffice/internal/platform/db"
	"github.com/tradedesk/backoffice/internal/reporting"
	"github.com/tradedesk/backoffice/internal/store"
	"github.com/tradedesk/backoffice/internal/vendorsettings"
	"github.com/tradedesk/backoffice/jobs"
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

	pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	repo := store.NewRepository(pool)
	metrics := jobmetrics.NewMetrics(nil)

	// Retries run inside the worker, so the service gets no enqueuer: a
	// failed retry is returned to asynq which schedules the next attempt.
	settings := vendorsettings.NewService(repo, vendorsettings.Options{
		Logger: logger,
		Cache:  reporting.NewCache(redisClient, cfg.ReportCacheTTL, logger),
	})

	propagateJob := jobs.NewVendorPropagateJob(settings, logger, metrics)
	reconcileJob := jobs.NewVendorReconcileJob(repo, settings, logger, metrics)
	reconcileJob.Locker = redislock.New(redisClient)

	reconcileTask, err := jobs.NewVendorReconcileTask(0)
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.ReconcileCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.ReconcileCron,
			Task:    reconcileTask,
			Options: []asynq.Option{asynq.MaxRetry(1)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskVendorSettingPropagate, Handler: propagateJob.Handle},
			{Type: jobs.TaskVendorSettingReconcile, Handler: reconcileJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		go serveMetrics(ctx, cfg.WorkerMetricsAddr, logger)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("worker metrics listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("worker metrics server", slog.Any("error", err))
	}
}
