package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tradedesk/backoffice/internal/app"
	"github.com/tradedesk/backoffice/internal/audit"
	"github.com/tradedesk/backoffice/internal/document"
	"github.com/tradedesk/backoffice/internal/observability"
	"github.com/tradedesk/backoffice/internal/platform/cache"
	"github.com/tradedesk/backoffice/internal/platform/db"
	"github.com/tradedesk/backoffice/internal/reporting"
	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/internal/store"
	"github.com/tradedesk/backoffice/internal/vendorsettings"
	"github.com/tradedesk/backoffice/jobs"
	"github.com/tradedesk/backoffice/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, os.Args[2:], os.Stdout, os.Stderr))
	}
	if len(os.Args) > 1 && os.Args[1] != "serve" {
		fmt.Fprintf(os.Stderr, "unknown command %q (want serve or jobs)\n", os.Args[1])
		os.Exit(2)
	}

	if err := serve(ctx, stop, cfg); err != nil {
		slog.Default().Error("backoffice", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config) error {
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := store.NewRepository(pool)
	if cfg.MigrateOnStart {
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reports will not be cached", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts, cfg.PropagationMaxRetry, logger)
	if err != nil {
		return err
	}
	defer func() { _ = jobClient.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()

	metrics := observability.NewMetrics()
	reportCache := reporting.NewCache(redisClient, cfg.ReportCacheTTL, logger)
	reportService := reporting.NewService(repo, reportCache, cfg.PPN(), logger)

	settingsService := vendorsettings.NewService(repo, vendorsettings.Options{
		Logger:   logger,
		Retry:    jobClient,
		Cache:    reportCache,
		Audit:    shared.NewAuditLogger(repo),
		Observer: metrics,
	})

	renderer, err := document.NewRenderer(report.NewClient(cfg.GotenbergURL))
	if err != nil {
		return err
	}
	documentService := document.NewService(repo, cfg.PPN(), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		Metrics:               metrics,
		VendorSettingsHandler: vendorsettings.NewHandler(logger, settingsService),
		ReportHandler:         reporting.NewHandler(logger, reportService),
		DocumentHandler:       document.NewHandler(logger, documentService, renderer),
		JobHandler:            jobs.NewHandler(inspector, logger),
		AuditHandler:          audit.NewHandler(logger, audit.NewService(repo)),
		ReadinessChecks: map[string]app.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
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
	return nil
}
