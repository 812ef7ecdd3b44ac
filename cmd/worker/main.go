package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lumen-commerce/lumen/internal/app"
	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/platform/db"
	"github.com/lumen-commerce/lumen/internal/role"
	"github.com/lumen-commerce/lumen/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	channelService := channel.NewService(channel.NewRepository(pool))
	bootstrapper := role.NewBootstrapper(role.NewRepository(pool), channelService, logger)

	jobMetrics := jobs.NewMetrics(nil)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeRoleAudit, Handler: jobs.RoleAuditHandler(bootstrapper, logger, jobMetrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RoleAuditSchedule, Task: jobs.NewRoleAuditTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
