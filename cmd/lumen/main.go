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

	"github.com/lumen-commerce/lumen/internal/app"
	"github.com/lumen-commerce/lumen/internal/authz"
	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/observability"
	"github.com/lumen-commerce/lumen/internal/platform/cache"
	"github.com/lumen-commerce/lumen/internal/platform/db"
	"github.com/lumen-commerce/lumen/internal/role"
	"github.com/lumen-commerce/lumen/internal/user"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Authorization falls back to direct store reads without a cache.
		logger.Warn("redis unavailable, projection cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	channelRepo := channel.NewRepository(pool)
	channelService := channel.NewService(channelRepo)

	roleRepo := role.NewRepository(pool)
	userRepo := user.NewRepository(pool)
	evaluator := authz.NewEvaluator(userRepo, roleRepo, redisClient, logger)
	roleService := role.NewService(roleRepo, channelService, evaluator, logger)

	bootstrapper := role.NewBootstrapper(roleRepo, channelService, logger)
	if err := bootstrapper.EnsureSystemRoles(ctx); err != nil {
		logger.Error("ensure system roles", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	authzMW := authz.Middleware{Evaluator: evaluator, Logger: logger, Metrics: metrics}
	roleHandler := role.NewHandler(logger, roleService, authzMW)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Channels:    channelService,
		RoleHandler: roleHandler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
