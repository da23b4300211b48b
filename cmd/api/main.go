// Package main is the entrypoint for the campusshare API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/campusshare/campusshare/internal/activity"
	"github.com/campusshare/campusshare/internal/auth"
	"github.com/campusshare/campusshare/internal/cache"
	"github.com/campusshare/campusshare/internal/config"
	"github.com/campusshare/campusshare/internal/logging"
	"github.com/campusshare/campusshare/internal/metrics"
	"github.com/campusshare/campusshare/internal/repository"
	"github.com/campusshare/campusshare/internal/server"
	"github.com/campusshare/campusshare/internal/service"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database %s: %s",
			logging.RedactURL(cfg.DatabaseURL), logging.SanitizeError(err, cfg.DatabaseURL))
	}
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		applied, err := repo.Migrate(ctx)
		if err != nil {
			repo.Close()
			return err
		}
		logger.Info("migrations applied", "count", len(applied), "versions", applied)
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		return fmt.Errorf("failed to connect to Redis %s: %s",
			logging.RedactURL(cfg.RedisURL), logging.SanitizeError(err, cfg.RedisURL))
	}
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret, cfg.JWTTTL)

	resourceService := service.NewResourceService(repo, cacheClient, cfg.ResourceCacheTTL, recorder, logger)
	borrowService := service.NewBorrowService(repo, repo, recorder)
	userService, err := service.NewUserService(repo, auth.NewHasher(auth.DefaultParams), tokens, cacheClient, recorder, logger)
	if err != nil {
		cacheClient.Close()
		repo.Close()
		return err
	}

	var (
		activityService *service.ActivityService
		worker          *activity.Worker
		publisher       *activity.Publisher
	)
	if cfg.ActivityEnabled {
		publisher = activity.NewPublisher(cacheClient.Client(), logger, recorder)
		borrowService.SetEventPublisher(publisher)
		activityService = service.NewActivityService(repo, repo)
		worker = activity.NewWorker(cacheClient.Client(), repo, logger, activity.NewConsumerID(), recorder)
	}

	router := server.NewRouter(cfg, logger, server.Dependencies{
		Resources:   resourceService,
		Borrows:     borrowService,
		Users:       userService,
		Activity:    activityService,
		Tokens:      tokens,
		Revocations: cacheClient,
		Limiter:     cacheClient,
		DB:          repo,
		Cache:       cacheClient,
		Counts:      repo,
		Metrics:     recorder,
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// LIFO: pending publishes drain first, then the worker stops, then Redis,
	// then the pool.
	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})
	if worker != nil {
		srv.OnShutdown("activity-worker", worker.Shutdown)
		go func() {
			if err := worker.Run(ctx); err != nil {
				logger.Error("activity worker stopped", "error", err)
			}
		}()
	}
	if publisher != nil {
		srv.OnShutdown("activity-publisher", publisher.Drain)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	return srv.Run(ctx)
}
