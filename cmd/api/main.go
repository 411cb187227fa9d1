package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campusdesk/api/internal/audit"
	"campusdesk/api/internal/cache"
	"campusdesk/api/internal/config"
	"campusdesk/api/internal/database"
	"campusdesk/api/internal/handlers"
	"campusdesk/api/internal/jobs"
	"campusdesk/api/internal/log"
	"campusdesk/api/internal/ratelimit"
	"campusdesk/api/internal/repository"
	"campusdesk/api/internal/server"
	"campusdesk/api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if err := database.ApplySchema(ctx, dbPool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	var redisClient *redis.Client
	var sweeper jobs.Sweeper
	var counterStore ratelimit.CounterStore
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		counterStore = ratelimit.NewRedisStore(redisClient)
	} else {
		memStore := ratelimit.NewMemoryStore()
		counterStore = memStore
		sweeper = memStore
		logger.Warn().Msg("redis disabled; rate limits are per-instance only")
	}
	limiter := ratelimit.New(counterStore)

	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)

	recorder := audit.NewRecorder(auditRepo, logger)
	authService := service.NewAuthService(userRepo, sessionRepo, recorder, cfg, logger)

	if err := authService.Bootstrap(ctx); err != nil {
		logger.Fatal().Err(err).Msg("account bootstrap failed")
	}

	var archiver *audit.Archiver
	if cfg.Audit.ArchiveEnabled {
		archiver, err = audit.NewArchiver(cfg.Storage, auditRepo, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init audit archiver")
		}
		if err := archiver.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure archive bucket failed")
		}
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, authService, recorder, auditRepo, limiter, dbPool, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(authService, sweeper, archiver, cfg, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		cancel := scheduler.Stop()
		cancel()
	}

	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
