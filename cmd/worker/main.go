package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sentra-service/internal/config"
	"sentra-service/internal/db"
	"sentra-service/internal/repository/postgres"
	redisrepo "sentra-service/internal/repository/redis"
	sessionUsecase "sentra-service/internal/service/session"
	"sentra-service/internal/worker"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Standalone revocation worker: drains the delayed queue and revokes expired
// sessions through the same registry path the API uses.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.DBUrl)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	sessionRepo := postgres.NewSessionRepository(pool)
	sessionCache := redisrepo.NewSessionCache(redisClient, cfg.SessionKeyNamespace())
	delayedQueue := redisrepo.NewDelayedQueue(redisClient, cfg.SessionScheduleKey())

	registry := sessionUsecase.NewRegistry(sessionRepo, sessionCache, delayedQueue, sessionUsecase.Config{
		KeyNamespace:           cfg.SessionKeyNamespace(),
		RefreshTokenExpiration: cfg.RefreshTokenExpiration,
	}, logger)

	revoker := worker.NewRevoker(delayedQueue, sessionRepo, registry, cfg.WorkerPollInterval, logger)
	go revoker.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}
