// internal/app/server.go
package app

import (
	"context"
	"fmt"

	"sentra-service/internal/config"
	"sentra-service/internal/db"
	authHandler "sentra-service/internal/handlers/auth"
	wsHandler "sentra-service/internal/handlers/ws"
	"sentra-service/internal/middleware"
	jwtpkg "sentra-service/internal/pkg/jwt"
	"sentra-service/internal/repository/postgres"
	redisrepo "sentra-service/internal/repository/redis"
	authUsecase "sentra-service/internal/service/auth"
	sessionUsecase "sentra-service/internal/service/session"
	"sentra-service/internal/worker"
	"sentra-service/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start(ctx context.Context) error {
	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.NewPostgresPool(ctx, s.cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// ----- JWT Manager -----
	jwtManager, err := jwtpkg.NewManager(jwtpkg.Config{
		Secret:     s.cfg.JWTSecret,
		Issuer:     s.cfg.JWTIssuer,
		AccessTTL:  s.cfg.AccessTokenTTL,
		RefreshTTL: s.cfg.RefreshTokenExpiration,
	})
	if err != nil {
		return fmt.Errorf("failed to build JWT manager: %w", err)
	}

	// ----- Repositories -----
	sessionRepo := postgres.NewSessionRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	sessionCache := redisrepo.NewSessionCache(redisClient, s.cfg.SessionKeyNamespace())
	delayedQueue := redisrepo.NewDelayedQueue(redisClient, s.cfg.SessionScheduleKey())

	// ----- WebSocket Hub -----
	hub := ws.NewHub(logger)

	// ----- Services -----
	registry := sessionUsecase.NewRegistry(sessionRepo, sessionCache, delayedQueue, sessionUsecase.Config{
		KeyNamespace:           s.cfg.SessionKeyNamespace(),
		RefreshTokenExpiration: s.cfg.RefreshTokenExpiration,
	}, logger).WithEventPublisher(hub)

	authService := authUsecase.NewAuthService(userRepo, sessionRepo, registry, jwtManager, logger)

	// ----- In-process revocation worker -----
	// cmd/worker runs the same loop as a standalone process; embedding one
	// here keeps single-binary deployments expiring sessions on time.
	revoker := worker.NewRevoker(delayedQueue, sessionRepo, registry, s.cfg.WorkerPollInterval, logger)
	go revoker.Run(ctx)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService, logger)
	wsHandlerInst := wsHandler.NewHandler(hub, authService, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authService)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.RequestIDMiddleware(),
		middleware.LoggingMiddleware(logger),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:    authHandlerInst,
		WSHandler:      wsHandlerInst,
		AuthMiddleware: authMiddleware,
	}
	SetupRouter(s.engine, handlers)

	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}
