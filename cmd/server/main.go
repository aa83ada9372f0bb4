package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"cognicare/internal/cache"
	"cognicare/internal/config"
	"cognicare/internal/repository"
	"cognicare/internal/service"
	"cognicare/internal/transport/rest"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	cfg := config.Load()
	aiConfig := config.DefaultAIConfig()

	logger.Info("starting cognicare assessment engine",
		zap.String("httpPort", cfg.HTTPPort),
		zap.Bool("aiPrimary", aiConfig.PrimaryEnabled()),
		zap.Bool("aiSecondary", aiConfig.SecondaryEnabled()))
	if !aiConfig.IsEnabled() {
		logger.Warn("no reasoning provider configured, running on rule-based fallbacks only")
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.Fatal("failed to ping MongoDB", zap.Error(err))
	}
	logger.Info("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Fatal("failed to ping Redis", zap.Error(err))
	}
	logger.Info("connected to Redis")

	// Repositories and caches
	sessionRepo := repository.NewSessionRepo(db)
	resultRepo := repository.NewResultRepo(db)
	sessionCache := cache.NewSessionCache(rdb)
	resultCache := cache.NewResultCache(rdb)

	// Services
	bank := service.NewQuestionBank()
	reasoning := service.NewReasoningClient(aiConfig, logger)
	sessionSvc := service.NewSessionService(bank, sessionRepo, sessionCache, logger)
	branchingSvc := service.NewBranchingService(reasoning, logger)
	scoringSvc := service.NewScoringService(bank)
	resultSvc := service.NewResultService(scoringSvc, reasoning, resultRepo, resultCache, logger)

	router := rest.NewRouter(&rest.Container{
		SessionService:   sessionSvc,
		BranchingService: branchingSvc,
		ResultService:    resultSvc,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen and serve", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
