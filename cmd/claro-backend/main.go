package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"claro-backend/internal/answer"
	"claro-backend/internal/config"
	"claro-backend/internal/database"
	"claro-backend/internal/httpapi"
	"claro-backend/internal/logger"
	"claro-backend/internal/repository"
	"claro-backend/internal/search"
	"claro-backend/internal/service"
	"claro-backend/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "claro-backend")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close(db)

	var kv store.KV
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			// The cache is an optimization; run without it rather than refuse to start.
			log.Warn("redis unreachable, answer caching disabled", zap.Error(err))
			redisClient.Close()
			redisClient = nil
		} else {
			kv = store.NewRedisKV(redisClient)
		}
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	repo := repository.NewPostgresArticlesRepository(db)
	engine := search.NewEngine(repo, cfg.Search.Analyzer, log)
	generator := answer.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, log)
	ask := service.NewAskService(engine, generator, kv, cfg.Cache.TTL, cfg.Search.Limit, log)

	handler := httpapi.NewHandler(ask, engine, repo, cfg.Law.ID, log)
	router := httpapi.NewRouter(log)
	router.RegisterAPIRoutes(handler)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.HTTP.Addr))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
