package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagraph/accounts/internal/config"
	"github.com/diagraph/accounts/internal/db"
	"github.com/diagraph/accounts/internal/geo"
	internalhttp "github.com/diagraph/accounts/internal/http"
	"github.com/diagraph/accounts/internal/jobs"
	"github.com/diagraph/accounts/internal/quota"
	"github.com/diagraph/accounts/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if cfg.SessionJWTSecret == "" {
		logger.Error("SESSION_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := repository.NewPostgres(pool)

	var geoCache geo.Cache = geo.NewMemoryCache()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Error("redis ping failed", "error", err)
			os.Exit(1)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", "error", err)
			}
		}()
		geoCache = geo.NewRedisCache(redisClient)
	}

	locator := geo.NewLocator(geoCache, geo.NewHTTPResolver(cfg.GeoLookupURL, cfg.GeoLookupTimeout), cfg.GeoCacheTTL)

	server := internalhttp.NewServer(cfg, store, locator, quota.Defaults(), logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	jobs.StartCleanupJob(ctx, cfg, store, logger)

	go func() {
		logger.Info("accounts service listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
