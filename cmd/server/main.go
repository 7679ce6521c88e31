package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"openlib/internal/app"
	"openlib/internal/config"
	"openlib/internal/ratelimit"
	"openlib/internal/server"
	"openlib/internal/util"
	"openlib/pkg/storage"
	"openlib/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	accessTTL, err := config.ParseAccessTTL(cfg.AccessTTL)
	if err != nil {
		log.Fatalf("failed to parse access TTL: %v", err)
	}
	refreshTTL, err := config.ParseRefreshTTL(cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("failed to parse refresh TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	var revoker store.TokenRevoker
	if cfg.RedisAddr != "" {
		revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
	} else {
		revoker = store.NewMemoryTokenRevoker()
	}
	tokens, err := store.NewTokenStore(cfg.TokenSecret, accessTTL, refreshTTL, revoker)
	if err != nil {
		log.Fatalf("failed to init token store: %v", err)
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init object store: %v", err)
		}
	}

	appCore, err := app.New(app.Config{
		Store:              st,
		Tokens:             tokens,
		Objects:            objects,
		MaxContactsPerUser: cfg.MaxContactsPerUser,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var loginLimiter *ratelimit.FixedWindowLimiter
	if cfg.LoginRateLimitPerMinute > 0 {
		loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "openlib:ratelimit",
			cfg.LoginRateLimitPerMinute, time.Minute,
		)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		App:          appCore,
		LoginLimiter: loginLimiter,
	})

	handler := util.WithRequestID(
		util.WithRequestLog(
			util.WithSecurityHeaders(
				util.WithCORS(httpServer.Router()))))

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
	slog.Info("server stopped")
}
