package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"authgate/internal/config"
	apphttp "authgate/internal/http"
	"authgate/internal/repository"
	"authgate/internal/repository/memory"
	"authgate/internal/repository/redisrepo"
	"authgate/internal/repository/sqlite"
	"authgate/internal/service"
	"authgate/internal/token"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.AccessSecret) == "" {
		logger.Fatalf("auth access secret is required")
	}
	if strings.TrimSpace(cfg.Auth.RefreshSecret) == "" {
		logger.Fatalf("auth refresh secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, closeStore, err := buildUserStore(cfg, logger)
	if err != nil {
		logger.Fatalf("setup user store: %v", err)
	}
	defer closeStore()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user store: %v", err)
	}

	tokenCfg := token.Config{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     time.Duration(cfg.Auth.AccessTTLMinutes) * time.Minute,
		RefreshTTL:    time.Duration(cfg.Auth.RefreshTTLHours) * time.Hour,
	}

	sessions := service.NewSessionService(
		userRepo,
		token.NewIssuer(tokenCfg),
		token.NewVerifier(tokenCfg),
		logger,
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(sessions, tokenCfg.RefreshTTL)
	handler.RegisterRoutes(router, cfg.CORS.Origin)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildUserStore(cfg config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		logger.Info("using in-memory user store")
		return memory.NewUserRepository(), func() {}, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		logger.Infof("using sqlite user store at %s", cfg.Database.Path)
		return sqlite.NewUserRepository(db), func() { _ = db.Close() }, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		logger.Infof("using redis user store at %s", cfg.Redis.Addr)
		return redisrepo.NewUserRepository(rdb), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
