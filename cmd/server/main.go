package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	adminhandler "fitlift/backend/internal/admin/handler"
	"fitlift/backend/internal/config"
	"fitlift/backend/internal/db"
	identityhandler "fitlift/backend/internal/identity/handler"
	"fitlift/backend/internal/identity/service"
	"fitlift/backend/internal/security"
	"fitlift/backend/internal/server"
	"fitlift/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	users := repository.NewPostgresRepository(sqlDB)
	hasher := security.NewHasher(cfg.BcryptCost)
	codec := security.NewTokenCodec(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	auth := service.NewAuthService(users, hasher, codec)

	router := server.NewRouter(server.RouterConfig{
		Auth:     identityhandler.NewAuthHandler(auth, logger),
		Admin:    adminhandler.NewAdminHandler(users, logger),
		Resolver: auth,
		Log:      logger,
		Metrics:  true,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	logger.Info().Msg("HTTP server stopped")
}
