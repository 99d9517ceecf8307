package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/resend/resend-go/v2"

	"github.com/artcontest/judging-system/config"
	"github.com/artcontest/judging-system/db"
	"github.com/artcontest/judging-system/handlers"
	"github.com/artcontest/judging-system/live"
	"github.com/artcontest/judging-system/middleware"
	"github.com/artcontest/judging-system/repositories"
	"github.com/artcontest/judging-system/routes"
	"github.com/artcontest/judging-system/services"
	"github.com/artcontest/judging-system/storage"
)

const purgeInterval = time.Hour // how often expired tokens and sessions are removed

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("env", cfg.AppEnv))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("live score hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	judgeRepo := repositories.NewPostgresJudgeRepository(dbConn)
	contestRepo := repositories.NewPostgresContestRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	scoreRepo := repositories.NewPostgresScoreRepository(dbConn)
	tokenRepo := repositories.NewPostgresTokenRepository(dbConn)
	sessionRepo := repositories.NewPostgresSessionRepository(dbConn)
	logger.Info("repositories initialized")

	resendClient := resend.NewClient(cfg.ResendAPIKey)
	mailer, err := services.NewEmailService(cfg, resendClient, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	authService := services.NewAuthService(userRepo, judgeRepo, tokenRepo, sessionRepo, mailer, cfg.JWTSecretKey, cfg.BaseURL(), logger)
	judgeService := services.NewJudgeService(dbConn, userRepo, judgeRepo, scoreRepo, tokenRepo, sessionRepo, contestRepo, authService, mailer, logger)
	entryService := services.NewEntryService(entryRepo, contestRepo, uploader, logger)
	scoreService := services.NewScoreService(scoreRepo, entryRepo, judgeRepo, contestRepo, wsHub)
	userService := services.NewUserService(userRepo)
	logger.Info("services initialized")

	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		logger.Info("expired credential purge scheduler started", slog.Duration("interval", purgeInterval))

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := tokenRepo.DeleteExpired(ctx); err != nil {
				logger.Error("purge: expired token cleanup failed", slog.Any("error", err))
			} else if n > 0 {
				logger.Info("purge: expired tokens removed", slog.Int64("count", n))
			}
			if n, err := sessionRepo.DeleteExpired(ctx); err != nil {
				logger.Error("purge: expired session cleanup failed", slog.Any("error", err))
			} else if n > 0 {
				logger.Info("purge: expired sessions removed", slog.Int64("count", n))
			}
			cancel()
		}
	}()

	authMiddleware := middleware.NewAuth(cfg.JWTSecretKey, authService)

	router := routes.SetupRoutes(routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, judgeService, cfg.IsProduction()),
		Judge:     handlers.NewJudgeHandler(judgeService, entryService, scoreService),
		Admin:     handlers.NewAdminHandler(judgeService, userService, scoreService),
		Entry:     handlers.NewEntryHandler(entryService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, cfg.FrontendOrigin, logger),
	}, authMiddleware, cfg.FrontendOrigin)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
