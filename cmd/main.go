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

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/team-registration/config"
	"github.com/Dosada05/team-registration/db"
	"github.com/Dosada05/team-registration/handlers"
	"github.com/Dosada05/team-registration/metrics"
	"github.com/Dosada05/team-registration/middleware"
	"github.com/Dosada05/team-registration/repositories"
	api "github.com/Dosada05/team-registration/routes"
	"github.com/Dosada05/team-registration/services"
	"github.com/Dosada05/team-registration/storage"
)

const (
	lockTTL             = 30 * time.Second
	limiterCleanupEvery = 5 * time.Minute
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("env", cfg.Environment))

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Environment}); err != nil {
			logger.Error("failed to initialize sentry", slog.Any("error", err))
		} else {
			defer sentry.Flush(2 * time.Second)
			logger.Info("sentry error reporting enabled")
		}
	}

	// Подключение к базе данных
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

	if cfg.MigrateOnStart {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(migrateCtx, dbConn)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	// Блокировка сетки: Redis для нескольких инстансов, иначе в памяти процесса
	var locker services.Locker = services.NewMutexLocker()
	if cfg.RedisURL != "" {
		redisClient, err := services.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		locker = services.NewRedisLocker(redisClient, lockTTL)
		logger.Info("redis bracket lock enabled")
	}

	// Архив сетки (Cloudflare R2)
	var uploader storage.FileUploader
	if cfg.ArchiveEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
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
		logger.Info("Cloudflare R2 bracket archive enabled")
	}

	recorder := metrics.NewRecorder()

	// Инициализация репозиториев
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	adminRepo := repositories.NewPostgresAdminRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	registrationService := services.NewRegistrationService(registrationRepo, recorder, logger)
	teamService := services.NewTeamService(teamRepo, registrationService, locker, recorder, logger)
	bracketService := services.NewBracketService(bracketRepo, locker, uploader, recorder, logger)
	authService := services.NewAuthService(adminRepo, logger)
	logger.Info("Services initialized")

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if created, err := authService.EnsureAdmin(startupCtx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Error("failed to bootstrap admin user", slog.Any("error", err))
	} else if created {
		logger.Info("bootstrap superadmin created", slog.String("username", cfg.AdminUsername))
	}
	if cfg.RegistrationClosesAt != nil {
		if err := registrationService.ApplyDefaultDeadline(startupCtx, *cfg.RegistrationClosesAt); err != nil {
			logger.Error("failed to apply registration deadline", slog.Any("error", err))
		}
	}
	cancelStartup()

	// Планировщик автоматического закрытия регистрации
	stopScheduler, err := registrationService.StartScheduler(cfg.RegistrationCheckSpec)
	if err != nil {
		logger.Error("failed to start registration scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer stopScheduler()

	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	registerLimit := middleware.NewRateLimiter(cfg.RegistrationRateLimit, cfg.RegistrationRateBurst, recorder)
	loginLimit := middleware.NewRateLimiter(0.1, 5, recorder)

	go func() {
		ticker := time.NewTicker(limiterCleanupEvery)
		defer ticker.Stop()
		for range ticker.C {
			n := registerLimit.Cleanup() + loginLimit.Cleanup()
			if n > 0 {
				logger.Debug("rate limiter visitors evicted", slog.Int("count", n))
			}
		}
	}()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:         handlers.NewAuthHandler(authService, auth, cfg.JWTTTL),
		Teams:        handlers.NewTeamHandler(teamService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Bracket:      handlers.NewBracketHandler(bracketService),
		Health:       handlers.NewHealthHandler(dbConn),
	}, api.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Authenticator:  auth,
		RegisterLimit:  registerLimit,
		LoginLimit:     loginLimit,
		Recorder:       recorder,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
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

	// Ожидание сигнала завершения
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

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
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
