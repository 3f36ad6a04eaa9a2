package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-teams/brackets"
	"github.com/Dosada05/tournament-teams/config"
	"github.com/Dosada05/tournament-teams/db"
	"github.com/Dosada05/tournament-teams/handlers"
	"github.com/Dosada05/tournament-teams/repositories"
	api "github.com/Dosada05/tournament-teams/routes"
	"github.com/Dosada05/tournament-teams/services"
	"github.com/Dosada05/tournament-teams/storage"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageDriver),
		slog.Bool("archive", cfg.R2.Enabled()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализация репозиториев
	var (
		teamRepo   repositories.TeamRepository
		playerRepo repositories.PlayerRepository
		dbConn     *sql.DB
	)
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store, err := repositories.NewMemoryStore()
		if err != nil {
			logger.Error("failed to create in-memory store", slog.Any("error", err))
			os.Exit(1)
		}
		teamRepo, playerRepo = store.Teams(), store.Players()
		logger.Warn("using in-memory storage, data is lost on restart")
	default:
		dbConn, err = db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
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

		if err := db.Migrate(ctx, dbConn); err != nil {
			logger.Error("failed to apply schema", slog.Any("error", err))
			os.Exit(1)
		}
		teamRepo = repositories.NewPostgresTeamRepository(dbConn)
		playerRepo = repositories.NewPostgresPlayerRepository(dbConn)
	}
	logger.Info("repositories initialized")

	// Архив сеток в Cloudflare R2. Без ключей архив просто выключен.
	var archiver services.BracketArchiver
	if cfg.R2.Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
			Endpoint:        cfg.R2.Endpoint,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewBracketArchiver(uploader)
		logger.Info("Cloudflare R2 bracket archive enabled")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация сервисов
	bracketService := services.NewBracketService(teamRepo, wsHub, logger)
	allocationService := services.NewAllocationService(teamRepo, playerRepo, archiver, wsHub, logger)
	queryService := services.NewQueryService(teamRepo, playerRepo, logger)
	playerService := services.NewPlayerService(playerRepo, logger)
	logger.Info("services initialized")

	// Периодическая рассылка статистики подписчикам
	if cfg.StatsInterval > 0 {
		go broadcastStats(ctx, queryService, wsHub, cfg.StatsInterval, logger)
	}

	// Инициализация обработчиков HTTP
	teamHandler := handlers.NewTeamHandler(bracketService, allocationService, queryService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, cfg.AllowedOrigins)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	}, teamHandler, playerHandler, webSocketHandler)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
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
			cancel()
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}

	// останавливает hub и рассылку статистики
	cancel()
	logger.Info("application exited")
}

// broadcastStats раз в interval отправляет STATS_UPDATED всем подписчикам ленты.
func broadcastStats(ctx context.Context, qs services.QueryService, hub *brackets.Hub, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("stats broadcaster started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if hub.ClientCount() == 0 {
				continue
			}
			stats, err := qs.Overview(ctx)
			if err != nil {
				logger.Error("stats broadcast failed", slog.Any("error", err))
				continue
			}
			hub.Publish(brackets.EventStatsUpdated, stats)
		}
	}
}
