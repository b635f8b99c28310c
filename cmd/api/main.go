// Package main - точка входа для HTTP API приложения Cortex Study Hub.
//
// API принимает данные из мобильного приложения (сессии, экзамены,
// повторения, результаты квизов) и отдаёт интел-состояние и коучинг-
// сообщения, которые собирают фоновые задачи Worker.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: реализация репозиториев, внешние API
// - Interface: HTTP handlers и сборка промптов
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cortex-hub/cortex-study-hub/config"

	// Application layer
	"github.com/cortex-hub/cortex-study-hub/internal/application/command"
	"github.com/cortex-hub/cortex-study-hub/internal/application/eventhandler"
	"github.com/cortex-hub/cortex-study-hub/internal/application/query"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"

	// Infrastructure layer
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/external/push"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/messaging"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/persistence/postgres"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/cortex-hub/cortex-study-hub/internal/interface/http"
	"github.com/cortex-hub/cortex-study-hub/internal/interface/http/handlers"

	// Packages
	"github.com/cortex-hub/cortex-study-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slogger := setupSlog(cfg)
	slogger.Info("starting Cortex Study Hub API",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"port", cfg.HTTP.Port,
	)

	// Структурированный логгер для HTTP-слоя
	logOpts := logger.DefaultOptions()
	if cfg.App.Debug {
		logOpts.Level = logger.LevelDebug
	}
	httpLogger := logger.New(logOpts).With(logger.Component("http"))

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, postgres.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		slogger.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Миграции запускает тот процесс, который стартует первым
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slogger.Info("database ready")

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ИНИЦИАЛИЗАЦИЯ REDIS
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("connecting to Redis...")
	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

	redisCache, err := redis.NewCache(redisCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisCache.Close()
	intelCache := redis.NewIntelStateCache(redisCache)
	slogger.Info("Redis connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. РЕПОЗИТОРИИ И EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	sessionRepo := postgres.NewSessionRepository(dbConn)
	memoryRepo := postgres.NewMemoryRepository(dbConn)
	masteryRepo := postgres.NewMasteryRepository(dbConn)
	examRepo := postgres.NewExamRepository(dbConn)
	coachingRepo := postgres.NewCoachingRepository(dbConn)

	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = slogger
	eventBusConfig.AsyncMode = true
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ВНЕШНИЕ КЛИЕНТЫ
	// ─────────────────────────────────────────────────────────────────────────
	// API публикует milestone-события (тема освоена, слабость выявлена)
	// синхронно с командами review/quiz, поэтому пуши по ним уходят отсюда.
	pushConfig := push.DefaultClientConfig(cfg.Push.WebhookURL, cfg.Push.Token)
	pushConfig.Timeout = cfg.Push.RequestTimeout
	pushConfig.Logger = slogger
	pushConfig.Debug = cfg.App.Debug
	pushClient := push.NewClient(pushConfig)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION-СЛОЙ
	// ─────────────────────────────────────────────────────────────────────────
	buildIntelHandler := query.NewBuildIntelStateHandler(
		userRepo,
		sessionRepo,
		memoryRepo,
		examRepo,
		masteryRepo,
		intelCache,
		eventBus,
	)
	intelBuilder := &intelBuilderAdapter{handler: buildIntelHandler}

	generateCoachingHandler := command.NewGenerateCoachingHandler(
		userRepo,
		intelBuilder,
		coachingRepo,
		eventBus,
	)
	regenerator := &coachingRegeneratorAdapter{handler: generateCoachingHandler}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	onSessionLogged := eventhandler.NewOnSessionLoggedHandler(
		intelCache,
		regenerator,
		slogger,
		eventhandler.DefaultSessionLoggedConfig(),
	)
	onTopicMastered := eventhandler.NewOnTopicMasteredHandler(pushClient, slogger)
	onWeakness := eventhandler.NewOnWeaknessIdentifiedHandler(pushClient, slogger)

	dispatcherConfig := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherConfig.Logger = slogger
	dispatcher := messaging.NewDispatcher(dispatcherConfig)
	if err := dispatcher.RegisterStudyHubHandlers(messaging.StudyHubHandlers{
		OnSessionLogged: onSessionLogged.Handle,
		OnTopicMastered: onTopicMastered.Handle,
		OnWeakness:      onWeakness.Handle,
	}); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() {
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	healthChecker.AddCheck("push", handlers.NewExternalAPICheck("push", pushClient))

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.EnableCORS = cfg.HTTP.EnableCORS
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverConfig.APIKeyHeader = cfg.HTTP.APIKeyHeader
	serverConfig.APIKeys = cfg.HTTP.APIKeys
	serverConfig.EnableMetrics = cfg.HTTP.EnableMetrics

	server := httpserver.NewServer(serverConfig, httpserver.Dependencies{
		RegisterUserHandler:        command.NewRegisterUserHandler(userRepo),
		UpdateSettingsHandler:      command.NewUpdateSettingsHandler(userRepo),
		LogSessionHandler:          command.NewLogSessionHandler(userRepo, sessionRepo, memoryRepo, masteryRepo, examRepo, eventBus),
		CreateExamHandler:          command.NewCreateExamHandler(examRepo, masteryRepo, eventBus),
		DeleteExamHandler:          command.NewDeleteExamHandler(examRepo),
		ReviewTopicHandler:         command.NewReviewTopicHandler(masteryRepo, eventBus),
		RecordQuizResultHandler:    command.NewRecordQuizResultHandler(masteryRepo, eventBus),
		GenerateCoachingHandler:    generateCoachingHandler,
		UpdateMessageStatusHandler: command.NewUpdateMessageStatusHandler(coachingRepo),
		BuildIntelStateHandler:     buildIntelHandler,
		GetCoachingMessagesHandler: query.NewGetCoachingMessagesHandler(coachingRepo),
		Logger:                     httpLogger,
		HealthChecker:              healthChecker,
	})

	errCh := server.StartAsync()
	slogger.Info("HTTP server started", "addr", fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port))

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		slogger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	slogger.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slogger.Error("server shutdown failed", "error", err)
	}

	slogger.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTERS
// ══════════════════════════════════════════════════════════════════════════════

// intelBuilderAdapter адаптирует query-обработчик под command.IntelStateBuilder.
type intelBuilderAdapter struct {
	handler *query.BuildIntelStateHandler
}

func (a *intelBuilderAdapter) BuildState(ctx context.Context, userID string, bypassCache bool, now time.Time) (*intel.UserIntelState, error) {
	return a.handler.Handle(ctx, query.BuildIntelStateQuery{
		UserID:      userID,
		BypassCache: bypassCache,
		Now:         now,
	})
}

// coachingRegeneratorAdapter адаптирует команду генерации коучинга под
// eventhandler.CoachingRegenerator.
type coachingRegeneratorAdapter struct {
	handler *command.GenerateCoachingHandler
}

func (a *coachingRegeneratorAdapter) Regenerate(ctx context.Context, userID string, now time.Time) error {
	_, err := a.handler.Handle(ctx, command.GenerateCoachingCommand{
		UserID: userID,
		Now:    now,
	})
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupSlog настраивает структурированное логирование для инфраструктуры.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
