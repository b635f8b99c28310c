// Package main - точка входа для фоновых процессов (Worker) Cortex Study Hub.
//
// Worker отвечает за периодические задачи:
// - Генерация утреннего интел-брифа (7:00 по локальному времени пользователя)
// - Отправка нуджей (10:00, 14:00, 18:00)
// - Алерты за 14/7/3/1 день до экзамена
// - Пуши о слабых темах и еженедельная консолидация памяти
//
// Все задачи идут через единый планировщик с одним воркером: генерация
// текста ограничена рейт-лимитом внешнего API, и параллельные задачи
// только мешали бы друг другу.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cortex-hub/cortex-study-hub/config"
	"github.com/cortex-hub/cortex-study-hub/internal/application/command"
	"github.com/cortex-hub/cortex-study-hub/internal/application/eventhandler"
	"github.com/cortex-hub/cortex-study-hub/internal/application/query"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/external/push"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/external/textgen"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/messaging"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/persistence/postgres"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/persistence/redis"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/scheduler"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/scheduler/jobs"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем приложение
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Cortex Study Hub Worker",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
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
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	// Проверяем соединение
	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ (Worker также должен иметь актуальную схему)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS
	// ─────────────────────────────────────────────────────────────────────────
	// Redis для Worker обязателен: claim-ключи защищают от повторной
	// доставки брифов и нуджей, без них пользователь получит дубли.
	log.Info("connecting to Redis...")
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
	log.Info("Redis connection established")

	intelCache := redis.NewIntelStateCache(redisCache)
	nudgeTracker := redis.NewNudgeTracker(redisCache)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	userRepo := postgres.NewUserRepository(dbConn)
	sessionRepo := postgres.NewSessionRepository(dbConn)
	memoryRepo := postgres.NewMemoryRepository(dbConn)
	masteryRepo := postgres.NewMasteryRepository(dbConn)
	examRepo := postgres.NewExamRepository(dbConn)
	alertLog := postgres.NewExamAlertLog(dbConn)
	coachingRepo := postgres.NewCoachingRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.AsyncMode = true
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing external clients...")

	textGenConfig := textgen.DefaultClientConfig(cfg.TextGen.BaseURL, cfg.TextGen.APIKey)
	textGenConfig.Model = cfg.TextGen.Model
	textGenConfig.MaxTokens = cfg.TextGen.MaxTokens
	textGenConfig.Temperature = cfg.TextGen.Temperature
	textGenConfig.Timeout = cfg.TextGen.RequestTimeout
	textGenConfig.RateLimiterConfig = textgen.RateLimiterConfig{
		RequestsPerSecond: cfg.TextGen.RequestsPerSecond,
		BurstSize:         cfg.TextGen.RateLimitBurst,
		MinInterval:       cfg.TextGen.MinInterval,
		WaitTimeout:       cfg.TextGen.WaitTimeout,
	}
	textGenConfig.Logger = log
	textGenConfig.Debug = cfg.App.Debug
	textGenClient := textgen.NewClient(textGenConfig)

	pushConfig := push.DefaultClientConfig(cfg.Push.WebhookURL, cfg.Push.Token)
	pushConfig.Timeout = cfg.Push.RequestTimeout
	pushConfig.Logger = log
	pushConfig.Debug = cfg.App.Debug
	pushClient := push.NewClient(pushConfig)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ИНИЦИАЛИЗАЦИЯ APPLICATION-СЛОЯ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application handlers...")

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
	// 10. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	onSessionLogged := eventhandler.NewOnSessionLoggedHandler(
		intelCache,
		regenerator,
		log,
		eventhandler.DefaultSessionLoggedConfig(),
	)
	onTopicMastered := eventhandler.NewOnTopicMasteredHandler(pushClient, log)
	onWeakness := eventhandler.NewOnWeaknessIdentifiedHandler(pushClient, log)
	onExamThreshold := eventhandler.NewOnExamThresholdHandler(coachingRepo, pushClient, log)

	dispatcherConfig := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherConfig.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherConfig)
	if err := dispatcher.RegisterStudyHubHandlers(messaging.StudyHubHandlers{
		OnSessionLogged: onSessionLogged.Handle,
		OnTopicMastered: onTopicMastered.Handle,
		OnWeakness:      onWeakness.Handle,
		OnExamThreshold: onExamThreshold.Handle,
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
	// 11. РЕГИСТРАЦИЯ ЗАДАЧ В ПЛАНИРОВЩИКЕ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")
	schedulerConfig := scheduler.DefaultSchedulerConfig()
	schedulerConfig.Logger = log
	sched := scheduler.NewScheduler(schedulerConfig)

	dailyIntelConfig := jobs.DefaultDailyIntelConfig()
	dailyIntelConfig.Concurrency = cfg.Scheduler.IntelConcurrency
	dailyIntel := jobs.NewDailyIntelJob(
		userRepo, intelBuilder, textGenClient, coachingRepo,
		pushClient, nudgeTracker, log, dailyIntelConfig,
	)

	studyNudges := jobs.NewStudyNudgesJob(
		userRepo, intelBuilder, textGenClient,
		pushClient, nudgeTracker, log, jobs.DefaultStudyNudgesConfig(),
	)

	examThresholds := jobs.NewExamThresholdsJob(
		examRepo, alertLog, masteryRepo, userRepo,
		pushClient, eventBus, log, jobs.DefaultExamThresholdsConfig(),
	)

	weakTopicPush := jobs.NewWeakTopicPushJob(
		userRepo, masteryRepo, examRepo, textGenClient,
		pushClient, log, jobs.DefaultWeakTopicPushConfig(),
	)

	weeklyConsolidation := jobs.NewWeeklyConsolidationJob(
		userRepo, memoryRepo, intelBuilder,
		eventBus, log, jobs.DefaultWeeklyConsolidationConfig(),
	)

	coachingMessages := jobs.NewCoachingMessagesJob(
		userRepo, regenerator, log, jobs.DefaultCoachingMessagesConfig(),
	)

	cleanupExpired := jobs.NewCleanupExpiredJob(
		coachingRepo, log, jobs.DefaultCleanupExpiredConfig(),
	)

	hourly := scheduler.NewIntervalSchedule(time.Hour)

	// Часовые задачи сами выбирают пользователей, у которых локальное
	// время попало в нужное окно, поэтому расписание у них одно.
	registrations := []struct {
		job      scheduler.Job
		schedule scheduler.Schedule
	}{
		{dailyIntel, hourly},
		{studyNudges, hourly},
		{examThresholds, hourly},
		{coachingMessages, hourly},
		{cleanupExpired, hourly},
		{weakTopicPush, scheduler.NewIntervalSchedule(cfg.Scheduler.WeakTopicInterval)},
		{weeklyConsolidation, scheduler.MustParseCronExpression("0 0 * * 0")},
	}
	for _, r := range registrations {
		if err := sched.Register(r.job, r.schedule); err != nil {
			return fmt.Errorf("failed to register job %s: %w", r.job.Name(), err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, worker will idle")
	} else {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		log.Info("scheduler started", "jobs", len(registrations))
	}

	log.Info("Cortex Study Hub Worker is running")

	// Ожидаем сигнал завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	// Начинаем graceful shutdown
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	if sched.IsRunning() {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTERS
// ══════════════════════════════════════════════════════════════════════════════

// intelBuilderAdapter адаптирует query-обработчик под интерфейсы
// jobs.IntelStateBuilder и command.IntelStateBuilder.
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
// интерфейсы jobs.CoachingRegenerator и eventhandler.CoachingRegenerator.
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

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
