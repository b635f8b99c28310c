// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON SESSION LOGGED HANDLER
// Реагирует на запись новой сессии:
// 1. Сбрасывает кеш интел-состояния — следующая сборка увидит сессию
// 2. Пересобирает коучинг-планы — momentum-окно может открыться прямо сейчас
// ═══════════════════════════════════════════════════════════════════════════

// IntelInvalidator сбрасывает закешированное интел-состояние пользователя.
type IntelInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// CoachingRegenerator пересобирает активный набор коучинг-сообщений.
// Реализуется командой GenerateCoaching через тонкий адаптер в cmd/.
type CoachingRegenerator interface {
	Regenerate(ctx context.Context, userID string, now time.Time) error
}

// SessionLoggedConfig содержит конфигурацию обработчика.
type SessionLoggedConfig struct {
	// RegenerateCoaching — пересобирать ли планы сразу после сессии.
	RegenerateCoaching bool

	// HandlerTimeout — таймаут на всю обработку события.
	HandlerTimeout time.Duration
}

// DefaultSessionLoggedConfig возвращает конфигурацию по умолчанию.
func DefaultSessionLoggedConfig() SessionLoggedConfig {
	return SessionLoggedConfig{
		RegenerateCoaching: true,
		HandlerTimeout:     30 * time.Second,
	}
}

// OnSessionLoggedHandler обрабатывает событие записи сессии.
type OnSessionLoggedHandler struct {
	invalidator IntelInvalidator
	regenerator CoachingRegenerator
	logger      *slog.Logger
	config      SessionLoggedConfig
}

// NewOnSessionLoggedHandler создаёт новый обработчик.
func NewOnSessionLoggedHandler(
	invalidator IntelInvalidator,
	regenerator CoachingRegenerator,
	logger *slog.Logger,
	config SessionLoggedConfig,
) *OnSessionLoggedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.HandlerTimeout == 0 {
		config = DefaultSessionLoggedConfig()
	}

	return &OnSessionLoggedHandler{
		invalidator: invalidator,
		regenerator: regenerator,
		logger:      logger.With("handler", "on_session_logged"),
		config:      config,
	}
}

// Handle обрабатывает событие. Реализует shared.EventHandler.
func (h *OnSessionLoggedHandler) Handle(event shared.Event) error {
	sessionEvent, ok := event.(shared.SessionLoggedEvent)
	if !ok {
		h.logger.Warn("received non-SessionLoggedEvent", "event_type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.HandlerTimeout)
	defer cancel()

	h.logger.Info("processing session logged event",
		"user_id", sessionEvent.UserID,
		"session_id", sessionEvent.SessionID,
		"subject", sessionEvent.Subject,
		"minutes", sessionEvent.Minutes,
	)

	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx, sessionEvent.UserID); err != nil {
			h.logger.Error("failed to invalidate intel cache",
				"user_id", sessionEvent.UserID,
				"error", err,
			)
			// Кеш истечёт сам по TTL — продолжаем.
		}
	}

	if h.config.RegenerateCoaching && h.regenerator != nil {
		if err := h.regenerator.Regenerate(ctx, sessionEvent.UserID, sessionEvent.OccurredAt()); err != nil {
			h.logger.Error("failed to regenerate coaching",
				"user_id", sessionEvent.UserID,
				"error", err,
			)
		}
	}

	return nil
}
