package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// MASTERY MILESTONE HANDLERS
// Превращают вехи mastery в пуш-уведомления: освоение темы заслуживает
// поздравления, систематическая слабость — мягкого предупреждения.
// ═══════════════════════════════════════════════════════════════════════════

// PushSender доставляет короткое уведомление пользователю.
// Реализация живёт в infrastructure/external.
type PushSender interface {
	Send(ctx context.Context, userID, title, body string) error
}

// OnTopicMasteredHandler обрабатывает событие освоения темы.
type OnTopicMasteredHandler struct {
	push   PushSender
	logger *slog.Logger
}

// NewOnTopicMasteredHandler создаёт новый обработчик.
func NewOnTopicMasteredHandler(push PushSender, logger *slog.Logger) *OnTopicMasteredHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnTopicMasteredHandler{
		push:   push,
		logger: logger.With("handler", "on_topic_mastered"),
	}
}

// Handle обрабатывает событие. Реализует shared.EventHandler.
func (h *OnTopicMasteredHandler) Handle(event shared.Event) error {
	masteredEvent, ok := event.(shared.TopicMasteredEvent)
	if !ok {
		h.logger.Warn("received non-TopicMasteredEvent", "event_type", event.EventType())
		return nil
	}

	if h.push == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	title := "Topic mastered"
	body := fmt.Sprintf("%s: %s is now at %d%%. Solid work.",
		masteredEvent.Subject, masteredEvent.Topic, masteredEvent.Score)

	if err := h.push.Send(ctx, masteredEvent.UserID, title, body); err != nil {
		h.logger.Error("failed to send mastered push",
			"user_id", masteredEvent.UserID,
			"topic", masteredEvent.Topic,
			"error", err,
		)
		return err
	}

	h.logger.Info("mastered push sent",
		"user_id", masteredEvent.UserID,
		"topic", masteredEvent.Topic,
		"score", masteredEvent.Score,
	)
	return nil
}

// OnWeaknessIdentifiedHandler обрабатывает событие систематической слабости.
type OnWeaknessIdentifiedHandler struct {
	push   PushSender
	logger *slog.Logger
}

// NewOnWeaknessIdentifiedHandler создаёт новый обработчик.
func NewOnWeaknessIdentifiedHandler(push PushSender, logger *slog.Logger) *OnWeaknessIdentifiedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnWeaknessIdentifiedHandler{
		push:   push,
		logger: logger.With("handler", "on_weakness_identified"),
	}
}

// Handle обрабатывает событие. Реализует shared.EventHandler.
func (h *OnWeaknessIdentifiedHandler) Handle(event shared.Event) error {
	weaknessEvent, ok := event.(shared.WeaknessIdentifiedEvent)
	if !ok {
		h.logger.Warn("received non-WeaknessIdentifiedEvent", "event_type", event.EventType())
		return nil
	}

	if h.push == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	title := "Stuck topic detected"
	body := fmt.Sprintf("%s: %s is still at %d%% after %d sessions. Try a different approach - flashcards or a short quiz.",
		weaknessEvent.Subject, weaknessEvent.Topic, weaknessEvent.Score, weaknessEvent.SessionCount)

	if err := h.push.Send(ctx, weaknessEvent.UserID, title, body); err != nil {
		h.logger.Error("failed to send weakness push",
			"user_id", weaknessEvent.UserID,
			"topic", weaknessEvent.Topic,
			"error", err,
		)
		return err
	}
	return nil
}
