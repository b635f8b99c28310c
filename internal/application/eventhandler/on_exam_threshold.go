package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/coaching"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON EXAM THRESHOLD HANDLER
// Пороговый алерт (14/7/3/1 день до экзамена): добавляет карточку exam_alert
// поверх активного набора коучинга и дублирует её пушем. Дедупликацию по
// порогу делает джоба через exam.AlertLog — сюда событие приходит один раз.
// ═══════════════════════════════════════════════════════════════════════════

// OnExamThresholdHandler обрабатывает пороговое событие экзамена.
type OnExamThresholdHandler struct {
	coachingRepo coaching.Repository
	push         PushSender
	logger       *slog.Logger
}

// NewOnExamThresholdHandler создаёт новый обработчик.
func NewOnExamThresholdHandler(
	coachingRepo coaching.Repository,
	push PushSender,
	logger *slog.Logger,
) *OnExamThresholdHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnExamThresholdHandler{
		coachingRepo: coachingRepo,
		push:         push,
		logger:       logger.With("handler", "on_exam_threshold"),
	}
}

// Handle обрабатывает событие. Реализует shared.EventHandler.
func (h *OnExamThresholdHandler) Handle(event shared.Event) error {
	thresholdEvent, ok := event.(shared.ExamThresholdHitEvent)
	if !ok {
		h.logger.Warn("received non-ExamThresholdHitEvent", "event_type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	title, body := thresholdAlertText(thresholdEvent)

	msg, err := coaching.NewMessage(uuid.NewString(), coaching.Plan{
		UserID:   thresholdEvent.UserID,
		Type:     coaching.TypeExamAlert,
		Priority: thresholdPriority(thresholdEvent.DaysRemaining),
		Title:    title,
		Body:     body,
		Actions: []coaching.Action{
			{Type: coaching.ActionQuiz, Label: "Check your readiness", Payload: map[string]string{"subject": thresholdEvent.Subject}},
			{Type: coaching.ActionFlashcards, Label: "Drill weak topics", Payload: map[string]string{"subject": thresholdEvent.Subject}},
		},
	}, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("on_exam_threshold: build alert message: %w", err)
	}

	if err := h.coachingRepo.Create(ctx, msg); err != nil {
		h.logger.Error("failed to save exam alert",
			"user_id", thresholdEvent.UserID,
			"exam_id", thresholdEvent.ExamID,
			"error", err,
		)
		return err
	}

	if h.push != nil {
		if err := h.push.Send(ctx, thresholdEvent.UserID, title, body); err != nil {
			h.logger.Warn("failed to push exam alert",
				"user_id", thresholdEvent.UserID,
				"exam_id", thresholdEvent.ExamID,
				"error", err,
			)
		}
	}

	h.logger.Info("exam threshold alert delivered",
		"user_id", thresholdEvent.UserID,
		"exam_id", thresholdEvent.ExamID,
		"days_remaining", thresholdEvent.DaysRemaining,
	)
	return nil
}

// thresholdAlertText подбирает текст под срочность порога.
func thresholdAlertText(e shared.ExamThresholdHitEvent) (string, string) {
	switch {
	case e.DaysRemaining <= 1:
		return fmt.Sprintf("%s is tomorrow", e.Subject),
			"Final stretch: light mixed review, no new material, sleep on time."
	case e.DaysRemaining <= 3:
		return fmt.Sprintf("%d days until %s", e.DaysRemaining, e.Subject),
			"Crunch window. Focus only on the weakest topics and timed practice."
	case e.DaysRemaining <= 7:
		return fmt.Sprintf("One week until %s", e.Subject),
			"Time to switch from learning to consolidating. Schedule daily reviews."
	default:
		return fmt.Sprintf("%d days until %s", e.DaysRemaining, e.Subject),
			"Good runway. Build a topic-by-topic plan now and the last week stays calm."
	}
}

// thresholdPriority сопоставляет порог с приоритетом карточки.
func thresholdPriority(daysRemaining int) coaching.Priority {
	if daysRemaining <= 3 {
		return coaching.PriorityHigh
	}
	return coaching.PriorityMedium
}
