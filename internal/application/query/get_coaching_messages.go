package query

import (
	"context"
	"errors"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/coaching"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COACHING MESSAGES QUERY
// Возвращает активный набор коучинг-сообщений пользователя, отсортированный
// по приоритету. Истёкшие сообщения отфильтровываются на чтении - джоба
// очистки удалит их позже.
// ══════════════════════════════════════════════════════════════════════════════

// GetCoachingMessagesQuery содержит параметры запроса.
type GetCoachingMessagesQuery struct {
	// UserID - получатель сообщений.
	UserID string

	// Limit - максимум сообщений (0 = без ограничения).
	Limit int

	// Now - момент запроса (пустой = текущее время UTC).
	Now time.Time
}

// Validate проверяет корректность параметров.
func (q *GetCoachingMessagesQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id must be provided")
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}
	return nil
}

// CoachingMessageDTO - сообщение в формате для интерфейсного слоя.
type CoachingMessageDTO struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Priority      string            `json:"priority"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Actions       []coaching.Action `json:"actions"`
	TotalMinutes  int               `json:"total_minutes,omitempty"`
	DailyMinutes  int               `json:"daily_minutes,omitempty"`
	PredictedGain int               `json:"predicted_gain,omitempty"`
	Breakdown     []string          `json:"breakdown,omitempty"`
	ExpiresAt     time.Time         `json:"expires_at"`
	CreatedAt     time.Time         `json:"created_at"`
}

// GetCoachingMessagesResult содержит результат запроса.
type GetCoachingMessagesResult struct {
	Messages    []CoachingMessageDTO `json:"messages"`
	Total       int                  `json:"total"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// GetCoachingMessagesHandler обрабатывает запросы активных сообщений.
type GetCoachingMessagesHandler struct {
	coachingRepo coaching.Repository
}

// NewGetCoachingMessagesHandler создаёт новый обработчик.
func NewGetCoachingMessagesHandler(coachingRepo coaching.Repository) *GetCoachingMessagesHandler {
	return &GetCoachingMessagesHandler{coachingRepo: coachingRepo}
}

// Handle выполняет запрос.
func (h *GetCoachingMessagesHandler) Handle(ctx context.Context, query GetCoachingMessagesQuery) (*GetCoachingMessagesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("coaching", "GetMessages", shared.ErrValidation, "invalid query", err)
	}

	messages, err := h.coachingRepo.ListActive(ctx, query.UserID, query.Now)
	if err != nil {
		return nil, shared.WrapError("coaching", "GetMessages", shared.ErrExternalService, "failed to load messages", err)
	}

	if query.Limit > 0 && len(messages) > query.Limit {
		messages = messages[:query.Limit]
	}

	dtos := make([]CoachingMessageDTO, 0, len(messages))
	for _, m := range messages {
		dtos = append(dtos, CoachingMessageDTO{
			ID:            m.ID,
			Type:          string(m.Type),
			Priority:      string(m.Priority),
			Title:         m.Title,
			Body:          m.Body,
			Actions:       m.Actions,
			TotalMinutes:  m.TotalMinutes,
			DailyMinutes:  m.DailyMinutes,
			PredictedGain: m.PredictedGain,
			Breakdown:     m.Breakdown,
			ExpiresAt:     m.ExpiresAt,
			CreatedAt:     m.CreatedAt,
		})
	}

	return &GetCoachingMessagesResult{
		Messages:    dtos,
		Total:       len(dtos),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
