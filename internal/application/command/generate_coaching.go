package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/coaching"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE COACHING COMMAND
// Пересобирает активный набор коучинг-сообщений пользователя из свежего
// интел-состояния. Замена выполняется атомарно: пользователь никогда не
// видит наполовину обновлённый набор.
// ══════════════════════════════════════════════════════════════════════════════

// IntelStateBuilder отдаёт собранное интел-состояние пользователя.
// Реализуется query.BuildIntelStateHandler через тонкий адаптер в cmd/.
type IntelStateBuilder interface {
	// BuildState собирает состояние, минуя кеш при bypassCache.
	BuildState(ctx context.Context, userID string, bypassCache bool, now time.Time) (*intel.UserIntelState, error)
}

// GenerateCoachingCommand содержит параметры генерации.
type GenerateCoachingCommand struct {
	// UserID - пользователь, для которого генерируются планы.
	UserID string

	// Now - момент генерации (пустой = сейчас).
	Now time.Time

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c GenerateCoachingCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("generate_coaching: user_id must be provided")
	}
	return nil
}

// GenerateCoachingResult содержит результат генерации.
type GenerateCoachingResult struct {
	// PlanCount - сколько планов сгенерировано.
	PlanCount int

	// Skipped - генерация пропущена (коучинг выключен в настройках).
	Skipped bool

	// TopType - тип самого приоритетного плана.
	TopType coaching.MessageType

	// GeneratedAt - момент генерации.
	GeneratedAt time.Time
}

// GenerateCoachingHandler обрабатывает команду генерации.
type GenerateCoachingHandler struct {
	userRepo       user.Repository
	intelBuilder   IntelStateBuilder
	coachingRepo   coaching.Repository
	eventPublisher shared.EventPublisher
}

// NewGenerateCoachingHandler создаёт новый обработчик.
func NewGenerateCoachingHandler(
	userRepo user.Repository,
	intelBuilder IntelStateBuilder,
	coachingRepo coaching.Repository,
	eventPublisher shared.EventPublisher,
) *GenerateCoachingHandler {
	return &GenerateCoachingHandler{
		userRepo:       userRepo,
		intelBuilder:   intelBuilder,
		coachingRepo:   coachingRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle выполняет команду.
func (h *GenerateCoachingHandler) Handle(ctx context.Context, cmd GenerateCoachingCommand) (*GenerateCoachingResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("coaching", "Generate", shared.ErrValidation, "invalid command", err)
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	u, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, shared.WrapError("coaching", "Generate", shared.ErrNotFound, "user not found", err)
	}
	if !u.Settings.CoachingEnabled {
		return &GenerateCoachingResult{Skipped: true, GeneratedAt: now}, nil
	}

	// Свежесть важнее кеша: планы строятся из только что собранного состояния.
	state, err := h.intelBuilder.BuildState(ctx, cmd.UserID, true, now)
	if err != nil {
		return nil, shared.WrapError("coaching", "Generate", shared.ErrExternalService, "failed to build intel state", err)
	}

	plans := coaching.GeneratePlans(*state, now)

	messages := make([]*coaching.Message, 0, len(plans))
	for _, plan := range plans {
		msg, err := coaching.NewMessage(uuid.NewString(), plan, now)
		if err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	if err := h.coachingRepo.ReplaceActive(ctx, cmd.UserID, messages); err != nil {
		return nil, shared.WrapError("coaching", "Generate", shared.ErrExternalService, "failed to replace active messages", err)
	}

	result := &GenerateCoachingResult{
		PlanCount:   len(messages),
		GeneratedAt: now,
	}
	if len(messages) > 0 {
		result.TopType = messages[0].Type
	}

	if h.eventPublisher != nil {
		event := shared.NewCoachingGeneratedEvent(cmd.UserID, len(messages), string(result.TopType))
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE STATUS COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateMessageStatusCommand отклоняет или завершает сообщение.
type UpdateMessageStatusCommand struct {
	// MessageID - ID сообщения.
	MessageID string

	// UserID - владелец (защита от чужих сообщений).
	UserID string

	// Complete - true = выполнено, false = отклонено.
	Complete bool
}

// UpdateMessageStatusHandler обрабатывает смену статуса сообщения.
type UpdateMessageStatusHandler struct {
	coachingRepo coaching.Repository
}

// NewUpdateMessageStatusHandler создаёт новый обработчик.
func NewUpdateMessageStatusHandler(coachingRepo coaching.Repository) *UpdateMessageStatusHandler {
	return &UpdateMessageStatusHandler{coachingRepo: coachingRepo}
}

// Handle выполняет команду.
func (h *UpdateMessageStatusHandler) Handle(ctx context.Context, cmd UpdateMessageStatusCommand) error {
	if cmd.MessageID == "" || cmd.UserID == "" {
		return shared.WrapError("coaching", "UpdateStatus", shared.ErrValidation, "message_id and user_id must be provided", nil)
	}

	msg, err := h.coachingRepo.GetByID(ctx, cmd.MessageID)
	if err != nil {
		return shared.WrapError("coaching", "UpdateStatus", shared.ErrNotFound, "message not found", err)
	}
	if msg.UserID != cmd.UserID {
		return shared.ErrMessageNotFound
	}

	now := time.Now().UTC()
	if cmd.Complete {
		err = msg.Complete(now)
	} else {
		err = msg.Dismiss(now)
	}
	if err != nil {
		return err
	}

	return h.coachingRepo.UpdateStatus(ctx, msg)
}
