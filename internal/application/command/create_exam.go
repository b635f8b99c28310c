package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE EXAM COMMAND
// Регистрирует экзамен и сразу рассчитывает стартовую угрозу, чтобы
// пользователь видел её, не дожидаясь первой джобы.
// ══════════════════════════════════════════════════════════════════════════════

// CreateExamCommand содержит данные нового экзамена.
type CreateExamCommand struct {
	// UserID - владелец экзамена.
	UserID string

	// Subject - предмет.
	Subject string

	// Title - название экзамена.
	Title string

	// ExamDate - дата экзамена.
	ExamDate time.Time

	// Topics - покрываемые темы.
	Topics []string

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c CreateExamCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("create_exam: user_id must be provided")
	}
	if strings.TrimSpace(c.Subject) == "" {
		return errors.New("create_exam: subject must be provided")
	}
	if c.ExamDate.IsZero() {
		return errors.New("create_exam: exam_date must be provided")
	}
	return nil
}

// CreateExamResult содержит результат регистрации.
type CreateExamResult struct {
	// ExamID - ID созданного экзамена.
	ExamID string

	// DaysRemaining - дней до экзамена.
	DaysRemaining int

	// ThreatLevel - стартовый уровень угрозы.
	ThreatLevel exam.ThreatLevel

	// PredictedOutcome - прогнозируемый диапазон оценки.
	PredictedOutcome string
}

// CreateExamHandler обрабатывает команду создания экзамена.
type CreateExamHandler struct {
	examRepo       exam.Repository
	masteryRepo    mastery.Repository
	eventPublisher shared.EventPublisher
}

// NewCreateExamHandler создаёт новый обработчик.
func NewCreateExamHandler(
	examRepo exam.Repository,
	masteryRepo mastery.Repository,
	eventPublisher shared.EventPublisher,
) *CreateExamHandler {
	return &CreateExamHandler{
		examRepo:       examRepo,
		masteryRepo:    masteryRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle выполняет команду.
func (h *CreateExamHandler) Handle(ctx context.Context, cmd CreateExamCommand) (*CreateExamResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("exam", "Create", shared.ErrValidation, "invalid command", err)
	}

	now := time.Now().UTC()
	if !cmd.ExamDate.After(now) {
		return nil, shared.ErrExamInPast
	}

	e, err := exam.NewExam(exam.NewExamParams{
		ID:       uuid.NewString(),
		UserID:   cmd.UserID,
		Subject:  cmd.Subject,
		Title:    cmd.Title,
		ExamDate: cmd.ExamDate,
		Topics:   cmd.Topics,
	})
	if err != nil {
		return nil, shared.WrapError("exam", "Create", shared.ErrValidation, "invalid exam", err)
	}

	// Стартовая угроза по текущему mastery; отсутствие строк даёт
	// нулевое владение и честный CRITICAL для близких экзаменов.
	rows, err := h.masteryRepo.ListByUser(ctx, cmd.UserID)
	if err != nil {
		rows = nil
	}

	snapshots := intel.ComputeExamThreats([]*exam.Exam{e}, rows, now)
	if len(snapshots) == 1 {
		intel.ApplyThreatToExam(e, snapshots[0], now)
	}

	if err := h.examRepo.Create(ctx, e); err != nil {
		return nil, shared.WrapError("exam", "Create", shared.ErrExternalService, "failed to save exam", err)
	}

	if h.eventPublisher != nil {
		event := shared.NewExamCreatedEvent(cmd.UserID, e.ID, e.Subject.String(), e.ExamDate)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return &CreateExamResult{
		ExamID:           e.ID,
		DaysRemaining:    e.DaysRemaining(now),
		ThreatLevel:      e.ThreatLevel,
		PredictedOutcome: e.PredictedOutcome,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE / DELETE EXAM
// ══════════════════════════════════════════════════════════════════════════════

// UpdateExamCommand переносит дату или меняет список тем экзамена.
type UpdateExamCommand struct {
	// ExamID - ID экзамена.
	ExamID string

	// UserID - владелец (защита от чужих экзаменов).
	UserID string

	// ExamDate - новая дата (нулевая = без изменений).
	ExamDate time.Time

	// Topics - новый список тем (nil = без изменений).
	Topics []string
}

// UpdateExamHandler обрабатывает команду изменения экзамена.
type UpdateExamHandler struct {
	examRepo    exam.Repository
	masteryRepo mastery.Repository
}

// NewUpdateExamHandler создаёт новый обработчик.
func NewUpdateExamHandler(examRepo exam.Repository, masteryRepo mastery.Repository) *UpdateExamHandler {
	return &UpdateExamHandler{examRepo: examRepo, masteryRepo: masteryRepo}
}

// Handle выполняет команду: меняет экзамен и пересчитывает угрозу.
func (h *UpdateExamHandler) Handle(ctx context.Context, cmd UpdateExamCommand) (*exam.Exam, error) {
	if cmd.ExamID == "" || cmd.UserID == "" {
		return nil, shared.WrapError("exam", "Update", shared.ErrValidation, "exam_id and user_id must be provided", nil)
	}

	e, err := h.examRepo.GetByID(ctx, cmd.ExamID)
	if err != nil {
		return nil, shared.WrapError("exam", "Update", shared.ErrNotFound, "exam not found", err)
	}
	if e.UserID != cmd.UserID {
		return nil, shared.ErrExamNotFound
	}

	now := time.Now().UTC()

	if !cmd.ExamDate.IsZero() {
		if !cmd.ExamDate.After(now) {
			return nil, shared.ErrExamInPast
		}
		e.ExamDate = cmd.ExamDate
	}
	if cmd.Topics != nil {
		topics := make([]string, 0, len(cmd.Topics))
		for _, t := range cmd.Topics {
			if trimmed := strings.TrimSpace(t); trimmed != "" {
				topics = append(topics, trimmed)
			}
		}
		if len(topics) == 0 {
			return nil, shared.ErrExamNoTopics
		}
		e.Topics = topics
	}
	e.UpdatedAt = now

	rows, err := h.masteryRepo.ListByUser(ctx, cmd.UserID)
	if err != nil {
		rows = nil
	}
	snapshots := intel.ComputeExamThreats([]*exam.Exam{e}, rows, now)
	if len(snapshots) == 1 {
		intel.ApplyThreatToExam(e, snapshots[0], now)
	}

	if err := h.examRepo.Update(ctx, e); err != nil {
		return nil, shared.WrapError("exam", "Update", shared.ErrExternalService, "failed to save exam", err)
	}
	return e, nil
}

// DeleteExamCommand удаляет экзамен пользователя.
type DeleteExamCommand struct {
	ExamID string
	UserID string
}

// DeleteExamHandler обрабатывает удаление экзамена.
type DeleteExamHandler struct {
	examRepo exam.Repository
}

// NewDeleteExamHandler создаёт новый обработчик.
func NewDeleteExamHandler(examRepo exam.Repository) *DeleteExamHandler {
	return &DeleteExamHandler{examRepo: examRepo}
}

// Handle выполняет команду.
func (h *DeleteExamHandler) Handle(ctx context.Context, cmd DeleteExamCommand) error {
	if cmd.ExamID == "" || cmd.UserID == "" {
		return shared.WrapError("exam", "Delete", shared.ErrValidation, "exam_id and user_id must be provided", nil)
	}

	e, err := h.examRepo.GetByID(ctx, cmd.ExamID)
	if err != nil {
		return shared.WrapError("exam", "Delete", shared.ErrNotFound, "exam not found", err)
	}
	if e.UserID != cmd.UserID {
		return shared.ErrExamNotFound
	}

	return h.examRepo.Delete(ctx, cmd.ExamID)
}
