// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/study"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOG SESSION COMMAND
// Центральная команда записи: сохраняет сессию, заметку, применяет
// каноническое правило обновления mastery и пересчитывает угрозы экзаменов
// по затронутому пользователю.
// ══════════════════════════════════════════════════════════════════════════════

// masteryUpdateRetries - сколько раз повторить обновление mastery при
// конкурентной гонке (две сессии по одной теме одновременно).
const masteryUpdateRetries = 3

// LogSessionCommand содержит данные новой учебной сессии.
type LogSessionCommand struct {
	// UserID - владелец сессии.
	UserID string

	// Subject - предмет.
	Subject string

	// Topic - тема (опционально; без темы mastery не трогается).
	Topic string

	// Minutes - длительность в минутах.
	Minutes int

	// Effectiveness - самооценка 1-10, 0 = не проставлена.
	Effectiveness int

	// Note - свободная заметка (уходит в память для семантики).
	Note string

	// StartedAt - начало сессии (пустое = сейчас).
	StartedAt time.Time

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c LogSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("log_session: user_id must be provided")
	}
	if strings.TrimSpace(c.Subject) == "" {
		return errors.New("log_session: subject must be provided")
	}
	if c.Minutes <= 0 {
		return errors.New("log_session: minutes must be positive")
	}
	return nil
}

// LogSessionResult содержит результат записи сессии.
type LogSessionResult struct {
	// SessionID - ID созданной сессии.
	SessionID string

	// MasteryScore - оценка темы после обновления (-1, если тема не указана).
	MasteryScore int

	// MasteryDelta - применённое приращение оценки.
	MasteryDelta int

	// Milestone - достигнутая веха ("mastered" / "weakness" / пусто).
	Milestone mastery.Milestone

	// ThreatsRecalculated - по скольким экзаменам пересчитана угроза.
	ThreatsRecalculated int

	// LoggedAt - момент записи.
	LoggedAt time.Time

	// Events - доменные события, порождённые командой.
	Events []shared.Event
}

// LogSessionHandler обрабатывает команду записи сессии.
type LogSessionHandler struct {
	userRepo       user.Repository
	sessionRepo    study.SessionRepository
	memoryRepo     study.MemoryRepository
	masteryRepo    mastery.Repository
	examRepo       exam.Repository
	eventPublisher shared.EventPublisher
}

// NewLogSessionHandler создаёт новый обработчик.
func NewLogSessionHandler(
	userRepo user.Repository,
	sessionRepo study.SessionRepository,
	memoryRepo study.MemoryRepository,
	masteryRepo mastery.Repository,
	examRepo exam.Repository,
	eventPublisher shared.EventPublisher,
) *LogSessionHandler {
	return &LogSessionHandler{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		memoryRepo:     memoryRepo,
		masteryRepo:    masteryRepo,
		examRepo:       examRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle выполняет команду.
func (h *LogSessionHandler) Handle(ctx context.Context, cmd LogSessionCommand) (*LogSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("study", "LogSession", shared.ErrValidation, "invalid command", err)
	}

	u, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, shared.WrapError("study", "LogSession", shared.ErrNotFound, "user not found", err)
	}

	session, err := study.NewSession(study.NewSessionParams{
		ID:            uuid.NewString(),
		UserID:        cmd.UserID,
		Subject:       cmd.Subject,
		Topic:         cmd.Topic,
		StartedAt:     cmd.StartedAt,
		Minutes:       cmd.Minutes,
		Effectiveness: cmd.Effectiveness,
		Note:          cmd.Note,
	})
	if err != nil {
		return nil, shared.WrapError("study", "LogSession", shared.ErrValidation, "invalid session", err)
	}

	if err := h.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("log_session: failed to save session: %w", err)
	}

	result := &LogSessionResult{
		SessionID:    session.ID,
		MasteryScore: -1,
		LoggedAt:     session.StartedAt,
		Events:       make([]shared.Event, 0, 4),
	}

	sessionEvent := shared.NewSessionLoggedEvent(
		cmd.UserID, session.ID,
		session.Subject.String(), session.Topic.String(),
		session.Minutes.Int(), session.Effectiveness.Int(),
	)
	if cmd.CorrelationID != "" {
		sessionEvent.BaseEvent = sessionEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, sessionEvent)

	// Заметка идёт в память для семантического анализа. Сбой здесь не
	// должен откатывать уже записанную сессию.
	if strings.TrimSpace(cmd.Note) != "" {
		if memory, memErr := study.NewMemoryText(uuid.NewString(), cmd.UserID, cmd.Note, session.ID); memErr == nil {
			_ = h.memoryRepo.Save(ctx, memory)
		}
	}

	if session.Topic.String() != "" {
		if err := h.updateMastery(ctx, session, result); err != nil {
			return nil, err
		}
	}

	u.TouchSession(session.StartedAt)
	if err := h.userRepo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("log_session: failed to update user: %w", err)
	}

	recalculated, err := h.recalculateThreats(ctx, cmd.UserID, session.StartedAt)
	if err == nil {
		result.ThreatsRecalculated = recalculated
	}

	h.publish(result.Events)
	return result, nil
}

// updateMastery применяет каноническое аддитивное правило обновления.
// Гонка двух сессий по одной теме разрешается перечитыванием строки.
func (h *LogSessionHandler) updateMastery(ctx context.Context, session *study.Session, result *LogSessionResult) error {
	subject := session.Subject.String()
	topic := session.Topic.String()

	var lastErr error
	for attempt := 0; attempt < masteryUpdateRetries; attempt++ {
		row, err := h.masteryRepo.GetByTopic(ctx, session.UserID, subject, topic)

		switch {
		case err == nil:
			oldScore := int(row.Score)
			milestone := row.ApplyEffectiveness(session.Effectiveness, session.StartedAt)

			if err := h.masteryRepo.Update(ctx, row); err != nil {
				if shared.IsConflict(err) {
					lastErr = err
					continue
				}
				return fmt.Errorf("log_session: failed to update mastery: %w", err)
			}

			result.MasteryScore = int(row.Score)
			result.MasteryDelta = int(row.Score) - oldScore
			result.Milestone = milestone
			result.Events = append(result.Events,
				shared.NewMasteryUpdatedEvent(session.UserID, subject, topic, oldScore, int(row.Score), "session"))
			h.appendMilestoneEvent(result, row, milestone)
			return nil

		case shared.IsNotFound(err):
			row, err = mastery.NewFromSession(uuid.NewString(), session.UserID, subject, topic, session.Effectiveness, session.StartedAt)
			if err != nil {
				return shared.WrapError("mastery", "Create", shared.ErrValidation, "invalid mastery row", err)
			}

			if err := h.masteryRepo.Upsert(ctx, row); err != nil {
				if shared.IsConflict(err) || shared.IsAlreadyExists(err) {
					lastErr = err
					continue
				}
				return fmt.Errorf("log_session: failed to create mastery: %w", err)
			}

			result.MasteryScore = int(row.Score)
			result.MasteryDelta = int(row.Score)
			result.Events = append(result.Events,
				shared.NewMasteryUpdatedEvent(session.UserID, subject, topic, 0, int(row.Score), "session"))
			return nil

		default:
			return fmt.Errorf("log_session: failed to load mastery: %w", err)
		}
	}

	return shared.WrapError("mastery", "Update", shared.ErrConcurrentModification, "retries exhausted", lastErr)
}

// appendMilestoneEvent добавляет событие вехи, если она достигнута.
func (h *LogSessionHandler) appendMilestoneEvent(result *LogSessionResult, row *mastery.TopicMastery, milestone mastery.Milestone) {
	switch milestone {
	case mastery.MilestoneMastered:
		result.Events = append(result.Events,
			shared.NewTopicMasteredEvent(row.UserID, row.Subject.String(), row.Topic, int(row.Score)))
	case mastery.MilestoneWeakness:
		result.Events = append(result.Events,
			shared.NewWeaknessIdentifiedEvent(row.UserID, row.Subject.String(), row.Topic, int(row.Score), row.SessionCount))
	}
}

// recalculateThreats пересчитывает кешированные угрозы по предстоящим
// экзаменам пользователя.
func (h *LogSessionHandler) recalculateThreats(ctx context.Context, userID string, now time.Time) (int, error) {
	exams, err := h.examRepo.ListUpcoming(ctx, userID, now)
	if err != nil || len(exams) == 0 {
		return 0, err
	}

	rows, err := h.masteryRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	snapshots := intel.ComputeExamThreats(exams, rows, now)
	byID := make(map[string]intel.ExamThreatSnapshot, len(snapshots))
	for _, s := range snapshots {
		byID[s.ExamID] = s
	}

	updated := 0
	for _, e := range exams {
		snapshot, ok := byID[e.ID]
		if !ok {
			continue
		}
		intel.ApplyThreatToExam(e, snapshot, now)
		if err := h.examRepo.UpdateThreat(ctx, e); err == nil {
			updated++
		}
	}
	return updated, nil
}

// publish отправляет события; сбой публикации не валит команду.
func (h *LogSessionHandler) publish(events []shared.Event) {
	if h.eventPublisher == nil {
		return
	}
	for _, event := range events {
		_ = h.eventPublisher.Publish(event)
	}
}
