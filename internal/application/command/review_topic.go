package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW TOPIC COMMAND
// Интервальное повторение: применяет SM-2 к теме и переносит дату
// следующего повторения.
// ══════════════════════════════════════════════════════════════════════════════

// ReviewTopicCommand содержит результат одного повторения.
type ReviewTopicCommand struct {
	// UserID - кто повторял.
	UserID string

	// Subject - предмет.
	Subject string

	// Topic - тема.
	Topic string

	// Quality - качество припоминания 1-5.
	Quality int

	// ReviewedAt - момент повторения (пустой = сейчас).
	ReviewedAt time.Time
}

// Validate проверяет корректность команды.
func (c ReviewTopicCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("review_topic: user_id must be provided")
	}
	if strings.TrimSpace(c.Subject) == "" || strings.TrimSpace(c.Topic) == "" {
		return errors.New("review_topic: subject and topic must be provided")
	}
	return nil
}

// ReviewTopicResult содержит результат повторения.
type ReviewTopicResult struct {
	// TopicID - ID записи владения темой.
	TopicID string

	// Easiness - коэффициент лёгкости после повторения.
	Easiness float64

	// IntervalDays - новый интервал в днях.
	IntervalDays int

	// Repetitions - длина успешной цепочки повторений.
	Repetitions int

	// NextReviewAt - дата следующего повторения.
	NextReviewAt time.Time
}

// ReviewTopicHandler обрабатывает команду повторения.
type ReviewTopicHandler struct {
	masteryRepo    mastery.Repository
	eventPublisher shared.EventPublisher
}

// NewReviewTopicHandler создаёт новый обработчик.
func NewReviewTopicHandler(masteryRepo mastery.Repository, eventPublisher shared.EventPublisher) *ReviewTopicHandler {
	return &ReviewTopicHandler{
		masteryRepo:    masteryRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle выполняет команду.
func (h *ReviewTopicHandler) Handle(ctx context.Context, cmd ReviewTopicCommand) (*ReviewTopicResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("mastery", "Review", shared.ErrValidation, "invalid command", err)
	}

	reviewedAt := cmd.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = time.Now().UTC()
	}

	row, err := h.masteryRepo.GetByTopic(ctx, cmd.UserID, cmd.Subject, cmd.Topic)
	if err != nil {
		return nil, shared.WrapError("mastery", "Review", shared.ErrNotFound, "topic mastery not found", err)
	}

	if err := row.Review(shared.ReviewQuality(cmd.Quality), reviewedAt); err != nil {
		return nil, err
	}

	if err := h.masteryRepo.Update(ctx, row); err != nil {
		return nil, shared.WrapError("mastery", "Review", shared.ErrExternalService, "failed to save review", err)
	}

	return &ReviewTopicResult{
		TopicID:      row.ID,
		Easiness:     row.Easiness,
		IntervalDays: row.IntervalDays,
		Repetitions:  row.Repetitions,
		NextReviewAt: row.NextReviewAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD QUIZ RESULT COMMAND
// Квиз конвертируется в шкалу самооценки и проходит через то же аддитивное
// правило обновления, что и сессии - единый путь изменения mastery.
// ══════════════════════════════════════════════════════════════════════════════

// RecordQuizResultCommand содержит результат квиза по теме.
type RecordQuizResultCommand struct {
	// UserID - кто проходил квиз.
	UserID string

	// Subject - предмет.
	Subject string

	// Topic - тема.
	Topic string

	// ScorePercent - результат квиза 0-100.
	ScorePercent int

	// CompletedAt - момент завершения (пустой = сейчас).
	CompletedAt time.Time
}

// Validate проверяет корректность команды.
func (c RecordQuizResultCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("record_quiz: user_id must be provided")
	}
	if strings.TrimSpace(c.Subject) == "" || strings.TrimSpace(c.Topic) == "" {
		return errors.New("record_quiz: subject and topic must be provided")
	}
	if c.ScorePercent < 0 || c.ScorePercent > 100 {
		return errors.New("record_quiz: score must be between 0 and 100")
	}
	return nil
}

// RecordQuizResultResult содержит результат применения квиза.
type RecordQuizResultResult struct {
	// NewScore - оценка темы после обновления.
	NewScore int

	// Delta - применённое приращение.
	Delta int

	// Milestone - достигнутая веха (если есть).
	Milestone mastery.Milestone
}

// RecordQuizResultHandler обрабатывает команду.
type RecordQuizResultHandler struct {
	masteryRepo    mastery.Repository
	eventPublisher shared.EventPublisher
}

// NewRecordQuizResultHandler создаёт новый обработчик.
func NewRecordQuizResultHandler(masteryRepo mastery.Repository, eventPublisher shared.EventPublisher) *RecordQuizResultHandler {
	return &RecordQuizResultHandler{
		masteryRepo:    masteryRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle выполняет команду.
func (h *RecordQuizResultHandler) Handle(ctx context.Context, cmd RecordQuizResultCommand) (*RecordQuizResultResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("mastery", "RecordQuiz", shared.ErrValidation, "invalid command", err)
	}

	completedAt := cmd.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	row, err := h.masteryRepo.GetByTopic(ctx, cmd.UserID, cmd.Subject, cmd.Topic)
	if err != nil {
		return nil, shared.WrapError("mastery", "RecordQuiz", shared.ErrNotFound, "topic mastery not found", err)
	}

	oldScore := int(row.Score)
	effectiveness := mastery.QualityToEffectiveness(cmd.ScorePercent)
	milestone := row.ApplyEffectiveness(effectiveness, completedAt)

	if err := h.masteryRepo.Update(ctx, row); err != nil {
		return nil, shared.WrapError("mastery", "RecordQuiz", shared.ErrExternalService, "failed to save quiz result", err)
	}

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(shared.NewMasteryUpdatedEvent(
			cmd.UserID, row.Subject.String(), row.Topic, oldScore, int(row.Score), "quiz"))
		if milestone == mastery.MilestoneMastered {
			_ = h.eventPublisher.Publish(shared.NewTopicMasteredEvent(
				cmd.UserID, row.Subject.String(), row.Topic, int(row.Score)))
		}
	}

	return &RecordQuizResultResult{
		NewScore:  int(row.Score),
		Delta:     int(row.Score) - oldScore,
		Milestone: milestone,
	}, nil
}
