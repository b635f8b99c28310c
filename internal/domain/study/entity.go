// Package study содержит доменную модель учебных сессий и заметок.
// Это ядро бизнес-логики - здесь нет внешних зависимостей кроме shared.
package study

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDY SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session представляет один залогированный отрезок учёбы.
type Session struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// UserID - владелец сессии.
	UserID string

	// Subject - предмет (обязательный).
	Subject shared.Subject

	// Topic - тема внутри предмета (опциональная).
	Topic shared.Topic

	// StartedAt - время начала сессии.
	StartedAt time.Time

	// Minutes - длительность в минутах.
	Minutes shared.Minutes

	// Effectiveness - самооценка продуктивности 1-10 (0 = не оценена).
	Effectiveness shared.Effectiveness

	// Note - свободный текст: что получилось, что нет.
	Note string

	// CreatedAt - время создания записи.
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrSessionNotFound - сессия не найдена.
	ErrSessionNotFound = errors.New("study session not found")

	// ErrInvalidSession - сессия не прошла валидацию.
	ErrInvalidSession = errors.New("invalid study session")

	// ErrNoteOverflow - заметка слишком длинная.
	ErrNoteOverflow = errors.New("session note exceeds 4000 chars")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewSessionParams содержит параметры для создания новой сессии.
type NewSessionParams struct {
	ID            string
	UserID        string
	Subject       string
	Topic         string
	StartedAt     time.Time
	Minutes       int
	Effectiveness int
	Note          string
}

// NewSession создаёт новую сессию с валидацией всех полей.
func NewSession(params NewSessionParams) (*Session, error) {
	if params.ID == "" {
		return nil, errors.New("session id is required")
	}
	if params.UserID == "" {
		return nil, errors.New("session user id is required")
	}

	subject, err := shared.NewSubject(params.Subject)
	if err != nil {
		return nil, err
	}

	topic := shared.Topic(strings.TrimSpace(params.Topic))
	if !topic.IsValid() {
		return nil, ErrInvalidSession
	}

	minutes, err := shared.NewMinutes(params.Minutes)
	if err != nil {
		return nil, err
	}

	effectiveness, err := shared.NewEffectiveness(params.Effectiveness)
	if err != nil {
		return nil, err
	}

	if len(params.Note) > 4000 {
		return nil, ErrNoteOverflow
	}

	startedAt := params.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	return &Session{
		ID:            params.ID,
		UserID:        params.UserID,
		Subject:       subject,
		Topic:         topic,
		StartedAt:     startedAt,
		Minutes:       minutes,
		Effectiveness: effectiveness,
		Note:          strings.TrimSpace(params.Note),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// EndedAt возвращает расчётное время окончания сессии.
func (s *Session) EndedAt() time.Time {
	return s.StartedAt.Add(s.Minutes.Duration())
}

// HourBucket возвращает час начала сессии (0-23) для почасовой агрегации.
func (s *Session) HourBucket() int {
	return s.StartedAt.Hour()
}

// IsRated возвращает true, если пользователь оценил продуктивность.
func (s *Session) IsRated() bool {
	return s.Effectiveness.IsRated()
}

// IsOnDay проверяет, началась ли сессия в указанный календарный день.
func (s *Session) IsOnDay(day time.Time) bool {
	y1, m1, d1 := s.StartedAt.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// TopicKey возвращает нормализованный ключ темы; при пустой теме - предмет.
func (s *Session) TopicKey() string {
	if s.Topic.IsEmpty() {
		return s.Subject.Normalized()
	}
	return s.Topic.Normalized()
}

// String возвращает строковое представление сессии для логирования.
func (s *Session) String() string {
	return fmt.Sprintf(
		"Session{ID: %s, Subject: %s, Minutes: %d, Eff: %d}",
		s.ID, s.Subject, s.Minutes, s.Effectiveness,
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMORY TEXT (свободные заметки для семантического анализа)
// ══════════════════════════════════════════════════════════════════════════════

// MemoryText - свободная текстовая заметка пользователя о процессе учёбы.
// Семантический анализатор извлекает из них повторяющиеся паттерны.
type MemoryText struct {
	// ID - внутренний уникальный идентификатор.
	ID string

	// UserID - владелец заметки.
	UserID string

	// Text - содержимое заметки.
	Text string

	// SourceSessionID - сессия, породившая заметку (опционально).
	SourceSessionID string

	// CreatedAt - время создания.
	CreatedAt time.Time
}

// NewMemoryText создаёт новую заметку с валидацией.
func NewMemoryText(id, userID, text, sourceSessionID string) (*MemoryText, error) {
	if id == "" || userID == "" {
		return nil, errors.New("memory text id and user id are required")
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, shared.ErrEmptyValue
	}
	if len(trimmed) > 8000 {
		return nil, errors.New("memory text exceeds 8000 chars")
	}

	return &MemoryText{
		ID:              id,
		UserID:          userID,
		Text:            trimmed,
		SourceSessionID: sourceSessionID,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
