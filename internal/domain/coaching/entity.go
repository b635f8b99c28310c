// Package coaching содержит доменную модель коучинг-сообщений: приоритетных
// планов действий, которые генерируются из интел-состояния пользователя
// и живут ограниченное время.
package coaching

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// MessageType определяет тип коучинг-сообщения.
type MessageType string

const (
	// TypeExamPrep - план подготовки к близкому экзамену.
	TypeExamPrep MessageType = "exam_prep"
	// TypeDriftRecovery - возврат к заброшенному предмету.
	TypeDriftRecovery MessageType = "drift_recovery"
	// TypeMomentum - использовать текущее пиковое окно.
	TypeMomentum MessageType = "momentum"
	// TypeConsistency - восстановление регулярности.
	TypeConsistency MessageType = "consistency"
	// TypeDailyBrief - утренняя интел-сводка.
	TypeDailyBrief MessageType = "daily_brief"
	// TypeExamAlert - пороговый алерт по экзамену (14/7/3/1 день).
	TypeExamAlert MessageType = "exam_alert"
	// TypeNudge - короткое напоминание в течение дня.
	TypeNudge MessageType = "nudge"
)

// IsValid проверяет корректность типа.
func (t MessageType) IsValid() bool {
	switch t {
	case TypeExamPrep, TypeDriftRecovery, TypeMomentum, TypeConsistency,
		TypeDailyBrief, TypeExamAlert, TypeNudge:
		return true
	default:
		return false
	}
}

// TTL возвращает время жизни сообщения данного типа.
func (t MessageType) TTL() time.Duration {
	switch t {
	case TypeMomentum:
		return 2 * time.Hour
	case TypeExamPrep:
		return 24 * time.Hour
	case TypeDriftRecovery:
		return 12 * time.Hour
	case TypeConsistency:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Priority определяет срочность сообщения.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank возвращает порядок сортировки: high < medium < low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// IsValid проверяет корректность приоритета.
func (p Priority) IsValid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Status определяет жизненный цикл сообщения.
type Status string

const (
	StatusActive    Status = "active"
	StatusDismissed Status = "dismissed"
	StatusCompleted Status = "completed"
)

// IsValid проверяет корректность статуса.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusDismissed || s == StatusCompleted
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIONS
// ══════════════════════════════════════════════════════════════════════════════

// ActionType - тип рекомендованного действия.
type ActionType string

const (
	ActionFlashcards   ActionType = "flashcards"
	ActionQuiz         ActionType = "quiz"
	ActionDeepDive     ActionType = "deep_dive"
	ActionQuickReview  ActionType = "quick_review"
	ActionVideo        ActionType = "video"
	ActionScan         ActionType = "scan"
	ActionMicroSession ActionType = "micro_session"
)

// Action - одно рекомендованное действие с произвольным пейлоадом.
type Action struct {
	// Type - тип действия.
	Type ActionType `json:"type"`

	// Label - подпись для интерфейса.
	Label string `json:"label"`

	// Payload - параметры действия (темы, предмет, длительность).
	Payload map[string]string `json:"payload,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COACHING MESSAGE
// ══════════════════════════════════════════════════════════════════════════════

// Message - одно коучинг-сообщение (план действий) пользователя.
type Message struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// UserID - получатель.
	UserID string

	// Type - тип сообщения.
	Type MessageType

	// Priority - срочность.
	Priority Priority

	// Status - текущий статус.
	Status Status

	// Title - заголовок плана.
	Title string

	// Body - развёрнутое описание.
	Body string

	// Actions - рекомендованные действия.
	Actions []Action

	// TotalMinutes - общий объём плана в минутах.
	TotalMinutes int

	// DailyMinutes - ежедневный объём в минутах (0, если не применимо).
	DailyMinutes int

	// PredictedGain - ожидаемый прирост владения темами.
	PredictedGain int

	// Breakdown - разбивка плана по дням.
	Breakdown []string

	// ExpiresAt - время истечения.
	ExpiresAt time.Time

	// CreatedAt - время создания.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrMessageNotFound - сообщение не найдено.
	ErrMessageNotFound = errors.New("coaching message not found")

	// ErrMessageExpired - сообщение истекло.
	ErrMessageExpired = errors.New("coaching message expired")

	// ErrNotActive - операция применима только к активному сообщению.
	ErrNotActive = errors.New("coaching message is not active")

	// ErrInvalidMessage - сообщение не прошло валидацию.
	ErrInvalidMessage = errors.New("invalid coaching message")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewMessage создаёт сообщение из плана: присваивает ID, статус и срок
// жизни по типу.
func NewMessage(id string, plan Plan, now time.Time) (*Message, error) {
	if id == "" {
		return nil, errors.New("coaching message id is required")
	}
	if plan.UserID == "" {
		return nil, errors.New("coaching message user id is required")
	}
	if !plan.Type.IsValid() || !plan.Priority.IsValid() {
		return nil, ErrInvalidMessage
	}
	if strings.TrimSpace(plan.Title) == "" {
		return nil, ErrInvalidMessage
	}

	return &Message{
		ID:            id,
		UserID:        plan.UserID,
		Type:          plan.Type,
		Priority:      plan.Priority,
		Status:        StatusActive,
		Title:         plan.Title,
		Body:          plan.Body,
		Actions:       plan.Actions,
		TotalMinutes:  plan.TotalMinutes,
		DailyMinutes:  plan.DailyMinutes,
		PredictedGain: plan.PredictedGain,
		Breakdown:     plan.Breakdown,
		ExpiresAt:     now.Add(plan.Type.TTL()),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// IsExpired проверяет, истекло ли сообщение.
func (m *Message) IsExpired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt)
}

// IsActive проверяет, что сообщение активно и не истекло.
func (m *Message) IsActive(now time.Time) bool {
	return m.Status == StatusActive && !m.IsExpired(now)
}

// Dismiss помечает сообщение отклонённым.
func (m *Message) Dismiss(now time.Time) error {
	if m.Status != StatusActive {
		return ErrNotActive
	}
	if m.IsExpired(now) {
		return ErrMessageExpired
	}
	m.Status = StatusDismissed
	m.UpdatedAt = now
	return nil
}

// Complete помечает сообщение выполненным.
func (m *Message) Complete(now time.Time) error {
	if m.Status != StatusActive {
		return ErrNotActive
	}
	if m.IsExpired(now) {
		return ErrMessageExpired
	}
	m.Status = StatusCompleted
	m.UpdatedAt = now
	return nil
}

// String возвращает строковое представление для логирования.
func (m *Message) String() string {
	return fmt.Sprintf(
		"CoachingMessage{ID: %s, Type: %s, Priority: %s, Status: %s}",
		m.ID, m.Type, m.Priority, m.Status,
	)
}
