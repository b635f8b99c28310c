// Package exam содержит доменную модель экзаменов и уровней угрозы.
package exam

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// THREAT LEVEL
// ══════════════════════════════════════════════════════════════════════════════

// ThreatLevel определяет серьёзность угрозы приближающегося экзамена.
type ThreatLevel string

const (
	// ThreatNone - нет предстоящих экзаменов.
	ThreatNone ThreatLevel = "NONE"
	// ThreatLow - экзамен далеко и подготовка в порядке.
	ThreatLow ThreatLevel = "LOW"
	// ThreatMedium - экзамен в пределах двух недель или есть пробелы.
	ThreatMedium ThreatLevel = "MEDIUM"
	// ThreatHigh - экзамен в пределах недели или серьёзные пробелы.
	ThreatHigh ThreatLevel = "HIGH"
	// ThreatCritical - экзамен совсем близко при слабой подготовке.
	ThreatCritical ThreatLevel = "CRITICAL"
)

// IsValid проверяет, что уровень угрозы корректен.
func (t ThreatLevel) IsValid() bool {
	switch t {
	case ThreatNone, ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return true
	default:
		return false
	}
}

// Severity возвращает числовой ранг для сравнения уровней.
func (t ThreatLevel) Severity() int {
	switch t {
	case ThreatCritical:
		return 4
	case ThreatHigh:
		return 3
	case ThreatMedium:
		return 2
	case ThreatLow:
		return 1
	default:
		return 0
	}
}

// String возвращает строковое представление уровня.
func (t ThreatLevel) String() string {
	return string(t)
}

// MaxThreat возвращает более серьёзный из двух уровней.
func MaxThreat(a, b ThreatLevel) ThreatLevel {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: EXAM
// ══════════════════════════════════════════════════════════════════════════════

// Exam представляет предстоящий экзамен пользователя.
// Поля Threat* - кешированный результат последнего пересчёта угроз;
// источником истины для аналитики остаётся пересчёт по mastery-строкам.
type Exam struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// UserID - владелец экзамена.
	UserID string

	// Subject - предмет экзамена.
	Subject shared.Subject

	// Title - название (например, "Midterm 2").
	Title string

	// ExamDate - дата и время экзамена.
	ExamDate time.Time

	// Topics - список тем, покрываемых экзаменом.
	Topics []string

	// ThreatLevel - кешированный уровень угрозы.
	ThreatLevel ThreatLevel

	// Progress - кешированный прогресс подготовки (0-100).
	Progress int

	// PredictedOutcome - кешированный прогноз оценки (например, "B (70-79%)").
	PredictedOutcome string

	// GapAnalysis - кешированный список слабых тем вида "Topic (45%)".
	GapAnalysis []string

	// RecommendedHoursTotal - кешированные рекомендованные часы всего.
	RecommendedHoursTotal int

	// RecommendedHoursDaily - кешированные рекомендованные часы в день.
	RecommendedHoursDaily int

	// ThreatCalculatedAt - время последнего пересчёта угрозы.
	ThreatCalculatedAt time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrExamNotFound - экзамен не найден.
	ErrExamNotFound = errors.New("exam not found")

	// ErrInvalidExamDate - дата экзамена отсутствует или в прошлом.
	ErrInvalidExamDate = errors.New("invalid exam date: must be in the future")

	// ErrNoTopics - экзамен без тем.
	ErrNoTopics = errors.New("exam must list at least one topic")

	// ErrInvalidTitle - невалидное название экзамена.
	ErrInvalidTitle = errors.New("invalid exam title: must be 1-200 chars")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewExamParams содержит параметры для создания нового экзамена.
type NewExamParams struct {
	ID       string
	UserID   string
	Subject  string
	Title    string
	ExamDate time.Time
	Topics   []string
}

// NewExam создаёт новый экзамен с валидацией всех полей.
func NewExam(params NewExamParams) (*Exam, error) {
	if params.ID == "" {
		return nil, errors.New("exam id is required")
	}
	if params.UserID == "" {
		return nil, errors.New("exam user id is required")
	}

	subject, err := shared.NewSubject(params.Subject)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(params.Title)
	if len(title) == 0 || len(title) > 200 {
		return nil, ErrInvalidTitle
	}

	if params.ExamDate.IsZero() {
		return nil, ErrInvalidExamDate
	}

	topics := make([]string, 0, len(params.Topics))
	for _, t := range params.Topics {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			topics = append(topics, trimmed)
		}
	}
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}

	now := time.Now().UTC()

	return &Exam{
		ID:          params.ID,
		UserID:      params.UserID,
		Subject:     subject,
		Title:       title,
		ExamDate:    params.ExamDate,
		Topics:      topics,
		ThreatLevel: ThreatNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// DaysRemaining возвращает количество дней до экзамена, округлённое вверх.
// Для прошедших экзаменов значение отрицательное или ноль.
func (e *Exam) DaysRemaining(now time.Time) int {
	return int(math.Ceil(e.ExamDate.Sub(now).Hours() / 24))
}

// IsUpcoming проверяет, что экзамен ещё впереди.
func (e *Exam) IsUpcoming(now time.Time) bool {
	return e.ExamDate.After(now)
}

// CoversTopic проверяет, покрывает ли экзамен тему (подстрочное совпадение
// в нижнем регистре в обе стороны).
func (e *Exam) CoversTopic(topic string) bool {
	needle := strings.ToLower(strings.TrimSpace(topic))
	if needle == "" {
		return false
	}
	for _, t := range e.Topics {
		hay := strings.ToLower(t)
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			return true
		}
	}
	return false
}

// ApplyThreat записывает кешированные поля угрозы после пересчёта.
func (e *Exam) ApplyThreat(level ThreatLevel, progress int, predicted string, gaps []string, hoursTotal, hoursDaily int, at time.Time) {
	e.ThreatLevel = level
	e.Progress = progress
	e.PredictedOutcome = predicted
	e.GapAnalysis = gaps
	e.RecommendedHoursTotal = hoursTotal
	e.RecommendedHoursDaily = hoursDaily
	e.ThreatCalculatedAt = at
	e.UpdatedAt = time.Now().UTC()
}

// AtThreshold проверяет, попадает ли экзамен ровно на один из порогов
// алертов (14, 7, 3 или 1 день до экзамена).
func (e *Exam) AtThreshold(now time.Time) (int, bool) {
	days := e.DaysRemaining(now)
	for _, threshold := range AlertThresholds {
		if days == threshold {
			return threshold, true
		}
	}
	return 0, false
}

// AlertThresholds - дни до экзамена, на которых отправляются алерты.
var AlertThresholds = []int{14, 7, 3, 1}

// String возвращает строковое представление экзамена для логирования.
func (e *Exam) String() string {
	return fmt.Sprintf(
		"Exam{ID: %s, Subject: %s, Date: %s, Threat: %s}",
		e.ID, e.Subject, e.ExamDate.Format("2006-01-02"), e.ThreatLevel,
	)
}

// Clone создаёт глубокую копию экзамена.
func (e *Exam) Clone() *Exam {
	if e == nil {
		return nil
	}

	clone := *e
	clone.Topics = append([]string(nil), e.Topics...)
	clone.GapAnalysis = append([]string(nil), e.GapAnalysis...)
	return &clone
}
