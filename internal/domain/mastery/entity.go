// Package mastery содержит доменную модель владения темами: оценку 0-100,
// уверенность и состояние интервального повторения.
package mastery

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MasteredThreshold - оценка, с которой тема считается освоенной.
	MasteredThreshold = 75

	// WeaknessThreshold - оценка, ниже которой тема считается слабой.
	WeaknessThreshold = 50

	// WeaknessSessionCount - минимум сессий, после которого слабая тема
	// считается систематической проблемой, а не новым материалом.
	WeaknessSessionCount = 3

	// MinEasiness - нижняя граница коэффициента лёгкости SM-2.
	MinEasiness = 1.3

	// DefaultEasiness - стартовый коэффициент лёгкости.
	DefaultEasiness = 2.5
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: TOPIC MASTERY
// ══════════════════════════════════════════════════════════════════════════════

// TopicMastery отражает текущее владение пользователя одной темой.
type TopicMastery struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// UserID - владелец.
	UserID string

	// Subject - предмет.
	Subject shared.Subject

	// Topic - тема.
	Topic string

	// Score - оценка владения 0-100.
	Score shared.Score

	// Confidence - уверенность оценки 0-100.
	Confidence shared.Score

	// SessionCount - сколько сессий затрагивали тему.
	SessionCount int

	// LastStudiedAt - время последней сессии по теме.
	LastStudiedAt time.Time

	// Easiness - коэффициент лёгкости SM-2.
	Easiness float64

	// IntervalDays - текущий интервал повторения в днях.
	IntervalDays int

	// Repetitions - число успешных повторений подряд.
	Repetitions int

	// NextReviewAt - время следующего повторения.
	NextReviewAt time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrMasteryNotFound - запись владения темой не найдена.
	ErrMasteryNotFound = errors.New("topic mastery not found")

	// ErrEmptyTopic - пустая тема.
	ErrEmptyTopic = errors.New("mastery topic cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewFromSession создаёт запись владения темой по первой сессии.
// Непроставленная оценка (effectiveness = 0) даёт стартовые 25/50.
func NewFromSession(id, userID, subject, topic string, effectiveness shared.Effectiveness, at time.Time) (*TopicMastery, error) {
	if id == "" || userID == "" {
		return nil, errors.New("mastery id and user id are required")
	}

	subj, err := shared.NewSubject(subject)
	if err != nil {
		return nil, err
	}

	trimmedTopic := strings.TrimSpace(topic)
	if trimmedTopic == "" {
		return nil, ErrEmptyTopic
	}

	score := shared.Score(25)
	confidence := shared.Score(50)
	if effectiveness.IsRated() {
		score = shared.ClampScore(effectiveness.Int() * 5)
		confidence = shared.ClampScore(effectiveness.Int() * 10)
	}

	now := time.Now().UTC()

	return &TopicMastery{
		ID:            id,
		UserID:        userID,
		Subject:       subj,
		Topic:         trimmedTopic,
		Score:         score,
		Confidence:    confidence,
		SessionCount:  1,
		LastStudiedAt: at,
		Easiness:      DefaultEasiness,
		IntervalDays:  0,
		Repetitions:   0,
		NextReviewAt:  at.AddDate(0, 0, 1),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY UPDATE (каноническое правило)
// ══════════════════════════════════════════════════════════════════════════════

// Milestone описывает значимое изменение владения темой.
type Milestone string

const (
	// MilestoneNone - ничего значимого не произошло.
	MilestoneNone Milestone = ""
	// MilestoneMastered - оценка пересекла порог освоения.
	MilestoneMastered Milestone = "mastered"
	// MilestoneWeakness - тема систематически остаётся слабой.
	MilestoneWeakness Milestone = "weakness"
)

// EffectivenessDelta возвращает приращение оценки по самооценке сессии:
// round((effectiveness - 5) * 1.5), для неоценённых сессий +2.
func EffectivenessDelta(effectiveness shared.Effectiveness) int {
	if !effectiveness.IsRated() {
		return 2
	}
	return int(math.Round(float64(effectiveness.Int()-5) * 1.5))
}

// QualityToEffectiveness переводит результат квиза (0-100) в шкалу
// самооценки 1-10, чтобы квизы шли через то же аддитивное правило.
func QualityToEffectiveness(scorePercent int) shared.Effectiveness {
	eff := int(math.Round(float64(scorePercent) / 10))
	if eff < 1 {
		eff = 1
	}
	if eff > 10 {
		eff = 10
	}
	return shared.Effectiveness(eff)
}

// ApplyEffectiveness применяет аддитивное правило обновления и возвращает
// достигнутую веху (если есть).
func (m *TopicMastery) ApplyEffectiveness(effectiveness shared.Effectiveness, at time.Time) Milestone {
	oldScore := m.Score
	m.Score = m.Score.Add(EffectivenessDelta(effectiveness))

	if effectiveness.IsRated() {
		m.Confidence = shared.ClampScore(effectiveness.Int() * 10)
	}

	m.SessionCount++
	if at.After(m.LastStudiedAt) {
		m.LastStudiedAt = at
	}
	m.UpdatedAt = time.Now().UTC()

	switch {
	case oldScore < MasteredThreshold && m.Score >= MasteredThreshold:
		return MilestoneMastered
	case m.Score < WeaknessThreshold && m.SessionCount >= WeaknessSessionCount:
		return MilestoneWeakness
	default:
		return MilestoneNone
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SPACED REPETITION (SM-2)
// ══════════════════════════════════════════════════════════════════════════════

// Review применяет повторение с качеством 1-5 и пересчитывает интервал.
// Качество ниже 3 сбрасывает цепочку повторений на один день.
func (m *TopicMastery) Review(quality shared.ReviewQuality, at time.Time) error {
	if !quality.IsValid() {
		return shared.ErrInvalidQuality
	}

	q := float64(quality.Int())
	m.Easiness = m.Easiness + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if m.Easiness < MinEasiness {
		m.Easiness = MinEasiness
	}

	if !quality.IsPassing() {
		m.Repetitions = 0
		m.IntervalDays = 1
	} else {
		switch m.Repetitions {
		case 0:
			switch quality {
			case shared.PassingQuality:
				m.IntervalDays = 1
			case shared.PassingQuality + 1:
				m.IntervalDays = 3
			default:
				m.IntervalDays = 6
			}
		default:
			m.IntervalDays = int(math.Round(float64(m.IntervalDays) * m.Easiness))
		}
		m.Repetitions++
	}

	if m.IntervalDays < 1 {
		m.IntervalDays = 1
	}

	m.NextReviewAt = at.AddDate(0, 0, m.IntervalDays)
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// IsDue проверяет, пора ли повторять тему.
func (m *TopicMastery) IsDue(now time.Time) bool {
	return !m.NextReviewAt.IsZero() && !m.NextReviewAt.After(now)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// IsWeak возвращает true для оценки ниже порога слабости.
func (m *TopicMastery) IsWeak() bool {
	return int(m.Score) < WeaknessThreshold
}

// IsStrong возвращает true для оценки выше порога освоения.
func (m *TopicMastery) IsStrong() bool {
	return int(m.Score) > MasteredThreshold
}

// IsStuck возвращает true, если тему учили много раз, а оценка осталась
// ниже порога пробелов.
func (m *TopicMastery) IsStuck() bool {
	return m.SessionCount >= WeaknessSessionCount && int(m.Score) < 60
}

// MatchesSubject проверяет соответствие предмету (двустороннее подстрочное
// совпадение в нижнем регистре).
func (m *TopicMastery) MatchesSubject(subject string) bool {
	return m.Subject.Matches(shared.Subject(subject))
}

// String возвращает строковое представление для логирования.
func (m *TopicMastery) String() string {
	return fmt.Sprintf(
		"TopicMastery{Topic: %s, Score: %d, Sessions: %d}",
		m.Topic, m.Score, m.SessionCount,
	)
}
