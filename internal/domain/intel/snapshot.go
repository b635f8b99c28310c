// Package intel содержит чистую аналитику над учебными данными: паттерны,
// угрозы экзаменов, архетип пользователя и семантические нити. Все функции
// пакета детерминированы при фиксированном времени и не ходят во внешние
// системы - это позволяет покрыть их обычными табличными тестами.
package intel

import (
	"sort"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/study"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDY PATTERNS
// ══════════════════════════════════════════════════════════════════════════════

// TimeWindow описывает окно времени суток с характерным поведением.
type TimeWindow struct {
	// Hour - час начала окна (0-23).
	Hour int `json:"hour"`

	// Time - человекочитаемое время вида "19:00".
	Time string `json:"time"`

	// Description - пояснение, почему окно попало в снапшот.
	Description string `json:"description"`

	// Sessions - количество сессий в окне.
	Sessions int `json:"sessions"`

	// AvgEffectiveness - средняя продуктивность в окне.
	AvgEffectiveness float64 `json:"avg_effectiveness"`
}

// SubjectPerformance - средняя продуктивность по предмету.
type SubjectPerformance struct {
	Subject          string  `json:"subject"`
	AvgEffectiveness float64 `json:"avg_effectiveness"`
	Sessions         int     `json:"sessions"`
}

// StudyPatternSnapshot - снапшот поведенческих паттернов пользователя.
type StudyPatternSnapshot struct {
	// PeakWindows - до трёх окон максимальной продуктивности.
	PeakWindows []TimeWindow `json:"peak_windows"`

	// DriftWindows - до трёх привычных часов, выпавших из расписания.
	DriftWindows []TimeWindow `json:"drift_windows"`

	// ConsistencyScore - 0-100, насколько закрыта недельная цель.
	ConsistencyScore int `json:"consistency_score"`

	// BestSubjects - до трёх предметов с лучшей продуктивностью.
	BestSubjects []SubjectPerformance `json:"best_subjects"`

	// StrugglingSubjects - до трёх предметов с худшей продуктивностью.
	StrugglingSubjects []SubjectPerformance `json:"struggling_subjects"`

	// OptimalSessionMinutes - рекомендуемая длина сессии (25/45/90).
	OptimalSessionMinutes int `json:"optimal_session_minutes"`

	// StuckTopics - темы, в которых пользователь застрял (до пяти).
	StuckTopics []string `json:"stuck_topics"`

	// ProcrastinationTriggers - триггеры прокрастинации из заметок.
	ProcrastinationTriggers []string `json:"procrastination_triggers"`

	// ReturnProtocols - работающие способы вернуться к учёбе.
	ReturnProtocols []string `json:"return_protocols"`

	// StreakDays - текущая серия дней с учёбой.
	StreakDays int `json:"streak_days"`

	// AvgSessionMinutes - средняя длина сессии.
	AvgSessionMinutes int `json:"avg_session_minutes"`

	// SessionsLast7Days - количество сессий за последние 7 дней.
	SessionsLast7Days int `json:"sessions_last_7_days"`

	// TotalSessions - всего сессий в анализируемом окне.
	TotalSessions int `json:"total_sessions"`

	// WeeklyMinutes - минуты учёбы за последние 7 дней.
	WeeklyMinutes int `json:"weekly_minutes"`

	// GeneratedAt - момент расчёта.
	GeneratedAt time.Time `json:"generated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// EXAM THREATS
// ══════════════════════════════════════════════════════════════════════════════

// ExamThreatSnapshot - расчётная угроза по одному экзамену.
type ExamThreatSnapshot struct {
	ExamID           string           `json:"exam_id"`
	Subject          string           `json:"subject"`
	Title            string           `json:"title"`
	ExamDate         time.Time        `json:"exam_date"`
	Topics           []string         `json:"topics"`
	DaysRemaining    int              `json:"days_remaining"`
	ThreatLevel      exam.ThreatLevel `json:"threat_level"`
	AvgMastery       int              `json:"avg_mastery"`
	Progress         int              `json:"progress"`
	PredictedOutcome string           `json:"predicted_outcome"`
	GapAnalysis      []string         `json:"gap_analysis"`
	WeakTopics       []TopicScore     `json:"weak_topics"`
	RecommendedHours RecommendedHours `json:"recommended_hours"`
}

// TopicScore - тема с текущей оценкой владения.
type TopicScore struct {
	Topic string `json:"topic"`
	Score int    `json:"score"`
}

// RecommendedHours - рекомендация по объёму подготовки.
type RecommendedHours struct {
	Total int `json:"total"`
	Daily int `json:"daily"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SEMANTIC THREADS
// ══════════════════════════════════════════════════════════════════════════════

// SemanticThreads - повторяющиеся смысловые нити из свободных заметок.
type SemanticThreads struct {
	// RecurringPhrases - часто повторяющиеся фразы (до пяти).
	RecurringPhrases []string `json:"recurring_phrases"`

	// Contradictions - противоречия "хочу, но не делаю" (до трёх).
	Contradictions []string `json:"contradictions"`

	// Breakthroughs - моменты прорыва в понимании (до трёх).
	Breakthroughs []string `json:"breakthroughs"`

	// RecurringMistakes - повторяющиеся ошибки (до трёх).
	RecurringMistakes []string `json:"recurring_mistakes"`

	// ExcusePatterns - характерные отговорки.
	ExcusePatterns []string `json:"excuse_patterns"`

	// TimeWasters - упомянутые поглотители времени.
	TimeWasters []string `json:"time_wasters"`

	// ProcrastinationTriggers - триггеры прокрастинации.
	ProcrastinationTriggers []string `json:"procrastination_triggers"`

	// ReturnProtocols - упомянутые способы вернуться к работе (до пяти).
	ReturnProtocols []string `json:"return_protocols"`
}

// Empty возвращает пустые нити - деградация при недоступности заметок.
func EmptyThreads() SemanticThreads {
	return SemanticThreads{
		RecurringPhrases:        []string{},
		Contradictions:          []string{},
		Breakthroughs:           []string{},
		RecurringMistakes:       []string{},
		ExcusePatterns:          []string{},
		TimeWasters:             []string{},
		ProcrastinationTriggers: []string{},
		ReturnProtocols:         []string{},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Archetype - поведенческий архетип пользователя.
type Archetype string

const (
	ArchetypeLastMinuteSprinter Archetype = "Last-Minute Sprinter"
	ArchetypeAvoidantCrammer    Archetype = "Avoidant Crammer"
	ArchetypeConsistentGrinder  Archetype = "Consistent Grinder"
	ArchetypeMomentumBuilder    Archetype = "Momentum Builder"
	ArchetypeDriftCycler        Archetype = "Drift Cycler"
)

// Direction - направление изменения поведения.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// UserIdentitySnapshot - классификация пользователя по правилам.
type UserIdentitySnapshot struct {
	// Archetype - выбранный архетип.
	Archetype Archetype `json:"archetype"`

	// Confidence - уверенность классификации 0-100.
	Confidence int `json:"confidence"`

	// Direction - словесное описание траектории.
	Direction string `json:"direction"`

	// Trend - up / down / stable.
	Trend Direction `json:"trend"`

	// Drivers - до трёх наблюдений, объясняющих классификацию.
	Drivers []string `json:"drivers"`

	// RiskTag - "Red Zone Before Exam" / "At Risk" / "Safe".
	RiskTag string `json:"risk_tag"`

	// GeneratedAt - момент расчёта.
	GeneratedAt time.Time `json:"generated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY MAP & INTEL STATE
// ══════════════════════════════════════════════════════════════════════════════

// WeakTopic - слабая тема с предметом и текущей оценкой.
type WeakTopic struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
	Score   int    `json:"score"`
}

// MasteryMap - агрегированная карта владения темами.
type MasteryMap struct {
	// TopicScores - оценка по каждой теме.
	TopicScores map[string]int `json:"topic_scores"`

	// WeakTopics - темы с оценкой ниже 50, от самой слабой к сильной.
	WeakTopics []WeakTopic `json:"weak_topics"`

	// StrongTopics - темы с оценкой выше 75.
	StrongTopics []string `json:"strong_topics"`

	// StuckTopics - темы с застрявшим прогрессом.
	StuckTopics []string `json:"stuck_topics"`
}

// UserIntelState - полное интел-состояние пользователя, собираемое
// агрегатором перед генерацией коучинга и промптов.
type UserIntelState struct {
	UserID          string               `json:"user_id"`
	Identity        UserIdentitySnapshot `json:"identity"`
	Exams           []ExamThreatSnapshot `json:"exams"`
	ExamProximity   exam.ThreatLevel     `json:"exam_proximity"`
	StudyPatterns   StudyPatternSnapshot `json:"study_patterns"`
	Mastery         MasteryMap           `json:"mastery"`
	SemanticThreads SemanticThreads      `json:"semantic_threads"`
	RecentSessions  []*study.Session     `json:"recent_sessions"`
	TodayMinutes    int                  `json:"today_minutes"`
	WeeklyMinutes   int                  `json:"weekly_minutes"`
	WeeklyTarget    int                  `json:"weekly_target"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// BuildMasteryMap строит карту владения из строк mastery.
func BuildMasteryMap(rows []*mastery.TopicMastery) MasteryMap {
	m := MasteryMap{
		TopicScores:  make(map[string]int, len(rows)),
		WeakTopics:   []WeakTopic{},
		StrongTopics: []string{},
		StuckTopics:  []string{},
	}

	for _, row := range rows {
		m.TopicScores[row.Topic] = int(row.Score)
		if row.IsWeak() {
			m.WeakTopics = append(m.WeakTopics, WeakTopic{
				Subject: row.Subject.String(),
				Topic:   row.Topic,
				Score:   int(row.Score),
			})
		}
		if row.IsStrong() {
			m.StrongTopics = append(m.StrongTopics, row.Topic)
		}
		if row.IsStuck() {
			m.StuckTopics = append(m.StuckTopics, row.Topic)
		}
	}

	sort.SliceStable(m.WeakTopics, func(i, j int) bool {
		if m.WeakTopics[i].Score != m.WeakTopics[j].Score {
			return m.WeakTopics[i].Score < m.WeakTopics[j].Score
		}
		return m.WeakTopics[i].Topic < m.WeakTopics[j].Topic
	})

	return m
}
