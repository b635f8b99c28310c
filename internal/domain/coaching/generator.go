package coaching

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PLAN GENERATOR
// Четыре генератора работают независимо и складывают планы в общий список,
// который затем сортируется по приоритету. Генераторы детерминированы при
// фиксированном времени.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// examPrepHorizonDays - дальше этого горизонта планы подготовки не строятся.
	examPrepHorizonDays = 14

	// planTargetMastery - целевое владение, к которому тянет план подготовки.
	planTargetMastery = 75

	// driftStaleDays - через сколько дней предмет считается заброшенным.
	driftStaleDays = 3

	// driftUrgentDays - с этого срока план возврата становится срочным.
	driftUrgentDays = 5

	// driftExamHorizonDays - план возврата строится только при экзамене
	// в этом горизонте.
	driftExamHorizonDays = 30

	// consistencyThreshold - ниже этого значения генерируется план
	// восстановления регулярности.
	consistencyThreshold = 70
)

// Plan - сгенерированный план до присвоения ID и срока жизни.
type Plan struct {
	UserID        string
	Type          MessageType
	Priority      Priority
	Title         string
	Body          string
	Actions       []Action
	TotalMinutes  int
	DailyMinutes  int
	PredictedGain int
	Breakdown     []string
}

// GeneratePlans строит приоритезированный список планов из интел-состояния.
func GeneratePlans(state intel.UserIntelState, now time.Time) []Plan {
	plans := make([]Plan, 0, 8)
	plans = append(plans, examPrepPlans(state)...)
	plans = append(plans, driftRecoveryPlans(state, now)...)
	plans = append(plans, momentumPlans(state, now)...)
	plans = append(plans, consistencyPlans(state)...)

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Priority.Rank() < plans[j].Priority.Rank()
	})
	return plans
}

// ──────────────────────────────────────────────────────────────────────────────
// Exam prep
// ──────────────────────────────────────────────────────────────────────────────

func examPrepPlans(state intel.UserIntelState) []Plan {
	plans := make([]Plan, 0, len(state.Exams))

	for _, threat := range state.Exams {
		if threat.DaysRemaining > examPrepHorizonDays || threat.DaysRemaining <= 0 {
			continue
		}

		// Слабые темы берутся из общей карты владения (< 50%) по нечёткому
		// совпадению предмета; без них план не строится.
		weak := weakTopicsForSubject(state.Mastery.WeakTopics, threat.Subject)
		if len(weak) == 0 {
			continue
		}

		avgWeak := 0
		for _, w := range weak {
			avgWeak += w.Score
		}
		avgWeak /= len(weak)

		gainNeeded := planTargetMastery - avgWeak
		if gainNeeded < 0 {
			gainNeeded = 0
		}

		dailyMinutes := int(math.Min(30, math.Ceil(float64(gainNeeded)/15*10)))
		totalMinutes := dailyMinutes * threat.DaysRemaining
		predictedGain := minInt(gainNeeded, int(math.Ceil(float64(totalMinutes)/10*15)))

		priority := PriorityMedium
		if threat.ThreatLevel == exam.ThreatCritical || threat.DaysRemaining <= 3 {
			priority = PriorityHigh
		}

		topics := topicNames(weak)

		plans = append(plans, Plan{
			UserID:   state.UserID,
			Type:     TypeExamPrep,
			Priority: priority,
			Title:    fmt.Sprintf("Exam prep: %s", threat.Subject),
			Body: fmt.Sprintf(
				"%s is %d days away. Focus on %s to move from %d%% toward %d%%.",
				threat.Title, threat.DaysRemaining, strings.Join(topics, ", "), avgWeak, planTargetMastery,
			),
			Actions: []Action{
				{Type: ActionFlashcards, Label: "Drill flashcards", Payload: map[string]string{"topics": strings.Join(topics, ",")}},
				{Type: ActionQuiz, Label: "Take a practice quiz", Payload: map[string]string{"subject": threat.Subject}},
				{Type: ActionDeepDive, Label: "Deep dive weakest topic", Payload: map[string]string{"topic": topics[0]}},
			},
			TotalMinutes:  totalMinutes,
			DailyMinutes:  dailyMinutes,
			PredictedGain: predictedGain,
			Breakdown:     examBreakdown(threat.DaysRemaining, topics),
		})
	}
	return plans
}

// examBreakdown раскладывает дни подготовки по темам; последний день
// всегда остаётся за смешанным повторением.
func examBreakdown(daysRemaining int, topics []string) []string {
	if daysRemaining <= 2 {
		return []string{fmt.Sprintf("Days 1-%d: Mixed review of %s", daysRemaining, strings.Join(topics, ", "))}
	}

	studyDays := daysRemaining - 1
	perTopic := studyDays / len(topics)
	remainder := studyDays % len(topics)
	if perTopic == 0 {
		perTopic = 1
		remainder = 0
		if len(topics) > studyDays {
			topics = topics[:studyDays]
		}
	}

	breakdown := make([]string, 0, len(topics)+1)
	day := 1
	for i, topic := range topics {
		span := perTopic
		if i < remainder {
			span++
		}
		if span == 1 {
			breakdown = append(breakdown, fmt.Sprintf("Day %d: %s", day, topic))
		} else {
			breakdown = append(breakdown, fmt.Sprintf("Days %d-%d: %s", day, day+span-1, topic))
		}
		day += span
	}
	breakdown = append(breakdown, fmt.Sprintf("Day %d: Mixed review", daysRemaining))
	return breakdown
}

// ──────────────────────────────────────────────────────────────────────────────
// Drift recovery
// ──────────────────────────────────────────────────────────────────────────────

func driftRecoveryPlans(state intel.UserIntelState, now time.Time) []Plan {
	lastBySubject := make(map[string]time.Time)
	for _, s := range state.RecentSessions {
		subject := s.Subject.String()
		if s.StartedAt.After(lastBySubject[subject]) {
			lastBySubject[subject] = s.StartedAt
		}
	}

	subjects := make([]string, 0, len(lastBySubject))
	for subject := range lastBySubject {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	plans := make([]Plan, 0)
	for _, subject := range subjects {
		daysSince := int(now.Sub(lastBySubject[subject]).Hours() / 24)
		if daysSince < driftStaleDays {
			continue
		}
		if !hasExamWithin(state.Exams, subject, driftExamHorizonDays) {
			continue
		}

		masteryDecay := minInt(15, daysSince*2)
		priority := PriorityMedium
		if daysSince >= driftUrgentDays {
			priority = PriorityHigh
		}

		plans = append(plans, Plan{
			UserID:   state.UserID,
			Type:     TypeDriftRecovery,
			Priority: priority,
			Title:    fmt.Sprintf("Get back to %s", subject),
			Body: fmt.Sprintf(
				"No %s sessions for %d days with an exam coming up. A 15-minute review stops an estimated %d%% mastery decay.",
				subject, daysSince, masteryDecay,
			),
			Actions: []Action{
				{Type: ActionQuickReview, Label: "15-minute refresher", Payload: map[string]string{"subject": subject, "minutes": "15"}},
				{Type: ActionVideo, Label: "Watch a recap video", Payload: map[string]string{"subject": subject}},
				{Type: ActionFlashcards, Label: "Run old flashcards", Payload: map[string]string{"subject": subject}},
			},
			TotalMinutes:  15,
			PredictedGain: masteryDecay,
		})
	}
	return plans
}

func hasExamWithin(threats []intel.ExamThreatSnapshot, subject string, horizonDays int) bool {
	for _, t := range threats {
		if subjectsMatch(t.Subject, subject) && t.DaysRemaining > 0 && t.DaysRemaining <= horizonDays {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────────────────────────────────────
// Momentum
// ──────────────────────────────────────────────────────────────────────────────

func momentumPlans(state intel.UserIntelState, now time.Time) []Plan {
	inPeak := false
	for _, w := range state.StudyPatterns.PeakWindows {
		if w.Hour == now.Hour() {
			inPeak = true
			break
		}
	}
	if !inPeak {
		return nil
	}

	if len(state.Mastery.WeakTopics) == 0 {
		return nil
	}
	hardest := state.Mastery.WeakTopics[0]
	topic, score := hardest.Topic, hardest.Score

	return []Plan{{
		UserID:   state.UserID,
		Type:     TypeMomentum,
		Priority: PriorityHigh,
		Title:    "You're in your peak window",
		Body: fmt.Sprintf(
			"This is one of your most productive hours. 30 focused minutes on %s (%d%%) will go further now than later.",
			topic, score,
		),
		Actions: []Action{
			{Type: ActionDeepDive, Label: "Deep dive now", Payload: map[string]string{"topic": topic, "minutes": "30"}},
			{Type: ActionScan, Label: "Quick concept scan", Payload: map[string]string{"topic": topic}},
			{Type: ActionQuiz, Label: "Self-test", Payload: map[string]string{"topic": topic}},
		},
		TotalMinutes:  30,
		PredictedGain: 10,
	}}
}

// ──────────────────────────────────────────────────────────────────────────────
// Consistency
// ──────────────────────────────────────────────────────────────────────────────

func consistencyPlans(state intel.UserIntelState) []Plan {
	if state.StudyPatterns.ConsistencyScore >= consistencyThreshold {
		return nil
	}

	return []Plan{{
		UserID:   state.UserID,
		Type:     TypeConsistency,
		Priority: PriorityLow,
		Title:    "Rebuild the habit",
		Body:     "5 min daily check-ins for 7 days",
		Actions: []Action{
			{Type: ActionMicroSession, Label: "5-minute micro session", Payload: map[string]string{"minutes": "5"}},
			{Type: ActionFlashcards, Label: "One flashcard deck", Payload: nil},
		},
		TotalMinutes:  35,
		PredictedGain: 25,
	}}
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func topicNames(weak []intel.WeakTopic) []string {
	names := make([]string, 0, len(weak))
	for _, w := range weak {
		names = append(names, w.Topic)
	}
	return names
}

func weakTopicsForSubject(weak []intel.WeakTopic, subject string) []intel.WeakTopic {
	matched := make([]intel.WeakTopic, 0, len(weak))
	for _, w := range weak {
		if subjectsMatch(w.Subject, subject) {
			matched = append(matched, w)
		}
	}
	return matched
}

// subjectsMatch - нечёткое совпадение предметов (подстрока в любую сторону).
func subjectsMatch(a, b string) bool {
	return shared.Subject(a).Matches(shared.Subject(b))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
