package intel

import (
	"fmt"
	"math"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY CLASSIFIER
// Архетип выбирается по упорядоченной таблице правил: первое сработавшее
// правило побеждает, последнее правило - безусловный дефолт.
// ══════════════════════════════════════════════════════════════════════════════

// IdentityInput - вход для классификации.
type IdentityInput struct {
	Patterns StudyPatternSnapshot
	Threats  []ExamThreatSnapshot
	Mastery  []*mastery.TopicMastery
	Now      time.Time
}

// identityFacts - предвычисленные признаки, на которые смотрят правила.
type identityFacts struct {
	avgMastery     int
	consistency    int
	triggerCount   int
	driftCount     int
	peakCount      int
	avgSessionMins int
	sessionsWeek   int
	totalSessions  int
	anyCritical    bool
	anyHigh        bool
	anyExamWithin7 bool
}

// identityRule - одно правило таблицы.
type identityRule struct {
	archetype Archetype
	matches   func(f identityFacts) bool
}

// archetypeRules - таблица правил в порядке приоритета.
var archetypeRules = []identityRule{
	{
		archetype: ArchetypeLastMinuteSprinter,
		matches: func(f identityFacts) bool {
			return f.anyCritical && f.avgMastery < 60
		},
	},
	{
		archetype: ArchetypeAvoidantCrammer,
		matches: func(f identityFacts) bool {
			return f.anyExamWithin7 && f.triggerCount > 3 && f.avgMastery < 50
		},
	},
	{
		archetype: ArchetypeConsistentGrinder,
		matches: func(f identityFacts) bool {
			return f.consistency > 75 && f.driftCount <= 1
		},
	},
	{
		archetype: ArchetypeMomentumBuilder,
		matches: func(f identityFacts) bool {
			return f.consistency > 55 && f.consistency < 75 && f.avgSessionMins > 30
		},
	},
	{
		// Безусловный дефолт.
		archetype: ArchetypeDriftCycler,
		matches:   func(identityFacts) bool { return true },
	},
}

// ComputeIdentity классифицирует пользователя по снапшотам.
func ComputeIdentity(input IdentityInput) UserIdentitySnapshot {
	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	facts := buildFacts(input)

	snapshot := UserIdentitySnapshot{
		Confidence:  calculateConfidence(facts),
		RiskTag:     assignRiskTag(facts),
		GeneratedAt: now,
	}

	for _, rule := range archetypeRules {
		if rule.matches(facts) {
			snapshot.Archetype = rule.archetype
			break
		}
	}

	snapshot.Direction, snapshot.Trend = determineDirection(facts)
	snapshot.Drivers = extractDrivers(input.Patterns, facts)

	return snapshot
}

func buildFacts(input IdentityInput) identityFacts {
	facts := identityFacts{
		consistency:    input.Patterns.ConsistencyScore,
		triggerCount:   len(input.Patterns.ProcrastinationTriggers),
		driftCount:     len(input.Patterns.DriftWindows),
		peakCount:      len(input.Patterns.PeakWindows),
		avgSessionMins: input.Patterns.AvgSessionMinutes,
		sessionsWeek:   input.Patterns.SessionsLast7Days,
		totalSessions:  input.Patterns.TotalSessions,
	}

	if len(input.Mastery) > 0 {
		sum := 0
		for _, row := range input.Mastery {
			sum += int(row.Score)
		}
		facts.avgMastery = int(math.Round(float64(sum) / float64(len(input.Mastery))))
	}

	for _, threat := range input.Threats {
		switch threat.ThreatLevel {
		case exam.ThreatCritical:
			facts.anyCritical = true
		case exam.ThreatHigh:
			facts.anyHigh = true
		}
		if threat.DaysRemaining < 7 {
			facts.anyExamWithin7 = true
		}
	}

	return facts
}

// calculateConfidence оценивает уверенность классификации 0-100.
// При отсутствии сессий данных мало - возвращаем нейтральные 50.
func calculateConfidence(f identityFacts) int {
	if f.totalSessions == 0 {
		return 50
	}

	volume := math.Min(float64(f.totalSessions)/30, 1) * 30
	peakBonus := 0.0
	if f.peakCount > 0 {
		peakBonus = 20
	}

	confidence := int(math.Round(float64(f.consistency)*0.4 + volume + peakBonus - float64(f.driftCount)*5))
	if confidence > 100 {
		return 100
	}
	if confidence < 0 {
		return 0
	}
	return confidence
}

func determineDirection(f identityFacts) (string, Direction) {
	switch {
	case f.consistency > 70 && f.sessionsWeek >= 5:
		return "Becoming more consistent", DirectionUp
	case f.consistency < 40 || f.sessionsWeek < 2:
		return "Losing momentum", DirectionDown
	default:
		return "Maintaining current pace", DirectionStable
	}
}

// extractDrivers собирает до трёх наблюдений, объясняющих классификацию.
func extractDrivers(patterns StudyPatternSnapshot, f identityFacts) []string {
	drivers := make([]string, 0, 3)

	if len(patterns.PeakWindows) > 0 {
		w := patterns.PeakWindows[0]
		drivers = append(drivers, fmt.Sprintf("%s with %d%% effectiveness",
			w.Description, int(math.Round(w.AvgEffectiveness*10))))
	}
	if len(patterns.BestSubjects) > 0 {
		drivers = append(drivers, fmt.Sprintf("Strong performance in %s", patterns.BestSubjects[0].Subject))
	}
	if f.consistency > 60 && f.avgSessionMins > 0 {
		drivers = append(drivers, fmt.Sprintf("%d-minute average sessions", f.avgSessionMins))
	}

	if len(drivers) == 0 {
		return []string{"Building study foundation", "Exploring effective routines"}
	}
	if len(drivers) > 3 {
		drivers = drivers[:3]
	}
	return drivers
}

func assignRiskTag(f identityFacts) string {
	switch {
	case f.anyCritical && f.avgMastery < 60:
		return "Red Zone Before Exam"
	case f.anyHigh || f.consistency < 40:
		return "At Risk"
	default:
		return "Safe"
	}
}
