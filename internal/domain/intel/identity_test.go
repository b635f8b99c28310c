package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

var identityNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func masteryRows(scores ...int) []*mastery.TopicMastery {
	rows := make([]*mastery.TopicMastery, 0, len(scores))
	for i, score := range scores {
		rows = append(rows, &mastery.TopicMastery{
			Topic: string(rune('a' + i)),
			Score: shared.Score(score),
		})
	}
	return rows
}

func TestComputeIdentity_LastMinuteSprinter(t *testing.T) {
	snapshot := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{ConsistencyScore: 80, TotalSessions: 20},
		Threats:  []ExamThreatSnapshot{{ThreatLevel: exam.ThreatCritical, DaysRemaining: 4}},
		Mastery:  masteryRows(50, 60),
		Now:      identityNow,
	})

	assert.Equal(t, ArchetypeLastMinuteSprinter, snapshot.Archetype)
	assert.Equal(t, "Red Zone Before Exam", snapshot.RiskTag)
}

func TestComputeIdentity_AvoidantCrammer(t *testing.T) {
	snapshot := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{
			ConsistencyScore:        80,
			TotalSessions:           20,
			ProcrastinationTriggers: []string{"youtube", "tiktok", "phone", "gaming"},
		},
		Threats: []ExamThreatSnapshot{{ThreatLevel: exam.ThreatHigh, DaysRemaining: 6}},
		Mastery: masteryRows(40, 50),
		Now:     identityNow,
	})

	assert.Equal(t, ArchetypeAvoidantCrammer, snapshot.Archetype)
	assert.Equal(t, "At Risk", snapshot.RiskTag)
}

func TestComputeIdentity_ConsistentGrinder(t *testing.T) {
	snapshot := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{
			ConsistencyScore: 80,
			TotalSessions:    40,
			DriftWindows:     []TimeWindow{{Hour: 9}},
		},
		Mastery: masteryRows(80, 85),
		Now:     identityNow,
	})

	assert.Equal(t, ArchetypeConsistentGrinder, snapshot.Archetype)
	assert.Equal(t, "Safe", snapshot.RiskTag)
}

func TestComputeIdentity_MomentumBuilder(t *testing.T) {
	snapshot := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{
			ConsistencyScore:  60,
			TotalSessions:     15,
			AvgSessionMinutes: 40,
		},
		Now: identityNow,
	})

	assert.Equal(t, ArchetypeMomentumBuilder, snapshot.Archetype)
}

func TestComputeIdentity_DriftCyclerDefault(t *testing.T) {
	snapshot := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{ConsistencyScore: 30, TotalSessions: 5},
		Now:      identityNow,
	})

	assert.Equal(t, ArchetypeDriftCycler, snapshot.Archetype)
	assert.Equal(t, "At Risk", snapshot.RiskTag)
}

func TestComputeIdentity_RulePrecedence(t *testing.T) {
	// Facts satisfy both sprinter and grinder; the earlier rule wins.
	snapshot := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{ConsistencyScore: 90, TotalSessions: 50},
		Threats:  []ExamThreatSnapshot{{ThreatLevel: exam.ThreatCritical, DaysRemaining: 2}},
		Mastery:  masteryRows(40),
		Now:      identityNow,
	})

	assert.Equal(t, ArchetypeLastMinuteSprinter, snapshot.Archetype)
}

func TestCalculateConfidence_NoSessionsIsNeutral(t *testing.T) {
	snapshot := ComputeIdentity(IdentityInput{Now: identityNow})
	assert.Equal(t, 50, snapshot.Confidence)
}

func TestCalculateConfidence_Formula(t *testing.T) {
	snapshot := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{
			ConsistencyScore: 80,
			TotalSessions:    30,
			PeakWindows:      []TimeWindow{{Hour: 19}},
			DriftWindows:     []TimeWindow{{Hour: 9}},
		},
		Now: identityNow,
	})

	// 80*0.4 + 30 + 20 - 5 = 77
	assert.Equal(t, 77, snapshot.Confidence)
}

func TestDetermineDirection(t *testing.T) {
	up := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{ConsistencyScore: 75, SessionsLast7Days: 5, TotalSessions: 20},
		Now:      identityNow,
	})
	assert.Equal(t, "Becoming more consistent", up.Direction)
	assert.Equal(t, DirectionUp, up.Trend)

	down := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{ConsistencyScore: 30, SessionsLast7Days: 1, TotalSessions: 20},
		Now:      identityNow,
	})
	assert.Equal(t, "Losing momentum", down.Direction)
	assert.Equal(t, DirectionDown, down.Trend)

	stable := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{ConsistencyScore: 55, SessionsLast7Days: 3, TotalSessions: 20},
		Now:      identityNow,
	})
	assert.Equal(t, "Maintaining current pace", stable.Direction)
	assert.Equal(t, DirectionStable, stable.Trend)
}

func TestExtractDrivers(t *testing.T) {
	snapshot := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{
			ConsistencyScore:  70,
			TotalSessions:     20,
			AvgSessionMinutes: 42,
			PeakWindows: []TimeWindow{
				{Hour: 19, Description: "High productivity (4 sessions, 8.2/10 avg)", AvgEffectiveness: 8.2},
			},
			BestSubjects: []SubjectPerformance{{Subject: "Math", AvgEffectiveness: 8.5}},
		},
		Now: identityNow,
	})

	assert.Equal(t, []string{
		"High productivity (4 sessions, 8.2/10 avg) with 82% effectiveness",
		"Strong performance in Math",
		"42-minute average sessions",
	}, snapshot.Drivers)
}

func TestExtractDrivers_Fallback(t *testing.T) {
	snapshot := ComputeIdentity(IdentityInput{
		Patterns: StudyPatternSnapshot{ConsistencyScore: 20, TotalSessions: 2},
		Now:      identityNow,
	})

	assert.Equal(t, []string{"Building study foundation", "Exploring effective routines"}, snapshot.Drivers)
}
