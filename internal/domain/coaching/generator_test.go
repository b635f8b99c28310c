package coaching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/study"
)

var coachingNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func threatIn(days int, level exam.ThreatLevel) intel.ExamThreatSnapshot {
	return intel.ExamThreatSnapshot{
		ExamID:        "e1",
		Subject:       "Calculus",
		Title:         "Calculus midterm",
		ExamDate:      coachingNow.AddDate(0, 0, days),
		DaysRemaining: days,
		ThreatLevel:   level,
	}
}

func calcWeak(topics ...intel.WeakTopic) intel.MasteryMap {
	return intel.MasteryMap{WeakTopics: topics}
}

func recentSession(subject string, daysAgo int) *study.Session {
	return &study.Session{
		ID:        "s1",
		UserID:    "u1",
		Subject:   shared.Subject(subject),
		StartedAt: coachingNow.AddDate(0, 0, -daysAgo),
		Minutes:   30,
	}
}

func TestGeneratePlans_ExamPrep(t *testing.T) {
	state := intel.UserIntelState{
		UserID: "u1",
		Exams:  []intel.ExamThreatSnapshot{threatIn(5, exam.ThreatHigh)},
		Mastery: calcWeak(
			intel.WeakTopic{Subject: "Calculus", Topic: "integration", Score: 35},
			intel.WeakTopic{Subject: "Calculus", Topic: "limits", Score: 45},
		),
		StudyPatterns: intel.StudyPatternSnapshot{ConsistencyScore: 90},
	}

	plans := GeneratePlans(state, coachingNow)

	require.Len(t, plans, 1)
	p := plans[0]
	assert.Equal(t, TypeExamPrep, p.Type)
	assert.Equal(t, PriorityMedium, p.Priority)
	// avg weak 40, gain 35 -> ceil(35/15*10) = 24 min/day over 5 days.
	assert.Equal(t, 24, p.DailyMinutes)
	assert.Equal(t, 120, p.TotalMinutes)
	assert.Equal(t, 35, p.PredictedGain)
	assert.Equal(t, []string{
		"Days 1-2: integration",
		"Days 3-4: limits",
		"Day 5: Mixed review",
	}, p.Breakdown)
	require.Len(t, p.Actions, 3)
	assert.Equal(t, ActionDeepDive, p.Actions[2].Type)
	assert.Equal(t, "integration", p.Actions[2].Payload["topic"])
}

func TestGeneratePlans_ExamPrepHighPriority(t *testing.T) {
	weak := calcWeak(intel.WeakTopic{Subject: "Calculus", Topic: "integration", Score: 40})

	critical := intel.UserIntelState{
		UserID:        "u1",
		Exams:         []intel.ExamThreatSnapshot{threatIn(10, exam.ThreatCritical)},
		Mastery:       weak,
		StudyPatterns: intel.StudyPatternSnapshot{ConsistencyScore: 90},
	}
	plans := GeneratePlans(critical, coachingNow)
	require.Len(t, plans, 1)
	assert.Equal(t, PriorityHigh, plans[0].Priority)

	imminent := intel.UserIntelState{
		UserID:        "u1",
		Exams:         []intel.ExamThreatSnapshot{threatIn(3, exam.ThreatMedium)},
		Mastery:       weak,
		StudyPatterns: intel.StudyPatternSnapshot{ConsistencyScore: 90},
	}
	plans = GeneratePlans(imminent, coachingNow)
	require.Len(t, plans, 1)
	assert.Equal(t, PriorityHigh, plans[0].Priority)
}

func TestGeneratePlans_ExamPrepOutsideHorizon(t *testing.T) {
	state := intel.UserIntelState{
		UserID:        "u1",
		Exams:         []intel.ExamThreatSnapshot{threatIn(20, exam.ThreatLow)},
		Mastery:       calcWeak(intel.WeakTopic{Subject: "Calculus", Topic: "integration", Score: 40}),
		StudyPatterns: intel.StudyPatternSnapshot{ConsistencyScore: 90},
	}

	assert.Empty(t, GeneratePlans(state, coachingNow))
}

func TestGeneratePlans_ExamPrepSkipsWithoutWeakTopics(t *testing.T) {
	// All relevant mastery is strong: no plan even with the exam close.
	state := intel.UserIntelState{
		UserID:        "u1",
		Exams:         []intel.ExamThreatSnapshot{threatIn(10, exam.ThreatMedium)},
		Mastery:       intel.MasteryMap{TopicScores: map[string]int{"integration": 90, "limits": 85}},
		StudyPatterns: intel.StudyPatternSnapshot{ConsistencyScore: 90},
	}

	assert.Empty(t, GeneratePlans(state, coachingNow))
}

func TestGeneratePlans_ExamPrepMatchesSubjectFuzzily(t *testing.T) {
	state := intel.UserIntelState{
		UserID: "u1",
		Exams:  []intel.ExamThreatSnapshot{threatIn(5, exam.ThreatHigh)},
		Mastery: calcWeak(
			intel.WeakTopic{Subject: "Advanced Calculus", Topic: "integration", Score: 40},
			intel.WeakTopic{Subject: "History", Topic: "integration", Score: 20},
		),
		StudyPatterns: intel.StudyPatternSnapshot{ConsistencyScore: 90},
	}

	plans := GeneratePlans(state, coachingNow)

	require.Len(t, plans, 1)
	// Only the Calculus-related weak topic counts; avg 40, not dragged to 30
	// by the same-named History topic.
	assert.Equal(t, 24, plans[0].DailyMinutes)
}

func TestGeneratePlans_DriftRecovery(t *testing.T) {
	state := intel.UserIntelState{
		UserID:         "u1",
		Exams:          []intel.ExamThreatSnapshot{threatIn(10, exam.ThreatMedium)},
		RecentSessions: []*study.Session{recentSession("Calculus", 4)},
		StudyPatterns:  intel.StudyPatternSnapshot{ConsistencyScore: 90},
	}

	plans := GeneratePlans(state, coachingNow)

	var drift *Plan
	for i := range plans {
		if plans[i].Type == TypeDriftRecovery {
			drift = &plans[i]
		}
	}
	require.NotNil(t, drift)
	assert.Equal(t, PriorityMedium, drift.Priority)
	assert.Equal(t, "Get back to Calculus", drift.Title)
	assert.Equal(t, 15, drift.TotalMinutes)
	assert.Equal(t, 8, drift.PredictedGain) // 4 days * 2% decay
}

func TestGeneratePlans_DriftRecoveryUrgent(t *testing.T) {
	state := intel.UserIntelState{
		UserID:         "u1",
		Exams:          []intel.ExamThreatSnapshot{threatIn(10, exam.ThreatMedium)},
		RecentSessions: []*study.Session{recentSession("Calculus", 9)},
		StudyPatterns:  intel.StudyPatternSnapshot{ConsistencyScore: 90},
	}

	plans := GeneratePlans(state, coachingNow)

	var drift *Plan
	for i := range plans {
		if plans[i].Type == TypeDriftRecovery {
			drift = &plans[i]
		}
	}
	require.NotNil(t, drift)
	assert.Equal(t, PriorityHigh, drift.Priority)
	assert.Equal(t, 15, drift.PredictedGain) // decay capped at 15
}

func TestGeneratePlans_DriftRecoverySkipsWithoutExam(t *testing.T) {
	state := intel.UserIntelState{
		UserID:         "u1",
		RecentSessions: []*study.Session{recentSession("History", 6)},
		StudyPatterns:  intel.StudyPatternSnapshot{ConsistencyScore: 90},
	}

	assert.Empty(t, GeneratePlans(state, coachingNow))
}

func TestGeneratePlans_MomentumInPeakWindow(t *testing.T) {
	state := intel.UserIntelState{
		UserID: "u1",
		StudyPatterns: intel.StudyPatternSnapshot{
			ConsistencyScore: 90,
			PeakWindows:      []intel.TimeWindow{{Hour: coachingNow.Hour()}},
		},
		Mastery: calcWeak(
			intel.WeakTopic{Subject: "Calculus", Topic: "integration", Score: 40},
			intel.WeakTopic{Subject: "Calculus", Topic: "series", Score: 45},
		),
	}

	plans := GeneratePlans(state, coachingNow)

	require.Len(t, plans, 1)
	p := plans[0]
	assert.Equal(t, TypeMomentum, p.Type)
	assert.Equal(t, PriorityHigh, p.Priority)
	assert.Contains(t, p.Body, "integration (40%)")
	assert.Equal(t, 30, p.TotalMinutes)
}

func TestGeneratePlans_MomentumOutsidePeakWindow(t *testing.T) {
	state := intel.UserIntelState{
		UserID: "u1",
		StudyPatterns: intel.StudyPatternSnapshot{
			ConsistencyScore: 90,
			PeakWindows:      []intel.TimeWindow{{Hour: coachingNow.Hour() + 3}},
		},
		Mastery: calcWeak(intel.WeakTopic{Subject: "Calculus", Topic: "integration", Score: 40}),
	}

	assert.Empty(t, GeneratePlans(state, coachingNow))
}

func TestGeneratePlans_MomentumNeedsWeakTopic(t *testing.T) {
	// Known topics but nothing below 50: no momentum plan.
	state := intel.UserIntelState{
		UserID: "u1",
		StudyPatterns: intel.StudyPatternSnapshot{
			ConsistencyScore: 90,
			PeakWindows:      []intel.TimeWindow{{Hour: coachingNow.Hour()}},
		},
		Mastery: intel.MasteryMap{TopicScores: map[string]int{"integration": 80}},
	}

	assert.Empty(t, GeneratePlans(state, coachingNow))
}

func TestGeneratePlans_Consistency(t *testing.T) {
	state := intel.UserIntelState{
		UserID:        "u1",
		StudyPatterns: intel.StudyPatternSnapshot{ConsistencyScore: 40},
	}

	plans := GeneratePlans(state, coachingNow)

	require.Len(t, plans, 1)
	p := plans[0]
	assert.Equal(t, TypeConsistency, p.Type)
	assert.Equal(t, PriorityLow, p.Priority)
	assert.Equal(t, "5 min daily check-ins for 7 days", p.Body)
	assert.Equal(t, 35, p.TotalMinutes)
	assert.Equal(t, 25, p.PredictedGain)
}

func TestGeneratePlans_SortedByPriority(t *testing.T) {
	state := intel.UserIntelState{
		UserID:        "u1",
		Exams:         []intel.ExamThreatSnapshot{threatIn(10, exam.ThreatCritical)},
		Mastery:       calcWeak(intel.WeakTopic{Subject: "Calculus", Topic: "integration", Score: 40}),
		StudyPatterns: intel.StudyPatternSnapshot{ConsistencyScore: 40},
	}

	plans := GeneratePlans(state, coachingNow)

	require.Len(t, plans, 2)
	assert.Equal(t, PriorityHigh, plans[0].Priority)
	assert.Equal(t, PriorityLow, plans[1].Priority)
}

func TestExamBreakdown_ShortRunway(t *testing.T) {
	got := examBreakdown(2, []string{"integration", "limits"})
	assert.Equal(t, []string{"Days 1-2: Mixed review of integration, limits"}, got)
}

func TestExamBreakdown_MoreTopicsThanDays(t *testing.T) {
	got := examBreakdown(3, []string{"a", "b", "c", "d"})
	assert.Equal(t, []string{"Day 1: a", "Day 2: b", "Day 3: Mixed review"}, got)
}
