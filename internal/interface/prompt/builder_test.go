package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
)

func TestTrigger_IsValid(t *testing.T) {
	assert.True(t, TriggerMorningMomentum.IsValid())
	assert.True(t, TriggerAfternoonDrift.IsValid())
	assert.True(t, TriggerEveningCloseout.IsValid())
	assert.False(t, Trigger("midnight_panic").IsValid())
}

func TestBuildIntelPrompt(t *testing.T) {
	b := NewBuilder()
	state := &intel.UserIntelState{
		ExamProximity: exam.ThreatHigh,
		Exams: []intel.ExamThreatSnapshot{
			{
				Subject:          "Chemistry",
				Title:            "Midterm",
				DaysRemaining:    9,
				ThreatLevel:      exam.ThreatHigh,
				Progress:         55,
				PredictedOutcome: "C+",
				GapAnalysis:      []string{"organic reactions", "stoichiometry"},
			},
		},
		Mastery: intel.MasteryMap{
			TopicScores: map[string]int{
				"organic reactions": 40,
				"limits":            80,
			},
		},
		StudyPatterns: intel.StudyPatternSnapshot{
			ConsistencyScore: 60,
			StreakDays:       4,
		},
	}

	out := b.BuildIntelPrompt(state)

	assert.Contains(t, out, "Exam proximity: HIGH")
	assert.Contains(t, out, "EXAM DATA:")
	assert.Contains(t, out, "Chemistry (Midterm): 9 days")
	assert.Contains(t, out, "Weak areas: organic reactions, stoichiometry")
	assert.Contains(t, out, "MASTERY DATA:")
	assert.Contains(t, out, "WEAK TOPICS (<50%):")
	assert.Contains(t, out, "- organic reactions: 40%")
	assert.Contains(t, out, "STRONG TOPICS (>75%):")
	assert.Contains(t, out, "STUDY PATTERNS:")
	assert.Contains(t, out, "Streak: 4 days")
	assert.Contains(t, out, "BEHAVIORAL THREADS:")
	assert.False(t, strings.Contains(out, "{{"), "all placeholders must be resolved")
}

func TestBuildIntelPrompt_Empty(t *testing.T) {
	b := NewBuilder()
	out := b.BuildIntelPrompt(&intel.UserIntelState{ExamProximity: exam.ThreatNone})

	assert.Contains(t, out, "No exams currently scheduled.")
	assert.Contains(t, out, "No topic mastery data yet.")
}

func TestBuildNudgePrompt_CriticalOverridesTrigger(t *testing.T) {
	b := NewBuilder()
	state := &intel.UserIntelState{
		Exams: []intel.ExamThreatSnapshot{
			{Subject: "Biology", DaysRemaining: 20, ThreatLevel: exam.ThreatMedium},
			{Subject: "Physics", DaysRemaining: 2, ThreatLevel: exam.ThreatCritical, Progress: 48, PredictedOutcome: "D"},
		},
	}

	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	for _, trigger := range []Trigger{TriggerMorningMomentum, TriggerAfternoonDrift, TriggerEveningCloseout} {
		out := b.BuildNudgePrompt(state, trigger, now)
		assert.Contains(t, out, "CRITICAL exam threat detected.")
		assert.Contains(t, out, "Exam: Physics")
		assert.Contains(t, out, "Days remaining: 2")
		assert.Contains(t, out, "Current mastery: 48%")
		assert.Contains(t, out, "Predicted outcome: D")
	}
}

func TestBuildNudgePrompt_Drift(t *testing.T) {
	b := NewBuilder()
	state := &intel.UserIntelState{
		Exams: []intel.ExamThreatSnapshot{
			{Subject: "Calculus", DaysRemaining: 6, ThreatLevel: exam.ThreatHigh},
		},
		SemanticThreads: intel.SemanticThreads{
			TimeWasters: []string{"YouTube", "TikTok"},
		},
	}

	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	out := b.BuildNudgePrompt(state, TriggerAfternoonDrift, now)

	assert.Contains(t, out, "drift window")
	assert.Contains(t, out, "Current time: 2 PM")
	assert.Contains(t, out, "waste this time on YouTube")
	assert.Contains(t, out, "Calculus in 6 days")
}

func TestBuildNudgePrompt_DriftDefaults(t *testing.T) {
	b := NewBuilder()
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	out := b.BuildNudgePrompt(&intel.UserIntelState{}, TriggerAfternoonDrift, now)

	assert.Contains(t, out, "distractions")
	assert.Contains(t, out, "your exam in several days")
}

func TestBuildNudgePrompt_MomentumAndCloseout(t *testing.T) {
	b := NewBuilder()
	state := &intel.UserIntelState{
		StudyPatterns: intel.StudyPatternSnapshot{StreakDays: 6},
		TodayMinutes:  82,
		WeeklyMinutes: 900,
		WeeklyTarget:  1200,
	}

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	morning := b.BuildNudgePrompt(state, TriggerMorningMomentum, now)
	assert.Contains(t, morning, "Building study momentum.")
	assert.Contains(t, morning, "Current streak: 6 days")
	assert.Contains(t, morning, "Status: BEHIND")

	state.WeeklyMinutes = 1200
	evening := b.BuildNudgePrompt(state, TriggerEveningCloseout, now)
	assert.Contains(t, evening, "Evening closeout.")
	assert.Contains(t, evening, "Today's progress: 82 minutes")
	assert.Contains(t, evening, "Status: ON TRACK")
}

func TestBuildWeakTopicPrompt(t *testing.T) {
	b := NewBuilder()

	out := b.BuildWeakTopicPrompt("integration by parts", 40, 5, "Calculus", 6)
	assert.Contains(t, out, "Topic: integration by parts (mastery: 40%)")
	assert.Contains(t, out, "Sessions attempted: 5")
	assert.Contains(t, out, "Upcoming exam: Calculus in 6 days")

	noExam := b.BuildWeakTopicPrompt("limits", 30, 2, "", 0)
	assert.Contains(t, noExam, "Upcoming exam: upcoming exam in 0 days")
}

func TestBuildExamAlert(t *testing.T) {
	b := NewBuilder()
	threat := intel.ExamThreatSnapshot{
		Subject:          "Chemistry",
		Progress:         55,
		PredictedOutcome: "B-",
		GapAnalysis:      []string{"organic reactions", "stoichiometry", "kinetics", "extra"},
		RecommendedHours: intel.RecommendedHours{Total: 12, Daily: 2},
	}

	d14 := b.BuildExamAlert(threat, 14)
	assert.Contains(t, d14, "Chemistry exam in 14 days")
	assert.Contains(t, d14, "55%")

	d7 := b.BuildExamAlert(threat, 7)
	assert.Contains(t, d7, "THREAT LEVEL: HIGH")
	// Capped at three gap topics.
	assert.Contains(t, d7, "organic reactions, stoichiometry, kinetics")
	assert.NotContains(t, d7, "extra")
	assert.Contains(t, d7, "12 hours")

	d3 := b.BuildExamAlert(threat, 3)
	assert.Contains(t, d3, "CRITICAL: Chemistry exam in 3 DAYS")
	assert.Contains(t, d3, "organic reactions, stoichiometry")

	d1 := b.BuildExamAlert(threat, 1)
	assert.Contains(t, d1, "Chemistry exam TOMORROW")
	assert.Contains(t, d1, "B-")

	generic := b.BuildExamAlert(threat, 5)
	assert.Equal(t, "Chemistry exam in 5 days. Current mastery: 55%.", generic)
}

func TestBuildExamAlert_EmptyGaps(t *testing.T) {
	b := NewBuilder()
	threat := intel.ExamThreatSnapshot{Subject: "History", Progress: 70}

	out := b.BuildExamAlert(threat, 7)
	assert.Contains(t, out, "review all topics")
}
