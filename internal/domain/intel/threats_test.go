package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

var threatsNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func mkExam(id, subject string, daysAhead int, topics ...string) *exam.Exam {
	return &exam.Exam{
		ID:       id,
		UserID:   "u1",
		Subject:  shared.Subject(subject),
		Title:    subject + " exam",
		ExamDate: threatsNow.AddDate(0, 0, daysAhead),
		Topics:   topics,
	}
}

func mkMastery(subject, topic string, score int) *mastery.TopicMastery {
	return &mastery.TopicMastery{
		UserID:  "u1",
		Subject: shared.Subject(subject),
		Topic:   topic,
		Score:   shared.Score(score),
	}
}

func TestComputeExamThreats_CriticalWhenCloseAndWeak(t *testing.T) {
	exams := []*exam.Exam{mkExam("e1", "Calculus", 3, "integration")}

	snapshots := ComputeExamThreats(exams, nil, threatsNow)

	require.Len(t, snapshots, 1)
	s := snapshots[0]
	assert.Equal(t, 3, s.DaysRemaining)
	assert.Equal(t, 0, s.AvgMastery)
	assert.Equal(t, exam.ThreatCritical, s.ThreatLevel)
	// timeFactor capped at 30, mastery contributes nothing.
	assert.Equal(t, 30, s.Progress)
	assert.Equal(t, "F (<50%)", s.PredictedOutcome)
	// Full 80-point gap: 40 hours total, spread over 3 days.
	assert.Equal(t, 40, s.RecommendedHours.Total)
	assert.Equal(t, 14, s.RecommendedHours.Daily)
}

func TestComputeExamThreats_ThreatLevelBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		daysAhead int
		avgScore  int
		want      exam.ThreatLevel
	}{
		{"critical at 5 days below 60", 5, 59, exam.ThreatCritical},
		{"high at 5 days with strong mastery", 5, 60, exam.ThreatHigh},
		{"high at 7 days", 7, 85, exam.ThreatHigh},
		{"high on weak mastery regardless of time", 60, 49, exam.ThreatHigh},
		{"medium at 14 days", 14, 85, exam.ThreatMedium},
		{"medium on mediocre mastery", 60, 69, exam.ThreatMedium},
		{"low when far and strong", 60, 85, exam.ThreatLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exams := []*exam.Exam{mkExam("e1", "Calculus", tt.daysAhead, "integration")}
			rows := []*mastery.TopicMastery{mkMastery("Calculus", "integration", tt.avgScore)}

			snapshots := ComputeExamThreats(exams, rows, threatsNow)
			require.Len(t, snapshots, 1)
			assert.Equal(t, tt.want, snapshots[0].ThreatLevel)
		})
	}
}

func TestComputeExamThreats_RelevantMasterySelection(t *testing.T) {
	exams := []*exam.Exam{mkExam("e1", "Calculus", 10, "integration")}
	rows := []*mastery.TopicMastery{
		mkMastery("Calculus", "integration by parts", 50), // subject + topic match
		mkMastery("Calculus", "limits", 40),               // subject only: topic not named
		mkMastery("Chemistry", "integration", 90),         // same topic, wrong subject
	}

	snapshots := ComputeExamThreats(exams, rows, threatsNow)

	require.Len(t, snapshots, 1)
	s := snapshots[0]
	assert.Equal(t, 50, s.AvgMastery)
	assert.Equal(t, []string{"integration by parts (50%)"}, s.GapAnalysis)
	require.Len(t, s.WeakTopics, 1)
	assert.Equal(t, "integration by parts", s.WeakTopics[0].Topic)
}

func TestComputeExamThreats_SubjectOnlyWithoutTopicList(t *testing.T) {
	// An exam that names no topics matches every row of its subject.
	exams := []*exam.Exam{mkExam("e1", "Calculus", 10)}
	rows := []*mastery.TopicMastery{
		mkMastery("Calculus", "limits", 40),
		mkMastery("Calculus", "series", 60),
		mkMastery("Chemistry", "kinetics", 90),
	}

	snapshots := ComputeExamThreats(exams, rows, threatsNow)

	require.Len(t, snapshots, 1)
	assert.Equal(t, 50, snapshots[0].AvgMastery)
}

func TestComputeExamThreats_PredictedOutcomeBands(t *testing.T) {
	tests := []struct {
		daysAhead int
		avgScore  int
		want      string
	}{
		{20, 80, "A+ (90-100%)"}, // +10 bonus for distant exams
		{10, 82, "A (80-89%)"},
		{10, 75, "B (70-79%)"},
		{2, 70, "C (60-69%)"}, // -5 penalty inside 3 days
		{10, 55, "D (50-59%)"},
		{10, 20, "F (<50%)"},
	}

	for _, tt := range tests {
		exams := []*exam.Exam{mkExam("e1", "Calculus", tt.daysAhead, "integration")}
		rows := []*mastery.TopicMastery{mkMastery("Calculus", "integration", tt.avgScore)}

		snapshots := ComputeExamThreats(exams, rows, threatsNow)
		require.Len(t, snapshots, 1)
		assert.Equal(t, tt.want, snapshots[0].PredictedOutcome)
	}
}

func TestComputeExamThreats_SkipsPastExams(t *testing.T) {
	exams := []*exam.Exam{
		mkExam("past", "Calculus", -1, "integration"),
		mkExam("future", "Physics", 10, "mechanics"),
	}

	snapshots := ComputeExamThreats(exams, nil, threatsNow)

	require.Len(t, snapshots, 1)
	assert.Equal(t, "future", snapshots[0].ExamID)
}

func TestComputeExamThreats_DaysRemainingRoundsUp(t *testing.T) {
	e := mkExam("e1", "Calculus", 0, "integration")
	e.ExamDate = threatsNow.Add(36 * time.Hour)

	snapshots := ComputeExamThreats([]*exam.Exam{e}, nil, threatsNow)

	require.Len(t, snapshots, 1)
	assert.Equal(t, 2, snapshots[0].DaysRemaining)
}

func TestComputeExamThreats_NoGapWhenMasteryAboveTarget(t *testing.T) {
	exams := []*exam.Exam{mkExam("e1", "Calculus", 10, "integration")}
	rows := []*mastery.TopicMastery{mkMastery("Calculus", "integration", 90)}

	snapshots := ComputeExamThreats(exams, rows, threatsNow)

	require.Len(t, snapshots, 1)
	assert.Equal(t, RecommendedHours{}, snapshots[0].RecommendedHours)
	assert.Empty(t, snapshots[0].GapAnalysis)
}

func TestExamProximity(t *testing.T) {
	assert.Equal(t, exam.ThreatNone, ExamProximity(nil))

	snapshots := []ExamThreatSnapshot{
		{ThreatLevel: exam.ThreatLow},
		{ThreatLevel: exam.ThreatHigh},
		{ThreatLevel: exam.ThreatMedium},
	}
	assert.Equal(t, exam.ThreatHigh, ExamProximity(snapshots))
}

func TestApplyThreatToExam(t *testing.T) {
	e := mkExam("e1", "Calculus", 3, "integration")
	snapshots := ComputeExamThreats([]*exam.Exam{e}, nil, threatsNow)
	require.Len(t, snapshots, 1)

	ApplyThreatToExam(e, snapshots[0], threatsNow)

	assert.Equal(t, exam.ThreatCritical, e.ThreatLevel)
	assert.Equal(t, 30, e.Progress)
	assert.Equal(t, "F (<50%)", e.PredictedOutcome)
	assert.Equal(t, threatsNow, e.ThreatCalculatedAt)
}
