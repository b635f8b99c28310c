package exam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var examNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newExam(t *testing.T, daysAhead int, topics ...string) *Exam {
	t.Helper()
	if len(topics) == 0 {
		topics = []string{"integration", "series"}
	}
	e, err := NewExam(NewExamParams{
		ID:       "e1",
		UserID:   "u1",
		Subject:  "Calculus",
		Title:    "Midterm 2",
		ExamDate: examNow.AddDate(0, 0, daysAhead),
		Topics:   topics,
	})
	require.NoError(t, err)
	return e
}

func TestNewExam(t *testing.T) {
	e := newExam(t, 10)

	assert.Equal(t, "Midterm 2", e.Title)
	assert.Equal(t, ThreatNone, e.ThreatLevel)
	assert.Len(t, e.Topics, 2)
}

func TestNewExam_Validation(t *testing.T) {
	_, err := NewExam(NewExamParams{UserID: "u1", Subject: "Calculus", Title: "x", ExamDate: examNow, Topics: []string{"a"}})
	assert.Error(t, err)

	_, err = NewExam(NewExamParams{ID: "e1", UserID: "u1", Subject: "Calculus", Title: "  ", ExamDate: examNow, Topics: []string{"a"}})
	assert.ErrorIs(t, err, ErrInvalidTitle)

	_, err = NewExam(NewExamParams{ID: "e1", UserID: "u1", Subject: "Calculus", Title: "Final", Topics: []string{"a"}})
	assert.ErrorIs(t, err, ErrInvalidExamDate)

	_, err = NewExam(NewExamParams{ID: "e1", UserID: "u1", Subject: "Calculus", Title: "Final", ExamDate: examNow, Topics: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrNoTopics)
}

func TestDaysRemaining(t *testing.T) {
	e := newExam(t, 7)

	assert.Equal(t, 7, e.DaysRemaining(examNow))
	assert.Equal(t, 1, e.DaysRemaining(examNow.AddDate(0, 0, 6)))
	// Half a day left still counts as one day.
	assert.Equal(t, 1, e.DaysRemaining(e.ExamDate.Add(-12*time.Hour)))
	assert.LessOrEqual(t, e.DaysRemaining(e.ExamDate.Add(24*time.Hour)), 0)
}

func TestIsUpcoming(t *testing.T) {
	e := newExam(t, 3)

	assert.True(t, e.IsUpcoming(examNow))
	assert.False(t, e.IsUpcoming(e.ExamDate.Add(time.Minute)))
}

func TestCoversTopic(t *testing.T) {
	e := newExam(t, 5, "Integration by parts", "Taylor series")

	assert.True(t, e.CoversTopic("integration"))
	assert.True(t, e.CoversTopic("TAYLOR SERIES"))
	// Substring match works in both directions.
	assert.True(t, e.CoversTopic("advanced integration by parts"))
	assert.False(t, e.CoversTopic("derivatives"))
	assert.False(t, e.CoversTopic("   "))
}

func TestAtThreshold(t *testing.T) {
	e := newExam(t, 14)

	threshold, ok := e.AtThreshold(examNow)
	assert.True(t, ok)
	assert.Equal(t, 14, threshold)

	_, ok = e.AtThreshold(examNow.AddDate(0, 0, 2)) // 12 days out
	assert.False(t, ok)

	threshold, ok = e.AtThreshold(examNow.AddDate(0, 0, 13)) // 1 day out
	assert.True(t, ok)
	assert.Equal(t, 1, threshold)
}

func TestApplyThreat(t *testing.T) {
	e := newExam(t, 7)
	e.ApplyThreat(ThreatHigh, 42, "C (60-69%)", []string{"series (40%)"}, 12, 2, examNow)

	assert.Equal(t, ThreatHigh, e.ThreatLevel)
	assert.Equal(t, 42, e.Progress)
	assert.Equal(t, "C (60-69%)", e.PredictedOutcome)
	assert.Equal(t, 12, e.RecommendedHoursTotal)
	assert.Equal(t, examNow, e.ThreatCalculatedAt)
}

func TestMaxThreat(t *testing.T) {
	assert.Equal(t, ThreatCritical, MaxThreat(ThreatLow, ThreatCritical))
	assert.Equal(t, ThreatHigh, MaxThreat(ThreatHigh, ThreatMedium))
	assert.Equal(t, ThreatNone, MaxThreat(ThreatNone, ThreatNone))
}

func TestThreatLevel_Severity(t *testing.T) {
	assert.Greater(t, ThreatCritical.Severity(), ThreatHigh.Severity())
	assert.Greater(t, ThreatHigh.Severity(), ThreatMedium.Severity())
	assert.Greater(t, ThreatMedium.Severity(), ThreatLow.Severity())
	assert.Greater(t, ThreatLow.Severity(), ThreatNone.Severity())
}

func TestClone(t *testing.T) {
	e := newExam(t, 5)
	clone := e.Clone()
	clone.Topics[0] = "changed"

	assert.NotEqual(t, e.Topics[0], clone.Topics[0])
	assert.Equal(t, e.ID, clone.ID)

	var nilExam *Exam
	assert.Nil(t, nilExam.Clone())
}
