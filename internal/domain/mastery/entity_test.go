package mastery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

var masteryNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newMastery(t *testing.T, effectiveness int) *TopicMastery {
	t.Helper()
	m, err := NewFromSession("m1", "u1", "Calculus", "integration", shared.Effectiveness(effectiveness), masteryNow)
	require.NoError(t, err)
	return m
}

func TestNewFromSession_Rated(t *testing.T) {
	m := newMastery(t, 8)

	assert.Equal(t, shared.Score(40), m.Score)
	assert.Equal(t, shared.Score(80), m.Confidence)
	assert.Equal(t, 1, m.SessionCount)
	assert.Equal(t, DefaultEasiness, m.Easiness)
	assert.Equal(t, masteryNow.AddDate(0, 0, 1), m.NextReviewAt)
}

func TestNewFromSession_Unrated(t *testing.T) {
	m := newMastery(t, 0)

	assert.Equal(t, shared.Score(25), m.Score)
	assert.Equal(t, shared.Score(50), m.Confidence)
}

func TestNewFromSession_Validation(t *testing.T) {
	_, err := NewFromSession("", "u1", "Calculus", "integration", 5, masteryNow)
	assert.Error(t, err)

	_, err = NewFromSession("m1", "u1", "Calculus", "  ", 5, masteryNow)
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestEffectivenessDelta(t *testing.T) {
	tests := []struct {
		effectiveness int
		want          int
	}{
		{0, 2}, // unrated
		{1, -6},
		{3, -3},
		{5, 0},
		{8, 5},
		{10, 8},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EffectivenessDelta(shared.Effectiveness(tt.effectiveness)),
			"effectiveness %d", tt.effectiveness)
	}
}

func TestQualityToEffectiveness(t *testing.T) {
	assert.Equal(t, shared.Effectiveness(10), QualityToEffectiveness(100))
	assert.Equal(t, shared.Effectiveness(1), QualityToEffectiveness(0))
	assert.Equal(t, shared.Effectiveness(5), QualityToEffectiveness(45))
	assert.Equal(t, shared.Effectiveness(7), QualityToEffectiveness(74))
}

func TestApplyEffectiveness_AdditiveDelta(t *testing.T) {
	m := newMastery(t, 8) // score 40

	milestone := m.ApplyEffectiveness(8, masteryNow.Add(time.Hour))

	assert.Equal(t, MilestoneNone, milestone)
	assert.Equal(t, shared.Score(45), m.Score)
	assert.Equal(t, shared.Score(80), m.Confidence)
	assert.Equal(t, 2, m.SessionCount)
	assert.Equal(t, masteryNow.Add(time.Hour), m.LastStudiedAt)
}

func TestApplyEffectiveness_UnratedKeepsConfidence(t *testing.T) {
	m := newMastery(t, 8)

	m.ApplyEffectiveness(0, masteryNow.Add(time.Hour))

	assert.Equal(t, shared.Score(42), m.Score)
	assert.Equal(t, shared.Score(80), m.Confidence)
}

func TestApplyEffectiveness_MasteredMilestone(t *testing.T) {
	m := newMastery(t, 8)
	m.Score = 72

	milestone := m.ApplyEffectiveness(8, masteryNow.Add(time.Hour))

	assert.Equal(t, MilestoneMastered, milestone)
	assert.Equal(t, shared.Score(77), m.Score)

	// Already above the threshold: no repeat milestone.
	milestone = m.ApplyEffectiveness(8, masteryNow.Add(2*time.Hour))
	assert.Equal(t, MilestoneNone, milestone)
}

func TestApplyEffectiveness_WeaknessMilestone(t *testing.T) {
	m := newMastery(t, 8)
	m.Score = 40
	m.SessionCount = 2

	milestone := m.ApplyEffectiveness(3, masteryNow.Add(time.Hour))

	assert.Equal(t, MilestoneWeakness, milestone)
	assert.Equal(t, shared.Score(37), m.Score)
	assert.Equal(t, 3, m.SessionCount)
}

func TestApplyEffectiveness_ScoreClamped(t *testing.T) {
	m := newMastery(t, 8)
	m.Score = 98

	m.ApplyEffectiveness(10, masteryNow.Add(time.Hour))
	assert.Equal(t, shared.Score(100), m.Score)

	m.Score = 2
	m.ApplyEffectiveness(1, masteryNow.Add(2*time.Hour))
	assert.Equal(t, shared.Score(0), m.Score)
}

func TestReview_PerfectSequence(t *testing.T) {
	m := newMastery(t, 8)

	require.NoError(t, m.Review(5, masteryNow))
	assert.InDelta(t, 2.6, m.Easiness, 0.0001)
	assert.Equal(t, 6, m.IntervalDays)
	assert.Equal(t, 1, m.Repetitions)
	assert.Equal(t, masteryNow.AddDate(0, 0, 6), m.NextReviewAt)

	require.NoError(t, m.Review(5, masteryNow.AddDate(0, 0, 6)))
	assert.InDelta(t, 2.7, m.Easiness, 0.0001)
	assert.Equal(t, 16, m.IntervalDays) // round(6 * 2.7)
	assert.Equal(t, 2, m.Repetitions)
}

func TestReview_FirstIntervalsByQuality(t *testing.T) {
	q3 := newMastery(t, 8)
	require.NoError(t, q3.Review(3, masteryNow))
	assert.Equal(t, 1, q3.IntervalDays)

	q4 := newMastery(t, 8)
	require.NoError(t, q4.Review(4, masteryNow))
	assert.Equal(t, 3, q4.IntervalDays)
}

func TestReview_FailureResetsChain(t *testing.T) {
	m := newMastery(t, 8)
	require.NoError(t, m.Review(5, masteryNow))
	require.NoError(t, m.Review(5, masteryNow))
	require.Equal(t, 2, m.Repetitions)

	require.NoError(t, m.Review(2, masteryNow))

	assert.Equal(t, 0, m.Repetitions)
	assert.Equal(t, 1, m.IntervalDays)
	assert.Equal(t, masteryNow.AddDate(0, 0, 1), m.NextReviewAt)
}

func TestReview_EasinessFloor(t *testing.T) {
	m := newMastery(t, 8)
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Review(1, masteryNow))
	}
	assert.InDelta(t, MinEasiness, m.Easiness, 0.0001)
}

func TestReview_RejectsInvalidQuality(t *testing.T) {
	m := newMastery(t, 8)
	assert.ErrorIs(t, m.Review(0, masteryNow), shared.ErrInvalidQuality)
	assert.ErrorIs(t, m.Review(6, masteryNow), shared.ErrInvalidQuality)
}

func TestIsDue(t *testing.T) {
	m := newMastery(t, 8)

	assert.False(t, m.IsDue(masteryNow))
	assert.True(t, m.IsDue(masteryNow.AddDate(0, 0, 1)))
	assert.True(t, m.IsDue(masteryNow.AddDate(0, 0, 2)))
}

func TestQueries(t *testing.T) {
	m := newMastery(t, 8)

	m.Score = 45
	assert.True(t, m.IsWeak())
	assert.False(t, m.IsStrong())

	m.Score = 80
	assert.False(t, m.IsWeak())
	assert.True(t, m.IsStrong())

	m.Score = 55
	m.SessionCount = 3
	assert.True(t, m.IsStuck())
	m.SessionCount = 2
	assert.False(t, m.IsStuck())

	assert.True(t, m.MatchesSubject("calculus ii"))
	assert.False(t, m.MatchesSubject("History"))
}
