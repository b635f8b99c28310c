package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/study"
)

var patternsNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func mkSession(daysAgo, hour, minutes, effectiveness int, subject, topic string) *study.Session {
	startedAt := patternsNow.AddDate(0, 0, -daysAgo)
	startedAt = time.Date(startedAt.Year(), startedAt.Month(), startedAt.Day(), hour, 0, 0, 0, time.UTC)
	return &study.Session{
		ID:            "s-" + startedAt.Format("02-15"),
		UserID:        "u1",
		Subject:       shared.Subject(subject),
		Topic:         shared.Topic(topic),
		StartedAt:     startedAt,
		Minutes:       shared.Minutes(minutes),
		Effectiveness: shared.Effectiveness(effectiveness),
	}
}

func TestComputeStudyPatterns_PeakWindows(t *testing.T) {
	sessions := []*study.Session{
		// Hour 19: three rated sessions, avg 8.0 -> qualifies by effectiveness.
		mkSession(1, 19, 60, 8, "Math", ""),
		mkSession(2, 19, 60, 9, "Math", ""),
		mkSession(3, 19, 60, 7, "Math", ""),
		// Hour 9: two mediocre sessions -> does not qualify.
		mkSession(1, 9, 30, 5, "Math", ""),
		mkSession(2, 9, 30, 5, "Math", ""),
		// Hour 14: five unrated sessions -> qualifies by volume only.
		mkSession(1, 14, 30, 0, "Chem", ""),
		mkSession(2, 14, 30, 0, "Chem", ""),
		mkSession(3, 14, 30, 0, "Chem", ""),
		mkSession(4, 14, 30, 0, "Chem", ""),
		mkSession(5, 14, 30, 0, "Chem", ""),
	}

	snapshot := ComputeStudyPatterns(PatternInput{Sessions: sessions, Now: patternsNow})

	require.Len(t, snapshot.PeakWindows, 2)
	assert.Equal(t, 19, snapshot.PeakWindows[0].Hour)
	assert.Equal(t, "19:00", snapshot.PeakWindows[0].Time)
	assert.Equal(t, "High productivity (3 sessions, 8.0/10 avg)", snapshot.PeakWindows[0].Description)
	// Volume-qualified hours without ratings sort behind rated ones.
	assert.Equal(t, 14, snapshot.PeakWindows[1].Hour)
	assert.Equal(t, "High productivity (5 sessions, 0.0/10 avg)", snapshot.PeakWindows[1].Description)
}

func TestComputeStudyPatterns_DriftWindows(t *testing.T) {
	sessions := []*study.Session{
		mkSession(1, 19, 60, 8, "Math", ""),
		mkSession(2, 19, 60, 8, "Math", ""),
		mkSession(3, 19, 60, 8, "Math", ""),
	}

	snapshot := ComputeStudyPatterns(PatternInput{Sessions: sessions, Now: patternsNow})

	// One observed hour (19) with 3 sessions -> avg 3.0; every empty expected
	// hour drifts, capped at three (9, 10, 14).
	require.Len(t, snapshot.DriftWindows, 3)
	assert.Equal(t, 9, snapshot.DriftWindows[0].Hour)
	assert.Equal(t, 10, snapshot.DriftWindows[1].Hour)
	assert.Equal(t, 14, snapshot.DriftWindows[2].Hour)
	assert.Equal(t, "Low study activity (0 sessions vs 3.0 avg)", snapshot.DriftWindows[0].Description)
}

func TestComputeStudyPatterns_DriftWindows_OffScheduleOnly(t *testing.T) {
	// All study happens at 22:00; the expected hours still read as drifted
	// because the average is taken over observed hours.
	sessions := make([]*study.Session, 0, 10)
	for i := 1; i <= 10; i++ {
		sessions = append(sessions, mkSession(i, 22, 30, 0, "Math", ""))
	}

	snapshot := ComputeStudyPatterns(PatternInput{Sessions: sessions, Now: patternsNow})

	require.Len(t, snapshot.DriftWindows, 3)
	assert.Equal(t, 9, snapshot.DriftWindows[0].Hour)
	assert.Equal(t, "Low study activity (0 sessions vs 10.0 avg)", snapshot.DriftWindows[0].Description)
}

func TestComputeStudyPatterns_ConsistencyScore(t *testing.T) {
	sessions := []*study.Session{
		mkSession(1, 10, 100, 0, "Math", ""),
		mkSession(2, 10, 100, 0, "Math", ""),
		mkSession(3, 10, 100, 0, "Math", ""),
		// Outside the 7-day window: must not count toward weekly minutes.
		mkSession(10, 10, 500, 0, "Math", ""),
	}

	snapshot := ComputeStudyPatterns(PatternInput{
		Sessions:          sessions,
		WeeklyGoalMinutes: 600,
		Now:               patternsNow,
	})

	assert.Equal(t, 300, snapshot.WeeklyMinutes)
	assert.Equal(t, 50, snapshot.ConsistencyScore)
	assert.Equal(t, 3, snapshot.SessionsLast7Days)
}

func TestComputeStudyPatterns_ConsistencyCappedAt100(t *testing.T) {
	sessions := make([]*study.Session, 0, 10)
	for i := 1; i <= 5; i++ {
		sessions = append(sessions, mkSession(i, 10, 200, 0, "Math", ""))
	}

	snapshot := ComputeStudyPatterns(PatternInput{
		Sessions:          sessions,
		WeeklyGoalMinutes: 600,
		Now:               patternsNow,
	})

	assert.Equal(t, 100, snapshot.ConsistencyScore)
}

func TestComputeStudyPatterns_SubjectPerformance(t *testing.T) {
	sessions := []*study.Session{
		mkSession(1, 10, 60, 9, "Math", ""),
		mkSession(2, 11, 60, 9, "Math", ""),
		mkSession(1, 12, 60, 4, "Chem", ""),
		mkSession(1, 13, 60, 0, "Bio", ""), // unrated -> default 5
	}

	snapshot := ComputeStudyPatterns(PatternInput{Sessions: sessions, Now: patternsNow})

	require.Len(t, snapshot.BestSubjects, 3)
	assert.Equal(t, "Math", snapshot.BestSubjects[0].Subject)
	assert.InDelta(t, 9.0, snapshot.BestSubjects[0].AvgEffectiveness, 0.001)

	require.NotEmpty(t, snapshot.StrugglingSubjects)
	assert.Equal(t, "Chem", snapshot.StrugglingSubjects[0].Subject)
}

func TestComputeStudyPatterns_OptimalSessionLength(t *testing.T) {
	shortWins := []*study.Session{
		mkSession(1, 10, 20, 9, "Math", ""),
		mkSession(2, 10, 45, 5, "Math", ""),
	}
	snapshot := ComputeStudyPatterns(PatternInput{Sessions: shortWins, Now: patternsNow})
	assert.Equal(t, 25, snapshot.OptimalSessionMinutes)

	longWins := []*study.Session{
		mkSession(1, 10, 90, 9, "Math", ""),
		mkSession(2, 10, 45, 5, "Math", ""),
	}
	snapshot = ComputeStudyPatterns(PatternInput{Sessions: longWins, Now: patternsNow})
	assert.Equal(t, 90, snapshot.OptimalSessionMinutes)

	// No rated sessions -> default 45.
	unrated := []*study.Session{mkSession(1, 10, 20, 0, "Math", "")}
	snapshot = ComputeStudyPatterns(PatternInput{Sessions: unrated, Now: patternsNow})
	assert.Equal(t, 45, snapshot.OptimalSessionMinutes)
}

func TestComputeStudyPatterns_Streak(t *testing.T) {
	sessions := []*study.Session{
		mkSession(0, 9, 30, 0, "Math", ""),
		mkSession(1, 9, 30, 0, "Math", ""),
		mkSession(2, 9, 30, 0, "Math", ""),
		// Gap on day 3 breaks the chain.
		mkSession(4, 9, 30, 0, "Math", ""),
	}

	snapshot := ComputeStudyPatterns(PatternInput{Sessions: sessions, Now: patternsNow})
	assert.Equal(t, 3, snapshot.StreakDays)
}

func TestComputeStudyPatterns_StreakZeroWithoutToday(t *testing.T) {
	sessions := []*study.Session{
		mkSession(1, 9, 30, 0, "Math", ""),
		mkSession(2, 9, 30, 0, "Math", ""),
	}

	snapshot := ComputeStudyPatterns(PatternInput{Sessions: sessions, Now: patternsNow})
	assert.Equal(t, 0, snapshot.StreakDays)
}

func TestComputeStudyPatterns_StuckTopics(t *testing.T) {
	rows := []*mastery.TopicMastery{
		{Topic: "integration", Score: 40, SessionCount: 4},
		{Topic: "derivatives", Score: 80, SessionCount: 5},
		{Topic: "limits", Score: 55, SessionCount: 3},
		{Topic: "series", Score: 30, SessionCount: 1}, // too few sessions
	}

	snapshot := ComputeStudyPatterns(PatternInput{Mastery: rows, Now: patternsNow})
	assert.Equal(t, []string{"integration", "limits"}, snapshot.StuckTopics)
}

func TestComputeStudyPatterns_EmptyInput(t *testing.T) {
	snapshot := ComputeStudyPatterns(PatternInput{Now: patternsNow})

	assert.Empty(t, snapshot.PeakWindows)
	assert.Equal(t, 0, snapshot.ConsistencyScore)
	assert.Equal(t, 45, snapshot.OptimalSessionMinutes)
	assert.Equal(t, 0, snapshot.StreakDays)
	assert.Equal(t, 0, snapshot.TotalSessions)
	// All expected hours are empty, but 0 < 0*0.5 is false -> no drift windows.
	assert.Empty(t, snapshot.DriftWindows)
}
