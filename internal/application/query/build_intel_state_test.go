package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/study"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
)

func intelSession(startedAt time.Time, minutes int) *study.Session {
	return &study.Session{
		ID:        "s-" + startedAt.Format(time.RFC3339),
		UserID:    "u1",
		Subject:   shared.Subject("Math"),
		StartedAt: startedAt,
		Minutes:   shared.Minutes(minutes),
	}
}

func TestTodayMinutes_LocalDayBoundary(t *testing.T) {
	u := &user.User{ID: "u1", Timezone: "America/New_York"} // UTC-5 in winter
	// 15:00 UTC = 10:00 in New York.
	now := time.Date(2026, 1, 15, 15, 0, 0, 0, time.UTC)

	sessions := []*study.Session{
		// 09:00 New York today.
		intelSession(time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC), 45),
		// 03:00 UTC on the 15th is still the evening of the 14th locally.
		intelSession(time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC), 60),
		// 23:00 New York yesterday.
		intelSession(time.Date(2026, 1, 15, 4, 0, 0, 0, time.UTC), 30),
	}

	assert.Equal(t, 45, todayMinutes(sessions, u, now))
}

func TestTodayMinutes_Empty(t *testing.T) {
	u := &user.User{ID: "u1", Timezone: "UTC"}
	now := time.Date(2026, 1, 15, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, todayMinutes(nil, u, now))
}

func TestRecentSessions_Limit(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	sessions := []*study.Session{
		intelSession(base, 30),
		intelSession(base.Add(-time.Hour), 30),
		intelSession(base.Add(-2*time.Hour), 30),
	}

	assert.Len(t, recentSessions(sessions, 2), 2)
	assert.Equal(t, sessions, recentSessions(sessions, 10))
}
