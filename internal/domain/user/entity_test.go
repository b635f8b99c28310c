package user

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, tz Timezone) *User {
	t.Helper()
	u, err := NewUser(NewUserParams{ID: "u1", DisplayName: "Dana", Timezone: tz})
	require.NoError(t, err)
	return u
}

func TestNewUser(t *testing.T) {
	u := newUser(t, "Asia/Almaty")

	assert.Equal(t, "Dana", u.DisplayName)
	assert.Equal(t, Timezone("Asia/Almaty"), u.Timezone)
	assert.Equal(t, DefaultSettings(), u.Settings)
	assert.True(t, u.Settings.CoachingEnabled)
}

func TestNewUser_DefaultsTimezone(t *testing.T) {
	u := newUser(t, "")
	assert.Equal(t, Timezone("UTC"), u.Timezone)
}

func TestNewUser_Validation(t *testing.T) {
	_, err := NewUser(NewUserParams{DisplayName: "Dana"})
	assert.Error(t, err)

	_, err = NewUser(NewUserParams{ID: "u1", DisplayName: "  "})
	assert.ErrorIs(t, err, ErrInvalidDisplayName)

	_, err = NewUser(NewUserParams{ID: "u1", DisplayName: strings.Repeat("x", 101)})
	assert.ErrorIs(t, err, ErrInvalidDisplayName)

	_, err = NewUser(NewUserParams{ID: "u1", DisplayName: "Dana", Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, ErrInvalidTimezone)
}

func TestTimezone_Location(t *testing.T) {
	assert.Equal(t, "Asia/Almaty", Timezone("Asia/Almaty").Location().String())
	assert.Equal(t, time.UTC, Timezone("bogus").Location())
}

func TestUpdateSettings(t *testing.T) {
	u := newUser(t, "UTC")

	err := u.UpdateSettings(Settings{WeeklyGoalMinutes: 300, NudgesEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, 300, u.Settings.WeeklyGoalMinutes)
	assert.False(t, u.Settings.CoachingEnabled)

	err = u.UpdateSettings(Settings{WeeklyGoalMinutes: -1})
	assert.ErrorIs(t, err, ErrInvalidWeeklyGoal)
}

func TestSettings_Defaults(t *testing.T) {
	var s Settings
	assert.Equal(t, DefaultWeeklyGoalMinutes, s.GoalOrDefault())
	assert.Equal(t, DefaultWeeklyTargetMinutes, s.TargetOrDefault())

	s = Settings{WeeklyGoalMinutes: 420, WeeklyTargetMinutes: 840}
	assert.Equal(t, 420, s.GoalOrDefault())
	assert.Equal(t, 840, s.TargetOrDefault())
}

func TestTouchSession(t *testing.T) {
	u := newUser(t, "UTC")
	first := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	u.TouchSession(first)
	assert.Equal(t, first, u.LastSessionAt)

	// An older session does not move the marker back.
	u.TouchSession(first.Add(-time.Hour))
	assert.Equal(t, first, u.LastSessionAt)

	later := first.Add(2 * time.Hour)
	u.TouchSession(later)
	assert.Equal(t, later, u.LastSessionAt)
}

func TestLocalHour(t *testing.T) {
	u := newUser(t, "Asia/Almaty") // UTC+5

	noonUTC := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 17, u.LocalHour(noonUTC))
}

func TestDaysSinceLastSession(t *testing.T) {
	u := newUser(t, "UTC")
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, -1, u.DaysSinceLastSession(now))

	u.LastSessionAt = now.AddDate(0, 0, -3)
	assert.Equal(t, 3, u.DaysSinceLastSession(now))
}

func TestUser_Clone(t *testing.T) {
	u := newUser(t, "UTC")
	clone := u.Clone()
	clone.DisplayName = "changed"

	assert.Equal(t, "Dana", u.DisplayName)

	var nilUser *User
	assert.Nil(t, nilUser.Clone())
}
