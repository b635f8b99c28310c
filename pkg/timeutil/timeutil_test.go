package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 12:00 UTC is 7:00 in New York (EST, UTC-5).
var utcNoon = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func TestLoadLocation_Fallbacks(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
	assert.Equal(t, "America/New_York", LoadLocation("America/New_York").String())
}

func TestLocalHour(t *testing.T) {
	assert.Equal(t, 12, LocalHour(utcNoon, ""))
	assert.Equal(t, 7, LocalHour(utcNoon, "America/New_York"))
	assert.Equal(t, 18, LocalHour(utcNoon, "Asia/Almaty"))
}

func TestLocalDay(t *testing.T) {
	// 02:00 UTC on the 15th is still the evening of the 14th in New York.
	earlyUTC := time.Date(2026, 1, 15, 2, 0, 0, 0, time.UTC)
	day := LocalDay(earlyUTC, "America/New_York")

	assert.Equal(t, 14, day.Day())
	assert.Equal(t, 0, day.Hour())
}

func TestStartAndEndOfDay(t *testing.T) {
	start := StartOfDay(utcNoon, time.UTC)
	end := EndOfDay(utcNoon, time.UTC)

	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 15, end.Day())
}

func TestStartOfWeek(t *testing.T) {
	// 2026-01-15 is a Thursday; the week starts Monday the 12th.
	start := StartOfWeek(utcNoon, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), start)

	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday, time.UTC))
}

func TestIsSameDay(t *testing.T) {
	a := time.Date(2026, 1, 15, 1, 0, 0, 0, time.UTC)
	b := time.Date(2026, 1, 15, 23, 0, 0, 0, time.UTC)

	assert.True(t, IsSameDay(a, b, time.UTC))

	// The same instants straddle midnight in New York.
	loc := LoadLocation("America/New_York")
	assert.False(t, IsSameDay(a, b, loc))
}

func TestIsConsecutiveDay(t *testing.T) {
	day1 := time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 16, 8, 0, 0, 0, time.UTC)

	assert.True(t, IsConsecutiveDay(day1, day2, time.UTC))
	assert.False(t, IsConsecutiveDay(day1, day1, time.UTC))
	assert.False(t, IsConsecutiveDay(day1, day2.AddDate(0, 0, 1), time.UTC))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 1, 10, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 1, 15, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 5, DaysBetween(a, b, time.UTC))
	assert.Equal(t, 5, DaysBetween(b, a, time.UTC))
	assert.Equal(t, 0, DaysBetween(a, a, time.UTC))
}

func TestDaysUntil(t *testing.T) {
	deadline := utcNoon.AddDate(0, 0, 3)

	assert.Equal(t, 3, DaysUntil(deadline, utcNoon))
	// A partial day rounds up.
	assert.Equal(t, 1, DaysUntil(deadline, deadline.Add(-6*time.Hour)))
	assert.Equal(t, 0, DaysUntil(deadline, deadline.Add(time.Hour)))
}

func TestIsSafeNotificationTime(t *testing.T) {
	tests := []struct {
		hour int
		safe bool
	}{
		{6, false},
		{7, true},
		{12, true},
		{21, true},
		{22, false},
		{23, false},
		{2, false},
	}

	for _, tt := range tests {
		at := time.Date(2026, 1, 15, tt.hour, 30, 0, 0, time.UTC)
		assert.Equal(t, tt.safe, IsSafeNotificationTime(at, ""), "hour %d", tt.hour)
	}
}

func TestFormatRelativeDays(t *testing.T) {
	assert.Equal(t, "today", FormatRelativeDays(0))
	assert.Equal(t, "tomorrow", FormatRelativeDays(1))
	assert.Equal(t, "in 3 days", FormatRelativeDays(3))
}

func TestFormatHourWindow(t *testing.T) {
	assert.Equal(t, "19:00", FormatHourWindow(19))
}

func TestFormatDateStr(t *testing.T) {
	assert.Equal(t, "2026-01-15", FormatDateStr(utcNoon, ""))
	assert.Equal(t, "2026-01-14", FormatDateStr(time.Date(2026, 1, 15, 2, 0, 0, 0, time.UTC), "America/New_York"))
}
