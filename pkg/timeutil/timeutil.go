// Package timeutil provides timezone-aware time helpers for Cortex Study Hub.
// Users live in arbitrary timezones, so every scheduling decision (7:00 brief,
// nudge slots, streak counting) resolves through the user's own location.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// LoadLocation resolves an IANA timezone name, falling back to UTC when the
// name is empty or unknown. Jobs must never skip a user over a bad timezone
// string.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalTime converts a time into the named timezone (UTC fallback).
func LocalTime(t time.Time, tz string) time.Time {
	return t.In(LoadLocation(tz))
}

// LocalHour returns the hour of day (0-23) in the named timezone.
func LocalHour(t time.Time, tz string) int {
	return LocalTime(t, tz).Hour()
}

// LocalDay returns the start of the calendar day containing t in the named
// timezone. This is the identity used for nudge and brief deduplication.
func LocalDay(t time.Time, tz string) time.Time {
	return StartOfDay(t, LoadLocation(tz))
}

// StartOfDay returns the start of the day (00:00:00) in the given location.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the given location.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, loc)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in the given location.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract), loc)
}

// EndOfWeek returns the end of the week (Sunday 23:59:59) in the given location.
func EndOfWeek(t time.Time, loc *time.Location) time.Time {
	start := StartOfWeek(t, loc)
	return EndOfDay(start.AddDate(0, 0, 6), loc)
}

// IsSameDay checks if two times fall on the same calendar day in the given location.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	l1, l2 := t1.In(loc), t2.In(loc)
	return l1.Year() == l2.Year() && l1.YearDay() == l2.YearDay()
}

// IsConsecutiveDay checks if t2 is the day after t1 in the given location.
func IsConsecutiveDay(t1, t2 time.Time, loc *time.Location) bool {
	nextDay := t1.In(loc).AddDate(0, 0, 1)
	return IsSameDay(nextDay, t2, loc)
}

// DaysSince calculates whole calendar days from t to now in the given location.
func DaysSince(t, now time.Time, loc *time.Location) int {
	return DaysBetween(t, now, loc)
}

// DaysBetween calculates the number of calendar days between two times.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	d1 := StartOfDay(t1, loc)
	d2 := StartOfDay(t2, loc)
	days := int(d2.Sub(d1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// DaysUntil returns whole days remaining until the deadline, rounding any
// partial day up. A deadline in the past returns 0.
func DaysUntil(deadline, now time.Time) int {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// Delivery timing constants.
const (
	// BriefHour is the local hour for the daily intel brief.
	BriefHour = 7

	// MorningNudgeHour is the local hour for the morning momentum nudge.
	MorningNudgeHour = 10

	// AfternoonNudgeHour is the local hour for the afternoon drift nudge.
	AfternoonNudgeHour = 14

	// EveningNudgeHour is the local hour for the evening closeout nudge.
	EveningNudgeHour = 18

	// QuietHoursStart is when notifications stop (22:00 local).
	QuietHoursStart = 22

	// QuietHoursEnd is when notifications resume (7:00 local).
	QuietHoursEnd = 7
)

// IsSafeNotificationTime checks if the local hour is outside quiet hours.
func IsSafeNotificationTime(t time.Time, tz string) bool {
	hour := LocalHour(t, tz)
	return hour >= QuietHoursEnd && hour < QuietHoursStart
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatHumanDate is a human-readable format.
	FormatHumanDate = "2 January 2006"
)

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in the named timezone.
func FormatDateStr(t time.Time, tz string) string {
	return LocalTime(t, tz).Format(FormatDate)
}

// FormatHourWindow renders an hour of day as "H:00".
func FormatHourWindow(hour int) string {
	return fmt.Sprintf("%d:00", hour)
}

// FormatRelativeDays renders a day count the way coaching copy expects it.
func FormatRelativeDays(days int) string {
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}
