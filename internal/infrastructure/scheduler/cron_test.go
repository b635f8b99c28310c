package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression_Invalid(t *testing.T) {
	_, err := ParseCronExpression("* * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("61 * * * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("* 24 * * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("*/x * * * *")
	assert.Error(t, err)
}

func TestCronNext_EveryFiveMinutes(t *testing.T) {
	ce, err := ParseCronExpression("*/5 * * * *")
	require.NoError(t, err)

	after := time.Date(2026, 3, 10, 12, 3, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 5, 0, 0, time.UTC), ce.Next(after))

	// Exactly on a match still advances to the next slot.
	onMatch := time.Date(2026, 3, 10, 12, 5, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 10, 0, 0, time.UTC), ce.Next(onMatch))
}

func TestCronNext_DailyAtSeven(t *testing.T) {
	ce := MustParseCronExpression("0 7 * * *")

	before := time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC), ce.Next(before))

	afterSeven := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), ce.Next(afterSeven))
}

func TestCronNext_WeeklySundayMidnight(t *testing.T) {
	ce := MustParseCronExpression("0 0 * * 0")

	// 2026-03-10 is a Tuesday; next Sunday is the 15th.
	tuesday := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), ce.Next(tuesday))
}

func TestCronNext_ListAndRange(t *testing.T) {
	ce := MustParseCronExpression("0 9,18 * * 1-5")

	// Friday evening rolls over to Monday morning.
	friday := time.Date(2026, 3, 13, 19, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), ce.Next(friday))
}

func TestCronString(t *testing.T) {
	ce := MustParseCronExpression("0 0 * * 0")
	assert.Equal(t, "0 0 * * 0", ce.String())
}

func TestMustParseCronExpression_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustParseCronExpression("not a cron")
	})
}

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(time.Hour)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(time.Hour), s.Next(at))
	assert.NotEmpty(t, s.String())
}

func TestIntervalSchedule_FloorsBadInterval(t *testing.T) {
	s := NewIntervalSchedule(0)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(time.Minute), s.Next(at))
}
