package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserID(t *testing.T) {
	id, err := NewUserID("  6F9619FF-8B86-D011-B42D-00CF4FC964FF  ")
	require.NoError(t, err)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00cf4fc964ff", id.String())

	_, err = NewUserID("not-a-uuid")
	assert.Error(t, err)
}

func TestSubject_Matches(t *testing.T) {
	assert.True(t, Subject("Calculus").Matches(Subject("calculus")))
	assert.True(t, Subject("Organic Chemistry").Matches(Subject("chemistry")))
	assert.True(t, Subject("chemistry").Matches(Subject("Organic Chemistry")))
	assert.False(t, Subject("Calculus").Matches(Subject("History")))
	assert.False(t, Subject("").Matches(Subject("Calculus")))
}

func TestNewSubject(t *testing.T) {
	s, err := NewSubject("  Linear Algebra ")
	require.NoError(t, err)
	assert.Equal(t, Subject("Linear Algebra"), s)

	_, err = NewSubject("   ")
	assert.ErrorIs(t, err, ErrEmptySubject)
}

func TestTopic(t *testing.T) {
	assert.True(t, Topic("").IsEmpty())
	assert.True(t, Topic("   ").IsEmpty())
	assert.False(t, Topic("integration").IsEmpty())
	assert.Equal(t, "integration by parts", Topic(" Integration By Parts ").Normalized())
}

func TestNewMinutes(t *testing.T) {
	m, err := NewMinutes(90)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, m.Duration())

	_, err = NewMinutes(0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = NewMinutes(1441)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestNewEffectiveness(t *testing.T) {
	e, err := NewEffectiveness(0)
	require.NoError(t, err)
	assert.False(t, e.IsRated())

	e, err = NewEffectiveness(10)
	require.NoError(t, err)
	assert.True(t, e.IsRated())

	_, err = NewEffectiveness(11)
	assert.ErrorIs(t, err, ErrInvalidEffectiveness)

	_, err = NewEffectiveness(-1)
	assert.ErrorIs(t, err, ErrInvalidEffectiveness)
}

func TestScore_Add(t *testing.T) {
	assert.Equal(t, Score(50), Score(45).Add(5))
	assert.Equal(t, MaxScore, Score(98).Add(10))
	assert.Equal(t, MinScore, Score(3).Add(-10))
}

func TestScore_Thresholds(t *testing.T) {
	assert.True(t, Score(49).IsWeak())
	assert.False(t, Score(50).IsWeak())
	assert.True(t, Score(76).IsStrong())
	assert.False(t, Score(75).IsStrong())
}

func TestAverageScore(t *testing.T) {
	assert.Equal(t, Score(0), AverageScore(nil))
	assert.Equal(t, Score(50), AverageScore([]Score{40, 60}))
	// Rounded to nearest.
	assert.Equal(t, Score(67), AverageScore([]Score{60, 70, 70}))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, MaxScore, ClampScore(250))
	assert.Equal(t, MinScore, ClampScore(-5))
	assert.Equal(t, Score(42), ClampScore(42))
}

func TestReviewQuality(t *testing.T) {
	q, err := NewReviewQuality(3)
	require.NoError(t, err)
	assert.True(t, q.IsPassing())

	q, err = NewReviewQuality(2)
	require.NoError(t, err)
	assert.False(t, q.IsPassing())

	_, err = NewReviewQuality(0)
	assert.ErrorIs(t, err, ErrInvalidQuality)

	_, err = NewReviewQuality(6)
	assert.ErrorIs(t, err, ErrInvalidQuality)
}

func TestTimeRange(t *testing.T) {
	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)

	tr, err := NewTimeRange(from, to)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, tr.Duration())
	assert.True(t, tr.Contains(from.Add(time.Hour)))
	assert.True(t, tr.Contains(from))
	assert.False(t, tr.Contains(to.Add(time.Second)))

	_, err = NewTimeRange(to, from)
	assert.Error(t, err)
}

func TestDayRange(t *testing.T) {
	tr := DayRange(time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC))

	assert.True(t, tr.Contains(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, tr.Contains(time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)))
	assert.False(t, tr.Contains(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))
}

func TestPagination(t *testing.T) {
	p := NewPagination(0, 0)
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, DefaultPageSize, p.Limit())

	p = NewPagination(3, 50)
	assert.Equal(t, 100, p.Offset())
	assert.Equal(t, 50, p.Limit())

	p = NewPagination(1, 500)
	assert.Equal(t, MaxPageSize, p.Limit())
}
