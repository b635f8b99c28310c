package coaching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlan() Plan {
	return Plan{
		UserID:   "u1",
		Type:     TypeMomentum,
		Priority: PriorityHigh,
		Title:    "You're in your peak window",
		Body:     "30 focused minutes now",
	}
}

func TestNewMessage(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	msg, err := NewMessage("m1", validPlan(), now)

	require.NoError(t, err)
	assert.Equal(t, StatusActive, msg.Status)
	assert.Equal(t, now.Add(2*time.Hour), msg.ExpiresAt)
	assert.True(t, msg.IsActive(now))
}

func TestNewMessage_Validation(t *testing.T) {
	now := time.Now().UTC()

	_, err := NewMessage("", validPlan(), now)
	assert.Error(t, err)

	noUser := validPlan()
	noUser.UserID = ""
	_, err = NewMessage("m1", noUser, now)
	assert.Error(t, err)

	badType := validPlan()
	badType.Type = "spam"
	_, err = NewMessage("m1", badType, now)
	assert.ErrorIs(t, err, ErrInvalidMessage)

	noTitle := validPlan()
	noTitle.Title = "  "
	_, err = NewMessage("m1", noTitle, now)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestMessageType_TTL(t *testing.T) {
	assert.Equal(t, 2*time.Hour, TypeMomentum.TTL())
	assert.Equal(t, 24*time.Hour, TypeExamPrep.TTL())
	assert.Equal(t, 12*time.Hour, TypeDriftRecovery.TTL())
	assert.Equal(t, 7*24*time.Hour, TypeConsistency.TTL())
	assert.Equal(t, 24*time.Hour, TypeNudge.TTL())
}

func TestMessage_DismissAndComplete(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	msg, err := NewMessage("m1", validPlan(), now)
	require.NoError(t, err)

	require.NoError(t, msg.Dismiss(now.Add(time.Minute)))
	assert.Equal(t, StatusDismissed, msg.Status)
	assert.ErrorIs(t, msg.Complete(now.Add(2*time.Minute)), ErrNotActive)

	msg, err = NewMessage("m2", validPlan(), now)
	require.NoError(t, err)

	require.NoError(t, msg.Complete(now.Add(time.Minute)))
	assert.Equal(t, StatusCompleted, msg.Status)
	assert.ErrorIs(t, msg.Dismiss(now.Add(2*time.Minute)), ErrNotActive)
}

func TestMessage_ExpiredTransitions(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	msg, err := NewMessage("m1", validPlan(), now)
	require.NoError(t, err)

	later := now.Add(3 * time.Hour)
	assert.True(t, msg.IsExpired(later))
	assert.False(t, msg.IsActive(later))
	assert.ErrorIs(t, msg.Dismiss(later), ErrMessageExpired)
	assert.ErrorIs(t, msg.Complete(later), ErrMessageExpired)
	assert.Equal(t, StatusActive, msg.Status)
}

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
}
