package study

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

var sessionStart = time.Date(2026, 3, 10, 19, 30, 0, 0, time.UTC)

func newSession(t *testing.T, mutate func(*NewSessionParams)) *Session {
	t.Helper()
	params := NewSessionParams{
		ID:            "s1",
		UserID:        "u1",
		Subject:       "Calculus",
		Topic:         "integration",
		StartedAt:     sessionStart,
		Minutes:       45,
		Effectiveness: 7,
		Note:          "went well",
	}
	if mutate != nil {
		mutate(&params)
	}
	s, err := NewSession(params)
	require.NoError(t, err)
	return s
}

func TestNewSession(t *testing.T) {
	s := newSession(t, nil)

	assert.Equal(t, shared.Subject("Calculus"), s.Subject)
	assert.Equal(t, shared.Minutes(45), s.Minutes)
	assert.Equal(t, "went well", s.Note)
	assert.Equal(t, sessionStart, s.StartedAt)
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(NewSessionParams{UserID: "u1", Subject: "Calculus", Minutes: 30})
	assert.Error(t, err)

	_, err = NewSession(NewSessionParams{ID: "s1", UserID: "u1", Subject: "  ", Minutes: 30})
	assert.ErrorIs(t, err, shared.ErrEmptySubject)

	_, err = NewSession(NewSessionParams{ID: "s1", UserID: "u1", Subject: "Calculus", Minutes: 0})
	assert.ErrorIs(t, err, shared.ErrInvalidDuration)

	_, err = NewSession(NewSessionParams{ID: "s1", UserID: "u1", Subject: "Calculus", Minutes: 2000})
	assert.ErrorIs(t, err, shared.ErrInvalidDuration)

	_, err = NewSession(NewSessionParams{ID: "s1", UserID: "u1", Subject: "Calculus", Minutes: 30, Effectiveness: 11})
	assert.ErrorIs(t, err, shared.ErrInvalidEffectiveness)

	_, err = NewSession(NewSessionParams{ID: "s1", UserID: "u1", Subject: "Calculus", Minutes: 30, Note: strings.Repeat("x", 4001)})
	assert.ErrorIs(t, err, ErrNoteOverflow)
}

func TestNewSession_DefaultsStartedAt(t *testing.T) {
	s := newSession(t, func(p *NewSessionParams) { p.StartedAt = time.Time{} })
	assert.False(t, s.StartedAt.IsZero())
}

func TestSession_EndedAt(t *testing.T) {
	s := newSession(t, nil)
	assert.Equal(t, sessionStart.Add(45*time.Minute), s.EndedAt())
}

func TestSession_HourBucket(t *testing.T) {
	s := newSession(t, nil)
	assert.Equal(t, 19, s.HourBucket())
}

func TestSession_IsRated(t *testing.T) {
	rated := newSession(t, nil)
	assert.True(t, rated.IsRated())

	unrated := newSession(t, func(p *NewSessionParams) { p.Effectiveness = 0 })
	assert.False(t, unrated.IsRated())
}

func TestSession_IsOnDay(t *testing.T) {
	s := newSession(t, nil)

	assert.True(t, s.IsOnDay(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.False(t, s.IsOnDay(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))
}

func TestSession_TopicKey(t *testing.T) {
	s := newSession(t, func(p *NewSessionParams) { p.Topic = "Integration By Parts" })
	assert.Equal(t, "integration by parts", s.TopicKey())

	subjectOnly := newSession(t, func(p *NewSessionParams) { p.Topic = "" })
	assert.Equal(t, "calculus", subjectOnly.TopicKey())
}

func TestNewMemoryText(t *testing.T) {
	m, err := NewMemoryText("m1", "u1", "  kept losing focus after 40 minutes  ", "s1")
	require.NoError(t, err)

	assert.Equal(t, "kept losing focus after 40 minutes", m.Text)
	assert.Equal(t, "s1", m.SourceSessionID)
}

func TestNewMemoryText_Validation(t *testing.T) {
	_, err := NewMemoryText("", "u1", "text", "")
	assert.Error(t, err)

	_, err = NewMemoryText("m1", "u1", "   ", "")
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = NewMemoryText("m1", "u1", strings.Repeat("x", 8001), "")
	assert.Error(t, err)
}
