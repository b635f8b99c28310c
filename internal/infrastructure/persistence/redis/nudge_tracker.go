// Package redis implements Redis caching and delivery deduplication.
package redis

import (
	"context"
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// NUDGE TRACKER ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUserIDEmpty is returned when the user ID is empty.
	ErrUserIDEmpty = errors.New("nudge_tracker: user ID cannot be empty")

	// ErrInvalidNudgeSlot is returned when the nudge slot is invalid.
	ErrInvalidNudgeSlot = errors.New("nudge_tracker: invalid nudge slot")
)

// ══════════════════════════════════════════════════════════════════════════════
// NUDGE SLOT CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

// NudgeSlot represents one of the daily nudge windows in the user's local day.
type NudgeSlot string

const (
	// SlotMorning is the morning momentum window (around 10:00 local).
	SlotMorning NudgeSlot = "morning"

	// SlotAfternoon is the afternoon drift check (around 14:00 local).
	SlotAfternoon NudgeSlot = "afternoon"

	// SlotEvening is the evening closeout (around 18:00 local).
	SlotEvening NudgeSlot = "evening"
)

// IsValid checks if the nudge slot is valid.
func (s NudgeSlot) IsValid() bool {
	switch s {
	case SlotMorning, SlotAfternoon, SlotEvening:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// NUDGE TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// NudgeTracker deduplicates scheduled deliveries. The hourly jobs fire in
// server time while slots live in each user's local day, so a slot can match
// more than one tick; the tracker guarantees at most one delivery per
// (user, local day, slot).
type NudgeTracker struct {
	cache *Cache
}

// NewNudgeTracker creates a new NudgeTracker.
func NewNudgeTracker(cache *Cache) *NudgeTracker {
	return &NudgeTracker{cache: cache}
}

// ClaimSlot atomically claims a nudge slot for the user's local day.
// Returns true when this caller owns the delivery, false when it was
// already claimed.
func (t *NudgeTracker) ClaimSlot(ctx context.Context, userID string, slot NudgeSlot, localDay time.Time) (bool, error) {
	if userID == "" {
		return false, ErrUserIDEmpty
	}
	if !slot.IsValid() {
		return false, ErrInvalidNudgeSlot
	}

	key := NudgeKey(userID, string(slot), localDay.Format("2006-01-02"))
	return t.cache.SetNX(ctx, key, time.Now().UTC(), TTLNudgeDedup)
}

// WasSent checks whether the slot was already delivered today.
func (t *NudgeTracker) WasSent(ctx context.Context, userID string, slot NudgeSlot, localDay time.Time) (bool, error) {
	if userID == "" {
		return false, ErrUserIDEmpty
	}
	if !slot.IsValid() {
		return false, ErrInvalidNudgeSlot
	}

	key := NudgeKey(userID, string(slot), localDay.Format("2006-01-02"))
	return t.cache.Exists(ctx, key)
}

// ClaimBrief atomically claims the morning brief for the user's local day.
func (t *NudgeTracker) ClaimBrief(ctx context.Context, userID string, localDay time.Time) (bool, error) {
	if userID == "" {
		return false, ErrUserIDEmpty
	}

	key := BriefKey(userID, localDay.Format("2006-01-02"))
	return t.cache.SetNX(ctx, key, time.Now().UTC(), TTLNudgeDedup)
}
