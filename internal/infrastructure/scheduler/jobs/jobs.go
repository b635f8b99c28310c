// Package jobs contains implementations of scheduled jobs for Cortex Study Hub.
//
// Every job here runs on the single-worker scheduler, so no two jobs execute
// concurrently. Jobs that fan out over users still use a bounded worker pool
// internally for I/O, but anything touching the text-generation API goes
// through the shared rate limiter and circuit breaker in the client.
//
// Timing is per-user local time: a job fires every hour (or more often) and
// each run selects only the users whose local clock matches the delivery
// window. Redis-backed claim keys keep a restart or an overlapping tick from
// double-sending.
package jobs

import (
	"context"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/persistence/redis"
)

// IntelStateBuilder assembles a user's intel state. Implemented by
// query.BuildIntelStateHandler through a thin adapter in cmd/.
type IntelStateBuilder interface {
	// BuildState assembles the state, skipping the cache when bypassCache is set.
	BuildState(ctx context.Context, userID string, bypassCache bool, now time.Time) (*intel.UserIntelState, error)
}

// TextGenerator produces free-form text from a prompt.
// Implemented by the textgen client.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// PushSender delivers a push notification to a user's device.
type PushSender interface {
	Send(ctx context.Context, userID, title, body string) error
}

// DeliveryTracker claims per-user, per-day delivery slots so that a nudge or
// brief is sent at most once. Implemented by redis.NudgeTracker.
type DeliveryTracker interface {
	// ClaimSlot atomically claims a nudge slot for the user's local day.
	// Returns false when the slot was already claimed.
	ClaimSlot(ctx context.Context, userID string, slot redis.NudgeSlot, localDay time.Time) (bool, error)

	// ClaimBrief atomically claims the daily brief for the user's local day.
	ClaimBrief(ctx context.Context, userID string, localDay time.Time) (bool, error)
}

// CoachingRegenerator rebuilds a user's active coaching plan set.
// Implemented by command.GenerateCoachingHandler through an adapter in cmd/.
type CoachingRegenerator interface {
	Regenerate(ctx context.Context, userID string, now time.Time) error
}
