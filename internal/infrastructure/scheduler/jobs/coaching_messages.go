package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// COACHING MESSAGES JOB
// ══════════════════════════════════════════════════════════════════════════════

// CoachingMessagesJob regenerates coaching plan sets for every user with
// coaching enabled. Runs hourly.
//
// Regeneration is deterministic (plans derive from the intel state, no
// generation call) so the hourly cadence is cheap. Users who have never
// logged a session get skipped by the command itself.
type CoachingMessagesJob struct {
	// Dependencies
	userRepo    user.Repository
	regenerator CoachingRegenerator
	logger      *slog.Logger

	// Configuration
	config CoachingMessagesConfig

	// State
	lastRunStats atomic.Value // *CoachingMessagesStats
}

// CoachingMessagesConfig contains configuration for the coaching job.
type CoachingMessagesConfig struct {
	// Concurrency bounds parallel regeneration.
	Concurrency int

	// Timeout is the maximum duration for one run.
	Timeout time.Duration

	// StaleAfter skips users whose last session is older than this.
	// Zero disables the filter.
	StaleAfter time.Duration
}

// DefaultCoachingMessagesConfig returns sensible defaults.
func DefaultCoachingMessagesConfig() CoachingMessagesConfig {
	return CoachingMessagesConfig{
		Concurrency: 5,
		Timeout:     15 * time.Minute,
		StaleAfter:  30 * 24 * time.Hour,
	}
}

// CoachingMessagesStats contains statistics from a single run.
type CoachingMessagesStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	TotalUsers  int
	Regenerated int
	Skipped     int
	Failed      int
}

// NewCoachingMessagesJob creates a new coaching messages job.
func NewCoachingMessagesJob(
	userRepo user.Repository,
	regenerator CoachingRegenerator,
	logger *slog.Logger,
	config CoachingMessagesConfig,
) *CoachingMessagesJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 5
	}

	return &CoachingMessagesJob{
		userRepo:    userRepo,
		regenerator: regenerator,
		logger:      logger,
		config:      config,
	}
}

// Name returns the job name.
func (j *CoachingMessagesJob) Name() string {
	return "coaching_messages"
}

// Description returns a human-readable description.
func (j *CoachingMessagesJob) Description() string {
	return "Regenerates active coaching plan sets for coaching-enabled users"
}

// Run executes the coaching messages job.
func (j *CoachingMessagesJob) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()
	stats := &CoachingMessagesStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	users, err := j.userRepo.ListCoachingEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list coaching-enabled users: %w", err)
	}
	stats.TotalUsers = len(users)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)

	for _, u := range users {
		if j.config.StaleAfter > 0 && !u.LastSessionAt.IsZero() &&
			startedAt.Sub(u.LastSessionAt) > j.config.StaleAfter {
			mu.Lock()
			stats.Skipped++
			mu.Unlock()
			continue
		}

		u := u
		g.Go(func() error {
			err := j.regenerator.Regenerate(gctx, u.ID, startedAt)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				j.logger.Error("failed to regenerate coaching", "user_id", u.ID, "error", err)
			} else {
				stats.Regenerated++
			}
			return nil
		})
	}

	_ = g.Wait()

	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("coaching_messages job completed",
		"duration", stats.Duration.String(),
		"regenerated", stats.Regenerated,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return nil
}

// LastRunStats returns statistics from the last run.
func (j *CoachingMessagesJob) LastRunStats() *CoachingMessagesStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*CoachingMessagesStats)
}
