package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/study"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY CONSOLIDATION JOB
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyConsolidationJob runs every Sunday at midnight ("0 0 * * 0").
//
// Two passes: purge memory notes older than the retention window, then
// rebuild every user's intel state from scratch so the week's sessions are
// folded into fresh patterns, threats and semantic threads. The rebuild
// bypasses and re-primes the cache, which makes Monday morning's briefs
// cheap. Finishes by publishing a consolidation event.
type WeeklyConsolidationJob struct {
	// Dependencies
	userRepo     user.Repository
	memoryRepo   study.MemoryRepository
	intelBuilder IntelStateBuilder
	publisher    shared.EventPublisher
	logger       *slog.Logger

	// Configuration
	config WeeklyConsolidationConfig

	// State
	lastRunStats atomic.Value // *WeeklyConsolidationStats
}

// WeeklyConsolidationConfig contains configuration for the consolidation job.
type WeeklyConsolidationConfig struct {
	// MemoryRetention is how long free-form memory notes are kept.
	MemoryRetention time.Duration

	// PageSize is the user paging window for the rebuild pass.
	PageSize int

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultWeeklyConsolidationConfig returns sensible defaults.
func DefaultWeeklyConsolidationConfig() WeeklyConsolidationConfig {
	return WeeklyConsolidationConfig{
		MemoryRetention: 90 * 24 * time.Hour,
		PageSize:        100,
		Timeout:         30 * time.Minute,
	}
}

// WeeklyConsolidationStats contains statistics from a single run.
type WeeklyConsolidationStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	UsersProcessed int
	UsersFailed    int
	MemoriesPurged int
}

// NewWeeklyConsolidationJob creates a new weekly consolidation job.
func NewWeeklyConsolidationJob(
	userRepo user.Repository,
	memoryRepo study.MemoryRepository,
	intelBuilder IntelStateBuilder,
	publisher shared.EventPublisher,
	logger *slog.Logger,
	config WeeklyConsolidationConfig,
) *WeeklyConsolidationJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MemoryRetention <= 0 {
		config.MemoryRetention = 90 * 24 * time.Hour
	}
	if config.PageSize <= 0 {
		config.PageSize = 100
	}

	return &WeeklyConsolidationJob{
		userRepo:     userRepo,
		memoryRepo:   memoryRepo,
		intelBuilder: intelBuilder,
		publisher:    publisher,
		logger:       logger,
		config:       config,
	}
}

// Name returns the job name.
func (j *WeeklyConsolidationJob) Name() string {
	return "weekly_consolidation"
}

// Description returns a human-readable description.
func (j *WeeklyConsolidationJob) Description() string {
	return "Purges stale memory notes and rebuilds every user's analytics weekly"
}

// Run executes the weekly consolidation job.
func (j *WeeklyConsolidationJob) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()
	stats := &WeeklyConsolidationStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	j.logger.Info("starting weekly_consolidation job")

	cutoff := startedAt.Add(-j.config.MemoryRetention)
	purged, err := j.memoryRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge old memories: %w", err)
	}
	stats.MemoriesPurged = purged

	if err := j.rebuildAllUsers(ctx, startedAt, stats); err != nil {
		return err
	}

	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	_ = j.publisher.Publish(shared.NewConsolidationDoneEvent(stats.UsersProcessed, stats.MemoriesPurged))

	j.logger.Info("weekly_consolidation job completed",
		"duration", stats.Duration.String(),
		"users", stats.UsersProcessed,
		"failed", stats.UsersFailed,
		"memories_purged", stats.MemoriesPurged,
	)
	return nil
}

// rebuildAllUsers pages through all users and rebuilds each intel state.
func (j *WeeklyConsolidationJob) rebuildAllUsers(ctx context.Context, now time.Time, stats *WeeklyConsolidationStats) error {
	opts := user.ListOptions{Limit: j.config.PageSize}

	for {
		page, err := j.userRepo.ListAll(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to list users at offset %d: %w", opts.Offset, err)
		}

		for _, u := range page {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if _, err := j.intelBuilder.BuildState(ctx, u.ID, true, now); err != nil {
				stats.UsersFailed++
				j.logger.Error("failed to rebuild intel state", "user_id", u.ID, "error", err)
				continue
			}
			stats.UsersProcessed++
		}

		if len(page) < opts.Limit {
			return nil
		}
		opts.Offset += len(page)
	}
}

// LastRunStats returns statistics from the last run.
func (j *WeeklyConsolidationJob) LastRunStats() *WeeklyConsolidationStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*WeeklyConsolidationStats)
}
