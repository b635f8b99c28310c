package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/coaching"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP EXPIRED JOB
// ══════════════════════════════════════════════════════════════════════════════

// CleanupExpiredJob deletes coaching messages past their TTL. Runs hourly.
//
// Momentum plans expire after two hours, so an hourly sweep keeps the active
// list honest without the read path having to filter on every query.
type CleanupExpiredJob struct {
	coachingRepo coaching.Repository
	logger       *slog.Logger
	config       CleanupExpiredConfig

	lastRunStats atomic.Value // *CleanupExpiredStats
}

// CleanupExpiredConfig contains configuration for the cleanup job.
type CleanupExpiredConfig struct {
	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultCleanupExpiredConfig returns sensible defaults.
func DefaultCleanupExpiredConfig() CleanupExpiredConfig {
	return CleanupExpiredConfig{
		Timeout: time.Minute,
	}
}

// CleanupExpiredStats contains statistics from a single run.
type CleanupExpiredStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Deleted     int
}

// NewCleanupExpiredJob creates a new cleanup job.
func NewCleanupExpiredJob(coachingRepo coaching.Repository, logger *slog.Logger, config CleanupExpiredConfig) *CleanupExpiredJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupExpiredJob{
		coachingRepo: coachingRepo,
		logger:       logger,
		config:       config,
	}
}

// Name returns the job name.
func (j *CleanupExpiredJob) Name() string {
	return "cleanup_expired"
}

// Description returns a human-readable description.
func (j *CleanupExpiredJob) Description() string {
	return "Deletes coaching messages past their TTL"
}

// Run executes the cleanup job.
func (j *CleanupExpiredJob) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()
	stats := &CleanupExpiredStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	deleted, err := j.coachingRepo.DeleteExpired(ctx, startedAt)
	if err != nil {
		return fmt.Errorf("failed to delete expired coaching messages: %w", err)
	}
	stats.Deleted = deleted

	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	if deleted > 0 {
		j.logger.Info("cleanup_expired job completed", "deleted", deleted, "duration", stats.Duration.String())
	}
	return nil
}

// LastRunStats returns statistics from the last run.
func (j *CleanupExpiredJob) LastRunStats() *CleanupExpiredStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*CleanupExpiredStats)
}
