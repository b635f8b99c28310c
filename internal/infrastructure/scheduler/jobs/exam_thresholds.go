package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
	"github.com/cortex-hub/cortex-study-hub/internal/interface/prompt"
	"github.com/cortex-hub/cortex-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM THRESHOLDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExamThresholdsJob fires exam alerts at 14, 7, 3 and 1 days before each exam.
//
// Alert text renders from static templates filled with the exam's current
// threat data — no generation call, so alerts still go out when the
// text-generation API is down. The alert log guarantees exactly one alert per
// exam and threshold; a user inside quiet hours is retried on the next hourly
// run without consuming the threshold.
type ExamThresholdsJob struct {
	// Dependencies
	examRepo    exam.Repository
	alertLog    exam.AlertLog
	masteryRepo mastery.Repository
	userRepo    user.Repository
	push        PushSender
	publisher   shared.EventPublisher
	logger      *slog.Logger

	// Configuration
	config ExamThresholdsConfig

	// State
	lastRunStats atomic.Value // *ExamThresholdsStats
}

// ExamThresholdsConfig contains configuration for the thresholds job.
type ExamThresholdsConfig struct {
	// Timeout is the maximum duration for one run.
	Timeout time.Duration

	// RespectQuietHours defers alerts that would land between 22:00 and
	// 7:00 local to the next hourly run.
	RespectQuietHours bool
}

// DefaultExamThresholdsConfig returns sensible defaults.
func DefaultExamThresholdsConfig() ExamThresholdsConfig {
	return ExamThresholdsConfig{
		Timeout:           5 * time.Minute,
		RespectQuietHours: true,
	}
}

// ExamThresholdsStats contains statistics from a single run.
type ExamThresholdsStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	ExamsChecked   int
	AlertsSent     int
	AlertsSkipped  int
	AlertsFailed   int
	SkippedReasons map[string]int
}

// NewExamThresholdsJob creates a new exam thresholds job.
func NewExamThresholdsJob(
	examRepo exam.Repository,
	alertLog exam.AlertLog,
	masteryRepo mastery.Repository,
	userRepo user.Repository,
	push PushSender,
	publisher shared.EventPublisher,
	logger *slog.Logger,
	config ExamThresholdsConfig,
) *ExamThresholdsJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExamThresholdsJob{
		examRepo:    examRepo,
		alertLog:    alertLog,
		masteryRepo: masteryRepo,
		userRepo:    userRepo,
		push:        push,
		publisher:   publisher,
		logger:      logger,
		config:      config,
	}
}

// Name returns the job name.
func (j *ExamThresholdsJob) Name() string {
	return "exam_thresholds"
}

// Description returns a human-readable description.
func (j *ExamThresholdsJob) Description() string {
	return "Sends one-time exam alerts at 14, 7, 3 and 1 days remaining"
}

// Run executes the exam thresholds job.
func (j *ExamThresholdsJob) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()
	stats := &ExamThresholdsStats{
		StartedAt:      startedAt,
		SkippedReasons: make(map[string]int),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	exams, err := j.examRepo.ListUpcomingAll(ctx, startedAt)
	if err != nil {
		return fmt.Errorf("failed to list upcoming exams: %w", err)
	}
	stats.ExamsChecked = len(exams)

	for _, e := range exams {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sent, reason, err := j.processExam(ctx, e, startedAt)
		switch {
		case err != nil:
			stats.AlertsFailed++
			j.logger.Error("failed to process exam threshold",
				"exam_id", e.ID,
				"user_id", e.UserID,
				"error", err,
			)
		case !sent:
			stats.AlertsSkipped++
			stats.SkippedReasons[reason]++
		default:
			stats.AlertsSent++
		}
	}

	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	if stats.AlertsSent > 0 || stats.AlertsFailed > 0 {
		j.logger.Info("exam_thresholds job completed",
			"duration", stats.Duration.String(),
			"checked", stats.ExamsChecked,
			"sent", stats.AlertsSent,
			"failed", stats.AlertsFailed,
		)
	}
	return nil
}

// processExam checks a single exam against the alert thresholds and sends at
// most one alert. Returns sent=false with a reason when nothing was due.
func (j *ExamThresholdsJob) processExam(ctx context.Context, e *exam.Exam, now time.Time) (bool, string, error) {
	threshold, ok := e.AtThreshold(now)
	if !ok {
		return false, "no_threshold", nil
	}

	wasSent, err := j.alertLog.WasSent(ctx, e.ID, threshold)
	if err != nil {
		return false, "", fmt.Errorf("check alert log: %w", err)
	}
	if wasSent {
		return false, "already_sent", nil
	}

	u, err := j.userRepo.GetByID(ctx, e.UserID)
	if err != nil {
		return false, "", fmt.Errorf("load user: %w", err)
	}
	if j.config.RespectQuietHours && !timeutil.IsSafeNotificationTime(now, string(u.Timezone)) {
		// Not marked as sent: the next hourly run inside waking hours
		// picks this threshold up again.
		return false, "quiet_hours", nil
	}

	rows, err := j.masteryRepo.ListByUser(ctx, e.UserID)
	if err != nil {
		return false, "", fmt.Errorf("load mastery: %w", err)
	}

	threats := intel.ComputeExamThreats([]*exam.Exam{e}, rows, now)
	if len(threats) == 0 {
		return false, "exam_passed", nil
	}
	threat := threats[0]

	body := prompt.NewBuilder().BuildExamAlert(threat, threshold)
	if err := j.push.Send(ctx, e.UserID, alertTitle(e, threshold), body); err != nil {
		return false, "", fmt.Errorf("push alert: %w", err)
	}

	if err := j.alertLog.MarkSent(ctx, e.ID, threshold, now); err != nil {
		// The alert went out; a failed mark risks one duplicate, which is
		// better than silently losing alerts.
		j.logger.Warn("alert sent but mark failed", "exam_id", e.ID, "threshold", threshold, "error", err)
	}

	_ = j.publisher.Publish(shared.NewExamThresholdHitEvent(
		e.UserID, e.ID, string(e.Subject), threshold, threat.ThreatLevel.String(),
	))

	return true, "", nil
}

func alertTitle(e *exam.Exam, threshold int) string {
	if threshold == 1 {
		return fmt.Sprintf("%s exam tomorrow", e.Subject)
	}
	return fmt.Sprintf("%s exam in %d days", e.Subject, threshold)
}

// LastRunStats returns statistics from the last run.
func (j *ExamThresholdsJob) LastRunStats() *ExamThresholdsStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*ExamThresholdsStats)
}
