package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
	"github.com/cortex-hub/cortex-study-hub/internal/interface/prompt"
	"github.com/cortex-hub/cortex-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEAK TOPIC PUSH JOB
// ══════════════════════════════════════════════════════════════════════════════

// WeakTopicPushJob nags the user about their single weakest exam-relevant
// topic. Runs every 48 hours.
//
// A topic qualifies when its mastery sits below the weakness threshold, it
// has been attempted repeatedly, and an exam covering it lands within the
// horizon. One push per user per run: the weakest qualifying topic wins, the
// rest wait for the next cycle.
type WeakTopicPushJob struct {
	// Dependencies
	userRepo     user.Repository
	masteryRepo  mastery.Repository
	examRepo     exam.Repository
	textGen      TextGenerator
	push         PushSender
	logger       *slog.Logger

	// Configuration
	config WeakTopicPushConfig

	// State
	lastRunStats atomic.Value // *WeakTopicPushStats
}

// WeakTopicPushConfig contains configuration for the weak topic job.
type WeakTopicPushConfig struct {
	// ScoreThreshold marks a topic weak when its score is below it.
	ScoreThreshold int

	// MinAttempts filters out topics the user has barely touched - one bad
	// session is noise, not a weakness.
	MinAttempts int

	// ExamHorizon limits pushes to topics with an exam this close.
	ExamHorizon time.Duration

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultWeakTopicPushConfig returns sensible defaults.
func DefaultWeakTopicPushConfig() WeakTopicPushConfig {
	return WeakTopicPushConfig{
		ScoreThreshold: mastery.WeaknessThreshold,
		MinAttempts:    mastery.WeaknessSessionCount,
		ExamHorizon:    30 * 24 * time.Hour,
		Timeout:        10 * time.Minute,
	}
}

// WeakTopicPushStats contains statistics from a single run.
type WeakTopicPushStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	TotalUsers     int
	PushesSent     int
	PushesSkipped  int
	PushesFailed   int
	SkippedReasons map[string]int
}

// NewWeakTopicPushJob creates a new weak topic push job.
func NewWeakTopicPushJob(
	userRepo user.Repository,
	masteryRepo mastery.Repository,
	examRepo exam.Repository,
	textGen TextGenerator,
	push PushSender,
	logger *slog.Logger,
	config WeakTopicPushConfig,
) *WeakTopicPushJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ScoreThreshold <= 0 {
		config.ScoreThreshold = mastery.WeaknessThreshold
	}
	if config.ExamHorizon <= 0 {
		config.ExamHorizon = 30 * 24 * time.Hour
	}

	return &WeakTopicPushJob{
		userRepo:    userRepo,
		masteryRepo: masteryRepo,
		examRepo:    examRepo,
		textGen:     textGen,
		push:        push,
		logger:      logger,
		config:      config,
	}
}

// Name returns the job name.
func (j *WeakTopicPushJob) Name() string {
	return "weak_topic_push"
}

// Description returns a human-readable description.
func (j *WeakTopicPushJob) Description() string {
	return "Pushes the weakest exam-relevant topic to each user every 48 hours"
}

// Run executes the weak topic push job.
func (j *WeakTopicPushJob) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()
	stats := &WeakTopicPushStats{
		StartedAt:      startedAt,
		SkippedReasons: make(map[string]int),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	users, err := j.userRepo.ListNudgesEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list nudge-enabled users: %w", err)
	}
	stats.TotalUsers = len(users)

	for _, u := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sent, reason, err := j.pushWeakest(ctx, u, startedAt)
		switch {
		case err != nil:
			stats.PushesFailed++
			j.logger.Error("failed to push weak topic", "user_id", u.ID, "error", err)
		case !sent:
			stats.PushesSkipped++
			stats.SkippedReasons[reason]++
		default:
			stats.PushesSent++
		}
	}

	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("weak_topic_push job completed",
		"duration", stats.Duration.String(),
		"sent", stats.PushesSent,
		"skipped", stats.PushesSkipped,
		"failed", stats.PushesFailed,
	)
	return nil
}

// pushWeakest picks the user's weakest exam-relevant topic and pushes one
// nudge about it. Returns sent=false with a reason when nothing qualifies.
func (j *WeakTopicPushJob) pushWeakest(ctx context.Context, u *user.User, now time.Time) (bool, string, error) {
	if !timeutil.IsSafeNotificationTime(now, string(u.Timezone)) {
		return false, "quiet_hours", nil
	}

	weak, err := j.masteryRepo.ListWeak(ctx, u.ID, j.config.ScoreThreshold)
	if err != nil {
		return false, "", fmt.Errorf("list weak topics: %w", err)
	}
	if len(weak) == 0 {
		return false, "no_weak_topics", nil
	}

	exams, err := j.examRepo.ListWithin(ctx, u.ID, now, j.config.ExamHorizon)
	if err != nil {
		return false, "", fmt.Errorf("list exams within horizon: %w", err)
	}
	if len(exams) == 0 {
		return false, "no_upcoming_exam", nil
	}

	// Weakest first, then most attempted: the topic they keep failing at.
	sort.Slice(weak, func(a, b int) bool {
		if weak[a].Score != weak[b].Score {
			return weak[a].Score < weak[b].Score
		}
		return weak[a].SessionCount > weak[b].SessionCount
	})

	for _, topic := range weak {
		if topic.SessionCount < j.config.MinAttempts {
			continue
		}
		e := coveringExam(exams, topic.Topic)
		if e == nil {
			continue
		}

		days := e.DaysRemaining(now)
		weakPrompt := prompt.NewBuilder().BuildWeakTopicPrompt(
			topic.Topic, int(topic.Score), topic.SessionCount, string(e.Subject), days,
		)
		text, err := j.textGen.GenerateText(ctx, weakPrompt)
		if err != nil {
			return false, "", fmt.Errorf("generate weak topic nudge: %w", err)
		}

		title := fmt.Sprintf("Weak spot: %s", topic.Topic)
		if err := j.push.Send(ctx, u.ID, title, text); err != nil {
			return false, "", fmt.Errorf("push weak topic nudge: %w", err)
		}
		return true, "", nil
	}

	return false, "no_exam_relevant_topic", nil
}

// coveringExam returns the soonest exam that covers the topic, or nil.
func coveringExam(exams []*exam.Exam, topic string) *exam.Exam {
	var best *exam.Exam
	for _, e := range exams {
		if !e.CoversTopic(topic) {
			continue
		}
		if best == nil || e.ExamDate.Before(best.ExamDate) {
			best = e
		}
	}
	return best
}

// LastRunStats returns statistics from the last run.
func (j *WeakTopicPushJob) LastRunStats() *WeakTopicPushStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*WeakTopicPushStats)
}
