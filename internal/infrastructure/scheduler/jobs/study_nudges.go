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
	"github.com/cortex-hub/cortex-study-hub/internal/infrastructure/persistence/redis"
	"github.com/cortex-hub/cortex-study-hub/internal/interface/prompt"
	"github.com/cortex-hub/cortex-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDY NUDGES JOB
// ══════════════════════════════════════════════════════════════════════════════

// StudyNudgesJob sends the three daily nudges: morning momentum (10:00),
// afternoon drift check (14:00) and evening closeout (18:00), each in the
// user's local time.
//
// A CRITICAL exam threat overrides the slot's normal tone — the prompt builder
// swaps in the critical template regardless of trigger. Each slot is claimed
// in Redis per local day, so a user gets at most three nudges a day.
type StudyNudgesJob struct {
	// Dependencies
	userRepo     user.Repository
	intelBuilder IntelStateBuilder
	textGen      TextGenerator
	push         PushSender
	tracker      DeliveryTracker
	logger       *slog.Logger

	// Configuration
	config StudyNudgesConfig

	// State
	lastRunStats atomic.Value // *StudyNudgesStats
}

// StudyNudgesConfig contains configuration for the nudges job.
type StudyNudgesConfig struct {
	// Concurrency bounds parallel nudge generation.
	Concurrency int

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultStudyNudgesConfig returns sensible defaults.
func DefaultStudyNudgesConfig() StudyNudgesConfig {
	return StudyNudgesConfig{
		Concurrency: 3,
		Timeout:     10 * time.Minute,
	}
}

// StudyNudgesStats contains statistics from a single run.
type StudyNudgesStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	TotalUsers     int
	NudgesSent     int
	NudgesSkipped  int
	NudgesFailed   int
	SkippedReasons map[string]int
}

// NewStudyNudgesJob creates a new study nudges job.
func NewStudyNudgesJob(
	userRepo user.Repository,
	intelBuilder IntelStateBuilder,
	textGen TextGenerator,
	push PushSender,
	tracker DeliveryTracker,
	logger *slog.Logger,
	config StudyNudgesConfig,
) *StudyNudgesJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}

	return &StudyNudgesJob{
		userRepo:     userRepo,
		intelBuilder: intelBuilder,
		textGen:      textGen,
		push:         push,
		tracker:      tracker,
		logger:       logger,
		config:       config,
	}
}

// Name returns the job name.
func (j *StudyNudgesJob) Name() string {
	return "study_nudges"
}

// Description returns a human-readable description.
func (j *StudyNudgesJob) Description() string {
	return "Sends morning, afternoon and evening nudges per user timezone"
}

// nudgeWindow binds a local hour to its trigger, Redis slot and push title.
type nudgeWindow struct {
	hour    int
	trigger prompt.Trigger
	slot    redis.NudgeSlot
	title   string
}

var nudgeWindows = []nudgeWindow{
	{timeutil.MorningNudgeHour, prompt.TriggerMorningMomentum, redis.SlotMorning, "Momentum check"},
	{timeutil.AfternoonNudgeHour, prompt.TriggerAfternoonDrift, redis.SlotAfternoon, "Drift alert"},
	{timeutil.EveningNudgeHour, prompt.TriggerEveningCloseout, redis.SlotEvening, "Evening closeout"},
}

// Run executes the study nudges job.
func (j *StudyNudgesJob) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()
	stats := &StudyNudgesStats{
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

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)

	for _, u := range users {
		window, ok := matchWindow(startedAt, string(u.Timezone))
		if !ok {
			mu.Lock()
			stats.NudgesSkipped++
			stats.SkippedReasons["outside_window"]++
			mu.Unlock()
			continue
		}

		u := u
		g.Go(func() error {
			sent, reason, err := j.deliverNudge(gctx, u, window, startedAt)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				stats.NudgesFailed++
				j.logger.Error("failed to deliver nudge",
					"user_id", u.ID,
					"slot", string(window.slot),
					"error", err,
				)
			case !sent:
				stats.NudgesSkipped++
				stats.SkippedReasons[reason]++
			default:
				stats.NudgesSent++
			}
			// Per-user failures never abort the run.
			return nil
		})
	}

	_ = g.Wait()

	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("study_nudges job completed",
		"duration", stats.Duration.String(),
		"sent", stats.NudgesSent,
		"skipped", stats.NudgesSkipped,
		"failed", stats.NudgesFailed,
	)
	return nil
}

// matchWindow returns the nudge window matching the user's current local hour.
func matchWindow(now time.Time, tz string) (nudgeWindow, bool) {
	hour := timeutil.LocalHour(now, tz)
	for _, w := range nudgeWindows {
		if w.hour == hour {
			return w, true
		}
	}
	return nudgeWindow{}, false
}

// deliverNudge generates and sends one nudge. Returns sent=false with a
// reason when the nudge was skipped without error.
func (j *StudyNudgesJob) deliverNudge(ctx context.Context, u *user.User, window nudgeWindow, now time.Time) (bool, string, error) {
	localDay := timeutil.LocalDay(now, string(u.Timezone))

	claimed, err := j.tracker.ClaimSlot(ctx, u.ID, window.slot, localDay)
	if err != nil {
		return false, "", fmt.Errorf("claim %s slot for %s: %w", window.slot, u.ID, err)
	}
	if !claimed {
		return false, "already_sent", nil
	}

	// Cached state is fine here: nudges react to streaks and exam threats,
	// both of which move slower than the 15-minute cache TTL.
	state, err := j.intelBuilder.BuildState(ctx, u.ID, false, now)
	if err != nil {
		return false, "", fmt.Errorf("build intel state for %s: %w", u.ID, err)
	}

	nudgePrompt := prompt.NewBuilder().BuildNudgePrompt(state, window.trigger, timeutil.LocalTime(now, string(u.Timezone)))
	text, err := j.textGen.GenerateText(ctx, nudgePrompt)
	if err != nil {
		return false, "", fmt.Errorf("generate nudge for %s: %w", u.ID, err)
	}

	if err := j.push.Send(ctx, u.ID, window.title, text); err != nil {
		return false, "", fmt.Errorf("push nudge to %s: %w", u.ID, err)
	}
	return true, "", nil
}

// LastRunStats returns statistics from the last run.
func (j *StudyNudgesJob) LastRunStats() *StudyNudgesStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*StudyNudgesStats)
}
