package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/coaching"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
	"github.com/cortex-hub/cortex-study-hub/internal/interface/prompt"
	"github.com/cortex-hub/cortex-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY INTEL JOB
// ══════════════════════════════════════════════════════════════════════════════

// DailyIntelJob generates the morning intel brief for every user whose local
// clock has reached the brief hour (7:00).
//
// The brief is the product of the whole pipeline: a freshly rebuilt intel
// state rendered into the intel prompt, sent through the text-generation API,
// stored as a daily_brief coaching message and pushed to the user's device.
//
// The job runs hourly; each run covers exactly the timezones where it is
// currently 7am. A Redis claim key per user and local day guarantees at most
// one brief per day even if the worker restarts mid-run.
type DailyIntelJob struct {
	// Dependencies
	userRepo     user.Repository
	intelBuilder IntelStateBuilder
	textGen      TextGenerator
	coachingRepo coaching.Repository
	push         PushSender
	tracker      DeliveryTracker
	logger       *slog.Logger

	// Configuration
	config DailyIntelConfig

	// State
	lastRunStats atomic.Value // *DailyIntelStats
}

// DailyIntelConfig contains configuration for the daily intel job.
type DailyIntelConfig struct {
	// BriefHour is the local hour (0-23) at which briefs go out.
	BriefHour int

	// Concurrency is the number of briefs generated in parallel.
	// Keep low: each brief costs one text-generation call.
	Concurrency int

	// Timeout is the maximum duration for one run.
	Timeout time.Duration

	// PushPreviewLength is how many characters of the brief go into
	// the push notification body.
	PushPreviewLength int
}

// DefaultDailyIntelConfig returns sensible defaults.
func DefaultDailyIntelConfig() DailyIntelConfig {
	return DailyIntelConfig{
		BriefHour:         timeutil.BriefHour,
		Concurrency:       3,
		Timeout:           10 * time.Minute,
		PushPreviewLength: 180,
	}
}

// DailyIntelStats contains statistics from a single run.
type DailyIntelStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	TotalUsers     int
	BriefsSent     int
	BriefsSkipped  int
	BriefsFailed   int
	SkippedReasons map[string]int
	Errors         []error
}

// NewDailyIntelJob creates a new daily intel job.
func NewDailyIntelJob(
	userRepo user.Repository,
	intelBuilder IntelStateBuilder,
	textGen TextGenerator,
	coachingRepo coaching.Repository,
	push PushSender,
	tracker DeliveryTracker,
	logger *slog.Logger,
	config DailyIntelConfig,
) *DailyIntelJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.PushPreviewLength <= 0 {
		config.PushPreviewLength = 180
	}

	return &DailyIntelJob{
		userRepo:     userRepo,
		intelBuilder: intelBuilder,
		textGen:      textGen,
		coachingRepo: coachingRepo,
		push:         push,
		tracker:      tracker,
		logger:       logger,
		config:       config,
	}
}

// Name returns the job name.
func (j *DailyIntelJob) Name() string {
	return "daily_intel"
}

// Description returns a human-readable description.
func (j *DailyIntelJob) Description() string {
	return "Generates and delivers the 7am intel brief per user timezone"
}

// Run executes the daily intel job.
func (j *DailyIntelJob) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()
	stats := &DailyIntelStats{
		StartedAt:      startedAt,
		SkippedReasons: make(map[string]int),
		Errors:         make([]error, 0),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	users, err := j.userRepo.ListBriefEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list brief-enabled users: %w", err)
	}
	stats.TotalUsers = len(users)

	due := j.selectDueUsers(users, startedAt, stats)
	if len(due) == 0 {
		j.finalize(stats)
		return nil
	}

	j.logger.Info("generating daily briefs", "due", len(due), "total", stats.TotalUsers)
	j.generateConcurrently(ctx, due, startedAt, stats)

	j.finalize(stats)
	j.logger.Info("daily_intel job completed",
		"duration", stats.Duration.String(),
		"sent", stats.BriefsSent,
		"skipped", stats.BriefsSkipped,
		"failed", stats.BriefsFailed,
	)
	return nil
}

// selectDueUsers filters users whose local hour matches the brief hour.
func (j *DailyIntelJob) selectDueUsers(users []*user.User, now time.Time, stats *DailyIntelStats) []*user.User {
	due := make([]*user.User, 0, len(users))
	for _, u := range users {
		if timeutil.LocalHour(now, string(u.Timezone)) != j.config.BriefHour {
			stats.BriefsSkipped++
			stats.SkippedReasons["not_brief_hour"]++
			continue
		}
		due = append(due, u)
	}
	return due
}

func (j *DailyIntelJob) generateConcurrently(ctx context.Context, users []*user.User, now time.Time, stats *DailyIntelStats) {
	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, j.config.Concurrency)
		mu        sync.Mutex
	)

	for _, u := range users {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(u *user.User) {
			defer wg.Done()
			defer func() { <-semaphore }()

			sent, reason, err := j.deliverBrief(ctx, u, now)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				stats.BriefsFailed++
				stats.Errors = append(stats.Errors, err)
				j.logger.Error("failed to deliver brief", "user_id", u.ID, "error", err)
			case !sent:
				stats.BriefsSkipped++
				stats.SkippedReasons[reason]++
			default:
				stats.BriefsSent++
			}
		}(u)
	}

	wg.Wait()
}

// deliverBrief generates and delivers one user's brief. Returns sent=false
// with a reason when the brief was skipped without error.
func (j *DailyIntelJob) deliverBrief(ctx context.Context, u *user.User, now time.Time) (bool, string, error) {
	localDay := timeutil.LocalDay(now, string(u.Timezone))

	claimed, err := j.tracker.ClaimBrief(ctx, u.ID, localDay)
	if err != nil {
		return false, "", fmt.Errorf("claim brief for %s: %w", u.ID, err)
	}
	if !claimed {
		return false, "already_sent", nil
	}

	// Fresh state: the 7am brief must reflect yesterday evening's sessions,
	// not a cached snapshot.
	state, err := j.intelBuilder.BuildState(ctx, u.ID, true, now)
	if err != nil {
		return false, "", fmt.Errorf("build intel state for %s: %w", u.ID, err)
	}

	briefPrompt := prompt.NewBuilder().BuildIntelPrompt(state)
	text, err := j.textGen.GenerateText(ctx, briefPrompt)
	if err != nil {
		return false, "", fmt.Errorf("generate brief for %s: %w", u.ID, err)
	}

	msg, err := coaching.NewMessage(uuid.NewString(), coaching.Plan{
		UserID:   u.ID,
		Type:     coaching.TypeDailyBrief,
		Priority: briefPriority(state),
		Title:    "Daily Intel",
		Body:     text,
	}, now)
	if err != nil {
		return false, "", fmt.Errorf("build brief message for %s: %w", u.ID, err)
	}
	if err := j.coachingRepo.Create(ctx, msg); err != nil {
		return false, "", fmt.Errorf("store brief for %s: %w", u.ID, err)
	}

	if err := j.push.Send(ctx, u.ID, "Daily Intel", preview(text, j.config.PushPreviewLength)); err != nil {
		// The brief is stored; a failed push should not fail the run.
		j.logger.Warn("brief stored but push failed", "user_id", u.ID, "error", err)
	}

	return true, "", nil
}

// briefPriority maps exam proximity to message priority.
func briefPriority(state *intel.UserIntelState) coaching.Priority {
	switch state.ExamProximity {
	case exam.ThreatCritical, exam.ThreatHigh:
		return coaching.PriorityHigh
	case exam.ThreatMedium:
		return coaching.PriorityMedium
	default:
		return coaching.PriorityLow
	}
}

// preview truncates text to limit runes at a word boundary.
func preview(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// LastRunStats returns statistics from the last run.
func (j *DailyIntelJob) LastRunStats() *DailyIntelStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*DailyIntelStats)
}

func (j *DailyIntelJob) finalize(stats *DailyIntelStats) {
	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastRunStats.Store(stats)
}
