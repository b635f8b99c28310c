// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/study"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// BUILD INTEL STATE QUERY
// Агрегатор интел-состояния: параллельно собирает сессии, экзамены, mastery
// и заметки, прогоняет их через аналитику пакета intel и отдаёт единый
// снапшот. Это единственная точка, из которой строятся коучинг и промпты.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// sessionWindowDays - окно сессий, участвующих в аналитике.
	sessionWindowDays = 30

	// recentSessionLimit - сколько последних сессий попадает в снапшот.
	recentSessionLimit = 10

	// memoryWindowDays - окно заметок для семантического анализа.
	memoryWindowDays = 30

	// DefaultIntelTTL - срок жизни закешированного состояния.
	DefaultIntelTTL = 15 * time.Minute
)

// BuildIntelStateQuery содержит параметры сборки интел-состояния.
type BuildIntelStateQuery struct {
	// UserID - пользователь, для которого строится состояние.
	UserID string

	// BypassCache - пересобрать состояние, игнорируя кеш.
	BypassCache bool

	// Now - момент расчёта (пустой = текущее время UTC).
	Now time.Time
}

// Validate проверяет корректность параметров.
func (q *BuildIntelStateQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id must be provided")
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}
	return nil
}

// IntelCache кеширует собранные состояния между запусками джоб.
// Реализация живёт в infrastructure/persistence/redis.
type IntelCache interface {
	// Get возвращает закешированное состояние или ошибку shared.ErrNotFound.
	Get(ctx context.Context, userID string) (*intel.UserIntelState, error)

	// Set сохраняет состояние с TTL.
	Set(ctx context.Context, state *intel.UserIntelState, ttl time.Duration) error

	// Invalidate сбрасывает кеш пользователя.
	Invalidate(ctx context.Context, userID string) error
}

// BuildIntelStateHandler собирает интел-состояние пользователя.
type BuildIntelStateHandler struct {
	userRepo    user.Repository
	sessionRepo study.SessionRepository
	memoryRepo  study.MemoryRepository
	examRepo    exam.Repository
	masteryRepo mastery.Repository
	cache       IntelCache
	publisher   shared.EventPublisher
}

// NewBuildIntelStateHandler создаёт новый обработчик.
// cache и publisher могут быть nil - тогда кеширование и события отключены.
func NewBuildIntelStateHandler(
	userRepo user.Repository,
	sessionRepo study.SessionRepository,
	memoryRepo study.MemoryRepository,
	examRepo exam.Repository,
	masteryRepo mastery.Repository,
	cache IntelCache,
	publisher shared.EventPublisher,
) *BuildIntelStateHandler {
	return &BuildIntelStateHandler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		memoryRepo:  memoryRepo,
		examRepo:    examRepo,
		masteryRepo: masteryRepo,
		cache:       cache,
		publisher:   publisher,
	}
}

// Handle выполняет сборку состояния.
func (h *BuildIntelStateHandler) Handle(ctx context.Context, query BuildIntelStateQuery) (*intel.UserIntelState, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("intel", "BuildState", shared.ErrValidation, "invalid query", err)
	}

	if h.cache != nil && !query.BypassCache {
		if cached, err := h.cache.Get(ctx, query.UserID); err == nil && cached != nil {
			return cached, nil
		}
	}

	// Пользователь нужен до параллельной фазы: таймзона определяет границы
	// "сегодня", настройки - недельную цель.
	u, err := h.userRepo.GetByID(ctx, query.UserID)
	if err != nil {
		return nil, shared.WrapError("intel", "BuildState", shared.ErrNotFound, "user not found", err)
	}

	now := query.Now
	windowStart := now.AddDate(0, 0, -sessionWindowDays)

	var (
		sessions    []*study.Session
		exams       []*exam.Exam
		masteryRows []*mastery.TopicMastery
		memoryTexts []*study.MemoryText
		memoryErr   error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		sessions, err = h.sessionRepo.ListSince(gctx, query.UserID, windowStart)
		if err != nil {
			return shared.WrapError("intel", "BuildState", shared.ErrExternalService, "failed to load sessions", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		exams, err = h.examRepo.ListUpcoming(gctx, query.UserID, now)
		if err != nil {
			return shared.WrapError("intel", "BuildState", shared.ErrExternalService, "failed to load exams", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		masteryRows, err = h.masteryRepo.ListByUser(gctx, query.UserID)
		if err != nil {
			return shared.WrapError("intel", "BuildState", shared.ErrExternalService, "failed to load mastery", err)
		}
		return nil
	})

	g.Go(func() error {
		// Заметки - необязательный вход: при сбое семантический слой
		// деградирует до пустых нитей, остальная аналитика не страдает.
		memoryTexts, memoryErr = h.memoryRepo.ListSince(gctx, query.UserID, now.AddDate(0, 0, -memoryWindowDays))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	threads := intel.EmptyThreads()
	if memoryErr == nil && len(memoryTexts) > 0 {
		texts := make([]string, 0, len(memoryTexts))
		for _, m := range memoryTexts {
			texts = append(texts, m.Text)
		}
		threads = intel.ExtractSemanticThreads(texts)
	}

	patterns := intel.ComputeStudyPatterns(intel.PatternInput{
		Sessions:          sessions,
		Mastery:           masteryRows,
		WeeklyGoalMinutes: u.Settings.GoalOrDefault(),
		StoredTriggers:    threads.ProcrastinationTriggers,
		StoredProtocols:   threads.ReturnProtocols,
		Now:               now,
	})

	threats := intel.ComputeExamThreats(exams, masteryRows, now)

	identity := intel.ComputeIdentity(intel.IdentityInput{
		Patterns: patterns,
		Threats:  threats,
		Mastery:  masteryRows,
		Now:      now,
	})

	state := &intel.UserIntelState{
		UserID:          query.UserID,
		Identity:        identity,
		Exams:           threats,
		ExamProximity:   intel.ExamProximity(threats),
		StudyPatterns:   patterns,
		Mastery:         intel.BuildMasteryMap(masteryRows),
		SemanticThreads: threads,
		RecentSessions:  recentSessions(sessions, recentSessionLimit),
		TodayMinutes:    todayMinutes(sessions, u, now),
		WeeklyMinutes:   patterns.WeeklyMinutes,
		WeeklyTarget:    u.Settings.TargetOrDefault(),
		GeneratedAt:     now,
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, state, DefaultIntelTTL)
	}

	return state, nil
}

// todayMinutes суммирует минуты учёбы с начала локального дня пользователя
// по уже загруженным сессиям: повторных запросов после параллельной фазы нет.
func todayMinutes(sessions []*study.Session, u *user.User, now time.Time) int {
	local := u.LocalTime(now)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())

	total := 0
	for _, s := range sessions {
		started := s.StartedAt.In(local.Location())
		if !started.Before(dayStart) && !started.After(local) {
			total += s.Minutes.Int()
		}
	}
	return total
}

// recentSessions возвращает первые limit сессий (вход уже отсортирован
// новыми вперёд).
func recentSessions(sessions []*study.Session, limit int) []*study.Session {
	if len(sessions) <= limit {
		return sessions
	}
	return sessions[:limit]
}
