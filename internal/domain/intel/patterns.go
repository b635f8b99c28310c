package intel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/study"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultWeeklyGoalMinutes используется при нулевой цели пользователя.
	DefaultWeeklyGoalMinutes = 600

	// peakMinSessions - минимум сессий, чтобы час вообще рассматривался.
	peakMinSessions = 2

	// peakMinEffectiveness - средняя продуктивность, квалифицирующая окно.
	peakMinEffectiveness = 7.0

	// peakVolumeSessions - объём сессий, квалифицирующий окно без оценок.
	peakVolumeSessions = 5

	// maxPeakWindows / maxDriftWindows / maxStuckTopics - размеры снапшота.
	maxPeakWindows  = 3
	maxDriftWindows = 3
	maxStuckTopics  = 5

	// defaultEffectiveness подставляется там, где нет оценённых сессий.
	defaultEffectiveness = 5.0
)

// expectedStudyHours - часы, в которые обычно ожидается учёба; отсутствие
// сессий в них трактуется как дрейф расписания.
var expectedStudyHours = []int{9, 10, 14, 15, 16, 19, 20}

// PatternInput - вход для расчёта поведенческих паттернов.
type PatternInput struct {
	// Sessions - сессии за анализируемое окно (порядок не важен).
	Sessions []*study.Session

	// Mastery - строки владения темами (для застрявших тем).
	Mastery []*mastery.TopicMastery

	// WeeklyGoalMinutes - недельная цель; 0 означает дефолт.
	WeeklyGoalMinutes int

	// StoredTriggers - ранее накопленные триггеры прокрастинации.
	StoredTriggers []string

	// StoredProtocols - ранее накопленные протоколы возврата.
	StoredProtocols []string

	// Now - момент расчёта (фиксируется для детерминизма).
	Now time.Time
}

// ComputeStudyPatterns строит снапшот паттернов из сырых сессий.
func ComputeStudyPatterns(input PatternInput) StudyPatternSnapshot {
	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	snapshot := StudyPatternSnapshot{
		PeakWindows:             computePeakWindows(input.Sessions),
		DriftWindows:            computeDriftWindows(input.Sessions),
		StuckTopics:             computeStuckTopics(input.Mastery),
		ProcrastinationTriggers: dedupe(input.StoredTriggers),
		ReturnProtocols:         dedupe(input.StoredProtocols),
		StreakDays:              computeStreak(input.Sessions, now),
		TotalSessions:           len(input.Sessions),
		GeneratedAt:             now,
	}

	weekAgo := now.AddDate(0, 0, -7)
	totalMinutes := 0
	for _, s := range input.Sessions {
		totalMinutes += s.Minutes.Int()
		if s.StartedAt.After(weekAgo) {
			snapshot.WeeklyMinutes += s.Minutes.Int()
			snapshot.SessionsLast7Days++
		}
	}
	if len(input.Sessions) > 0 {
		snapshot.AvgSessionMinutes = totalMinutes / len(input.Sessions)
	}

	goal := input.WeeklyGoalMinutes
	if goal <= 0 {
		goal = DefaultWeeklyGoalMinutes
	}
	snapshot.ConsistencyScore = consistencyScore(snapshot.WeeklyMinutes, goal)

	best, struggling := computeSubjectPerformance(input.Sessions)
	snapshot.BestSubjects = best
	snapshot.StrugglingSubjects = struggling

	snapshot.OptimalSessionMinutes = computeOptimalSessionLength(input.Sessions)

	return snapshot
}

// consistencyScore = min(100, round(weekly / goal * 100)).
func consistencyScore(weeklyMinutes, goalMinutes int) int {
	score := int(math.Round(float64(weeklyMinutes) / float64(goalMinutes) * 100))
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// ──────────────────────────────────────────────────────────────────────────────
// Peak windows
// ──────────────────────────────────────────────────────────────────────────────

type hourStats struct {
	hour       int
	total      int
	ratedSum   int
	ratedCount int
}

func (h hourStats) avgEffectiveness() float64 {
	if h.ratedCount == 0 {
		return 0
	}
	return float64(h.ratedSum) / float64(h.ratedCount)
}

func computePeakWindows(sessions []*study.Session) []TimeWindow {
	byHour := make(map[int]*hourStats)
	for _, s := range sessions {
		hour := s.HourBucket()
		stats, ok := byHour[hour]
		if !ok {
			stats = &hourStats{hour: hour}
			byHour[hour] = stats
		}
		stats.total++
		if s.IsRated() {
			stats.ratedSum += s.Effectiveness.Int()
			stats.ratedCount++
		}
	}

	candidates := make([]*hourStats, 0, len(byHour))
	for _, stats := range byHour {
		if stats.total < peakMinSessions {
			continue
		}
		if stats.avgEffectiveness() >= peakMinEffectiveness || stats.total >= peakVolumeSessions {
			candidates = append(candidates, stats)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.avgEffectiveness() != b.avgEffectiveness() {
			return a.avgEffectiveness() > b.avgEffectiveness()
		}
		if a.total != b.total {
			return a.total > b.total
		}
		return a.hour < b.hour
	})

	windows := make([]TimeWindow, 0, maxPeakWindows)
	for _, stats := range candidates {
		if len(windows) == maxPeakWindows {
			break
		}
		windows = append(windows, TimeWindow{
			Hour:             stats.hour,
			Time:             fmt.Sprintf("%d:00", stats.hour),
			Description:      fmt.Sprintf("High productivity (%d sessions, %.1f/10 avg)", stats.total, stats.avgEffectiveness()),
			Sessions:         stats.total,
			AvgEffectiveness: stats.avgEffectiveness(),
		})
	}
	return windows
}

// ──────────────────────────────────────────────────────────────────────────────
// Drift windows
// ──────────────────────────────────────────────────────────────────────────────

func computeDriftWindows(sessions []*study.Session) []TimeWindow {
	counts := make(map[int]int, len(expectedStudyHours))
	total := 0
	for _, s := range sessions {
		counts[s.HourBucket()]++
		total++
	}

	// Среднее считается по фактически наблюдаемым часам, а не по ожидаемым:
	// учёба только в нетипичные часы всё равно даёт дрейф в ожидаемых окнах.
	var avg float64
	if len(counts) > 0 {
		avg = float64(total) / float64(len(counts))
	}

	windows := make([]TimeWindow, 0, maxDriftWindows)
	for _, hour := range expectedStudyHours {
		if len(windows) == maxDriftWindows {
			break
		}
		count := counts[hour]
		if float64(count) < avg*0.5 {
			windows = append(windows, TimeWindow{
				Hour:        hour,
				Time:        fmt.Sprintf("%d:00", hour),
				Description: fmt.Sprintf("Low study activity (%d sessions vs %.1f avg)", count, avg),
				Sessions:    count,
			})
		}
	}
	return windows
}

// ──────────────────────────────────────────────────────────────────────────────
// Subject performance
// ──────────────────────────────────────────────────────────────────────────────

func computeSubjectPerformance(sessions []*study.Session) (best, struggling []SubjectPerformance) {
	type subjectStats struct {
		name       string
		total      int
		ratedSum   int
		ratedCount int
	}

	bySubject := make(map[string]*subjectStats)
	order := make([]string, 0)
	for _, s := range sessions {
		key := s.Subject.String()
		stats, ok := bySubject[key]
		if !ok {
			stats = &subjectStats{name: key}
			bySubject[key] = stats
			order = append(order, key)
		}
		stats.total++
		if s.IsRated() {
			stats.ratedSum += s.Effectiveness.Int()
			stats.ratedCount++
		}
	}

	perf := make([]SubjectPerformance, 0, len(order))
	for _, key := range order {
		stats := bySubject[key]
		avg := defaultEffectiveness
		if stats.ratedCount > 0 {
			avg = float64(stats.ratedSum) / float64(stats.ratedCount)
		}
		perf = append(perf, SubjectPerformance{
			Subject:          stats.name,
			AvgEffectiveness: avg,
			Sessions:         stats.total,
		})
	}

	sort.SliceStable(perf, func(i, j int) bool {
		return perf[i].AvgEffectiveness > perf[j].AvgEffectiveness
	})

	best = append([]SubjectPerformance{}, perf[:minInt(3, len(perf))]...)

	tail := perf[maxInt(0, len(perf)-3):]
	struggling = make([]SubjectPerformance, 0, len(tail))
	for i := len(tail) - 1; i >= 0; i-- {
		struggling = append(struggling, tail[i])
	}
	return best, struggling
}

// ──────────────────────────────────────────────────────────────────────────────
// Optimal session length
// ──────────────────────────────────────────────────────────────────────────────

func computeOptimalSessionLength(sessions []*study.Session) int {
	type bucket struct {
		sum   int
		count int
	}
	// <30 / 30-60 / >60 минут
	var short, medium, long bucket

	for _, s := range sessions {
		if !s.IsRated() {
			continue
		}
		switch minutes := s.Minutes.Int(); {
		case minutes < 30:
			short.sum += s.Effectiveness.Int()
			short.count++
		case minutes <= 60:
			medium.sum += s.Effectiveness.Int()
			medium.count++
		default:
			long.sum += s.Effectiveness.Int()
			long.count++
		}
	}

	avg := func(b bucket) float64 {
		if b.count == 0 {
			return 0
		}
		return float64(b.sum) / float64(b.count)
	}

	if short.count == 0 && medium.count == 0 && long.count == 0 {
		return 45
	}

	bestMinutes, bestAvg := 25, avg(short)
	if avg(medium) > bestAvg {
		bestMinutes, bestAvg = 45, avg(medium)
	}
	if avg(long) > bestAvg {
		bestMinutes = 90
	}
	return bestMinutes
}

// ──────────────────────────────────────────────────────────────────────────────
// Stuck topics & streak
// ──────────────────────────────────────────────────────────────────────────────

func computeStuckTopics(rows []*mastery.TopicMastery) []string {
	topics := make([]string, 0, maxStuckTopics)
	for _, row := range rows {
		if len(topics) == maxStuckTopics {
			break
		}
		if row.IsStuck() {
			topics = append(topics, row.Topic)
		}
	}
	return topics
}

func computeStreak(sessions []*study.Session, now time.Time) int {
	days := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		days[s.StartedAt.In(now.Location()).Format("2006-01-02")] = true
	}

	streak := 0
	for day := now; ; day = day.AddDate(0, 0, -1) {
		if !days[day.Format("2006-01-02")] {
			break
		}
		streak++
	}
	return streak
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
