package prompt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
)

// ══════════════════════════════════════════════════════════════════════════════
// NUDGE TRIGGERS
// ══════════════════════════════════════════════════════════════════════════════

// Trigger identifies which nudge window fired.
type Trigger string

const (
	// TriggerMorningMomentum is the 10:00 local momentum nudge.
	TriggerMorningMomentum Trigger = "morning_momentum"

	// TriggerAfternoonDrift is the 14:00 local drift check.
	TriggerAfternoonDrift Trigger = "afternoon_drift"

	// TriggerEveningCloseout is the 18:00 local closeout.
	TriggerEveningCloseout Trigger = "evening_closeout"
)

// IsValid checks if the trigger is known.
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerMorningMomentum, TriggerAfternoonDrift, TriggerEveningCloseout:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// Builder renders prompt payloads from intel states. It is stateless and safe
// for concurrent use.
type Builder struct{}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildIntelPrompt assembles the daily intel prompt: the strict-format system
// template followed by the user's actual data blocks.
func (b *Builder) BuildIntelPrompt(state *intel.UserIntelState) string {
	var sb strings.Builder

	sb.WriteString(strings.ReplaceAll(IntelTemplate, "{{examProximity}}", string(state.ExamProximity)))
	sb.WriteString("\n\nEXAM DATA:\n")
	sb.WriteString(b.examContext(state.Exams))
	sb.WriteString("\n\nMASTERY DATA:\n")
	sb.WriteString(b.masteryContext(state.Mastery))
	sb.WriteString("\n\nSTUDY PATTERNS:\n")
	sb.WriteString(b.patternContext(state.StudyPatterns))
	sb.WriteString("\n\nBEHAVIORAL THREADS:\n")
	sb.WriteString(b.semanticContext(state.SemanticThreads))
	sb.WriteString("\n\nGenerate today's Intel now. Follow the format exactly.")

	return sb.String()
}

// BuildNudgePrompt picks the nudge template for the trigger. A CRITICAL exam
// threat overrides every window.
func (b *Builder) BuildNudgePrompt(state *intel.UserIntelState, trigger Trigger, now time.Time) string {
	if critical := findCriticalThreat(state.Exams); critical != nil {
		return replaceAll(NudgeCriticalTemplate, map[string]string{
			"subject":        critical.Subject,
			"daysRemaining":  strconv.Itoa(critical.DaysRemaining),
			"currentMastery": strconv.Itoa(critical.Progress),
			"prediction":     critical.PredictedOutcome,
		})
	}

	switch trigger {
	case TriggerAfternoonDrift:
		return b.buildDriftNudge(state, now)
	case TriggerEveningCloseout:
		return b.buildProgressNudge(state, NudgeCloseoutTemplate)
	default:
		return b.buildProgressNudge(state, NudgeMomentumTemplate)
	}
}

// BuildWeakTopicPrompt renders the 48-hour weak topic push.
func (b *Builder) BuildWeakTopicPrompt(topic string, score, attempts int, examSubject string, daysToExam int) string {
	if examSubject == "" {
		examSubject = "upcoming exam"
	}

	return replaceAll(NudgeWeakTopicTemplate, map[string]string{
		"topic":    topic,
		"score":    strconv.Itoa(score),
		"attempts": strconv.Itoa(attempts),
		"exam":     examSubject,
		"days":     strconv.Itoa(daysToExam),
	})
}

// BuildExamAlert renders the threshold alert for an exam. Unknown thresholds
// fall back to a generic line.
func (b *Builder) BuildExamAlert(threat intel.ExamThreatSnapshot, threshold int) string {
	weakTopics := joinOrDefault(threat.GapAnalysis, 3, "review all topics")

	switch threshold {
	case 14:
		return replaceAll(ExamAlert14Days, map[string]string{
			"subject": threat.Subject,
			"mastery": strconv.Itoa(threat.Progress),
		})
	case 7:
		return replaceAll(ExamAlert7Days, map[string]string{
			"subject":     threat.Subject,
			"mastery":     strconv.Itoa(threat.Progress),
			"weakTopics":  weakTopics,
			"hoursNeeded": strconv.Itoa(threat.RecommendedHours.Total),
		})
	case 3:
		return replaceAll(ExamAlert3Days, map[string]string{
			"subject":    threat.Subject,
			"mastery":    strconv.Itoa(threat.Progress),
			"priorities": joinOrDefault(threat.GapAnalysis, 2, "high-value topics"),
		})
	case 1:
		return replaceAll(ExamAlert1Day, map[string]string{
			"subject":    threat.Subject,
			"prediction": threat.PredictedOutcome,
			"keyTopics":  joinOrDefault(threat.GapAnalysis, 3, "key concepts"),
		})
	default:
		return fmt.Sprintf("%s exam in %d days. Current mastery: %d%%.", threat.Subject, threshold, threat.Progress)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// NUDGE INTERNALS
// ══════════════════════════════════════════════════════════════════════════════

func (b *Builder) buildDriftNudge(state *intel.UserIntelState, now time.Time) string {
	timeWaster := "distractions"
	if len(state.SemanticThreads.TimeWasters) > 0 {
		timeWaster = state.SemanticThreads.TimeWasters[0]
	}

	nextExam := "your exam"
	daysToExam := "several"
	if len(state.Exams) > 0 {
		nextExam = state.Exams[0].Subject
		daysToExam = strconv.Itoa(state.Exams[0].DaysRemaining)
	}

	return replaceAll(NudgeDriftTemplate, map[string]string{
		"currentTime": now.Format("3 PM"),
		"timeWaster":  timeWaster,
		"nextExam":    nextExam,
		"daysToExam":  daysToExam,
	})
}

func (b *Builder) buildProgressNudge(state *intel.UserIntelState, template string) string {
	status := "BEHIND"
	if state.WeeklyMinutes >= state.WeeklyTarget {
		status = "ON TRACK"
	}

	return replaceAll(template, map[string]string{
		"streak":       strconv.Itoa(state.StudyPatterns.StreakDays),
		"todayMinutes": strconv.Itoa(state.TodayMinutes),
		"weeklyGoal":   strconv.Itoa(state.WeeklyTarget),
		"status":       status,
	})
}

func findCriticalThreat(threats []intel.ExamThreatSnapshot) *intel.ExamThreatSnapshot {
	for i := range threats {
		if threats[i].ThreatLevel == exam.ThreatCritical {
			return &threats[i]
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT BLOCKS
// ══════════════════════════════════════════════════════════════════════════════

func (b *Builder) examContext(threats []intel.ExamThreatSnapshot) string {
	if len(threats) == 0 {
		return "No exams currently scheduled."
	}

	var lines []string
	for _, t := range threats {
		if len(lines) >= 10 {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %d days, %s threat, %d%% prepared, predicted: %s",
			t.Subject, t.Title, t.DaysRemaining, t.ThreatLevel, t.Progress, t.PredictedOutcome))
		if len(t.GapAnalysis) > 0 {
			lines = append(lines, "  Weak areas: "+joinOrDefault(t.GapAnalysis, 3, ""))
		}
	}

	return strings.Join(lines, "\n")
}

func (b *Builder) masteryContext(m intel.MasteryMap) string {
	if len(m.TopicScores) == 0 {
		return "No topic mastery data yet."
	}

	type entry struct {
		topic string
		score int
	}
	entries := make([]entry, 0, len(m.TopicScores))
	for topic, score := range m.TopicScores {
		entries = append(entries, entry{topic, score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score < entries[j].score // weakest first
		}
		return entries[i].topic < entries[j].topic
	})

	var lines []string

	weak := 0
	for _, e := range entries {
		if e.score < 50 && weak < 5 {
			if weak == 0 {
				lines = append(lines, "WEAK TOPICS (<50%):")
			}
			lines = append(lines, fmt.Sprintf("- %s: %d%%", e.topic, e.score))
			weak++
		}
	}

	strong := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.score > 75 && strong < 3 {
			if strong == 0 {
				if len(lines) > 0 {
					lines = append(lines, "")
				}
				lines = append(lines, "STRONG TOPICS (>75%):")
			}
			lines = append(lines, fmt.Sprintf("- %s: %d%%", e.topic, e.score))
			strong++
		}
	}

	if len(lines) == 0 {
		return "All tracked topics sit between 50% and 75%."
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) patternContext(p intel.StudyPatternSnapshot) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("Consistency: %d%%", p.ConsistencyScore))
	lines = append(lines, fmt.Sprintf("Avg session: %d min", p.AvgSessionMinutes))
	lines = append(lines, fmt.Sprintf("Optimal session length: %d min", p.OptimalSessionMinutes))
	lines = append(lines, fmt.Sprintf("Streak: %d days", p.StreakDays))

	if len(p.PeakWindows) > 0 {
		lines = append(lines, "", "Peak study windows:")
		for _, w := range p.PeakWindows {
			lines = append(lines, fmt.Sprintf("- %s: %s", w.Time, w.Description))
		}
	}

	if len(p.DriftWindows) > 0 {
		lines = append(lines, "", "Drift windows (low productivity):")
		for _, w := range p.DriftWindows {
			lines = append(lines, fmt.Sprintf("- %s: %s", w.Time, w.Description))
		}
	}

	if len(p.BestSubjects) > 0 {
		lines = append(lines, "", "Best subjects: "+joinSubjects(p.BestSubjects))
	}
	if len(p.StrugglingSubjects) > 0 {
		lines = append(lines, "Struggle subjects: "+joinSubjects(p.StrugglingSubjects))
	}

	if len(p.ReturnProtocols) > 0 {
		lines = append(lines, "", "What works for them:")
		for _, proto := range p.ReturnProtocols {
			lines = append(lines, "- "+proto)
		}
	}

	return strings.Join(lines, "\n")
}

func (b *Builder) semanticContext(threads intel.SemanticThreads) string {
	var lines []string

	if len(threads.ExcusePatterns) > 0 {
		lines = append(lines, "Recurring excuses: "+strings.Join(threads.ExcusePatterns, ", "))
	}
	if len(threads.TimeWasters) > 0 {
		lines = append(lines, "Time wasters: "+strings.Join(threads.TimeWasters, ", "))
	}

	if len(threads.Contradictions) > 0 {
		lines = append(lines, "", "Contradictions:")
		for _, c := range threads.Contradictions {
			lines = append(lines, "- "+c)
		}
	}

	if len(threads.Breakthroughs) > 0 {
		lines = append(lines, "", "Recent breakthroughs:")
		for _, br := range threads.Breakthroughs {
			lines = append(lines, "- "+br)
		}
	}

	if len(threads.RecurringMistakes) > 0 {
		lines = append(lines, "", "Common mistakes:")
		for _, m := range threads.RecurringMistakes {
			lines = append(lines, "- "+m)
		}
	}

	if len(lines) == 0 {
		return "No behavioral patterns detected yet."
	}
	return strings.Join(lines, "\n")
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func replaceAll(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func joinOrDefault(items []string, limit int, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}

func joinSubjects(perf []intel.SubjectPerformance) string {
	names := make([]string, len(perf))
	for i, p := range perf {
		names[i] = p.Subject
	}
	return strings.Join(names, ", ")
}
