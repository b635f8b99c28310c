package intel

import (
	"fmt"
	"math"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM THREAT CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

const (
	// targetMastery - уровень владения, к которому строится рекомендация.
	targetMastery = 80

	// minutesPerMasteryPoint - эмпирика: полчаса на один пункт владения.
	minutesPerMasteryPoint = 30
)

// ComputeExamThreats рассчитывает угрозу по каждому предстоящему экзамену.
// Прошедшие экзамены пропускаются.
func ComputeExamThreats(exams []*exam.Exam, rows []*mastery.TopicMastery, now time.Time) []ExamThreatSnapshot {
	snapshots := make([]ExamThreatSnapshot, 0, len(exams))
	for _, e := range exams {
		if !e.IsUpcoming(now) {
			continue
		}
		snapshots = append(snapshots, computeThreat(e, rows, now))
	}
	return snapshots
}

func computeThreat(e *exam.Exam, rows []*mastery.TopicMastery, now time.Time) ExamThreatSnapshot {
	daysRemaining := e.DaysRemaining(now)
	relevant := relevantMastery(e, rows)

	avgMastery := 0
	if len(relevant) > 0 {
		sum := 0
		for _, row := range relevant {
			sum += int(row.Score)
		}
		avgMastery = int(math.Round(float64(sum) / float64(len(relevant))))
	}

	timeFactor := 0.0
	if daysRemaining > 0 {
		timeFactor = math.Min(30, 30/float64(daysRemaining)*10)
	}

	progress := int(math.Round(float64(avgMastery)*0.7 + timeFactor))
	if progress > 100 {
		progress = 100
	}

	weak := weakTopics(relevant)

	return ExamThreatSnapshot{
		ExamID:           e.ID,
		Subject:          e.Subject.String(),
		Title:            e.Title,
		ExamDate:         e.ExamDate,
		Topics:           append([]string(nil), e.Topics...),
		DaysRemaining:    daysRemaining,
		ThreatLevel:      threatLevel(daysRemaining, avgMastery),
		AvgMastery:       avgMastery,
		Progress:         progress,
		PredictedOutcome: predictOutcome(daysRemaining, avgMastery),
		GapAnalysis:      formatGaps(weak),
		WeakTopics:       weak,
		RecommendedHours: recommendedHours(daysRemaining, avgMastery),
	}
}

// relevantMastery отбирает строки владения, относящиеся к экзамену:
// предмет должен совпасть, а при заданном списке тем - ещё и тема.
func relevantMastery(e *exam.Exam, rows []*mastery.TopicMastery) []*mastery.TopicMastery {
	relevant := make([]*mastery.TopicMastery, 0, len(rows))
	for _, row := range rows {
		if row.Subject.Normalized() != e.Subject.Normalized() {
			continue
		}
		if len(e.Topics) > 0 && !e.CoversTopic(row.Topic) {
			continue
		}
		relevant = append(relevant, row)
	}
	return relevant
}

// threatLevel применяет пороги серьёзности в порядке убывания.
func threatLevel(daysRemaining, avgMastery int) exam.ThreatLevel {
	switch {
	case daysRemaining <= 5 && avgMastery < 60:
		return exam.ThreatCritical
	case daysRemaining <= 7 || avgMastery < 50:
		return exam.ThreatHigh
	case daysRemaining <= 14 || avgMastery < 70:
		return exam.ThreatMedium
	default:
		return exam.ThreatLow
	}
}

// predictOutcome прогнозирует диапазон оценки от текущего владения.
func predictOutcome(daysRemaining, avgMastery int) string {
	predicted := avgMastery
	if daysRemaining > 14 {
		predicted += 10
	}
	if daysRemaining < 3 {
		predicted -= 5
	}
	if predicted > 100 {
		predicted = 100
	}
	if predicted < 0 {
		predicted = 0
	}

	switch {
	case predicted >= 90:
		return "A+ (90-100%)"
	case predicted >= 80:
		return "A (80-89%)"
	case predicted >= 70:
		return "B (70-79%)"
	case predicted >= 60:
		return "C (60-69%)"
	case predicted >= 50:
		return "D (50-59%)"
	default:
		return "F (<50%)"
	}
}

// weakTopics отбирает релевантные темы с оценкой ниже порога пробелов.
func weakTopics(relevant []*mastery.TopicMastery) []TopicScore {
	weak := make([]TopicScore, 0, len(relevant))
	for _, row := range relevant {
		if int(row.Score) < 60 {
			weak = append(weak, TopicScore{Topic: row.Topic, Score: int(row.Score)})
		}
	}
	return weak
}

// formatGaps рендерит слабые темы в формате "Topic (NN%)".
func formatGaps(weak []TopicScore) []string {
	gaps := make([]string, 0, len(weak))
	for _, w := range weak {
		gaps = append(gaps, fmt.Sprintf("%s (%d%%)", w.Topic, w.Score))
	}
	return gaps
}

// recommendedHours оценивает объём подготовки до целевого владения.
func recommendedHours(daysRemaining, avgMastery int) RecommendedHours {
	gap := targetMastery - avgMastery
	if gap <= 0 {
		return RecommendedHours{}
	}

	total := int(math.Ceil(float64(gap) * minutesPerMasteryPoint / 60))
	daily := 0
	if daysRemaining > 0 {
		daily = int(math.Ceil(float64(total) / float64(daysRemaining)))
	}
	return RecommendedHours{Total: total, Daily: daily}
}

// ExamProximity возвращает самый серьёзный уровень угрозы среди снапшотов.
func ExamProximity(snapshots []ExamThreatSnapshot) exam.ThreatLevel {
	proximity := exam.ThreatNone
	for _, s := range snapshots {
		proximity = exam.MaxThreat(proximity, s.ThreatLevel)
	}
	return proximity
}

// ApplyThreatToExam переносит расчётный снапшот в кешированные поля экзамена.
func ApplyThreatToExam(e *exam.Exam, s ExamThreatSnapshot, now time.Time) {
	e.ApplyThreat(
		s.ThreatLevel,
		s.Progress,
		s.PredictedOutcome,
		s.GapAnalysis,
		s.RecommendedHours.Total,
		s.RecommendedHours.Daily,
		now,
	)
}
