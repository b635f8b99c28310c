// Package postgres implements the PostgreSQL persistence layer for Cortex
// Study Hub.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/exam"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ExamRepository implements exam.Repository for PostgreSQL.
type ExamRepository struct {
	conn *Connection
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(conn *Connection) *ExamRepository {
	return &ExamRepository{conn: conn}
}

const examColumns = `id, user_id, subject, title, exam_date, topics,
	   threat_level, progress, predicted_outcome, gap_analysis,
	   recommended_hours_total, recommended_hours_daily, threat_calculated_at,
	   created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *exam.Exam) error {
	query := `
		INSERT INTO exams (
			id, user_id, subject, title, exam_date, topics,
			threat_level, progress, predicted_outcome, gap_analysis,
			recommended_hours_total, recommended_hours_daily, threat_calculated_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.conn.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.Subject.String(),
		e.Title,
		e.ExamDate,
		e.Topics,
		string(e.ThreatLevel),
		e.Progress,
		e.PredictedOutcome,
		e.GapAnalysis,
		e.RecommendedHoursTotal,
		e.RecommendedHoursDaily,
		nullableTime(e.ThreatCalculatedAt),
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("exam %s already exists: %w", e.ID, err)
		}
		return fmt.Errorf("failed to create exam: %w", err)
	}

	return nil
}

// GetByID returns an exam by ID.
func (r *ExamRepository) GetByID(ctx context.Context, id string) (*exam.Exam, error) {
	query := `
		SELECT ` + examColumns + `
		FROM exams
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanExam(row)
}

// Update updates an exam.
func (r *ExamRepository) Update(ctx context.Context, e *exam.Exam) error {
	query := `
		UPDATE exams SET
			subject = $1,
			title = $2,
			exam_date = $3,
			topics = $4,
			threat_level = $5,
			progress = $6,
			predicted_outcome = $7,
			gap_analysis = $8,
			recommended_hours_total = $9,
			recommended_hours_daily = $10,
			threat_calculated_at = $11,
			updated_at = $12
		WHERE id = $13
	`

	result, err := r.conn.Exec(ctx, query,
		e.Subject.String(),
		e.Title,
		e.ExamDate,
		e.Topics,
		string(e.ThreatLevel),
		e.Progress,
		e.PredictedOutcome,
		e.GapAnalysis,
		e.RecommendedHoursTotal,
		e.RecommendedHoursDaily,
		nullableTime(e.ThreatCalculatedAt),
		time.Now().UTC(),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}

	if result.RowsAffected() == 0 {
		return exam.ErrExamNotFound
	}

	return nil
}

// UpdateThreat persists only the cached threat fields.
func (r *ExamRepository) UpdateThreat(ctx context.Context, e *exam.Exam) error {
	query := `
		UPDATE exams SET
			threat_level = $1,
			progress = $2,
			predicted_outcome = $3,
			gap_analysis = $4,
			recommended_hours_total = $5,
			recommended_hours_daily = $6,
			threat_calculated_at = $7,
			updated_at = $8
		WHERE id = $9
	`

	result, err := r.conn.Exec(ctx, query,
		string(e.ThreatLevel),
		e.Progress,
		e.PredictedOutcome,
		e.GapAnalysis,
		e.RecommendedHoursTotal,
		e.RecommendedHoursDaily,
		nullableTime(e.ThreatCalculatedAt),
		time.Now().UTC(),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update exam threat: %w", err)
	}

	if result.RowsAffected() == 0 {
		return exam.ErrExamNotFound
	}

	return nil
}

// Delete removes an exam.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM exams WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	if result.RowsAffected() == 0 {
		return exam.ErrExamNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// List Operations
// ─────────────────────────────────────────────────────────────────────────────

// ListUpcoming returns upcoming exams of a user, nearest first.
func (r *ExamRepository) ListUpcoming(ctx context.Context, userID string, now time.Time) ([]*exam.Exam, error) {
	query := `
		SELECT ` + examColumns + `
		FROM exams
		WHERE user_id = $1 AND exam_date > $2
		ORDER BY exam_date ASC
	`

	rows, err := r.conn.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming exams: %w", err)
	}
	defer rows.Close()

	return r.scanExams(rows)
}

// ListUpcomingAll returns upcoming exams of all users, nearest first.
func (r *ExamRepository) ListUpcomingAll(ctx context.Context, now time.Time) ([]*exam.Exam, error) {
	query := `
		SELECT ` + examColumns + `
		FROM exams
		WHERE exam_date > $1
		ORDER BY exam_date ASC
	`

	rows, err := r.conn.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list all upcoming exams: %w", err)
	}
	defer rows.Close()

	return r.scanExams(rows)
}

// ListWithin returns upcoming exams of a user within the horizon.
func (r *ExamRepository) ListWithin(ctx context.Context, userID string, now time.Time, horizon time.Duration) ([]*exam.Exam, error) {
	query := `
		SELECT ` + examColumns + `
		FROM exams
		WHERE user_id = $1 AND exam_date > $2 AND exam_date <= $3
		ORDER BY exam_date ASC
	`

	rows, err := r.conn.Query(ctx, query, userID, now, now.Add(horizon))
	if err != nil {
		return nil, fmt.Errorf("failed to list exams within horizon: %w", err)
	}
	defer rows.Close()

	return r.scanExams(rows)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanExam scans a single exam from a row.
func (r *ExamRepository) scanExam(row pgx.Row) (*exam.Exam, error) {
	var e exam.Exam
	var subject, threatLevel string
	var threatCalculatedAt *time.Time

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&subject,
		&e.Title,
		&e.ExamDate,
		&e.Topics,
		&threatLevel,
		&e.Progress,
		&e.PredictedOutcome,
		&e.GapAnalysis,
		&e.RecommendedHoursTotal,
		&e.RecommendedHoursDaily,
		&threatCalculatedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, exam.ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan exam: %w", err)
	}

	e.Subject = shared.Subject(subject)
	e.ThreatLevel = exam.ThreatLevel(threatLevel)
	if threatCalculatedAt != nil {
		e.ThreatCalculatedAt = *threatCalculatedAt
	}

	return &e, nil
}

// scanExams scans multiple exams from rows.
func (r *ExamRepository) scanExams(rows pgx.Rows) ([]*exam.Exam, error) {
	var exams []*exam.Exam

	for rows.Next() {
		var e exam.Exam
		var subject, threatLevel string
		var threatCalculatedAt *time.Time

		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&subject,
			&e.Title,
			&e.ExamDate,
			&e.Topics,
			&threatLevel,
			&e.Progress,
			&e.PredictedOutcome,
			&e.GapAnalysis,
			&e.RecommendedHoursTotal,
			&e.RecommendedHoursDaily,
			&threatCalculatedAt,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exam: %w", err)
		}

		e.Subject = shared.Subject(subject)
		e.ThreatLevel = exam.ThreatLevel(threatLevel)
		if threatCalculatedAt != nil {
			e.ThreatCalculatedAt = *threatCalculatedAt
		}

		exams = append(exams, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return exams, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ALERT LOG IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ExamAlertLog implements exam.AlertLog for PostgreSQL.
// The (exam_id, threshold_days) primary key makes MarkSent idempotent, so
// the hourly threshold job never double-fires an alert.
type ExamAlertLog struct {
	conn *Connection
}

// NewExamAlertLog creates a new ExamAlertLog.
func NewExamAlertLog(conn *Connection) *ExamAlertLog {
	return &ExamAlertLog{conn: conn}
}

// WasSent checks whether an alert for the exam at this threshold was sent.
func (l *ExamAlertLog) WasSent(ctx context.Context, examID string, thresholdDays int) (bool, error) {
	var exists bool
	err := l.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM exam_alert_log WHERE exam_id = $1 AND threshold_days = $2)",
		examID, thresholdDays,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check alert log: %w", err)
	}
	return exists, nil
}

// MarkSent records that an alert was sent.
func (l *ExamAlertLog) MarkSent(ctx context.Context, examID string, thresholdDays int, at time.Time) error {
	query := `
		INSERT INTO exam_alert_log (exam_id, threshold_days, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (exam_id, threshold_days) DO NOTHING
	`

	_, err := l.conn.Exec(ctx, query, examID, thresholdDays, at)
	if err != nil {
		return fmt.Errorf("failed to mark alert sent: %w", err)
	}
	return nil
}
