// Package postgres implements the PostgreSQL persistence layer for Cortex
// Study Hub.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MasteryRepository implements mastery.Repository for PostgreSQL.
// Row identity is (user_id, LOWER(subject), LOWER(topic)); the unique index
// turns concurrent first-session inserts into a conflict the caller retries.
type MasteryRepository struct {
	conn *Connection
}

// NewMasteryRepository creates a new MasteryRepository.
func NewMasteryRepository(conn *Connection) *MasteryRepository {
	return &MasteryRepository{conn: conn}
}

const masteryColumns = `id, user_id, subject, topic, score, confidence, session_count,
	   last_studied_at, easiness, interval_days, repetitions, next_review_at,
	   created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Upsert inserts a new mastery row. When another writer created the row for
// the same (user, subject, topic) first, it returns a conflict error so the
// caller can re-fetch and apply its update to the winning row.
func (r *MasteryRepository) Upsert(ctx context.Context, m *mastery.TopicMastery) error {
	query := `
		INSERT INTO topic_mastery (
			id, user_id, subject, topic, score, confidence, session_count,
			last_studied_at, easiness, interval_days, repetitions, next_review_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, LOWER(subject), LOWER(topic)) DO NOTHING
	`

	result, err := r.conn.Exec(ctx, query,
		m.ID,
		m.UserID,
		m.Subject.String(),
		m.Topic,
		m.Score.Int(),
		m.Confidence.Int(),
		m.SessionCount,
		nullableTime(m.LastStudiedAt),
		m.Easiness,
		m.IntervalDays,
		m.Repetitions,
		nullableTime(m.NextReviewAt),
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert topic mastery: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrMasteryUpdateRaced
	}

	return nil
}

// GetByTopic returns a row by (user, subject, topic), case-insensitive.
func (r *MasteryRepository) GetByTopic(ctx context.Context, userID, subject, topic string) (*mastery.TopicMastery, error) {
	query := `
		SELECT ` + masteryColumns + `
		FROM topic_mastery
		WHERE user_id = $1 AND LOWER(subject) = LOWER($2) AND LOWER(topic) = LOWER($3)
	`

	row := r.conn.QueryRow(ctx, query, userID, subject, topic)
	return r.scanMastery(row)
}

// GetByID returns a row by ID.
func (r *MasteryRepository) GetByID(ctx context.Context, id string) (*mastery.TopicMastery, error) {
	query := `
		SELECT ` + masteryColumns + `
		FROM topic_mastery
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanMastery(row)
}

// Update persists a modified row.
func (r *MasteryRepository) Update(ctx context.Context, m *mastery.TopicMastery) error {
	query := `
		UPDATE topic_mastery SET
			score = $1,
			confidence = $2,
			session_count = $3,
			last_studied_at = $4,
			easiness = $5,
			interval_days = $6,
			repetitions = $7,
			next_review_at = $8,
			updated_at = $9
		WHERE id = $10
	`

	result, err := r.conn.Exec(ctx, query,
		m.Score.Int(),
		m.Confidence.Int(),
		m.SessionCount,
		nullableTime(m.LastStudiedAt),
		m.Easiness,
		m.IntervalDays,
		m.Repetitions,
		nullableTime(m.NextReviewAt),
		time.Now().UTC(),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update topic mastery: %w", err)
	}

	if result.RowsAffected() == 0 {
		return mastery.ErrMasteryNotFound
	}

	return nil
}

// Delete removes a row.
func (r *MasteryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM topic_mastery WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete topic mastery: %w", err)
	}

	if result.RowsAffected() == 0 {
		return mastery.ErrMasteryNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// List Operations
// ─────────────────────────────────────────────────────────────────────────────

// ListByUser returns all mastery rows of a user.
func (r *MasteryRepository) ListByUser(ctx context.Context, userID string) ([]*mastery.TopicMastery, error) {
	query := `
		SELECT ` + masteryColumns + `
		FROM topic_mastery
		WHERE user_id = $1
		ORDER BY score ASC, topic ASC
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topic mastery: %w", err)
	}
	defer rows.Close()

	return r.scanMasteries(rows)
}

// ListWeak returns rows with score below the threshold, weakest first.
func (r *MasteryRepository) ListWeak(ctx context.Context, userID string, threshold int) ([]*mastery.TopicMastery, error) {
	query := `
		SELECT ` + masteryColumns + `
		FROM topic_mastery
		WHERE user_id = $1 AND score < $2
		ORDER BY score ASC
	`

	rows, err := r.conn.Query(ctx, query, userID, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list weak topics: %w", err)
	}
	defer rows.Close()

	return r.scanMasteries(rows)
}

// ListDueForReview returns rows whose next review time has passed, most
// overdue first.
func (r *MasteryRepository) ListDueForReview(ctx context.Context, userID string, now time.Time) ([]*mastery.TopicMastery, error) {
	query := `
		SELECT ` + masteryColumns + `
		FROM topic_mastery
		WHERE user_id = $1 AND next_review_at IS NOT NULL AND next_review_at <= $2
		ORDER BY next_review_at ASC
	`

	rows, err := r.conn.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics due for review: %w", err)
	}
	defer rows.Close()

	return r.scanMasteries(rows)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanMastery scans a single mastery row.
func (r *MasteryRepository) scanMastery(row pgx.Row) (*mastery.TopicMastery, error) {
	var m mastery.TopicMastery
	var subject string
	var score, confidence int
	var lastStudied, nextReview *time.Time

	err := row.Scan(
		&m.ID,
		&m.UserID,
		&subject,
		&m.Topic,
		&score,
		&confidence,
		&m.SessionCount,
		&lastStudied,
		&m.Easiness,
		&m.IntervalDays,
		&m.Repetitions,
		&nextReview,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, mastery.ErrMasteryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan topic mastery: %w", err)
	}

	m.Subject = shared.Subject(subject)
	m.Score = shared.Score(score)
	m.Confidence = shared.Score(confidence)
	if lastStudied != nil {
		m.LastStudiedAt = *lastStudied
	}
	if nextReview != nil {
		m.NextReviewAt = *nextReview
	}

	return &m, nil
}

// scanMasteries scans multiple mastery rows.
func (r *MasteryRepository) scanMasteries(rows pgx.Rows) ([]*mastery.TopicMastery, error) {
	var result []*mastery.TopicMastery

	for rows.Next() {
		var m mastery.TopicMastery
		var subject string
		var score, confidence int
		var lastStudied, nextReview *time.Time

		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&subject,
			&m.Topic,
			&score,
			&confidence,
			&m.SessionCount,
			&lastStudied,
			&m.Easiness,
			&m.IntervalDays,
			&m.Repetitions,
			&nextReview,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic mastery: %w", err)
		}

		m.Subject = shared.Subject(subject)
		m.Score = shared.Score(score)
		m.Confidence = shared.Score(confidence)
		if lastStudied != nil {
			m.LastStudiedAt = *lastStudied
		}
		if nextReview != nil {
			m.NextReviewAt = *nextReview
		}

		result = append(result, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
