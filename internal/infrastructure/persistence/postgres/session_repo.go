// Package postgres implements the PostgreSQL persistence layer for Cortex
// Study Hub.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/study"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements study.SessionRepository for PostgreSQL.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

const sessionColumns = `id, user_id, subject, topic, started_at, minutes, effectiveness, note, created_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new study session.
func (r *SessionRepository) Create(ctx context.Context, session *study.Session) error {
	query := `
		INSERT INTO study_sessions (id, user_id, subject, topic, started_at, minutes, effectiveness, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Subject.String(),
		session.Topic.String(),
		session.StartedAt,
		session.Minutes.Int(),
		session.Effectiveness.Int(),
		session.Note,
		session.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("session %s already exists: %w", session.ID, err)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID returns a session by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*study.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM study_sessions
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanSession(row)
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM study_sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return study.ErrSessionNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// List Operations
// ─────────────────────────────────────────────────────────────────────────────

// ListRecent returns the most recent sessions of a user, newest first.
func (r *SessionRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*study.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM study_sessions
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent sessions: %w", err)
	}
	defer rows.Close()

	return r.scanSessions(rows)
}

// ListSince returns sessions started at or after the given moment, newest first.
func (r *SessionRepository) ListSince(ctx context.Context, userID string, from time.Time) ([]*study.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM study_sessions
		WHERE user_id = $1 AND started_at >= $2
		ORDER BY started_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions since %s: %w", from.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return r.scanSessions(rows)
}

// ListRange returns sessions within [from, to), newest first.
func (r *SessionRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]*study.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM study_sessions
		WHERE user_id = $1 AND started_at >= $2 AND started_at < $3
		ORDER BY started_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions in range: %w", err)
	}
	defer rows.Close()

	return r.scanSessions(rows)
}

// LastBySubject returns the last session time per subject.
func (r *SessionRepository) LastBySubject(ctx context.Context, userID string) (map[string]time.Time, error) {
	query := `
		SELECT subject, MAX(started_at)
		FROM study_sessions
		WHERE user_id = $1
		GROUP BY subject
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query last sessions by subject: %w", err)
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var subject string
		var lastAt time.Time
		if err := rows.Scan(&subject, &lastAt); err != nil {
			return nil, fmt.Errorf("failed to scan last session by subject: %w", err)
		}
		result[subject] = lastAt
	}

	return result, rows.Err()
}

// CountByUser returns the number of sessions logged by a user.
func (r *SessionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM study_sessions WHERE user_id = $1",
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanSession scans a single session from a row.
func (r *SessionRepository) scanSession(row pgx.Row) (*study.Session, error) {
	var s study.Session
	var subject, topic string
	var minutes, effectiveness int

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&subject,
		&topic,
		&s.StartedAt,
		&minutes,
		&effectiveness,
		&s.Note,
		&s.CreatedAt,
	)

	if IsNoRows(err) {
		return nil, study.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	s.Subject = shared.Subject(subject)
	s.Topic = shared.Topic(topic)
	s.Minutes = shared.Minutes(minutes)
	s.Effectiveness = shared.Effectiveness(effectiveness)

	return &s, nil
}

// scanSessions scans multiple sessions from rows.
func (r *SessionRepository) scanSessions(rows pgx.Rows) ([]*study.Session, error) {
	var sessions []*study.Session

	for rows.Next() {
		var s study.Session
		var subject, topic string
		var minutes, effectiveness int

		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&subject,
			&topic,
			&s.StartedAt,
			&minutes,
			&effectiveness,
			&s.Note,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		s.Subject = shared.Subject(subject)
		s.Topic = shared.Topic(topic)
		s.Minutes = shared.Minutes(minutes)
		s.Effectiveness = shared.Effectiveness(effectiveness)

		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sessions, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMORY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MemoryRepository implements study.MemoryRepository for PostgreSQL.
type MemoryRepository struct {
	conn *Connection
}

// NewMemoryRepository creates a new MemoryRepository.
func NewMemoryRepository(conn *Connection) *MemoryRepository {
	return &MemoryRepository{conn: conn}
}

// Save stores a new memory text.
func (r *MemoryRepository) Save(ctx context.Context, text *study.MemoryText) error {
	query := `
		INSERT INTO memory_texts (id, user_id, body, source_session_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	var sourceID *string
	if text.SourceSessionID != "" {
		sourceID = &text.SourceSessionID
	}

	_, err := r.conn.Exec(ctx, query,
		text.ID,
		text.UserID,
		text.Text,
		sourceID,
		text.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save memory text: %w", err)
	}

	return nil
}

// ListRecent returns the most recent memory texts of a user, newest first.
func (r *MemoryRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*study.MemoryText, error) {
	query := `
		SELECT id, user_id, body, COALESCE(source_session_id::text, ''), created_at
		FROM memory_texts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent memory texts: %w", err)
	}
	defer rows.Close()

	return r.scanMemoryTexts(rows)
}

// ListSince returns memory texts created at or after the given moment.
func (r *MemoryRepository) ListSince(ctx context.Context, userID string, from time.Time) ([]*study.MemoryText, error) {
	query := `
		SELECT id, user_id, body, COALESCE(source_session_id::text, ''), created_at
		FROM memory_texts
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list memory texts since %s: %w", from.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return r.scanMemoryTexts(rows)
}

// DeleteOlderThan removes memory texts created before the cutoff.
func (r *MemoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.conn.Exec(ctx, "DELETE FROM memory_texts WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old memory texts: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// scanMemoryTexts scans multiple memory texts from rows.
func (r *MemoryRepository) scanMemoryTexts(rows pgx.Rows) ([]*study.MemoryText, error) {
	var texts []*study.MemoryText

	for rows.Next() {
		var t study.MemoryText
		err := rows.Scan(&t.ID, &t.UserID, &t.Text, &t.SourceSessionID, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory text: %w", err)
		}
		texts = append(texts, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return texts, nil
}
