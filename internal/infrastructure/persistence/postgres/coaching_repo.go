// Package postgres implements the PostgreSQL persistence layer for Cortex
// Study Hub.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/coaching"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// COACHING REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CoachingRepository implements coaching.Repository for PostgreSQL.
type CoachingRepository struct {
	conn *Connection
}

// NewCoachingRepository creates a new CoachingRepository.
func NewCoachingRepository(conn *Connection) *CoachingRepository {
	return &CoachingRepository{conn: conn}
}

const coachingColumns = `id, user_id, message_type, priority, status, title, body, actions,
	   total_minutes, daily_minutes, predicted_gain, breakdown, expires_at,
	   created_at, updated_at`

const coachingInsert = `
	INSERT INTO coaching_messages (
		id, user_id, message_type, priority, status, title, body, actions,
		total_minutes, daily_minutes, predicted_gain, breakdown, expires_at,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`

// ─────────────────────────────────────────────────────────────────────────────
// Write Operations
// ─────────────────────────────────────────────────────────────────────────────

// ReplaceActive atomically swaps the active message set of a user: the
// current active messages are deleted and the new batch inserted in one
// transaction, so a reader never sees a mixed set.
func (r *CoachingRepository) ReplaceActive(ctx context.Context, userID string, messages []*coaching.Message) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"DELETE FROM coaching_messages WHERE user_id = $1 AND status = 'active'",
			userID,
		)
		if err != nil {
			return fmt.Errorf("failed to clear active coaching messages: %w", err)
		}

		for _, m := range messages {
			args, err := coachingInsertArgs(m)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, coachingInsert, args...); err != nil {
				return fmt.Errorf("failed to insert coaching message %s: %w", m.ID, err)
			}
		}

		return nil
	})
}

// Create stores a single message on top of the active set. Threshold alerts
// and briefs are additive, they must not wipe generated plans.
func (r *CoachingRepository) Create(ctx context.Context, m *coaching.Message) error {
	args, err := coachingInsertArgs(m)
	if err != nil {
		return err
	}

	if _, err := r.conn.Exec(ctx, coachingInsert, args...); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("coaching message %s already exists: %w", m.ID, err)
		}
		return fmt.Errorf("failed to create coaching message: %w", err)
	}

	return nil
}

// UpdateStatus persists a changed message status.
func (r *CoachingRepository) UpdateStatus(ctx context.Context, m *coaching.Message) error {
	query := `
		UPDATE coaching_messages
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.conn.Exec(ctx, query, string(m.Status), time.Now().UTC(), m.ID)
	if err != nil {
		return fmt.Errorf("failed to update coaching message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return coaching.ErrMessageNotFound
	}

	return nil
}

// DeleteExpired removes expired messages of all users.
func (r *CoachingRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.conn.Exec(ctx, "DELETE FROM coaching_messages WHERE expires_at <= $1", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired coaching messages: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Read Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns a message by ID.
func (r *CoachingRepository) GetByID(ctx context.Context, id string) (*coaching.Message, error) {
	query := `
		SELECT ` + coachingColumns + `
		FROM coaching_messages
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanMessage(row)
}

// ListActive returns the active, unexpired messages of a user, sorted by
// priority (high first), then by creation time (newest first).
func (r *CoachingRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]*coaching.Message, error) {
	query := `
		SELECT ` + coachingColumns + `
		FROM coaching_messages
		WHERE user_id = $1 AND status = 'active' AND expires_at > $2
		ORDER BY
			CASE priority
				WHEN 'high' THEN 0
				WHEN 'medium' THEN 1
				ELSE 2
			END,
			created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active coaching messages: %w", err)
	}
	defer rows.Close()

	return r.scanMessages(rows)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// coachingInsertArgs builds the insert argument list for a message.
func coachingInsertArgs(m *coaching.Message) ([]interface{}, error) {
	actionsJSON, err := json.Marshal(m.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal coaching actions: %w", err)
	}

	breakdown := m.Breakdown
	if breakdown == nil {
		breakdown = []string{}
	}

	return []interface{}{
		m.ID,
		m.UserID,
		string(m.Type),
		string(m.Priority),
		string(m.Status),
		m.Title,
		m.Body,
		actionsJSON,
		m.TotalMinutes,
		m.DailyMinutes,
		m.PredictedGain,
		breakdown,
		m.ExpiresAt,
		m.CreatedAt,
		m.UpdatedAt,
	}, nil
}

// scanMessage scans a single message from a row.
func (r *CoachingRepository) scanMessage(row pgx.Row) (*coaching.Message, error) {
	var m coaching.Message
	var messageType, priority, status string
	var actionsJSON []byte

	err := row.Scan(
		&m.ID,
		&m.UserID,
		&messageType,
		&priority,
		&status,
		&m.Title,
		&m.Body,
		&actionsJSON,
		&m.TotalMinutes,
		&m.DailyMinutes,
		&m.PredictedGain,
		&m.Breakdown,
		&m.ExpiresAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, coaching.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan coaching message: %w", err)
	}

	m.Type = coaching.MessageType(messageType)
	m.Priority = coaching.Priority(priority)
	m.Status = coaching.Status(status)
	if len(actionsJSON) > 0 {
		_ = json.Unmarshal(actionsJSON, &m.Actions)
	}

	return &m, nil
}

// scanMessages scans multiple messages from rows.
func (r *CoachingRepository) scanMessages(rows pgx.Rows) ([]*coaching.Message, error) {
	var messages []*coaching.Message

	for rows.Next() {
		var m coaching.Message
		var messageType, priority, status string
		var actionsJSON []byte

		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&messageType,
			&priority,
			&status,
			&m.Title,
			&m.Body,
			&actionsJSON,
			&m.TotalMinutes,
			&m.DailyMinutes,
			&m.PredictedGain,
			&m.Breakdown,
			&m.ExpiresAt,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coaching message: %w", err)
		}

		m.Type = coaching.MessageType(messageType)
		m.Priority = coaching.Priority(priority)
		m.Status = coaching.Status(status)
		if len(actionsJSON) > 0 {
			_ = json.Unmarshal(actionsJSON, &m.Actions)
		}

		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return messages, nil
}
