// Package postgres implements the PostgreSQL persistence layer for Cortex
// Study Hub.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `id, display_name, timezone, settings, last_session_at, created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, display_name, timezone, settings, last_session_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	settingsJSON, err := json.Marshal(settingsToMap(u.Settings))
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		u.ID,
		u.DisplayName,
		u.Timezone.String(),
		settingsJSON,
		nullableTime(u.LastSessionAt),
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return user.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by internal ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanUser(row)
}

// Update updates a user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			display_name = $1,
			timezone = $2,
			settings = $3,
			last_session_at = $4,
			updated_at = $5
		WHERE id = $6 AND deleted_at IS NULL
	`

	settingsJSON, err := json.Marshal(settingsToMap(u.Settings))
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	result, err := r.conn.Exec(ctx, query,
		u.DisplayName,
		u.Timezone.String(),
		settingsJSON,
		nullableTime(u.LastSessionAt),
		time.Now().UTC(),
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

// Delete performs a soft delete on a user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := r.conn.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Operations
// ─────────────────────────────────────────────────────────────────────────────

// ListAll returns all users with pagination.
func (r *UserRepository) ListAll(ctx context.Context, opts user.ListOptions) ([]*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.conn.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// ListCoachingEnabled returns users with coaching enabled.
func (r *UserRepository) ListCoachingEnabled(ctx context.Context) ([]*user.User, error) {
	return r.listBySettingFlag(ctx, "coaching_enabled")
}

// ListNudgesEnabled returns users with nudges enabled.
func (r *UserRepository) ListNudgesEnabled(ctx context.Context) ([]*user.User, error) {
	return r.listBySettingFlag(ctx, "nudges_enabled")
}

// ListBriefEnabled returns users with the morning brief enabled.
func (r *UserRepository) ListBriefEnabled(ctx context.Context) ([]*user.User, error) {
	return r.listBySettingFlag(ctx, "daily_brief_enabled")
}

// ListStale returns users with no session for longer than the threshold.
// Users who never logged a session are excluded: there is nothing to drift from.
func (r *UserRepository) ListStale(ctx context.Context, threshold time.Duration) ([]*user.User, error) {
	cutoff := time.Now().UTC().Add(-threshold)

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL
		  AND last_session_at IS NOT NULL
		  AND last_session_at < $1
		ORDER BY last_session_at ASC
	`

	rows, err := r.conn.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale users: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE deleted_at IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// Exists checks if a user exists by ID.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)",
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// listBySettingFlag returns users whose settings flag is true.
func (r *UserRepository) listBySettingFlag(ctx context.Context, flag string) ([]*user.User, error) {
	query := fmt.Sprintf(`
		SELECT `+userColumns+`
		FROM users
		WHERE deleted_at IS NULL
		  AND COALESCE((settings->>'%s')::boolean, false)
		ORDER BY created_at ASC
	`, flag)

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by %s: %w", flag, err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// scanUser scans a single user from a row.
func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var timezone string
	var settingsJSON []byte
	var lastSession *time.Time

	err := row.Scan(
		&u.ID,
		&u.DisplayName,
		&timezone,
		&settingsJSON,
		&lastSession,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Timezone = user.Timezone(timezone)
	u.Settings = mapToSettings(settingsJSON)
	if lastSession != nil {
		u.LastSessionAt = *lastSession
	}

	return &u, nil
}

// scanUsers scans multiple users from rows.
func (r *UserRepository) scanUsers(rows pgx.Rows) ([]*user.User, error) {
	var users []*user.User

	for rows.Next() {
		var u user.User
		var timezone string
		var settingsJSON []byte
		var lastSession *time.Time

		err := rows.Scan(
			&u.ID,
			&u.DisplayName,
			&timezone,
			&settingsJSON,
			&lastSession,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		u.Timezone = user.Timezone(timezone)
		u.Settings = mapToSettings(settingsJSON)
		if lastSession != nil {
			u.LastSessionAt = *lastSession
		}

		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return users, nil
}

// nullableTime converts a zero time to a NULL-able pointer.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS CONVERSION
// ══════════════════════════════════════════════════════════════════════════════

// settingsToMap converts user.Settings to a map for JSON storage.
func settingsToMap(s user.Settings) map[string]interface{} {
	return map[string]interface{}{
		"weekly_goal_minutes":   s.WeeklyGoalMinutes,
		"weekly_target_minutes": s.WeeklyTargetMinutes,
		"coaching_enabled":      s.CoachingEnabled,
		"nudges_enabled":        s.NudgesEnabled,
		"daily_brief_enabled":   s.DailyBriefEnabled,
	}
}

// mapToSettings converts JSON bytes to user.Settings.
func mapToSettings(data []byte) user.Settings {
	settings := user.DefaultSettings()

	if len(data) == 0 {
		return settings
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return settings
	}

	if v, ok := m["weekly_goal_minutes"].(float64); ok {
		settings.WeeklyGoalMinutes = int(v)
	}
	if v, ok := m["weekly_target_minutes"].(float64); ok {
		settings.WeeklyTargetMinutes = int(v)
	}
	if v, ok := m["coaching_enabled"].(bool); ok {
		settings.CoachingEnabled = v
	}
	if v, ok := m["nudges_enabled"].(bool); ok {
		settings.NudgesEnabled = v
	}
	if v, ok := m["daily_brief_enabled"].(bool); ok {
		settings.DailyBriefEnabled = v
	}

	return settings
}
