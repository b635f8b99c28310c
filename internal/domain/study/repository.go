package study

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository определяет операции для работы с учебными сессиями.
type SessionRepository interface {
	// Create сохраняет новую сессию.
	Create(ctx context.Context, session *Session) error

	// GetByID возвращает сессию по ID.
	// Возвращает ErrSessionNotFound, если сессия не найдена.
	GetByID(ctx context.Context, id string) (*Session, error)

	// ListRecent возвращает последние N сессий пользователя (новые первыми).
	ListRecent(ctx context.Context, userID string, limit int) ([]*Session, error)

	// ListSince возвращает сессии пользователя, начавшиеся не раньше from
	// (новые первыми).
	ListSince(ctx context.Context, userID string, from time.Time) ([]*Session, error)

	// ListRange возвращает сессии пользователя в диапазоне [from, to).
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]*Session, error)

	// LastBySubject возвращает время последней сессии по каждому предмету.
	LastBySubject(ctx context.Context, userID string) (map[string]time.Time, error)

	// CountByUser возвращает количество сессий пользователя.
	CountByUser(ctx context.Context, userID string) (int, error)

	// Delete удаляет сессию.
	Delete(ctx context.Context, id string) error
}

// MemoryRepository определяет операции для работы с текстовыми заметками.
type MemoryRepository interface {
	// Save сохраняет новую заметку.
	Save(ctx context.Context, text *MemoryText) error

	// ListRecent возвращает последние N заметок пользователя (новые первыми).
	ListRecent(ctx context.Context, userID string, limit int) ([]*MemoryText, error)

	// ListSince возвращает заметки пользователя с указанного момента.
	ListSince(ctx context.Context, userID string, from time.Time) ([]*MemoryText, error)

	// DeleteOlderThan удаляет заметки старше указанного срока.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
