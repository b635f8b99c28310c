package mastery

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции для работы с владением темами.
type Repository interface {
	// Upsert создаёт или обновляет запись по ключу (user, subject, topic).
	Upsert(ctx context.Context, m *TopicMastery) error

	// GetByTopic возвращает запись по ключу (user, subject, topic).
	// Возвращает ErrMasteryNotFound, если записи нет.
	GetByTopic(ctx context.Context, userID, subject, topic string) (*TopicMastery, error)

	// GetByID возвращает запись по ID.
	GetByID(ctx context.Context, id string) (*TopicMastery, error)

	// ListByUser возвращает все записи пользователя.
	ListByUser(ctx context.Context, userID string) ([]*TopicMastery, error)

	// ListWeak возвращает слабые темы пользователя (score < threshold).
	ListWeak(ctx context.Context, userID string, threshold int) ([]*TopicMastery, error)

	// ListDueForReview возвращает темы, которым пора на повторение.
	ListDueForReview(ctx context.Context, userID string, now time.Time) ([]*TopicMastery, error)

	// Update сохраняет изменённую запись.
	Update(ctx context.Context, m *TopicMastery) error

	// Delete удаляет запись.
	Delete(ctx context.Context, id string) error
}
