package coaching

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции для работы с коучинг-сообщениями.
type Repository interface {
	// ReplaceActive атомарно заменяет активный набор сообщений пользователя:
	// удаляет текущие активные и вставляет новые в одной транзакции.
	ReplaceActive(ctx context.Context, userID string, messages []*Message) error

	// Create сохраняет одно сообщение (пороговые алерты и сводки добавляются
	// поверх активного набора, не заменяя его).
	Create(ctx context.Context, m *Message) error

	// GetByID возвращает сообщение по ID.
	// Возвращает ErrMessageNotFound, если сообщение не найдено.
	GetByID(ctx context.Context, id string) (*Message, error)

	// ListActive возвращает активные неистёкшие сообщения пользователя,
	// отсортированные по приоритету, затем по времени создания (новые первыми).
	ListActive(ctx context.Context, userID string, now time.Time) ([]*Message, error)

	// UpdateStatus сохраняет изменённый статус сообщения.
	UpdateStatus(ctx context.Context, m *Message) error

	// DeleteExpired удаляет истёкшие сообщения всех пользователей.
	// Возвращает количество удалённых строк.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
