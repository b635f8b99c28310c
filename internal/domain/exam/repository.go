package exam

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции для работы с экзаменами.
type Repository interface {
	// Create сохраняет новый экзамен.
	Create(ctx context.Context, e *Exam) error

	// GetByID возвращает экзамен по ID.
	// Возвращает ErrExamNotFound, если экзамен не найден.
	GetByID(ctx context.Context, id string) (*Exam, error)

	// Update обновляет данные экзамена.
	Update(ctx context.Context, e *Exam) error

	// UpdateThreat сохраняет только кешированные поля угрозы.
	UpdateThreat(ctx context.Context, e *Exam) error

	// Delete удаляет экзамен.
	Delete(ctx context.Context, id string) error

	// ListUpcoming возвращает предстоящие экзамены пользователя
	// (ближайшие первыми).
	ListUpcoming(ctx context.Context, userID string, now time.Time) ([]*Exam, error)

	// ListUpcomingAll возвращает предстоящие экзамены всех пользователей
	// (для почасовой джобы порогов).
	ListUpcomingAll(ctx context.Context, now time.Time) ([]*Exam, error)

	// ListWithin возвращает экзамены пользователя в пределах горизонта.
	ListWithin(ctx context.Context, userID string, now time.Time, horizon time.Duration) ([]*Exam, error)
}

// AlertLog фиксирует уже отправленные пороговые алерты, чтобы почасовая
// джоба не дублировала их в течение дня.
type AlertLog interface {
	// WasSent проверяет, отправлялся ли алерт для экзамена на этом пороге.
	WasSent(ctx context.Context, examID string, thresholdDays int) (bool, error)

	// MarkSent фиксирует отправку алерта.
	MarkSent(ctx context.Context, examID string, thresholdDays int, at time.Time) error
}
