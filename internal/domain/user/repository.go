package user

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет основные операции CRUD для пользователей.
type Repository interface {
	// Create создаёт нового пользователя.
	// Возвращает ErrUserAlreadyExists, если пользователь уже существует.
	Create(ctx context.Context, u *User) error

	// GetByID возвращает пользователя по ID.
	// Возвращает ErrUserNotFound, если пользователь не найден.
	GetByID(ctx context.Context, id string) (*User, error)

	// Update обновляет данные пользователя.
	// Возвращает ErrUserNotFound, если пользователь не найден.
	Update(ctx context.Context, u *User) error

	// Delete удаляет пользователя (soft delete).
	Delete(ctx context.Context, id string) error

	// ListAll возвращает всех пользователей с пагинацией.
	ListAll(ctx context.Context, opts ListOptions) ([]*User, error)

	// ListCoachingEnabled возвращает пользователей с включённым коучингом.
	ListCoachingEnabled(ctx context.Context) ([]*User, error)

	// ListNudgesEnabled возвращает пользователей с включёнными напоминаниями.
	ListNudgesEnabled(ctx context.Context) ([]*User, error)

	// ListBriefEnabled возвращает пользователей с включённой утренней сводкой.
	ListBriefEnabled(ctx context.Context) ([]*User, error)

	// ListStale возвращает пользователей без сессий дольше указанного срока.
	ListStale(ctx context.Context, threshold time.Duration) ([]*User, error)

	// Count возвращает общее количество пользователей.
	Count(ctx context.Context) (int, error)

	// Exists проверяет существование пользователя по ID.
	Exists(ctx context.Context, id string) (bool, error)
}

// ListOptions содержит параметры для пагинации и сортировки.
type ListOptions struct {
	// Offset - смещение (для пагинации).
	Offset int

	// Limit - максимальное количество записей.
	Limit int
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset: 0,
		Limit:  100,
	}
}
