package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand содержит данные нового пользователя.
type RegisterUserCommand struct {
	// DisplayName - отображаемое имя.
	DisplayName string

	// Timezone - IANA-таймзона (пустая = UTC).
	Timezone string
}

// Validate проверяет корректность команды.
func (c RegisterUserCommand) Validate() error {
	if strings.TrimSpace(c.DisplayName) == "" {
		return errors.New("register_user: display_name must be provided")
	}
	return nil
}

// RegisterUserHandler обрабатывает регистрацию пользователя.
type RegisterUserHandler struct {
	userRepo user.Repository
}

// NewRegisterUserHandler создаёт новый обработчик.
func NewRegisterUserHandler(userRepo user.Repository) *RegisterUserHandler {
	return &RegisterUserHandler{userRepo: userRepo}
}

// Handle выполняет команду.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*user.User, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("user", "Register", shared.ErrValidation, "invalid command", err)
	}

	u, err := user.NewUser(user.NewUserParams{
		ID:          uuid.NewString(),
		DisplayName: cmd.DisplayName,
		Timezone:    user.Timezone(cmd.Timezone),
	})
	if err != nil {
		return nil, shared.WrapError("user", "Register", shared.ErrValidation, "invalid user", err)
	}

	if err := h.userRepo.Create(ctx, u); err != nil {
		return nil, shared.WrapError("user", "Register", shared.ErrExternalService, "failed to save user", err)
	}
	return u, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE SETTINGS COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateSettingsCommand меняет настройки аналитики и коучинга.
type UpdateSettingsCommand struct {
	// UserID - кого обновляем.
	UserID string

	// Settings - новые настройки целиком.
	Settings user.Settings

	// Timezone - новая таймзона (пустая = без изменений).
	Timezone string
}

// UpdateSettingsHandler обрабатывает смену настроек.
type UpdateSettingsHandler struct {
	userRepo user.Repository
}

// NewUpdateSettingsHandler создаёт новый обработчик.
func NewUpdateSettingsHandler(userRepo user.Repository) *UpdateSettingsHandler {
	return &UpdateSettingsHandler{userRepo: userRepo}
}

// Handle выполняет команду.
func (h *UpdateSettingsHandler) Handle(ctx context.Context, cmd UpdateSettingsCommand) (*user.User, error) {
	if cmd.UserID == "" {
		return nil, shared.WrapError("user", "UpdateSettings", shared.ErrValidation, "user_id must be provided", nil)
	}

	u, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, shared.WrapError("user", "UpdateSettings", shared.ErrNotFound, "user not found", err)
	}

	if cmd.Timezone != "" {
		tz := user.Timezone(cmd.Timezone)
		if !tz.IsValid() {
			return nil, shared.ErrInvalidTimezone
		}
		u.Timezone = tz
	}

	if err := u.UpdateSettings(cmd.Settings); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()

	if err := h.userRepo.Update(ctx, u); err != nil {
		return nil, shared.WrapError("user", "UpdateSettings", shared.ErrExternalService, "failed to save user", err)
	}
	return u, nil
}
