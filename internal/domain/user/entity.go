// Package user содержит доменную модель пользователя трекера учёбы.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package user

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Timezone представляет IANA-таймзону пользователя (например, "Asia/Almaty").
type Timezone string

// IsValid проверяет, что таймзона загружается стандартной библиотекой.
func (tz Timezone) IsValid() bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(string(tz))
	return err == nil
}

// String возвращает строковое представление таймзоны.
func (tz Timezone) String() string {
	return string(tz)
}

// Location возвращает *time.Location; UTC при некорректном значении.
func (tz Timezone) Location() *time.Location {
	loc, err := time.LoadLocation(string(tz))
	if err != nil {
		return time.UTC
	}
	return loc
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

// Значения по умолчанию для целей пользователя.
const (
	// DefaultWeeklyGoalMinutes - недельная цель для расчёта консистентности.
	DefaultWeeklyGoalMinutes = 600

	// DefaultWeeklyTargetMinutes - недельный таргет, показываемый в интел-сводке.
	DefaultWeeklyTargetMinutes = 1200
)

// Settings содержит настройки пользователя, влияющие на аналитику и коучинг.
type Settings struct {
	// WeeklyGoalMinutes - недельная цель в минутах (для consistency score).
	WeeklyGoalMinutes int

	// WeeklyTargetMinutes - недельный таргет в минутах (для интел-сводки).
	WeeklyTargetMinutes int

	// CoachingEnabled - генерировать ли коучинг-планы.
	CoachingEnabled bool

	// NudgesEnabled - отправлять ли напоминания в течение дня.
	NudgesEnabled bool

	// DailyBriefEnabled - отправлять ли утреннюю интел-сводку.
	DailyBriefEnabled bool
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		WeeklyGoalMinutes:   DefaultWeeklyGoalMinutes,
		WeeklyTargetMinutes: DefaultWeeklyTargetMinutes,
		CoachingEnabled:     true,
		NudgesEnabled:       true,
		DailyBriefEnabled:   true,
	}
}

// GoalOrDefault возвращает недельную цель, подставляя дефолт при нуле.
func (s Settings) GoalOrDefault() int {
	if s.WeeklyGoalMinutes <= 0 {
		return DefaultWeeklyGoalMinutes
	}
	return s.WeeklyGoalMinutes
}

// TargetOrDefault возвращает недельный таргет, подставляя дефолт при нуле.
func (s Settings) TargetOrDefault() int {
	if s.WeeklyTargetMinutes <= 0 {
		return DefaultWeeklyTargetMinutes
	}
	return s.WeeklyTargetMinutes
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User - центральная сущность системы: человек, чью учёбу мы анализируем.
type User struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// DisplayName - отображаемое имя.
	DisplayName string

	// Timezone - таймзона пользователя для локального расписания джоб.
	Timezone Timezone

	// Settings - настройки аналитики и коучинга.
	Settings Settings

	// LastSessionAt - время последней залогированной сессии.
	LastSessionAt time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidTimezone - невалидная IANA-таймзона.
	ErrInvalidTimezone = errors.New("invalid timezone: must be a loadable IANA name")

	// ErrInvalidDisplayName - невалидное отображаемое имя.
	ErrInvalidDisplayName = errors.New("invalid display name: must be 1-100 chars")

	// ErrInvalidWeeklyGoal - невалидная недельная цель.
	ErrInvalidWeeklyGoal = errors.New("invalid weekly goal: must be positive minutes")

	// ErrUserNotFound - пользователь не найден.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists - пользователь уже существует.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewUserParams содержит параметры для создания нового пользователя.
type NewUserParams struct {
	ID          string
	DisplayName string
	Timezone    Timezone
}

// NewUser создаёт нового пользователя с валидацией всех полей.
func NewUser(params NewUserParams) (*User, error) {
	if params.ID == "" {
		return nil, errors.New("user id is required")
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if len(displayName) == 0 || len(displayName) > 100 {
		return nil, ErrInvalidDisplayName
	}

	tz := params.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if !tz.IsValid() {
		return nil, ErrInvalidTimezone
	}

	now := time.Now().UTC()

	return &User{
		ID:          params.ID,
		DisplayName: displayName,
		Timezone:    tz,
		Settings:    DefaultSettings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// UpdateSettings обновляет настройки с валидацией целей.
func (u *User) UpdateSettings(settings Settings) error {
	if settings.WeeklyGoalMinutes < 0 || settings.WeeklyTargetMinutes < 0 {
		return ErrInvalidWeeklyGoal
	}

	u.Settings = settings
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// TouchSession обновляет время последней сессии.
func (u *User) TouchSession(at time.Time) {
	if at.After(u.LastSessionAt) {
		u.LastSessionAt = at
	}
	u.UpdatedAt = time.Now().UTC()
}

// LocalTime переводит момент времени в таймзону пользователя.
func (u *User) LocalTime(t time.Time) time.Time {
	return t.In(u.Timezone.Location())
}

// LocalHour возвращает час суток в таймзоне пользователя.
func (u *User) LocalHour(t time.Time) int {
	return u.LocalTime(t).Hour()
}

// DaysSinceLastSession возвращает количество дней с последней сессии.
func (u *User) DaysSinceLastSession(now time.Time) int {
	if u.LastSessionAt.IsZero() {
		return -1
	}
	return int(now.Sub(u.LastSessionAt).Hours() / 24)
}

// String возвращает строковое представление пользователя для логирования.
func (u *User) String() string {
	return fmt.Sprintf(
		"User{ID: %s, Name: %s, TZ: %s, Coaching: %t}",
		u.ID, u.DisplayName, u.Timezone, u.Settings.CoachingEnabled,
	)
}

// Clone создаёт глубокую копию пользователя.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	clone := *u
	return &clone
}
