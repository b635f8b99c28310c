// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier (UUID format).
type UserID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Subject / Topic Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Subject represents a study subject, e.g. "Calculus" or "Organic Chemistry".
type Subject string

// IsValid checks that the subject is non-empty and fits the column limit.
func (s Subject) IsValid() bool {
	trimmed := strings.TrimSpace(string(s))
	return len(trimmed) > 0 && len(trimmed) <= 120
}

// String returns the string representation.
func (s Subject) String() string {
	return string(s)
}

// Normalized returns the lowercase trimmed form used for matching.
func (s Subject) Normalized() string {
	return strings.ToLower(strings.TrimSpace(string(s)))
}

// Matches reports whether two subjects refer to the same thing, using the
// bidirectional substring rule applied throughout the analytics code.
func (s Subject) Matches(other Subject) bool {
	a, b := s.Normalized(), other.Normalized()
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// NewSubject creates a new Subject with validation.
func NewSubject(value string) (Subject, error) {
	s := Subject(strings.TrimSpace(value))
	if !s.IsValid() {
		return "", ErrEmptySubject
	}
	return s, nil
}

// Topic represents a topic within a subject, e.g. "integration by parts".
type Topic string

// IsValid checks that the topic fits the column limit. Empty topics are
// allowed on sessions (subject-only logging).
func (t Topic) IsValid() bool {
	return len(t) <= 200
}

// String returns the string representation.
func (t Topic) String() string {
	return string(t)
}

// Normalized returns the lowercase trimmed form used for matching.
func (t Topic) Normalized() string {
	return strings.ToLower(strings.TrimSpace(string(t)))
}

// IsEmpty checks if the topic is empty.
func (t Topic) IsEmpty() bool {
	return strings.TrimSpace(string(t)) == ""
}

// ═══════════════════════════════════════════════════════════════════════════
// Minutes Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Minutes represents a study duration in whole minutes.
type Minutes int

const (
	// MaxSessionMinutes caps a single logged session at 24 hours.
	MaxSessionMinutes Minutes = 1440
)

// IsValid checks if the duration is within valid range.
func (m Minutes) IsValid() bool {
	return m > 0 && m <= MaxSessionMinutes
}

// Int returns the underlying int value.
func (m Minutes) Int() int {
	return int(m)
}

// Duration converts to time.Duration.
func (m Minutes) Duration() time.Duration {
	return time.Duration(m) * time.Minute
}

// NewMinutes creates a new Minutes value with validation.
func NewMinutes(value int) (Minutes, error) {
	m := Minutes(value)
	if !m.IsValid() {
		return 0, ErrInvalidDuration
	}
	return m, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Effectiveness Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Effectiveness represents a self-reported session rating on a 1-10 scale.
// Zero means the session was not rated.
type Effectiveness int

const (
	Unrated          Effectiveness = 0
	MinEffectiveness Effectiveness = 1
	MaxEffectiveness Effectiveness = 10
)

// IsValid checks if the effectiveness is within the 1-10 range.
func (e Effectiveness) IsValid() bool {
	return e >= MinEffectiveness && e <= MaxEffectiveness
}

// IsRated reports whether the session was rated at all.
func (e Effectiveness) IsRated() bool {
	return e != Unrated
}

// Int returns the underlying int value.
func (e Effectiveness) Int() int {
	return int(e)
}

// NewEffectiveness creates a new Effectiveness value with validation.
// Zero is accepted and means "not rated".
func NewEffectiveness(value int) (Effectiveness, error) {
	e := Effectiveness(value)
	if e != Unrated && !e.IsValid() {
		return 0, ErrInvalidEffectiveness
	}
	return e, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Object (mastery and confidence share the 0-100 scale)
// ═══════════════════════════════════════════════════════════════════════════

// Score represents a 0-100 percentage value.
type Score int

const (
	MinScore Score = 0
	MaxScore Score = 100

	// WeakThreshold marks topics considered weak in the mastery map.
	WeakThreshold Score = 50

	// StrongThreshold marks topics considered strong in the mastery map.
	StrongThreshold Score = 75

	// GapThreshold marks topics that show up in exam gap analysis.
	GapThreshold Score = 60
)

// IsValid checks if the score is within valid range.
func (s Score) IsValid() bool {
	return s >= MinScore && s <= MaxScore
}

// Int returns the underlying int value.
func (s Score) Int() int {
	return int(s)
}

// Add adds a delta and clamps the result to [0, 100].
func (s Score) Add(delta int) Score {
	result := Score(int(s) + delta)
	if result > MaxScore {
		return MaxScore
	}
	if result < MinScore {
		return MinScore
	}
	return result
}

// IsWeak reports whether the score falls below the weak threshold.
func (s Score) IsWeak() bool {
	return s < WeakThreshold
}

// IsStrong reports whether the score exceeds the strong threshold.
func (s Score) IsStrong() bool {
	return s > StrongThreshold
}

// NewScore creates a new Score with validation.
func NewScore(value int) (Score, error) {
	s := Score(value)
	if !s.IsValid() {
		return 0, ErrInvalidScore
	}
	return s, nil
}

// ClampScore clamps an arbitrary int into the 0-100 range.
func ClampScore(value int) Score {
	if value > int(MaxScore) {
		return MaxScore
	}
	if value < int(MinScore) {
		return MinScore
	}
	return Score(value)
}

// AverageScore calculates the mean of a slice of scores, rounded to nearest.
// Returns 0 for an empty slice.
func AverageScore(scores []Score) Score {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += int(s)
	}
	return Score(int(math.Round(float64(sum) / float64(len(scores)))))
}

// ═══════════════════════════════════════════════════════════════════════════
// ReviewQuality Value Object (spaced repetition)
// ═══════════════════════════════════════════════════════════════════════════

// ReviewQuality represents a recall quality grade on a 1-5 scale.
type ReviewQuality int

const (
	MinReviewQuality ReviewQuality = 1
	MaxReviewQuality ReviewQuality = 5

	// PassingQuality is the lowest grade that does not reset the interval.
	PassingQuality ReviewQuality = 3
)

// IsValid checks if the quality is within the 1-5 range.
func (q ReviewQuality) IsValid() bool {
	return q >= MinReviewQuality && q <= MaxReviewQuality
}

// IsPassing reports whether the review keeps the repetition chain going.
func (q ReviewQuality) IsPassing() bool {
	return q >= PassingQuality
}

// Int returns the underlying int value.
func (q ReviewQuality) Int() int {
	return int(q)
}

// NewReviewQuality creates a new ReviewQuality with validation.
func NewReviewQuality(value int) (ReviewQuality, error) {
	q := ReviewQuality(value)
	if !q.IsValid() {
		return 0, ErrInvalidQuality
	}
	return q, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}

// DayRange returns a TimeRange covering the calendar day of t in its location.
func DayRange(t time.Time) TimeRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := start.Add(24 * time.Hour).Add(-time.Nanosecond)
	return TimeRange{From: start, To: end}
}

// LastNDays returns a TimeRange covering the last N days up to now.
func LastNDays(now time.Time, n int) TimeRange {
	return TimeRange{
		From: now.AddDate(0, 0, -n),
		To:   now,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
