// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// User events
	EventUserRegistered      EventType = "user.registered"
	EventUserSettingsUpdated EventType = "user.settings_updated"

	// Study events
	EventSessionLogged EventType = "study.session_logged"
	EventStreakUpdated EventType = "study.streak_updated"
	EventStreakBroken  EventType = "study.streak_broken"

	// Mastery events
	EventMasteryUpdated      EventType = "mastery.updated"
	EventTopicMastered       EventType = "mastery.topic_mastered"
	EventWeaknessIdentified  EventType = "mastery.weakness_identified"
	EventTopicReviewed       EventType = "mastery.topic_reviewed"

	// Exam events
	EventExamCreated         EventType = "exam.created"
	EventExamUpdated         EventType = "exam.updated"
	EventThreatsRecalculated EventType = "exam.threats_recalculated"
	EventExamThresholdHit    EventType = "exam.threshold_hit"

	// Intel events
	EventIntelStateBuilt    EventType = "intel.state_built"
	EventIdentityClassified EventType = "intel.identity_classified"

	// Coaching events
	EventCoachingGenerated EventType = "coaching.plans_generated"
	EventCoachingDismissed EventType = "coaching.message_dismissed"
	EventCoachingCompleted EventType = "coaching.message_completed"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"

	// System events
	EventConsolidationDone EventType = "system.weekly_consolidation_done"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Study Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionLoggedEvent is emitted when a study session is recorded.
type SessionLoggedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	SessionID     string `json:"session_id"`
	Subject       string `json:"subject"`
	Topic         string `json:"topic,omitempty"`
	Minutes       int    `json:"minutes"`
	Effectiveness int    `json:"effectiveness,omitempty"` // 0 when the session was not rated
}

// Payload implements Event interface.
func (e SessionLoggedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"session_id":    e.SessionID,
		"subject":       e.Subject,
		"topic":         e.Topic,
		"minutes":       e.Minutes,
		"effectiveness": e.Effectiveness,
	}
}

// NewSessionLoggedEvent creates a new SessionLoggedEvent.
func NewSessionLoggedEvent(userID, sessionID, subject, topic string, minutes, effectiveness int) SessionLoggedEvent {
	return SessionLoggedEvent{
		BaseEvent:     NewBaseEvent(EventSessionLogged, userID),
		UserID:        userID,
		SessionID:     sessionID,
		Subject:       subject,
		Topic:         topic,
		Minutes:       minutes,
		Effectiveness: effectiveness,
	}
}

// StreakBrokenEvent is emitted when a user's daily study streak is broken.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Mastery Events
// ═══════════════════════════════════════════════════════════════════════════

// MasteryUpdatedEvent is emitted whenever a topic mastery score changes.
type MasteryUpdatedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Subject  string `json:"subject"`
	Topic    string `json:"topic"`
	OldScore int    `json:"old_score"`
	NewScore int    `json:"new_score"`
	Source   string `json:"source"` // e.g., "session", "quiz", "review"
}

// Payload implements Event interface.
func (e MasteryUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"subject":   e.Subject,
		"topic":     e.Topic,
		"old_score": e.OldScore,
		"new_score": e.NewScore,
		"source":    e.Source,
	}
}

// NewMasteryUpdatedEvent creates a new MasteryUpdatedEvent.
func NewMasteryUpdatedEvent(userID, subject, topic string, oldScore, newScore int, source string) MasteryUpdatedEvent {
	return MasteryUpdatedEvent{
		BaseEvent: NewBaseEvent(EventMasteryUpdated, userID),
		UserID:    userID,
		Subject:   subject,
		Topic:     topic,
		OldScore:  oldScore,
		NewScore:  newScore,
		Source:    source,
	}
}

// TopicMasteredEvent is emitted when a topic score crosses the mastery threshold.
type TopicMasteredEvent struct {
	BaseEvent
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
	Score   int    `json:"score"`
}

// Payload implements Event interface.
func (e TopicMasteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"subject": e.Subject,
		"topic":   e.Topic,
		"score":   e.Score,
	}
}

// NewTopicMasteredEvent creates a new TopicMasteredEvent.
func NewTopicMasteredEvent(userID, subject, topic string, score int) TopicMasteredEvent {
	return TopicMasteredEvent{
		BaseEvent: NewBaseEvent(EventTopicMastered, userID),
		UserID:    userID,
		Subject:   subject,
		Topic:     topic,
		Score:     score,
	}
}

// WeaknessIdentifiedEvent is emitted when a repeatedly studied topic stays weak.
type WeaknessIdentifiedEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	Subject      string `json:"subject"`
	Topic        string `json:"topic"`
	Score        int    `json:"score"`
	SessionCount int    `json:"session_count"`
}

// Payload implements Event interface.
func (e WeaknessIdentifiedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"subject":       e.Subject,
		"topic":         e.Topic,
		"score":         e.Score,
		"session_count": e.SessionCount,
	}
}

// NewWeaknessIdentifiedEvent creates a new WeaknessIdentifiedEvent.
func NewWeaknessIdentifiedEvent(userID, subject, topic string, score, sessionCount int) WeaknessIdentifiedEvent {
	return WeaknessIdentifiedEvent{
		BaseEvent:    NewBaseEvent(EventWeaknessIdentified, userID),
		UserID:       userID,
		Subject:      subject,
		Topic:        topic,
		Score:        score,
		SessionCount: sessionCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Exam Events
// ═══════════════════════════════════════════════════════════════════════════

// ExamCreatedEvent is emitted when a new exam is registered.
type ExamCreatedEvent struct {
	BaseEvent
	UserID   string    `json:"user_id"`
	ExamID   string    `json:"exam_id"`
	Subject  string    `json:"subject"`
	ExamDate time.Time `json:"exam_date"`
}

// Payload implements Event interface.
func (e ExamCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"exam_id":   e.ExamID,
		"subject":   e.Subject,
		"exam_date": e.ExamDate.Format(time.RFC3339),
	}
}

// NewExamCreatedEvent creates a new ExamCreatedEvent.
func NewExamCreatedEvent(userID, examID, subject string, examDate time.Time) ExamCreatedEvent {
	return ExamCreatedEvent{
		BaseEvent: NewBaseEvent(EventExamCreated, examID),
		UserID:    userID,
		ExamID:    examID,
		Subject:   subject,
		ExamDate:  examDate,
	}
}

// ExamThresholdHitEvent is emitted when an exam reaches an alert threshold
// (14, 7, 3 or 1 days remaining).
type ExamThresholdHitEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	ExamID        string `json:"exam_id"`
	Subject       string `json:"subject"`
	DaysRemaining int    `json:"days_remaining"`
	ThreatLevel   string `json:"threat_level"`
}

// Payload implements Event interface.
func (e ExamThresholdHitEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"exam_id":        e.ExamID,
		"subject":        e.Subject,
		"days_remaining": e.DaysRemaining,
		"threat_level":   e.ThreatLevel,
	}
}

// NewExamThresholdHitEvent creates a new ExamThresholdHitEvent.
func NewExamThresholdHitEvent(userID, examID, subject string, daysRemaining int, threatLevel string) ExamThresholdHitEvent {
	return ExamThresholdHitEvent{
		BaseEvent:     NewBaseEvent(EventExamThresholdHit, examID),
		UserID:        userID,
		ExamID:        examID,
		Subject:       subject,
		DaysRemaining: daysRemaining,
		ThreatLevel:   threatLevel,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Coaching Events
// ═══════════════════════════════════════════════════════════════════════════

// CoachingGeneratedEvent is emitted when a fresh coaching plan set replaces
// the user's active messages.
type CoachingGeneratedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	PlanCount int    `json:"plan_count"`
	TopType   string `json:"top_type,omitempty"`
}

// Payload implements Event interface.
func (e CoachingGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"plan_count": e.PlanCount,
		"top_type":   e.TopType,
	}
}

// NewCoachingGeneratedEvent creates a new CoachingGeneratedEvent.
func NewCoachingGeneratedEvent(userID string, planCount int, topType string) CoachingGeneratedEvent {
	return CoachingGeneratedEvent{
		BaseEvent: NewBaseEvent(EventCoachingGenerated, userID),
		UserID:    userID,
		PlanCount: planCount,
		TopType:   topType,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// ConsolidationDoneEvent is emitted after the weekly consolidation pass
// finishes rebuilding user analytics and purging stale memory notes.
type ConsolidationDoneEvent struct {
	BaseEvent
	UsersProcessed int `json:"users_processed"`
	MemoriesPurged int `json:"memories_purged"`
}

// Payload implements Event interface.
func (e ConsolidationDoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"users_processed": e.UsersProcessed,
		"memories_purged": e.MemoriesPurged,
	}
}

// NewConsolidationDoneEvent creates a new ConsolidationDoneEvent.
func NewConsolidationDoneEvent(usersProcessed, memoriesPurged int) ConsolidationDoneEvent {
	return ConsolidationDoneEvent{
		BaseEvent:      NewBaseEvent(EventConsolidationDone, "system"),
		UsersProcessed: usersProcessed,
		MemoriesPurged: memoriesPurged,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
