// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "study", "exam", "mastery"
	Op      string // Operation that failed, e.g., "Create", "Update"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user already exists")
	ErrInvalidTimezone   = NewDomainError("user", "Validate", ErrInvalidInput, "invalid IANA timezone")
	ErrInvalidWeeklyGoal = NewDomainError("user", "Validate", ErrValueOutOfRange, "weekly goal must be positive")
)

// Study domain errors
var (
	ErrSessionNotFound      = NewDomainError("study", "FindSession", ErrNotFound, "study session not found")
	ErrInvalidEffectiveness = NewDomainError("study", "Validate", ErrValueOutOfRange, "effectiveness must be between 1 and 10")
	ErrInvalidDuration      = NewDomainError("study", "Validate", ErrValueOutOfRange, "session duration must be positive")
	ErrEmptySubject         = NewDomainError("study", "Validate", ErrEmptyValue, "subject cannot be empty")
	ErrNoSessions           = NewDomainError("study", "Analyze", ErrNotFound, "no study sessions recorded")
)

// Exam domain errors
var (
	ErrExamNotFound     = NewDomainError("exam", "Find", ErrNotFound, "exam not found")
	ErrExamInPast       = NewDomainError("exam", "Validate", ErrInvalidInput, "exam date is in the past")
	ErrExamNoTopics     = NewDomainError("exam", "Validate", ErrEmptyValue, "exam must list at least one topic")
	ErrInvalidThreat    = NewDomainError("exam", "Validate", ErrInvalidInput, "invalid threat level")
	ErrThreatStale      = NewDomainError("exam", "Recalculate", ErrExpired, "cached threat data is stale")
	ErrExamAlreadyEnded = NewDomainError("exam", "Alert", ErrInvalidState, "exam date already passed")
)

// Mastery domain errors
var (
	ErrMasteryNotFound    = NewDomainError("mastery", "Find", ErrNotFound, "topic mastery not found")
	ErrInvalidScore       = NewDomainError("mastery", "Validate", ErrValueOutOfRange, "mastery score must be between 0 and 100")
	ErrInvalidConfidence  = NewDomainError("mastery", "Validate", ErrValueOutOfRange, "confidence must be between 0 and 100")
	ErrInvalidQuality     = NewDomainError("mastery", "Review", ErrValueOutOfRange, "review quality must be between 1 and 5")
	ErrDuplicateTopic     = NewDomainError("mastery", "Create", ErrAlreadyExists, "topic mastery already tracked")
	ErrMasteryUpdateRaced = NewDomainError("mastery", "Update", ErrConcurrentModification, "mastery row changed concurrently")
)

// Coaching domain errors
var (
	ErrMessageNotFound   = NewDomainError("coaching", "Find", ErrNotFound, "coaching message not found")
	ErrMessageExpired    = NewDomainError("coaching", "Update", ErrExpired, "coaching message expired")
	ErrInvalidMessage    = NewDomainError("coaching", "Validate", ErrInvalidInput, "invalid coaching message")
	ErrInvalidTransition = NewDomainError("coaching", "UpdateStatus", ErrStateTransition, "invalid coaching message status transition")
)

// Intel domain errors
var (
	ErrIntelInputMissing = NewDomainError("intel", "Build", ErrNotFound, "required input data missing")
	ErrIntelStale        = NewDomainError("intel", "Cache", ErrExpired, "cached intel state is stale")
)

// External service errors
var (
	ErrTextGenUnavailable     = NewDomainError("textgen", "Request", ErrServiceUnavailable, "text generation API is unavailable")
	ErrTextGenRateLimited     = NewDomainError("textgen", "Request", ErrRateLimited, "text generation API rate limit exceeded")
	ErrTextGenTimeout         = NewDomainError("textgen", "Request", ErrTimeout, "text generation API request timeout")
	ErrTextGenInvalidResponse = NewDomainError("textgen", "Parse", ErrInvalidFormat, "invalid response from text generation API")
	ErrPushDeliveryFailed     = NewDomainError("push", "Send", ErrExternalService, "push delivery request failed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsConflict checks if the error stems from concurrent modification.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrOptimisticLock)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
