package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and A/B testing.
// Supports gradual rollout, user targeting, and time-boxed experiments.
//
// Delivery features default to conservative settings: a coaching product
// lives or dies by not spamming its users.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// A/B test variant (for experiments)
	Variants []string
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string
	IsAdmin bool
}

// Predefined feature flag names.
const (
	// === Coaching Features ===
	FeatureCoachingPlans      = "coaching.plans"      // Generate coaching plans
	FeatureCoachingDailyBrief = "coaching.daily_brief" // Morning intel brief
	FeatureCoachingMomentum   = "coaching.momentum"    // Short-lived momentum plans

	// === Nudge Features ===
	FeatureNudgeMorning   = "nudge.morning"   // Morning momentum check
	FeatureNudgeAfternoon = "nudge.afternoon" // Afternoon drift alert
	FeatureNudgeEvening   = "nudge.evening"   // Evening closeout

	// === Alert Features ===
	FeatureAlertExamThresholds = "alert.exam_thresholds" // 14/7/3/1 day exam alerts
	FeatureAlertWeakTopics     = "alert.weak_topics"     // Weak topic pushes

	// === Intel Features ===
	FeatureIntelCache       = "intel.cache"        // Redis-backed intel state cache
	FeatureIntelExamThreats = "intel.exam_threats" // Exam threat scoring

	// === Experimental Features ===
	FeatureExperimentalTone      = "experimental.tone_variants" // Alternate coaching tones
	FeatureExperimentalAnalytics = "experimental.analytics"     // Advanced analytics
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Coaching features - core product, enabled by default
	ff.features[FeatureCoachingPlans] = &Feature{
		Name:           FeatureCoachingPlans,
		Description:    "Generate coaching plans from intel state",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureCoachingDailyBrief] = &Feature{
		Name:           FeatureCoachingDailyBrief,
		Description:    "Morning intel brief at 7am local time",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureCoachingMomentum] = &Feature{
		Name:           FeatureCoachingMomentum,
		Description:    "Short-lived momentum plans",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Nudges - tuned to avoid spam, evening closeout on gradual rollout
	ff.features[FeatureNudgeMorning] = &Feature{
		Name:           FeatureNudgeMorning,
		Description:    "Morning momentum check at 10am",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNudgeAfternoon] = &Feature{
		Name:           FeatureNudgeAfternoon,
		Description:    "Afternoon drift alert at 2pm",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNudgeEvening] = &Feature{
		Name:           FeatureNudgeEvening,
		Description:    "Evening closeout at 6pm",
		Enabled:        true,
		RolloutPercent: 50, // Gradual rollout
	}

	// Alerts
	ff.features[FeatureAlertExamThresholds] = &Feature{
		Name:           FeatureAlertExamThresholds,
		Description:    "Exam countdown alerts at 14/7/3/1 days",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAlertWeakTopics] = &Feature{
		Name:           FeatureAlertWeakTopics,
		Description:    "Pushes about weakest exam-relevant topic",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Intel
	ff.features[FeatureIntelCache] = &Feature{
		Name:           FeatureIntelCache,
		Description:    "Cache intel state in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureIntelExamThreats] = &Feature{
		Name:           FeatureIntelExamThreats,
		Description:    "Score exams by threat level",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalTone] = &Feature{
		Name:           FeatureExperimentalTone,
		Description:    "Alternate coaching tones",
		Enabled:        false,
		RolloutPercent: 0,
		Variants:       []string{"direct", "encouraging"},
	}

	ff.features[FeatureExperimentalAnalytics] = &Feature{
		Name:           FeatureExperimentalAnalytics,
		Description:    "Advanced analytics dashboard",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_NUDGE_EVENING=true
// Example: FEATURE_COACHING_MOMENTUM=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "nudge.evening" -> "FEATURE_NUDGE_EVENING"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user overrides first
	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return ff.isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func (ff *FeatureFlags) isInRollout(userID, featureName string, percent int) bool {
	// Create a consistent hash for this user+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// GetVariant returns the A/B test variant for a user.
// Returns empty string if no variants defined or feature disabled.
func (ff *FeatureFlags) GetVariant(featureName string, ctx *FeatureContext) string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !ff.IsEnabled(featureName, ctx) {
		return ""
	}

	if len(feature.Variants) == 0 {
		return ""
	}

	// Use consistent hashing to assign variant
	h := fnv.New32a()
	h.Write([]byte(featureName + "_variant"))
	h.Write([]byte(ctx.UserID))
	hash := h.Sum32()

	variantIndex := int(hash % uint32(len(feature.Variants)))
	return feature.Variants[variantIndex]
}

// SetUserOverride sets a feature override for a specific user.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// NudgesEnabled checks if any nudge window is enabled.
func (ff *FeatureFlags) NudgesEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureNudgeMorning, ctx) ||
		ff.IsEnabled(FeatureNudgeAfternoon, ctx) ||
		ff.IsEnabled(FeatureNudgeEvening, ctx)
}

// CoachingEnabled checks if coaching plan generation is enabled.
func (ff *FeatureFlags) CoachingEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureCoachingPlans, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
