// Package types provides domain models shared across rulecore components.
//
// Zero-dependency design: types.go and errors.go use only the standard
// library so embedding callers (game session managers, feature gates) pull
// no transitive weight. ID utilities in ids.go import uuid but are isolated
// for selective inclusion.
package types

import "time"

// RuleCategory classifies a rule by the platform concern it serves.
type RuleCategory int

const (
	CategoryUnspecified RuleCategory = iota
	CategoryGameplay
	CategoryPermission
	CategoryFeatureGate
	CategoryContentRestriction
	CategoryParentalControl
)

// String returns the stable wire name used in storage and logs.
func (c RuleCategory) String() string {
	switch c {
	case CategoryGameplay:
		return "gameplay"
	case CategoryPermission:
		return "permission"
	case CategoryFeatureGate:
		return "feature_gate"
	case CategoryContentRestriction:
		return "content_restriction"
	case CategoryParentalControl:
		return "parental_control"
	default:
		return "unspecified"
	}
}

// ParseRuleCategory converts a stored category name back to its enum value.
// Unknown names map to CategoryUnspecified.
func ParseRuleCategory(s string) RuleCategory {
	switch s {
	case "gameplay":
		return CategoryGameplay
	case "permission":
		return CategoryPermission
	case "feature_gate":
		return CategoryFeatureGate
	case "content_restriction":
		return CategoryContentRestriction
	case "parental_control":
		return CategoryParentalControl
	default:
		return CategoryUnspecified
	}
}

// UserProfile is the per-player slice of a RuleContext.
// EngagementLevel is normalized to [0, 1]; 0 means a fully lapsed player.
type UserProfile struct {
	Age                    int               `json:"age"`
	Premium                bool              `json:"premium"`
	TotalPlayTime          time.Duration     `json:"total_play_time"`
	SessionsPlayed         int               `json:"sessions_played"`
	EngagementLevel        float64           `json:"engagement_level"`
	InteractionPreferences map[string]string `json:"interaction_preferences,omitempty"`
	BehaviorCounts         map[string]int    `json:"behavior_counts,omitempty"`
}

// GameState is the live game slice of a RuleContext.
type GameState struct {
	Level      int    `json:"level"`
	Score      int    `json:"score"`
	Difficulty string `json:"difficulty"`
}

// Environment carries the well-known environmental signals that context
// conditions resolve before falling back to the free-form context map.
type Environment struct {
	TimeOfDay         string `json:"time_of_day,omitempty"`
	LightingCondition string `json:"lighting_condition,omitempty"`
	LocationContext   string `json:"location_context,omitempty"`
	GameState         string `json:"game_state,omitempty"`
	NetworkQuality    string `json:"network_quality,omitempty"`
}

// RuleContext is an immutable snapshot of evaluation inputs, created fresh
// per evaluation call. Timestamp is the evaluation clock; a zero value means
// the engine substitutes its own clock at the evaluation boundary.
type RuleContext struct {
	UserID    string            `json:"user_id"`
	GameID    string            `json:"game_id"`
	Profile   UserProfile       `json:"profile"`
	Game      GameState         `json:"game"`
	Env       Environment       `json:"env"`
	Context   map[string]string `json:"context,omitempty"`
	Location  string            `json:"location,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
}

// RuleAction is one effect record produced by an allowed rule. Effects are
// plain data; applying them is the caller's concern.
type RuleAction struct {
	Type       string            `json:"type"`
	Params     map[string]string `json:"params,omitempty"`
	Content    map[string]string `json:"content,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
}

// RuleResult is the outcome of one rule evaluation. Immutable, one per call.
type RuleResult struct {
	RuleID     string       `json:"rule_id"`
	Category   RuleCategory `json:"category"`
	Allowed    bool         `json:"allowed"`
	Reason     string       `json:"reason"`
	Actions    []RuleAction `json:"actions,omitempty"`
	Confidence float64      `json:"confidence"`
}

// Resource limits enforced by the rule engine to keep single-tick evaluation
// cheap and bound registry memory.
const (
	// MaxConditionsPerRule bounds AND-chain length; short-circuit keeps the
	// common case far below this.
	MaxConditionsPerRule = 32

	// MaxActionsPerRule bounds effect fan-out per rule.
	MaxActionsPerRule = 16

	// MaxContextPairs limits free-form context pairs per evaluation snapshot.
	MaxContextPairs = 64

	// MaxScriptLength caps scripted predicate source size.
	MaxScriptLength = 4096

	// MaxRegisteredRules caps the registry; rules are expected to number in
	// the dozens, not thousands.
	MaxRegisteredRules = 10000
)
