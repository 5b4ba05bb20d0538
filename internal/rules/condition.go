// internal/rules/condition.go
package rules

import (
	"time"

	"github.com/roshni-games/rulecore/internal/types"
)

/*
 * Condition evaluation.
 *
 * Conditions are a tagged union serialized as JSON with a "type" discriminator
 * so definitions round-trip through the rule store unchanged. Each variant is
 * a pure, I/O-free predicate over a RuleContext; conditions within a rule are
 * AND-combined with short-circuit on first false.
 *
 * Variants:
 *   - preference: equality over profile interaction preferences
 *   - behavior: minimum occurrence count over profile behavior counters
 *   - context: well-known environment keys, then free-form context map
 *   - engagement: inclusive range check over profile engagement level
 *   - time_based: hour window (overnight-capable) with day-of-week filter
 *   - location: allow/block lists over the context location
 *   - script: Lua expression over context globals (see script.go)
 *
 * Wildcard semantics: the expected value "any" matches any actual value but
 * never a missing one.
 *
 * Why function-based dispatch: a switch over a closed variant set keeps the
 * union exhaustive-matchable and serializable, versus open-ended interface
 * subclassing that cannot round-trip through storage.
 */

// ConditionType discriminates Condition variants.
type ConditionType string

const (
	ConditionPreference ConditionType = "preference"
	ConditionBehavior   ConditionType = "behavior"
	ConditionContext    ConditionType = "context"
	ConditionEngagement ConditionType = "engagement"
	ConditionTimeBased  ConditionType = "time_based"
	ConditionLocation   ConditionType = "location"
	ConditionScript     ConditionType = "script"
)

// WildcardValue matches any actual value in preference and context conditions.
const WildcardValue = "any"

// Condition is a tagged union; only the fields of its Type are meaningful.
type Condition struct {
	Type ConditionType `json:"type"`

	// preference and context variants
	Key      string `json:"key,omitempty"`
	Expected string `json:"expected,omitempty"`

	// behavior variant
	Behavior       string `json:"behavior,omitempty"`
	MinOccurrences int    `json:"min_occurrences,omitempty"`

	// engagement variant: inclusive [MinEngagement, MaxEngagement];
	// nil MaxEngagement means unbounded above
	MinEngagement float64  `json:"min_engagement,omitempty"`
	MaxEngagement *float64 `json:"max_engagement,omitempty"`

	// time_based variant: [StartHour, EndHour) in local evaluation time;
	// StartHour > EndHour is an overnight window. Empty Days means all days.
	StartHour int   `json:"start_hour,omitempty"`
	EndHour   int   `json:"end_hour,omitempty"`
	Days      []int `json:"days,omitempty"` // 1=Monday .. 7=Sunday

	// location variant: empty AllowedLocations allows everything not blocked
	AllowedLocations []string `json:"allowed_locations,omitempty"`
	BlockedLocations []string `json:"blocked_locations,omitempty"`

	// script variant
	Script string `json:"script,omitempty"`
}

// Validate performs structural validation of the condition definition.
func (c Condition) Validate() error {
	switch c.Type {
	case ConditionPreference:
		if c.Key == "" {
			return types.ErrBlankConditionKey
		}
		return nil
	case ConditionBehavior:
		if c.Behavior == "" {
			return types.ErrBlankConditionKey
		}
		return nil
	case ConditionContext:
		if c.Key == "" {
			return types.ErrBlankConditionKey
		}
		return nil
	case ConditionEngagement:
		if c.MinEngagement < 0 || c.MinEngagement > 1 {
			return types.ErrInvalidEngagement
		}
		if c.MaxEngagement != nil && (*c.MaxEngagement < 0 || *c.MaxEngagement > 1) {
			return types.ErrInvalidEngagement
		}
		return nil
	case ConditionTimeBased:
		if c.StartHour < 0 || c.StartHour > 23 || c.EndHour < 0 || c.EndHour > 23 {
			return types.ErrInvalidHour
		}
		for _, d := range c.Days {
			if d < 1 || d > 7 {
				return types.ErrInvalidDay
			}
		}
		return nil
	case ConditionLocation:
		return nil
	case ConditionScript:
		return validateScript(c.Script)
	default:
		return types.ErrUnknownConditionType
	}
}

// Evaluate applies the condition to the given context snapshot.
// Returns an error only for unknown variants or script failures; predicate
// mismatch is a plain false.
func (c Condition) Evaluate(ctx types.RuleContext) (bool, error) {
	switch c.Type {
	case ConditionPreference:
		return evalPreference(c, ctx), nil
	case ConditionBehavior:
		return ctx.Profile.BehaviorCounts[c.Behavior] >= c.MinOccurrences, nil
	case ConditionContext:
		return evalContext(c, ctx), nil
	case ConditionEngagement:
		return evalEngagement(c, ctx), nil
	case ConditionTimeBased:
		return evalTimeWindow(c, evaluationTime(ctx)), nil
	case ConditionLocation:
		return LocationAllowed(ctx.Location, c.AllowedLocations, c.BlockedLocations), nil
	case ConditionScript:
		return evalScript(c.Script, ctx)
	default:
		return false, types.ErrUnknownConditionType
	}
}

// evaluationTime returns the context clock, falling back to wall time when
// the caller left the snapshot timestamp zero.
func evaluationTime(ctx types.RuleContext) time.Time {
	if ctx.Timestamp.IsZero() {
		return time.Now()
	}
	return ctx.Timestamp
}

// evalPreference matches an interaction preference against the expected value.
// Missing preferences never match, including against the wildcard.
func evalPreference(c Condition, ctx types.RuleContext) bool {
	actual, ok := ctx.Profile.InteractionPreferences[c.Key]
	if !ok {
		return false
	}
	if c.Expected == WildcardValue {
		return true
	}
	return actual == c.Expected
}

// evalContext resolves the condition key against well-known environment
// fields first, then the free-form context map. A key missing from both
// is a mismatch.
func evalContext(c Condition, ctx types.RuleContext) bool {
	actual, ok := resolveContextValue(c.Key, ctx)
	if !ok {
		return false
	}
	if c.Expected == WildcardValue {
		return true
	}
	return actual == c.Expected
}

// resolveContextValue maps the fixed set of well-known keys to environment
// fields; empty environment fields and unrecognized keys fall through to the
// generic context map.
func resolveContextValue(key string, ctx types.RuleContext) (string, bool) {
	var env string
	switch key {
	case "timeOfDay":
		env = ctx.Env.TimeOfDay
	case "lightingCondition":
		env = ctx.Env.LightingCondition
	case "locationContext":
		env = ctx.Env.LocationContext
	case "gameState":
		env = ctx.Env.GameState
	case "networkQuality":
		env = ctx.Env.NetworkQuality
	}
	if env != "" {
		return env, true
	}
	actual, ok := ctx.Context[key]
	return actual, ok
}

// evalEngagement checks profile engagement against the inclusive range.
func evalEngagement(c Condition, ctx types.RuleContext) bool {
	level := ctx.Profile.EngagementLevel
	if level < c.MinEngagement {
		return false
	}
	if c.MaxEngagement != nil && level > *c.MaxEngagement {
		return false
	}
	return true
}

// evalTimeWindow checks the evaluation clock against the hour window and
// optional day filter.
func evalTimeWindow(c Condition, now time.Time) bool {
	if len(c.Days) > 0 {
		day := ISODayOfWeek(now)
		found := false
		for _, d := range c.Days {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return HourInWindow(now.Hour(), c.StartHour, c.EndHour)
}

// HourInWindow reports whether hour falls inside [start, end). An overnight
// window (start > end, e.g. 22:00-06:00) is the union of [start, 24) and
// [0, end). start == end denotes the full day.
func HourInWindow(hour, start, end int) bool {
	switch {
	case start == end:
		return true
	case start < end:
		return hour >= start && hour < end
	default:
		return hour >= start || hour < end
	}
}

// ISODayOfWeek returns the ISO-8601 day number (1=Monday .. 7=Sunday).
func ISODayOfWeek(t time.Time) int {
	day := int(t.Weekday())
	if day == 0 {
		return 7
	}
	return day
}

// LocationAllowed applies block-then-allow semantics: blocked locations are
// always denied; an empty allowed set admits every other location; a
// non-empty allowed set makes membership mandatory, denying unknowns.
func LocationAllowed(location string, allowed, blocked []string) bool {
	for _, b := range blocked {
		if location == b {
			return false
		}
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if location == a {
			return true
		}
	}
	return false
}
