// internal/permissions/rules.go
package permissions

import (
	"time"

	"github.com/roshni-games/rulecore/internal/rules"
)

/*
 * Access rules.
 *
 * An AccessRule gates one permission with a time window, a location
 * allow/block pair, or a context matcher. Time and location evaluation
 * reuse the rule engine's predicate vocabulary (HourInWindow,
 * ISODayOfWeek, LocationAllowed) so the two subsystems cannot drift.
 *
 * Context matching: with MatchAll every required pair must be present and
 * equal (AND); otherwise at least one must match (OR). An empty required
 * map matches vacuously in either mode. Any matching forbidden pair forces
 * denial regardless of required matches.
 *
 * Disabling is an absolute override: a disabled rule evaluates false no
 * matter what, locking out the permission it gates until re-enabled.
 */

// RuleKind discriminates AccessRule variants.
type RuleKind string

const (
	KindTime     RuleKind = "time"
	KindLocation RuleKind = "location"
	KindContext  RuleKind = "context"
)

// AccessRule gates a permission in combined checks.
type AccessRule struct {
	Permission Permission
	Kind       RuleKind
	Priority   int
	Enabled    bool

	// time variant: [StartHour, EndHour) with optional ISO day filter
	StartHour int
	EndHour   int
	Days      []int

	// location variant
	AllowedLocations []string
	BlockedLocations []string

	// context variant
	RequiredContext  map[string]string
	ForbiddenContext map[string]string
	MatchAll         bool
}

// NewTimeRule gates a permission to an hour window, overnight-capable, with
// an optional day-of-week filter (1=Monday .. 7=Sunday; empty means all).
func NewTimeRule(permission Permission, startHour, endHour int, days []int, priority int) AccessRule {
	return AccessRule{
		Permission: permission,
		Kind:       KindTime,
		Priority:   priority,
		Enabled:    true,
		StartHour:  startHour,
		EndHour:    endHour,
		Days:       append([]int(nil), days...),
	}
}

// NewLocationRule gates a permission by location. An empty allowed set
// admits every location not explicitly blocked.
func NewLocationRule(permission Permission, allowed, blocked []string, priority int) AccessRule {
	return AccessRule{
		Permission:       permission,
		Kind:             KindLocation,
		Priority:         priority,
		Enabled:          true,
		AllowedLocations: append([]string(nil), allowed...),
		BlockedLocations: append([]string(nil), blocked...),
	}
}

// NewContextRule gates a permission by context pairs. matchAll selects AND
// versus OR over required pairs; any forbidden pair match denies outright.
func NewContextRule(permission Permission, required, forbidden map[string]string, matchAll bool, priority int) AccessRule {
	return AccessRule{
		Permission:       permission,
		Kind:             KindContext,
		Priority:         priority,
		Enabled:          true,
		RequiredContext:  copyStringMap(required),
		ForbiddenContext: copyStringMap(forbidden),
		MatchAll:         matchAll,
	}
}

// Evaluate applies the rule at the given clock against the caller's context
// and location. Disabled rules always evaluate false.
func (r AccessRule) Evaluate(now time.Time, ctx map[string]string, location string) bool {
	if !r.Enabled {
		return false
	}

	switch r.Kind {
	case KindTime:
		return r.evaluateTime(now)
	case KindLocation:
		return rules.LocationAllowed(location, r.AllowedLocations, r.BlockedLocations)
	case KindContext:
		return r.evaluateContext(ctx)
	default:
		return false
	}
}

func (r AccessRule) evaluateTime(now time.Time) bool {
	if len(r.Days) > 0 {
		day := rules.ISODayOfWeek(now)
		found := false
		for _, d := range r.Days {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return rules.HourInWindow(now.Hour(), r.StartHour, r.EndHour)
}

func (r AccessRule) evaluateContext(ctx map[string]string) bool {
	for k, v := range r.ForbiddenContext {
		if actual, ok := ctx[k]; ok && actual == v {
			return false
		}
	}

	if len(r.RequiredContext) == 0 {
		// Vacuous truth: nothing required, nothing can fail.
		return true
	}

	matched := 0
	for k, v := range r.RequiredContext {
		if actual, ok := ctx[k]; ok && actual == v {
			matched++
		}
	}
	if r.MatchAll {
		return matched == len(r.RequiredContext)
	}
	return matched > 0
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
