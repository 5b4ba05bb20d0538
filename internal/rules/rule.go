// internal/rules/rule.go
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/roshni-games/rulecore/internal/types"
)

/*
 * Rule definitions.
 *
 * A Rule binds AND-combined conditions, the actions an allowed evaluation
 * produces, and scheduling metadata (priority, confidence, cooldown,
 * execution cap, enabled flag). Definitions are immutable after
 * registration: execution bookkeeping lives in an engine-owned side table,
 * never on the rule itself, so definitions can be shared, persisted, and
 * compared without hidden mutable state.
 *
 * Validation happens at registration time rather than evaluation time,
 * moving error detection to rule creation and keeping the evaluation path
 * free of structural checks.
 */

// Rule is a complete, immutable rule definition.
type Rule struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Category    types.RuleCategory `json:"category"`
	Conditions  []Condition        `json:"conditions"`
	Actions     []Action           `json:"actions,omitempty"`

	// Priority orders evaluation results, highest first.
	Priority int `json:"priority"`

	// Confidence in [0, 1] breaks priority ties and is reported on results.
	Confidence float64 `json:"confidence"`

	Enabled bool `json:"enabled"`

	// Cooldown is the minimum gap between successful executions.
	Cooldown time.Duration `json:"cooldown,omitempty"`

	// MaxExecutions caps successful executions; 0 means unlimited.
	MaxExecutions int `json:"max_executions,omitempty"`
}

// Validate performs structural validation of the full definition.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return types.ErrBlankRuleID
	}
	if strings.TrimSpace(r.Name) == "" {
		return types.ErrBlankRuleName
	}
	if len(r.Conditions) == 0 {
		return types.ErrNoConditions
	}
	if len(r.Conditions) > types.MaxConditionsPerRule {
		return types.ErrTooManyConditions
	}
	if len(r.Actions) > types.MaxActionsPerRule {
		return types.ErrTooManyActions
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return types.ErrInvalidConfidence
	}
	if r.Cooldown < 0 {
		return types.ErrNegativeCooldown
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	for i, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// clone returns a deep copy so registered definitions cannot be mutated
// through the caller's slices.
func (r Rule) clone() Rule {
	out := r
	out.Conditions = append([]Condition(nil), r.Conditions...)
	out.Actions = append([]Action(nil), r.Actions...)
	for i, c := range out.Conditions {
		out.Conditions[i].Days = append([]int(nil), c.Days...)
		out.Conditions[i].AllowedLocations = append([]string(nil), c.AllowedLocations...)
		out.Conditions[i].BlockedLocations = append([]string(nil), c.BlockedLocations...)
	}
	for i, a := range out.Actions {
		out.Actions[i].Factors = append([]string(nil), a.Factors...)
		if a.BaseContent != nil {
			base := make(map[string]string, len(a.BaseContent))
			for k, v := range a.BaseContent {
				base[k] = v
			}
			out.Actions[i].BaseContent = base
		}
	}
	return out
}
