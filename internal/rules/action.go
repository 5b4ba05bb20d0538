// internal/rules/action.go
package rules

import (
	"strconv"

	"github.com/roshni-games/rulecore/internal/types"
)

/*
 * Action execution.
 *
 * Actions are the effect half of a rule: a tagged union serialized with a
 * "type" discriminator, each variant producing one RuleAction effect record
 * from the evaluation context. Actions are side-effect-free; applying the
 * records (rendering a message, patching gameplay parameters) is the
 * caller's concern via an EffectSink.
 *
 * Variants:
 *   - show_message: message text plus presentation style
 *   - modify_gameplay: one gameplay parameter adjustment
 *   - unlock_content: content identifier to unlock
 *   - modify_reaction: reaction kind with intensity
 *   - adaptive_content: base content map personalized from profile
 *     preferences with a computed confidence score
 */

// ActionType discriminates Action variants.
type ActionType string

const (
	ActionShowMessage     ActionType = "show_message"
	ActionModifyGameplay  ActionType = "modify_gameplay"
	ActionUnlockContent   ActionType = "unlock_content"
	ActionModifyReaction  ActionType = "modify_reaction"
	ActionAdaptiveContent ActionType = "adaptive_content"
)

// Personalization factors recognized by adaptive content generation.
const (
	FactorTheme           = "theme"
	FactorAnimationSpeed  = "animationSpeed"
	FactorLanguage        = "language"
	FactorEngagementLevel = "engagementLevel"
)

// Confidence model for adaptive content: base score plus a capped bonus per
// applied factor plus an engagement share, clamped to [0, 1].
const (
	adaptiveBaseConfidence   = 0.5
	adaptivePerFactorBonus   = 0.1
	adaptiveMaxFactorBonuses = 3
	adaptiveEngagementWeight = 0.2
)

// Action is a tagged union; only the fields of its Type are meaningful.
type Action struct {
	Type ActionType `json:"type"`

	// show_message variant
	Message string `json:"message,omitempty"`
	Style   string `json:"style,omitempty"`

	// modify_gameplay variant
	Parameter string `json:"parameter,omitempty"`
	Value     string `json:"value,omitempty"`

	// unlock_content variant
	ContentID string `json:"content_id,omitempty"`

	// modify_reaction variant
	Reaction  string  `json:"reaction,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`

	// adaptive_content variant
	BaseContent map[string]string `json:"base_content,omitempty"`
	Factors     []string          `json:"factors,omitempty"`
}

// Validate performs structural validation of the action definition.
func (a Action) Validate() error {
	switch a.Type {
	case ActionShowMessage:
		if a.Message == "" {
			return types.ErrBlankActionField
		}
		return nil
	case ActionModifyGameplay:
		if a.Parameter == "" {
			return types.ErrBlankActionField
		}
		return nil
	case ActionUnlockContent:
		if a.ContentID == "" {
			return types.ErrBlankActionField
		}
		return nil
	case ActionModifyReaction:
		if a.Reaction == "" {
			return types.ErrBlankActionField
		}
		return nil
	case ActionAdaptiveContent:
		return nil
	default:
		return types.ErrUnknownActionType
	}
}

// Execute produces the effect record for this action. Pure: no I/O, no
// mutation of the context.
func (a Action) Execute(ctx types.RuleContext) (types.RuleAction, error) {
	switch a.Type {
	case ActionShowMessage:
		return types.RuleAction{
			Type: string(a.Type),
			Params: map[string]string{
				"message": a.Message,
				"style":   a.Style,
			},
		}, nil
	case ActionModifyGameplay:
		return types.RuleAction{
			Type: string(a.Type),
			Params: map[string]string{
				"parameter": a.Parameter,
				"value":     a.Value,
			},
		}, nil
	case ActionUnlockContent:
		return types.RuleAction{
			Type: string(a.Type),
			Params: map[string]string{
				"content_id": a.ContentID,
			},
		}, nil
	case ActionModifyReaction:
		return types.RuleAction{
			Type: string(a.Type),
			Params: map[string]string{
				"reaction":  a.Reaction,
				"intensity": strconv.FormatFloat(a.Intensity, 'f', -1, 64),
			},
		}, nil
	case ActionAdaptiveContent:
		return a.generateAdaptiveContent(ctx), nil
	default:
		return types.RuleAction{}, types.ErrUnknownActionType
	}
}

// generateAdaptiveContent personalizes the base content map by substituting
// profile preference values for the requested factor keys. The engagement
// factor substitutes the numeric engagement level rather than a preference.
func (a Action) generateAdaptiveContent(ctx types.RuleContext) types.RuleAction {
	content := make(map[string]string, len(a.BaseContent)+len(a.Factors))
	for k, v := range a.BaseContent {
		content[k] = v
	}

	applied := 0
	for _, factor := range a.Factors {
		switch factor {
		case FactorEngagementLevel:
			content[factor] = strconv.FormatFloat(ctx.Profile.EngagementLevel, 'f', 2, 64)
			applied++
		case FactorTheme, FactorAnimationSpeed, FactorLanguage:
			if pref, ok := ctx.Profile.InteractionPreferences[factor]; ok {
				content[factor] = pref
				applied++
			}
		}
	}

	return types.RuleAction{
		Type:       string(a.Type),
		Content:    content,
		Confidence: adaptiveConfidence(applied, ctx.Profile.EngagementLevel),
	}
}

// adaptiveConfidence computes base + per-factor bonus (capped) + engagement
// share, clamped to [0, 1].
func adaptiveConfidence(applied int, engagement float64) float64 {
	if applied > adaptiveMaxFactorBonuses {
		applied = adaptiveMaxFactorBonuses
	}
	score := adaptiveBaseConfidence +
		adaptivePerFactorBonus*float64(applied) +
		adaptiveEngagementWeight*engagement
	return clamp01(score)
}

// clamp01 bounds v to [0, 1].
func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
