package store

import (
	"context"
	"time"

	"github.com/roshni-games/rulecore/internal/rules"
	"github.com/roshni-games/rulecore/internal/types"
)

// DefaultRules returns the personalization rules seeded at first run.
// IDs are stable so reseeding upserts rather than duplicates.
func DefaultRules() []rules.Rule {
	return []rules.Rule{
		{
			ID:          "time_based_greeting",
			Name:        "Time-based greeting",
			Description: "Shows a morning greeting during early hours.",
			Category:    types.CategoryGameplay,
			Conditions: []rules.Condition{
				{Type: rules.ConditionTimeBased, StartHour: 5, EndHour: 11},
			},
			Actions: []rules.Action{
				{Type: rules.ActionShowMessage, Message: "Good morning! Ready to play?", Style: "greeting"},
			},
			Priority:   5,
			Confidence: 0.9,
			Enabled:    true,
			Cooldown:   time.Hour,
		},
		{
			ID:          "behavior_based_content",
			Name:        "Behavior-based content",
			Description: "Unlocks bonus content for frequently repeated play patterns.",
			Category:    types.CategoryGameplay,
			Conditions: []rules.Condition{
				{Type: rules.ConditionBehavior, Behavior: "level_completed", MinOccurrences: 5},
			},
			Actions: []rules.Action{
				{Type: rules.ActionUnlockContent, ContentID: "bonus_level_pack"},
			},
			Priority:      7,
			Confidence:    0.8,
			Enabled:       true,
			MaxExecutions: 1,
		},
		{
			ID:          "preference_based_ui",
			Name:        "Preference-based UI",
			Description: "Adapts theme and animation speed to stored interaction preferences.",
			Category:    types.CategoryFeatureGate,
			Conditions: []rules.Condition{
				{Type: rules.ConditionPreference, Key: rules.FactorTheme, Expected: rules.WildcardValue},
			},
			Actions: []rules.Action{
				{
					Type: rules.ActionAdaptiveContent,
					BaseContent: map[string]string{
						rules.FactorTheme:          "default",
						rules.FactorAnimationSpeed: "normal",
					},
					Factors: []string{rules.FactorTheme, rules.FactorAnimationSpeed},
				},
			},
			Priority:   3,
			Confidence: 0.7,
			Enabled:    true,
		},
		{
			ID:          "contextual_help",
			Name:        "Contextual help",
			Description: "Offers a hint when the game state reports the player is stuck.",
			Category:    types.CategoryGameplay,
			Conditions: []rules.Condition{
				{Type: rules.ConditionContext, Key: "gameState", Expected: "stuck"},
			},
			Actions: []rules.Action{
				{Type: rules.ActionShowMessage, Message: "Need a hand? Try the hint button.", Style: "hint"},
			},
			Priority:   8,
			Confidence: 0.85,
			Enabled:    true,
			Cooldown:   5 * time.Minute,
		},
		{
			ID:          "engagement_based_timing",
			Name:        "Engagement-based timing",
			Description: "Slows pacing for low-engagement sessions.",
			Category:    types.CategoryGameplay,
			Conditions: []rules.Condition{
				{Type: rules.ConditionEngagement, MaxEngagement: floatPtr(0.3)},
			},
			Actions: []rules.Action{
				{Type: rules.ActionModifyGameplay, Parameter: "pacing", Value: "relaxed"},
				{Type: rules.ActionModifyGameplay, Parameter: "timerMultiplier", Value: "1.5"},
			},
			Priority:   4,
			Confidence: 0.6,
			Enabled:    true,
			Cooldown:   10 * time.Minute,
		},
	}
}

// SeedDefaults upserts the default rule set. Idempotent.
func (s *Store) SeedDefaults(ctx context.Context) (int, error) {
	defaults := DefaultRules()
	for _, rule := range defaults {
		if err := s.SaveRule(ctx, rule); err != nil {
			return 0, err
		}
	}
	return len(defaults), nil
}

func floatPtr(v float64) *float64 { return &v }
