// internal/store/store_test.go
package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roshni-games/rulecore/internal/core/db"
	"github.com/roshni-games/rulecore/internal/rules"
	"github.com/roshni-games/rulecore/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rulecore.db")
	database, err := db.Open("sqlite://" + path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.MigrateUp(database))

	queries, err := db.LoadQueries(database)
	require.NoError(t, err)
	return New(queries, nil)
}

func sampleRule(id string) rules.Rule {
	max := 0.9
	return rules.Rule{
		ID:          id,
		Name:        "sample " + id,
		Description: "round-trip fixture",
		Category:    types.CategoryGameplay,
		Conditions: []rules.Condition{
			{Type: rules.ConditionTimeBased, StartHour: 22, EndHour: 6, Days: []int{6, 7}},
			{Type: rules.ConditionEngagement, MinEngagement: 0.2, MaxEngagement: &max},
		},
		Actions: []rules.Action{
			{Type: rules.ActionShowMessage, Message: "hello", Style: "greeting"},
		},
		Priority:      5,
		Confidence:    0.8,
		Enabled:       true,
		Cooldown:      90 * time.Second,
		MaxExecutions: 3,
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleRule("round-trip")
	require.NoError(t, s.SaveRule(ctx, want))

	got, err := s.GetRule(ctx, "round-trip")
	require.NoError(t, err)

	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Category, got.Category)
	require.Equal(t, want.Conditions, got.Conditions)
	require.Equal(t, want.Actions, got.Actions)
	require.Equal(t, want.Cooldown, got.Cooldown)
	require.Equal(t, want.MaxExecutions, got.MaxExecutions)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	bad := sampleRule("bad")
	bad.Conditions = nil
	err := s.SaveRule(context.Background(), bad)
	require.ErrorIs(t, err, types.ErrNoConditions)
}

func TestStore_UpsertReplacesDefinition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rule := sampleRule("upsert")
	require.NoError(t, s.SaveRule(ctx, rule))

	rule.Priority = 99
	rule.Enabled = false
	require.NoError(t, s.SaveRule(ctx, rule))

	got, err := s.GetRule(ctx, "upsert")
	require.NoError(t, err)
	require.Equal(t, 99, got.Priority)
	require.False(t, got.Enabled)

	all, err := s.LoadRules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestStore_LoadRulesOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	low := sampleRule("low")
	low.Priority = 1
	high := sampleRule("high")
	high.Priority = 10
	require.NoError(t, s.SaveRule(ctx, low))
	require.NoError(t, s.SaveRule(ctx, high))

	all, err := s.LoadRules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "high", all[0].ID)
	require.Equal(t, "low", all[1].ID)
}

func TestStore_DeleteRule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRule(ctx, sampleRule("doomed")))

	deleted, err := s.DeleteRule(ctx, "doomed")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = s.DeleteRule(ctx, "doomed")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = s.GetRule(ctx, "doomed")
	require.ErrorIs(t, err, types.ErrRuleNotFound)
}

func TestStore_SeedDefaultsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.SeedDefaults(ctx)
	require.NoError(t, err)
	require.Equal(t, len(DefaultRules()), n)

	// reseeding upserts, never duplicates
	_, err = s.SeedDefaults(ctx)
	require.NoError(t, err)

	all, err := s.LoadRules(ctx)
	require.NoError(t, err)
	require.Len(t, all, n)

	ids := make(map[string]bool, len(all))
	for _, rule := range all {
		ids[rule.ID] = true
	}
	for _, want := range []string{
		"time_based_greeting", "behavior_based_content", "preference_based_ui",
		"contextual_help", "engagement_based_timing",
	} {
		require.True(t, ids[want], "missing seeded rule %s", want)
	}
}

func TestStore_ContextSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestContext(ctx)
	require.True(t, errors.Is(err, ErrNoContext))

	first := types.RuleContext{UserID: "child-1", Location: "HOME"}
	require.NoError(t, s.SaveContext(ctx, first))

	second := types.RuleContext{
		UserID:   "child-1",
		Location: "SCHOOL",
		Context:  map[string]string{"supervised": "true"},
	}
	require.NoError(t, s.SaveContext(ctx, second))

	got, err := s.LatestContext(ctx)
	require.NoError(t, err)
	require.Equal(t, "SCHOOL", got.Location)
	require.Equal(t, "true", got.Context["supervised"])
}

func TestStore_RecordOutcome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := types.RuleResult{
		RuleID:     "r1",
		Allowed:    true,
		Reason:     "all conditions matched",
		Confidence: 0.8,
		Actions: []types.RuleAction{
			{Type: "show_message", Params: map[string]string{"message": "hi"}},
		},
	}
	require.NoError(t, s.RecordOutcome(ctx, result))
	require.NoError(t, s.RecordOutcome(ctx, result))

	count, err := s.OutcomeCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
