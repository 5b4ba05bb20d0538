// Package store persists rule definitions, context snapshots, and
// evaluation outcomes in the rule store database.
//
// Conditions and actions round-trip as tagged-union JSON so definitions
// survive unchanged between process restarts; the engine registry is
// rebuilt from this store at startup.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roshni-games/rulecore/internal/core/db"
	"github.com/roshni-games/rulecore/internal/rules"
	"github.com/roshni-games/rulecore/internal/types"
)

// ErrNoContext indicates no context snapshot has been written yet.
var ErrNoContext = errors.New("no context snapshot available")

// Store wraps the named-query layer with rule-domain serialization.
type Store struct {
	queries *db.Queries
	log     *logrus.Logger
	now     func() time.Time
}

// New creates a Store over an opened database.
func New(queries *db.Queries, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{queries: queries, log: log, now: time.Now}
}

type ruleRow struct {
	RuleID        string  `db:"rule_id"`
	Name          string  `db:"name"`
	Description   string  `db:"description"`
	Category      string  `db:"category"`
	Conditions    string  `db:"conditions"`
	Actions       string  `db:"actions"`
	Priority      int     `db:"priority"`
	Confidence    float64 `db:"confidence"`
	Enabled       bool    `db:"enabled"`
	CooldownMs    int64   `db:"cooldown_ms"`
	MaxExecutions int     `db:"max_executions"`
}

// SaveRule validates and upserts a rule definition.
func (s *Store) SaveRule(ctx context.Context, rule rules.Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule %s: %w", rule.ID, err)
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions for %s: %w", rule.ID, err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions for %s: %w", rule.ID, err)
	}

	now := s.now().UTC()
	_, err = s.queries.Exec(ctx, "upsert-rule",
		rule.ID, rule.Name, rule.Description, rule.Category.String(),
		string(conditions), string(actions),
		rule.Priority, rule.Confidence, rule.Enabled,
		rule.Cooldown.Milliseconds(), rule.MaxExecutions,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert rule %s: %w", rule.ID, err)
	}
	return nil
}

// LoadRules reads all stored definitions in evaluation order. Malformed
// rows are skipped with a logged diagnostic rather than failing the load.
func (s *Store) LoadRules(ctx context.Context) ([]rules.Rule, error) {
	var rows []ruleRow
	if err := s.queries.Select(ctx, "list-rules", &rows); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	out := make([]rules.Rule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toRule()
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"rule_id": row.RuleID,
				"error":   err,
			}).Warn("skipping malformed stored rule")
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

// GetRule reads one stored definition.
func (s *Store) GetRule(ctx context.Context, ruleID string) (rules.Rule, error) {
	var row ruleRow
	if err := s.queries.Get(ctx, "get-rule", &row, ruleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rules.Rule{}, types.ErrRuleNotFound
		}
		return rules.Rule{}, fmt.Errorf("get rule %s: %w", ruleID, err)
	}
	return row.toRule()
}

// DeleteRule removes a stored definition. False if absent.
func (s *Store) DeleteRule(ctx context.Context, ruleID string) (bool, error) {
	res, err := s.queries.Exec(ctx, "delete-rule", ruleID)
	if err != nil {
		return false, fmt.Errorf("delete rule %s: %w", ruleID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SaveContext appends a context snapshot for the continuous loop.
func (s *Store) SaveContext(ctx context.Context, snapshot types.RuleContext) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal context snapshot: %w", err)
	}
	_, err = s.queries.Exec(ctx, "insert-context",
		string(types.NewSnapshotID()), string(payload), s.now().UTC())
	if err != nil {
		return fmt.Errorf("insert context snapshot: %w", err)
	}
	return nil
}

// LatestContext reads the most recent snapshot. ErrNoContext when the
// table is empty.
func (s *Store) LatestContext(ctx context.Context) (types.RuleContext, error) {
	var row struct {
		SnapshotID string    `db:"snapshot_id"`
		Payload    string    `db:"payload"`
		CreatedAt  time.Time `db:"created_at"`
	}
	if err := s.queries.Get(ctx, "latest-context", &row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.RuleContext{}, ErrNoContext
		}
		return types.RuleContext{}, fmt.Errorf("latest context: %w", err)
	}

	var snapshot types.RuleContext
	if err := json.Unmarshal([]byte(row.Payload), &snapshot); err != nil {
		return types.RuleContext{}, fmt.Errorf("unmarshal context snapshot %s: %w", row.SnapshotID, err)
	}
	return snapshot, nil
}

// RecordOutcome persists one evaluation result.
func (s *Store) RecordOutcome(ctx context.Context, result types.RuleResult) error {
	actions, err := json.Marshal(result.Actions)
	if err != nil {
		return fmt.Errorf("marshal outcome actions: %w", err)
	}
	_, err = s.queries.Exec(ctx, "insert-outcome",
		string(types.NewOutcomeID()), result.RuleID, result.Allowed,
		result.Reason, result.Confidence, string(actions), s.now().UTC())
	if err != nil {
		return fmt.Errorf("insert outcome for %s: %w", result.RuleID, err)
	}
	return nil
}

// OutcomeCount returns the number of recorded outcomes.
func (s *Store) OutcomeCount(ctx context.Context) (int, error) {
	var count int
	if err := s.queries.Get(ctx, "count-outcomes", &count); err != nil {
		return 0, fmt.Errorf("count outcomes: %w", err)
	}
	return count, nil
}

func (row ruleRow) toRule() (rules.Rule, error) {
	var conditions []rules.Condition
	if err := json.Unmarshal([]byte(row.Conditions), &conditions); err != nil {
		return rules.Rule{}, fmt.Errorf("unmarshal conditions: %w", err)
	}
	var actions []rules.Action
	if row.Actions != "" {
		if err := json.Unmarshal([]byte(row.Actions), &actions); err != nil {
			return rules.Rule{}, fmt.Errorf("unmarshal actions: %w", err)
		}
	}

	rule := rules.Rule{
		ID:            row.RuleID,
		Name:          row.Name,
		Description:   row.Description,
		Category:      types.ParseRuleCategory(row.Category),
		Conditions:    conditions,
		Actions:       actions,
		Priority:      row.Priority,
		Confidence:    row.Confidence,
		Enabled:       row.Enabled,
		Cooldown:      time.Duration(row.CooldownMs) * time.Millisecond,
		MaxExecutions: row.MaxExecutions,
	}
	if err := rule.Validate(); err != nil {
		return rules.Rule{}, err
	}
	return rule, nil
}
