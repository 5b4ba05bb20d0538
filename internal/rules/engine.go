// internal/rules/engine.go
package rules

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roshni-games/rulecore/internal/types"
)

/*
 * Rule engine: registry and evaluation orchestrator.
 *
 * One engine instance owns a rule registry, an execution side table
 * (rule id -> count + last execution time) and cumulative statistics, all
 * guarded by a single mutex. Construct one engine at the composition root
 * and hand it to consumers; there is no process-wide singleton.
 *
 * Evaluation flow per rule:
 *   1. Gate checks: disabled, execution cap, cooldown (no counters touched)
 *   2. Conditions, AND with short-circuit on first false
 *   3. On all-true: produce action effect records, bump side table
 *
 * Fault isolation: a panic or error from any condition or action evaluator
 * is caught at the rule boundary, converted to a deny result carrying the
 * message as reason, and logged. One bad rule never halts the engine or its
 * siblings.
 *
 * Ordering: category evaluation is by descending priority, then descending
 * confidence, then registration order. Deterministic given a fixed registry.
 */

// ExecState is the engine-owned execution bookkeeping for one rule.
type ExecState struct {
	Count         int
	LastExecution time.Time
}

// Statistics are cumulative engine counters, monotonic until Reset.
type Statistics struct {
	TotalEvaluations      uint64
	SuccessfulEvaluations uint64
	AverageEvaluationTime time.Duration
	TicksSkipped          uint64
}

// ValidationReport is the outcome of a structural re-check of the registry.
type ValidationReport struct {
	Valid  bool
	Errors []string
}

// EffectSink consumes effect records produced by allowed rules.
type EffectSink interface {
	Apply(ctx types.RuleContext, action types.RuleAction) error
}

// EffectSinkFunc adapts a function to the EffectSink interface.
type EffectSinkFunc func(ctx types.RuleContext, action types.RuleAction) error

// Apply implements EffectSink.
func (f EffectSinkFunc) Apply(ctx types.RuleContext, action types.RuleAction) error {
	return f(ctx, action)
}

// Engine is the rule registry and evaluation orchestrator.
type Engine struct {
	mu    sync.Mutex
	log   *logrus.Logger
	rules map[string]*Rule
	order map[string]int // registration sequence, stable tie-break
	seq   int
	exec  map[string]*ExecState

	totalEvaluations      uint64
	successfulEvaluations uint64
	totalEvaluationTime   time.Duration
	ticksSkipped          uint64

	// now is the engine clock; replaced in tests for cooldown determinism.
	now func() time.Time
}

// NewEngine creates an empty engine logging through log.
func NewEngine(log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		log:   log,
		rules: make(map[string]*Rule),
		order: make(map[string]int),
		exec:  make(map[string]*ExecState),
		now:   time.Now,
	}
}

// Register adds a rule to the registry. Returns false for a duplicate id, a
// structurally invalid definition, or a full registry; registration errors
// are boolean failures, never panics.
func (e *Engine) Register(rule Rule) bool {
	if err := rule.Validate(); err != nil {
		e.log.WithFields(logrus.Fields{
			"rule_id": rule.ID,
			"error":   err,
		}).Warn("rule registration rejected")
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.rules[rule.ID]; exists {
		e.log.WithField("rule_id", rule.ID).Warn("duplicate rule registration")
		return false
	}
	if len(e.rules) >= types.MaxRegisteredRules {
		e.log.WithField("rule_id", rule.ID).Warn("rule registry full")
		return false
	}

	stored := rule.clone()
	e.rules[rule.ID] = &stored
	e.order[rule.ID] = e.seq
	e.seq++
	e.log.WithFields(logrus.Fields{
		"rule_id":  rule.ID,
		"category": rule.Category.String(),
		"count":    len(e.rules),
	}).Debug("rule registered")
	return true
}

// Unregister removes a rule and its execution state. False if not found.
func (e *Engine) Unregister(ruleID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.rules[ruleID]; !exists {
		return false
	}
	delete(e.rules, ruleID)
	delete(e.order, ruleID)
	delete(e.exec, ruleID)
	e.log.WithFields(logrus.Fields{
		"rule_id": ruleID,
		"count":   len(e.rules),
	}).Debug("rule unregistered")
	return true
}

// Rule returns a copy of the registered definition.
func (e *Engine) Rule(ruleID string) (Rule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.rules[ruleID]
	if !ok {
		return Rule{}, false
	}
	return r.clone(), true
}

// Rules returns copies of all registered definitions in evaluation order.
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Rule, 0, len(e.rules))
	for _, r := range e.sortedLocked(types.CategoryUnspecified) {
		out = append(out, r.clone())
	}
	return out
}

// RuleCount returns the registry size.
func (e *Engine) RuleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rules)
}

// ExecutionState returns the side-table entry for a rule.
func (e *Engine) ExecutionState(ruleID string) (ExecState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.exec[ruleID]
	if !ok {
		return ExecState{}, false
	}
	return *s, true
}

// EvaluateRule evaluates a single rule against the context. An unknown id
// yields a deny result, not an error.
func (e *Engine) EvaluateRule(ruleID string, ctx types.RuleContext) types.RuleResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[ruleID]
	if !ok {
		return types.RuleResult{
			RuleID:  ruleID,
			Allowed: false,
			Reason:  types.ErrRuleNotFound.Error(),
		}
	}
	return e.evaluateLocked(rule, ctx)
}

// EvaluateCategory evaluates every registered rule of the category, ordered
// by descending priority, descending confidence, then registration order.
func (e *Engine) EvaluateCategory(category types.RuleCategory, ctx types.RuleContext) []types.RuleResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	var results []types.RuleResult
	for _, rule := range e.sortedLocked(category) {
		results = append(results, e.evaluateLocked(rule, ctx))
	}
	return results
}

// EvaluateAll evaluates every enabled rule across all categories in
// evaluation order. Used by the continuous poller.
func (e *Engine) EvaluateAll(ctx types.RuleContext) []types.RuleResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	var results []types.RuleResult
	for _, rule := range e.sortedLocked(types.CategoryUnspecified) {
		if !rule.Enabled {
			continue
		}
		results = append(results, e.evaluateLocked(rule, ctx))
	}
	return results
}

// ExecuteActions applies effect records from an allowed result to the sink.
// Sink failures and panics are logged per action and never abort siblings.
func (e *Engine) ExecuteActions(result types.RuleResult, ctx types.RuleContext, sink EffectSink) {
	if !result.Allowed || sink == nil {
		return
	}
	for _, action := range result.Actions {
		e.applyOne(result.RuleID, ctx, action, sink)
	}
}

// applyOne isolates a single sink application with panic recovery.
func (e *Engine) applyOne(ruleID string, ctx types.RuleContext, action types.RuleAction, sink EffectSink) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(logrus.Fields{
				"rule_id":     ruleID,
				"action_type": action.Type,
				"panic":       r,
			}).Error("effect sink panicked")
		}
	}()

	if err := sink.Apply(ctx, action); err != nil {
		e.log.WithFields(logrus.Fields{
			"rule_id":     ruleID,
			"action_type": action.Type,
			"error":       err,
		}).Error("effect sink failed")
	}
}

// Statistics returns cumulative counters.
func (e *Engine) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Statistics{
		TotalEvaluations:      e.totalEvaluations,
		SuccessfulEvaluations: e.successfulEvaluations,
		TicksSkipped:          e.ticksSkipped,
	}
	if e.totalEvaluations > 0 {
		stats.AverageEvaluationTime = e.totalEvaluationTime / time.Duration(e.totalEvaluations)
	}
	return stats
}

// ValidateAll re-checks every registered definition. Read-only.
func (e *Engine) ValidateAll() ValidationReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := ValidationReport{Valid: true}
	for _, rule := range e.sortedLocked(types.CategoryUnspecified) {
		if err := rule.Validate(); err != nil {
			report.Valid = false
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", rule.ID, err))
		}
	}
	return report
}

// Reset clears the registry, side table, and statistics.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = make(map[string]*Rule)
	e.order = make(map[string]int)
	e.exec = make(map[string]*ExecState)
	e.seq = 0
	e.totalEvaluations = 0
	e.successfulEvaluations = 0
	e.totalEvaluationTime = 0
	e.ticksSkipped = 0
	e.log.Debug("engine reset")
}

// sortedLocked returns rules of the category (or all for
// CategoryUnspecified) in evaluation order. Caller holds the lock.
func (e *Engine) sortedLocked(category types.RuleCategory) []*Rule {
	out := make([]*Rule, 0, len(e.rules))
	for _, r := range e.rules {
		if category != types.CategoryUnspecified && r.Category != category {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return e.order[out[i].ID] < e.order[out[j].ID]
	})
	return out
}

// evaluateLocked runs gate checks, conditions, and action production for one
// rule. Caller holds the lock. Counters are only bumped on success.
func (e *Engine) evaluateLocked(rule *Rule, ctx types.RuleContext) types.RuleResult {
	start := e.now()
	result := e.evaluateGated(rule, ctx)

	e.totalEvaluations++
	e.totalEvaluationTime += time.Since(start)
	if result.Allowed {
		e.successfulEvaluations++
	}
	return result
}

func (e *Engine) evaluateGated(rule *Rule, ctx types.RuleContext) types.RuleResult {
	deny := func(reason string) types.RuleResult {
		return types.RuleResult{
			RuleID:     rule.ID,
			Category:   rule.Category,
			Allowed:    false,
			Reason:     reason,
			Confidence: rule.Confidence,
		}
	}

	if !rule.Enabled {
		return deny("rule disabled")
	}

	state := e.exec[rule.ID]
	if state != nil {
		if rule.MaxExecutions > 0 && state.Count >= rule.MaxExecutions {
			return deny(fmt.Sprintf("execution limit reached (%d)", rule.MaxExecutions))
		}
		if rule.Cooldown > 0 && state.Count > 0 && e.now().Sub(state.LastExecution) < rule.Cooldown {
			return deny(fmt.Sprintf("in cooldown window (%s)", rule.Cooldown))
		}
	}

	matched, reason := e.conditionsMatch(rule, ctx)
	if !matched {
		return deny(reason)
	}

	actions, err := e.produceActions(rule, ctx)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"rule_id": rule.ID,
			"error":   err,
		}).Warn("action production failed")
		return deny(err.Error())
	}

	if state == nil {
		state = &ExecState{}
		e.exec[rule.ID] = state
	}
	state.Count++
	state.LastExecution = e.now()

	return types.RuleResult{
		RuleID:     rule.ID,
		Category:   rule.Category,
		Allowed:    true,
		Reason:     "all conditions matched",
		Actions:    actions,
		Confidence: rule.Confidence,
	}
}

// conditionsMatch evaluates the AND chain with panic isolation. Returns the
// deny reason on mismatch or failure.
func (e *Engine) conditionsMatch(rule *Rule, ctx types.RuleContext) (matched bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			reason = fmt.Sprintf("condition panic: %v", r)
			e.log.WithFields(logrus.Fields{
				"rule_id": rule.ID,
				"panic":   r,
			}).Error("condition evaluator panicked")
		}
	}()

	for i, cond := range rule.Conditions {
		ok, err := cond.Evaluate(ctx)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"rule_id":   rule.ID,
				"condition": i,
				"error":     err,
			}).Warn("condition evaluation failed")
			return false, err.Error()
		}
		if !ok {
			return false, fmt.Sprintf("condition %d (%s) not met", i, cond.Type)
		}
	}
	return true, ""
}

// produceActions executes every action with panic isolation, collecting the
// effect records an allowed result carries.
func (e *Engine) produceActions(rule *Rule, ctx types.RuleContext) (records []types.RuleAction, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("action panic: %v", r)
		}
	}()

	for _, action := range rule.Actions {
		record, aerr := action.Execute(ctx)
		if aerr != nil {
			return nil, aerr
		}
		records = append(records, record)
	}
	return records, nil
}
