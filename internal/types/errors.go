package types

import "errors"

// Sentinel errors for rulecore operations.
var (
	// ErrBlankRuleID indicates a rule definition with an empty identifier.
	ErrBlankRuleID = errors.New("rule id must not be blank")

	// ErrBlankRuleName indicates a rule definition with an empty name.
	ErrBlankRuleName = errors.New("rule name must not be blank")

	// ErrNoConditions indicates a rule with an empty condition list.
	ErrNoConditions = errors.New("rule must have at least one condition")

	// ErrTooManyConditions indicates a rule exceeds MaxConditionsPerRule.
	ErrTooManyConditions = errors.New("rule has too many conditions")

	// ErrTooManyActions indicates a rule exceeds MaxActionsPerRule.
	ErrTooManyActions = errors.New("rule has too many actions")

	// ErrInvalidConfidence indicates a confidence outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence must be within [0, 1]")

	// ErrNegativeCooldown indicates a rule with a negative cooldown.
	ErrNegativeCooldown = errors.New("cooldown must not be negative")

	// ErrRuleNotFound indicates a lookup for an unregistered rule id.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrDuplicateRule indicates registration of an already-registered id.
	ErrDuplicateRule = errors.New("rule id already registered")

	// ErrRegistryFull indicates the registry reached MaxRegisteredRules.
	ErrRegistryFull = errors.New("rule registry is full")

	// ErrUnknownConditionType indicates a condition with an unrecognized tag.
	ErrUnknownConditionType = errors.New("unknown condition type")

	// ErrBlankConditionKey indicates a condition missing its lookup key.
	ErrBlankConditionKey = errors.New("condition key must not be blank")

	// ErrUnknownActionType indicates an action with an unrecognized tag.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrBlankActionField indicates an action missing its required field.
	ErrBlankActionField = errors.New("action is missing a required field")

	// ErrInvalidEngagement indicates an engagement bound outside [0, 1].
	ErrInvalidEngagement = errors.New("engagement bound must be within [0, 1]")

	// ErrInvalidHour indicates a time window hour outside [0, 23].
	ErrInvalidHour = errors.New("hour must be within [0, 23]")

	// ErrInvalidDay indicates a day-of-week outside [1, 7].
	ErrInvalidDay = errors.New("day of week must be within [1, 7]")

	// ErrScriptTooLong indicates a scripted predicate exceeds MaxScriptLength.
	ErrScriptTooLong = errors.New("script exceeds maximum length")

	// ErrBlankScript indicates a scripted predicate with empty source.
	ErrBlankScript = errors.New("script must not be blank")

	// ErrWorkflowNotRunnable indicates canExecute rejected the workflow input.
	ErrWorkflowNotRunnable = errors.New("workflow preconditions not met")

	// ErrStateNotFound indicates a transition references an unknown state.
	ErrStateNotFound = errors.New("workflow state not found")

	// ErrNoInitialState indicates a workflow without exactly one initial state.
	ErrNoInitialState = errors.New("workflow must have exactly one initial state")

	// ErrNoTerminalState indicates a workflow without a terminal state.
	ErrNoTerminalState = errors.New("workflow must have at least one terminal state")

	// ErrWorkflowTimeout indicates a workflow exceeded its configured duration.
	ErrWorkflowTimeout = errors.New("workflow exceeded timeout")
)
