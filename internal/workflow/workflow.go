// Package workflow implements an explicit finite-state machine with guarded
// transitions and per-state entry actions, used for game-session lifecycle
// management.
//
// States form a directed graph with exactly one initial and at least one
// terminal state. Transitions carry a guard (always-true, event-based, Lua
// script, or a Go predicate) and an ordered action list executed on firing.
// Entry actions run synchronously on entering a state, global actions on
// every state entry. Events are pending until consumed: an event-based
// transition fires only when all its required events are simultaneously
// present, and consumes them when it does.
package workflow

import (
	"fmt"
	"time"

	lua "github.com/Shopify/go-lua"
	"github.com/sirupsen/logrus"

	"github.com/roshni-games/rulecore/internal/types"
)

// Context is the mutable workflow execution state: accumulated variables
// plus the pending event set.
type Context struct {
	UserID    string
	GameID    string
	Variables map[string]any
	events    map[string]struct{}
}

// NewContext creates an execution context for a user session.
func NewContext(userID, gameID string) *Context {
	return &Context{
		UserID:    userID,
		GameID:    gameID,
		Variables: make(map[string]any),
		events:    make(map[string]struct{}),
	}
}

// Inject adds events to the pending set.
func (c *Context) Inject(events ...string) {
	for _, e := range events {
		c.events[e] = struct{}{}
	}
}

// HasEvent reports whether an event is pending.
func (c *Context) HasEvent(event string) bool {
	_, ok := c.events[event]
	return ok
}

// consume removes events after a guard fires on them.
func (c *Context) consume(events []string) {
	for _, e := range events {
		delete(c.events, e)
	}
}

// Int reads an integer variable, tolerating float64 from JSON decoding.
func (c *Context) Int(key string) (int, bool) {
	switch v := c.Variables[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// GuardType discriminates transition guards.
type GuardType string

const (
	GuardAlways GuardType = "always"
	GuardEvents GuardType = "events"
	GuardScript GuardType = "script"
	GuardCustom GuardType = "custom"
)

// Guard decides whether a transition may fire.
type Guard struct {
	Type           GuardType
	RequiredEvents []string
	Script         string
	Predicate      func(*Context) bool
}

// AlwaysTrue fires unconditionally.
func AlwaysTrue() Guard { return Guard{Type: GuardAlways} }

// OnEvents fires when all required events are pending, consuming them.
func OnEvents(events ...string) Guard {
	return Guard{Type: GuardEvents, RequiredEvents: events}
}

// When fires when the predicate holds over the execution context.
func When(predicate func(*Context) bool) Guard {
	return Guard{Type: GuardCustom, Predicate: predicate}
}

// WhenScript fires when the Lua expression evaluates truthy over the
// workflow variables (exposed as the global table `vars`).
func WhenScript(src string) Guard {
	return Guard{Type: GuardScript, Script: src}
}

// holds evaluates the guard without consuming events.
func (g Guard) holds(c *Context) (bool, error) {
	switch g.Type {
	case GuardAlways:
		return true, nil
	case GuardEvents:
		for _, e := range g.RequiredEvents {
			if !c.HasEvent(e) {
				return false, nil
			}
		}
		return true, nil
	case GuardCustom:
		if g.Predicate == nil {
			return false, nil
		}
		return g.Predicate(c), nil
	case GuardScript:
		return evalGuardScript(g.Script, c)
	default:
		return false, nil
	}
}

// evalGuardScript runs a Lua expression with workflow variables bound to the
// global `vars` table. Numeric variables are pushed as numbers, booleans as
// booleans, everything else as its string form.
func evalGuardScript(src string, c *Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("guard script panic: %v", r)
		}
	}()

	l := lua.NewState()
	lua.OpenLibraries(l)

	l.NewTable()
	for k, v := range c.Variables {
		switch val := v.(type) {
		case int:
			l.PushNumber(float64(val))
		case int64:
			l.PushNumber(float64(val))
		case float64:
			l.PushNumber(val)
		case bool:
			l.PushBoolean(val)
		default:
			l.PushString(fmt.Sprintf("%v", val))
		}
		l.SetField(-2, k)
	}
	l.SetGlobal("vars")

	if err := lua.LoadString(l, "return ("+src+")"); err != nil {
		return false, fmt.Errorf("guard script load: %w", err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return false, fmt.Errorf("guard script run: %w", err)
	}
	result := l.ToBoolean(-1)
	l.Pop(1)
	return result, nil
}

// ActionType discriminates workflow actions.
type ActionType string

const (
	ActionUpdateVariables  ActionType = "update_variables"
	ActionLogEvent         ActionType = "log_event"
	ActionSendNotification ActionType = "send_notification"
	ActionWait             ActionType = "wait"
	ActionCustom           ActionType = "custom"
)

// Action is executed synchronously on state entry or transition firing.
type Action struct {
	Type     ActionType
	Updates  map[string]any
	Message  string
	Channel  string
	Duration time.Duration
	Fn       func(*Context) error
}

// UpdateVariables merges updates into the workflow variables.
func UpdateVariables(updates map[string]any) Action {
	return Action{Type: ActionUpdateVariables, Updates: updates}
}

// LogEvent records a lifecycle message through the workflow logger.
func LogEvent(message string) Action {
	return Action{Type: ActionLogEvent, Message: message}
}

// SendNotification produces a notification record for the given channel.
// Delivery is a collaborator concern; the workflow only logs and collects it.
func SendNotification(channel, message string) Action {
	return Action{Type: ActionSendNotification, Channel: channel, Message: message}
}

// Wait suspends the workflow's own progression for the duration. The caller
// is not blocked beyond the synchronous Step that executes it.
func Wait(d time.Duration) Action {
	return Action{Type: ActionWait, Duration: d}
}

// Custom wraps an arbitrary effect.
func Custom(fn func(*Context) error) Action {
	return Action{Type: ActionCustom, Fn: fn}
}

// Transition connects two states under a guard.
type Transition struct {
	To      string
	Guard   Guard
	Actions []Action
}

// State is one node of the workflow graph.
type State struct {
	ID          string
	Entry       []Action
	Transitions []Transition
	Initial     bool
	Terminal    bool
}

// Notification is the record produced by SendNotification actions.
type Notification struct {
	Channel string
	Message string
	State   string
}

// Workflow is an immutable state machine definition.
type Workflow struct {
	Name    string
	Timeout time.Duration

	states map[string]*State
	order  []string
	global []Action

	log   *logrus.Logger
	sleep func(time.Duration)
	now   func() time.Time
}

// DefaultTimeout bounds a run when the definition does not set one.
const DefaultTimeout = 30 * time.Minute

// New creates an empty workflow definition.
func New(name string, log *logrus.Logger) *Workflow {
	if log == nil {
		log = logrus.New()
	}
	return &Workflow{
		Name:    name,
		Timeout: DefaultTimeout,
		states:  make(map[string]*State),
		log:     log,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

// AddState registers a state. Later AddTransition calls reference it by id.
func (w *Workflow) AddState(s State) *Workflow {
	copied := s
	copied.Entry = append([]Action(nil), s.Entry...)
	copied.Transitions = append([]Transition(nil), s.Transitions...)
	w.states[s.ID] = &copied
	w.order = append(w.order, s.ID)
	return w
}

// AddTransition appends a transition to an existing state, preserving
// declaration order (first matching guard wins).
func (w *Workflow) AddTransition(from string, t Transition) *Workflow {
	if s, ok := w.states[from]; ok {
		s.Transitions = append(s.Transitions, t)
	}
	return w
}

// AddGlobalAction appends an action run on every state entry.
func (w *Workflow) AddGlobalAction(a Action) *Workflow {
	w.global = append(w.global, a)
	return w
}

// Validate checks graph structure: exactly one initial state, at least one
// terminal state, all transition targets known.
func (w *Workflow) Validate() error {
	initial := 0
	terminal := 0
	for _, id := range w.order {
		s := w.states[id]
		if s.Initial {
			initial++
		}
		if s.Terminal {
			terminal++
		}
		for _, t := range s.Transitions {
			if _, ok := w.states[t.To]; !ok {
				return fmt.Errorf("state %s transition to %q: %w", s.ID, t.To, types.ErrStateNotFound)
			}
		}
	}
	if initial != 1 {
		return types.ErrNoInitialState
	}
	if terminal == 0 {
		return types.ErrNoTerminalState
	}
	return nil
}

// CanExecute gates workflow start: a session workflow needs a user identity.
func (w *Workflow) CanExecute(c *Context) bool {
	return c != nil && c.UserID != ""
}

// initialState returns the single initial state.
func (w *Workflow) initialState() *State {
	for _, id := range w.order {
		if w.states[id].Initial {
			return w.states[id]
		}
	}
	return nil
}
