// internal/workflow/run.go
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roshni-games/rulecore/internal/types"
)

/*
 * Workflow execution.
 *
 * A Run is one execution of a Workflow definition: it starts at the initial
 * state (after CanExecute and structural validation), then advances by
 * evaluating the current state's transitions in declaration order and
 * firing the first one whose guard holds. Entry actions plus global actions
 * execute synchronously on each state entry; a Wait action suspends the
 * run's progression, not the caller beyond the synchronous Step.
 *
 * Termination: entering a terminal state ends the run. Exceeding the
 * workflow timeout from run start is a forced abort reported as
 * ErrWorkflowTimeout; the caller decides cleanup. A Step that fires no
 * transition reports no progress, letting the driver wait for events.
 */

// Run is a single workflow execution.
type Run struct {
	ID      types.RunID
	wf      *Workflow
	ctx     *Context
	current *State
	started time.Time
	path    []string
	notices []Notification
	done    bool
}

// Start validates the definition, checks preconditions, and enters the
// initial state.
func (w *Workflow) Start(c *Context) (*Run, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", w.Name, err)
	}
	if !w.CanExecute(c) {
		return nil, types.ErrWorkflowNotRunnable
	}

	r := &Run{
		ID:      types.NewRunID(),
		wf:      w,
		ctx:     c,
		started: w.now(),
	}
	if err := r.enter(w.initialState()); err != nil {
		return nil, err
	}
	return r, nil
}

// Current returns the current state id.
func (r *Run) Current() string { return r.current.ID }

// Done reports whether the run reached a terminal state.
func (r *Run) Done() bool { return r.done }

// Path returns states entered so far, in order.
func (r *Run) Path() []string { return append([]string(nil), r.path...) }

// Notifications returns records produced by SendNotification actions.
func (r *Run) Notifications() []Notification {
	return append([]Notification(nil), r.notices...)
}

// Inject adds pending events for upcoming transition evaluation.
func (r *Run) Inject(events ...string) {
	r.ctx.Inject(events...)
}

// Step evaluates the current state's transitions once, firing the first one
// whose guard holds. Returns whether a transition fired. A run past its
// timeout returns ErrWorkflowTimeout without advancing.
func (r *Run) Step() (bool, error) {
	if r.done {
		return false, nil
	}
	if r.wf.Timeout > 0 && r.wf.now().Sub(r.started) > r.wf.Timeout {
		return false, types.ErrWorkflowTimeout
	}

	for _, t := range r.current.Transitions {
		ok, err := t.Guard.holds(r.ctx)
		if err != nil {
			r.wf.log.WithFields(logrus.Fields{
				"workflow": r.wf.Name,
				"state":    r.current.ID,
				"target":   t.To,
				"error":    err,
			}).Warn("transition guard failed")
			continue
		}
		if !ok {
			continue
		}

		if t.Guard.Type == GuardEvents {
			r.ctx.consume(t.Guard.RequiredEvents)
		}
		for i, a := range t.Actions {
			if err := r.execute(a); err != nil {
				return false, fmt.Errorf("transition %s -> %s action %d: %w", r.current.ID, t.To, i, err)
			}
		}
		if err := r.enter(r.wf.states[t.To]); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// RunToCompletion steps the run until a terminal state, no further progress
// (awaiting events), cancellation, or timeout.
func (r *Run) RunToCompletion(ctx context.Context) error {
	for !r.done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		moved, err := r.Step()
		if err != nil {
			return err
		}
		if !moved {
			// Blocked awaiting events; the driver injects and resumes.
			return nil
		}
	}
	return nil
}

// enter makes s the current state and executes global then entry actions in
// declared order.
func (r *Run) enter(s *State) error {
	r.current = s
	r.path = append(r.path, s.ID)
	r.wf.log.WithFields(logrus.Fields{
		"workflow": r.wf.Name,
		"run_id":   r.ID,
		"state":    s.ID,
	}).Debug("state entered")

	for i, a := range append(append([]Action(nil), r.wf.global...), s.Entry...) {
		if err := r.execute(a); err != nil {
			return fmt.Errorf("state %s entry action %d: %w", s.ID, i, err)
		}
	}

	if s.Terminal {
		r.done = true
	}
	return nil
}

// execute applies one action to the run.
func (r *Run) execute(a Action) error {
	switch a.Type {
	case ActionUpdateVariables:
		for k, v := range a.Updates {
			r.ctx.Variables[k] = v
		}
		return nil
	case ActionLogEvent:
		r.wf.log.WithFields(logrus.Fields{
			"workflow": r.wf.Name,
			"run_id":   r.ID,
			"state":    r.current.ID,
		}).Info(a.Message)
		return nil
	case ActionSendNotification:
		r.notices = append(r.notices, Notification{
			Channel: a.Channel,
			Message: a.Message,
			State:   r.current.ID,
		})
		r.wf.log.WithFields(logrus.Fields{
			"workflow": r.wf.Name,
			"channel":  a.Channel,
		}).Info(a.Message)
		return nil
	case ActionWait:
		r.wf.sleep(a.Duration)
		return nil
	case ActionCustom:
		if a.Fn == nil {
			return nil
		}
		return a.Fn(r.ctx)
	default:
		return fmt.Errorf("unknown workflow action %q", a.Type)
	}
}
