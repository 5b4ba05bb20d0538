// internal/workflow/workflow_test.go
package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roshni-games/rulecore/internal/types"
)

func twoStateWorkflow() *Workflow {
	w := New("two_state", nil)
	w.AddState(State{
		ID:      "start",
		Initial: true,
		Transitions: []Transition{
			{To: "end", Guard: AlwaysTrue()},
		},
	})
	w.AddState(State{ID: "end", Terminal: true})
	return w
}

func TestWorkflowValidate(t *testing.T) {
	if err := twoStateWorkflow().Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	noInitial := New("no_initial", nil)
	noInitial.AddState(State{ID: "end", Terminal: true})
	if err := noInitial.Validate(); !errors.Is(err, types.ErrNoInitialState) {
		t.Errorf("Validate() error = %v, want ErrNoInitialState", err)
	}

	twoInitial := New("two_initial", nil)
	twoInitial.AddState(State{ID: "a", Initial: true})
	twoInitial.AddState(State{ID: "b", Initial: true, Terminal: true})
	if err := twoInitial.Validate(); !errors.Is(err, types.ErrNoInitialState) {
		t.Errorf("Validate() error = %v, want ErrNoInitialState for two initials", err)
	}

	noTerminal := New("no_terminal", nil)
	noTerminal.AddState(State{ID: "start", Initial: true})
	if err := noTerminal.Validate(); !errors.Is(err, types.ErrNoTerminalState) {
		t.Errorf("Validate() error = %v, want ErrNoTerminalState", err)
	}

	dangling := New("dangling", nil)
	dangling.AddState(State{
		ID:      "start",
		Initial: true,
		Transitions: []Transition{
			{To: "nowhere", Guard: AlwaysTrue()},
		},
	})
	dangling.AddState(State{ID: "end", Terminal: true})
	if err := dangling.Validate(); !errors.Is(err, types.ErrStateNotFound) {
		t.Errorf("Validate() error = %v, want ErrStateNotFound", err)
	}
}

func TestWorkflowStart_RequiresUser(t *testing.T) {
	w := twoStateWorkflow()

	if _, err := w.Start(NewContext("", "game-1")); !errors.Is(err, types.ErrWorkflowNotRunnable) {
		t.Errorf("Start() with blank user error = %v, want ErrWorkflowNotRunnable", err)
	}
	if _, err := w.Start(nil); !errors.Is(err, types.ErrWorkflowNotRunnable) {
		t.Errorf("Start(nil) error = %v, want ErrWorkflowNotRunnable", err)
	}
	if _, err := w.Start(NewContext("user-1", "game-1")); err != nil {
		t.Errorf("Start() error = %v, want nil", err)
	}
}

func TestWorkflowRun_ReachesTerminal(t *testing.T) {
	w := twoStateWorkflow()
	run, err := w.Start(NewContext("user-1", ""))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() error = %v", err)
	}
	if !run.Done() {
		t.Errorf("Done() = false, want true")
	}
	if run.Current() != "end" {
		t.Errorf("Current() = %q, want end", run.Current())
	}
}

func TestWorkflowStep_EventGuardConsumes(t *testing.T) {
	w := New("evented", nil)
	w.AddState(State{
		ID:      "waiting",
		Initial: true,
		Transitions: []Transition{
			{To: "done", Guard: OnEvents("go")},
		},
	})
	w.AddState(State{ID: "done", Terminal: true})

	run, err := w.Start(NewContext("user-1", ""))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	moved, err := run.Step()
	if err != nil || moved {
		t.Fatalf("Step() without event = (%v, %v), want no progress", moved, err)
	}

	run.Inject("go")
	moved, err = run.Step()
	if err != nil || !moved {
		t.Fatalf("Step() with event = (%v, %v), want progress", moved, err)
	}
	if run.ctx.HasEvent("go") {
		t.Errorf("event still pending after firing, want consumed")
	}
}

func TestWorkflowStep_TransitionActionsBeforeEntry(t *testing.T) {
	var order []string

	w := New("ordered", nil)
	w.AddState(State{
		ID:      "start",
		Initial: true,
		Transitions: []Transition{
			{
				To:    "end",
				Guard: AlwaysTrue(),
				Actions: []Action{
					Custom(func(c *Context) error {
						order = append(order, "transition")
						return nil
					}),
				},
			},
		},
	})
	w.AddState(State{
		ID:       "end",
		Terminal: true,
		Entry: []Action{
			Custom(func(c *Context) error {
				order = append(order, "entry")
				return nil
			}),
		},
	})

	run, err := w.Start(NewContext("user-1", ""))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := run.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	if len(order) != 2 || order[0] != "transition" || order[1] != "entry" {
		t.Errorf("action order = %v, want [transition entry]", order)
	}
}

func TestWorkflowStep_Timeout(t *testing.T) {
	w := twoStateWorkflow()
	w.Timeout = time.Minute

	clock := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	run, err := w.Start(NewContext("user-1", ""))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	clock = clock.Add(2 * time.Minute)
	if _, err := run.Step(); !errors.Is(err, types.ErrWorkflowTimeout) {
		t.Errorf("Step() past timeout error = %v, want ErrWorkflowTimeout", err)
	}
}

func TestWorkflowGlobalActions_RunOnEveryEntry(t *testing.T) {
	entries := 0

	w := twoStateWorkflow()
	w.AddGlobalAction(Custom(func(c *Context) error {
		entries++
		return nil
	}))

	run, err := w.Start(NewContext("user-1", ""))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() error = %v", err)
	}

	if entries != 2 {
		t.Errorf("global action ran %d times, want 2 (once per entered state)", entries)
	}
}

func TestGuardScript(t *testing.T) {
	c := NewContext("user-1", "")
	c.Variables["lives"] = 3
	c.Variables["paused"] = false
	c.Variables["mode"] = "arcade"

	tests := []struct {
		script string
		want   bool
	}{
		{script: "vars.lives > 0", want: true},
		{script: "vars.lives > 5", want: false},
		{script: "not vars.paused", want: true},
		{script: `vars.mode == "arcade"`, want: true},
	}
	for _, tt := range tests {
		got, err := WhenScript(tt.script).holds(c)
		if err != nil {
			t.Fatalf("holds(%q) error = %v", tt.script, err)
		}
		if got != tt.want {
			t.Errorf("holds(%q) = %v, want %v", tt.script, got, tt.want)
		}
	}
}
