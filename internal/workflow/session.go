// internal/workflow/session.go
package workflow

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Game-session workflow state ids.
const (
	StateSessionStart   = "session_start"
	StateGameLoading    = "game_loading"
	StateActiveGameplay = "active_gameplay"
	StatePauseCheck     = "pause_check"
	StateGamePaused     = "game_paused"
	StateGameOverCheck  = "game_over_check"
	StateGameOver       = "game_over"
	StateSessionCleanup = "session_cleanup"
)

// Events driving the game-session workflow.
const (
	EventPauseRequested  = "pause_requested"
	EventResumeRequested = "resume_requested"
	EventGameEnded       = "game_ended"
	EventLivesExhausted  = "lives_exhausted"
)

// Session variables.
const (
	VarLives  = "lives"
	VarScore  = "score"
	VarPaused = "paused"
)

// startingLives is the default life count granted during loading.
const startingLives = 3

// NewGameSession builds the game-session lifecycle workflow:
//
//	session_start -> game_loading -> active_gameplay <-> pause_check <-> game_paused
//	active_gameplay -> game_over_check -> game_over -> session_cleanup
//
// The gameplay state exits on explicit end events or when lives run out;
// pause_check routes on the paused variable so a resume round-trips back to
// gameplay without re-consuming events.
func NewGameSession(log *logrus.Logger) *Workflow {
	w := New("game_session", log)
	w.AddGlobalAction(LogEvent("session lifecycle checkpoint"))

	w.AddState(State{
		ID:      StateSessionStart,
		Initial: true,
		Entry:   []Action{LogEvent("session starting")},
		Transitions: []Transition{
			{To: StateGameLoading, Guard: AlwaysTrue()},
		},
	})

	w.AddState(State{
		ID: StateGameLoading,
		Entry: []Action{
			UpdateVariables(map[string]any{
				VarLives:  startingLives,
				VarScore:  0,
				VarPaused: false,
			}),
			Wait(10 * time.Millisecond),
			LogEvent("assets loaded"),
		},
		Transitions: []Transition{
			{To: StateActiveGameplay, Guard: WhenScript("vars.lives > 0")},
		},
	})

	w.AddState(State{
		ID:    StateActiveGameplay,
		Entry: []Action{LogEvent("gameplay active")},
		Transitions: []Transition{
			{To: StateGameOverCheck, Guard: OnEvents(EventGameEnded)},
			{To: StateGameOverCheck, Guard: OnEvents(EventLivesExhausted)},
			{To: StateGameOverCheck, Guard: When(func(c *Context) bool {
				lives, ok := c.Int(VarLives)
				return ok && lives <= 0
			})},
			{
				To:      StatePauseCheck,
				Guard:   OnEvents(EventPauseRequested),
				Actions: []Action{UpdateVariables(map[string]any{VarPaused: true})},
			},
		},
	})

	w.AddState(State{
		ID:    StatePauseCheck,
		Entry: []Action{LogEvent("pause state check")},
		Transitions: []Transition{
			{To: StateActiveGameplay, Guard: When(func(c *Context) bool {
				paused, _ := c.Variables[VarPaused].(bool)
				return !paused
			})},
			{To: StateGamePaused, Guard: When(func(c *Context) bool {
				paused, _ := c.Variables[VarPaused].(bool)
				return paused
			})},
		},
	})

	w.AddState(State{
		ID:    StateGamePaused,
		Entry: []Action{LogEvent("game paused")},
		Transitions: []Transition{
			{
				To:      StatePauseCheck,
				Guard:   OnEvents(EventResumeRequested),
				Actions: []Action{UpdateVariables(map[string]any{VarPaused: false})},
			},
		},
	})

	w.AddState(State{
		ID:    StateGameOverCheck,
		Entry: []Action{LogEvent("checking end-of-game conditions")},
		Transitions: []Transition{
			{To: StateGameOver, Guard: AlwaysTrue()},
		},
	})

	w.AddState(State{
		ID: StateGameOver,
		Entry: []Action{
			LogEvent("game over"),
			SendNotification("session", "game over"),
		},
		Transitions: []Transition{
			{To: StateSessionCleanup, Guard: AlwaysTrue()},
		},
	})

	w.AddState(State{
		ID:       StateSessionCleanup,
		Terminal: true,
		Entry: []Action{
			LogEvent("session cleanup"),
			SendNotification("session", "session summary ready"),
		},
	})

	return w
}
