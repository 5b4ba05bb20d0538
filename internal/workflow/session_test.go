// internal/workflow/session_test.go
package workflow

import (
	"context"
	"testing"
	"time"
)

// newTestSession builds the session workflow with sleeps stubbed out.
func newTestSession() *Workflow {
	w := NewGameSession(nil)
	w.sleep = func(time.Duration) {}
	return w
}

func TestGameSession_Validate(t *testing.T) {
	if err := newTestSession().Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestGameSession_ReachesActiveGameplay(t *testing.T) {
	run, err := newTestSession().Start(NewContext("child-1", "puzzle-1"))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() error = %v", err)
	}
	if run.Current() != StateActiveGameplay {
		t.Fatalf("Current() = %q, want %q (blocked awaiting events)", run.Current(), StateActiveGameplay)
	}
	if run.Done() {
		t.Errorf("Done() = true while gameplay active, want false")
	}

	wantPath := []string{StateSessionStart, StateGameLoading, StateActiveGameplay}
	got := run.Path()
	if len(got) != len(wantPath) {
		t.Fatalf("Path() = %v, want %v", got, wantPath)
	}
	for i := range wantPath {
		if got[i] != wantPath[i] {
			t.Fatalf("Path() = %v, want %v", got, wantPath)
		}
	}

	if lives, ok := run.ctx.Int(VarLives); !ok || lives != startingLives {
		t.Errorf("lives = %d (ok=%v), want %d set during loading", lives, ok, startingLives)
	}
}

func TestGameSession_GameEndedRunsToCleanup(t *testing.T) {
	run, err := newTestSession().Start(NewContext("child-1", "puzzle-1"))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() error = %v", err)
	}

	run.Inject(EventGameEnded)
	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() after game_ended error = %v", err)
	}

	if !run.Done() {
		t.Fatalf("Done() = false, want true after game ended")
	}
	if run.Current() != StateSessionCleanup {
		t.Errorf("Current() = %q, want %q", run.Current(), StateSessionCleanup)
	}

	notices := run.Notifications()
	if len(notices) != 2 {
		t.Fatalf("Notifications() = %d, want 2 (game over + session summary)", len(notices))
	}
	if notices[0].State != StateGameOver || notices[1].State != StateSessionCleanup {
		t.Errorf("notification states = %s, %s, want %s, %s",
			notices[0].State, notices[1].State, StateGameOver, StateSessionCleanup)
	}
}

func TestGameSession_LivesExhausted(t *testing.T) {
	run, err := newTestSession().Start(NewContext("child-1", "puzzle-1"))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() error = %v", err)
	}

	// the game reports all lives lost
	run.ctx.Variables[VarLives] = 0
	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() with zero lives error = %v", err)
	}

	if !run.Done() || run.Current() != StateSessionCleanup {
		t.Errorf("run ended at %q (done=%v), want %q", run.Current(), run.Done(), StateSessionCleanup)
	}
}

func TestGameSession_PauseResumeRoundTrip(t *testing.T) {
	run, err := newTestSession().Start(NewContext("child-1", "puzzle-1"))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() error = %v", err)
	}

	run.Inject(EventPauseRequested)
	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() after pause error = %v", err)
	}
	if run.Current() != StateGamePaused {
		t.Fatalf("Current() = %q, want %q", run.Current(), StateGamePaused)
	}

	run.Inject(EventResumeRequested)
	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() after resume error = %v", err)
	}
	if run.Current() != StateActiveGameplay {
		t.Errorf("Current() = %q, want %q after resume", run.Current(), StateActiveGameplay)
	}
	if run.Done() {
		t.Errorf("Done() = true after resume, want false")
	}

	// session still ends normally after the round trip
	run.Inject(EventGameEnded)
	if err := run.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion() after game_ended error = %v", err)
	}
	if !run.Done() {
		t.Errorf("Done() = false, want true")
	}
}
