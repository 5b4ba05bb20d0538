// internal/rules/poller.go
package rules

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roshni-games/rulecore/internal/types"
)

/*
 * Continuous evaluation.
 *
 * A single cooperative poller per engine instance: each tick pulls a fresh
 * context from the provider and evaluates all enabled rules. At most one
 * tick is in flight at a time; when a slow provider or evaluation overruns
 * the interval, due ticks are skipped, never queued. This bounds memory and
 * CPU under load.
 *
 * Cancellation (context) stops the poller promptly; the engine registry and
 * statistics remain valid and reusable afterwards. Results are delivered on
 * an unbuffered channel; a consumer that falls behind keeps the tick in
 * flight, so later ticks are skipped instead of accumulating.
 */

// ContextProvider supplies a fresh evaluation snapshot per tick.
type ContextProvider func() (types.RuleContext, error)

// StartContinuousEvaluation launches the poller and returns its result
// stream. The channel closes after ctx is cancelled and any in-flight tick
// drains.
func (e *Engine) StartContinuousEvaluation(ctx context.Context, provider ContextProvider, interval time.Duration) <-chan []types.RuleResult {
	out := make(chan []types.RuleResult)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var inFlight atomic.Bool
		var wg sync.WaitGroup

		for {
			select {
			case <-ctx.Done():
				wg.Wait()
				return
			case <-ticker.C:
				// Skip, don't queue: a tick due while the previous one
				// still runs is dropped.
				if !inFlight.CompareAndSwap(false, true) {
					e.mu.Lock()
					e.ticksSkipped++
					e.mu.Unlock()
					e.log.Debug("evaluation tick skipped, previous tick still running")
					continue
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer inFlight.Store(false)
					e.runTick(ctx, provider, out)
				}()
			}
		}
	}()

	return out
}

// runTick executes one provider call plus full evaluation and delivers the
// results unless the poller is being cancelled.
func (e *Engine) runTick(ctx context.Context, provider ContextProvider, out chan<- []types.RuleResult) {
	snapshot, err := provider()
	if err != nil {
		e.log.WithField("error", err).Warn("context provider failed, tick skipped")
		return
	}

	results := e.EvaluateAll(snapshot)

	select {
	case out <- results:
	case <-ctx.Done():
	}
}
