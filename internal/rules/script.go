// internal/rules/script.go
package rules

import (
	"fmt"
	"strings"

	lua "github.com/Shopify/go-lua"
	"github.com/roshni-games/rulecore/internal/types"
)

/*
 * Scripted predicates.
 *
 * The script condition variant evaluates a Lua boolean expression against a
 * fixed set of context globals. Scripts give "arbitrary predicate" conditions
 * a form the rule store can round-trip, unlike Go closures.
 *
 * Globals exposed to scripts:
 *   user_id, game_id, location         string
 *   level, score, age                  number
 *   engagement                         number in [0, 1]
 *   premium                            boolean
 *   difficulty                         string
 *   context, prefs                     tables of string -> string
 *
 * Each evaluation runs in a fresh lua.State: states are not goroutine-safe
 * and rules are few and cheap, so per-call construction beats a pooled state
 * with locking.
 */

// validateScript performs structural checks on script source.
func validateScript(src string) error {
	if strings.TrimSpace(src) == "" {
		return types.ErrBlankScript
	}
	if len(src) > types.MaxScriptLength {
		return types.ErrScriptTooLong
	}
	return nil
}

// evalScript runs the expression and interprets its single return value as a
// boolean (Lua truthiness: nil and false are false, everything else true).
func evalScript(src string, ctx types.RuleContext) (ok bool, err error) {
	if err := validateScript(src); err != nil {
		return false, err
	}

	// go-lua raises runtime errors as panics outside protected calls
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("script panic: %v", r)
		}
	}()

	l := lua.NewState()
	lua.OpenLibraries(l)
	bindContext(l, ctx)

	if err := lua.LoadString(l, "return ("+src+")"); err != nil {
		return false, fmt.Errorf("script load: %w", err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return false, fmt.Errorf("script run: %w", err)
	}

	result := l.ToBoolean(-1)
	l.Pop(1)
	return result, nil
}

// bindContext pushes evaluation inputs as script globals.
func bindContext(l *lua.State, ctx types.RuleContext) {
	l.PushString(ctx.UserID)
	l.SetGlobal("user_id")
	l.PushString(ctx.GameID)
	l.SetGlobal("game_id")
	l.PushString(ctx.Location)
	l.SetGlobal("location")
	l.PushString(ctx.Game.Difficulty)
	l.SetGlobal("difficulty")
	l.PushInteger(ctx.Game.Level)
	l.SetGlobal("level")
	l.PushInteger(ctx.Game.Score)
	l.SetGlobal("score")
	l.PushInteger(ctx.Profile.Age)
	l.SetGlobal("age")
	l.PushNumber(ctx.Profile.EngagementLevel)
	l.SetGlobal("engagement")
	l.PushBoolean(ctx.Profile.Premium)
	l.SetGlobal("premium")

	pushStringTable(l, ctx.Context)
	l.SetGlobal("context")
	pushStringTable(l, ctx.Profile.InteractionPreferences)
	l.SetGlobal("prefs")
}

// pushStringTable leaves a new table of string pairs on the Lua stack.
func pushStringTable(l *lua.State, m map[string]string) {
	l.NewTable()
	for k, v := range m {
		l.PushString(v)
		l.SetField(-2, k)
	}
}
