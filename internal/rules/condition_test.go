// internal/rules/condition_test.go
package rules

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roshni-games/rulecore/internal/types"
)

func TestHourInWindow(t *testing.T) {
	tests := []struct {
		name  string
		hour  int
		start int
		end   int
		want  bool
	}{
		{name: "daytime window inside", hour: 10, start: 9, end: 17, want: true},
		{name: "daytime window at start", hour: 9, start: 9, end: 17, want: true},
		{name: "daytime window at end excluded", hour: 17, start: 9, end: 17, want: false},
		{name: "daytime window outside", hour: 20, start: 9, end: 17, want: false},
		{name: "overnight before midnight", hour: 23, start: 22, end: 6, want: true},
		{name: "overnight at start", hour: 22, start: 22, end: 6, want: true},
		{name: "overnight after midnight", hour: 1, start: 22, end: 6, want: true},
		{name: "overnight at end excluded", hour: 6, start: 22, end: 6, want: false},
		{name: "overnight midday excluded", hour: 12, start: 22, end: 6, want: false},
		{name: "equal bounds is full day", hour: 0, start: 8, end: 8, want: true},
		{name: "equal bounds is full day late", hour: 23, start: 8, end: 8, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HourInWindow(tt.hour, tt.start, tt.end); got != tt.want {
				t.Errorf("HourInWindow(%d, %d, %d) = %v, want %v", tt.hour, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

// Swapping start and end of a non-degenerate window yields its complement:
// every hour belongs to exactly one of the two.
func TestHourInWindow_PropertyComplement(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("window and swapped window partition the day", prop.ForAll(
		func(hour, start, end int) bool {
			if start == end {
				return HourInWindow(hour, start, end)
			}
			in := HourInWindow(hour, start, end)
			out := HourInWindow(hour, end, start)
			return in != out
		},
		gen.IntRange(0, 23),
		gen.IntRange(0, 23),
		gen.IntRange(0, 23),
	))

	properties.TestingRun(t)
}

func TestISODayOfWeek(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	for offset, want := range []int{1, 2, 3, 4, 5, 6, 7} {
		day := monday.AddDate(0, 0, offset)
		if got := ISODayOfWeek(day); got != want {
			t.Errorf("ISODayOfWeek(%s) = %d, want %d", day.Weekday(), got, want)
		}
	}
}

func TestTimeBasedCondition_DayFilter(t *testing.T) {
	weekendNight := Condition{
		Type:      ConditionTimeBased,
		StartHour: 22,
		EndHour:   6,
		Days:      []int{6, 7},
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "saturday night", at: time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC), want: true},
		{name: "sunday early morning", at: time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC), want: true},
		{name: "saturday midday", at: time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC), want: false},
		{name: "wednesday night", at: time.Date(2026, 8, 26, 23, 0, 0, 0, time.UTC), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := weekendNight.Evaluate(types.RuleContext{Timestamp: tt.at})
			if err != nil {
				t.Fatalf("Evaluate() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocationAllowed(t *testing.T) {
	tests := []struct {
		name     string
		location string
		allowed  []string
		blocked  []string
		want     bool
	}{
		{name: "empty lists allow everything", location: "HOME", want: true},
		{name: "blocked always denied", location: "RESTRICTED_AREA", blocked: []string{"RESTRICTED_AREA"}, want: false},
		{name: "unblocked passes with empty allowed", location: "SCHOOL", blocked: []string{"RESTRICTED_AREA"}, want: true},
		{name: "allowed membership mandatory", location: "HOME", allowed: []string{"HOME", "SCHOOL"}, want: true},
		{name: "unknown denied with non-empty allowed", location: "UNKNOWN", allowed: []string{"HOME", "SCHOOL"}, want: false},
		{name: "block wins over allow", location: "HOME", allowed: []string{"HOME"}, blocked: []string{"HOME"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocationAllowed(tt.location, tt.allowed, tt.blocked); got != tt.want {
				t.Errorf("LocationAllowed(%q) = %v, want %v", tt.location, got, tt.want)
			}
		})
	}
}

func TestContextCondition(t *testing.T) {
	ctx := types.RuleContext{
		Env: types.Environment{
			TimeOfDay: "morning",
			GameState: "stuck",
		},
		Context: map[string]string{
			"timeOfDay": "shadowed-by-env",
			"mood":      "calm",
		},
	}

	tests := []struct {
		name     string
		key      string
		expected string
		want     bool
	}{
		{name: "well-known key from environment", key: "timeOfDay", expected: "morning", want: true},
		{name: "environment shadows context map", key: "timeOfDay", expected: "shadowed-by-env", want: false},
		{name: "game state match", key: "gameState", expected: "stuck", want: true},
		{name: "empty env field falls through to map", key: "lightingCondition", expected: "dim", want: false},
		{name: "free-form key from map", key: "mood", expected: "calm", want: true},
		{name: "wildcard matches present value", key: "mood", expected: WildcardValue, want: true},
		{name: "wildcard never matches missing", key: "absent", expected: WildcardValue, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := Condition{Type: ConditionContext, Key: tt.key, Expected: tt.expected}
			got, err := cond.Evaluate(ctx)
			if err != nil {
				t.Fatalf("Evaluate() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(key=%q expected=%q) = %v, want %v", tt.key, tt.expected, got, tt.want)
			}
		})
	}
}

func TestPreferenceCondition(t *testing.T) {
	ctx := types.RuleContext{
		Profile: types.UserProfile{
			InteractionPreferences: map[string]string{"theme": "dark"},
		},
	}

	tests := []struct {
		name     string
		key      string
		expected string
		want     bool
	}{
		{name: "exact match", key: "theme", expected: "dark", want: true},
		{name: "mismatch", key: "theme", expected: "light", want: false},
		{name: "wildcard matches present", key: "theme", expected: WildcardValue, want: true},
		{name: "missing preference never matches", key: "language", expected: WildcardValue, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := Condition{Type: ConditionPreference, Key: tt.key, Expected: tt.expected}
			got, err := cond.Evaluate(ctx)
			if err != nil {
				t.Fatalf("Evaluate() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngagementCondition(t *testing.T) {
	max := 0.8
	cond := Condition{Type: ConditionEngagement, MinEngagement: 0.3, MaxEngagement: &max}

	tests := []struct {
		level float64
		want  bool
	}{
		{level: 0.3, want: true},
		{level: 0.8, want: true},
		{level: 0.5, want: true},
		{level: 0.29, want: false},
		{level: 0.81, want: false},
	}

	for _, tt := range tests {
		ctx := types.RuleContext{Profile: types.UserProfile{EngagementLevel: tt.level}}
		got, err := cond.Evaluate(ctx)
		if err != nil {
			t.Fatalf("Evaluate() error = %v, want nil", err)
		}
		if got != tt.want {
			t.Errorf("Evaluate(level=%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestBehaviorCondition(t *testing.T) {
	ctx := types.RuleContext{
		Profile: types.UserProfile{
			BehaviorCounts: map[string]int{"level_completed": 5},
		},
	}

	met := Condition{Type: ConditionBehavior, Behavior: "level_completed", MinOccurrences: 5}
	if got, _ := met.Evaluate(ctx); !got {
		t.Errorf("Evaluate() = false for count at threshold, want true")
	}

	unmet := Condition{Type: ConditionBehavior, Behavior: "level_completed", MinOccurrences: 6}
	if got, _ := unmet.Evaluate(ctx); got {
		t.Errorf("Evaluate() = true for count below threshold, want false")
	}

	unknown := Condition{Type: ConditionBehavior, Behavior: "never_seen", MinOccurrences: 1}
	if got, _ := unknown.Evaluate(ctx); got {
		t.Errorf("Evaluate() = true for unknown behavior, want false")
	}
}

func TestConditionValidate(t *testing.T) {
	bad := 1.5
	tests := []struct {
		name    string
		cond    Condition
		wantErr error
	}{
		{name: "blank preference key", cond: Condition{Type: ConditionPreference}, wantErr: types.ErrBlankConditionKey},
		{name: "blank behavior", cond: Condition{Type: ConditionBehavior}, wantErr: types.ErrBlankConditionKey},
		{name: "engagement out of range", cond: Condition{Type: ConditionEngagement, MinEngagement: -0.1}, wantErr: types.ErrInvalidEngagement},
		{name: "max engagement out of range", cond: Condition{Type: ConditionEngagement, MaxEngagement: &bad}, wantErr: types.ErrInvalidEngagement},
		{name: "hour out of range", cond: Condition{Type: ConditionTimeBased, StartHour: 24}, wantErr: types.ErrInvalidHour},
		{name: "day out of range", cond: Condition{Type: ConditionTimeBased, Days: []int{0}}, wantErr: types.ErrInvalidDay},
		{name: "unknown type", cond: Condition{Type: "bogus"}, wantErr: types.ErrUnknownConditionType},
		{name: "valid location", cond: Condition{Type: ConditionLocation}, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cond.Validate(); err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Condition evaluation is deterministic and never crashes for arbitrary
// context contents.
func TestConditionEvaluate_PropertyDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same context yields same verdict", prop.ForAll(
		func(level float64, location string, hour int) bool {
			ctx := types.RuleContext{
				Profile:   types.UserProfile{EngagementLevel: level},
				Location:  location,
				Timestamp: time.Date(2026, 8, 26, hour, 0, 0, 0, time.UTC),
			}
			conds := []Condition{
				{Type: ConditionEngagement, MinEngagement: 0.5},
				{Type: ConditionLocation, BlockedLocations: []string{"RESTRICTED_AREA"}},
				{Type: ConditionTimeBased, StartHour: 22, EndHour: 6},
			}
			for _, cond := range conds {
				first, err1 := cond.Evaluate(ctx)
				second, err2 := cond.Evaluate(ctx)
				if err1 != nil || err2 != nil || first != second {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 1),
		gen.AlphaString(),
		gen.IntRange(0, 23),
	))

	properties.TestingRun(t)
}
