package checks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counters struct {
	streak int
	credit int
	stage  string
	done   []string
}

func streakOf(c *counters) int { return c.streak }
func creditOf(c *counters) int { return c.credit }
func stageOf(c *counters) (string, []string) {
	return c.stage, c.done
}

func TestStreakModulus_FiresOncePerCrossing(t *testing.T) {
	c := &counters{streak: 9}
	list := []Check[*counters]{StreakModulus("exp.doing:rhythm:break", 10, streakOf)}

	frozen := Freeze(list, c)
	c.streak++
	assert.Equal(t, []string{"exp.doing:rhythm:break"}, Evaluate(frozen, list, c))

	// Re-freeze at 10 with no further increment: nothing fires.
	frozen = Freeze(list, c)
	assert.Empty(t, Evaluate(frozen, list, c))
}

func TestStreakModulus_Table(t *testing.T) {
	tests := []struct {
		name    string
		before  int
		after   int
		modulus int
		want    bool
	}{
		{"crosses 3", 2, 3, 3, true},
		{"crosses 5", 4, 5, 5, true},
		{"not a multiple", 3, 4, 3, false},
		{"jumped two", 8, 10, 10, false},
		{"unchanged", 10, 10, 10, false},
		{"reset to zero", 0, 0, 3, false},
		{"zero modulus", 0, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &counters{streak: tt.before}
			list := []Check[*counters]{StreakModulus("playing:rhythm:x", tt.modulus, streakOf)}
			frozen := Freeze(list, c)
			c.streak = tt.after
			got := len(Evaluate(frozen, list, c)) == 1
			if got != tt.want {
				t.Errorf("fired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCounterIncrement(t *testing.T) {
	c := &counters{credit: 4}
	list := []Check[*counters]{CounterIncrement("playing:gain:new-credit", creditOf)}

	frozen := Freeze(list, c)
	c.credit = 5
	assert.Equal(t, []string{"playing:gain:new-credit"}, Evaluate(frozen, list, c))

	frozen = Freeze(list, c)
	c.credit = 7
	assert.Empty(t, Evaluate(frozen, list, c))
}

func TestJustCompleted(t *testing.T) {
	c := &counters{stage: "exp.training"}
	list := []Check[*counters]{
		JustCompleted("exp.training:lifecycle:just-completed-trials", "exp.training", "completed-trials", stageOf),
	}

	frozen := Freeze(list, c)
	c.done = []string{"completed-trials"}
	assert.Len(t, Evaluate(frozen, list, c), 1)

	// Already completed before the freeze.
	frozen = Freeze(list, c)
	assert.Empty(t, Evaluate(frozen, list, c))

	// Completed in another stage.
	c = &counters{stage: "exp.doing"}
	frozen = Freeze(list, c)
	c.done = []string{"completed-trials"}
	assert.Empty(t, Evaluate(frozen, list, c))
}

func TestFreezeCallsEachOnce(t *testing.T) {
	calls := map[string]int{}
	mk := func(name string, fire bool) Check[int] {
		return Check[int]{
			Name: name,
			Freeze: func(int) any {
				calls["freeze:"+name]++
				return nil
			},
			Check: func(any, int) bool {
				calls["check:"+name]++
				return fire
			},
		}
	}
	list := []Check[int]{mk("a:x:1", true), mk("b:x:2", false), mk("c:x:3", true)}

	frozen := Freeze(list, 0)
	fired := Evaluate(frozen, list, 0)

	assert.Equal(t, []string{"a:x:1", "c:x:3"}, fired)
	for _, n := range []string{"a:x:1", "b:x:2", "c:x:3"} {
		assert.Equal(t, 1, calls["freeze:"+n], n)
		assert.Equal(t, 1, calls["check:"+n], n)
	}
}

func TestEvaluate_DuplicateRegistration(t *testing.T) {
	always := Check[int]{Name: "s:c:l", Check: func(any, int) bool { return true }}
	fired := Evaluate(Frozen{}, []Check[int]{always, always}, 0)
	assert.Equal(t, []string{"s:c:l"}, fired)
}

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator()

	added := acc.Add("playing:rhythm:diff-break", "playing:gain:new-credit", "playing:rhythm:diff-break")
	assert.Equal(t, []string{"playing:rhythm:diff-break", "playing:gain:new-credit"}, added)
	assert.Equal(t, 2, acc.Len())

	assert.Empty(t, acc.Add("playing:gain:new-credit"))
	assert.True(t, acc.Has("playing:gain:new-credit"))

	assert.Equal(t, []string{"playing:rhythm:diff-break"}, acc.Filter(Name{Category: CategoryRhythm}))

	acc.Reset()
	assert.Zero(t, acc.Len())
	assert.False(t, acc.Has("playing:gain:new-credit"))
}

func TestAccumulator_Lifecycle(t *testing.T) {
	acc := NewAccumulator()

	name, err := acc.Lifecycle()
	require.NoError(t, err)
	assert.Empty(t, name)

	acc.Add("exp.training:lifecycle:just-completed-trials", "playing:rhythm:diff-break")
	name, err = acc.Lifecycle()
	require.NoError(t, err)
	assert.Equal(t, "exp.training:lifecycle:just-completed-trials", name)

	acc.Add("exp.doing:lifecycle:just-completed-trials")
	_, err = acc.Lifecycle()
	assert.True(t, errors.Is(err, ErrMultipleLifecycle))
}

func TestParseName(t *testing.T) {
	n, err := ParseName("exp.training:lifecycle:just-completed-trials")
	require.NoError(t, err)
	assert.Equal(t, Name{Scope: "exp.training", Category: "lifecycle", Label: "just-completed-trials"}, n)
	assert.Equal(t, "exp.training:lifecycle:just-completed-trials", n.String())

	for _, bad := range []string{"", "a:b", "a::c", "a:b:c:d"} {
		_, err := ParseName(bad)
		assert.ErrorIs(t, err, ErrMalformedName, bad)
	}
}
