package checks

import "slices"

// StreakModulus fires when the streak advanced by exactly one since the
// freeze and landed on a non-zero multiple of modulus.
func StreakModulus[A any](name string, modulus int, streak func(A) int) Check[A] {
	return Check[A]{
		Name: name,
		Freeze: func(a A) any {
			return streak(a)
		},
		Check: func(frozen any, a A) bool {
			before, ok := frozen.(int)
			if !ok || modulus <= 0 {
				return false
			}
			now := streak(a)
			return now == before+1 && now != 0 && now%modulus == 0
		},
	}
}

// CounterIncrement fires when counter is exactly one past its frozen value.
func CounterIncrement[A any](name string, counter func(A) int) Check[A] {
	return Check[A]{
		Name: name,
		Freeze: func(a A) any {
			return counter(a)
		},
		Check: func(frozen any, a A) bool {
			before, ok := frozen.(int)
			if !ok {
				return false
			}
			return counter(a) == before+1
		},
	}
}

// JustCompleted fires when requirement appears in the completed set of the
// given stage and was not there at freeze time. completed returns the
// current stage and its completed requirement names.
func JustCompleted[A any](name, stage, requirement string, completed func(A) (string, []string)) Check[A] {
	holds := func(a A) bool {
		current, done := completed(a)
		return current == stage && slices.Contains(done, requirement)
	}
	return Check[A]{
		Name: name,
		Freeze: func(a A) any {
			return holds(a)
		},
		Check: func(frozen any, a A) bool {
			was, _ := frozen.(bool)
			return !was && holds(a)
		},
	}
}
