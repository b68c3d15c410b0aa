package trial

import (
	"github.com/gistr/gistr/internal/checks"
	"github.com/gistr/gistr/internal/lifecycle"
	"github.com/gistr/gistr/internal/store"
)

// Observation is what info checks freeze and check against.
type Observation struct {
	Cycle   lifecycle.Cycle
	Streak  int
	Profile store.Profile
}

// Info names produced by DefaultChecks.
const (
	InfoTrainingCompleted  = "exp.training:lifecycle:just-completed-trials"
	InfoExperimentComplete = "exp.doing:lifecycle:just-completed-trials"
	InfoNewCredit          = "playing:gain:new-credit"
	InfoBreak              = "exp.doing:rhythm:break"
	InfoDiffBreak          = "playing:rhythm:diff-break"
	InfoExplorationBreak   = "playing:rhythm:exploration-break"
)

// DefaultChecks returns the built-in info checks.
func DefaultChecks() []checks.Check[Observation] {
	cycle := func(o Observation) (string, []string) {
		return o.Cycle.State, o.Cycle.Completed
	}
	streak := func(o Observation) int { return o.Streak }
	credit := func(o Observation) int { return o.Profile.SuggestionCredit }

	return []checks.Check[Observation]{
		checks.JustCompleted(InfoTrainingCompleted, lifecycle.StateExpTraining, lifecycle.ReqCompletedTrials, cycle),
		checks.JustCompleted(InfoExperimentComplete, lifecycle.StateExpDoing, lifecycle.ReqCompletedTrials, cycle),
		checks.CounterIncrement(InfoNewCredit, credit),
		checks.StreakModulus(InfoBreak, 10, streak),
		checks.StreakModulus(InfoDiffBreak, 3, streak),
		checks.StreakModulus(InfoExplorationBreak, 5, streak),
	}
}
