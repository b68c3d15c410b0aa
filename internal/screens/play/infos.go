package play

import (
	"github.com/gistr/gistr/internal/checks"
	"github.com/gistr/gistr/internal/trial"
)

var infoText = map[string]string{
	trial.InfoTrainingCompleted:  "Training is over. From now on your sentences count for the experiment.",
	trial.InfoExperimentComplete: "You finished the experiment, thank you! You can keep playing freely.",
	trial.InfoNewCredit:          "You earned a suggestion credit.",
	trial.InfoBreak:              "Ten sentences in a row. Take a short break before going on.",
	trial.InfoDiffBreak:          "Nice streak. Keep each rewrite close to what you remember.",
	trial.InfoExplorationBreak:   "Five more done. Trees grow with every sentence you write.",
}

// describeInfo returns the player-facing text of an info name.
func describeInfo(name string) string {
	if s, ok := infoText[name]; ok {
		return s
	}
	n, err := checks.ParseName(name)
	if err != nil {
		return name
	}
	return n.Category + ": " + n.Label
}
