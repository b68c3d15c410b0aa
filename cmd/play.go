package cmd

import (
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:         "play",
	Short:       "Start playing, optionally as a given player",
	Annotations: map[string]string{annotationTUI: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		metricsOut, _ := cmd.Flags().GetString("metrics-out")
		return runApp(cmd, profile, metricsOut)
	},
}

func init() {
	playCmd.Flags().String("profile", "", "Name of the player to start with")
	playCmd.Flags().String("metrics-out", "", "Write session metrics to this file on exit (Prometheus text format)")
}
