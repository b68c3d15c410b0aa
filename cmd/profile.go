package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gistr/gistr/internal/lifecycle"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage players",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List players with their stage and counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(nil)
		if err != nil {
			return err
		}
		defer env.Store.Close()

		profiles, err := env.Store.Profiles().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println("No players yet. Create one with: gistr profile create <name>")
			return nil
		}

		fmt.Printf("%-5s  %-20s  %-12s  %-14s  %8s  %10s  %6s  %9s\n",
			"ID", "Name", "Language", "Stage", "Training", "Experiment", "Credit", "Available")
		fmt.Println(strings.Repeat("─", 96))
		for _, p := range profiles {
			avail, err := env.Available(cmd.Context(), *p)
			if err != nil {
				return err
			}
			name := p.Name
			if len(name) > 20 {
				name = name[:17] + "..."
			}
			fmt.Printf("%-5d  %-20s  %-12s  %-14s  %8d  %10d  %6d  %9d\n",
				p.ID, name, p.Mothertongue, p.LifecycleState,
				p.TrainedReformulationsCount, p.ReformulationsCount,
				p.SuggestionCredit, avail)
		}
		fmt.Printf("\n%d players\n", len(profiles))
		return nil
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a new player",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tongue, _ := cmd.Flags().GetString("mothertongue")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.Profiles().Create(cmd.Context(), args[0], strings.ToLower(tongue))
		if err != nil {
			return err
		}
		fmt.Printf("Created player %q (id %d).\n", p.Name, p.ID)
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a player's stage and what is left to do",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.Profiles().ByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		cycle := lifecycle.Validate(*p, cfg.Lifecycle)
		fmt.Printf("%s (id %d)\n", p.Name, p.ID)
		fmt.Printf("  stage:         %s\n", p.LifecycleState)
		fmt.Printf("  mothertongue:  %s\n", p.Mothertongue)
		fmt.Printf("  training:      %d / %d\n", p.TrainedReformulationsCount, cfg.Lifecycle.TrainingWork)
		fmt.Printf("  experiment:    %d / %d\n", p.ReformulationsCount, cfg.Lifecycle.ExperimentWork)
		fmt.Printf("  credit:        %d\n", p.SuggestionCredit)
		if cycle.IsComplete {
			fmt.Println("  ready for the next stage")
			return nil
		}
		fmt.Println("  to do:")
		for _, e := range cycle.Errors {
			fmt.Printf("    - %s\n", e)
		}
		return nil
	},
}

func init() {
	profileCreateCmd.Flags().String("mothertongue", "", "The player's first language")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileShowCmd)
}
