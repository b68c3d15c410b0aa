package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gistr/gistr/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load players and sentence trees from a YAML fixture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open fixture: %w", err)
		}
		defer f.Close()

		fixture, err := store.ParseFixture(f)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := st.Seed(cmd.Context(), fixture)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seeded", "fixture", args[0], "profiles", res.Profiles, "trees", res.Trees)
		fmt.Printf("Added %d players, %d trees, %d sentences.\n", res.Profiles, res.Trees, res.Sentences)
		return nil
	},
}
