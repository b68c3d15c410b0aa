package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gistr/gistr/internal/sampling"
	"github.com/gistr/gistr/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tree counts per bucket and language",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(nil)
		if err != nil {
			return err
		}
		defer env.Store.Close()
		ctx := cmd.Context()

		targets, err := env.Shaping.Targets(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Target shape: %d branches, %d sentences deep\n\n", targets.BranchCount, targets.BranchDepth)
		fmt.Printf("%-12s  %-12s  %6s  %9s\n", "Bucket", "Language", "Trees", "In shape")
		fmt.Println(strings.Repeat("─", 45))

		languages := []string{env.Config.Sampling.DefaultLanguage, env.Config.Sampling.OtherLanguage}
		buckets := []string{store.BucketTraining, store.BucketExperiment, store.BucketGame}
		total := 0
		for _, b := range buckets {
			for _, lang := range languages {
				all := store.TreeFilter{RootBucket: b, RootLanguage: lang}
				n, err := env.Store.Trees().Count(ctx, all)
				if err != nil {
					return err
				}
				u, err := env.Store.Trees().Count(ctx, sampling.Shaped(all, targets))
				if err != nil {
					return err
				}
				total += n
				fmt.Printf("%-12s  %-12s  %6d  %9d\n", b, lang, n, u)
			}
		}
		fmt.Printf("\n%d trees\n", total)
		return nil
	},
}
