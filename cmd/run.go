package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gistr/gistr/internal/app"
	"github.com/gistr/gistr/internal/observability"
)

// runApp opens the store, builds dependencies, and launches the TUI.
// A non-empty profile starts directly on that player's trial. A
// non-empty metricsOut receives the session metrics on exit.
func runApp(cmd *cobra.Command, profile, metricsOut string) error {
	var reg *prometheus.Registry
	var registerer prometheus.Registerer
	if metricsOut != "" {
		reg = prometheus.NewRegistry()
		registerer = reg
	}

	env, err := openEnv(registerer)
	if err != nil {
		return err
	}
	defer env.Store.Close()

	opts := app.Options{Env: env}
	if profile != "" {
		s, err := env.OpenByName(cmd.Context(), profile)
		if err != nil {
			return err
		}
		opts.Session = s
	}

	logger.Info("starting game", "profile", profile)
	if err := app.Run(opts); err != nil {
		return fmt.Errorf("run game: %w", err)
	}

	if reg != nil {
		return observability.WriteTextfile(reg, metricsOut)
	}
	return nil
}
