package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gistr/gistr/internal/config"
	"github.com/gistr/gistr/internal/game"
	"github.com/gistr/gistr/internal/logging"
	"github.com/gistr/gistr/internal/observability"
	"github.com/gistr/gistr/internal/store"
)

// annotationTUI marks commands that take over the terminal, whose logs
// must only go to the log file.
const annotationTUI = "tui"

var (
	cfg    config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gistr",
	Short: "Sentence telephone game",
	Long: "gistr is a terminal game of Chinese whispers: read a sentence, keep it in mind,\n" +
		"write it down, and your version becomes the one the next player reads.",
	Annotations:       map[string]string{annotationTUI: "true"},
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			return nil
		}
		return logger.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, "", "")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides GISTR_DB env var)")
	pf.String("config", "", "Path to the YAML config file (overrides GISTR_CONFIG env var)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-file", "", "Also write JSON logs to this file")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and builds the logger. Flags override
// the config file and the environment.
func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	c, err := config.Load(path, explicit)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		c.DB = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		c.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-file"); v != "" {
		c.Log.File = v
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	var terminal io.Writer = os.Stderr
	if cmd.Annotations[annotationTUI] == "true" {
		terminal = nil
	}
	l, err := logging.New(cfg.Log, terminal)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// resolveDBPath returns the database path using --db flag or the config
// file (highest priority), then GISTR_DB env var, then the default XDG path.
func resolveDBPath() (string, error) {
	if cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

// openStore opens the configured database.
func openStore() (*store.Store, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("store opened", "path", dbPath)
	return st, nil
}

// openEnv opens the store and builds the game services over it. reg may
// be nil, in which case no metrics are recorded.
func openEnv(reg prometheus.Registerer) (*game.Env, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	opts := []game.Option{game.WithLogger(logger.Logger)}
	if reg != nil {
		opts = append(opts, game.WithMetrics(observability.NewMetrics(reg)))
	}
	return game.NewEnv(st, cfg, opts...), nil
}
