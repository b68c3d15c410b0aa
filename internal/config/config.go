// Package config assembles the per-package configurations from a YAML
// file and GISTR_* environment variables. Command-line flags are applied
// by the caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gistr/gistr/internal/lifecycle"
	"github.com/gistr/gistr/internal/logging"
	"github.com/gistr/gistr/internal/sampling"
	"github.com/gistr/gistr/internal/shaping"
	"github.com/gistr/gistr/internal/store"
	"github.com/gistr/gistr/internal/trial"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the whole configuration of the gistr binary.
type Config struct {
	// DB is the SQLite database path. Empty means store.DefaultDBPath.
	DB string `yaml:"db"`

	Log       logging.Config       `yaml:"log"`
	Trial     trial.Config         `yaml:"trial"`
	Sampling  sampling.Config      `yaml:"sampling"`
	Lifecycle lifecycle.Config     `yaml:"lifecycle"`
	Sentences store.SentenceConfig `yaml:"sentences"`

	// Shaping holds the tree shape used when the database has none.
	Shaping shaping.Targets `yaml:"shaping"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:       logging.DefaultConfig(),
		Trial:     trial.DefaultConfig(),
		Sampling:  sampling.DefaultConfig(),
		Lifecycle: lifecycle.DefaultConfig(),
		Sentences: store.DefaultSentenceConfig(),
		Shaping:   shaping.DefaultTargets(),
	}
}

// DefaultPath returns $GISTR_CONFIG, or gistr/config.yaml under the user
// config directory.
func DefaultPath() (string, error) {
	if p := os.Getenv("GISTR_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "gistr", "config.yaml"), nil
}

// Load reads the configuration from path over the defaults, then applies
// the environment. A missing file is not an error unless explicit is set.
func Load(path string, explicit bool) (Config, error) {
	return load(path, explicit, os.LookupEnv)
}

func load(path string, explicit bool, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("GISTR_DB", &c.DB)
	str("GISTR_LOG_LEVEL", &c.Log.Level)
	str("GISTR_LOG_FILE", &c.Log.File)
	if v, ok := lookup("GISTR_P_BRANCH"); ok && v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GISTR_P_BRANCH: %w", err)
		}
		c.Sampling.PBranch = p
	}
	return errors.Join(
		integer("GISTR_MIN_TOKENS", &c.Trial.MinTokens),
		duration("GISTR_READ_FACTOR", &c.Trial.ReadFactor),
		duration("GISTR_WRITE_FACTOR", &c.Trial.WriteFactor),
		integer("GISTR_TRAINING_WORK", &c.Lifecycle.TrainingWork),
		integer("GISTR_EXPERIMENT_WORK", &c.Lifecycle.ExperimentWork),
	)
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	_, err := logging.ParseLevel(c.Log.Level)
	check(err == nil, "log.level %q", c.Log.Level)
	check(c.Trial.MinTokens >= 0, "trial.min_tokens %d < 0", c.Trial.MinTokens)
	check(c.Trial.ReadFactor > 0, "trial.read_factor must be positive")
	check(c.Trial.WriteFactor > 0, "trial.write_factor must be positive")
	check(c.Trial.DistractDuration >= 0, "trial.distract_duration must not be negative")
	check(c.Sampling.PBranch >= 0 && c.Sampling.PBranch <= 1, "sampling.p_branch %v outside [0, 1]", c.Sampling.PBranch)
	check(c.Sampling.DefaultLanguage != "", "sampling.default_language is empty")
	check(c.Lifecycle.TrainingWork > 0, "lifecycle.training_work must be positive")
	check(c.Lifecycle.ExperimentWork > 0, "lifecycle.experiment_work must be positive")
	check(c.Sentences.CreditEvery > 0, "sentences.credit_every must be positive")
	check(c.Shaping.BranchCount > 0, "shaping.branch_count must be positive")
	check(c.Shaping.BranchDepth > 0, "shaping.branch_depth must be positive")
	return errors.Join(errs...)
}

// Write stores cfg as YAML at path, creating its directory.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
