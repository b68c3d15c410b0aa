package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := load(path, false, env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = load(path, true, env(nil))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := writeFile(t, `
db: /tmp/g.db
log:
  level: debug
trial:
  min_tokens: 4
  write_factor: 2s
sampling:
  p_branch: 0.5
shaping:
  branch_count: 3
`)
	cfg, err := load(path, true, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/g.db", cfg.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Trial.MinTokens)
	assert.Equal(t, 2*time.Second, cfg.Trial.WriteFactor)
	assert.Equal(t, Default().Trial.ReadFactor, cfg.Trial.ReadFactor)
	assert.Equal(t, 0.5, cfg.Sampling.PBranch)
	assert.Equal(t, "english", cfg.Sampling.DefaultLanguage)
	assert.Equal(t, 3, cfg.Shaping.BranchCount)
	assert.Equal(t, 10, cfg.Shaping.BranchDepth)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	path := writeFile(t, "trial:\n  min_tokens: 4\n")

	cfg, err := load(path, true, env(map[string]string{
		"GISTR_MIN_TOKENS":    "7",
		"GISTR_LOG_FILE":      "/tmp/gistr.log",
		"GISTR_P_BRANCH":      "1",
		"GISTR_READ_FACTOR":   "500ms",
		"GISTR_TRAINING_WORK": "",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Trial.MinTokens)
	assert.Equal(t, "/tmp/gistr.log", cfg.Log.File)
	assert.Equal(t, 1.0, cfg.Sampling.PBranch)
	assert.Equal(t, 500*time.Millisecond, cfg.Trial.ReadFactor)
	assert.Equal(t, Default().Lifecycle.TrainingWork, cfg.Lifecycle.TrainingWork)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "p_branch above one", body: "sampling:\n  p_branch: 1.5\n"},
		{name: "unknown level", body: "log:\n  level: chatty\n"},
		{name: "zero credit period", body: "sentences:\n  credit_every: 0\n"},
		{name: "malformed yaml", body: "trial: [\n"},
		{name: "bad env int", env: map[string]string{"GISTR_MIN_TOKENS": "ten"}},
		{name: "bad env duration", env: map[string]string{"GISTR_WRITE_FACTOR": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.body)
			_, err := load(path, true, env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Lifecycle.TrainingWork = 0
	cfg.Shaping.BranchDepth = -1

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "lifecycle.training_work")
	assert.Contains(t, err.Error(), "shaping.branch_depth")
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Default()
	want.Trial.MinTokens = 12
	want.Log.File = "/var/log/gistr.log"

	require.NoError(t, Write(path, want))
	got, err := load(path, true, env(nil))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
