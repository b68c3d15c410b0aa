// Package logging builds the process logger: a text handler on the
// terminal and, optionally, a JSON handler appending to a file, fanned out
// with slog-multi.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ErrUnknownLevel is returned for a level name slog does not know.
var ErrUnknownLevel = errors.New("unknown log level")

// Config selects the log level and the optional log file.
type Config struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// ParseLevel parses debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	return l, nil
}

// Logger is a logger together with the file it may own.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *os.File
}

// New builds a logger writing text to terminal and, when cfg.File is set,
// JSON to that file. A nil terminal disables the text handler, which is
// what a full-screen UI wants.
func New(cfg Config, terminal io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if terminal != nil {
		handlers = append(handlers, slog.NewTextHandler(terminal, opts))
	}

	var file *os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	return &Logger{
		Logger: slog.New(slogmulti.Fanout(handlers...)),
		level:  level,
		file:   file,
	}, nil
}

// SetLevel changes the level of every handler.
func (l *Logger) SetLevel(lvl slog.Level) {
	l.level.Set(lvl)
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
