// Package shaping provides the target tree shape that sampling steers
// towards, loaded once per process.
package shaping

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gistr/gistr/internal/store"
)

// Targets is the desired shape of a tree.
type Targets struct {
	BranchCount int `yaml:"branch_count"`
	BranchDepth int `yaml:"branch_depth"`
}

// DefaultTargets returns the shape used when no setting is stored.
func DefaultTargets() Targets {
	return Targets{BranchCount: 6, BranchDepth: 10}
}

// MetaSource reads integer settings.
type MetaSource interface {
	Int(ctx context.Context, key string) (int, bool, error)
}

// Service serves the shaping targets. The first successful load is cached
// for the life of the service; concurrent first callers share one load and
// a failed load is retried by the next caller.
type Service struct {
	source   MetaSource
	defaults Targets
	logger   *slog.Logger

	flight singleflight.Group

	mu     sync.RWMutex
	loaded bool
	cached Targets
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDefaults overrides the targets used for missing settings.
func WithDefaults(t Targets) Option {
	return func(s *Service) { s.defaults = t }
}

// New creates a shaping service reading from source.
func New(source MetaSource, opts ...Option) *Service {
	s := &Service{source: source, defaults: DefaultTargets(), logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Targets returns the shaping targets, loading them on first use.
func (s *Service) Targets(ctx context.Context) (Targets, error) {
	s.mu.RLock()
	if s.loaded {
		t := s.cached
		s.mu.RUnlock()
		return t, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.flight.Do("targets", func() (any, error) {
		s.mu.RLock()
		if s.loaded {
			t := s.cached
			s.mu.RUnlock()
			return t, nil
		}
		s.mu.RUnlock()

		t, err := s.load(ctx)
		if err != nil {
			return Targets{}, err
		}
		s.mu.Lock()
		s.cached, s.loaded = t, true
		s.mu.Unlock()
		s.logger.Debug("shaping targets loaded", "branch_count", t.BranchCount, "branch_depth", t.BranchDepth)
		return t, nil
	})
	if err != nil {
		return Targets{}, err
	}
	return v.(Targets), nil
}

func (s *Service) load(ctx context.Context) (Targets, error) {
	t := s.defaults
	n, ok, err := s.source.Int(ctx, store.MetaTargetBranchCount)
	if err != nil {
		return Targets{}, fmt.Errorf("load shaping targets: %w", err)
	}
	if ok {
		t.BranchCount = n
	}
	n, ok, err = s.source.Int(ctx, store.MetaTargetBranchDepth)
	if err != nil {
		return Targets{}, fmt.Errorf("load shaping targets: %w", err)
	}
	if ok {
		t.BranchDepth = n
	}
	return t, nil
}
