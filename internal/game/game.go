// Package game wires the store, the sampler and the lifecycle into play
// sessions for one profile at a time.
package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gistr/gistr/internal/config"
	"github.com/gistr/gistr/internal/lifecycle"
	"github.com/gistr/gistr/internal/observability"
	"github.com/gistr/gistr/internal/sampling"
	"github.com/gistr/gistr/internal/shaping"
	"github.com/gistr/gistr/internal/store"
	"github.com/gistr/gistr/internal/trial"
)

// Env holds the process-wide services shared by every session.
type Env struct {
	Store   *store.Store
	Config  config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Shaping *shaping.Service
	Sampler *sampling.Sampler

	samplerOpts []sampling.Option
}

// Option configures an Env.
type Option func(*Env)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Env) { e.Logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Env) { e.Metrics = m }
}

// WithSamplerOptions passes extra options to the sampler.
func WithSamplerOptions(opts ...sampling.Option) Option {
	return func(e *Env) { e.samplerOpts = append(e.samplerOpts, opts...) }
}

// NewEnv builds the shared services over st.
func NewEnv(st *store.Store, cfg config.Config, opts ...Option) *Env {
	e := &Env{Store: st, Config: cfg, Logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	e.Shaping = shaping.New(st.Meta(),
		shaping.WithLogger(e.Logger),
		shaping.WithDefaults(cfg.Shaping))
	samplerOpts := append([]sampling.Option{
		sampling.WithLogger(e.Logger),
		sampling.WithMetrics(e.Metrics),
	}, e.samplerOpts...)
	e.Sampler = sampling.New(st.Trees(), st.Sentences(), e.Shaping, cfg.Sampling, samplerOpts...)
	return e
}

// Sentences returns the sentence repository with the configured credit
// period.
func (e *Env) Sentences() *store.SentenceRepo {
	return e.Store.Sentences().WithConfig(e.Config.Sentences)
}

// Available counts the trees p can still be served in its current stage.
func (e *Env) Available(ctx context.Context, p store.Profile) (int, error) {
	return e.Sampler.Available(ctx, p, lifecycle.BucketFor(p.LifecycleState))
}

// Session is one profile's play session.
type Session struct {
	Profile   *store.ProfileHandle
	Lifecycle *lifecycle.Service
	Trial     *trial.Trial
}

// Open starts a session for p. The profile is reloaded once so its
// availability is current.
func (e *Env) Open(ctx context.Context, p *store.Profile) (*Session, error) {
	handle := store.NewProfileHandle(e.Store.Profiles(), p)
	handle.SetAvailability(e.Available)
	if err := handle.Reload(ctx); err != nil {
		return nil, fmt.Errorf("open session for %s: %w", p.Name, err)
	}

	logger := e.Logger.With("profile", p.ID)
	lc := lifecycle.New(handle, e.Config.Lifecycle, lifecycle.WithLogger(logger))
	tr := trial.New(trial.Deps{
		Profile:   handle,
		Lifecycle: lc,
		Sampler:   e.Sampler,
		Trees:     e.Store.Trees(),
		Writer:    e.Sentences(),
		Events:    e.Store.Events(),
	}, e.Config.Trial,
		trial.WithLogger(logger),
		trial.WithMetrics(e.Metrics))

	logger.Info("session opened", "trial", tr.ID(), "stage", lc.CurrentState(),
		"available", handle.Profile().AvailableTreesBucket)
	return &Session{Profile: handle, Lifecycle: lc, Trial: tr}, nil
}

// OpenByName looks up the profile called name and opens a session for it.
func (e *Env) OpenByName(ctx context.Context, name string) (*Session, error) {
	p, err := e.Store.Profiles().ByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find profile %q: %w", name, err)
	}
	return e.Open(ctx, p)
}
