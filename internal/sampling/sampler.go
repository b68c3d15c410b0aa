// Package sampling selects the sentence a player reads next: it samples an
// eligible tree, preferring trees below the shaping targets, and draws a
// node in it.
package sampling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gistr/gistr/internal/observability"
	"github.com/gistr/gistr/internal/shaping"
	"github.com/gistr/gistr/internal/store"
)

// ErrNoMaterial is returned by Select when no eligible tree remains, even
// without shape bounds. It is an expected outcome, not a failure.
var ErrNoMaterial = errors.New("no material available")

// TreeFinder queries trees.
type TreeFinder interface {
	Find(ctx context.Context, f store.TreeFilter) ([]*store.Tree, error)
	Count(ctx context.Context, f store.TreeFilter) (int, error)
}

// SentenceFinder resolves sentence ids.
type SentenceFinder interface {
	Get(ctx context.Context, id int) (*store.Sentence, error)
}

// Targeter provides the shaping targets.
type Targeter interface {
	Targets(ctx context.Context) (shaping.Targets, error)
}

// Config holds sampling parameters.
type Config struct {
	// PBranch is the probability of starting a new branch while a tree is
	// below its target branch count.
	PBranch float64 `yaml:"p_branch"`

	// DefaultLanguage is the language served to players whose mothertongue
	// is OtherLanguage.
	DefaultLanguage string `yaml:"default_language"`

	// OtherLanguage marks players who are not native speakers of any
	// supported language.
	OtherLanguage string `yaml:"other_language"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PBranch:         0.8,
		DefaultLanguage: "english",
		OtherLanguage:   "other",
	}
}

// Sampler selects sentences for a player.
type Sampler struct {
	trees     TreeFinder
	sentences SentenceFinder
	shaping   Targeter
	cfg       Config
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Sampler) { s.metrics = m }
}

// WithRand sets the random source, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Sampler) { s.rng = r }
}

// New creates a Sampler.
func New(trees TreeFinder, sentences SentenceFinder, targets Targeter, cfg Config, opts ...Option) *Sampler {
	s := &Sampler{
		trees:     trees,
		sentences: sentences,
		shaping:   targets,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return s
}

// Filter returns the eligibility filter of p in bucket: trees p has not
// written in, in p's language and the given bucket. Players of the other
// language get default-language trees reserved for them.
func (s *Sampler) Filter(p store.Profile, bucket string) store.TreeFilter {
	other := p.Mothertongue == s.cfg.OtherLanguage
	lang := p.Mothertongue
	if other {
		lang = s.cfg.DefaultLanguage
	}
	return store.TreeFilter{
		UntouchedBy:       p.ID,
		RootLanguage:      lang,
		RootBucket:        bucket,
		OtherMothertongue: store.Bool(other),
	}
}

// Shaped restricts f to trees at or below the shaping targets.
func Shaped(f store.TreeFilter, t shaping.Targets) store.TreeFilter {
	f.BranchesCountLTE = store.Int(t.BranchCount)
	f.ShortestBranchDepthLTE = store.Int(t.BranchDepth)
	return f
}

// Select samples one eligible tree, shaped first then unshaped, and draws
// the sentence p continues from. It returns ErrNoMaterial when no tree is
// eligible.
func (s *Sampler) Select(ctx context.Context, p store.Profile, bucket string) (*store.Sentence, error) {
	targets, err := s.shaping.Targets(ctx)
	if err != nil {
		s.metrics.Sample(observability.OutcomeError)
		return nil, fmt.Errorf("select sentence: %w", err)
	}

	unshaped := s.Filter(p, bucket)
	unshaped.Sample = 1

	tree, outcome, err := s.sample(ctx, Shaped(unshaped, targets), unshaped)
	s.metrics.Sample(outcome)
	if err != nil {
		return nil, fmt.Errorf("select sentence: %w", err)
	}
	if tree == nil {
		return nil, ErrNoMaterial
	}
	if tree.Root == nil {
		return nil, fmt.Errorf("select sentence: tree %d has no root", tree.ID)
	}

	s.mu.Lock()
	id, root := DrawInTree(tree, targets, s.cfg.PBranch, s.rng)
	s.mu.Unlock()
	s.metrics.Draw(root)

	s.logger.Debug("sentence drawn",
		"profile", p.ID, "bucket", bucket, "tree", tree.ID,
		"sentence", id, "new_branch", root, "query", outcome)

	if id == tree.Root.ID {
		return tree.Root, nil
	}
	sentence, err := s.sentences.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve drawn sentence: %w", err)
	}
	return sentence, nil
}

// sample runs the shaped query and falls back to the unshaped one when it
// is empty. A nil tree with a nil error means both were empty.
func (s *Sampler) sample(ctx context.Context, shaped, unshaped store.TreeFilter) (*store.Tree, string, error) {
	trees, err := s.trees.Find(ctx, shaped)
	if err != nil {
		return nil, observability.OutcomeError, err
	}
	if len(trees) > 0 {
		return trees[0], observability.OutcomeShaped, nil
	}

	trees, err = s.trees.Find(ctx, unshaped)
	if err != nil {
		return nil, observability.OutcomeError, err
	}
	if len(trees) > 0 {
		return trees[0], observability.OutcomeUnshaped, nil
	}
	return nil, observability.OutcomeEmpty, nil
}

// Available counts the trees p could still be served in bucket, ignoring
// shape bounds.
func (s *Sampler) Available(ctx context.Context, p store.Profile, bucket string) (int, error) {
	n, err := s.trees.Count(ctx, s.Filter(p, bucket))
	if err != nil {
		return 0, fmt.Errorf("count available trees: %w", err)
	}
	return n, nil
}
