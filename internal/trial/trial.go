// Package trial implements the state machine of one play session: the
// read, distract and write stages of a trial, and the reconciliation with
// the profile's lifecycle that decides whether to inform the player or
// serve the next sentence.
//
// Every mutation is tagged with a generation counter that Reset bumps, so
// results of I/O started before a reset are discarded with ErrStale
// instead of being applied to the fresh trial.
package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gistr/gistr/internal/checks"
	"github.com/gistr/gistr/internal/lifecycle"
	"github.com/gistr/gistr/internal/observability"
	"github.com/gistr/gistr/internal/store"
)

// ProfileStore is the current player's profile.
type ProfileStore interface {
	Profile() store.Profile
	Reload(ctx context.Context) error
	Save(ctx context.Context) error
}

// Lifecycle evaluates and advances the player's lifecycle.
type Lifecycle interface {
	ValidateState() lifecycle.Cycle
	TransitionUp(ctx context.Context) error
	IsAtOrAfter(stage string) bool
	CurrentState() string
	Bucket() string
}

// Sampler selects the next sentence to read.
type Sampler interface {
	Select(ctx context.Context, p store.Profile, bucket string) (*store.Sentence, error)
}

// TreeReloader fetches a fresh copy of a tree.
type TreeReloader interface {
	Get(ctx context.Context, id int) (*store.Tree, error)
}

// SentenceWriter persists a reformulation.
type SentenceWriter interface {
	Write(ctx context.Context, in store.WriteInput) (*store.Sentence, error)
}

// Recorder appends accepted transitions to an event log.
type Recorder interface {
	Append(ctx context.Context, ev store.TrialEvent) error
}

// Deps are the collaborators of a Trial. Events is optional.
type Deps struct {
	Profile   ProfileStore
	Lifecycle Lifecycle
	Sampler   Sampler
	Trees     TreeReloader
	Writer    SentenceWriter
	Events    Recorder
}

// Config holds trial parameters.
type Config struct {
	// MinTokens is the minimum length of a reformulation.
	MinTokens int `yaml:"min_tokens"`

	// ReadFactor and WriteFactor are the time allotted per token of the
	// current sentence.
	ReadFactor  time.Duration `yaml:"read_factor"`
	WriteFactor time.Duration `yaml:"write_factor"`

	// DistractDuration is the length of the distraction stage.
	DistractDuration time.Duration `yaml:"distract_duration"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MinTokens:        10,
		ReadFactor:       time.Second,
		WriteFactor:      5 * time.Second,
		DistractDuration: 3 * time.Second,
	}
}

// Trial is one play session's state machine. All methods are safe for
// concurrent use, but callers should still serialize events: an event
// fired while another is waiting on I/O may be rejected or made stale.
type Trial struct {
	id      string
	deps    Deps
	cfg     Config
	checks  []checks.Check[Observation]
	infos   *checks.Accumulator
	logger  *slog.Logger
	metrics *observability.Metrics

	mu         sync.Mutex
	state      State
	streak     int
	sentence   *store.Sentence
	tree       *store.Tree
	generation uint64
}

// Option configures a Trial.
type Option func(*Trial)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trial) { t.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Trial) { t.metrics = m }
}

// WithChecks replaces the info checks.
func WithChecks(c []checks.Check[Observation]) Option {
	return func(t *Trial) { t.checks = c }
}

// WithID sets the trial id instead of a random one.
func WithID(id string) Option {
	return func(t *Trial) { t.id = id }
}

// New creates a trial in the instructions state.
func New(deps Deps, cfg Config, opts ...Option) *Trial {
	t := &Trial{
		id:     uuid.NewString(),
		deps:   deps,
		cfg:    cfg,
		checks: DefaultChecks(),
		infos:  checks.NewAccumulator(),
		logger: slog.Default(),
		state:  StateInstructions,
	}
	for _, o := range opts {
		o(t)
	}
	t.logger = t.logger.With("trial", t.id)
	return t
}

// ID returns the trial id.
func (t *Trial) ID() string { return t.id }

// State returns the current state.
func (t *Trial) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Streak returns the number of trials completed since the last reset.
func (t *Trial) Streak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streak
}

// Sentence returns the sentence being read or rewritten, or nil.
func (t *Trial) Sentence() *store.Sentence {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sentence
}

// Tree returns the current sentence's tree as last reloaded, or nil.
func (t *Trial) Tree() *store.Tree {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree
}

// Infos returns the accumulated info names in firing order.
func (t *Trial) Infos() []string {
	return t.infos.All()
}

// LifecycleInfo returns the accumulated lifecycle info, if any.
func (t *Trial) LifecycleInfo() (string, error) {
	return t.infos.Lifecycle()
}

// Fire sends ev to the trial. task.read samples a sentence and
// task.write.process reconciles without writing; see Read and Process.
func (t *Trial) Fire(ctx context.Context, ev Event) error {
	switch ev {
	case EventRead:
		return t.Read(ctx)
	case EventWriteProcess:
		_, err := t.Process(ctx)
		return err
	default:
		t.mu.Lock()
		gen := t.generation
		t.mu.Unlock()
		return t.fire(ctx, ev, gen)
	}
}

// Reset returns the trial to instructions, zeroing the streak and clearing
// infos and the current sentence. Operations in flight become stale.
func (t *Trial) Reset(ctx context.Context) error {
	return t.Fire(ctx, EventReset)
}

// Read samples the next sentence and enters task.reading. If sampling
// fails, including with sampling.ErrNoMaterial, the state is unchanged.
func (t *Trial) Read(ctx context.Context) error {
	t.mu.Lock()
	gen := t.generation
	t.mu.Unlock()
	return t.read(ctx, gen)
}

func (t *Trial) read(ctx context.Context, gen uint64) error {
	t.mu.Lock()
	from := t.state
	_, err := transitionFor(from, EventRead)
	t.mu.Unlock()
	if err != nil {
		t.reject(EventRead, err)
		return err
	}

	sentence, err := t.deps.Sampler.Select(ctx, t.deps.Profile.Profile(), t.deps.Lifecycle.Bucket())
	if err != nil {
		t.metrics.Transition(string(EventRead), observability.ResultFailed)
		return fmt.Errorf("enter %s: %w", StateReading, err)
	}

	return t.apply(ctx, EventRead, gen, func() {
		t.sentence = sentence
		t.tree = nil
	})
}

// ProcessWriting validates and persists a reformulation of the current
// sentence, counts the trial in the streak and enters
// task.writing.processing, then reconciles as LoadInfos does. Infos are
// frozen before anything is written.
func (t *Trial) ProcessWriting(ctx context.Context, text string) (Decision, error) {
	t.mu.Lock()
	gen := t.generation
	_, err := transitionFor(t.state, EventWriteProcess)
	sentence := t.sentence
	t.mu.Unlock()
	if err != nil {
		t.reject(EventWriteProcess, err)
		return DecisionStay, err
	}
	if sentence == nil {
		return DecisionStay, ErrNoSentence
	}
	if n := CountTokens(text); n < t.cfg.MinTokens {
		return DecisionStay, fmt.Errorf("%w: %d of %d words", ErrTooShort, n, t.cfg.MinTokens)
	}

	frozen, stage := t.freeze()

	profile := t.deps.Profile.Profile()
	written, err := t.deps.Writer.Write(ctx, store.WriteInput{
		ParentID:  sentence.ID,
		ProfileID: profile.ID,
		Text:      text,
		Bucket:    t.deps.Lifecycle.Bucket(),
	})
	if err != nil {
		return DecisionStay, fmt.Errorf("save reformulation: %w", err)
	}

	t.mu.Lock()
	if t.generation != gen {
		t.mu.Unlock()
		return DecisionStay, ErrStale
	}
	// Another event may have left task.writing.user during the write.
	if _, err := transitionFor(t.state, EventWriteProcess); err != nil {
		t.mu.Unlock()
		t.reject(EventWriteProcess, err)
		return DecisionStay, err
	}
	t.streak++
	t.mu.Unlock()
	t.logger.Info("reformulation saved", "sentence", written.ID, "parent", sentence.ID, "streak", t.Streak())

	return t.process(ctx, gen, frozen, stage)
}

// Process enters task.writing.processing without writing anything, then
// reconciles as LoadInfos does.
func (t *Trial) Process(ctx context.Context) (Decision, error) {
	t.mu.Lock()
	gen := t.generation
	t.mu.Unlock()
	frozen, stage := t.freeze()
	return t.process(ctx, gen, frozen, stage)
}

func (t *Trial) process(ctx context.Context, gen uint64, frozen checks.Frozen, stage string) (Decision, error) {
	if err := t.apply(ctx, EventWriteProcess, gen, nil); err != nil {
		return DecisionStay, err
	}

	if sentence := t.Sentence(); sentence != nil {
		tree, err := t.deps.Trees.Get(ctx, sentence.TreeID)
		if err != nil {
			return DecisionStay, fmt.Errorf("reload tree: %w", err)
		}
		t.mu.Lock()
		if t.generation != gen {
			t.mu.Unlock()
			return DecisionStay, ErrStale
		}
		t.tree = tree
		t.mu.Unlock()
	}

	return t.reconcile(ctx, gen, frozen, stage)
}

// fire runs a transition without will-enter I/O.
func (t *Trial) fire(ctx context.Context, ev Event, gen uint64) error {
	return t.apply(ctx, ev, gen, nil)
}

// apply validates ev against the current state and, unless the trial was
// reset since gen was captured, performs the exit and enter actions and
// the transition. enter runs under the lock.
func (t *Trial) apply(ctx context.Context, ev Event, gen uint64, enter func()) error {
	t.mu.Lock()
	if ev != EventReset && t.generation != gen {
		t.mu.Unlock()
		t.metrics.Transition(string(ev), observability.ResultStale)
		return ErrStale
	}
	from := t.state
	to, err := transitionFor(from, ev)
	if err != nil {
		t.mu.Unlock()
		t.reject(ev, err)
		return err
	}

	if from == StateInfo && to != StateInfo {
		t.infos.Reset()
	}
	if ev == EventReset {
		t.streak = 0
		t.sentence = nil
		t.tree = nil
		t.infos.Reset()
		t.generation++
	}
	if enter != nil {
		enter()
	}
	t.state = to
	infos := t.infos.All()
	var sentenceID int
	if t.sentence != nil {
		sentenceID = t.sentence.ID
	}
	t.mu.Unlock()

	t.metrics.Transition(string(ev), observability.ResultAccepted)
	t.logger.Debug("transition", "event", ev, "from", from, "to", to)
	t.record(ctx, store.TrialEvent{
		Event:      string(ev),
		From:       string(from),
		To:         string(to),
		SentenceID: sentenceID,
		Infos:      infos,
	})
	return nil
}

func (t *Trial) reject(ev Event, err error) {
	t.metrics.Transition(string(ev), observability.ResultRejected)
	t.logger.Warn("transition rejected", "event", ev, "error", err)
}

// record appends to the event log. Log failures never fail a transition.
func (t *Trial) record(ctx context.Context, ev store.TrialEvent) {
	if t.deps.Events == nil {
		return
	}
	ev.TrialID = t.id
	ev.ProfileID = t.deps.Profile.Profile().ID
	if err := t.deps.Events.Append(context.WithoutCancel(ctx), ev); err != nil {
		t.logger.Warn("record trial event", "event", ev.Event, "error", err)
	}
}

// IsInvariant reports whether err is an *InvariantError.
func IsInvariant(err error) bool {
	var inv *InvariantError
	return errors.As(err, &inv)
}
