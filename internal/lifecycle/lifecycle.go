// Package lifecycle tracks a profile's progress through the experiment's
// macro stages and the requirements gating each step up.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gistr/gistr/internal/store"
)

// Stages, in order.
const (
	StateRegistering = "registering"
	StateExpTraining = "exp.training"
	StateExpDoing    = "exp.doing"
	StatePlaying     = "playing"
)

// Routes that can make progress on a requirement.
const (
	RouteProfile = "profile"
	RoutePlay    = "play"
)

// Requirement names.
const (
	ReqHasMothertongue       = "has-mothertongue"
	ReqCompletedTrials       = "completed-trials"
	ReqTestedReadingSpan     = "tested-reading-span"
	ReqAnsweredQuestionnaire = "answered-questionnaire"
)

var (
	// ErrCycleIncomplete is returned by TransitionUp while requirements of
	// the current stage are pending.
	ErrCycleIncomplete = errors.New("lifecycle cycle incomplete")

	// ErrUnknownState is returned when a profile holds an unknown stage.
	ErrUnknownState = errors.New("unknown lifecycle state")
)

var stages = []string{StateRegistering, StateExpTraining, StateExpDoing, StatePlaying}

// Stages returns the stage names in order.
func Stages() []string {
	return slices.Clone(stages)
}

// Index returns the position of stage in the stage order, or -1.
func Index(stage string) int {
	return slices.Index(stages, stage)
}

// Config holds the amount of work required per stage.
type Config struct {
	// TrainingWork is the number of training reformulations required to
	// leave exp.training.
	TrainingWork int `yaml:"training_work"`

	// ExperimentWork is the number of experiment reformulations required to
	// leave exp.doing.
	ExperimentWork int `yaml:"experiment_work"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TrainingWork:   3,
		ExperimentWork: 10,
	}
}

// Cycle is a snapshot of the requirements of the current stage.
type Cycle struct {
	State        string
	IsComplete   bool
	Completed    []string
	Pending      []string
	Errors       []string
	ActionRoutes []string
}

// CanProgressFrom reports whether route can make progress on a pending
// requirement.
func (c Cycle) CanProgressFrom(route string) bool {
	return slices.Contains(c.ActionRoutes, route)
}

// requirement is one gate of a stage.
type requirement struct {
	name  string
	route string
	check func(p store.Profile, cfg Config) error
}

var requirements = map[string][]requirement{
	StateRegistering: {
		{ReqHasMothertongue, RouteProfile, func(p store.Profile, _ Config) error {
			if p.Mothertongue == "" {
				return errors.New("mothertongue not set")
			}
			return nil
		}},
	},
	StateExpTraining: {
		{ReqCompletedTrials, RoutePlay, func(p store.Profile, cfg Config) error {
			if p.TrainedReformulationsCount < cfg.TrainingWork {
				return fmt.Errorf("%d of %d training trials done", p.TrainedReformulationsCount, cfg.TrainingWork)
			}
			return nil
		}},
		{ReqTestedReadingSpan, RouteProfile, func(p store.Profile, _ Config) error {
			if !p.ReadingSpanDone {
				return errors.New("reading span not tested")
			}
			return nil
		}},
		{ReqAnsweredQuestionnaire, RouteProfile, func(p store.Profile, _ Config) error {
			if !p.QuestionnaireDone {
				return errors.New("questionnaire not answered")
			}
			return nil
		}},
	},
	StateExpDoing: {
		{ReqCompletedTrials, RoutePlay, func(p store.Profile, cfg Config) error {
			if p.ReformulationsCount < cfg.ExperimentWork {
				return fmt.Errorf("%d of %d experiment trials done", p.ReformulationsCount, cfg.ExperimentWork)
			}
			return nil
		}},
	},
	StatePlaying: nil,
}

// ProfileHandle is the in-memory profile the service reads and advances.
type ProfileHandle interface {
	Profile() store.Profile
	Update(fn func(p *store.Profile))
	Save(ctx context.Context) error
}

// Service evaluates and advances a profile's lifecycle.
type Service struct {
	profile ProfileHandle
	cfg     Config
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a lifecycle service over profile.
func New(profile ProfileHandle, cfg Config, opts ...Option) *Service {
	s := &Service{profile: profile, cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// CurrentState returns the profile's stage.
func (s *Service) CurrentState() string {
	return s.profile.Profile().LifecycleState
}

// IsAtOrAfter reports whether the current stage is stage or a later one.
// Unknown stages compare as never reached.
func (s *Service) IsAtOrAfter(stage string) bool {
	want := Index(stage)
	cur := Index(s.CurrentState())
	return want >= 0 && cur >= want
}

// Bucket returns the bucket of the current stage.
func (s *Service) Bucket() string {
	return BucketFor(s.CurrentState())
}

// BucketFor maps a stage to the bucket its work is filed under.
func BucketFor(stage string) string {
	switch stage {
	case StateExpDoing:
		return store.BucketExperiment
	case StatePlaying:
		return store.BucketGame
	default:
		return store.BucketTraining
	}
}

// ValidateState evaluates the requirements of the current stage against
// the in-memory profile.
func (s *Service) ValidateState() Cycle {
	return Validate(s.profile.Profile(), s.cfg)
}

// Validate evaluates the requirements of p's stage.
func Validate(p store.Profile, cfg Config) Cycle {
	c := Cycle{State: p.LifecycleState}
	reqs, ok := requirements[p.LifecycleState]
	if !ok {
		c.Errors = []string{fmt.Sprintf("%s: %q", ErrUnknownState, p.LifecycleState)}
		return c
	}
	for _, r := range reqs {
		if err := r.check(p, cfg); err != nil {
			c.Pending = append(c.Pending, r.name)
			c.Errors = append(c.Errors, fmt.Sprintf("%s: %v", r.name, err))
			if !slices.Contains(c.ActionRoutes, r.route) {
				c.ActionRoutes = append(c.ActionRoutes, r.route)
			}
			continue
		}
		c.Completed = append(c.Completed, r.name)
	}
	c.IsComplete = len(c.Pending) == 0
	return c
}

// TransitionUp advances the profile to the next stage and persists it. It
// is a no-op at the final stage. The in-memory stage is restored if saving
// fails.
func (s *Service) TransitionUp(ctx context.Context) error {
	cycle := s.ValidateState()
	idx := Index(cycle.State)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownState, cycle.State)
	}
	if !cycle.IsComplete {
		return fmt.Errorf("%w: %s pending %v", ErrCycleIncomplete, cycle.State, cycle.Pending)
	}
	if idx == len(stages)-1 {
		return nil
	}

	from, to := stages[idx], stages[idx+1]
	s.profile.Update(func(p *store.Profile) { p.LifecycleState = to })
	if err := s.profile.Save(ctx); err != nil {
		s.profile.Update(func(p *store.Profile) { p.LifecycleState = from })
		return fmt.Errorf("transition %s -> %s: %w", from, to, err)
	}
	s.logger.Info("lifecycle transition", "from", from, "to", to)
	return nil
}
