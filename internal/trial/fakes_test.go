package trial

import (
	"context"
	"sync"
	"testing"

	"github.com/gistr/gistr/internal/lifecycle"
	"github.com/gistr/gistr/internal/store"
)

// fakeProfile keeps a server copy that Reload copies into the current one.
type fakeProfile struct {
	mu        sync.Mutex
	current   store.Profile
	server    store.Profile
	reloadErr error
	reloads   int

	// When set, Reload recomputes AvailableTreesBucket with it.
	available func(p store.Profile) int

	// When set, Reload signals entered then waits on release.
	entered chan struct{}
	release chan struct{}
}

func newFakeProfile(p store.Profile) *fakeProfile {
	return &fakeProfile{current: p, server: p}
}

func (f *fakeProfile) Profile() store.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeProfile) Update(fn func(p *store.Profile)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.current)
}

func (f *fakeProfile) Save(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.server.LifecycleState = f.current.LifecycleState
	return nil
}

func (f *fakeProfile) Reload(context.Context) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	if f.reloadErr != nil {
		return f.reloadErr
	}
	f.current = f.server
	if f.available != nil {
		f.current.AvailableTreesBucket = f.available(f.current)
	}
	return nil
}

func (f *fakeProfile) onServer(fn func(p *store.Profile)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.server)
}

type fakeSampler struct {
	mu    sync.Mutex
	next  int
	err   error
	calls int
}

func (f *fakeSampler) Select(_ context.Context, p store.Profile, bucket string) (*store.Sentence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.next++
	return &store.Sentence{
		ID:     f.next,
		TreeID: 100 + f.next,
		Text:   "the cat sat on the mat",
		Bucket: bucket,
	}, nil
}

type fakeTrees struct {
	err error
}

func (f *fakeTrees) Get(_ context.Context, id int) (*store.Tree, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &store.Tree{ID: id}, nil
}

// fakeWriter bumps the server-side counters the way the store does.
type fakeWriter struct {
	profile *fakeProfile
	writes  []store.WriteInput
	err     error
	after   func(p *store.Profile)

	// during runs before the write is stored.
	during func()
}

func (f *fakeWriter) Write(_ context.Context, in store.WriteInput) (*store.Sentence, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.during != nil {
		f.during()
	}
	f.writes = append(f.writes, in)
	f.profile.onServer(func(p *store.Profile) {
		if in.Bucket == store.BucketTraining {
			p.TrainedReformulationsCount++
		} else {
			p.ReformulationsCount++
		}
		if f.after != nil {
			f.after(p)
		}
	})
	return &store.Sentence{ID: 1000 + len(f.writes), ParentID: in.ParentID, Text: in.Text}, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []store.TrialEvent
}

func (f *fakeRecorder) Append(_ context.Context, ev store.TrialEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type harness struct {
	trial    *Trial
	profile  *fakeProfile
	sampler  *fakeSampler
	trees    *fakeTrees
	writer   *fakeWriter
	recorder *fakeRecorder
}

func playingProfile() store.Profile {
	return store.Profile{
		ID:                   1,
		Name:                 "ada",
		Mothertongue:         "english",
		LifecycleState:       lifecycle.StatePlaying,
		ReadingSpanDone:      true,
		QuestionnaireDone:    true,
		AvailableTreesBucket: 5,
	}
}

func newHarness(t *testing.T, p store.Profile, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		profile:  newFakeProfile(p),
		sampler:  &fakeSampler{},
		trees:    &fakeTrees{},
		recorder: &fakeRecorder{},
	}
	h.writer = &fakeWriter{profile: h.profile}
	cfg := DefaultConfig()
	cfg.MinTokens = 3
	h.trial = New(Deps{
		Profile:   h.profile,
		Lifecycle: lifecycle.New(h.profile, lifecycle.DefaultConfig()),
		Sampler:   h.sampler,
		Trees:     h.trees,
		Writer:    h.writer,
		Events:    h.recorder,
	}, cfg, opts...)
	return h
}

// toWriting drives the trial from instructions to task.writing.user.
func (h *harness) toWriting(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, ev := range []Event{EventRead, EventDistract, EventWriteUser} {
		if err := h.trial.Fire(ctx, ev); err != nil {
			t.Fatalf("fire %s: %v", ev, err)
		}
	}
}

// force puts the trial in state s, bypassing the table.
func (h *harness) force(s State) {
	h.trial.mu.Lock()
	defer h.trial.mu.Unlock()
	h.trial.state = s
}
