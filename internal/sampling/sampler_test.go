package sampling

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistr/gistr/internal/shaping"
	"github.com/gistr/gistr/internal/store"
)

type fakeTrees struct {
	// results are returned in order, one per Find call.
	results [][]*store.Tree
	err     error
	count   int
	filters []store.TreeFilter
}

func (f *fakeTrees) Find(_ context.Context, filter store.TreeFilter) ([]*store.Tree, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func (f *fakeTrees) Count(_ context.Context, filter store.TreeFilter) (int, error) {
	f.filters = append(f.filters, filter)
	return f.count, f.err
}

type fakeSentences map[int]*store.Sentence

func (f fakeSentences) Get(_ context.Context, id int) (*store.Sentence, error) {
	s, ok := f[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

type fixedTargets shaping.Targets

func (t fixedTargets) Targets(context.Context) (shaping.Targets, error) {
	return shaping.Targets(t), nil
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// grownTree has two branches: 2 -> 4 (tip 4 at depth 2) and 3 (tip at depth 1).
func grownTree() *store.Tree {
	return &store.Tree{
		ID:            7,
		Root:          &store.Sentence{ID: 1, TreeID: 7},
		BranchesCount: 2,
		Branches: []store.Branch{
			{ID: 2, Tips: []store.Tip{{SentenceID: 4, Depth: 2}}},
			{ID: 3, Tips: []store.Tip{{SentenceID: 3, Depth: 1}}},
		},
	}
}

func TestSelect_ShapedHit(t *testing.T) {
	trees := &fakeTrees{results: [][]*store.Tree{{grownTree()}}}
	sents := fakeSentences{3: {ID: 3}, 4: {ID: 4}}
	s := New(trees, sents, fixedTargets{BranchCount: 2, BranchDepth: 10}, DefaultConfig(), WithRand(seeded()))

	p := store.Profile{ID: 9, Mothertongue: "english"}
	got, err := s.Select(context.Background(), p, store.BucketGame)
	require.NoError(t, err)
	assert.NotEqual(t, 1, got.ID, "at target the root is never drawn")

	require.Len(t, trees.filters, 1)
	f := trees.filters[0]
	assert.Equal(t, 1, f.Sample)
	assert.Equal(t, 9, f.UntouchedBy)
	assert.Equal(t, "english", f.RootLanguage)
	assert.Equal(t, store.BucketGame, f.RootBucket)
	require.NotNil(t, f.BranchesCountLTE)
	assert.Equal(t, 2, *f.BranchesCountLTE)
	require.NotNil(t, f.ShortestBranchDepthLTE)
	assert.Equal(t, 10, *f.ShortestBranchDepthLTE)
}

func TestSelect_FallsBackToUnshaped(t *testing.T) {
	rootOnly := &store.Tree{ID: 5, Root: &store.Sentence{ID: 50, TreeID: 5}}
	trees := &fakeTrees{results: [][]*store.Tree{nil, {rootOnly}}}
	s := New(trees, fakeSentences{}, fixedTargets(shaping.DefaultTargets()), DefaultConfig(), WithRand(seeded()))

	got, err := s.Select(context.Background(), store.Profile{ID: 1, Mothertongue: "english"}, store.BucketTraining)
	require.NoError(t, err)
	assert.Equal(t, 50, got.ID)

	require.Len(t, trees.filters, 2)
	assert.NotNil(t, trees.filters[0].BranchesCountLTE)
	assert.Nil(t, trees.filters[1].BranchesCountLTE)
	assert.Nil(t, trees.filters[1].ShortestBranchDepthLTE)
	assert.Equal(t, 1, trees.filters[1].Sample)
}

func TestSelect_NoMaterial(t *testing.T) {
	trees := &fakeTrees{}
	s := New(trees, fakeSentences{}, fixedTargets(shaping.DefaultTargets()), DefaultConfig())

	_, err := s.Select(context.Background(), store.Profile{Mothertongue: "english"}, store.BucketGame)
	assert.True(t, errors.Is(err, ErrNoMaterial))
	assert.Len(t, trees.filters, 2)
}

func TestSelect_QueryError(t *testing.T) {
	boom := errors.New("database is locked")
	s := New(&fakeTrees{err: boom}, fakeSentences{}, fixedTargets(shaping.DefaultTargets()), DefaultConfig())

	_, err := s.Select(context.Background(), store.Profile{Mothertongue: "english"}, store.BucketGame)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, ErrNoMaterial))
}

func TestFilter_OtherMothertongue(t *testing.T) {
	s := New(&fakeTrees{}, fakeSentences{}, fixedTargets{}, DefaultConfig())

	native := s.Filter(store.Profile{ID: 1, Mothertongue: "french"}, store.BucketGame)
	assert.Equal(t, "french", native.RootLanguage)
	require.NotNil(t, native.OtherMothertongue)
	assert.False(t, *native.OtherMothertongue)

	other := s.Filter(store.Profile{ID: 2, Mothertongue: "other"}, store.BucketGame)
	assert.Equal(t, "english", other.RootLanguage)
	require.NotNil(t, other.OtherMothertongue)
	assert.True(t, *other.OtherMothertongue)
}

func TestAvailable(t *testing.T) {
	trees := &fakeTrees{count: 4}
	s := New(trees, fakeSentences{}, fixedTargets{}, DefaultConfig())

	n, err := s.Available(context.Background(), store.Profile{ID: 3, Mothertongue: "english"}, store.BucketExperiment)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, trees.filters, 1)
	assert.Nil(t, trees.filters[0].BranchesCountLTE)
	assert.Equal(t, store.BucketExperiment, trees.filters[0].RootBucket)
}
