package shaping

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistr/gistr/internal/store"
)

type fakeMeta struct {
	values map[string]int
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (m *fakeMeta) Int(_ context.Context, key string) (int, bool, error) {
	m.calls.Add(1)
	time.Sleep(m.delay)
	if m.err != nil {
		return 0, false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func TestTargets_Defaults(t *testing.T) {
	s := New(&fakeMeta{})
	got, err := s.Targets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultTargets(), got)
}

func TestTargets_FromMeta(t *testing.T) {
	m := &fakeMeta{values: map[string]int{
		store.MetaTargetBranchCount: 3,
		store.MetaTargetBranchDepth: 4,
	}}
	s := New(m)
	got, err := s.Targets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Targets{BranchCount: 3, BranchDepth: 4}, got)

	// Cached: the source is not read again.
	_, err = s.Targets(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.calls.Load())
}

func TestTargets_ConcurrentFirstLoadIsShared(t *testing.T) {
	m := &fakeMeta{delay: 20 * time.Millisecond}
	s := New(m)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Targets(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 2, m.calls.Load())
}

func TestTargets_RetriesAfterFailure(t *testing.T) {
	m := &fakeMeta{err: errors.New("locked")}
	s := New(m)

	_, err := s.Targets(context.Background())
	require.Error(t, err)

	m.err = nil
	got, err := s.Targets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultTargets(), got)
}
