package play

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistr/gistr/internal/config"
	"github.com/gistr/gistr/internal/game"
	"github.com/gistr/gistr/internal/lifecycle"
	"github.com/gistr/gistr/internal/router"
	"github.com/gistr/gistr/internal/screens/profile"
	"github.com/gistr/gistr/internal/store"
	"github.com/gistr/gistr/internal/trial"
)

const reformulation = "a quick fox leapt over the lazy dog by the river bank"

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func testEnv(t *testing.T) *game.Env {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "gistr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f, err := os.Open(filepath.Join("..", "..", "store", "testdata", "fixtures.yaml"))
	require.NoError(t, err)
	defer f.Close()
	fixture, err := store.ParseFixture(f)
	require.NoError(t, err)
	_, err = st.Seed(context.Background(), fixture)
	require.NoError(t, err)

	return game.NewEnv(st, config.Default())
}

func testPlayScreen(t *testing.T, name string) *PlayScreen {
	t.Helper()
	env := testEnv(t)
	s, err := env.OpenByName(context.Background(), name)
	require.NoError(t, err)
	return New(s, nil)
}

// deliver runs cmd and feeds its message back to the screen.
func deliver(t *testing.T, s *PlayScreen, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	_, next := s.Update(cmd())
	return next
}

// expire runs the current countdown out with a single tick.
func expire(s *PlayScreen) tea.Cmd {
	s.countdown.Remaining = tickInterval
	_, cmd := s.Update(tickMsg{Gen: s.tickGen})
	return cmd
}

func toWriting(t *testing.T, s *PlayScreen) {
	t.Helper()
	deliver(t, s, s.Init())
	require.Equal(t, trial.StateReading, s.trial.State())
	expire(s)
	require.Equal(t, trial.StateDistracting, s.trial.State())
	expire(s)
	require.Equal(t, trial.StateWritingUser, s.trial.State())
}

func TestInitStartsReading(t *testing.T) {
	s := testPlayScreen(t, "ada")

	cmd := s.Init()
	assert.True(t, s.busy)
	next := deliver(t, s, cmd)

	assert.NotNil(t, next, "reading starts a countdown")
	assert.False(t, s.busy)
	assert.Equal(t, trial.StateReading, s.trial.State())
	assert.Equal(t, s.trial.ReadDuration(), s.countdown.Total)
	assert.NotEmpty(t, s.View(80, 24))
}

func TestCountdownsAdvanceStages(t *testing.T) {
	s := testPlayScreen(t, "ada")
	toWriting(t, s)

	assert.True(t, s.CapturesKeys())
	assert.Equal(t, s.trial.WriteDuration(), s.countdown.Total)
}

func TestStaleTickIgnored(t *testing.T) {
	s := testPlayScreen(t, "ada")
	deliver(t, s, s.Init())

	s.countdown.Remaining = tickInterval
	_, cmd := s.Update(tickMsg{Gen: s.tickGen - 1})

	assert.Nil(t, cmd)
	assert.Equal(t, trial.StateReading, s.trial.State())
	assert.Equal(t, tickInterval, s.countdown.Remaining)
}

func TestTickWithTimeLeftKeepsTicking(t *testing.T) {
	s := testPlayScreen(t, "ada")
	deliver(t, s, s.Init())

	before := s.countdown.Remaining
	_, cmd := s.Update(tickMsg{Gen: s.tickGen})

	assert.NotNil(t, cmd)
	assert.Equal(t, before-tickInterval, s.countdown.Remaining)
	assert.Equal(t, trial.StateReading, s.trial.State())
}

func TestSubmitSavesSentence(t *testing.T) {
	s := testPlayScreen(t, "ada")
	toWriting(t, s)

	s.editor.Model.SetValue(reformulation)
	gen := s.tickGen
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.True(t, s.busy)
	assert.Greater(t, s.tickGen, gen, "saving abandons the countdown")

	deliver(t, s, cmd)
	assert.False(t, s.busy)
	assert.Empty(t, s.errMsg)
	assert.Equal(t, trial.StateWritingProcessing, s.trial.State())
	assert.Equal(t, 1, s.trial.Streak())
	assert.Equal(t, 1, s.session.Profile.Profile().ReformulationsCount)
	assert.NotNil(t, s.trial.Tree())
}

func TestSubmitTooShortKeepsWriting(t *testing.T) {
	s := testPlayScreen(t, "ada")
	toWriting(t, s)

	s.editor.Model.SetValue("a fox")
	_, cmd := s.Update(specialKey(tea.KeyEnter))

	assert.Nil(t, cmd)
	assert.False(t, s.busy)
	assert.NotEmpty(t, s.errMsg)
	assert.Equal(t, trial.StateWritingUser, s.trial.State())
}

func TestWritingTimesOut(t *testing.T) {
	s := testPlayScreen(t, "ada")
	toWriting(t, s)

	expire(s)

	assert.Equal(t, trial.StateTimedOut, s.trial.State())
	assert.False(t, s.CapturesKeys())
	assert.Zero(t, s.session.Profile.Profile().ReformulationsCount)
}

func TestEnterAfterTimeoutReadsAgain(t *testing.T) {
	s := testPlayScreen(t, "ada")
	toWriting(t, s)
	expire(s)

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	deliver(t, s, cmd)

	assert.Equal(t, trial.StateReading, s.trial.State())
}

func TestResetStartsOver(t *testing.T) {
	s := testPlayScreen(t, "ada")
	toWriting(t, s)
	gen := s.tickGen

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'r', Mod: tea.ModCtrl})

	assert.Equal(t, trial.StateInstructions, s.trial.State())
	assert.Greater(t, s.tickGen, gen)
	deliver(t, s, cmd)
	assert.Equal(t, trial.StateReading, s.trial.State())
}

func TestEscPopsOutsideWriting(t *testing.T) {
	s := testPlayScreen(t, "ada")
	deliver(t, s, s.Init())

	_, cmd := s.Update(specialKey(tea.KeyEscape))
	require.NotNil(t, cmd)
	assert.IsType(t, router.PopScreenMsg{}, cmd())
}

func TestBlockedPlayerIsSentToProfile(t *testing.T) {
	env := testEnv(t)
	ctx := context.Background()
	p, err := env.Store.Profiles().Create(ctx, "cy", "")
	require.NoError(t, err)
	session, err := env.Open(ctx, p)
	require.NoError(t, err)
	s := New(session, nil)

	deliver(t, s, s.Init())
	require.Equal(t, trial.StateInfo, s.trial.State())
	assert.True(t, s.blocked())

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	msg, ok := cmd().(router.PushScreenMsg)
	require.True(t, ok)
	assert.IsType(t, &profile.ProfileScreen{}, msg.Screen)
}

func TestEnterOnInfoRechecksMaterial(t *testing.T) {
	s := testPlayScreen(t, "ada")
	ctx := context.Background()
	// A stale count from an earlier stage says nothing is left.
	s.session.Profile.Update(func(p *store.Profile) { p.AvailableTreesBucket = 0 })
	require.NoError(t, s.trial.Fire(ctx, trial.EventInform))

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.True(t, s.busy)
	deliver(t, s, cmd)

	assert.Empty(t, s.errMsg)
	assert.Equal(t, trial.StateReading, s.trial.State())
	assert.Equal(t, 2, s.session.Profile.Profile().AvailableTreesBucket)
}

func TestEnterOnInfoWithoutMaterialStays(t *testing.T) {
	env := testEnv(t)
	ctx := context.Background()
	p, err := env.Store.Profiles().Create(ctx, "dee", "german")
	require.NoError(t, err)
	p.LifecycleState = lifecycle.StatePlaying
	p.ReadingSpanDone = true
	p.QuestionnaireDone = true
	require.NoError(t, env.Store.Profiles().Save(ctx, p))
	session, err := env.Open(ctx, p)
	require.NoError(t, err)
	s := New(session, nil)

	deliver(t, s, s.Init())
	require.Equal(t, trial.StateInfo, s.trial.State())

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	deliver(t, s, cmd)

	assert.NotEmpty(t, s.errMsg)
	assert.False(t, s.busy)
	assert.Equal(t, trial.StateInfo, s.trial.State())
}

func TestProfileKeyOpensProfile(t *testing.T) {
	s := testPlayScreen(t, "ada")
	deliver(t, s, s.Init())

	_, cmd := s.Update(keyPress('p'))
	require.NotNil(t, cmd)
	msg, ok := cmd().(router.PushScreenMsg)
	require.True(t, ok)
	assert.IsType(t, &profile.ProfileScreen{}, msg.Screen)
}

func TestStaleResultIgnored(t *testing.T) {
	s := testPlayScreen(t, "ada")
	deliver(t, s, s.Init())

	_, cmd := s.Update(reconciledMsg{Err: trial.ErrStale})

	assert.Nil(t, cmd)
	assert.Empty(t, s.errMsg)
	assert.Equal(t, trial.StateReading, s.trial.State())
}

func TestDescribeInfo(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{trial.InfoNewCredit, "You earned a suggestion credit."},
		{"playing:game:custom-thing", "game: custom-thing"},
		{"not a name", "not a name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeInfo(tt.name))
		})
	}
}
