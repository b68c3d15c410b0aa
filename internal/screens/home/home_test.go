package home

import (
	"context"
	"path/filepath"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistr/gistr/internal/config"
	"github.com/gistr/gistr/internal/game"
	"github.com/gistr/gistr/internal/router"
	"github.com/gistr/gistr/internal/screens/play"
	"github.com/gistr/gistr/internal/store"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func testHome(t *testing.T) (*HomeScreen, *game.Env) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "gistr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	env := game.NewEnv(st, config.Default())
	return New(env), env
}

func typeText(h *HomeScreen, s string) {
	for _, r := range s {
		h.Update(keyPress(r))
	}
}

func TestInitListsProfiles(t *testing.T) {
	h, env := testHome(t)
	_, err := env.Store.Profiles().Create(context.Background(), "ada", "english")
	require.NoError(t, err)

	h.Update(h.Init()())

	assert.True(t, h.loaded)
	assert.Contains(t, h.View(80, 24), "ada")
	assert.Contains(t, h.View(80, 24), "New player")
}

func TestCreatePlayerOpensPlay(t *testing.T) {
	h, env := testHome(t)
	h.Update(h.Init()())

	// The menu starts on "New player" when there is no profile.
	h.Update(specialKey(tea.KeyEnter))
	require.True(t, h.CapturesKeys())

	typeText(h, "ada")
	h.Update(specialKey(tea.KeyTab))
	typeText(h, "English")

	_, cmd := h.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	_, cmd = h.Update(cmd())
	require.NotNil(t, cmd)

	msg, ok := cmd().(router.PushScreenMsg)
	require.True(t, ok)
	assert.IsType(t, &play.PlayScreen{}, msg.Screen)
	assert.False(t, h.CapturesKeys())

	p, err := env.Store.Profiles().ByName(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, "english", p.Mothertongue)
}

func TestCreatePlayerNeedsName(t *testing.T) {
	h, _ := testHome(t)
	h.Update(h.Init()())
	h.Update(specialKey(tea.KeyEnter))

	_, cmd := h.Update(specialKey(tea.KeyEnter))

	assert.Nil(t, cmd)
	assert.NotEmpty(t, h.name.Err)
}

func TestDuplicateNameShowsError(t *testing.T) {
	h, env := testHome(t)
	_, err := env.Store.Profiles().Create(context.Background(), "ada", "english")
	require.NoError(t, err)
	h.Update(h.Init()())

	// Move from "ada" to "New player".
	h.Update(specialKey(tea.KeyDown))
	h.Update(specialKey(tea.KeyEnter))
	typeText(h, "ada")

	_, cmd := h.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	h.Update(cmd())

	assert.Contains(t, h.errMsg, "taken")
	assert.True(t, h.CapturesKeys())
}

func TestEscCancelsForm(t *testing.T) {
	h, _ := testHome(t)
	h.Update(h.Init()())
	h.Update(specialKey(tea.KeyEnter))
	require.True(t, h.CapturesKeys())

	h.Update(specialKey(tea.KeyEscape))

	assert.False(t, h.CapturesKeys())
}
