package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-statements/internal/model"
)

func proposals() []model.ProposedPattern {
	return []model.ProposedPattern{
		{Merchant: "pret a manger", Category: "Dining Out"},
		{Merchant: "tfl travel", Category: "Transport"},
		{Merchant: "netflix.com", Category: "Entertainment"},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys through Update and returns the final model and the last command.
func press(t *testing.T, m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_AllSelectedByDefault(t *testing.T) {
	m, cmd := press(t, NewModel(proposals()), tea.KeyMsg{Type: tea.KeyEnter})

	assert.True(t, isQuit(cmd))
	assert.True(t, m.Confirmed())
	assert.Equal(t, []bool{true, true, true}, m.Selection())
}

func TestModel_ToggleAndMove(t *testing.T) {
	m, _ := press(t, NewModel(proposals()),
		tea.KeyMsg{Type: tea.KeySpace},
		tea.KeyMsg{Type: tea.KeyDown},
		runes("j"),
		runes("x"),
		runes("j"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)

	assert.Equal(t, 2, m.cursor)
	assert.Equal(t, []bool{false, true, false}, m.Selection())
}

func TestModel_SelectNoneThenOne(t *testing.T) {
	m, _ := press(t, NewModel(proposals()),
		runes("n"),
		runes("G"),
		runes("x"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	assert.Equal(t, []bool{false, false, true}, m.Selection())

	m, _ = press(t, m, runes("a"))
	assert.Equal(t, 3, m.selectedCount())
}

func TestModel_CursorStaysInBounds(t *testing.T) {
	m, _ := press(t, NewModel(proposals()), tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)

	m, _ = press(t, m, runes("j"), runes("j"), runes("j"), runes("j"))
	assert.Equal(t, 2, m.cursor)

	m, _ = press(t, m, runes("g"))
	assert.Equal(t, 0, m.cursor)
}

func TestModel_CancelSelectsNothing(t *testing.T) {
	m, cmd := press(t, NewModel(proposals()), runes("q"))

	assert.True(t, isQuit(cmd))
	assert.False(t, m.Confirmed())
	assert.Equal(t, []bool{false, false, false}, m.Selection())
}

func TestModel_ToggleDoesNotShareState(t *testing.T) {
	before := NewModel(proposals())
	after, _ := press(t, before, runes("x"))

	assert.True(t, before.selected[0])
	assert.False(t, after.selected[0])
}

func TestModel_View(t *testing.T) {
	m, _ := press(t, NewModel(proposals()), runes("x"))
	view := m.View()

	assert.Contains(t, view, "3 new pattern(s) proposed")
	assert.Contains(t, view, "pret a manger")
	assert.Contains(t, view, "Entertainment")
	assert.Contains(t, view, "2 of 3 selected")
	assert.Contains(t, view, "[ ]")
	assert.Contains(t, view, "[x]")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.View())
}

func TestModel_ViewScrolls(t *testing.T) {
	many := make([]model.ProposedPattern, 20)
	for i := range many {
		many[i] = model.ProposedPattern{Merchant: string(rune('a'+i)) + "-merchant", Category: "Shopping"}
	}

	next, _ := NewModel(many).Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	m, ok := next.(Model)
	require.True(t, ok)

	first, last := m.visibleRange()
	assert.Equal(t, 0, first)
	assert.Equal(t, 4, last)

	m, _ = press(t, m, runes("G"))
	first, last = m.visibleRange()
	assert.Equal(t, 16, first)
	assert.Equal(t, 20, last)
	assert.Contains(t, m.View(), "t-merchant")
	assert.NotContains(t, m.View(), "a-merchant")
}

func TestSelectPatterns_NothingProposed(t *testing.T) {
	got, err := SelectPatterns(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
