// Package tui provides a full-screen checklist for approving proposed
// patterns.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/spice-statements/internal/model"
)

// Model is the bubbletea model of the approval checklist.
type Model struct {
	help      help.Model
	keymap    KeyMap
	proposed  []model.ProposedPattern
	selected  []bool
	cursor    int
	width     int
	height    int
	confirmed bool
	done      bool
}

// NewModel creates a checklist over proposed with every entry selected.
func NewModel(proposed []model.ProposedPattern) Model {
	selected := make([]bool, len(proposed))
	for i := range selected {
		selected[i] = true
	}
	return Model{
		help:     help.New(),
		keymap:   DefaultKeyMap(),
		proposed: proposed,
		selected: selected,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.done = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Confirm):
		m.confirmed = true
		m.done = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.proposed)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keymap.Home):
		m.cursor = 0
	case key.Matches(msg, m.keymap.End):
		if len(m.proposed) > 0 {
			m.cursor = len(m.proposed) - 1
		}
	case key.Matches(msg, m.keymap.Toggle):
		if len(m.selected) > 0 {
			selected := append([]bool(nil), m.selected...)
			selected[m.cursor] = !selected[m.cursor]
			m.selected = selected
		}
	case key.Matches(msg, m.keymap.SelectAll):
		m.setAll(true)
	case key.Matches(msg, m.keymap.DeselectAll):
		m.setAll(false)
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// setAll replaces the selection slice so earlier model values keep theirs.
func (m *Model) setAll(value bool) {
	selected := make([]bool, len(m.selected))
	for i := range selected {
		selected[i] = value
	}
	m.selected = selected
}

// Selection returns one flag per proposal. A canceled checklist selects nothing.
func (m Model) Selection() []bool {
	out := make([]bool, len(m.proposed))
	if m.confirmed {
		copy(out, m.selected)
	}
	return out
}

// Confirmed reports whether the user saved the selection.
func (m Model) Confirmed() bool {
	return m.confirmed
}
