package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	checkedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("🌶️ %d new pattern(s) proposed", len(m.proposed))))
	b.WriteString("\n")

	first, last := m.visibleRange()
	for i := first; i < last; i++ {
		p := m.proposed[i]
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		box := "[ ]"
		if m.selected[i] {
			box = checkedStyle.Render("[x]")
		}
		fmt.Fprintf(&b, "%s%s %s → %s\n", pointer, box, p.Merchant, categoryStyle.Render(p.Category))
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("%d of %d selected", m.selectedCount(), len(m.proposed))))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

// visibleRange keeps the cursor on screen when the list is taller than the
// terminal. Six lines are reserved for the title, counter and help.
func (m Model) visibleRange() (int, int) {
	rows := len(m.proposed)
	if m.height <= 0 {
		return 0, rows
	}
	capacity := m.height - 6
	if capacity < 1 {
		capacity = 1
	}
	if rows <= capacity {
		return 0, rows
	}
	first := m.cursor - capacity/2
	if first < 0 {
		first = 0
	}
	if first+capacity > rows {
		first = rows - capacity
	}
	return first, first + capacity
}

func (m Model) selectedCount() int {
	n := 0
	for _, s := range m.selected {
		if s {
			n++
		}
	}
	return n
}
