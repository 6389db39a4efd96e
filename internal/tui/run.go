package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/spice-statements/internal/model"
)

// Options configures where the checklist reads and draws.
type Options struct {
	Input     io.Reader
	Output    io.Writer
	AltScreen bool
}

// SelectPatterns shows the checklist and returns one flag per proposal.
// Quitting without confirming selects nothing.
func SelectPatterns(ctx context.Context, proposed []model.ProposedPattern, opts Options) ([]bool, error) {
	if len(proposed) == 0 {
		return []bool{}, nil
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}
	if opts.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(NewModel(proposed), programOpts...).Run()
	if err != nil {
		return nil, fmt.Errorf("approval checklist failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("approval checklist returned unexpected model %T", final)
	}
	return m.Selection(), nil
}
