package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-statements/internal/model"
)

// Prompter asks on a line-based terminal which proposed patterns to keep.
type Prompter struct {
	reader *LineReader
	writer io.Writer
}

// NewPrompter creates a prompter. Nil arguments default to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{reader: NewLineReader(reader), writer: writer}
}

// SelectPatterns returns one flag per proposal, true when the user wants it
// saved. The user may accept all, reject all, list numbers or review each
// proposal in turn.
func (p *Prompter) SelectPatterns(ctx context.Context, proposed []model.ProposedPattern) ([]bool, error) {
	selected := make([]bool, len(proposed))
	if len(proposed) == 0 {
		return selected, nil
	}

	fmt.Fprintln(p.writer, FormatTitle(fmt.Sprintf("%d new pattern(s) proposed", len(proposed))))
	if err := RenderProposals(p.writer, proposed); err != nil {
		return nil, fmt.Errorf("failed to write proposals: %w", err)
	}
	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, "  [A] Save all")
	fmt.Fprintln(p.writer, "  [N] Save none")
	fmt.Fprintln(p.writer, "  [R] Review one by one")
	fmt.Fprintln(p.writer, "  or enter numbers, e.g. 1,3")

	for {
		fmt.Fprint(p.writer, FormatPrompt("Choice"))
		answer, err := p.reader.ReadLine(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read choice: %w", err)
		}

		switch strings.ToLower(answer) {
		case "a", "all":
			for i := range selected {
				selected[i] = true
			}
			return selected, nil
		case "n", "none":
			return selected, nil
		case "r", "review":
			return p.review(ctx, proposed)
		}

		picked, err := parseNumbers(answer, len(proposed))
		if err != nil {
			fmt.Fprintln(p.writer, FormatError(err.Error()))
			continue
		}
		for _, n := range picked {
			selected[n-1] = true
		}
		return selected, nil
	}
}

func (p *Prompter) review(ctx context.Context, proposed []model.ProposedPattern) ([]bool, error) {
	selected := make([]bool, len(proposed))
	for i := 0; i < len(proposed); {
		pattern := proposed[i]
		fmt.Fprint(p.writer, FormatPrompt(fmt.Sprintf("Save %q → %s? [y/n]", pattern.Merchant, pattern.Category)))
		answer, err := p.reader.ReadLine(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read answer: %w", err)
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			selected[i] = true
		case "n", "no":
		default:
			fmt.Fprintln(p.writer, FormatError("please answer y or n"))
			continue
		}
		i++
	}
	return selected, nil
}

var errNoNumbers = errors.New("expected a, n, r or a list of numbers")

// parseNumbers reads a comma or space separated list of 1-based positions.
func parseNumbers(answer string, count int) ([]int, error) {
	fields := strings.FieldsFunc(answer, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, errNoNumbers
	}
	numbers := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, errNoNumbers
		}
		if n < 1 || n > count {
			return nil, fmt.Errorf("%d is not between 1 and %d", n, count)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}
