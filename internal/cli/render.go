package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/spice-statements/internal/model"
)

// maxDetailsWidth truncates long descriptions in the transaction table.
const maxDetailsWidth = 48

// RenderTransactions writes the categorized transactions as an aligned table
// in output column order.
func RenderTransactions(w io.Writer, txns []model.Transaction) error {
	rows := make([][]string, 0, len(txns))
	for _, txn := range txns {
		record := txn.Record()
		record[3] = truncate(record[3], maxDetailsWidth)
		rows = append(rows, record)
	}
	_, err := fmt.Fprintln(w, renderTable(model.Columns, rows))
	return err
}

// RenderStats writes the run summary.
func RenderStats(w io.Writer, stats model.Stats) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Total transactions:  %d\n", stats.Total)
	fmt.Fprintf(&b, "Matched by rules:    %d (%.1f%%)\n", stats.PatternCount, stats.PatternPercent)
	fmt.Fprintf(&b, "Sent to classifier:  %d (%.1f%%)\n", stats.LLMCount, stats.LLMPercent)
	fmt.Fprintf(&b, "New patterns:        %d", stats.NewPatterns)
	_, err := fmt.Fprintln(w, RenderBox(ChartIcon+" Categorization Summary", b.String()))
	return err
}

// RenderProposals writes the numbered list of proposed patterns.
func RenderProposals(w io.Writer, proposed []model.ProposedPattern) error {
	rows := make([][]string, 0, len(proposed))
	for i, p := range proposed {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), p.Merchant, p.Category})
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"#", "Merchant", "Category"}, rows))
	return err
}

func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	headerCells := make([]string, len(header))
	for i, h := range header {
		headerCells[i] = TableCellStyle.Width(widths[i] + 2).Render(h)
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, headerCells...)))

	for _, row := range rows {
		b.WriteString("\n")
		cells := make([]string, len(header))
		for i := range header {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return b.String()
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
