package statement

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/shopspring/decimal"
)

// Column headers of a tabular export.
const (
	ColumnCompletedDate = "Completed Date"
	ColumnDescription   = "Description"
	ColumnAmount        = "Amount"
)

var completedDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// TabularParser maps rows of a structured export one-to-one onto transactions.
type TabularParser struct {
	logger *slog.Logger
}

// NewTabularParser creates a tabular parser.
func NewTabularParser(logger *slog.Logger) *TabularParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &TabularParser{logger: logger}
}

// ParseFile opens a CSV export and parses it.
func (p *TabularParser) ParseFile(ctx context.Context, path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &common.ParseError{Source: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	return p.Parse(ctx, f, path)
}

// Parse reads every settled data row as a transaction. Rows without a
// completion timestamp are still pending at the bank and have no date to
// carry, so they are skipped with a warning rather than emitted. The
// description cell is kept byte for byte; only the date and amount cells are
// trimmed.
func (p *TabularParser) Parse(ctx context.Context, r io.Reader, name string) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("missing header row")
		}
		return nil, &common.ParseError{Source: name, Row: 1, Err: err}
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, &common.ParseError{Source: name, Row: 1, Err: err}
	}

	transactions := []model.Transaction{}
	for row := 2; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &common.ParseError{Source: name, Row: row, Err: err}
		}

		completed := field(record, cols.completed)
		if completed == "" {
			p.logger.Warn("skipping pending row", "source", name, "row", row)
			continue
		}

		txn, err := parseRow(completed, rawField(record, cols.description), field(record, cols.amount))
		if err != nil {
			return nil, &common.ParseError{Source: name, Row: row, Err: err}
		}
		transactions = append(transactions, txn)
	}

	p.logger.Debug("parsed tabular statement", "source", name, "transactions", len(transactions))

	return transactions, nil
}

type columnIndex struct {
	completed   int
	description int
	amount      int
}

func locateColumns(header []string) (columnIndex, error) {
	cols := columnIndex{completed: -1, description: -1, amount: -1}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(h, ColumnCompletedDate):
			cols.completed = i
		case strings.EqualFold(h, ColumnDescription):
			cols.description = i
		case strings.EqualFold(h, ColumnAmount):
			cols.amount = i
		}
	}

	var missing []string
	if cols.completed < 0 {
		missing = append(missing, ColumnCompletedDate)
	}
	if cols.description < 0 {
		missing = append(missing, ColumnDescription)
	}
	if cols.amount < 0 {
		missing = append(missing, ColumnAmount)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func field(record []string, index int) string {
	return strings.TrimSpace(rawField(record, index))
}

func rawField(record []string, index int) string {
	if index >= len(record) {
		return ""
	}
	return record[index]
}

func parseRow(completed, description, amountText string) (model.Transaction, error) {
	date, err := parseCompletedDate(completed)
	if err != nil {
		return model.Transaction{}, err
	}

	signed, err := decimal.NewFromString(amountText)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount %q: %w", amountText, err)
	}

	direction := model.DirectionDebit
	if !signed.IsNegative() {
		direction = model.DirectionCredit
	}

	return model.Transaction{
		Date:      date,
		Details:   description,
		Amount:    signed.Abs(),
		Direction: direction,
	}, nil
}

// parseCompletedDate truncates a completion timestamp to its calendar day.
func parseCompletedDate(value string) (time.Time, error) {
	for _, layout := range completedDateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return model.NewDate(ts.Year(), ts.Month(), ts.Day()), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid completed date %q", value)
}
