package export

import (
	"fmt"
	"io"

	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	transactionsSheet = "Transactions"
	summarySheet      = "Summary"

	// numFmtTwoDecimals is the built-in "0.00" number format.
	numFmtTwoDecimals = 2
)

// WriteXLSX writes a workbook with a Transactions sheet and, when stats is
// non-nil, a Summary sheet.
func WriteXLSX(w io.Writer, txns []model.Transaction, stats *model.Stats) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
	if err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}

	if err := writeTransactions(f, txns, header, money); err != nil {
		return err
	}
	if stats != nil {
		if err := writeSummary(f, *stats, header); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTransactions(f *excelize.File, txns []model.Transaction, header, money int) error {
	columns := make([]any, len(model.Columns))
	for i, c := range model.Columns {
		columns[i] = c
	}
	if err := f.SetSheetRow(transactionsSheet, "A1", &columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(transactionsSheet, 1, 1, header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, txn := range txns {
		row := []any{
			txn.Date.Format(model.DateLayout),
			txn.Year(),
			txn.Month(),
			txn.Details,
			txn.Amount.InexactFloat64(),
			string(txn.Direction),
			txn.AccountType,
			txn.Category,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(transactionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColStyle(transactionsSheet, "E", money); err != nil {
		return fmt.Errorf("style amounts: %w", err)
	}
	if err := f.SetColWidth(transactionsSheet, "D", "D", 40); err != nil {
		return fmt.Errorf("size details column: %w", err)
	}
	return f.SetPanes(transactionsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummary(f *excelize.File, stats model.Stats, header int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][]any{
		{"Metric", "Value"},
		{"Total transactions", stats.Total},
		{"Matched by rules", stats.PatternCount},
		{"Matched by rules (%)", stats.PatternPercent},
		{"Classified by model", stats.LLMCount},
		{"Classified by model (%)", stats.LLMPercent},
		{"New patterns proposed", stats.NewPatterns},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetRowStyle(summarySheet, 1, 1, header); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	return f.SetColWidth(summarySheet, "A", "A", 28)
}
