// Package export writes categorized transactions as CSV or XLSX using the
// output column order Date, Year, Month, Details, Amount, Debit/Credit,
// Account Type, Category.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/spf13/afero"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// FormatFor picks a format from a file extension, defaulting to CSV.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// WriteCSV writes a header row followed by one row per transaction.
func WriteCSV(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, txn := range txns {
		if err := cw.Write(txn.Record()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write encodes transactions in the given format. Stats, when non-nil, adds a
// summary sheet to XLSX output and is ignored for CSV.
func Write(w io.Writer, format Format, txns []model.Transaction, stats *model.Stats) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, txns, stats)
	case FormatCSV:
		return WriteCSV(w, txns)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteFile writes transactions to path on fs, choosing the format from the extension.
func WriteFile(fs afero.Fs, path string, txns []model.Transaction, stats *model.Stats) (err error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close export file: %w", closeErr)
		}
	}()

	return Write(f, FormatFor(path), txns, stats)
}
