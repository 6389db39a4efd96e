package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		{
			Date:        model.NewDate(2024, time.March, 1),
			Details:     "Coffee Shop, Soho",
			Amount:      decimal.RequireFromString("4.5"),
			Direction:   model.DirectionDebit,
			AccountType: "Revolut",
			Category:    "Dining Out",
		},
		{
			Date:        model.NewDate(2024, time.January, 3),
			Details:     "PAYMENT RECEIVED",
			Amount:      decimal.RequireFromString("1200"),
			Direction:   model.DirectionCredit,
			AccountType: "Barclays Credit Card",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTransactions()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Date", "Year", "Month", "Details", "Amount", "Debit/Credit", "Account Type", "Category"},
		{"2024-03-01", "2024", "March", "Coffee Shop, Soho", "4.50", "Debit", "Revolut", "Dining Out"},
		{"2024-01-03", "2024", "January", "PAYMENT RECEIVED", "1200.00", "Credit", "Barclays Credit Card", ""},
	}, records)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	stats := model.NewStats(2, 1, 0)
	require.NoError(t, WriteXLSX(&buf, sampleTransactions(), &stats))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{transactionsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(transactionsSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, model.Columns, rows[0])
	assert.Equal(t, []string{"2024-03-01", "2024", "March", "Coffee Shop, Soho", "4.5", "Debit", "Revolut", "Dining Out"}, rows[1])
	assert.Equal(t, "1200", rows[2][4])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Total transactions", "2"}, summary[1])
	assert.Equal(t, []string{"Classified by model (%)", "50"}, summary[5])
}

func TestWriteXLSXWithoutStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{transactionsSheet}, f.GetSheetList())
}

func TestWriteFileChoosesFormat(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, WriteFile(fs, "/out/march.csv", sampleTransactions(), nil))
	data, err := afero.ReadFile(fs, "/out/march.csv")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("Date,Year,Month")))

	require.NoError(t, WriteFile(fs, "/out/march.XLSX", sampleTransactions(), nil))
	data, err = afero.ReadFile(fs, "/out/march.XLSX")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")), "xlsx is a zip archive")
}

func TestParseFormat(t *testing.T) {
	got, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, got)

	_, err = ParseFormat("ods")
	require.Error(t, err)

	assert.Equal(t, FormatCSV, FormatFor("x.csv"))
	assert.Equal(t, FormatCSV, FormatFor("x"))
}
