package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-statements/internal/model"
)

func TestRenderTransactions(t *testing.T) {
	txns := []model.Transaction{
		{
			Date:        model.NewDate(2024, 3, 4),
			Amount:      decimal.RequireFromString("12.5"),
			Details:     "Card payment to Pret A Manger on 04 Mar",
			Direction:   model.DirectionDebit,
			AccountType: "Barclays Credit Card",
			Category:    "Dining Out",
		},
		{
			Date:        model.NewDate(2024, 3, 5),
			Amount:      decimal.RequireFromString("2000"),
			Details:     strings.Repeat("x", 80),
			Direction:   model.DirectionCredit,
			AccountType: "Revolut",
			Category:    "Income",
		},
	}

	var out bytes.Buffer
	require.NoError(t, RenderTransactions(&out, txns))

	text := out.String()
	for _, col := range model.Columns {
		assert.Contains(t, text, col)
	}
	assert.Contains(t, text, "2024-03-04")
	assert.Contains(t, text, "March")
	assert.Contains(t, text, "12.50")
	assert.Contains(t, text, "2000.00")
	assert.Contains(t, text, "Dining Out")
	assert.Contains(t, text, "…")
	assert.NotContains(t, text, strings.Repeat("x", 80))
}

func TestRenderStats(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderStats(&out, model.NewStats(9, 3, 2)))

	text := out.String()
	assert.Contains(t, text, "Total transactions:  9")
	assert.Contains(t, text, "6 (66.7%)")
	assert.Contains(t, text, "3 (33.3%)")
	assert.Contains(t, text, "New patterns:        2")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "ééé…", truncate("éééééé", 4))
}
