package statement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageWidth = 600

func fixedClock() time.Time {
	return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func newTestLayoutParser() *LayoutParser {
	return NewLayoutParser(
		WithClock(fixedClock),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// twoColumnPage lays out whole lines in the left and right halves of a page.
func twoColumnPage(left, right []string) Page {
	page := Page{Width: testPageWidth}
	for i, line := range left {
		page.Fragments = append(page.Fragments, Fragment{S: line, X: 20, Y: 750 - float64(i)*14, FontSize: 9})
	}
	for i, line := range right {
		page.Fragments = append(page.Fragments, Fragment{S: line, X: 320, Y: 750 - float64(i)*14, FontSize: 9})
	}
	return page
}

func TestLayoutParser_Parse(t *testing.T) {
	summary := twoColumnPage([]string{"01 Jan SUMMARY LINE £99.99"}, nil)
	transactions := twoColumnPage(
		[]string{
			"Your transactions",
			"03 Jan CARD PAYMENT TO TESCO £12.34",
			"04 Jan A WRAPPED DESCRIPTION WITHOUT AMOUNT",
			"05 Jan PAYMENT RECEIVED - THANK YOU £200.00",
		},
		[]string{
			"06 Jan AMAZON REFUND £15.00CR",
			"07 Jan CASH ADVANCE -£1,234.56",
			"09 Jan Your previous balance £1.00",
			"31 Feb NOT A DATE £3.00",
		},
	)

	got, err := newTestLayoutParser().Parse(context.Background(), Pages{summary, transactions}, "statement.pdf")
	require.NoError(t, err)

	want := []struct {
		date      time.Time
		details   string
		amount    string
		direction model.Direction
	}{
		{model.NewDate(2025, 1, 3), "CARD PAYMENT TO TESCO", "12.34", model.DirectionDebit},
		{model.NewDate(2025, 1, 5), "PAYMENT RECEIVED - THANK YOU", "200", model.DirectionCredit},
		{model.NewDate(2025, 1, 6), "AMAZON REFUND", "15", model.DirectionCredit},
		{model.NewDate(2025, 1, 7), "CASH ADVANCE", "1234.56", model.DirectionDebit},
	}

	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.date, got[i].Date, "transaction %d date", i)
		assert.Equal(t, w.details, got[i].Details, "transaction %d details", i)
		assert.True(t, decimal.RequireFromString(w.amount).Equal(got[i].Amount), "transaction %d amount %s", i, got[i].Amount)
		assert.Equal(t, w.direction, got[i].Direction, "transaction %d direction", i)
		assert.Empty(t, got[i].Category)
	}
}

func TestLayoutParser_Scenario(t *testing.T) {
	page := twoColumnPage([]string{"03 Jan CARD PAYMENT TO TESCO £12.34", "04 Jan NO AMOUNT HERE"}, nil)

	got, err := newTestLayoutParser().Parse(context.Background(), Pages{{}, page}, "scenario.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)

	record := got[0].Record()
	assert.Equal(t, "2025-01-03", record[0])
	assert.Equal(t, "CARD PAYMENT TO TESCO", record[3])
	assert.Equal(t, "12.34", record[4])
	assert.Equal(t, "Debit", record[5])
}

func TestLayoutParser_SkipsFirstPage(t *testing.T) {
	only := twoColumnPage([]string{"03 Jan TESCO £12.34"}, nil)

	got, err := newTestLayoutParser().Parse(context.Background(), Pages{only}, "one-page.pdf")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestLayoutParser_ColumnOrder(t *testing.T) {
	// The right column's first line sits higher on the page than the left's
	// second line, but left-half lines always come first.
	page := twoColumnPage(
		[]string{"10 Jan LEFT ONE £1.00", "11 Jan LEFT TWO £2.00"},
		[]string{"01 Jan RIGHT ONE £3.00"},
	)

	got, err := newTestLayoutParser().Parse(context.Background(), Pages{{}, page}, "order.pdf")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "LEFT ONE", got[0].Details)
	assert.Equal(t, "LEFT TWO", got[1].Details)
	assert.Equal(t, "RIGHT ONE", got[2].Details)
}

type failingSource struct{}

func (failingSource) NumPages() int { return 2 }

func (failingSource) Page(int) (Page, error) { return Page{}, errors.New("corrupt stream") }

func TestLayoutParser_PageError(t *testing.T) {
	_, err := newTestLayoutParser().Parse(context.Background(), failingSource{}, "broken.pdf")

	var parseErr *common.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "broken.pdf", parseErr.Source)
}

func TestLayoutParser_ParseFileMissing(t *testing.T) {
	_, err := newTestLayoutParser().ParseFile(context.Background(), "/nonexistent/statement.pdf")

	var parseErr *common.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseLine(t *testing.T) {
	p := newTestLayoutParser()

	tests := []struct {
		name      string
		line      string
		details   string
		direction model.Direction
		ok        bool
	}{
		{name: "purchase", line: "03 Jan TESCO STORES £4.20", details: "TESCO STORES", direction: model.DirectionDebit, ok: true},
		{name: "credit marker", line: "3 Feb RETURN £4.20CR", details: "RETURN", direction: model.DirectionCredit, ok: true},
		{name: "minus beats credit marker", line: "3 Feb ODD -£4.20CR", details: "ODD", direction: model.DirectionDebit, ok: true},
		{name: "minus beats payment", line: "3 Feb PAYMENT REVERSAL -£4.20", details: "PAYMENT REVERSAL", direction: model.DirectionDebit, ok: true},
		{name: "payment is credit", line: "3 Feb DIRECT DEBIT PAYMENT £50.00", details: "DIRECT DEBIT PAYMENT", direction: model.DirectionCredit, ok: true},
		{name: "extra spacing in date", line: "3  Mar SHOP £1.00", details: "SHOP", direction: model.DirectionDebit, ok: true},
		{name: "lower case month", line: "3 mar SHOP £1.00", details: "SHOP", direction: model.DirectionDebit, ok: true},
		{name: "amount repeated uses last", line: "4 Apr £1.00 FEE ON £1.00", details: "£1.00 FEE ON", direction: model.DirectionDebit, ok: true},
		{name: "amount glued to date", line: "10 Jan£5.00", details: UnresolvedDetails, direction: model.DirectionDebit, ok: true},
		{name: "no amount", line: "03 Jan CONTINUED", ok: false},
		{name: "no date", line: "TESCO £4.20", ok: false},
		{name: "date not at start", line: "Ref 03 Jan TESCO £4.20", ok: false},
		{name: "no currency symbol", line: "03 Jan TESCO 4.20", ok: false},
		{name: "boilerplate", line: "03 Jan Understanding your interest £4.20", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn, ok := p.parseLine(tt.line, 2025)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.details, txn.Details)
			assert.Equal(t, tt.direction, txn.Direction)
			assert.False(t, txn.Amount.IsNegative())
		})
	}
}

func TestPatterns(t *testing.T) {
	assert.True(t, DatePattern.MatchString("03 Jan"))
	assert.True(t, DatePattern.MatchString("3 Dec rest"))
	assert.False(t, DatePattern.MatchString("Jan 03"))

	assert.Equal(t, "-£1,234.56", AmountPattern.FindString("x -£1,234.56 y"))
	assert.Equal(t, "£20.00CR", AmountPattern.FindString("refund £20.00CR"))
	assert.Empty(t, AmountPattern.FindString("£20.5"))

	amount, err := cleanAmount("£1,234.56CR")
	require.NoError(t, err)
	assert.Equal(t, "1234.56", amount.String())
}

func TestAssembleLines(t *testing.T) {
	// Per-glyph fragments, as PDF content streams usually produce them.
	fragments := []Fragment{
		{S: "£", X: 90, Y: 500, W: 5, FontSize: 10},
		{S: "0", X: 40, Y: 500, W: 5, FontSize: 10},
		{S: "3", X: 45, Y: 500, W: 5, FontSize: 10},
		{S: "J", X: 55, Y: 500.5, W: 5, FontSize: 10},
		{S: "a", X: 60, Y: 500, W: 5, FontSize: 10},
		{S: "n", X: 65, Y: 500, W: 5, FontSize: 10},
		{S: "1", X: 95, Y: 500, W: 5, FontSize: 10},
		{S: "next", X: 40, Y: 480, W: 20, FontSize: 10},
	}

	assert.Equal(t, []string{"03 Jan £1", "next"}, assembleLines(fragments))
}

func TestPageLinesWithoutWidth(t *testing.T) {
	page := Page{Fragments: []Fragment{
		{S: "left", X: 0, Y: 10, W: 50},
		{S: "right", X: 150, Y: 10, W: 50},
	}}

	assert.Equal(t, []string{"left", "right"}, pageLines(page))
}
