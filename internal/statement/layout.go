package statement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/shopspring/decimal"
)

// LayoutParser extracts transactions from paginated two-column statements.
type LayoutParser struct {
	now    func() time.Time
	logger *slog.Logger
}

// LayoutOption configures a LayoutParser.
type LayoutOption func(*LayoutParser)

// WithClock overrides the clock used to pick the statement year.
func WithClock(now func() time.Time) LayoutOption {
	return func(p *LayoutParser) {
		p.now = now
	}
}

// WithLogger sets the logger used for dropped-line diagnostics.
func WithLogger(logger *slog.Logger) LayoutOption {
	return func(p *LayoutParser) {
		p.logger = logger
	}
}

// NewLayoutParser creates a layout parser.
func NewLayoutParser(opts ...LayoutOption) *LayoutParser {
	p := &LayoutParser{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile opens a PDF statement and parses it.
func (p *LayoutParser) ParseFile(ctx context.Context, path string) ([]model.Transaction, error) {
	src, err := OpenPDF(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	return p.Parse(ctx, src, path)
}

// Parse extracts transactions from every page after the first.
// Lines need both a leading date and an amount; anything else is dropped.
// The statement year is assumed to be the current year, so statements that
// span a year boundary are mis-dated.
func (p *LayoutParser) Parse(ctx context.Context, src PageSource, name string) ([]model.Transaction, error) {
	year := p.now().Year()
	transactions := []model.Transaction{}

	// The first page is a summary.
	for i := 1; i < src.NumPages(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := src.Page(i)
		if err != nil {
			return nil, &common.ParseError{Source: name, Err: fmt.Errorf("page %d: %w", i+1, err)}
		}

		for _, line := range pageLines(page) {
			txn, ok := p.parseLine(line, year)
			if ok {
				transactions = append(transactions, txn)
			}
		}
	}

	p.logger.Debug("parsed layout statement",
		"source", name,
		"pages", src.NumPages(),
		"transactions", len(transactions))

	return transactions, nil
}

// parseLine applies the date and amount patterns to a single line.
func (p *LayoutParser) parseLine(line string, year int) (model.Transaction, bool) {
	if shouldSkip(line) {
		return model.Transaction{}, false
	}

	dateLoc := DatePattern.FindStringSubmatchIndex(line)
	amountText := AmountPattern.FindString(line)
	if dateLoc == nil || amountText == "" {
		return model.Transaction{}, false
	}

	dateToken := line[dateLoc[2]:dateLoc[3]]
	date, err := time.Parse("2 Jan 2006", fmt.Sprintf("%s %d", strings.Join(strings.Fields(dateToken), " "), year))
	if err != nil {
		p.logger.Debug("dropping line with invalid date", "line", line, "error", err)
		return model.Transaction{}, false
	}

	amount, err := cleanAmount(amountText)
	if err != nil {
		p.logger.Debug("dropping line with invalid amount", "line", line, "error", err)
		return model.Transaction{}, false
	}

	details := extractDetails(line, dateLoc[1], amountText)

	return model.Transaction{
		Date:      date,
		Details:   details,
		Amount:    amount.Abs(),
		Direction: layoutDirection(amountText, details),
	}, true
}

// extractDetails returns the text between the date token and the last
// occurrence of the amount.
func extractDetails(line string, dateEnd int, amountText string) string {
	amountStart := strings.LastIndex(line, amountText)
	if amountStart <= dateEnd {
		return UnresolvedDetails
	}
	return strings.TrimSpace(line[dateEnd:amountStart])
}

// cleanAmount strips the credit marker, currency symbol and thousands separators.
func cleanAmount(amountText string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(CreditMarker, "", CurrencySymbol, "", ",", "").Replace(amountText)
	return decimal.NewFromString(cleaned)
}

// layoutDirection decides Credit or Debit for a layout statement line.
// A leading minus always means Debit.
func layoutDirection(amountText, details string) model.Direction {
	if strings.HasPrefix(amountText, "-") {
		return model.DirectionDebit
	}
	if strings.HasSuffix(amountText, CreditMarker) {
		return model.DirectionCredit
	}

	lower := strings.ToLower(details)
	if strings.Contains(lower, "payment") && !strings.Contains(lower, outgoingPaymentPhrase) {
		return model.DirectionCredit
	}
	return model.DirectionDebit
}
