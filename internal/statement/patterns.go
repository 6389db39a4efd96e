// Package statement turns raw bank statement documents into transactions.
//
// Two formats are supported: paginated two-column PDF statements (the layout
// parser) and tabular CSV exports (the tabular parser). Both produce
// model.Transaction values in document order; the caller stamps the account type.
package statement

import (
	"regexp"
	"strings"
)

// CurrencySymbol is the symbol amounts carry on layout statements.
const CurrencySymbol = "£"

// CreditMarker is the suffix a layout statement puts on credited amounts.
const CreditMarker = "CR"

// UnresolvedDetails is used when a line's amount sits before its date token
// and no description can be cut from it.
const UnresolvedDetails = "Unknown"

// DatePattern matches a day and three-letter month at the start of a line, e.g. "03 Jan".
var DatePattern = regexp.MustCompile(`^(\d{1,2}\s+[A-Za-z]{3})`)

// AmountPattern matches a currency amount anywhere in a line, e.g. "-£1,234.56" or "£20.00CR".
var AmountPattern = regexp.MustCompile(`(-?` + regexp.QuoteMeta(CurrencySymbol) + `[\d,]+\.\d{2}(?:` + CreditMarker + `)?)`)

// SkipPhrases mark page furniture and summary lines that are never transactions.
var SkipPhrases = []string{
	"Page",
	"Your transactions",
	"Your previous balance",
	"Payments towards your account",
	"Understanding your interest",
}

// outgoingPaymentPhrase marks purchases that mention "payment" but are not
// payments received by the account.
const outgoingPaymentPhrase = "payment to"

// shouldSkip reports whether a line contains any boilerplate phrase.
func shouldSkip(line string) bool {
	for _, phrase := range SkipPhrases {
		if strings.Contains(line, phrase) {
			return true
		}
	}
	return false
}
