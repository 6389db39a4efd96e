package engine

import "strings"

// merchantPrefixes are boilerplate openings stripped before a merchant name.
var merchantPrefixes = []string{
	"card payment to ",
	"payment to ",
	"direct debit ",
}

// merchantTerminators end the merchant part of a description.
var merchantTerminators = []string{" on ", " ref "}

// InferMerchant guesses a merchant name from a transaction description.
//
//	"CARD PAYMENT TO TESCO ON 04 MAY"  -> "tesco"
//	"Direct Debit Netflix Ref 99213"   -> "netflix"
func InferMerchant(details string) string {
	s := strings.ToLower(details)

	longest := ""
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(s, prefix) && len(prefix) > len(longest) {
			longest = prefix
		}
	}
	s = s[len(longest):]

	cut := len(s)
	for _, term := range merchantTerminators {
		if i := strings.Index(s, term); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(s[:cut])
}
