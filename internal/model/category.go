package model

import "strings"

// CategoryMiscellaneous is the default category for anything unresolved.
const CategoryMiscellaneous = "Miscellaneous"

// Categories is the fixed set a fallback classification may produce.
// Order matters: when a classifier response mentions several names the
// earliest one in this list wins.
var Categories = []string{
	"Housing",
	"Utilities",
	"Groceries",
	"Transportation",
	"Dining Out",
	"Entertainment",
	"Shopping",
	"Health",
	"Travel",
	"Subscriptions",
	"Income",
	"Transfers",
	CategoryMiscellaneous,
}

// MatchCategory scans free text for the first known category name it contains,
// ignoring case. It returns CategoryMiscellaneous when nothing matches.
func MatchCategory(text string, categories []string) string {
	lower := strings.ToLower(text)
	for _, category := range categories {
		if strings.Contains(lower, strings.ToLower(category)) {
			return category
		}
	}
	return CategoryMiscellaneous
}
