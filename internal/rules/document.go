// Package rules holds the categorization knowledge base: account-specific
// terms, learned merchant patterns and category keyword lists.
//
// Every tier keeps the order it was written in, because that order is the
// priority in which the engine tries rules.
package rules

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Top-level keys of a rule document.
const (
	KeyAccountTerms    = "account_terms"
	KeyLearnedPatterns = "learned_patterns"
	KeyCategories      = "categories"
)

// Entry maps a term or merchant substring to a category.
type Entry struct {
	Key      string
	Category string
}

// Mapping is an ordered, case-insensitively keyed list of entries.
type Mapping []Entry

// Get returns the category for key, ignoring case.
func (m Mapping) Get(key string) (string, bool) {
	if i := m.index(key); i >= 0 {
		return m[i].Category, true
	}
	return "", false
}

// Set overwrites the entry whose key equals key ignoring case, or appends one.
func (m *Mapping) Set(key, category string) {
	if i := m.index(key); i >= 0 {
		(*m)[i].Category = category
		return
	}
	*m = append(*m, Entry{Key: key, Category: category})
}

func (m Mapping) index(key string) int {
	for i, e := range m {
		if strings.EqualFold(e.Key, key) {
			return i
		}
	}
	return -1
}

// AccountTermSet holds the terms for one account type tag.
type AccountTermSet struct {
	Account string
	Terms   Mapping
}

// CategoryKeywords lists the keyword patterns for one category.
type CategoryKeywords struct {
	Name     string
	Patterns []string
}

// Document is the in-memory rule base.
type Document struct {
	extra           []extraKey
	AccountTerms    []AccountTermSet
	LearnedPatterns Mapping
	Categories      []CategoryKeywords
}

// extraKey preserves unrecognised top-level keys across a rewrite.
type extraKey struct {
	node *yaml.Node
	key  string
}

// NewDocument returns an empty document with all three tiers present.
func NewDocument() *Document {
	return &Document{
		AccountTerms:    []AccountTermSet{},
		LearnedPatterns: Mapping{},
		Categories:      []CategoryKeywords{},
	}
}

// TermsFor returns the terms configured for an account tag, ignoring case.
func (d *Document) TermsFor(account string) Mapping {
	for _, set := range d.AccountTerms {
		if strings.EqualFold(set.Account, account) {
			return set.Terms
		}
	}
	return nil
}

// SetAccountTerm adds or overwrites a term for an account tag.
func (d *Document) SetAccountTerm(account, term, category string) {
	for i := range d.AccountTerms {
		if strings.EqualFold(d.AccountTerms[i].Account, account) {
			d.AccountTerms[i].Terms.Set(term, category)
			return
		}
	}
	d.AccountTerms = append(d.AccountTerms, AccountTermSet{Account: account, Terms: Mapping{{Key: term, Category: category}}})
}

// SetCategoryPatterns replaces the keyword patterns of a category, or appends it.
func (d *Document) SetCategoryPatterns(category string, patterns ...string) {
	for i := range d.Categories {
		if strings.EqualFold(d.Categories[i].Name, category) {
			d.Categories[i].Patterns = patterns
			return
		}
	}
	d.Categories = append(d.Categories, CategoryKeywords{Name: category, Patterns: patterns})
}

// Clone returns a deep copy. The engine runs against a clone so that
// in-run learning never leaks into the caller's document.
func (d *Document) Clone() *Document {
	clone := &Document{
		AccountTerms:    make([]AccountTermSet, len(d.AccountTerms)),
		LearnedPatterns: append(Mapping{}, d.LearnedPatterns...),
		Categories:      make([]CategoryKeywords, len(d.Categories)),
		extra:           append([]extraKey(nil), d.extra...),
	}
	for i, set := range d.AccountTerms {
		clone.AccountTerms[i] = AccountTermSet{Account: set.Account, Terms: append(Mapping{}, set.Terms...)}
	}
	for i, cat := range d.Categories {
		clone.Categories[i] = CategoryKeywords{Name: cat.Name, Patterns: append([]string{}, cat.Patterns...)}
	}
	return clone
}
