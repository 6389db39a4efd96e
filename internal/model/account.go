package model

import (
	"fmt"
	"strings"
)

// AccountKind is the closed set of supported statement sources.
type AccountKind int

// Supported account kinds. Add new kinds before accountKindCount.
const (
	AccountBarclaysCreditCard AccountKind = iota
	AccountRevolut

	accountKindCount
)

var accountTags = [accountKindCount]string{
	AccountBarclaysCreditCard: "Barclays Credit Card",
	AccountRevolut:            "Revolut",
}

// AccountKinds returns every supported kind in declaration order.
func AccountKinds() []AccountKind {
	kinds := make([]AccountKind, 0, accountKindCount)
	for k := AccountKind(0); k < accountKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Tag returns the account type tag written into transactions and rule documents.
func (k AccountKind) Tag() string {
	if k < 0 || k >= accountKindCount {
		return fmt.Sprintf("AccountKind(%d)", int(k))
	}
	return accountTags[k]
}

func (k AccountKind) String() string {
	return k.Tag()
}

// ParseAccountKind resolves an account tag, ignoring case and surrounding space.
func ParseAccountKind(tag string) (AccountKind, error) {
	tag = strings.TrimSpace(tag)
	for k := AccountKind(0); k < accountKindCount; k++ {
		if strings.EqualFold(accountTags[k], tag) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown account type %q", tag)
}
