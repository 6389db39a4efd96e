// Package account binds each supported account kind to its statement parser
// and to the hint the fallback classifier needs to read its descriptions.
package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/Veraticus/spice-statements/internal/statement"
)

// ParseFunc reads a statement file into transactions.
type ParseFunc func(ctx context.Context, path string) ([]model.Transaction, error)

// Profile describes how one account kind is ingested and classified.
type Profile struct {
	Parse     ParseFunc
	Hint      string
	Extension string
	Kind      model.AccountKind
}

// Registry holds one profile per account kind.
type Registry struct {
	profiles map[model.AccountKind]Profile
}

// NewRegistry builds the registry of supported accounts.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	layout := statement.NewLayoutParser(statement.WithLogger(logger))
	tabular := statement.NewTabularParser(logger)

	return &Registry{profiles: map[model.AccountKind]Profile{
		model.AccountBarclaysCreditCard: {
			Kind:      model.AccountBarclaysCreditCard,
			Parse:     layout.ParseFile,
			Extension: ".pdf",
			Hint:      "Note: For credit cards, 'payment' usually means paying the credit card bill.",
		},
		model.AccountRevolut: {
			Kind:      model.AccountRevolut,
			Parse:     tabular.ParseFile,
			Extension: ".csv",
			Hint:      "Note: For Revolut, 'payment' usually refers to a purchase.",
		},
	}}
}

// Lookup returns the profile for kind.
func (r *Registry) Lookup(kind model.AccountKind) (Profile, error) {
	profile, ok := r.profiles[kind]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", common.ErrUnknownAccount, kind)
	}
	return profile, nil
}

// LookupTag resolves an account type tag and returns its profile.
func (r *Registry) LookupTag(tag string) (Profile, error) {
	kind, err := model.ParseAccountKind(tag)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", common.ErrUnknownAccount, err)
	}
	return r.Lookup(kind)
}

// ParseFile parses a statement for kind and stamps every transaction with the
// account type. An empty result is reported as common.ErrNoTransactions.
func (r *Registry) ParseFile(ctx context.Context, kind model.AccountKind, path string) ([]model.Transaction, error) {
	profile, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}

	transactions, err := profile.Parse(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return transactions, common.ErrNoTransactions
	}

	for i := range transactions {
		transactions[i].AccountType = kind.Tag()
	}

	return transactions, nil
}
