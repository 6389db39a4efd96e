package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegistry_EveryKindHasProfile(t *testing.T) {
	registry := testRegistry()

	for _, kind := range model.AccountKinds() {
		profile, err := registry.Lookup(kind)
		require.NoError(t, err, kind.Tag())
		assert.Equal(t, kind, profile.Kind)
		assert.NotNil(t, profile.Parse)
		assert.NotEmpty(t, profile.Hint)
		assert.NotEmpty(t, profile.Extension)
	}
}

func TestRegistry_Hints(t *testing.T) {
	registry := testRegistry()

	card, err := registry.Lookup(model.AccountBarclaysCreditCard)
	require.NoError(t, err)
	assert.Contains(t, card.Hint, "paying the credit card bill")

	revolut, err := registry.LookupTag("revolut")
	require.NoError(t, err)
	assert.Contains(t, revolut.Hint, "purchase")
}

func TestRegistry_UnknownAccount(t *testing.T) {
	_, err := testRegistry().LookupTag("Monzo")
	assert.ErrorIs(t, err, common.ErrUnknownAccount)

	_, err = testRegistry().Lookup(model.AccountKind(42))
	assert.ErrorIs(t, err, common.ErrUnknownAccount)
}

func TestRegistry_ParseFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	t.Run("stamps account type", func(t *testing.T) {
		path := filepath.Join(dir, "export.csv")
		require.NoError(t, os.WriteFile(path, []byte("Completed Date,Description,Amount\n2024-03-01 10:00,Coffee Shop,-4.50\n"), 0o600))

		txns, err := testRegistry().ParseFile(ctx, model.AccountRevolut, path)
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Equal(t, "Revolut", txns[0].AccountType)
	})

	t.Run("empty result is distinct from parse failure", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		require.NoError(t, os.WriteFile(path, []byte("Completed Date,Description,Amount\n"), 0o600))

		txns, err := testRegistry().ParseFile(ctx, model.AccountRevolut, path)
		assert.ErrorIs(t, err, common.ErrNoTransactions)
		assert.Empty(t, txns)

		var parseErr *common.ParseError
		assert.False(t, errors.As(err, &parseErr))
	})

	t.Run("unreadable pdf", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.pdf")
		require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o600))

		_, err := testRegistry().ParseFile(ctx, model.AccountBarclaysCreditCard, path)
		var parseErr *common.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}
