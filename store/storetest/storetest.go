// Package storetest holds a behavioural suite every store.Store backend must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/PassForge/store"
)

// Run exercises s, which must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	ok, err := s.Exists(ctx, "example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Upsert(ctx, "example.com", "blob-1"))
	ok, err = s.Exists(ctx, "example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	first, err := store.Find(ctx, s, "example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "blob-1", first.EncryptedData)

	// same name overwrites in place
	require.NoError(t, s.Upsert(ctx, "example.com", "blob-2"))
	entries, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, "blob-2", entries[0].EncryptedData)
	assert.True(t, first.CreatedAt.Equal(entries[0].CreatedAt))

	assert.ErrorIs(t, s.Upsert(ctx, "", "blob"), store.ErrInvalidEntry)
	assert.ErrorIs(t, s.Upsert(ctx, "x", ""), store.ErrInvalidEntry)

	const odd = "mail / bob (1) ✓?&="
	require.NoError(t, s.Upsert(ctx, odd, "blob-3"))
	ok, err = s.Exists(ctx, odd)
	require.NoError(t, err)
	assert.True(t, ok)
	entries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = store.Find(ctx, s, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Delete(ctx, store.NameRef("example.com")))
	ok, err = s.Exists(ctx, "example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Delete(ctx, store.NameRef("example.com")), store.ErrNotFound)

	other, err := store.Find(ctx, s, odd)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, store.IDRef(other.ID)))
	assert.ErrorIs(t, s.Delete(ctx, store.IDRef(other.ID)), store.ErrNotFound)

	entries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
