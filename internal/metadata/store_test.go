package metadata

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylink/fetchsql/pkg/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(":memory:")
	require.NoError(t, err, "opening store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_PutAndGet(t *testing.T) {
	store := openTestStore(t)

	descriptors := []schema.AttributeDescriptor{
		{LogicalName: "name", DisplayName: "Account Name", Type: "String"},
		{LogicalName: "createdbyname", Type: "String", ParentColumn: "createdby"},
	}
	fetchedAt := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put("https://org.example.com", "account", descriptors, fetchedAt))

	got, gotAt, err := store.Get("https://org.example.com", "account")
	require.NoError(t, err)
	assert.Equal(t, descriptors, got)
	assert.True(t, gotAt.Equal(fetchedAt), "fetched_at round-trip: got %v want %v", gotAt, fetchedAt)
}

func TestStore_GetMiss(t *testing.T) {
	store := openTestStore(t)

	_, _, err := store.Get("https://org.example.com", "nosuch")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestStore_PutReplaces(t *testing.T) {
	store := openTestStore(t)

	first := []schema.AttributeDescriptor{{LogicalName: "name"}}
	second := []schema.AttributeDescriptor{{LogicalName: "name"}, {LogicalName: "revenue"}}

	require.NoError(t, store.Put("https://org.example.com", "account", first, time.Now()))
	require.NoError(t, store.Put("https://org.example.com", "account", second, time.Now()))

	got, _, err := store.Get("https://org.example.com", "account")
	require.NoError(t, err)
	assert.Len(t, got, 2, "later snapshot must replace the earlier one")
}

func TestStore_EntitySetRoundTrip(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetEntitySet("https://org.example.com", "account")
	assert.ErrorIs(t, err, ErrNotCached)

	require.NoError(t, store.PutEntitySet("https://org.example.com", "account", "accounts"))

	entitySet, err := store.GetEntitySet("https://org.example.com", "account")
	require.NoError(t, err)
	assert.Equal(t, "accounts", entitySet)
}

func TestStore_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")

	store, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, store.PutEntitySet("https://org.example.com", "opportunity", "opportunities"))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	entitySet, err := reopened.GetEntitySet("https://org.example.com", "opportunity")
	require.NoError(t, err)
	assert.Equal(t, "opportunities", entitySet)
}
