package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftrota/internal/platform/config"
	"shiftrota/internal/platform/db"
	"shiftrota/internal/platform/docstore"
)

// newTestStore returns a store and a collection name no other test run uses.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, config.Config{DatabaseURL: dbURL})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, pool))

	collection := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM documents WHERE collection = $1", collection)
		pool.Close()
	})
	return New(pool), collection
}

func TestPutGetRoundTripKeepsKeyOrder(t *testing.T) {
	ctx := context.Background()
	store, collection := newTestStore(t)

	_, err := store.Get(ctx, collection, "departments")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	doc := `{"Service Desk":{"shifts":{"WO":"Weekly Off","APAC":"APAC shift"}}}`
	require.NoError(t, store.Put(ctx, collection, "departments", []byte(doc)))

	got, err := store.Get(ctx, collection, "departments")
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))

	require.NoError(t, store.Put(ctx, collection, "departments", []byte(`{"v":2}`)))
	got, err = store.Get(ctx, collection, "departments")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	store, collection := newTestStore(t)

	require.NoError(t, store.Put(ctx, collection, "a", []byte(`{}`)))
	require.NoError(t, store.Put(ctx, collection, "b", []byte(`[]`)))

	docs, err := store.List(ctx, collection)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, store.Delete(ctx, collection, "a"))
	require.NoError(t, store.Delete(ctx, collection, "a"))
	docs, err = store.List(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"b": []byte(`[]`)}, docs)

	assert.NoError(t, store.Ping(ctx))
}

func TestPutRejectsInvalidJSON(t *testing.T) {
	store, collection := newTestStore(t)
	assert.Error(t, store.Put(context.Background(), collection, "bad", []byte("{")))
}
