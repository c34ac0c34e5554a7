package chromem

import (
	"context"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/docqa/components/vectordb"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := New(chromem.NewDB())

	idx := vectordb.NewIndex("docs", vectordb.WithStore(store))
	require.NoError(t, idx.CreateIndex(ctx, 3))
	for _, r := range []struct {
		key string
		tag string
		v   []float32
	}{
		{key: "a", tag: "doc1", v: []float32{0.1, 0.2, 0.3}},
		{key: "b", tag: "doc1", v: []float32{3, -1, 0.5}},
		{key: "c", tag: "doc2", v: []float32{-0.7, 0.7, 0}},
		{key: "a", tag: "doc3", v: []float32{0.4, 0.5, 0.6}},
	} {
		rec, err := idx.NewRecord(r.key, r.tag, "text "+r.key, 2, r.v)
		require.NoError(t, err)
		require.NoError(t, idx.Put(ctx, rec))
	}

	dim, records, err := store.Load(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 3, dim)
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].Key())
	assert.Equal(t, "doc3", records[0].Tag())
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, records[0].Embedding())
	assert.Equal(t, "b", records[1].Key())
	assert.Equal(t, []float32{3, -1, 0.5}, records[1].Embedding())
	assert.Equal(t, "text c", records[2].Text())
	assert.Equal(t, 2, records[2].NTokens())

	restored := vectordb.NewIndex("docs", vectordb.WithStore(store))
	require.NoError(t, restored.Restore(ctx))
	before, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	after, err := restored.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// creating again with the same dimension keeps the data
	require.NoError(t, store.Create(ctx, "docs", 3))
	assert.True(t, errors.Is(store.Create(ctx, "docs", 4), vectordb.ErrAlreadyInitialized))

	require.NoError(t, idx.DropIndex(ctx))
	_, _, err = store.Load(ctx, "docs")
	assert.True(t, errors.Is(err, vectordb.ErrStoreNotFound))
}

func TestStoreEmptyIndex(t *testing.T) {
	ctx := context.Background()
	store := New(chromem.NewDB())
	_, _, err := store.Load(ctx, "missing")
	assert.True(t, errors.Is(err, vectordb.ErrStoreNotFound))

	require.NoError(t, store.Create(ctx, "empty", 2))
	dim, records, err := store.Load(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, 2, dim)
	assert.Empty(t, records)
}
