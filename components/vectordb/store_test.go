package vectordb

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a Store keeping records in maps
type memStore struct {
	mu      sync.Mutex
	dims    map[string]int
	records map[string]map[int]Record
	failPut error
}

func newMemStore() *memStore {
	return &memStore{
		dims:    make(map[string]int),
		records: make(map[string]map[int]Record),
	}
}

func (s *memStore) Create(_ context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if got, ok := s.dims[name]; ok && got != dim {
		return ErrAlreadyInitialized
	}
	s.dims[name] = dim
	if s.records[name] == nil {
		s.records[name] = make(map[int]Record)
	}
	return nil
}

func (s *memStore) Put(_ context.Context, name string, position int, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	s.records[name][position] = rec
	return nil
}

func (s *memStore) Drop(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dims, name)
	delete(s.records, name)
	return nil
}

func (s *memStore) Load(_ context.Context, name string) (int, []Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dim, ok := s.dims[name]
	if !ok {
		return 0, nil, ErrStoreNotFound
	}
	records := make([]Record, len(s.records[name]))
	for pos, rec := range s.records[name] {
		records[pos] = rec
	}
	return dim, records, nil
}

func TestIndexWriteThrough(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	idx := newReadyIndex(t, 2, WithStore(store))
	assert.Same(t, store, idx.Store())
	mustPut(t, idx, "a", "first", 1, 0)
	mustPut(t, idx, "b", "second", 0, 1)
	mustPut(t, idx, "a", "replaced", 1, 1)

	restored := NewIndex("test", WithStore(store))
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, Ready, restored.State())
	assert.Equal(t, 2, restored.Dimension())
	assert.Equal(t, 2, restored.Count())
	tag, err := restored.GetTag(0)
	require.NoError(t, err)
	assert.Equal(t, "replaced", tag)
	v, err := restored.GetEmbedding("b")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, v)

	assert.True(t, errors.Is(restored.Restore(ctx), ErrAlreadyInitialized))

	require.NoError(t, idx.DropIndex(ctx))
	assert.True(t, errors.Is(NewIndex("test", WithStore(store)).Restore(ctx), ErrStoreNotFound))
}

func TestIndexStoreFailure(t *testing.T) {
	store := newMemStore()
	idx := newReadyIndex(t, 2, WithStore(store))
	mustPut(t, idx, "a", "t", 1, 0)

	boom := errors.New("disk full")
	store.failPut = boom
	rec, err := idx.NewRecord("b", "t", "", 0, []float32{0, 1})
	require.NoError(t, err)
	err = idx.Put(context.Background(), rec)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, idx.Count())
	_, err = idx.GetEmbedding("b")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestRestoreWithoutStore(t *testing.T) {
	assert.True(t, errors.Is(NewIndex("x").Restore(context.Background()), ErrInvalidArgument))
}
