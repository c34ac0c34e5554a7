package vectordb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// State is the lifecycle state of an Index.
type State int32

const (
	Uninitialized State = iota
	Ready
	Dropped
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Dropped:
		return "dropped"
	default:
		return "uninitialized"
	}
}

// cancelCheckInterval is the number of records scored between two context checks
const cancelCheckInterval = 256

// Index is an in-memory namespace of fixed dimension embeddings ranked by cosine similarity.
// Search is a brute force scan: its cost grows linearly with the number of records.
//
// Put, CreateIndex, DropIndex and Restore are serialized; Search, GetTag and
// GetEmbedding run concurrently with each other and see whole records only.
type Index struct {
	name string
	// mu provides thread-safety for concurrent operations
	mu    sync.RWMutex
	state State
	dim   int
	// records in insertion order
	records []Record
	// positions maps a key to its offset in records
	positions map[string]int
	Options
}

// NewIndex creates an Uninitialized index.
func NewIndex(name string, opts ...Option) *Index {
	ret := &Index{
		name: name,
	}
	for _, opt := range opts {
		opt(&ret.Options)
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	ret.logger = ret.logger.With(zap.String("index", name))
	return ret
}

func (idx *Index) Name() string {
	return idx.name
}

func (idx *Index) State() State {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.state
}

// Dimension returns the embedding size, 0 unless the index is Ready.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Count returns the number of distinct keys stored.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// stateErr must be called with mu held.
func (idx *Index) stateErr() error {
	switch idx.state {
	case Ready:
		return nil
	case Dropped:
		return errors.Wrap(ErrDropped, idx.name)
	default:
		return errors.Wrap(ErrNotInitialized, idx.name)
	}
}

// CreateIndex moves the index to Ready with embedding size dim.
// It is a no-op on a Ready index of the same dimension and fails with
// ErrAlreadyInitialized on a Ready index of another dimension.
// A Dropped index starts over empty.
func (idx *Index) CreateIndex(ctx context.Context, dim int) error {
	if dim <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "embedding size must be positive, got %d", dim)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.state == Ready {
		if idx.dim == dim {
			return nil
		}
		return errors.Wrapf(ErrAlreadyInitialized, "%s has embedding size %d, requested %d", idx.name, idx.dim, dim)
	}
	if idx.store != nil {
		if err := idx.store.Create(ctx, idx.name, dim); err != nil {
			return errors.Wrap(err, "store create")
		}
	}
	idx.state = Ready
	idx.dim = dim
	idx.records = nil
	idx.positions = make(map[string]int)
	idx.metrics.setRecords(idx.name, 0)
	idx.logger.Debug("index created", zap.Int("dimension", dim))
	return nil
}

// NewRecord builds a record validated against the index dimension.
func (idx *Index) NewRecord(key, tag, text string, ntokens int, embedding []float32) (Record, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.stateErr(); err != nil {
		return Record{}, err
	}
	return NewRecord(idx.dim, key, tag, text, ntokens, embedding)
}

// Put stores rec. Under OverwriteReplace an existing key is replaced in place
// and keeps its first insertion position; under OverwriteReject it fails with ErrKeyExists.
func (idx *Index) Put(ctx context.Context, rec Record) error {
	if rec.key == "" {
		return errors.Wrap(ErrInvalidArgument, "record has no key")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.stateErr(); err != nil {
		return err
	}
	if len(rec.embedding) != idx.dim {
		return errors.Wrapf(ErrDimensionMismatch, "record %s has %d dimensions, index %s expects %d", rec.key, len(rec.embedding), idx.name, idx.dim)
	}
	pos, exists := idx.positions[rec.key]
	if exists && idx.overwrite == OverwriteReject {
		return errors.Wrap(ErrKeyExists, rec.key)
	}
	if !exists {
		pos = len(idx.records)
	}
	if idx.store != nil {
		if err := idx.store.Put(ctx, idx.name, pos, rec); err != nil {
			return errors.Wrap(err, "store put")
		}
	}
	if exists {
		idx.records[pos] = rec
	} else {
		idx.records = append(idx.records, rec)
		idx.positions[rec.key] = pos
	}
	idx.metrics.observePut(idx.name, len(idx.records))
	return nil
}

// GetTag returns the tag of the record at insertion order offset position.
func (idx *Index) GetTag(position int) (string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.stateErr(); err != nil {
		return "", err
	}
	if position < 0 || position >= len(idx.records) {
		return "", errors.Wrapf(ErrIndexOutOfRange, "position %d, count %d", position, len(idx.records))
	}
	return idx.records[position].tag, nil
}

// GetEmbedding returns a copy of the vector stored under key.
func (idx *Index) GetEmbedding(key string) ([]float32, error) {
	rec, err := idx.Get(key)
	if err != nil {
		return nil, err
	}
	return rec.Embedding(), nil
}

// Get returns the record stored under key.
func (idx *Index) Get(key string) (Record, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.stateErr(); err != nil {
		return Record{}, err
	}
	pos, ok := idx.positions[key]
	if !ok {
		return Record{}, errors.Wrap(ErrKeyNotFound, key)
	}
	return idx.records[pos], nil
}

// Search ranks every record by cosine similarity with query and returns up to topK results.
// Scores are strictly non-increasing; equal scores keep insertion order.
// An empty index yields an empty result. When ctx ends the search fails with
// an error matching ErrCancelled and never returns a partial ranking.
func (idx *Index) Search(ctx context.Context, query []float32, topK int, opts ...SearchOption) ([]SearchResult, error) {
	var option SearchOptions
	for _, opt := range opts {
		opt(&option)
	}
	start := time.Now()
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.stateErr(); err != nil {
		return nil, err
	}
	if len(query) != idx.dim {
		return nil, errors.Wrapf(ErrDimensionMismatch, "query has %d dimensions, index %s expects %d", len(query), idx.name, idx.dim)
	}
	if topK <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "max results must be positive, got %d", topK)
	}
	if i := finite(query); i >= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "query has a non finite component at %d", i)
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	results := make([]SearchResult, 0, len(idx.records))
	qm := magnitude(query)
	for i, rec := range idx.records {
		if i > 0 && i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, cancelled(err)
			}
		}
		results = append(results, SearchResult{
			Key:      rec.key,
			Tag:      rec.tag,
			Text:     rec.text,
			NTokens:  rec.ntokens,
			Score:    cosine(query, qm, rec.embedding, rec.magnitude),
			Position: i,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position < results[j].Position
	})
	if option.HasMinScore {
		n := sort.Search(len(results), func(i int) bool {
			return results[i].Score < option.MinScore
		})
		results = results[:n]
	}
	results = results[:min(topK, len(results))]
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	idx.metrics.observeSearch(idx.name, time.Since(start))
	return results, nil
}

// DropIndex releases every record. Only CreateIndex or Restore is accepted afterwards.
func (idx *Index) DropIndex(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.stateErr(); err != nil {
		return err
	}
	if idx.store != nil {
		if err := idx.store.Drop(ctx, idx.name); err != nil {
			return errors.Wrap(err, "store drop")
		}
	}
	idx.state = Dropped
	idx.dim = 0
	idx.records = nil
	idx.positions = nil
	idx.metrics.setRecords(idx.name, 0)
	idx.logger.Debug("index dropped")
	return nil
}

// Restore loads the index from its Store and moves it to Ready.
// It fails with ErrAlreadyInitialized on a Ready index.
func (idx *Index) Restore(ctx context.Context) error {
	if idx.store == nil {
		return errors.Wrap(ErrInvalidArgument, "index has no store")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.state == Ready {
		return errors.Wrap(ErrAlreadyInitialized, idx.name)
	}
	dim, records, err := idx.store.Load(ctx, idx.name)
	if err != nil {
		return errors.Wrap(err, "store load")
	}
	if dim <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "stored embedding size %d", dim)
	}
	positions := make(map[string]int, len(records))
	for i, rec := range records {
		if len(rec.embedding) != dim {
			return errors.Wrapf(ErrDimensionMismatch, "stored record %s has %d dimensions, expecting %d", rec.key, len(rec.embedding), dim)
		}
		if _, ok := positions[rec.key]; ok {
			return errors.Wrapf(ErrKeyExists, "stored record %s is duplicated", rec.key)
		}
		positions[rec.key] = i
	}
	idx.state = Ready
	idx.dim = dim
	idx.records = records
	idx.positions = positions
	idx.metrics.setRecords(idx.name, len(records))
	idx.logger.Debug("index restored", zap.Int("dimension", dim), zap.Int("records", len(records)))
	return nil
}
