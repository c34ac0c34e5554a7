package vectordb

import "context"

// Store is a durability layer under an Index.
// Positions passed to Put are insertion order offsets; a Put on an existing
// key reuses the position of the first insertion.
type Store interface {
	// Create prepares storage for an index of dimension dim. It is a no-op when
	// the index already exists in the store with the same dimension.
	Create(ctx context.Context, name string, dim int) error
	// Put writes rec at position.
	Put(ctx context.Context, name string, position int, rec Record) error
	// Drop removes every record of the index.
	Drop(ctx context.Context, name string) error
	// Load returns the dimension and the records of the index ordered by position,
	// or ErrStoreNotFound.
	Load(ctx context.Context, name string) (int, []Record, error)
}
