package vectordb

import "github.com/pkg/errors"

var (
	// ErrNotInitialized is returned by operations on an index which is not Ready
	ErrNotInitialized = errors.New("vectordb: index not initialized")
	// ErrDropped is returned by operations on a dropped index, it matches ErrNotInitialized
	ErrDropped = errors.Wrap(ErrNotInitialized, "vectordb: index dropped")
	// ErrAlreadyInitialized is returned by CreateIndex on a Ready index of another dimension
	ErrAlreadyInitialized = errors.New("vectordb: index already initialized")
	// ErrDimensionMismatch is returned when a vector length differs from the index dimension
	ErrDimensionMismatch = errors.New("vectordb: dimension mismatch")
	// ErrKeyNotFound is returned by GetEmbedding for an unknown key
	ErrKeyNotFound = errors.New("vectordb: key not found")
	// ErrKeyExists is returned by Put under OverwriteReject for a key already stored
	ErrKeyExists = errors.New("vectordb: key already exists")
	// ErrIndexOutOfRange is returned by GetTag for a position outside [0, Count)
	ErrIndexOutOfRange = errors.New("vectordb: index out of range")
	// ErrInvalidArgument is returned for arguments outside their domain
	ErrInvalidArgument = errors.New("vectordb: invalid argument")
	// ErrCancelled is matched by the error returned when a search context ends
	ErrCancelled = errors.New("vectordb: cancelled")
	// ErrStoreNotFound is returned by Store.Load when the store has no data for an index
	ErrStoreNotFound = errors.New("vectordb: index not found in store")
)

// cancelledError matches both ErrCancelled and the context error it wraps.
type cancelledError struct {
	cause error
}

func (e *cancelledError) Error() string {
	return ErrCancelled.Error() + ": " + e.cause.Error()
}

func (e *cancelledError) Unwrap() error {
	return e.cause
}

func (e *cancelledError) Is(target error) bool {
	return target == ErrCancelled
}

func cancelled(err error) error {
	return &cancelledError{cause: err}
}
