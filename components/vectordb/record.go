package vectordb

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Record is an immutable embedding entry of an Index.
// Records are built with NewRecord, which validates them against the index dimension.
type Record struct {
	key       string
	tag       string
	text      string
	ntokens   int
	embedding []float32
	magnitude float64
}

// NewRecord builds a Record for an index of dimension dim.
// The embedding is copied, later changes to the argument do not reach the record.
// NaN and infinite components are rejected with ErrInvalidArgument.
func NewRecord(dim int, key, tag, text string, ntokens int, embedding []float32) (Record, error) {
	if key == "" {
		return Record{}, errors.Wrap(ErrInvalidArgument, "empty record key")
	}
	if ntokens < 0 {
		return Record{}, errors.Wrapf(ErrInvalidArgument, "negative token count %d", ntokens)
	}
	if len(embedding) != dim {
		return Record{}, errors.Wrapf(ErrDimensionMismatch, "record %s has %d dimensions, index expects %d", key, len(embedding), dim)
	}
	if i := finite(embedding); i >= 0 {
		return Record{}, errors.Wrapf(ErrInvalidArgument, "record %s has a non finite component at %d", key, i)
	}
	v := make([]float32, len(embedding))
	copy(v, embedding)
	return Record{
		key:       key,
		tag:       tag,
		text:      text,
		ntokens:   ntokens,
		embedding: v,
		magnitude: magnitude(v),
	}, nil
}

func (r Record) Key() string {
	return r.key
}

func (r Record) Tag() string {
	return r.tag
}

func (r Record) Text() string {
	return r.text
}

func (r Record) NTokens() int {
	return r.ntokens
}

// Embedding returns a copy of the record vector.
func (r Record) Embedding() []float32 {
	v := make([]float32, len(r.embedding))
	copy(v, r.embedding)
	return v
}

// Dimension returns the vector length.
func (r Record) Dimension() int {
	return len(r.embedding)
}

// RecordKey is the key of the n-th chunk of a document.
func RecordKey(docID string, n int) string {
	return docID + ":" + strconv.Itoa(n)
}

// ContentKey derives a stable key from the chunk text.
func ContentKey(text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(text)).String()
}
