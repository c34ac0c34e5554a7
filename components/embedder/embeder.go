package embedder

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/bububa/docqa/components"
)

// DefaultBatchSize is the number of texts sent to a provider in one request by EmbedChunks
const DefaultBatchSize = 100

// Embedder turns text into a fixed length vector. Implementations wrap an
// external provider and report failures as *components.ProviderError, with
// RateLimited set when the provider throttled the call.
type Embedder interface {
	Provider() Provider
	Model() string
	Embed(ctx context.Context, text string, usage *components.LLMUsage) ([]float32, error)
	BatchEmbed(ctx context.Context, parts []string, usage *components.LLMUsage) ([][]float32, error)
}

// EmbeddedChunk represents a chunk of text along with its vector embedding.
type EmbeddedChunk struct {
	Chunk
	// Embedding of the chunk text
	Embedding []float32 `json:"embedding" yaml:"-"`
}

// EmbedChunks generates an embedding for every chunk, batching the provider calls.
// The result keeps the order of chunks. It fails as a whole.
func EmbedChunks(ctx context.Context, e Embedder, chunks []Chunk, usage *components.LLMUsage) ([]EmbeddedChunk, error) {
	ret := make([]EmbeddedChunk, 0, len(chunks))
	for i := 0; i < len(chunks); i += DefaultBatchSize {
		end := min(i+DefaultBatchSize, len(chunks))
		parts := make([]string, 0, end-i)
		for _, chunk := range chunks[i:end] {
			parts = append(parts, chunk.Text)
		}
		batchUsage := new(components.LLMUsage)
		vectors, err := e.BatchEmbed(ctx, parts, batchUsage)
		usage.Merge(batchUsage)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(parts) {
			return nil, components.NewProviderError(e.Provider(), errors.Errorf("expecting %d embeddings, got %d", len(parts), len(vectors)), false)
		}
		for j, v := range vectors {
			ret = append(ret, EmbeddedChunk{
				Chunk:     chunks[i+j],
				Embedding: v,
			})
		}
	}
	return ret, nil
}

// Base64 is base64 encoded little endian float32 embedding string.
type Base64 string

// EncodeBase64 encodes the exact bits of an embedding.
func EncodeBase64(v []float32) Base64 {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return Base64(base64.StdEncoding.EncodeToString(buf))
}

// Decode decodes base64 encoded string into a slice of floats.
func (s Base64) Decode() ([]float32, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(s))
	if err != nil {
		return nil, err
	}
	if len(decoded)%4 != 0 {
		return nil, errors.New("invalid base64 encoded string length")
	}
	floats := make([]float32, len(decoded)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(decoded[i*4 : (i+1)*4]))
	}
	return floats, nil
}
