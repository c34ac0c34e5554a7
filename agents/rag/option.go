package rag

import (
	"go.uber.org/zap"

	"github.com/bububa/docqa/components/completer"
	"github.com/bububa/docqa/components/embedder"
	"github.com/bububa/docqa/components/vectordb"
)

const (
	// DefaultTopK is the number of chunks retrieved to answer a question
	DefaultTopK = 5
	// DefaultMaxContextTokens bounds the chunk tokens packed into a prompt
	DefaultMaxContextTokens = 1800
	// DefaultConcurrency is the number of documents ingested at once
	DefaultConcurrency = 4
)

// ContextGenerator builds the completion prompt from a question and the retrieved chunks
type ContextGenerator func(question string, results []vectordb.SearchResult) string

type Options struct {
	name             string
	embedder         embedder.Embedder
	queryEmbedder    embedder.Embedder
	chunker          embedder.Chunker
	completer        completer.Completer
	contextGenerator ContextGenerator
	searchOptions    []vectordb.SearchOption
	completerParams  []completer.Param
	topK             int
	maxContextTokens int
	concurrency      int
	logger           *zap.Logger
}

type Option func(*Options)

func WithName(name string) Option {
	return func(r *Options) {
		r.name = name
	}
}

func WithChunker(chunker embedder.Chunker) Option {
	return func(r *Options) {
		r.chunker = chunker
	}
}

func WithEmbedder(e embedder.Embedder) Option {
	return func(r *Options) {
		r.embedder = e
	}
}

// WithQueryEmbedder embeds questions with e instead of the document embedder,
// for providers embedding queries and documents differently. Both must share a vector space.
func WithQueryEmbedder(e embedder.Embedder) Option {
	return func(r *Options) {
		r.queryEmbedder = e
	}
}

func WithCompleter(c completer.Completer, params ...completer.Param) Option {
	return func(r *Options) {
		r.completer = c
		r.completerParams = params
	}
}

func WithContextGenerator(fn ContextGenerator) Option {
	return func(r *Options) {
		r.contextGenerator = fn
	}
}

func WithSearchOptions(opts ...vectordb.SearchOption) Option {
	return func(r *Options) {
		r.searchOptions = opts
	}
}

func WithTopK(k int) Option {
	return func(r *Options) {
		r.topK = k
	}
}

// WithMaxContextTokens bounds the sum of chunk token counts put in a prompt
func WithMaxContextTokens(n int) Option {
	return func(r *Options) {
		r.maxContextTokens = n
	}
}

// WithConcurrency sets how many documents AddDocuments processes in parallel
func WithConcurrency(n int) Option {
	return func(r *Options) {
		r.concurrency = n
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Options) {
		r.logger = l
	}
}
