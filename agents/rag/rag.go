package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bububa/docqa/components"
	"github.com/bububa/docqa/components/document"
	"github.com/bububa/docqa/components/embedder"
	"github.com/bububa/docqa/components/vectordb"
)

var (
	// ErrNoRelevantContext is returned by Ask when the search finds nothing to answer from
	ErrNoRelevantContext = errors.New("no relevant information to answer question")
	// ErrNoCompleter is returned by Ask when the pipeline has no Completer
	ErrNoCompleter = errors.New("no completer configured")
)

// RAG chunks and embeds documents into an index, and answers questions from it.
type RAG struct {
	Options
}

// Answer is the completion for a question with the chunks it was built from.
type Answer struct {
	Question string                  `json:"question" yaml:"question"`
	Text     string                  `json:"answer" yaml:"answer"`
	Sources  []vectordb.SearchResult `json:"sources" yaml:"sources"`
}

func NewRAG(opts ...Option) (*RAG, error) {
	ret := new(RAG)
	for _, opt := range opts {
		opt(&ret.Options)
	}
	if ret.embedder == nil {
		return nil, errors.New("rag: embedder is required")
	}
	if ret.queryEmbedder == nil {
		ret.queryEmbedder = ret.embedder
	}
	if ret.chunker == nil {
		chunker, err := embedder.NewParagraphChunker()
		if err != nil {
			return nil, err
		}
		ret.chunker = chunker
	}
	if ret.contextGenerator == nil {
		ret.contextGenerator = defaultContextGenerator
	}
	if ret.topK <= 0 {
		ret.topK = DefaultTopK
	}
	if ret.maxContextTokens <= 0 {
		ret.maxContextTokens = DefaultMaxContextTokens
	}
	if ret.concurrency <= 0 {
		ret.concurrency = DefaultConcurrency
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	return ret, nil
}

func (r *RAG) Name() string {
	return r.name
}

// AddDocuments chunks, embeds and stores docs. Records are keyed contentKey:n,
// contentKey being derived from the document text, and tagged with the document
// ID: ingesting unchanged content again overwrites its records instead of adding copies. An Uninitialized index is created with the
// dimension of the first embedding. Documents are processed concurrently; the
// first failure cancels the remaining ones.
func (r *RAG) AddDocuments(ctx context.Context, idx *vectordb.Index, docs ...*document.Document) (*components.LLMUsage, error) {
	totalUsage := new(components.LLMUsage)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, doc := range docs {
		g.Go(func() error {
			usage := new(components.LLMUsage)
			n, err := r.addDocument(gctx, idx, doc, usage)
			mu.Lock()
			totalUsage.Merge(usage)
			mu.Unlock()
			if err != nil {
				return errors.Wrapf(err, "document %s", doc.ID)
			}
			r.logger.Info("document ingested",
				zap.String("index", idx.Name()),
				zap.String("doc", doc.ID),
				zap.Int("chunks", n),
			)
			return nil
		})
	}
	err := g.Wait()
	return totalUsage, err
}

func (r *RAG) addDocument(ctx context.Context, idx *vectordb.Index, doc *document.Document, usage *components.LLMUsage) (int, error) {
	chunks, err := r.chunker.Chunk(ctx, doc.String())
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	embedded, err := embedder.EmbedChunks(ctx, r.embedder, chunks, usage)
	if err != nil {
		return 0, err
	}
	if idx.State() == vectordb.Uninitialized {
		if err := idx.CreateIndex(ctx, len(embedded[0].Embedding)); err != nil {
			return 0, err
		}
	}
	key := DocumentKey(doc)
	for i, chunk := range embedded {
		rec, err := idx.NewRecord(vectordb.RecordKey(key, i), doc.ID, chunk.Text, chunk.TokenSize, chunk.Embedding)
		if err != nil {
			return i, err
		}
		if err := idx.Put(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(embedded), nil
}

// DocumentKey is the prefix of the record keys of doc, stable across parses of the same text.
func DocumentKey(doc *document.Document) string {
	return vectordb.ContentKey(doc.Text)
}

// Search embeds question and returns the topK closest chunks of idx.
func (r *RAG) Search(ctx context.Context, idx *vectordb.Index, question string, topK int, opts ...vectordb.SearchOption) ([]vectordb.SearchResult, *components.LLMUsage, error) {
	usage := new(components.LLMUsage)
	query, err := r.queryEmbedder.Embed(ctx, question, usage)
	if err != nil {
		return nil, usage, err
	}
	if len(opts) == 0 {
		opts = r.searchOptions
	}
	results, err := idx.Search(ctx, query, topK, opts...)
	if err != nil {
		return nil, usage, err
	}
	return results, usage, nil
}

// Ask answers question from the chunks of idx closest to it. Retrieved chunks
// are added to the prompt in rank order while their token count fits the context budget.
func (r *RAG) Ask(ctx context.Context, idx *vectordb.Index, question string) (*Answer, *components.LLMUsage, error) {
	if r.completer == nil {
		return nil, nil, ErrNoCompleter
	}
	results, usage, err := r.Search(ctx, idx, question, r.topK)
	if err != nil {
		return nil, usage, err
	}
	results = r.budget(results)
	if len(results) == 0 {
		return nil, usage, errors.Wrap(ErrNoRelevantContext, question)
	}
	prompt := r.contextGenerator(question, results)
	completionUsage := new(components.LLMUsage)
	text, err := r.completer.Complete(ctx, prompt, completionUsage, r.completerParams...)
	usage.Merge(completionUsage)
	if err != nil {
		return nil, usage, err
	}
	return &Answer{
		Question: question,
		Text:     text,
		Sources:  results,
	}, usage, nil
}

func (r *RAG) budget(results []vectordb.SearchResult) []vectordb.SearchResult {
	var total int
	for i, res := range results {
		total += res.NTokens
		if total > r.maxContextTokens {
			return results[:i]
		}
	}
	return results
}

func defaultContextGenerator(question string, results []vectordb.SearchResult) string {
	sb := new(strings.Builder)
	sb.WriteString("Answer the question based on the context below, and if the question can't be answered based on the context, say \"I don't know\"\n\nContext:\n")
	texts := lo.Map(results, func(res vectordb.SearchResult, _ int) string {
		return res.Text
	})
	sb.WriteString(strings.Join(texts, "\n\n###\n\n"))
	fmt.Fprintf(sb, "\n\n---\n\nQuestion: %s\nAnswer:", question)
	return sb.String()
}

// Tags returns the distinct document IDs of results in rank order.
func Tags(results []vectordb.SearchResult) []string {
	return lo.Uniq(lo.Map(results, func(res vectordb.SearchResult, _ int) string {
		return res.Tag
	}))
}
