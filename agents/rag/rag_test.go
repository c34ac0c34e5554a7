package rag

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/docqa/components"
	"github.com/bububa/docqa/components/completer"
	"github.com/bububa/docqa/components/document"
	"github.com/bububa/docqa/components/embedder"
	"github.com/bububa/docqa/components/vectordb"
)

// vocabulary is the basis of the bag of words embedding
var vocabulary = []string{"cat", "dog", "fish", "bird", "milk", "bone"}

// bagEmbedder embeds a text as the counts of the vocabulary words it contains
type bagEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (e *bagEmbedder) Provider() embedder.Provider { return "Bag" }

func (e *bagEmbedder) Model() string { return "bag-of-words" }

func (e *bagEmbedder) Embed(ctx context.Context, text string, usage *components.LLMUsage) ([]float32, error) {
	vs, err := e.BatchEmbed(ctx, []string{text}, usage)
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (e *bagEmbedder) BatchEmbed(_ context.Context, parts []string, usage *components.LLMUsage) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail != nil {
		return nil, e.fail
	}
	ret := make([][]float32, 0, len(parts))
	for _, p := range parts {
		v := make([]float32, len(vocabulary))
		for _, w := range strings.Fields(strings.ToLower(p)) {
			w = strings.Trim(w, ".,?!")
			for i, word := range vocabulary {
				if w == word || w == word+"s" {
					v[i]++
				}
			}
		}
		ret = append(ret, v)
		usage.Merge(&components.LLMUsage{InputTokens: int64(len(strings.Fields(p)))})
	}
	return ret, nil
}

type echoCompleter struct {
	prompt string
}

func (c *echoCompleter) Provider() completer.Provider { return "Echo" }

func (c *echoCompleter) Model() string { return "echo" }

func (c *echoCompleter) Complete(_ context.Context, prompt string, usage *components.LLMUsage, _ ...completer.Param) (string, error) {
	c.prompt = prompt
	usage.Merge(&components.LLMUsage{InputTokens: 10, OutputTokens: 2})
	return "Cats drink milk.", nil
}

func newPipeline(t *testing.T, opts ...Option) (*RAG, *bagEmbedder, *echoCompleter) {
	e := new(bagEmbedder)
	c := new(echoCompleter)
	chunker, err := embedder.NewParagraphChunker(embedder.WithMaxChunkTokens(8), embedder.WithMinParagraphSize(0))
	require.NoError(t, err)
	r, err := NewRAG(append([]Option{
		WithName("pets"),
		WithEmbedder(e),
		WithChunker(chunker),
		WithCompleter(c),
		WithTopK(2),
	}, opts...)...)
	require.NoError(t, err)
	return r, e, c
}

func petDocs() []*document.Document {
	return []*document.Document{
		document.New("Cats like milk. A cat sleeps all day.\n\nDogs chew a bone.", nil),
		document.New("Fish swim in water. Birds sing songs.", nil),
	}
}

func TestAddDocuments(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newPipeline(t)
	assert.Equal(t, "pets", r.Name())
	idx := vectordb.NewIndex("pets")
	docs := petDocs()

	usage, err := r.AddDocuments(ctx, idx, docs...)
	require.NoError(t, err)
	assert.Positive(t, usage.InputTokens)
	assert.Equal(t, vectordb.Ready, idx.State())
	assert.Equal(t, len(vocabulary), idx.Dimension())

	first, err := idx.Get(vectordb.RecordKey(DocumentKey(docs[0]), 0))
	require.NoError(t, err)
	assert.Equal(t, docs[0].ID, first.Tag())
	assert.Equal(t, "Cats like milk. A cat sleeps all day.", first.Text())
	second, err := idx.Get(vectordb.RecordKey(DocumentKey(docs[0]), 1))
	require.NoError(t, err)
	assert.Equal(t, "Dogs chew a bone.", second.Text())
	_, err = idx.Get(vectordb.RecordKey(DocumentKey(docs[1]), 0))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	// ingesting again replaces the records in place
	_, err = r.AddDocuments(ctx, idx, docs...)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())
}

func TestAddDocumentsReparsedContent(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newPipeline(t)
	idx := vectordb.NewIndex("pets")
	text := "Cats like milk. A cat sleeps all day.\n\nDogs chew a bone."

	first := document.New(text, map[string]string{document.MetaFilename: "pets.txt"})
	_, err := r.AddDocuments(ctx, idx, first)
	require.NoError(t, err)
	require.Equal(t, 2, idx.Count())

	second := document.New(text, map[string]string{document.MetaFilename: "pets.txt"})
	require.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, DocumentKey(first), DocumentKey(second))
	_, err = r.AddDocuments(ctx, idx, second)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Count())

	results, _, err := r.Search(ctx, idx, "Do cats like milk?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotEqual(t, results[0].Text, results[1].Text)
	// records keep their position and carry the latest document ID
	assert.Equal(t, second.ID, results[0].Tag)
	assert.Equal(t, 0, results[0].Position)

	changed := document.New(text+" Birds sing.", nil)
	assert.NotEqual(t, DocumentKey(first), DocumentKey(changed))
}

func TestSearchQueryEmbedder(t *testing.T) {
	ctx := context.Background()
	query := new(bagEmbedder)
	r, docEmbedder, _ := newPipeline(t, WithQueryEmbedder(query))
	idx := vectordb.NewIndex("pets")
	_, err := r.AddDocuments(ctx, idx, petDocs()...)
	require.NoError(t, err)
	ingestCalls := docEmbedder.calls

	results, _, err := r.Search(ctx, idx, "What does a dog chew?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Dogs chew a bone.", results[0].Text)
	assert.Equal(t, 1, query.calls)
	assert.Equal(t, ingestCalls, docEmbedder.calls)
}

func TestAddDocumentsFailure(t *testing.T) {
	r, e, _ := newPipeline(t)
	e.fail = components.NewProviderError("Bag", errors.New("down"), false)
	idx := vectordb.NewIndex("pets")
	_, err := r.AddDocuments(context.Background(), idx, petDocs()...)
	assert.True(t, errors.Is(err, components.ErrProvider))
	assert.Equal(t, vectordb.Uninitialized, idx.State())
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newPipeline(t)
	idx := vectordb.NewIndex("pets")
	docs := petDocs()
	_, err := r.AddDocuments(ctx, idx, docs...)
	require.NoError(t, err)

	results, usage, err := r.Search(ctx, idx, "What does a dog chew?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Dogs chew a bone.", results[0].Text)
	assert.Equal(t, docs[0].ID, results[0].Tag)
	assert.Positive(t, usage.InputTokens)
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	r, _, c := newPipeline(t)
	idx := vectordb.NewIndex("pets")
	docs := petDocs()
	_, err := r.AddDocuments(ctx, idx, docs...)
	require.NoError(t, err)

	answer, usage, err := r.Ask(ctx, idx, "Do cats like milk?")
	require.NoError(t, err)
	assert.Equal(t, "Cats drink milk.", answer.Text)
	assert.Equal(t, "Do cats like milk?", answer.Question)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "Cats like milk. A cat sleeps all day.", answer.Sources[0].Text)
	assert.Equal(t, []string{docs[0].ID}, Tags(answer.Sources[:1]))
	assert.EqualValues(t, 2, usage.OutputTokens)
	assert.Contains(t, c.prompt, "Cats like milk. A cat sleeps all day.")
	assert.True(t, strings.HasSuffix(c.prompt, "Question: Do cats like milk?\nAnswer:"))
}

func TestAskContextBudget(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newPipeline(t, WithMaxContextTokens(1))
	idx := vectordb.NewIndex("pets")
	_, err := r.AddDocuments(ctx, idx, petDocs()...)
	require.NoError(t, err)

	_, _, err = r.Ask(ctx, idx, "Do cats like milk?")
	assert.True(t, errors.Is(err, ErrNoRelevantContext))
}

func TestAskWithoutCompleter(t *testing.T) {
	r, err := NewRAG(WithEmbedder(new(bagEmbedder)))
	require.NoError(t, err)
	_, _, err = r.Ask(context.Background(), vectordb.NewIndex("x"), "question")
	assert.True(t, errors.Is(err, ErrNoCompleter))

	_, err = NewRAG()
	assert.Error(t, err)
}
