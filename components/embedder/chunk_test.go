package embedder

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fieldsCounter counts whitespace separated fields
var fieldsCounter = TokenCounterFunc(func(text string) (int, error) {
	return len(strings.Fields(text)), nil
})

func TestParagraphChunker(t *testing.T) {
	tests := []struct {
		name             string
		input            string
		maxTokens        int
		minParagraphSize int
		want             []Chunk
	}{
		{
			name:             "short document is a single chunk",
			input:            "The quick brown fox jumps. It runs far away.",
			maxTokens:        256,
			minParagraphSize: 32,
			want: []Chunk{
				{Text: "The quick brown fox jumps. It runs far away.", TokenSize: 9, StartSentence: 0, EndSentence: 2},
			},
		},
		{
			name:             "ten token document",
			input:            "Alpha beta gamma delta epsilon.\nZeta eta theta iota kappa.",
			maxTokens:        256,
			minParagraphSize: 32,
			want: []Chunk{
				{Text: "Alpha beta gamma delta epsilon. Zeta eta theta iota kappa.", TokenSize: 10, StartSentence: 0, EndSentence: 2},
			},
		},
		{
			name:             "sentences packed up to the budget",
			input:            "One two three. Four five. Six seven eight.",
			maxTokens:        5,
			minParagraphSize: 0,
			want: []Chunk{
				{Text: "One two three. Four five.", TokenSize: 5, StartSentence: 0, EndSentence: 2},
				{Text: "Six seven eight.", TokenSize: 3, StartSentence: 2, EndSentence: 3},
			},
		},
		{
			name:             "oversized sentence stands alone",
			input:            "Alpha beta gamma delta. Epsilon.",
			maxTokens:        2,
			minParagraphSize: 0,
			want: []Chunk{
				{Text: "Alpha beta gamma delta.", TokenSize: 4, StartSentence: 0, EndSentence: 1},
				{Text: "Epsilon.", TokenSize: 1, StartSentence: 1, EndSentence: 2},
			},
		},
		{
			name:             "short paragraphs are merged",
			input:            "Short.\n\nAlso short.\n\nThis paragraph is long enough to stand.",
			maxTokens:        256,
			minParagraphSize: 32,
			want: []Chunk{
				{Text: "Short. Also short. This paragraph is long enough to stand.", TokenSize: 10, StartSentence: 0, EndSentence: 3},
			},
		},
		{
			name:             "chunks never cross paragraph units",
			input:            "Short.\n\nAlso short.\n\nThis paragraph is long enough to stand.",
			maxTokens:        256,
			minParagraphSize: 0,
			want: []Chunk{
				{Text: "Short.", TokenSize: 1, StartSentence: 0, EndSentence: 1},
				{Text: "Also short.", TokenSize: 2, StartSentence: 1, EndSentence: 2},
				{Text: "This paragraph is long enough to stand.", TokenSize: 7, StartSentence: 2, EndSentence: 3},
			},
		},
		{
			name:             "crlf and whitespace-only lines separate paragraphs",
			input:            "Short.\r\n\r\nAlso short.\n \t\nThis paragraph is long enough to stand.",
			maxTokens:        256,
			minParagraphSize: 0,
			want: []Chunk{
				{Text: "Short.", TokenSize: 1, StartSentence: 0, EndSentence: 1},
				{Text: "Also short.", TokenSize: 2, StartSentence: 1, EndSentence: 2},
				{Text: "This paragraph is long enough to stand.", TokenSize: 7, StartSentence: 2, EndSentence: 3},
			},
		},
		{
			name:             "short last paragraph is flushed",
			input:            "A first paragraph long enough to be a unit.\n\nEnd.",
			maxTokens:        256,
			minParagraphSize: 32,
			want: []Chunk{
				{Text: "A first paragraph long enough to be a unit.", TokenSize: 10, StartSentence: 0, EndSentence: 1},
				{Text: "End.", TokenSize: 1, StartSentence: 1, EndSentence: 2},
			},
		},
		{
			name:             "newlines and escaped newlines are spaces",
			input:            `Line one\nstill one.` + "\nNext  line.",
			maxTokens:        256,
			minParagraphSize: 0,
			want: []Chunk{
				{Text: "Line one still one. Next line.", TokenSize: 6, StartSentence: 0, EndSentence: 2},
			},
		},
		{
			name:      "empty text",
			input:     "",
			maxTokens: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker, err := NewParagraphChunker(
				WithMaxChunkTokens(tt.maxTokens),
				WithMinParagraphSize(tt.minParagraphSize),
			)
			require.NoError(t, err)
			got, err := chunker.Chunk(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParagraphChunkerConservesSentences(t *testing.T) {
	input := "Go is a language. It has goroutines and channels. Interfaces are satisfied implicitly. " +
		"The standard library is large. Modules pin dependencies. Tests live next to the code. " +
		"Errors are values. Formatting is automatic."
	chunker, err := NewParagraphChunker(WithMaxChunkTokens(9), WithTokenCounter(fieldsCounter))
	require.NoError(t, err)
	chunks, err := chunker.Chunk(context.Background(), input)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	texts := make([]string, 0, len(chunks))
	next := 0
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
		assert.Equal(t, next, chunk.StartSentence)
		assert.Greater(t, chunk.EndSentence, chunk.StartSentence)
		if chunk.EndSentence-chunk.StartSentence > 1 {
			assert.LessOrEqual(t, chunk.TokenSize, 9)
		}
		next = chunk.EndSentence
	}
	assert.Equal(t, 8, next)
	assert.Equal(t, Normalize(input), strings.Join(texts, " "))
}

func TestParagraphChunkerCounterFailure(t *testing.T) {
	boom := errors.New("tokenizer unavailable")
	var calls int
	counter := TokenCounterFunc(func(text string) (int, error) {
		calls++
		if calls == 3 {
			return 0, boom
		}
		return 1, nil
	})
	chunker, err := NewParagraphChunker(WithTokenCounter(counter), WithMinParagraphSize(0))
	require.NoError(t, err)
	got, err := chunker.Chunk(context.Background(), "First paragraph here.\n\nSecond one. Third one.")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Nil(t, got)
}

func TestParagraphChunkerCancelled(t *testing.T) {
	chunker, err := NewParagraphChunker()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := chunker.Chunk(ctx, "Some text to chunk.")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, got)
}

func TestNewParagraphChunkerInvalid(t *testing.T) {
	tests := []struct {
		name string
		opts []ChunkerOption
	}{
		{name: "zero budget", opts: []ChunkerOption{WithMaxChunkTokens(0)}},
		{name: "negative budget", opts: []ChunkerOption{WithMaxChunkTokens(-5)}},
		{name: "negative paragraph size", opts: []ChunkerOption{WithMinParagraphSize(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParagraphChunker(tt.opts...)
			assert.True(t, errors.Is(err, ErrInvalidArgument))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "a\\nb\n\nc   d\r\n", want: "a b c d"},
		{input: "  already clean  ", want: "already clean"},
		{input: "", want: ""},
		{input: "tab\tstays", want: "tab\tstays"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.input))
	}
}
