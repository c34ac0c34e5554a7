package embedder

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	// DefaultMaxChunkTokens is the token budget of a chunk
	DefaultMaxChunkTokens = 256
	// DefaultMinParagraphSize is the character length under which paragraphs are merged with the next one
	DefaultMinParagraphSize = 32
)

// paragraphBreak is a blank line, CRLF and whitespace-only lines included
var paragraphBreak = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// ErrInvalidArgument is returned for chunker configuration out of range.
var ErrInvalidArgument = errors.New("invalid argument")

// Chunk represents a piece of text with associated metadata for tracking its position
// and size within the original document.
type Chunk struct {
	// Text contains the actual content of the chunk
	Text string `json:"text" yaml:"text"`
	// TokenSize represents the number of tokens in this chunk
	TokenSize int `json:"ntokens" yaml:"ntokens"`
	// StartSentence is the index of the first sentence in this chunk
	StartSentence int `json:"start_sentence" yaml:"start_sentence"`
	// EndSentence is the index of the last sentence in this chunk (exclusive)
	EndSentence int `json:"end_sentence" yaml:"end_sentence"`
}

// Chunker defines the interface for text chunking implementations.
type Chunker interface {
	// Chunk splits the input text into a slice of Chunks according to the
	// implementation's strategy. It fails as a whole, no partial list is returned.
	Chunk(ctx context.Context, text string) ([]Chunk, error)
}

// ParagraphChunker packs sentences into token bounded chunks without crossing
// paragraph units. Short paragraphs are merged with the following ones until
// the merged unit reaches MinParagraphSize characters.
type ParagraphChunker struct {
	// MaxChunkTokens is the token budget of each chunk
	MaxChunkTokens int
	// MinParagraphSize is the minimum character length of a chunking unit
	MinParagraphSize int
	// TokenCounter is used to count tokens in sentences
	TokenCounter TokenCounter
	// Segmenter splits a unit into sentences
	Segmenter SentenceSegmenter
}

var _ Chunker = (*ParagraphChunker)(nil)

// ChunkerOption is a function type for configuring ParagraphChunker instances.
// This follows the functional options pattern for clean and flexible configuration.
type ChunkerOption func(*ParagraphChunker)

func WithMaxChunkTokens(n int) ChunkerOption {
	return func(c *ParagraphChunker) {
		c.MaxChunkTokens = n
	}
}

func WithMinParagraphSize(n int) ChunkerOption {
	return func(c *ParagraphChunker) {
		c.MinParagraphSize = n
	}
}

func WithTokenCounter(counter TokenCounter) ChunkerOption {
	return func(c *ParagraphChunker) {
		c.TokenCounter = counter
	}
}

func WithSegmenter(segmenter SentenceSegmenter) ChunkerOption {
	return func(c *ParagraphChunker) {
		c.Segmenter = segmenter
	}
}

// NewParagraphChunker creates a new ParagraphChunker with the given options.
// It uses sensible defaults if no options are provided:
// - MaxChunkTokens: 256 tokens
// - MinParagraphSize: 32 characters
// - TokenCounter: WordsTokenCounter
// - Segmenter: UAX29Segmenter
func NewParagraphChunker(opts ...ChunkerOption) (*ParagraphChunker, error) {
	c := &ParagraphChunker{
		MaxChunkTokens:   DefaultMaxChunkTokens,
		MinParagraphSize: DefaultMinParagraphSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.MaxChunkTokens <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "max chunk tokens must be positive, got %d", c.MaxChunkTokens)
	}
	if c.MinParagraphSize < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "min paragraph size must not be negative, got %d", c.MinParagraphSize)
	}
	if c.TokenCounter == nil {
		c.TokenCounter = WordsTokenCounter{}
	}
	if c.Segmenter == nil {
		c.Segmenter = UAX29Segmenter{}
	}
	return c, nil
}

// Chunk splits text into paragraph units, then packs the sentences of every
// unit into chunks:
// 1. Splits the text on blank lines, whitespace-only lines count as blank
// 2. Merges paragraphs until the pending unit reaches MinParagraphSize characters
// 3. Normalizes whitespace and segments the unit into sentences
// 4. Adds sentences to the current chunk until the next one would exceed MaxChunkTokens
//
// A sentence larger than MaxChunkTokens becomes a chunk of its own, sentences are never split.
func (c *ParagraphChunker) Chunk(ctx context.Context, text string) ([]Chunk, error) {
	var (
		chunks  []Chunk
		pending []string
		offset  int
	)
	paragraphs := paragraphBreak.Split(text, -1)
	last := len(paragraphs) - 1
	for i, p := range paragraphs {
		pending = append(pending, p)
		unit := strings.Join(pending, "\n")
		if utf8.RuneCountInString(unit) < c.MinParagraphSize && i < last {
			continue
		}
		pending = pending[:0]
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		unitChunks, n, err := c.pack(Normalize(unit), offset)
		if err != nil {
			return nil, err
		}
		offset += n
		chunks = append(chunks, unitChunks...)
	}
	return chunks, nil
}

// pack greedily groups the sentences of a normalized unit. offset is the
// document wide index of the first sentence; the number of sentences is returned.
func (c *ParagraphChunker) pack(unit string, offset int) ([]Chunk, int, error) {
	if unit == "" {
		return nil, 0, nil
	}
	sentences := c.Segmenter.Segment(unit)
	counts := make([]int, len(sentences))
	for i, sentence := range sentences {
		// counted as it reads once joined to the previous sentence
		n, err := c.TokenCounter.Count(" " + sentence)
		if err != nil {
			return nil, 0, errors.Wrap(err, "count tokens")
		}
		counts[i] = n
	}

	var (
		chunks  []Chunk
		current []string
		total   int
		start   int
	)
	flush := func(end int) {
		chunks = append(chunks, Chunk{
			Text:          strings.Join(current, " "),
			TokenSize:     total,
			StartSentence: offset + start,
			EndSentence:   offset + end,
		})
		current = current[:0]
		total = 0
		start = end
	}
	for i, sentence := range sentences {
		if len(current) > 0 && total+counts[i] > c.MaxChunkTokens {
			flush(i)
		}
		current = append(current, sentence)
		total += counts[i]
	}
	if len(current) > 0 {
		flush(len(sentences))
	}
	return chunks, len(sentences), nil
}

// Normalize collapses newlines, literal "\n" escapes and repeated spaces into single spaces.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, `\n`, " ")
	sb := new(strings.Builder)
	sb.Grow(len(text))
	var space bool
	for _, r := range text {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		if r == ' ' {
			if space {
				continue
			}
			space = true
		} else {
			space = false
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}
