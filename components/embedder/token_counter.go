package embedder

import (
	"unicode"

	"github.com/clipperhouse/uax29/words"
	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used by the OpenAI embedding models
const DefaultEncoding = "cl100k_base"

// TokenCounter defines the interface for counting tokens in a string.
// This abstraction allows for different tokenization strategies (e.g., words, subwords),
// including counters backed by a remote tokenizer which may fail.
type TokenCounter interface {
	// Count returns the number of tokens in the given text according to the
	// implementation's tokenization strategy.
	Count(text string) (int, error)
}

// TokenCounterFunc adapts a function to the TokenCounter interface.
type TokenCounterFunc func(text string) (int, error)

func (fn TokenCounterFunc) Count(text string) (int, error) {
	return fn(text)
}

// WordsTokenCounter counts word-like UAX #29 word segments, a segment
// holding at least one letter or digit. Whitespace and punctuation are not counted.
type WordsTokenCounter struct{}

func (WordsTokenCounter) Count(text string) (int, error) {
	var n int
	for _, seg := range words.SegmentAll([]byte(text)) {
		if wordlike(seg) {
			n++
		}
	}
	return n, nil
}

func wordlike(seg []byte) bool {
	for _, r := range string(seg) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// TikTokenCounter provides accurate token counting using the tiktoken library,
// which implements the tokenization schemes used by OpenAI models.
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTikTokenCounter creates a new TikTokenCounter using the specified encoding.
// Common encodings include:
// - "cl100k_base" (GPT-4, ChatGPT, text-embedding-ada-002)
// - "p50k_base" (GPT-3)
// - "r50k_base" (Codex)
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get encoding %s", encoding)
	}
	return &TikTokenCounter{tke: tke}, nil
}

// Count returns the exact number of tokens in the text according to the
// specified tiktoken encoding.
func (ttc *TikTokenCounter) Count(text string) (int, error) {
	return len(ttc.tke.Encode(text, nil, nil)), nil
}
