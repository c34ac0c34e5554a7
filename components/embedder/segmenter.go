package embedder

import (
	"strings"

	"github.com/clipperhouse/uax29/sentences"
)

// SentenceSegmenter splits normalized text into sentences.
// Implementations must keep sentence order and content; only the whitespace
// around a boundary may be dropped.
type SentenceSegmenter interface {
	Segment(text string) []string
}

// SegmenterFunc adapts a function to the SentenceSegmenter interface.
type SegmenterFunc func(text string) []string

func (fn SegmenterFunc) Segment(text string) []string {
	return fn(text)
}

// UAX29Segmenter finds sentence boundaries following Unicode Standard Annex #29.
type UAX29Segmenter struct{}

func (UAX29Segmenter) Segment(text string) []string {
	segs := sentences.SegmentAll([]byte(text))
	ret := make([]string, 0, len(segs))
	for _, seg := range segs {
		if s := strings.TrimSpace(string(seg)); s != "" {
			ret = append(ret, s)
		}
	}
	return ret
}
