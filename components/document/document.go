package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/rs/xid"
)

const (
	MetaSource      = "source"
	MetaFilename    = "filename"
	MetaURL         = "url"
	MetaBucket      = "bucket"
	MetaKey         = "key"
	MetaContentType = "content_type"
	MetaTitle       = "title"
	MetaHash        = "hash"
	MetaSize        = "size"
)

// Document is the extracted text of a source with its metadata
type Document struct {
	// ID identifies this parse of the document, records built from it are tagged with it
	ID string `json:"id" yaml:"id"`
	// Text is the plain text body, paragraphs separated by blank lines
	Text string `json:"-" yaml:"-"`
	// Meta describes where the text comes from
	Meta map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// New creates a document with a fresh ID. meta is copied.
func New(text string, meta map[string]string) *Document {
	m := make(map[string]string, len(meta)+2)
	for k, v := range meta {
		m[k] = v
	}
	m[MetaHash] = Hash(text)
	m[MetaSize] = strconv.Itoa(len(text))
	return &Document{
		ID:   xid.New().String(),
		Text: text,
		Meta: m,
	}
}

func (d *Document) String() string {
	return d.Text
}

// Hash is the hex sha256 of the text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
