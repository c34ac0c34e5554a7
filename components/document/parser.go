package document

import (
	"bytes"
	"context"
	"io"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// ErrUnsupported is returned when no parser is registered for the detected content type
var ErrUnsupported = errors.New("unsupported content type")

// Parser extracts text from raw content
type Parser interface {
	Parse(context.Context, *bytes.Reader, io.Writer) error
}

const (
	MimeText = "text/plain"
	MimeHTML = "text/html"
	MimePDF  = "application/pdf"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// Parsers maps a mime type to its parser
type Parsers map[string]Parser

// DefaultParsers returns the parsers for every supported content type
func DefaultParsers() Parsers {
	return Parsers{
		MimeText: new(TextParser),
		MimeHTML: NewHTMLParser(),
		MimePDF:  NewPDFParser(),
		MimeDocx: new(DocxParser),
		MimeXlsx: new(XlsxParser),
		MimePptx: new(PptxParser),
	}
}

// Lookup walks the mime hierarchy from the most specific type up
func (p Parsers) Lookup(mime *mimetype.MIME) (Parser, string, bool) {
	for m := mime; m != nil; m = m.Parent() {
		for k, parser := range p {
			if m.Is(k) {
				return parser, k, true
			}
		}
	}
	return nil, "", false
}

// Parse detects the content type of raw and converts it into a Document
func (p Parsers) Parse(ctx context.Context, raw *Raw) (*Document, error) {
	mime := mimetype.Detect(raw.Data)
	parser, kind, ok := p.Lookup(mime)
	if !ok {
		return nil, errors.Wrap(ErrUnsupported, mime.String())
	}
	var buf bytes.Buffer
	if err := parser.Parse(ctx, bytes.NewReader(raw.Data), &buf); err != nil {
		return nil, errors.Wrapf(err, "parse %s", kind)
	}
	meta := make(map[string]string, len(raw.Meta)+2)
	for k, v := range raw.Meta {
		meta[k] = v
	}
	meta[MetaContentType] = kind
	if kind == MimeHTML {
		if title, err := HTMLTitle(bytes.NewReader(raw.Data)); err == nil && title != "" {
			meta[MetaTitle] = title
		}
	}
	return New(buf.String(), meta), nil
}

// TextParser copies valid text through, dropping unprintable runes
type TextParser struct{}

var _ Parser = (*TextParser)(nil)

func (TextParser) Parse(_ context.Context, reader *bytes.Reader, writer io.Writer) error {
	bs, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	_, err = io.WriteString(writer, StripUnprintable(string(bs)))
	return err
}

// StripUnprintable removes control characters other than newlines and tabs
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}
