package document

import (
	"bytes"
	"context"
	"io"

	"github.com/fumiama/go-docx"
)

// DocxParser writes each paragraph and table of a docx body as its own paragraph
type DocxParser struct{}

var _ Parser = (*DocxParser)(nil)

func (DocxParser) Parse(_ context.Context, reader *bytes.Reader, writer io.Writer) error {
	doc, err := docx.Parse(reader, reader.Size())
	if err != nil {
		return err
	}
	var written bool
	for _, it := range doc.Document.Body.Items {
		var content string
		switch t := it.(type) {
		case *docx.Paragraph:
			content = t.String()
		case *docx.Table:
			content = t.String()
		}
		if content == "" {
			continue
		}
		if written {
			if _, err := io.WriteString(writer, "\n\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(writer, content); err != nil {
			return err
		}
		written = true
	}
	return nil
}
