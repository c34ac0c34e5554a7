package document

import (
	"bytes"
	"context"
	"io"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
)

// HTMLParser is a parser which parse html content to markdown
type HTMLParser struct {
	opts []converter.ConvertOptionFunc
}

var _ Parser = (*HTMLParser)(nil)

func NewHTMLParser(opts ...converter.ConvertOptionFunc) *HTMLParser {
	return &HTMLParser{
		opts: opts,
	}
}

// Parse converts html from a bytes.Reader into markdown and writes it to an io.Writer
func (h *HTMLParser) Parse(_ context.Context, reader *bytes.Reader, writer io.Writer) error {
	bs, err := htmltomarkdown.ConvertReader(reader, h.opts...)
	if err != nil {
		return err
	}
	_, err = writer.Write(bs)
	return err
}

// HTMLTitle returns the text of the first <title> element
func HTMLTitle(reader io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}
