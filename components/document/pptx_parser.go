package document

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	qxml "github.com/dgrr/quickxml"
	"github.com/samber/lo"
)

var reSlide = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PptxParser extracts slide text and tables in slide order.
// Paragraphs are written one per line, slides are separated by a blank line.
// Charts, diagrams and images are skipped.
type PptxParser struct{}

var _ Parser = (*PptxParser)(nil)

func (p *PptxParser) Parse(ctx context.Context, reader *bytes.Reader, writer io.Writer) error {
	zr, err := zip.NewReader(reader, reader.Size())
	if err != nil {
		return err
	}
	slides := make(map[int]*zip.File)
	for _, f := range zr.File {
		matches := reSlide.FindStringSubmatch(f.Name)
		if len(matches) < 2 {
			continue
		}
		n, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		slides[n] = f
	}
	numbers := lo.Keys(slides)
	sort.Ints(numbers)
	var written bool
	for _, n := range numbers {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := slideText(slides[n])
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		if written {
			text = "\n\n" + text
		}
		if _, err := io.WriteString(writer, text); err != nil {
			return err
		}
		written = true
	}
	return nil
}

func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	var (
		lines  []string
		line   strings.Builder
		phrase string
	)
	r := qxml.NewReader(rc)
NEXT:
	for r.Next() {
		switch e := r.Element().(type) {
		case *qxml.StartElement:
			switch e.Name() {
			case "a:t":
				r.AssignNext(&phrase)
				if !r.Next() {
					break NEXT
				}
				if phrase != "" {
					if line.Len() > 0 {
						line.WriteByte(' ')
					}
					line.WriteString(StripUnprintable(phrase))
					phrase = ""
				}
			case "a:tbl":
				lines = append(lines, tableRows(r)...)
			}
		case *qxml.EndElement:
			if e.Name() == "a:p" {
				if s := strings.TrimSpace(line.String()); s != "" {
					lines = append(lines, s)
				}
				line.Reset()
			}
		}
	}
	if s := strings.TrimSpace(line.String()); s != "" {
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n"), nil
}

// tableRows consumes a:tbl and renders every row as pipe separated cells.
func tableRows(r *qxml.Reader) []string {
	var (
		rows  []string
		cells []string
		cell  strings.Builder
		text  string
	)
NEXT:
	for r.Next() {
		switch e := r.Element().(type) {
		case *qxml.StartElement:
			if e.Name() == "a:t" {
				r.AssignNext(&text)
				if !r.Next() {
					break NEXT
				}
				cell.WriteString(StripUnprintable(text))
				text = ""
			}
		case *qxml.EndElement:
			switch e.Name() {
			case "a:tc":
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
			case "a:tr":
				if lo.SomeBy(cells, func(c string) bool { return c != "" }) {
					rows = append(rows, strings.Join(cells, " | "))
				}
				cells = cells[:0]
			case "a:tbl":
				break NEXT
			}
		}
	}
	return rows
}
