package document

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XlsxParser renders every sheet as a titled block of pipe separated rows
type XlsxParser struct {
	password string
}

var _ Parser = (*XlsxParser)(nil)

func NewXlsxParser(password string) *XlsxParser {
	return &XlsxParser{password: password}
}

func (p *XlsxParser) Parse(ctx context.Context, reader *bytes.Reader, writer io.Writer) error {
	opts := make([]excelize.Options, 0, 1)
	if p.password != "" {
		opts = append(opts, excelize.Options{Password: p.password})
	}
	doc, err := excelize.OpenReader(reader, opts...)
	if err != nil {
		return err
	}
	defer doc.Close()
	var written bool
	for _, sheet := range doc.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := doc.GetRows(sheet)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		var sb strings.Builder
		if written {
			sb.WriteString("\n\n")
		}
		sb.WriteString(sheet)
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				cells = append(cells, strings.TrimSpace(StripUnprintable(cell)))
			}
			sb.WriteByte('\n')
			sb.WriteString(strings.Join(cells, " | "))
		}
		if _, err := io.WriteString(writer, sb.String()); err != nil {
			return err
		}
		written = true
	}
	return nil
}
