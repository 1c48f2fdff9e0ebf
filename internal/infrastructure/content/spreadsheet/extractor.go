package spreadsheet

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

// Extractor reads xlsx workbooks. Each sheet maps to one page, and each
// sheet's populated grid is exposed as a single table.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Metadata(data []byte) domain.DocumentMetadata {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return domain.DocumentMetadata{ExtractError: err.Error()}
	}
	defer f.Close()

	// Workbooks carry their structure in the format itself, which is what
	// the tagged flag captures for documents.
	meta := domain.DocumentMetadata{
		PageCount: len(f.GetSheetList()),
		Tagged:    true,
	}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		meta.Title = props.Title
		meta.Author = props.Creator
		meta.Subject = props.Subject
	}
	return meta
}

func (e *Extractor) Extract(data []byte) (*domain.DocumentContent, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	content := &domain.DocumentContent{}
	for i, sheet := range f.GetSheetList() {
		page := domain.PageContent{Number: i + 1}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if grid := normalizeGrid(rows); len(grid) > 0 {
			page.Tables = []domain.Table{{Rows: grid}}
			page.Text = gridText(grid)
		}

		if cells, err := f.GetPictureCells(sheet); err == nil {
			page.ImageCount = len(cells)
		}

		content.Pages = append(content.Pages, page)
	}
	return content, nil
}

// normalizeGrid pads ragged rows to the widest row so cell indexes line up.
func normalizeGrid(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil
	}
	grid := make([][]string, 0, len(rows))
	for _, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		grid = append(grid, padded)
	}
	return grid
}

func gridText(grid [][]string) string {
	var b strings.Builder
	for _, row := range grid {
		line := strings.TrimSpace(strings.Join(row, " "))
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}
