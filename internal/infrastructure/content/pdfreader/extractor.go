package pdfreader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

// cellGap is the horizontal distance, in text-space units, that separates two
// runs on the same row into different table cells.
const cellGap = 12.0

// Extractor reads structure out of PDF bytes. Malformed files are common, so
// every page is parsed under a recover and broken pages are skipped rather
// than failing the document.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Metadata(data []byte) (meta domain.DocumentMetadata) {
	defer func() {
		if r := recover(); r != nil {
			meta.ExtractError = fmt.Sprintf("pdf metadata: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		meta.ExtractError = err.Error()
		if errors.Is(err, pdf.ErrInvalidPassword) {
			meta.Encrypted = true
		}
		return meta
	}

	meta.PageCount = reader.NumPage()

	trailer := reader.Trailer()
	info := trailer.Key("Info")
	if !info.IsNull() {
		meta.Title = info.Key("Title").RawString()
		meta.Author = info.Key("Author").RawString()
		meta.Subject = info.Key("Subject").RawString()
	}
	// A structure tree is the marker for a tagged PDF.
	meta.Tagged = !trailer.Key("Root").Key("StructTreeRoot").IsNull()
	return meta
}

func (e *Extractor) Extract(data []byte) (*domain.DocumentContent, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	content := &domain.DocumentContent{}
	for num := 1; num <= reader.NumPage(); num++ {
		page, ok := extractPage(reader, num)
		if !ok {
			continue
		}
		content.Pages = append(content.Pages, page)
	}
	return content, nil
}

func extractPage(reader *pdf.Reader, num int) (page domain.PageContent, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	p := reader.Page(num)
	if p.V.IsNull() {
		return domain.PageContent{}, false
	}

	page = domain.PageContent{Number: num}

	rows, err := p.GetTextByRow()
	if err == nil {
		var textParts []string
		var cellRows [][]string
		for _, row := range rows {
			block, cells := splitRow(row)
			if block.Text != "" {
				page.Blocks = append(page.Blocks, block)
				textParts = append(textParts, block.Text)
			}
			cellRows = append(cellRows, cells)
		}
		page.Text = strings.Join(textParts, "\n")
		page.Tables = clusterTables(cellRows)
	}

	page.ImageCount = countImages(p)
	return page, true
}

// splitRow joins a row's runs into one text block and, separately, into cells
// divided at large horizontal gaps.
func splitRow(row *pdf.Row) (domain.TextBlock, []string) {
	var block domain.TextBlock
	var cells []string
	var cell strings.Builder
	var prevEnd float64

	for i, text := range row.Content {
		if i == 0 {
			block.FontSize = text.FontSize
		} else if text.X-prevEnd > cellGap {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		}
		cell.WriteString(text.S)
		prevEnd = text.X + text.W
	}
	if cell.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cell.String()))
	}
	block.Text = strings.TrimSpace(strings.Join(cells, " "))
	return block, cells
}

// clusterTables treats runs of consecutive multi-cell rows with a stable
// column count as one table. Anything narrower is ordinary prose.
func clusterTables(cellRows [][]string) []domain.Table {
	var tables []domain.Table
	var current [][]string

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, domain.Table{Rows: current})
		}
		current = nil
	}

	for _, cells := range cellRows {
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(current) > 0 && len(cells) != len(current[len(current)-1]) {
			flush()
		}
		current = append(current, cells)
	}
	flush()
	return tables
}

func countImages(p pdf.Page) int {
	xobjects := p.V.Key("Resources").Key("XObject")
	if xobjects.Kind() != pdf.Dict {
		return 0
	}
	count := 0
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			count++
		}
	}
	return count
}
