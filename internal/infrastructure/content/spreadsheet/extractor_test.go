package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestExtractSheetAsTable(t *testing.T) {
	data := workbookBytes(t, [][]any{
		{"Name", "Age"},
		{"Ada", 36},
	})

	content, err := NewExtractor().Extract(data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(content.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(content.Pages))
	}
	page := content.Pages[0]
	if len(page.Tables) != 1 || len(page.Tables[0].Rows) != 2 {
		t.Fatalf("unexpected tables: %+v", page.Tables)
	}
	if page.Tables[0].Rows[0][0] != "Name" {
		t.Fatalf("unexpected header: %q", page.Tables[0].Rows[0][0])
	}
	if page.Text == "" {
		t.Fatalf("expected flattened text")
	}
}

func TestMetadataMarksWorkbooksTagged(t *testing.T) {
	data := workbookBytes(t, [][]any{{"x"}})

	meta := NewExtractor().Metadata(data)
	if !meta.Tagged {
		t.Fatalf("workbooks carry structure and must be tagged")
	}
	if meta.PageCount != 1 {
		t.Fatalf("expected 1 sheet, got %d", meta.PageCount)
	}
}

func TestMetadataDegradesOnGarbage(t *testing.T) {
	meta := NewExtractor().Metadata([]byte("not a workbook"))
	if meta.ExtractError == "" {
		t.Fatalf("expected extract error to be recorded")
	}
}

func TestNormalizeGridPadsRaggedRows(t *testing.T) {
	grid := normalizeGrid([][]string{
		{"a", "b", "c"},
		{"d"},
	})
	if len(grid) != 2 || len(grid[1]) != 3 {
		t.Fatalf("expected padded 2x3 grid, got %+v", grid)
	}
	if grid[1][2] != "" {
		t.Fatalf("padding must be empty strings")
	}
}
