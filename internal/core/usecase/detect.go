package usecase

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

// Detection thresholds. Tunable constants, not derived values.
const (
	minPageTextLength     = 10
	headerMinFilledRatio  = 0.5
	complexTableMinRows   = 10
	complexTableMinCols   = 5
	headingMaxLength      = 80
	headingFontSizeFactor = 1.15
)

// DetectIssues runs every detector over the extracted content and
// concatenates their drafts. Detectors are independent; none suppresses
// another's output.
func DetectIssues(content *domain.DocumentContent, meta domain.DocumentMetadata) []domain.Issue {
	var issues []domain.Issue
	issues = append(issues, detectMissingText(content)...)
	issues = append(issues, detectTableIssues(content)...)
	issues = append(issues, detectMissingAltText(content)...)
	issues = append(issues, detectHeadingStructure(content)...)
	issues = append(issues, detectMissingTitle(meta)...)
	issues = append(issues, detectLanguage()...)
	issues = append(issues, detectContrast(content)...)
	return issues
}

// detectMissingText flags pages whose extracted text is absent or below the
// minimum length; such pages are effectively inaccessible images.
func detectMissingText(content *domain.DocumentContent) []domain.Issue {
	var issues []domain.Issue
	for _, page := range content.Pages {
		if len(strings.TrimSpace(page.Text)) >= minPageTextLength {
			continue
		}
		pageNum := page.Number
		issues = append(issues, domain.Issue{
			Type:          domain.IssueMissingText,
			Severity:      domain.SeverityCritical,
			PageNumber:    &pageNum,
			Description:   fmt.Sprintf("Page %d appears to be image-only or has insufficient text content. This may indicate missing OCR or an improper text layer.", page.Number),
			WCAGCriterion: "1.1.1",
			Location:      domain.IssueLocation{Page: page.Number},
		})
	}
	return issues
}

// detectTableIssues checks first-row headers and flags oversized tables.
func detectTableIssues(content *domain.DocumentContent) []domain.Issue {
	var issues []domain.Issue
	for _, page := range content.Pages {
		for tableIdx, table := range page.Tables {
			if len(table.Rows) == 0 {
				continue
			}
			pageNum := page.Number
			idx := tableIdx

			if firstRowFilledRatio(table.Rows[0]) < headerMinFilledRatio {
				issues = append(issues, domain.Issue{
					Type:          domain.IssueTableMissingHeaders,
					Severity:      domain.SeverityHigh,
					PageNumber:    &pageNum,
					Description:   fmt.Sprintf("Table %d on page %d is missing proper headers. Tables must have clear header rows for screen reader accessibility.", tableIdx+1, page.Number),
					WCAGCriterion: "1.3.1",
					Location:      domain.IssueLocation{Page: page.Number, TableIndex: &idx},
				})
			}

			if len(table.Rows) > complexTableMinRows && maxColumns(table.Rows) > complexTableMinCols {
				complexIdx := tableIdx
				issues = append(issues, domain.Issue{
					Type:          domain.IssueComplexTable,
					Severity:      domain.SeverityMedium,
					PageNumber:    &pageNum,
					Description:   fmt.Sprintf("Table %d on page %d is large and complex. Consider splitting it or adding a summary so screen reader users can navigate it.", tableIdx+1, page.Number),
					WCAGCriterion: "1.3.1",
					Location:      domain.IssueLocation{Page: page.Number, TableIndex: &complexIdx},
				})
			}
		}
	}
	return issues
}

func firstRowFilledRatio(row []string) float64 {
	if len(row) == 0 {
		return 0
	}
	filled := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			filled++
		}
	}
	return float64(filled) / float64(len(row))
}

func maxColumns(rows [][]string) int {
	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	return maxCols
}

// detectMissingAltText flags every image. The source format carries no
// reliable alt-text signal, so every image is treated as lacking one; false
// positives are acceptable, false negatives are not.
func detectMissingAltText(content *domain.DocumentContent) []domain.Issue {
	var issues []domain.Issue
	for _, page := range content.Pages {
		for imageIdx := 0; imageIdx < page.ImageCount; imageIdx++ {
			pageNum := page.Number
			idx := imageIdx
			issues = append(issues, domain.Issue{
				Type:          domain.IssueMissingAltText,
				Severity:      domain.SeverityHigh,
				PageNumber:    &pageNum,
				Description:   fmt.Sprintf("Image %d on page %d may be missing alternative text. All images must have descriptive alt text for screen readers.", imageIdx+1, page.Number),
				WCAGCriterion: "1.1.1",
				Location:      domain.IssueLocation{Page: page.Number, ImageIndex: &idx},
			})
		}
	}
	return issues
}

// detectHeadingStructure inspects the first page only. This is an
// approximate, single-page heuristic, not a full-document structure check.
func detectHeadingStructure(content *domain.DocumentContent) []domain.Issue {
	if len(content.Pages) == 0 {
		return nil
	}
	first := content.Pages[0]
	if len(first.Blocks) == 0 {
		return nil
	}
	bodySize := medianFontSize(first.Blocks)
	for _, block := range first.Blocks {
		if isHeadingLike(block, bodySize) {
			return nil
		}
	}
	pageNum := first.Number
	return []domain.Issue{{
		Type:          domain.IssueMissingHeadingStructure,
		Severity:      domain.SeverityMedium,
		PageNumber:    &pageNum,
		Description:   "No heading-like structure was found on the first page. Tag important text with heading levels (H1-H6) so screen reader users can navigate the document.",
		WCAGCriterion: "1.3.1",
		Location:      domain.IssueLocation{Page: first.Number},
	}}
}

func isHeadingLike(block domain.TextBlock, bodyFontSize float64) bool {
	text := strings.TrimSpace(block.Text)
	if text == "" || len(text) > headingMaxLength {
		return false
	}
	if strings.HasSuffix(text, ".") {
		return false
	}
	if block.FontSize > 0 && bodyFontSize > 0 {
		return block.FontSize >= bodyFontSize*headingFontSizeFactor
	}
	// No font information: fall back to an all-caps short line.
	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func medianFontSize(blocks []domain.TextBlock) float64 {
	var sizes []float64
	for _, block := range blocks {
		if block.FontSize > 0 {
			sizes = append(sizes, block.FontSize)
		}
	}
	if len(sizes) == 0 {
		return 0
	}
	for i := 1; i < len(sizes); i++ {
		for j := i; j > 0 && sizes[j] < sizes[j-1]; j-- {
			sizes[j], sizes[j-1] = sizes[j-1], sizes[j]
		}
	}
	return sizes[len(sizes)/2]
}

// detectMissingTitle emits one document-level issue when title metadata is
// empty.
func detectMissingTitle(meta domain.DocumentMetadata) []domain.Issue {
	if strings.TrimSpace(meta.Title) != "" {
		return nil
	}
	return []domain.Issue{{
		Type:          domain.IssueMissingTitle,
		Severity:      domain.SeverityMedium,
		Description:   "Document is missing a title in its metadata. Documents should carry a descriptive title.",
		WCAGCriterion: "2.4.2",
	}}
}

// detectLanguage always emits one advisory. This is a standing reminder by
// policy, not a conditional check; verifying the declared language requires a
// human.
func detectLanguage() []domain.Issue {
	return []domain.Issue{{
		Type:          domain.IssueMissingLanguage,
		Severity:      domain.SeverityMedium,
		Description:   "Verify that the document language is properly specified for screen readers.",
		WCAGCriterion: "3.1.1",
	}}
}

// detectContrast emits a per-page advisory when text and images coexist. No
// pixel-level contrast computation is performed.
func detectContrast(content *domain.DocumentContent) []domain.Issue {
	var issues []domain.Issue
	for _, page := range content.Pages {
		if strings.TrimSpace(page.Text) == "" || page.ImageCount == 0 {
			continue
		}
		pageNum := page.Number
		issues = append(issues, domain.Issue{
			Type:          domain.IssuePotentialContrast,
			Severity:      domain.SeverityLow,
			PageNumber:    &pageNum,
			Description:   fmt.Sprintf("Page %d mixes text and images. Manually verify that text meets the minimum contrast ratio of 4.5:1.", page.Number),
			WCAGCriterion: "1.4.3",
			Location:      domain.IssueLocation{Page: page.Number},
		})
	}
	return issues
}
