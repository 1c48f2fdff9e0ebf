package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded  DocumentStatus = "uploaded"
	StatusAnalyzing DocumentStatus = "analyzing"
	StatusCompleted DocumentStatus = "completed"
	StatusFailed    DocumentStatus = "failed"
)

// Document is one uploaded artifact. Issues and reports hang off it and are
// removed with it.
type Document struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	FileSize    int64          `json:"file_size"`
	PageCount   *int           `json:"page_count,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentMetadata holds structural facts read from the source file.
// Extraction failure yields a degraded record (PageCount=0, ExtractError set)
// instead of an error so analysis can still proceed.
type DocumentMetadata struct {
	PageCount    int    `json:"page_count"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Subject      string `json:"subject"`
	Tagged       bool   `json:"tagged"`
	Encrypted    bool   `json:"encrypted"`
	ExtractError string `json:"extract_error,omitempty"`
}

// TextBlock is one visual text run on a page. FontSize is 0 when the source
// format carries no font information.
type TextBlock struct {
	Text     string
	FontSize float64
}

// Table is a recovered grid of cells. Missing cells are empty strings.
type Table struct {
	Rows [][]string
}

// PageContent is everything detectors need from a single page.
type PageContent struct {
	Number     int
	Text       string
	Blocks     []TextBlock
	Tables     []Table
	ImageCount int
}

// DocumentContent is the per-page extraction result for a whole document.
// Pages that failed to extract are simply absent.
type DocumentContent struct {
	Pages []PageContent
}
