package content

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
	"github.com/a11yomatic/a11y-engine/internal/core/ports"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/content/pdfreader"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/content/spreadsheet"
)

// Source dispatches extraction to the format-specific reader based on the
// stored object's extension.
type Source struct {
	storage ports.ObjectStorage
	pdf     *pdfreader.Extractor
	xlsx    *spreadsheet.Extractor
}

func NewSource(storage ports.ObjectStorage) *Source {
	return &Source{
		storage: storage,
		pdf:     pdfreader.NewExtractor(),
		xlsx:    spreadsheet.NewExtractor(),
	}
}

// Metadata never fails hard: any problem reading the file yields a degraded
// record with ExtractError set, and analysis continues.
func (s *Source) Metadata(ctx context.Context, storagePath string) domain.DocumentMetadata {
	data, err := s.read(ctx, storagePath)
	if err != nil {
		return domain.DocumentMetadata{ExtractError: err.Error()}
	}
	switch strings.ToLower(filepath.Ext(storagePath)) {
	case ".pdf":
		return s.pdf.Metadata(data)
	case ".xlsx":
		return s.xlsx.Metadata(data)
	default:
		return domain.DocumentMetadata{ExtractError: fmt.Sprintf("unsupported extension %s", filepath.Ext(storagePath))}
	}
}

func (s *Source) Extract(ctx context.Context, storagePath string) (*domain.DocumentContent, error) {
	data, err := s.read(ctx, storagePath)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(storagePath)) {
	case ".pdf":
		return s.pdf.Extract(data)
	case ".xlsx":
		return s.xlsx.Extract(data)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract content", fmt.Errorf("unsupported extension %s", filepath.Ext(storagePath)))
	}
}

func (s *Source) read(ctx context.Context, storagePath string) ([]byte, error) {
	reader, err := s.storage.Open(ctx, storagePath)
	if err != nil {
		return nil, fmt.Errorf("open stored object: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored object: %w", err)
	}
	return data, nil
}
