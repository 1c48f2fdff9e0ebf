package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
	"github.com/a11yomatic/a11y-engine/internal/core/ports"
)

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// DocumentUseCase handles the upload lifecycle around analysis: store the
// bytes, record the document, and later remove both.
type DocumentUseCase struct {
	docs    ports.DocumentRepository
	storage ports.ObjectStorage
	maxSize int64
	logger  *slog.Logger
}

func NewDocumentUseCase(docs ports.DocumentRepository, storage ports.ObjectStorage, maxSize int64, logger *slog.Logger) *DocumentUseCase {
	return &DocumentUseCase{
		docs:    docs,
		storage: storage,
		maxSize: maxSize,
		logger:  logger,
	}
}

// Upload stores the payload and records the document in the uploaded state.
// The stored object is removed again if the record cannot be created.
func (uc *DocumentUseCase) Upload(ctx context.Context, ownerID, filename, mimeType string, size int64, body io.Reader) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	expectedMime, ok := allowedExtensions[ext]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("unsupported file extension %q", ext))
	}
	if mimeType == "" {
		mimeType = expectedMime
	}
	if size <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("empty upload"))
	}
	if uc.maxSize > 0 && size > uc.maxSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("file size %d exceeds limit %d", size, uc.maxSize))
	}

	id := uuid.NewString()
	storagePath := id + ext
	if err := uc.storage.Save(ctx, storagePath, io.LimitReader(body, uc.limit(size))); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          id,
		OwnerID:     ownerID,
		Filename:    sanitizeFilename(filename),
		MimeType:    mimeType,
		StoragePath: storagePath,
		FileSize:    size,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		if removeErr := uc.storage.Remove(ctx, storagePath); removeErr != nil {
			uc.logger.Warn("orphaned upload left in storage",
				slog.String("storage_path", storagePath), slog.Any("error", removeErr))
		}
		return nil, fmt.Errorf("record document: %w", err)
	}
	return doc, nil
}

func (uc *DocumentUseCase) Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrForbidden, "access document", fmt.Errorf("document %s", documentID))
	}
	return doc, nil
}

func (uc *DocumentUseCase) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	docs, err := uc.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes the record first; issues, reports, and plans cascade with it.
// Storage removal is best effort afterwards.
func (uc *DocumentUseCase) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := uc.Get(ctx, ownerID, documentID)
	if err != nil {
		return err
	}
	if err := uc.docs.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
		uc.logger.Warn("stored object removal failed",
			slog.String("storage_path", doc.StoragePath), slog.Any("error", err))
	}
	return nil
}

func (uc *DocumentUseCase) limit(size int64) int64 {
	if uc.maxSize > 0 {
		return uc.maxSize
	}
	return size
}

// sanitizeFilename keeps the display name safe for logs and responses without
// affecting where bytes are stored.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_', r == ' ':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "upload"
	}
	return base
}
