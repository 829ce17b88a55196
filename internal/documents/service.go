package documents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"slidebanai-backend/internal/extract"
	"slidebanai-backend/internal/shared/telemetry"
	"slidebanai-backend/internal/shared/util"
)

// TextExtractor is the extraction surface the service needs.
type TextExtractor interface {
	ExtractFile(ctx context.Context, data []byte, mimeType, fileName string) (string, error)
}

// Service runs extraction and records metadata about each upload.
type Service struct {
	Extractor TextExtractor
	Repo      DocumentsRepo
}

// Extract turns an upload into text. A record is stored only when extraction succeeds.
func (s *Service) Extract(ctx context.Context, userID, fileName, mimeType string, data []byte) (Extraction, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Extraction{}, ErrInvalidInput
	}
	if len(data) == 0 {
		return Extraction{}, ErrInvalidInput
	}
	mimeType = extract.DetectMimeType(mimeType, name, data)

	text, err := s.Extractor.ExtractFile(ctx, data, mimeType, name)
	if err != nil {
		return Extraction{}, err
	}

	doc := Document{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   name,
		MimeType:   mimeType,
		SizeBytes:  int64(len(data)),
		CharCount:  len([]rune(text)),
		TextSHA256: util.ContentDigest([]byte(text)),
		Advisory:   extract.IsAdvisory(text),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Extraction{}, err
	}
	telemetry.Info("document.extracted", map[string]any{
		"document_id": doc.ID,
		"mime_type":   doc.MimeType,
		"bytes":       doc.SizeBytes,
		"chars":       doc.CharCount,
		"advisory":    doc.Advisory,
	})
	return Extraction{Document: doc, Text: text}, nil
}

// Get returns one of the user's extraction records.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// List returns the user's extraction records, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}
