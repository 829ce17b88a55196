package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `
SELECT id, user_id, file_name, mime_type, size_bytes, char_count, text_sha256, advisory, created_at
FROM documents`

// Create inserts an extraction record.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    mime_type,
    size_bytes,
    char_count,
    text_sha256,
    advisory,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		doc.CharCount,
		doc.TextSHA256,
		doc.Advisory,
		doc.CreatedAt,
	)
	return err
}

// GetByID returns a document owned by userID.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+`
WHERE user_id = $1 AND id = $2
LIMIT 1`, userID, documentID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (Document, error) {
	var doc Document
	var sha sql.NullString
	err := s.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.CharCount,
		&sha,
		&doc.Advisory,
		&doc.CreatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	doc.TextSHA256 = sha.String
	return doc, nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
