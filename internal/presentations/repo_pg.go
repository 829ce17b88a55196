package presentations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/pipeline"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `
SELECT id, user_id, source, topic, title, preferences, outline, slides, slide_count_hint,
       status, failure_kind, failure_message, export, preview_keys, created_at, updated_at
FROM presentations`

// Create inserts a new presentation.
func (r *PGRepo) Create(ctx context.Context, p Presentation) error {
	const query = `
INSERT INTO presentations (
	id, user_id, source, topic, title, preferences, outline, slides, slide_count_hint,
	status, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	prefs, err := marshalJSONB(p.Preferences)
	if err != nil {
		return err
	}
	outline, err := marshalJSONB(p.Outline)
	if err != nil {
		return err
	}
	slides, err := marshalJSONB(p.Slides)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		p.ID,
		p.UserID,
		string(p.Source),
		p.Topic,
		p.Title,
		prefs,
		outline,
		slides,
		p.SlideCountHint,
		string(p.Status),
		p.CreatedAt,
	)
	return err
}

// GetByID returns a presentation by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Presentation, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1
LIMIT 1`, id)
	p, err := scanPresentation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Presentation{}, ErrNotFound
	}
	return p, err
}

// ListByUser lists presentations for a user ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Presentation, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Presentation{}
	for rows.Next() {
		p, err := scanPresentation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateOutline replaces the outline while the presentation awaits user edits.
func (r *PGRepo) UpdateOutline(ctx context.Context, id string, outline deck.Outline) error {
	payload, err := marshalJSONB(outline)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE presentations
SET outline = $1::jsonb,
    updated_at = now()
WHERE id = $2 AND status = $3`, payload, id, string(pipeline.StateAwaitingUserEdit))
	return r.conditional(ctx, id, res, err)
}

// BeginFinalize claims the presentation for expansion.
func (r *PGRepo) BeginFinalize(ctx context.Context, id, title string, slideCountHint int) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE presentations
SET status = $1,
    title = COALESCE(NULLIF($2::text, ''), title),
    slide_count_hint = $3,
    updated_at = now()
WHERE id = $4 AND status = $5`,
		string(pipeline.StateExpandingSlides), title, slideCountHint, id, string(pipeline.StateAwaitingUserEdit))
	return r.conditional(ctx, id, res, err)
}

// RevertFinalize returns a claimed presentation to awaiting_user_edit.
func (r *PGRepo) RevertFinalize(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE presentations
SET status = $1,
    updated_at = now()
WHERE id = $2 AND status = $3`,
		string(pipeline.StateAwaitingUserEdit), id, string(pipeline.StateExpandingSlides))
	return r.conditional(ctx, id, res, err)
}

// UpdateStatus records a pipeline transition.
func (r *PGRepo) UpdateStatus(ctx context.Context, id string, status pipeline.State, failureKind, failureMessage string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE presentations
SET status = $1,
    failure_kind = COALESCE(NULLIF($2::text, ''), failure_kind),
    failure_message = COALESCE(NULLIF($3::text, ''), failure_message),
    updated_at = now()
WHERE id = $4`, string(status), failureKind, failureMessage, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSlides stores the expanded slides.
func (r *PGRepo) SaveSlides(ctx context.Context, id string, slides []deck.DetailedSlide) error {
	payload, err := marshalJSONB(slides)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE presentations
SET slides = $1::jsonb,
    updated_at = now()
WHERE id = $2`, payload, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveResult marks the presentation done.
func (r *PGRepo) SaveResult(ctx context.Context, id string, export deck.ExportResult, previewKeys []string) error {
	exportPayload, err := marshalJSONB(export)
	if err != nil {
		return err
	}
	keysPayload, err := marshalJSONB(previewKeys)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE presentations
SET status = $1,
    export = $2::jsonb,
    preview_keys = $3::jsonb,
    updated_at = now()
WHERE id = $4`, string(pipeline.StateDone), exportPayload, keysPayload, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// conditional turns a zero-row conditional update into ErrNotFound or ErrConflict.
func (r *PGRepo) conditional(ctx context.Context, id string, res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists int
	err = r.DB.QueryRowContext(ctx, `SELECT 1 FROM presentations WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPresentation(s scanner) (Presentation, error) {
	var p Presentation
	var source, status string
	var prefs, outline, slides, export, previewKeys sql.NullString
	var failureKind, failureMessage sql.NullString
	if err := s.Scan(
		&p.ID,
		&p.UserID,
		&source,
		&p.Topic,
		&p.Title,
		&prefs,
		&outline,
		&slides,
		&p.SlideCountHint,
		&status,
		&failureKind,
		&failureMessage,
		&export,
		&previewKeys,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return Presentation{}, err
	}
	p.Source = pipeline.Flow(source)
	p.Status = pipeline.State(status)
	p.FailureKind = failureKind.String
	p.FailureMessage = failureMessage.String

	if err := unmarshalJSONB(prefs, &p.Preferences); err != nil {
		return Presentation{}, err
	}
	if err := unmarshalJSONB(outline, &p.Outline); err != nil {
		return Presentation{}, err
	}
	if err := unmarshalJSONB(slides, &p.Slides); err != nil {
		return Presentation{}, err
	}
	if export.Valid && export.String != "" && export.String != "null" {
		var res deck.ExportResult
		if err := json.Unmarshal([]byte(export.String), &res); err != nil {
			return Presentation{}, err
		}
		p.Export = &res
	}
	if err := unmarshalJSONB(previewKeys, &p.PreviewKeys); err != nil {
		return Presentation{}, err
	}
	return p, nil
}

func marshalJSONB(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalJSONB(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}

var _ Repo = (*PGRepo)(nil)
