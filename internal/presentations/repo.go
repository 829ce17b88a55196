package presentations

import (
	"context"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/pipeline"
)

// Repo defines persistence operations for presentations.
type Repo interface {
	Create(ctx context.Context, p Presentation) error
	GetByID(ctx context.Context, id string) (Presentation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Presentation, error)
	// UpdateOutline succeeds only while the presentation awaits user edits.
	UpdateOutline(ctx context.Context, id string, outline deck.Outline) error
	// BeginFinalize moves awaiting_user_edit to expanding_slides, or returns ErrConflict.
	BeginFinalize(ctx context.Context, id, title string, slideCountHint int) error
	// RevertFinalize undoes BeginFinalize when the job could not be scheduled.
	RevertFinalize(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status pipeline.State, failureKind, failureMessage string) error
	SaveSlides(ctx context.Context, id string, slides []deck.DetailedSlide) error
	// SaveResult marks the presentation done with its export and preview keys.
	SaveResult(ctx context.Context, id string, export deck.ExportResult, previewKeys []string) error
}
