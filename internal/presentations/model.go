package presentations

import (
	"time"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/pipeline"
)

// Presentation is one user's deck from outline through export. ID doubles as the pipeline run id.
type Presentation struct {
	ID             string
	UserID         string
	Source         pipeline.Flow
	Topic          string
	Title          string
	Preferences    deck.StyleConfig
	Outline        deck.Outline
	Slides         []deck.DetailedSlide
	SlideCountHint int
	Status         pipeline.State
	FailureKind    string
	FailureMessage string
	Export         *deck.ExportResult
	PreviewKeys    []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Created is what the outline endpoints return.
type Created struct {
	Presentation     Presentation
	RemainingCredits int
	Advisory         bool
}
