package presentations

import (
	"strconv"
	"time"

	"slidebanai-backend/internal/deck"
)

type promptRequest struct {
	Topic       string           `json:"topic"`
	Description string           `json:"description"`
	Preferences deck.StyleConfig `json:"preferences"`
}

type finalizeRequest struct {
	Title          string `json:"title"`
	SlideCountHint int    `json:"slideCountHint"`
}

type outlineResponse struct {
	PresentationID   string           `json:"presentationId"`
	Status           string           `json:"status"`
	Outline          deck.Outline     `json:"outline"`
	Preferences      deck.StyleConfig `json:"preferences"`
	Advisory         bool             `json:"advisory,omitempty"`
	RemainingCredits int              `json:"remainingCredits"`
}

type presentationResponse struct {
	ID             string               `json:"id"`
	Source         string               `json:"source"`
	Topic          string               `json:"topic,omitempty"`
	Title          string               `json:"title"`
	Status         string               `json:"status"`
	Preferences    deck.StyleConfig     `json:"preferences"`
	Outline        deck.Outline         `json:"outline"`
	Slides         []deck.DetailedSlide `json:"slides,omitempty"`
	Export         *deck.ExportResult   `json:"export,omitempty"`
	Previews       []string             `json:"previews,omitempty"`
	FailureKind    string               `json:"failureKind,omitempty"`
	FailureMessage string               `json:"failureMessage,omitempty"`
	// RemainingCredits is the caller's current balance; omitted when credits are not tracked.
	RemainingCredits *int      `json:"remainingCredits,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type finalizeResponse struct {
	PresentationID   string `json:"presentationId"`
	Status           string `json:"status"`
	RemainingCredits *int   `json:"remainingCredits,omitempty"`
}

type summaryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func toOutlineResponse(c Created) outlineResponse {
	return outlineResponse{
		PresentationID:   c.Presentation.ID,
		Status:           string(c.Presentation.Status),
		Outline:          c.Presentation.Outline,
		Preferences:      c.Presentation.Preferences,
		Advisory:         c.Advisory,
		RemainingCredits: c.RemainingCredits,
	}
}

// toResponse lists served preview paths, not storage keys.
func toResponse(p Presentation, basePath string) presentationResponse {
	resp := presentationResponse{
		ID:             p.ID,
		Source:         string(p.Source),
		Topic:          p.Topic,
		Title:          p.Title,
		Status:         string(p.Status),
		Preferences:    p.Preferences,
		Outline:        p.Outline,
		Slides:         p.Slides,
		Export:         p.Export,
		FailureKind:    p.FailureKind,
		FailureMessage: p.FailureMessage,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	for i := range p.PreviewKeys {
		resp.Previews = append(resp.Previews, previewPath(basePath, p.ID, i+1))
	}
	return resp
}

func previewPath(basePath, id string, n int) string {
	return basePath + "/presentations/" + id + "/slides/" + strconv.Itoa(n) + "/preview.svg"
}
