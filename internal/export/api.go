package export

import "context"

// SlidesAPI is the remote slide-deck surface the two-phase export needs.
type SlidesAPI interface {
	CreatePresentation(ctx context.Context, title string) (Presentation, error)
	BatchUpdate(ctx context.Context, presentationID string, requests []Request) (BatchUpdateResponse, error)
	GetPresentation(ctx context.Context, presentationID string) (Presentation, error)
	ShareWithAnyone(ctx context.Context, presentationID string) error
}

// Presentation mirrors the subset of the Slides REST resource we read back.
type Presentation struct {
	PresentationID string `json:"presentationId"`
	Title          string `json:"title,omitempty"`
	Slides         []Page `json:"slides,omitempty"`
}

type Page struct {
	ObjectID        string           `json:"objectId"`
	PageElements    []PageElement    `json:"pageElements,omitempty"`
	SlideProperties *SlideProperties `json:"slideProperties,omitempty"`
	NotesProperties *NotesProperties `json:"notesProperties,omitempty"`
}

type SlideProperties struct {
	NotesPage *Page `json:"notesPage,omitempty"`
}

type NotesProperties struct {
	SpeakerNotesObjectID string `json:"speakerNotesObjectId,omitempty"`
}

type PageElement struct {
	ObjectID string `json:"objectId"`
	Shape    *Shape `json:"shape,omitempty"`
}

type Shape struct {
	ShapeType   string       `json:"shapeType,omitempty"`
	Placeholder *Placeholder `json:"placeholder,omitempty"`
}

type Placeholder struct {
	Type  string `json:"type,omitempty"`
	Index int    `json:"index,omitempty"`
}

// Request is one entry of a batchUpdate call. Exactly one field is set.
type Request struct {
	DeleteObject *DeleteObjectRequest `json:"deleteObject,omitempty"`
	CreateSlide  *CreateSlideRequest  `json:"createSlide,omitempty"`
	InsertText   *InsertTextRequest   `json:"insertText,omitempty"`
}

type DeleteObjectRequest struct {
	ObjectID string `json:"objectId"`
}

type CreateSlideRequest struct {
	ObjectID             string           `json:"objectId,omitempty"`
	InsertionIndex       int              `json:"insertionIndex"`
	SlideLayoutReference *LayoutReference `json:"slideLayoutReference,omitempty"`
}

type LayoutReference struct {
	PredefinedLayout string `json:"predefinedLayout"`
}

type InsertTextRequest struct {
	ObjectID       string `json:"objectId"`
	Text           string `json:"text"`
	InsertionIndex int    `json:"insertionIndex"`
}

type BatchUpdateResponse struct {
	PresentationID string     `json:"presentationId"`
	Replies        []Response `json:"replies"`
}

type Response struct {
	CreateSlide *CreateSlideResponse `json:"createSlide,omitempty"`
}

type CreateSlideResponse struct {
	ObjectID string `json:"objectId"`
}
