package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/shared/telemetry"
)

// MaxSlides caps how many slides one export creates.
const MaxSlides = 10

const (
	layoutTitleOnly    = "TITLE_ONLY"
	layoutTitleAndBody = "TITLE_AND_BODY"
	urlBase            = "https://docs.google.com/presentation/d/"
)

// Adapter exports detailed slides into a remote deck using the create-then-fill protocol.
type Adapter struct {
	API   SlidesAPI
	NewID func() string
}

func New(api SlidesAPI) *Adapter {
	return &Adapter{API: api}
}

// Export creates, fills and shares a deck. Slides beyond MaxSlides are dropped and the
// returned SlideCount reports what was actually created.
func (a *Adapter) Export(ctx context.Context, title string, slides []deck.DetailedSlide) (deck.ExportResult, error) {
	if len(slides) == 0 {
		return deck.ExportResult{}, deck.ExportFailure("export", "", "no slides to export", nil)
	}
	if len(slides) > MaxSlides {
		telemetry.Warn("export.truncated", map[string]any{
			"requested": len(slides),
			"created":   MaxSlides,
		})
		slides = slides[:MaxSlides]
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled presentation"
	}

	start := time.Now()
	s := &session{api: a.API, slides: slides, newID: a.newID}
	if err := s.create(ctx, title); err != nil {
		return deck.ExportResult{}, err
	}
	if err := s.structure(ctx); err != nil {
		return deck.ExportResult{}, err
	}
	if err := s.fill(ctx); err != nil {
		return deck.ExportResult{}, err
	}
	if err := s.share(ctx); err != nil {
		return deck.ExportResult{}, err
	}

	telemetry.Info("export.complete", map[string]any{
		"presentation_id": s.presentationID,
		"slides":          len(slides),
		"duration_ms":     time.Since(start).Milliseconds(),
	})
	return Result(s.presentationID, len(slides)), nil
}

// Result builds the link set for a remote deck.
func Result(presentationID string, slideCount int) deck.ExportResult {
	return deck.ExportResult{
		PresentationID: presentationID,
		EditURL:        urlBase + presentationID + "/edit",
		ViewURL:        urlBase + presentationID + "/view",
		EmbedURL:       urlBase + presentationID + "/embed",
		SlideCount:     slideCount,
	}
}

func (a *Adapter) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return "slide_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

type phase int

const (
	phaseNew phase = iota
	phaseCreated
	phaseStructured
	phaseFilled
	phaseShared
)

func (p phase) String() string {
	switch p {
	case phaseNew:
		return "new"
	case phaseCreated:
		return "created"
	case phaseStructured:
		return "structured"
	case phaseFilled:
		return "filled"
	case phaseShared:
		return "shared"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var errPhaseOrder = errors.New("export phase out of order")

// session is one export run. Each step requires the previous step's acknowledgment.
type session struct {
	api            SlidesAPI
	newID          func() string
	slides         []deck.DetailedSlide
	phase          phase
	presentationID string
	starterSlides  []string
	createdIDs     []string
}

func (s *session) require(want phase, op string) error {
	if s.phase != want {
		return deck.ExportFailure(op, s.presentationID, "", fmt.Errorf("%w: at %s, need %s", errPhaseOrder, s.phase, want))
	}
	return nil
}

func (s *session) create(ctx context.Context, title string) error {
	if err := s.require(phaseNew, "export.create"); err != nil {
		return err
	}
	p, err := s.api.CreatePresentation(ctx, title)
	if err != nil {
		return deck.ExportFailure("export.create", "", "create presentation failed", err)
	}
	if p.PresentationID == "" {
		return deck.ExportFailure("export.create", "", "create presentation returned no id", nil)
	}
	s.presentationID = p.PresentationID
	for _, page := range p.Slides {
		s.starterSlides = append(s.starterSlides, page.ObjectID)
	}
	s.phase = phaseCreated
	return nil
}

// structure deletes the starter slide(s) and creates one slide per input, in order.
func (s *session) structure(ctx context.Context) error {
	const op = "export.structure"
	if err := s.require(phaseCreated, op); err != nil {
		return err
	}

	requests := make([]Request, 0, len(s.starterSlides)+len(s.slides))
	for _, id := range s.starterSlides {
		requests = append(requests, Request{DeleteObject: &DeleteObjectRequest{ObjectID: id}})
	}
	ids := make([]string, len(s.slides))
	for i := range s.slides {
		layout := layoutTitleAndBody
		if i == 0 {
			layout = layoutTitleOnly
		}
		ids[i] = s.newID()
		requests = append(requests, Request{CreateSlide: &CreateSlideRequest{
			ObjectID:             ids[i],
			InsertionIndex:       i,
			SlideLayoutReference: &LayoutReference{PredefinedLayout: layout},
		}})
	}

	resp, err := s.api.BatchUpdate(ctx, s.presentationID, requests)
	if err != nil {
		return deck.ExportFailure(op, s.presentationID, "structure phase failed", err)
	}
	if len(resp.Replies) != len(requests) {
		return deck.ExportFailure(op, s.presentationID, fmt.Sprintf("structure phase acknowledged %d of %d requests", len(resp.Replies), len(requests)), nil)
	}
	offset := len(s.starterSlides)
	for i, id := range ids {
		reply := resp.Replies[offset+i].CreateSlide
		if reply == nil || reply.ObjectID != id {
			return deck.ExportFailure(op, s.presentationID, fmt.Sprintf("slide %d creation not acknowledged", i+1), nil)
		}
	}
	s.createdIDs = ids
	s.phase = phaseStructured
	return nil
}

// fill re-reads the deck to discover placeholder ids, then inserts text positionally.
func (s *session) fill(ctx context.Context) error {
	const op = "export.content"
	if err := s.require(phaseStructured, op); err != nil {
		return err
	}

	p, err := s.api.GetPresentation(ctx, s.presentationID)
	if err != nil {
		return deck.ExportFailure(op, s.presentationID, "read back failed", err)
	}
	if len(p.Slides) != len(s.createdIDs) {
		return deck.ExportFailure(op, s.presentationID, fmt.Sprintf("slide count mismatch: requested %d, deck has %d", len(s.createdIDs), len(p.Slides)), nil)
	}
	pages := make(map[string]Page, len(p.Slides))
	for _, page := range p.Slides {
		pages[page.ObjectID] = page
	}

	var requests []Request
	for i, id := range s.createdIDs {
		page, ok := pages[id]
		if !ok {
			return deck.ExportFailure(op, s.presentationID, fmt.Sprintf("created slide %d missing from read back", i+1), nil)
		}
		requests = append(requests, contentRequests(page, s.slides[i])...)
	}

	if len(requests) > 0 {
		if _, err := s.api.BatchUpdate(ctx, s.presentationID, requests); err != nil {
			return deck.ExportFailure(op, s.presentationID, "content phase failed; deck structure exists but text is missing", err)
		}
	}
	s.phase = phaseFilled
	return nil
}

func (s *session) share(ctx context.Context) error {
	const op = "export.share"
	if err := s.require(phaseFilled, op); err != nil {
		return err
	}
	if err := s.api.ShareWithAnyone(ctx, s.presentationID); err != nil {
		return deck.ExportFailure(op, s.presentationID, "sharing permission failed", err)
	}
	s.phase = phaseShared
	return nil
}

// contentRequests puts the title in the first text placeholder, the body in the second
// and speaker notes in the notes shape.
func contentRequests(page Page, slide deck.DetailedSlide) []Request {
	boxes := textBoxes(page)
	var out []Request
	if len(boxes) > 0 && slide.Title != "" {
		out = append(out, insert(boxes[0], slide.Title))
	}
	if len(boxes) > 1 && slide.Content != "" {
		out = append(out, insert(boxes[1], slide.Content))
	}
	if notes := speakerNotesID(page); notes != "" && slide.SpeakerNotes != "" {
		out = append(out, insert(notes, slide.SpeakerNotes))
	}
	return out
}

func insert(objectID, text string) Request {
	return Request{InsertText: &InsertTextRequest{ObjectID: objectID, Text: text}}
}

func textBoxes(page Page) []string {
	var ids []string
	for _, el := range page.PageElements {
		if el.Shape == nil {
			continue
		}
		if el.Shape.ShapeType == "TEXT_BOX" || el.Shape.Placeholder != nil {
			ids = append(ids, el.ObjectID)
		}
	}
	return ids
}

func speakerNotesID(page Page) string {
	if page.SlideProperties == nil || page.SlideProperties.NotesPage == nil {
		return ""
	}
	notes := page.SlideProperties.NotesPage
	if notes.NotesProperties == nil {
		return ""
	}
	return notes.NotesProperties.SpeakerNotesObjectID
}

// ErrNotConfigured is wrapped by Unconfigured when no Slides credentials were supplied.
var ErrNotConfigured = errors.New("google slides credentials not configured")

// Unconfigured fails every export. Outline and expansion still work without credentials.
type Unconfigured struct{}

func (Unconfigured) Export(context.Context, string, []deck.DetailedSlide) (deck.ExportResult, error) {
	return deck.ExportResult{}, deck.ExportFailure("export", "", "slides export is not configured", ErrNotConfigured)
}
