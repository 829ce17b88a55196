package deck

// EntryType classifies an outline entry.
type EntryType string

const (
	EntryTitle      EntryType = "title"
	EntryContent    EntryType = "content"
	EntrySection    EntryType = "section"
	EntryQuote      EntryType = "quote"
	EntryConclusion EntryType = "conclusion"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTitle, EntryContent, EntrySection, EntryQuote, EntryConclusion:
		return true
	}
	return false
}

// DefaultBackgroundColor is used when the model omits a slide background.
const DefaultBackgroundColor = "#FFFFFF"

// OutlineEntry is one planned slide.
type OutlineEntry struct {
	SlideNumber int       `json:"slide_number"`
	Title       string    `json:"title"`
	KeyPoints   []string  `json:"key_points"`
	Type        EntryType `json:"type"`
}

// Section groups outline entries under a shared message.
type Section struct {
	Title        string `json:"title"`
	SlideNumbers []int  `json:"slide_numbers"`
	KeyMessage   string `json:"key_message"`
}

// Outline is the structured plan a user reviews before slides are expanded.
type Outline struct {
	Title             string         `json:"title"`
	Theme             string         `json:"theme"`
	EstimatedDuration string         `json:"estimated_duration"`
	Outline           []OutlineEntry `json:"outline"`
	Sections          []Section      `json:"sections"`
	AudienceTakeaways []string       `json:"audience_takeaways"`
}

// Clone returns a deep copy so callers can edit without aliasing stored slices.
func (o Outline) Clone() Outline {
	out := o
	out.Outline = make([]OutlineEntry, len(o.Outline))
	for i, e := range o.Outline {
		e.KeyPoints = append([]string(nil), e.KeyPoints...)
		out.Outline[i] = e
	}
	out.Sections = make([]Section, len(o.Sections))
	for i, s := range o.Sections {
		s.SlideNumbers = append([]int(nil), s.SlideNumbers...)
		out.Sections[i] = s
	}
	out.AudienceTakeaways = append([]string(nil), o.AudienceTakeaways...)
	return out
}

// DetailedSlide is a fully expanded slide ready for export.
type DetailedSlide struct {
	SlideNumber      int    `json:"slide_number"`
	SlideType        string `json:"slide_type"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	SpeakerNotes     string `json:"speaker_notes"`
	SuggestedVisuals string `json:"suggested_visuals"`
	BackgroundColor  string `json:"background_color"`
	LayoutType       string `json:"layout_type"`
}

// ExportResult identifies a deck created in the remote slide service.
type ExportResult struct {
	PresentationID string `json:"presentationId"`
	EditURL        string `json:"editUrl"`
	ViewURL        string `json:"viewUrl"`
	EmbedURL       string `json:"embedUrl"`
	SlideCount     int    `json:"slideCount"`
}
