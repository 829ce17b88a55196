package expand

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/llm"
)

const parseOp = "expand.parse"

type wireSlides struct {
	Slides *[]wireSlide `json:"slides"`
}

type wireSlide struct {
	SlideNumber      *int     `json:"slide_number"`
	SlideType        *string  `json:"slide_type"`
	Title            flexText `json:"title"`
	Content          flexText `json:"content"`
	SpeakerNotes     flexText `json:"speaker_notes"`
	SuggestedVisuals flexText `json:"suggested_visuals"`
	BackgroundColor  *string  `json:"background_color"`
	LayoutType       *string  `json:"layout_type"`
}

// flexText accepts a string, a list of strings (joined by newlines) or null.
type flexText struct {
	Value string
	Set   bool
}

func (f *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Value, f.Set = s, true
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		f.Value, f.Set = strings.Join(list, "\n"), true
		return nil
	}
	return fmt.Errorf("expected string or list of strings, got %s", truncate(string(data), 40))
}

func parseSlides(raw string, outline deck.Outline) ([]deck.DetailedSlide, error) {
	cleaned := llm.CleanJSON(raw)

	var items []wireSlide
	if strings.HasPrefix(cleaned, "[") {
		if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
			return nil, classify(err)
		}
	} else {
		var w wireSlides
		if err := json.Unmarshal([]byte(cleaned), &w); err != nil {
			return nil, classify(err)
		}
		if w.Slides == nil {
			return nil, deck.MalformedSchema(parseOp, "missing key: slides")
		}
		items = *w.Slides
	}

	want := len(outline.Outline)
	if len(items) != want {
		return nil, deck.MalformedSchema(parseOp, fmt.Sprintf("expected %d slides, model returned %d", want, len(items)))
	}

	slides := make([]deck.DetailedSlide, len(items))
	for i, item := range items {
		entry := outline.Outline[i]
		number := i + 1
		if item.SlideNumber != nil {
			number = *item.SlideNumber
		}
		if number != entry.SlideNumber {
			return nil, deck.MalformedSchema(parseOp, fmt.Sprintf("slides[%d]: slide_number %d does not match outline entry %d", i, number, entry.SlideNumber))
		}
		slides[i] = normalize(item, entry, number)
	}
	return slides, nil
}

func normalize(item wireSlide, entry deck.OutlineEntry, number int) deck.DetailedSlide {
	s := deck.DetailedSlide{
		SlideNumber:      number,
		SlideType:        string(deck.EntryContent),
		Title:            strings.TrimSpace(item.Title.Value),
		Content:          strings.TrimSpace(item.Content.Value),
		SpeakerNotes:     strings.TrimSpace(item.SpeakerNotes.Value),
		SuggestedVisuals: strings.TrimSpace(item.SuggestedVisuals.Value),
		BackgroundColor:  deck.DefaultBackgroundColor,
	}
	if item.SlideType != nil && strings.TrimSpace(*item.SlideType) != "" {
		s.SlideType = strings.ToLower(strings.TrimSpace(*item.SlideType))
	}
	if s.Title == "" {
		s.Title = entry.Title
	}
	if item.BackgroundColor != nil && strings.TrimSpace(*item.BackgroundColor) != "" {
		s.BackgroundColor = strings.TrimSpace(*item.BackgroundColor)
	}
	if item.LayoutType != nil && strings.TrimSpace(*item.LayoutType) != "" {
		s.LayoutType = strings.ToLower(strings.TrimSpace(*item.LayoutType))
	} else {
		s.LayoutType = layoutFor(s.SlideType, number)
	}
	return s
}

func layoutFor(slideType string, number int) string {
	if number == 1 || slideType == string(deck.EntryTitle) {
		return "title"
	}
	switch slideType {
	case string(deck.EntrySection):
		return "section_header"
	case string(deck.EntryQuote):
		return "quote"
	}
	return "title_and_body"
}

func classify(err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return deck.MalformedSyntax(parseOp, err)
	}
	return deck.MalformedSchema(parseOp, err.Error())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
