package outline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/llm"
)

const parseOp = "outline.parse"

// Pointer fields distinguish an absent key from a zero value.
type wireOutline struct {
	Title             *string         `json:"title"`
	Theme             *string         `json:"theme"`
	EstimatedDuration json.RawMessage `json:"estimated_duration"`
	Outline           *[]wireEntry    `json:"outline"`
	Sections          []wireSection   `json:"sections"`
	AudienceTakeaways []string        `json:"audience_takeaways"`
}

type wireEntry struct {
	SlideNumber *int      `json:"slide_number"`
	Title       *string   `json:"title"`
	KeyPoints   *[]string `json:"key_points"`
	Type        *string   `json:"type"`
}

type wireSection struct {
	Title        string `json:"title"`
	SlideNumbers []int  `json:"slide_numbers"`
	KeyMessage   string `json:"key_message"`
}

// Parse converts raw model output into a validated outline.
func Parse(raw string) (deck.Outline, error) {
	var w wireOutline
	if err := json.Unmarshal([]byte(llm.CleanJSON(raw)), &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "" {
				return deck.Outline{}, deck.MalformedSchema(parseOp, "top-level value must be an object")
			}
			return deck.Outline{}, deck.MalformedSchema(parseOp, fmt.Sprintf("field %s has the wrong type", typeErr.Field))
		}
		return deck.Outline{}, deck.MalformedSyntax(parseOp, err)
	}

	if w.Title == nil {
		return deck.Outline{}, deck.MalformedSchema(parseOp, "missing key: title")
	}
	if w.Outline == nil {
		return deck.Outline{}, deck.MalformedSchema(parseOp, "missing key: outline")
	}

	out := deck.Outline{
		Title:             strings.TrimSpace(*w.Title),
		EstimatedDuration: durationString(w.EstimatedDuration),
		Outline:           make([]deck.OutlineEntry, 0, len(*w.Outline)),
		AudienceTakeaways: w.AudienceTakeaways,
	}
	if w.Theme != nil {
		out.Theme = strings.TrimSpace(*w.Theme)
	}

	for i, e := range *w.Outline {
		switch {
		case e.SlideNumber == nil:
			return deck.Outline{}, deck.MalformedSchema(parseOp, fmt.Sprintf("outline[%d]: missing key: slide_number", i))
		case e.Title == nil:
			return deck.Outline{}, deck.MalformedSchema(parseOp, fmt.Sprintf("outline[%d]: missing key: title", i))
		case e.KeyPoints == nil:
			return deck.Outline{}, deck.MalformedSchema(parseOp, fmt.Sprintf("outline[%d]: missing key: key_points", i))
		case e.Type == nil:
			return deck.Outline{}, deck.MalformedSchema(parseOp, fmt.Sprintf("outline[%d]: missing key: type", i))
		}
		out.Outline = append(out.Outline, deck.OutlineEntry{
			SlideNumber: *e.SlideNumber,
			Title:       strings.TrimSpace(*e.Title),
			KeyPoints:   *e.KeyPoints,
			Type:        deck.EntryType(strings.ToLower(strings.TrimSpace(*e.Type))),
		})
	}
	for _, s := range w.Sections {
		out.Sections = append(out.Sections, deck.Section{
			Title:        s.Title,
			SlideNumbers: s.SlideNumbers,
			KeyMessage:   s.KeyMessage,
		})
	}

	if err := out.Validate(); err != nil {
		return deck.Outline{}, deck.MalformedSchema(parseOp, err.Error())
	}
	return out, nil
}

// durationString accepts "15 minutes" or a bare number of minutes.
func durationString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return itoa(int(n)) + " minutes"
	}
	return ""
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
