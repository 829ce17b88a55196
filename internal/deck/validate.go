package deck

import (
	"fmt"
	"strings"
)

// OutlineError reports the first structural problem found in an outline.
type OutlineError struct {
	Field string
	Issue string
}

func (e *OutlineError) Error() string {
	return fmt.Sprintf("outline %s: %s", e.Field, e.Issue)
}

// Validate checks the shape every stored or exchanged outline must have.
// Entries must be numbered 1..n in order.
func (o Outline) Validate() error {
	if strings.TrimSpace(o.Title) == "" {
		return &OutlineError{Field: "title", Issue: "is required"}
	}
	if len(o.Outline) == 0 {
		return &OutlineError{Field: "outline", Issue: "must contain at least one entry"}
	}
	for i, entry := range o.Outline {
		field := fmt.Sprintf("outline[%d]", i)
		if entry.SlideNumber != i+1 {
			return &OutlineError{Field: field + ".slide_number", Issue: fmt.Sprintf("expected %d, got %d", i+1, entry.SlideNumber)}
		}
		if strings.TrimSpace(entry.Title) == "" {
			return &OutlineError{Field: field + ".title", Issue: "is required"}
		}
		if !entry.Type.Valid() {
			return &OutlineError{Field: field + ".type", Issue: fmt.Sprintf("unknown type %q", entry.Type)}
		}
	}
	for i, section := range o.Sections {
		for _, n := range section.SlideNumbers {
			if n < 1 || n > len(o.Outline) {
				return &OutlineError{
					Field: fmt.Sprintf("sections[%d].slide_numbers", i),
					Issue: fmt.Sprintf("slide %d is outside 1..%d", n, len(o.Outline)),
				}
			}
		}
	}
	return nil
}
