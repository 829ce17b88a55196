package deck

import (
	"errors"
	"fmt"
	"strings"
)

type Audience string

const (
	AudienceGeneral     Audience = "general"
	AudienceExecutive   Audience = "executive"
	AudienceTechnical   Audience = "technical"
	AudienceSales       Audience = "sales"
	AudienceEducational Audience = "educational"
)

type Tone string

const (
	ToneProfessional   Tone = "professional"
	ToneConversational Tone = "conversational"
	ToneEnthusiastic   Tone = "enthusiastic"
	ToneTechnical      Tone = "technical"
)

const DefaultPresentationType = "informative"

// ErrInvalidStyle is returned when a preference falls outside the closed enumerations.
var ErrInvalidStyle = errors.New("invalid style preference")

// StyleConfig carries the user's presentation preferences.
type StyleConfig struct {
	SlideCount       int      `json:"slideCount"`
	Audience         Audience `json:"audience"`
	Tone             Tone     `json:"tone"`
	PresentationType string   `json:"presentationType"`
	Strict           bool     `json:"strict,omitempty"`
}

// SlideLimits bounds the requested slide count.
type SlideLimits struct {
	Min     int
	Max     int
	Default int
}

// DefaultSlideLimits mirrors the service defaults (3..30, default 10).
func DefaultSlideLimits() SlideLimits {
	return SlideLimits{Min: 3, Max: 30, Default: 10}
}

// Normalize fills defaults, clamps the slide count and rejects unknown enum values.
func (s StyleConfig) Normalize(limits SlideLimits) (StyleConfig, error) {
	out := s
	out.Audience = Audience(strings.ToLower(strings.TrimSpace(string(s.Audience))))
	out.Tone = Tone(strings.ToLower(strings.TrimSpace(string(s.Tone))))
	out.PresentationType = strings.TrimSpace(s.PresentationType)

	if out.Audience == "" {
		out.Audience = AudienceGeneral
	}
	if out.Tone == "" {
		out.Tone = ToneProfessional
	}
	if out.PresentationType == "" {
		out.PresentationType = DefaultPresentationType
	}

	switch out.Audience {
	case AudienceGeneral, AudienceExecutive, AudienceTechnical, AudienceSales, AudienceEducational:
	default:
		return StyleConfig{}, fmt.Errorf("%w: audience %q", ErrInvalidStyle, s.Audience)
	}
	switch out.Tone {
	case ToneProfessional, ToneConversational, ToneEnthusiastic, ToneTechnical:
	default:
		return StyleConfig{}, fmt.Errorf("%w: tone %q", ErrInvalidStyle, s.Tone)
	}

	if out.SlideCount <= 0 {
		out.SlideCount = limits.Default
	}
	if limits.Min > 0 && out.SlideCount < limits.Min {
		out.SlideCount = limits.Min
	}
	if limits.Max > 0 && out.SlideCount > limits.Max {
		out.SlideCount = limits.Max
	}
	return out, nil
}
