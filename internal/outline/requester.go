package outline

import (
	"context"
	"errors"
	"strings"
	"time"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/llm"
	"slidebanai-backend/internal/shared/telemetry"
)

const (
	DefaultTheme    = "Professional"
	maxSourceChars  = 24000
	minutesPerSlide = 2
)

// ErrEmptyInput is returned when neither a topic nor source text is supplied.
var ErrEmptyInput = errors.New("topic or source text is required")

// Input is everything one outline request needs.
type Input struct {
	Topic       string
	SourceText  string
	Preferences deck.StyleConfig
}

// Requester asks a generative model for a slide outline and validates the reply.
type Requester struct {
	LLM         llm.Client
	Limits      deck.SlideLimits
	Temperature *float64
	MaxTokens   int
}

func New(client llm.Client, limits deck.SlideLimits) *Requester {
	return &Requester{LLM: client, Limits: limits}
}

// Request returns a validated outline. Model failures are generation_failure and
// unusable replies are malformed_response; no partial outline is ever returned.
func (r *Requester) Request(ctx context.Context, in Input) (deck.Outline, error) {
	topic := strings.TrimSpace(in.Topic)
	source := strings.TrimSpace(in.SourceText)
	if topic == "" && source == "" {
		return deck.Outline{}, ErrEmptyInput
	}
	prefs, err := in.Preferences.Normalize(r.Limits)
	if err != nil {
		return deck.Outline{}, err
	}
	source, truncated := truncateRunes(source, maxSourceChars)

	system, user := llm.OutlinePrompt(llm.OutlinePromptInput{
		Topic:            topic,
		SourceText:       source,
		SlideCount:       prefs.SlideCount,
		Audience:         string(prefs.Audience),
		Tone:             string(prefs.Tone),
		PresentationType: prefs.PresentationType,
		Strict:           prefs.Strict,
	})

	start := time.Now()
	raw, err := r.LLM.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		Mode:        llm.ModeJSON,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return deck.Outline{}, deck.GenerationFailure("outline.request", err)
	}

	out, err := Parse(raw)
	if err != nil {
		telemetry.Warn("outline.malformed", map[string]any{
			"error":        err.Error(),
			"strict":       prefs.Strict,
			"response_len": len(raw),
		})
		return deck.Outline{}, err
	}
	applyDefaults(&out)

	telemetry.Info("outline.generated", map[string]any{
		"slides":           len(out.Outline),
		"requested_slides": prefs.SlideCount,
		"source_chars":     len([]rune(source)),
		"source_truncated": truncated,
		"duration_ms":      time.Since(start).Milliseconds(),
	})
	return out, nil
}

// applyDefaults only touches cosmetic fields.
func applyDefaults(o *deck.Outline) {
	if strings.TrimSpace(o.Theme) == "" {
		o.Theme = DefaultTheme
	}
	if strings.TrimSpace(o.EstimatedDuration) == "" {
		o.EstimatedDuration = estimateDuration(len(o.Outline))
	}
}

func estimateDuration(slides int) string {
	minutes := slides * minutesPerSlide
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "1 minute"
	}
	return itoa(minutes) + " minutes"
}

func truncateRunes(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}
