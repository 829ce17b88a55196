package expand

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/llm"
	"slidebanai-backend/internal/shared/telemetry"
)

// Expander turns an approved outline into detailed slides with one batched model call.
type Expander struct {
	LLM         llm.Client
	Temperature *float64
	MaxTokens   int
}

// Options tunes a single expansion. Strict switches to the stricter system instruction
// a caller asks for after a malformed response.
type Options struct {
	Title          string
	SlideCountHint int
	Strict         bool
}

func New(client llm.Client) *Expander {
	return &Expander{LLM: client}
}

// Expand returns exactly one slide per outline entry, in outline order.
// The slide count hint is advisory and never overrides the outline's entry count.
func (x *Expander) Expand(ctx context.Context, outline deck.Outline, opts Options) ([]deck.DetailedSlide, error) {
	title, slideCountHint := opts.Title, opts.SlideCountHint
	if err := outline.Validate(); err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}
	if title == "" {
		title = outline.Title
	}
	if slideCountHint > 0 && slideCountHint != len(outline.Outline) {
		telemetry.Info("expand.hint_ignored", map[string]any{
			"hint":    slideCountHint,
			"entries": len(outline.Outline),
		})
	}

	encoded, err := json.MarshalIndent(outline.Outline, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode outline: %w", err)
	}
	system, user := llm.SlidesPrompt(llm.SlidesPromptInput{
		Title:      title,
		OutlineRaw: string(encoded),
		SlideCount: len(outline.Outline),
		Strict:     opts.Strict,
	})

	start := time.Now()
	raw, err := x.LLM.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		Mode:        llm.ModeJSON,
		Temperature: x.Temperature,
		MaxTokens:   x.MaxTokens,
	})
	if err != nil {
		return nil, deck.GenerationFailure("expand.request", err)
	}

	slides, err := parseSlides(raw, outline)
	if err != nil {
		telemetry.Warn("expand.malformed", map[string]any{
			"error":        err.Error(),
			"entries":      len(outline.Outline),
			"response_len": len(raw),
		})
		return nil, err
	}

	telemetry.Info("expand.complete", map[string]any{
		"slides":      len(slides),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return slides, nil
}
