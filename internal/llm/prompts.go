package llm

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

var (
	//go:embed prompts/outline_system.txt
	outlineSystem string
	//go:embed prompts/outline_user.txt
	outlineUser string
	//go:embed prompts/slides_system.txt
	slidesSystem string
	//go:embed prompts/slides_user.txt
	slidesUser string
	//go:embed prompts/strict.txt
	strictSuffix string
)

// OutlinePromptInput carries what the outline prompt embeds.
type OutlinePromptInput struct {
	Topic            string
	SourceText       string
	SlideCount       int
	Audience         string
	Tone             string
	PresentationType string
	Strict           bool
}

// OutlinePrompt renders the system and user messages for an outline request.
func OutlinePrompt(in OutlinePromptInput) (system string, user string) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		topic = "Derive the topic from the source material."
	}
	source := strings.TrimSpace(in.SourceText)
	if source == "" {
		source = "N/A"
	}
	replacer := strings.NewReplacer(
		"{{TOPIC}}", topic,
		"{{SOURCE_TEXT}}", source,
		"{{SLIDE_COUNT}}", strconv.Itoa(in.SlideCount),
		"{{AUDIENCE}}", in.Audience,
		"{{TONE}}", in.Tone,
		"{{PRESENTATION_TYPE}}", in.PresentationType,
	)
	return withStrict(outlineSystem, in.Strict), replacer.Replace(outlineUser)
}

// SlidesPromptInput carries what the slide expansion prompt embeds.
type SlidesPromptInput struct {
	Title      string
	OutlineRaw string
	SlideCount int
	Strict     bool
}

// SlidesPrompt renders the system and user messages for a batch slide expansion.
func SlidesPrompt(in SlidesPromptInput) (system string, user string) {
	replacer := strings.NewReplacer(
		"{{TITLE}}", strings.TrimSpace(in.Title),
		"{{SLIDE_COUNT}}", strconv.Itoa(in.SlideCount),
		"{{OUTLINE_JSON}}", in.OutlineRaw,
	)
	return withStrict(slidesSystem, in.Strict), replacer.Replace(slidesUser)
}

func withStrict(system string, strict bool) string {
	system = strings.TrimSpace(system)
	if !strict {
		return system
	}
	return fmt.Sprintf("%s\n\n%s", system, strings.TrimSpace(strictSuffix))
}
