package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `  {"a":1} `, want: `{"a":1}`},
		{name: "fenced json", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fenced bare", in: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "single line fence", in: "```{\"a\":1}```", want: `{"a":1}`},
		{name: "not json", in: "not json", want: "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSON(tt.in); got != tt.want {
				t.Fatalf("CleanJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOutlinePromptEmbedsPreferences(t *testing.T) {
	system, user := OutlinePrompt(OutlinePromptInput{
		Topic:            "Quarterly sales review",
		SlideCount:       5,
		Audience:         "executive",
		Tone:             "professional",
		PresentationType: "informative",
	})
	for _, want := range []string{"Quarterly sales review", "Desired slide count: 5", "Target audience: executive", "Tone: professional", "Presentation type: informative", "Source material:\nN/A"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, user)
		}
	}
	if strings.Contains(user, "{{") {
		t.Fatalf("unrendered placeholder in prompt:\n%s", user)
	}
	if strings.Contains(system, "previous answer") {
		t.Fatalf("non-strict prompt should not carry strict suffix")
	}
}

func TestStrictPromptAddsSuffix(t *testing.T) {
	system, _ := SlidesPrompt(SlidesPromptInput{Title: "Deck", OutlineRaw: "{}", SlideCount: 2, Strict: true})
	if !strings.Contains(system, "Never omit keys") {
		t.Fatalf("strict system prompt missing suffix:\n%s", system)
	}
}

func TestPlaceholderClientFails(t *testing.T) {
	_, err := PlaceholderClient{}.Complete(context.Background(), Request{User: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
