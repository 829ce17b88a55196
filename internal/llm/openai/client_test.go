package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"slidebanai-backend/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

type recorder struct {
	mu     sync.Mutex
	bodies []map[string]any
	auth   string
}

func (r *recorder) last() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bodies) == 0 {
		return nil
	}
	return r.bodies[len(r.bodies)-1]
}

func newServer(t *testing.T, rec *recorder, status int, response string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, payload)
		rec.auth = r.Header.Get("Authorization")
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	oldURL := apiURL
	apiURL = server.URL
	t.Cleanup(func() { apiURL = oldURL })
}

func TestCompleteJSONMode(t *testing.T) {
	rec := &recorder{}
	newServer(t, rec, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  {\"ok\":true} "}}],"usage":{"total_tokens":12}}`)

	client, err := NewClient(Options{APIKey: "test-key", Model: "gpt-4o", MaxTokens: 4000, Temperature: 0.7})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Complete(context.Background(), llm.Request{System: "sys", User: "user", Mode: llm.ModeJSON})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("unexpected content %q", out)
	}

	body := rec.last()
	format, ok := body["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", body["response_format"])
	}
	if body["temperature"] != 0.7 {
		t.Fatalf("expected configured temperature, got %v", body["temperature"])
	}
	if body["max_tokens"] != float64(4000) {
		t.Fatalf("expected max_tokens 4000, got %v", body["max_tokens"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", msgs)
	}
	if rec.auth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", rec.auth)
	}
}

func TestCompleteTextModeOmitsResponseFormat(t *testing.T) {
	rec := &recorder{}
	newServer(t, rec, http.StatusOK, `{"choices":[{"message":{"content":"hello"}}]}`)

	client, err := NewClient(Options{APIKey: "k", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Complete(context.Background(), llm.Request{User: "hi", Mode: llm.ModeText, Temperature: llm.Float(0.2)}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	body := rec.last()
	if _, ok := body["response_format"]; ok {
		t.Fatalf("text mode must not request json_object")
	}
	if body["temperature"] != 0.2 {
		t.Fatalf("request temperature should override, got %v", body["temperature"])
	}
}

func TestCompleteOmitsTemperatureForRestrictedModels(t *testing.T) {
	for _, model := range []string{"gpt-5-mini", "o3-mini"} {
		t.Run(model, func(t *testing.T) {
			rec := &recorder{}
			newServer(t, rec, http.StatusOK, `{"choices":[{"message":{"content":"{}"}}]}`)

			client, err := NewClient(Options{APIKey: "k", Model: model, MaxTokens: 100, NoTemperatureModels: []string{"o3-mini"}})
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			if _, err := client.Complete(context.Background(), llm.Request{User: "x", Mode: llm.ModeJSON}); err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if _, ok := rec.last()["temperature"]; ok {
				t.Fatalf("expected temperature to be omitted for %s", model)
			}
		})
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		want     string
	}{
		{name: "api error", status: http.StatusTooManyRequests, response: `{"error":{"message":"Rate limit reached","type":"rate_limit"}}`, want: "openai http status 429: Rate limit reached"},
		{name: "non json error", status: http.StatusBadGateway, response: `upstream down`, want: "openai http status 502: upstream down"},
		{name: "bad json", status: http.StatusOK, response: `{"choices":`, want: "openai response parse"},
		{name: "no choices", status: http.StatusOK, response: `{"choices":[]}`, want: "openai response missing choices"},
		{name: "empty content", status: http.StatusOK, response: `{"choices":[{"message":{"content":"   "}}]}`, want: "openai response empty content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newServer(t, &recorder{}, tt.status, tt.response)
			client, err := NewClient(Options{APIKey: "k", Model: "gpt-4o"})
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			_, err = client.Complete(context.Background(), llm.Request{User: "x"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Options{Model: "gpt-4o"}); err == nil {
		t.Fatal("expected missing api key error")
	}
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatal("expected missing model error")
	}
}
