package llm

import (
	"context"
	"errors"
)

// Mode selects free text or strict JSON output.
type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// Request is one instruction + user content exchange with a generative model.
type Request struct {
	System      string
	User        string
	Mode        Mode
	Temperature *float64
	MaxTokens   int
}

// Client abstracts generative text providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient is used when no provider credentials are configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}

// Float returns a pointer to v, for optional request parameters.
func Float(v float64) *float64 {
	return &v
}
