package googleslides

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"slidebanai-backend/internal/export"
)

const (
	defaultSlidesBase = "https://slides.googleapis.com/v1"
	defaultDriveBase  = "https://www.googleapis.com/drive/v3"

	scopePresentations = "https://www.googleapis.com/auth/presentations"
	scopeDrive         = "https://www.googleapis.com/auth/drive"
)

// Client talks to the Slides and Drive REST APIs.
type Client struct {
	httpClient *http.Client
	slidesBase string
	driveBase  string
}

type Option func(*Client)

// WithBaseURLs points the client at alternate endpoints, used by tests.
func WithBaseURLs(slidesBase, driveBase string) Option {
	return func(c *Client) {
		c.slidesBase = strings.TrimRight(slidesBase, "/")
		c.driveBase = strings.TrimRight(driveBase, "/")
	}
}

// New wraps an already authorized HTTP client.
func New(httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		httpClient: httpClient,
		slidesBase: defaultSlidesBase,
		driveBase:  defaultDriveBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromServiceAccount builds a client from a service account key (JSON).
func NewFromServiceAccount(ctx context.Context, keyJSON []byte, timeout time.Duration) (*Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, keyJSON, scopePresentations, scopeDrive)
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}
	hc := oauth2.NewClient(ctx, creds.TokenSource)
	hc.Timeout = timeout
	return New(hc), nil
}

// APIError is a non-2xx reply from a Google API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("google api status %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("google api status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) CreatePresentation(ctx context.Context, title string) (export.Presentation, error) {
	var out export.Presentation
	err := c.do(ctx, http.MethodPost, c.slidesBase+"/presentations", map[string]string{"title": title}, &out)
	return out, err
}

func (c *Client) BatchUpdate(ctx context.Context, presentationID string, requests []export.Request) (export.BatchUpdateResponse, error) {
	var out export.BatchUpdateResponse
	endpoint := c.slidesBase + "/presentations/" + url.PathEscape(presentationID) + ":batchUpdate"
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"requests": requests}, &out)
	return out, err
}

func (c *Client) GetPresentation(ctx context.Context, presentationID string) (export.Presentation, error) {
	var out export.Presentation
	err := c.do(ctx, http.MethodGet, c.slidesBase+"/presentations/"+url.PathEscape(presentationID), nil, &out)
	return out, err
}

// ShareWithAnyone grants "anyone with the link" reader access through Drive.
func (c *Client) ShareWithAnyone(ctx context.Context, presentationID string) error {
	endpoint := c.driveBase + "/files/" + url.PathEscape(presentationID) + "/permissions?supportsAllDrives=true"
	body := map[string]string{"role": "reader", "type": "anyone"}
	return c.do(ctx, http.MethodPost, endpoint, body, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, in any, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("google api response parse: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{StatusCode: status, Status: envelope.Error.Status, Message: envelope.Error.Message}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
}

var _ export.SlidesAPI = (*Client)(nil)
