package preview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/shared/storage/object"
	"slidebanai-backend/internal/shared/telemetry"
)

const (
	ContentType        = "image/svg+xml"
	defaultConcurrency = 4
)

// Key is the object-store key of one slide preview. n is 1-based.
func Key(presentationID string, n int) string {
	return fmt.Sprintf("previews/%s/slide-%d.svg", presentationID, n)
}

// Publisher renders slide previews and stores them.
type Publisher struct {
	Store       object.ObjectStore
	Concurrency int
}

func NewPublisher(store object.ObjectStore) *Publisher {
	return &Publisher{Store: store, Concurrency: defaultConcurrency}
}

// Publish renders slides and uploads one SVG per slide, returning keys in slide order.
func (p *Publisher) Publish(ctx context.Context, presentationID, title string, slides []deck.DetailedSlide) ([]string, error) {
	if len(slides) == 0 {
		return nil, nil
	}
	start := time.Now()
	svgs, err := Render(Source(title, slides))
	if err != nil {
		return nil, err
	}
	if len(svgs) != len(slides) {
		return nil, fmt.Errorf("preview render produced %d slides, want %d", len(svgs), len(slides))
	}

	limit := p.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	keys := make([]string, len(svgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, body := range svgs {
		key := Key(presentationID, i+1)
		keys[i] = key
		g.Go(func() error {
			if _, err := p.Store.SaveWithKey(gctx, key, ContentType, bytes.NewReader(body)); err != nil {
				return fmt.Errorf("store %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.cleanup(context.WithoutCancel(ctx), presentationID, keys)
		return nil, err
	}

	telemetry.Info("preview.published", map[string]any{
		"presentation_id": presentationID,
		"slides":          len(keys),
		"duration_ms":     time.Since(start).Milliseconds(),
	})
	return keys, nil
}

// cleanup removes whatever a failed publish managed to upload.
func (p *Publisher) cleanup(ctx context.Context, presentationID string, keys []string) {
	for _, key := range keys {
		if err := p.Store.Delete(ctx, key); err != nil {
			telemetry.Warn("preview.cleanup_failed", map[string]any{
				"presentation_id": presentationID,
				"key":             key,
				"error":           err.Error(),
			})
		}
	}
}

// Open returns the stored preview for slide n.
func (p *Publisher) Open(ctx context.Context, presentationID string, n int) (io.ReadCloser, error) {
	return p.Store.Open(ctx, Key(presentationID, n))
}
