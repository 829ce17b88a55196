package presentations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/pipeline"
	"slidebanai-backend/internal/queue"
	"slidebanai-backend/internal/shared/storage/object"
)

func sampleOutline() deck.Outline {
	return deck.Outline{
		Title: "Go Concurrency",
		Theme: "Professional",
		Outline: []deck.OutlineEntry{
			{SlideNumber: 1, Title: "Go Concurrency", KeyPoints: []string{"why"}, Type: deck.EntryTitle},
			{SlideNumber: 2, Title: "Goroutines", KeyPoints: []string{"cheap", "scheduled"}, Type: deck.EntryContent},
		},
	}
}

func sampleSlides() []deck.DetailedSlide {
	return []deck.DetailedSlide{
		{SlideNumber: 1, SlideType: "title", Title: "Go Concurrency", Content: "An intro"},
		{SlideNumber: 2, SlideType: "content", Title: "Goroutines", Content: "- cheap\n- scheduled"},
	}
}

// fakePipeline walks the run through the same states the orchestrator does.
type fakePipeline struct {
	outlineErr  error
	finalizeErr error
	failStage   pipeline.State
	advisory    bool
	gotStrict   bool
}

func (f *fakePipeline) outline(userID string, flow pipeline.Flow) (pipeline.OutlineResult, error) {
	if f.outlineErr != nil {
		return pipeline.OutlineResult{}, f.outlineErr
	}
	run := pipeline.NewRun(flow, userID)
	if flow == pipeline.FlowDocument {
		_ = run.Advance(pipeline.StateExtracting, "")
	}
	_ = run.Advance(pipeline.StateRequestingOutline, "")
	_ = run.Advance(pipeline.StateAwaitingUserEdit, "")
	return pipeline.OutlineResult{
		Run:              run,
		Outline:          sampleOutline(),
		Preferences:      deck.StyleConfig{SlideCount: 2, Audience: deck.AudienceGeneral, Tone: deck.ToneProfessional},
		Topic:            "from-file",
		Advisory:         f.advisory,
		RemainingCredits: 9,
	}, nil
}

func (f *fakePipeline) OutlineFromPrompt(_ context.Context, in pipeline.PromptInput) (pipeline.OutlineResult, error) {
	return f.outline(in.UserID, pipeline.FlowPrompt)
}

func (f *fakePipeline) OutlineFromDocument(_ context.Context, in pipeline.DocumentInput) (pipeline.OutlineResult, error) {
	return f.outline(in.UserID, pipeline.FlowDocument)
}

func (f *fakePipeline) Finalize(_ context.Context, in pipeline.FinalizeInput) (pipeline.FinalizeResult, error) {
	if f.finalizeErr != nil && f.failStage == "" {
		return pipeline.FinalizeResult{}, f.finalizeErr
	}
	f.gotStrict = in.Strict
	run := in.Run
	_ = run.Advance(pipeline.StateExpandingSlides, "")
	if f.failStage == pipeline.StateExpandingSlides {
		run.Fail(f.finalizeErr)
		return pipeline.FinalizeResult{}, f.finalizeErr
	}
	res := pipeline.FinalizeResult{Slides: sampleSlides()}
	_ = run.Advance(pipeline.StateExporting, "")
	if f.failStage == pipeline.StateExporting {
		run.Fail(f.finalizeErr)
		return res, f.finalizeErr
	}
	res.Export = deck.ExportResult{
		PresentationID: "gs-1",
		SlideCount:     len(res.Slides),
	}
	if in.Persist != nil {
		if err := in.Persist(context.Background(), res); err != nil {
			return res, fmt.Errorf("%w: %w", pipeline.ErrPersist, err)
		}
	}
	_ = run.Advance(pipeline.StateDone, "")
	res.RemainingCredits = 8
	return res, nil
}

type queueStub struct {
	mu       sync.Mutex
	messages []queue.Message
	err      error
}

func (q *queueStub) Send(_ context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

type previewStub struct {
	mu   sync.Mutex
	err  error
	svgs map[string][]byte
}

func (p *previewStub) Publish(_ context.Context, id, _ string, slides []deck.DetailedSlide) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	if p.svgs == nil {
		p.svgs = make(map[string][]byte)
	}
	keys := make([]string, 0, len(slides))
	for i := range slides {
		key := fmt.Sprintf("%s/%d", id, i+1)
		p.svgs[key] = []byte("<svg/>")
		keys = append(keys, key)
	}
	return keys, nil
}

func (p *previewStub) Open(_ context.Context, id string, n int) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.svgs[fmt.Sprintf("%s/%d", id, n)]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type balanceStub struct {
	remaining int
}

func (b balanceStub) Balance(context.Context, string) (int, error) {
	return b.remaining, nil
}

// flakyRepo fails selected writes to exercise redelivery.
type flakyRepo struct {
	*MemoryRepo
	failStatus  pipeline.State
	failResults bool
}

func (r *flakyRepo) UpdateStatus(ctx context.Context, id string, status pipeline.State, kind, msg string) error {
	if status == r.failStatus {
		return errBoom
	}
	return r.MemoryRepo.UpdateStatus(ctx, id, status, kind, msg)
}

func (r *flakyRepo) SaveResult(ctx context.Context, id string, export deck.ExportResult, keys []string) error {
	if r.failResults {
		return errBoom
	}
	return r.MemoryRepo.SaveResult(ctx, id, export, keys)
}

var errBoom = errors.New("boom")
