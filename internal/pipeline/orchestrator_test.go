package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidebanai-backend/internal/credits"
	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/expand"
	"slidebanai-backend/internal/export"
	"slidebanai-backend/internal/extract"
	"slidebanai-backend/internal/llm"
	"slidebanai-backend/internal/outline"
)

type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []llm.Request
}

func (s *scriptedLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.calls)
	s.calls = append(s.calls, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.responses) {
		return "", errors.New("no scripted response")
	}
	return s.responses[i], nil
}

func outlineJSON(t *testing.T, title string, n int) string {
	t.Helper()
	entries := make([]map[string]any, n)
	for i := range entries {
		typ := "content"
		if i == 0 {
			typ = "title"
		}
		entries[i] = map[string]any{
			"slide_number": i + 1,
			"title":        fmt.Sprintf("Slide %d", i+1),
			"key_points":   []string{"point"},
			"type":         typ,
		}
	}
	raw, err := json.Marshal(map[string]any{"title": title, "outline": entries})
	require.NoError(t, err)
	return string(raw)
}

func slidesJSON(t *testing.T, n int) string {
	t.Helper()
	slides := make([]map[string]any, n)
	for i := range slides {
		slides[i] = map[string]any{
			"slide_number":  i + 1,
			"title":         fmt.Sprintf("Slide %d", i+1),
			"content":       []string{"first", "second"},
			"speaker_notes": "notes",
		}
	}
	raw, err := json.Marshal(map[string]any{"slides": slides})
	require.NoError(t, err)
	return "```json\n" + string(raw) + "\n```"
}

type fakeExporter struct {
	titles []string
	got    [][]deck.DetailedSlide
	err    error
}

func (f *fakeExporter) Export(ctx context.Context, title string, slides []deck.DetailedSlide) (deck.ExportResult, error) {
	f.titles = append(f.titles, title)
	f.got = append(f.got, slides)
	if f.err != nil {
		return deck.ExportResult{}, f.err
	}
	n := len(slides)
	if n > export.MaxSlides {
		n = export.MaxSlides
	}
	return export.Result("pres-123", n), nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractFile(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	return f.text, f.err
}

type fakeLedger struct {
	balance int
	charged int
}

func (f *fakeLedger) Balance(ctx context.Context, userID string) (int, error) {
	return f.balance, nil
}

func (f *fakeLedger) Charge(ctx context.Context, userID string, n int) (int, error) {
	if n > f.balance {
		return 0, &credits.InsufficientError{Required: n, Available: f.balance}
	}
	f.balance -= n
	f.charged += n
	return f.balance, nil
}

func newOrchestrator(model llm.Client, exporter DeckExporter, ledger CreditLedger) *Orchestrator {
	return &Orchestrator{
		Extractor: fakeExtractor{text: "Revenue grew 12% in Q3."},
		Outliner:  outline.New(model, deck.DefaultSlideLimits()),
		Expander:  expand.New(model),
		Exporter:  exporter,
		Credits:   ledger,
		Costs:     DefaultCosts(),
	}
}

func TestPromptFlowHappyPath(t *testing.T) {
	model := &scriptedLLM{responses: []string{
		outlineJSON(t, "Quarterly sales review", 5),
		slidesJSON(t, 5),
	}}
	exporter := &fakeExporter{}
	ledger := &fakeLedger{balance: 10}
	orch := newOrchestrator(model, exporter, ledger)
	ctx := context.Background()

	res, err := orch.OutlineFromPrompt(ctx, PromptInput{
		UserID:      "user-1",
		Topic:       "Quarterly sales review",
		Preferences: deck.StyleConfig{SlideCount: 5},
	})
	require.NoError(t, err)
	require.Len(t, res.Outline.Outline, 5)
	for i, e := range res.Outline.Outline {
		assert.Equal(t, i+1, e.SlideNumber)
	}
	assert.Equal(t, StateAwaitingUserEdit, res.Run.State)
	assert.Equal(t, 9, res.RemainingCredits)

	fin, err := orch.Finalize(ctx, FinalizeInput{Run: res.Run, Outline: res.Outline})
	require.NoError(t, err)
	require.Len(t, fin.Slides, 5)
	for i, s := range fin.Slides {
		assert.Equal(t, res.Outline.Outline[i].SlideNumber, s.SlideNumber)
	}
	assert.Equal(t, 5, fin.Export.SlideCount)
	assert.NotEmpty(t, fin.Export.EditURL)
	assert.Equal(t, StateDone, res.Run.State)
	assert.Equal(t, 8, fin.RemainingCredits)
	assert.Equal(t, []string{"Quarterly sales review"}, exporter.titles)
}

func TestMalformedOutlineChargesNothing(t *testing.T) {
	model := &scriptedLLM{responses: []string{"not json"}}
	ledger := &fakeLedger{balance: 10}
	orch := newOrchestrator(model, &fakeExporter{}, ledger)

	res, err := orch.OutlineFromPrompt(context.Background(), PromptInput{UserID: "user-1", Topic: "Edge AI"})
	require.ErrorIs(t, err, deck.ErrMalformedResponse)
	require.ErrorIs(t, err, deck.ErrMalformedSyntax)
	assert.Equal(t, StateFailed, res.Run.State)
	assert.Equal(t, deck.KindMalformedResponse, res.Run.FailureKind)
	assert.Empty(t, res.Outline.Outline)
	assert.Zero(t, ledger.charged)
}

func TestInsufficientCreditsLeavesNoRun(t *testing.T) {
	model := &scriptedLLM{}
	orch := newOrchestrator(model, &fakeExporter{}, &fakeLedger{balance: 0})

	res, err := orch.OutlineFromPrompt(context.Background(), PromptInput{UserID: "user-1", Topic: "Edge AI"})
	var shortfall *credits.InsufficientError
	require.ErrorAs(t, err, &shortfall)
	assert.Equal(t, 1, shortfall.Required)
	assert.Nil(t, res.Run)
	assert.Empty(t, model.calls)
}

func TestInvalidStyleRejectedBeforeModelCall(t *testing.T) {
	model := &scriptedLLM{}
	orch := newOrchestrator(model, &fakeExporter{}, &fakeLedger{balance: 5})

	_, err := orch.OutlineFromPrompt(context.Background(), PromptInput{
		UserID:      "user-1",
		Topic:       "Edge AI",
		Preferences: deck.StyleConfig{Audience: "aliens"},
	})
	require.ErrorIs(t, err, deck.ErrInvalidStyle)
	assert.Empty(t, model.calls)
}

func TestDocumentFlowExtractionFailure(t *testing.T) {
	model := &scriptedLLM{}
	orch := newOrchestrator(model, &fakeExporter{}, &fakeLedger{balance: 5})
	orch.Extractor = fakeExtractor{err: deck.ExtractionFailure("extract.pdf", errors.New("corrupt"))}

	res, err := orch.OutlineFromDocument(context.Background(), DocumentInput{
		UserID:   "user-1",
		Data:     []byte("%PDF-broken"),
		MimeType: extract.MimePDF,
	})
	require.ErrorIs(t, err, deck.ErrExtractionFailure)
	assert.Equal(t, StateFailed, res.Run.State)
	assert.Equal(t, StateExtracting, res.Run.History[0].To)
	assert.Empty(t, model.calls)
}

func TestDocumentFlowPassesExtractedText(t *testing.T) {
	model := &scriptedLLM{responses: []string{outlineJSON(t, "Q3", 3)}}
	orch := newOrchestrator(model, &fakeExporter{}, &fakeLedger{balance: 5})

	res, err := orch.OutlineFromDocument(context.Background(), DocumentInput{
		UserID:      "user-1",
		Data:        []byte("%PDF"),
		MimeType:    extract.MimePDF,
		Preferences: deck.StyleConfig{SlideCount: 3},
	})
	require.NoError(t, err)
	assert.False(t, res.Advisory)
	require.Len(t, model.calls, 1)
	assert.Contains(t, model.calls[0].User, "Revenue grew 12% in Q3.")
	assert.Equal(t, []State{StateExtracting, StateRequestingOutline, StateAwaitingUserEdit}, states(res.Run))
}

func TestDocumentFlowAdvisoryUsesFileName(t *testing.T) {
	model := &scriptedLLM{responses: []string{outlineJSON(t, "Roadmap", 3)}}
	orch := newOrchestrator(model, &fakeExporter{}, &fakeLedger{balance: 5})
	orch.Extractor = fakeExtractor{text: extract.PPTXAdvisory}

	res, err := orch.OutlineFromDocument(context.Background(), DocumentInput{
		UserID:   "user-1",
		Data:     []byte("PK"),
		MimeType: extract.MimePPTX,
		FileName: "Roadmap 2027.pptx",
	})
	require.NoError(t, err)
	assert.True(t, res.Advisory)
	assert.Equal(t, "Roadmap 2027", res.Topic)
	assert.NotContains(t, model.calls[0].User, extract.PPTXAdvisory)
}

func TestFinalizeExportFailureKeepsSlides(t *testing.T) {
	model := &scriptedLLM{responses: []string{outlineJSON(t, "Deck", 3), slidesJSON(t, 3)}}
	exporter := &fakeExporter{err: deck.ExportFailure("export.fill", "pres-9", "slide count mismatch", nil)}
	ledger := &fakeLedger{balance: 5}
	orch := newOrchestrator(model, exporter, ledger)
	ctx := context.Background()

	res, err := orch.OutlineFromPrompt(ctx, PromptInput{UserID: "user-1", Topic: "Deck", Preferences: deck.StyleConfig{SlideCount: 3}})
	require.NoError(t, err)

	fin, err := orch.Finalize(ctx, FinalizeInput{Run: res.Run, Outline: res.Outline, Title: "Deck"})
	require.ErrorIs(t, err, deck.ErrExportFailure)
	assert.Equal(t, "pres-9", deck.PresentationIDOf(err))
	assert.Len(t, fin.Slides, 3)
	assert.Equal(t, StateFailed, res.Run.State)
	assert.Equal(t, 1, ledger.charged)
}

func TestFinalizeRequiresAwaitingUserEdit(t *testing.T) {
	orch := newOrchestrator(&scriptedLLM{}, &fakeExporter{}, nil)
	run := NewRun(FlowPrompt, "user-1")

	_, err := orch.Finalize(context.Background(), FinalizeInput{Run: run, Outline: deck.Outline{}})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIdle, run.State)
}

func TestFinalizeRejectsEditedOutlineWithGap(t *testing.T) {
	model := &scriptedLLM{}
	orch := newOrchestrator(model, &fakeExporter{}, nil)
	run := Resume("pres-1", FlowPrompt, "user-1", StateAwaitingUserEdit)
	edited := deck.Outline{Title: "Deck", Outline: []deck.OutlineEntry{
		{SlideNumber: 1, Title: "Intro", Type: deck.EntryTitle},
		{SlideNumber: 3, Title: "Gap", Type: deck.EntryContent},
	}}

	_, err := orch.Finalize(context.Background(), FinalizeInput{Run: run, Outline: edited})
	var oe *deck.OutlineError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, StateAwaitingUserEdit, run.State)
	assert.Empty(t, model.calls)
}

type blockingExpander struct{}

func (blockingExpander) Expand(ctx context.Context, o deck.Outline, opts expand.Options) ([]deck.DetailedSlide, error) {
	<-ctx.Done()
	return nil, deck.GenerationFailure("expand.request", ctx.Err())
}

func TestStagesIgnoreCallerCancellation(t *testing.T) {
	orch := &Orchestrator{
		Expander: blockingExpander{},
		Exporter: &fakeExporter{},
		Budgets:  Budgets{Generation: 50 * time.Millisecond},
	}
	run := Resume("pres-1", FlowPrompt, "user-1", StateAwaitingUserEdit)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := orch.Finalize(ctx, FinalizeInput{Run: run, Outline: deck.Outline{
		Title:   "Deck",
		Outline: []deck.OutlineEntry{{SlideNumber: 1, Title: "Intro", Type: deck.EntryTitle}},
	}})
	require.ErrorIs(t, err, deck.ErrGenerationFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func states(run *Run) []State {
	out := make([]State, 0, len(run.History))
	for _, tr := range run.History {
		out = append(out, tr.To)
	}
	return out
}

type recordingExpander struct {
	got expand.Options
}

func (r *recordingExpander) Expand(_ context.Context, o deck.Outline, opts expand.Options) ([]deck.DetailedSlide, error) {
	r.got = opts
	slides := make([]deck.DetailedSlide, len(o.Outline))
	for i, e := range o.Outline {
		slides[i] = deck.DetailedSlide{SlideNumber: e.SlideNumber, Title: e.Title}
	}
	return slides, nil
}

func TestFinalizePassesStrictToExpander(t *testing.T) {
	rec := &recordingExpander{}
	orch := &Orchestrator{Expander: rec, Exporter: &fakeExporter{}}
	run := Resume("pres-1", FlowPrompt, "user-1", StateAwaitingUserEdit)

	_, err := orch.Finalize(context.Background(), FinalizeInput{
		Run:            run,
		Title:          "Deck",
		SlideCountHint: 4,
		Strict:         true,
		Outline: deck.Outline{
			Title:   "Deck",
			Outline: []deck.OutlineEntry{{SlideNumber: 1, Title: "Intro", Type: deck.EntryTitle}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, expand.Options{Title: "Deck", SlideCountHint: 4, Strict: true}, rec.got)
	assert.Equal(t, StateDone, run.State)
}

func TestFinalizePersistFailureChargesNothing(t *testing.T) {
	ledger := &fakeLedger{balance: 5}
	orch := &Orchestrator{Expander: &recordingExpander{}, Exporter: &fakeExporter{}, Credits: ledger, Costs: DefaultCosts()}
	run := Resume("pres-1", FlowPrompt, "user-1", StateAwaitingUserEdit)
	storeDown := errors.New("store down")

	var persisted deck.ExportResult
	fin, err := orch.Finalize(context.Background(), FinalizeInput{
		Run: run,
		Outline: deck.Outline{
			Title:   "Deck",
			Outline: []deck.OutlineEntry{{SlideNumber: 1, Title: "Intro", Type: deck.EntryTitle}},
		},
		Persist: func(_ context.Context, res FinalizeResult) error {
			persisted = res.Export
			return storeDown
		},
	})
	require.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, storeDown)
	assert.Equal(t, fin.Export, persisted)
	assert.Equal(t, StateExporting, run.State)
	assert.Zero(t, ledger.charged)
}

func TestFinalizePersistsBeforeCharging(t *testing.T) {
	ledger := &fakeLedger{balance: 5}
	orch := &Orchestrator{Expander: &recordingExpander{}, Exporter: &fakeExporter{}, Credits: ledger, Costs: DefaultCosts()}
	run := Resume("pres-1", FlowPrompt, "user-1", StateAwaitingUserEdit)

	chargedAtPersist := -1
	fin, err := orch.Finalize(context.Background(), FinalizeInput{
		Run: run,
		Outline: deck.Outline{
			Title:   "Deck",
			Outline: []deck.OutlineEntry{{SlideNumber: 1, Title: "Intro", Type: deck.EntryTitle}},
		},
		Persist: func(context.Context, FinalizeResult) error {
			chargedAtPersist = ledger.charged
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, chargedAtPersist)
	assert.Equal(t, 1, ledger.charged)
	assert.Equal(t, 4, fin.RemainingCredits)
	assert.Equal(t, StateDone, run.State)
}
