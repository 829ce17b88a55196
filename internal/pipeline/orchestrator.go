package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"slidebanai-backend/internal/credits"
	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/expand"
	"slidebanai-backend/internal/extract"
	"slidebanai-backend/internal/outline"
	"slidebanai-backend/internal/shared/metrics"
	"slidebanai-backend/internal/shared/telemetry"
)

var errNoText = errors.New("document contains no text")

// ErrPersist reports that an export succeeded but could not be stored.
var ErrPersist = errors.New("persist export")

type Extractor interface {
	ExtractFile(ctx context.Context, data []byte, mimeType, fileName string) (string, error)
}

type OutlineRequester interface {
	Request(ctx context.Context, in outline.Input) (deck.Outline, error)
}

type SlideExpander interface {
	Expand(ctx context.Context, o deck.Outline, opts expand.Options) ([]deck.DetailedSlide, error)
}

type DeckExporter interface {
	Export(ctx context.Context, title string, slides []deck.DetailedSlide) (deck.ExportResult, error)
}

// CreditLedger is the billing collaborator queried before and charged after each flow.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Charge(ctx context.Context, userID string, n int) (int, error)
}

// Budgets bound each external stage.
type Budgets struct {
	Extraction time.Duration
	Generation time.Duration
	Export     time.Duration
}

func DefaultBudgets() Budgets {
	return Budgets{Extraction: 2 * time.Minute, Generation: time.Minute, Export: 2 * time.Minute}
}

// Costs are the credits charged per successful flow.
type Costs struct {
	Outline  int
	Finalize int
}

func DefaultCosts() Costs {
	return Costs{Outline: 1, Finalize: 1}
}

// Orchestrator sequences extraction, outline, expansion and export. Stages run strictly
// one after another; separate runs share nothing but the injected clients.
type Orchestrator struct {
	Extractor Extractor
	Outliner  OutlineRequester
	Expander  SlideExpander
	Exporter  DeckExporter
	Credits   CreditLedger
	Limits    deck.SlideLimits
	Budgets   Budgets
	Costs     Costs
}

type PromptInput struct {
	UserID      string
	Topic       string
	Description string
	Preferences deck.StyleConfig
}

type DocumentInput struct {
	UserID      string
	Topic       string
	Data        []byte
	MimeType    string
	FileName    string
	Preferences deck.StyleConfig
}

type OutlineResult struct {
	Run              *Run
	Outline          deck.Outline
	Preferences      deck.StyleConfig
	Topic            string
	Advisory         bool
	RemainingCredits int
}

type FinalizeInput struct {
	Run            *Run
	Outline        deck.Outline
	Title          string
	SlideCountHint int
	Strict         bool

	// Persist stores a successful export before credits are charged. When it fails the
	// run stays in Exporting and nothing is charged.
	Persist func(ctx context.Context, res FinalizeResult) error
}

// FinalizeResult carries the expanded slides even when export fails, so they can be kept.
type FinalizeResult struct {
	Slides           []deck.DetailedSlide
	Export           deck.ExportResult
	RemainingCredits int
}

// OutlineFromPrompt runs Idle -> RequestingOutline -> AwaitingUserEdit.
func (o *Orchestrator) OutlineFromPrompt(ctx context.Context, in PromptInput) (OutlineResult, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" && strings.TrimSpace(in.Description) == "" {
		return OutlineResult{}, outline.ErrEmptyInput
	}
	prefs, err := in.Preferences.Normalize(o.limits())
	if err != nil {
		return OutlineResult{}, err
	}
	if err := o.precheck(ctx, in.UserID, o.Costs.Outline); err != nil {
		return OutlineResult{}, err
	}

	run := NewRun(FlowPrompt, in.UserID)
	result, err := o.requestOutline(ctx, run, outline.Input{
		Topic:       topic,
		SourceText:  in.Description,
		Preferences: prefs,
	})
	if err != nil {
		return OutlineResult{Run: run}, err
	}
	result.Topic = topic
	return result, nil
}

// OutlineFromDocument runs Idle -> Extracting -> RequestingOutline -> AwaitingUserEdit.
// A PowerPoint upload yields the advisory text; the run continues from the topic
// (or the file name) and the result is flagged.
func (o *Orchestrator) OutlineFromDocument(ctx context.Context, in DocumentInput) (OutlineResult, error) {
	if len(in.Data) == 0 {
		return OutlineResult{}, outline.ErrEmptyInput
	}
	prefs, err := in.Preferences.Normalize(o.limits())
	if err != nil {
		return OutlineResult{}, err
	}
	if err := o.precheck(ctx, in.UserID, o.Costs.Outline); err != nil {
		return OutlineResult{}, err
	}

	run := NewRun(FlowDocument, in.UserID)
	var text string
	err = o.stage(ctx, run, StateExtracting, o.budgets().Extraction, func(sctx context.Context) error {
		var err error
		text, err = o.Extractor.ExtractFile(sctx, in.Data, in.MimeType, in.FileName)
		return err
	})
	if err != nil {
		metrics.RecordRun(string(run.Flow), string(StateFailed))
		return OutlineResult{Run: run}, err
	}

	topic := strings.TrimSpace(in.Topic)
	advisory := extract.IsAdvisory(text)
	if advisory {
		text = ""
		if topic == "" {
			topic = strings.TrimSuffix(filepath.Base(in.FileName), filepath.Ext(in.FileName))
		}
	}
	if topic == "" && strings.TrimSpace(text) == "" {
		err := deck.ExtractionFailure("extract", errNoText)
		run.Fail(err)
		metrics.RecordRun(string(run.Flow), string(StateFailed))
		return OutlineResult{Run: run}, err
	}

	result, err := o.requestOutline(ctx, run, outline.Input{
		Topic:       topic,
		SourceText:  text,
		Preferences: prefs,
	})
	if err != nil {
		return OutlineResult{Run: run}, err
	}
	result.Topic = topic
	result.Advisory = advisory
	return result, nil
}

func (o *Orchestrator) requestOutline(ctx context.Context, run *Run, in outline.Input) (OutlineResult, error) {
	var out deck.Outline
	err := o.stage(ctx, run, StateRequestingOutline, o.budgets().Generation, func(sctx context.Context) error {
		var err error
		out, err = o.Outliner.Request(sctx, in)
		return err
	})
	if err != nil {
		metrics.RecordRun(string(run.Flow), string(StateFailed))
		return OutlineResult{}, err
	}
	if err := run.Advance(StateAwaitingUserEdit, ""); err != nil {
		return OutlineResult{}, err
	}
	metrics.RecordRun(string(run.Flow), string(StateAwaitingUserEdit))

	remaining := o.charge(ctx, run.UserID, o.Costs.Outline)
	return OutlineResult{
		Run:              run,
		Outline:          out,
		Preferences:      in.Preferences,
		RemainingCredits: remaining,
	}, nil
}

// Finalize runs AwaitingUserEdit -> ExpandingSlides -> Exporting -> Done on an outline
// that may have been edited by the user. Insufficient credits leave the run untouched.
func (o *Orchestrator) Finalize(ctx context.Context, in FinalizeInput) (FinalizeResult, error) {
	run := in.Run
	if run == nil {
		return FinalizeResult{}, errors.New("finalize: run is required")
	}
	if run.State != StateAwaitingUserEdit {
		return FinalizeResult{}, fmt.Errorf("%w: finalize from %s", ErrInvalidTransition, run.State)
	}
	if err := in.Outline.Validate(); err != nil {
		return FinalizeResult{}, err
	}
	if err := o.precheck(ctx, run.UserID, o.Costs.Finalize); err != nil {
		return FinalizeResult{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.Outline.Title
	}

	var res FinalizeResult
	err := o.stage(ctx, run, StateExpandingSlides, o.budgets().Generation, func(sctx context.Context) error {
		var err error
		res.Slides, err = o.Expander.Expand(sctx, in.Outline, expand.Options{
			Title:          title,
			SlideCountHint: in.SlideCountHint,
			Strict:         in.Strict,
		})
		return err
	})
	if err != nil {
		metrics.RecordRun(string(run.Flow), string(StateFailed))
		return res, err
	}

	err = o.stage(ctx, run, StateExporting, o.budgets().Export, func(sctx context.Context) error {
		var err error
		res.Export, err = o.Exporter.Export(sctx, title, res.Slides)
		return err
	})
	if err != nil {
		metrics.RecordRun(string(run.Flow), string(StateFailed))
		return res, err
	}
	metrics.AddExportedSlides(res.Export.SlideCount)
	if in.Persist != nil {
		if err := in.Persist(context.WithoutCancel(ctx), res); err != nil {
			return res, fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}
	if err := run.Advance(StateDone, ""); err != nil {
		return res, err
	}
	metrics.RecordRun(string(run.Flow), string(StateDone))

	res.RemainingCredits = o.charge(ctx, run.UserID, o.Costs.Finalize)
	return res, nil
}

// stage advances run into state and runs fn detached from the caller's cancellation,
// bounded only by budget. A failing fn moves the run to Failed.
func (o *Orchestrator) stage(ctx context.Context, run *Run, state State, budget time.Duration, fn func(context.Context) error) error {
	if err := run.Advance(state, ""); err != nil {
		return err
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)
	defer cancel()

	start := time.Now()
	err := fn(sctx)
	kind := ""
	if err != nil {
		kind = string(deck.KindOf(err))
		if kind == "" {
			kind = "unknown"
		}
		run.Fail(err)
	}
	metrics.ObserveStage(string(state), time.Since(start), kind)
	return err
}

func (o *Orchestrator) precheck(ctx context.Context, userID string, cost int) error {
	if o.Credits == nil || cost <= 0 {
		return nil
	}
	available, err := o.Credits.Balance(ctx, userID)
	if err != nil {
		return err
	}
	if available < cost {
		return &credits.InsufficientError{Required: cost, Available: available}
	}
	return nil
}

// charge bills a completed flow. The work already succeeded, so a ledger error is
// logged and the last known balance is reported.
func (o *Orchestrator) charge(ctx context.Context, userID string, cost int) int {
	if o.Credits == nil {
		return 0
	}
	ctx = context.WithoutCancel(ctx)
	remaining, err := o.Credits.Charge(ctx, userID, cost)
	if err == nil {
		return remaining
	}
	telemetry.Warn("credits.charge_failed", map[string]any{
		"user_id": userID,
		"amount":  cost,
		"error":   err.Error(),
	})
	balance, berr := o.Credits.Balance(ctx, userID)
	if berr != nil {
		return 0
	}
	return balance
}

func (o *Orchestrator) limits() deck.SlideLimits {
	if o.Limits.Max == 0 {
		return deck.DefaultSlideLimits()
	}
	return o.Limits
}

func (o *Orchestrator) budgets() Budgets {
	b := o.Budgets
	d := DefaultBudgets()
	if b.Extraction <= 0 {
		b.Extraction = d.Extraction
	}
	if b.Generation <= 0 {
		b.Generation = d.Generation
	}
	if b.Export <= 0 {
		b.Export = d.Export
	}
	return b
}
