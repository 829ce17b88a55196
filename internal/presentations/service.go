package presentations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"slidebanai-backend/internal/credits"
	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/pipeline"
	"slidebanai-backend/internal/queue"
	"slidebanai-backend/internal/shared/storage/object"
	"slidebanai-backend/internal/shared/telemetry"
)

// Pipeline is the orchestrator surface the service drives.
type Pipeline interface {
	OutlineFromPrompt(ctx context.Context, in pipeline.PromptInput) (pipeline.OutlineResult, error)
	OutlineFromDocument(ctx context.Context, in pipeline.DocumentInput) (pipeline.OutlineResult, error)
	Finalize(ctx context.Context, in pipeline.FinalizeInput) (pipeline.FinalizeResult, error)
}

// PreviewPublisher renders and serves slide previews.
type PreviewPublisher interface {
	Publish(ctx context.Context, presentationID, title string, slides []deck.DetailedSlide) ([]string, error)
	Open(ctx context.Context, presentationID string, n int) (io.ReadCloser, error)
}

// Balancer reports remaining credits.
type Balancer interface {
	Balance(ctx context.Context, userID string) (int, error)
}

// Service contains business logic for presentations.
type Service struct {
	Repo         Repo
	Pipeline     Pipeline
	Queue        queue.Client
	Previews     PreviewPublisher
	Credits      Balancer
	FinalizeCost int
}

// CreateFromPrompt generates an outline and stores it awaiting user edits. Nothing is
// stored when generation fails.
func (s *Service) CreateFromPrompt(ctx context.Context, userID string, in pipeline.PromptInput) (Created, error) {
	in.UserID = userID
	res, err := s.Pipeline.OutlineFromPrompt(ctx, in)
	if err != nil {
		return Created{}, err
	}
	return s.store(ctx, res, strings.TrimSpace(in.Topic))
}

// CreateFromDocument extracts text from an upload and generates an outline from it.
func (s *Service) CreateFromDocument(ctx context.Context, userID string, in pipeline.DocumentInput) (Created, error) {
	in.UserID = userID
	res, err := s.Pipeline.OutlineFromDocument(ctx, in)
	if err != nil {
		return Created{}, err
	}
	return s.store(ctx, res, res.Topic)
}

func (s *Service) store(ctx context.Context, res pipeline.OutlineResult, topic string) (Created, error) {
	now := time.Now().UTC()
	p := Presentation{
		ID:          res.Run.ID,
		UserID:      res.Run.UserID,
		Source:      res.Run.Flow,
		Topic:       topic,
		Title:       res.Outline.Title,
		Preferences: res.Preferences,
		Outline:     res.Outline,
		Status:      res.Run.State,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return Created{}, err
	}
	return Created{Presentation: p, RemainingCredits: res.RemainingCredits, Advisory: res.Advisory}, nil
}

// Get returns a presentation owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Presentation, error) {
	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Presentation{}, err
	}
	if p.UserID != userID {
		return Presentation{}, ErrNotFound
	}
	return p, nil
}

// List returns presentations for a user.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Presentation, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// UpdateOutline replaces the outline with a user-edited one.
func (s *Service) UpdateOutline(ctx context.Context, userID, id string, outline deck.Outline) (Presentation, error) {
	if err := outline.Validate(); err != nil {
		return Presentation{}, err
	}
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return Presentation{}, err
	}
	if p.Status != pipeline.StateAwaitingUserEdit {
		return Presentation{}, ErrConflict
	}
	if err := s.Repo.UpdateOutline(ctx, id, outline); err != nil {
		return Presentation{}, err
	}
	p.Outline = outline
	return p, nil
}

// Finalize claims the presentation and schedules expansion and export, either on the
// queue or in a background goroutine. Only one finalize can win the claim.
func (s *Service) Finalize(ctx context.Context, userID, id, title string, slideCountHint int) (Presentation, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return Presentation{}, err
	}
	if p.Status != pipeline.StateAwaitingUserEdit {
		return Presentation{}, ErrConflict
	}
	if s.Credits != nil && s.FinalizeCost > 0 {
		available, err := s.Credits.Balance(ctx, userID)
		if err != nil {
			return Presentation{}, err
		}
		if available < s.FinalizeCost {
			return Presentation{}, &credits.InsufficientError{Required: s.FinalizeCost, Available: available}
		}
	}

	title = strings.TrimSpace(title)
	if err := s.Repo.BeginFinalize(ctx, id, title, slideCountHint); err != nil {
		return Presentation{}, err
	}
	p.Status = pipeline.StateExpandingSlides
	if title != "" {
		p.Title = title
	}
	p.SlideCountHint = slideCountHint
	logTransition(ctx, p.ID, pipeline.StateAwaitingUserEdit, pipeline.StateExpandingSlides)

	if s.Queue == nil {
		go func(bg context.Context) {
			if _, err := s.ProcessFinalize(bg, id); err != nil {
				telemetry.Error("presentation.finalize_async_failed", map[string]any{
					"presentation_id": id,
					"request_id":      RequestIDFromContext(bg),
					"error":           err.Error(),
				})
			}
		}(backgroundWithRequestID(ctx))
		return p, nil
	}

	msg := queue.Message{
		PresentationID: id,
		RequestID:      RequestIDFromContext(ctx),
		EnqueuedAt:     time.Now().UTC().Format(time.RFC3339),
		Version:        queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		if rerr := s.Repo.RevertFinalize(context.WithoutCancel(ctx), id); rerr != nil {
			telemetry.Error("presentation.revert_failed", map[string]any{
				"presentation_id": id,
				"error":           rerr.Error(),
			})
		}
		return Presentation{}, fmt.Errorf("enqueue finalize: %w", err)
	}
	telemetry.Info("presentation.finalize_enqueued", map[string]any{
		"presentation_id": id,
		"request_id":      msg.RequestID,
	})
	return p, nil
}

// ProcessFinalize runs expansion and export for a claimed presentation and returns the
// state it ended in. Only claimed presentations are processed; an exporting record is one
// whose previous attempt stopped mid-export and is run again.
// A nil error means the outcome is stored. An error means the record could not be
// settled and the job should be retried; a retry after a stored-result failure exports
// again, so remote decks are created at least once rather than exactly once.
func (s *Service) ProcessFinalize(ctx context.Context, id string) (pipeline.State, error) {
	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !finalizeClaimed(p.Status) {
		telemetry.Info("presentation.finalize_skipped", map[string]any{
			"presentation_id": id,
			"status":          string(p.Status),
			"request_id":      RequestIDFromContext(ctx),
		})
		return p.Status, nil
	}

	var failedPersistErr error
	run := pipeline.Resume(p.ID, p.Source, p.UserID, pipeline.StateAwaitingUserEdit)
	run.OnTransition = func(tr pipeline.Transition) {
		switch tr.To {
		case pipeline.StateExpandingSlides, pipeline.StateDone:
			// persisted by BeginFinalize and SaveResult
			return
		}
		kind, msg := "", ""
		if tr.To == pipeline.StateFailed {
			kind, msg = string(run.FailureKind), run.FailureReason
		}
		err := s.Repo.UpdateStatus(context.WithoutCancel(ctx), id, tr.To, kind, msg)
		if tr.To == pipeline.StateFailed {
			failedPersistErr = err
		}
		if err != nil {
			telemetry.Error("presentation.status_update_failed", map[string]any{
				"presentation_id": id,
				"status":          string(tr.To),
				"error":           err.Error(),
			})
		}
	}

	res, err := s.Pipeline.Finalize(ctx, pipeline.FinalizeInput{
		Run:            run,
		Outline:        p.Outline,
		Title:          p.Title,
		SlideCountHint: p.SlideCountHint,
		Strict:         p.Preferences.Strict,
		Persist: func(pctx context.Context, fin pipeline.FinalizeResult) error {
			if err := s.Repo.SaveSlides(pctx, id, fin.Slides); err != nil {
				return err
			}
			keys := s.publishPreviews(pctx, p, fin.Slides)
			return s.Repo.SaveResult(pctx, id, fin.Export, keys)
		},
	})
	if err != nil && !errors.Is(err, pipeline.ErrPersist) && len(res.Slides) > 0 {
		if serr := s.Repo.SaveSlides(context.WithoutCancel(ctx), id, res.Slides); serr != nil {
			telemetry.Error("presentation.save_slides_failed", map[string]any{
				"presentation_id": id,
				"error":           serr.Error(),
			})
		}
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrPersist) {
			if rerr := s.Repo.UpdateStatus(context.WithoutCancel(ctx), id, pipeline.StateExpandingSlides, "", ""); rerr != nil {
				telemetry.Error("presentation.status_update_failed", map[string]any{
					"presentation_id": id,
					"status":          string(pipeline.StateExpandingSlides),
					"error":           rerr.Error(),
				})
			}
			return pipeline.StateExpandingSlides, err
		}
		if run.State != pipeline.StateFailed || failedPersistErr != nil {
			// Either rejected before any stage ran, e.g. credits spent since the claim,
			// or the failure was not stored by the transition hook.
			uerr := s.Repo.UpdateStatus(context.WithoutCancel(ctx), id, pipeline.StateFailed, failureKind(err), err.Error())
			if uerr != nil {
				return pipeline.StateExpandingSlides, fmt.Errorf("record finalize failure: %w", uerr)
			}
		}
		return pipeline.StateFailed, nil
	}

	telemetry.Info("presentation.finalized", map[string]any{
		"presentation_id":   id,
		"export_id":         res.Export.PresentationID,
		"slide_count":       res.Export.SlideCount,
		"remaining_credits": res.RemainingCredits,
		"request_id":        RequestIDFromContext(ctx),
	})
	return pipeline.StateDone, nil
}

// RemainingCredits reports the caller's current balance. ok is false when credits are
// not tracked or the ledger could not be read.
func (s *Service) RemainingCredits(ctx context.Context, userID string) (remaining int, ok bool) {
	if s.Credits == nil {
		return 0, false
	}
	remaining, err := s.Credits.Balance(ctx, userID)
	if err != nil {
		telemetry.Warn("credits.balance_failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return 0, false
	}
	return remaining, true
}

// publishPreviews never fails the pipeline; errors are logged and no keys are kept.
func (s *Service) publishPreviews(ctx context.Context, p Presentation, slides []deck.DetailedSlide) []string {
	if s.Previews == nil {
		return nil
	}
	keys, err := s.Previews.Publish(ctx, p.ID, p.Title, slides)
	if err != nil {
		telemetry.Warn("preview.failed", map[string]any{
			"presentation_id": p.ID,
			"error":           err.Error(),
		})
		return nil
	}
	return keys
}

// OpenPreview returns the SVG for slide n (1-based).
func (s *Service) OpenPreview(ctx context.Context, userID, id string, n int) (io.ReadCloser, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if s.Previews == nil || n < 1 || n > len(p.PreviewKeys) {
		return nil, ErrNotFound
	}
	rc, err := s.Previews.Open(ctx, id, n)
	if errors.Is(err, object.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rc, err
}

func finalizeClaimed(status pipeline.State) bool {
	return status == pipeline.StateExpandingSlides || status == pipeline.StateExporting
}

func failureKind(err error) string {
	if k := deck.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, credits.ErrInsufficient) {
		return "insufficient_credits"
	}
	return "internal"
}

func logTransition(ctx context.Context, id string, from, to pipeline.State) {
	telemetry.Info("status_transition", map[string]any{
		"presentation_id": id,
		"from":            string(from),
		"to":              string(to),
		"request_id":      RequestIDFromContext(ctx),
	})
}
