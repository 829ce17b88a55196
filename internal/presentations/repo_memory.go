package presentations

import (
	"context"
	"sort"
	"sync"
	"time"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/pipeline"
)

// MemoryRepo stores presentations in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Presentation
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Presentation)}
}

func (r *MemoryRepo) Create(ctx context.Context, p Presentation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = clonePresentation(p)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Presentation, error) {
	if err := ctx.Err(); err != nil {
		return Presentation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return Presentation{}, ErrNotFound
	}
	return clonePresentation(p), nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Presentation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.RLock()
	var all []Presentation
	for _, p := range r.byID {
		if p.UserID == userID {
			all = append(all, clonePresentation(p))
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []Presentation{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryRepo) UpdateOutline(ctx context.Context, id string, outline deck.Outline) error {
	return r.mutate(ctx, id, func(p *Presentation) error {
		if p.Status != pipeline.StateAwaitingUserEdit {
			return ErrConflict
		}
		p.Outline = outline.Clone()
		return nil
	})
}

func (r *MemoryRepo) BeginFinalize(ctx context.Context, id, title string, slideCountHint int) error {
	return r.mutate(ctx, id, func(p *Presentation) error {
		if p.Status != pipeline.StateAwaitingUserEdit {
			return ErrConflict
		}
		p.Status = pipeline.StateExpandingSlides
		if title != "" {
			p.Title = title
		}
		p.SlideCountHint = slideCountHint
		return nil
	})
}

func (r *MemoryRepo) RevertFinalize(ctx context.Context, id string) error {
	return r.mutate(ctx, id, func(p *Presentation) error {
		if p.Status != pipeline.StateExpandingSlides {
			return ErrConflict
		}
		p.Status = pipeline.StateAwaitingUserEdit
		return nil
	})
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, status pipeline.State, failureKind, failureMessage string) error {
	return r.mutate(ctx, id, func(p *Presentation) error {
		p.Status = status
		if failureKind != "" {
			p.FailureKind = failureKind
		}
		if failureMessage != "" {
			p.FailureMessage = failureMessage
		}
		return nil
	})
}

func (r *MemoryRepo) SaveSlides(ctx context.Context, id string, slides []deck.DetailedSlide) error {
	return r.mutate(ctx, id, func(p *Presentation) error {
		p.Slides = append([]deck.DetailedSlide(nil), slides...)
		return nil
	})
}

func (r *MemoryRepo) SaveResult(ctx context.Context, id string, export deck.ExportResult, previewKeys []string) error {
	return r.mutate(ctx, id, func(p *Presentation) error {
		p.Status = pipeline.StateDone
		p.Export = &export
		p.PreviewKeys = append([]string(nil), previewKeys...)
		return nil
	})
}

func (r *MemoryRepo) mutate(ctx context.Context, id string, fn func(p *Presentation) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	r.byID[id] = p
	return nil
}

func clonePresentation(p Presentation) Presentation {
	p.Outline = p.Outline.Clone()
	p.Slides = append([]deck.DetailedSlide(nil), p.Slides...)
	p.PreviewKeys = append([]string(nil), p.PreviewKeys...)
	if p.Export != nil {
		exp := *p.Export
		p.Export = &exp
	}
	return p
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ Repo = (*MemoryRepo)(nil)
