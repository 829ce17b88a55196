package credits

import (
	"context"
	"time"

	"slidebanai-backend/internal/shared/telemetry"
)

type store interface {
	Ensure(ctx context.Context, userID string) (Ledger, error)
	Charge(ctx context.Context, userID string, n int) (Ledger, error)
	Reset(ctx context.Context, userID string) (Ledger, error)
}

// Service is the per-user credit ledger.
type Service struct {
	store store
}

// NewService constructs a Service with an in-memory store.
func NewService(plan Plan) *Service {
	return &Service{store: newMemoryStore(plan, time.Now)}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore *PGStore) *Service {
	return &Service{store: pgStore}
}

// Get returns the ledger, starting a new period if the old one expired.
func (s *Service) Get(ctx context.Context, userID string) (Ledger, error) {
	return s.store.Ensure(ctx, userID)
}

// Balance returns the remaining credits.
func (s *Service) Balance(ctx context.Context, userID string) (int, error) {
	l, err := s.store.Ensure(ctx, userID)
	if err != nil {
		return 0, err
	}
	return l.Remaining(), nil
}

// Charge deducts n credits and returns what remains, or *InsufficientError.
func (s *Service) Charge(ctx context.Context, userID string, n int) (int, error) {
	l, err := s.store.Charge(ctx, userID, n)
	if err != nil {
		return 0, err
	}
	telemetry.Info("credits.charged", map[string]any{
		"user_id":   userID,
		"amount":    n,
		"remaining": l.Remaining(),
	})
	return l.Remaining(), nil
}

// Reset clears usage and restarts the period.
func (s *Service) Reset(ctx context.Context, userID string) (Ledger, error) {
	return s.store.Reset(ctx, userID)
}
