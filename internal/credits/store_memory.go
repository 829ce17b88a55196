package credits

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	plan Plan
	now  func() time.Time
	data map[string]Ledger
}

func newMemoryStore(plan Plan, now func() time.Time) *memoryStore {
	return &memoryStore{plan: plan, now: now, data: make(map[string]Ledger)}
}

func (s *memoryStore) Ensure(ctx context.Context, userID string) (Ledger, error) {
	if err := ctx.Err(); err != nil {
		return Ledger{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(userID), nil
}

func (s *memoryStore) current(userID string) Ledger {
	now := s.now().UTC()
	l, ok := s.data[userID]
	if !ok {
		l = s.plan.fresh(now)
	}
	l, _ = s.plan.rollover(l, now)
	s.data[userID] = l
	return l
}

func (s *memoryStore) Charge(ctx context.Context, userID string, n int) (Ledger, error) {
	if err := ctx.Err(); err != nil {
		return Ledger{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.current(userID)
	if n <= 0 {
		return l, nil
	}
	if l.Used+n > l.Limit {
		return Ledger{}, &InsufficientError{Required: n, Available: l.Remaining()}
	}
	l.Used += n
	s.data[userID] = l
	return l, nil
}

func (s *memoryStore) Reset(ctx context.Context, userID string) (Ledger, error) {
	if err := ctx.Err(); err != nil {
		return Ledger{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.current(userID)
	l.Used = 0
	l.ResetsAt = s.now().UTC().Add(s.plan.Period)
	s.data[userID] = l
	return l, nil
}
