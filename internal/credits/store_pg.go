package credits

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"slidebanai-backend/internal/shared/storage/db"
)

// PGStore keeps ledgers in the credits table, locking the row for every change.
type PGStore struct {
	DB   *sql.DB
	Plan Plan
	now  func() time.Time
}

// NewPGStore constructs a Postgres-backed credit store.
func NewPGStore(db *sql.DB, plan Plan) *PGStore {
	return &PGStore{DB: db, Plan: plan, now: time.Now}
}

func (s *PGStore) Ensure(ctx context.Context, userID string) (Ledger, error) {
	var l Ledger
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		l, err = s.lockAndEnsure(ctx, tx, userID)
		return err
	})
	if err != nil {
		return Ledger{}, err
	}
	return l, nil
}

func (s *PGStore) Charge(ctx context.Context, userID string, n int) (Ledger, error) {
	if n <= 0 {
		return s.Ensure(ctx, userID)
	}
	var l Ledger
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		l, err = s.lockAndEnsure(ctx, tx, userID)
		if err != nil {
			return err
		}
		if l.Used+n > l.Limit {
			return &InsufficientError{Required: n, Available: l.Remaining()}
		}
		l.Used += n
		_, err = tx.ExecContext(ctx, `
UPDATE credits SET used = $1, updated_at = $2 WHERE user_id = $3`, l.Used, s.now().UTC(), userID)
		return err
	})
	if err != nil {
		return Ledger{}, err
	}
	return l, nil
}

func (s *PGStore) Reset(ctx context.Context, userID string) (Ledger, error) {
	now := s.now().UTC()
	l := s.Plan.fresh(now)
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO credits (user_id, plan, limit_amount, used, resets_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET used = 0, resets_at = EXCLUDED.resets_at, updated_at = EXCLUDED.updated_at`,
		userID, l.Plan, l.Limit, l.ResetsAt, now)
	if err != nil {
		return Ledger{}, err
	}
	return l, nil
}

func (s *PGStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (Ledger, error) {
	now := s.now().UTC()
	var l Ledger
	row := tx.QueryRowContext(ctx, `
SELECT plan, limit_amount, used, resets_at FROM credits WHERE user_id = $1 FOR UPDATE`, userID)
	err := row.Scan(&l.Plan, &l.Limit, &l.Used, &l.ResetsAt)
	if errors.Is(err, sql.ErrNoRows) {
		l = s.Plan.fresh(now)
		if _, err := tx.ExecContext(ctx, `
INSERT INTO credits (user_id, plan, limit_amount, used, resets_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, l.Plan, l.Limit, l.Used, l.ResetsAt, now); err != nil {
			return Ledger{}, err
		}
		return l, nil
	}
	if err != nil {
		return Ledger{}, err
	}

	if rolled, changed := s.Plan.rollover(l, now); changed {
		l = rolled
		if _, err := tx.ExecContext(ctx, `
UPDATE credits SET used = $1, resets_at = $2, updated_at = $3 WHERE user_id = $4`, l.Used, l.ResetsAt, now, userID); err != nil {
			return Ledger{}, err
		}
	}
	return l, nil
}
