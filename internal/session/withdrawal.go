package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aleksamitic110/assessly/internal/config"
	"github.com/aleksamitic110/assessly/internal/store"
)

// WithdrawalTracker records per-student withdrawal intent scoped to a
// session identifier. Restarting a session mints a new id, so withdrawals
// from a previous attempt go stale and are forgiven on first read — no
// cleanup sweep needed.
type WithdrawalTracker struct {
	store store.StateStore
	ttl   time.Duration
}

// NewWithdrawalTracker creates a WithdrawalTracker.
func NewWithdrawalTracker(st store.StateStore, ttl time.Duration) *WithdrawalTracker {
	return &WithdrawalTracker{store: st, ttl: ttl}
}

// Record stamps the student's withdrawal with the live session id, or the
// sentinel when no session is live.
func (t *WithdrawalTracker) Record(ctx context.Context, examID uuid.UUID, studentID int) error {
	id := examID.String()

	stamp, err := t.store.Get(ctx, config.StateKey.ExamSessionIDKey(id))
	if errors.Is(err, store.ErrNotFound) {
		stamp = WithdrawalSentinel
	} else if err != nil {
		return fmt.Errorf("read live session id: %w", err)
	}

	key := config.StateKey.StudentWithdrawnKey(id, studentID)
	if err := t.store.Set(ctx, key, stamp, t.ttl); err != nil {
		return fmt.Errorf("record withdrawal: %w", err)
	}
	return nil
}

// IsWithdrawn reports whether the student's withdrawal is valid for the
// live session. A stamp from a superseded session is deleted and reported
// as not withdrawn.
func (t *WithdrawalTracker) IsWithdrawn(ctx context.Context, examID uuid.UUID, studentID int) (bool, error) {
	id := examID.String()
	key := config.StateKey.StudentWithdrawnKey(id, studentID)

	stamp, err := t.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read withdrawal: %w", err)
	}

	live, err := t.store.Get(ctx, config.StateKey.ExamSessionIDKey(id))
	if errors.Is(err, store.ErrNotFound) {
		live = WithdrawalSentinel
	} else if err != nil {
		return false, fmt.Errorf("read live session id: %w", err)
	}

	if stamp != live {
		// Stale: recorded under a session that has since been superseded.
		if err := t.store.Del(ctx, key); err != nil {
			return false, fmt.Errorf("clear stale withdrawal: %w", err)
		}
		return false, nil
	}
	return true, nil
}
