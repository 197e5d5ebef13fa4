package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aleksamitic110/assessly/internal/config"
	"github.com/aleksamitic110/assessly/internal/store"
)

// Resolver derives the single canonical session state for an exam from the
// ephemeral store. It is safe to call concurrently from many requests: its
// only mutation is the lazy active→completed write, which is idempotent.
type Resolver struct {
	store       store.StateStore
	archive     SubmissionArchive
	withdrawals *WithdrawalTracker
	ttl         time.Duration
	now         func() time.Time
	log         zerolog.Logger

	// onComplete, when set, fires once per observed lazy completion so the
	// auto-submit sweep can also run from this path. The explicit End
	// command remains the primary trigger.
	onComplete func(examID uuid.UUID, sessionID string)
}

// NewResolver creates a Resolver. archive and withdrawals are only needed
// for the per-student overlay; Resolve itself never touches them.
func NewResolver(st store.StateStore, archive SubmissionArchive, withdrawals *WithdrawalTracker, ttl time.Duration, log zerolog.Logger) *Resolver {
	return &Resolver{
		store:       st,
		archive:     archive,
		withdrawals: withdrawals,
		ttl:         ttl,
		now:         time.Now,
		log:         log.With().Str("component", "resolver").Logger(),
	}
}

// SetClock replaces the resolver's time source. Test helper.
func (r *Resolver) SetClock(now func() time.Time) { r.now = now }

// OnComplete registers a hook fired (in a new goroutine) when the resolver
// performs the lazy completion write.
func (r *Resolver) OnComplete(fn func(examID uuid.UUID, sessionID string)) { r.onComplete = fn }

// Resolve computes the current status and remaining time for an exam.
// scheduledStart may be nil for unscheduled exams, which then sit in
// waiting_start until the professor starts them.
func (r *Resolver) Resolve(ctx context.Context, examID uuid.UUID, scheduledStart *time.Time) (*Snapshot, error) {
	id := examID.String()

	vals, err := r.store.MGet(ctx,
		config.StateKey.ExamStatusKey(id),
		config.StateKey.ExamEndTimeKey(id),
		config.StateKey.ExamRemainingMSKey(id),
		config.StateKey.ExamSessionIDKey(id),
	)
	if err != nil {
		return nil, fmt.Errorf("read session state: %w", err)
	}

	var status Status
	if vals[0] != nil {
		status = Status(*vals[0])
	}
	sessionID := ""
	if vals[3] != nil {
		sessionID = *vals[3]
	}

	switch status {
	case StatusActive:
		if vals[1] == nil {
			// Active without an end_time should not happen. Report active
			// with no time left and leave the store untouched; only an
			// expired clock or an explicit command may complete a session.
			return &Snapshot{Status: StatusActive, SessionID: sessionID}, nil
		}
		endMS, ok := parseMS(*vals[1])
		if !ok {
			return nil, fmt.Errorf("malformed end_time for exam %s", id)
		}
		remaining := endMS - r.now().UnixMilli()
		if remaining <= 0 {
			return r.completeLazily(ctx, examID, sessionID)
		}
		return &Snapshot{
			Status:           StatusActive,
			RemainingSeconds: ceilSeconds(remaining),
			RemainingMS:      remaining,
			SessionID:        sessionID,
		}, nil

	case StatusPaused:
		var remaining int64
		if vals[2] != nil {
			if ms, ok := parseMS(*vals[2]); ok && ms > 0 {
				remaining = ms
			}
		}
		return &Snapshot{
			Status:           StatusPaused,
			RemainingSeconds: ceilSeconds(remaining),
			RemainingMS:      remaining,
			SessionID:        sessionID,
		}, nil

	case StatusCompleted:
		return &Snapshot{Status: StatusCompleted, SessionID: sessionID}, nil

	default:
		// No session footprint: status is derived from the schedule alone.
		if scheduledStart != nil && r.now().Before(*scheduledStart) {
			return &Snapshot{Status: StatusWaitRoom}, nil
		}
		return &Snapshot{Status: StatusWaitingStart}, nil
	}
}

// completeLazily records the active→completed transition. This is the only
// place completion is decided; writing completed twice is harmless, so
// concurrent resolvers racing here are fine.
func (r *Resolver) completeLazily(ctx context.Context, examID uuid.UUID, sessionID string) (*Snapshot, error) {
	id := examID.String()
	if err := r.store.Set(ctx, config.StateKey.ExamStatusKey(id), string(StatusCompleted), r.ttl); err != nil {
		return nil, fmt.Errorf("lazy completion: %w", err)
	}
	r.log.Info().Str("exam_id", id).Str("session_id", sessionID).Msg("Session completed by clock expiry")
	if r.onComplete != nil && sessionID != "" {
		go r.onComplete(examID, sessionID)
	}
	return &Snapshot{Status: StatusCompleted, SessionID: sessionID}, nil
}

// ResolveForStudent applies the per-student overlays on top of Resolve:
// a finalized submission wins over everything, a withdrawal valid for the
// live session reports withdrawn, and a stale withdrawal is discarded.
func (r *Resolver) ResolveForStudent(ctx context.Context, examID uuid.UUID, studentID int, scheduledStart *time.Time) (*Snapshot, error) {
	snap, err := r.Resolve(ctx, examID, scheduledStart)
	if err != nil {
		return nil, err
	}

	if r.archive != nil {
		submitted, err := r.archive.HasFinalSubmission(ctx, examID, studentID)
		if err != nil {
			return nil, fmt.Errorf("check final submission: %w", err)
		}
		if submitted {
			return &Snapshot{Status: StatusSubmitted, SessionID: snap.SessionID}, nil
		}
	}

	if r.withdrawals != nil {
		withdrawn, err := r.withdrawals.IsWithdrawn(ctx, examID, studentID)
		if err != nil {
			return nil, fmt.Errorf("check withdrawal: %w", err)
		}
		if withdrawn {
			return &Snapshot{Status: StatusWithdrawn, SessionID: snap.SessionID}, nil
		}
	}

	return snap, nil
}
