package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aleksamitic110/assessly/internal/config"
	"github.com/aleksamitic110/assessly/internal/store"
)

// Sweeper finalizes submissions for students who engaged with a session but
// never explicitly submitted. It only ever writes to the persistent store;
// state-store keys are read, never mutated, which keeps it re-entrant.
type Sweeper struct {
	store       store.StateStore
	archive     SubmissionArchive
	withdrawals *WithdrawalTracker
	ttl         time.Duration
	log         zerolog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(st store.StateStore, archive SubmissionArchive, withdrawals *WithdrawalTracker, ttl time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:       st,
		archive:     archive,
		withdrawals: withdrawals,
		ttl:         ttl,
		log:         log.With().Str("component", "autosubmit_sweeper").Logger(),
	}
}

// Run performs the auto-submit sweep for one (exam, session) pair.
// An idempotency lock makes concurrent or repeated invocations no-ops, so
// the explicit End path and the lazy-completion path can both call it.
// Per-student failures are collected and do not stop the sweep.
func (s *Sweeper) Run(ctx context.Context, examID uuid.UUID, sessionID string) error {
	id := examID.String()

	acquired, err := s.store.SetNX(ctx, config.StateKey.AutoSubmitLockKey(id, sessionID), "1", s.ttl)
	if err != nil {
		return fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !acquired {
		s.log.Debug().Str("exam_id", id).Str("session_id", sessionID).Msg("Sweep already ran, skipping")
		return nil
	}

	members, err := s.store.SMembers(ctx, config.StateKey.ExamStartedStudentsKey(id))
	if err != nil {
		return fmt.Errorf("read started students: %w", err)
	}

	var errs []error
	swept := 0
	for _, member := range members {
		studentID, err := strconv.Atoi(member)
		if err != nil {
			s.log.Warn().Str("exam_id", id).Str("member", member).Msg("Skipping malformed student id in started set")
			continue
		}

		submitted, err := s.archive.HasFinalSubmission(ctx, examID, studentID)
		if err != nil {
			errs = append(errs, fmt.Errorf("student %d: check submission: %w", studentID, err))
			continue
		}
		if submitted {
			continue
		}

		withdrawn, err := s.withdrawals.IsWithdrawn(ctx, examID, studentID)
		if err != nil {
			errs = append(errs, fmt.Errorf("student %d: check withdrawal: %w", studentID, err))
			continue
		}
		if withdrawn {
			continue
		}

		if err := s.archive.FinalizeAll(ctx, examID, sessionID, studentID); err != nil {
			errs = append(errs, fmt.Errorf("student %d: finalize: %w", studentID, err))
			continue
		}
		swept++
	}

	s.log.Info().
		Str("exam_id", id).
		Str("session_id", sessionID).
		Int("started", len(members)).
		Int("auto_submitted", swept).
		Int("failed", len(errs)).
		Msg("Auto-submit sweep finished")

	return errors.Join(errs...)
}
