package session

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ExamCatalog is the slice of the persistent entity store the command
// handler needs: whether an exam has tasks and when it is scheduled.
type ExamCatalog interface {
	// CountTasks returns the number of tasks attached to an exam.
	CountTasks(ctx context.Context, examID uuid.UUID) (int, error)
}

// SubmissionArchive is the slice of the persistent store consulted for the
// per-student overlay and written by the auto-submit sweep.
type SubmissionArchive interface {
	// HasFinalSubmission reports whether the student already has a
	// finalized submission for the exam.
	HasFinalSubmission(ctx context.Context, examID uuid.UUID, studentID int) (bool, error)
	// FinalizeAll writes best-effort final submissions for every task of
	// the exam from whatever saved progress exists (empty if none).
	FinalizeAll(ctx context.Context, examID uuid.UUID, sessionID string, studentID int) error
}

// WithdrawalSentinel stamps withdrawals recorded while no session is live.
// A later Start/Restart mints a real session id, so the stamp mismatch
// invalidates these automatically.
const WithdrawalSentinel = "none"

func unixMS(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMS(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ceilSeconds rounds milliseconds up to whole seconds, clamped at zero.
func ceilSeconds(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return (ms + 999) / 1000
}
