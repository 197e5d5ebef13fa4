package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func (f *fixture) seedStartedSession(t *testing.T, students ...string) (examID uuid.UUID, sessionID string) {
	t.Helper()
	ctx := context.Background()

	examID = f.newExam(1)
	if err := f.controller.Start(ctx, examID, 30); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap, err := f.resolver.Resolve(ctx, examID, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, s := range students {
		if err := f.store.SAdd(ctx, startedStudentsKey(examID), s, testTTL); err != nil {
			t.Fatalf("SAdd: %v", err)
		}
	}
	return examID, snap.SessionID
}

func TestSweepFinalizesUnsubmittedStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	examID, sessionID := f.seedStartedSession(t, "1", "2", "3")

	if err := f.sweeper.Run(ctx, examID, sessionID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, studentID := range []int{1, 2, 3} {
		submitted, err := f.archive.HasFinalSubmission(ctx, examID, studentID)
		if err != nil {
			t.Fatalf("HasFinalSubmission: %v", err)
		}
		if !submitted {
			t.Errorf("student %d not finalized by sweep", studentID)
		}
	}
}

func TestSweepSkipsSubmittedAndWithdrawn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	examID, sessionID := f.seedStartedSession(t, "1", "2", "3")

	f.archive.markFinalized(examID, 1)
	if err := f.withdrawals.Record(ctx, examID, 2); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := f.sweeper.Run(ctx, examID, sessionID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := f.archive.sweepCount(); got != 1 {
		t.Fatalf("sweep finalized %d students, want 1 (only the unsubmitted, non-withdrawn one)", got)
	}
	submitted, err := f.archive.HasFinalSubmission(ctx, examID, 3)
	if err != nil {
		t.Fatalf("HasFinalSubmission: %v", err)
	}
	if !submitted {
		t.Error("student 3 should have been finalized")
	}
	withdrawnSubmitted, err := f.archive.HasFinalSubmission(ctx, examID, 2)
	if err != nil {
		t.Fatalf("HasFinalSubmission: %v", err)
	}
	if withdrawnSubmitted {
		t.Error("withdrawn student 2 must not be auto-submitted")
	}
}

func TestSweepRunsOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	examID, sessionID := f.seedStartedSession(t, "1", "2")

	if err := f.sweeper.Run(ctx, examID, sessionID); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := f.archive.sweepCount()

	// Second invocation for the same session is a no-op behind the lock.
	if err := f.sweeper.Run(ctx, examID, sessionID); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := f.archive.sweepCount(); got != first {
		t.Errorf("repeat sweep finalized %d more students", got-first)
	}

	// A different session id sweeps independently.
	if err := f.sweeper.Run(ctx, examID, "other-session"); err != nil {
		t.Fatalf("Run with new session: %v", err)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	examID, sessionID := f.seedStartedSession(t, "1", "2", "3")

	f.archive.failFinalizeFor[2] = true

	err := f.sweeper.Run(ctx, examID, sessionID)
	if err == nil {
		t.Fatal("Run should report the failed student")
	}

	for _, studentID := range []int{1, 3} {
		submitted, checkErr := f.archive.HasFinalSubmission(ctx, examID, studentID)
		if checkErr != nil {
			t.Fatalf("HasFinalSubmission: %v", checkErr)
		}
		if !submitted {
			t.Errorf("student %d should be finalized despite student 2 failing", studentID)
		}
	}
}

func TestSweepIgnoresMalformedMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	examID, sessionID := f.seedStartedSession(t, "1", "not-a-number")

	if err := f.sweeper.Run(ctx, examID, sessionID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := f.archive.sweepCount(); got != 1 {
		t.Errorf("sweep finalized %d students, want 1", got)
	}
}
