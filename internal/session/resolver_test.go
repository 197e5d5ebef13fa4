package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aleksamitic110/assessly/internal/config"
)

func TestResolveScheduleDerivedStates(t *testing.T) {
	f := newFixture(t)
	examID := f.newExam(1)
	ctx := context.Background()

	// No schedule, no footprint: waiting for the professor.
	snap, err := f.resolver.Resolve(ctx, examID, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Status != StatusWaitingStart {
		t.Errorf("unscheduled status = %s, want %s", snap.Status, StatusWaitingStart)
	}

	// Scheduled in the future: wait room.
	future := f.clock.Now().Add(time.Hour)
	snap, err = f.resolver.Resolve(ctx, examID, &future)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Status != StatusWaitRoom {
		t.Errorf("future-scheduled status = %s, want %s", snap.Status, StatusWaitRoom)
	}

	// Past the scheduled start: waiting for the professor again.
	f.clock.Advance(2 * time.Hour)
	snap, err = f.resolver.Resolve(ctx, examID, &future)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Status != StatusWaitingStart {
		t.Errorf("past-scheduled status = %s, want %s", snap.Status, StatusWaitingStart)
	}
}

func TestResolveCountsDownWhileActive(t *testing.T) {
	f := newFixture(t)
	examID := f.newExam(1)
	ctx := context.Background()

	if err := f.controller.Start(ctx, examID, 30); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.clock.Advance(12 * time.Minute)
	snap, err := f.resolver.Resolve(ctx, examID, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Status != StatusActive {
		t.Fatalf("status = %s, want %s", snap.Status, StatusActive)
	}
	if snap.RemainingSeconds != 18*60 {
		t.Errorf("remaining = %ds, want %ds", snap.RemainingSeconds, 18*60)
	}
	if snap.RemainingMS != int64(18*time.Minute/time.Millisecond) {
		t.Errorf("remaining_ms = %d, want %d", snap.RemainingMS, int64(18*time.Minute/time.Millisecond))
	}
}

func TestResolveRoundsPartialSecondsUp(t *testing.T) {
	f := newFixture(t)
	examID := f.newExam(1)
	ctx := context.Background()

	if err := f.controller.Start(ctx, examID, 30); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.clock.Advance(30*time.Minute - 1500*time.Millisecond)
	snap, err := f.resolver.Resolve(ctx, examID, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.RemainingMS != 1500 {
		t.Fatalf("remaining_ms = %d, want 1500", snap.RemainingMS)
	}
	if snap.RemainingSeconds != 2 {
		t.Errorf("remaining = %ds, want 2s (1500ms rounds up)", snap.RemainingSeconds)
	}
}

func TestResolveActiveWithoutEndTime(t *testing.T) {
	f := newFixture(t)
	examID := f.newExam(1)
	ctx := context.Background()

	id := examID.String()
	if err := f.store.Set(ctx, config.StateKey.ExamStatusKey(id), string(StatusActive), testTTL); err != nil {
		t.Fatalf("Set status: %v", err)
	}
	if err := f.store.Set(ctx, config.StateKey.ExamSessionIDKey(id), "session-x", testTTL); err != nil {
		t.Fatalf("Set session id: %v", err)
	}

	snap, err := f.resolver.Resolve(ctx, examID, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Status != StatusActive {
		t.Fatalf("status = %s, want %s", snap.Status, StatusActive)
	}
	if snap.RemainingSeconds != 0 || snap.RemainingMS != 0 {
		t.Errorf("remaining = %ds / %dms, want 0", snap.RemainingSeconds, snap.RemainingMS)
	}

	// The store must not have been mutated into completed.
	stored, err := f.store.Get(ctx, config.StateKey.ExamStatusKey(id))
	if err != nil {
		t.Fatalf("Get status: %v", err)
	}
	if Status(stored) != StatusActive {
		t.Errorf("stored status = %s, want %s (resolver must not write here)", stored, StatusActive)
	}
}

func TestResolveCompletesLazilyOnExpiry(t *testing.T) {
	f := newFixture(t)
	examID := f.newExam(1)
	ctx := context.Background()

	if err := f.controller.Start(ctx, examID, 30); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.clock.Advance(31 * time.Minute)

	snap, err := f.resolver.Resolve(ctx, examID, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", snap.Status, StatusCompleted)
	}
	if snap.RemainingSeconds != 0 || snap.RemainingMS != 0 {
		t.Errorf("completed snapshot has remaining time: %ds / %dms", snap.RemainingSeconds, snap.RemainingMS)
	}

	// The completed status is now persisted, not re-derived.
	snap, err = f.resolver.Resolve(ctx, examID, nil)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if snap.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", snap.Status, StatusCompleted)
	}
}

func TestResolveLazyCompletionFiresHookOnce(t *testing.T) {
	f := newFixture(t)
	examID := f.newExam(1)
	ctx := context.Background()

	var mu sync.Mutex
	var fired []string
	done := make(chan struct{})
	f.resolver.OnComplete(func(_ uuid.UUID, sessionID string) {
		mu.Lock()
		fired = append(fired, sessionID)
		mu.Unlock()
		close(done)
	})

	if err := f.controller.Start(ctx, examID, 30); err != nil {
		t.Fatalf("Start: %v", err)
	}
	live, err := f.resolver.Resolve(ctx, examID, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	f.clock.Advance(31 * time.Minute)
	if _, err := f.resolver.Resolve(ctx, examID, nil); err != nil {
		t.Fatalf("Resolve expired: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion hook never fired")
	}

	// Once completed is persisted, further resolves do not re-fire.
	if _, err := f.resolver.Resolve(ctx, examID, nil); err != nil {
		t.Fatalf("Resolve after completion: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 {
		t.Fatalf("hook fired %d times, want 1", len(fired))
	}
	if fired[0] != live.SessionID {
		t.Errorf("hook session id = %q, want %q", fired[0], live.SessionID)
	}
}

func TestResolveForStudentSubmittedOverlay(t *testing.T) {
	f := newFixture(t)
	examID := f.newExam(1)
	ctx := context.Background()

	if err := f.controller.Start(ctx, examID, 30); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.archive.markFinalized(examID, 7)

	snap, err := f.resolver.ResolveForStudent(ctx, examID, 7, nil)
	if err != nil {
		t.Fatalf("ResolveForStudent: %v", err)
	}
	if snap.Status != StatusSubmitted {
		t.Errorf("submitted student status = %s, want %s", snap.Status, StatusSubmitted)
	}

	other, err := f.resolver.ResolveForStudent(ctx, examID, 8, nil)
	if err != nil {
		t.Fatalf("ResolveForStudent: %v", err)
	}
	if other.Status != StatusActive {
		t.Errorf("other student status = %s, want %s", other.Status, StatusActive)
	}
}

func TestResolveForStudentSubmittedWinsOverWithdrawn(t *testing.T) {
	f := newFixture(t)
	examID := f.newExam(1)
	ctx := context.Background()

	if err := f.controller.Start(ctx, examID, 30); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.withdrawals.Record(ctx, examID, 7); err != nil {
		t.Fatalf("Record: %v", err)
	}
	f.archive.markFinalized(examID, 7)

	snap, err := f.resolver.ResolveForStudent(ctx, examID, 7, nil)
	if err != nil {
		t.Fatalf("ResolveForStudent: %v", err)
	}
	if snap.Status != StatusSubmitted {
		t.Errorf("status = %s, want %s (submission outranks withdrawal)", snap.Status, StatusSubmitted)
	}
}
