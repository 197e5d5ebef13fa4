package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aleksamitic110/assessly/internal/config"
	"github.com/aleksamitic110/assessly/internal/store"
)

const testTTL = 24 * time.Hour

// fakeCatalog serves a fixed task count per exam.
type fakeCatalog struct {
	taskCounts map[uuid.UUID]int
	failCount  bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{taskCounts: make(map[uuid.UUID]int)}
}

func (f *fakeCatalog) CountTasks(_ context.Context, examID uuid.UUID) (int, error) {
	if f.failCount {
		return 0, errors.New("catalog unavailable")
	}
	return f.taskCounts[examID], nil
}

type submissionKey struct {
	examID    uuid.UUID
	studentID int
}

// fakeArchive tracks finalized submissions and records FinalizeAll calls.
type fakeArchive struct {
	mu        sync.Mutex
	finalized map[submissionKey]bool
	sweeps    []submissionKey

	failFinalizeFor map[int]bool
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{
		finalized:       make(map[submissionKey]bool),
		failFinalizeFor: make(map[int]bool),
	}
}

func (f *fakeArchive) HasFinalSubmission(_ context.Context, examID uuid.UUID, studentID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finalized[submissionKey{examID, studentID}], nil
}

func (f *fakeArchive) FinalizeAll(_ context.Context, examID uuid.UUID, _ string, studentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFinalizeFor[studentID] {
		return errors.New("finalize failed")
	}
	f.finalized[submissionKey{examID, studentID}] = true
	f.sweeps = append(f.sweeps, submissionKey{examID, studentID})
	return nil
}

func (f *fakeArchive) markFinalized(examID uuid.UUID, studentID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized[submissionKey{examID, studentID}] = true
}

func (f *fakeArchive) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sweeps)
}

// testClock is a controllable time source shared by the store and the
// components under test.
type testClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newTestClock() *testClock {
	return &testClock{cur: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	clock       *testClock
	store       *store.MemoryStore
	catalog     *fakeCatalog
	archive     *fakeArchive
	withdrawals *WithdrawalTracker
	sweeper     *Sweeper
	controller  *Controller
	resolver    *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newTestClock()
	mem := store.NewMemoryStore()
	mem.SetClock(clock.Now)

	catalog := newFakeCatalog()
	archive := newFakeArchive()
	withdrawals := NewWithdrawalTracker(mem, testTTL)
	sweeper := NewSweeper(mem, archive, withdrawals, testTTL, zerolog.Nop())

	controller := NewController(mem, catalog, sweeper, testTTL, zerolog.Nop())
	controller.SetClock(clock.Now)

	resolver := NewResolver(mem, archive, withdrawals, testTTL, zerolog.Nop())
	resolver.SetClock(clock.Now)

	return &fixture{
		clock:       clock,
		store:       mem,
		catalog:     catalog,
		archive:     archive,
		withdrawals: withdrawals,
		sweeper:     sweeper,
		controller:  controller,
		resolver:    resolver,
	}
}

// newExam registers an exam with a positive task count so Start succeeds.
func (f *fixture) newExam(tasks int) uuid.UUID {
	examID := uuid.New()
	f.catalog.taskCounts[examID] = tasks
	return examID
}

func startedStudentsKey(examID uuid.UUID) string {
	return config.StateKey.ExamStartedStudentsKey(examID.String())
}

// waitForSweeps blocks until the archive has seen n FinalizeAll calls. The
// sweep runs on its own goroutine after End, so tests have to wait for it.
func waitForSweeps(t *testing.T, archive *fakeArchive, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for archive.sweepCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("sweep count = %d, want %d", archive.sweepCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
