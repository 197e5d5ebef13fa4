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

// Command precondition failures. These are surfaced synchronously to the
// issuing professor; no state is mutated and no broadcast is sent.
var (
	// ErrNoTasks rejects starting an exam with no tasks. The UI blocks on
	// this code explicitly, so it must stay distinguishable.
	ErrNoTasks = errors.New("exam has no tasks")
	// ErrExamRunning rejects start/restart while a session is live.
	ErrExamRunning = errors.New("session is already running")
	// ErrNotActive rejects pause outside the active state.
	ErrNotActive = errors.New("session is not active")
	// ErrNotPaused rejects resume outside the paused state.
	ErrNotPaused = errors.New("session is not paused")
	// ErrNotRunning rejects extend when the session is neither active nor paused.
	ErrNotRunning = errors.New("session is not running")
	// ErrInvalidDuration rejects non-positive durations.
	ErrInvalidDuration = errors.New("duration must be positive")
)

const sweepTimeout = 30 * time.Second

// Controller validates and executes professor control commands against the
// state store. All multi-key writes go through SetMulti so two racing
// commands never interleave partial state; the freshly minted session id is
// the tie-breaker between concurrent starts.
type Controller struct {
	store   store.StateStore
	catalog ExamCatalog
	sweeper *Sweeper
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewController creates a Controller.
func NewController(st store.StateStore, catalog ExamCatalog, sweeper *Sweeper, ttl time.Duration, log zerolog.Logger) *Controller {
	return &Controller{
		store:   st,
		catalog: catalog,
		sweeper: sweeper,
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("component", "session_control").Logger(),
	}
}

// SetClock replaces the controller's time source. Test helper.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

func (c *Controller) status(ctx context.Context, examID string) (Status, error) {
	val, err := c.store.Get(ctx, config.StateKey.ExamStatusKey(examID))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read status: %w", err)
	}
	return Status(val), nil
}

// Start begins a fresh session: a new session id, fresh clocks, and a clean
// started-students slate. Withdrawals from any previous session become stale
// through the session-id stamp and need no explicit sweep.
func (c *Controller) Start(ctx context.Context, examID uuid.UUID, durationMinutes int) error {
	if durationMinutes <= 0 {
		return ErrInvalidDuration
	}

	id := examID.String()
	st, err := c.status(ctx, id)
	if err != nil {
		return err
	}
	if st == StatusActive || st == StatusPaused {
		return ErrExamRunning
	}

	taskCount, err := c.catalog.CountTasks(ctx, examID)
	if err != nil {
		return fmt.Errorf("count tasks: %w", err)
	}
	if taskCount == 0 {
		return ErrNoTasks
	}

	sessionID := uuid.New().String()
	now := c.now()
	end := now.Add(time.Duration(durationMinutes) * time.Minute)

	if err := c.store.Del(ctx,
		config.StateKey.ExamRemainingMSKey(id),
		config.StateKey.ExamStartedStudentsKey(id),
	); err != nil {
		return fmt.Errorf("clear stale session keys: %w", err)
	}

	err = c.store.SetMulti(ctx, map[string]string{
		config.StateKey.ExamStatusKey(id):    string(StatusActive),
		config.StateKey.ExamStartTimeKey(id): unixMS(now),
		config.StateKey.ExamEndTimeKey(id):   unixMS(end),
		config.StateKey.ExamDurationKey(id):  strconv.Itoa(durationMinutes * 60),
		config.StateKey.ExamSessionIDKey(id): sessionID,
	}, c.ttl)
	if err != nil {
		return fmt.Errorf("write session start: %w", err)
	}

	c.log.Info().
		Str("exam_id", id).
		Str("session_id", sessionID).
		Int("duration_minutes", durationMinutes).
		Msg("Session started")
	return nil
}

// Restart begins a fresh session after a completed one. It is identical to
// Start; the new session id is what invalidates prior withdrawals.
func (c *Controller) Restart(ctx context.Context, examID uuid.UUID, durationMinutes int) error {
	return c.Start(ctx, examID, durationMinutes)
}

// Pause freezes the clock by converting end_time into a stored remainder.
func (c *Controller) Pause(ctx context.Context, examID uuid.UUID) error {
	id := examID.String()
	st, err := c.status(ctx, id)
	if err != nil {
		return err
	}
	if st != StatusActive {
		return ErrNotActive
	}

	var remaining int64
	endVal, err := c.store.Get(ctx, config.StateKey.ExamEndTimeKey(id))
	if err == nil {
		if endMS, ok := parseMS(endVal); ok {
			remaining = endMS - c.now().UnixMilli()
			if remaining < 0 {
				remaining = 0
			}
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("read end_time: %w", err)
	}

	err = c.store.SetMulti(ctx, map[string]string{
		config.StateKey.ExamStatusKey(id):      string(StatusPaused),
		config.StateKey.ExamRemainingMSKey(id): strconv.FormatInt(remaining, 10),
	}, c.ttl)
	if err != nil {
		return fmt.Errorf("write pause: %w", err)
	}
	if err := c.store.Del(ctx, config.StateKey.ExamEndTimeKey(id)); err != nil {
		return fmt.Errorf("clear end_time: %w", err)
	}

	c.log.Info().Str("exam_id", id).Int64("remaining_ms", remaining).Msg("Session paused")
	return nil
}

// Resume unfreezes the clock: end_time = now + stored remainder.
func (c *Controller) Resume(ctx context.Context, examID uuid.UUID) error {
	id := examID.String()
	st, err := c.status(ctx, id)
	if err != nil {
		return err
	}
	if st != StatusPaused {
		return ErrNotPaused
	}

	var remaining int64
	remVal, err := c.store.Get(ctx, config.StateKey.ExamRemainingMSKey(id))
	if err == nil {
		if ms, ok := parseMS(remVal); ok && ms > 0 {
			remaining = ms
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("read remaining_ms: %w", err)
	}

	end := c.now().UnixMilli() + remaining
	err = c.store.SetMulti(ctx, map[string]string{
		config.StateKey.ExamStatusKey(id):  string(StatusActive),
		config.StateKey.ExamEndTimeKey(id): strconv.FormatInt(end, 10),
	}, c.ttl)
	if err != nil {
		return fmt.Errorf("write resume: %w", err)
	}
	if err := c.store.Del(ctx, config.StateKey.ExamRemainingMSKey(id)); err != nil {
		return fmt.Errorf("clear remaining_ms: %w", err)
	}

	c.log.Info().Str("exam_id", id).Int64("remaining_ms", remaining).Msg("Session resumed")
	return nil
}

// Extend adds minutes to whichever clock field currently represents time:
// end_time while active, remaining_ms while paused.
func (c *Controller) Extend(ctx context.Context, examID uuid.UUID, extraMinutes int) error {
	if extraMinutes <= 0 {
		return ErrInvalidDuration
	}

	id := examID.String()
	st, err := c.status(ctx, id)
	if err != nil {
		return err
	}

	extraMS := int64(extraMinutes) * 60_000

	switch st {
	case StatusActive:
		endVal, err := c.store.Get(ctx, config.StateKey.ExamEndTimeKey(id))
		if err != nil {
			return fmt.Errorf("read end_time: %w", err)
		}
		endMS, ok := parseMS(endVal)
		if !ok {
			return fmt.Errorf("malformed end_time for exam %s", id)
		}
		err = c.store.Set(ctx, config.StateKey.ExamEndTimeKey(id), strconv.FormatInt(endMS+extraMS, 10), c.ttl)
		if err != nil {
			return fmt.Errorf("write extended end_time: %w", err)
		}

	case StatusPaused:
		var remaining int64
		remVal, err := c.store.Get(ctx, config.StateKey.ExamRemainingMSKey(id))
		if err == nil {
			if ms, ok := parseMS(remVal); ok && ms > 0 {
				remaining = ms
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("read remaining_ms: %w", err)
		}
		err = c.store.Set(ctx, config.StateKey.ExamRemainingMSKey(id), strconv.FormatInt(remaining+extraMS, 10), c.ttl)
		if err != nil {
			return fmt.Errorf("write extended remaining_ms: %w", err)
		}

	default:
		return ErrNotRunning
	}

	c.log.Info().Str("exam_id", id).Int("extra_minutes", extraMinutes).Msg("Session extended")
	return nil
}

// End forces completion regardless of current state, fixes end_time to now,
// and triggers the auto-submit sweep for the session that just ended.
func (c *Controller) End(ctx context.Context, examID uuid.UUID) error {
	id := examID.String()

	sessionID, err := c.store.Get(ctx, config.StateKey.ExamSessionIDKey(id))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("read session id: %w", err)
	}

	err = c.store.SetMulti(ctx, map[string]string{
		config.StateKey.ExamStatusKey(id):  string(StatusCompleted),
		config.StateKey.ExamEndTimeKey(id): unixMS(c.now()),
	}, c.ttl)
	if err != nil {
		return fmt.Errorf("write end: %w", err)
	}
	if err := c.store.Del(ctx, config.StateKey.ExamRemainingMSKey(id)); err != nil {
		return fmt.Errorf("clear remaining_ms: %w", err)
	}

	c.log.Info().Str("exam_id", id).Str("session_id", sessionID).Msg("Session ended")

	if c.sweeper != nil && sessionID != "" {
		// The sweep must not block the command or the broadcast it
		// triggers; it is idempotent and runs with its own deadline.
		go func() {
			sweepCtx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()
			if err := c.sweeper.Run(sweepCtx, examID, sessionID); err != nil {
				c.log.Error().Err(err).Str("exam_id", id).Msg("Auto-submit sweep failed")
			}
		}()
	}
	return nil
}
