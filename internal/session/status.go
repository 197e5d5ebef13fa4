// Package session implements the exam session state machine: on-demand state
// resolution, professor control commands, session-scoped withdrawals and the
// auto-submit sweep. All mutable state lives in the ephemeral store; nothing
// here keeps session state in process memory.
package session

// Status is the closed set of exam session states. Every consumer switches
// exhaustively over these values; there is no "unknown" status.
type Status string

const (
	// StatusWaitRoom — before the scheduled start, no session footprint yet.
	StatusWaitRoom Status = "wait_room"
	// StatusWaitingStart — past the scheduled start, professor has not started.
	StatusWaitingStart Status = "waiting_start"
	// StatusActive — clock is running.
	StatusActive Status = "active"
	// StatusPaused — clock is frozen, remaining time stored.
	StatusPaused Status = "paused"
	// StatusCompleted — session ended (explicitly or by clock expiry).
	StatusCompleted Status = "completed"
	// StatusSubmitted — per-student overlay: final submission recorded.
	StatusSubmitted Status = "submitted"
	// StatusWithdrawn — per-student overlay: withdrawal valid for the live session.
	StatusWithdrawn Status = "withdrawn"
)

// Snapshot is the canonical resolved view of a session, shared by the push
// channel and the read-only HTTP endpoint.
type Snapshot struct {
	Status           Status `json:"status"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	RemainingMS      int64  `json:"remaining_ms"`
	SessionID        string `json:"session_id,omitempty"`
}
