package gateway

import (
	"github.com/aleksamitic110/assessly/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	// ActionEnter joins the per-exam broadcast group.
	ActionEnter Action = "enter"
	// ActionLeave leaves the per-exam broadcast group.
	ActionLeave Action = "leave"
	// ActionCommand is a professor control command (start/pause/resume/extend/end/restart).
	ActionCommand Action = "command"
	// ActionViolation reports a proctoring violation by the sending student.
	ActionViolation Action = "violation"
	// ActionWithdraw records the sending student's withdrawal from the session.
	ActionWithdraw Action = "withdraw"
	// ActionPing refreshes presence and keeps the connection alive.
	ActionPing Action = "ping"
)

// Command names accepted inside an ActionCommand message.
const (
	CommandStart   = "start"
	CommandPause   = "pause"
	CommandResume  = "resume"
	CommandExtend  = "extend"
	CommandEnd     = "end"
	CommandRestart = "restart"
)

// RequestPayload is the single inbound message shape; fields beyond Action
// are interpreted per action.
type RequestPayload struct {
	Action  Action `json:"action"`
	ExamID  string `json:"exam_id,omitempty"`
	Command string `json:"command,omitempty"`
	// Minutes carries the duration for start/restart and the extension for extend.
	Minutes int `json:"minutes,omitempty"`
	// Type names the violation kind (tab_switch, fullscreen_exit, ...).
	Type string `json:"type,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSessionState Event = "session_state"
	EventViolation    Event = "violation"
	EventPresence     Event = "presence"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// StateEvent pushes the resolved session state. The same payload shape is
// served by the read-only HTTP state endpoint.
type StateEvent struct {
	Event  Event             `json:"event"`
	ExamID string            `json:"exam_id"`
	State  *session.Snapshot `json:"state"`
}

// ViolationEvent broadcasts a student's violation and the new counter value.
type ViolationEvent struct {
	Event     Event  `json:"event"`
	ExamID    string `json:"exam_id"`
	StudentID int    `json:"student_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Count     int64  `json:"count"`
	Timestamp int64  `json:"timestamp"`
}

// PresenceEvent broadcasts a student going online or offline.
type PresenceEvent struct {
	Event     Event  `json:"event"`
	ExamID    string `json:"exam_id"`
	StudentID int    `json:"student_id"`
	Name      string `json:"name"`
	Online    bool   `json:"online"`
}

// ErrorEvent is sent only to the issuer of a failed action, with a
// machine-readable code the UI can branch on.
type ErrorEvent struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// PongResponse answers an application-level ping.
type PongResponse struct {
	Event Event `json:"event"`
}
