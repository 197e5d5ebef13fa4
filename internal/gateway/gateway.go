// Package gateway is the real-time fan-out layer: it maps authenticated
// WebSocket connections into per-exam broadcast groups, relays session state
// changes and violation alerts to every member, and tracks student presence.
package gateway

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aleksamitic110/assessly/internal/config"
	"github.com/aleksamitic110/assessly/internal/model"
	"github.com/aleksamitic110/assessly/internal/response"
	"github.com/aleksamitic110/assessly/internal/service"
	"github.com/aleksamitic110/assessly/internal/session"
	"github.com/aleksamitic110/assessly/internal/store"
)

// ExamDirectory is the slice of the persistent store the gateway needs:
// existence and schedule of exams being observed.
type ExamDirectory interface {
	GetByID(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
}

// AuditSink receives fire-and-forget audit events (violations, withdrawals).
// A failing sink must never block or fail the triggering transition.
type AuditSink interface {
	Append(ctx context.Context, kind string, examID uuid.UUID, studentID int, detail string)
}

// Audit event kinds produced by the gateway.
const (
	AuditKindViolation  = "violation"
	AuditKindWithdrawal = "withdrawal"
)

// Gateway wires the hub to the session subsystem. One command in produces
// exactly one state push to the whole group, issuer included, so every
// observer shares a single code path.
type Gateway struct {
	hub         *Hub
	store       store.StateStore
	resolver    *session.Resolver
	controller  *session.Controller
	withdrawals *session.WithdrawalTracker
	exams       ExamDirectory
	audit       AuditSink
	cfg         *config.Config
	log         zerolog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(
	hub *Hub,
	st store.StateStore,
	resolver *session.Resolver,
	controller *session.Controller,
	withdrawals *session.WithdrawalTracker,
	exams ExamDirectory,
	audit AuditSink,
	cfg *config.Config,
	log zerolog.Logger,
) *Gateway {
	return &Gateway{
		hub:         hub,
		store:       st,
		resolver:    resolver,
		controller:  controller,
		withdrawals: withdrawals,
		exams:       exams,
		audit:       audit,
		cfg:         cfg,
		log:         log.With().Str("component", "gateway").Logger(),
	}
}

// Hub exposes the underlying hub (used by tests and the HTTP layer).
func (g *Gateway) Hub() *Hub { return g.hub }

func (g *Gateway) handleMessage(ctx context.Context, c *Client, msg *RequestPayload) {
	switch msg.Action {
	case ActionEnter:
		g.handleEnter(ctx, c, msg)
	case ActionLeave:
		g.handleLeave(ctx, c, msg)
	case ActionCommand:
		g.handleCommand(ctx, c, msg)
	case ActionViolation:
		g.handleViolation(ctx, c, msg)
	case ActionWithdraw:
		g.handleWithdraw(ctx, c, msg)
	case ActionPing:
		g.handlePing(ctx, c)
	default:
		c.sendError(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
	}
}

func (g *Gateway) parseExam(ctx context.Context, c *Client, raw string) (*model.Exam, bool) {
	examID, err := uuid.Parse(raw)
	if err != nil {
		c.sendError(string(response.ErrInvalidID), "invalid exam id")
		return nil, false
	}
	exam, err := g.exams.GetByID(ctx, examID)
	if err != nil {
		c.sendError(string(response.ErrNotFound), "exam not found")
		return nil, false
	}
	return exam, true
}

// handleEnter joins the exam's group and immediately pushes the resolved
// current state to the joining connection, so no polling is needed to
// bootstrap. Students additionally go online: presence marker, membership
// in the started set while the session is live, and a broadcast to the group.
func (g *Gateway) handleEnter(ctx context.Context, c *Client, msg *RequestPayload) {
	exam, ok := g.parseExam(ctx, c, msg.ExamID)
	if !ok {
		return
	}
	id := exam.ID.String()

	g.hub.Join(id, c)

	if c.claims.TokenType == service.TokenTypeStudent {
		snap, err := g.resolver.Resolve(ctx, exam.ID, exam.ScheduledStart)
		if err != nil {
			c.sendError(string(response.ErrInternal), "resolve state failed")
			return
		}
		if snap.Status == session.StatusActive || snap.Status == session.StatusPaused {
			if err := g.store.SAdd(ctx, config.StateKey.ExamStartedStudentsKey(id), strconv.Itoa(c.claims.UserID), g.cfg.StateTTL); err != nil {
				g.log.Error().Err(err).Str("exam_id", id).Msg("Record started student failed")
			}
		}
		g.markOnline(ctx, c, id)
		g.hub.Broadcast(id, PresenceEvent{
			Event:     EventPresence,
			ExamID:    id,
			StudentID: c.claims.UserID,
			Name:      c.claims.Name,
			Online:    true,
		})

		studentSnap, err := g.resolver.ResolveForStudent(ctx, exam.ID, c.claims.UserID, exam.ScheduledStart)
		if err != nil {
			c.sendError(string(response.ErrInternal), "resolve state failed")
			return
		}
		c.sendJSON(StateEvent{Event: EventSessionState, ExamID: id, State: studentSnap})
		return
	}

	snap, err := g.resolver.Resolve(ctx, exam.ID, exam.ScheduledStart)
	if err != nil {
		c.sendError(string(response.ErrInternal), "resolve state failed")
		return
	}
	c.sendJSON(StateEvent{Event: EventSessionState, ExamID: id, State: snap})
}

func (g *Gateway) handleLeave(ctx context.Context, c *Client, msg *RequestPayload) {
	examID, err := uuid.Parse(msg.ExamID)
	if err != nil {
		c.sendError(string(response.ErrInvalidID), "invalid exam id")
		return
	}
	id := examID.String()

	g.hub.Leave(id, c)
	if c.claims.TokenType == service.TokenTypeStudent {
		g.markOffline(ctx, c, id)
	}
}

// handleCommand validates and executes a professor control command, then
// pushes the re-resolved state to every group member exactly once. On a
// precondition failure only the issuer hears about it; no state is mutated
// and no broadcast is sent.
func (g *Gateway) handleCommand(ctx context.Context, c *Client, msg *RequestPayload) {
	if c.claims.TokenType != service.TokenTypeProfessor {
		c.sendError(string(response.ErrProfessorOnly), "commands are restricted to professors")
		return
	}
	exam, ok := g.parseExam(ctx, c, msg.ExamID)
	if !ok {
		return
	}

	minutes := msg.Minutes
	if (msg.Command == CommandStart || msg.Command == CommandRestart) && minutes == 0 {
		minutes = exam.DurationMinutes
	}

	var err error
	switch msg.Command {
	case CommandStart:
		err = g.controller.Start(ctx, exam.ID, minutes)
	case CommandRestart:
		err = g.controller.Restart(ctx, exam.ID, minutes)
	case CommandPause:
		err = g.controller.Pause(ctx, exam.ID)
	case CommandResume:
		err = g.controller.Resume(ctx, exam.ID)
	case CommandExtend:
		err = g.controller.Extend(ctx, exam.ID, minutes)
	case CommandEnd:
		err = g.controller.End(ctx, exam.ID)
	default:
		c.sendError(string(response.ErrInvalidPayload), "unknown command: "+msg.Command)
		return
	}

	if err != nil {
		code := CommandErrCode(err)
		c.sendError(string(code), response.GetMessage(code))
		return
	}

	// Students who were waiting in the group when the session started have
	// engaged with it; the auto-submit sweep accounts for them even if they
	// vanish without submitting. Late joiners are recorded on enter.
	if msg.Command == CommandStart || msg.Command == CommandRestart {
		g.recordConnectedStudents(ctx, exam.ID)
	}

	g.BroadcastState(ctx, exam)
}

// recordConnectedStudents adds every student currently in the exam's group
// to the started set.
func (g *Gateway) recordConnectedStudents(ctx context.Context, examID uuid.UUID) {
	id := examID.String()
	key := config.StateKey.ExamStartedStudentsKey(id)
	for _, member := range g.hub.Members(id) {
		if member.claims.TokenType != service.TokenTypeStudent {
			continue
		}
		if err := g.store.SAdd(ctx, key, strconv.Itoa(member.claims.UserID), g.cfg.StateTTL); err != nil {
			g.log.Error().Err(err).Str("exam_id", id).Int("student_id", member.claims.UserID).Msg("Record started student failed")
		}
	}
}

// BroadcastState resolves the canonical state once and pushes it to every
// member of the exam's group, including the command's issuer.
func (g *Gateway) BroadcastState(ctx context.Context, exam *model.Exam) {
	snap, err := g.resolver.Resolve(ctx, exam.ID, exam.ScheduledStart)
	if err != nil {
		g.log.Error().Err(err).Str("exam_id", exam.ID.String()).Msg("Resolve for broadcast failed")
		return
	}
	g.hub.Broadcast(exam.ID.String(), StateEvent{
		Event:  EventSessionState,
		ExamID: exam.ID.String(),
		State:  snap,
	})
}

// handleViolation atomically bumps the student's counter, broadcasts the
// alert to the whole group, and appends an audit event fire-and-forget.
func (g *Gateway) handleViolation(ctx context.Context, c *Client, msg *RequestPayload) {
	if c.claims.TokenType != service.TokenTypeStudent {
		c.sendError(string(response.ErrStudentAccessOnly), "violation reports come from students")
		return
	}
	exam, ok := g.parseExam(ctx, c, msg.ExamID)
	if !ok {
		return
	}
	id := exam.ID.String()

	key := config.StateKey.StudentViolationsKey(id, c.claims.UserID)
	count, err := g.store.Incr(ctx, key)
	if err != nil {
		c.sendError(string(response.ErrInternal), "record violation failed")
		return
	}
	if err := g.store.Expire(ctx, key, g.cfg.StateTTL); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("Refresh violation counter TTL failed")
	}

	g.hub.Broadcast(id, ViolationEvent{
		Event:     EventViolation,
		ExamID:    id,
		StudentID: c.claims.UserID,
		Name:      c.claims.Name,
		Type:      msg.Type,
		Count:     count,
		Timestamp: time.Now().UnixMilli(),
	})

	g.audit.Append(ctx, AuditKindViolation, exam.ID, c.claims.UserID, msg.Type)
}

// handleWithdraw stamps the student's withdrawal against the live session
// and acks with the student's own resolved state (now withdrawn).
func (g *Gateway) handleWithdraw(ctx context.Context, c *Client, msg *RequestPayload) {
	if c.claims.TokenType != service.TokenTypeStudent {
		c.sendError(string(response.ErrStudentAccessOnly), "withdrawals come from students")
		return
	}
	exam, ok := g.parseExam(ctx, c, msg.ExamID)
	if !ok {
		return
	}

	if err := g.withdrawals.Record(ctx, exam.ID, c.claims.UserID); err != nil {
		c.sendError(string(response.ErrInternal), "record withdrawal failed")
		return
	}
	g.audit.Append(ctx, AuditKindWithdrawal, exam.ID, c.claims.UserID, "")

	snap, err := g.resolver.ResolveForStudent(ctx, exam.ID, c.claims.UserID, exam.ScheduledStart)
	if err != nil {
		c.sendError(string(response.ErrInternal), "resolve state failed")
		return
	}
	c.sendJSON(StateEvent{Event: EventSessionState, ExamID: exam.ID.String(), State: snap})
}

// handlePing refreshes this student's presence marker in every joined group.
func (g *Gateway) handlePing(ctx context.Context, c *Client) {
	if c.claims.TokenType == service.TokenTypeStudent {
		for _, examID := range g.hub.Rooms(c) {
			key := config.StateKey.StudentPresenceKey(examID, c.claims.UserID)
			if err := g.store.Expire(ctx, key, g.cfg.PresenceTTL); err != nil {
				g.log.Warn().Err(err).Str("key", key).Msg("Refresh presence TTL failed")
			}
		}
	}
	c.sendJSON(PongResponse{Event: EventPong})
}

// disconnect handles graceful and ungraceful closes the same way: the
// connection leaves every group and, for students, goes offline in each.
func (g *Gateway) disconnect(ctx context.Context, c *Client) {
	rooms := g.hub.LeaveAll(c)
	if c.claims.TokenType != service.TokenTypeStudent {
		return
	}
	for _, examID := range rooms {
		g.markOffline(ctx, c, examID)
	}
}

func (g *Gateway) markOnline(ctx context.Context, c *Client, examID string) {
	key := config.StateKey.StudentPresenceKey(examID, c.claims.UserID)
	if err := g.store.Set(ctx, key, "1", g.cfg.PresenceTTL); err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("Set presence failed")
	}
}

func (g *Gateway) markOffline(ctx context.Context, c *Client, examID string) {
	key := config.StateKey.StudentPresenceKey(examID, c.claims.UserID)
	if err := g.store.Del(ctx, key); err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("Clear presence failed")
	}
	g.hub.Broadcast(examID, PresenceEvent{
		Event:     EventPresence,
		ExamID:    examID,
		StudentID: c.claims.UserID,
		Name:      c.claims.Name,
		Online:    false,
	})
}

// CommandErrCode maps command handler sentinel errors to API error codes.
// Shared by the WebSocket and HTTP surfaces.
func CommandErrCode(err error) response.ErrCode {
	switch {
	case errors.Is(err, session.ErrNoTasks):
		return response.ErrNoTasks
	case errors.Is(err, session.ErrExamRunning):
		return response.ErrExamRunning
	case errors.Is(err, session.ErrNotActive):
		return response.ErrNotActive
	case errors.Is(err, session.ErrNotPaused):
		return response.ErrNotPaused
	case errors.Is(err, session.ErrNotRunning):
		return response.ErrNotRunning
	case errors.Is(err, session.ErrInvalidDuration):
		return response.ErrInvalidDuration
	default:
		return response.ErrInternal
	}
}
