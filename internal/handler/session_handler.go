package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aleksamitic110/assessly/internal/gateway"
	"github.com/aleksamitic110/assessly/internal/middleware"
	"github.com/aleksamitic110/assessly/internal/response"
	"github.com/aleksamitic110/assessly/internal/service"
	"github.com/aleksamitic110/assessly/internal/session"
)

// SessionHandler exposes the read-only session state over HTTP, for clients
// that load state before a live connection is established. The payload shape
// matches the WebSocket push exactly.
type SessionHandler struct {
	resolver *session.Resolver
	exams    gateway.ExamDirectory
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(resolver *session.Resolver, exams gateway.ExamDirectory, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		resolver: resolver,
		exams:    exams,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// GetState godoc
// GET /api/v1/exams/:exam_id/state
func (h *SessionHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.exams.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	var snap *session.Snapshot
	if claims.TokenType == service.TokenTypeStudent {
		snap, err = h.resolver.ResolveForStudent(c.Request.Context(), exam.ID, claims.UserID, exam.ScheduledStart)
	} else {
		snap, err = h.resolver.Resolve(c.Request.Context(), exam.ID, exam.ScheduledStart)
	}
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Resolve state failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gateway.StateEvent{
		Event:  gateway.EventSessionState,
		ExamID: exam.ID.String(),
		State:  snap,
	})
}
