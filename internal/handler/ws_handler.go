package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aleksamitic110/assessly/internal/gateway"
	"github.com/aleksamitic110/assessly/internal/middleware"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler upgrades authenticated connections and hands them to the gateway.
type WSHandler struct {
	gateway  *gateway.Gateway
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(gw *gateway.Gateway, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		gateway:  gw,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// Stream godoc
// WS /ws/v1/stream
// One stream per connection; the client enters/leaves per-exam groups with
// explicit messages and receives state pushes, violation alerts and presence.
func (h *WSHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.log.Info().
		Int("user_id", claims.UserID).
		Str("role", string(claims.TokenType)).
		Msg("Connected")

	client := h.gateway.NewClient(conn, claims)
	client.Run(c.Request.Context())
}
