package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aleksamitic110/assessly/internal/service"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 32
	maxMessageSize = 4096
)

// Client is one authenticated WebSocket connection. A client may observe
// several exams at once; its group membership lives in the Hub.
type Client struct {
	gw     *Gateway
	conn   *websocket.Conn
	claims *service.Claims
	send   chan []byte
	log    zerolog.Logger
}

// NewClient wraps an upgraded connection. Call Run to start the pumps.
func (g *Gateway) NewClient(conn *websocket.Conn, claims *service.Claims) *Client {
	return &Client{
		gw:     g,
		conn:   conn,
		claims: claims,
		send:   make(chan []byte, sendBufferSize),
		log: g.log.With().
			Int("user_id", claims.UserID).
			Str("role", string(claims.TokenType)).
			Logger(),
	}
}

// Run services the connection until it closes. It blocks in the read pump;
// the write pump runs alongside and owns all writes to the socket.
func (c *Client) Run(ctx context.Context) {
	done := make(chan struct{})
	go c.writePump(done)

	c.readPump(ctx)

	// The read pump returned: the peer is gone or timed out on heartbeat.
	c.gw.disconnect(ctx, c)
	close(done)
}

func (c *Client) readPump(ctx context.Context) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.gw.cfg.HeartbeatTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.gw.cfg.HeartbeatTimeout))
	})

	for {
		var msg RequestPayload
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				c.log.Debug().Msg("Connection closed")
			}
			return
		}
		// Any inbound traffic counts as liveness.
		c.conn.SetReadDeadline(time.Now().Add(c.gw.cfg.HeartbeatTimeout))

		c.gw.handleMessage(ctx, c, &msg)
	}
}

func (c *Client) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(c.gw.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// sendJSON delivers a payload to this client only. Non-blocking: a client
// that cannot keep up is skipped, same policy as broadcast.
func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error().Err(err).Msg("Marshal outbound event failed")
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn().Msg("Send buffer full, dropping event")
	}
}

func (c *Client) sendError(code, msg string) {
	c.sendJSON(ErrorEvent{Event: EventError, Code: code, Error: msg})
}
