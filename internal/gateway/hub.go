package gateway

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Hub maps connections into per-exam broadcast groups. A connection may
// belong to several groups at once; membership is symmetric between rooms
// and members so disconnect can clean up in one pass.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
	log     zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
		log:     log.With().Str("component", "hub").Logger(),
	}
}

// Join adds a client to an exam's broadcast group. Idempotent.
func (h *Hub) Join(examID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[examID] == nil {
		h.rooms[examID] = make(map[*Client]struct{})
	}
	h.rooms[examID][c] = struct{}{}
	if h.members[c] == nil {
		h.members[c] = make(map[string]struct{})
	}
	h.members[c][examID] = struct{}{}
}

// Leave removes a client from one group.
func (h *Hub) Leave(examID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(examID, c)
}

func (h *Hub) leaveLocked(examID string, c *Client) {
	if room, ok := h.rooms[examID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, examID)
		}
	}
	if set, ok := h.members[c]; ok {
		delete(set, examID)
		if len(set) == 0 {
			delete(h.members, c)
		}
	}
}

// LeaveAll removes a client from every group and returns the exam ids it
// belonged to, so the caller can broadcast offline presence to each.
func (h *Hub) LeaveAll(c *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.members[c]
	left := make([]string, 0, len(set))
	for examID := range set {
		left = append(left, examID)
	}
	for _, examID := range left {
		h.leaveLocked(examID, c)
	}
	return left
}

// Rooms returns the exam ids the client currently belongs to.
func (h *Hub) Rooms(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.members[c]
	out := make([]string, 0, len(set))
	for examID := range set {
		out = append(out, examID)
	}
	return out
}

// Contains reports whether the client is a member of the exam's group.
func (h *Hub) Contains(examID string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[examID][c]
	return ok
}

// Members returns a snapshot of the clients in an exam's group.
func (h *Hub) Members(examID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.rooms[examID]))
	for c := range h.rooms[examID] {
		out = append(out, c)
	}
	return out
}

// MemberCount returns the size of an exam's group.
func (h *Hub) MemberCount(examID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[examID])
}

// Broadcast marshals the payload once and delivers it to every member of
// the group, including the sender if it is a member. A member whose send
// buffer is full is skipped; clients are idempotent consumers of current
// state and will converge on the next push or on reconnect.
func (h *Hub) Broadcast(examID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID).Msg("Broadcast marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[examID] {
		select {
		case c.send <- data:
		default:
			h.log.Warn().Str("exam_id", examID).Msg("Dropping broadcast to slow client")
		}
	}
}
