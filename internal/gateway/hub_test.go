package gateway

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, sendBufferSize)}
}

func TestHubMembership(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a, b := newTestClient(), newTestClient()

	h.Join("exam-1", a)
	h.Join("exam-1", a) // idempotent
	h.Join("exam-1", b)
	h.Join("exam-2", a)

	if got := h.MemberCount("exam-1"); got != 2 {
		t.Errorf("exam-1 members = %d, want 2", got)
	}
	if !h.Contains("exam-2", a) || h.Contains("exam-2", b) {
		t.Error("exam-2 should contain a only")
	}

	rooms := h.Rooms(a)
	sort.Strings(rooms)
	if len(rooms) != 2 || rooms[0] != "exam-1" || rooms[1] != "exam-2" {
		t.Errorf("a rooms = %v, want [exam-1 exam-2]", rooms)
	}

	h.Leave("exam-1", a)
	if h.Contains("exam-1", a) {
		t.Error("a should have left exam-1")
	}
	if !h.Contains("exam-2", a) {
		t.Error("leaving exam-1 must not touch exam-2 membership")
	}
}

func TestHubLeaveAll(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := newTestClient()

	h.Join("exam-1", a)
	h.Join("exam-2", a)

	left := h.LeaveAll(a)
	sort.Strings(left)
	if len(left) != 2 || left[0] != "exam-1" || left[1] != "exam-2" {
		t.Errorf("LeaveAll = %v, want [exam-1 exam-2]", left)
	}
	if len(h.Rooms(a)) != 0 {
		t.Error("client still has rooms after LeaveAll")
	}
	if h.MemberCount("exam-1") != 0 || h.MemberCount("exam-2") != 0 {
		t.Error("rooms not emptied after LeaveAll")
	}

	// A client that never joined leaves nothing.
	if left := h.LeaveAll(newTestClient()); len(left) != 0 {
		t.Errorf("LeaveAll on unknown client = %v, want empty", left)
	}
}

func TestHubBroadcastReachesOnlyRoomMembers(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a, b, outsider := newTestClient(), newTestClient(), newTestClient()

	h.Join("exam-1", a)
	h.Join("exam-1", b)
	h.Join("exam-2", outsider)

	h.Broadcast("exam-1", StateEvent{Event: EventSessionState, ExamID: "exam-1"})

	for name, c := range map[string]*Client{"a": a, "b": b} {
		select {
		case data := <-c.send:
			var ev StateEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatalf("unmarshal for %s: %v", name, err)
			}
			if ev.Event != EventSessionState || ev.ExamID != "exam-1" {
				t.Errorf("%s received %+v", name, ev)
			}
		default:
			t.Errorf("%s received nothing", name)
		}
	}

	select {
	case <-outsider.send:
		t.Error("outsider received a broadcast for a room it is not in")
	default:
	}
}

func TestHubBroadcastSkipsSlowClient(t *testing.T) {
	h := NewHub(zerolog.Nop())
	slow := &Client{send: make(chan []byte)} // no buffer, nobody reading
	fast := newTestClient()

	h.Join("exam-1", slow)
	h.Join("exam-1", fast)

	// Must not block on the slow client.
	h.Broadcast("exam-1", PresenceEvent{Event: EventPresence, ExamID: "exam-1", StudentID: 1, Online: true})

	select {
	case <-fast.send:
	default:
		t.Error("fast client should still receive the broadcast")
	}
}
