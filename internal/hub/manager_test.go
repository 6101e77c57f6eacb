package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/VISHYOU-GIT/realestate-chat/internal/event"
	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
)

// allowAll authorizes every join; denyUser refuses one user id.
type allowAll struct{}

func (allowAll) CanJoin(context.Context, string, string) error { return nil }

type denyUser struct{ userID string }

func (d denyUser) CanJoin(_ context.Context, _ string, userID string) error {
	if userID == d.userID {
		return fmt.Errorf("%w: not a participant", model.ErrForbidden)
	}
	return nil
}

func newTestHub(t *testing.T, authorizer RoomAuthorizer) *Hub {
	t.Helper()
	h := NewHub(zap.NewNop(), nil)
	h.SetAuthorizer(authorizer)
	t.Cleanup(h.Stop)
	return h
}

// testClient builds a hub client without a real socket; events are read
// straight off its egress buffer.
func testClient(h *Hub, userID, userName string) *Client {
	return newClient(userID, userName, nil, h)
}

func receive(t *testing.T, c *Client) event.WsEvent {
	t.Helper()
	select {
	case ev := <-c.egress:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event within deadline")
		return event.WsEvent{}
	}
}

func assertQuiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev := <-c.egress:
		t.Fatalf("unexpected event %q", ev.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinRoomAuthorization(t *testing.T) {
	h := newTestHub(t, denyUser{userID: "intruder"})

	member := testClient(h, "member", "Member")
	intruder := testClient(h, "intruder", "Intruder")

	h.joinRoom(member, "conv-1")
	if !member.inRoom("conv-1") {
		t.Fatal("authorized client not in room")
	}
	if !h.IsUserInRoom("conv-1", "member") {
		t.Fatal("hub does not see member in room")
	}

	h.joinRoom(intruder, "conv-1")
	if intruder.inRoom("conv-1") {
		t.Fatal("refused client tracked the room")
	}
	if h.IsUserInRoom("conv-1", "intruder") {
		t.Fatal("hub admitted refused client")
	}

	ev := receive(t, intruder)
	if ev.Event != event.EventError {
		t.Fatalf("intruder got %q, want error frame", ev.Event)
	}
	var payload model.ErrorPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("bad error payload: %v", err)
	}
	if payload.Code != "join_refused" {
		t.Fatalf("error code = %q", payload.Code)
	}
}

func TestBroadcastMessageReachesRoom(t *testing.T) {
	h := newTestHub(t, allowAll{})

	a := testClient(h, "user-a", "A")
	b := testClient(h, "user-b", "B")
	outsider := testClient(h, "user-c", "C")

	h.joinRoom(a, "conv-1")
	h.joinRoom(b, "conv-1")
	h.joinRoom(outsider, "conv-2")

	h.BroadcastMessage("conv-1", map[string]string{"content": "hello"})

	for _, c := range []*Client{a, b} {
		ev := receive(t, c)
		if ev.Event != event.EventReceiveMessage {
			t.Fatalf("event = %q, want receive_message", ev.Event)
		}
		var payload event.MessagePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if payload.ConversationID != "conv-1" {
			t.Fatalf("conversation = %q", payload.ConversationID)
		}
	}
	assertQuiet(t, outsider)
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := newTestHub(t, allowAll{})

	a := testClient(h, "user-a", "A")
	h.joinRoom(a, "conv-1")
	h.leaveRoom(a, "conv-1")

	if a.inRoom("conv-1") {
		t.Fatal("client still tracks left room")
	}
	if h.IsUserInRoom("conv-1", "user-a") {
		t.Fatal("hub still sees client in room")
	}

	h.BroadcastMessage("conv-1", map[string]string{"content": "hello"})
	assertQuiet(t, a)
}

func TestTypingBroadcastExcludesTypist(t *testing.T) {
	h := newTestHub(t, allowAll{})

	typist := testClient(h, "user-a", "A")
	watcher := testClient(h, "user-b", "B")
	h.joinRoom(typist, "conv-1")
	h.joinRoom(watcher, "conv-1")

	h.handleTyping(typist, "conv-1")

	ev := receive(t, watcher)
	if ev.Event != event.EventUserTyping {
		t.Fatalf("event = %q, want user_typing", ev.Event)
	}
	var payload event.TypingPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.SenderID != "user-a" || payload.SenderName != "A" {
		t.Fatalf("payload = %+v", payload)
	}
	assertQuiet(t, typist)

	// Explicit stop notifies the watcher once; a second stop is a no-op.
	h.handleStopTyping(typist, "conv-1")
	if ev := receive(t, watcher); ev.Event != event.EventUserStopTyping {
		t.Fatalf("event = %q, want user_stop_typing", ev.Event)
	}
	h.handleStopTyping(typist, "conv-1")
	assertQuiet(t, watcher)
}

func TestTypingIgnoredOutsideRoom(t *testing.T) {
	h := newTestHub(t, allowAll{})

	lurker := testClient(h, "user-a", "A")
	watcher := testClient(h, "user-b", "B")
	h.joinRoom(watcher, "conv-1")

	// lurker never joined conv-1
	h.handleTyping(lurker, "conv-1")
	assertQuiet(t, watcher)
}

func TestTypingExpiryNotifiesRoom(t *testing.T) {
	h := newTestHub(t, allowAll{})
	h.typing.StopAll()
	h.typing = newTypingTable(30*time.Millisecond, h.onTypingExpired)

	typist := testClient(h, "user-a", "A")
	watcher := testClient(h, "user-b", "B")
	h.joinRoom(typist, "conv-1")
	h.joinRoom(watcher, "conv-1")

	h.handleTyping(typist, "conv-1")
	if ev := receive(t, watcher); ev.Event != event.EventUserTyping {
		t.Fatalf("event = %q", ev.Event)
	}

	// No renewal, no explicit stop: the lease runs out on its own and the
	// whole room hears about it, typist included.
	if ev := receive(t, watcher); ev.Event != event.EventUserStopTyping {
		t.Fatalf("event = %q, want user_stop_typing", ev.Event)
	}
	if ev := receive(t, typist); ev.Event != event.EventUserStopTyping {
		t.Fatalf("typist got %q, want user_stop_typing", ev.Event)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := NewHub(zap.NewNop(), nil)

	h.Stop()
	h.Stop() // a second Stop must be a no-op, not a panic

	// A reader racing the shutdown may still hand off one last frame;
	// inbound stays open so that never panics either.
	h.inbound <- inboundEvent{event: event.NewWsEvent(event.EventTyping, nil)}
}

func TestShardingIsStable(t *testing.T) {
	for _, id := range []string{"", "conv-1", "64b000000000000000000001"} {
		a := getShard(id)
		b := getShard(id)
		if a != b {
			t.Fatalf("shard for %q not stable: %d vs %d", id, a, b)
		}
		if a >= shardCount {
			t.Fatalf("shard %d out of range", a)
		}
	}
}
