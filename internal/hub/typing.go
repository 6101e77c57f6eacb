package hub

import (
	"sync"
	"time"
)

// typingTTL is the quiet window after which a typing indication goes stale.
const typingTTL = 3 * time.Second

// typingLease is one user's claim to be typing in one conversation. It is
// renewed by repeated typing events and ends on stop_typing or expiry;
// nothing here is ever persisted.
type typingLease struct {
	userName string
	timer    *time.Timer
}

type typingTable struct {
	mu       sync.Mutex
	leases   map[string]map[string]*typingLease // conversationID -> userID
	ttl      time.Duration
	onExpire func(conversationID, userID, userName string)
	stopped  bool
}

func newTypingTable(ttl time.Duration, onExpire func(conversationID, userID, userName string)) *typingTable {
	return &typingTable{
		leases:   make(map[string]map[string]*typingLease),
		ttl:      ttl,
		onExpire: onExpire,
	}
}

// Renew grants or extends the user's typing lease for the conversation.
func (t *typingTable) Renew(conversationID, userID, userName string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	room, ok := t.leases[conversationID]
	if !ok {
		room = make(map[string]*typingLease)
		t.leases[conversationID] = room
	}

	if lease, ok := room[userID]; ok {
		lease.timer.Reset(t.ttl)
		return
	}

	room[userID] = &typingLease{
		userName: userName,
		timer: time.AfterFunc(t.ttl, func() {
			t.expire(conversationID, userID)
		}),
	}
}

// End cancels the lease explicitly. Returns false when no lease was held,
// which callers use to avoid broadcasting redundant stop events.
func (t *typingTable) End(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remove(conversationID, userID) != nil
}

// ActiveUsers lists users currently holding a typing lease in the room.
func (t *typingTable) ActiveUsers(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	room := t.leases[conversationID]
	users := make([]string, 0, len(room))
	for userID := range room {
		users = append(users, userID)
	}
	return users
}

// StopAll cancels every outstanding lease without firing expiry callbacks.
func (t *typingTable) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	for _, room := range t.leases {
		for _, lease := range room {
			lease.timer.Stop()
		}
	}
	t.leases = make(map[string]map[string]*typingLease)
}

func (t *typingTable) expire(conversationID, userID string) {
	t.mu.Lock()
	lease := t.remove(conversationID, userID)
	cb := t.onExpire
	t.mu.Unlock()

	if lease != nil && cb != nil {
		cb(conversationID, userID, lease.userName)
	}
}

// remove must be called with the lock held.
func (t *typingTable) remove(conversationID, userID string) *typingLease {
	room, ok := t.leases[conversationID]
	if !ok {
		return nil
	}
	lease, ok := room[userID]
	if !ok {
		return nil
	}
	lease.timer.Stop()
	delete(room, userID)
	if len(room) == 0 {
		delete(t.leases, conversationID)
	}
	return lease
}
