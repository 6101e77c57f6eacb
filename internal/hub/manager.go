package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/VISHYOU-GIT/realestate-chat/internal/event"
	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

// RoomAuthorizer decides whether a user may join a conversation room.
// Implemented by the chat service (participant check).
type RoomAuthorizer interface {
	CanJoin(ctx context.Context, conversationID, userID string) error
}

type inboundEvent struct {
	event  event.WsEvent
	client *Client
}

type roomBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client // conversationID -> clientID -> client
}

// Hub routes events between connected clients. Rooms are grouped into
// sharded buckets so contention stays local to a shard; membership is not
// preserved across disconnects, clients re-join after reconnecting.
type Hub struct {
	shards     [shardCount]*roomBucket
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent

	online   map[string]*Client // clientID -> client
	onlineMu sync.RWMutex

	authorizer RoomAuthorizer
	typing     *typingTable
	logger     *zap.Logger

	allowedOrigins map[string]struct{}

	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:       make(chan *Client, 1024),
		unregister:     make(chan *Client, 1024),
		inbound:        make(chan inboundEvent, 4096), // buffer for burst handling
		online:         make(map[string]*Client),
		logger:         logger,
		allowedOrigins: make(map[string]struct{}, len(allowedOrigins)),
		ctx:            ctx,
		cancel:         cancel,
	}

	for _, o := range allowedOrigins {
		h.allowedOrigins[o] = struct{}{}
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &roomBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}

	h.typing = newTypingTable(typingTTL, h.onTypingExpired)

	go h.run()

	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in := <-h.inbound:
					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

// SetAuthorizer wires the room authorizer. Must be called before serving
// connections; joins are refused while no authorizer is set.
func (h *Hub) SetAuthorizer(a RoomAuthorizer) {
	h.authorizer = a
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.onlineMu.Lock()
			h.online[c.ID] = c
			h.onlineMu.Unlock()
		case c := <-h.unregister:
			h.dropClient(c)
		}
	}
}

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventJoinRoom:
		var p event.RoomPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ConversationID == "" {
			h.sendError(c, "invalid_payload", "join_room requires a conversationId")
			return
		}
		h.joinRoom(c, p.ConversationID)
	case event.EventLeaveRoom:
		var p event.RoomPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ConversationID == "" {
			h.sendError(c, "invalid_payload", "leave_room requires a conversationId")
			return
		}
		h.leaveRoom(c, p.ConversationID)
	case event.EventTyping:
		var p event.TypingPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ConversationID == "" {
			return // typing is best-effort, drop silently
		}
		h.handleTyping(c, p.ConversationID)
	case event.EventStopTyping:
		var p event.RoomPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ConversationID == "" {
			return
		}
		h.handleStopTyping(c, p.ConversationID)
	default:
		h.logger.Debug("unknown event type", zap.String("event", ev.Event))
	}
}

func (h *Hub) joinRoom(c *Client, conversationID string) {
	if h.authorizer == nil {
		h.sendError(c, "not_ready", "room joins are not available yet")
		return
	}
	if err := h.authorizer.CanJoin(c.ctx, conversationID, c.userID); err != nil {
		h.logger.Debug("join refused",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", c.userID),
			zap.Error(err),
		)
		h.sendError(c, "join_refused", "you are not a participant of this conversation")
		return
	}

	b := h.shards[getShard(conversationID)]
	b.Lock()
	room, ok := b.rooms[conversationID]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[conversationID] = room
	}
	room[c.ID] = c
	b.Unlock()

	c.trackRoom(conversationID)
	h.logger.Debug("client joined room",
		zap.String("client_id", c.ID),
		zap.String("conversation_id", conversationID),
	)
}

func (h *Hub) leaveRoom(c *Client, conversationID string) {
	b := h.shards[getShard(conversationID)]
	b.Lock()
	if room, ok := b.rooms[conversationID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(b.rooms, conversationID)
		}
	}
	b.Unlock()

	c.untrackRoom(conversationID)
	h.endTypingLease(c, conversationID)
}

func (h *Hub) handleTyping(c *Client, conversationID string) {
	if !c.inRoom(conversationID) {
		return
	}
	h.typing.Renew(conversationID, c.userID, c.userName)
	h.broadcastToRoom(conversationID, event.NewWsEvent(event.EventUserTyping, event.TypingPayload{
		ConversationID: conversationID,
		SenderID:       c.userID,
		SenderName:     c.userName,
	}), c)
}

func (h *Hub) handleStopTyping(c *Client, conversationID string) {
	if !c.inRoom(conversationID) {
		return
	}
	h.endTypingLease(c, conversationID)
}

func (h *Hub) endTypingLease(c *Client, conversationID string) {
	if !h.typing.End(conversationID, c.userID) {
		return
	}
	h.broadcastToRoom(conversationID, event.NewWsEvent(event.EventUserStopTyping, event.TypingPayload{
		ConversationID: conversationID,
		SenderID:       c.userID,
		SenderName:     c.userName,
	}), c)
}

// onTypingExpired fires when a typing lease runs out without renewal or an
// explicit stop. The whole room is notified, origin included; its indicator
// is stale either way.
func (h *Hub) onTypingExpired(conversationID, userID, userName string) {
	h.broadcastToRoom(conversationID, event.NewWsEvent(event.EventUserStopTyping, event.TypingPayload{
		ConversationID: conversationID,
		SenderID:       userID,
		SenderName:     userName,
	}), nil)
}

// BroadcastMessage fans a persisted message out to every socket currently in
// the conversation room, the sender's other sessions included. Called by the
// service right after a successful append; purely a relay, never persists.
func (h *Hub) BroadcastMessage(conversationID string, message interface{}) {
	h.broadcastToRoom(conversationID, event.NewWsEvent(event.EventReceiveMessage, event.MessagePayload{
		ConversationID: conversationID,
		Message:        message,
	}), nil)
}

// IsUserInRoom reports whether any of the user's sockets has the
// conversation room open. Drives the read-vs-unread decision on delivery.
func (h *Hub) IsUserInRoom(conversationID, userID string) bool {
	b := h.shards[getShard(conversationID)]
	b.RLock()
	defer b.RUnlock()

	room, ok := b.rooms[conversationID]
	if !ok {
		return false
	}
	for _, c := range room {
		if c.userID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) broadcastToRoom(conversationID string, ev event.WsEvent, except *Client) {
	b := h.shards[getShard(conversationID)]

	b.RLock()
	room, ok := b.rooms[conversationID]
	if !ok || len(room) == 0 {
		b.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		if c == except {
			continue
		}
		clients = append(clients, c)
	}
	b.RUnlock()

	// deliver without holding the bucket lock
	for _, c := range clients {
		c.send(ev)
	}
}

func (h *Hub) sendError(c *Client, code, message string) {
	c.send(event.NewWsEvent(event.EventError, model.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}

func (h *Hub) dropClient(c *Client) {
	for _, conversationID := range c.roomList() {
		h.leaveRoom(c, conversationID)
	}

	h.onlineMu.Lock()
	delete(h.online, c.ID)
	h.onlineMu.Unlock()

	c.Close()
	h.logger.Debug("client removed", zap.String("client_id", c.ID))
}

// Stop shuts the hub down: workers and the accept loop exit via the hub
// context, typing leases are cancelled and every connected client is
// closed. inbound is never closed so readers that race the shutdown can
// still hand off their last frame. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		h.typing.StopAll()

		h.onlineMu.RLock()
		for _, c := range h.online {
			c.Close()
		}
		h.onlineMu.RUnlock()

		h.wg.Wait()
	})
}

func getShard(conversationID string) uint32 {
	if conversationID == "" {
		return 0
	}
	sum := sha1.Sum([]byte(conversationID))
	return binary.BigEndian.Uint32(sum[:4]) % shardCount
}

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWS upgrades an authenticated request to a websocket connection and
// registers the client with the hub. Identity comes from the bearer token
// validated by the caller.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID, userName string) {
	upgrader := websocketUpgrader
	upgrader.CheckOrigin = h.checkOrigin

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	registerClient(userID, userName, conn, h)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients
	}
	_, ok := h.allowedOrigins[origin]
	return ok
}
