package event

import "encoding/json"

// Client -> server events.
const (
	EventJoinRoom   = "join_room"
	EventLeaveRoom  = "leave_room"
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"
)

// Server -> client events.
const (
	EventReceiveMessage = "receive_message"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventError          = "error"
)

// WsEvent is the envelope for every frame on the socket, both directions.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewWsEvent marshals payload into an envelope. Marshal failures are a
// programming error; the envelope is sent with an empty payload in that case.
func NewWsEvent(name string, payload interface{}) WsEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{Event: name}
	}
	return WsEvent{Event: name, Payload: raw}
}

// RoomPayload is the body of join_room / leave_room / stop_typing.
type RoomPayload struct {
	ConversationID string `json:"conversationId"`
}

// TypingPayload is the body of typing and of both typing broadcasts.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
}

// MessagePayload carries a freshly persisted message to a room. Message is
// the fully resolved message as returned by the append path.
type MessagePayload struct {
	ConversationID string      `json:"conversationId"`
	Message        interface{} `json:"message"`
}
