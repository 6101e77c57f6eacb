package model

// MonitorResponse is the payload of the hub statistics endpoint.
type MonitorResponse struct {
	Status      string       `json:"status"` // "healthy" or "idle"
	Connections int          `json:"connections"`
	Rooms       RoomStats    `json:"rooms"`
	Clients     []ClientInfo `json:"clients"`
}

// RoomStats summarizes the realtime rooms currently held by the hub.
type RoomStats struct {
	TotalRooms  int        `json:"totalRooms"`
	RoomDetails []RoomInfo `json:"roomDetails"`
}

// RoomInfo describes a single conversation room.
type RoomInfo struct {
	ConversationID string   `json:"conversationId"`
	Viewers        int      `json:"viewers"`
	UserIDs        []string `json:"userIds"`
	TypingUsers    []string `json:"typingUsers"`
}

// ClientInfo describes a connected socket.
type ClientInfo struct {
	ClientID string   `json:"clientId"`
	UserID   string   `json:"userId"`
	Rooms    []string `json:"rooms"`
}
