package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message type tags. The set is closed: anything else is rejected at append.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypePDF   = "pdf"
	MessageTypeLink  = "link"
	MessageTypeFile  = "file"
)

// MaxContentLength bounds message content, measured in runes.
const MaxContentLength = 1000

// Message represents a chat message document in MongoDB. Messages are
// append-only; the only mutable part is the read state, which only grows.
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversation_id"`
	SenderID       string             `json:"senderId" bson:"sender_id"`
	Content        string             `json:"content" bson:"content"`
	Type           string             `json:"type" bson:"type"`
	FileURL        string             `json:"fileUrl,omitempty" bson:"file_url,omitempty"`
	FileName       string             `json:"fileName,omitempty" bson:"file_name,omitempty"`
	FileSize       int64              `json:"fileSize,omitempty" bson:"file_size,omitempty"`
	IsRead         bool               `json:"isRead" bson:"is_read"`
	ReadBy         []string           `json:"readBy" bson:"read_by"`
	ReadAt         *time.Time         `json:"readAt,omitempty" bson:"read_at,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`

	// Sender is resolved to a public profile for display; never stored.
	Sender *UserSummary `json:"sender,omitempty" bson:"-"`
}

// ValidType reports whether t belongs to the closed message type set.
func ValidType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo,
		MessageTypePDF, MessageTypeLink, MessageTypeFile:
		return true
	}
	return false
}

// ReadByUser reports whether userID is recorded in the message read set.
func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// AttachmentRef is the descriptor a persisted message carries for its
// uploaded attachment. PublicID is the blob-store handle for deletion.
type AttachmentRef struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	PublicID string `json:"-"`
}
