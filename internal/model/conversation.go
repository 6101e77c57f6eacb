package model

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation represents a per-listing chat channel between exactly two
// participants. At most one active conversation exists per
// (listing, unordered participant pair); ParticipantsKey backs the unique
// index that enforces it.
type Conversation struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ListingID       primitive.ObjectID `json:"listingId" bson:"listing_id"`
	Participants    []string           `json:"participants" bson:"participants"`
	ParticipantsKey string             `json:"-" bson:"participants_key"`
	LastMessage     *LastMessage       `json:"lastMessage" bson:"last_message"`
	LastMessageAt   time.Time          `json:"lastMessageAt" bson:"last_message_at"`
	IsActive        bool               `json:"isActive" bson:"is_active"`
	CreatedAt       time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updated_at"`
}

// LastMessage is the denormalized preview of the most recent message.
type LastMessage struct {
	Content  string `json:"content" bson:"content"`
	Type     string `json:"type" bson:"type"`
	SenderID string `json:"senderId" bson:"sender_id"`
}

// ParticipantsKey builds the order-independent pair key used by the
// uniqueness index. Both orderings of the same pair yield the same key.
func ParticipantsKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the first participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// ConversationView is a conversation annotated for the requesting
// participant: unread count, resolved profiles and the listing preview.
type ConversationView struct {
	Conversation
	UnreadCount  int64           `json:"unreadCount"`
	Participants []UserSummary   `json:"participants"`
	Listing      *ListingPreview `json:"listing,omitempty"`
	Messages     []Message       `json:"messages,omitempty"`
}
