package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a marketplace account document. The chat core only reads
// these; account lifecycle belongs to the identity service.
type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	Role         string             `json:"role" bson:"role"`
	ProfileImage string             `json:"profileImage" bson:"profile_image"`
	IsActive     bool               `json:"isActive" bson:"is_active"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
}

// UserSummary is the public profile shape attached to conversations and
// resolved messages.
type UserSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Summary converts a full user document to its public profile.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID.Hex(),
		Name:         u.Name,
		ProfileImage: u.ProfileImage,
	}
}
