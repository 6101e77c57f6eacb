package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Listing is the slice of a property document the chat core needs: its
// existence, its owner and enough fields for a preview card.
type Listing struct {
	ID      primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OwnerID string             `json:"ownerId" bson:"owner_id"`
	Title   string             `json:"title" bson:"title"`
	City    string             `json:"city" bson:"city"`
	Images  []string           `json:"images" bson:"images"`
}

// ListingPreview is the denormalized card shown on a conversation.
type ListingPreview struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image string `json:"image,omitempty"`
}

// Preview builds the conversation card for a listing.
func (l *Listing) Preview() *ListingPreview {
	p := &ListingPreview{
		ID:    l.ID.Hex(),
		Title: l.Title,
	}
	if len(l.Images) > 0 {
		p.Image = l.Images[0]
	}
	return p
}
