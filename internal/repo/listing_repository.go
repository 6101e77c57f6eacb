package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/VISHYOU-GIT/realestate-chat/internal/db"
	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
)

// ListingDirectory resolves listing ids to their owner and preview data.
// The marketplace owns listing lifecycle; the chat core only reads.
type ListingDirectory interface {
	GetListing(ctx context.Context, listingID string) (*model.Listing, error)
}

type listingRepository struct {
	mongoRepo *db.Repository[model.Listing]
}

func NewListingRepository(repo *db.Repository[model.Listing]) ListingDirectory {
	return &listingRepository{mongoRepo: repo}
}

func (r *listingRepository) GetListing(ctx context.Context, listingID string) (*model.Listing, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s", model.ErrNotFound, listingID)
	}

	listing, err := r.mongoRepo.FindOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: listing %s", model.ErrNotFound, listingID)
		}
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	return listing, nil
}
