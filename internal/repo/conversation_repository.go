package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/VISHYOU-GIT/realestate-chat/internal/db"
	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
)

type ConversationRepository interface {
	EnsureIndexes(ctx context.Context) error
	GetOrCreate(ctx context.Context, listingID primitive.ObjectID, participantA, participantB string) (*model.Conversation, error)
	GetByID(ctx context.Context, conversationID string) (*model.Conversation, error)
	ListForParticipant(ctx context.Context, userID string) ([]model.Conversation, error)
	UpdateLastMessage(ctx context.Context, conversationID primitive.ObjectID, last *model.LastMessage, at time.Time) error
	SoftDelete(ctx context.Context, conversationID primitive.ObjectID) error
}

type conversationRepository struct {
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

func NewConversationRepository(repo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// EnsureIndexes creates the uniqueness index backing get-or-create: one
// active conversation per (listing, unordered participant pair). Partial on
// is_active so a soft-deleted conversation does not block a new one.
func (r *conversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.mongoRepo.Collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "participants_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_active": true}),
		},
		{
			Keys: bson.D{{Key: "participants", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "last_message_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create conversation indexes: %w", err)
	}
	return nil
}

// GetOrCreate finds the active conversation for the pair or atomically
// creates it. Concurrent calls for the same pair converge on one document:
// the filter plus $setOnInsert upsert is a compare-and-create against the
// unique index.
func (r *conversationRepository) GetOrCreate(ctx context.Context, listingID primitive.ObjectID, participantA, participantB string) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	filter := db.NewFilter().
		Eq("listing_id", listingID).
		Eq("participants_key", model.ParticipantsKey(participantA, participantB)).
		Eq("is_active", true).
		Build()

	update := bson.M{
		"$setOnInsert": bson.M{
			"participants":    []string{participantA, participantB},
			"last_message_at": now,
			"created_at":      now,
			"updated_at":      now,
		},
	}

	conversation, err := r.mongoRepo.FindOneAndUpdate(ctx, filter, update, true)
	if err != nil {
		// A concurrent upsert can race on the unique index; the retry
		// finds the winner's document.
		if mongo.IsDuplicateKeyError(err) {
			conversation, err = r.mongoRepo.FindOne(ctx, filter)
		}
		if err != nil {
			r.logger.Error("get-or-create conversation failed",
				zap.String("listing_id", listingID.Hex()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("get or create conversation: %w", err)
		}
	}

	return conversation, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: conversation %s", model.ErrNotFound, conversationID)
	}

	conversation, err := r.mongoRepo.FindOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: conversation %s", model.ErrNotFound, conversationID)
		}
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	return conversation, nil
}

func (r *conversationRepository) ListForParticipant(ctx context.Context, userID string) ([]model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Contains("participants", userID).
		Eq("is_active", true).
		Build()

	conversations, err := r.mongoRepo.FindAll(ctx, filter,
		options.Find().SetSort(bson.M{"last_message_at": -1}))
	if err != nil {
		r.logger.Error("list conversations failed",
			zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

// UpdateLastMessage refreshes the denormalized preview. The last_message_at
// guard makes the update a no-op when a newer append already committed, so
// racing appends cannot leave an older message as the preview.
func (r *conversationRepository) UpdateLastMessage(ctx context.Context, conversationID primitive.ObjectID, last *model.LastMessage, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("_id", conversationID).
		Lte("last_message_at", at).
		Build()

	_, err := r.mongoRepo.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"last_message":    last,
			"last_message_at": at,
			"updated_at":      at,
		},
	})
	if err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	return nil
}

// SoftDelete clears is_active; messages stay untouched.
func (r *conversationRepository) SoftDelete(ctx context.Context, conversationID primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.UpdateOne(ctx, bson.M{"_id": conversationID}, bson.M{
		"$set": bson.M{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		},
	})
	if err != nil {
		return fmt.Errorf("soft delete conversation: %w", err)
	}
	return nil
}
