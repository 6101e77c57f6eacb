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

type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*model.User, error)
	SummariesByIDs(ctx context.Context, userIDs []string) (map[string]model.UserSummary, error)
}

type userRepository struct {
	mongoRepo *db.Repository[model.User]
}

func NewUserRepository(repo *db.Repository[model.User]) UserRepository {
	return &userRepository{mongoRepo: repo}
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
	}

	user, err := r.mongoRepo.FindOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	return user, nil
}

// SummariesByIDs resolves user ids to public profiles in one query. Unknown
// ids are simply absent from the result.
func (r *userRepository) SummariesByIDs(ctx context.Context, userIDs []string) (map[string]model.UserSummary, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(userIDs))
	for _, id := range userIDs {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}

	users, err := r.mongoRepo.FindAll(ctx, db.NewFilter().In("_id", objectIDs).Build())
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}

	summaries := make(map[string]model.UserSummary, len(users))
	for i := range users {
		summaries[users[i].ID.Hex()] = users[i].Summary()
	}
	return summaries, nil
}
