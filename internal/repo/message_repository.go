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

var (
	ErrInvalidMessage = errors.New("invalid message: message cannot be nil")
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)

type MessageRepository interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, msg *model.Message) (*model.Message, error)
	ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]model.Message, error)
	MarkAllRead(ctx context.Context, conversationID primitive.ObjectID, userID string) (int64, error)
	MarkMessageRead(ctx context.Context, messageID primitive.ObjectID, userID string) error
	CountUnread(ctx context.Context, conversationID primitive.ObjectID, userID string) (int64, error)
}

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

func (m *messageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.mongoRepo.Collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "read_by", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}

// Insert appends msg with a server-assigned timestamp and returns it with
// its generated id. Transient store errors are retried with backoff.
func (m *messageRepository) Insert(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg == nil {
		return nil, ErrInvalidMessage
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg.CreatedAt = time.Now().UTC()
	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying message insert",
				zap.String("conversation_id", msg.ConversationID.Hex()),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				msg.ID = oid
			}
			m.logger.Info("message inserted",
				zap.String("message_id", msg.ID.Hex()),
				zap.String("conversation_id", msg.ConversationID.Hex()),
			)
			return msg, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	m.logger.Error("failed to insert message",
		zap.Error(lastErr),
		zap.String("conversation_id", msg.ConversationID.Hex()),
	)
	return nil, fmt.Errorf("insert message: %w", lastErr)
}

// ListByConversation returns the full log in commit order: created_at
// ascending, insertion sequence (_id) breaking ties.
func (m *messageRepository) ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	messages, err := m.mongoRepo.FindAll(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// MarkAllRead records userID in the read set of every message in the
// conversation it did not author. $addToSet keeps the operation idempotent
// and the read set monotonic.
func (m *messageRepository) MarkAllRead(ctx context.Context, conversationID primitive.ObjectID, userID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		Ne("sender_id", userID).
		Ne("read_by", userID).
		Build()

	now := time.Now().UTC()
	result, err := m.mongoRepo.UpdateMany(ctx, filter, bson.M{
		"$addToSet": bson.M{"read_by": userID},
		"$set":      bson.M{"is_read": true, "read_at": now},
	})
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return result.ModifiedCount, nil
}

// MarkMessageRead records a single message as read by userID, used when the
// recipient has the conversation open at delivery time.
func (m *messageRepository) MarkMessageRead(ctx context.Context, messageID primitive.ObjectID, userID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	_, err := m.mongoRepo.UpdateOne(ctx, bson.M{"_id": messageID}, bson.M{
		"$addToSet": bson.M{"read_by": userID},
		"$set":      bson.M{"is_read": true, "read_at": now},
	})
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// CountUnread recomputes the participant's unread count from the log. This
// is the correctness fallback behind the incremental counter cache.
func (m *messageRepository) CountUnread(ctx context.Context, conversationID primitive.ObjectID, userID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		Ne("sender_id", userID).
		Ne("read_by", userID).
		Build()

	count, err := m.mongoRepo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// shared helpers
// -----------------------------------------------------------------------------

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
