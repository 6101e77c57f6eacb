package configuration

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/VISHYOU-GIT/realestate-chat/internal/attachment"
	"github.com/VISHYOU-GIT/realestate-chat/internal/db"
	"github.com/VISHYOU-GIT/realestate-chat/internal/handler"
	"github.com/VISHYOU-GIT/realestate-chat/internal/hub"
	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
	"github.com/VISHYOU-GIT/realestate-chat/internal/repo"
	"github.com/VISHYOU-GIT/realestate-chat/internal/service"
)

type Container struct {
	ChatHandler    handler.ChatHandler
	MonitorHandler handler.MonitorHandler
	Hub            *hub.Hub
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoDB     *mongo.Database
	redisClient *redis.Client
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	conn, err := db.OpenConnection(config.Mongo.URI, config.Mongo.Database)
	if err != nil {
		return nil, fmt.Errorf("open mongo: %w", err)
	}

	conversationRepo := repo.NewConversationRepository(
		db.NewRepository[model.Conversation](conn, config.Mongo.ConversationsCollection), logger)
	messageRepo := repo.NewMessageRepository(
		db.NewRepository[model.Message](conn, config.Mongo.MessagesCollection), logger)
	userRepo := repo.NewUserRepository(
		db.NewRepository[model.User](conn, config.Mongo.UsersCollection))
	listingRepo := repo.NewListingRepository(
		db.NewRepository[model.Listing](conn, config.Mongo.ListingsCollection))

	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := conversationRepo.EnsureIndexes(indexCtx); err != nil {
		return nil, fmt.Errorf("conversation indexes: %w", err)
	}
	if err := messageRepo.EnsureIndexes(indexCtx); err != nil {
		return nil, fmt.Errorf("message indexes: %w", err)
	}

	// Redis is optional: without it unread counters live in process memory,
	// which is fine for a single instance.
	var redisClient *redis.Client
	tracker := service.NewMemoryUnreadTracker()
	if config.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := redisClient.Ping(indexCtx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		tracker = service.NewRedisUnreadTracker(redisClient, logger)
	}

	blobs := attachment.NewCloudinaryStore(attachment.CloudinaryConfig{
		CloudName: config.Blob.CloudName,
		APIKey:    config.Blob.APIKey,
		APISecret: config.Blob.APISecret,
	}, logger)

	throttle := service.NewSendThrottle(config.Throttle.SendCapacity, config.Throttle.SendPerSecond)

	chatService := service.NewChatService(
		conversationRepo, messageRepo, userRepo, listingRepo,
		blobs, tracker, throttle, logger,
	)

	h := hub.NewHub(logger, config.CORS.AllowedOrigins)
	h.SetAuthorizer(chatService)
	chatService.SetBus(h)

	return &Container{
		ChatHandler:    handler.NewChatHandler(chatService, logger),
		MonitorHandler: handler.NewMonitorHandler(hub.NewMonitorService(h)),
		Hub:            h,
		Config:         *config,
		Logger:         logger,
		mongoDB:        conn,
		redisClient:    redisClient,
	}, nil
}

// Close gracefully shuts down all connections.
func (c *Container) Close() error {
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.Logger.Warn("redis close failed", zap.Error(err))
		}
	}

	if c.mongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoDB.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
