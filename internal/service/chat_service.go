package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VISHYOU-GIT/realestate-chat/internal/attachment"
	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
	"github.com/VISHYOU-GIT/realestate-chat/internal/repo"
)

// RealtimeBus is the delivery fan-out the service notifies after a
// successful append. Implemented by the websocket hub.
type RealtimeBus interface {
	BroadcastMessage(conversationID string, message interface{})
	IsUserInRoom(conversationID, userID string) bool
}

// SendMessageInput is an append request. Exactly one of Attachment (raw
// bytes still to go through the pipeline) and AttachmentRef (already
// uploaded) may be set; both may be nil for plain text.
type SendMessageInput struct {
	Content       string
	Type          string
	Attachment    *attachment.File
	AttachmentRef *model.AttachmentRef
}

type ChatService interface {
	GetOrCreate(ctx context.Context, listingID, requesterID string) (*model.ConversationView, error)
	ListConversations(ctx context.Context, userID string) ([]model.ConversationView, error)
	GetConversation(ctx context.Context, conversationID, requesterID string) (*model.ConversationView, error)
	SendMessage(ctx context.Context, conversationID, senderID string, in SendMessageInput) (*model.Message, error)
	DeleteConversation(ctx context.Context, conversationID, requesterID string) error

	// CanJoin implements the hub's room authorization.
	CanJoin(ctx context.Context, conversationID, userID string) error
}

type chatService struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	users         repo.UserRepository
	listings      repo.ListingDirectory
	blobs         attachment.BlobStore
	tracker       UnreadTracker
	throttle      *SendThrottle
	bus           RealtimeBus
	logger        *zap.Logger
}

func NewChatService(
	conversations repo.ConversationRepository,
	messages repo.MessageRepository,
	users repo.UserRepository,
	listings repo.ListingDirectory,
	blobs attachment.BlobStore,
	tracker UnreadTracker,
	throttle *SendThrottle,
	logger *zap.Logger,
) *chatService {
	return &chatService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		listings:      listings,
		blobs:         blobs,
		tracker:       tracker,
		throttle:      throttle,
		logger:        logger,
	}
}

// SetBus wires the realtime bus. The hub and the service reference each
// other (bus one way, room authorizer the other), so one side is attached
// after construction.
func (s *chatService) SetBus(bus RealtimeBus) {
	s.bus = bus
}

func (s *chatService) GetOrCreate(ctx context.Context, listingID, requesterID string) (*model.ConversationView, error) {
	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID == requesterID {
		return nil, fmt.Errorf("%w: cannot start a conversation on your own listing", model.ErrInvalidOperation)
	}

	conversation, err := s.conversations.GetOrCreate(ctx, listing.ID, requesterID, listing.OwnerID)
	if err != nil {
		return nil, err
	}

	return s.buildView(ctx, conversation, requesterID, listing)
}

func (s *chatService) ListConversations(ctx context.Context, userID string) ([]model.ConversationView, error) {
	conversations, err := s.conversations.ListForParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]model.ConversationView, 0, len(conversations))
	for i := range conversations {
		view, err := s.buildView(ctx, &conversations[i], userID, nil)
		if err != nil {
			s.logger.Warn("skipping conversation view",
				zap.String("conversation_id", conversations[i].ID.Hex()),
				zap.Error(err),
			)
			continue
		}
		views = append(views, *view)
	}
	return views, nil
}

// GetConversation returns the full ordered log and, as a side effect, marks
// every message not authored by the requester as read and zeroes the
// requester's unread counter.
func (s *chatService) GetConversation(ctx context.Context, conversationID, requesterID string) (*model.ConversationView, error) {
	conversation, err := s.activeConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(requesterID) {
		return nil, fmt.Errorf("%w: not a participant of conversation %s", model.ErrForbidden, conversationID)
	}

	if _, err := s.messages.MarkAllRead(ctx, conversation.ID, requesterID); err != nil {
		return nil, err
	}
	if err := s.tracker.Clear(ctx, conversationID, requesterID); err != nil {
		s.logger.Warn("unread clear failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}

	messages, err := s.messages.ListByConversation(ctx, conversation.ID)
	if err != nil {
		return nil, err
	}

	view, err := s.buildView(ctx, conversation, requesterID, nil)
	if err != nil {
		return nil, err
	}
	view.UnreadCount = 0

	s.resolveSenders(ctx, messages)
	view.Messages = messages
	return view, nil
}

func (s *chatService) SendMessage(ctx context.Context, conversationID, senderID string, in SendMessageInput) (*model.Message, error) {
	conversation, err := s.activeConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(senderID) {
		return nil, fmt.Errorf("%w: not a participant of conversation %s", model.ErrForbidden, conversationID)
	}

	if err := validateInput(&in); err != nil {
		return nil, err
	}

	// Only well-formed sends count against the sender's rate budget.
	if !s.throttle.Allow(conversationID, senderID) {
		return nil, fmt.Errorf("%w: too many messages in conversation %s", model.ErrRateLimited, conversationID)
	}

	// Attachment work happens before anything is persisted: an upload
	// failure aborts the append with no partial message.
	ref := in.AttachmentRef
	if in.Attachment != nil {
		ref, err = s.processAttachment(ctx, conversationID, in.Type, in.Attachment)
		if err != nil {
			return nil, err
		}
	}

	content := in.Content
	if content == "" && ref != nil {
		if ref.FileName != "" {
			content = "Sent " + ref.FileName
		} else {
			content = "File"
		}
	}

	msg := &model.Message{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Content:        content,
		Type:           in.Type,
	}
	if ref != nil {
		msg.FileURL = ref.FileURL
		msg.FileName = ref.FileName
		msg.FileSize = ref.FileSize
	}

	msg, err = s.messages.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}

	last := &model.LastMessage{
		Content:  msg.Content,
		Type:     msg.Type,
		SenderID: senderID,
	}
	if err := s.conversations.UpdateLastMessage(ctx, conversation.ID, last, msg.CreatedAt); err != nil {
		s.logger.Error("last message update failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}

	if sender, err := s.users.GetByID(ctx, senderID); err == nil {
		summary := sender.Summary()
		msg.Sender = &summary
	}

	// Fan-out is fire-and-forget relative to the HTTP response; the caller
	// already holds the persisted message.
	go s.afterAppend(conversation, msg, senderID)

	return msg, nil
}

func (s *chatService) DeleteConversation(ctx context.Context, conversationID, requesterID string) error {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(requesterID) {
		return fmt.Errorf("%w: not a participant of conversation %s", model.ErrForbidden, conversationID)
	}
	return s.conversations.SoftDelete(ctx, conversation.ID)
}

func (s *chatService) CanJoin(ctx context.Context, conversationID, userID string) error {
	conversation, err := s.activeConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return fmt.Errorf("%w: not a participant of conversation %s", model.ErrForbidden, conversationID)
	}
	return nil
}

// -----------------------------------------------------------------------------
// internals
// -----------------------------------------------------------------------------

func (s *chatService) activeConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.IsActive {
		return nil, fmt.Errorf("%w: conversation %s", model.ErrNotFound, conversationID)
	}
	return conversation, nil
}

func validateInput(in *SendMessageInput) error {
	if !model.ValidType(in.Type) {
		return fmt.Errorf("%w: unknown message type %q", model.ErrValidation, in.Type)
	}
	if utf8.RuneCountInString(in.Content) > model.MaxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters", model.ErrValidation, model.MaxContentLength)
	}
	if in.Attachment != nil && in.AttachmentRef != nil {
		return fmt.Errorf("%w: message carries both a file and a file reference", model.ErrValidation)
	}
	if in.AttachmentRef != nil && in.AttachmentRef.FileURL == "" {
		return fmt.Errorf("%w: attachment reference without a URL", model.ErrValidation)
	}
	if in.Content == "" && in.Attachment == nil && in.AttachmentRef == nil {
		return fmt.Errorf("%w: message content or file is required", model.ErrValidation)
	}
	return nil
}

/// processAttachment runs the pipeline: validate, compress (images), upload.
func (s *chatService) processAttachment(ctx context.Context, conversationID, messageType string, f *attachment.File) (*model.AttachmentRef, error) {
	f.Type = messageType
	if err := attachment.Validate(f); err != nil {
		return nil, err
	}

	processed, err := attachment.Compress(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	name := processed.Name
	size := processed.Size()

	uploaded, err := s.blobs.Upload(ctx, processed, attachment.FolderFor(messageType),
		conversationID+"-"+uuid.New().String())
	if err != nil {
		return nil, err
	}

	return &model.AttachmentRef{
		FileURL:  uploaded.URL,
		FileName: name,
		FileSize: size,
		PublicID: uploaded.PublicID,
	}, nil
}

// afterAppend broadcasts the persisted message to the conversation room and
// settles the recipient's read state: read immediately while viewing,
// otherwise one more unread.
func (s *chatService) afterAppend(conversation *model.Conversation, msg *model.Message, senderID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conversationID := conversation.ID.Hex()
	if s.bus != nil {
		s.bus.BroadcastMessage(conversationID, msg)
	}

	recipientID := conversation.OtherParticipant(senderID)
	if recipientID == "" {
		return
	}

	viewing := s.bus != nil && s.bus.IsUserInRoom(conversationID, recipientID)
	s.onMessageDelivered(ctx, conversationID, msg, recipientID, viewing)
}

func (s *chatService) onMessageDelivered(ctx context.Context, conversationID string, msg *model.Message, recipientID string, viewing bool) {
	if viewing {
		if err := s.messages.MarkMessageRead(ctx, msg.ID, recipientID); err != nil {
			s.logger.Warn("mark delivered message read failed",
				zap.String("message_id", msg.ID.Hex()), zap.Error(err))
		}
		return
	}
	if err := s.tracker.Increment(ctx, conversationID, recipientID); err != nil {
		s.logger.Warn("unread increment failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
}

// unreadCount serves the cached counter when warm and recomputes from the
// log otherwise.
func (s *chatService) unreadCount(ctx context.Context, conversation *model.Conversation, userID string) int64 {
	conversationID := conversation.ID.Hex()
	if count, ok := s.tracker.Get(ctx, conversationID, userID); ok {
		return count
	}

	count, err := s.messages.CountUnread(ctx, conversation.ID, userID)
	if err != nil {
		s.logger.Warn("unread recompute failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return 0
	}
	if err := s.tracker.Set(ctx, conversationID, userID, count); err != nil {
		s.logger.Debug("unread cache warm failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
	return count
}

// buildView annotates a conversation for one participant. listing may be
// pre-fetched by the caller; when nil it is resolved here.
func (s *chatService) buildView(ctx context.Context, conversation *model.Conversation, userID string, listing *model.Listing) (*model.ConversationView, error) {
	view := &model.ConversationView{
		Conversation: *conversation,
		UnreadCount:  s.unreadCount(ctx, conversation, userID),
	}

	summaries, err := s.users.SummariesByIDs(ctx, conversation.Participants)
	if err != nil {
		return nil, err
	}
	view.Participants = make([]model.UserSummary, 0, len(conversation.Participants))
	for _, id := range conversation.Participants {
		if summary, ok := summaries[id]; ok {
			view.Participants = append(view.Participants, summary)
		}
	}

	if listing == nil {
		listing, err = s.listings.GetListing(ctx, conversation.ListingID.Hex())
		if err != nil {
			s.logger.Debug("listing preview unavailable",
				zap.String("listing_id", conversation.ListingID.Hex()), zap.Error(err))
		}
	}
	if listing != nil {
		view.Listing = listing.Preview()
	}

	return view, nil
}

// resolveSenders attaches public sender profiles to messages in place.
func (s *chatService) resolveSenders(ctx context.Context, messages []model.Message) {
	if len(messages) == 0 {
		return
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, 2)
	for i := range messages {
		if _, ok := seen[messages[i].SenderID]; !ok {
			seen[messages[i].SenderID] = struct{}{}
			ids = append(ids, messages[i].SenderID)
		}
	}

	summaries, err := s.users.SummariesByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("sender resolution failed", zap.Error(err))
		return
	}
	for i := range messages {
		if summary, ok := summaries[messages[i].SenderID]; ok {
			s := summary
			messages[i].Sender = &s
		}
	}
}
