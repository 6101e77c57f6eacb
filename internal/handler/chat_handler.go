package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/VISHYOU-GIT/realestate-chat/internal/attachment"
	"github.com/VISHYOU-GIT/realestate-chat/internal/middleware"
	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
	"github.com/VISHYOU-GIT/realestate-chat/internal/service"
)

// maxUploadBytes bounds the multipart body; the attachment pipeline applies
// the tighter per-type limits afterwards.
const maxUploadBytes = 60 << 20

type ChatHandler interface {
	GetOrCreateConversation(c *gin.Context)
	GetConversationByProperty(c *gin.Context)
	ListConversations(c *gin.Context)
	GetConversation(c *gin.Context)
	SendMessage(c *gin.Context)
	DeleteConversation(c *gin.Context)
}

type chatHandler struct {
	service service.ChatService
	logger  *zap.Logger
}

func NewChatHandler(service service.ChatService, logger *zap.Logger) ChatHandler {
	return &chatHandler{service: service, logger: logger}
}

type startConversationRequest struct {
	PropertyID string `json:"propertyId" binding:"required"`
}

type sendMessageRequest struct {
	Content  string `json:"content"`
	Type     string `json:"type"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// GetOrCreateConversation handles POST /api/chat.
func (h *chatHandler) GetOrCreateConversation(c *gin.Context) {
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "validation_error", "propertyId is required")
		return
	}

	view, err := h.service.GetOrCreate(c.Request.Context(), req.PropertyID, middleware.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "conversation": view})
}

// GetConversationByProperty handles GET /api/chat/property/:propertyId. Same
// get-or-create semantics as the POST form, addressed by listing instead of
// conversation.
func (h *chatHandler) GetConversationByProperty(c *gin.Context) {
	view, err := h.service.GetOrCreate(c.Request.Context(), c.Param("propertyId"), middleware.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "conversation": view})
}

// ListConversations handles GET /api/chat.
func (h *chatHandler) ListConversations(c *gin.Context) {
	views, err := h.service.ListConversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "conversations": views})
}

// GetConversation handles GET /api/chat/:id. Fetching the log marks it read
// for the caller.
func (h *chatHandler) GetConversation(c *gin.Context) {
	view, err := h.service.GetConversation(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "conversation": view})
}

// SendMessage handles POST /api/chat/:id/message. Accepts a JSON body for
// text messages and pre-uploaded references, or multipart form data when the
// client sends the file bytes through us.
func (h *chatHandler) SendMessage(c *gin.Context) {
	input, err := h.bindSendInput(c)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), c.Param("id"), middleware.UserID(c), *input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": msg})
}

// DeleteConversation handles DELETE /api/chat/:id.
func (h *chatHandler) DeleteConversation(c *gin.Context) {
	if err := h.service.DeleteConversation(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *chatHandler) bindSendInput(c *gin.Context) (*service.SendMessageInput, error) {
	contentType := c.ContentType()
	if contentType == "multipart/form-data" {
		return h.bindMultipart(c)
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, errors.New("malformed message body")
	}

	input := &service.SendMessageInput{
		Content: req.Content,
		Type:    req.Type,
	}
	if input.Type == "" {
		input.Type = model.MessageTypeText
	}
	if req.FileURL != "" {
		input.AttachmentRef = &model.AttachmentRef{
			FileURL:  req.FileURL,
			FileName: req.FileName,
			FileSize: req.FileSize,
		}
	}
	return input, nil
}

func (h *chatHandler) bindMultipart(c *gin.Context) (*service.SendMessageInput, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, errors.New("file part is required")
	}

	opened, err := fileHeader.Open()
	if err != nil {
		return nil, errors.New("cannot read file part")
	}
	defer opened.Close()

	data, err := io.ReadAll(opened)
	if err != nil {
		return nil, errors.New("cannot read file part")
	}

	messageType := c.PostForm("type")
	if messageType == "" {
		messageType = model.MessageTypeFile
	}

	return &service.SendMessageInput{
		Content: c.PostForm("content"),
		Type:    messageType,
		Attachment: &attachment.File{
			Data: data,
			Name: fileHeader.Filename,
			MIME: fileHeader.Header.Get("Content-Type"),
		},
	}, nil
}

// writeError maps domain sentinels to HTTP statuses.
func (h *chatHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		h.fail(c, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, model.ErrForbidden):
		h.fail(c, http.StatusForbidden, "forbidden", "you are not part of this conversation")
	case errors.Is(err, model.ErrValidation):
		h.fail(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, model.ErrInvalidOperation):
		h.fail(c, http.StatusBadRequest, "invalid_operation", err.Error())
	case errors.Is(err, model.ErrRateLimited):
		h.fail(c, http.StatusTooManyRequests, "rate_limited", "too many messages, slow down")
	case errors.Is(err, model.ErrUploadFailed):
		h.logger.Error("attachment upload failed", zap.Error(err))
		h.fail(c, http.StatusBadGateway, "upload_failed", "file upload failed, try again")
	default:
		h.logger.Error("chat request failed", zap.String("path", c.FullPath()), zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func (h *chatHandler) fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"status": "error",
		"error":  model.ErrorPayload{Code: code, Message: message},
	})
}
