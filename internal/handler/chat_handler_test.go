package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
	"github.com/VISHYOU-GIT/realestate-chat/internal/service"
)

// stubChatService returns canned results; tests swap err to exercise the
// error mapping.
type stubChatService struct {
	err      error
	lastSend service.SendMessageInput
}

func (s *stubChatService) GetOrCreate(context.Context, string, string) (*model.ConversationView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.ConversationView{}, nil
}

func (s *stubChatService) ListConversations(context.Context, string) ([]model.ConversationView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []model.ConversationView{}, nil
}

func (s *stubChatService) GetConversation(context.Context, string, string) (*model.ConversationView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.ConversationView{}, nil
}

func (s *stubChatService) SendMessage(_ context.Context, _ string, _ string, in service.SendMessageInput) (*model.Message, error) {
	s.lastSend = in
	if s.err != nil {
		return nil, s.err
	}
	return &model.Message{Content: in.Content, Type: in.Type}, nil
}

func (s *stubChatService) DeleteConversation(context.Context, string, string) error {
	return s.err
}

func (s *stubChatService) CanJoin(context.Context, string, string) error {
	return s.err
}

func buildRouter(stub *stubChatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewChatHandler(stub, zap.NewNop())

	router := gin.New()
	chat := router.Group("/api/chat")
	{
		chat.POST("", h.GetOrCreateConversation)
		chat.GET("", h.ListConversations)
		chat.GET("/:id", h.GetConversation)
		chat.POST("/:id/message", h.SendMessage)
		chat.DELETE("/:id", h.DeleteConversation)
	}
	return router
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("%w: conversation x", model.ErrNotFound), http.StatusNotFound},
		{"forbidden", fmt.Errorf("%w: nope", model.ErrForbidden), http.StatusForbidden},
		{"validation", fmt.Errorf("%w: bad", model.ErrValidation), http.StatusBadRequest},
		{"invalid operation", fmt.Errorf("%w: own listing", model.ErrInvalidOperation), http.StatusBadRequest},
		{"rate limited", fmt.Errorf("%w: slow down", model.ErrRateLimited), http.StatusTooManyRequests},
		{"upload failed", fmt.Errorf("%w: cdn down", model.ErrUploadFailed), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := buildRouter(&stubChatService{err: tt.err})

			req := httptest.NewRequest(http.MethodGet, "/api/chat/64b000000000000000000001", nil)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != tt.want {
				t.Fatalf("status = %d, want %d", resp.Code, tt.want)
			}

			var body struct {
				Status string             `json:"status"`
				Error  model.ErrorPayload `json:"error"`
			}
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if body.Status != "error" || body.Error.Code == "" {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}

func TestSendMessageJSONBinding(t *testing.T) {
	stub := &stubChatService{}
	router := buildRouter(stub)

	payload := `{"content":"still available?","type":"text"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/64b000000000000000000001/message",
		strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.Code)
	}
	if stub.lastSend.Content != "still available?" || stub.lastSend.Type != "text" {
		t.Fatalf("bound input = %+v", stub.lastSend)
	}
}

func TestSendMessageDefaultsToText(t *testing.T) {
	stub := &stubChatService{}
	router := buildRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/64b000000000000000000001/message",
		strings.NewReader(`{"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.Code)
	}
	if stub.lastSend.Type != model.MessageTypeText {
		t.Fatalf("type = %q, want text default", stub.lastSend.Type)
	}
}

func TestSendMessageBindsAttachmentReference(t *testing.T) {
	stub := &stubChatService{}
	router := buildRouter(stub)

	payload := `{"type":"image","fileUrl":"https://cdn.example.com/a.jpg","fileName":"a.jpg","fileSize":99}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/64b000000000000000000001/message",
		strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.Code)
	}
	ref := stub.lastSend.AttachmentRef
	if ref == nil || ref.FileURL != "https://cdn.example.com/a.jpg" || ref.FileSize != 99 {
		t.Fatalf("attachment ref = %+v", ref)
	}
}

func TestSendMessageMultipartBinding(t *testing.T) {
	stub := &stubChatService{}
	router := buildRouter(stub)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "photo.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte{0x89, 0x50, 0x4E, 0x47}); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = writer.WriteField("type", "image")
	_ = writer.WriteField("content", "the kitchen")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/64b000000000000000000001/message", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.Code, resp.Body.String())
	}
	in := stub.lastSend
	if in.Attachment == nil {
		t.Fatal("no attachment bound")
	}
	if in.Attachment.Name != "photo.png" || len(in.Attachment.Data) != 4 {
		t.Fatalf("attachment = %+v", in.Attachment)
	}
	if in.Content != "the kitchen" || in.Type != "image" {
		t.Fatalf("fields = %+v", in)
	}
}

func TestSendMessageMalformedBody(t *testing.T) {
	router := buildRouter(&stubChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/64b000000000000000000001/message",
		strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestStartConversationRequiresPropertyID(t *testing.T) {
	router := buildRouter(&stubChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}
