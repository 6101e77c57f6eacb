package attachment

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
)

// UploadResult is the durable reference returned by the blob store: a
// public URL for display and a store-side id usable for deletion.
type UploadResult struct {
	URL      string
	PublicID string
}

// BlobStore is the external binary-storage collaborator. Implementations
// must be safe for concurrent use.
type BlobStore interface {
	Upload(ctx context.Context, f *File, folder string, publicID string) (*UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// FolderFor maps a message type to its blob-store folder.
func FolderFor(messageType string) string {
	switch messageType {
	case model.MessageTypeImage:
		return "realstate/chat/images"
	case model.MessageTypeVideo:
		return "realstate/chat/videos"
	default:
		return "realstate/chat/documents"
	}
}

// CloudinaryConfig carries the signed-upload credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type cloudinaryStore struct {
	cfg    CloudinaryConfig
	client *http.Client
	logger *zap.Logger
}

// NewCloudinaryStore builds a BlobStore backed by Cloudinary's signed
// upload API.
func NewCloudinaryStore(cfg CloudinaryConfig, logger *zap.Logger) BlobStore {
	return &cloudinaryStore{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

func (s *cloudinaryStore) resourceType(mime string) string {
	switch {
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case mime == "application/pdf":
		return "raw"
	default:
		return "image"
	}
}

func (s *cloudinaryStore) sign(publicID, timestamp string) string {
	payload := fmt.Sprintf("public_id=%s&timestamp=%s%s", publicID, timestamp, s.cfg.APISecret)
	return fmt.Sprintf("%x", sha1.Sum([]byte(payload)))
}

func (s *cloudinaryStore) Upload(ctx context.Context, f *File, folder string, publicID string) (*UploadResult, error) {
	fullID := publicID
	if folder != "" {
		fullID = folder + "/" + publicID
	}

	resource := s.resourceType(f.MIME)
	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/%s/upload", s.cfg.CloudName, resource)

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	form := url.Values{}
	form.Add("file", "data:"+f.MIME+";base64,"+base64.StdEncoding.EncodeToString(f.Data))
	form.Add("api_key", s.cfg.APIKey)
	form.Add("public_id", fullID)
	form.Add("timestamp", timestamp)
	form.Add("signature", s.sign(fullID, timestamp))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("blob upload request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", model.ErrUploadFailed, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", model.ErrUploadFailed, err)
	}

	if res.StatusCode != http.StatusOK {
		s.logger.Error("blob upload rejected",
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, fmt.Errorf("%w: store returned status %d", model.ErrUploadFailed, res.StatusCode)
	}

	var uploaded struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		PublicID  string `json:"public_id"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", model.ErrUploadFailed, err)
	}
	if uploaded.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", model.ErrUploadFailed, uploaded.Error.Message)
	}

	resultURL := uploaded.SecureURL
	if resultURL == "" {
		resultURL = uploaded.URL
	}
	if resultURL == "" {
		return nil, fmt.Errorf("%w: store returned no URL", model.ErrUploadFailed)
	}

	s.logger.Info("attachment uploaded",
		zap.String("public_id", uploaded.PublicID),
		zap.Int64("size", f.Size()),
	)

	return &UploadResult{URL: resultURL, PublicID: uploaded.PublicID}, nil
}

func (s *cloudinaryStore) Delete(ctx context.Context, publicID string) error {
	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/destroy", s.cfg.CloudName)

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	form := url.Values{}
	form.Add("public_id", publicID)
	form.Add("api_key", s.cfg.APIKey)
	form.Add("timestamp", timestamp)
	form.Add("signature", s.sign(publicID, timestamp))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	defer res.Body.Close()

	var deleted struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&deleted); err != nil {
		return fmt.Errorf("delete attachment: decode response: %w", err)
	}
	if deleted.Result != "ok" {
		return fmt.Errorf("delete attachment: store returned %q", deleted.Result)
	}
	return nil
}
