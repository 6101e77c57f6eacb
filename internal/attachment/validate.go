package attachment

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
)

// Size caps by attachment kind.
const (
	MaxImageSize    = 5 * 1024 * 1024  // 5MB
	MaxVideoSize    = 50 * 1024 * 1024 // 50MB
	MaxDocumentSize = 10 * 1024 * 1024 // 10MB
)

// Rejection reasons. Each validation failure carries exactly one.
const (
	ReasonFileTooLarge        = "file-too-large"
	ReasonDisallowedExtension = "disallowed-extension"
	ReasonUnsupportedMIME     = "unsupported-mime"
	ReasonSignatureMismatch   = "signature-mismatch"
)

// File is a transient client-submitted attachment awaiting validation,
// compression and upload. It never outlives the request.
type File struct {
	Data []byte
	Name string
	MIME string
	Type string // declared message type: image, video, pdf or file
}

func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// ValidationError is a rejection with a machine-readable reason. It unwraps
// to model.ErrValidation so handlers map it like any other validation error.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("attachment rejected: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return model.ErrValidation
}

func reject(reason string) error {
	return &ValidationError{Reason: reason}
}

// Executable-like extensions are refused regardless of declared MIME type.
var deniedExtensions = []string{
	".exe", ".bat", ".cmd", ".scr", ".js", ".vbs", ".jar",
	".msi", ".app", ".deb", ".rpm",
}

var allowedMIMEs = map[string]struct{}{
	"image/jpeg":       {},
	"image/jpg":        {},
	"image/png":        {},
	"image/gif":        {},
	"image/webp":       {},
	"video/mp4":        {},
	"video/quicktime":  {},
	"video/x-msvideo":  {},
	"video/x-matroska": {},
	"video/webm":       {},
	"application/pdf":  {},
}

// Leading-byte signatures for the formats we verify. MP4-family containers
// are excluded: their headers vary too much for a cheap prefix check.
var signatures = map[string][][]byte{
	"image/jpeg":      {{0xFF, 0xD8, 0xFF}},
	"image/jpg":       {{0xFF, 0xD8, 0xFF}},
	"image/png":       {{0x89, 0x50, 0x4E, 0x47}},
	"image/gif":       {[]byte("GIF8")},
	"image/webp":      {[]byte("RIFF")},
	"application/pdf": {[]byte("%PDF")},
}

// Validate runs the pipeline checks in order: size cap for the declared
// kind, extension denylist, MIME allowlist, then the magic-number check for
// images and PDFs. The first failure short-circuits.
func Validate(f *File) error {
	if err := checkSize(f); err != nil {
		return err
	}
	if err := checkExtension(f.Name); err != nil {
		return err
	}
	if err := checkMIME(f.MIME); err != nil {
		return err
	}
	return checkSignature(f)
}

func checkSize(f *File) error {
	limit := int64(MaxDocumentSize)
	switch f.Type {
	case model.MessageTypeImage:
		limit = MaxImageSize
	case model.MessageTypeVideo:
		limit = MaxVideoSize
	}
	if f.Size() > limit {
		return reject(ReasonFileTooLarge)
	}
	return nil
}

func checkExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, denied := range deniedExtensions {
		if ext == denied {
			return reject(ReasonDisallowedExtension)
		}
	}
	return nil
}

func checkMIME(mime string) error {
	if _, ok := allowedMIMEs[strings.ToLower(mime)]; !ok {
		return reject(ReasonUnsupportedMIME)
	}
	return nil
}

func checkSignature(f *File) error {
	mime := strings.ToLower(f.MIME)
	prefixes, ok := signatures[mime]
	if !ok {
		return nil // video containers are accepted without verification
	}
	for _, prefix := range prefixes {
		if bytes.HasPrefix(f.Data, prefix) {
			return nil
		}
	}
	return reject(ReasonSignatureMismatch)
}
