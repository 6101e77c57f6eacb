package attachment

import (
	"bytes"
	"errors"
	"testing"

	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func pngFile(size int) *File {
	data := make([]byte, size)
	copy(data, pngHeader)
	return &File{Data: data, Name: "photo.png", MIME: "image/png", Type: model.MessageTypeImage}
}

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		name string
		file *File
	}{
		{"png image", pngFile(1024)},
		{"jpeg image", &File{
			Data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00},
			Name: "photo.jpg", MIME: "image/jpeg", Type: model.MessageTypeImage,
		}},
		{"pdf document", &File{
			Data: []byte("%PDF-1.7 rest"),
			Name: "contract.pdf", MIME: "application/pdf", Type: model.MessageTypePDF,
		}},
		{"mp4 video skips signature check", &File{
			Data: []byte{0x00, 0x00, 0x00, 0x18},
			Name: "tour.mp4", MIME: "video/mp4", Type: model.MessageTypeVideo,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.file); err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		file   *File
		reason string
	}{
		{
			"image over 5MB",
			pngFile(MaxImageSize + 1),
			ReasonFileTooLarge,
		},
		{
			"document over 10MB",
			&File{
				Data: append([]byte("%PDF"), make([]byte, MaxDocumentSize)...),
				Name: "big.pdf", MIME: "application/pdf", Type: model.MessageTypePDF,
			},
			ReasonFileTooLarge,
		},
		{
			"executable extension",
			&File{Data: pngHeader, Name: "setup.exe", MIME: "image/png", Type: model.MessageTypeImage},
			ReasonDisallowedExtension,
		},
		{
			"double extension",
			&File{Data: []byte("%PDF"), Name: "invoice.pdf.exe", MIME: "application/pdf", Type: model.MessageTypePDF},
			ReasonDisallowedExtension,
		},
		{
			"extension check is case insensitive",
			&File{Data: pngHeader, Name: "SETUP.EXE", MIME: "image/png", Type: model.MessageTypeImage},
			ReasonDisallowedExtension,
		},
		{
			"unsupported mime",
			&File{Data: []byte("hello"), Name: "notes.txt", MIME: "text/plain", Type: model.MessageTypeFile},
			ReasonUnsupportedMIME,
		},
		{
			"declared png with wrong bytes",
			&File{Data: []byte("MZ executable"), Name: "photo.png", MIME: "image/png", Type: model.MessageTypeImage},
			ReasonSignatureMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if err == nil {
				t.Fatal("Validate() = nil, want rejection")
			}
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("error does not unwrap to ErrValidation: %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error is not a *ValidationError: %v", err)
			}
			if verr.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", verr.Reason, tt.reason)
			}
		})
	}
}

func TestVideoSizeLimitIsLooser(t *testing.T) {
	f := &File{
		Data: bytes.Repeat([]byte{0x01}, MaxImageSize+1),
		Name: "tour.mp4", MIME: "video/mp4", Type: model.MessageTypeVideo,
	}
	if err := Validate(f); err != nil {
		t.Fatalf("video under 50MB rejected: %v", err)
	}
}
