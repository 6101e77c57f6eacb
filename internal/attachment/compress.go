package attachment

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/disintegration/imaging"
)

// Maximum pixel envelope and re-encode quality for image attachments.
const (
	maxImageWidth  = 1920
	maxImageHeight = 1080
	jpegQuality    = 80
)

// Compress re-encodes image attachments: the image is scaled down to fit
// the pixel envelope while keeping its aspect ratio, then written back as
// JPEG at fixed quality. Non-images pass through untouched.
func Compress(f *File) (*File, error) {
	if !strings.HasPrefix(strings.ToLower(f.MIME), "image/") {
		return f, nil
	}

	img, err := imaging.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxImageWidth || bounds.Dy() > maxImageHeight {
		img = imaging.Fit(img, maxImageWidth, maxImageHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return &File{
		Data: buf.Bytes(),
		Name: f.Name,
		MIME: "image/jpeg",
		Type: f.Type,
	}, nil
}
