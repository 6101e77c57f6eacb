package attachment

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/VISHYOU-GIT/realestate-chat/internal/model"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestCompressReencodesAsJPEG(t *testing.T) {
	f := &File{
		Data: encodePNG(t, 640, 480),
		Name: "photo.png",
		MIME: "image/png",
		Type: model.MessageTypeImage,
	}

	out, err := Compress(f)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if out.MIME != "image/jpeg" {
		t.Fatalf("MIME = %q, want image/jpeg", out.MIME)
	}
	if out.Name != "photo.png" {
		t.Fatalf("Name changed to %q", out.Name)
	}

	decoded, err := imaging.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("output is not a decodable image: %v", err)
	}
	if decoded.Bounds().Dx() != 640 || decoded.Bounds().Dy() != 480 {
		t.Fatalf("small image was resized to %v", decoded.Bounds())
	}
}

func TestCompressFitsLargeImages(t *testing.T) {
	f := &File{
		Data: encodePNG(t, 4000, 3000),
		Name: "panorama.png",
		MIME: "image/png",
		Type: model.MessageTypeImage,
	}

	out, err := Compress(f)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("output is not a decodable image: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() > 1920 || bounds.Dy() > 1080 {
		t.Fatalf("image not fit into envelope: %dx%d", bounds.Dx(), bounds.Dy())
	}
	// 4:3 input: height is the binding constraint.
	if bounds.Dy() != 1080 {
		t.Fatalf("aspect ratio not preserved: %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestCompressPassesThroughNonImages(t *testing.T) {
	f := &File{
		Data: []byte("%PDF-1.7 content"),
		Name: "contract.pdf",
		MIME: "application/pdf",
		Type: model.MessageTypePDF,
	}

	out, err := Compress(f)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if out != f {
		t.Fatal("non-image should pass through unchanged")
	}
}
