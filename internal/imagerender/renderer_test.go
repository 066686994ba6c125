package imagerender

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/local/readorder/internal/layout"
)

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestCropJPEG(t *testing.T) {
	page := makeJPEG(t, 200, 300)

	crop, err := CropJPEG(page, layout.NewBBox(20, 30, 100, 50), 90)
	if err != nil {
		t.Fatalf("CropJPEG: %v", err)
	}
	w, h, err := GetImageDimensions(crop)
	if err != nil {
		t.Fatalf("GetImageDimensions: %v", err)
	}
	if w != 100 || h != 50 {
		t.Errorf("crop dimensions = %dx%d, want 100x50", w, h)
	}
}

func TestCropJPEGClampsToBounds(t *testing.T) {
	page := makeJPEG(t, 100, 100)

	// Box hangs off the right and bottom edges.
	crop, err := CropJPEG(page, layout.NewBBox(80, 90, 50, 50), 90)
	if err != nil {
		t.Fatalf("CropJPEG: %v", err)
	}
	w, h, err := GetImageDimensions(crop)
	if err != nil {
		t.Fatalf("GetImageDimensions: %v", err)
	}
	if w != 20 || h != 10 {
		t.Errorf("crop dimensions = %dx%d, want 20x10", w, h)
	}
}

func TestCropJPEGOutsideBounds(t *testing.T) {
	page := makeJPEG(t, 100, 100)
	if _, err := CropJPEG(page, layout.NewBBox(200, 200, 50, 50), 90); err == nil {
		t.Fatal("expected error for crop fully outside page")
	}
}

func TestBase64RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0xFF, 0x7F}
	out, err := DecodeFromBase64(EncodeToBase64(data))
	if err != nil {
		t.Fatalf("DecodeFromBase64: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip mismatch: %v", out)
	}
}
