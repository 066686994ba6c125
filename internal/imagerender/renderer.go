package imagerender

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/readorder/internal/layout"
)

// ColorMode selects the pixel format pages are rendered in.
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// RenderPageToJPEG renders one PDF page as an in-memory JPEG.
// Returns JPEG bytes, pixel width, pixel height.
func RenderPageToJPEG(pdfPath string, pageNum, dpi, quality int, colorMode string) ([]byte, int, int, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	// go-fitz pages are 0-based
	img, err := doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("render page %d: %w", pageNum, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var finalImg image.Image
	if colorMode == string(ColorGray) {
		grayImg := image.NewGray(bounds)
		draw.Draw(grayImg, bounds, img, image.Point{}, draw.Src)
		finalImg = grayImg
	} else {
		finalImg = img
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, finalImg, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}

	log.Debug().
		Int("page", pageNum).
		Int("width", width).
		Int("height", height).
		Int("jpeg_size", buf.Len()).
		Int("dpi", dpi).
		Msg("rendered page")

	return buf.Bytes(), width, height, nil
}

// CropJPEG cuts an element region out of a rendered page JPEG. The box is in
// the same pixel coordinate space the page was rendered in; it is clamped to
// the image bounds, so a detector box hanging slightly off the page still
// yields a valid crop.
func CropJPEG(pageJPEG []byte, box layout.BBox, quality int) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(pageJPEG))
	if err != nil {
		return nil, fmt.Errorf("decode page jpeg: %w", err)
	}

	bounds := img.Bounds()
	r := image.Rect(int(box.Left()), int(box.Top()), int(box.Right()), int(box.Bottom()))
	r = r.Intersect(bounds)
	if r.Empty() {
		return nil, fmt.Errorf("crop region outside page bounds")
	}

	crop := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(crop, crop.Bounds(), img, r.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeToBase64 converts binary data to a base64 string.
func EncodeToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeFromBase64 converts a base64 string back to binary data.
func DecodeFromBase64(b64 string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(b64)
}

// GetImageDimensions extracts pixel dimensions from JPEG bytes.
func GetImageDimensions(jpegBytes []byte) (width, height int, err error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(jpegBytes))
	if err != nil {
		return 0, 0, fmt.Errorf("decode jpeg config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
