package imagerender

import (
	"image"
	"image/color"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

const (
	// DPI used for the graphics pre-check render. Lower than the detector
	// render since only coarse component sizes matter here.
	analysisDPI = 150.0

	// Binary threshold separating content from background (0-255).
	binaryThreshold = 200

	// Components smaller than this many pixels are treated as noise.
	minComponentPixels = 100
)

// HasLargeGraphics reports whether a page carries any connected dark region
// at least minSizeCM on both axes. Pages that fail this check skip the
// vision-description step entirely: their visual elements, if the detector
// reports any, fall back to OCR text.
func HasLargeGraphics(pdfPath string, pageNum int, minSizeCM float64) (bool, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return false, err
	}
	defer doc.Close()

	img, err := doc.ImageDPI(pageNum-1, analysisDPI)
	if err != nil {
		return false, err
	}

	binary := threshold(grayscale(img), binaryThreshold)
	components := connectedComponents(binary, minComponentPixels)

	cmPerPixel := 2.54 / analysisDPI
	for _, comp := range components {
		widthCM := float64(comp.width) * cmPerPixel
		heightCM := float64(comp.height) * cmPerPixel
		if widthCM >= minSizeCM && heightCM >= minSizeCM {
			log.Debug().
				Int("page", pageNum).
				Float64("width_cm", widthCM).
				Float64("height_cm", heightCM).
				Int("pixels", comp.pixelCount).
				Msg("large graphics detected")
			return true, nil
		}
	}
	return false, nil
}

type component struct {
	minX, minY, maxX, maxY int
	width, height          int
	pixelCount             int
}

func grayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

func threshold(img *image.Gray, cutoff uint8) *image.Gray {
	bounds := img.Bounds()
	binary := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.GrayAt(x, y).Y < cutoff {
				binary.SetGray(x, y, color.Gray{Y: 0})
			} else {
				binary.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return binary
}

func connectedComponents(img *image.Gray, minPixels int) []component {
	bounds := img.Bounds()
	visited := make([][]bool, bounds.Dy())
	for i := range visited {
		visited[i] = make([]bool, bounds.Dx())
	}

	var components []component
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if visited[y-bounds.Min.Y][x-bounds.Min.X] || img.GrayAt(x, y).Y == 255 {
				continue
			}
			comp := floodFill(img, visited, x, y, bounds)
			if comp.pixelCount >= minPixels {
				components = append(components, comp)
			}
		}
	}
	return components
}

// floodFill is iterative; recursive fill overflows the stack on full-page
// dark scans.
func floodFill(img *image.Gray, visited [][]bool, startX, startY int, bounds image.Rectangle) component {
	comp := component{minX: startX, minY: startY, maxX: startX, maxY: startY}

	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := p.X, p.Y
		if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		if visited[y-bounds.Min.Y][x-bounds.Min.X] || img.GrayAt(x, y).Y == 255 {
			continue
		}

		visited[y-bounds.Min.Y][x-bounds.Min.X] = true
		comp.pixelCount++

		if x < comp.minX {
			comp.minX = x
		}
		if x > comp.maxX {
			comp.maxX = x
		}
		if y < comp.minY {
			comp.minY = y
		}
		if y > comp.maxY {
			comp.maxY = y
		}

		stack = append(stack,
			image.Point{X: x + 1, Y: y},
			image.Point{X: x - 1, Y: y},
			image.Point{X: x, Y: y + 1},
			image.Point{X: x, Y: y - 1},
		)
	}

	comp.width = comp.maxX - comp.minX + 1
	comp.height = comp.maxY - comp.minY + 1
	return comp
}
