package layout

import "math"

// BBox is an axis-aligned rectangle in page pixel coordinates.
// Y grows downward (detector/image coordinate system).
type BBox struct {
	X float64
	Y float64
	W float64
	H float64
}

func NewBBox(x, y, w, h float64) BBox {
	return BBox{X: x, Y: y, W: w, H: h}
}

// Left returns the left edge X coordinate.
func (b BBox) Left() float64 { return b.X }

// Right returns the right edge X coordinate.
func (b BBox) Right() float64 { return b.X + b.W }

// Top returns the top edge Y coordinate (smallest Y on the page).
func (b BBox) Top() float64 { return b.Y }

// Bottom returns the bottom edge Y coordinate.
func (b BBox) Bottom() float64 { return b.Y + b.H }

// CenterX returns the horizontal center.
func (b BBox) CenterX() float64 { return b.X + b.W/2 }

// CenterY returns the vertical center.
func (b BBox) CenterY() float64 { return b.Y + b.H/2 }

// Area returns width*height.
func (b BBox) Area() float64 { return b.W * b.H }

// HorizontalOverlap returns the length of the shared x-interval, 0 if disjoint.
func (b BBox) HorizontalOverlap(other BBox) float64 {
	o := math.Min(b.Right(), other.Right()) - math.Max(b.Left(), other.Left())
	if o < 0 {
		return 0
	}
	return o
}

// VerticalOverlap returns the length of the shared y-interval, 0 if disjoint.
func (b BBox) VerticalOverlap(other BBox) float64 {
	o := math.Min(b.Bottom(), other.Bottom()) - math.Max(b.Top(), other.Top())
	if o < 0 {
		return 0
	}
	return o
}

// Union returns the smallest box covering both.
func (b BBox) Union(other BBox) BBox {
	x := math.Min(b.Left(), other.Left())
	y := math.Min(b.Top(), other.Top())
	r := math.Max(b.Right(), other.Right())
	bt := math.Max(b.Bottom(), other.Bottom())
	return BBox{X: x, Y: y, W: r - x, H: bt - y}
}
