package document

import "math"

// BBox is an axis-aligned box in page space: x grows rightwards, y (Top,
// Bottom) grows downwards from the top edge of the page.
type BBox struct {
	X0, Top, X1, Bottom float64
}

// Overlaps reports whether a and b share any point. Boxes that only touch
// along an edge overlap.
func Overlaps(a, b BBox) bool {
	if a.X1 < b.X0 || b.X1 < a.X0 {
		return false
	}
	if a.Bottom < b.Top || b.Bottom < a.Top {
		return false
	}
	return true
}

// ContainsOrigin reports whether the top-left corner of box lies inside ref,
// using half-open bounds [X0, X1) x [Top, Bottom).
func ContainsOrigin(ref, box BBox) bool {
	return box.X0 >= ref.X0 && box.X0 < ref.X1 && box.Top >= ref.Top && box.Top < ref.Bottom
}

// Union returns the smallest box covering all boxes. It returns the zero box
// for an empty input.
func Union(boxes ...BBox) BBox {
	if len(boxes) == 0 {
		return BBox{}
	}
	u := boxes[0]
	for _, b := range boxes[1:] {
		u.X0 = math.Min(u.X0, b.X0)
		u.Top = math.Min(u.Top, b.Top)
		u.X1 = math.Max(u.X1, b.X1)
		u.Bottom = math.Max(u.Bottom, b.Bottom)
	}
	return u
}

func (b BBox) expand(d float64) BBox {
	return BBox{X0: b.X0 - d, Top: b.Top - d, X1: b.X1 + d, Bottom: b.Bottom + d}
}

func (b BBox) center() (float64, float64) {
	return (b.X0 + b.X1) / 2, (b.Top + b.Bottom) / 2
}

func (b BBox) normalized() BBox {
	if b.X0 > b.X1 {
		b.X0, b.X1 = b.X1, b.X0
	}
	if b.Top > b.Bottom {
		b.Top, b.Bottom = b.Bottom, b.Top
	}
	return b
}
