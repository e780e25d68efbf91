package frame

import "image"

// NewFlat returns a w x h image filled with a single intensity.
func NewFlat(w, h int, value uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = value
	}
	return g
}

// DrawBars paints alternating black and white bars of barWidth pixels inside
// r, starting with black. Vertical bars stack along X; horizontal bars stack
// along Y. Used to render test charts.
func DrawBars(g *image.Gray, r image.Rectangle, barWidth int, vertical bool) {
	if barWidth < 1 {
		barWidth = 1
	}
	r = r.Intersect(g.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			pos := x - r.Min.X
			if !vertical {
				pos = y - r.Min.Y
			}
			v := uint8(255)
			if (pos/barWidth)%2 == 0 {
				v = 0
			}
			g.Pix[g.PixOffset(x, y)] = v
		}
	}
}
