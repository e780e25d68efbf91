package geometry

import "math"

// Quad is a four-corner region, ordered clockwise from the top-left in image
// coordinates (Y down).
type Quad struct {
	TopLeft     Point2D `json:"top_left"`
	TopRight    Point2D `json:"top_right"`
	BottomRight Point2D `json:"bottom_right"`
	BottomLeft  Point2D `json:"bottom_left"`
}

// QuadFromBox returns the quad spanning an axis-aligned box.
func QuadFromBox(b Box) Quad {
	l, t, r, bt := float64(b.Left), float64(b.Top), float64(b.Right), float64(b.Bottom)
	return Quad{
		TopLeft:     Point2D{X: l, Y: t},
		TopRight:    Point2D{X: r, Y: t},
		BottomRight: Point2D{X: r, Y: bt},
		BottomLeft:  Point2D{X: l, Y: bt},
	}
}

// Points returns the corners in order.
func (q Quad) Points() []Point2D {
	return []Point2D{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

// Width is the mean of the top and bottom edge lengths.
func (q Quad) Width() float64 {
	return (q.TopLeft.Distance(q.TopRight) + q.BottomLeft.Distance(q.BottomRight)) / 2
}

// Height is the mean of the left and right edge lengths.
func (q Quad) Height() float64 {
	return (q.TopLeft.Distance(q.BottomLeft) + q.TopRight.Distance(q.BottomRight)) / 2
}

// Area returns the polygon area via the shoelace formula.
func (q Quad) Area() float64 {
	pts := q.Points()
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}

// IsConvex returns true if the polygon vertices form a convex polygon.
// The polygon is assumed to be simple (non-self-intersecting).
func IsConvex(polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	sign := 0
	for i := 0; i < n; i++ {
		cross := crossProduct(polygon[i], polygon[(i+1)%n], polygon[(i+2)%n])
		if cross == 0 {
			continue
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return sign != 0
}

func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
