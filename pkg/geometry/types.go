// Package geometry provides basic geometric types used throughout the scanner.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Box is an axis-aligned rectangle in integer frame coordinates.
// Right and Bottom are exclusive, matching image.Rectangle.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// NewBox creates a Box from its edges.
func NewBox(left, top, right, bottom int) Box {
	return Box{Left: left, Top: top, Right: right, Bottom: bottom}
}

// BoxFromRect converts an image.Rectangle.
func BoxFromRect(r image.Rectangle) Box {
	return Box{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Width returns the horizontal extent.
func (b Box) Width() int { return b.Right - b.Left }

// Height returns the vertical extent.
func (b Box) Height() int { return b.Bottom - b.Top }

// Area returns width*height, or 0 for an empty box.
func (b Box) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// Empty reports whether the box has no interior.
func (b Box) Empty() bool {
	return b.Right <= b.Left || b.Bottom <= b.Top
}

// Center returns the integer center, rounding toward the top-left.
func (b Box) Center() image.Point {
	return image.Point{X: (b.Left + b.Right) / 2, Y: (b.Top + b.Bottom) / 2}
}

// Offset translates the box by (dx, dy).
func (b Box) Offset(dx, dy int) Box {
	return Box{Left: b.Left + dx, Top: b.Top + dy, Right: b.Right + dx, Bottom: b.Bottom + dy}
}

// Contains reports whether the point lies inside the box.
func (b Box) Contains(x, y int) bool {
	return x >= b.Left && x < b.Right && y >= b.Top && y < b.Bottom
}

// Intersect returns the overlapping region, which may be empty.
func (b Box) Intersect(other Box) Box {
	return Box{
		Left:   max(b.Left, other.Left),
		Top:    max(b.Top, other.Top),
		Right:  min(b.Right, other.Right),
		Bottom: min(b.Bottom, other.Bottom),
	}
}

// ExpandRatio grows each side by ratio of the box's own width/height and
// clamps the result to [0,width)x[0,height).
func (b Box) ExpandRatio(ratio float64, width, height int) Box {
	ex := int(float64(b.Width()) * ratio)
	ey := int(float64(b.Height()) * ratio)
	return Box{
		Left:   max(0, b.Left-ex),
		Top:    max(0, b.Top-ey),
		Right:  min(width, b.Right+ex),
		Bottom: min(height, b.Bottom+ey),
	}
}

// Clamp restricts the box to [0,width)x[0,height).
func (b Box) Clamp(width, height int) Box {
	return Box{
		Left:   clampInt(b.Left, 0, width),
		Top:    clampInt(b.Top, 0, height),
		Right:  clampInt(b.Right, 0, width),
		Bottom: clampInt(b.Bottom, 0, height),
	}
}

// ToFloat converts to BoxF.
func (b Box) ToFloat() BoxF {
	return BoxF{Left: float64(b.Left), Top: float64(b.Top), Right: float64(b.Right), Bottom: float64(b.Bottom)}
}

// IoU returns area(intersection)/area(union), or 0 when the union is empty.
func (b Box) IoU(other Box) float64 {
	return b.ToFloat().IoU(other.ToFloat())
}

// BoxF is a floating-point rectangle used for smoothed track coordinates.
type BoxF struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent, never negative.
func (b BoxF) Width() float64 { return math.Max(0, b.Right-b.Left) }

// Height returns the vertical extent, never negative.
func (b BoxF) Height() float64 { return math.Max(0, b.Bottom-b.Top) }

// Area returns width*height.
func (b BoxF) Area() float64 { return b.Width() * b.Height() }

// Center returns the center point.
func (b BoxF) Center() Point2D {
	return Point2D{X: (b.Left + b.Right) / 2, Y: (b.Top + b.Bottom) / 2}
}

// IoU returns area(intersection)/area(union), or 0 when the union is empty.
func (b BoxF) IoU(other BoxF) float64 {
	iw := math.Max(0, math.Min(b.Right, other.Right)-math.Max(b.Left, other.Left))
	ih := math.Max(0, math.Min(b.Bottom, other.Bottom)-math.Max(b.Top, other.Top))
	inter := iw * ih
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Lerp moves each edge a fraction t of the way toward target.
func (b BoxF) Lerp(target BoxF, t float64) BoxF {
	return BoxF{
		Left:   b.Left + (target.Left-b.Left)*t,
		Top:    b.Top + (target.Top-b.Top)*t,
		Right:  b.Right + (target.Right-b.Right)*t,
		Bottom: b.Bottom + (target.Bottom-b.Bottom)*t,
	}
}

// Round converts to an integer Box, rounding each edge half away from zero.
func (b BoxF) Round() Box {
	return Box{
		Left:   int(math.Round(b.Left)),
		Top:    int(math.Round(b.Top)),
		Right:  int(math.Round(b.Right)),
		Bottom: int(math.Round(b.Bottom)),
	}
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Rotation returns a rotation transform around the origin.
func Rotation(radians float64) AffineTransform {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return AffineTransform{A: cos, B: -sin, C: sin, D: cos}
}

// RotationAbout returns a rotation by radians around center.
func RotationAbout(center Point2D, radians float64) AffineTransform {
	return Translation(center.X, center.Y).
		Compose(Rotation(radians)).
		Compose(Translation(-center.X, -center.Y))
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Compose returns this transform composed with another (this * other).
func (t AffineTransform) Compose(other AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// ToMatrix returns the transform as a [2][3]float64 array.
func (t AffineTransform) ToMatrix() [2][3]float64 {
	return [2][3]float64{
		{t.A, t.B, t.TX},
		{t.C, t.D, t.TY},
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
