// Package frame extracts upright luminance planes from raw capture buffers and
// converts them to and from OpenCV matrices.
package frame

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"

	"barcode-tracker/pkg/geometry"
)

// ErrInvalidFrame is returned for degenerate sources: non-positive
// dimensions, short buffers, bad strides or rotations.
var ErrInvalidFrame = errors.New("invalid frame")

// Plane is a raw single-channel buffer as delivered by a capture source.
type Plane struct {
	Data        []byte
	Width       int
	Height      int
	RowStride   int // bytes between rows; 0 means Width*PixelStride
	PixelStride int // bytes between pixels; 0 means 1
	Rotation    int // degrees clockwise needed to make the image upright
}

// Frame is an upright luminance image for one pipeline pass.
type Frame struct {
	Width    int
	Height   int
	Rotation int
	Lum      *image.Gray
}

// Bounds returns the full-frame box.
func (f *Frame) Bounds() geometry.Box {
	return geometry.NewBox(0, 0, f.Width, f.Height)
}

// NormalizeRotation maps any multiple of 90 into {0, 90, 180, 270}.
func NormalizeRotation(deg int) (int, error) {
	r := ((deg % 360) + 360) % 360
	if r%90 != 0 {
		return 0, fmt.Errorf("%w: rotation %d is not a multiple of 90", ErrInvalidFrame, deg)
	}
	return r, nil
}

// Extract copies the luminance plane into a packed buffer and applies the
// rotation hint.
func Extract(p Plane) (*Frame, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidFrame, p.Width, p.Height)
	}
	pixelStride := p.PixelStride
	if pixelStride == 0 {
		pixelStride = 1
	}
	rowStride := p.RowStride
	if rowStride == 0 {
		rowStride = p.Width * pixelStride
	}
	if pixelStride < 1 || rowStride < (p.Width-1)*pixelStride+1 {
		return nil, fmt.Errorf("%w: row stride %d, pixel stride %d for width %d",
			ErrInvalidFrame, rowStride, pixelStride, p.Width)
	}
	need := (p.Height-1)*rowStride + (p.Width-1)*pixelStride + 1
	if len(p.Data) < need {
		return nil, fmt.Errorf("%w: buffer has %d bytes, need %d", ErrInvalidFrame, len(p.Data), need)
	}
	rotation, err := NormalizeRotation(p.Rotation)
	if err != nil {
		return nil, err
	}

	lum := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		src := p.Data[y*rowStride:]
		dst := lum.Pix[y*lum.Stride : y*lum.Stride+p.Width]
		if pixelStride == 1 {
			copy(dst, src[:p.Width])
			continue
		}
		for x := range dst {
			dst[x] = src[x*pixelStride]
		}
	}

	if rotation != 0 {
		lum, err = Rotate(lum, rotation)
		if err != nil {
			return nil, err
		}
	}

	return &Frame{
		Width:    lum.Rect.Dx(),
		Height:   lum.Rect.Dy(),
		Rotation: rotation,
		Lum:      lum,
	}, nil
}

// FromGray wraps an existing upright image without copying.
func FromGray(g *image.Gray) (*Frame, error) {
	if g == nil || g.Rect.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidFrame)
	}
	return &Frame{Width: g.Rect.Dx(), Height: g.Rect.Dy(), Lum: g}, nil
}

// FromImage converts any decoded image to luminance.
func FromImage(img image.Image) (*Frame, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidFrame)
	}
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return FromGray(g)
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Rect, img, b.Min, draw.Src)
	return FromGray(g)
}

// Rotate turns an image clockwise by 90, 180 or 270 degrees.
func Rotate(g *image.Gray, degrees int) (*image.Gray, error) {
	var code gocv.RotateFlag
	switch degrees {
	case 0:
		return CopyRegion(g, geometry.BoxFromRect(g.Rect)), nil
	case 90:
		code = gocv.Rotate90Clockwise
	case 180:
		code = gocv.Rotate180Clockwise
	case 270:
		code = gocv.Rotate90CounterClockwise
	default:
		return nil, fmt.Errorf("%w: rotation %d", ErrInvalidFrame, degrees)
	}

	src, err := ToMat(g)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Rotate(src, &dst, code)
	return FromMat(dst)
}

// CopyRegion returns a packed copy of the part of g covered by b, clamped to
// g's bounds. The result is anchored at the origin.
func CopyRegion(g *image.Gray, b geometry.Box) *image.Gray {
	r := b.Rect().Intersect(g.Rect)
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		srcOff := g.PixOffset(r.Min.X, r.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()], g.Pix[srcOff:srcOff+r.Dx()])
	}
	return out
}

// ToMat copies a gray image into a new CV_8UC1 Mat. The caller owns the Mat.
func ToMat(g *image.Gray) (gocv.Mat, error) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w <= 0 || h <= 0 {
		return gocv.NewMat(), fmt.Errorf("%w: empty image", ErrInvalidFrame)
	}
	packed := make([]byte, w*h)
	for y := 0; y < h; y++ {
		off := g.PixOffset(g.Rect.Min.X, g.Rect.Min.Y+y)
		copy(packed[y*w:(y+1)*w], g.Pix[off:off+w])
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, packed)
}

// FromMat copies a single-channel 8-bit Mat into a new gray image. Region
// views are handled by cloning first.
func FromMat(m gocv.Mat) (*image.Gray, error) {
	if m.Empty() {
		return nil, fmt.Errorf("%w: empty matrix", ErrInvalidFrame)
	}
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("%w: expected CV_8UC1, got type %d", ErrInvalidFrame, m.Type())
	}

	src := m
	if !m.IsContinuous() {
		src = m.Clone()
		defer src.Close()
	}

	w, h := src.Cols(), src.Rows()
	g := image.NewGray(image.Rect(0, 0, w, h))
	copy(g.Pix, src.ToBytes())
	return g, nil
}
