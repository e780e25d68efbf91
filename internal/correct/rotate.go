package correct

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"barcode-tracker/internal/frame"
	"barcode-tracker/pkg/geometry"
)

// quietFill is the value used for pixels rotated in from outside the source.
const quietFill = 255

// Result describes one correction.
type Result struct {
	Image     *image.Gray
	Angle     float64 // detected skew in degrees
	Corrected bool
}

// Rotate turns g by degrees counter-clockwise on screen, growing the canvas
// so no content is cut off. Sampling is bilinear.
func Rotate(g *image.Gray, degrees float64) (*image.Gray, error) {
	src, err := frame.ToMat(g)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	t, newW, newH := rotation(src.Cols(), src.Rows(), degrees)
	rot := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer rot.Close()
	for r, row := range t.ToMatrix() {
		for c, v := range row {
			rot.SetDoubleAt(r, c, v)
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	fill := color.RGBA{R: quietFill, G: quietFill, B: quietFill, A: 255}
	gocv.WarpAffineWithParams(src, &dst, rot, image.Point{X: newW, Y: newH},
		gocv.InterpolationLinear, gocv.BorderConstant, fill)

	return frame.FromMat(dst)
}

// rotation returns the map turning a w x h image by degrees counter-clockwise
// about its center, shifted so the turned corners fit a newW x newH canvas
// with the center kept in the middle.
func rotation(w, h int, degrees float64) (t geometry.AffineTransform, newW, newH int) {
	center := geometry.Point2D{X: float64(w) / 2, Y: float64(h) / 2}
	// Y grows downward, so counter-clockwise on screen is a negative angle.
	turn := geometry.RotationAbout(center, -degrees*math.Pi/180)

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range geometry.QuadFromBox(geometry.NewBox(0, 0, w, h)).Points() {
		q := turn.Apply(p)
		minX, maxX = math.Min(minX, q.X), math.Max(maxX, q.X)
		minY, maxY = math.Min(minY, q.Y), math.Max(maxY, q.Y)
	}
	newW = int(math.Ceil(maxX - minX - 1e-9))
	newH = int(math.Ceil(maxY - minY - 1e-9))

	shift := geometry.Translation(float64(newW)/2-center.X, float64(newH)/2-center.Y)
	return shift.Compose(turn), newW, newH
}

// AutoCorrect estimates the skew of g inside roi and rotates it away when it
// exceeds the deadband. An empty roi means the whole image.
func AutoCorrect(g *image.Gray, roi geometry.Box, cfg Config) (*Result, error) {
	if roi.Empty() {
		roi = geometry.BoxFromRect(g.Rect)
	}
	angle := EstimateAngle(g, roi, cfg)
	if math.Abs(angle) < cfg.Deadband {
		return &Result{Image: g, Angle: angle}, nil
	}

	rotated, err := Rotate(g, angle)
	if err != nil {
		return nil, err
	}
	return &Result{Image: rotated, Angle: angle, Corrected: true}, nil
}
