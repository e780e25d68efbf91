package correct

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"barcode-tracker/internal/frame"
	"barcode-tracker/pkg/geometry"
)

// Homography solves for the 3x3 projective transform mapping each src point
// onto the matching dst point, with H[2][2] fixed to 1.
func Homography(src, dst [4]geometry.Point2D) ([3][3]float64, error) {
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		// u = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
		A.SetRow(i*2, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		b.SetVec(i*2, u)

		// v = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
		A.SetRow(i*2+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(i*2+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, b); err != nil {
		return [3][3]float64{}, fmt.Errorf("failed to solve homography: %w", err)
	}

	return [3][3]float64{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}, nil
}

// ApplyHomography maps a point through H.
func ApplyHomography(H [3][3]float64, p geometry.Point2D) geometry.Point2D {
	w := H[2][0]*p.X + H[2][1]*p.Y + H[2][2]
	return geometry.Point2D{
		X: (H[0][0]*p.X + H[0][1]*p.Y + H[0][2]) / w,
		Y: (H[1][0]*p.X + H[1][1]*p.Y + H[1][2]) / w,
	}
}

// Rectify warps the quadrilateral q of g onto an upright rectangle whose
// size is the mean of q's opposite edge lengths.
func Rectify(g *image.Gray, q geometry.Quad) (*image.Gray, error) {
	if !geometry.IsConvex(q.Points()) {
		return nil, fmt.Errorf("%w: quadrilateral is not convex", frame.ErrInvalidFrame)
	}
	tw := int(math.Round(q.Width()))
	th := int(math.Round(q.Height()))
	if tw <= 0 || th <= 0 {
		return nil, fmt.Errorf("%w: degenerate quadrilateral", frame.ErrInvalidFrame)
	}

	target := [4]geometry.Point2D{
		{X: 0, Y: 0},
		{X: float64(tw), Y: 0},
		{X: float64(tw), Y: float64(th)},
		{X: 0, Y: float64(th)},
	}
	H, err := Homography([4]geometry.Point2D(q.Points()), target)
	if err != nil {
		return nil, err
	}

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, H[r][c])
		}
	}

	src, err := frame.ToMat(g)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpPerspective(src, &dst, m, image.Point{X: tw, Y: th})
	return frame.FromMat(dst)
}
