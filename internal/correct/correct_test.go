package correct

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barcode-tracker/internal/frame"
	"barcode-tracker/pkg/geometry"
)

func barChart(w, h, barWidth int, vertical bool) *image.Gray {
	g := frame.NewFlat(w, h, 255)
	frame.DrawBars(g, g.Rect, barWidth, vertical)
	return g
}

// centerBox returns a size x size box centered in g.
func centerBox(g *image.Gray, size int) geometry.Box {
	cx, cy := g.Rect.Dx()/2, g.Rect.Dy()/2
	return geometry.NewBox(cx-size/2, cy-size/2, cx+size/2, cy+size/2)
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{45, 45},
		{46, -44},
		{-45, -45},
		{-90, 0},
		{89, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeAngle(tt.in), "normalizeAngle(%v)", tt.in)
	}
}

func TestEstimateAngleUpright(t *testing.T) {
	cfg := DefaultConfig()

	vertical := barChart(120, 120, 6, true)
	assert.Equal(t, 0.0, EstimateAngle(vertical, geometry.BoxFromRect(vertical.Rect), cfg))

	horizontal := barChart(120, 120, 6, false)
	assert.Equal(t, 0.0, EstimateAngle(horizontal, geometry.BoxFromRect(horizontal.Rect), cfg))
}

func TestEstimateAngleFlatAndDegenerate(t *testing.T) {
	cfg := DefaultConfig()
	flat := frame.NewFlat(50, 50, 128)
	assert.Equal(t, 0.0, EstimateAngle(flat, geometry.BoxFromRect(flat.Rect), cfg))

	chart := barChart(50, 50, 4, true)
	assert.Equal(t, 0.0, EstimateAngle(chart, geometry.NewBox(10, 10, 12, 40), cfg))
	assert.Equal(t, 0.0, EstimateAngle(chart, geometry.NewBox(60, 60, 90, 90), cfg))
}

func TestEstimateAngleRotated(t *testing.T) {
	chart := barChart(200, 200, 8, true)

	// Counter-clockwise on screen reads as a negative skew.
	rotated, err := Rotate(chart, 10)
	require.NoError(t, err)

	angle := EstimateAngle(rotated, centerBox(rotated, 90), DefaultConfig())
	assert.InDelta(t, -10, angle, 2)

	rotated, err = Rotate(chart, -15)
	require.NoError(t, err)

	angle = EstimateAngle(rotated, centerBox(rotated, 90), DefaultConfig())
	assert.InDelta(t, 15, angle, 2)
}

func TestRotateBounds(t *testing.T) {
	g := barChart(100, 50, 5, true)

	same, err := Rotate(g, 0)
	require.NoError(t, err)
	assert.Equal(t, g.Rect, same.Rect)
	assert.Equal(t, g.Pix, same.Pix)

	grown, err := Rotate(g, 30)
	require.NoError(t, err)
	assert.Equal(t, 112, grown.Rect.Dx())
	assert.Equal(t, 94, grown.Rect.Dy())
	// corners come from outside the source
	assert.Equal(t, uint8(quietFill), grown.GrayAt(0, 0).Y)
}

func TestRotationTransform(t *testing.T) {
	m, w, h := rotation(100, 50, 0)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
	assert.Equal(t, [2][3]float64{{1, 0, 0}, {0, 1, 0}}, m.ToMatrix())

	m, w, h = rotation(100, 50, 90)
	assert.Equal(t, 50, w)
	assert.Equal(t, 100, h)
	// the right edge midpoint ends up at the top
	p := m.Apply(geometry.Point2D{X: 100, Y: 25})
	assert.InDelta(t, 25.0, p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)

	m, w, h = rotation(100, 50, 30)
	assert.Equal(t, 112, w)
	assert.Equal(t, 94, h)
	c := m.Apply(geometry.Point2D{X: 50, Y: 25})
	assert.InDelta(t, 56.0, c.X, 1e-9)
	assert.InDelta(t, 47.0, c.Y, 1e-9)
}

func TestAutoCorrectDeadband(t *testing.T) {
	g := barChart(80, 80, 4, true)

	res, err := AutoCorrect(g, geometry.Box{}, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, res.Corrected)
	assert.Equal(t, 0.0, res.Angle)
	assert.Same(t, g, res.Image)
}

func TestAutoCorrectRemovesSkew(t *testing.T) {
	chart := barChart(200, 200, 8, true)
	skewed, err := Rotate(chart, 12)
	require.NoError(t, err)

	cfg := DefaultConfig()
	res, err := AutoCorrect(skewed, centerBox(skewed, 90), cfg)
	require.NoError(t, err)
	require.True(t, res.Corrected)
	assert.InDelta(t, -12, res.Angle, 2)

	residual := EstimateAngle(res.Image, centerBox(res.Image, 90), cfg)
	assert.InDelta(t, 0, residual, 2)
}

func TestHomography(t *testing.T) {
	src := [4]geometry.Point2D{{X: 10, Y: 12}, {X: 95, Y: 5}, {X: 100, Y: 60}, {X: 3, Y: 50}}
	dst := [4]geometry.Point2D{{X: 0, Y: 0}, {X: 90, Y: 0}, {X: 90, Y: 50}, {X: 0, Y: 50}}

	H, err := Homography(src, dst)
	require.NoError(t, err)

	for i := range src {
		got := ApplyHomography(H, src[i])
		assert.InDelta(t, dst[i].X, got.X, 1e-6)
		assert.InDelta(t, dst[i].Y, got.Y, 1e-6)
	}
}

func TestHomographyDegenerate(t *testing.T) {
	p := geometry.Point2D{X: 5, Y: 5}
	_, err := Homography([4]geometry.Point2D{p, p, p, p}, [4]geometry.Point2D{p, p, p, p})
	assert.Error(t, err)
}

func TestRectifyAxisAligned(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 100, 60))
	for i := range g.Pix {
		g.Pix[i] = uint8(i * 7 % 251)
	}

	box := geometry.NewBox(20, 10, 80, 40)
	out, err := Rectify(g, geometry.QuadFromBox(box))
	require.NoError(t, err)
	require.Equal(t, 60, out.Rect.Dx())
	require.Equal(t, 30, out.Rect.Dy())

	for _, p := range []image.Point{{0, 0}, {10, 5}, {30, 15}, {58, 28}} {
		want := float64(g.GrayAt(p.X+20, p.Y+10).Y)
		assert.InDelta(t, want, float64(out.GrayAt(p.X, p.Y).Y), 1, "pixel %v", p)
	}
}

func TestRectifyRejectsBadQuads(t *testing.T) {
	g := frame.NewFlat(40, 40, 100)

	bowtie := geometry.Quad{
		TopLeft:     geometry.Point2D{X: 0, Y: 0},
		TopRight:    geometry.Point2D{X: 10, Y: 10},
		BottomRight: geometry.Point2D{X: 10, Y: 0},
		BottomLeft:  geometry.Point2D{X: 0, Y: 10},
	}
	_, err := Rectify(g, bowtie)
	assert.ErrorIs(t, err, frame.ErrInvalidFrame)

	_, err = Rectify(g, geometry.QuadFromBox(geometry.NewBox(5, 5, 5, 5)))
	assert.ErrorIs(t, err, frame.ErrInvalidFrame)
}
