package detect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barcode-tracker/internal/frame"
	"barcode-tracker/pkg/geometry"
)

func barChart(rects ...image.Rectangle) *image.Gray {
	g := frame.NewFlat(640, 480, 255)
	for _, r := range rects {
		frame.DrawBars(g, r, 4, true)
	}
	return g
}

func assertWellFormed(t *testing.T, cands []Candidate, th Thresholds) {
	t.Helper()
	for i, c := range cands {
		assert.Equal(t, i+1, c.Index)
		assert.Greater(t, c.Box.Right, c.Box.Left)
		assert.Greater(t, c.Box.Bottom, c.Box.Top)
		for _, s := range []float64{c.Details.Area, c.Details.Aspect, c.Details.Solidity, c.Details.Gradient, c.Confidence} {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 100.0)
		}
		assert.True(t, th.Passes(c.Details), "candidate %d fails its own thresholds", c.Index)
		if i > 0 {
			assert.GreaterOrEqual(t, cands[i-1].Confidence, c.Confidence)
		}
	}
}

func TestDetectFlatFrame(t *testing.T) {
	g := frame.NewFlat(640, 480, 128)
	assert.Empty(t, Detect(g, DefaultConfig()))
}

func TestDetectDegenerate(t *testing.T) {
	assert.Empty(t, Detect(nil, DefaultConfig()))
	assert.Empty(t, Detect(image.NewGray(image.Rect(0, 0, 0, 0)), DefaultConfig()))
	assert.Empty(t, Detect(frame.NewFlat(4, 4, 0), DefaultConfig()))
}

func TestDetectSingleBarcode(t *testing.T) {
	target := image.Rect(160, 220, 480, 256)
	cfg := DefaultConfig()

	cands := Detect(barChart(target), cfg)
	require.NotEmpty(t, cands)
	assertWellFormed(t, cands, cfg.Thresholds)

	best := 0.0
	for _, c := range cands {
		best = max(best, c.Box.IoU(geometry.BoxFromRect(target)))
	}
	assert.Greater(t, best, 0.7)
	assert.Equal(t, AxisHorizontal, cands[0].Axis)
}

func TestDetectTwoBarcodes(t *testing.T) {
	a := image.Rect(40, 40, 300, 72)
	b := image.Rect(340, 408, 600, 440)
	cfg := DefaultConfig()

	cands := Detect(barChart(a, b), cfg)
	require.Len(t, cands, 2)
	assertWellFormed(t, cands, cfg.Thresholds)

	var hitA, hitB bool
	for _, c := range cands {
		hitA = hitA || c.Box.IoU(geometry.BoxFromRect(a)) > 0.5
		hitB = hitB || c.Box.IoU(geometry.BoxFromRect(b)) > 0.5
	}
	assert.True(t, hitA)
	assert.True(t, hitB)
}

func TestDetectFilterIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cands := Detect(barChart(image.Rect(160, 220, 480, 256)), cfg)
	require.NotEmpty(t, cands)

	assert.Equal(t, cands, Filter(cands, cfg.Thresholds))
}

func TestDetectThresholdsAreHardGates(t *testing.T) {
	g := barChart(image.Rect(160, 220, 480, 256))

	strict := DefaultConfig().WithThresholds(Thresholds{MinGradient: 100.5})
	assert.Empty(t, Detect(g, strict))

	strictAspect := DefaultConfig().WithThresholds(Thresholds{MinAspect: 99.9})
	for _, c := range Detect(g, strictAspect) {
		assert.GreaterOrEqual(t, c.Details.Aspect, 99.9)
	}
}

func TestDetectVerticalRetry(t *testing.T) {
	g := frame.NewFlat(640, 480, 255)
	target := image.Rect(300, 80, 336, 400)
	frame.DrawBars(g, target, 4, false)

	cands := Detect(g, DefaultConfig())
	require.NotEmpty(t, cands)
	assert.Equal(t, AxisVertical, cands[0].Axis)
	assert.Greater(t, cands[0].Box.IoU(geometry.BoxFromRect(target)), 0.6)

	assert.Empty(t, Detect(g, DefaultConfig().WithAxisRetry(false)))
}

func TestDetectInWindow(t *testing.T) {
	a := image.Rect(40, 40, 300, 72)
	b := image.Rect(340, 408, 600, 440)
	g := barChart(a, b)

	window := geometry.NewBox(320, 300, 640, 480)
	cands := DetectInWindow(g, window, DefaultConfig())
	require.Len(t, cands, 1)
	assert.Greater(t, cands[0].Box.IoU(geometry.BoxFromRect(b)), 0.5)
	assert.GreaterOrEqual(t, cands[0].Box.Left, window.Left)
	assert.GreaterOrEqual(t, cands[0].Box.Top, window.Top)
}

func TestDetectInWindowOfSubImage(t *testing.T) {
	a := image.Rect(40, 40, 300, 72)
	b := image.Rect(340, 408, 600, 440)
	g := barChart(a, b)
	sub := g.SubImage(image.Rect(300, 280, 640, 480)).(*image.Gray)

	window := geometry.NewBox(320, 300, 640, 480)
	cands := DetectInWindow(sub, window, DefaultConfig())
	require.Len(t, cands, 1)
	// boxes stay in the parent image's coordinates
	assert.Greater(t, cands[0].Box.IoU(geometry.BoxFromRect(b)), 0.5)
}
