package enhance

import (
	"image"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Quality summarizes a sampled luminance distribution.
type Quality struct {
	Mean     float64
	StdDev   float64
	Contrast float64 // max - min over the sample
}

// Quality thresholds below which enhancement is recommended.
const (
	minContrast   = 100
	minBrightness = 60
	maxBrightness = 200
)

// Assess samples up to ~1000 pixels of g.
func Assess(g *image.Gray) Quality {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	n := w * h
	if n == 0 {
		return Quality{}
	}
	step := max(1, n/1000)
	samples := make([]float64, 0, n/step+1)
	for i := 0; i < n; i += step {
		x, y := i%w, i/w
		samples = append(samples, float64(g.Pix[g.PixOffset(g.Rect.Min.X+x, g.Rect.Min.Y+y)]))
	}

	mean, std := stat.MeanStdDev(samples, nil)
	return Quality{
		Mean:     mean,
		StdDev:   std,
		Contrast: floats.Max(samples) - floats.Min(samples),
	}
}

// NeedsEnhancement reports low contrast or extreme brightness.
func (q Quality) NeedsEnhancement() bool {
	return q.Contrast < minContrast || q.Mean < minBrightness || q.Mean > maxBrightness
}
