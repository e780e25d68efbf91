// Package correct estimates and removes skew from barcode crops.
package correct

import (
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"

	"barcode-tracker/internal/frame"
	"barcode-tracker/pkg/geometry"
)

// Config controls rotation estimation.
type Config struct {
	MinMagnitude float64 // gradients weaker than this are ignored
	Deadband     float64 // degrees; smaller skews are left alone
}

// DefaultConfig returns the standard corrector settings.
func DefaultConfig() Config {
	return Config{MinMagnitude: 50, Deadband: 2}
}

// EstimateAngle returns the dominant edge orientation inside roi, in degrees
// normalized to [-45, 45]. Positive means the symbol is turned clockwise on
// screen. Returns 0 when roi has no strong edges.
func EstimateAngle(g *image.Gray, roi geometry.Box, cfg Config) float64 {
	roi = roi.Intersect(geometry.BoxFromRect(g.Rect))
	if roi.Width() < 3 || roi.Height() < 3 {
		return 0
	}

	src, err := frame.ToMat(frame.CopyRegion(g, roi))
	if err != nil {
		return 0
	}
	defer src.Close()

	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(src, &gx, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(src, &gy, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	defer mag.Close()
	phase := gocv.NewMat()
	defer phase.Close()
	gocv.CartToPolar(gx, gy, &mag, &phase, true)

	// Orientation histogram, one bin per degree over [-90, 90). The outer
	// ring is skipped because its gradients depend on the border mode.
	hist := make([]float64, 180)
	var votes int
	for y := 1; y < mag.Rows()-1; y++ {
		for x := 1; x < mag.Cols()-1; x++ {
			if mag.GetDoubleAt(y, x) <= cfg.MinMagnitude {
				continue
			}
			bin := int(math.Mod(phase.GetDoubleAt(y, x)+90, 180))
			hist[min(max(bin, 0), 179)]++
			votes++
		}
	}
	if votes == 0 {
		return 0
	}

	return normalizeAngle(float64(floats.MaxIdx(hist) - 90))
}

// normalizeAngle folds an orientation into [-45, 45].
func normalizeAngle(deg float64) float64 {
	switch {
	case deg > 45:
		return deg - 90
	case deg < -45:
		return deg + 90
	default:
		return deg
	}
}
