// Package enhance improves the legibility of luminance crops: local contrast
// equalization, edge-preserving denoising, glare compensation, sharpening,
// binarization and upscaling, gated by a failure-driven escalation level.
package enhance

import (
	"fmt"
	"image"

	"barcode-tracker/internal/frame"
	"barcode-tracker/pkg/geometry"
)

// Result is the output of Apply.
type Result struct {
	Image   *image.Gray
	Plan    Plan
	Glare   []geometry.Box
	Applied []string // operation names in the order they ran
}

// Enhanced reports whether any operation ran.
func (r *Result) Enhanced() bool {
	return len(r.Applied) > 0
}

// Apply runs the operations in plan on a copy of g. Order: glare, denoise,
// CLAHE, contrast boost, sharpen, binarize, upscale.
func Apply(g *image.Gray, plan Plan, cfg Config) (*Result, error) {
	if g == nil || g.Rect.Empty() {
		return nil, fmt.Errorf("%w: empty image", frame.ErrInvalidFrame)
	}

	res := &Result{
		Image: frame.CopyRegion(g, geometry.BoxFromRect(g.Rect)),
		Plan:  plan,
	}

	var err error
	if plan.Glare {
		res.Image, res.Glare, err = CompensateGlare(res.Image, cfg.GlareThreshold, cfg.GlareMinSize)
		if err != nil {
			return nil, fmt.Errorf("failed to compensate glare: %w", err)
		}
		res.Applied = append(res.Applied, "glare")
	}

	steps := []struct {
		name    string
		enabled bool
		run     func(*image.Gray) (*image.Gray, error)
	}{
		{"denoise", plan.Denoise, func(in *image.Gray) (*image.Gray, error) {
			return Denoise(in, cfg.DenoiseStrength)
		}},
		{"clahe", plan.CLAHE, func(in *image.Gray) (*image.Gray, error) {
			return CLAHE(in, cfg.ClipLimit, cfg.TileSize)
		}},
		{"contrast", plan.ContrastFactor > 0, func(in *image.Gray) (*image.Gray, error) {
			return BoostContrast(in, plan.ContrastFactor)
		}},
		{"sharpen", plan.Sharpen, func(in *image.Gray) (*image.Gray, error) {
			return Sharpen(in, cfg.SharpenStrength)
		}},
		{"binarize", plan.Binarize, func(in *image.Gray) (*image.Gray, error) {
			return Binarize(in, cfg.BinarizeBlock, cfg.BinarizeC)
		}},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		out, err := s.run(res.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to %s: %w", s.name, err)
		}
		res.Image = out
		res.Applied = append(res.Applied, s.name)
	}

	if plan.Upscale && cfg.UpscaleFactor > 1 {
		res.Image = Upscale(res.Image, cfg.UpscaleFactor)
		res.Applied = append(res.Applied, "upscale")
	}

	return res, nil
}
