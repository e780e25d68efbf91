package enhance

import (
	"barcode-tracker/pkg/geometry"
)

// Config holds enhancement toggles and strengths.
type Config struct {
	Contrast        bool
	Denoise         bool
	Glare           bool
	Sharpen         bool
	SuperResolution bool
	Binarize        bool

	ClipLimit       float64 // CLAHE clip limit
	TileSize        int     // CLAHE tile edge in pixels
	DenoiseStrength float64 // scales the bilateral intensity sigma
	GlareThreshold  uint8
	GlareMinSize    int // blobs must exceed this in both dimensions
	UpscaleFactor   float64
	SharpenStrength float64
	BinarizeBlock   int
	BinarizeC       float32

	Escalation Escalation
}

// DefaultConfig returns the standard enhancement settings.
func DefaultConfig() Config {
	return Config{
		Contrast: true,
		Denoise:  true,
		Glare:    true,
		Sharpen:  true,

		ClipLimit:       2.5,
		TileSize:        8,
		DenoiseStrength: 0.5,
		GlareThreshold:  240,
		GlareMinSize:    5,
		UpscaleFactor:   2.0,
		SharpenStrength: 0.3,
		BinarizeBlock:   15,
		BinarizeC:       5,

		Escalation: DefaultEscalation(),
	}
}

// Plan lists the operations to run for one pass.
type Plan struct {
	Level          Level
	CropRatio      float64 // center window fraction; 0 disables
	CLAHE          bool
	ContrastFactor float64 // linear boost around the mean; 0 disables
	Glare          bool
	Denoise        bool
	Sharpen        bool
	Upscale        bool
	Binarize       bool
}

// Empty reports whether the plan changes pixels.
func (p Plan) Empty() bool {
	return !p.CLAHE && p.ContrastFactor == 0 && !p.Glare && !p.Denoise &&
		!p.Sharpen && !p.Upscale && !p.Binarize
}

// PlanFor gates the configured operations by escalation level.
func (c Config) PlanFor(level Level) Plan {
	p := Plan{Level: level}
	switch level {
	case LevelCrop:
		p.CropRatio = 0.6
	case LevelContrast:
		p.CropRatio = 0.65
		p.CLAHE = c.Contrast
		if c.Contrast {
			p.ContrastFactor = 1.3
		}
	case LevelFull:
		p.CropRatio = 0.7
		p.CLAHE = c.Contrast
		if c.Contrast {
			p.ContrastFactor = 1.5
		}
		p.Glare = c.Glare
		p.Denoise = c.Denoise
		p.Sharpen = c.Sharpen
		p.Upscale = c.SuperResolution
		p.Binarize = c.Binarize
	}
	return p
}

// CenterCropBox returns the centered window covering ratio of each
// dimension. Ratios are clamped to [0.3, 1].
func CenterCropBox(width, height int, ratio float64) geometry.Box {
	ratio = min(1, max(0.3, ratio))
	cw := int(float64(width) * ratio)
	ch := int(float64(height) * ratio)
	left := (width - cw) / 2
	top := (height - ch) / 2
	return geometry.NewBox(left, top, left+cw, top+ch)
}
