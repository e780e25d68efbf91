package pipeline

import (
	"math"
	"time"

	"barcode-tracker/internal/config"
	"barcode-tracker/internal/correct"
	"barcode-tracker/internal/crop"
	"barcode-tracker/internal/detect"
	"barcode-tracker/internal/enhance"
	"barcode-tracker/internal/roi"
	"barcode-tracker/internal/track"
	"barcode-tracker/pkg/geometry"
)

// Window trims fractions of the frame from each side before detection.
type Window struct {
	Left, Right, Top, Bottom float64
}

// Box returns the part of a width x height frame left after trimming.
// The result always keeps at least one pixel in each dimension.
func (w Window) Box(width, height int) geometry.Box {
	ww := max(1, int(math.Round(float64(width)*(1-w.Left-w.Right))))
	wh := max(1, int(math.Round(float64(height)*(1-w.Top-w.Bottom))))
	left := clampInt(int(math.Round(float64(width)*w.Left)), 0, max(0, width-ww))
	top := clampInt(int(math.Round(float64(height)*w.Top)), 0, max(0, height-wh))
	return geometry.NewBox(left, top, left+ww, top+wh)
}

// Options configures a Pipeline.
type Options struct {
	Detect detect.Config
	Window Window

	StabilizerEnabled bool
	Stabilizer        track.Config

	Enhance            enhance.Config
	RotationCorrection bool
	Correct            correct.Config

	ROIEnabled bool
	ROI        roi.Config

	Crop crop.Policy

	MinInterval       time.Duration
	AdaptiveStrategy  bool
	MultiScale        bool
	MultiScaleFactors []float64 // extra scales emitted per crop under MultiScale
	LatencyWindow     int       // samples kept for percentile stats

	// QualityBoost gives crops that fail the quality check the CONTRAST
	// plan when the current level would leave them untouched.
	QualityBoost bool
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{
		Detect:             detect.DefaultConfig(),
		StabilizerEnabled:  true,
		Stabilizer:         track.DefaultConfig(),
		Enhance:            enhance.DefaultConfig(),
		RotationCorrection: true,
		Correct:            correct.DefaultConfig(),
		ROIEnabled:         true,
		ROI:                roi.DefaultConfig(),
		Crop:               crop.DefaultPolicy(),
		MinInterval:        60 * time.Millisecond,
		AdaptiveStrategy:   true,
		MultiScaleFactors:  []float64{1.5},
		LatencyWindow:      100,
	}
}

// FromSettings maps a settings document onto pipeline options. Fields the
// settings do not cover keep their defaults.
func FromSettings(s *config.Settings) Options {
	o := DefaultOptions()

	o.Detect = o.Detect.WithThresholds(detect.Thresholds{
		MinArea:     s.GetMinAreaScore(),
		MinAspect:   s.GetMinAspectScore(),
		MinSolidity: s.GetMinSolidityScore(),
		MinGradient: s.GetMinGradientScore(),
	})
	o.Window = Window{
		Left:   s.GetWindowLeft(),
		Right:  s.GetWindowRight(),
		Top:    s.GetWindowTop(),
		Bottom: s.GetWindowBottom(),
	}

	o.StabilizerEnabled = s.GetStabilizerEnabled()
	o.Stabilizer = track.Config{
		MatchIoU: s.GetStabilizerIoU(),
		Alpha:    s.GetStabilizerAlpha(),
		MaxMiss:  s.GetStabilizerMaxMiss(),
		Matcher:  track.ParseMatcher(s.GetStabilizerMatcher()),
	}

	o.Enhance.Contrast = s.GetContrastEnabled()
	o.Enhance.Denoise = s.GetDenoiseEnabled()
	o.Enhance.Glare = s.GetGlareEnabled()
	o.Enhance.Sharpen = s.GetSharpenEnabled()
	o.Enhance.SuperResolution = s.GetSuperResolution()
	o.Enhance.Binarize = s.GetBinarize()
	o.Enhance.ClipLimit = s.GetClaheClipLimit()
	o.Enhance.TileSize = s.GetClaheTileSize()
	o.Enhance.DenoiseStrength = s.GetDenoiseStrength()
	o.Enhance.GlareThreshold = uint8(clampInt(s.GetGlareThreshold(), 0, 255))
	o.Enhance.UpscaleFactor = s.GetUpscaleFactor()
	o.Enhance.Escalation = enhance.Escalation{
		Crop:     s.GetEscalateCrop(),
		Contrast: s.GetEscalateContrast(),
		Full:     s.GetEscalateFull(),
	}
	o.RotationCorrection = s.GetRotationEnabled()

	o.ROIEnabled = s.GetRoiEnabled()
	o.ROI.MatchIoU = s.GetRoiIoU()
	o.ROI.Smoothing = s.GetRoiSmoothing()
	o.ROI.Expansion = s.GetRoiExpansion()
	o.ROI.MaxFrames = s.GetRoiMaxFrames()

	o.Crop.Padding = s.GetCropPadding()
	o.Crop.MaxOutputs = s.GetMaxOutputs()
	o.Crop.CenterBand = s.GetCenterBand()

	o.MinInterval = s.GetMinInterval()
	o.AdaptiveStrategy = s.GetAdaptiveStrategy()
	o.MultiScale = s.GetMultiScale()
	o.QualityBoost = s.GetQualityBoost()

	return o
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
