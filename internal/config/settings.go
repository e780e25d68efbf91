// Package config loads and validates scanner settings.
//
// Settings is a flat JSON document. Every field is optional: the Get* methods
// return the built-in default for anything the file leaves out, so partial
// configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Matcher names accepted by stabilizer_matcher.
const (
	MatcherGreedy    = "greedy"
	MatcherHungarian = "hungarian"
)

// Settings is the root configuration document.
type Settings struct {
	// Detection thresholds, each on the [0,100] score scale.
	MinAreaScore     *float64 `json:"min_area_score,omitempty"`
	MinAspectScore   *float64 `json:"min_aspect_score,omitempty"`
	MinSolidityScore *float64 `json:"min_solidity_score,omitempty"`
	MinGradientScore *float64 `json:"min_gradient_score,omitempty"`

	// Detection window mask, as fractions of the frame trimmed from each side.
	WindowLeft   *float64 `json:"window_left,omitempty"`
	WindowRight  *float64 `json:"window_right,omitempty"`
	WindowTop    *float64 `json:"window_top,omitempty"`
	WindowBottom *float64 `json:"window_bottom,omitempty"`

	// Enhancement toggles and strengths
	ContrastEnabled *bool    `json:"contrast_enabled,omitempty"`
	DenoiseEnabled  *bool    `json:"denoise_enabled,omitempty"`
	GlareEnabled    *bool    `json:"glare_enabled,omitempty"`
	RotationEnabled *bool    `json:"rotation_enabled,omitempty"`
	SharpenEnabled  *bool    `json:"sharpen_enabled,omitempty"`
	SuperResolution *bool    `json:"super_resolution,omitempty"`
	Binarize        *bool    `json:"binarize,omitempty"`
	ClaheClipLimit  *float64 `json:"clahe_clip_limit,omitempty"`
	ClaheTileSize   *int     `json:"clahe_tile_size,omitempty"`
	DenoiseStrength *float64 `json:"denoise_strength,omitempty"`
	GlareThreshold  *int     `json:"glare_threshold,omitempty"`
	UpscaleFactor   *float64 `json:"upscale_factor,omitempty"`

	// Escalation thresholds (consecutive failures)
	EscalateCrop     *int `json:"escalate_crop,omitempty"`
	EscalateContrast *int `json:"escalate_contrast,omitempty"`
	EscalateFull     *int `json:"escalate_full,omitempty"`

	// Stabilizer
	StabilizerEnabled *bool    `json:"stabilizer_enabled,omitempty"`
	StabilizerIoU     *float64 `json:"stabilizer_iou,omitempty"`
	StabilizerAlpha   *float64 `json:"stabilizer_alpha,omitempty"`
	StabilizerMaxMiss *int     `json:"stabilizer_max_miss,omitempty"`
	StabilizerMatcher *string  `json:"stabilizer_matcher,omitempty"`

	// ROI tracker
	RoiEnabled   *bool    `json:"roi_enabled,omitempty"`
	RoiIoU       *float64 `json:"roi_iou,omitempty"`
	RoiSmoothing *float64 `json:"roi_smoothing,omitempty"`
	RoiExpansion *float64 `json:"roi_expansion,omitempty"`
	RoiMaxFrames *int     `json:"roi_max_frames,omitempty"`

	// Pipeline
	MinInterval      *string `json:"min_interval,omitempty"` // duration string like "60ms"
	CropPadding      *int    `json:"crop_padding,omitempty"`
	MaxOutputs       *int    `json:"max_outputs,omitempty"` // 0 means unlimited
	CenterBand       *bool   `json:"center_band,omitempty"`
	AdaptiveStrategy *bool   `json:"adaptive_strategy,omitempty"`
	MultiScale       *bool   `json:"multi_scale,omitempty"`
	QualityBoost     *bool   `json:"quality_boost,omitempty"` // contrast plan for poor crops below CONTRAST level
}

// DefaultSettings returns a Settings with every field populated.
func DefaultSettings() *Settings {
	return &Settings{
		MinAreaScore:     ptrFloat64(10),
		MinAspectScore:   ptrFloat64(70),
		MinSolidityScore: ptrFloat64(50),
		MinGradientScore: ptrFloat64(15),

		WindowLeft:   ptrFloat64(0),
		WindowRight:  ptrFloat64(0),
		WindowTop:    ptrFloat64(0),
		WindowBottom: ptrFloat64(0),

		ContrastEnabled: ptrBool(true),
		DenoiseEnabled:  ptrBool(true),
		GlareEnabled:    ptrBool(true),
		RotationEnabled: ptrBool(true),
		SharpenEnabled:  ptrBool(true),
		SuperResolution: ptrBool(false),
		Binarize:        ptrBool(false),
		ClaheClipLimit:  ptrFloat64(2.5),
		ClaheTileSize:   ptrInt(8),
		DenoiseStrength: ptrFloat64(0.5),
		GlareThreshold:  ptrInt(240),
		UpscaleFactor:   ptrFloat64(2.0),

		EscalateCrop:     ptrInt(5),
		EscalateContrast: ptrInt(10),
		EscalateFull:     ptrInt(20),

		StabilizerEnabled: ptrBool(true),
		StabilizerIoU:     ptrFloat64(0.25),
		StabilizerAlpha:   ptrFloat64(0.25),
		StabilizerMaxMiss: ptrInt(2),
		StabilizerMatcher: ptrString(MatcherGreedy),

		RoiEnabled:   ptrBool(true),
		RoiIoU:       ptrFloat64(0.3),
		RoiSmoothing: ptrFloat64(0.7),
		RoiExpansion: ptrFloat64(0.15),
		RoiMaxFrames: ptrInt(30),

		MinInterval:      ptrString("60ms"),
		CropPadding:      ptrInt(20),
		MaxOutputs:       ptrInt(0),
		CenterBand:       ptrBool(true),
		AdaptiveStrategy: ptrBool(true),
		MultiScale:       ptrBool(false),
		QualityBoost:     ptrBool(false),
	}
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

const maxFileSize = 1 * 1024 * 1024

// LoadSettings loads Settings from a JSON file. The path must carry a .json
// extension and the file must be under 1MB.
func LoadSettings(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("settings file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("settings file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := &Settings{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// Validate checks the values that are set. Unset fields are not checked.
func (s *Settings) Validate() error {
	for name, v := range map[string]*float64{
		"min_area_score":     s.MinAreaScore,
		"min_aspect_score":   s.MinAspectScore,
		"min_solidity_score": s.MinSolidityScore,
		"min_gradient_score": s.MinGradientScore,
	} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%s must be between 0 and 100, got %f", name, *v)
		}
	}

	for name, v := range map[string]*float64{
		"window_left":   s.WindowLeft,
		"window_right":  s.WindowRight,
		"window_top":    s.WindowTop,
		"window_bottom": s.WindowBottom,
	} {
		if v != nil && (*v < 0 || *v >= 0.5) {
			return fmt.Errorf("%s must be in [0, 0.5), got %f", name, *v)
		}
	}

	if s.ClaheClipLimit != nil && *s.ClaheClipLimit <= 0 {
		return fmt.Errorf("clahe_clip_limit must be positive, got %f", *s.ClaheClipLimit)
	}
	if s.ClaheTileSize != nil && *s.ClaheTileSize < 1 {
		return fmt.Errorf("clahe_tile_size must be at least 1, got %d", *s.ClaheTileSize)
	}
	if s.DenoiseStrength != nil && (*s.DenoiseStrength <= 0 || *s.DenoiseStrength > 1) {
		return fmt.Errorf("denoise_strength must be in (0, 1], got %f", *s.DenoiseStrength)
	}
	if s.GlareThreshold != nil && (*s.GlareThreshold < 1 || *s.GlareThreshold > 255) {
		return fmt.Errorf("glare_threshold must be between 1 and 255, got %d", *s.GlareThreshold)
	}
	if s.UpscaleFactor != nil && *s.UpscaleFactor < 1 {
		return fmt.Errorf("upscale_factor must be at least 1, got %f", *s.UpscaleFactor)
	}

	crop, contrast, full := s.GetEscalateCrop(), s.GetEscalateContrast(), s.GetEscalateFull()
	if crop < 1 || contrast < crop || full < contrast {
		return fmt.Errorf("escalation thresholds must satisfy 1 <= crop <= contrast <= full, got %d/%d/%d", crop, contrast, full)
	}

	if s.StabilizerIoU != nil && (*s.StabilizerIoU <= 0 || *s.StabilizerIoU > 1) {
		return fmt.Errorf("stabilizer_iou must be in (0, 1], got %f", *s.StabilizerIoU)
	}
	if s.StabilizerAlpha != nil && (*s.StabilizerAlpha <= 0 || *s.StabilizerAlpha > 1) {
		return fmt.Errorf("stabilizer_alpha must be in (0, 1], got %f", *s.StabilizerAlpha)
	}
	if s.StabilizerMaxMiss != nil && *s.StabilizerMaxMiss < 0 {
		return fmt.Errorf("stabilizer_max_miss must be non-negative, got %d", *s.StabilizerMaxMiss)
	}
	if s.StabilizerMatcher != nil {
		switch *s.StabilizerMatcher {
		case MatcherGreedy, MatcherHungarian:
		default:
			return fmt.Errorf("stabilizer_matcher must be %q or %q, got %q", MatcherGreedy, MatcherHungarian, *s.StabilizerMatcher)
		}
	}

	if s.RoiIoU != nil && (*s.RoiIoU <= 0 || *s.RoiIoU > 1) {
		return fmt.Errorf("roi_iou must be in (0, 1], got %f", *s.RoiIoU)
	}
	if s.RoiSmoothing != nil && (*s.RoiSmoothing < 0 || *s.RoiSmoothing > 1) {
		return fmt.Errorf("roi_smoothing must be in [0, 1], got %f", *s.RoiSmoothing)
	}
	if s.RoiExpansion != nil && (*s.RoiExpansion < 0 || *s.RoiExpansion > 1) {
		return fmt.Errorf("roi_expansion must be in [0, 1], got %f", *s.RoiExpansion)
	}
	if s.RoiMaxFrames != nil && *s.RoiMaxFrames < 3 {
		return fmt.Errorf("roi_max_frames must be at least 3, got %d", *s.RoiMaxFrames)
	}

	if s.MinInterval != nil && *s.MinInterval != "" {
		d, err := time.ParseDuration(*s.MinInterval)
		if err != nil {
			return fmt.Errorf("invalid min_interval '%s': %w", *s.MinInterval, err)
		}
		if d < 0 {
			return fmt.Errorf("min_interval must be non-negative, got %s", d)
		}
	}
	if s.CropPadding != nil && *s.CropPadding < 0 {
		return fmt.Errorf("crop_padding must be non-negative, got %d", *s.CropPadding)
	}
	if s.MaxOutputs != nil && *s.MaxOutputs < 0 {
		return fmt.Errorf("max_outputs must be non-negative, got %d", *s.MaxOutputs)
	}
	return nil
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (s *Settings) GetMinAreaScore() float64     { return getFloat(s.MinAreaScore, 10) }
func (s *Settings) GetMinAspectScore() float64   { return getFloat(s.MinAspectScore, 70) }
func (s *Settings) GetMinSolidityScore() float64 { return getFloat(s.MinSolidityScore, 50) }
func (s *Settings) GetMinGradientScore() float64 { return getFloat(s.MinGradientScore, 15) }

func (s *Settings) GetWindowLeft() float64   { return getFloat(s.WindowLeft, 0) }
func (s *Settings) GetWindowRight() float64  { return getFloat(s.WindowRight, 0) }
func (s *Settings) GetWindowTop() float64    { return getFloat(s.WindowTop, 0) }
func (s *Settings) GetWindowBottom() float64 { return getFloat(s.WindowBottom, 0) }

func (s *Settings) GetContrastEnabled() bool   { return getBool(s.ContrastEnabled, true) }
func (s *Settings) GetDenoiseEnabled() bool    { return getBool(s.DenoiseEnabled, true) }
func (s *Settings) GetGlareEnabled() bool      { return getBool(s.GlareEnabled, true) }
func (s *Settings) GetRotationEnabled() bool   { return getBool(s.RotationEnabled, true) }
func (s *Settings) GetSharpenEnabled() bool    { return getBool(s.SharpenEnabled, true) }
func (s *Settings) GetSuperResolution() bool   { return getBool(s.SuperResolution, false) }
func (s *Settings) GetBinarize() bool          { return getBool(s.Binarize, false) }
func (s *Settings) GetClaheClipLimit() float64 { return getFloat(s.ClaheClipLimit, 2.5) }
func (s *Settings) GetClaheTileSize() int      { return getInt(s.ClaheTileSize, 8) }
func (s *Settings) GetDenoiseStrength() float64 {
	return getFloat(s.DenoiseStrength, 0.5)
}
func (s *Settings) GetGlareThreshold() int     { return getInt(s.GlareThreshold, 240) }
func (s *Settings) GetUpscaleFactor() float64  { return getFloat(s.UpscaleFactor, 2.0) }
func (s *Settings) GetEscalateCrop() int       { return getInt(s.EscalateCrop, 5) }
func (s *Settings) GetEscalateContrast() int   { return getInt(s.EscalateContrast, 10) }
func (s *Settings) GetEscalateFull() int       { return getInt(s.EscalateFull, 20) }
func (s *Settings) GetStabilizerEnabled() bool { return getBool(s.StabilizerEnabled, true) }
func (s *Settings) GetStabilizerIoU() float64  { return getFloat(s.StabilizerIoU, 0.25) }
func (s *Settings) GetStabilizerAlpha() float64 {
	return getFloat(s.StabilizerAlpha, 0.25)
}
func (s *Settings) GetStabilizerMaxMiss() int { return getInt(s.StabilizerMaxMiss, 2) }

// GetStabilizerMatcher returns "greedy" unless hungarian matching was requested.
func (s *Settings) GetStabilizerMatcher() string {
	if s.StabilizerMatcher == nil || *s.StabilizerMatcher == "" {
		return MatcherGreedy
	}
	return *s.StabilizerMatcher
}

func (s *Settings) GetRoiEnabled() bool       { return getBool(s.RoiEnabled, true) }
func (s *Settings) GetRoiIoU() float64        { return getFloat(s.RoiIoU, 0.3) }
func (s *Settings) GetRoiSmoothing() float64  { return getFloat(s.RoiSmoothing, 0.7) }
func (s *Settings) GetRoiExpansion() float64  { return getFloat(s.RoiExpansion, 0.15) }
func (s *Settings) GetRoiMaxFrames() int      { return getInt(s.RoiMaxFrames, 30) }
func (s *Settings) GetCropPadding() int       { return getInt(s.CropPadding, 20) }
func (s *Settings) GetMaxOutputs() int        { return getInt(s.MaxOutputs, 0) }
func (s *Settings) GetCenterBand() bool       { return getBool(s.CenterBand, true) }
func (s *Settings) GetAdaptiveStrategy() bool { return getBool(s.AdaptiveStrategy, true) }
func (s *Settings) GetMultiScale() bool       { return getBool(s.MultiScale, false) }
func (s *Settings) GetQualityBoost() bool     { return getBool(s.QualityBoost, false) }

// GetMinInterval parses min_interval, falling back to 60ms.
func (s *Settings) GetMinInterval() time.Duration {
	const def = 60 * time.Millisecond
	if s.MinInterval == nil || *s.MinInterval == "" {
		return def
	}
	d, err := time.ParseDuration(*s.MinInterval)
	if err != nil {
		return def
	}
	return d
}
