// Package detect proposes barcode-like candidate regions in a luminance image
// using gradient, threshold, morphology and contour analysis.
package detect

import (
	"barcode-tracker/pkg/geometry"
)

// Axis is the gradient direction used for a detection pass.
type Axis int

const (
	// AxisHorizontal differentiates along X and responds to vertical bars.
	AxisHorizontal Axis = iota
	// AxisVertical differentiates along Y and responds to horizontal bars.
	AxisVertical
)

func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "X"
	case AxisVertical:
		return "Y"
	default:
		return "Unknown"
	}
}

// ConfidenceDetails holds the four normalized sub-scores, each in [0,100].
type ConfidenceDetails struct {
	Area     float64 `json:"area_score"`
	Aspect   float64 `json:"aspect_score"`
	Solidity float64 `json:"solidity_score"`
	Gradient float64 `json:"gradient_score"`
}

// Candidate is a proposed barcode region in frame coordinates.
type Candidate struct {
	Index       int               `json:"index"` // 1-based rank by confidence
	Box         geometry.Box      `json:"box"`
	ContourArea float64           `json:"contour_area"`
	AspectRatio float64           `json:"aspect_ratio"` // long side over short side
	Solidity    float64           `json:"solidity"`     // contour area over box area
	Details     ConfidenceDetails `json:"details"`
	Confidence  float64           `json:"confidence"` // [0,100]
	Axis        Axis              `json:"axis"`
}

// Thresholds are hard minimums applied to each sub-score independently.
type Thresholds struct {
	MinArea     float64 `json:"min_area"`
	MinAspect   float64 `json:"min_aspect"`
	MinSolidity float64 `json:"min_solidity"`
	MinGradient float64 `json:"min_gradient"`
}

// Passes reports whether every sub-score meets its threshold.
func (t Thresholds) Passes(d ConfidenceDetails) bool {
	return d.Area >= t.MinArea &&
		d.Aspect >= t.MinAspect &&
		d.Solidity >= t.MinSolidity &&
		d.Gradient >= t.MinGradient
}
