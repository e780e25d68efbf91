// Package crop turns stabilized detections into padded sub-images for the
// decoder.
package crop

import (
	"image"
	"math"
	"sort"

	"barcode-tracker/internal/detect"
	"barcode-tracker/internal/frame"
	"barcode-tracker/pkg/geometry"
)

// Type tags how a crop was derived from its detection.
type Type int

const (
	// DetectionBox is the detection padded on every side.
	DetectionBox Type = iota
	// CenterBand is a short strip through the detection's vertical middle.
	CenterBand
)

func (t Type) String() string {
	switch t {
	case DetectionBox:
		return "DETECTION_BOX"
	case CenterBand:
		return "CENTER_BAND"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Policy decides which crops to produce for each detection.
type Policy struct {
	Padding       int  // pixels added on each side of DetectionBox crops
	CenterBand    bool // also produce CenterBand crops
	MaxOutputs    int  // detections considered, highest confidence first; 0 means all
	MinBandHeight int
	BandRatio     float64 // band height as a fraction of the detection height
	BandPadFactor float64 // horizontal band padding relative to Padding
}

// DefaultPolicy returns the standard crop policy.
func DefaultPolicy() Policy {
	return Policy{
		Padding:       20,
		CenterBand:    true,
		MinBandHeight: 28,
		BandRatio:     0.55,
		BandPadFactor: 1.8,
	}
}

// Spec describes one crop without its pixels.
type Spec struct {
	SourceIndex int                      `json:"source_index"`
	Source      geometry.Box             `json:"source_box"`
	Box         geometry.Box             `json:"crop_box"`
	Type        Type                     `json:"crop_type"`
	Confidence  float64                  `json:"confidence"`
	Details     detect.ConfidenceDetails `json:"confidence_details"`
}

// Crop is a Spec with its extracted image.
type Crop struct {
	Spec
	Image *image.Gray `json:"-"`
}

// Plan computes crop rectangles for dets inside a width x height image.
// Detections are visited in descending confidence order.
func (p Policy) Plan(dets []detect.Candidate, width, height int) []Spec {
	if len(dets) == 0 || width <= 1 || height <= 1 {
		return nil
	}

	ordered := append([]detect.Candidate(nil), dets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})
	if p.MaxOutputs > 0 && len(ordered) > p.MaxOutputs {
		ordered = ordered[:p.MaxOutputs]
	}

	var specs []Spec
	for _, det := range ordered {
		base := Spec{
			SourceIndex: det.Index,
			Source:      det.Box,
			Confidence:  det.Confidence,
			Details:     det.Details,
		}

		padded, havePadded := ExpandAndClamp(det.Box, width, height, p.Padding)
		if havePadded {
			s := base
			s.Box = padded
			s.Type = DetectionBox
			specs = append(specs, s)
		}

		if !p.CenterBand {
			continue
		}
		hpad := int(float64(p.Padding) * p.BandPadFactor)
		band, ok := BandBox(det.Box, width, height, hpad, p.MinBandHeight, p.BandRatio)
		if ok && (!havePadded || band != padded) {
			s := base
			s.Box = band
			s.Type = CenterBand
			specs = append(specs, s)
		}
	}
	return specs
}

// Build plans crops for dets and copies their pixels out of g.
func (p Policy) Build(g *image.Gray, dets []detect.Candidate) []Crop {
	specs := p.Plan(dets, g.Rect.Dx(), g.Rect.Dy())
	crops := make([]Crop, 0, len(specs))
	for _, s := range specs {
		crops = append(crops, Crop{Spec: s, Image: frame.CopyRegion(g, s.Box)})
	}
	return crops
}

// ExpandAndClamp pads b by pad on every side and clamps it to the image,
// always leaving at least one pixel of width and height.
func ExpandAndClamp(b geometry.Box, width, height, pad int) (geometry.Box, bool) {
	if width <= 1 || height <= 1 {
		return geometry.Box{}, false
	}
	left := clamp(b.Left-pad, 0, width-1)
	top := clamp(b.Top-pad, 0, height-1)
	out := geometry.Box{
		Left:   left,
		Top:    top,
		Right:  clamp(b.Right+pad, left+1, width),
		Bottom: clamp(b.Bottom+pad, top+1, height),
	}
	return out, !out.Empty()
}

// BandBox returns a horizontal strip centered on b's vertical midpoint,
// widened by hpad on both sides. Its height is the larger of minHeight and
// ratio times b's height.
func BandBox(b geometry.Box, width, height, hpad, minHeight int, ratio float64) (geometry.Box, bool) {
	if width <= 1 || height <= 1 {
		return geometry.Box{}, false
	}
	cy := (b.Top + b.Bottom) / 2
	bh := max(1, b.Height())
	half := max(minHeight, int(math.Round(float64(bh)*ratio))) / 2

	left := clamp(b.Left-hpad, 0, width-1)
	top := clamp(cy-half, 0, height-1)
	out := geometry.Box{
		Left:   left,
		Top:    top,
		Right:  clamp(b.Right+hpad, left+1, width),
		Bottom: clamp(cy+half, top+1, height),
	}
	return out, !out.Empty()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
