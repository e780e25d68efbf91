// Package roi keeps a single area of interest alive across frames so the
// detector can skip full-frame scans while a symbol stays in view.
package roi

import (
	"math"

	"barcode-tracker/pkg/geometry"
)

// Phase is the tracker's coarse state.
type Phase int

const (
	Idle Phase = iota
	Tracking
	Predicting
	Lost
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Tracking:
		return "TRACKING"
	case Predicting:
		return "PREDICTING"
	case Lost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Config holds the tracker constants.
type Config struct {
	MatchIoU      float64 // continuation threshold against the current box
	Smoothing     float64 // weight of the newest velocity sample
	Expansion     float64 // per-side growth of accepted detections
	MaxFrames     int     // prediction window; the first third extrapolates
	MinSize       int     // smallest extent a predicted box is clamped to
	HistorySize   int
	StableWindow  int
	MinConfidence float64
}

// DefaultConfig returns the standard tracker constants.
func DefaultConfig() Config {
	return Config{
		MatchIoU:      0.3,
		Smoothing:     0.7,
		Expansion:     0.15,
		MaxFrames:     30,
		MinSize:       50,
		HistorySize:   10,
		StableWindow:  5,
		MinConfidence: 0.1,
	}
}

// State is one immutable tracker snapshot. The zero value is Idle.
type State struct {
	Phase      Phase
	Box        geometry.Box // expanded area of interest
	Confidence float64
	Frames     int // frames since the target was (re)acquired
	Missed     int // consecutive frames without a detection
	Velocity   geometry.Point2D
	History    []geometry.Box // raw detections, oldest first
}

// ShouldFullScan reports whether the whole frame must be analyzed.
func (s State) ShouldFullScan() bool {
	return s.Phase == Idle || s.Phase == Lost
}

// Active reports whether the state carries a usable box.
func (s State) Active() bool {
	return s.Phase == Tracking || s.Phase == Predicting
}

// Step is the pure transition function. det is the frame's best detection,
// or nil when nothing was found. The input state is never modified.
func Step(s State, det *geometry.Box, width, height int, cfg Config) State {
	if det != nil && !det.Empty() {
		return acquire(s, *det, width, height, cfg)
	}

	switch s.Phase {
	case Idle:
		return State{}
	case Lost:
		// One Lost frame is reported, then the tracker is cleared.
		return State{}
	}

	next := s
	next.Missed = s.Missed + 1
	next.Frames = s.Frames + 1
	next.Phase = Predicting

	switch {
	case next.Missed <= cfg.MaxFrames/3:
		next.Box = predict(s.Box, s.Velocity, width, height, cfg.MinSize)
		next.Confidence = settle(s.Confidence - 0.05)
		next.Velocity = s.Velocity.Scale(0.9)
	case next.Missed <= cfg.MaxFrames:
		next.Confidence = settle(s.Confidence - 0.1)
	default:
		return lost(s)
	}

	if next.Confidence < cfg.MinConfidence {
		return lost(s)
	}
	return next
}

func acquire(s State, det geometry.Box, width, height int, cfg Config) State {
	next := State{
		Phase:   Tracking,
		Box:     det.ExpandRatio(cfg.Expansion, width, height),
		History: appendHistory(s.History, det, cfg.HistorySize),
		Frames:  1,
	}

	switch {
	case !s.Active():
		next.Confidence = 1
		next.History = []geometry.Box{det}
	case s.Box.IoU(det) > cfg.MatchIoU:
		oc, nc := s.Box.Center(), det.Center()
		sample := geometry.Point2D{X: float64(nc.X - oc.X), Y: float64(nc.Y - oc.Y)}
		next.Confidence = settle(math.Min(1, s.Confidence+0.1))
		next.Frames = s.Frames + 1
		next.Velocity = sample.Scale(cfg.Smoothing).Add(s.Velocity.Scale(1 - cfg.Smoothing))
	default:
		next.Confidence = 0.8
	}
	return next
}

func lost(s State) State {
	return State{Phase: Lost, Box: s.Box, Frames: s.Frames, Missed: s.Missed + 1}
}

// predict shifts b by the integer part of v, keeping at least minSize of
// the box inside the frame.
func predict(b geometry.Box, v geometry.Point2D, width, height, minSize int) geometry.Box {
	dx, dy := int(v.X), int(v.Y)
	return geometry.Box{
		Left:   clamp(b.Left+dx, 0, max(0, width-minSize)),
		Top:    clamp(b.Top+dy, 0, max(0, height-minSize)),
		Right:  clamp(b.Right+dx, min(minSize, width), width),
		Bottom: clamp(b.Bottom+dy, min(minSize, height), height),
	}
}

func appendHistory(h []geometry.Box, b geometry.Box, limit int) []geometry.Box {
	out := make([]geometry.Box, 0, len(h)+1)
	out = append(out, h...)
	out = append(out, b)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Stable averages the most recent window of raw detections. With fewer
// than three samples it falls back to the current box.
func (s State) Stable(window int) (geometry.Box, bool) {
	if !s.Active() {
		return geometry.Box{}, false
	}
	if len(s.History) < 3 {
		return s.Box, true
	}
	recent := s.History
	if window > 0 && len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	var l, t, r, b int
	for _, h := range recent {
		l += h.Left
		t += h.Top
		r += h.Right
		b += h.Bottom
	}
	n := len(recent)
	return geometry.NewBox(l/n, t/n, r/n, b/n), true
}

// settle rounds confidence to hundredths so repeated steps stay exact.
func settle(c float64) float64 {
	return math.Max(0, math.Round(c*100)/100)
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
