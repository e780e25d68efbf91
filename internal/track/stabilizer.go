// Package track stabilizes per-frame detections into persistent tracks.
package track

import (
	"github.com/google/uuid"

	"barcode-tracker/internal/detect"
	"barcode-tracker/pkg/geometry"
)

// Matcher selects the track/detection association strategy.
type Matcher int

const (
	// MatchGreedy pairs in descending IoU order, first come first served.
	MatchGreedy Matcher = iota
	// MatchHungarian maximizes total IoU over all admissible pairs.
	MatchHungarian
)

func (m Matcher) String() string {
	switch m {
	case MatchGreedy:
		return "greedy"
	case MatchHungarian:
		return "hungarian"
	default:
		return "unknown"
	}
}

// ParseMatcher maps a settings name to a Matcher, defaulting to greedy.
func ParseMatcher(name string) Matcher {
	if name == "hungarian" {
		return MatchHungarian
	}
	return MatchGreedy
}

// Config holds stabilizer parameters.
type Config struct {
	MatchIoU float64 // minimum IoU for a continuation
	Alpha    float64 // smoothing factor toward the new detection
	MaxMiss  int     // tracks are dropped once misses exceed this
	Matcher  Matcher
}

// DefaultConfig returns the standard stabilizer parameters.
func DefaultConfig() Config {
	return Config{
		MatchIoU: 0.25,
		Alpha:    0.25,
		MaxMiss:  2,
		Matcher:  MatchGreedy,
	}
}

// Track is one persistent detection.
type Track struct {
	ID     string
	Box    geometry.BoxF    // smoothed rectangle
	Last   detect.Candidate // most recent associated candidate
	Misses int              // consecutive unmatched frames
	Hits   int              // total matched frames, including the first
}

// Stabilizer owns the track list for one session. It is not safe for
// concurrent use.
type Stabilizer struct {
	cfg    Config
	tracks []*Track
}

// NewStabilizer creates an empty stabilizer.
func NewStabilizer(cfg Config) *Stabilizer {
	return &Stabilizer{cfg: cfg}
}

// Config returns the active parameters.
func (s *Stabilizer) Config() Config {
	return s.cfg
}

// SetConfig replaces the parameters. Existing tracks are kept.
func (s *Stabilizer) SetConfig(cfg Config) {
	s.cfg = cfg
}

// Reset drops every track.
func (s *Stabilizer) Reset() {
	s.tracks = nil
}

// Tracks returns a snapshot of the current tracks.
func (s *Stabilizer) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = *t
	}
	return out
}

// Update associates this frame's candidates with the existing tracks and
// returns one candidate per live track, carrying the smoothed box, ranked by
// confidence and indexed from 1.
func (s *Stabilizer) Update(cands []detect.Candidate) []detect.Candidate {
	iou := make([][]float64, len(s.tracks))
	for i, t := range s.tracks {
		iou[i] = make([]float64, len(cands))
		for j, c := range cands {
			iou[i][j] = t.Box.IoU(c.Box.ToFloat())
		}
	}

	var assignment []int
	if s.cfg.Matcher == MatchHungarian {
		assignment = hungarianAssign(iou, len(cands), s.cfg.MatchIoU)
	} else {
		assignment = greedyAssign(iou, len(cands), s.cfg.MatchIoU)
	}

	matched := make([]bool, len(cands))
	kept := s.tracks[:0]
	for i, t := range s.tracks {
		if j := assignment[i]; j >= 0 {
			matched[j] = true
			t.Box = t.Box.Lerp(cands[j].Box.ToFloat(), s.cfg.Alpha)
			t.Last = cands[j]
			t.Misses = 0
			t.Hits++
			kept = append(kept, t)
			continue
		}
		t.Misses++
		if t.Misses <= s.cfg.MaxMiss {
			kept = append(kept, t)
		}
	}
	s.tracks = kept

	for j, c := range cands {
		if matched[j] {
			continue
		}
		s.tracks = append(s.tracks, &Track{
			ID:   uuid.NewString(),
			Box:  c.Box.ToFloat(),
			Last: c,
			Hits: 1,
		})
	}

	out := make([]detect.Candidate, 0, len(s.tracks))
	for _, t := range s.tracks {
		c := t.Last
		c.Box = t.Box.Round()
		out = append(out, c)
	}
	return detect.Rank(out)
}
