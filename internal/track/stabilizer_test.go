package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barcode-tracker/internal/detect"
	"barcode-tracker/pkg/geometry"
)

func cand(l, t, r, b int, conf float64) detect.Candidate {
	return detect.Candidate{Box: geometry.NewBox(l, t, r, b), Confidence: conf}
}

func TestStabilizerConvergesOnStationaryTarget(t *testing.T) {
	s := NewStabilizer(DefaultConfig())

	out := s.Update([]detect.Candidate{cand(100, 100, 300, 130, 80)})
	require.Len(t, out, 1)
	id := s.Tracks()[0].ID

	target := cand(110, 104, 310, 134, 80)
	for i := 0; i < 25; i++ {
		out = s.Update([]detect.Candidate{target})
		require.Len(t, out, 1)
		assert.Equal(t, 1, out[0].Index)
	}

	assert.Equal(t, target.Box, out[0].Box)
	require.Len(t, s.Tracks(), 1)
	assert.Equal(t, id, s.Tracks()[0].ID)
	assert.Equal(t, 26, s.Tracks()[0].Hits)
}

func TestStabilizerSmoothingStep(t *testing.T) {
	s := NewStabilizer(DefaultConfig())
	s.Update([]detect.Candidate{cand(0, 0, 100, 20, 50)})
	out := s.Update([]detect.Candidate{cand(20, 0, 120, 20, 50)})

	require.Len(t, out, 1)
	assert.Equal(t, geometry.NewBox(5, 0, 105, 20), out[0].Box)
}

func TestStabilizerDropsStaleTracks(t *testing.T) {
	s := NewStabilizer(DefaultConfig())
	s.Update([]detect.Candidate{cand(10, 10, 200, 40, 60)})

	for miss := 1; miss <= 2; miss++ {
		out := s.Update(nil)
		require.Len(t, out, 1, "track should survive %d misses", miss)
		assert.Equal(t, miss, s.Tracks()[0].Misses)
	}

	assert.Empty(t, s.Update(nil))
	assert.Empty(t, s.Tracks())
}

func TestStabilizerMatchResetsMisses(t *testing.T) {
	s := NewStabilizer(DefaultConfig())
	c := cand(10, 10, 200, 40, 60)
	s.Update([]detect.Candidate{c})
	s.Update(nil)
	s.Update(nil)
	s.Update([]detect.Candidate{c})

	require.Len(t, s.Tracks(), 1)
	assert.Equal(t, 0, s.Tracks()[0].Misses)
}

func TestStabilizerSplitsBelowMatchThreshold(t *testing.T) {
	base := geometry.NewBox(0, 0, 100, 20)
	spawns := 0
	prevMatched := true

	for dx := 0; dx <= 100; dx += 5 {
		s := NewStabilizer(DefaultConfig())
		s.Update([]detect.Candidate{{Box: base, Confidence: 50}})

		moved := base.Offset(dx, 0)
		s.Update([]detect.Candidate{{Box: moved, Confidence: 50}})

		matched := len(s.Tracks()) == 1
		assert.Equal(t, base.IoU(moved) >= 0.25, matched, "dx=%d iou=%.3f", dx, base.IoU(moved))
		if prevMatched && !matched {
			spawns++
		}
		prevMatched = matched
	}

	assert.Equal(t, 1, spawns)
}

func TestStabilizerTwoTargetsKeepIndices(t *testing.T) {
	frame := []detect.Candidate{
		cand(340, 408, 600, 440, 72),
		cand(40, 40, 300, 72, 85),
	}

	s := NewStabilizer(DefaultConfig())
	first := s.Update(frame)
	second := s.Update(frame)

	for _, out := range [][]detect.Candidate{first, second} {
		require.Len(t, out, 2)
		assert.Equal(t, 1, out[0].Index)
		assert.Equal(t, 2, out[1].Index)
		assert.Equal(t, geometry.NewBox(40, 40, 300, 72), out[0].Box)
		assert.Equal(t, geometry.NewBox(340, 408, 600, 440), out[1].Box)
	}
	assert.Len(t, s.Tracks(), 2)
}

func TestStabilizerReset(t *testing.T) {
	s := NewStabilizer(DefaultConfig())
	s.Update([]detect.Candidate{cand(0, 0, 50, 10, 40)})
	s.Reset()
	assert.Empty(t, s.Tracks())
}

func TestStabilizerHungarianMatcher(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matcher = MatchHungarian
	s := NewStabilizer(cfg)

	s.Update([]detect.Candidate{cand(0, 0, 100, 20, 50), cand(0, 100, 100, 120, 40)})
	out := s.Update([]detect.Candidate{cand(4, 0, 104, 20, 50), cand(4, 100, 104, 120, 40)})

	require.Len(t, out, 2)
	assert.Len(t, s.Tracks(), 2)
	assert.Equal(t, geometry.NewBox(1, 0, 101, 20), out[0].Box)
}

func TestStabilizerHungarianMoreTracksThanCandidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matcher = MatchHungarian
	s := NewStabilizer(cfg)

	s.Update([]detect.Candidate{cand(0, 0, 100, 20, 50), cand(0, 10, 100, 30, 40)})
	// overlaps the first track at 0.43 and the second at 0.82
	out := s.Update([]detect.Candidate{cand(0, 8, 100, 28, 45)})
	require.Len(t, out, 2)

	tracks := s.Tracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, 1, tracks[0].Misses)
	assert.Equal(t, 1, tracks[0].Hits)
	assert.Equal(t, 0, tracks[1].Misses)
	assert.Equal(t, 2, tracks[1].Hits)
	assert.InDelta(t, 9.5, tracks[1].Box.Top, 1e-9)
	assert.InDelta(t, 29.5, tracks[1].Box.Bottom, 1e-9)
}

func TestParseMatcher(t *testing.T) {
	assert.Equal(t, MatchHungarian, ParseMatcher("hungarian"))
	assert.Equal(t, MatchGreedy, ParseMatcher("greedy"))
	assert.Equal(t, MatchGreedy, ParseMatcher(""))
	assert.Equal(t, "hungarian", MatchHungarian.String())
}
