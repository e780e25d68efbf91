package detect

import (
	"math"
	"sort"
)

// Score weights for the combined confidence.
const (
	weightAspect   = 0.3
	weightSolidity = 0.3
	weightArea     = 0.2
	weightGradient = 0.2
)

// Score normalizes the raw measurements of one region. aspect is the long
// side over the short side; areaFraction is contour area over analyzed image
// area; gradMean is the mean absolute gradient inside the box.
func (c Config) Score(aspect, solidity, areaFraction, gradMean float64) (ConfidenceDetails, float64) {
	aspectScore := math.Max(0, 1-math.Abs(aspect-c.IdealAspect)/c.IdealAspect)
	solidityScore := math.Min(1, solidity/c.SolidityNorm)
	areaScore := math.Min(1, areaFraction/c.AreaNorm)
	gradScore := math.Min(1, gradMean/c.GradientNorm)

	aspectScore = clamp01(aspectScore)
	solidityScore = clamp01(solidityScore)
	areaScore = clamp01(areaScore)
	gradScore = clamp01(gradScore)

	confidence := (aspectScore*weightAspect +
		solidityScore*weightSolidity +
		areaScore*weightArea +
		gradScore*weightGradient) * 100

	return ConfidenceDetails{
		Area:     areaScore * 100,
		Aspect:   aspectScore * 100,
		Solidity: solidityScore * 100,
		Gradient: gradScore * 100,
	}, confidence
}

// Filter returns the candidates whose sub-scores all pass t, in order.
func Filter(cands []Candidate, t Thresholds) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if t.Passes(c.Details) {
			out = append(out, c)
		}
	}
	return out
}

// Rank sorts candidates by confidence descending and re-indexes them from 1.
// Ties fall back to position (top, then left) so ordering is deterministic.
func Rank(cands []Candidate) []Candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Box.Top != b.Box.Top {
			return a.Box.Top < b.Box.Top
		}
		return a.Box.Left < b.Box.Left
	})
	for i := range cands {
		cands[i].Index = i + 1
	}
	return cands
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// odd rounds n up to the next odd number.
func odd(n int) int {
	if n%2 == 1 {
		return n
	}
	return n + 1
}
