package detect

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"barcode-tracker/internal/frame"
	"barcode-tracker/pkg/geometry"
)

// minImageSide is the smallest image edge the detector will analyze.
const minImageSide = 8

// Detect finds candidate regions in the whole image. The result is ranked by
// confidence. Degenerate input yields an empty list.
func Detect(g *image.Gray, cfg Config) []Candidate {
	if g == nil {
		return nil
	}
	return DetectInWindow(g, geometry.BoxFromRect(g.Rect), cfg)
}

// DetectInWindow analyzes only the part of g covered by window. Scores are
// relative to the window, and returned boxes are in g's coordinates.
func DetectInWindow(g *image.Gray, window geometry.Box, cfg Config) []Candidate {
	if g == nil {
		return nil
	}
	window = window.Intersect(geometry.BoxFromRect(g.Rect))
	if window.Width() < minImageSide || window.Height() < minImageSide {
		return nil
	}

	mat, err := frame.ToMat(frame.CopyRegion(g, window))
	if err != nil {
		return nil
	}
	defer mat.Close()

	cands := detectAxis(mat, cfg, AxisHorizontal)
	if len(cands) == 0 && cfg.AxisRetry {
		cands = detectAxis(mat, cfg, AxisVertical)
	}

	for i := range cands {
		cands[i].Box = cands[i].Box.Offset(window.Left, window.Top)
	}
	return Rank(cands)
}

// detectAxis runs one gradient pass. For the vertical pass the shape
// geometry is transposed: the closing kernel is tall and the length gate
// applies to the box height.
func detectAxis(gray gocv.Mat, cfg Config, axis Axis) []Candidate {
	rows, cols := gray.Rows(), gray.Cols()
	imgArea := float64(rows) * float64(cols)

	along, across := cols, rows
	if axis == AxisVertical {
		along, across = rows, cols
	}
	minArea := math.Max(cfg.MinAreaPixels, imgArea*cfg.MinAreaFraction)
	minLength := max(cfg.MinLengthPixels, int(math.Round(float64(along)*cfg.MinLengthFraction)))

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: cfg.BlurSize, Y: cfg.BlurSize}, 0, 0, gocv.BorderDefault)

	grad := gocv.NewMat()
	defer grad.Close()
	if axis == AxisVertical {
		gocv.Sobel(blurred, &grad, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)
	} else {
		gocv.Sobel(blurred, &grad, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	}

	absGrad := gocv.NewMat()
	defer absGrad.Close()
	gocv.ConvertScaleAbs(grad, &absGrad, 1, 0)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(absGrad, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Close along the bar-stacking direction so adjacent bars merge.
	kLong := odd(max(cfg.CloseMinLength, int(math.Round(float64(along)*cfg.CloseLengthFraction))))
	kThin := odd(max(cfg.CloseMinThick, int(math.Round(float64(across)*cfg.CloseThickFraction))))
	kSize := image.Point{X: kLong, Y: kThin}
	if axis == AxisVertical {
		kSize = image.Point{X: kThin, Y: kLong}
	}
	closeKernel := gocv.GetStructuringElement(gocv.MorphRect, kSize)
	defer closeKernel.Close()

	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(binary, &closed, gocv.MorphClose, closeKernel)

	dilateKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: cfg.DilateSize, Y: cfg.DilateSize})
	defer dilateKernel.Close()
	gocv.Dilate(closed, &closed, dilateKernel)

	contours := gocv.FindContours(closed, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var cands []Candidate
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area < minArea {
			continue
		}

		rect := gocv.BoundingRect(contour)
		w, h := rect.Dx(), rect.Dy()
		if w <= 0 || h <= 0 {
			continue
		}

		length, thickness := w, h
		if axis == AxisVertical {
			length, thickness = h, w
		}
		aspect := float64(length) / float64(thickness)
		if aspect < cfg.MinAspect || aspect > cfg.MaxAspect {
			continue
		}
		if length < minLength {
			continue
		}

		solidity := area / (float64(w) * float64(h))
		if solidity < cfg.MinSolidity {
			continue
		}

		gradMean := regionMean(absGrad, rect)
		details, confidence := cfg.Score(aspect, solidity, area/imgArea, gradMean)
		if !cfg.Thresholds.Passes(details) {
			continue
		}

		cands = append(cands, Candidate{
			Box:         geometry.BoxFromRect(rect),
			ContourArea: area,
			AspectRatio: aspect,
			Solidity:    solidity,
			Details:     details,
			Confidence:  confidence,
			Axis:        axis,
		})
	}

	return cands
}

// regionMean returns the mean of m inside r, clamped to m's bounds.
func regionMean(m gocv.Mat, r image.Rectangle) float64 {
	r = r.Intersect(image.Rect(0, 0, m.Cols(), m.Rows()))
	if r.Empty() {
		return 0
	}
	roi := m.Region(r)
	defer roi.Close()
	return roi.Mean().Val1
}
