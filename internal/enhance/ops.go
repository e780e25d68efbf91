package enhance

import (
	"image"
	"math"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"

	"barcode-tracker/internal/frame"
	"barcode-tracker/pkg/geometry"
)

// matOp runs fn on a Mat copy of g and converts the result back.
func matOp(g *image.Gray, fn func(src gocv.Mat, dst *gocv.Mat)) (*image.Gray, error) {
	src, err := frame.ToMat(g)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	fn(src, &dst)
	return frame.FromMat(dst)
}

// CLAHE applies tile-local histogram equalization with clipping. tileSize is
// the tile edge in pixels; the grid is sized to cover the image.
func CLAHE(g *image.Gray, clipLimit float64, tileSize int) (*image.Gray, error) {
	if tileSize < 1 {
		tileSize = 8
	}
	w, h := g.Rect.Dx(), g.Rect.Dy()
	grid := image.Point{
		X: max(1, (w+tileSize-1)/tileSize),
		Y: max(1, (h+tileSize-1)/tileSize),
	}
	return matOp(g, func(src gocv.Mat, dst *gocv.Mat) {
		clahe := gocv.NewCLAHEWithParams(clipLimit, grid)
		defer clahe.Close()
		clahe.Apply(src, dst)
	})
}

// Denoise runs a 3x3 bilateral filter. strength scales the intensity sigma.
func Denoise(g *image.Gray, strength float64) (*image.Gray, error) {
	sigmaColor := 30 * strength
	const sigmaSpace = 1.5
	return matOp(g, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.BilateralFilter(src, dst, 3, sigmaColor, sigmaSpace)
	})
}

// CompensateGlare finds connected regions at or above threshold whose
// bounding box exceeds minSize in both dimensions, and replaces the bright
// pixels inside each box with the mean of the pixels bordering it. Darker
// pixels inside the box, such as bars, are kept. It returns the compensated
// image and the boxes that were treated.
func CompensateGlare(g *image.Gray, threshold uint8, minSize int) (*image.Gray, []geometry.Box, error) {
	src, err := frame.ToMat(g)
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(src, &mask, float32(threshold)-1, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	out := frame.CopyRegion(g, geometry.BoxFromRect(g.Rect))
	var regions []geometry.Box
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		if r.Dx() <= minSize || r.Dy() <= minSize {
			continue
		}
		box := geometry.BoxFromRect(r)
		fillBright(out, box, threshold, borderMean(out, box))
		regions = append(regions, box)
	}
	return out, regions, nil
}

// borderMean averages the one-pixel ring just outside b, skipping sides that
// fall off the image. Returns 128 when no side is available.
func borderMean(g *image.Gray, b geometry.Box) uint8 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	var sum, count int
	if b.Top > 0 {
		for x := b.Left; x < b.Right; x++ {
			sum += int(g.Pix[g.PixOffset(x, b.Top-1)])
			count++
		}
	}
	if b.Bottom < h {
		for x := b.Left; x < b.Right; x++ {
			sum += int(g.Pix[g.PixOffset(x, b.Bottom)])
			count++
		}
	}
	if b.Left > 0 {
		for y := b.Top; y < b.Bottom; y++ {
			sum += int(g.Pix[g.PixOffset(b.Left-1, y)])
			count++
		}
	}
	if b.Right < w {
		for y := b.Top; y < b.Bottom; y++ {
			sum += int(g.Pix[g.PixOffset(b.Right, y)])
			count++
		}
	}
	if count == 0 {
		return 128
	}
	return uint8(sum / count)
}

func fillBright(g *image.Gray, b geometry.Box, threshold, v uint8) {
	b = b.Clamp(g.Rect.Dx(), g.Rect.Dy())
	for y := b.Top; y < b.Bottom; y++ {
		row := g.Pix[g.PixOffset(b.Left, y):g.PixOffset(b.Right, y)]
		for i := range row {
			if row[i] >= threshold {
				row[i] = v
			}
		}
	}
}

// sampledMean estimates the mean intensity from about 1000 evenly spaced
// pixels.
func sampledMean(g *image.Gray) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	n := w * h
	if n == 0 {
		return 0
	}
	step := max(1, n/1000)
	var sum, count int
	for i := 0; i < n; i += step {
		x, y := i%w, i/w
		sum += int(g.Pix[g.PixOffset(g.Rect.Min.X+x, g.Rect.Min.Y+y)])
		count++
	}
	return float64(sum) / float64(count)
}

// BoostContrast stretches intensities linearly around the sampled mean:
// v' = (v - mean) * factor + mean, saturated to [0,255].
func BoostContrast(g *image.Gray, factor float64) (*image.Gray, error) {
	if factor == 1 {
		return frame.CopyRegion(g, geometry.BoxFromRect(g.Rect)), nil
	}
	mean := sampledMean(g)
	return matOp(g, func(src gocv.Mat, dst *gocv.Mat) {
		src.ConvertToWithParams(dst, gocv.MatTypeCV8U, float32(factor), float32(mean*(1-factor)))
	})
}

// Sharpen subtracts a scaled 4-neighbour Laplacian:
// v' = v + strength * (4v - up - down - left - right).
func Sharpen(g *image.Gray, strength float64) (*image.Gray, error) {
	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	s := float32(strength)
	weights := [3][3]float32{
		{0, -s, 0},
		{-s, 1 + 4*s, -s},
		{0, -s, 0},
	}
	for r := range weights {
		for c := range weights[r] {
			kernel.SetFloatAt(r, c, weights[r][c])
		}
	}

	return matOp(g, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.Filter2D(src, dst, gocv.MatTypeCV8U, kernel, image.Point{X: -1, Y: -1}, 0, gocv.BorderReplicate)
	})
}

// Binarize applies a mean adaptive threshold. block must be odd and > 1.
func Binarize(g *image.Gray, block int, c float32) (*image.Gray, error) {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	return matOp(g, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.AdaptiveThreshold(src, dst, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinary, block, c)
	})
}

// Upscale enlarges g by factor with Catmull-Rom (bicubic) resampling.
func Upscale(g *image.Gray, factor float64) *image.Gray {
	if factor <= 1 {
		return frame.CopyRegion(g, geometry.BoxFromRect(g.Rect))
	}
	w := int(math.Round(float64(g.Rect.Dx()) * factor))
	h := int(math.Round(float64(g.Rect.Dy()) * factor))
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Rect, g, g.Rect, draw.Src, nil)
	return dst
}

// MultiScale returns g resized by each factor. A factor of 1 yields a copy.
func MultiScale(g *image.Gray, factors []float64) ([]*image.Gray, error) {
	out := make([]*image.Gray, 0, len(factors))
	for _, f := range factors {
		if f <= 0 {
			continue
		}
		if f == 1 {
			out = append(out, frame.CopyRegion(g, geometry.BoxFromRect(g.Rect)))
			continue
		}
		interp := gocv.InterpolationCubic
		if f < 1 {
			interp = gocv.InterpolationArea
		}
		scaled, err := matOp(g, func(src gocv.Mat, dst *gocv.Mat) {
			gocv.Resize(src, dst, image.Point{}, f, f, interp)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, scaled)
	}
	return out, nil
}
