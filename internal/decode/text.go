package decode

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"unicode"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"

	"barcode-tracker/internal/frame"
)

// DigitChars restricts recognition to the human-readable line printed
// under most 1-D symbols.
const DigitChars = "0123456789"

// TextDecoder reads the digits printed with a symbol using Tesseract. It is
// a fallback for symbols too damaged for the bar decoder.
type TextDecoder struct {
	mu        sync.Mutex
	client    *gosseract.Client
	minDigits int
}

// NewTextDecoder creates a Tesseract-backed decoder that only reports
// results with at least minDigits digits.
func NewTextDecoder(minDigits int) (*TextDecoder, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Digit strings aren't dictionary words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	if err := client.SetWhitelist(DigitChars); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	// PSM 7 = single text line
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}

	return &TextDecoder{client: client, minDigits: minDigits}, nil
}

// Close releases OCR resources.
func (d *TextDecoder) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

// Decode implements Decoder.
func (d *TextDecoder) Decode(ctx context.Context, img *image.Gray) (Result, error) {
	if err := checkImage(img); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	buf, err := prepareForOCR(img)
	if err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.client.SetImageFromBytes(buf); err != nil {
		return Result{}, fmt.Errorf("failed to set image: %w", err)
	}
	text, err := d.client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("OCR failed: %w", err)
	}

	digits := onlyDigits(text)
	if len(digits) < d.minDigits {
		return Result{}, ErrNotFound
	}
	return Result{Text: digits, Format: "OCR"}, nil
}

// prepareForOCR upscales small crops, binarizes with Otsu and makes the text
// dark on light. The result is PNG-encoded.
func prepareForOCR(img *image.Gray) ([]byte, error) {
	src, err := frame.ToMat(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	if minDim := min(src.Rows(), src.Cols()); minDim < 150 {
		scale := 150.0 / float64(minDim)
		gocv.Resize(src, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		src.CopyTo(&scaled)
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(scaled, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Mostly dark means light text on a dark label.
	if white := gocv.CountNonZero(binary); white*2 < binary.Rows()*binary.Cols() {
		gocv.BitwiseNot(binary, &binary)
	}

	out, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer out.Close()

	return append([]byte(nil), out.GetBytes()...), nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
