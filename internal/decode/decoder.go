// Package decode turns crops into symbol text. Decoding is a collaborator
// of the scanner: the pipeline only needs the Decoder interface.
package decode

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrNotFound means the decoder saw no readable symbol. It is a normal
// outcome, not a failure.
var ErrNotFound = errors.New("no symbol found")

// Result is one decoded symbol.
type Result struct {
	Text   string `json:"text"`
	Format string `json:"format"` // e.g. CODE_128, QR_CODE, OCR
}

// Decoder reads a symbol from a luminance crop.
type Decoder interface {
	Decode(ctx context.Context, img *image.Gray) (Result, error)
}

// Func adapts a function to the Decoder interface.
type Func func(ctx context.Context, img *image.Gray) (Result, error)

// Decode calls f.
func (f Func) Decode(ctx context.Context, img *image.Gray) (Result, error) {
	return f(ctx, img)
}

// Chain tries each decoder in order and returns the first success.
type Chain []Decoder

// Decode implements Decoder. Errors other than ErrNotFound stop the chain.
func (c Chain) Decode(ctx context.Context, img *image.Gray) (Result, error) {
	for _, d := range c {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := d.Decode(ctx, img)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Result{}, err
		}
	}
	return Result{}, ErrNotFound
}

func checkImage(img *image.Gray) error {
	if img == nil || img.Rect.Dx() <= 0 || img.Rect.Dy() <= 0 {
		return fmt.Errorf("decode: empty image")
	}
	return nil
}
