package decode

import (
	"context"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// BarcodeDecoder reads 1-D symbols and QR codes with gozxing.
type BarcodeDecoder struct {
	readers   []gozxing.Reader
	tryHarder bool
}

// NewBarcodeDecoder returns a decoder for Code 128, Code 39, EAN-13,
// EAN-8, UPC-A, ITF and QR, tried in that order.
func NewBarcodeDecoder(tryHarder bool) *BarcodeDecoder {
	return &BarcodeDecoder{
		readers: []gozxing.Reader{
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
			oned.NewEAN13Reader(),
			oned.NewEAN8Reader(),
			oned.NewUPCAReader(),
			oned.NewITFReader(),
			qrcode.NewQRCodeReader(),
		},
		tryHarder: tryHarder,
	}
}

// Decode implements Decoder.
func (d *BarcodeDecoder) Decode(ctx context.Context, img *image.Gray) (Result, error) {
	if err := checkImage(img); err != nil {
		return Result{}, err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create bitmap: %w", err)
	}

	var hints map[gozxing.DecodeHintType]interface{}
	if d.tryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}

	for _, reader := range d.readers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		result, err := reader.Decode(bmp, hints)
		reader.Reset()
		if err != nil {
			continue
		}
		return Result{Text: result.GetText(), Format: result.GetBarcodeFormat().String()}, nil
	}
	return Result{}, ErrNotFound
}
