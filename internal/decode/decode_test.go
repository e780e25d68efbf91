package decode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barcode-tracker/internal/frame"
)

// render draws an encoded symbol onto a white canvas.
func render(t *testing.T, w gozxing.Writer, format gozxing.BarcodeFormat, contents string) *image.Gray {
	t.Helper()
	m, err := w.Encode(contents, format, 300, 80, nil)
	require.NoError(t, err)

	g := frame.NewFlat(m.GetWidth(), m.GetHeight(), 255)
	for y := 0; y < m.GetHeight(); y++ {
		for x := 0; x < m.GetWidth(); x++ {
			if m.Get(x, y) {
				g.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return g
}

func TestBarcodeDecoderCode128(t *testing.T) {
	g := render(t, oned.NewCode128Writer(), gozxing.BarcodeFormat_CODE_128, "CAT-0042")

	res, err := NewBarcodeDecoder(false).Decode(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, "CAT-0042", res.Text)
	assert.Equal(t, "CODE_128", res.Format)
}

func TestBarcodeDecoderEAN13(t *testing.T) {
	g := render(t, oned.NewEAN13Writer(), gozxing.BarcodeFormat_EAN_13, "4006381333931")

	res, err := NewBarcodeDecoder(true).Decode(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, "4006381333931", res.Text)
	assert.Equal(t, "EAN_13", res.Format)
}

func TestBarcodeDecoderNotFound(t *testing.T) {
	d := NewBarcodeDecoder(false)

	_, err := d.Decode(context.Background(), frame.NewFlat(120, 60, 200))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.Decode(context.Background(), nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestBarcodeDecoderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBarcodeDecoder(false).Decode(ctx, frame.NewFlat(50, 50, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChain(t *testing.T) {
	g := frame.NewFlat(10, 10, 0)
	var calls []string
	miss := func(name string) Decoder {
		return Func(func(context.Context, *image.Gray) (Result, error) {
			calls = append(calls, name)
			return Result{}, ErrNotFound
		})
	}
	hit := Func(func(context.Context, *image.Gray) (Result, error) {
		calls = append(calls, "hit")
		return Result{Text: "123", Format: "TEST"}, nil
	})

	res, err := Chain{miss("a"), hit, miss("b")}.Decode(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, "123", res.Text)
	assert.Equal(t, []string{"a", "hit"}, calls)

	calls = nil
	_, err = Chain{miss("a"), miss("b")}.Decode(context.Background(), g)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"a", "b"}, calls)

	_, err = Chain{}.Decode(context.Background(), g)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChainStopsOnHardError(t *testing.T) {
	boom := errors.New("boom")
	failing := Func(func(context.Context, *image.Gray) (Result, error) {
		return Result{}, boom
	})
	called := false
	next := Func(func(context.Context, *image.Gray) (Result, error) {
		called = true
		return Result{}, nil
	})

	_, err := Chain{failing, next}.Decode(context.Background(), frame.NewFlat(4, 4, 0))
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestOnlyDigits(t *testing.T) {
	assert.Equal(t, "4006381333931", onlyDigits(" 4 006381 333931\n"))
	assert.Equal(t, "", onlyDigits("abc"))
}

func TestPrepareForOCR(t *testing.T) {
	// light digits on a dark label
	g := frame.NewFlat(40, 20, 20)
	for y := 5; y < 15; y++ {
		for x := 10; x < 14; x++ {
			g.SetGray(x, y, color.Gray{Y: 230})
		}
	}

	buf, err := prepareForOCR(g)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 150), img.Bounds())

	// inverted: background becomes white
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}
