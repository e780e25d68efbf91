package enhance

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barcode-tracker/internal/frame"
)

func TestApplyNoneIsCopy(t *testing.T) {
	g := frame.NewFlat(30, 10, 42)
	res, err := Apply(g, DefaultConfig().PlanFor(LevelNone), DefaultConfig())
	require.NoError(t, err)

	assert.False(t, res.Enhanced())
	assert.Equal(t, g.Pix, res.Image.Pix)
	res.Image.Pix[0] = 0
	assert.Equal(t, uint8(42), g.Pix[0])
}

func TestApplyFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SuperResolution = true

	g := frame.NewFlat(80, 24, 120)
	frame.DrawBars(g, image.Rect(4, 4, 76, 20), 2, true)
	fillRect(g, image.Rect(0, 0, 12, 12), 255)

	res, err := Apply(g, cfg.PlanFor(LevelFull), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"glare", "denoise", "clahe", "contrast", "sharpen", "upscale"}, res.Applied)
	assert.Equal(t, image.Rect(0, 0, 160, 48), res.Image.Rect)
	assert.Equal(t, LevelFull, res.Plan.Level)
}

func TestApplyRejectsEmpty(t *testing.T) {
	_, err := Apply(nil, Plan{}, DefaultConfig())
	assert.ErrorIs(t, err, frame.ErrInvalidFrame)
}
