package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	assert.Equal(t, 10.0, s.GetMinAreaScore())
	assert.Equal(t, 70.0, s.GetMinAspectScore())
	assert.Equal(t, 50.0, s.GetMinSolidityScore())
	assert.Equal(t, 15.0, s.GetMinGradientScore())
	assert.Equal(t, 60*time.Millisecond, s.GetMinInterval())
	assert.Equal(t, 20, s.GetCropPadding())
	assert.Equal(t, MatcherGreedy, s.GetStabilizerMatcher())
	assert.Equal(t, 5, s.GetEscalateCrop())
	assert.Equal(t, 10, s.GetEscalateContrast())
	assert.Equal(t, 20, s.GetEscalateFull())
}

func TestEmptySettingsFallBackToDefaults(t *testing.T) {
	empty := &Settings{}
	def := DefaultSettings()

	assert.Equal(t, def.GetMinAspectScore(), empty.GetMinAspectScore())
	assert.Equal(t, def.GetStabilizerAlpha(), empty.GetStabilizerAlpha())
	assert.Equal(t, def.GetRoiMaxFrames(), empty.GetRoiMaxFrames())
	assert.Equal(t, def.GetGlareThreshold(), empty.GetGlareThreshold())
	assert.Equal(t, def.GetMinInterval(), empty.GetMinInterval())
	assert.Equal(t, def.GetCenterBand(), empty.GetCenterBand())
	assert.Equal(t, def.GetQualityBoost(), empty.GetQualityBoost())
	require.NoError(t, empty.Validate())
}

func TestLoadSettingsPartial(t *testing.T) {
	path := writeSettings(t, "scan.json", `{
  "min_aspect_score": 55,
  "stabilizer_matcher": "hungarian",
  "min_interval": "100ms",
  "crop_padding": 8,
  "multi_scale": true,
  "quality_boost": true
}`)

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, 55.0, s.GetMinAspectScore())
	assert.Equal(t, MatcherHungarian, s.GetStabilizerMatcher())
	assert.Equal(t, 100*time.Millisecond, s.GetMinInterval())
	assert.Equal(t, 8, s.GetCropPadding())
	assert.True(t, s.GetMultiScale())
	assert.True(t, s.GetQualityBoost())
	// untouched fields keep defaults
	assert.Equal(t, 10.0, s.GetMinAreaScore())
	assert.Equal(t, 0.25, s.GetStabilizerIoU())
}

func TestLoadSettingsRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "scan.yaml", `{}`, ".json extension"},
		{"bad json", "scan.json", `{"min_area_score": }`, "failed to parse"},
		{"threshold out of range", "scan.json", `{"min_gradient_score": 120}`, "min_gradient_score"},
		{"negative padding", "scan.json", `{"crop_padding": -1}`, "crop_padding"},
		{"bad interval", "scan.json", `{"min_interval": "soon"}`, "min_interval"},
		{"unknown matcher", "scan.json", `{"stabilizer_matcher": "nearest"}`, "stabilizer_matcher"},
		{"escalation order", "scan.json", `{"escalate_contrast": 3}`, "escalation thresholds"},
		{"window too wide", "scan.json", `{"window_left": 0.6}`, "window_left"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSettings(t, tt.file, tt.body)
			_, err := LoadSettings(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSettingsTooLarge(t *testing.T) {
	body := `{"crop_padding": 4` + strings.Repeat(" ", maxFileSize) + `}`
	path := writeSettings(t, "big.json", body)
	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
