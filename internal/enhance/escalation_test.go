package enhance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForIsMonotonic(t *testing.T) {
	schedules := []Escalation{
		DefaultEscalation(),
		{Crop: 3, Contrast: 6, Full: 9},
		{Crop: 1, Contrast: 1, Full: 2},
	}

	for _, e := range schedules {
		prev := LevelNone
		for failures := 0; failures <= 50; failures++ {
			lvl := e.LevelFor(failures)
			assert.GreaterOrEqual(t, lvl, prev, "schedule %+v failures %d", e, failures)
			prev = lvl
		}
		assert.Equal(t, LevelNone, e.LevelFor(0))
		assert.Equal(t, LevelFull, e.LevelFor(50))
	}
}

func TestLevelForDefaultSchedule(t *testing.T) {
	e := DefaultEscalation()
	assert.Equal(t, LevelNone, e.LevelFor(e.Crop-1))
	assert.Equal(t, LevelCrop, e.LevelFor(e.Crop))
	assert.Equal(t, LevelContrast, e.LevelFor(e.Contrast))
	assert.Equal(t, LevelFull, e.LevelFor(e.Full))
}

func TestNextResetsOnSuccess(t *testing.T) {
	e := DefaultEscalation()
	for _, failures := range []int{0, 1, 7, 19, 20, 500} {
		s := EscalationState{Failures: failures, Level: e.LevelFor(failures)}
		assert.Equal(t, EscalationState{}, e.Next(s, true))
	}
}

func TestNextIncrementsOnFailure(t *testing.T) {
	e := DefaultEscalation()
	s := EscalationState{}
	for i := 1; i <= 25; i++ {
		s = e.Next(s, false)
		assert.Equal(t, i, s.Failures)
		assert.Equal(t, e.LevelFor(i), s.Level)
	}
}

func TestEscalator(t *testing.T) {
	esc := NewEscalator(DefaultEscalation())
	var lvl Level
	for i := 0; i < 20; i++ {
		lvl = esc.Record(false)
	}
	assert.Equal(t, LevelFull, lvl)
	assert.Equal(t, 20, esc.State().Failures)

	esc.SetSchedule(Escalation{Crop: 30, Contrast: 40, Full: 50})
	assert.Equal(t, LevelNone, esc.Level())

	assert.Equal(t, LevelNone, esc.Record(true))
	assert.Equal(t, 0, esc.State().Failures)

	esc.Record(false)
	esc.Reset()
	assert.Equal(t, EscalationState{}, esc.State())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "NONE", LevelNone.String())
	assert.Equal(t, "FULL", LevelFull.String())
	assert.Equal(t, "UNKNOWN", Level(9).String())
}
