package roi

import (
	"github.com/google/uuid"

	"barcode-tracker/internal/monitoring"
	"barcode-tracker/pkg/geometry"
)

// Tracker wraps Step with the state kept between frames. It is not safe
// for concurrent use; callers serialize access.
type Tracker struct {
	cfg   Config
	state State
}

// NewTracker returns an Idle tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Update advances the tracker by one frame and returns the new state.
func (t *Tracker) Update(det *geometry.Box, width, height int) State {
	prev := t.state.Phase
	t.state = Step(t.state, det, width, height, t.cfg)
	if t.state.Phase != prev {
		monitoring.Logf("roi: %s -> %s (confidence %.2f)", prev, t.state.Phase, t.state.Confidence)
	}
	return t.state
}

// State returns the current snapshot.
func (t *Tracker) State() State { return t.state }

// Phase returns the current phase.
func (t *Tracker) Phase() Phase { return t.state.Phase }

// Confidence returns the current confidence in [0,1].
func (t *Tracker) Confidence() float64 { return t.state.Confidence }

// Current returns the tracked box while Tracking or Predicting.
func (t *Tracker) Current() (geometry.Box, bool) {
	if !t.state.Active() {
		return geometry.Box{}, false
	}
	return t.state.Box, true
}

// StableROI returns the history-averaged box.
func (t *Tracker) StableROI() (geometry.Box, bool) {
	return t.state.Stable(t.cfg.StableWindow)
}

// ShouldFullScan reports whether the next frame needs a full scan.
func (t *Tracker) ShouldFullScan() bool { return t.state.ShouldFullScan() }

// Config returns the tracker constants.
func (t *Tracker) Config() Config { return t.cfg }

// SetConfig replaces the constants without dropping the current state.
func (t *Tracker) SetConfig(cfg Config) { t.cfg = cfg }

// Reset returns the tracker to Idle.
func (t *Tracker) Reset() { t.state = State{} }

// Target is one entry of a MultiTracker.
type Target struct {
	ID      uuid.UUID
	tracker *Tracker
}

// State returns the target's current snapshot.
func (tg *Target) State() State { return tg.tracker.State() }

// MultiTracker follows several areas of interest at once.
type MultiTracker struct {
	cfg        Config
	maxTargets int
	targets    []*Target
}

// DefaultMaxTargets bounds the number of simultaneous targets.
const DefaultMaxTargets = 5

// NewMultiTracker creates a tracker for up to maxTargets areas.
func NewMultiTracker(cfg Config, maxTargets int) *MultiTracker {
	if maxTargets <= 0 {
		maxTargets = DefaultMaxTargets
	}
	return &MultiTracker{cfg: cfg, maxTargets: maxTargets}
}

// Update matches each detection to the target whose box overlaps it most,
// creates targets for the rest while capacity allows, lets unmatched
// targets predict, and drops targets that are no longer active. It returns
// the states of the targets that received a detection, in input order.
func (m *MultiTracker) Update(dets []geometry.Box, width, height int) []State {
	var out []State
	matched := make(map[uuid.UUID]bool, len(m.targets))

	for i := range dets {
		det := dets[i]
		tg := m.bestMatch(det, matched)
		if tg == nil {
			if len(m.targets) >= m.maxTargets {
				continue
			}
			tg = &Target{ID: uuid.New(), tracker: NewTracker(m.cfg)}
			m.targets = append(m.targets, tg)
		}
		matched[tg.ID] = true
		out = append(out, tg.tracker.Update(&det, width, height))
	}

	kept := m.targets[:0]
	for _, tg := range m.targets {
		if !matched[tg.ID] {
			tg.tracker.Update(nil, width, height)
		}
		if tg.tracker.state.Active() {
			kept = append(kept, tg)
		}
	}
	m.targets = kept

	return out
}

func (m *MultiTracker) bestMatch(det geometry.Box, taken map[uuid.UUID]bool) *Target {
	var best *Target
	bestIoU := m.cfg.MatchIoU
	for _, tg := range m.targets {
		if taken[tg.ID] {
			continue
		}
		cur, ok := tg.tracker.Current()
		if !ok {
			continue
		}
		if iou := cur.IoU(det); iou > bestIoU {
			bestIoU = iou
			best = tg
		}
	}
	return best
}

// Targets returns the live targets in creation order.
func (m *MultiTracker) Targets() []*Target {
	return append([]*Target(nil), m.targets...)
}

// Len returns the number of live targets.
func (m *MultiTracker) Len() int { return len(m.targets) }

// Reset drops every target.
func (m *MultiTracker) Reset() { m.targets = nil }
