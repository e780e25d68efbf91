package pipeline

import (
	"github.com/google/uuid"

	"barcode-tracker/internal/enhance"
	"barcode-tracker/internal/roi"
	"barcode-tracker/internal/track"
)

// Session is the cross-frame state of one camera session: stabilizer
// tracks, the area of interest, the failure streak and statistics.
type Session struct {
	ID         uuid.UUID
	Stabilizer *track.Stabilizer
	ROI        *roi.Tracker
	Escalator  *enhance.Escalator

	stats *collector
}

// NewSession builds fresh session state from opts.
func NewSession(opts Options) *Session {
	return &Session{
		ID:         uuid.New(),
		Stabilizer: track.NewStabilizer(opts.Stabilizer),
		ROI:        roi.NewTracker(opts.ROI),
		Escalator:  enhance.NewEscalator(opts.Enhance.Escalation),
		stats:      newCollector(opts.LatencyWindow),
	}
}

// configure pushes new options into the components without losing state.
func (s *Session) configure(opts Options) {
	s.Stabilizer.SetConfig(opts.Stabilizer)
	s.ROI.SetConfig(opts.ROI)
	s.Escalator.SetSchedule(opts.Enhance.Escalation)
}
