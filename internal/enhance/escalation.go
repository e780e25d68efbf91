package enhance

// Level is the ordinal enhancement intensity.
type Level int

const (
	LevelNone Level = iota
	LevelCrop
	LevelContrast
	LevelFull
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "NONE"
	case LevelCrop:
		return "CROP"
	case LevelContrast:
		return "CONTRAST"
	case LevelFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// Escalation holds the consecutive-failure counts at which each level starts.
type Escalation struct {
	Crop     int `json:"crop"`
	Contrast int `json:"contrast"`
	Full     int `json:"full"`
}

// DefaultEscalation returns the 5/10/20 schedule.
func DefaultEscalation() Escalation {
	return Escalation{Crop: 5, Contrast: 10, Full: 20}
}

// LevelFor maps a failure count to a level. It is monotonic in failures as
// long as Crop <= Contrast <= Full.
func (e Escalation) LevelFor(failures int) Level {
	switch {
	case failures >= e.Full:
		return LevelFull
	case failures >= e.Contrast:
		return LevelContrast
	case failures >= e.Crop:
		return LevelCrop
	default:
		return LevelNone
	}
}

// EscalationState is the escalation state machine's value.
type EscalationState struct {
	Failures int
	Level    Level
}

// Next is the pure transition: success resets to zero, failure increments.
func (e Escalation) Next(s EscalationState, success bool) EscalationState {
	if success {
		return EscalationState{}
	}
	failures := s.Failures + 1
	return EscalationState{Failures: failures, Level: e.LevelFor(failures)}
}

// Escalator tracks the failure streak for one session. It is not safe for
// concurrent use.
type Escalator struct {
	schedule Escalation
	state    EscalationState
}

// NewEscalator creates an escalator at LevelNone.
func NewEscalator(schedule Escalation) *Escalator {
	return &Escalator{schedule: schedule}
}

// Record feeds one scan outcome and returns the new level.
func (e *Escalator) Record(success bool) Level {
	e.state = e.schedule.Next(e.state, success)
	return e.state.Level
}

// State returns the current state.
func (e *Escalator) State() EscalationState {
	return e.state
}

// Level returns the current level.
func (e *Escalator) Level() Level {
	return e.state.Level
}

// SetSchedule swaps thresholds and re-derives the level for the current streak.
func (e *Escalator) SetSchedule(schedule Escalation) {
	e.schedule = schedule
	e.state.Level = schedule.LevelFor(e.state.Failures)
}

// Reset clears the failure streak.
func (e *Escalator) Reset() {
	e.state = EscalationState{}
}
