package pipeline

import "barcode-tracker/internal/enhance"

// Strategy names the processing path chosen for a frame.
type Strategy int

const (
	// StrategyFast skips all enhancement.
	StrategyFast Strategy = iota
	// StrategyEnhanced narrows the search and adds contrast work.
	StrategyEnhanced
	// StrategyFull runs every enabled enhancement plus rotation correction.
	StrategyFull
	// StrategyMultiScale is StrategyFull with additional rescaled crops.
	StrategyMultiScale
)

func (s Strategy) String() string {
	switch s {
	case StrategyFast:
		return "FAST"
	case StrategyEnhanced:
		return "ENHANCED"
	case StrategyFull:
		return "FULL_PIPELINE"
	case StrategyMultiScale:
		return "MULTI_SCALE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the strategy by name.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StrategyFor maps an escalation level to a strategy.
func StrategyFor(level enhance.Level, multiScale bool) Strategy {
	switch level {
	case enhance.LevelCrop, enhance.LevelContrast:
		return StrategyEnhanced
	case enhance.LevelFull:
		if multiScale {
			return StrategyMultiScale
		}
		return StrategyFull
	default:
		return StrategyFast
	}
}
