package movement

import (
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Stabilizer defaults.
const (
	DefaultHysteresisMargin = 0.1
	DefaultDebounceFrames   = 10
	DefaultSmoothingFrames  = 3
)

// Tuning holds per-analyzer stabilizer parameters. Zero fields fall back
// to the detector-wide defaults.
type Tuning struct {
	Margin          float64 `json:"margin,omitempty"`
	DebounceFrames  int     `json:"debounce_frames,omitempty"`
	SmoothingFrames int     `json:"smoothing_frames,omitempty"`
}

// DefaultTuning returns the stock hysteresis and debounce parameters.
func DefaultTuning() Tuning {
	return Tuning{
		Margin:          DefaultHysteresisMargin,
		DebounceFrames:  DefaultDebounceFrames,
		SmoothingFrames: DefaultSmoothingFrames,
	}
}

// withDefaults fills zero fields of t from defaults.
func (t Tuning) withDefaults(defaults Tuning) Tuning {
	if t.Margin <= 0 {
		t.Margin = defaults.Margin
	}
	if t.DebounceFrames <= 0 {
		t.DebounceFrames = defaults.DebounceFrames
	}
	if t.SmoothingFrames <= 0 {
		t.SmoothingFrames = defaults.SmoothingFrames
	}
	return t
}

// State is the hysteresis state of one detection key.
type State struct {
	Active     bool
	FrameCount int
}

type stabilizerEntry struct {
	State
	tuning      Tuning
	confidences []float64
}

// Stabilizer applies hysteresis, debounce and confidence smoothing to raw
// detections. It is not safe for concurrent use.
type Stabilizer struct {
	threshold float64
	states    map[string]*stabilizerEntry
}

// NewStabilizer creates a Stabilizer centred on the given confidence threshold.
func NewStabilizer(threshold float64) *Stabilizer {
	return &Stabilizer{
		threshold: threshold,
		states:    make(map[string]*stabilizerEntry),
	}
}

// Update feeds one raw confidence for key and returns the smoothed
// confidence and whether the key is active after this frame.
//
// Inactive keys need DebounceFrames consecutive frames at or above
// threshold+margin to activate. Active keys lose two counts per frame below
// threshold-margin and deactivate at zero; confirming frames saturate the
// count at DebounceFrames.
func (s *Stabilizer) Update(key string, tuning Tuning, confidence float64) (float64, bool) {
	e, ok := s.states[key]
	if !ok {
		e = &stabilizerEntry{tuning: tuning}
		s.states[key] = e
	}
	e.tuning = tuning

	enter := s.threshold + tuning.Margin
	exit := s.threshold - tuning.Margin

	if !e.Active {
		if confidence >= enter {
			e.FrameCount++
			if e.FrameCount >= tuning.DebounceFrames {
				e.Active = true
				e.FrameCount = tuning.DebounceFrames
			}
		} else {
			e.FrameCount = 0
		}
	} else {
		if confidence < exit {
			e.FrameCount -= 2
			if e.FrameCount <= 0 {
				e.FrameCount = 0
				e.Active = false
			}
		} else if e.FrameCount < tuning.DebounceFrames {
			e.FrameCount++
		}
	}

	e.confidences = append(e.confidences, confidence)
	if n := len(e.confidences) - tuning.SmoothingFrames; n > 0 {
		e.confidences = e.confidences[n:]
	}

	if !e.Active {
		if e.FrameCount == 0 {
			e.confidences = e.confidences[:0]
		}
		return 0, false
	}
	return stat.Mean(e.confidences, nil), true
}

// Sweep records a miss for every known key absent from seen and forgets
// keys that have fully decayed.
func (s *Stabilizer) Sweep(seen map[string]bool) {
	for key, e := range s.states {
		if seen[key] {
			continue
		}
		s.Update(key, e.tuning, 0)
		if !e.Active && e.FrameCount == 0 {
			delete(s.states, key)
		}
	}
}

// State returns the hysteresis state for key.
func (s *Stabilizer) State(key string) (State, bool) {
	e, ok := s.states[key]
	if !ok {
		return State{}, false
	}
	return e.State, true
}

// Len returns the number of tracked keys.
func (s *Stabilizer) Len() int {
	return len(s.states)
}

// Forget drops every key that belongs to the given analyzer.
func (s *Stabilizer) Forget(analyzerID string) {
	prefix := analyzerID + "/"
	for key := range s.states {
		if strings.HasPrefix(key, prefix) {
			delete(s.states, key)
		}
	}
}

// Reset drops all state.
func (s *Stabilizer) Reset() {
	s.states = make(map[string]*stabilizerEntry)
}
