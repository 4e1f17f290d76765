package movement

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/pose"
)

// Detector defaults.
const (
	DefaultMovementThreshold   = 0.02
	DefaultConfidenceThreshold = 0.5
	DefaultMinVisibleLandmarks = 10
	DefaultVisibilityFloor     = 0.1
)

// Config holds configuration options for the movement detector.
type Config struct {
	// MovementThreshold is the minimum delta magnitude, in normalized
	// coordinate units, passed to every analyzer.
	MovementThreshold float64

	// HistorySize is the number of frames kept in the sliding window.
	HistorySize int

	// ConfidenceThreshold is the centre of the hysteresis band and the
	// minimum smoothed confidence reported.
	ConfidenceThreshold float64

	// MinVisibleLandmarks frames with fewer landmarks visible above
	// VisibilityFloor are skipped.
	MinVisibleLandmarks int
	VisibilityFloor     float64

	// Tuning is the default stabilizer tuning for analyzers without their own.
	Tuning Tuning

	// Parallel runs analyzers concurrently within a frame.
	Parallel bool
}

// DefaultConfig returns a Config with the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MovementThreshold:   DefaultMovementThreshold,
		HistorySize:         DefaultHistorySize,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MinVisibleLandmarks: DefaultMinVisibleLandmarks,
		VisibilityFloor:     DefaultVisibilityFloor,
		Tuning:              DefaultTuning(),
	}
}

type registration struct {
	analyzer Analyzer
	tuning   Tuning
}

// Detector keeps one person's landmark history, fans each frame out to the
// registered analyzers and stabilizes their output. Each tracked person
// needs its own Detector.
type Detector struct {
	config Config
	logger logrus.FieldLogger

	mu         sync.Mutex
	analyzers  []registration
	history    *History
	stabilizer *Stabilizer
}

// NewDetector creates a Detector with no analyzers registered.
func NewDetector(config Config, logger logrus.FieldLogger) *Detector {
	defaults := DefaultConfig()
	if config.MovementThreshold < 0 {
		config.MovementThreshold = defaults.MovementThreshold
	}
	if config.HistorySize < 2 {
		config.HistorySize = defaults.HistorySize
	}
	if config.ConfidenceThreshold <= 0 {
		config.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if config.MinVisibleLandmarks <= 0 {
		config.MinVisibleLandmarks = defaults.MinVisibleLandmarks
	}
	if config.VisibilityFloor <= 0 {
		config.VisibilityFloor = defaults.VisibilityFloor
	}
	config.Tuning = config.Tuning.withDefaults(defaults.Tuning)

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Detector{
		config:     config,
		logger:     logger,
		history:    NewHistory(config.HistorySize),
		stabilizer: NewStabilizer(config.ConfidenceThreshold),
	}
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.config
}

// Register adds an analyzer. An explicit tuning takes precedence over the
// analyzer's own Tuning, which takes precedence over the detector defaults.
func (d *Detector) Register(a Analyzer, tuning ...Tuning) error {
	if a == nil || a.ID() == "" {
		return ErrInvalidAnalyzer
	}

	var t Tuning
	switch {
	case len(tuning) > 0:
		t = tuning[0]
	default:
		if tuned, ok := a.(Tuned); ok {
			t = tuned.Tuning()
		}
	}
	t = t.withDefaults(d.config.Tuning)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range d.analyzers {
		if r.analyzer.ID() == a.ID() {
			return fmt.Errorf("%w: %s", ErrDuplicateAnalyzer, a.ID())
		}
	}
	d.analyzers = append(d.analyzers, registration{analyzer: a, tuning: t})
	return nil
}

// Unregister removes the analyzer with the given ID and its stabilizer state.
func (d *Detector) Unregister(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, r := range d.analyzers {
		if r.analyzer.ID() == id {
			d.analyzers = append(d.analyzers[:i], d.analyzers[i+1:]...)
			d.stabilizer.Forget(id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAnalyzerNotFound, id)
}

// UnregisterAnalyzer removes a previously registered analyzer instance.
func (d *Detector) UnregisterAnalyzer(a Analyzer) error {
	if a == nil {
		return ErrInvalidAnalyzer
	}
	return d.Unregister(a.ID())
}

// Analyzers returns the registered analyzer IDs in registration order.
func (d *Detector) Analyzers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, len(d.analyzers))
	for i, r := range d.analyzers {
		ids[i] = r.analyzer.ID()
	}
	return ids
}

// TuningFor returns the effective tuning of a registered analyzer.
func (d *Detector) TuningFor(id string) (Tuning, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range d.analyzers {
		if r.analyzer.ID() == id {
			return r.tuning, true
		}
	}
	return Tuning{}, false
}

// UpdateHistory appends a frame to the sliding window.
func (d *Detector) UpdateHistory(f *pose.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history.Push(f)
}

// HistoryLen returns the number of frames in the window.
func (d *Detector) HistoryLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.Len()
}

// HistoryFrames returns a copy of the window, oldest first.
func (d *Detector) HistoryFrames() []*pose.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.Frames()
}

// State returns the stabilizer state of a detection key.
func (d *Detector) State(key string) (State, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stabilizer.State(key)
}

// Reset clears the history and every stabilizer state.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history.Clear()
	d.stabilizer.Reset()
}

// DetectMovements runs one frame through the pipeline and returns the
// stable detections. Frames without enough visible landmarks are ignored
// and leave the history untouched; the first frame only seeds the history.
func (d *Detector) DetectMovements(f *pose.Frame) []Detection {
	detections := []Detection{}

	if f == nil || f.Len() == 0 || f.CountVisible(d.config.VisibilityFloor) < d.config.MinVisibleLandmarks {
		return detections
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.history.Push(f)
	if d.history.Len() < 2 {
		return detections
	}

	current, previous := d.history.Latest(), d.history.Previous()
	raw := d.fanOut(current, previous)

	seen := make(map[string]bool)
	for i, r := range d.analyzers {
		id := r.analyzer.ID()
		for _, det := range raw[i] {
			det.AnalyzerID = id
			if det.Timestamp == 0 {
				det.Timestamp = current.Timestamp
			}
			if err := det.validate(); err != nil {
				d.logger.WithField("analyzer", id).Warnf("Dropping malformed detection: %v", err)
				continue
			}

			key := det.Key()
			if seen[key] {
				continue
			}
			seen[key] = true

			confidence, active := d.stabilizer.Update(key, r.tuning, det.Confidence)
			if !active || confidence < d.config.ConfidenceThreshold {
				continue
			}
			det.Confidence = confidence
			detections = append(detections, det)
		}
	}
	d.stabilizer.Sweep(seen)

	return detections
}

// fanOut evaluates every analyzer against the frame pair. Results are
// indexed like d.analyzers and merged only after all analyzers finish.
func (d *Detector) fanOut(current, previous *pose.Frame) [][]Detection {
	raw := make([][]Detection, len(d.analyzers))

	if !d.config.Parallel || len(d.analyzers) < 2 {
		for i, r := range d.analyzers {
			raw[i] = d.safeAnalyze(r.analyzer, current, previous)
		}
		return raw
	}

	var wg sync.WaitGroup
	for i, r := range d.analyzers {
		wg.Add(1)
		go func(i int, a Analyzer) {
			defer wg.Done()
			raw[i] = d.safeAnalyze(a, current, previous)
		}(i, r.analyzer)
	}
	wg.Wait()
	return raw
}

// safeAnalyze isolates analyzer faults: errors and panics are logged and
// produce no detections.
func (d *Detector) safeAnalyze(a Analyzer, current, previous *pose.Frame) (detections []Detection) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithField("analyzer", a.ID()).Warnf("Analyzer panicked: %v", r)
			detections = nil
		}
	}()

	var err error
	detections, err = a.Analyze(current, previous, d.config.MovementThreshold)
	if err != nil {
		d.logger.WithField("analyzer", a.ID()).Warnf("Analyzer failed: %v", err)
		return nil
	}
	return detections
}
