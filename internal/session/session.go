// Package session holds the processing context of one tracked person: its
// own movement detector, describer and payload construction.
package session

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/analyzer"
	"github.com/ayusman/abhinaya/internal/depth"
	"github.com/ayusman/abhinaya/internal/describe"
	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
)

// Config holds configuration options for a session.
type Config struct {
	Movement     movement.Config
	Analyzers    analyzer.Options
	Mirrored     bool
	MaxMovements int
	HedgeBelow   float64

	// Settings overrides catalog analyzers by ID.
	Settings map[string]AnalyzerSetting
}

// AnalyzerSetting enables or retunes one catalog analyzer. Zero tuning
// fields and a zero Threshold keep the analyzer's own defaults.
type AnalyzerSetting struct {
	Enabled   bool
	Tuning    movement.Tuning
	Threshold float64
}

// Keypoint is the wire form of a landmark. Z is omitted when the provider
// supplied no depth.
type Keypoint struct {
	Name        string   `json:"name"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Z           *float64 `json:"z,omitempty"`
	ZNormalized float64  `json:"z_normalized"`
	Visibility  float64  `json:"visibility"`
}

// Result is the per-frame payload for one person.
type Result struct {
	SessionID       string              `json:"session_id"`
	Detected        bool                `json:"detected"`
	Timestamp       int64               `json:"timestamp"`
	Keypoints       []Keypoint          `json:"keypoints"`
	Movements       []describe.Movement `json:"movements"`
	PrimaryMovement *describe.Movement  `json:"primary_movement"`
	Summary         string              `json:"summary"`

	// Activated lists movements that became active this frame.
	Activated []describe.Movement `json:"-"`
}

// Session is one person's processing context. It is safe for concurrent
// use; frames must still be processed in order.
type Session struct {
	id      string
	started time.Time
	config  Config
	logger  logrus.FieldLogger

	detector *movement.Detector

	mu        sync.Mutex
	describer describe.Describer
	active    map[string]bool
}

// New creates a session with the selected catalog analyzers registered.
func New(config Config, logger logrus.FieldLogger) (*Session, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	id := uuid.NewString()
	logger = logger.WithField("session", id)

	s := &Session{
		id:       id,
		started:  time.Now(),
		config:   config,
		logger:   logger,
		detector: movement.NewDetector(config.Movement, logger),
		describer: describe.Describer{
			Mirrored:     config.Mirrored,
			MaxMovements: config.MaxMovements,
			HedgeBelow:   config.HedgeBelow,
		},
		active: make(map[string]bool),
	}

	opts := config.Analyzers
	opts.Thresholds = make(map[string]float64, len(config.Settings))
	for id, setting := range config.Settings {
		if setting.Threshold > 0 {
			opts.Thresholds[id] = setting.Threshold
		}
	}

	for _, a := range analyzer.Catalog(opts) {
		setting, ok := config.Settings[a.ID()]
		if ok && !setting.Enabled {
			continue
		}
		if err := s.detector.Register(a, mergeTuning(a.Tuning(), setting.Tuning)); err != nil {
			return nil, fmt.Errorf("register %s: %w", a.ID(), err)
		}
	}

	logger.WithField("analyzers", len(s.detector.Analyzers())).Info("Session started")
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Started returns when the session was created.
func (s *Session) Started() time.Time {
	return s.started
}

// Detector returns the session's movement detector.
func (s *Session) Detector() *movement.Detector {
	return s.detector
}

// Mirrored reports whether labels are swapped for a selfie view.
func (s *Session) Mirrored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.describer.Mirrored
}

// SetMirrored changes the display transform for subsequent frames.
func (s *Session) SetMirrored(mirrored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.describer.Mirrored = mirrored
}

// Configure enables, disables or retunes one catalog analyzer. Its
// stabilizer state starts over.
func (s *Session) Configure(id string, setting AnalyzerSetting) error {
	opts := s.config.Analyzers
	opts.Thresholds = map[string]float64{id: setting.Threshold}
	a, ok := analyzer.Lookup(id, opts)
	if !ok {
		return fmt.Errorf("%w: %s", movement.ErrAnalyzerNotFound, id)
	}

	if err := s.detector.Unregister(id); err != nil {
		s.logger.WithField("analyzer", id).Debug("Analyzer was not registered")
	}
	if !setting.Enabled {
		return nil
	}
	return s.detector.Register(a, mergeTuning(a.Tuning(), setting.Tuning))
}

// Process runs one frame of the given person through the pipeline. A nil
// person, or one without enough visible landmarks, yields an undetected
// result.
func (s *Session) Process(person *pose.Person, timestamp int64) Result {
	res := Result{
		SessionID: s.id,
		Timestamp: timestamp,
		Keypoints: []Keypoint{},
		Movements: []describe.Movement{},
		Summary:   describe.NoMovement,
	}
	if person == nil || person.Keypoints.Len() == 0 {
		return res
	}

	frame := person.Keypoints
	cfg := s.detector.Config()
	if frame.CountVisible(cfg.VisibilityFloor) < cfg.MinVisibleLandmarks {
		return res
	}

	depth.Normalize(frame)
	detections := s.detector.DetectMovements(frame)

	s.mu.Lock()
	out := s.describer.Describe(detections)
	activated := s.activations(detections)
	s.mu.Unlock()

	res.Detected = true
	res.Keypoints = keypoints(frame)
	res.Movements = out.Movements
	res.PrimaryMovement = out.Primary
	res.Summary = out.Summary
	res.Activated = activated

	if len(activated) > 0 {
		s.logger.WithField("count", len(activated)).Debug("Movements activated")
	}
	return res
}

// Reset clears the history and every stabilizer state.
func (s *Session) Reset() {
	s.detector.Reset()

	s.mu.Lock()
	s.active = make(map[string]bool)
	s.mu.Unlock()
}

// activations returns the detections whose key was not active last frame.
// Callers hold s.mu.
func (s *Session) activations(detections []movement.Detection) []describe.Movement {
	var out []describe.Movement
	current := make(map[string]bool, len(detections))
	for _, d := range detections {
		key := d.Key()
		current[key] = true
		if !s.active[key] {
			shown := s.describer.Display(d)
			out = append(out, describe.Movement{Detection: shown, Descriptor: s.describer.Descriptor(shown)})
		}
	}
	s.active = current
	return out
}

func keypoints(f *pose.Frame) []Keypoint {
	out := make([]Keypoint, len(f.Landmarks))
	for i, l := range f.Landmarks {
		kp := Keypoint{
			Name:        l.Name,
			X:           l.X,
			Y:           l.Y,
			ZNormalized: l.ZNormalized,
			Visibility:  l.Visibility,
		}
		if l.HasDepth() && !math.IsNaN(l.Z) {
			z := l.Z
			kp.Z = &z
		}
		out[i] = kp
	}
	return out
}

// mergeTuning overlays the non-zero fields of override on base.
func mergeTuning(base, override movement.Tuning) movement.Tuning {
	if override.Margin > 0 {
		base.Margin = override.Margin
	}
	if override.DebounceFrames > 0 {
		base.DebounceFrames = override.DebounceFrames
	}
	if override.SmoothingFrames > 0 {
		base.SmoothingFrames = override.SmoothingFrames
	}
	return base
}
