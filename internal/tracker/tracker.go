// Package tracker keeps a single selected person locked across frames when
// the landmark provider reports several people without stable identities.
package tracker

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/abhinaya/internal/pose"
)

// Mode is the tracker state reported with every update.
type Mode string

const (
	ModeSelection   Mode = "selection"
	ModeTracking    Mode = "tracking"
	ModeNoDetection Mode = "no_detection"
)

// Tracker defaults.
const (
	DefaultMaxNumPersons     = 4
	DefaultTrackingThreshold = 0.2
	DefaultBoxPadding        = 0.05
	DefaultVisibilityFloor   = 0.1
)

// Config holds configuration options for the tracker.
type Config struct {
	MaxNumPersons     int
	TrackingThreshold float64
	BoxPadding        float64
	VisibilityFloor   float64
}

// DefaultConfig returns the stock tracker configuration.
func DefaultConfig() Config {
	return Config{
		MaxNumPersons:     DefaultMaxNumPersons,
		TrackingThreshold: DefaultTrackingThreshold,
		BoxPadding:        DefaultBoxPadding,
		VisibilityFloor:   DefaultVisibilityFloor,
	}
}

// Point is a normalized image position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Box is an axis-aligned bounding box in normalized coordinates.
type Box struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Contains reports whether p lies inside the box, edges included.
func (b Box) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Candidate is one selectable person in the current frame.
type Candidate struct {
	Index       int   `json:"index"`
	Centroid    Point `json:"centroid"`
	BoundingBox Box   `json:"boundingBox"`
}

// Target is the locked person.
type Target struct {
	Index         int         `json:"index"`
	Centroid      Point       `json:"centroid"`
	BoundingBox   Box         `json:"boundingBox"`
	LastKeypoints *pose.Frame `json:"-"`
}

// Update is the tracker outcome for one frame.
type Update struct {
	Mode       Mode        `json:"mode"`
	Candidates []Candidate `json:"candidates"`
	Target     *Target     `json:"target,omitempty"`
	// Distance is how far the target centroid moved this frame.
	Distance float64 `json:"distance,omitempty"`
	// MayBeLost is set when the nearest person was farther than the
	// tracking threshold. The lock still follows it.
	MayBeLost bool `json:"mayBeLost,omitempty"`
}

// Tracker locks onto one person by click and follows them by nearest
// centroid. It is safe for concurrent use.
type Tracker struct {
	config Config
	logger logrus.FieldLogger

	mu         sync.Mutex
	mode       Mode
	candidates []Candidate
	target     *Target
	last       Update
}

// New creates a Tracker in selection mode.
func New(config Config, logger logrus.FieldLogger) *Tracker {
	defaults := DefaultConfig()
	if config.MaxNumPersons <= 0 {
		config.MaxNumPersons = defaults.MaxNumPersons
	}
	if config.TrackingThreshold <= 0 {
		config.TrackingThreshold = defaults.TrackingThreshold
	}
	if config.BoxPadding < 0 {
		config.BoxPadding = defaults.BoxPadding
	}
	if config.VisibilityFloor <= 0 {
		config.VisibilityFloor = defaults.VisibilityFloor
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Tracker{
		config: config,
		logger: logger,
		mode:   ModeSelection,
		last:   Update{Mode: ModeSelection},
	}
}

// Update processes the persons detected in one frame.
func (t *Tracker) Update(persons []*pose.Frame) Update {
	if len(persons) > t.config.MaxNumPersons {
		persons = persons[:t.config.MaxNumPersons]
	}

	candidates := make([]Candidate, 0, len(persons))
	for i, f := range persons {
		c, ok := t.candidate(i, f)
		if ok {
			candidates = append(candidates, c)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.candidates = candidates
	u := Update{Candidates: candidates}

	switch {
	case len(candidates) == 0:
		// Keep the lock through dropouts.
		t.mode = ModeNoDetection
	case t.target == nil:
		t.mode = ModeSelection
	default:
		t.mode = ModeTracking
		best, dist := nearest(candidates, t.target.Centroid)
		t.target = &Target{
			Index:         best.Index,
			Centroid:      best.Centroid,
			BoundingBox:   best.BoundingBox,
			LastKeypoints: persons[best.Index],
		}
		u.Distance = dist
		if dist > t.config.TrackingThreshold {
			u.MayBeLost = true
			t.logger.WithFields(logrus.Fields{
				"distance": dist,
				"index":    best.Index,
			}).Warn("Tracked person may be lost")
		}
	}

	u.Mode = t.mode
	u.Target = t.targetCopy()
	t.last = u
	return u
}

// Select locks the first candidate whose bounding box contains (x, y).
// It reports the selected index, or false when nothing was hit.
func (t *Tracker) Select(x, y float64) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := Point{X: x, Y: y}
	for _, c := range t.candidates {
		if c.BoundingBox.Contains(p) {
			var keypoints *pose.Frame
			if t.target != nil && t.target.Index == c.Index {
				keypoints = t.target.LastKeypoints
			}
			t.target = &Target{Index: c.Index, Centroid: c.Centroid, BoundingBox: c.BoundingBox, LastKeypoints: keypoints}
			t.mode = ModeTracking
			t.last.Mode = t.mode
			t.last.Target = t.targetCopy()
			t.logger.WithField("index", c.Index).Info("Person locked")
			return c.Index, true
		}
	}
	return -1, false
}

// Reset clears the lock and returns to selection mode.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.target = nil
	t.mode = ModeSelection
	t.last = Update{Mode: ModeSelection, Candidates: t.candidates}
	t.logger.Info("Tracking reset")
}

// Target returns the locked target, if any.
func (t *Tracker) Target() (Target, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.target == nil {
		return Target{}, false
	}
	return *t.target, true
}

// Mode returns the current mode.
func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Last returns the most recent update.
func (t *Tracker) Last() Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Tracker) targetCopy() *Target {
	if t.target == nil {
		return nil
	}
	c := *t.target
	return &c
}

func (t *Tracker) candidate(index int, f *pose.Frame) (Candidate, bool) {
	centroid, ok := Centroid(f, t.config.VisibilityFloor)
	if !ok {
		return Candidate{}, false
	}
	box, ok := BoundingBox(f, t.config.VisibilityFloor, t.config.BoxPadding)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{Index: index, Centroid: centroid, BoundingBox: box}, true
}

func nearest(candidates []Candidate, from Point) (Candidate, float64) {
	best, bestDist := candidates[0], math.Inf(1)
	for _, c := range candidates {
		if d := c.Centroid.Distance(from); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

var coreLandmarks = []string{pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip}

// Centroid returns the mean position of the usable shoulders and hips,
// falling back to every usable landmark when none of those are visible.
func Centroid(f *pose.Frame, floor float64) (Point, bool) {
	var xs, ys []float64
	for _, name := range coreLandmarks {
		if l, ok := f.Usable(name, floor); ok {
			xs = append(xs, l.X)
			ys = append(ys, l.Y)
		}
	}
	if len(xs) == 0 && f != nil {
		for _, l := range f.Landmarks {
			if l.Usable(floor) {
				xs = append(xs, l.X)
				ys = append(ys, l.Y)
			}
		}
	}
	if len(xs) == 0 {
		return Point{}, false
	}
	return Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}, true
}

// BoundingBox returns the box around the usable landmarks, grown by padding
// on every side and clamped to the frame.
func BoundingBox(f *pose.Frame, floor, padding float64) (Box, bool) {
	if f == nil {
		return Box{}, false
	}
	b := Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	found := false
	for _, l := range f.Landmarks {
		if !l.Usable(floor) {
			continue
		}
		found = true
		b.MinX = math.Min(b.MinX, l.X)
		b.MinY = math.Min(b.MinY, l.Y)
		b.MaxX = math.Max(b.MaxX, l.X)
		b.MaxY = math.Max(b.MaxY, l.Y)
	}
	if !found {
		return Box{}, false
	}
	return Box{
		MinX: clamp01(b.MinX - padding),
		MinY: clamp01(b.MinY - padding),
		MaxX: clamp01(b.MaxX + padding),
		MaxY: clamp01(b.MaxY + padding),
	}, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
