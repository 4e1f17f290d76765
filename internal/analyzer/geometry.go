package analyzer

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
)

// finding is the outcome of a geometric predicate that fired.
type finding struct {
	bodyPart  string
	movement  string
	direction string
	// excess is how far past the threshold the measurement is, as a
	// fraction of the threshold.
	excess float64
}

// predicate evaluates one pose on a single frame.
type predicate func(s *skeleton, threshold float64) (finding, bool)

// GeometryAnalyzer reports a pose recognized on the current frame alone.
type GeometryAnalyzer struct {
	info  Info
	floor float64
	eval  predicate
}

func newGeometryAnalyzer(info Info, floor float64, eval predicate) *GeometryAnalyzer {
	info.Kind = KindGeometry
	return &GeometryAnalyzer{info: info, floor: floor, eval: eval}
}

func (a *GeometryAnalyzer) ID() string              { return a.info.ID }
func (a *GeometryAnalyzer) Info() Info              { return a.info }
func (a *GeometryAnalyzer) Tuning() movement.Tuning { return a.info.Tuning }

// Analyze evaluates the pose predicate on current. The previous frame and
// the movement threshold are not used; the analyzer's own threshold applies.
func (a *GeometryAnalyzer) Analyze(current, _ *pose.Frame, _ float64) ([]movement.Detection, error) {
	if current == nil {
		return nil, nil
	}

	s := &skeleton{frame: current, floor: a.floor}
	f, ok := a.eval(s, a.info.Threshold)
	if !ok {
		return nil, nil
	}

	excess := math.Min(1, math.Max(0, f.excess))
	return []movement.Detection{{
		BodyPart:     f.bodyPart,
		MovementType: f.movement,
		Direction:    f.direction,
		Confidence:   s.visibility() * (0.7 + 0.3*excess),
		Magnitude:    excess,
		Timestamp:    current.Timestamp,
	}}, nil
}

// skeleton gives predicates planar access to usable landmarks and records
// the visibility of everything it hands out.
type skeleton struct {
	frame *pose.Frame
	floor float64
	vis   []float64
}

// points returns the named landmarks projected onto the image plane.
func (s *skeleton) points(names ...string) ([]r3.Vec, bool) {
	out := make([]r3.Vec, len(names))
	for i, name := range names {
		l, ok := s.frame.Usable(name, s.floor)
		if !ok {
			return nil, false
		}
		s.vis = append(s.vis, l.Visibility)
		out[i] = r3.Vec{X: l.X, Y: l.Y}
	}
	return out, true
}

// depths returns the z values of the named landmarks. Every landmark must
// carry depth.
func (s *skeleton) depths(names ...string) ([]float64, bool) {
	out := make([]float64, len(names))
	for i, name := range names {
		l, ok := s.frame.Usable(name, s.floor)
		if !ok || !l.HasDepth() {
			return nil, false
		}
		s.vis = append(s.vis, l.Visibility)
		out[i] = l.Z
	}
	return out, true
}

// torso returns the average shoulder-to-hip distance.
func (s *skeleton) torso() (float64, bool) {
	p, ok := s.points(pose.LeftShoulder, pose.LeftHip, pose.RightShoulder, pose.RightHip)
	if !ok {
		return 0, false
	}
	t := (r3.Norm(r3.Sub(p[0], p[1])) + r3.Norm(r3.Sub(p[2], p[3]))) / 2
	if t < 1e-6 {
		return 0, false
	}
	return t, true
}

// shoulderWidth returns the planar distance between the shoulders.
func (s *skeleton) shoulderWidth() (float64, bool) {
	p, ok := s.points(pose.LeftShoulder, pose.RightShoulder)
	if !ok {
		return 0, false
	}
	w := r3.Norm(r3.Sub(p[0], p[1]))
	if w < 1e-6 {
		return 0, false
	}
	return w, true
}

func (s *skeleton) visibility() float64 {
	if len(s.vis) == 0 {
		return 0
	}
	return stat.Mean(s.vis, nil)
}

// jointAngle returns the angle at b between a and c, in degrees [0,180].
func jointAngle(a, b, c r3.Vec) float64 {
	v1, v2 := r3.Sub(a, b), r3.Sub(c, b)
	signed := math.Atan2(r3.Cross(v1, v2).Z, r3.Dot(v1, v2))
	return math.Abs(signed) * 180 / math.Pi
}

func midpoint(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}

// above returns the fractional excess of value over threshold.
func above(value, threshold float64) (float64, bool) {
	if value <= threshold {
		return 0, false
	}
	if threshold <= 0 {
		return 1, true
	}
	return (value - threshold) / threshold, true
}

// below returns the fractional excess of threshold over value.
func below(value, threshold float64) (float64, bool) {
	if value >= threshold || threshold <= 0 {
		return 0, false
	}
	return (threshold - value) / threshold, true
}

func horizontal(dx float64) string {
	if dx < 0 {
		return DirectionLeft
	}
	return DirectionRight
}
