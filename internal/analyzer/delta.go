package analyzer

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
)

// MagnitudeCeiling is the delta magnitude above which motion no longer
// raises a delta detection's confidence.
const MagnitudeCeiling = 0.1

// Verbs names the movement type reported for each delta direction.
type Verbs struct {
	Up, Down, Side, Depth string
}

// DeltaAnalyzer reports frame-to-frame motion of a body part, measured as
// the displacement of the mean position of its landmarks.
type DeltaAnalyzer struct {
	info      Info
	bodyPart  string
	landmarks []string
	verbs     Verbs
	floor     float64
}

// NewDeltaAnalyzer creates a delta analyzer for the given landmarks.
func NewDeltaAnalyzer(info Info, bodyPart string, landmarks []string, verbs Verbs, floor float64) *DeltaAnalyzer {
	info.Kind = KindDelta
	return &DeltaAnalyzer{
		info:      info,
		bodyPart:  bodyPart,
		landmarks: landmarks,
		verbs:     verbs,
		floor:     floor,
	}
}

func (a *DeltaAnalyzer) ID() string              { return a.info.ID }
func (a *DeltaAnalyzer) Info() Info              { return a.info }
func (a *DeltaAnalyzer) Tuning() movement.Tuning { return a.info.Tuning }

// Analyze compares the current frame against the previous one. Motion at or
// below threshold is ignored; larger thresholds never add detections. A
// threshold set on the analyzer's Info takes the place of the argument.
func (a *DeltaAnalyzer) Analyze(current, previous *pose.Frame, threshold float64) ([]movement.Detection, error) {
	if current == nil || previous == nil {
		return nil, nil
	}
	if a.info.Threshold > 0 {
		threshold = a.info.Threshold
	}

	var cur, prev r3.Vec
	var visibility float64
	withDepth := true
	for _, name := range a.landmarks {
		c, ok := current.Usable(name, a.floor)
		if !ok {
			return nil, nil
		}
		p, ok := previous.Usable(name, a.floor)
		if !ok {
			return nil, nil
		}
		if !c.HasDepth() || !p.HasDepth() {
			withDepth = false
		}
		cur = r3.Add(cur, c.Point().Vec())
		prev = r3.Add(prev, p.Point().Vec())
		visibility += c.Visibility
	}

	n := float64(len(a.landmarks))
	delta := r3.Scale(1/n, r3.Sub(cur, prev))
	if !withDepth {
		delta.Z = 0
	}
	magnitude := r3.Norm(delta)
	if magnitude <= threshold {
		return nil, nil
	}

	movementType, direction := a.classify(pose.PointFromVec(delta))
	if movementType == "" {
		return nil, nil
	}

	confidence := (visibility / n) * (0.6 + 0.4*math.Min(1, magnitude/MagnitudeCeiling))

	return []movement.Detection{{
		BodyPart:     a.bodyPart,
		MovementType: movementType,
		Direction:    direction,
		Confidence:   math.Min(1, confidence),
		Delta:        pose.PointFromVec(delta),
		Magnitude:    magnitude,
		Timestamp:    current.Timestamp,
	}}, nil
}

// classify maps the dominant axis of delta to a movement type and a
// direction in source image terms.
func (a *DeltaAnalyzer) classify(delta pose.Point3D) (string, string) {
	switch movement.DominantAxis(delta) {
	case movement.AxisVertical:
		if delta.Y < 0 {
			return a.verbs.Up, DirectionUp
		}
		return a.verbs.Down, DirectionDown
	case movement.AxisHorizontal:
		if delta.X < 0 {
			return a.verbs.Side, DirectionLeft
		}
		return a.verbs.Side, DirectionRight
	case movement.AxisDepth:
		if delta.Z > 0 {
			return a.verbs.Depth, DirectionForward
		}
		return a.verbs.Depth, DirectionBackward
	}
	return "", ""
}
