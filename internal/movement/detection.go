// Package movement turns per-frame body landmarks into stable, confidence
// scored movement detections. It owns the landmark history, fans frames out
// to registered analyzers and debounces their raw output.
package movement

import (
	"fmt"
	"math"

	"github.com/ayusman/abhinaya/internal/pose"
)

// Axis names the dominant axis of a delta vector.
type Axis string

const (
	AxisNone       Axis = ""
	AxisVertical   Axis = "vertical"
	AxisHorizontal Axis = "horizontal"
	AxisDepth      Axis = "depth"
)

// Detection is a single movement or pose observation for one frame.
type Detection struct {
	AnalyzerID   string       `json:"-"`
	BodyPart     string       `json:"bodyPart"`
	MovementType string       `json:"movementType"`
	Direction    string       `json:"direction,omitempty"`
	Confidence   float64      `json:"confidence"`
	Delta        pose.Point3D `json:"delta"`
	Magnitude    float64      `json:"magnitude"`
	Timestamp    int64        `json:"timestamp"`
}

// Key identifies the stabilizer state that a detection feeds.
func (d Detection) Key() string {
	return d.AnalyzerID + "/" + d.BodyPart + "/" + d.MovementType
}

// validate rejects malformed analyzer output.
func (d Detection) validate() error {
	if d.MovementType == "" {
		return fmt.Errorf("missing movement type")
	}
	if d.BodyPart == "" {
		return fmt.Errorf("missing body part")
	}
	if math.IsNaN(d.Confidence) || math.IsInf(d.Confidence, 0) {
		return fmt.Errorf("non-numeric confidence")
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [0,1]", d.Confidence)
	}
	if math.IsNaN(d.Magnitude) || d.Magnitude < 0 {
		return fmt.Errorf("invalid magnitude %v", d.Magnitude)
	}
	return nil
}

// DominantAxis classifies a delta by its largest absolute component.
// Ties prefer vertical, then horizontal, then depth.
func DominantAxis(delta pose.Point3D) Axis {
	ax, ay, az := math.Abs(delta.X), math.Abs(delta.Y), math.Abs(delta.Z)
	switch {
	case ax == 0 && ay == 0 && az == 0:
		return AxisNone
	case ay >= ax && ay >= az:
		return AxisVertical
	case ax >= az:
		return AxisHorizontal
	default:
		return AxisDepth
	}
}
