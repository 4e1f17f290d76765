// Package describe turns stabilized detections into natural-language
// descriptors, a priority order and a one-line summary.
package describe

import (
	"strings"

	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
)

// NoMovement is the summary reported when nothing was detected.
const NoMovement = "No movement detected"

// DefaultHedgeBelow is the confidence below which descriptors are hedged
// with "possibly". It must sit above the detector's confidence threshold to
// ever apply to reported movements.
const DefaultHedgeBelow = 0.6

// verbTemplates holds movement types phrased as "<verb> <body part>".
var verbTemplates = map[string]string{
	"raising":   "raising",
	"lowering":  "lowering",
	"turning":   "turning",
	"tilting":   "tilting",
	"extending": "extending",
	"bending":   "bending",
	"lifting":   "lifting",
	"kicking":   "kicking",
	"rotating":  "rotating",
	"leaning":   "leaning",
	"moving":    "moving",
	"shifting":  "shifting",
}

// poseTemplates holds whole-pose movement types with a fixed phrase.
var poseTemplates = map[string]string{
	"hands_up":     "both hands raised",
	"arms_crossed": "arms crossed",
	"akimbo":       "hands on hips",
	"squat":        "squatting",
	"jumping_jack": "doing a jumping jack",
	"victory":      "victory pose",
}

var directionPhrases = map[string]string{
	"up":       "upward",
	"down":     "downward",
	"left":     "to the left",
	"right":    "to the right",
	"forward":  "forward",
	"backward": "backward",
}

// Humanize replaces underscores with spaces.
func Humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// GenerateDescriptor phrases one movement. The direction suffix comes from
// the dominant axis of delta. Unknown movement types fall back to
// "<type> <body part>".
func GenerateDescriptor(bodyPart, movementType string, delta pose.Point3D, confidence float64) string {
	return phrase(bodyPart, movementType, deltaDirection(delta), confidence, DefaultHedgeBelow)
}

// DescriptorFor phrases a detection, falling back to its reported
// direction when the delta carries none.
func DescriptorFor(d movement.Detection) string {
	return describeDetection(d, DefaultHedgeBelow)
}

func describeDetection(d movement.Detection, hedgeBelow float64) string {
	direction := deltaDirection(d.Delta)
	if direction == "" {
		direction = d.Direction
	}
	return phrase(d.BodyPart, d.MovementType, direction, d.Confidence, hedgeBelow)
}

func phrase(bodyPart, movementType, direction string, confidence, hedgeBelow float64) string {
	var text string
	if p, ok := poseTemplates[movementType]; ok {
		text = p
	} else if verb, ok := verbTemplates[movementType]; ok {
		text = verb + " " + Humanize(bodyPart)
		if suffix, ok := directionPhrases[direction]; ok {
			text += " " + suffix
		}
	} else {
		text = strings.TrimSpace(Humanize(movementType) + " " + Humanize(bodyPart))
	}

	if confidence < hedgeBelow {
		text = "possibly " + text
	}
	return text
}

// deltaDirection names the dominant axis direction of delta.
func deltaDirection(delta pose.Point3D) string {
	switch movement.DominantAxis(delta) {
	case movement.AxisVertical:
		if delta.Y < 0 {
			return "up"
		}
		return "down"
	case movement.AxisHorizontal:
		if delta.X < 0 {
			return "left"
		}
		return "right"
	case movement.AxisDepth:
		if delta.Z > 0 {
			return "forward"
		}
		return "backward"
	}
	return ""
}
