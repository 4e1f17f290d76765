package describe

import (
	"strings"

	"github.com/ayusman/abhinaya/internal/movement"
)

// Movement is a stabilized detection with its display descriptor.
type Movement struct {
	movement.Detection
	Descriptor string `json:"descriptor"`
}

// Describer applies the display transform to detections and phrases them.
//
// Analyzers always report anatomical body parts and source image
// directions. When Mirrored is set the video is shown as a selfie view, so
// every left/right label and the horizontal delta are swapped here and
// nowhere else.
type Describer struct {
	Mirrored     bool
	MaxMovements int
	// HedgeBelow overrides DefaultHedgeBelow when positive. A negative
	// value turns hedging off.
	HedgeBelow float64
}

// Output is the described form of one frame's detections.
type Output struct {
	Movements []Movement
	Primary   *Movement
	Summary   string
}

// Describe prioritizes detections and phrases them for display.
// Movements is never nil.
func (d Describer) Describe(detections []movement.Detection) Output {
	limit := d.MaxMovements
	if limit <= 0 {
		limit = DefaultMaxMovements
	}

	shown := make([]movement.Detection, len(detections))
	for i, det := range detections {
		shown[i] = d.Display(det)
	}
	prioritized := PrioritizeMovements(shown, limit)

	out := Output{Movements: make([]Movement, len(prioritized))}
	phrases := make([]string, len(prioritized))
	for i, det := range prioritized {
		phrases[i] = d.Descriptor(det)
		out.Movements[i] = Movement{Detection: det, Descriptor: phrases[i]}
	}
	if len(out.Movements) > 0 {
		primary := out.Movements[0]
		out.Primary = &primary
	}
	out.Summary = joinList(phrases)
	return out
}

// Descriptor phrases a detection that already went through Display.
func (d Describer) Descriptor(det movement.Detection) string {
	hedge := d.HedgeBelow
	if hedge == 0 {
		hedge = DefaultHedgeBelow
	}
	return describeDetection(det, hedge)
}

// Display applies the mirrored display transform to one detection.
func (d Describer) Display(det movement.Detection) movement.Detection {
	if !d.Mirrored {
		return det
	}
	det.BodyPart = SwapSides(det.BodyPart)
	det.Direction = SwapSides(det.Direction)
	det.Delta.X = -det.Delta.X
	return det
}

// SwapSides exchanges every "left" and "right" token in an underscore
// separated label.
func SwapSides(label string) string {
	parts := strings.Split(label, "_")
	for i, p := range parts {
		switch p {
		case "left":
			parts[i] = "right"
		case "right":
			parts[i] = "left"
		}
	}
	return strings.Join(parts, "_")
}
