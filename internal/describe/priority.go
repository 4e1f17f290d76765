package describe

import (
	"sort"
	"strings"

	"github.com/ayusman/abhinaya/internal/movement"
)

// DefaultMaxMovements is the number of movements kept by prioritization.
const DefaultMaxMovements = 3

var bodyPartWeights = map[string]float64{
	"head":        1.2,
	"torso":       1.1,
	"body":        1.1,
	"both_arms":   1.05,
	"left_arm":    1.0,
	"right_arm":   1.0,
	"legs":        1.0,
	"left_elbow":  0.9,
	"right_elbow": 0.9,
	"left_leg":    0.9,
	"right_leg":   0.9,
	"left_knee":   0.8,
	"right_knee":  0.8,
}

// BodyPartWeight returns the salience weight of a body part. Unknown parts
// weigh 1.
func BodyPartWeight(part string) float64 {
	if w, ok := bodyPartWeights[part]; ok {
		return w
	}
	return 1.0
}

// Score ranks a detection by magnitude, confidence and body part salience.
func Score(d movement.Detection) float64 {
	return d.Magnitude * d.Confidence * BodyPartWeight(d.BodyPart)
}

// PrioritizeMovements returns at most maxCount detections ordered by
// descending score. Equal scores keep their input order. A non-positive
// maxCount uses DefaultMaxMovements.
func PrioritizeMovements(detections []movement.Detection, maxCount int) []movement.Detection {
	if maxCount <= 0 {
		maxCount = DefaultMaxMovements
	}

	out := make([]movement.Detection, len(detections))
	copy(out, detections)
	sort.SliceStable(out, func(i, j int) bool {
		return Score(out[i]) > Score(out[j])
	})

	if len(out) > maxCount {
		out = out[:maxCount]
	}
	return out
}

// GenerateSummary joins the descriptors of the top detections into a
// grammatical list.
func GenerateSummary(detections []movement.Detection, maxCount int) string {
	prioritized := PrioritizeMovements(detections, maxCount)
	phrases := make([]string, len(prioritized))
	for i, d := range prioritized {
		phrases[i] = DescriptorFor(d)
	}
	return joinList(phrases)
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return NoMovement
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
