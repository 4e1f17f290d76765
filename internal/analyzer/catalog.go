// Package analyzer holds the catalog of movement and pose analyzers.
//
// Two families exist. Delta analyzers compare a body part between the
// current and previous frame and need history. Geometry analyzers evaluate
// a predicate on the current frame only. Both report anatomical body parts
// and directions in source image terms; mirroring for display happens in
// the describe package.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
)

// Kind is an analyzer family.
type Kind string

const (
	KindDelta    Kind = "delta"
	KindGeometry Kind = "geometry"
)

// Directions in source image terms.
const (
	DirectionUp       = "up"
	DirectionDown     = "down"
	DirectionLeft     = "left"
	DirectionRight    = "right"
	DirectionForward  = "forward"
	DirectionBackward = "backward"
)

// Categories group analyzers for display.
const (
	CategoryMotion = "motion"
	CategoryHead   = "head"
	CategoryArms   = "arms"
	CategoryLegs   = "legs"
	CategoryTorso  = "torso"
	CategoryPose   = "pose"
)

// DefaultVisibilityFloor is the minimum landmark visibility analyzers use.
const DefaultVisibilityFloor = 0.1

// Info describes a catalog entry.
type Info struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Icon        string          `json:"icon"`
	Category    string          `json:"category"`
	Kind        Kind            `json:"kind"`
	Threshold   float64         `json:"threshold,omitempty"`
	Tuning      movement.Tuning `json:"tuning"`
}

// Analyzer is a catalog analyzer. It carries its own metadata and
// stabilizer tuning.
type Analyzer interface {
	movement.Analyzer
	movement.Tuned
	Info() Info
}

// Options selects and configures catalog analyzers.
type Options struct {
	// Families limits the catalog to the given kinds. Empty means all.
	Families []Kind
	// VisibilityFloor is the minimum visibility of a usable landmark.
	VisibilityFloor float64
	// Thresholds replaces catalog thresholds by analyzer ID. On a delta
	// analyzer it replaces the detector's movement threshold.
	Thresholds map[string]float64
}

func (o Options) floor() float64 {
	if o.VisibilityFloor <= 0 {
		return DefaultVisibilityFloor
	}
	return o.VisibilityFloor
}

func (o Options) info(info Info) Info {
	if t, ok := o.Thresholds[info.ID]; ok && t > 0 {
		info.Threshold = t
	}
	return info
}

// occlusionProne is the tightened tuning for combined two-hand poses that
// flicker when one wrist is briefly occluded.
var occlusionProne = movement.Tuning{Margin: 0.05, DebounceFrames: 4}

type entry struct {
	info  Info
	build func(info Info, floor float64) Analyzer
}

func delta(part string, landmarks []string, verbs Verbs) func(Info, float64) Analyzer {
	return func(info Info, floor float64) Analyzer {
		return NewDeltaAnalyzer(info, part, landmarks, verbs, floor)
	}
}

func geometry(p predicate) func(Info, float64) Analyzer {
	return func(info Info, floor float64) Analyzer {
		return newGeometryAnalyzer(info, floor, p)
	}
}

func sided(prefix, name, icon, category string, threshold float64, fn func(limb) predicate) []entry {
	out := make([]entry, 0, 2)
	for _, l := range []limb{leftLimb, rightLimb} {
		out = append(out, entry{
			info: Info{
				ID:          fmt.Sprintf("%s_%s", prefix, l.side),
				DisplayName: fmt.Sprintf(name, title(l.side)),
				Icon:        icon,
				Category:    category,
				Kind:        KindGeometry,
				Threshold:   threshold,
			},
			build: geometry(fn(l)),
		})
	}
	return out
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var armVerbs = Verbs{Up: "raising", Down: "lowering", Side: "moving", Depth: "extending"}
var legVerbs = Verbs{Up: "lifting", Down: "lowering", Side: "kicking", Depth: "kicking"}

func catalog() []entry {
	entries := []entry{
		{Info{ID: "head_motion", DisplayName: "Head Movement", Icon: "🙂", Category: CategoryMotion, Kind: KindDelta},
			delta("head", []string{pose.Nose}, Verbs{Up: "raising", Down: "lowering", Side: "turning", Depth: "leaning"})},
		{Info{ID: "left_arm_motion", DisplayName: "Left Arm Movement", Icon: "💪", Category: CategoryMotion, Kind: KindDelta},
			delta("left_arm", []string{pose.LeftWrist, pose.LeftElbow}, armVerbs)},
		{Info{ID: "right_arm_motion", DisplayName: "Right Arm Movement", Icon: "💪", Category: CategoryMotion, Kind: KindDelta},
			delta("right_arm", []string{pose.RightWrist, pose.RightElbow}, armVerbs)},
		{Info{ID: "left_leg_motion", DisplayName: "Left Leg Movement", Icon: "🦵", Category: CategoryMotion, Kind: KindDelta},
			delta("left_leg", []string{pose.LeftKnee, pose.LeftAnkle}, legVerbs)},
		{Info{ID: "right_leg_motion", DisplayName: "Right Leg Movement", Icon: "🦵", Category: CategoryMotion, Kind: KindDelta},
			delta("right_leg", []string{pose.RightKnee, pose.RightAnkle}, legVerbs)},
		{Info{ID: "torso_motion", DisplayName: "Torso Movement", Icon: "🧍", Category: CategoryMotion, Kind: KindDelta},
			delta("torso", []string{pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip},
				Verbs{Up: "raising", Down: "bending", Side: "shifting", Depth: "leaning"})},

		{Info{ID: "head_turn", DisplayName: "Head Turn", Icon: "↔️", Category: CategoryHead, Kind: KindGeometry, Threshold: 0.15}, geometry(headTurn)},
		{Info{ID: "head_tilt", DisplayName: "Head Tilt", Icon: "🤔", Category: CategoryHead, Kind: KindGeometry, Threshold: 0.1}, geometry(headTilt)},
	}

	entries = append(entries, sided("arm_raise", "%s Arm Raise", "🙋", CategoryArms, 0.1, armRaise)...)
	entries = append(entries, sided("arm_extend", "%s Arm Extend", "👉", CategoryArms, 0.8, armExtend)...)
	entries = append(entries, sided("elbow_bend", "%s Elbow Bend", "💪", CategoryArms, 90, elbowBend)...)
	entries = append(entries, sided("leg_lift", "%s Leg Lift", "🦵", CategoryLegs, 0.25, legLift)...)
	entries = append(entries, sided("knee_bend", "%s Knee Bend", "🦿", CategoryLegs, 140, kneeBend)...)
	entries = append(entries, sided("kick", "%s Kick", "🥋", CategoryLegs, 0.6, kick)...)

	entries = append(entries,
		entry{Info{ID: "torso_lean", DisplayName: "Torso Lean", Icon: "↗️", Category: CategoryTorso, Kind: KindGeometry, Threshold: 0.2}, geometry(torsoLean)},
		entry{Info{ID: "torso_bend", DisplayName: "Torso Bend", Icon: "🙇", Category: CategoryTorso, Kind: KindGeometry, Threshold: 0.4}, geometry(torsoBend)},
		entry{Info{ID: "torso_rotate", DisplayName: "Torso Rotate", Icon: "🔄", Category: CategoryTorso, Kind: KindGeometry, Threshold: 0.3}, geometry(torsoRotate)},
		entry{Info{ID: "squat", DisplayName: "Squat", Icon: "🏋️", Category: CategoryPose, Kind: KindGeometry, Threshold: 120}, geometry(squat)},
		entry{Info{ID: "hands_up", DisplayName: "Both Hands Up", Icon: "🙌", Category: CategoryPose, Kind: KindGeometry, Threshold: 0.1, Tuning: occlusionProne}, geometry(handsUp)},
		entry{Info{ID: "arms_crossed", DisplayName: "Arms Crossed", Icon: "🙅", Category: CategoryPose, Kind: KindGeometry, Threshold: 0.1, Tuning: occlusionProne}, geometry(armsCrossed)},
		entry{Info{ID: "akimbo", DisplayName: "Hands on Hips", Icon: "🦸", Category: CategoryPose, Kind: KindGeometry, Threshold: 0.2}, geometry(akimbo)},
		entry{Info{ID: "jumping_jack", DisplayName: "Jumping Jack", Icon: "🤸", Category: CategoryPose, Kind: KindGeometry, Threshold: 0.6}, geometry(jumpingJack)},
		entry{Info{ID: "victory", DisplayName: "Victory Pose", Icon: "✌️", Category: CategoryPose, Kind: KindGeometry, Threshold: 1.5}, geometry(victory)},
	)
	return entries
}

// Infos returns the metadata of every catalog entry in catalog order.
func Infos() []Info {
	entries := catalog()
	out := make([]Info, len(entries))
	for i, e := range entries {
		out[i] = e.info
	}
	return out
}

// Catalog builds the analyzers selected by opts in catalog order.
func Catalog(opts Options) []Analyzer {
	var out []Analyzer
	for _, e := range catalog() {
		if !selected(e.info.Kind, opts.Families) {
			continue
		}
		out = append(out, e.build(opts.info(e.info), opts.floor()))
	}
	return out
}

// Lookup builds a single catalog analyzer by ID.
func Lookup(id string, opts Options) (Analyzer, bool) {
	for _, e := range catalog() {
		if e.info.ID == id {
			return e.build(opts.info(e.info), opts.floor()), true
		}
	}
	return nil, false
}

func selected(kind Kind, families []Kind) bool {
	if len(families) == 0 {
		return true
	}
	for _, f := range families {
		if f == kind {
			return true
		}
	}
	return false
}
