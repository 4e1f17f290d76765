package analyzer

import (
	"math"

	"github.com/ayusman/abhinaya/internal/pose"
)

// limb names the landmarks of one anatomical side.
type limb struct {
	side                   string
	shoulder, elbow, wrist string
	hip, knee, ankle       string
	otherKnee, otherAnkle  string
}

var (
	leftLimb = limb{
		side:     "left",
		shoulder: pose.LeftShoulder, elbow: pose.LeftElbow, wrist: pose.LeftWrist,
		hip: pose.LeftHip, knee: pose.LeftKnee, ankle: pose.LeftAnkle,
		otherKnee: pose.RightKnee, otherAnkle: pose.RightAnkle,
	}
	rightLimb = limb{
		side:     "right",
		shoulder: pose.RightShoulder, elbow: pose.RightElbow, wrist: pose.RightWrist,
		hip: pose.RightHip, knee: pose.RightKnee, ankle: pose.RightAnkle,
		otherKnee: pose.LeftKnee, otherAnkle: pose.LeftAnkle,
	}
)

// Fixed joint limits used alongside each analyzer's own threshold.
const (
	straightElbowDegrees = 160
	straightKneeDegrees  = 150
	victoryElbowDegrees  = 150
	akimboElbowDegrees   = 120
	kickLiftRatio        = 0.15
	akimboElbowOutRatio  = 0.15
	feetTogetherRatio    = 0.6
	jackWristSpread      = 1.5
)

// headTurn: nose offset from the ear midpoint, in shoulder widths.
func headTurn(s *skeleton, threshold float64) (finding, bool) {
	p, ok := s.points(pose.Nose, pose.LeftEar, pose.RightEar)
	if !ok {
		return finding{}, false
	}
	width, ok := s.shoulderWidth()
	if !ok {
		return finding{}, false
	}
	offset := p[0].X - midpoint(p[1], p[2]).X
	excess, ok := above(math.Abs(offset)/width, threshold)
	if !ok {
		return finding{}, false
	}
	return finding{bodyPart: "head", movement: "turning", direction: horizontal(offset), excess: excess}, true
}

// headTilt: vertical ear offset, in shoulder widths. The head tilts toward
// the lower ear.
func headTilt(s *skeleton, threshold float64) (finding, bool) {
	p, ok := s.points(pose.LeftEar, pose.RightEar)
	if !ok {
		return finding{}, false
	}
	width, ok := s.shoulderWidth()
	if !ok {
		return finding{}, false
	}
	excess, ok := above(math.Abs(p[0].Y-p[1].Y)/width, threshold)
	if !ok {
		return finding{}, false
	}
	lower, upper := p[0], p[1]
	if p[1].Y > p[0].Y {
		lower, upper = p[1], p[0]
	}
	return finding{bodyPart: "head", movement: "tilting", direction: horizontal(lower.X - upper.X), excess: excess}, true
}

// armRaise: wrist height above the shoulder, in torso lengths.
func armRaise(l limb) predicate {
	return func(s *skeleton, threshold float64) (finding, bool) {
		p, ok := s.points(l.shoulder, l.wrist)
		if !ok {
			return finding{}, false
		}
		torso, ok := s.torso()
		if !ok {
			return finding{}, false
		}
		excess, ok := above((p[0].Y-p[1].Y)/torso, threshold)
		if !ok {
			return finding{}, false
		}
		return finding{bodyPart: l.side + "_arm", movement: "raising", direction: DirectionUp, excess: excess}, true
	}
}

// armExtend: straight elbow with the wrist reaching sideways, in torso lengths.
func armExtend(l limb) predicate {
	return func(s *skeleton, threshold float64) (finding, bool) {
		p, ok := s.points(l.shoulder, l.elbow, l.wrist)
		if !ok {
			return finding{}, false
		}
		torso, ok := s.torso()
		if !ok {
			return finding{}, false
		}
		if jointAngle(p[0], p[1], p[2]) <= straightElbowDegrees {
			return finding{}, false
		}
		reach := p[2].X - p[0].X
		excess, ok := above(math.Abs(reach)/torso, threshold)
		if !ok {
			return finding{}, false
		}
		return finding{bodyPart: l.side + "_arm", movement: "extending", direction: horizontal(reach), excess: excess}, true
	}
}

// elbowBend: elbow angle below threshold degrees.
func elbowBend(l limb) predicate {
	return func(s *skeleton, threshold float64) (finding, bool) {
		p, ok := s.points(l.shoulder, l.elbow, l.wrist)
		if !ok {
			return finding{}, false
		}
		excess, ok := below(jointAngle(p[0], p[1], p[2]), threshold)
		if !ok {
			return finding{}, false
		}
		return finding{bodyPart: l.side + "_elbow", movement: "bending", excess: excess}, true
	}
}

// legLift: knee height above the other knee, in torso lengths.
func legLift(l limb) predicate {
	return func(s *skeleton, threshold float64) (finding, bool) {
		p, ok := s.points(l.knee, l.otherKnee)
		if !ok {
			return finding{}, false
		}
		torso, ok := s.torso()
		if !ok {
			return finding{}, false
		}
		excess, ok := above((p[1].Y-p[0].Y)/torso, threshold)
		if !ok {
			return finding{}, false
		}
		return finding{bodyPart: l.side + "_leg", movement: "lifting", direction: DirectionUp, excess: excess}, true
	}
}

// kneeBend: knee angle below threshold degrees.
func kneeBend(l limb) predicate {
	return func(s *skeleton, threshold float64) (finding, bool) {
		p, ok := s.points(l.hip, l.knee, l.ankle)
		if !ok {
			return finding{}, false
		}
		excess, ok := below(jointAngle(p[0], p[1], p[2]), threshold)
		if !ok {
			return finding{}, false
		}
		return finding{bodyPart: l.side + "_knee", movement: "bending", excess: excess}, true
	}
}

// kick: straight leg swung sideways and raised above the standing ankle.
// The threshold is the lateral ankle offset from the hip, in torso lengths.
func kick(l limb) predicate {
	return func(s *skeleton, threshold float64) (finding, bool) {
		p, ok := s.points(l.hip, l.knee, l.ankle, l.otherAnkle)
		if !ok {
			return finding{}, false
		}
		torso, ok := s.torso()
		if !ok {
			return finding{}, false
		}
		if jointAngle(p[0], p[1], p[2]) <= straightKneeDegrees {
			return finding{}, false
		}
		if (p[3].Y-p[2].Y)/torso <= kickLiftRatio {
			return finding{}, false
		}
		lateral := p[2].X - p[0].X
		excess, ok := above(math.Abs(lateral)/torso, threshold)
		if !ok {
			return finding{}, false
		}
		return finding{bodyPart: l.side + "_leg", movement: "kicking", direction: horizontal(lateral), excess: excess}, true
	}
}

// torsoLean: sideways offset of the shoulder midpoint from the hip
// midpoint, in torso lengths.
func torsoLean(s *skeleton, threshold float64) (finding, bool) {
	p, ok := s.points(pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip)
	if !ok {
		return finding{}, false
	}
	torso, ok := s.torso()
	if !ok {
		return finding{}, false
	}
	offset := midpoint(p[0], p[1]).X - midpoint(p[2], p[3]).X
	excess, ok := above(math.Abs(offset)/torso, threshold)
	if !ok {
		return finding{}, false
	}
	return finding{bodyPart: "torso", movement: "leaning", direction: horizontal(offset), excess: excess}, true
}

// torsoBend: shoulders nearer or farther than the hips, in torso lengths.
// Needs depth.
func torsoBend(s *skeleton, threshold float64) (finding, bool) {
	z, ok := s.depths(pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip)
	if !ok {
		return finding{}, false
	}
	torso, ok := s.torso()
	if !ok {
		return finding{}, false
	}
	offset := (z[0]+z[1])/2 - (z[2]+z[3])/2
	excess, ok := above(math.Abs(offset)/torso, threshold)
	if !ok {
		return finding{}, false
	}
	direction := DirectionForward
	if offset < 0 {
		direction = DirectionBackward
	}
	return finding{bodyPart: "torso", movement: "bending", direction: direction, excess: excess}, true
}

// torsoRotate: depth difference between the shoulders, in shoulder widths.
// The chest turns toward the side of the shoulder that moved back.
func torsoRotate(s *skeleton, threshold float64) (finding, bool) {
	z, ok := s.depths(pose.LeftShoulder, pose.RightShoulder)
	if !ok {
		return finding{}, false
	}
	p, ok := s.points(pose.LeftShoulder, pose.RightShoulder)
	if !ok {
		return finding{}, false
	}
	width, ok := s.shoulderWidth()
	if !ok {
		return finding{}, false
	}
	excess, ok := above(math.Abs(z[0]-z[1])/width, threshold)
	if !ok {
		return finding{}, false
	}
	front, back := p[0], p[1]
	if z[1] > z[0] {
		front, back = p[1], p[0]
	}
	return finding{bodyPart: "torso", movement: "rotating", direction: horizontal(back.X - front.X), excess: excess}, true
}

// squat: both knees bent below threshold degrees with the knees close to
// hip height.
func squat(s *skeleton, threshold float64) (finding, bool) {
	p, ok := s.points(pose.LeftHip, pose.LeftKnee, pose.LeftAnkle, pose.RightHip, pose.RightKnee, pose.RightAnkle)
	if !ok {
		return finding{}, false
	}
	torso, ok := s.torso()
	if !ok {
		return finding{}, false
	}
	angle := math.Max(jointAngle(p[0], p[1], p[2]), jointAngle(p[3], p[4], p[5]))
	excess, ok := below(angle, threshold)
	if !ok {
		return finding{}, false
	}
	drop := (midpoint(p[1], p[4]).Y - midpoint(p[0], p[3]).Y) / torso
	if drop >= 0.35 {
		return finding{}, false
	}
	return finding{bodyPart: "legs", movement: "squat", direction: DirectionDown, excess: excess}, true
}

// handsUp: both wrists above the nose, in torso lengths.
func handsUp(s *skeleton, threshold float64) (finding, bool) {
	p, ok := s.points(pose.Nose, pose.LeftWrist, pose.RightWrist)
	if !ok {
		return finding{}, false
	}
	torso, ok := s.torso()
	if !ok {
		return finding{}, false
	}
	rise := (p[0].Y - math.Max(p[1].Y, p[2].Y)) / torso
	excess, ok := above(rise, threshold)
	if !ok {
		return finding{}, false
	}
	return finding{bodyPart: "both_arms", movement: "hands_up", direction: DirectionUp, excess: excess}, true
}

// armsCrossed: wrists on the opposite side of each other compared to the
// shoulders, held between shoulder and hip height. The threshold is the
// crossing distance in shoulder widths.
func armsCrossed(s *skeleton, threshold float64) (finding, bool) {
	p, ok := s.points(pose.LeftShoulder, pose.RightShoulder, pose.LeftWrist, pose.RightWrist, pose.LeftHip, pose.RightHip)
	if !ok {
		return finding{}, false
	}
	width, ok := s.shoulderWidth()
	if !ok {
		return finding{}, false
	}
	torso, ok := s.torso()
	if !ok {
		return finding{}, false
	}

	top := math.Min(p[0].Y, p[1].Y) - 0.1*torso
	bottom := math.Max(p[4].Y, p[5].Y)
	for _, w := range p[2:4] {
		if w.Y < top || w.Y > bottom {
			return finding{}, false
		}
	}

	orientation := math.Copysign(1, p[0].X-p[1].X)
	crossing := -(p[2].X - p[3].X) * orientation / width
	excess, ok := above(crossing, threshold)
	if !ok {
		return finding{}, false
	}
	return finding{bodyPart: "both_arms", movement: "arms_crossed", excess: excess}, true
}

// akimbo: both hands on the hips with the elbows bent outward. The
// threshold is the maximum wrist to hip distance in torso lengths.
func akimbo(s *skeleton, threshold float64) (finding, bool) {
	torso, ok := s.torso()
	if !ok {
		return finding{}, false
	}
	center, ok := s.points(pose.LeftShoulder, pose.RightShoulder)
	if !ok {
		return finding{}, false
	}
	mid := midpoint(center[0], center[1]).X

	worst := 0.0
	for _, l := range []limb{leftLimb, rightLimb} {
		p, ok := s.points(l.shoulder, l.elbow, l.wrist, l.hip)
		if !ok {
			return finding{}, false
		}
		if jointAngle(p[0], p[1], p[2]) >= akimboElbowDegrees {
			return finding{}, false
		}
		if (math.Abs(p[1].X-mid)-math.Abs(p[0].X-mid))/torso <= akimboElbowOutRatio {
			return finding{}, false
		}
		d := math.Hypot(p[2].X-p[3].X, p[2].Y-p[3].Y) / torso
		worst = math.Max(worst, d)
	}
	excess, ok := below(worst, threshold)
	if !ok {
		return finding{}, false
	}
	return finding{bodyPart: "both_arms", movement: "akimbo", excess: excess}, true
}

// jumpingJack: arms spread overhead and feet apart. The threshold is the
// ankle spread in torso lengths.
func jumpingJack(s *skeleton, threshold float64) (finding, bool) {
	p, ok := s.points(pose.LeftShoulder, pose.RightShoulder, pose.LeftWrist, pose.RightWrist, pose.LeftAnkle, pose.RightAnkle)
	if !ok {
		return finding{}, false
	}
	width, ok := s.shoulderWidth()
	if !ok {
		return finding{}, false
	}
	torso, ok := s.torso()
	if !ok {
		return finding{}, false
	}
	if p[2].Y >= p[0].Y || p[3].Y >= p[1].Y {
		return finding{}, false
	}
	if math.Abs(p[2].X-p[3].X) <= jackWristSpread*width {
		return finding{}, false
	}
	excess, ok := above(math.Abs(p[4].X-p[5].X)/torso, threshold)
	if !ok {
		return finding{}, false
	}
	return finding{bodyPart: "body", movement: "jumping_jack", excess: excess}, true
}

// victory: straight arms raised in a V with the feet together. The
// threshold is the wrist spread in shoulder widths.
func victory(s *skeleton, threshold float64) (finding, bool) {
	p, ok := s.points(pose.Nose, pose.LeftShoulder, pose.RightShoulder, pose.LeftElbow, pose.RightElbow,
		pose.LeftWrist, pose.RightWrist, pose.LeftAnkle, pose.RightAnkle)
	if !ok {
		return finding{}, false
	}
	width, ok := s.shoulderWidth()
	if !ok {
		return finding{}, false
	}
	torso, ok := s.torso()
	if !ok {
		return finding{}, false
	}
	nose, ls, rs, le, re, lw, rw, la, ra := p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7], p[8]

	if lw.Y >= nose.Y || rw.Y >= nose.Y {
		return finding{}, false
	}
	wristSpread := math.Abs(lw.X - rw.X)
	elbowSpread := math.Abs(le.X - re.X)
	if wristSpread <= elbowSpread || elbowSpread <= math.Abs(ls.X-rs.X) {
		return finding{}, false
	}
	if jointAngle(ls, le, lw) <= victoryElbowDegrees || jointAngle(rs, re, rw) <= victoryElbowDegrees {
		return finding{}, false
	}
	if math.Abs(la.X-ra.X)/torso >= feetTogetherRatio {
		return finding{}, false
	}
	excess, ok := above(wristSpread/width, threshold)
	if !ok {
		return finding{}, false
	}
	return finding{bodyPart: "both_arms", movement: "victory", direction: DirectionUp, excess: excess}, true
}
