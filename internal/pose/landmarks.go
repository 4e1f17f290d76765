// Package pose provides body landmark types and the landmark provider boundary
// used by the movement analysis pipeline.
package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Body landmark names following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = "nose"
	LeftEyeInner   = "left_eye_inner"
	LeftEye        = "left_eye"
	LeftEyeOuter   = "left_eye_outer"
	RightEyeInner  = "right_eye_inner"
	RightEye       = "right_eye"
	RightEyeOuter  = "right_eye_outer"
	LeftEar        = "left_ear"
	RightEar       = "right_ear"
	MouthLeft      = "mouth_left"
	MouthRight     = "mouth_right"
	LeftShoulder   = "left_shoulder"
	RightShoulder  = "right_shoulder"
	LeftElbow      = "left_elbow"
	RightElbow     = "right_elbow"
	LeftWrist      = "left_wrist"
	RightWrist     = "right_wrist"
	LeftPinky      = "left_pinky"
	RightPinky     = "right_pinky"
	LeftIndex      = "left_index"
	RightIndex     = "right_index"
	LeftThumb      = "left_thumb"
	RightThumb     = "right_thumb"
	LeftHip        = "left_hip"
	RightHip       = "right_hip"
	LeftKnee       = "left_knee"
	RightKnee      = "right_knee"
	LeftAnkle      = "left_ankle"
	RightAnkle     = "right_ankle"
	LeftHeel       = "left_heel"
	RightHeel      = "right_heel"
	LeftFootIndex  = "left_foot_index"
	RightFootIndex = "right_foot_index"
)

// NumBodyLandmarks is the number of landmarks in a full body pose.
const NumBodyLandmarks = 33

// BodyLandmarkNames lists the body landmarks in provider index order.
var BodyLandmarkNames = [NumBodyLandmarks]string{
	Nose, LeftEyeInner, LeftEye, LeftEyeOuter, RightEyeInner, RightEye, RightEyeOuter,
	LeftEar, RightEar, MouthLeft, MouthRight,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow, LeftWrist, RightWrist,
	LeftPinky, RightPinky, LeftIndex, RightIndex, LeftThumb, RightThumb,
	LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle,
	LeftHeel, RightHeel, LeftFootIndex, RightFootIndex,
}

// Hand landmark indices for the 21-point hand overlays.
const (
	HandWrist     = 0
	HandThumbCMC  = 1
	HandThumbMCP  = 2
	HandThumbIP   = 3
	HandThumbTip  = 4
	HandIndexMCP  = 5
	HandIndexPIP  = 6
	HandIndexDIP  = 7
	HandIndexTip  = 8
	HandMiddleMCP = 9
	HandMiddlePIP = 10
	HandMiddleDIP = 11
	HandMiddleTip = 12
	HandRingMCP   = 13
	HandRingPIP   = 14
	HandRingDIP   = 15
	HandRingTip   = 16
	HandPinkyMCP  = 17
	HandPinkyPIP  = 18
	HandPinkyDIP  = 19
	HandPinkyTip  = 20
	NumHandPoints = 21
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec converts the point to a gonum vector.
func (p Point3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// PointFromVec converts a gonum vector to a Point3D.
func PointFromVec(v r3.Vec) Point3D {
	return Point3D{X: v.X, Y: v.Y, Z: v.Z}
}

// Landmark is one named anatomical point for one person at one instant.
//
// X and Y are normalized to the frame in [0,1]. Z is relative depth where a
// larger value is nearer the camera; it is NaN when the provider supplied no
// depth. ZNormalized is attached by the depth normalizer.
type Landmark struct {
	Name        string  `json:"name"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"-"`
	ZNormalized float64 `json:"-"`
	Visibility  float64 `json:"visibility"`
}

// HasDepth reports whether the landmark carries a numeric z value.
func (l Landmark) HasDepth() bool {
	return !math.IsNaN(l.Z) && !math.IsInf(l.Z, 0)
}

// Usable reports whether the landmark is visible enough to be used.
// A visibility of zero always means absent.
func (l Landmark) Usable(floor float64) bool {
	return l.Visibility > 0 && l.Visibility >= floor
}

// Point returns the landmark position. Missing depth is reported as zero.
func (l Landmark) Point() Point3D {
	z := l.Z
	if !l.HasDepth() {
		z = 0
	}
	return Point3D{X: l.X, Y: l.Y, Z: z}
}

// Frame is the landmark set for one person at one instant.
type Frame struct {
	Landmarks []Landmark
	Timestamp int64 // Unix milliseconds

	index map[string]int
}

// NewFrame creates a Frame and indexes its landmarks by name.
// When names repeat, lookups return the first occurrence.
func NewFrame(landmarks []Landmark, timestamp int64) *Frame {
	f := &Frame{
		Landmarks: landmarks,
		Timestamp: timestamp,
		index:     make(map[string]int, len(landmarks)),
	}
	for i, l := range landmarks {
		if _, exists := f.index[l.Name]; !exists {
			f.index[l.Name] = i
		}
	}
	return f
}

// Len returns the number of landmarks in the frame.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Landmarks)
}

// Find returns the first landmark with the given name.
func (f *Frame) Find(name string) (Landmark, bool) {
	if f == nil {
		return Landmark{}, false
	}
	if f.index != nil {
		i, ok := f.index[name]
		if !ok {
			return Landmark{}, false
		}
		return f.Landmarks[i], true
	}
	// Frames built without NewFrame are scanned; the index is never
	// lazily written so concurrent readers stay safe.
	for _, l := range f.Landmarks {
		if l.Name == name {
			return l, true
		}
	}
	return Landmark{}, false
}

// Usable returns the named landmark if it is present and visible above floor.
func (f *Frame) Usable(name string, floor float64) (Landmark, bool) {
	l, ok := f.Find(name)
	if !ok || !l.Usable(floor) {
		return Landmark{}, false
	}
	return l, true
}

// CountVisible returns the number of landmarks with visibility strictly above min.
func (f *Frame) CountVisible(min float64) int {
	if f == nil {
		return 0
	}
	n := 0
	for _, l := range f.Landmarks {
		if l.Visibility > min {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	landmarks := make([]Landmark, len(f.Landmarks))
	copy(landmarks, f.Landmarks)
	return NewFrame(landmarks, f.Timestamp)
}

// Person is one detected person in a provider result.
type Person struct {
	Keypoints *Frame
	Face      []Landmark
	LeftHand  []Landmark
	RightHand []Landmark
}

// Result is the provider output for a single video frame.
type Result struct {
	Detected  bool
	Persons   []Person
	Timestamp int64 // Unix milliseconds
}

// Frames returns the keypoint frames of all detected persons.
func (r Result) Frames() []*Frame {
	if !r.Detected {
		return nil
	}
	frames := make([]*Frame, 0, len(r.Persons))
	for _, p := range r.Persons {
		frames = append(frames, p.Keypoints)
	}
	return frames
}
