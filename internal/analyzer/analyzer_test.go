package analyzer

import (
	"io"
	"math"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
)

func lookup(t *testing.T, id string) Analyzer {
	t.Helper()
	a, ok := Lookup(id, Options{})
	require.True(t, ok, "analyzer %s not in catalog", id)
	return a
}

// fired returns the IDs of geometry analyzers that detect something on f.
func fired(t *testing.T, f *pose.Frame) []string {
	t.Helper()
	var ids []string
	for _, a := range Catalog(Options{Families: []Kind{KindGeometry}}) {
		dets, err := a.Analyze(f, nil, movement.DefaultMovementThreshold)
		require.NoError(t, err)
		for _, d := range dets {
			assert.GreaterOrEqual(t, d.Confidence, 0.0, a.ID())
			assert.LessOrEqual(t, d.Confidence, 1.0, a.ID())
			assert.GreaterOrEqual(t, d.Magnitude, 0.0, a.ID())
		}
		if len(dets) > 0 {
			ids = append(ids, a.ID())
		}
	}
	sort.Strings(ids)
	return ids
}

func TestDeltaAnalyzer(t *testing.T) {
	prev := pose.StandingPose(0)

	t.Run("arm raise", func(t *testing.T) {
		cur := pose.WithLandmark(prev, 0, -0.05, 0, pose.LeftWrist, pose.LeftElbow)
		cur.Timestamp = 66

		dets, err := lookup(t, "left_arm_motion").Analyze(cur, prev, 0.02)
		require.NoError(t, err)
		require.Len(t, dets, 1)

		d := dets[0]
		assert.Equal(t, "left_arm", d.BodyPart)
		assert.Equal(t, "raising", d.MovementType)
		assert.Equal(t, DirectionUp, d.Direction)
		assert.InDelta(t, 0.05, d.Magnitude, 1e-9)
		assert.InDelta(t, 0.95*0.8, d.Confidence, 1e-9)
		assert.InDelta(t, -0.05, d.Delta.Y, 1e-9)
		assert.Equal(t, int64(66), d.Timestamp)
	})

	t.Run("horizontal head turn", func(t *testing.T) {
		cur := pose.Translate(prev, 0.04, 0, 0, 1)

		dets, err := lookup(t, "head_motion").Analyze(cur, prev, 0.02)
		require.NoError(t, err)
		require.Len(t, dets, 1)
		assert.Equal(t, "turning", dets[0].MovementType)
		assert.Equal(t, DirectionRight, dets[0].Direction)
	})

	t.Run("depth lean", func(t *testing.T) {
		cur := pose.WithLandmark(prev, 0, 0, 0.05, pose.Nose)

		dets, err := lookup(t, "head_motion").Analyze(cur, prev, 0.02)
		require.NoError(t, err)
		require.Len(t, dets, 1)
		assert.Equal(t, "leaning", dets[0].MovementType)
		assert.Equal(t, DirectionForward, dets[0].Direction)
	})

	t.Run("missing depth ignores z", func(t *testing.T) {
		noDepth := prev.Clone()
		for i := range noDepth.Landmarks {
			noDepth.Landmarks[i].Z = math.NaN()
		}
		cur := pose.WithLandmark(noDepth, 0, 0, 0.05, pose.Nose)

		dets, err := lookup(t, "head_motion").Analyze(cur, noDepth, 0.02)
		require.NoError(t, err)
		assert.Empty(t, dets)
	})

	t.Run("occluded landmark", func(t *testing.T) {
		cur := pose.WithLandmark(prev, 0, -0.05, 0, pose.LeftWrist, pose.LeftElbow)
		cur = pose.WithVisibility(cur, 0.05, pose.LeftWrist)

		dets, err := lookup(t, "left_arm_motion").Analyze(cur, prev, 0.02)
		require.NoError(t, err)
		assert.Empty(t, dets)
	})

	t.Run("no previous frame", func(t *testing.T) {
		dets, err := lookup(t, "head_motion").Analyze(prev, nil, 0.02)
		require.NoError(t, err)
		assert.Empty(t, dets)
	})
}

func TestDeltaAnalyzer_ThresholdMonotonicity(t *testing.T) {
	prev := pose.StandingPose(0)
	cur := pose.WithLandmark(prev, 0.01, -0.03, 0.02, pose.LeftWrist, pose.LeftElbow, pose.Nose, pose.LeftKnee)

	deltas := Catalog(Options{Families: []Kind{KindDelta}})
	last := math.MaxInt
	for _, threshold := range []float64{0, 0.005, 0.01, 0.02, 0.03, 0.05, 0.1} {
		n := 0
		for _, a := range deltas {
			dets, err := a.Analyze(cur, prev, threshold)
			require.NoError(t, err)
			n += len(dets)
		}
		assert.LessOrEqual(t, n, last, "threshold %v", threshold)
		last = n
	}
	assert.Zero(t, last)
}

func TestCatalog_ThresholdOverrides(t *testing.T) {
	hands := pose.HandsUpPose(0)

	dets, err := lookup(t, "hands_up").Analyze(hands, nil, movement.DefaultMovementThreshold)
	require.NoError(t, err)
	require.Len(t, dets, 1, "wrists sit about half a torso above the nose")

	strict, ok := Lookup("hands_up", Options{Thresholds: map[string]float64{"hands_up": 0.6}})
	require.True(t, ok)
	assert.Equal(t, 0.6, strict.Info().Threshold)
	dets, err = strict.Analyze(hands, nil, movement.DefaultMovementThreshold)
	require.NoError(t, err)
	assert.Empty(t, dets)

	prev := pose.StandingPose(0)
	cur := pose.WithLandmark(prev, 0, -0.05, 0, pose.LeftWrist, pose.LeftElbow)
	for _, a := range Catalog(Options{Thresholds: map[string]float64{"left_arm_motion": 0.1}}) {
		if a.ID() != "left_arm_motion" {
			continue
		}
		dets, err := a.Analyze(cur, prev, 0.02)
		require.NoError(t, err)
		assert.Empty(t, dets, "analyzer threshold replaces the movement threshold")
	}

	zero, _ := Lookup("squat", Options{Thresholds: map[string]float64{"squat": 0}})
	assert.Equal(t, 120.0, zero.Info().Threshold, "zero keeps the catalog value")
}

func TestGeometryAnalyzers_Fixtures(t *testing.T) {
	tests := []struct {
		name  string
		frame *pose.Frame
		want  []string
	}{
		{"standing", pose.StandingPose(0), nil},
		{"hands up", pose.HandsUpPose(0), []string{"arm_raise_left", "arm_raise_right", "hands_up"}},
		{"arms crossed", pose.ArmsCrossedPose(0), []string{"arms_crossed", "elbow_bend_left", "elbow_bend_right"}},
		{"squat", pose.SquatPose(0), []string{"knee_bend_left", "knee_bend_right", "squat"}},
		{"akimbo", pose.AkimboPose(0), []string{"akimbo"}},
		{"jumping jack", pose.JumpingJackPose(0), []string{"arm_raise_left", "arm_raise_right", "hands_up", "jumping_jack"}},
		{"victory", pose.VictoryPose(0), []string{"arm_raise_left", "arm_raise_right", "hands_up", "victory"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fired(t, tt.frame))
		})
	}
}

func TestGeometryAnalyzers_Directions(t *testing.T) {
	standing := pose.StandingPose(0)

	tests := []struct {
		name      string
		id        string
		frame     *pose.Frame
		movement  string
		direction string
	}{
		{"head turn", "head_turn", pose.WithLandmark(standing, 0.04, 0, 0, pose.Nose), "turning", DirectionRight},
		{"head tilt", "head_tilt", pose.WithLandmark(standing, 0, 0.03, 0, pose.LeftEar), "tilting", DirectionRight},
		{"torso rotate", "torso_rotate", pose.WithLandmark(standing, 0, 0, 0.08, pose.LeftShoulder), "rotating", DirectionLeft},
		{"torso bend", "torso_bend", pose.WithLandmark(standing, 0, 0, 0.12, pose.LeftShoulder, pose.RightShoulder), "bending", DirectionForward},
		{"torso lean", "torso_lean", pose.WithLandmark(standing, 0.07, 0, 0, pose.LeftShoulder, pose.RightShoulder), "leaning", DirectionRight},
		{"leg lift", "leg_lift_left", pose.WithLandmark(standing, 0, -0.15, 0, pose.LeftKnee, pose.LeftAnkle), "lifting", DirectionUp},
		{"kick", "kick_left", pose.WithLandmark(pose.WithLandmark(standing, 0.095, -0.08, 0, pose.LeftKnee), 0.19, -0.16, 0, pose.LeftAnkle), "kicking", DirectionRight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dets, err := lookup(t, tt.id).Analyze(tt.frame, nil, 0.02)
			require.NoError(t, err)
			require.Len(t, dets, 1)
			assert.Equal(t, tt.movement, dets[0].MovementType)
			assert.Equal(t, tt.direction, dets[0].Direction)
		})
	}
}

func TestGeometryAnalyzers_MissingInputs(t *testing.T) {
	t.Run("occluded wrist", func(t *testing.T) {
		f := pose.WithVisibility(pose.HandsUpPose(0), 0, pose.RightWrist)
		dets, err := lookup(t, "hands_up").Analyze(f, nil, 0.02)
		require.NoError(t, err)
		assert.Empty(t, dets)
	})

	t.Run("torso bend without depth", func(t *testing.T) {
		f := pose.WithLandmark(pose.StandingPose(0), 0, 0, 0.12, pose.LeftShoulder, pose.RightShoulder)
		for i := range f.Landmarks {
			if f.Landmarks[i].Name == pose.LeftHip {
				f.Landmarks[i].Z = math.NaN()
			}
		}
		dets, err := lookup(t, "torso_bend").Analyze(f, nil, 0.02)
		require.NoError(t, err)
		assert.Empty(t, dets)
	})

	t.Run("nil frame", func(t *testing.T) {
		dets, err := lookup(t, "squat").Analyze(nil, nil, 0.02)
		require.NoError(t, err)
		assert.Empty(t, dets)
	})
}

func TestJointAngle(t *testing.T) {
	a := pose.Point3D{X: 1}.Vec()
	b := pose.Point3D{}.Vec()
	c := pose.Point3D{Y: 1}.Vec()
	assert.InDelta(t, 90, jointAngle(a, b, c), 1e-9)
	assert.InDelta(t, 90, jointAngle(c, b, a), 1e-9)

	d := pose.Point3D{X: -1}.Vec()
	assert.InDelta(t, 180, jointAngle(a, b, d), 1e-9)
}

func TestCatalog(t *testing.T) {
	infos := Infos()
	seen := make(map[string]bool)
	for _, info := range infos {
		assert.False(t, seen[info.ID], "duplicate id %s", info.ID)
		seen[info.ID] = true
		assert.NotEmpty(t, info.DisplayName, info.ID)
		assert.NotEmpty(t, info.Icon, info.ID)
		assert.NotEmpty(t, info.Category, info.ID)
		if info.Kind == KindGeometry {
			assert.Positive(t, info.Threshold, info.ID)
		}
	}

	assert.Len(t, Catalog(Options{}), len(infos))
	assert.Len(t, Catalog(Options{Families: []Kind{KindDelta}}), 6)

	for _, id := range []string{"hands_up", "arms_crossed"} {
		tuning := lookup(t, id).Tuning()
		assert.Equal(t, 0.05, tuning.Margin, id)
		assert.Equal(t, 4, tuning.DebounceFrames, id)
	}

	assert.Equal(t, "Left Arm Raise", lookup(t, "arm_raise_left").Info().DisplayName)

	_, ok := Lookup("moonwalk", Options{})
	assert.False(t, ok)
}

func TestCatalog_WithDetector(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	d := movement.NewDetector(movement.DefaultConfig(), logger)
	for _, a := range Catalog(Options{}) {
		require.NoError(t, d.Register(a))
	}

	var got []movement.Detection
	for i := 0; i < 5; i++ {
		got = d.DetectMovements(pose.HandsUpPose(int64(i) * 66))
	}

	// hands_up debounces over four frames; the per-arm raises need ten
	require.Len(t, got, 1)
	assert.Equal(t, "hands_up", got[0].AnalyzerID)
	assert.Equal(t, "both_arms", got[0].BodyPart)
}
