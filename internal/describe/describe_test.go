package describe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
)

func TestGenerateDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		part       string
		movement   string
		delta      pose.Point3D
		confidence float64
		want       string
	}{
		{"raising arm", "left_arm", "raising", pose.Point3D{Y: -0.1}, 0.9, "raising left arm upward"},
		{"turning head", "head", "turning", pose.Point3D{X: 0.05}, 0.8, "turning head to the right"},
		{"leaning torso", "torso", "leaning", pose.Point3D{Z: -0.2}, 0.8, "leaning torso backward"},
		{"no delta", "left_knee", "bending", pose.Point3D{}, 0.7, "bending left knee"},
		{"pose phrase", "both_arms", "hands_up", pose.Point3D{}, 0.9, "both hands raised"},
		{"unknown type", "right_leg", "moonwalk_step", pose.Point3D{Y: 0.1}, 0.9, "moonwalk step right leg"},
		{"low confidence", "head", "tilting", pose.Point3D{X: -0.05}, 0.3, "possibly tilting head to the left"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateDescriptor(tt.part, tt.movement, tt.delta, tt.confidence))
		})
	}
}

func TestGenerateDescriptor_RoundTrip(t *testing.T) {
	got := GenerateDescriptor("left_arm", "raising", pose.Point3D{X: 0, Y: -0.1, Z: 0}, 0.9)
	assert.Contains(t, got, "left arm")
	assert.Contains(t, got, "raising")
}

func TestDescriptorFor_UsesReportedDirection(t *testing.T) {
	d := movement.Detection{BodyPart: "head", MovementType: "turning", Direction: "left", Confidence: 0.8}
	assert.Equal(t, "turning head to the left", DescriptorFor(d))
}

func TestDescriber_Hedging(t *testing.T) {
	weak := movement.Detection{BodyPart: "head", MovementType: "tilting", Direction: "left", Confidence: 0.55}
	require.GreaterOrEqual(t, weak.Confidence, movement.DefaultConfidenceThreshold, "reportable by the detector")

	assert.Equal(t, "possibly tilting head to the left", Describer{}.Descriptor(weak))
	assert.Equal(t, "tilting head to the left", Describer{HedgeBelow: -1}.Descriptor(weak))

	strong := weak
	strong.Confidence = 0.8
	assert.Equal(t, "tilting head to the left", Describer{}.Descriptor(strong))
	assert.Equal(t, "possibly tilting head to the left", Describer{HedgeBelow: 0.9}.Descriptor(strong))

	out := Describer{HedgeBelow: -1}.Describe([]movement.Detection{weak})
	assert.Equal(t, "tilting head to the left", out.Summary)
}

func TestPrioritizeMovements(t *testing.T) {
	t.Run("head outranks knee", func(t *testing.T) {
		in := []movement.Detection{
			{BodyPart: "left_knee", MovementType: "bending", Magnitude: 1, Confidence: 1},
			{BodyPart: "head", MovementType: "turning", Magnitude: 1, Confidence: 1},
		}
		got := PrioritizeMovements(in, 3)
		require.Len(t, got, 2)
		assert.Equal(t, "head", got[0].BodyPart)
		assert.Equal(t, "left_knee", in[0].BodyPart, "input must not be reordered")
	})

	t.Run("ties keep input order", func(t *testing.T) {
		in := []movement.Detection{
			{BodyPart: "left_arm", MovementType: "a", Magnitude: 0.5, Confidence: 1},
			{BodyPart: "right_arm", MovementType: "b", Magnitude: 0.5, Confidence: 1},
			{BodyPart: "left_arm", MovementType: "c", Magnitude: 0.5, Confidence: 1},
		}
		got := PrioritizeMovements(in, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].MovementType, got[1].MovementType, got[2].MovementType})
	})

	t.Run("truncates to max count", func(t *testing.T) {
		in := make([]movement.Detection, 5)
		for i := range in {
			in[i] = movement.Detection{BodyPart: "torso", MovementType: "x", Magnitude: float64(i), Confidence: 1}
		}
		got := PrioritizeMovements(in, 0)
		require.Len(t, got, DefaultMaxMovements)
		assert.Equal(t, 4.0, got[0].Magnitude)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, PrioritizeMovements(nil, 3))
	})
}

func TestGenerateSummary(t *testing.T) {
	a := movement.Detection{BodyPart: "head", MovementType: "turning", Delta: pose.Point3D{X: 0.1}, Magnitude: 0.3, Confidence: 1}
	b := movement.Detection{BodyPart: "left_arm", MovementType: "raising", Delta: pose.Point3D{Y: -0.1}, Magnitude: 0.2, Confidence: 1}
	c := movement.Detection{BodyPart: "left_knee", MovementType: "bending", Magnitude: 0.1, Confidence: 1}

	assert.Equal(t, NoMovement, GenerateSummary(nil, 3))
	assert.Equal(t, "turning head to the right", GenerateSummary([]movement.Detection{a}, 3))
	assert.Equal(t, "turning head to the right and raising left arm upward", GenerateSummary([]movement.Detection{b, a}, 3))
	assert.Equal(t, "turning head to the right, raising left arm upward, and bending left knee",
		GenerateSummary([]movement.Detection{c, b, a}, 3))
}

func TestSwapSides(t *testing.T) {
	assert.Equal(t, "right_arm", SwapSides("left_arm"))
	assert.Equal(t, "left", SwapSides("right"))
	assert.Equal(t, "both_arms", SwapSides("both_arms"))
	assert.Equal(t, "upright", SwapSides("upright"))
}

func TestDescriber(t *testing.T) {
	dets := []movement.Detection{
		{AnalyzerID: "left_arm_motion", BodyPart: "left_arm", MovementType: "moving", Direction: "right",
			Delta: pose.Point3D{X: 0.08}, Magnitude: 0.08, Confidence: 0.9},
		{AnalyzerID: "hands_up", BodyPart: "both_arms", MovementType: "hands_up", Direction: "up", Magnitude: 1, Confidence: 0.95},
	}

	t.Run("mirrored swaps labels once", func(t *testing.T) {
		out := Describer{Mirrored: true}.Describe(dets)
		require.Len(t, out.Movements, 2)
		require.NotNil(t, out.Primary)

		assert.Equal(t, "both hands raised", out.Primary.Descriptor)
		arm := out.Movements[1]
		assert.Equal(t, "right_arm", arm.BodyPart)
		assert.Equal(t, "left", arm.Direction)
		assert.Equal(t, -0.08, arm.Delta.X)
		assert.Equal(t, "moving right arm to the left", arm.Descriptor)
		assert.Equal(t, "both hands raised and moving right arm to the left", out.Summary)

		assert.Equal(t, "left_arm", dets[0].BodyPart, "input must not be modified")
	})

	t.Run("unmirrored keeps source labels", func(t *testing.T) {
		out := Describer{}.Describe(dets)
		assert.Equal(t, "moving left arm to the right", out.Movements[1].Descriptor)
	})

	t.Run("empty", func(t *testing.T) {
		out := Describer{}.Describe(nil)
		assert.NotNil(t, out.Movements)
		assert.Empty(t, out.Movements)
		assert.Nil(t, out.Primary)
		assert.Equal(t, NoMovement, out.Summary)
	})
}
