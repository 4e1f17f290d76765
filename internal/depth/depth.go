// Package depth rescales per-frame landmark depth into [0,1] so that depth
// cues are independent of how far the person stands from the camera.
package depth

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/abhinaya/internal/pose"
)

// Epsilon is the smallest z range treated as real depth variation.
const Epsilon = 1e-4

// Neutral is assigned when a frame has no usable depth spread.
const Neutral = 0.5

// Normalize attaches ZNormalized to every landmark of f using only the
// frame's own z range. Landmarks without depth receive Neutral.
func Normalize(f *pose.Frame) {
	if f == nil || len(f.Landmarks) == 0 {
		return
	}

	zs := make([]float64, 0, len(f.Landmarks))
	for _, l := range f.Landmarks {
		if l.HasDepth() {
			zs = append(zs, l.Z)
		}
	}

	if len(zs) == 0 {
		for i := range f.Landmarks {
			f.Landmarks[i].ZNormalized = Neutral
		}
		return
	}

	minZ, maxZ := floats.Min(zs), floats.Max(zs)
	span := maxZ - minZ

	for i := range f.Landmarks {
		l := &f.Landmarks[i]
		if !l.HasDepth() || span <= Epsilon {
			l.ZNormalized = Neutral
			continue
		}
		l.ZNormalized = clamp01((l.Z - minZ) / span)
	}
}

// Range returns the min and max ZNormalized across landmarks usable above
// floor. ok is false when no landmark qualifies.
func Range(f *pose.Frame, floor float64) (min, max float64, ok bool) {
	if f == nil {
		return 0, 0, false
	}
	values := make([]float64, 0, len(f.Landmarks))
	for _, l := range f.Landmarks {
		if l.Usable(floor) && l.HasDepth() {
			values = append(values, l.ZNormalized)
		}
	}
	if len(values) == 0 {
		return 0, 0, false
	}
	return floats.Min(values), floats.Max(values), true
}

// Complete reports whether every usable landmark carries depth.
func Complete(f *pose.Frame, floor float64) bool {
	if f == nil || len(f.Landmarks) == 0 {
		return false
	}
	seen := false
	for _, l := range f.Landmarks {
		if !l.Usable(floor) {
			continue
		}
		if !l.HasDepth() {
			return false
		}
		seen = true
	}
	return seen
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
