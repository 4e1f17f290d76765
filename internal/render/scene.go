// Package render maps a person's landmarks to drawing parameters and
// paints them onto video frames.
//
// In depth mode keypoints and edges are colored along a blue, cyan, green,
// yellow, red gradient from far to near, and keypoints grow from half to one
// and a half times the base radius. When depth is missing the scene falls
// back to visibility-graded colors at a fixed size.
package render

import (
	"image/color"

	"github.com/ayusman/abhinaya/internal/depth"
	"github.com/ayusman/abhinaya/internal/pose"
)

// Renderer defaults.
const (
	DefaultBaseRadius      = 5.0
	DefaultBaseLineWidth   = 3.0
	DefaultVisibilityFloor = 0.15
)

// Config holds configuration options for scene building.
type Config struct {
	BaseRadius      float64
	BaseLineWidth   float64
	VisibilityFloor float64
	Face            bool
	Hands           bool
}

// DefaultConfig returns the stock renderer configuration.
func DefaultConfig() Config {
	return Config{
		BaseRadius:      DefaultBaseRadius,
		BaseLineWidth:   DefaultBaseLineWidth,
		VisibilityFloor: DefaultVisibilityFloor,
		Face:            false,
		Hands:           true,
	}
}

// Color is an RGB color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBA converts c to an opaque color.RGBA.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

var (
	Blue   = Color{0, 0, 255}
	Cyan   = Color{0, 255, 255}
	Green  = Color{0, 255, 0}
	Yellow = Color{255, 255, 0}
	Red    = Color{255, 0, 0}

	LeftHandColor  = Color{255, 128, 0}
	RightHandColor = Color{160, 32, 240}
	FaceColor      = Color{200, 200, 200}
)

var depthGradient = [...]Color{Blue, Cyan, Green, Yellow, Red}

// Point is a normalized image position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keypoint is one circle to draw.
type Keypoint struct {
	Name   string  `json:"name"`
	At     Point   `json:"at"`
	Radius float64 `json:"radius"`
	Color  Color   `json:"color"`
}

// Edge is one line to draw.
type Edge struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	A     Point   `json:"a"`
	B     Point   `json:"b"`
	Width float64 `json:"width"`
	Color Color   `json:"color"`
}

// Scene is the full set of drawing parameters for one person.
type Scene struct {
	Depth     bool       `json:"depth"`
	Keypoints []Keypoint `json:"keypoints"`
	Edges     []Edge     `json:"edges"`
	Overlay   []Keypoint `json:"overlay,omitempty"`
	// OverlayEdges connect hand landmarks.
	OverlayEdges []Edge `json:"overlayEdges,omitempty"`
}

// Empty reports whether the scene draws nothing.
func (s Scene) Empty() bool {
	return len(s.Keypoints) == 0 && len(s.Edges) == 0 && len(s.Overlay) == 0
}

// DepthColor maps a normalized depth (0 far, 1 near) onto the five stop
// gradient by linear interpolation within four equal sub-ranges.
func DepthColor(zn float64) Color {
	t := clamp01(zn) * float64(len(depthGradient)-1)
	i := int(t)
	if i >= len(depthGradient)-1 {
		return depthGradient[len(depthGradient)-1]
	}
	return lerp(depthGradient[i], depthGradient[i+1], t-float64(i))
}

// VisibilityColor grades from red at zero visibility to green at full.
func VisibilityColor(v float64) Color {
	return lerp(Red, Green, clamp01(v))
}

// DepthSize scales base from 0.5x at the far end of [lo, hi] to 1.5x at
// the near end. A degenerate range yields base.
func DepthSize(base, zn, lo, hi float64) float64 {
	if hi-lo <= depth.Epsilon {
		return base
	}
	return base * (0.5 + clamp01((zn-lo)/(hi-lo)))
}

// Build computes the scene for one person. The keypoints are expected to
// carry ZNormalized already.
func Build(person pose.Person, cfg Config) Scene {
	cfg = cfg.withDefaults()
	f := person.Keypoints
	if f.Len() == 0 {
		return Scene{}
	}

	scene := Scene{Depth: depth.Complete(f, cfg.VisibilityFloor)}
	minZ, maxZ, ok := depth.Range(f, cfg.VisibilityFloor)
	if !ok {
		scene.Depth = false
	}

	for _, l := range f.Landmarks {
		if !l.Usable(cfg.VisibilityFloor) {
			continue
		}
		kp := Keypoint{Name: l.Name, At: Point{l.X, l.Y}}
		if scene.Depth {
			kp.Radius = DepthSize(cfg.BaseRadius, l.ZNormalized, minZ, maxZ)
			kp.Color = DepthColor(l.ZNormalized)
		} else {
			kp.Radius = cfg.BaseRadius
			kp.Color = VisibilityColor(l.Visibility)
		}
		scene.Keypoints = append(scene.Keypoints, kp)
	}

	for _, e := range BodyEdges {
		a, okA := f.Usable(e[0], cfg.VisibilityFloor)
		b, okB := f.Usable(e[1], cfg.VisibilityFloor)
		if !okA || !okB {
			continue
		}
		edge := Edge{From: e[0], To: e[1], A: Point{a.X, a.Y}, B: Point{b.X, b.Y}}
		if scene.Depth {
			avg := (a.ZNormalized + b.ZNormalized) / 2
			edge.Width = DepthSize(cfg.BaseLineWidth, avg, minZ, maxZ)
			edge.Color = DepthColor(avg)
		} else {
			edge.Width = cfg.BaseLineWidth
			edge.Color = VisibilityColor((a.Visibility + b.Visibility) / 2)
		}
		scene.Edges = append(scene.Edges, edge)
	}

	if cfg.Hands {
		scene.addHand(person.LeftHand, LeftHandColor, cfg)
		scene.addHand(person.RightHand, RightHandColor, cfg)
	}
	if cfg.Face {
		for _, l := range person.Face {
			if l.Usable(cfg.VisibilityFloor) {
				scene.Overlay = append(scene.Overlay, Keypoint{Name: l.Name, At: Point{l.X, l.Y}, Radius: 1, Color: FaceColor})
			}
		}
	}
	return scene
}

func (s *Scene) addHand(hand []pose.Landmark, c Color, cfg Config) {
	if len(hand) != pose.NumHandPoints {
		return
	}
	radius := cfg.BaseRadius / 2
	for _, l := range hand {
		if l.Usable(cfg.VisibilityFloor) {
			s.Overlay = append(s.Overlay, Keypoint{Name: l.Name, At: Point{l.X, l.Y}, Radius: radius, Color: c})
		}
	}
	for _, e := range HandEdges {
		a, b := hand[e[0]], hand[e[1]]
		if !a.Usable(cfg.VisibilityFloor) || !b.Usable(cfg.VisibilityFloor) {
			continue
		}
		s.OverlayEdges = append(s.OverlayEdges, Edge{
			From: a.Name, To: b.Name,
			A: Point{a.X, a.Y}, B: Point{b.X, b.Y},
			Width: cfg.BaseLineWidth / 2, Color: c,
		})
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseRadius <= 0 {
		c.BaseRadius = d.BaseRadius
	}
	if c.BaseLineWidth <= 0 {
		c.BaseLineWidth = d.BaseLineWidth
	}
	if c.VisibilityFloor <= 0 {
		c.VisibilityFloor = d.VisibilityFloor
	}
	return c
}

func lerp(a, b Color, t float64) Color {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return Color{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B)}
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
