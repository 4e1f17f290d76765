package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	// BlurKernel is the Gaussian kernel size applied before differencing.
	BlurKernel = 21
	// PixelDelta is the grey-level change that counts a pixel as changed.
	PixelDelta = 25
)

// MotionMeter measures how much of the image changed since the previous
// frame it saw.
type MotionMeter struct {
	mu       sync.Mutex
	baseline gocv.Mat
	primed   bool
}

// NewMotionMeter creates a meter with no baseline.
func NewMotionMeter() *MotionMeter {
	return &MotionMeter{baseline: gocv.NewMat()}
}

// Measure returns the percentage of pixels that changed relative to the
// previous frame. The first frame after creation or Reset only primes the
// baseline and measures 0.
func (m *MotionMeter) Measure(frame *gocv.Mat) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: BlurKernel, Y: BlurKernel}, 0, 0, gocv.BorderDefault)

	if !m.primed || m.baseline.Rows() != blurred.Rows() || m.baseline.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.baseline)
		m.primed = true
		return 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.baseline, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, PixelDelta, 255, gocv.ThresholdBinary)

	blurred.CopyTo(&m.baseline)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total) * 100
}

// Reset drops the baseline.
func (m *MotionMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// Close releases the baseline Mat.
func (m *MotionMeter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.baseline.Close(); err == nil {
		m.baseline = gocv.NewMat()
	}
	m.primed = false
}

// GateConfig holds the activity gate parameters.
type GateConfig struct {
	// ActiveFPS is the capture rate while something moves in view.
	ActiveFPS int
	// IdleFPS is the capture rate otherwise.
	IdleFPS int
	// MotionThreshold is the changed pixel percentage that counts as motion.
	MotionThreshold float64
	// IdleAfter switches back to idle after this long without activity.
	IdleAfter time.Duration
}

// DefaultGateConfig returns the stock gate parameters.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		ActiveFPS:       DefaultFPS,
		IdleFPS:         5,
		MotionThreshold: 1.0,
		IdleAfter:       2 * time.Second,
	}
}

// ActivityGate switches the pipeline between an idle and an active frame
// rate. Pose estimation is skipped while idle.
type ActivityGate struct {
	config       GateConfig
	meter        *MotionMeter
	mu           sync.Mutex
	active       bool
	lastActivity time.Time
}

// NewActivityGate creates an idle gate.
func NewActivityGate(config GateConfig) *ActivityGate {
	defaults := DefaultGateConfig()
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = defaults.ActiveFPS
	}
	if config.IdleFPS <= 0 {
		config.IdleFPS = defaults.IdleFPS
	}
	if config.MotionThreshold <= 0 {
		config.MotionThreshold = defaults.MotionThreshold
	}
	if config.IdleAfter <= 0 {
		config.IdleAfter = defaults.IdleAfter
	}
	return &ActivityGate{config: config, meter: NewMotionMeter()}
}

// Observe measures motion in frame and returns whether the gate is active
// and whether that changed.
func (g *ActivityGate) Observe(frame *gocv.Mat, now time.Time) (active, changed bool) {
	moved := g.meter.Measure(frame) > g.config.MotionThreshold
	return g.Signal(moved, now)
}

// Signal records an activity signal that is not derived from pixels, such
// as a detected person holding still.
func (g *ActivityGate) Signal(activity bool, now time.Time) (active, changed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if activity {
		g.lastActivity = now
		if !g.active {
			g.active = true
			return true, true
		}
		return true, false
	}
	if g.active && now.Sub(g.lastActivity) > g.config.IdleAfter {
		g.active = false
		return false, true
	}
	return g.active, false
}

// Active reports the current state.
func (g *ActivityGate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// FPS returns the frame rate for the current state.
func (g *ActivityGate) FPS() int {
	if g.Active() {
		return g.config.ActiveFPS
	}
	return g.config.IdleFPS
}

// Interval returns the tick interval for the current state.
func (g *ActivityGate) Interval() time.Duration {
	return time.Second / time.Duration(g.FPS())
}

// Close releases the motion meter.
func (g *ActivityGate) Close() {
	g.meter.Close()
}
