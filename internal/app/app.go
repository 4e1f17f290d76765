// Package app runs the frame loop: camera, landmark provider, tracker,
// session, overlay and the sinks that consume each frame's result.
package app

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/analyzer"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/plugin"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/render"
	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/tracker"
)

// DefaultFrameBudget is the per-frame processing time before a warning.
const DefaultFrameBudget = 200 * time.Millisecond

// settingMirrored is the settings key holding the mirrored flag.
const settingMirrored = "mirrored"

// ErrNoCamera is returned by Start when the app was built without a camera.
var ErrNoCamera = errors.New("no camera configured")

// Config holds configuration options for the application.
type Config struct {
	// Camera may be nil when frames are fed through ProcessResult.
	Camera   capture.Camera
	Provider pose.Provider
	// Store and Plugins are optional sinks.
	Store   *store.Store
	Plugins *plugin.Dispatcher

	Session     session.Config
	Tracker     tracker.Config
	Render      render.Config
	Gate        capture.GateConfig
	FrameBudget time.Duration
}

// AnalyzerStatus is a catalog entry with its live settings.
type AnalyzerStatus struct {
	analyzer.Info
	Enabled bool `json:"enabled"`
}

// App orchestrates the pipeline. Its methods are safe for concurrent use.
type App struct {
	config   Config
	logger   logrus.FieldLogger
	camera   capture.Camera
	provider pose.Provider
	gate     *capture.ActivityGate
	tracker  *tracker.Tracker

	mu      sync.RWMutex
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	sessMu   sync.Mutex
	sess     *session.Session
	settings map[string]session.AnalyzerSetting
	mirrored bool

	frames broadcaster
}

// New creates an App. Persisted analyzer settings and the mirrored flag
// are loaded from the store when one is configured.
func New(config Config, logger logrus.FieldLogger) (*App, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.Provider == nil {
		logger.Warn("No landmark provider configured, using mock provider")
		config.Provider = pose.NewMockProvider()
	}
	if config.FrameBudget <= 0 {
		config.FrameBudget = DefaultFrameBudget
	}

	a := &App{
		config:   config,
		logger:   logger,
		camera:   config.Camera,
		provider: config.Provider,
		gate:     capture.NewActivityGate(config.Gate),
		tracker:  tracker.New(config.Tracker, logger.WithField("component", "tracker")),
		settings: make(map[string]session.AnalyzerSetting),
		mirrored: config.Session.Mirrored,
	}
	for id, s := range config.Session.Settings {
		a.settings[id] = s
	}

	if err := a.loadSettings(); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := a.resetSession("startup"); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) loadSettings() error {
	if a.config.Store == nil {
		return nil
	}
	stored, err := a.config.Store.AnalyzerSettings().List()
	if err != nil {
		return err
	}
	for _, s := range stored {
		a.settings[s.AnalyzerID] = session.AnalyzerSetting{
			Enabled: s.Enabled,
			Tuning: movement.Tuning{
				Margin:          s.Margin,
				DebounceFrames:  s.DebounceFrames,
				SmoothingFrames: s.SmoothingFrames,
			},
			Threshold: s.Threshold,
		}
	}
	a.mirrored = a.config.Store.Settings().GetBool(settingMirrored, a.mirrored)
	return nil
}

// resetSession replaces the current session. A new tracked identity must
// never inherit the previous person's history.
func (a *App) resetSession(reason string) error {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()

	cfg := a.config.Session
	cfg.Mirrored = a.mirrored
	cfg.Settings = make(map[string]session.AnalyzerSetting, len(a.settings))
	for id, s := range a.settings {
		cfg.Settings[id] = s
	}

	sess, err := session.New(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	if st := a.config.Store; st != nil {
		if a.sess != nil {
			if err := st.Sessions().End(a.sess.ID(), time.Now()); err != nil {
				a.logger.WithField("session", a.sess.ID()).Warnf("Failed to end session: %v", err)
			}
		}
		if err := st.Sessions().Create(&store.Session{ID: sess.ID(), StartedAt: sess.Started(), Mirrored: a.mirrored}); err != nil {
			a.logger.WithField("session", sess.ID()).Warnf("Failed to store session: %v", err)
		}
	}

	a.sess = sess
	a.logger.WithFields(logrus.Fields{"session": sess.ID(), "reason": reason}).Debug("Session reset")
	return nil
}

// Session returns the current session.
func (a *App) Session() *session.Session {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	return a.sess
}

// Tracker returns the multi-person tracker.
func (a *App) Tracker() *tracker.Tracker {
	return a.tracker
}

// SetEnabled enables or disables frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Mirrored reports whether the view is shown as a selfie.
func (a *App) Mirrored() bool {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	return a.mirrored
}

// SetMirrored switches the display transform and persists it.
func (a *App) SetMirrored(mirrored bool) {
	a.sessMu.Lock()
	a.mirrored = mirrored
	a.sess.SetMirrored(mirrored)
	a.sessMu.Unlock()

	if st := a.config.Store; st != nil {
		if err := st.Settings().Set(settingMirrored, strconv.FormatBool(mirrored)); err != nil {
			a.logger.Warnf("Failed to persist mirrored setting: %v", err)
		}
	}
}

// Select locks the person under the display position (x, y). In a
// mirrored view the display is flipped, so x is flipped back first.
func (a *App) Select(x, y float64) (int, bool) {
	if a.Mirrored() {
		x = 1 - x
	}
	before, hadTarget := a.tracker.Target()
	index, ok := a.tracker.Select(x, y)
	if !ok {
		return -1, false
	}
	if !hadTarget || before.Index != index {
		if err := a.resetSession("lock changed"); err != nil {
			a.logger.Warnf("Failed to reset session: %v", err)
		}
	}
	return index, true
}

// ResetTracking clears the lock and starts a new session.
func (a *App) ResetTracking() {
	a.tracker.Reset()
	if err := a.resetSession("tracking reset"); err != nil {
		a.logger.Warnf("Failed to reset session: %v", err)
	}
}

// Analyzers lists the catalog with each analyzer's live state.
func (a *App) Analyzers() []AnalyzerStatus {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()

	registered := make(map[string]bool)
	for _, id := range a.sess.Detector().Analyzers() {
		registered[id] = true
	}

	var out []AnalyzerStatus
	for _, info := range analyzer.Infos() {
		if tuning, ok := a.sess.Detector().TuningFor(info.ID); ok {
			info.Tuning = tuning
		}
		if t := a.settings[info.ID].Threshold; t > 0 {
			info.Threshold = t
		}
		out = append(out, AnalyzerStatus{Info: info, Enabled: registered[info.ID]})
	}
	return out
}

// ConfigureAnalyzer applies a setting to the live session and persists it.
func (a *App) ConfigureAnalyzer(id string, setting session.AnalyzerSetting) error {
	a.sessMu.Lock()
	err := a.sess.Configure(id, setting)
	if err == nil {
		a.settings[id] = setting
	}
	a.sessMu.Unlock()
	if err != nil {
		return err
	}

	if st := a.config.Store; st != nil {
		return st.AnalyzerSettings().Upsert(&store.AnalyzerSetting{
			AnalyzerID:      id,
			Enabled:         setting.Enabled,
			Margin:          setting.Tuning.Margin,
			DebounceFrames:  setting.Tuning.DebounceFrames,
			SmoothingFrames: setting.Tuning.SmoothingFrames,
			Threshold:       setting.Threshold,
		})
	}
	return nil
}

// Subscribe returns a channel of frame results and a function that ends
// the subscription. Slow subscribers miss frames.
func (a *App) Subscribe() (<-chan FrameResult, func()) {
	return a.frames.subscribe()
}

// LatestJPEG returns the most recent annotated frame, or nil.
func (a *App) LatestJPEG() []byte {
	return a.frames.jpeg()
}

// Last returns the most recent frame result.
func (a *App) Last() FrameResult {
	return a.frames.last()
}

// Start opens the camera and starts the frame loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if a.camera == nil {
		return ErrNoCamera
	}
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.camera.SetFPS(a.gate.FPS())

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	a.logger.Info("Pipeline started")
	return nil
}

// Stop halts the frame loop and releases the camera and provider.
func (a *App) Stop() {
	a.mu.Lock()
	stop, done := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			a.logger.Warnf("Error closing camera: %v", err)
		}
	}
	a.gate.Close()
	if err := a.provider.Close(); err != nil {
		a.logger.Warnf("Error closing provider: %v", err)
	}

	if st := a.config.Store; st != nil {
		if err := st.Sessions().End(a.Session().ID(), time.Now()); err != nil {
			a.logger.Warnf("Failed to end session: %v", err)
		}
	}
	a.frames.close()

	a.logger.Info("Pipeline stopped")
}
