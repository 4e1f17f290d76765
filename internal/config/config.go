// Package config loads the application configuration: built-in defaults,
// an optional JSON tuning file, then environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/analyzer"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/describe"
	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/render"
	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/tracker"
)

// Environment variables applied after the tuning file.
const (
	EnvAddr     = "ABHINAYA_ADDR"
	EnvLogLevel = "ABHINAYA_LOG_LEVEL"
	EnvCamera   = "ABHINAYA_CAMERA"
	EnvDataDir  = "ABHINAYA_DATA_DIR"
)

// maxFileSize bounds the tuning file.
const maxFileSize = 1 << 20

// Config is the root configuration.
type Config struct {
	Addr      string `json:"addr"`
	DataDir   string `json:"data_dir"`
	StaticDir string `json:"static_dir,omitempty"`

	Log      LogConfig      `json:"log"`
	Camera   CameraConfig   `json:"camera"`
	Pose     PoseConfig     `json:"pose"`
	Movement MovementConfig `json:"movement"`
	Describe DescribeConfig `json:"describe"`
	Tracker  TrackerConfig  `json:"tracker"`
	Render   RenderConfig   `json:"render"`
	Pipeline PipelineConfig `json:"pipeline"`
	Plugins  PluginConfig   `json:"plugins"`
}

// LogConfig selects the log level and formatter ("text" or "json").
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	Device int `json:"device"`
}

// PoseConfig configures the landmark provider.
type PoseConfig struct {
	MaxPersons            int     `json:"max_persons"`
	MinConfidence         float64 `json:"min_confidence"`
	MinTrackingConfidence float64 `json:"min_tracking_confidence"`
	Hands                 bool    `json:"hands"`
	Face                  bool    `json:"face"`
	ScriptPath            string  `json:"script_path,omitempty"`
	IdleTimeoutSec        int     `json:"idle_timeout_sec"`
}

// MovementConfig holds the detector and stabilizer knobs.
type MovementConfig struct {
	MovementThreshold   float64  `json:"movement_threshold"`
	HistorySize         int      `json:"history_size"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	HysteresisMargin    float64  `json:"hysteresis_margin"`
	DebounceFrames      int      `json:"debounce_frames"`
	SmoothingFrames     int      `json:"smoothing_frames"`
	MinVisibleLandmarks int      `json:"min_visible_landmarks"`
	VisibilityFloor     float64  `json:"visibility_floor"`
	Parallel            bool     `json:"parallel"`
	Families            []string `json:"families"`
}

// DescribeConfig controls the display transform and summary length.
type DescribeConfig struct {
	Mirrored     bool `json:"mirrored"`
	MaxMovements int  `json:"max_movements"`
	// HedgeBelow prefixes descriptors under this confidence with
	// "possibly". Zero disables hedging.
	HedgeBelow float64 `json:"hedge_below"`
}

// TrackerConfig holds the multi-person tracker knobs.
type TrackerConfig struct {
	MaxNumPersons     int     `json:"max_num_persons"`
	TrackingThreshold float64 `json:"tracking_threshold"`
	BoxPadding        float64 `json:"box_padding"`
}

// RenderConfig holds the overlay knobs.
type RenderConfig struct {
	BaseRadius      float64 `json:"base_radius"`
	BaseLineWidth   float64 `json:"base_line_width"`
	VisibilityFloor float64 `json:"visibility_floor"`
	Hands           bool    `json:"hands"`
	Face            bool    `json:"face"`
}

// PipelineConfig holds the frame loop knobs.
type PipelineConfig struct {
	FPS             int     `json:"fps"`
	IdleFPS         int     `json:"idle_fps"`
	MotionThreshold float64 `json:"motion_threshold"`
	IdleTimeoutMs   int     `json:"idle_timeout_ms"`
	FrameBudgetMs   int     `json:"frame_budget_ms"`
}

// PluginConfig locates movement hook plugins.
type PluginConfig struct {
	Dir       string `json:"dir,omitempty"`
	TimeoutMs int    `json:"timeout_ms"`
}

// Default returns the configuration with every stock value.
func Default() Config {
	poseDefaults := pose.DefaultConfig()
	detector := movement.DefaultConfig()
	trackerDefaults := tracker.DefaultConfig()
	renderDefaults := render.DefaultConfig()

	return Config{
		Addr:    ":8080",
		DataDir: defaultDataDir(),
		Log:     LogConfig{Level: "info", Format: "text"},
		Camera:  CameraConfig{Device: 0},
		Pose: PoseConfig{
			MaxPersons:            trackerDefaults.MaxNumPersons,
			MinConfidence:         poseDefaults.MinConfidence,
			MinTrackingConfidence: poseDefaults.MinTrackingConf,
			Hands:                 poseDefaults.WithHands,
			Face:                  poseDefaults.WithFace,
			IdleTimeoutSec:        int(poseDefaults.IdleTimeout / time.Second),
		},
		Movement: MovementConfig{
			MovementThreshold:   detector.MovementThreshold,
			HistorySize:         detector.HistorySize,
			ConfidenceThreshold: detector.ConfidenceThreshold,
			HysteresisMargin:    detector.Tuning.Margin,
			DebounceFrames:      detector.Tuning.DebounceFrames,
			SmoothingFrames:     detector.Tuning.SmoothingFrames,
			MinVisibleLandmarks: detector.MinVisibleLandmarks,
			VisibilityFloor:     detector.VisibilityFloor,
			Families:            []string{string(analyzer.KindDelta), string(analyzer.KindGeometry)},
		},
		Describe: DescribeConfig{Mirrored: true, MaxMovements: 3, HedgeBelow: describe.DefaultHedgeBelow},
		Tracker: TrackerConfig{
			MaxNumPersons:     trackerDefaults.MaxNumPersons,
			TrackingThreshold: trackerDefaults.TrackingThreshold,
			BoxPadding:        trackerDefaults.BoxPadding,
		},
		Render: RenderConfig{
			BaseRadius:      renderDefaults.BaseRadius,
			BaseLineWidth:   renderDefaults.BaseLineWidth,
			VisibilityFloor: renderDefaults.VisibilityFloor,
			Hands:           renderDefaults.Hands,
			Face:            renderDefaults.Face,
		},
		Pipeline: PipelineConfig{
			FPS:             15,
			IdleFPS:         5,
			MotionThreshold: 1.0,
			IdleTimeoutMs:   2000,
			FrameBudgetMs:   200,
		},
		Plugins: PluginConfig{TimeoutMs: 5000},
	}
}

// Load reads the tuning file at path over the defaults, applies the
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config JSON: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvCamera); ok && v != "" {
		device, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCamera, err)
		}
		c.Camera.Device = device
	}
	return nil
}

// Validate reports every invalid value at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	_, err := logrus.ParseLevel(c.Log.Level)
	check(err == nil, "log.level: unknown level %q", c.Log.Level)
	check(c.Log.Format == "text" || c.Log.Format == "json", "log.format must be text or json, got %q", c.Log.Format)
	check(c.Camera.Device >= 0, "camera.device must be non-negative, got %d", c.Camera.Device)

	m := c.Movement
	check(m.MovementThreshold >= 0, "movement.movement_threshold must be non-negative, got %g", m.MovementThreshold)
	check(m.HistorySize >= 2, "movement.history_size must be at least 2, got %d", m.HistorySize)
	check(m.ConfidenceThreshold > 0 && m.ConfidenceThreshold < 1, "movement.confidence_threshold must be in (0,1), got %g", m.ConfidenceThreshold)
	check(m.HysteresisMargin >= 0 && m.HysteresisMargin < m.ConfidenceThreshold, "movement.hysteresis_margin must be in [0,confidence_threshold), got %g", m.HysteresisMargin)
	check(m.DebounceFrames >= 1, "movement.debounce_frames must be at least 1, got %d", m.DebounceFrames)
	check(m.SmoothingFrames >= 1, "movement.smoothing_frames must be at least 1, got %d", m.SmoothingFrames)
	check(m.MinVisibleLandmarks >= 0, "movement.min_visible_landmarks must be non-negative, got %d", m.MinVisibleLandmarks)
	check(m.VisibilityFloor >= 0 && m.VisibilityFloor < 1, "movement.visibility_floor must be in [0,1), got %g", m.VisibilityFloor)
	for _, f := range m.Families {
		check(f == string(analyzer.KindDelta) || f == string(analyzer.KindGeometry), "movement.families: unknown family %q", f)
	}

	check(c.Describe.MaxMovements >= 1, "describe.max_movements must be at least 1, got %d", c.Describe.MaxMovements)
	check(c.Describe.HedgeBelow >= 0 && c.Describe.HedgeBelow <= 1, "describe.hedge_below must be in [0,1], got %g", c.Describe.HedgeBelow)
	check(c.Tracker.MaxNumPersons >= 1, "tracker.max_num_persons must be at least 1, got %d", c.Tracker.MaxNumPersons)
	check(c.Tracker.TrackingThreshold > 0, "tracker.tracking_threshold must be positive, got %g", c.Tracker.TrackingThreshold)
	check(c.Tracker.BoxPadding >= 0, "tracker.box_padding must be non-negative, got %g", c.Tracker.BoxPadding)
	check(c.Render.BaseRadius > 0, "render.base_radius must be positive, got %g", c.Render.BaseRadius)
	check(c.Render.BaseLineWidth > 0, "render.base_line_width must be positive, got %g", c.Render.BaseLineWidth)
	check(c.Pipeline.FPS >= 1, "pipeline.fps must be at least 1, got %d", c.Pipeline.FPS)
	check(c.Pipeline.IdleFPS >= 1 && c.Pipeline.IdleFPS <= c.Pipeline.FPS, "pipeline.idle_fps must be in [1,fps], got %d", c.Pipeline.IdleFPS)
	check(c.Pipeline.FrameBudgetMs >= 1, "pipeline.frame_budget_ms must be at least 1, got %d", c.Pipeline.FrameBudgetMs)
	check(c.Plugins.TimeoutMs >= 1, "plugins.timeout_ms must be at least 1, got %d", c.Plugins.TimeoutMs)

	return errors.Join(errs...)
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// DetectorConfig converts the movement section.
func (c Config) DetectorConfig() movement.Config {
	m := c.Movement
	return movement.Config{
		MovementThreshold:   m.MovementThreshold,
		HistorySize:         m.HistorySize,
		ConfidenceThreshold: m.ConfidenceThreshold,
		MinVisibleLandmarks: m.MinVisibleLandmarks,
		VisibilityFloor:     m.VisibilityFloor,
		Tuning: movement.Tuning{
			Margin:          m.HysteresisMargin,
			DebounceFrames:  m.DebounceFrames,
			SmoothingFrames: m.SmoothingFrames,
		},
		Parallel: m.Parallel,
	}
}

// AnalyzerOptions converts the catalog selection.
func (c Config) AnalyzerOptions() analyzer.Options {
	families := make([]analyzer.Kind, len(c.Movement.Families))
	for i, f := range c.Movement.Families {
		families[i] = analyzer.Kind(f)
	}
	return analyzer.Options{Families: families, VisibilityFloor: c.Movement.VisibilityFloor}
}

// TrackerConfig converts the tracker section.
func (c Config) TrackerConfig() tracker.Config {
	return tracker.Config{
		MaxNumPersons:     c.Tracker.MaxNumPersons,
		TrackingThreshold: c.Tracker.TrackingThreshold,
		BoxPadding:        c.Tracker.BoxPadding,
		VisibilityFloor:   c.Movement.VisibilityFloor,
	}
}

// RenderConfig converts the render section.
func (c Config) RenderConfig() render.Config {
	return render.Config{
		BaseRadius:      c.Render.BaseRadius,
		BaseLineWidth:   c.Render.BaseLineWidth,
		VisibilityFloor: c.Render.VisibilityFloor,
		Hands:           c.Render.Hands,
		Face:            c.Render.Face,
	}
}

// PoseConfig converts the provider section.
func (c Config) PoseConfig() pose.Config {
	return pose.Config{
		MaxPersons:      c.Pose.MaxPersons,
		MinConfidence:   c.Pose.MinConfidence,
		MinTrackingConf: c.Pose.MinTrackingConfidence,
		WithHands:       c.Pose.Hands,
		WithFace:        c.Pose.Face,
		ScriptPath:      c.Pose.ScriptPath,
		IdleTimeout:     time.Duration(c.Pose.IdleTimeoutSec) * time.Second,
	}
}

// SessionConfig assembles the per-session pipeline configuration.
func (c Config) SessionConfig() session.Config {
	hedge := c.Describe.HedgeBelow
	if hedge == 0 {
		hedge = -1
	}
	return session.Config{
		Movement:     c.DetectorConfig(),
		Analyzers:    c.AnalyzerOptions(),
		Mirrored:     c.Describe.Mirrored,
		MaxMovements: c.Describe.MaxMovements,
		HedgeBelow:   hedge,
	}
}

// CaptureConfig converts the camera section. The capture rate starts at
// the idle rate; the activity gate raises it.
func (c Config) CaptureConfig() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.Device = c.Camera.Device
	cfg.FPS = c.Pipeline.IdleFPS
	return cfg
}

// GateConfig converts the pipeline rate section.
func (c Config) GateConfig() capture.GateConfig {
	p := c.Pipeline
	return capture.GateConfig{
		ActiveFPS:       p.FPS,
		IdleFPS:         p.IdleFPS,
		MotionThreshold: p.MotionThreshold,
		IdleAfter:       time.Duration(p.IdleTimeoutMs) * time.Millisecond,
	}
}

// FrameBudget returns the per-frame processing budget.
func (c Config) FrameBudget() time.Duration {
	return time.Duration(c.Pipeline.FrameBudgetMs) * time.Millisecond
}

// PluginTimeout returns how long a hook plugin may run.
func (c Config) PluginTimeout() time.Duration {
	return time.Duration(c.Plugins.TimeoutMs) * time.Millisecond
}

// DatabasePath returns the SQLite file inside the data directory.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "abhinaya.db")
}

// PluginDir returns the hook plugin directory, defaulting under DataDir.
func (c Config) PluginDir() string {
	if c.Plugins.Dir != "" {
		return c.Plugins.Dir
	}
	return filepath.Join(c.DataDir, "plugins")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".abhinaya"
	}
	return filepath.Join(home, ".abhinaya")
}
