package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/abhinaya/internal/analyzer"
	"github.com/ayusman/abhinaya/internal/movement"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.02, cfg.Movement.MovementThreshold)
	assert.Equal(t, 5, cfg.Movement.HistorySize)
	assert.Equal(t, 0.5, cfg.Movement.ConfidenceThreshold)
	assert.Equal(t, 0.1, cfg.Movement.HysteresisMargin)
	assert.Equal(t, 10, cfg.Movement.DebounceFrames)
	assert.Equal(t, 3, cfg.Movement.SmoothingFrames)
	assert.Equal(t, 4, cfg.Tracker.MaxNumPersons)
	assert.Equal(t, 0.2, cfg.Tracker.TrackingThreshold)
	assert.True(t, cfg.Describe.Mirrored)
	assert.Equal(t, 15, cfg.Pipeline.FPS)
}

func TestDefault_Conversions(t *testing.T) {
	cfg := Default()

	want := movement.DefaultConfig()
	if diff := cmp.Diff(want, cfg.DetectorConfig()); diff != "" {
		t.Errorf("DetectorConfig() mismatch (-want +got):\n%s", diff)
	}

	opts := cfg.AnalyzerOptions()
	assert.Equal(t, []analyzer.Kind{analyzer.KindDelta, analyzer.KindGeometry}, opts.Families)
	assert.Equal(t, 0.1, opts.VisibilityFloor)

	assert.Equal(t, 30*time.Second, cfg.PoseConfig().IdleTimeout)
	assert.Equal(t, 0.15, cfg.RenderConfig().VisibilityFloor)
	assert.Equal(t, 0.05, cfg.TrackerConfig().BoxPadding)

	sess := cfg.SessionConfig()
	assert.True(t, sess.Mirrored)
	assert.Equal(t, 3, sess.MaxMovements)
	assert.Equal(t, opts, sess.Analyzers)
	assert.Equal(t, 0.6, sess.HedgeBelow)

	cfg.Describe.HedgeBelow = 0
	assert.Negative(t, cfg.SessionConfig().HedgeBelow, "zero turns hedging off")

	gate := cfg.GateConfig()
	assert.Equal(t, 15, gate.ActiveFPS)
	assert.Equal(t, 5, gate.IdleFPS)
	assert.Equal(t, 2*time.Second, gate.IdleAfter)
	assert.Equal(t, 5, cfg.CaptureConfig().FPS)
	assert.Equal(t, 200*time.Millisecond, cfg.FrameBudget())
	assert.Equal(t, 5*time.Second, cfg.PluginTimeout())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvAddr, "")
	path := writeFile(t, "tuning.json", `{
		"movement": {"debounce_frames": 6, "families": ["geometry"]},
		"describe": {"mirrored": false}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Movement.DebounceFrames)
	assert.Equal(t, []string{"geometry"}, cfg.Movement.Families)
	assert.False(t, cfg.Describe.Mirrored)
	assert.Equal(t, 0.02, cfg.Movement.MovementThreshold, "omitted fields keep defaults")
	assert.Equal(t, ":8080", cfg.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"wrong extension", "tuning.yaml", "{}"},
		{"bad json", "tuning.json", "{"},
		{"invalid value", "tuning.json", `{"movement": {"history_size": 1}}`},
		{"hedge out of range", "tuning.json", `{"describe": {"hedge_below": 1.5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv(EnvAddr, "127.0.0.1:9000")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvCamera, "2")
	t.Setenv(EnvDataDir, "/tmp/abhinaya-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.Equal(t, 2, cfg.Camera.Device)
	assert.Equal(t, filepath.Join("/tmp/abhinaya-test", "abhinaya.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join("/tmp/abhinaya-test", "plugins"), cfg.PluginDir())

	t.Setenv(EnvCamera, "front")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "xml"
	cfg.Movement.Families = []string{"telepathy"}
	cfg.Tracker.MaxNumPersons = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
	assert.Contains(t, err.Error(), "telepathy")
	assert.Contains(t, err.Error(), "tracker.max_num_persons")
}
