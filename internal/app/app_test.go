package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/tracker"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	logger, _ := test.NewNullLogger()
	if cfg.Provider == nil {
		cfg.Provider = pose.NewMockProvider()
	}
	if cfg.Session.Movement.HistorySize == 0 {
		cfg.Session.Movement = movement.DefaultConfig()
	}
	a, err := New(cfg, logger)
	require.NoError(t, err)
	return a
}

func single(f *pose.Frame) pose.Result {
	return pose.Result{Detected: true, Persons: []pose.Person{{Keypoints: f}}, Timestamp: f.Timestamp}
}

func personAt(x float64, ts int64) *pose.Frame {
	return pose.Translate(pose.StandingPose(0), x-0.5, 0, 0, ts)
}

func pair(ts int64) pose.Result {
	return pose.Result{
		Detected:  true,
		Persons:   []pose.Person{{Keypoints: personAt(0.25, ts)}, {Keypoints: personAt(0.75, ts)}},
		Timestamp: ts,
	}
}

func TestApp_SinglePersonIsAnalyzed(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, Config{Store: st})

	frames, cancel := a.Subscribe()
	defer cancel()

	var fr FrameResult
	for i := 0; i < 5; i++ {
		fr = a.ProcessResult(single(pose.HandsUpPose(int64(i)*66)), nil)
	}

	assert.True(t, fr.Detected)
	assert.Equal(t, tracker.ModeSelection, fr.Tracking.Mode)
	require.Len(t, fr.Activated, 1)
	assert.Equal(t, "hands_up", fr.Activated[0].AnalyzerID)
	assert.False(t, fr.Scene.Empty())

	select {
	case got := <-frames:
		assert.Equal(t, a.Session().ID(), got.SessionID)
	case <-time.After(time.Second):
		t.Fatal("expected a published frame")
	}

	events, err := st.Events().ListBySession(a.Session().ID(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "both hands raised", events[0].Descriptor)
	assert.Equal(t, int64(264), events[0].TimestampMs)
}

func TestApp_NoPerson(t *testing.T) {
	a := newTestApp(t, Config{})

	fr := a.ProcessResult(pose.Result{Timestamp: 5}, nil)

	assert.False(t, fr.Detected)
	assert.Equal(t, tracker.ModeNoDetection, fr.Tracking.Mode)
	assert.Empty(t, fr.Movements)
	assert.True(t, fr.Scene.Empty())
}

func TestApp_SparsePersonIsNotRendered(t *testing.T) {
	a := newTestApp(t, Config{})

	keep := map[string]bool{
		pose.Nose: true, pose.LeftShoulder: true, pose.RightShoulder: true,
		pose.LeftHip: true, pose.RightHip: true,
	}
	var hidden []string
	for _, name := range pose.BodyLandmarkNames {
		if !keep[name] {
			hidden = append(hidden, name)
		}
	}
	sparse := pose.WithVisibility(pose.StandingPose(7), 0.05, hidden...)
	require.Less(t, sparse.CountVisible(0.1), 10)

	fr := a.ProcessResult(single(sparse), nil)

	assert.Equal(t, tracker.ModeSelection, fr.Tracking.Mode)
	require.Len(t, fr.Tracking.Candidates, 1)
	assert.False(t, fr.Detected)
	assert.Empty(t, fr.Keypoints)
	assert.True(t, fr.Scene.Empty())
}

func TestApp_SelectionAndLock(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, Config{Store: st})
	a.SetMirrored(false)

	fr := a.ProcessResult(pair(0), nil)
	assert.False(t, fr.Detected, "two people and no lock analyzes nobody")
	assert.Len(t, fr.Tracking.Candidates, 2)

	before := a.Session().ID()
	_, ok := a.Select(0.5, 0.05)
	assert.False(t, ok, "click between people hits nothing")

	index, ok := a.Select(0.75, 0.5)
	require.True(t, ok)
	assert.Equal(t, 1, index)
	assert.NotEqual(t, before, a.Session().ID(), "a new lock starts a new session")

	fr = a.ProcessResult(pair(66), nil)
	assert.True(t, fr.Detected)
	assert.Equal(t, tracker.ModeTracking, fr.Tracking.Mode)
	assert.InDelta(t, 0.75, fr.Keypoints[0].X, 1e-9)

	locked := a.Session().ID()
	a.ResetTracking()
	assert.NotEqual(t, locked, a.Session().ID())
	assert.Equal(t, tracker.ModeSelection, a.Tracker().Mode())

	sessions, err := st.Sessions().List(0)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestApp_MirroredSelectFlipsX(t *testing.T) {
	a := newTestApp(t, Config{Session: session.Config{Mirrored: true}})
	require.True(t, a.Mirrored())

	a.ProcessResult(pair(0), nil)

	// The left half of a mirrored display shows the right half of the image.
	index, ok := a.Select(0.25, 0.5)
	require.True(t, ok)
	assert.Equal(t, 1, index)
}

func TestApp_ConfigureAnalyzer(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, Config{Store: st})

	require.NoError(t, a.ConfigureAnalyzer("hands_up", session.AnalyzerSetting{Enabled: false}))

	var handsUp *AnalyzerStatus
	statuses := a.Analyzers()
	for i := range statuses {
		if statuses[i].ID == "hands_up" {
			handsUp = &statuses[i]
		}
	}
	require.NotNil(t, handsUp)
	assert.False(t, handsUp.Enabled)

	stored, err := st.AnalyzerSettings().Get("hands_up")
	require.NoError(t, err)
	assert.False(t, stored.Enabled)

	t.Run("settings survive a session reset", func(t *testing.T) {
		a.ResetTracking()
		assert.NotContains(t, a.Session().Detector().Analyzers(), "hands_up")
	})

	t.Run("settings are loaded by a new app", func(t *testing.T) {
		b := newTestApp(t, Config{Store: st})
		assert.NotContains(t, b.Session().Detector().Analyzers(), "hands_up")
	})

	t.Run("unknown analyzer", func(t *testing.T) {
		err := a.ConfigureAnalyzer("moonwalk", session.AnalyzerSetting{Enabled: true})
		assert.ErrorIs(t, err, movement.ErrAnalyzerNotFound)
	})
}

func TestApp_TuningPersists(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, Config{Store: st})

	require.NoError(t, a.ConfigureAnalyzer("squat", session.AnalyzerSetting{
		Enabled:   true,
		Tuning:    movement.Tuning{SmoothingFrames: 6},
		Threshold: 100,
	}))

	b := newTestApp(t, Config{Store: st})
	tuning, ok := b.Session().Detector().TuningFor("squat")
	require.True(t, ok)
	assert.Equal(t, 6, tuning.SmoothingFrames)

	for _, s := range b.Analyzers() {
		if s.ID == "squat" {
			assert.Equal(t, 100.0, s.Threshold)
		}
	}
}

func TestApp_MirroredPersists(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, Config{Store: st, Session: session.Config{Mirrored: true}})

	a.SetMirrored(false)
	assert.False(t, a.Session().Mirrored())

	b := newTestApp(t, Config{Store: st, Session: session.Config{Mirrored: true}})
	assert.False(t, b.Mirrored())
}

func TestApp_AnnotatedFrame(t *testing.T) {
	a := newTestApp(t, Config{})
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	assert.Nil(t, a.LatestJPEG())
	a.ProcessResult(single(pose.StandingPose(0)), &img)

	jpeg := a.LatestJPEG()
	require.NotEmpty(t, jpeg)
	assert.Equal(t, []byte{0xFF, 0xD8}, jpeg[:2])
}

func TestApp_StartWithoutCamera(t *testing.T) {
	a := newTestApp(t, Config{})
	assert.ErrorIs(t, a.Start(), ErrNoCamera)
}

func TestApp_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline test in short mode")
	}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer img.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&img}, true)

	a := newTestApp(t, Config{Camera: cam, Gate: capture.GateConfig{ActiveFPS: 50, IdleFPS: 50}})
	a.SetEnabled(true)
	require.NoError(t, a.Start())
	require.NoError(t, a.Start(), "starting twice is a no-op")

	require.Eventually(t, func() bool { return cam.Reads() >= 2 }, 2*time.Second, 10*time.Millisecond)
	a.Stop()

	assert.False(t, cam.IsOpen())
	assert.NotNil(t, a.LatestJPEG(), "idle frames are still streamed")
}
