package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/store"
)

func newIntegrationServer(t *testing.T) (*httptest.Server, *app.App, *store.Store) {
	t.Helper()
	logger, _ := test.NewNullLogger()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	a, err := app.New(app.Config{
		Provider: pose.NewMockProvider(),
		Store:    st,
		Session:  session.Config{Movement: movement.DefaultConfig()},
	}, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(New(Config{App: a, Store: st}, logger))
	t.Cleanup(ts.Close)
	return ts, a, st
}

func handsUp(ts int64) pose.Result {
	return pose.Result{Detected: true, Persons: []pose.Person{{Keypoints: pose.HandsUpPose(ts)}}, Timestamp: ts}
}

func TestAPI_SessionWorkflow(t *testing.T) {
	ts, a, _ := newIntegrationServer(t)
	client := ts.Client()

	// 1. Health reports the live session
	resp, err := client.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	first := a.Session().ID()
	assert.Equal(t, first, health["session"])

	// 2. A held pose is recorded as an event
	for i := 0; i < 5; i++ {
		a.ProcessResult(handsUp(int64(i)*66), nil)
	}

	resp, err = client.Get(ts.URL + "/api/sessions/" + first + "/events")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events struct {
		Events []struct {
			AnalyzerID string `json:"analyzer_id"`
			Descriptor string `json:"descriptor"`
		} `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	resp.Body.Close()
	require.Len(t, events.Events, 1)
	assert.Equal(t, "both hands raised", events.Events[0].Descriptor)

	// 3. Resetting tracking starts a new session
	resp, err = client.Post(ts.URL+"/api/tracker/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEqual(t, first, a.Session().ID())

	// 4. Both sessions are listed
	resp, err = client.Get(ts.URL + "/api/sessions")
	require.NoError(t, err)
	var listed struct {
		Sessions []struct {
			ID     string `json:"id"`
			Events int    `json:"events"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Len(t, listed.Sessions, 2)
	counts := map[string]int{}
	for _, sess := range listed.Sessions {
		counts[sess.ID] = sess.Events
	}
	assert.Equal(t, map[string]int{first: 1, a.Session().ID(): 0}, counts)

	// 5. Disabling an analyzer applies to the live session
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/analyzers/hands_up", bytes.NewBufferString(`{"enabled":false}`))
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, a.Session().Detector().Analyzers(), "hands_up")
}

func TestAPI_ResultsWebSocket(t *testing.T) {
	ts, a, _ := newIntegrationServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/results"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered after the upgrade; keep publishing
	// until a message arrives.
	got := make(chan map[string]any, 1)
	go func() {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err == nil {
			got <- msg
		}
	}()

	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	var ts64 int64
	for {
		select {
		case msg := <-got:
			assert.Equal(t, a.Session().ID(), msg["session_id"])
			assert.Equal(t, true, msg["detected"])
			assert.Contains(t, msg, "keypoints")
			assert.Contains(t, msg, "tracking")
			assert.NotContains(t, msg, "Activated")
			return
		case <-ticker.C:
			a.ProcessResult(handsUp(ts64), nil)
			ts64 += 66
		case <-deadline:
			t.Fatal("no result received over the WebSocket")
		}
	}
}

func TestAPI_Stream(t *testing.T) {
	ts, a, _ := newIntegrationServer(t)

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer img.Close()
	a.ProcessResult(handsUp(0), &img)
	require.NotEmpty(t, a.LatestJPEG())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", line)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg\r\n", line)
}
