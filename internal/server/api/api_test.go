package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, st *store.Store) *app.App {
	t.Helper()
	logger, _ := test.NewNullLogger()
	a, err := app.New(app.Config{
		Provider: pose.NewMockProvider(),
		Store:    st,
		Session:  session.Config{Movement: movement.DefaultConfig()},
	}, logger)
	require.NoError(t, err)
	return a
}

func newRouter(a *app.App, st *store.Store) http.Handler {
	r := chi.NewRouter()
	tr := NewTrackerHandler(a)
	r.Get("/api/tracker", tr.Get)
	r.Post("/api/tracker/select", tr.Select)
	r.Post("/api/tracker/reset", tr.Reset)
	an := NewAnalyzersHandler(a)
	r.Get("/api/analyzers", an.List)
	r.Put("/api/analyzers/{id}", an.Update)
	v := NewViewHandler(a)
	r.Get("/api/view", v.Get)
	r.Put("/api/view", v.Update)
	if st != nil {
		se := NewSessionsHandler(st)
		r.Get("/api/sessions", se.List)
		r.Get("/api/sessions/{id}/events", se.Events)
		r.Delete("/api/sessions/{id}", se.Delete)
	}
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
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

func TestTrackerHandler(t *testing.T) {
	a := newTestApp(t, nil)
	a.SetMirrored(false)
	h := newRouter(a, nil)

	a.ProcessResult(pair(0), nil)

	t.Run("get reports candidates", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/tracker", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Mode       string `json:"mode"`
			Candidates []any  `json:"candidates"`
			Mirrored   bool   `json:"mirrored"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "selection", got.Mode)
		assert.Len(t, got.Candidates, 2)
		assert.False(t, got.Mirrored)
	})

	t.Run("select miss returns null index", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/tracker/select", `{"x":0.5,"y":0.05}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"index":null}`, rec.Body.String())
	})

	t.Run("select hit locks the person", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/tracker/select", `{"x":0.75,"y":0.5}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"index":1}`, rec.Body.String())

		target, ok := a.Tracker().Target()
		require.True(t, ok)
		assert.Equal(t, 1, target.Index)
	})

	t.Run("reset clears the lock", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/tracker/reset", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, ok := a.Tracker().Target()
		assert.False(t, ok)
	})

	t.Run("bad requests", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"invalid json", `{`},
			{"missing y", `{"x":0.5}`},
			{"out of range", `{"x":1.5,"y":0.5}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := do(t, h, http.MethodPost, "/api/tracker/select", tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})
		}
	})
}

func TestAnalyzersHandler(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, st)
	h := newRouter(a, st)

	t.Run("list", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/analyzers", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got listAnalyzersResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.NotEmpty(t, got.Analyzers)
		for _, s := range got.Analyzers {
			assert.True(t, s.Enabled, "%s should be enabled by default", s.ID)
		}
	})

	t.Run("update tuning keeps other fields", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/analyzers/hands_up", `{"debounce_frames":7}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got app.AnalyzerStatus
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.True(t, got.Enabled)
		assert.Equal(t, 7, got.Tuning.DebounceFrames)
		assert.Equal(t, 0.05, got.Tuning.Margin)

		stored, err := st.AnalyzerSettings().Get("hands_up")
		require.NoError(t, err)
		assert.Equal(t, 7, stored.DebounceFrames)
	})

	t.Run("update threshold and smoothing", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/analyzers/head_turn", `{"threshold":0.25,"smoothing_frames":5}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got app.AnalyzerStatus
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, 0.25, got.Threshold)
		assert.Equal(t, 5, got.Tuning.SmoothingFrames)

		stored, err := st.AnalyzerSettings().Get("head_turn")
		require.NoError(t, err)
		assert.Equal(t, 0.25, stored.Threshold)
		assert.Equal(t, 5, stored.SmoothingFrames)
	})

	t.Run("disable", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/analyzers/squat", `{"enabled":false}`)
		require.Equal(t, http.StatusOK, rec.Code)

		assert.NotContains(t, a.Session().Detector().Analyzers(), "squat")
	})

	t.Run("unknown analyzer", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/analyzers/moonwalk", `{"enabled":true}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid values", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/analyzers/squat", `{"margin":1.5}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/analyzers/squat", `{"debounce_frames":-1}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/analyzers/squat", `{"smoothing_frames":-1}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/analyzers/squat", `{"threshold":0}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/analyzers/squat", `{"threshold":-2}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/analyzers/squat", `nope`).Code)
	})
}

func TestViewHandler(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, st)
	h := newRouter(a, st)

	rec := do(t, h, http.MethodPut, "/api/view", `{"mirrored":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"mirrored":true}`, rec.Body.String())
	assert.True(t, a.Mirrored())
	assert.True(t, st.Settings().GetBool("mirrored", false))

	rec = do(t, h, http.MethodPut, "/api/view", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/view", "")
	assert.JSONEq(t, `{"mirrored":true}`, rec.Body.String())
}

func TestSessionsHandler(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, st)
	h := newRouter(a, st)

	for i := 0; i < 5; i++ {
		a.ProcessResult(pose.Result{
			Detected:  true,
			Persons:   []pose.Person{{Keypoints: pose.HandsUpPose(int64(i) * 66)}},
			Timestamp: int64(i) * 66,
		}, nil)
	}
	id := a.Session().ID()

	t.Run("list", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/sessions?limit=10", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got listSessionsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got.Sessions, 1)
		assert.Equal(t, id, got.Sessions[0].ID)
		assert.Equal(t, 1, got.Sessions[0].Events)
	})

	t.Run("events", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/sessions/"+id+"/events", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got sessionEventsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got.Events, 1)
		assert.Equal(t, "hands_up", got.Events[0].AnalyzerID)
		assert.Equal(t, map[string]int{"hands_up": 1}, got.Counts)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/sessions/missing/events", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = do(t, h, http.MethodDelete, "/api/sessions/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		a.ResetTracking()
		rec := do(t, h, http.MethodDelete, "/api/sessions/"+id, "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, err := st.Sessions().GetByID(id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"?limit=5", 5},
		{"?limit=abc", 50},
		{"?limit=-3", 50},
		{"?limit=0", 0},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions"+tt.query, nil)
		assert.Equal(t, tt.want, queryLimit(req, 50), tt.query)
	}
}
