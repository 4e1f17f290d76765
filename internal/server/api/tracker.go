package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/tracker"
)

// TrackerHandler exposes person selection.
type TrackerHandler struct {
	app *app.App
}

// NewTrackerHandler creates a new TrackerHandler for the given app.
func NewTrackerHandler(a *app.App) *TrackerHandler {
	return &TrackerHandler{app: a}
}

type selectRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type selectResponse struct {
	Index *int `json:"index"`
}

type trackerResponse struct {
	tracker.Update
	Mirrored bool `json:"mirrored"`
}

// Get handles GET /api/tracker and returns the latest tracker update.
func (h *TrackerHandler) Get(w http.ResponseWriter, r *http.Request) {
	u := h.app.Tracker().Last()
	if u.Candidates == nil {
		u.Candidates = []tracker.Candidate{}
	}
	writeJSON(w, http.StatusOK, trackerResponse{Update: u, Mirrored: h.app.Mirrored()})
}

// Select handles POST /api/tracker/select. Coordinates are normalized
// display positions; a click that hits nobody answers with a null index.
func (h *TrackerHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}
	if *req.X < 0 || *req.X > 1 || *req.Y < 0 || *req.Y > 1 {
		writeError(w, http.StatusBadRequest, "x and y must be within [0, 1]")
		return
	}

	var resp selectResponse
	if index, ok := h.app.Select(*req.X, *req.Y); ok {
		resp.Index = &index
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reset handles POST /api/tracker/reset.
func (h *TrackerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.app.ResetTracking()
	w.WriteHeader(http.StatusNoContent)
}
