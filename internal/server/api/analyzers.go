package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/movement"
	"github.com/ayusman/abhinaya/internal/session"
)

// AnalyzersHandler lists and tunes the movement analyzers.
type AnalyzersHandler struct {
	app *app.App
}

// NewAnalyzersHandler creates a new AnalyzersHandler for the given app.
func NewAnalyzersHandler(a *app.App) *AnalyzersHandler {
	return &AnalyzersHandler{app: a}
}

type listAnalyzersResponse struct {
	Analyzers []app.AnalyzerStatus `json:"analyzers"`
}

// updateAnalyzerRequest carries optional fields; omitted ones keep their
// current value.
type updateAnalyzerRequest struct {
	Enabled         *bool    `json:"enabled"`
	Margin          *float64 `json:"margin"`
	DebounceFrames  *int     `json:"debounce_frames"`
	SmoothingFrames *int     `json:"smoothing_frames"`
	Threshold       *float64 `json:"threshold"`
}

// List handles GET /api/analyzers.
func (h *AnalyzersHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listAnalyzersResponse{Analyzers: h.app.Analyzers()})
}

// Update handles PUT /api/analyzers/{id}. The change is applied to the
// live session and persisted.
func (h *AnalyzersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	current, ok := h.find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Analyzer not found")
		return
	}

	var req updateAnalyzerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	setting := session.AnalyzerSetting{
		Enabled:   current.Enabled,
		Tuning:    current.Tuning,
		Threshold: current.Threshold,
	}
	if req.Enabled != nil {
		setting.Enabled = *req.Enabled
	}
	if req.Margin != nil {
		if *req.Margin < 0 || *req.Margin >= 1 {
			writeError(w, http.StatusBadRequest, "margin must be within [0, 1)")
			return
		}
		setting.Tuning.Margin = *req.Margin
	}
	if req.DebounceFrames != nil {
		if *req.DebounceFrames < 0 {
			writeError(w, http.StatusBadRequest, "debounce_frames must not be negative")
			return
		}
		setting.Tuning.DebounceFrames = *req.DebounceFrames
	}
	if req.SmoothingFrames != nil {
		if *req.SmoothingFrames < 0 {
			writeError(w, http.StatusBadRequest, "smoothing_frames must not be negative")
			return
		}
		setting.Tuning.SmoothingFrames = *req.SmoothingFrames
	}
	if req.Threshold != nil {
		if *req.Threshold <= 0 || math.IsInf(*req.Threshold, 0) {
			writeError(w, http.StatusBadRequest, "threshold must be positive")
			return
		}
		setting.Threshold = *req.Threshold
	}

	if err := h.app.ConfigureAnalyzer(id, setting); err != nil {
		if errors.Is(err, movement.ErrAnalyzerNotFound) {
			writeError(w, http.StatusNotFound, "Analyzer not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update analyzer")
		return
	}

	updated, _ := h.find(id)
	writeJSON(w, http.StatusOK, updated)
}

func (h *AnalyzersHandler) find(id string) (app.AnalyzerStatus, bool) {
	for _, a := range h.app.Analyzers() {
		if a.ID == id {
			return a, true
		}
	}
	return app.AnalyzerStatus{}, false
}
