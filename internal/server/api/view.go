package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/abhinaya/internal/app"
)

// ViewHandler toggles the mirrored (selfie) display.
type ViewHandler struct {
	app *app.App
}

// NewViewHandler creates a new ViewHandler for the given app.
func NewViewHandler(a *app.App) *ViewHandler {
	return &ViewHandler{app: a}
}

type viewState struct {
	Mirrored *bool `json:"mirrored"`
}

// Get handles GET /api/view.
func (h *ViewHandler) Get(w http.ResponseWriter, r *http.Request) {
	mirrored := h.app.Mirrored()
	writeJSON(w, http.StatusOK, viewState{Mirrored: &mirrored})
}

// Update handles PUT /api/view.
func (h *ViewHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req viewState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Mirrored == nil {
		writeError(w, http.StatusBadRequest, "mirrored is required")
		return
	}
	h.app.SetMirrored(*req.Mirrored)
	h.Get(w, r)
}
