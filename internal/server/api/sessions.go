package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/abhinaya/internal/store"
)

// DefaultSessionLimit caps GET /api/sessions when no limit is given.
const DefaultSessionLimit = 50

// SessionsHandler serves the recorded session history.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type sessionEventsResponse struct {
	Session *store.Session `json:"session"`
	Events  []*store.Event `json:"events"`
	Counts  map[string]int `json:"counts"`
}

// List handles GET /api/sessions and returns the newest sessions first.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List(queryLimit(r, DefaultSessionLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// Events handles GET /api/sessions/{id}/events.
func (h *SessionsHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	events, err := h.store.Events().ListBySession(id, queryLimit(r, 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	counts, err := h.store.Events().CountByAnalyzer(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	writeJSON(w, http.StatusOK, sessionEventsResponse{Session: sess, Events: events, Counts: counts})
}

// Delete handles DELETE /api/sessions/{id}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Sessions().Delete(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
