package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/app"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ResultsHandler streams every frame result as a JSON WebSocket message.
type ResultsHandler struct {
	app    *app.App
	logger logrus.FieldLogger
}

// NewResultsHandler creates a new ResultsHandler for the given app.
func NewResultsHandler(a *app.App, logger logrus.FieldLogger) *ResultsHandler {
	return &ResultsHandler{app: a, logger: logger}
}

// ServeHTTP handles WebSocket upgrade requests and forwards results until
// the client goes away or the app stops.
func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	results, cancel := h.app.Subscribe()
	defer cancel()

	// The client never sends anything useful; reading detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case fr, ok := <-results:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(fr); err != nil {
				h.logger.Debugf("WebSocket write error: %v", err)
				return
			}
		}
	}
}
