package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/abhinaya/internal/app"
)

// DefaultStreamInterval is the MJPEG polling interval (~15 FPS).
const DefaultStreamInterval = 66 * time.Millisecond

// StreamHandler serves the annotated frames as MJPEG.
type StreamHandler struct {
	app      *app.App
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler for the given app.
func NewStreamHandler(a *app.App, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &StreamHandler{app: a, interval: interval}
}

// ServeHTTP streams MJPEG frames to connected clients. A frame is only
// written when it differs from the previous one.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		if data := h.app.LatestJPEG(); data != nil && !bytes.Equal(data, last) {
			if err := writePart(w, data); err != nil {
				return
			}
			last = data
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
