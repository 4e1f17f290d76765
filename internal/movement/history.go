package movement

import "github.com/ayusman/abhinaya/internal/pose"

// DefaultHistorySize is the number of frames kept for delta computation.
const DefaultHistorySize = 5

// History is a bounded sliding window of landmark frames, oldest first.
type History struct {
	frames []*pose.Frame
	size   int
}

// NewHistory creates a History holding at most size frames.
func NewHistory(size int) *History {
	if size < 2 {
		size = DefaultHistorySize
	}
	return &History{
		frames: make([]*pose.Frame, 0, size),
		size:   size,
	}
}

// Push appends f and evicts the oldest frames beyond capacity.
// Nil and empty frames are ignored.
func (h *History) Push(f *pose.Frame) {
	if f == nil || len(f.Landmarks) == 0 {
		return
	}
	if len(h.frames) >= h.size {
		// Shift left, dropping the oldest frames
		drop := len(h.frames) - h.size + 1
		copy(h.frames, h.frames[drop:])
		for i := len(h.frames) - drop; i < len(h.frames); i++ {
			h.frames[i] = nil
		}
		h.frames = h.frames[:len(h.frames)-drop]
	}
	h.frames = append(h.frames, f)
}

// Len returns the number of frames held.
func (h *History) Len() int {
	return len(h.frames)
}

// Cap returns the capacity of the window.
func (h *History) Cap() int {
	return h.size
}

// Latest returns the most recent frame, or nil when empty.
func (h *History) Latest() *pose.Frame {
	if len(h.frames) == 0 {
		return nil
	}
	return h.frames[len(h.frames)-1]
}

// Previous returns the frame before the latest, or nil.
func (h *History) Previous() *pose.Frame {
	if len(h.frames) < 2 {
		return nil
	}
	return h.frames[len(h.frames)-2]
}

// Oldest returns the oldest retained frame, or nil when empty.
func (h *History) Oldest() *pose.Frame {
	if len(h.frames) == 0 {
		return nil
	}
	return h.frames[0]
}

// Frames returns a copy of the window, oldest first.
func (h *History) Frames() []*pose.Frame {
	out := make([]*pose.Frame, len(h.frames))
	copy(out, h.frames)
	return out
}

// Clear drops every frame.
func (h *History) Clear() {
	for i := range h.frames {
		h.frames[i] = nil
	}
	h.frames = h.frames[:0]
}
