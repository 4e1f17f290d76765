package pose

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

// Provider defines the interface for landmark provider implementations.
type Provider interface {
	// Detect analyzes a video frame and returns the detected persons.
	// A frame without people yields a Result with Detected set to false.
	Detect(ctx context.Context, frame *gocv.Mat) (Result, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MaxPersons is the maximum number of persons to detect (default: 2).
	MaxPersons int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// WithHands and WithFace request the extended overlays.
	WithHands bool
	WithFace  bool

	// ScriptPath overrides the location of the landmark service script.
	ScriptPath string

	// IdleTimeout stops the service after this long without a request.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxPersons:      2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		WithHands:       true,
		WithFace:        false,
		IdleTimeout:     30 * time.Second,
	}
}
