// Package plugin runs external hook programs when movements become active.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// For every matching activation the executable receives one Request as JSON
// on stdin and answers with one Response on stdout.
package plugin

import "encoding/json"

// EventActivated is the event name sent when a movement becomes active.
const EventActivated = "movement.activated"

// Wildcard in Manifest.Movements matches every movement.
const Wildcard = "*"

// Manifest describes a plugin and the movements it reacts to.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Movements lists analyzer IDs or movement types, or Wildcard.
	Movements []string        `json:"movements"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Movement is the activation payload.
type Movement struct {
	AnalyzerID   string  `json:"analyzer_id"`
	BodyPart     string  `json:"body_part"`
	MovementType string  `json:"movement_type"`
	Direction    string  `json:"direction,omitempty"`
	Descriptor   string  `json:"descriptor"`
	Confidence   float64 `json:"confidence"`
	Timestamp    int64   `json:"timestamp"`
}

// Request is written to the plugin's stdin.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id"`
	Movement  Movement        `json:"movement"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Matches reports whether the plugin reacts to the movement.
func (p *Plugin) Matches(m Movement) bool {
	for _, want := range p.Manifest.Movements {
		if want == Wildcard || want == m.AnalyzerID || want == m.MovementType {
			return true
		}
	}
	return false
}
