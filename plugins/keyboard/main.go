// Package main provides a keyboard hook plugin for macOS. It sends a
// keystroke via AppleScript when a bound movement becomes active.
//
// Bindings live in the manifest config:
//
//	{"bindings": {"hands_up": {"key": " "}, "head_turn": {"key": "]", "modifiers": ["cmd"]}}}
//
// A binding is looked up by analyzer ID first, then by movement type.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ayusman/abhinaya/internal/plugin"
)

// Keystroke is one key with optional modifiers.
type Keystroke struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// Config is the plugin configuration from the manifest.
type Config struct {
	Bindings map[string]Keystroke `json:"bindings"`
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

func main() {
	resp := handle(os.Stdin, runAppleScript)
	json.NewEncoder(os.Stdout).Encode(resp)
}

// handle decodes one request and fires its binding through run.
func handle(r io.Reader, run func(script string) error) plugin.Response {
	var req plugin.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return failure("failed to decode request: %v", err)
	}
	if req.Event != plugin.EventActivated {
		return failure("unknown event: %s", req.Event)
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return failure("failed to parse config: %v", err)
		}
	}

	ks, ok := cfg.binding(req.Movement)
	if !ok {
		return plugin.Response{Success: true}
	}
	if ks.Key == "" {
		return failure("binding for %s has no key", req.Movement.AnalyzerID)
	}
	if err := run(buildKeystrokeScript(ks.Key, ks.Modifiers)); err != nil {
		return failure("keystroke failed: %v", err)
	}
	return plugin.Response{Success: true}
}

func (c Config) binding(m plugin.Movement) (Keystroke, bool) {
	if ks, ok := c.Bindings[m.AnalyzerID]; ok {
		return ks, true
	}
	ks, ok := c.Bindings[m.MovementType]
	return ks, ok
}

func failure(format string, args ...any) plugin.Response {
	return plugin.Response{Success: false, Error: fmt.Sprintf(format, args...)}
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
func buildKeystrokeScript(key string, modifiers []string) string {
	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	key = strings.ReplaceAll(key, `"`, `\"`)
	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(appleModifiers, ", "))
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
