// Package tray provides a system tray interface for the Abhinaya movement analysis service.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

const noSummary = "Last: none"

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onMirror func(mirrored bool)
	onReset  func()
	onOpen   func()
	onQuit   func()
	enabled  bool
	mirrored bool
	last     string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuMirror *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a new Tray instance. Processing starts enabled.
func New(mirrored bool) *Tray {
	return &Tray{
		enabled:  true,
		mirrored: mirrored,
	}
}

// OnToggle sets the callback invoked when processing is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMirror sets the callback invoked when the mirror view is toggled.
func (t *Tray) OnMirror(fn func(mirrored bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMirror = fn
}

// OnResetTracking sets the callback invoked by "Reset tracking".
func (t *Tray) OnResetTracking(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnOpen sets the callback invoked by "Open viewer".
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit ends a running tray loop. It is safe to call more than once.
func Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Abhinaya")
	systray.SetTooltip("Abhinaya Movement Analysis")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle movement analysis")
	resetItem := systray.AddMenuItem("Reset tracking", "Release the locked person and start a new session")
	t.menuMirror = systray.AddMenuItemCheckbox("Mirror view", "Show the camera as a mirror", t.mirrored)
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem(lastTitle(t.last), "Latest movement summary")
	t.menuLast.Disable()
	systray.AddSeparator()

	openItem := systray.AddMenuItem("Open viewer...", "Open the live view in a browser")
	quitItem := systray.AddMenuItem("Quit", "Quit Abhinaya")
	toggleCh, mirrorCh := t.menuToggle.ClickedCh, t.menuMirror.ClickedCh
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-toggleCh:
				t.handleToggle()
			case <-mirrorCh:
				t.handleMirror()
			case <-resetItem.ClickedCh:
				t.handleReset()
			case <-openItem.ClickedCh:
				t.handleOpen()
			case <-quitItem.ClickedCh:
				t.handleQuit()
				systray.Quit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastTitle(summary string) string {
	if summary == "" {
		return noSummary
	}
	return "Last: " + summary
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleMirror() {
	t.mu.Lock()
	t.mirrored = !t.mirrored
	mirrored := t.mirrored
	if t.menuMirror != nil {
		if mirrored {
			t.menuMirror.Check()
		} else {
			t.menuMirror.Uncheck()
		}
	}
	callback := t.onMirror
	t.mu.Unlock()

	if callback != nil {
		callback(mirrored)
	}
}

func (t *Tray) handleReset() {
	t.mu.RLock()
	callback := t.onReset
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetLastSummary updates the latest movement summary in the menu.
func (t *Tray) SetLastSummary(summary string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if summary == t.last {
		return
	}
	t.last = summary
	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(summary))
	}
}

// LastSummary returns the summary currently shown.
func (t *Tray) LastSummary() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// IsMirrored returns the current mirror state.
func (t *Tray) IsMirrored() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mirrored
}
