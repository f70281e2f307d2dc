// Package tray puts the booth controls in the operator's menu bar.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the operator menu for a running booth.
type Tray struct {
	title     string
	onOverlay func(enabled bool)
	onOpen    func()
	onQuit    func()
	overlay   bool
	mu        sync.RWMutex

	menuOverlay *systray.MenuItem
	menuStatus  *systray.MenuItem
	menuResult  *systray.MenuItem
	resultID    int64
}

// New creates a Tray with overlays enabled.
func New(title string) *Tray {
	return &Tray{
		title:   title,
		overlay: true,
	}
}

// OnOverlay sets the callback for the overlay toggle.
func (t *Tray) OnOverlay(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOverlay = fn
}

// OnOpen sets the callback for "Open Booth...".
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// SetResultID shows which visit the booth is serving.
func (t *Tray) SetResultID(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resultID = id
	if t.menuResult != nil {
		t.menuResult.SetTitle(resultTitle(id))
	}
}

// Run starts the tray. It blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.title + " photo booth")

	t.mu.Lock()
	t.menuResult = systray.AddMenuItem(resultTitle(t.resultID), "Current visit")
	t.menuResult.Disable()
	t.menuStatus = systray.AddMenuItem(statusTitle("starting", 0), "Booth status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuOverlay = systray.AddMenuItem(overlayTitle(t.overlay), "Toggle candy overlays")
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open Booth...", "Open the booth in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Stop the booth")

	go func() {
		for {
			select {
			case <-t.menuOverlay.ClickedCh:
				t.handleOverlay()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleOverlay() {
	t.mu.Lock()
	t.overlay = !t.overlay
	enabled := t.overlay
	t.menuOverlay.SetTitle(overlayTitle(enabled))
	callback := t.onOverlay
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
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

	systray.Quit()
}

// SetStatus updates the status line with the session state and fist count.
func (t *Tray) SetStatus(state string, fists int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(state, fists))
	}
}

// SetOverlay syncs the toggle with a change made elsewhere.
func (t *Tray) SetOverlay(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.overlay = enabled
	if t.menuOverlay != nil {
		t.menuOverlay.SetTitle(overlayTitle(enabled))
	}
}

// OverlayEnabled returns the toggle state.
func (t *Tray) OverlayEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.overlay
}

func overlayTitle(enabled bool) string {
	if enabled {
		return "● Candy overlay"
	}
	return "○ Candy overlay"
}

func statusTitle(state string, fists int) string {
	return fmt.Sprintf("%s · Fists: %d", state, fists)
}

func resultTitle(id int64) string {
	if id <= 0 {
		return "Result: none"
	}
	return fmt.Sprintf("Result: #%d", id)
}
