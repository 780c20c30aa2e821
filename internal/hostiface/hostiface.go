// Package hostiface is the command-dispatch surface a desktop shell would
// call into: start/stop a task, take an ad-hoc screenshot, list and focus
// windows, read/write settings, run a one-off shell command, and issue
// direct input commands outside of an agent run. It names the same verbs
// the core exposes to its host, without assuming any particular transport —
// cmd/deskagent calls it directly; a JSON-RPC or HTTP layer could wrap it
// later without the core changing.
package hostiface

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/delegant-go/deskagent/internal/agentloop"
	"github.com/delegant-go/deskagent/internal/deskagent"
	"github.com/delegant-go/deskagent/internal/input"
	"github.com/delegant-go/deskagent/internal/screen"
	"github.com/delegant-go/deskagent/internal/settings"
	"github.com/delegant-go/deskagent/internal/shellrunner"
)

// WindowInfo is one open window a host can list or focus. Handle is only
// meaningful to the same WindowEnumerator that produced it.
type WindowInfo struct {
	Handle int
	Title  string
}

// WindowEnumerator lists and focuses top-level windows. There's no portable
// Go binding for this; the default implementation shells out per-OS the
// same way the input and screen packages do, and is honest about the
// platforms where it can't do anything.
type WindowEnumerator interface {
	List(ctx context.Context) ([]WindowInfo, error)
	Focus(ctx context.Context, handle int) error
}

type execWindowEnumerator struct{}

// NewWindowEnumerator builds the default, per-OS WindowEnumerator.
func NewWindowEnumerator() WindowEnumerator { return execWindowEnumerator{} }

func (execWindowEnumerator) List(ctx context.Context) ([]WindowInfo, error) {
	if runtime.GOOS != "darwin" {
		// No lightweight, dependency-free window enumeration on Linux or
		// Windows in this module; callers see an empty list rather than
		// an error.
		return nil, nil
	}

	const script = `tell application "System Events"
		set windowList to {}
		set theApps to every application process whose visible is true
		repeat with theApp in theApps
			try
				set appWindows to every window of theApp
				repeat with theWindow in appWindows
					set windowTitle to name of theWindow
					if windowTitle is not "" then
						set end of windowList to windowTitle
					end if
				end repeat
			end try
		end repeat
		return windowList
	end tell`

	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}

	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}

	titles := strings.Split(trimmed, ", ")
	windows := make([]WindowInfo, len(titles))
	for i, title := range titles {
		windows[i] = WindowInfo{Handle: i, Title: strings.TrimSpace(title)}
	}
	return windows, nil
}

func (execWindowEnumerator) Focus(ctx context.Context, handle int) error {
	// Handles produced by the AppleScript-based List aren't real window
	// references, so there's nothing to focus by; matches the original's
	// own stubbed-out focus_window on macOS and Linux.
	return nil
}

// Host is the full command-dispatch surface.
type Host struct {
	loop         *agentloop.Loop
	actuator     *input.Actuator
	screenSvc    *screen.Service
	windows      WindowEnumerator
	settingsPath string
}

// New builds a Host wired to a running Loop and the supporting services.
func New(loop *agentloop.Loop, actuator *input.Actuator, screenSvc *screen.Service, windows WindowEnumerator, settingsPath string) *Host {
	if windows == nil {
		windows = NewWindowEnumerator()
	}
	return &Host{
		loop:         loop,
		actuator:     actuator,
		screenSvc:    screenSvc,
		windows:      windows,
		settingsPath: settingsPath,
	}
}

// StartAgent begins a new task on the loop.
func (h *Host) StartAgent(task string) error {
	return h.loop.Start(task)
}

// StopAgent cancels the running task, if any.
func (h *Host) StopAgent() {
	h.loop.Stop()
}

// AgentState returns the loop's current state.
func (h *Host) AgentState() deskagent.AgentState {
	return h.loop.State()
}

// TakeScreenshot captures and annotates the display without going through
// the agent loop, using the current settings' resolution limits.
func (h *Host) TakeScreenshot(ctx context.Context) (screen.Result, error) {
	s := h.loop.Settings()
	return h.screenSvc.Capture(ctx, s.MaxWidth, s.MaxHeight)
}

// ListWindows enumerates open windows.
func (h *Host) ListWindows(ctx context.Context) ([]WindowInfo, error) {
	return h.windows.List(ctx)
}

// FocusWindow brings a window to the foreground by its enumerator handle.
func (h *Host) FocusWindow(ctx context.Context, handle int) error {
	return h.windows.Focus(ctx, handle)
}

// GetSettings returns the loop's current settings.
func (h *Host) GetSettings() deskagent.Settings {
	return h.loop.Settings()
}

// SaveSettings persists new settings to disk and applies them to the loop.
func (h *Host) SaveSettings(s deskagent.Settings) error {
	if err := settings.Save(h.settingsPath, s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	h.loop.UpdateSettings(s)
	return nil
}

// RunShell executes a one-off shell command outside of any agent run,
// using the settings' configured timeout.
func (h *Host) RunShell(ctx context.Context, command string) (shellrunner.Result, error) {
	s := h.loop.Settings()
	timeout := time.Duration(s.ShellTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return shellrunner.Run(ctx, command, timeout)
}

// MoveMouse, Click, TypeText, and PressKey let a host issue direct input
// commands without going through the agent loop (e.g. a manual-control
// panel in a desktop shell).

func (h *Host) MoveMouse(ctx context.Context, x, y int) error {
	return h.actuator.MoveTo(ctx, x, y)
}

func (h *Host) Click(ctx context.Context, x, y int, button string) error {
	return h.actuator.Click(ctx, x, y, button)
}

func (h *Host) TypeText(ctx context.Context, text string) error {
	return h.actuator.FastType(ctx, text)
}

func (h *Host) PressKey(ctx context.Context, combo string) error {
	return h.actuator.PressKey(ctx, combo)
}

// ParseWindowHandle converts a CLI-supplied handle string into the int
// FocusWindow expects.
func ParseWindowHandle(s string) (int, error) {
	return strconv.Atoi(s)
}
