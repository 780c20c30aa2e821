// Package input synthesizes mouse and keyboard events: human-like cursor
// motion via the WindMouse algorithm, click/scroll/drag dispatch, and
// clipboard-backed fast typing. There is no portable Go library for input
// synthesis, so the backend shells out to a platform tool the same way the
// clipboard package does.
package input

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/delegant-go/deskagent/internal/clipboard"
)

// Backend is the platform-specific half of the actuator: the thing that
// actually moves the OS cursor or sends a keystroke. Tests substitute a
// fake; production uses execBackend.
type Backend interface {
	MoveTo(ctx context.Context, x, y int) error
	MouseDown(ctx context.Context, button string) error
	MouseUp(ctx context.Context, button string) error
	Scroll(ctx context.Context, x, y int, direction string, amount int) error
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, combo string) error
	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	CursorPosition(ctx context.Context) (x, y int, err error)
}

// Actuator drives a Backend with the WindMouse path generator and the
// fast-type clipboard dance, exposing the operations the agent loop's
// action dispatch needs.
type Actuator struct {
	backend Backend
}

// NewActuator builds an Actuator with the default exec-based backend for
// the current platform.
func NewActuator() *Actuator {
	return &Actuator{backend: newExecBackend()}
}

// NewActuatorWithBackend builds an Actuator around an explicit backend, for
// tests and for platforms with a native binding available.
func NewActuatorWithBackend(b Backend) *Actuator {
	return &Actuator{backend: b}
}

func (a *Actuator) smoothMoveTo(ctx context.Context, x, y int) error {
	cur0X, cur0Y, err := a.backend.CursorPosition(ctx)
	if err != nil {
		// Cursor position isn't always queryable; fall back to a direct move.
		return a.backend.MoveTo(ctx, x, y)
	}

	dx, dy := x-cur0X, y-cur0Y
	if dx*dx+dy*dy < 9 { // < 3px, short hop: teleport
		return a.backend.MoveTo(ctx, x, y)
	}

	for _, wp := range WindMousePoints(cur0X, cur0Y, x, y) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.backend.MoveTo(ctx, wp.X, wp.Y); err != nil {
			return err
		}
		time.Sleep(time.Duration(wp.Wait * float64(time.Second)))
	}
	return a.backend.MoveTo(ctx, x, y)
}

// MoveTo moves the cursor to (x, y) along a WindMouse path.
func (a *Actuator) MoveTo(ctx context.Context, x, y int) error {
	return a.smoothMoveTo(ctx, x, y)
}

// Click performs a left/right click at (x, y).
func (a *Actuator) Click(ctx context.Context, x, y int, button string) error {
	if err := a.smoothMoveTo(ctx, x, y); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	if err := a.backend.MouseDown(ctx, button); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	return a.backend.MouseUp(ctx, button)
}

// DoubleClick performs two rapid left clicks at (x, y).
func (a *Actuator) DoubleClick(ctx context.Context, x, y int) error {
	if err := a.Click(ctx, x, y, "left"); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return a.Click(ctx, x, y, "left")
}

// Scroll scrolls at (x, y) in the given direction by amount notches.
func (a *Actuator) Scroll(ctx context.Context, x, y int, direction string, amount int) error {
	if err := a.smoothMoveTo(ctx, x, y); err != nil {
		return err
	}
	return a.backend.Scroll(ctx, x, y, direction, amount)
}

// Drag moves to the start point, presses the left button, drags to the end
// point along a WindMouse path, and releases.
func (a *Actuator) Drag(ctx context.Context, startX, startY, endX, endY int) error {
	if err := a.smoothMoveTo(ctx, startX, startY); err != nil {
		return err
	}
	if err := a.backend.MouseDown(ctx, "left"); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	for _, wp := range WindMousePoints(startX, startY, endX, endY) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.backend.MoveTo(ctx, wp.X, wp.Y); err != nil {
			return err
		}
		time.Sleep(time.Duration(wp.Wait * float64(time.Second)))
	}
	if err := a.backend.MoveTo(ctx, endX, endY); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	return a.backend.MouseUp(ctx, "left")
}

// PressKey sends a key combo such as "ctrl+c" or "Return". A multi-segment
// combo is decomposed into its OS event order: every modifier is pressed
// down in the order given, the final key is clicked, and the modifiers are
// released in reverse order. A single key is just clicked.
func (a *Actuator) PressKey(ctx context.Context, combo string) error {
	keys := splitKeyCombo(combo)
	if len(keys) <= 1 {
		return a.backend.PressKey(ctx, combo)
	}

	modifiers, final := keys[:len(keys)-1], keys[len(keys)-1]

	for _, m := range modifiers {
		if err := a.backend.KeyDown(ctx, m); err != nil {
			return err
		}
	}

	err := a.backend.PressKey(ctx, final)

	for i := len(modifiers) - 1; i >= 0; i-- {
		if upErr := a.backend.KeyUp(ctx, modifiers[i]); err == nil {
			err = upErr
		}
	}

	return err
}

// TypeText types text one character at a time through the backend.
func (a *Actuator) TypeText(ctx context.Context, text string) error {
	return a.backend.TypeText(ctx, text)
}

// FastType stages text onto the system clipboard and pastes it in a single
// keystroke, which is both faster and more reliable for long or
// unicode-heavy strings than per-character synthesis. It restores whatever
// was on the clipboard beforehand, and falls back to per-character typing
// if the clipboard isn't available on this platform.
func (a *Actuator) FastType(ctx context.Context, text string) error {
	previous, readErr := clipboard.ReadFromClipboard()

	ok, err := clipboard.CopyToClipboard(text)
	if err != nil || !ok {
		return a.TypeText(ctx, text)
	}

	time.Sleep(10 * time.Millisecond)
	if err := a.backend.PressKey(ctx, clipboard.PasteCombo()); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)

	if readErr == nil {
		_, _ = clipboard.CopyToClipboard(previous)
	}
	return nil
}

// CursorPosition reports the current OS cursor position.
func (a *Actuator) CursorPosition(ctx context.Context) (x, y int, err error) {
	return a.backend.CursorPosition(ctx)
}

// execBackend dispatches every operation to a platform command-line tool,
// following the same per-GOOS exec idiom the clipboard package and the
// teacher's computer-use runtime use for native input synthesis.
type execBackend struct{}

func newExecBackend() Backend { return execBackend{} }

func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	err := cmd.Run()
	return out.Bytes(), err
}

func (execBackend) MoveTo(ctx context.Context, x, y int) error {
	if runtime.GOOS == "darwin" {
		_, err := run(ctx, "cliclick", fmt.Sprintf("m:%d,%d", x, y))
		return err
	}
	_, err := run(ctx, "xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

func (execBackend) MouseDown(ctx context.Context, button string) error {
	if runtime.GOOS == "darwin" {
		_, err := run(ctx, "cliclick", "dd:.")
		return err
	}
	_, err := run(ctx, "xdotool", "mousedown", xdotoolButton(button))
	return err
}

func (execBackend) MouseUp(ctx context.Context, button string) error {
	if runtime.GOOS == "darwin" {
		_, err := run(ctx, "cliclick", "du:.")
		return err
	}
	_, err := run(ctx, "xdotool", "mouseup", xdotoolButton(button))
	return err
}

func (execBackend) Scroll(ctx context.Context, x, y int, direction string, amount int) error {
	button := "5" // scroll down
	switch direction {
	case "up":
		button = "4"
	case "down":
		button = "5"
	case "left":
		button = "6"
	case "right":
		button = "7"
	}
	for i := 0; i < amount; i++ {
		if _, err := run(ctx, "xdotool", "click", button); err != nil {
			return err
		}
	}
	return nil
}

func (execBackend) TypeText(ctx context.Context, text string) error {
	if runtime.GOOS == "darwin" {
		_, err := run(ctx, "cliclick", "t:"+text)
		return err
	}
	_, err := run(ctx, "xdotool", "type", "--clearmodifiers", text)
	return err
}

func (execBackend) PressKey(ctx context.Context, combo string) error {
	key := translateKeyCombo(combo)
	if runtime.GOOS == "darwin" {
		_, err := run(ctx, "cliclick", "kp:"+key)
		return err
	}
	_, err := run(ctx, "xdotool", "key", key)
	return err
}

func (execBackend) KeyDown(ctx context.Context, key string) error {
	mapped := translateKey(key)
	if runtime.GOOS == "darwin" {
		_, err := run(ctx, "cliclick", "kd:"+mapped)
		return err
	}
	_, err := run(ctx, "xdotool", "keydown", mapped)
	return err
}

func (execBackend) KeyUp(ctx context.Context, key string) error {
	mapped := translateKey(key)
	if runtime.GOOS == "darwin" {
		_, err := run(ctx, "cliclick", "ku:"+mapped)
		return err
	}
	_, err := run(ctx, "xdotool", "keyup", mapped)
	return err
}

func (execBackend) CursorPosition(ctx context.Context) (int, int, error) {
	if runtime.GOOS == "darwin" {
		return 0, 0, fmt.Errorf("cursor position not supported on darwin backend")
	}
	out, err := run(ctx, "xdotool", "getmouselocation", "--shell")
	if err != nil {
		return 0, 0, err
	}
	var x, y int
	fmt.Sscanf(string(out), "X=%d\nY=%d", &x, &y)
	return x, y, nil
}

func xdotoolButton(button string) string {
	switch button {
	case "right":
		return "3"
	case "middle":
		return "2"
	default:
		return "1"
	}
}
