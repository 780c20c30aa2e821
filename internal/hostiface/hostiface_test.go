package hostiface

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/delegant-go/deskagent/internal/agentloop"
	"github.com/delegant-go/deskagent/internal/deskagent"
	"github.com/delegant-go/deskagent/internal/eventbus"
	"github.com/delegant-go/deskagent/internal/input"
	"github.com/delegant-go/deskagent/internal/screen"
)

type fakeBackend struct{}

func (fakeBackend) MoveTo(ctx context.Context, x, y int) error                 { return nil }
func (fakeBackend) MouseDown(ctx context.Context, button string) error         { return nil }
func (fakeBackend) MouseUp(ctx context.Context, button string) error           { return nil }
func (fakeBackend) Scroll(ctx context.Context, x, y int, d string, a int) error { return nil }
func (fakeBackend) TypeText(ctx context.Context, text string) error            { return nil }
func (fakeBackend) PressKey(ctx context.Context, combo string) error           { return nil }
func (fakeBackend) KeyDown(ctx context.Context, key string) error              { return nil }
func (fakeBackend) KeyUp(ctx context.Context, key string) error                { return nil }
func (fakeBackend) CursorPosition(ctx context.Context) (int, int, error)       { return 0, 0, nil }

type fakeCapturer struct{}

func (fakeCapturer) Capture(ctx context.Context) (screen.Frame, error) {
	return screen.Frame{Image: image.NewRGBA(image.Rect(0, 0, 20, 20))}, nil
}

type fakeWalker struct{}

func (fakeWalker) Snapshot(ctx context.Context) ([]deskagent.A11yNode, error) { return nil, nil }

type fakeWindows struct {
	listed []WindowInfo
	focused int
}

func (f *fakeWindows) List(ctx context.Context) ([]WindowInfo, error) { return f.listed, nil }
func (f *fakeWindows) Focus(ctx context.Context, handle int) error {
	f.focused = handle
	return nil
}

func newTestHost(t *testing.T) (*Host, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	loop := agentloop.New(deskagent.Settings{
		Provider: "anthropic", MaxWidth: 100, MaxHeight: 80, ShellTimeoutSecs: 5, MaxIterations: 5,
	}, eventbus.NopPublisher{}, input.NewActuatorWithBackend(fakeBackend{}), screen.NewService(fakeCapturer{}, fakeWalker{}), nil)

	h := New(loop, input.NewActuatorWithBackend(fakeBackend{}), screen.NewService(fakeCapturer{}, fakeWalker{}), &fakeWindows{listed: []WindowInfo{{Handle: 1, Title: "Terminal"}}}, path)
	return h, path
}

func TestHost_TakeScreenshot_ReturnsAnnotatedResult(t *testing.T) {
	h, _ := newTestHost(t)
	res, err := h.TakeScreenshot(context.Background())
	if err != nil {
		t.Fatalf("TakeScreenshot() error = %v", err)
	}
	if res.Base64 == "" {
		t.Fatal("expected a non-empty base64 image")
	}
}

func TestHost_ListAndFocusWindows(t *testing.T) {
	h, _ := newTestHost(t)
	wins, err := h.ListWindows(context.Background())
	if err != nil {
		t.Fatalf("ListWindows() error = %v", err)
	}
	if len(wins) != 1 || wins[0].Title != "Terminal" {
		t.Fatalf("ListWindows() = %+v, want one Terminal window", wins)
	}
	if err := h.FocusWindow(context.Background(), 1); err != nil {
		t.Fatalf("FocusWindow() error = %v", err)
	}
}

func TestHost_SaveSettings_PersistsAndUpdatesLoop(t *testing.T) {
	h, path := newTestHost(t)
	newSettings := deskagent.Settings{
		Provider: "openai", Model: "gpt-4o", MaxWidth: 1024, MaxHeight: 768,
		ShellTimeoutSecs: 30, MaxIterations: 20,
	}
	if err := h.SaveSettings(newSettings); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected settings file to exist: %v", err)
	}
	if got := h.GetSettings(); got.Provider != "openai" || got.Model != "gpt-4o" {
		t.Fatalf("GetSettings() = %+v, want updated provider/model", got)
	}
}

func TestHost_RunShell_CapturesOutput(t *testing.T) {
	h, _ := newTestHost(t)
	res, err := h.RunShell(context.Background(), "echo hostiface")
	if err != nil {
		t.Fatalf("RunShell() error = %v", err)
	}
	if got := res.Stdout; got != "hostiface\n" {
		t.Fatalf("Stdout = %q, want %q", got, "hostiface\n")
	}
}

func TestHost_DirectInputCommands_DoNotError(t *testing.T) {
	h, _ := newTestHost(t)
	ctx := context.Background()
	if err := h.MoveMouse(ctx, 5, 5); err != nil {
		t.Fatalf("MoveMouse() error = %v", err)
	}
	if err := h.Click(ctx, 5, 5, "left"); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	if err := h.PressKey(ctx, "Return"); err != nil {
		t.Fatalf("PressKey() error = %v", err)
	}
}

func TestParseWindowHandle(t *testing.T) {
	got, err := ParseWindowHandle("42")
	if err != nil || got != 42 {
		t.Fatalf("ParseWindowHandle(42) = %d, %v, want 42, nil", got, err)
	}
	if _, err := ParseWindowHandle("nope"); err == nil {
		t.Fatal("expected an error for a non-numeric handle")
	}
}
