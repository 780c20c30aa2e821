package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"runtime"

	_ "image/png" // decode the screenshot tool's PNG output
)

// ExecCapturer acquires a frame by shelling out to a platform screenshot
// tool, the same exec-dispatch-by-GOOS idiom the input actuator uses for
// synthesis: macOS's screencapture, scrot on every other platform. No
// other tool is tried when scrot is missing.
type ExecCapturer struct{}

// NewExecCapturer returns the default, best-effort platform Capturer.
func NewExecCapturer() Capturer { return ExecCapturer{} }

func (ExecCapturer) Capture(ctx context.Context) (Frame, error) {
	tmp, err := os.CreateTemp("", "deskagent-screenshot-*.png")
	if err != nil {
		return Frame{}, fmt.Errorf("screen capture: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "screencapture", "-x", path)
	default:
		cmd = exec.CommandContext(ctx, "scrot", "--overwrite", path)
	}
	if err := cmd.Run(); err != nil {
		return Frame{}, fmt.Errorf("screen capture: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("screen capture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Frame{}, fmt.Errorf("screen capture: decode: %w", err)
	}
	return Frame{Image: img}, nil
}
