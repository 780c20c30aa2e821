package agentloop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/delegant-go/deskagent/internal/deskagent"
	"github.com/delegant-go/deskagent/internal/input"
	"github.com/delegant-go/deskagent/internal/screen"
	"github.com/delegant-go/deskagent/internal/shellrunner"
)

const textEditorMaxLen = 10000

// executor dispatches one AgentAction to the actuator, screen capturer,
// shell runner, or local filesystem, and reports the textual/visual result
// the provider sees in the next ToolResult. execute runs synchronously on
// the loop's run goroutine (not Start's caller), which waits for each call
// to return; no separate worker goroutine is used.
type executor struct {
	actuator     *input.Actuator
	screenSvc    *screen.Service
	maxWidth     int
	maxHeight    int
	shellTimeout time.Duration
}

func (e *executor) execute(ctx context.Context, action deskagent.AgentAction) (deskagent.ActionResult, error) {
	switch action.Kind {
	case deskagent.ActionScreenshot:
		res, err := e.screenSvc.Capture(ctx, e.maxWidth, e.maxHeight)
		if err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("screenshot: %w", err)
		}
		return deskagent.ActionResult{
			Text:        "Screenshot taken.",
			Base64Image: res.Base64,
			MediaType:   res.MediaType,
			Nodes:       res.Nodes,
			ScaleFactor: res.ScaleFactor,
		}, nil

	case deskagent.ActionMouseMove:
		if err := e.actuator.MoveTo(ctx, action.X, action.Y); err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("mouse move: %w", err)
		}
		return deskagent.ActionResult{Text: fmt.Sprintf("Moved mouse to (%d, %d)", action.X, action.Y)}, nil

	case deskagent.ActionLeftClick:
		if err := e.actuator.Click(ctx, action.X, action.Y, "left"); err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("left click: %w", err)
		}
		return deskagent.ActionResult{Text: fmt.Sprintf("Left-clicked at (%d, %d)", action.X, action.Y)}, nil

	case deskagent.ActionRightClick:
		if err := e.actuator.Click(ctx, action.X, action.Y, "right"); err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("right click: %w", err)
		}
		return deskagent.ActionResult{Text: fmt.Sprintf("Right-clicked at (%d, %d)", action.X, action.Y)}, nil

	case deskagent.ActionDoubleClick:
		if err := e.actuator.DoubleClick(ctx, action.X, action.Y); err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("double click: %w", err)
		}
		return deskagent.ActionResult{Text: fmt.Sprintf("Double-clicked at (%d, %d)", action.X, action.Y)}, nil

	case deskagent.ActionType:
		if err := e.actuator.FastType(ctx, action.Text); err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("type: %w", err)
		}
		return deskagent.ActionResult{Text: "Typed text"}, nil

	case deskagent.ActionKey:
		if err := e.actuator.PressKey(ctx, action.Combo); err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("key press: %w", err)
		}
		return deskagent.ActionResult{Text: fmt.Sprintf("Pressed key: %s", action.Combo)}, nil

	case deskagent.ActionScroll:
		if err := e.actuator.Scroll(ctx, action.X, action.Y, action.ScrollDirection, action.ScrollAmount); err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("scroll: %w", err)
		}
		return deskagent.ActionResult{Text: fmt.Sprintf("Scrolled %s by %d", action.ScrollDirection, action.ScrollAmount)}, nil

	case deskagent.ActionWait:
		select {
		case <-ctx.Done():
			return deskagent.ActionResult{}, ctx.Err()
		case <-time.After(time.Duration(action.DurationMs) * time.Millisecond):
		}
		return deskagent.ActionResult{Text: fmt.Sprintf("Waited %dms", action.DurationMs)}, nil

	case deskagent.ActionDrag:
		if err := e.actuator.Drag(ctx, action.StartX, action.StartY, action.EndX, action.EndY); err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("drag: %w", err)
		}
		return deskagent.ActionResult{Text: "Dragged"}, nil

	case deskagent.ActionBashCommand:
		res, err := shellrunner.Run(ctx, action.Command, e.shellTimeout)
		if err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("shell: %w", err)
		}
		return deskagent.ActionResult{Text: formatShellResult(res)}, nil

	case deskagent.ActionTextEditorView:
		return viewFile(action.Path)

	case deskagent.ActionTextEditorCreate:
		return createFile(action.Path, action.Content)

	case deskagent.ActionTextEditorReplace:
		return replaceInFile(action.Path, action.OldText, action.NewText)

	default:
		return deskagent.ActionResult{}, fmt.Errorf("execute: unsupported action kind %q", action.Kind)
	}
}

func formatShellResult(r shellrunner.Result) string {
	var b strings.Builder
	if r.Stdout != "" {
		b.WriteString(r.Stdout)
	}
	if r.Stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[stderr] " + r.Stderr)
	}
	if r.ExitCode != 0 {
		fmt.Fprintf(&b, "\n[exit code: %d]", r.ExitCode)
	}
	return b.String()
}

func viewFile(path string) (deskagent.ActionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deskagent.ActionResult{}, fmt.Errorf("view %s: %w", path, err)
	}
	content := string(data)
	truncated := false
	if len(content) > textEditorMaxLen {
		content = content[:textEditorMaxLen]
		truncated = true
	}

	var b strings.Builder
	for i, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&b, "%4d | %s\n", i+1, line)
	}
	if truncated {
		b.WriteString("...[truncated]")
	}
	return deskagent.ActionResult{Text: b.String()}, nil
}

func createFile(path, content string) (deskagent.ActionResult, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return deskagent.ActionResult{}, fmt.Errorf("create %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return deskagent.ActionResult{}, fmt.Errorf("create %s: %w", path, err)
	}
	return deskagent.ActionResult{Text: fmt.Sprintf("Created file %s", path)}, nil
}

func replaceInFile(path, oldText, newText string) (deskagent.ActionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deskagent.ActionResult{}, fmt.Errorf("str_replace %s: %w", path, err)
	}
	content := string(data)
	if !strings.Contains(content, oldText) {
		return deskagent.ActionResult{Text: fmt.Sprintf("old_str not found in %s", path)}, nil
	}
	updated := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return deskagent.ActionResult{}, fmt.Errorf("str_replace %s: %w", path, err)
	}
	return deskagent.ActionResult{Text: fmt.Sprintf("Replaced text in %s", path)}, nil
}
