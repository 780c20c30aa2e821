package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/delegant-go/deskagent/internal/a11y"
	"github.com/delegant-go/deskagent/internal/agentloop"
	"github.com/delegant-go/deskagent/internal/deskagent"
	"github.com/delegant-go/deskagent/internal/eventbus"
	"github.com/delegant-go/deskagent/internal/hostiface"
	"github.com/delegant-go/deskagent/internal/input"
	"github.com/delegant-go/deskagent/internal/screen"
	"github.com/delegant-go/deskagent/internal/settings"
)

// buildHost assembles a hostiface.Host and its backing Loop from the
// settings file at path, wiring the default OS-exec-backed actuator,
// screen capturer, and accessibility snapshotter. The returned Bus is the
// same one the loop broadcasts on, for callers that want to subscribe to
// progress events (e.g. runTask).
func buildHost(path string) (*hostiface.Host, *eventbus.Bus, error) {
	s, err := settings.Load(path)
	if err != nil {
		return nil, nil, err
	}

	actuator := input.NewActuator()
	screenSvc := screen.NewService(screen.NewExecCapturer(), a11y.NewDefaultSnapshotter())
	bus := eventbus.NewBus()
	loop := agentloop.New(s, bus, actuator, screenSvc, nil)

	return hostiface.New(loop, actuator, screenSvc, nil, path), bus, nil
}

func runTask(ctx context.Context, path, task string, jsonEvents bool) error {
	h, bus, err := buildHost(path)
	if err != nil {
		return err
	}

	subID := "cli-run"
	bus.Subscribe(subID, func(ev eventbus.Event) { printEvent(ev, jsonEvents) })
	defer bus.Unsubscribe(subID)

	if err := h.StartAgent(task); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.StopAgent()
			return ctx.Err()
		case <-ticker.C:
			switch h.AgentState().Status {
			case deskagent.StatusIdle:
				return nil
			case deskagent.StatusError:
				return fmt.Errorf("agent run ended in error state")
			}
		}
	}
}

// printEvent renders one bus event to stdout, either as a human-readable
// line or as a JSON object, depending on the --json flag.
func printEvent(ev eventbus.Event, jsonEvents bool) {
	if jsonEvents {
		out, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Println(string(out))
		return
	}
	fmt.Printf("[%d] %s %v\n", ev.Sequence, ev.Name, ev.Payload)
}

func runScreenshot(ctx context.Context, path, outPath string) error {
	h, _, err := buildHost(path)
	if err != nil {
		return err
	}
	res, err := h.TakeScreenshot(ctx)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}

	data, err := decodeBase64JPEG(res.Base64)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	slog.Info("screenshot captured", "path", outPath, "elements", len(res.Nodes), "width", res.ScaledWidth, "height", res.ScaledHeight)
	return nil
}

func runWindowsList(ctx context.Context, path string) error {
	h, _, err := buildHost(path)
	if err != nil {
		return err
	}
	windows, err := h.ListWindows(ctx)
	if err != nil {
		return fmt.Errorf("list windows: %w", err)
	}
	for _, w := range windows {
		fmt.Printf("%d\t%s\n", w.Handle, w.Title)
	}
	return nil
}

func runWindowsFocus(ctx context.Context, path, handleArg string) error {
	h, _, err := buildHost(path)
	if err != nil {
		return err
	}
	handle, err := hostiface.ParseWindowHandle(handleArg)
	if err != nil {
		return fmt.Errorf("parse window handle %q: %w", handleArg, err)
	}
	return h.FocusWindow(ctx, handle)
}

func runShellCommand(ctx context.Context, path, command string) error {
	h, _, err := buildHost(path)
	if err != nil {
		return err
	}
	res, err := h.RunShell(ctx, command)
	if err != nil {
		return fmt.Errorf("run shell: %w", err)
	}
	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("command exited with code %d", res.ExitCode)
	}
	return nil
}

func runSettingsShow(path string) error {
	s, err := settings.Load(path)
	if err != nil {
		return err
	}
	s.APIKey = redactAPIKey(s.APIKey)
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runSettingsInit(path, provider, model, apiKey string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	s := deskagent.Settings{
		Provider:         provider,
		Model:            model,
		APIKey:           apiKey,
		MaxWidth:         1366,
		MaxHeight:        768,
		ShellTimeoutSecs: 60,
		MaxIterations:    50,
	}
	if err := settings.Save(path, s); err != nil {
		return err
	}
	slog.Info("settings written", "path", path, "provider", provider)
	return nil
}

func redactAPIKey(key string) string {
	if key == "" {
		return ""
	}
	return "***redacted***"
}

func decodeBase64JPEG(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return data, nil
}
