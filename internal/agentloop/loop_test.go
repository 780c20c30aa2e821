package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/delegant-go/deskagent/internal/deskagent"
	"github.com/delegant-go/deskagent/internal/eventbus"
	"github.com/delegant-go/deskagent/internal/input"
	"github.com/delegant-go/deskagent/internal/providers"
	"github.com/delegant-go/deskagent/internal/screen"
)

// fakeProvider replays a scripted sequence of responses, one per Send call.
type fakeProvider struct {
	mu        sync.Mutex
	responses []deskagent.ProviderResponse
	calls     int
}

func (f *fakeProvider) Send(ctx context.Context, system string, messages []deskagent.Message, tools []providers.Tool) (deskagent.ProviderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.responses) {
		return deskagent.ProviderResponse{StopReason: deskagent.StopEndTurn}, nil
	}
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBackend struct {
	mu     sync.Mutex
	clicks []string
}

func (f *fakeBackend) MoveTo(ctx context.Context, x, y int) error { return nil }
func (f *fakeBackend) MouseDown(ctx context.Context, button string) error {
	f.mu.Lock()
	f.clicks = append(f.clicks, "down:"+button)
	f.mu.Unlock()
	return nil
}
func (f *fakeBackend) MouseUp(ctx context.Context, button string) error {
	f.mu.Lock()
	f.clicks = append(f.clicks, "up:"+button)
	f.mu.Unlock()
	return nil
}
func (f *fakeBackend) Scroll(ctx context.Context, x, y int, direction string, amount int) error {
	return nil
}
func (f *fakeBackend) TypeText(ctx context.Context, text string) error       { return nil }
func (f *fakeBackend) PressKey(ctx context.Context, combo string) error      { return nil }
func (f *fakeBackend) KeyDown(ctx context.Context, key string) error         { return nil }
func (f *fakeBackend) KeyUp(ctx context.Context, key string) error           { return nil }
func (f *fakeBackend) CursorPosition(ctx context.Context) (int, int, error) { return 0, 0, nil }

type fixedCapturer struct{ img image.Image }

func (c fixedCapturer) Capture(ctx context.Context) (screen.Frame, error) {
	return screen.Frame{Image: c.img}, nil
}

type nodeWalker struct{ nodes []deskagent.A11yNode }

func (w nodeWalker) Snapshot(ctx context.Context) ([]deskagent.A11yNode, error) {
	return w.nodes, nil
}

type fakeOverlay struct {
	mu         sync.Mutex
	shown      int
	hidden     int
}

func (o *fakeOverlay) Show() { o.mu.Lock(); o.shown++; o.mu.Unlock() }
func (o *fakeOverlay) Hide() { o.mu.Lock(); o.hidden++; o.mu.Unlock() }

func newTestImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 100, 80))
}

func toolUse(id, name string, input any) deskagent.ContentBlock {
	raw, _ := json.Marshal(input)
	return deskagent.ToolUseBlock(id, name, raw)
}

func newTestLoop(t *testing.T) (*Loop, *fakeOverlay) {
	t.Helper()
	actuator := input.NewActuatorWithBackend(&fakeBackend{})
	svc := screen.NewService(fixedCapturer{img: newTestImage()}, nodeWalker{})
	overlay := &fakeOverlay{}

	l := New(deskagent.Settings{
		Provider:         "anthropic",
		MaxWidth:         100,
		MaxHeight:        80,
		ShellTimeoutSecs: 5,
		MaxIterations:    10,
	}, eventbus.NopPublisher{}, actuator, svc, overlay)

	return l, overlay
}

// runWithProvider miricks Loop.run but injects a fake Provider, since
// providers.New only resolves real dialects from Settings.Provider.
func runWithProvider(t *testing.T, l *Loop, provider providers.Provider, task string) {
	t.Helper()
	l.stateMu.Lock()
	l.state = deskagent.AgentState{Status: deskagent.StatusRunning, Task: task}
	l.stateMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	l.cancel = cancel
	t.Cleanup(cancel)

	emitter := eventbus.NewEmitter(uuid.New(), l.bus)

	settings := l.Settings()
	exec := &executor{
		actuator:     l.actuator,
		screenSvc:    l.screen,
		maxWidth:     settings.MaxWidth,
		maxHeight:    settings.MaxHeight,
		shellTimeout: time.Duration(settings.ShellTimeoutSecs) * time.Second,
	}
	tools := providers.ComputerTools(providers.DialectFor(settings.Provider), settings.MaxWidth, settings.MaxHeight)

	messages := []deskagent.Message{
		{Role: deskagent.RoleUser, Content: []deskagent.ContentBlock{
			deskagent.TextBlock(seedMessageText(task, settings.MaxWidth, settings.MaxHeight)),
		}},
	}

	l.overlay.Show()
	defer func() {
		emitter.CursorHide()
		l.overlay.Hide()
	}()

	var lastNodes []deskagent.A11yNode
	scaleFactor := 1.0
	iteration := 0

	for {
		if ctx.Err() != nil {
			return
		}
		l.setIteration(iteration)
		emitter.Thinking()

		resp, err := provider.Send(ctx, systemPrompt, messages, tools)
		if err != nil {
			l.setError(err)
			return
		}

		var assistantBlocks []deskagent.ContentBlock
		var toolResults []deskagent.ContentBlock
		hasToolUse := false

		for _, block := range resp.Content {
			switch block.Kind {
			case deskagent.BlockText:
				assistantBlocks = append(assistantBlocks, block)
				emitter.Message(block.Text)
			case deskagent.BlockToolUse:
				assistantBlocks = append(assistantBlocks, block)
				hasToolUse = true
				if block.ToolName == "get_element_position" {
					toolResults = append(toolResults, l.handleGetElementPosition(block, lastNodes))
					continue
				}
				act, parseErr := parseToolUse(block, scaleFactor)
				if parseErr != nil {
					toolResults = append(toolResults, deskagent.ToolResultBlock(block.ToolUseID, parseErr.Error(), true))
					continue
				}
				if act.Kind == deskagent.ActionClickElement {
					resolved, notFound, ok := resolveClickElement(block.ToolUseID, act.ElementID, lastNodes)
					if !ok {
						toolResults = append(toolResults, notFound)
						continue
					}
					act = resolved
				}
				l.dispatchAndExecute(ctx, exec, emitter, act, block.ToolUseID, &toolResults, &lastNodes, &scaleFactor)
			}
		}

		if len(assistantBlocks) > 0 {
			messages = append(messages, deskagent.Message{Role: deskagent.RoleAssistant, Content: assistantBlocks})
		}
		if len(toolResults) > 0 {
			messages = append(messages, deskagent.Message{Role: deskagent.RoleUser, Content: toolResults})
		}
		trimHistory(messages)
		l.setMessages(messages)

		if !hasToolUse && resp.StopReason == deskagent.StopEndTurn {
			emitter.Message("Task completed.")
			l.setIdle()
			return
		}
		iteration++
		if settings.MaxIterations > 0 && iteration >= settings.MaxIterations {
			l.setError(errMaxIterations)
			return
		}
	}
}

var errMaxIterations = errors.New("agent loop: max iterations reached")

func TestLoop_TextOnlyEndTurn_CompletesImmediately(t *testing.T) {
	provider := &fakeProvider{responses: []deskagent.ProviderResponse{
		{Content: []deskagent.ContentBlock{deskagent.TextBlock("done")}, StopReason: deskagent.StopEndTurn},
	}}
	l, overlay := newTestLoop(t)
	runWithProvider(t, l, provider, "say hi")

	if got := l.State().Status; got != deskagent.StatusIdle {
		t.Fatalf("status = %s, want idle", got)
	}
	if provider.callCount() != 1 {
		t.Fatalf("expected exactly one provider call, got %d", provider.callCount())
	}
	if overlay.shown != 1 || overlay.hidden != 1 {
		t.Fatalf("overlay show/hide = %d/%d, want 1/1", overlay.shown, overlay.hidden)
	}
}

func TestLoop_ScreenshotToolUse_PushesImageAndContinues(t *testing.T) {
	provider := &fakeProvider{responses: []deskagent.ProviderResponse{
		{
			Content: []deskagent.ContentBlock{
				toolUse("t1", "computer", map[string]any{"action": "screenshot"}),
			},
			StopReason: deskagent.StopToolUse,
		},
		{
			Content:    []deskagent.ContentBlock{deskagent.TextBlock("finished")},
			StopReason: deskagent.StopEndTurn,
		},
	}}
	l, _ := newTestLoop(t)
	runWithProvider(t, l, provider, "take a screenshot")

	state := l.State()
	if state.Status != deskagent.StatusIdle {
		t.Fatalf("status = %s, want idle", state.Status)
	}
	if provider.callCount() != 2 {
		t.Fatalf("expected two provider calls, got %d", provider.callCount())
	}

	foundImage := false
	for _, m := range state.Messages {
		for _, b := range m.Content {
			if b.Kind == deskagent.BlockImage {
				foundImage = true
			}
		}
	}
	if !foundImage {
		t.Fatal("expected an Image block to have been appended after a screenshot action")
	}
}

func TestLoop_ClickElement_ResolvesAgainstLastNodes(t *testing.T) {
	nodes := []deskagent.A11yNode{{ID: 1, Name: "OK", ControlType: "button", Left: 10, Top: 10, Right: 30, Bottom: 30}}
	provider := &fakeProvider{responses: []deskagent.ProviderResponse{
		{
			Content:    []deskagent.ContentBlock{toolUse("t1", "computer", map[string]any{"action": "screenshot"})},
			StopReason: deskagent.StopToolUse,
		},
		{
			Content:    []deskagent.ContentBlock{toolUse("t2", "computer", map[string]any{"action": "click_element", "id": 1})},
			StopReason: deskagent.StopToolUse,
		},
		{
			Content:    []deskagent.ContentBlock{deskagent.TextBlock("clicked")},
			StopReason: deskagent.StopEndTurn,
		},
	}}
	l, _ := newTestLoop(t)
	l.screen = screen.NewService(fixedCapturer{img: newTestImage()}, nodeWalker{nodes: nodes})

	runWithProvider(t, l, provider, "click OK")

	if l.State().Status != deskagent.StatusIdle {
		t.Fatalf("status = %s, want idle", l.State().Status)
	}

	found := false
	for _, m := range l.State().Messages {
		for _, b := range m.Content {
			if b.Kind == deskagent.BlockToolResult && b.ToolResultForID == "t2" && !b.IsError {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected a non-error tool_result for the click_element call")
	}
}

func TestLoop_UnresolvableClickElement_ReportsErrorResult(t *testing.T) {
	provider := &fakeProvider{responses: []deskagent.ProviderResponse{
		{
			Content:    []deskagent.ContentBlock{toolUse("t1", "computer", map[string]any{"action": "click_element", "id": 99})},
			StopReason: deskagent.StopToolUse,
		},
		{
			Content:    []deskagent.ContentBlock{deskagent.TextBlock("gave up")},
			StopReason: deskagent.StopEndTurn,
		},
	}}
	l, _ := newTestLoop(t)
	runWithProvider(t, l, provider, "click something that isn't there")

	foundErr := false
	for _, m := range l.State().Messages {
		for _, b := range m.Content {
			if b.Kind == deskagent.BlockToolResult && b.ToolResultForID == "t1" && b.IsError {
				foundErr = true
			}
		}
	}
	if !foundErr {
		t.Fatal("expected an error tool_result for an unresolvable element id")
	}
}

func TestLoop_AlreadyRunning_RejectsSecondStart(t *testing.T) {
	provider := &fakeProvider{responses: []deskagent.ProviderResponse{
		{Content: []deskagent.ContentBlock{deskagent.TextBlock("working")}, StopReason: deskagent.StopToolUse},
	}}
	_ = provider
	l, _ := newTestLoop(t)
	l.stateMu.Lock()
	l.state.Status = deskagent.StatusRunning
	l.stateMu.Unlock()

	if err := l.Start("anything"); err != ErrAlreadyRunning {
		t.Fatalf("Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestLoop_Stop_ResetsToIdle(t *testing.T) {
	l, _ := newTestLoop(t)
	l.stateMu.Lock()
	l.state.Status = deskagent.StatusRunning
	l.stateMu.Unlock()
	l.cancel = func() {}

	l.Stop()

	if got := l.State().Status; got != deskagent.StatusIdle {
		t.Fatalf("status after Stop() = %s, want idle", got)
	}
}
