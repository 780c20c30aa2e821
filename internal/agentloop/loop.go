// Package agentloop implements the perception-decision-actuation state
// machine: it seeds a conversation with the user's task, repeatedly calls
// the selected provider, translates its tool calls into AgentActions,
// executes them, and feeds the results back until the model says it's
// done or the caller cancels.
package agentloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/delegant-go/deskagent/internal/action"
	"github.com/delegant-go/deskagent/internal/deskagent"
	"github.com/delegant-go/deskagent/internal/eventbus"
	"github.com/delegant-go/deskagent/internal/input"
	"github.com/delegant-go/deskagent/internal/providers"
	"github.com/delegant-go/deskagent/internal/screen"
)

// ErrAlreadyRunning is returned by Start when a task is already in
// progress.
var ErrAlreadyRunning = errors.New("agent loop: already running")

const interActionSleep = 100 * time.Millisecond

// CursorOverlay shows or hides the on-screen cursor indicator while the
// agent is acting. The original ran this as a Tauri webview window; here
// it's an injectable no-op by default since this module has no bundled UI
// shell.
type CursorOverlay interface {
	Show()
	Hide()
}

type noopOverlay struct{}

func (noopOverlay) Show() {}
func (noopOverlay) Hide() {}

// Loop owns the process-lifetime AgentState and Settings, and runs at most
// one task at a time.
type Loop struct {
	stateMu sync.Mutex
	state   deskagent.AgentState

	settingsMu sync.RWMutex
	settings   deskagent.Settings

	bus      eventbus.Publisher
	actuator *input.Actuator
	screen   *screen.Service
	overlay  CursorOverlay

	cancel context.CancelFunc
}

// New builds a Loop. A nil overlay defaults to a no-op; a nil bus defaults
// to eventbus.NopPublisher.
func New(settings deskagent.Settings, bus eventbus.Publisher, actuator *input.Actuator, screenSvc *screen.Service, overlay CursorOverlay) *Loop {
	if overlay == nil {
		overlay = noopOverlay{}
	}
	if bus == nil {
		bus = eventbus.NopPublisher{}
	}
	return &Loop{
		settings: settings,
		bus:      bus,
		actuator: actuator,
		screen:   screenSvc,
		overlay:  overlay,
		state:    deskagent.AgentState{Status: deskagent.StatusIdle},
	}
}

// State returns a copy of the current AgentState.
func (l *Loop) State() deskagent.AgentState {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.state
}

// Settings returns a copy of the current Settings.
func (l *Loop) Settings() deskagent.Settings {
	l.settingsMu.RLock()
	defer l.settingsMu.RUnlock()
	return l.settings
}

// UpdateSettings replaces the current Settings. Safe to call while a task
// is running; the new values take effect on the next Start.
func (l *Loop) UpdateSettings(s deskagent.Settings) {
	l.settingsMu.Lock()
	defer l.settingsMu.Unlock()
	l.settings = s
}

// Start begins a new task, rejecting the request if one is already
// running. The loop runs on its own goroutine; callers observe progress
// via the event bus and State().
func (l *Loop) Start(task string) error {
	l.stateMu.Lock()
	if l.state.Status == deskagent.StatusRunning {
		l.stateMu.Unlock()
		return ErrAlreadyRunning
	}
	l.state = deskagent.AgentState{Status: deskagent.StatusRunning, Task: task}
	l.stateMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	runID := uuid.New()
	emitter := eventbus.NewEmitter(runID, l.bus)

	go l.run(ctx, task, emitter)
	return nil
}

// Stop cancels the running task, if any, and resets to Idle. Idempotent.
func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.stateMu.Lock()
	l.state = deskagent.AgentState{Status: deskagent.StatusIdle}
	l.stateMu.Unlock()
}

func (l *Loop) run(ctx context.Context, task string, emitter *eventbus.Emitter) {
	settings := l.Settings()
	provider := providers.New(settings)
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
			emitter.StatusChanged("error:" + err.Error())
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
				if secs, ok := extractEstimatedSeconds(block.Text); ok {
					emitter.EstimatedTime(secs)
				}

			case deskagent.BlockToolUse:
				assistantBlocks = append(assistantBlocks, block)
				hasToolUse = true

				if block.ToolName == "get_element_position" {
					toolResults = append(toolResults, l.handleGetElementPosition(block, lastNodes))
					time.Sleep(interActionSleep)
					continue
				}

				act, parseErr := parseToolUse(block, scaleFactor)
				if parseErr != nil {
					toolResults = append(toolResults, deskagent.ToolResultBlock(block.ToolUseID, parseErr.Error(), true))
					continue
				}

				// click_element arrives as an action on the "computer" tool
				// rather than a standalone tool call; resolve it against the
				// last screenshot's accessibility nodes before dispatch.
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
			emitter.Message(fmt.Sprintf("Stopped after reaching the %d-iteration limit.", settings.MaxIterations))
			l.setError(errors.New("agent loop: max iterations reached"))
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// dispatchAndExecute emits the pre-execution events, runs the action, and
// appends the resulting ToolResult(s) — including the Screenshot
// double-push and last_nodes/scaleFactor refresh.
func (l *Loop) dispatchAndExecute(
	ctx context.Context,
	exec *executor,
	emitter *eventbus.Emitter,
	act deskagent.AgentAction,
	toolUseID string,
	toolResults *[]deskagent.ContentBlock,
	lastNodes *[]deskagent.A11yNode,
	scaleFactor *float64,
) {
	emitter.ActionExecuted(act.Description(), "")
	emitPositionalEvents(emitter, act)

	result, err := exec.execute(ctx, act)
	if err != nil {
		*toolResults = append(*toolResults, deskagent.ToolResultBlock(toolUseID, fmt.Sprintf("Error: %s", err), true))
		time.Sleep(interActionSleep)
		return
	}

	if act.Kind == deskagent.ActionScreenshot {
		*lastNodes = result.Nodes
		l.stateMu.Lock()
		l.state.LastNodes = result.Nodes
		l.stateMu.Unlock()
		if result.ScaleFactor > 0 {
			*scaleFactor = result.ScaleFactor
		}
		emitter.ScreenshotUpdated(result.Base64Image, domText(result.Nodes))

		*toolResults = append(*toolResults, deskagent.ToolResultBlock(toolUseID, screenshotSummary(result.Nodes), false))
		*toolResults = append(*toolResults, deskagent.ImageBlock(result.MediaType, result.Base64Image))
	} else {
		*toolResults = append(*toolResults, deskagent.ToolResultBlock(toolUseID, result.Text, false))
	}

	time.Sleep(interActionSleep)
}

func emitPositionalEvents(emitter *eventbus.Emitter, act deskagent.AgentAction) {
	switch act.Kind {
	case deskagent.ActionMouseMove, deskagent.ActionLeftClick, deskagent.ActionRightClick, deskagent.ActionDoubleClick:
		emitter.CursorMoved(act.X, act.Y)
		if act.Kind != deskagent.ActionMouseMove {
			emitter.CursorClick(act.X, act.Y)
		}
	case deskagent.ActionDrag:
		emitter.CursorMoved(act.EndX, act.EndY)
	}
}

func domText(nodes []deskagent.A11yNode) string {
	text := "Screenshot taken.\n\nAccessibility Tree (UI Elements):\n"
	for _, n := range nodes {
		text += fmt.Sprintf("[%d] %s \"%s\"\n", n.ID, n.ControlType, n.Name)
	}
	return text
}

func screenshotSummary(nodes []deskagent.A11yNode) string {
	return domText(nodes)
}

func parseToolUse(block deskagent.ContentBlock, scaleFactor float64) (deskagent.AgentAction, error) {
	switch block.ToolName {
	case "computer":
		return action.ParseComputerTool(block.ToolInput, scaleFactor)
	case "bash":
		return action.ParseBashTool(block.ToolInput)
	case "text_editor":
		return action.ParseTextEditorTool(block.ToolInput)
	default:
		return deskagent.AgentAction{}, fmt.Errorf("unknown tool: %s", block.ToolName)
	}
}

func (l *Loop) handleGetElementPosition(block deskagent.ContentBlock, lastNodes []deskagent.A11yNode) deskagent.ContentBlock {
	id, err := action.ParseGetElementPosition(block.ToolInput)
	if err != nil {
		return deskagent.ToolResultBlock(block.ToolUseID, err.Error(), true)
	}
	for _, n := range lastNodes {
		if n.ID == id {
			text := fmt.Sprintf("Element [%d] center: (%d, %d), bounds: (%d, %d, %d, %d)",
				n.ID, n.CenterX(), n.CenterY(), n.Left, n.Top, n.Right, n.Bottom)
			return deskagent.ToolResultBlock(block.ToolUseID, text, false)
		}
	}
	return deskagent.ToolResultBlock(block.ToolUseID, fmt.Sprintf("Element [%d] not found", id), true)
}

// resolveClickElement turns a click_element action's element id into a
// concrete left-click at that element's center, using the accessibility
// nodes captured by the last screenshot.
func resolveClickElement(toolUseID string, id int, lastNodes []deskagent.A11yNode) (deskagent.AgentAction, deskagent.ContentBlock, bool) {
	for _, n := range lastNodes {
		if n.ID == id {
			return deskagent.AgentAction{Kind: deskagent.ActionLeftClick, X: n.CenterX(), Y: n.CenterY()}, deskagent.ContentBlock{}, true
		}
	}
	return deskagent.AgentAction{}, deskagent.ToolResultBlock(toolUseID, fmt.Sprintf("Element [%d] not found", id), true), false
}

func (l *Loop) setIteration(n int) {
	l.stateMu.Lock()
	l.state.Iteration = n
	l.stateMu.Unlock()
}

func (l *Loop) setMessages(messages []deskagent.Message) {
	l.stateMu.Lock()
	l.state.Messages = messages
	l.stateMu.Unlock()
}

func (l *Loop) setError(err error) {
	l.stateMu.Lock()
	l.state.Status = deskagent.StatusError
	l.stateMu.Unlock()
}

func (l *Loop) setIdle() {
	l.stateMu.Lock()
	l.state.Status = deskagent.StatusIdle
	l.stateMu.Unlock()
}
