// Package deskagent holds the data model shared by every component of the
// desktop-automation agent: conversation messages, the action vocabulary the
// agent loop dispatches, accessibility snapshots, and the process-lifetime
// agent state. Nothing in this package talks to an LLM, the OS, or a shell —
// it is the vocabulary the other packages translate into and out of.
package deskagent

import "encoding/json"

// Role identifies who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn's worth of content from one role. Order within
// Content is significant: providers and the loop both rely on it.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// BlockKind tags the variant carried by a ContentBlock.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockImage      BlockKind = "image"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ContentBlock is a tagged union over the four block shapes the conversation
// model supports. Only the fields matching Kind are populated; the rest are
// left at their zero value. Invariants (enforced by the agent loop, not by
// this type): every ToolUse in an assistant message is followed, in the next
// user message, by a ToolResult with the same ToolUseID; ToolResult and Image
// blocks appear only in user-role messages; assistant messages contain only
// Text and ToolUse blocks.
type ContentBlock struct {
	Kind BlockKind `json:"kind"`

	// Text
	Text string `json:"text,omitempty"`

	// Image
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"` // base64, encoding is always "base64"

	// ToolUse
	ToolUseID   string          `json:"id,omitempty"`
	ToolName    string          `json:"name,omitempty"`
	ToolInput   json.RawMessage `json:"input,omitempty"`

	// ToolResult
	ToolResultForID string `json:"tool_use_id,omitempty"`
	IsError         bool   `json:"is_error,omitempty"`
}

// TextBlock builds a Text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// ImageBlock builds an Image content block. Encoding is always base64.
func ImageBlock(mediaType, base64Data string) ContentBlock {
	return ContentBlock{Kind: BlockImage, MediaType: mediaType, Data: base64Data}
}

// ToolUseBlock builds a ToolUse content block.
func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Kind: BlockToolUse, ToolUseID: id, ToolName: name, ToolInput: input}
}

// ToolResultBlock builds a ToolResult content block.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Kind: BlockToolResult, ToolResultForID: toolUseID, Text: content, IsError: isError}
}

// HasImage reports whether the message carries at least one Image block.
func (m Message) HasImage() bool {
	for _, b := range m.Content {
		if b.Kind == BlockImage {
			return true
		}
	}
	return false
}

// StopReason is the provider-agnostic termination signal for one turn.
type StopReason string

const (
	StopEndTurn  StopReason = "end_turn"
	StopToolUse  StopReason = "tool_use"
)

// ProviderResponse is what every provider adapter's send operation returns.
type ProviderResponse struct {
	Content    []ContentBlock
	StopReason StopReason
}

// ActionResult is what executing a single AgentAction produces. Only a
// Screenshot action populates Base64Image and Nodes.
type ActionResult struct {
	Text        string
	Base64Image string
	MediaType   string
	Nodes       []A11yNode
	ScaleFactor float64 // only set by Screenshot; 0 means "unset"
}

// A11yNode is one retained element from an accessibility snapshot. IDs are
// assigned in traversal order starting at 1 and are valid only until the next
// Screenshot — they are not stable across captures.
type A11yNode struct {
	ID          int
	Name        string
	ControlType string
	Left, Top, Right, Bottom int
}

// CenterX and CenterY return the element's bounding-box center, the point
// click_element and get_element_position resolve to.
func (n A11yNode) CenterX() int { return n.Left + (n.Right-n.Left)/2 }
func (n A11yNode) CenterY() int { return n.Top + (n.Bottom-n.Top)/2 }

// ActionKind tags the variant carried by an AgentAction.
type ActionKind string

const (
	ActionScreenshot        ActionKind = "screenshot"
	ActionMouseMove         ActionKind = "mouse_move"
	ActionLeftClick         ActionKind = "left_click"
	ActionRightClick        ActionKind = "right_click"
	ActionDoubleClick       ActionKind = "double_click"
	ActionType              ActionKind = "type"
	ActionKey                ActionKind = "key"
	ActionScroll             ActionKind = "scroll"
	ActionWait               ActionKind = "wait"
	ActionDrag               ActionKind = "drag"
	ActionBashCommand        ActionKind = "bash_command"
	ActionTextEditorView     ActionKind = "text_editor_view"
	ActionTextEditorCreate   ActionKind = "text_editor_create"
	ActionTextEditorReplace  ActionKind = "text_editor_replace"
	ActionClickElement       ActionKind = "click_element"
)

// AgentAction is the tagged union of every operation the agent loop can
// dispatch to the input actuator, screen capturer, shell runner, or text
// editor. Only the fields relevant to Kind are populated.
type AgentAction struct {
	Kind ActionKind

	// MouseMove, LeftClick, RightClick, DoubleClick
	X, Y int

	// Type
	Text string

	// Key
	Combo string

	// Scroll
	ScrollDirection string // "up", "down", "left", "right"
	ScrollAmount    int

	// Wait
	DurationMs int

	// Drag
	StartX, StartY, EndX, EndY int

	// BashCommand
	Command string

	// TextEditorView, TextEditorCreate, TextEditorReplace
	Path    string
	Content string
	OldText string
	NewText string

	// ClickElement
	ElementID int
}

// Description returns a short human-readable summary of the action, used in
// log lines and status events.
func (a AgentAction) Description() string {
	switch a.Kind {
	case ActionScreenshot:
		return "Taking screenshot"
	case ActionMouseMove:
		return "Moving mouse"
	case ActionLeftClick:
		return "Left click"
	case ActionRightClick:
		return "Right click"
	case ActionDoubleClick:
		return "Double click"
	case ActionType:
		return "Typing text"
	case ActionKey:
		return "Pressing key: " + a.Combo
	case ActionScroll:
		return "Scrolling " + a.ScrollDirection
	case ActionWait:
		return "Waiting"
	case ActionDrag:
		return "Dragging"
	case ActionBashCommand:
		return "Running shell command"
	case ActionTextEditorView:
		return "Viewing file: " + a.Path
	case ActionTextEditorCreate:
		return "Creating file: " + a.Path
	case ActionTextEditorReplace:
		return "Editing file: " + a.Path
	case ActionClickElement:
		return "Clicking element"
	default:
		return string(a.Kind)
	}
}

// Status is the agent's run status.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusError   Status = "error"
)

// Settings holds the user-configurable knobs for a run: which provider
// dialect to speak, credentials, model selection, and the resource limits
// the screen capturer and shell runner enforce.
type Settings struct {
	Provider         string `yaml:"provider"`          // "anthropic", "openai", or "openai_compatible"
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url,omitempty"` // only used by openai_compatible
	Model            string `yaml:"model"`
	MaxWidth         int    `yaml:"max_width"`
	MaxHeight        int    `yaml:"max_height"`
	ShellTimeoutSecs int    `yaml:"shell_timeout_secs"`
	MaxIterations    int    `yaml:"max_iterations"`
	EnableThinking   bool   `yaml:"enable_thinking,omitempty"`
}

// AgentState is the process-lifetime, mutex-guarded state of a single run:
// its current status, the conversation so far, and the accessibility nodes
// retained from the most recent screenshot (the "last_nodes cache" that
// click_element and get_element_position resolve against).
type AgentState struct {
	Status    Status
	Task      string
	Messages  []Message
	LastNodes []A11yNode
	Iteration int
}

// Conversation is the ordered list of messages exchanged with the provider
// for one run, exported separately from AgentState for callers (tests,
// history-trim logic) that don't need the rest of the run state.
type Conversation struct {
	Messages []Message
}
