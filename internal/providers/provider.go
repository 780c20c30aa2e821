// Package providers adapts the three LLM wire dialects the agent loop can
// speak — Anthropic's native tool-calling with beta computer-use, OpenAI
// chat completions with function calling, and an OpenAI-compatible
// third-party endpoint — behind one synchronous Provider interface.
package providers

import (
	"context"
	"time"

	"github.com/delegant-go/deskagent/internal/deskagent"
)

// Provider is the single operation the agent loop calls once per turn: send
// the system prompt, full conversation, and tool catalogue, and get back
// the assistant's response content and stop reason.
type Provider interface {
	Send(ctx context.Context, system string, messages []deskagent.Message, tools []Tool) (deskagent.ProviderResponse, error)
}

// Tool describes one callable the model may invoke. Schema is a JSON
// Schema object describing the tool's input shape.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any

	// Computer marks the special "computer" tool, which on the Anthropic
	// dialect is expressed as a provider-native built-in (type
	// "computer_20250124") instead of a generic function schema.
	Computer bool

	// DisplayWidthPx/DisplayHeightPx/DisplayNumber accompany the computer
	// tool so the provider can tell the model the screen it's controlling.
	DisplayWidthPx  int
	DisplayHeightPx int
	DisplayNumber   int
}

// Dialect identifies which wire dialect a tool catalogue targets. The three
// provider dialects don't all get the same tools: Dialect A's native
// computer-use tool folds element addressing into the "computer" tool's own
// action vocabulary (click_element is a value of its action field), while
// Dialect B/C speak generic function calling and need a standalone
// get_element_position tool to look up a numbered element's coordinates.
type Dialect int

const (
	DialectAnthropic Dialect = iota
	DialectOpenAI
)

// DialectFor maps a settings.Provider string onto the wire dialect New would
// select for it.
func DialectFor(provider string) Dialect {
	switch provider {
	case "openai", "openai_compatible", "openrouter", "ollama":
		return DialectOpenAI
	default:
		return DialectAnthropic
	}
}

// ComputerTools builds the tool catalogue the agent loop offers a given
// dialect every turn. displayW/H are the dimensions of the (possibly
// downscaled) screenshot the model is shown, matching the screen capturer's
// ScaledWidth/ScaledHeight.
func ComputerTools(dialect Dialect, displayW, displayH int) []Tool {
	tools := []Tool{
		{
			Name:            "computer",
			Description:     "Control the mouse, keyboard, and screen.",
			Computer:        true,
			DisplayWidthPx:  displayW,
			DisplayHeightPx: displayH,
			DisplayNumber:   1,
		},
	}

	if dialect == DialectOpenAI {
		tools = append(tools, Tool{
			Name:        "get_element_position",
			Description: "Get the bounding box and center coordinates of a numbered UI element from the last screenshot.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{"type": "integer", "description": "The numbered id of the element."},
				},
				"required": []any{"id"},
			},
		})
	}

	tools = append(tools,
		Tool{
			Name:        "bash",
			Description: "Run a shell command and return its output.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{"type": "string", "description": "The shell command to run."},
				},
				"required": []any{"command"},
			},
		},
		Tool{
			Name:        "text_editor",
			Description: "View, create, or edit a text file.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command":   map[string]any{"type": "string", "enum": []any{"view", "create", "str_replace"}},
					"path":      map[string]any{"type": "string"},
					"file_text": map[string]any{"type": "string"},
					"old_str":   map[string]any{"type": "string"},
					"new_str":   map[string]any{"type": "string"},
				},
				"required": []any{"command", "path"},
			},
		},
	)
	return tools
}

// defaultRetryDelay is the 1s base delay each provider puts into
// retry.DefaultConfig (3 attempts).
func defaultRetryDelay() time.Duration { return time.Second }

// New resolves a Provider from its dialect name and settings, falling back
// to the Anthropic dialect (Dialect A) for any unrecognized provider
// string, matching the original loop_runner's `else` branch.
func New(settings deskagent.Settings) Provider {
	switch settings.Provider {
	case "openai":
		return NewOpenAIProvider(settings.APIKey, settings.Model)
	case "openai_compatible", "openrouter", "ollama":
		return NewCompatibleProvider(settings.APIKey, settings.BaseURL, settings.Model)
	default:
		return NewAnthropicProvider(settings.APIKey, settings.Model)
	}
}
