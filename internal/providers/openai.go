package providers

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/delegant-go/deskagent/internal/deskagent"
	"github.com/delegant-go/deskagent/internal/retry"
)

// OpenAIProvider speaks Dialect B: OpenAI chat completions with function
// calling, via sashabaranov/go-openai.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
	retryConfig  retry.Config
}

// NewOpenAIProvider builds a Dialect B provider against the public OpenAI
// API.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4o
	}
	cfg := retry.DefaultConfig()
	cfg.InitialDelay = defaultRetryDelay()
	return &OpenAIProvider{client: openai.NewClient(apiKey), defaultModel: model, retryConfig: cfg}
}

// NewCompatibleProvider builds a Dialect C provider: the same chat
// completions wire format, but pointed at a custom base URL (OpenRouter,
// Ollama's OpenAI-compatible endpoint, etc), with an optional API key.
func NewCompatibleProvider(apiKey, baseURL, model string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	cfg := retry.DefaultConfig()
	cfg.InitialDelay = defaultRetryDelay()
	return &OpenAIProvider{client: openai.NewClientWithConfig(config), defaultModel: model, retryConfig: cfg}
}

func (p *OpenAIProvider) Send(ctx context.Context, system string, messages []deskagent.Message, tools []Tool) (deskagent.ProviderResponse, error) {
	chatMessages, err := convertMessagesOpenAI(system, messages)
	if err != nil {
		return deskagent.ProviderResponse{}, fmt.Errorf("openai: convert messages: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:    p.defaultModel,
		Messages: chatMessages,
		Tools:    convertToolsOpenAI(tools),
	}

	resp, result := retry.DoWithValue(ctx, p.retryConfig, func() (openai.ChatCompletionResponse, error) {
		return p.client.CreateChatCompletion(ctx, req)
	})
	if result.Err != nil {
		return deskagent.ProviderResponse{}, fmt.Errorf("openai: %w", result.Err)
	}

	return convertResponseOpenAI(resp), nil
}

func convertMessagesOpenAI(system string, messages []deskagent.Message) ([]openai.ChatCompletionMessage, error) {
	var result []openai.ChatCompletionMessage
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == deskagent.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}

		var text string
		var images []openai.ChatMessagePart
		var toolCalls []openai.ToolCall

		for _, b := range m.Content {
			switch b.Kind {
			case deskagent.BlockText:
				text += b.Text

			case deskagent.BlockImage:
				images = append(images, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", b.MediaType, b.Data),
					},
				})

			case deskagent.BlockToolUse:
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   b.ToolUseID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      b.ToolName,
						Arguments: string(b.ToolInput),
					},
				})

			case deskagent.BlockToolResult:
				// Tool results are independent chat messages in OpenAI's
				// dialect, emitted immediately below instead of folded
				// into this message's content.
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    b.Text,
					ToolCallID: b.ToolResultForID,
				})
			}
		}

		if text == "" && len(images) == 0 && len(toolCalls) == 0 {
			continue
		}

		msg := openai.ChatCompletionMessage{Role: role, ToolCalls: toolCalls}
		if len(images) > 0 {
			parts := append([]openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: text}}, images...)
			msg.MultiContent = parts
		} else {
			msg.Content = text
		}
		if text != "" || len(toolCalls) > 0 || len(images) > 0 {
			result = append(result, msg)
		}
	}

	return result, nil
}

func convertToolsOpenAI(tools []Tool) []openai.Tool {
	var result []openai.Tool
	for _, t := range tools {
		if !t.Computer && t.Schema == nil {
			// A function tool with no parameters schema isn't callable
			// under chat completions; drop it rather than send a
			// function definition the model can't invoke meaningfully.
			continue
		}
		schema := t.Schema
		if t.Computer {
			// The OpenAI dialect has no native computer-use built-in;
			// expose it as an ordinary function tool with a schema
			// mirroring the original parse_computer_action vocabulary.
			schema = computerToolSchema()
		}
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}
	return result
}

func computerToolSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []any{
					"screenshot", "click_element", "mouse_move", "left_click",
					"right_click", "double_click", "type", "key", "scroll",
					"wait", "drag",
				},
			},
			"id":               map[string]any{"type": "integer", "description": "Element id to click, from the accessibility tree."},
			"coordinate":       map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
			"start_coordinate": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}, "description": "[x, y] start position for drag."},
			"end_coordinate":   map[string]any{"type": "array", "items": map[string]any{"type": "integer"}, "description": "[x, y] end position for drag."},
			"text":             map[string]any{"type": "string", "description": "Text to type or key combo to press (e.g. 'Return', 'ctrl+c')."},
			"scroll_direction": map[string]any{"type": "string", "enum": []any{"up", "down"}},
			"scroll_amount":    map[string]any{"type": "integer"},
			"duration":         map[string]any{"type": "integer"},
		},
		"required": []any{"action"},
	}
}

func convertResponseOpenAI(resp openai.ChatCompletionResponse) deskagent.ProviderResponse {
	if len(resp.Choices) == 0 {
		return deskagent.ProviderResponse{StopReason: deskagent.StopEndTurn}
	}
	choice := resp.Choices[0]

	var blocks []deskagent.ContentBlock
	if choice.Message.Content != "" {
		blocks = append(blocks, deskagent.TextBlock(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		blocks = append(blocks, deskagent.ToolUseBlock(tc.ID, tc.Function.Name, json.RawMessage(tc.Function.Arguments)))
	}

	stopReason := deskagent.StopEndTurn
	if choice.FinishReason == openai.FinishReasonToolCalls {
		stopReason = deskagent.StopToolUse
	}

	return deskagent.ProviderResponse{Content: blocks, StopReason: stopReason}
}
