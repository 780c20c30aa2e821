package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/delegant-go/deskagent/internal/deskagent"
	"github.com/delegant-go/deskagent/internal/retry"
)

// AnthropicProvider speaks Dialect A: Anthropic's native tool-calling
// format with the beta computer-use tool, via the maintained Go SDK.
type AnthropicProvider struct {
	client       anthropic.Client
	defaultModel string
	retryConfig  retry.Config
}

// NewAnthropicProvider builds a Dialect A provider. An empty model falls
// back to the current Sonnet release.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	cfg := retry.DefaultConfig()
	cfg.InitialDelay = defaultRetryDelay()
	return &AnthropicProvider{client: client, defaultModel: model, retryConfig: cfg}
}

func (p *AnthropicProvider) Send(ctx context.Context, system string, messages []deskagent.Message, tools []Tool) (deskagent.ProviderResponse, error) {
	apiMessages, err := convertMessagesBeta(messages)
	if err != nil {
		return deskagent.ProviderResponse{}, fmt.Errorf("anthropic: convert messages: %w", err)
	}

	apiTools, err := convertToolsBeta(tools)
	if err != nil {
		return deskagent.ProviderResponse{}, fmt.Errorf("anthropic: convert tools: %w", err)
	}

	params := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(p.defaultModel),
		Messages:  apiMessages,
		MaxTokens: 4096,
		Betas:     []anthropic.AnthropicBeta{anthropic.AnthropicBetaComputerUse2025_01_24},
		Tools:     apiTools,
	}
	if system != "" {
		params.System = []anthropic.BetaTextBlockParam{{Text: system}}
	}

	resp, result := retry.DoWithValue(ctx, p.retryConfig, func() (deskagent.ProviderResponse, error) {
		stream := p.client.Beta.Messages.NewStreaming(ctx, params)
		return drainBetaStream(stream)
	})
	if result.Err != nil {
		return deskagent.ProviderResponse{}, fmt.Errorf("anthropic: %w", result.Err)
	}

	return resp, nil
}

// drainBetaStream consumes a beta SSE stream to completion and assembles
// the single synchronous response the agent loop's contract expects.
// Matches the event handling of the teacher's processBetaStream, minus the
// incremental channel emission this package's send() doesn't need.
func drainBetaStream(stream *ssestream.Stream[anthropic.BetaRawMessageStreamEventUnion]) (deskagent.ProviderResponse, error) {
	var (
		blocks       []deskagent.ContentBlock
		stopReason   = deskagent.StopEndTurn
		textBuilder  strings.Builder
		inText       bool
		toolID       string
		toolName     string
		toolInput    strings.Builder
		inToolUse    bool
	)

	flushText := func() {
		if inText && textBuilder.Len() > 0 {
			blocks = append(blocks, deskagent.TextBlock(textBuilder.String()))
		}
		textBuilder.Reset()
		inText = false
	}
	flushToolUse := func() {
		if inToolUse {
			blocks = append(blocks, deskagent.ToolUseBlock(toolID, toolName, json.RawMessage(toolInput.String())))
		}
		toolInput.Reset()
		inToolUse = false
	}

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "content_block_start":
			start := event.AsContentBlockStart()
			switch start.ContentBlock.Type {
			case "text":
				inText = true
			case "tool_use":
				toolUse := start.ContentBlock.AsToolUse()
				toolID = toolUse.ID
				toolName = toolUse.Name
				inToolUse = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				textBuilder.WriteString(delta.Text)
			case "input_json_delta":
				toolInput.WriteString(delta.PartialJSON)
			}

		case "content_block_stop":
			flushText()
			flushToolUse()

		case "message_delta":
			if reason := string(event.AsMessageDelta().Delta.StopReason); reason == "tool_use" {
				stopReason = deskagent.StopToolUse
			}

		case "message_stop":
			return deskagent.ProviderResponse{Content: blocks, StopReason: stopReason}, nil
		}
	}

	if err := stream.Err(); err != nil {
		return deskagent.ProviderResponse{}, err
	}
	return deskagent.ProviderResponse{Content: blocks, StopReason: stopReason}, nil
}

func convertMessagesBeta(messages []deskagent.Message) ([]anthropic.BetaMessageParam, error) {
	var result []anthropic.BetaMessageParam
	for _, m := range messages {
		var content []anthropic.BetaContentBlockParamUnion
		for _, b := range m.Content {
			switch b.Kind {
			case deskagent.BlockText:
				content = append(content, anthropic.NewBetaTextBlock(b.Text))

			case deskagent.BlockImage:
				mt, ok := betaMediaType(b.MediaType)
				if !ok {
					continue
				}
				content = append(content, anthropic.BetaContentBlockParamUnion{
					OfImage: &anthropic.BetaImageBlockParam{
						Source: anthropic.BetaImageBlockParamSourceUnion{
							OfBase64: &anthropic.BetaBase64ImageSourceParam{Data: b.Data, MediaType: mt},
						},
					},
				})

			case deskagent.BlockToolUse:
				var input map[string]any
				if len(b.ToolInput) > 0 {
					if err := json.Unmarshal(b.ToolInput, &input); err != nil {
						return nil, fmt.Errorf("tool_use input for %s: %w", b.ToolName, err)
					}
				}
				content = append(content, anthropic.NewBetaToolUseBlock(b.ToolUseID, input, b.ToolName))

			case deskagent.BlockToolResult:
				toolBlock := anthropic.BetaToolResultBlockParam{ToolUseID: b.ToolResultForID}
				if b.IsError {
					toolBlock.IsError = anthropic.Bool(true)
				}
				toolBlock.Content = []anthropic.BetaToolResultBlockParamContentUnion{
					{OfText: &anthropic.BetaTextBlockParam{Text: b.Text}},
				}
				content = append(content, anthropic.BetaContentBlockParamUnion{OfToolResult: &toolBlock})
			}
		}

		role := anthropic.BetaMessageParamRoleUser
		if m.Role == deskagent.RoleAssistant {
			role = anthropic.BetaMessageParamRoleAssistant
		}
		result = append(result, anthropic.BetaMessageParam{Role: role, Content: content})
	}
	return result, nil
}

func betaMediaType(mediaType string) (anthropic.BetaBase64ImageSourceMediaType, bool) {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return anthropic.BetaBase64ImageSourceMediaTypeImageJPEG, true
	case "image/png":
		return anthropic.BetaBase64ImageSourceMediaTypeImagePNG, true
	default:
		return "", false
	}
}

// dialectATools restricts a tool catalogue to the built-in tags Dialect A
// actually supports. get_element_position is a Dialect B/C concept (the
// Anthropic dialect resolves element ids through the computer tool's own
// click_element action instead), so it's dropped here even if the caller
// handed in a mixed list.
func dialectATools(tools []Tool) []Tool {
	var out []Tool
	for _, t := range tools {
		switch t.Name {
		case "computer", "bash", "text_editor":
			out = append(out, t)
		}
	}
	return out
}

func convertToolsBeta(tools []Tool) ([]anthropic.BetaToolUnionParam, error) {
	var result []anthropic.BetaToolUnionParam
	for _, t := range dialectATools(tools) {
		if t.Computer {
			param := anthropic.BetaToolUnionParamOfComputerUseTool20250124(int64(t.DisplayHeightPx), int64(t.DisplayWidthPx))
			if param.OfComputerUseTool20250124 != nil && t.DisplayNumber > 0 {
				param.OfComputerUseTool20250124.DisplayNumber = anthropic.Int(int64(t.DisplayNumber))
			}
			result = append(result, param)
			continue
		}

		schemaBytes, err := json.Marshal(t.Schema)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %s: %w", t.Name, err)
		}
		var schema anthropic.BetaToolInputSchemaParam
		if err := json.Unmarshal(schemaBytes, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", t.Name, err)
		}

		toolParam := anthropic.BetaToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s", t.Name)
		}
		toolParam.OfTool.Description = anthropic.String(t.Description)
		result = append(result, toolParam)
	}
	return result, nil
}

