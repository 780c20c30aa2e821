// Package action translates a provider's tool_use blocks into the
// deskagent.AgentAction vocabulary the agent loop executes. Coordinate
// scaling happens here, at the parse boundary, so every downstream
// consumer of an AgentAction already works in real screen coordinates.
package action

import (
	"encoding/json"
	"fmt"

	"github.com/delegant-go/deskagent/internal/deskagent"
)

// ErrUnknownAction is returned when a "computer" tool call's action field
// doesn't match one of the recognized action names.
type ErrUnknownAction struct{ Name string }

func (e ErrUnknownAction) Error() string { return fmt.Sprintf("unknown action: %s", e.Name) }

type rawInput struct {
	Action          string `json:"action"`
	Coordinate      []int  `json:"coordinate"`
	StartCoordinate []int  `json:"start_coordinate"`
	EndCoordinate   []int  `json:"end_coordinate"`
	Text            string `json:"text"`
	Command         string `json:"command"`
	Path            string `json:"path"`
	FileText        string `json:"file_text"`
	OldStr          string `json:"old_str"`
	NewStr          string `json:"new_str"`
	ScrollDirection string `json:"scroll_direction"`
	ScrollAmount    *int   `json:"scroll_amount"`
	Duration        *int   `json:"duration"`
	ID              *int   `json:"id"`
}

// scaleCoord converts a coordinate reported against the (possibly
// downsized) screenshot back into real screen pixels. Truncation is toward
// zero, matching the original's `(v as f64 / scale_factor) as i32` cast.
func scaleCoord(v int, scaleFactor float64) int {
	return int(float64(v) / scaleFactor)
}

func parseCoords(coords []int, scaleFactor float64) (x, y int) {
	if len(coords) > 0 {
		x = scaleCoord(coords[0], scaleFactor)
	}
	if len(coords) > 1 {
		y = scaleCoord(coords[1], scaleFactor)
	}
	return x, y
}

// ParseComputerTool parses the input for the "computer" tool into an
// AgentAction, scaling any coordinates by scaleFactor (the same factor the
// preceding screenshot was downsized by; pass 1.0 if the screenshot wasn't
// scaled).
func ParseComputerTool(input json.RawMessage, scaleFactor float64) (deskagent.AgentAction, error) {
	var raw rawInput
	if err := json.Unmarshal(input, &raw); err != nil {
		return deskagent.AgentAction{}, fmt.Errorf("parse computer action: %w", err)
	}

	switch raw.Action {
	case "screenshot":
		return deskagent.AgentAction{Kind: deskagent.ActionScreenshot}, nil

	case "cursor_position":
		return deskagent.AgentAction{Kind: deskagent.ActionMouseMove}, nil

	case "mouse_move":
		x, y := parseCoords(raw.Coordinate, scaleFactor)
		return deskagent.AgentAction{Kind: deskagent.ActionMouseMove, X: x, Y: y}, nil

	case "left_click":
		x, y := parseCoords(raw.Coordinate, scaleFactor)
		return deskagent.AgentAction{Kind: deskagent.ActionLeftClick, X: x, Y: y}, nil

	case "right_click":
		x, y := parseCoords(raw.Coordinate, scaleFactor)
		return deskagent.AgentAction{Kind: deskagent.ActionRightClick, X: x, Y: y}, nil

	case "double_click":
		x, y := parseCoords(raw.Coordinate, scaleFactor)
		return deskagent.AgentAction{Kind: deskagent.ActionDoubleClick, X: x, Y: y}, nil

	case "type":
		return deskagent.AgentAction{Kind: deskagent.ActionType, Text: raw.Text}, nil

	case "key":
		return deskagent.AgentAction{Kind: deskagent.ActionKey, Combo: raw.Text}, nil

	case "scroll":
		x, y := parseCoords(raw.Coordinate, scaleFactor)
		direction := raw.ScrollDirection
		if direction == "" {
			direction = "down"
		}
		amount := 3
		if raw.ScrollAmount != nil {
			amount = *raw.ScrollAmount
		}
		return deskagent.AgentAction{
			Kind: deskagent.ActionScroll, X: x, Y: y,
			ScrollDirection: direction, ScrollAmount: amount,
		}, nil

	case "wait":
		duration := 1000
		if raw.Duration != nil {
			duration = *raw.Duration
		}
		return deskagent.AgentAction{Kind: deskagent.ActionWait, DurationMs: duration}, nil

	case "drag":
		if len(raw.StartCoordinate) < 2 {
			return deskagent.AgentAction{}, fmt.Errorf("drag: missing start_coordinate")
		}
		if len(raw.EndCoordinate) < 2 {
			return deskagent.AgentAction{}, fmt.Errorf("drag: missing end_coordinate")
		}
		sx, sy := parseCoords(raw.StartCoordinate, scaleFactor)
		ex, ey := parseCoords(raw.EndCoordinate, scaleFactor)
		return deskagent.AgentAction{
			Kind: deskagent.ActionDrag, StartX: sx, StartY: sy, EndX: ex, EndY: ey,
		}, nil

	case "click_element":
		if raw.ID == nil {
			return deskagent.AgentAction{}, fmt.Errorf("click_element: missing id")
		}
		return deskagent.AgentAction{Kind: deskagent.ActionClickElement, ElementID: *raw.ID}, nil

	default:
		return deskagent.AgentAction{}, ErrUnknownAction{Name: raw.Action}
	}
}

// ParseBashTool parses the input for the "bash" tool.
func ParseBashTool(input json.RawMessage) (deskagent.AgentAction, error) {
	var raw rawInput
	if err := json.Unmarshal(input, &raw); err != nil {
		return deskagent.AgentAction{}, fmt.Errorf("parse bash action: %w", err)
	}
	return deskagent.AgentAction{Kind: deskagent.ActionBashCommand, Command: raw.Command}, nil
}

// ParseTextEditorTool parses the input for the "text_editor" tool. The
// command field selects among view, create, and str_replace.
func ParseTextEditorTool(input json.RawMessage) (deskagent.AgentAction, error) {
	var raw rawInput
	if err := json.Unmarshal(input, &raw); err != nil {
		return deskagent.AgentAction{}, fmt.Errorf("parse text_editor action: %w", err)
	}

	switch raw.Command {
	case "view":
		return deskagent.AgentAction{Kind: deskagent.ActionTextEditorView, Path: raw.Path}, nil
	case "create":
		return deskagent.AgentAction{Kind: deskagent.ActionTextEditorCreate, Path: raw.Path, Content: raw.FileText}, nil
	case "str_replace":
		return deskagent.AgentAction{
			Kind: deskagent.ActionTextEditorReplace, Path: raw.Path,
			OldText: raw.OldStr, NewText: raw.NewStr,
		}, nil
	default:
		return deskagent.AgentAction{}, fmt.Errorf("unknown text_editor command: %s", raw.Command)
	}
}

// ParseClickElement parses the input for the "click_element" tool. The
// element id is resolved against the last_nodes cache by the caller, not
// here — this just extracts the id.
func ParseClickElement(input json.RawMessage) (id int, err error) {
	var raw rawInput
	if err := json.Unmarshal(input, &raw); err != nil {
		return 0, fmt.Errorf("parse click_element action: %w", err)
	}
	if raw.ID == nil {
		return 0, fmt.Errorf("click_element: missing id")
	}
	return *raw.ID, nil
}

// ParseGetElementPosition parses the input for the "get_element_position"
// tool, returning the referenced element id.
func ParseGetElementPosition(input json.RawMessage) (id int, err error) {
	return ParseClickElement(input)
}
