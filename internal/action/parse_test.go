package action

import (
	"encoding/json"
	"testing"

	"github.com/delegant-go/deskagent/internal/deskagent"
)

func TestParseComputerTool_ScalesCoordinates(t *testing.T) {
	input := json.RawMessage(`{"action":"left_click","coordinate":[100,50]}`)
	got, err := ParseComputerTool(input, 2.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != deskagent.ActionLeftClick || got.X != 50 || got.Y != 25 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseComputerTool_ScaleTruncatesTowardZero(t *testing.T) {
	input := json.RawMessage(`{"action":"mouse_move","coordinate":[8,8]}`)
	got, err := ParseComputerTool(input, 3.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 8/3.0 = 2.666... truncates to 2; rounding would give 3.
	if got.X != 2 || got.Y != 2 {
		t.Fatalf("got x=%d y=%d, want 2,2", got.X, got.Y)
	}
}

func TestParseComputerTool_ScrollDefaults(t *testing.T) {
	input := json.RawMessage(`{"action":"scroll","coordinate":[0,0]}`)
	got, err := ParseComputerTool(input, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ScrollDirection != "down" || got.ScrollAmount != 3 {
		t.Fatalf("got direction=%q amount=%d, want down,3", got.ScrollDirection, got.ScrollAmount)
	}
}

func TestParseComputerTool_WaitDefaultDuration(t *testing.T) {
	input := json.RawMessage(`{"action":"wait"}`)
	got, err := ParseComputerTool(input, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DurationMs != 1000 {
		t.Fatalf("got duration=%d, want 1000", got.DurationMs)
	}
}

func TestParseComputerTool_UnknownAction(t *testing.T) {
	input := json.RawMessage(`{"action":"teleport"}`)
	_, err := ParseComputerTool(input, 1.0)
	if _, ok := err.(ErrUnknownAction); !ok {
		t.Fatalf("got err=%v, want ErrUnknownAction", err)
	}
}

func TestParseComputerTool_Drag(t *testing.T) {
	input := json.RawMessage(`{"action":"drag","start_coordinate":[10,20],"end_coordinate":[30,40]}`)
	got, err := ParseComputerTool(input, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != deskagent.ActionDrag || got.StartX != 10 || got.StartY != 20 || got.EndX != 30 || got.EndY != 40 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseComputerTool_Drag_MissingStartCoordinate(t *testing.T) {
	input := json.RawMessage(`{"action":"drag","end_coordinate":[30,40]}`)
	if _, err := ParseComputerTool(input, 1.0); err == nil {
		t.Fatal("expected error for missing start_coordinate")
	}
}

func TestParseComputerTool_Drag_MissingEndCoordinate(t *testing.T) {
	input := json.RawMessage(`{"action":"drag","start_coordinate":[10,20]}`)
	if _, err := ParseComputerTool(input, 1.0); err == nil {
		t.Fatal("expected error for missing end_coordinate")
	}
}

func TestParseComputerTool_ClickElement(t *testing.T) {
	input := json.RawMessage(`{"action":"click_element","id":9}`)
	got, err := ParseComputerTool(input, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != deskagent.ActionClickElement || got.ElementID != 9 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseComputerTool_ClickElement_MissingID(t *testing.T) {
	input := json.RawMessage(`{"action":"click_element"}`)
	if _, err := ParseComputerTool(input, 1.0); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestParseTextEditorTool_StrReplace(t *testing.T) {
	input := json.RawMessage(`{"command":"str_replace","path":"/tmp/f.txt","old_str":"a","new_str":"b"}`)
	got, err := ParseTextEditorTool(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != deskagent.ActionTextEditorReplace || got.OldText != "a" || got.NewText != "b" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseClickElement(t *testing.T) {
	input := json.RawMessage(`{"id":7}`)
	id, err := ParseClickElement(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 7 {
		t.Fatalf("got id=%d, want 7", id)
	}
}

func TestParseClickElement_MissingID(t *testing.T) {
	input := json.RawMessage(`{}`)
	if _, err := ParseClickElement(input); err == nil {
		t.Fatal("expected error for missing id")
	}
}
