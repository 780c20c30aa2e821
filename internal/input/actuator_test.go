package input

import (
	"context"
	"testing"
)

type fakeBackend struct {
	moves      [][2]int
	downs      []string
	ups        []string
	typed      []string
	keys       []string
	keyDowns   []string
	keyUps     []string
	scrolls    []string
	curX       int
	curY       int
}

func (f *fakeBackend) MoveTo(ctx context.Context, x, y int) error {
	f.moves = append(f.moves, [2]int{x, y})
	f.curX, f.curY = x, y
	return nil
}
func (f *fakeBackend) MouseDown(ctx context.Context, button string) error {
	f.downs = append(f.downs, button)
	return nil
}
func (f *fakeBackend) MouseUp(ctx context.Context, button string) error {
	f.ups = append(f.ups, button)
	return nil
}
func (f *fakeBackend) Scroll(ctx context.Context, x, y int, direction string, amount int) error {
	f.scrolls = append(f.scrolls, direction)
	return nil
}
func (f *fakeBackend) TypeText(ctx context.Context, text string) error {
	f.typed = append(f.typed, text)
	return nil
}
func (f *fakeBackend) PressKey(ctx context.Context, combo string) error {
	f.keys = append(f.keys, combo)
	return nil
}
func (f *fakeBackend) KeyDown(ctx context.Context, key string) error {
	f.keyDowns = append(f.keyDowns, key)
	return nil
}
func (f *fakeBackend) KeyUp(ctx context.Context, key string) error {
	f.keyUps = append(f.keyUps, key)
	return nil
}
func (f *fakeBackend) CursorPosition(ctx context.Context) (int, int, error) {
	return f.curX, f.curY, nil
}

func TestActuator_ClickMovesThenClicks(t *testing.T) {
	fb := &fakeBackend{curX: 500, curY: 500}
	a := NewActuatorWithBackend(fb)

	if err := a.Click(context.Background(), 10, 10, "left"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fb.moves) == 0 {
		t.Fatal("expected at least one move")
	}
	last := fb.moves[len(fb.moves)-1]
	if last != [2]int{10, 10} {
		t.Fatalf("final move = %v, want [10 10]", last)
	}
	if len(fb.downs) != 1 || fb.downs[0] != "left" {
		t.Fatalf("downs = %v", fb.downs)
	}
	if len(fb.ups) != 1 || fb.ups[0] != "left" {
		t.Fatalf("ups = %v", fb.ups)
	}
}

func TestActuator_ShortHopTeleports(t *testing.T) {
	fb := &fakeBackend{curX: 100, curY: 100}
	a := NewActuatorWithBackend(fb)

	if err := a.MoveTo(context.Background(), 101, 101); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fb.moves) != 1 {
		t.Fatalf("expected exactly one move for a short hop, got %d", len(fb.moves))
	}
}

func TestActuator_DoubleClickClicksTwice(t *testing.T) {
	fb := &fakeBackend{curX: 0, curY: 0}
	a := NewActuatorWithBackend(fb)

	if err := a.DoubleClick(context.Background(), 5, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fb.downs) != 2 {
		t.Fatalf("expected 2 mouse-downs, got %d", len(fb.downs))
	}
}

func TestTranslateKeyCombo(t *testing.T) {
	cases := map[string]string{
		"ctrl+c":       "ctrl+c",
		"Return":       "Return",
		"enter":        "Return",
		"cmd+v":        "super+v",
		"ctrl+shift+t": "ctrl+shift+t",
		"f5":           "F5",
		"alt+f4":       "alt+F4",
		"capslock":     "Caps_Lock",
		"meta+tab":     "super+Tab",
		"win+d":        "super+d",
	}
	for in, want := range cases {
		if got := translateKeyCombo(in); got != want {
			t.Errorf("translateKeyCombo(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestActuator_PressKey_SingleKeyClicksOnly(t *testing.T) {
	fb := &fakeBackend{}
	a := NewActuatorWithBackend(fb)

	if err := a.PressKey(context.Background(), "Return"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fb.keys) != 1 || fb.keys[0] != "Return" {
		t.Fatalf("keys = %v, want single click of Return", fb.keys)
	}
	if len(fb.keyDowns) != 0 || len(fb.keyUps) != 0 {
		t.Fatalf("single key should not press/release modifiers, got downs=%v ups=%v", fb.keyDowns, fb.keyUps)
	}
}

func TestActuator_PressKey_ComboPressesModifiersInOrderAndReleasesInReverse(t *testing.T) {
	fb := &fakeBackend{}
	a := NewActuatorWithBackend(fb)

	if err := a.PressKey(context.Background(), "ctrl+shift+t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fb.keyDowns; len(got) != 2 || got[0] != "ctrl" || got[1] != "shift" {
		t.Fatalf("keyDowns = %v, want [ctrl shift]", got)
	}
	if len(fb.keys) != 1 || fb.keys[0] != "t" {
		t.Fatalf("keys = %v, want final key click of t", fb.keys)
	}
	if got := fb.keyUps; len(got) != 2 || got[0] != "shift" || got[1] != "ctrl" {
		t.Fatalf("keyUps = %v, want [shift ctrl] (reverse order)", got)
	}
}

func TestWindMousePoints_EndsNearTarget(t *testing.T) {
	points := WindMousePoints(0, 0, 500, 300)
	if len(points) == 0 {
		t.Fatal("expected at least one waypoint")
	}
	last := points[len(points)-1]
	dx := last.X - 500
	dy := last.Y - 300
	if dx*dx+dy*dy > 400 { // within ~20px of target
		t.Fatalf("last waypoint %v too far from target (500,300)", last)
	}
	for _, p := range points {
		if p.Wait < windMouseMinWait || p.Wait > windMouseMaxWait {
			t.Fatalf("waypoint wait %v out of [%v,%v]", p.Wait, windMouseMinWait, windMouseMaxWait)
		}
	}
}

func TestWindMousePoints_ZeroDistance(t *testing.T) {
	points := WindMousePoints(50, 50, 50, 50)
	if len(points) != 0 {
		t.Fatalf("expected no waypoints for zero-distance move, got %d", len(points))
	}
}
