package input

import "strings"

// namedKeys maps the key names the provider's "key" action uses onto the
// xdotool key names (which also happen to match most cliclick names).
// Matches the original computer-use tool's supported combo vocabulary.
var namedKeys = map[string]string{
	"return":    "Return",
	"enter":     "Return",
	"tab":       "Tab",
	"escape":    "Escape",
	"esc":       "Escape",
	"space":     "space",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Page_Up",
	"pagedown":  "Page_Down",
	"f1":        "F1",
	"f2":        "F2",
	"f3":        "F3",
	"f4":        "F4",
	"f5":        "F5",
	"f6":        "F6",
	"f7":        "F7",
	"f8":        "F8",
	"f9":        "F9",
	"f10":       "F10",
	"f11":       "F11",
	"f12":       "F12",
	"capslock":  "Caps_Lock",
	"ctrl":      "ctrl",
	"control":   "ctrl",
	"alt":       "alt",
	"shift":     "shift",
	"cmd":       "super",
	"super":     "super",
	"meta":      "super",
	"win":       "super",
	"command":   "super",
}

// translateKey maps a single key name (one segment of a combo, already
// split on "+") onto its platform key name, passing unrecognized names
// (single characters, OS-native names already correct) through unchanged.
func translateKey(key string) string {
	lower := strings.ToLower(strings.TrimSpace(key))
	if mapped, ok := namedKeys[lower]; ok {
		return mapped
	}
	return key
}

// splitKeyCombo splits a combo like "ctrl+shift+t" into its segments,
// trimming whitespace around each.
func splitKeyCombo(combo string) []string {
	parts := strings.Split(combo, "+")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// translateKeyCombo normalizes a combo like "ctrl+shift+t" into xdotool's
// "+"-joined modifier syntax, mapping named keys and passing single
// characters through unchanged.
func translateKeyCombo(combo string) string {
	parts := splitKeyCombo(combo)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, translateKey(p))
	}
	return strings.Join(out, "+")
}
