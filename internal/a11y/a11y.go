// Package a11y walks the desktop's accessibility tree and returns a
// filtered, capped list of interactive elements for Set-of-Mark annotation
// and click_element resolution. There is no cross-platform Go UI-automation
// library in reach (the original relies on Windows' UIAutomation), so the
// traversal itself is behind an injectable TreeSource and the default backend
// is a best-effort, empty-on-unsupported-platform implementation.
package a11y

import (
	"context"
	"runtime"
	"strings"

	"github.com/delegant-go/deskagent/internal/deskagent"
)

// maxNodes caps how many elements a single snapshot can retain, bounding
// the size of the prompt text and the SoM overlay.
const maxNodes = 300

// allowedControlTypes is the substring allowlist a node's control type must
// match (case-insensitively) to be retained. Matches the original's filter:
// only interactive, clickable-looking controls are worth annotating.
// The match is against whatever control-type label the platform reports,
// which may be localized: a label in a language other than English does
// not match, and such elements are dropped.
var allowedControlTypes = []string{
	"button", "link", "edit", "text", "combo", "check", "list", "tab", "menu",
}

func controlTypeAllowed(controlType string) bool {
	lower := strings.ToLower(controlType)
	for _, allowed := range allowedControlTypes {
		if strings.Contains(lower, allowed) {
			return true
		}
	}
	return false
}

// RawElement is one node as reported by a TreeSource, before filtering and
// id assignment.
type RawElement struct {
	Name        string
	ControlType string
	Left, Top, Right, Bottom int
	Offscreen   bool
	ProcessID   int
	Children    []RawElement
}

// TreeSource produces the raw accessibility tree rooted at the desktop, and
// reports the current process's own id so the walk can skip its own
// windows (the agent's cursor overlay, if any).
type TreeSource interface {
	Root(ctx context.Context) (RawElement, error)
	OwnProcessID() int
}

// Snapshotter walks a TreeSource into the filtered, capped, id-assigned
// node list the agent loop and screen annotator use.
type Snapshotter struct {
	source TreeSource
}

// NewSnapshotter builds a Snapshotter around an explicit TreeSource.
func NewSnapshotter(source TreeSource) *Snapshotter {
	return &Snapshotter{source: source}
}

// NewDefaultSnapshotter returns a Snapshotter with the best-effort platform
// backend: on unsupported platforms Snapshot always returns an empty list,
// never an error, matching the original's "accessibility data is best
// effort" stance.
func NewDefaultSnapshotter() *Snapshotter {
	return &Snapshotter{source: execTreeSource{}}
}

// Snapshot performs a depth-first walk of the tree, skipping the agent's
// own windows, zero-area and offscreen elements, and whitespace-only
// names, retaining only nodes whose control type matches the allowlist,
// and assigning monotonically increasing ids starting at 1. The walk stops
// early once maxNodes elements have been retained.
func (s *Snapshotter) Snapshot(ctx context.Context) ([]deskagent.A11yNode, error) {
	root, err := s.source.Root(ctx)
	if err != nil {
		return nil, err
	}
	ownPID := s.source.OwnProcessID()

	var nodes []deskagent.A11yNode
	idCounter := 1

	// Explicit stack, children pushed in reverse so they pop in the
	// original left-to-right sibling order.
	stack := []RawElement{root}
	for len(stack) > 0 {
		if len(nodes) >= maxNodes {
			break
		}
		if err := ctx.Err(); err != nil {
			return nodes, err
		}

		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if el.ProcessID != ownPID {
			width := el.Right - el.Left
			height := el.Bottom - el.Top
			name := strings.TrimSpace(el.Name)
			if width > 0 && height > 0 && !el.Offscreen && name != "" && controlTypeAllowed(el.ControlType) {
				nodes = append(nodes, deskagent.A11yNode{
					ID:          idCounter,
					Name:        name,
					ControlType: el.ControlType,
					Left:        el.Left, Top: el.Top, Right: el.Right, Bottom: el.Bottom,
				})
				idCounter++
			}
		}

		for i := len(el.Children) - 1; i >= 0; i-- {
			stack = append(stack, el.Children[i])
		}
	}

	return nodes, nil
}

// execTreeSource is the default TreeSource: a platform with no wired
// UI-automation backend simply reports an empty root, which Snapshot turns
// into an empty node list.
type execTreeSource struct{}

func (execTreeSource) Root(ctx context.Context) (RawElement, error) {
	if runtime.GOOS == "windows" {
		// A real implementation would shell out to a UIAutomation-capable
		// helper here; none is available in this environment.
	}
	return RawElement{}, nil
}

func (execTreeSource) OwnProcessID() int { return -1 }
