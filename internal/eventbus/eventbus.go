// Package eventbus carries core-to-host status events: thinking, message,
// action-executed, cursor movement, screenshot updates, and run lifecycle
// notifications. The publisher shape is borrowed from the gateway's
// subscribe/unsubscribe/broadcast event bus; the monotonic sequencing and
// typed-emit-method style is borrowed from the agent runtime's event
// emitter.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventName enumerates every event the core emits to the host, matching
// the external interface's event catalogue.
type EventName string

const (
	EventAgentStatusChanged EventName = "agent-status-changed"
	EventAgentThinking      EventName = "agent-thinking"
	EventAgentMessage       EventName = "agent-message"
	EventActionExecuted     EventName = "action-executed"
	EventCursorMoved        EventName = "cursor-moved"
	EventCursorClick        EventName = "cursor-click"
	EventCursorHide         EventName = "cursor-hide"
	EventScreenshotUpdated  EventName = "screenshot-updated"
	EventEstimatedTime      EventName = "estimated-time"
)

// Event is one envelope broadcast to every subscriber. Payload is the
// event-specific body (e.g. a status string, an action description).
type Event struct {
	Name      EventName
	Sequence  uint64
	RunID     uuid.UUID
	Timestamp time.Time
	Payload   any
}

// Handler receives broadcast events.
type Handler func(Event)

// Publisher abstracts event broadcast and subscription so the agent loop
// doesn't depend on a concrete transport (Tauri IPC, a websocket, a CLI's
// stdout stream, or — in tests — nothing at all).
type Publisher interface {
	Subscribe(id string, handler Handler)
	Unsubscribe(id string)
	Broadcast(event Event)
}

// Bus is the default in-process Publisher: a simple mutex-guarded fan-out
// to every subscriber, broadcasting synchronously on the caller's
// goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewBus builds an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string]Handler)}
}

func (b *Bus) Subscribe(id string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[id] = handler
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

func (b *Bus) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(event)
	}
}

// Emitter wraps a Publisher with the run's identity and a monotonic
// sequence counter, and exposes one typed method per event in the
// catalogue so callers can't typo an event name or forget a field.
type Emitter struct {
	runID    uuid.UUID
	sequence uint64
	bus      Publisher
}

// NewEmitter builds an Emitter for one run. A nil bus is replaced with a
// no-op publisher, matching the agent runtime's NopSink default.
func NewEmitter(runID uuid.UUID, bus Publisher) *Emitter {
	if bus == nil {
		bus = NopPublisher{}
	}
	return &Emitter{runID: runID, bus: bus}
}

func (e *Emitter) next() uint64 { return atomic.AddUint64(&e.sequence, 1) }

func (e *Emitter) emit(name EventName, payload any) {
	e.bus.Broadcast(Event{
		Name:      name,
		Sequence:  e.next(),
		RunID:     e.runID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func (e *Emitter) StatusChanged(status string) { e.emit(EventAgentStatusChanged, status) }
func (e *Emitter) Thinking()                   { e.emit(EventAgentThinking, nil) }
func (e *Emitter) Message(text string)         { e.emit(EventAgentMessage, text) }

// ActionExecutedPayload describes one dispatched action, for the
// action-executed event.
type ActionExecutedPayload struct {
	Description string
	Error       string
}

func (e *Emitter) ActionExecuted(description, errText string) {
	e.emit(EventActionExecuted, ActionExecutedPayload{Description: description, Error: errText})
}

// CursorPayload carries a cursor position for cursor-moved/cursor-click.
type CursorPayload struct{ X, Y int }

func (e *Emitter) CursorMoved(x, y int) { e.emit(EventCursorMoved, CursorPayload{X: x, Y: y}) }
func (e *Emitter) CursorClick(x, y int) { e.emit(EventCursorClick, CursorPayload{X: x, Y: y}) }
func (e *Emitter) CursorHide()          { e.emit(EventCursorHide, nil) }

// ScreenshotPayload carries the base64 JPEG and the accessibility tree
// text rendering, for screenshot-updated.
type ScreenshotPayload struct {
	Base64  string
	DOMText string
}

func (e *Emitter) ScreenshotUpdated(base64, domText string) {
	e.emit(EventScreenshotUpdated, ScreenshotPayload{Base64: base64, DOMText: domText})
}

func (e *Emitter) EstimatedTime(seconds int) { e.emit(EventEstimatedTime, seconds) }

// NopPublisher discards every broadcast; the default for runs that don't
// need a host to observe them (unit tests, headless batch runs).
type NopPublisher struct{}

func (NopPublisher) Subscribe(id string, handler Handler) {}
func (NopPublisher) Unsubscribe(id string)                {}
func (NopPublisher) Broadcast(event Event)                {}
