// Package events provides a lightweight in-process event bus for broadcasting
// strip state changes to subscribers such as the WebSocket hub.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of event.
type EventType string

const (
	// StripStatusChanged carries a fresh status snapshot that differs from the last one seen
	StripStatusChanged EventType = "strip.status_changed"
	// StripCommandSent is emitted after a setter succeeds
	StripCommandSent EventType = "strip.command_sent"
	// StripConfigured is emitted after chip type, colour order or topology changes
	StripConfigured EventType = "strip.configured"
	// StripConnectionChanged reports controller socket state transitions
	StripConnectionChanged EventType = "strip.connection_changed"
	// StripUnreachable is emitted when a refresh fails
	StripUnreachable EventType = "strip.unreachable"
	// StripSnapshot is sent to a WebSocket client right after it connects
	StripSnapshot EventType = "strip.snapshot"
)

// Types lists every event type in the order they are documented.
func Types() []EventType {
	return []EventType{
		StripStatusChanged,
		StripCommandSent,
		StripConfigured,
		StripConnectionChanged,
		StripUnreachable,
		StripSnapshot,
	}
}

// ParseType returns the EventType named s, if it is one of Types.
func ParseType(s string) (EventType, bool) {
	for _, t := range Types() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// CommandPayload is the data of a StripCommandSent event.
type CommandPayload struct {
	Command string `json:"command"`
	Value   any    `json:"value"`
}

// ConnectionPayload is the data of a StripConnectionChanged event.
type ConnectionPayload struct {
	Addr string `json:"addr"`
	From string `json:"from"`
	To   string `json:"to"`
}

// UnreachablePayload is the data of a StripUnreachable event.
type UnreachablePayload struct {
	Addr  string `json:"addr"`
	Error string `json:"error"`
}

// Event is a single event emitted by a producer.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent stamps data with an ID and time. Data that cannot be marshalled
// becomes null.
func NewEvent(t EventType, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("null")
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now(),
		Data:      raw,
	}
}

// SubscriberFunc receives events. It runs on the publisher's goroutine and
// must not block.
type SubscriberFunc func(Event)

// Bus fans events out to subscribers synchronously. Publish returns once
// every subscriber has been called.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]SubscriberFunc
	nextID      int
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]SubscriberFunc),
	}
}

// Subscribe registers a callback and returns an unsubscribe function.
func (b *Bus) Subscribe(fn SubscriberFunc) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// SubscribeTypes is Subscribe restricted to the given types. With no types
// it behaves like Subscribe.
func (b *Bus) SubscribeTypes(fn SubscriberFunc, types ...EventType) func() {
	if len(types) == 0 {
		return b.Subscribe(fn)
	}
	want := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	return b.Subscribe(func(e Event) {
		if _, ok := want[e.Type]; ok {
			fn(e)
		}
	})
}

// Publish sends an event to all current subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]SubscriberFunc, 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
