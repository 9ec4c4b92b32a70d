package engine

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventExecutionStarted   EventType = "execution.started"
	EventExecutionCompleted EventType = "execution.completed"
	EventExecutionFailed    EventType = "execution.failed"
	EventExecutionCancelled EventType = "execution.cancelled"
	EventNodeStarted        EventType = "node.started"
	EventNodeCompleted      EventType = "node.completed"
	EventNodeFailed         EventType = "node.failed"
	EventInputRequested     EventType = "input.requested"
)

type Event struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	NodeID      string         `json:"node_id,omitempty"`
	Type        EventType      `json:"type"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

type EventHandler func(Event)

// EventBus fans execution progress out to in-process subscribers.
type EventBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[int]EventHandler)}
}

// Subscribe registers handler and returns a function that removes it.
func (b *EventBus) Subscribe(handler EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}

// Channel adapts the bus to a buffered channel that closes with ctx.
// Events are dropped rather than blocking a slow consumer. A publish that
// snapshotted the handler before the subscriber left must not reach the
// closed channel, so sends and the close are serialized behind one mutex.
func (b *EventBus) Channel(ctx context.Context, bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	var mu sync.Mutex
	closed := false
	unsubscribe := b.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}
