package service

import (
	"sync"

	"github.com/google/uuid"
)

// EventType names a document lifecycle event
type EventType string

const (
	EventDocumentSaved   EventType = "document_saved"
	EventDocumentLoaded  EventType = "document_loaded"
	EventDocumentDeleted EventType = "document_deleted"
)

// Event reports a change to one stored document. Name is empty for deletes.
type Event struct {
	Type       EventType `json:"type"`
	DocumentID uuid.UUID `json:"document_id"`
	Name       string    `json:"name,omitempty"`
}

// EventBus fans events out to subscriber channels
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates an event bus without subscribers
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers ch. Sends never block, so ch should be buffered.
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish delivers event to every subscriber ready to receive it. A nil bus
// drops the event.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
