// Package events provides change notifications for job transitions so the
// TUI can refresh without re-querying the whole history each frame.
package events

import (
	"sync"

	"github.com/nanobanan/banana/internal/db/models"
	"github.com/nanobanan/banana/internal/logger"
)

// EventType represents the type of job event
type EventType string

const (
	// EventJobCreated is emitted when a job record is created
	EventJobCreated EventType = "job_created"
	// EventJobTransitioned is emitted on every persisted status transition
	EventJobTransitioned EventType = "job_transitioned"
	// EventChannelSize is the buffer size for each subscriber channel
	EventChannelSize = 100
)

// Event describes one persisted change to a job record
type Event struct {
	Type   EventType
	JobID  string
	Status models.JobStatus
}

// Bus fans job events out to subscribers. Publish never blocks the engine:
// a subscriber that falls behind loses events and must re-read the store.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus creates an event bus with no subscribers
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel along with
// an unsubscribe function.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, EventChannelSize)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish sends an event to all subscribers without blocking
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			logger.Debugf("dropping event %s for slow subscriber (job %s)", event.Type, event.JobID)
		}
	}
}
