package orchestrator

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// EventEmitter fans orchestrator events out to subscribers.
// Emit never blocks: a subscriber whose buffer is full misses the event.
type EventEmitter struct {
	bufferSize   int
	mu           sync.RWMutex
	subs         map[int]chan OrchestratorEvent
	nextID       int
	closed       bool
	droppedCount atomic.Uint64
}

// NewEventEmitter creates a new EventEmitter whose subscribers get
// channels of the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &EventEmitter{
		bufferSize: bufferSize,
		subs:       make(map[int]chan OrchestratorEvent),
	}
}

// Subscribe returns a channel of future events and a function that
// unsubscribes and closes it.
func (e *EventEmitter) Subscribe() (<-chan OrchestratorEvent, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan OrchestratorEvent, e.bufferSize)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

// Emit sends an event to every subscriber.
func (e *EventEmitter) Emit(event OrchestratorEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.subs {
		select {
		case ch <- event:
		default:
			count := e.droppedCount.Add(1)
			if count%10 == 1 { // Log every 10th drop to avoid spam
				log.Printf("[orchestrator] WARNING: subscriber channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
			}
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// SubscriberCount returns the number of active subscribers.
func (e *EventEmitter) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Close closes every subscriber channel. Later Subscribe calls get a
// closed channel.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}
