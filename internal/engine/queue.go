package engine

import "sync"

// EventType distinguishes what woke the event loop.
type EventType int

const (
	// EventTypeScan asks for a fresh grid read: an occupancy edge or a poll tick.
	EventTypeScan EventType = iota + 1
	// EventTypeNewGame is the external new-game command.
	EventTypeNewGame
)

func (t EventType) String() string {
	switch t {
	case EventTypeScan:
		return "scan"
	case EventTypeNewGame:
		return "new_game"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the Run loop.
type Event struct {
	Type EventType

	// Source names the producer ("edge", "poll", "api", ...) for logs.
	Source string
}

// eventQueue is the single-consumer FIFO between event producers (edge watcher, poller,
// API handlers) and the Run loop.
//
// Producers never block: Enqueue appends under the mutex and drops a token into a
// one-slot signal channel, so a burst of edges coalesces into one wake-up while every
// queued event is still processed in order.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. It returns false once the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns the wake-up channel. It is closed when the queue closes.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops further enqueues and wakes the consumer. Queued events are still drained.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

func (q *eventQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
