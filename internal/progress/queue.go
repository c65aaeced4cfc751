package progress

import (
	"errors"
	"sync"
)

var errQueueClosed = errors.New("event queue closed")

// queue is the unbounded forward channel between producers and the Writer.
// push never blocks; pop blocks until an event is queued or the queue has been
// closed and drained.
type queue struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	// ready holds at most one pending wakeup for the single consumer.
	ready chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(evt Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errQueueClosed
	}
	q.items = append(q.items, evt)
	q.mu.Unlock()
	q.wake()
	return nil
}

// close rejects further pushes. Events already queued are still delivered by
// pop. Calling close more than once is harmless.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// pop returns the oldest event, or false once the queue is closed and empty.
// Only the Writer goroutine may call it.
func (q *queue) pop() (Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			evt := q.items[0]
			q.items[0] = Event{}
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return evt, true
		}
		if q.closed {
			q.mu.Unlock()
			return Event{}, false
		}
		q.mu.Unlock()
		<-q.ready
	}
}

func (q *queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
