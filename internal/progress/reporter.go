package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDisconnected is returned by Report once the Writer has shut down or
	// Disconnect has been called.
	ErrDisconnected = errors.New("progress: reporter disconnected")
	// ErrDisconnectTimeout is returned by DisconnectContext when ctx ends
	// before the Writer acknowledges shutdown.
	ErrDisconnectTimeout = errors.New("progress: timed out waiting for writer")
)

// Disconnect is the acknowledgement the Writer sends once it has drained every
// event and finished all handlers. Holding one proves shutdown completed.
type Disconnect struct{}

// Reporter is the producer side of the pipeline. Report is safe for
// concurrent use by multiple goroutines; events from a single goroutine are
// delivered in the order they were reported.
type Reporter struct {
	events *queue
	ack    <-chan Disconnect

	closeOnce sync.Once
	ackOnce   sync.Once
	// acked is closed once the acknowledgement has been received so repeated
	// or concurrent Disconnect calls all observe completion.
	acked chan struct{}
}

func newReporter(events *queue, ack <-chan Disconnect) *Reporter {
	return &Reporter{
		events: events,
		ack:    ack,
		acked:  make(chan struct{}),
	}
}

// Report enqueues evt for the Writer. It never blocks and returns
// ErrDisconnected once the pipeline has shut down.
func (r *Reporter) Report(evt Event) error {
	if err := r.events.push(evt); err != nil {
		return ErrDisconnected
	}
	return nil
}

// Disconnect closes the forward channel and blocks until the Writer has
// handled every reported event and finished all handlers. Later calls return
// the same token immediately. There is no deadline; use DisconnectContext to
// bound the wait.
func (r *Reporter) Disconnect() Disconnect {
	token, _ := r.DisconnectContext(context.Background())
	return token
}

// DisconnectContext behaves like Disconnect but gives up when ctx ends,
// returning an error wrapping ErrDisconnectTimeout and ctx.Err(). The forward
// channel stays closed; a later call can still collect the acknowledgement.
//
// It panics if the acknowledgement channel is closed without a token, which
// only happens when the Writer was torn down outside of this pipeline.
func (r *Reporter) DisconnectContext(ctx context.Context) (Disconnect, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.closeOnce.Do(r.events.close)

	select {
	case <-r.acked:
		return Disconnect{}, nil
	default:
	}

	select {
	case token, ok := <-r.ack:
		if !ok {
			panic("progress: acknowledgement channel closed before writer finished")
		}
		r.ackOnce.Do(func() { close(r.acked) })
		return token, nil
	case <-r.acked:
		return Disconnect{}, nil
	case <-ctx.Done():
		return Disconnect{}, fmt.Errorf("%w: %w", ErrDisconnectTimeout, ctx.Err())
	}
}
