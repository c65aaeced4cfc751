package progress

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config controls the Writer started by New.
//   - HandlerTimeout: deadline applied to each Handle/Finish call (default 10s).
//   - BaseContext: parent context passed to handler calls (defaults to context.Background()).
//   - Logger: optional structured logger used for handler failures.
type Config struct {
	HandlerTimeout time.Duration
	BaseContext    context.Context
	Logger         *zap.Logger
}

const (
	defaultHandlerTimeout = 10 * time.Second
	failureLogInterval    = 5 * time.Second
)

// State is the Writer's position in its one-way lifecycle.
type State int32

// Writer lifecycle states. The only transitions are
// Running -> Finalizing -> Terminated.
const (
	StateRunning State = iota
	StateFinalizing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFinalizing:
		return "finalizing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Writer owns the consuming end of the forward channel and the sending end of
// the acknowledgement channel. It runs a single goroutine that dispatches
// events to its handler one at a time, in order.
type Writer struct {
	cfg     Config
	handler Handler
	events  *queue
	ack     chan<- Disconnect
	done    chan struct{}
	logger  *zap.Logger
	state   atomic.Int32

	failureLimiter *rate.Limiter
	suppressed     atomic.Int64
}

// New wires a Reporter to a freshly started Writer delivering to handlers.
// With no handlers the Writer still drains and acknowledges; with one it is
// used directly; with several they are wrapped in a Multi in the given order.
func New(cfg Config, handlers ...Handler) (*Reporter, *Writer) {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = defaultHandlerTimeout
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var handler Handler
	if len(handlers) == 1 && handlers[0] != nil {
		handler = handlers[0]
	} else {
		handler = NewMulti(handlers...)
	}

	events := newQueue()
	// Capacity 1 keeps the single acknowledgement send from ever blocking the
	// Writer, even when nobody is waiting in Disconnect.
	ack := make(chan Disconnect, 1)

	w := &Writer{
		cfg:            cfg,
		handler:        handler,
		events:         events,
		ack:            ack,
		done:           make(chan struct{}),
		logger:         logger,
		failureLimiter: rate.NewLimiter(rate.Every(failureLogInterval), 1),
	}
	go w.run()
	return newReporter(events, ack), w
}

// State reports the Writer's current lifecycle state.
func (w *Writer) State() State {
	return State(w.state.Load())
}

// Done is closed once the Writer goroutine has exited.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

func (w *Writer) run() {
	defer close(w.done)
	defer w.finalize()
	for {
		evt, ok := w.events.pop()
		if !ok {
			return
		}
		w.dispatch(evt)
	}
}

func (w *Writer) dispatch(evt Event) {
	ctx, cancel := context.WithTimeout(w.cfg.BaseContext, w.cfg.HandlerTimeout)
	defer cancel()
	if err := safeHandle(ctx, w.handler, evt); err != nil {
		w.reportFailure("progress handler failed", err, zap.Stringer("event", evt))
	}
}

// finalize is the only exit path of run. The acknowledgement is sent no matter
// how the handler behaves during Finish.
func (w *Writer) finalize() {
	w.state.Store(int32(StateFinalizing))
	w.events.close()

	ctx, cancel := context.WithTimeout(w.cfg.BaseContext, w.cfg.HandlerTimeout)
	if err := safeFinish(ctx, w.handler); err != nil {
		w.logger.Warn("progress handler finish failed", zap.Error(err))
	}
	cancel()
	if n := w.suppressed.Swap(0); n > 0 {
		w.logger.Warn("progress handler failures suppressed", zap.Int64("count", n))
	}

	w.state.Store(int32(StateTerminated))
	w.ack <- Disconnect{}
	w.logger.Debug("progress writer terminated")
}

func (w *Writer) reportFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		w.logger.Error(msg, fields...)
		return
	}
	if !w.failureLimiter.AllowN(time.Now(), 1) {
		w.suppressed.Add(1)
		return
	}
	if n := w.suppressed.Swap(0); n > 0 {
		fields = append(fields, zap.Int64("suppressed", n))
	}
	w.logger.Warn(msg, fields...)
}
