package progress

import (
	"context"
	"errors"
	"fmt"
)

// Handler renders or records events on behalf of the Writer. A Handler is
// owned by exactly one Writer goroutine, so implementations need no locking
// for state that is only touched from Handle and Finish. Returned errors are
// logged by the Writer and never stop delivery.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
	Finish(ctx context.Context) error
}

// Funcs adapts plain functions to the Handler interface. Nil fields are
// treated as no-ops.
type Funcs struct {
	HandleFunc func(ctx context.Context, evt Event) error
	FinishFunc func(ctx context.Context) error
}

// Handle calls HandleFunc when set.
func (f Funcs) Handle(ctx context.Context, evt Event) error {
	if f.HandleFunc == nil {
		return nil
	}
	return f.HandleFunc(ctx, evt)
}

// Finish calls FinishFunc when set.
func (f Funcs) Finish(ctx context.Context) error {
	if f.FinishFunc == nil {
		return nil
	}
	return f.FinishFunc(ctx)
}

// Multi fans a single event stream out to an ordered list of handlers. Each
// event reaches every child, in registration order, before Handle returns.
type Multi struct {
	handlers []Handler
}

// NewMulti returns a Multi dispatching to handlers in the given order. Nil
// handlers are skipped.
func NewMulti(handlers ...Handler) *Multi {
	m := &Multi{}
	for _, h := range handlers {
		m.Push(h)
	}
	return m
}

// Push appends h to the dispatch order and returns m for chaining.
func (m *Multi) Push(h Handler) *Multi {
	if h != nil {
		m.handlers = append(m.handlers, h)
	}
	return m
}

// Len reports how many handlers are registered.
func (m *Multi) Len() int {
	return len(m.handlers)
}

// Handle delivers evt to every child in order. A failing child does not stop
// delivery to the children after it; all failures are joined.
func (m *Multi) Handle(ctx context.Context, evt Event) error {
	var errs []error
	for i, h := range m.handlers {
		if err := safeHandle(ctx, h, evt); err != nil {
			errs = append(errs, fmt.Errorf("handler %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Finish finalizes every child in order, joining any failures.
func (m *Multi) Finish(ctx context.Context) error {
	var errs []error
	for i, h := range m.handlers {
		if err := safeFinish(ctx, h); err != nil {
			errs = append(errs, fmt.Errorf("handler %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

func safeHandle(ctx context.Context, h Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return h.Handle(ctx, evt)
}

func safeFinish(ctx context.Context, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return h.Finish(ctx)
}
