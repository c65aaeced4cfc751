package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
)

type flusher interface {
	Flush() error
}

type syncer interface {
	Sync() error
}

// JSON writes one newline-terminated record per event to a fixed sink. Each
// record goes out in a single Write followed by a flush, so nothing is
// buffered across events.
type JSON struct {
	out io.Writer
}

// NewJSON returns a JSON handler writing to out, or to os.Stderr when out is
// nil so records never mix with a tool's primary output.
func NewJSON(out io.Writer) *JSON {
	if out == nil {
		out = os.Stderr
	}
	return &JSON{out: out}
}

// Handle encodes evt and writes it as one line.
func (h *JSON) Handle(_ context.Context, evt progress.Event) error {
	line, err := encodeLine(evt)
	if err != nil {
		return err
	}
	if _, err := h.out.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return h.flush()
}

// Finish flushes the sink one last time; JSON holds no state of its own.
func (h *JSON) Finish(context.Context) error {
	return h.flush()
}

func (h *JSON) flush() error {
	switch out := h.out.(type) {
	case flusher:
		if err := out.Flush(); err != nil {
			return fmt.Errorf("flush records: %w", err)
		}
	case syncer:
		// Sync on a terminal or pipe reports EINVAL; that is not a lost record.
		if f, ok := out.(*os.File); ok && isCharDeviceOrPipe(f) {
			return nil
		}
		if err := out.Sync(); err != nil {
			return fmt.Errorf("sync records: %w", err)
		}
	}
	return nil
}

func isCharDeviceOrPipe(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return true
	}
	return info.Mode()&(os.ModeCharDevice|os.ModeNamedPipe) != 0
}
