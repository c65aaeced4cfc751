package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	barmodel "github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
)

// BarConfig tunes the terminal progress bar.
//   - Width: rendered bar width in cells (default 40).
//   - LifecycleDelay: pause applied to every lifecycle event before repainting.
//   - Out: destination for frames (defaults to os.Stderr).
//   - AlwaysDraw: paint even when Out is not a terminal.
//
// Frames are only drawn when Out is a terminal, so redirecting Out to a file
// or pipe keeps it free of control sequences. State is tracked either way.
type BarConfig struct {
	Width          int
	LifecycleDelay time.Duration
	Out            io.Writer
	AlwaysDraw     bool
}

const defaultBarWidth = 40

// Bar renders a single-line progress bar that is repainted after every event.
// Status lines are printed above the bar.
type Bar struct {
	cfg   BarConfig
	model barmodel.Model
	draw  bool

	// mu only guards the accessors used by tests and callers inspecting the
	// final frame; the Writer is the sole mutator.
	mu       sync.Mutex
	position uint64
	length   uint64
	message  string
	finished bool
}

// NewBar builds a Bar with the provided configuration.
func NewBar(cfg BarConfig) *Bar {
	if cfg.Width <= 0 {
		cfg.Width = defaultBarWidth
	}
	if cfg.Out == nil {
		cfg.Out = os.Stderr
	}
	return &Bar{
		cfg:  cfg,
		draw: cfg.AlwaysDraw || isTerminal(cfg.Out),
		model: barmodel.New(
			barmodel.WithWidth(cfg.Width),
			barmodel.WithoutPercentage(),
			barmodel.WithSolidFill("#5A56E0"),
		),
	}
}

// Handle updates the bar state for evt and repaints.
func (b *Bar) Handle(ctx context.Context, evt progress.Event) error {
	switch evt.Kind {
	case progress.KindProgress:
		b.mu.Lock()
		b.length = evt.Max
		b.position = evt.Current
		b.mu.Unlock()
	case progress.KindStatus:
		if !b.draw {
			break
		}
		if _, err := fmt.Fprintf(b.cfg.Out, "\r\033[K%s\n", evt.Text); err != nil {
			return fmt.Errorf("print status: %w", err)
		}
	case progress.KindLifecycle:
		if err := b.pause(ctx); err != nil {
			return err
		}
		b.mu.Lock()
		b.message = fmt.Sprintf("Event (%d)", b.position)
		b.mu.Unlock()
	default:
		return fmt.Errorf("unsupported event kind %q", evt.Kind)
	}
	return b.render()
}

// Finish paints the final frame and moves the cursor past the bar.
func (b *Bar) Finish(context.Context) error {
	if err := b.render(); err != nil {
		return err
	}
	b.mu.Lock()
	b.finished = true
	b.mu.Unlock()
	if !b.draw {
		return nil
	}
	if _, err := io.WriteString(b.cfg.Out, "\n"); err != nil {
		return fmt.Errorf("finish bar: %w", err)
	}
	return nil
}

// Position returns the last reported current value.
func (b *Bar) Position() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

// Length returns the last reported max value.
func (b *Bar) Length() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Message returns the trailing message shown next to the bar.
func (b *Bar) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message
}

// Drawing reports whether frames are written to Out.
func (b *Bar) Drawing() bool {
	return b.draw
}

// Finished reports whether Finish has run.
func (b *Bar) Finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finished
}

// Percent returns position/length clamped to [0, 1]; a zero length reads as 0.
func (b *Bar) Percent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ratio(b.position, b.length)
}

func (b *Bar) render() error {
	if !b.draw {
		return nil
	}
	b.mu.Lock()
	pos, length, msg := b.position, b.length, b.message
	b.mu.Unlock()

	frame := fmt.Sprintf("\r\033[K%s %d/%d", b.model.ViewAs(ratio(pos, length)), pos, length)
	if msg != "" {
		frame += " " + msg
	}
	if _, err := io.WriteString(b.cfg.Out, frame); err != nil {
		return fmt.Errorf("render bar: %w", err)
	}
	return nil
}

func (b *Bar) pause(ctx context.Context) error {
	if b.cfg.LifecycleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(b.cfg.LifecycleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lifecycle delay interrupted: %w", ctx.Err())
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func ratio(pos, length uint64) float64 {
	if length == 0 {
		return 0
	}
	if pos >= length {
		return 1
	}
	return float64(pos) / float64(length)
}
