package handlers

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
)

// TestBarTracksProgress confirms position and length follow progress events.
func TestBarTracksProgress(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	b := NewBar(BarConfig{Width: 10, Out: &out, AlwaysDraw: true})
	ctx := context.Background()

	require.NoError(t, b.Handle(ctx, progress.Progress(1, 10)))
	require.Equal(t, uint64(1), b.Position())
	require.Equal(t, uint64(10), b.Length())
	require.InDelta(t, 0.1, b.Percent(), 1e-9)
	require.Contains(t, out.String(), "1/10")

	require.NoError(t, b.Handle(ctx, progress.Progress(10, 10)))
	require.InDelta(t, 1.0, b.Percent(), 1e-9)
	require.False(t, b.Finished())

	require.NoError(t, b.Finish(ctx))
	require.True(t, b.Finished())
	require.True(t, strings.HasSuffix(out.String(), "\n"))
}

func TestBarClampsRatio(t *testing.T) {
	t.Parallel()

	b := NewBar(BarConfig{Out: &bytes.Buffer{}})
	require.Zero(t, b.Percent())

	require.NoError(t, b.Handle(context.Background(), progress.Progress(12, 10)))
	require.Equal(t, uint64(12), b.Position())
	require.InDelta(t, 1.0, b.Percent(), 1e-9)

	require.NoError(t, b.Handle(context.Background(), progress.Progress(3, 0)))
	require.Zero(t, b.Percent())
}

func TestBarStatusPrintsAboveBar(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	b := NewBar(BarConfig{Out: &out, AlwaysDraw: true})
	require.NoError(t, b.Handle(context.Background(), progress.Status("jean!")))
	require.Contains(t, out.String(), "jean!\n")
	require.Empty(t, b.Message())
}

func TestBarLifecycleSetsMessage(t *testing.T) {
	t.Parallel()

	b := NewBar(BarConfig{LifecycleDelay: 20 * time.Millisecond, Out: &bytes.Buffer{}})
	ctx := context.Background()
	require.NoError(t, b.Handle(ctx, progress.Progress(5, 10)))

	start := time.Now()
	require.NoError(t, b.Handle(ctx, progress.Installing()))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.Equal(t, "Event (5)", b.Message())
}

func TestBarLifecycleDelayHonorsContext(t *testing.T) {
	t.Parallel()

	b := NewBar(BarConfig{LifecycleDelay: time.Minute, Out: &bytes.Buffer{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Handle(ctx, progress.Installing())
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, b.Message())
}

// TestBarHiddenWhenNotTerminal keeps redirected output free of frames while
// still tracking state.
func TestBarHiddenWhenNotTerminal(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	b := NewBar(BarConfig{Out: &out})
	require.False(t, b.Drawing())

	ctx := context.Background()
	require.NoError(t, b.Handle(ctx, progress.Status("chris!")))
	require.NoError(t, b.Handle(ctx, progress.Progress(4, 10)))
	require.NoError(t, b.Handle(ctx, progress.Installing()))
	require.NoError(t, b.Finish(ctx))

	require.Empty(t, out.String())
	require.Equal(t, uint64(4), b.Position())
	require.Equal(t, "Event (4)", b.Message())
	require.True(t, b.Finished())
}

func TestRatio(t *testing.T) {
	t.Parallel()

	require.Zero(t, ratio(0, 0))
	require.Zero(t, ratio(5, 0))
	require.InDelta(t, 0.5, ratio(5, 10), 1e-9)
	require.InDelta(t, 1.0, ratio(10, 10), 1e-9)
	require.InDelta(t, 1.0, ratio(11, 10), 1e-9)
}
