package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestReportAfterDisconnect verifies late reports fail softly and reach no handler.
func TestReportAfterDisconnect(t *testing.T) {
	t.Parallel()

	rec := newRecordingHandler("rec", nil)
	reporter, _ := New(Config{}, rec)
	require.NoError(t, reporter.Report(Status("before")))
	reporter.Disconnect()

	err := reporter.Report(Status("after"))
	require.ErrorIs(t, err, ErrDisconnected)
	require.Equal(t, []Event{Status("before")}, rec.Events())
}

// TestDisconnectTwiceReturnsSameToken checks a repeated Disconnect is a no-op.
func TestDisconnectTwiceReturnsSameToken(t *testing.T) {
	t.Parallel()

	rec := newRecordingHandler("rec", nil)
	reporter, _ := New(Config{}, rec)

	first := reporter.Disconnect()
	second := reporter.Disconnect()
	require.Equal(t, first, second)
	require.Equal(t, 1, rec.Finishes())
}

// TestConcurrentDisconnect ensures every concurrent caller returns once the ack arrives.
func TestConcurrentDisconnect(t *testing.T) {
	t.Parallel()

	reporter, _ := New(Config{}, newRecordingHandler("rec", nil))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reporter.Disconnect()
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent Disconnect calls did not all return")
	}
}

// TestMultiFanOutOrder verifies each event reaches A before B, and finish follows the same order.
func TestMultiFanOutOrder(t *testing.T) {
	t.Parallel()

	tr := &trace{}
	a := newRecordingHandler("A", tr)
	b := newRecordingHandler("B", tr)
	reporter, _ := New(Config{}, a, b)

	require.NoError(t, reporter.Report(Status("x")))
	require.NoError(t, reporter.Report(Progress(1, 2)))
	reporter.Disconnect()

	require.Equal(t, []string{
		"A:status(x)",
		"B:status(x)",
		"A:progress(1/2)",
		"B:progress(1/2)",
		"A:finish",
		"B:finish",
	}, tr.Entries())
}

// TestReportDoesNotBlock asserts Report returns promptly while the handler is stuck.
func TestReportDoesNotBlock(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	stuck := Funcs{HandleFunc: func(context.Context, Event) error {
		<-release
		return nil
	}}
	reporter, _ := New(Config{}, stuck)

	start := time.Now()
	for i := 0; i < 10000; i++ {
		require.NoError(t, reporter.Report(Progress(uint64(i), 10000)))
	}
	require.Less(t, time.Since(start), time.Second)

	close(release)
	reporter.Disconnect()
}

// TestDisconnectContextTimeout checks the bounded variant gives up and a later call still completes.
func TestDisconnectContextTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	rec := newRecordingHandler("rec", nil)
	stuck := Funcs{HandleFunc: func(context.Context, Event) error {
		<-release
		return nil
	}}
	reporter, writer := New(Config{}, stuck, rec)
	require.NoError(t, reporter.Report(Status("slow")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := reporter.DisconnectContext(ctx)
	require.ErrorIs(t, err, ErrDisconnectTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, reporter.Report(Status("late")), ErrDisconnected)

	close(release)
	reporter.Disconnect()
	require.Equal(t, StateTerminated, writer.State())
	require.Equal(t, []Event{Status("slow")}, rec.Events())
}

// TestConcurrentProducersKeepPerSenderOrder verifies FIFO per producer with interleaving allowed.
func TestConcurrentProducersKeepPerSenderOrder(t *testing.T) {
	t.Parallel()

	rec := newRecordingHandler("rec", nil)
	reporter, _ := New(Config{}, rec)

	const producers, perProducer = 4, 250
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = reporter.Report(Status(fmt.Sprintf("%d:%d", p, i)))
			}
		}(p)
	}
	wg.Wait()
	reporter.Disconnect()

	events := rec.Events()
	require.Len(t, events, producers*perProducer)
	next := make([]int, producers)
	for _, evt := range events {
		var p, i int
		_, err := fmt.Sscanf(evt.Text, "%d:%d", &p, &i)
		require.NoError(t, err)
		require.Equal(t, next[p], i, "producer %d out of order", p)
		next[p]++
	}
}

// TestDisconnectPanicsOnClosedAck documents the misuse path for a torn-down ack channel.
func TestDisconnectPanicsOnClosedAck(t *testing.T) {
	t.Parallel()

	ack := make(chan Disconnect)
	close(ack)
	reporter := newReporter(newQueue(), ack)
	require.Panics(t, func() { reporter.Disconnect() })
}
