// Package progress provides the event primitives, the producer-facing Reporter,
// and the background Writer that delivers events to pluggable handlers. Report
// never blocks; Disconnect closes the forward channel and waits for the Writer
// to drain every queued event, finish all handlers, and send its single
// acknowledgement.
package progress
