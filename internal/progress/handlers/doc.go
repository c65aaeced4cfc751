// Package handlers implements concrete progress consumers: newline-delimited
// JSON records, a terminal progress bar, structured logging, Prometheus
// metrics, repository-backed storage, topic publishing, and blob archiving.
// Each type satisfies progress.Handler and is driven by a single Writer.
package handlers
