// Package store declares interfaces for persisting progress runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("progress record not found")

// RunStatus mirrors the progress_runs status column.
type RunStatus string

// Run statuses persisted in progress_runs.status.
const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
)

// Run models one reporter lifetime in the progress_runs table.
type Run struct {
	// ID is the primary key shared by every event of the run.
	ID uuid.UUID
	// StartedAt captures when the first event (or Finish) was recorded.
	StartedAt time.Time
	// FinishedAt is nil until the handler finalizes.
	FinishedAt *time.Time
	// Status is running/finished.
	Status RunStatus
	// EventCount is the number of events persisted for the run.
	EventCount int64
}

// EventRecord is one persisted event.
type EventRecord struct {
	RunID uuid.UUID
	// Seq orders events within a run, starting at 1.
	Seq int64
	// Kind is the event discriminant (status, progress, lifecycle).
	Kind string
	// Payload holds the self-describing JSON record.
	Payload []byte
	// RecordedAt is when the handler saw the event.
	RecordedAt time.Time
}

// EventRepository persists progress runs and their events.
type EventRepository interface {
	// StartRun inserts (or idempotently keeps) the run row.
	StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error
	// AppendEvent stores one event of a started run.
	AppendEvent(ctx context.Context, rec EventRecord) error
	// FinishRun marks the run finished with its final event count.
	FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, eventCount int64) error
	// GetRun loads a single run or returns ErrNotFound.
	GetRun(ctx context.Context, runID uuid.UUID) (Run, error)
	// ListEvents returns the events of a run in sequence order.
	ListEvents(ctx context.Context, runID uuid.UUID, limit, offset int) ([]EventRecord, error)
}
