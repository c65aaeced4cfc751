package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/progress-pipeline/internal/store"
)

// EventStore provides an in-memory store.EventRepository for development and
// testing. It mirrors the Postgres semantics: StartRun is idempotent and
// writes against unknown runs return store.ErrNotFound.
type EventStore struct {
	mu     sync.RWMutex
	runs   map[uuid.UUID]store.Run
	events map[uuid.UUID][]store.EventRecord
}

// NewEventStore constructs an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{
		runs:   make(map[uuid.UUID]store.Run),
		events: make(map[uuid.UUID][]store.EventRecord),
	}
}

// StartRun records the run once; repeated calls leave it untouched.
func (s *EventStore) StartRun(_ context.Context, runID uuid.UUID, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[runID]; exists {
		return nil
	}
	s.runs[runID] = store.Run{ID: runID, StartedAt: startedAt, Status: store.RunRunning}
	return nil
}

// AppendEvent stores one event of a started run.
func (s *EventStore) AppendEvent(_ context.Context, rec store.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[rec.RunID]; !ok {
		return fmt.Errorf("append event to run %s: %w", rec.RunID, store.ErrNotFound)
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	s.events[rec.RunID] = append(s.events[rec.RunID], rec)
	return nil
}

// FinishRun marks the run finished with its final event count.
func (s *EventStore) FinishRun(_ context.Context, runID uuid.UUID, finishedAt time.Time, eventCount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	ts := finishedAt
	run.FinishedAt = &ts
	run.Status = store.RunFinished
	run.EventCount = eventCount
	s.runs[runID] = run
	return nil
}

// GetRun loads a single run.
func (s *EventStore) GetRun(_ context.Context, runID uuid.UUID) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return store.Run{}, store.ErrNotFound
	}
	return run, nil
}

// ListEvents returns a page of the run's events ordered by Seq.
func (s *EventStore) ListEvents(_ context.Context, runID uuid.UUID, limit, offset int) ([]store.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]store.EventRecord, len(s.events[runID]))
	copy(all, s.events[runID])
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
