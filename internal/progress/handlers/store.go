package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
	"github.com/JakeFAU/progress-pipeline/internal/store"
)

// Store persists every event through a store.EventRepository under one run
// ID. The run row is created lazily on the first event, or on Finish when the
// stream was empty, so every pipeline lifetime leaves exactly one run behind.
type Store struct {
	repo   store.EventRepository
	logger *zap.Logger
	runID  uuid.UUID
	now    func() time.Time

	started  bool
	seq      int64
	appended int64
}

// NewStore constructs a Store for repo. A zero runID is replaced with a fresh
// random UUID.
func NewStore(repo store.EventRepository, runID uuid.UUID, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	return &Store{repo: repo, logger: logger, runID: runID, now: time.Now}
}

// RunID identifies the run this handler writes to.
func (s *Store) RunID() uuid.UUID {
	return s.runID
}

// Handle appends evt to the run. It respects ctx deadlines and returns any
// repository errors wrapped.
func (s *Store) Handle(ctx context.Context, evt progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	payload, err := EncodeRecord(evt)
	if err != nil {
		return err
	}
	at := s.now().UTC()
	if err := s.ensureStarted(ctx, at); err != nil {
		return err
	}
	s.seq++
	rec := store.EventRecord{
		RunID:      s.runID,
		Seq:        s.seq,
		Kind:       string(evt.Kind),
		Payload:    payload,
		RecordedAt: at,
	}
	if err := s.repo.AppendEvent(ctx, rec); err != nil {
		return fmt.Errorf("append event %d: %w", rec.Seq, err)
	}
	s.appended++
	return nil
}

// Finish marks the run finished with the number of events successfully
// appended.
func (s *Store) Finish(ctx context.Context) error {
	if s == nil || s.repo == nil {
		return nil
	}
	at := s.now().UTC()
	if err := s.ensureStarted(ctx, at); err != nil {
		return err
	}
	if err := s.repo.FinishRun(ctx, s.runID, at, s.appended); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	s.logger.Debug("progress run persisted", zap.Stringer("run_id", s.runID), zap.Int64("events", s.appended))
	return nil
}

func (s *Store) ensureStarted(ctx context.Context, at time.Time) error {
	if s.started {
		return nil
	}
	if err := s.repo.StartRun(ctx, s.runID, at); err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	s.started = true
	return nil
}
