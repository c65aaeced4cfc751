// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/progress-pipeline/internal/store"
)

// EventStoreConfig controls the Postgres connection pool used for progress rows.
type EventStoreConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// EventStore implements store.EventRepository using Postgres tables
// progress_runs and progress_events.
type EventStore struct {
	pool pool
}

// NewEventStore creates a connection pool for cfg.
func NewEventStore(ctx context.Context, cfg EventStoreConfig) (*EventStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &EventStore{pool: p}, nil
}

// NewEventStoreWithPool wraps an existing pool (or pgxmock pool in tests).
func NewEventStoreWithPool(p pool) (*EventStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &EventStore{pool: p}, nil
}

// Close closes the underlying connection pool.
func (s *EventStore) Close() {
	s.pool.Close()
}

// StartRun inserts the run row; repeated calls leave it untouched.
func (s *EventStore) StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	query := `
		INSERT INTO progress_runs (id, started_at, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING;
	`
	if _, err := s.pool.Exec(ctx, query, runID, startedAt, store.RunRunning); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// AppendEvent inserts one event row.
func (s *EventStore) AppendEvent(ctx context.Context, rec store.EventRecord) error {
	query := `
		INSERT INTO progress_events (run_id, seq, kind, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5);
	`
	if _, err := s.pool.Exec(ctx, query, rec.RunID, rec.Seq, rec.Kind, rec.Payload, rec.RecordedAt); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// FinishRun marks the run finished.
func (s *EventStore) FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, eventCount int64) error {
	query := `
		UPDATE progress_runs
		SET finished_at = $1, status = $2, event_count = $3
		WHERE id = $4;
	`
	res, err := s.pool.Exec(ctx, query, finishedAt, store.RunFinished, eventCount, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if res.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetRun retrieves a single run by its ID.
func (s *EventStore) GetRun(ctx context.Context, runID uuid.UUID) (store.Run, error) {
	query := `
		SELECT id, started_at, finished_at, status, event_count
		FROM progress_runs
		WHERE id = $1;
	`
	var run store.Run
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.EventCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Run{}, store.ErrNotFound
		}
		return store.Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListEvents retrieves the events of a run in sequence order.
func (s *EventStore) ListEvents(ctx context.Context, runID uuid.UUID, limit, offset int) ([]store.EventRecord, error) {
	query := `
		SELECT run_id, seq, kind, payload, recorded_at
		FROM progress_events
		WHERE run_id = $1
		ORDER BY seq ASC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []store.EventRecord
	for rows.Next() {
		var rec store.EventRecord
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Kind, &rec.Payload, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	return events, nil
}
