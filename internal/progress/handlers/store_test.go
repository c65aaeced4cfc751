package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
	"github.com/JakeFAU/progress-pipeline/internal/store"
)

// TestStorePersistsEvents ensures the run starts once and events keep their sequence.
func TestStorePersistsEvents(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{}
	runID := uuid.New()
	h := NewStore(repo, runID, nil)
	now := time.Unix(1700000000, 0)
	h.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, progress.Status("a")))
	require.NoError(t, h.Handle(ctx, progress.Progress(1, 10)))
	require.NoError(t, h.Finish(ctx))

	require.Equal(t, []uuid.UUID{runID}, repo.starts)
	require.Len(t, repo.events, 2)
	require.Equal(t, int64(1), repo.events[0].Seq)
	require.Equal(t, "status", repo.events[0].Kind)
	require.JSONEq(t, `{"type":"status","text":"a"}`, string(repo.events[0].Payload))
	require.Equal(t, int64(2), repo.events[1].Seq)
	require.JSONEq(t, `{"type":"progress","current":1,"max":10}`, string(repo.events[1].Payload))
	require.Equal(t, []finishCall{{runID: runID, count: 2}}, repo.finishes)
}

// TestStoreEmptyRunStillRecorded checks Finish creates the run when no event arrived.
func TestStoreEmptyRunStillRecorded(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{}
	h := NewStore(repo, uuid.Nil, nil)
	require.NotEqual(t, uuid.Nil, h.RunID())

	require.NoError(t, h.Finish(context.Background()))
	require.Equal(t, []uuid.UUID{h.RunID()}, repo.starts)
	require.Equal(t, []finishCall{{runID: h.RunID(), count: 0}}, repo.finishes)
}

// TestStoreHandlesErrors surfaces repository failures back to the caller.
func TestStoreHandlesErrors(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{fail: true}
	h := NewStore(repo, uuid.New(), nil)
	err := h.Handle(context.Background(), progress.Status("x"))
	require.ErrorContains(t, err, "start run")
	require.Error(t, h.Finish(context.Background()))
}

type finishCall struct {
	runID uuid.UUID
	count int64
}

type fakeEventRepo struct {
	fail     bool
	starts   []uuid.UUID
	events   []store.EventRecord
	finishes []finishCall
}

func (f *fakeEventRepo) StartRun(_ context.Context, runID uuid.UUID, _ time.Time) error {
	if f.fail {
		return assertErr("start")
	}
	f.starts = append(f.starts, runID)
	return nil
}

func (f *fakeEventRepo) AppendEvent(_ context.Context, rec store.EventRecord) error {
	if f.fail {
		return assertErr("append")
	}
	f.events = append(f.events, rec)
	return nil
}

func (f *fakeEventRepo) FinishRun(_ context.Context, runID uuid.UUID, _ time.Time, count int64) error {
	if f.fail {
		return assertErr("finish")
	}
	f.finishes = append(f.finishes, finishCall{runID: runID, count: count})
	return nil
}

func (f *fakeEventRepo) GetRun(context.Context, uuid.UUID) (store.Run, error) {
	return store.Run{}, store.ErrNotFound
}

func (f *fakeEventRepo) ListEvents(context.Context, uuid.UUID, int, int) ([]store.EventRecord, error) {
	return append([]store.EventRecord(nil), f.events...), nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
