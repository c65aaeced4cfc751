package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMultiContinuesPastFailingChild checks failures are joined and later children still run.
func TestMultiContinuesPastFailingChild(t *testing.T) {
	t.Parallel()

	errWrite := errors.New("write failed")
	tr := &trace{}
	last := newRecordingHandler("last", tr)
	m := NewMulti(
		Funcs{HandleFunc: func(context.Context, Event) error { return errWrite }},
		nil,
		Funcs{HandleFunc: func(context.Context, Event) error { panic("kaboom") }},
		last,
	)
	require.Equal(t, 3, m.Len())

	err := m.Handle(context.Background(), Status("s"))
	require.ErrorIs(t, err, errWrite)
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	require.Equal(t, "kaboom", panicErr.Value)
	require.Equal(t, []string{"last:status(s)"}, tr.Entries())

	require.NoError(t, m.Finish(context.Background()))
	require.Equal(t, 1, last.Finishes())
}

func TestMultiPushChains(t *testing.T) {
	t.Parallel()

	tr := &trace{}
	m := NewMulti().
		Push(newRecordingHandler("json", tr)).
		Push(newRecordingHandler("bar", tr))

	require.NoError(t, m.Handle(context.Background(), Installing()))
	require.Equal(t, []string{"json:lifecycle(installing)", "bar:lifecycle(installing)"}, tr.Entries())
}

func TestEmptyMultiIsVacuous(t *testing.T) {
	t.Parallel()

	m := NewMulti()
	require.NoError(t, m.Handle(context.Background(), Status("x")))
	require.NoError(t, m.Finish(context.Background()))
}

func TestFuncsNilFieldsAreNoops(t *testing.T) {
	t.Parallel()

	var f Funcs
	require.NoError(t, f.Handle(context.Background(), Status("x")))
	require.NoError(t, f.Finish(context.Background()))
}
