package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-pipeline/internal/app"
	"github.com/JakeFAU/progress-pipeline/internal/config"
	"github.com/JakeFAU/progress-pipeline/internal/storage/memory"
	"github.com/JakeFAU/progress-pipeline/internal/store"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDemoCommandReportsSequence(t *testing.T) {
	var out bytes.Buffer
	runs := memory.NewEventStore()
	var built *app.App

	orig := buildApp
	t.Cleanup(func() { buildApp = orig })
	buildApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
		a, err := app.Build(ctx, cfg, logger, app.Backends{Out: &out, Runs: runs})
		built = a
		return a, err
	}

	path := writeConfig(t, `
handlers: [json, store]
db:
  driver: memory
logging:
  level: error
`)
	root := newRootCmd()
	root.SetArgs([]string{"demo", "--config", path})
	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(demoEvents()))
	require.JSONEq(t, `{"type":"status","text":"chris!"}`, lines[0])
	require.JSONEq(t, `{"type":"progress","current":10,"max":10}`, lines[7])
	require.JSONEq(t, `{"type":"lifecycle","lifecycle":"installing"}`, lines[8])

	require.NotNil(t, built)
	run, err := runs.GetRun(context.Background(), built.RunID())
	require.NoError(t, err)
	require.Equal(t, store.RunFinished, run.Status)
	require.EqualValues(t, len(demoEvents()), run.EventCount)
}

func TestDemoCommandRejectsBadConfig(t *testing.T) {
	path := writeConfig(t, "handlers: [carrier-pigeon]\n")
	root := newRootCmd()
	root.SetArgs([]string{"demo", "--config", path})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	require.ErrorContains(t, err, "unknown handler")
}

func TestDemoEventsMatchSample(t *testing.T) {
	got := make([]string, 0, len(demoEvents()))
	for _, evt := range demoEvents() {
		got = append(got, evt.String())
	}
	require.Equal(t, []string{
		"status(chris!)",
		"status(jean!)",
		"progress(1/10)",
		"status(chris!)",
		"lifecycle(installing)",
		"progress(5/10)",
		"lifecycle(installing)",
		"progress(10/10)",
		"lifecycle(installing)",
	}, got)
}

func TestResolveEnvWithoutConfig(t *testing.T) {
	_, err := resolveEnv(context.Background())
	require.ErrorContains(t, err, "configuration not loaded")
}
