package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Report a sample event sequence",
		Long: `Builds the configured handlers, reports a fixed sequence of status,
progress, and lifecycle events, then disconnects and waits for every
handler to finish.`,
		Args: cobra.NoArgs,
		RunE: runDemoCommand,
	}
}

// demoEvents is the sample sequence reported by the demo command.
func demoEvents() []progress.Event {
	return []progress.Event{
		progress.Status("chris!"),
		progress.Status("jean!"),
		progress.Progress(1, 10),
		progress.Status("chris!"),
		progress.Installing(),
		progress.Progress(5, 10),
		progress.Installing(),
		progress.Progress(10, 10),
		progress.Installing(),
	}
}

func runDemoCommand(cmd *cobra.Command, _ []string) (err error) {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, e.cfg, e.logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	if err := reportAll(ctx, a.Reporter(), demoEvents()); err != nil {
		e.logger.Warn("demo interrupted", zap.Error(err))
	}
	if err := a.Disconnect(ctx); err != nil {
		return err
	}
	if uri := a.ArchiveURI(); uri != "" {
		e.logger.Info("demo archive written", zap.String("uri", uri))
	}
	return nil
}

func reportAll(ctx context.Context, r *progress.Reporter, events []progress.Event) error {
	for _, evt := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Report(evt); err != nil {
			return fmt.Errorf("report %s: %w", evt, err)
		}
	}
	return nil
}
