// Package app builds the progress pipeline from configuration and owns the
// long-lived clients its handlers depend on.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-pipeline/internal/config"
	"github.com/JakeFAU/progress-pipeline/internal/id"
	"github.com/JakeFAU/progress-pipeline/internal/progress"
	"github.com/JakeFAU/progress-pipeline/internal/progress/handlers"
	pubsubpub "github.com/JakeFAU/progress-pipeline/internal/publisher/pubsub"
	"github.com/JakeFAU/progress-pipeline/internal/server"
	"github.com/JakeFAU/progress-pipeline/internal/storage/gcs"
	"github.com/JakeFAU/progress-pipeline/internal/storage/local"
	"github.com/JakeFAU/progress-pipeline/internal/storage/memory"
	"github.com/JakeFAU/progress-pipeline/internal/storage/postgres"
	"github.com/JakeFAU/progress-pipeline/internal/store"
)

// Backends overrides the clients Build would otherwise dial from config.
// Nil fields fall back to config.
type Backends struct {
	// Out receives JSON records (when json.path is empty) and the bar.
	Out       io.Writer
	Runs      store.EventRepository
	Publisher handlers.Publisher
	Blobs     handlers.BlobStore
	Registry  *prometheus.Registry
}

type closer struct {
	name string
	fn   func() error
}

// App holds the running pipeline: the producer-side Reporter, the Writer, and
// every client the configured handlers need.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	runID    uuid.UUID

	reporter *progress.Reporter
	writer   *progress.Writer
	runs     store.EventRepository
	archive  *handlers.Archive
	closers  []closer

	stopServer context.CancelFunc
	serverDone chan error
}

// Build dials the configured backends, builds one handler per entry of
// cfg.Handlers in order, and starts the Writer. On error every client opened
// so far is released.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, b Backends) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := b.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	runID, err := id.NewRunID()
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		runID:    runID,
	}
	defer func() {
		if err != nil {
			a.closeBackends()
		}
	}()

	out := b.Out
	if out == nil {
		out = os.Stderr
	}

	hs := make([]progress.Handler, 0, len(cfg.Handlers))
	for _, name := range cfg.Handlers {
		h, buildErr := a.buildHandler(ctx, name, out, b)
		if buildErr != nil {
			return nil, fmt.Errorf("build %s handler: %w", name, buildErr)
		}
		hs = append(hs, h)
		logger.Debug("progress handler enabled", zap.String("handler", name))
	}

	if cfg.Metrics.Addr != "" {
		if err := a.startServer(cfg.Metrics.Addr); err != nil {
			return nil, err
		}
	}

	a.reporter, a.writer = progress.New(progress.Config{
		HandlerTimeout: cfg.Reporter.HandlerTimeout,
		Logger:         logger.Named("progress"),
	}, hs...)
	logger.Info("progress pipeline started",
		zap.Strings("handlers", cfg.Handlers),
		zap.Stringer("run_id", a.runID),
	)
	return a, nil
}

func (a *App) buildHandler(ctx context.Context, name string, out io.Writer, b Backends) (progress.Handler, error) {
	switch name {
	case config.HandlerJSON:
		return a.jsonHandler(out)
	case config.HandlerBar:
		return handlers.NewBar(handlers.BarConfig{
			Width:          a.cfg.Bar.Width,
			LifecycleDelay: a.cfg.Bar.LifecycleDelay,
			Out:            out,
		}), nil
	case config.HandlerLog:
		return handlers.NewLog(a.logger.Named("events")), nil
	case config.HandlerMetrics:
		return handlers.NewMetrics(a.registry)
	case config.HandlerStore:
		repo, err := a.eventRepository(ctx, b.Runs)
		if err != nil {
			return nil, err
		}
		return handlers.NewStore(repo, a.runID, a.logger), nil
	case config.HandlerPublish:
		pub, err := a.publisher(ctx, b.Publisher)
		if err != nil {
			return nil, err
		}
		return handlers.NewPublish(pub, a.cfg.PubSub.TopicName)
	case config.HandlerArchive:
		blobs, err := a.blobStore(ctx, b.Blobs)
		if err != nil {
			return nil, err
		}
		archive, err := handlers.NewArchive(blobs, a.cfg.Storage.Prefix, a.runID, a.logger)
		if err != nil {
			return nil, err
		}
		a.archive = archive
		return archive, nil
	default:
		return nil, fmt.Errorf("unknown handler %q", name)
	}
}

func (a *App) jsonHandler(out io.Writer) (progress.Handler, error) {
	if a.cfg.JSON.Path == "" {
		return handlers.NewJSON(out), nil
	}
	// #nosec G304 -- the path comes from operator configuration.
	f, err := os.OpenFile(a.cfg.JSON.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.cfg.JSON.Path, err)
	}
	a.addCloser("json file", f.Close)
	return handlers.NewJSON(f), nil
}

func (a *App) eventRepository(ctx context.Context, override store.EventRepository) (store.EventRepository, error) {
	switch {
	case override != nil:
		a.runs = override
	case a.cfg.DB.Driver == config.DriverMemory:
		a.runs = memory.NewEventStore()
	default:
		pg, err := postgres.NewEventStore(ctx, postgres.EventStoreConfig{
			DSN:      a.cfg.DB.DSN,
			MaxConns: a.cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		a.addCloser("postgres", func() error { pg.Close(); return nil })
		a.runs = pg
	}
	return a.runs, nil
}

func (a *App) publisher(ctx context.Context, override handlers.Publisher) (handlers.Publisher, error) {
	if override != nil {
		return override, nil
	}
	pub, err := pubsubpub.Dial(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, err
	}
	a.addCloser("pubsub", pub.Close)
	return pub, nil
}

func (a *App) blobStore(ctx context.Context, override handlers.BlobStore) (handlers.BlobStore, error) {
	if override != nil {
		return override, nil
	}
	if a.cfg.Storage.Backend == config.BackendLocal {
		return local.New(local.Config{BaseDir: a.cfg.Storage.LocalDir})
	}
	blobs, err := gcs.Dial(ctx, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
	if err != nil {
		return nil, err
	}
	a.addCloser("gcs", blobs.Close)
	return blobs, nil
}

func (a *App) startServer(addr string) error {
	srv, err := server.New(server.Options{
		Gatherer:   a.registry,
		Registerer: a.registry,
		Runs:       a.runs,
		Logger:     a.logger.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("build http server: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.stopServer = cancel
	a.serverDone = make(chan error, 1)
	go func() {
		a.serverDone <- srv.Serve(ctx, addr)
	}()
	return nil
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Reporter returns the producer handle. It may be shared by any number of
// goroutines.
func (a *App) Reporter() *progress.Reporter {
	return a.reporter
}

// Writer exposes the consumer for state inspection.
func (a *App) Writer() *progress.Writer {
	return a.writer
}

// RunID identifies this pipeline's run in the store and archive.
func (a *App) RunID() uuid.UUID {
	return a.runID
}

// Registry is the Prometheus registry shared by the metrics handler and server.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// ArchiveURI returns where the archive handler uploaded the stream, or "" when
// it is disabled or has not finished.
func (a *App) ArchiveURI() string {
	if a.archive == nil {
		return ""
	}
	return a.archive.URI()
}

// Disconnect ends the event stream and waits for every handler to finish.
// A non-zero reporter.disconnect_timeout bounds the wait. Cancellation of ctx
// does not cut the drain short; only the timeout does.
func (a *App) Disconnect(ctx context.Context) error {
	timeout := a.cfg.Reporter.DisconnectTimeout
	if timeout <= 0 {
		a.reporter.Disconnect()
		a.logger.Info("progress pipeline disconnected", zap.Stringer("run_id", a.runID))
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if _, err := a.reporter.DisconnectContext(ctx); err != nil {
		a.logger.Warn("progress pipeline did not acknowledge in time",
			zap.Duration("timeout", timeout),
			zap.Stringer("writer_state", a.writer.State()),
		)
		return fmt.Errorf("disconnect: %w", err)
	}
	a.logger.Info("progress pipeline disconnected", zap.Stringer("run_id", a.runID))
	return nil
}

// Close stops the HTTP server and releases every backend client. Call it
// after Disconnect so handlers can still use their clients while finishing.
func (a *App) Close() error {
	var errs []error
	if a.stopServer != nil {
		a.stopServer()
		select {
		case err := <-a.serverDone:
			if err != nil {
				errs = append(errs, err)
			}
		case <-time.After(10 * time.Second):
			errs = append(errs, errors.New("http server did not stop"))
		}
	}
	errs = append(errs, a.closeBackends())
	return errors.Join(errs...)
}

func (a *App) closeBackends() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("backend close failed", zap.String("backend", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
