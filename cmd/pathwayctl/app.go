package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/config"
	"pathwaycore/internal/core"
	"pathwaycore/internal/data"
	"pathwaycore/internal/logging"
)

// app holds the process wiring shared by every command. Collaborators are
// opened lazily so commands only pay for what they use.
type app struct {
	configPath string
	tracing    string
	dumpStats  bool

	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  core.MetricsRecorder
	tracer   core.Tracer

	blobs     blob.Store
	container *data.Container
	service   *core.Service
}

// setup loads configuration and builds the logger, metrics and tracer.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	tracer, err := newTracer(a.tracing, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.registry = prometheus.NewRegistry()
	a.metrics = core.NewMetricsRecorder(cfg.Metrics, a.registry)
	a.tracer = tracer
	return nil
}

func newTracer(name string, w io.Writer) (core.Tracer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "json":
		return core.NewJSONTracer(w), nil
	case "otel":
		return core.NewOTelTracer(nil), nil
	default:
		return nil, fmt.Errorf("unknown tracer %q", name)
	}
}

func (a *app) openBlobs(ctx context.Context) (blob.Store, error) {
	if a.blobs != nil {
		return a.blobs, nil
	}
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.blobs = store
	return store, nil
}

// openContainer starts loading the configured snapshot.
func (a *app) openContainer(ctx context.Context) (*data.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	store, err := a.openBlobs(ctx)
	if err != nil {
		return nil, err
	}
	c := data.New(data.NewBlobSource(store),
		data.WithLogger(a.logger),
		data.WithLoadObserver(core.LoadObserver(a.metrics)))
	c.Initialize(a.cfg.Snapshot.Key)
	a.container = c
	return c, nil
}

// loadedContainer waits for the snapshot up to the configured load wait.
func (a *app) loadedContainer(ctx context.Context) (*data.Container, error) {
	c, err := a.openContainer(ctx)
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.Snapshot.LoadWait)
	defer cancel()
	if err := c.Wait(waitCtx); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *app) openService(ctx context.Context) (*core.Service, error) {
	if a.service != nil {
		return a.service, nil
	}
	c, err := a.openContainer(ctx)
	if err != nil {
		return nil, err
	}
	store, err := core.OpenResultStore(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	svc, err := core.NewService(c,
		core.WithLogger(a.logger),
		core.WithMetricsRecorder(a.metrics),
		core.WithTracer(a.tracer),
		core.WithResultStore(store),
		core.WithCacheSize(a.cfg.Results.CacheSize),
		core.WithReferenceSpecies(a.cfg.Analysis.ReferenceTaxID),
		core.WithLoadWait(a.cfg.Snapshot.LoadWait))
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	a.service = svc
	return svc, nil
}

// run wraps a command body so finish runs whether or not it fails.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		return errors.Join(err, a.finish(cmd))
	}
}

// finish writes recorded operation counters when requested and releases
// the result store and blob store.
func (a *app) finish(cmd *cobra.Command) error {
	var err error
	if a.dumpStats && a.registry != nil {
		err = writeCounters(cmd.ErrOrStderr(), a.registry)
	}
	if a.service != nil {
		err = errors.Join(err, a.service.Close())
		a.service = nil
	}
	if c, ok := a.blobs.(io.Closer); ok {
		err = errors.Join(err, c.Close())
		a.blobs = nil
	}
	return err
}

// writeCounters prints every counter sample of reg as "name{labels} value".
func writeCounters(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			if _, err := fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue()); err != nil {
				return err
			}
		}
	}
	return nil
}
