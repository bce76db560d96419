// Package data owns the process-wide analysis data: the identifier indexes
// and pathway hierarchies decoded from a snapshot. The data is loaded once in
// the background and shared read-only by every analysis.
package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/logging"
	"pathwaycore/internal/snapshot"
	"pathwaycore/pkg/domain"
)

var (
	// ErrNotReady is returned by accessors before a successful load.
	ErrNotReady = errors.New("data: analysis data not loaded")
	// ErrLoadInProgress is returned while the data is still loading. It wraps ErrNotReady.
	ErrLoadInProgress = fmt.Errorf("%w: load in progress", ErrNotReady)
)

// LoadError reports a failed load attempt.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load analysis data %q: %v", e.Name, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// Source opens a snapshot by name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// BlobSource reads snapshots from a blob store, the name being the blob key.
type BlobSource struct {
	store blob.Store
}

// NewBlobSource adapts a blob store.
func NewBlobSource(store blob.Store) BlobSource { return BlobSource{store: store} }

// Open implements Source.
func (s BlobSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if s.store == nil {
		return nil, fmt.Errorf("blob source: no store configured")
	}
	_, rc, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

type state uint8

const (
	stateIdle state = iota
	stateLoading
	stateReady
	stateFailed
)

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Container) { c.logger = logging.OrNoop(l) }
}

// WithLoadObserver registers a callback invoked after every load attempt.
func WithLoadObserver(fn func(name string, elapsed time.Duration, err error)) Option {
	return func(c *Container) { c.observe = fn }
}

// WithClock overrides the time source used for load timings.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// Container holds the loaded snapshot. All methods are safe for concurrent use.
type Container struct {
	source  Source
	logger  logging.Logger
	observe func(string, time.Duration, error)
	now     func() time.Time

	mu    sync.Mutex
	state state
	name  string
	done  chan struct{}
	data  *snapshot.Data
	err   error
}

// New returns an unloaded container reading from source.
func New(source Source, opts ...Option) *Container {
	c := &Container{source: source, logger: logging.Noop(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Initialize starts loading the named snapshot in the background and returns
// immediately. Triggers while a load is running or after a successful load
// are ignored with a warning; a trigger after a failed load retries.
func (c *Container) Initialize(name string) {
	c.mu.Lock()
	switch c.state {
	case stateLoading, stateReady:
		current := c.name
		c.mu.Unlock()
		c.logger.Warn("analysis data already initialised", "requested", name, "current", current)
		return
	}
	done := make(chan struct{})
	c.state = stateLoading
	c.name = name
	c.done = done
	c.err = nil
	c.mu.Unlock()

	go c.load(name, done)
}

func (c *Container) load(name string, done chan struct{}) {
	start := c.now()
	c.logger.Info("loading analysis data", "name", name)
	d, err := c.read(name)
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	if err != nil {
		c.state = stateFailed
		c.err = &LoadError{Name: name, Err: err}
		err = c.err
	} else {
		c.state = stateReady
		c.data = d
	}
	close(done)
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("analysis data load failed", "name", name, "error", err)
	} else {
		c.logger.Info("analysis data loaded", "name", name,
			"identifiers", d.Entities.Len(),
			"interactors", d.Interactors.Len(),
			"species", len(d.Hierarchies),
			"pathways", d.PathwayCount(),
			"elapsed", elapsed)
	}
	if c.observe != nil {
		c.observe(name, elapsed, err)
	}
}

func (c *Container) read(name string) (*snapshot.Data, error) {
	if c.source == nil {
		return nil, fmt.Errorf("no snapshot source configured")
	}
	rc, err := c.source.Open(context.Background(), name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	d, err := snapshot.Decode(rc)
	if err != nil {
		return nil, err
	}
	if len(d.Hierarchies) == 0 {
		return nil, fmt.Errorf("snapshot %q has no species", name)
	}
	return d, nil
}

// Ready reports whether a load completed successfully.
func (c *Container) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateReady
}

// Wait blocks until the current load attempt finishes or ctx is done. It
// returns nil once loaded, the *LoadError of a failed attempt, and
// ErrNotReady when no load was ever triggered.
func (c *Container) Wait(ctx context.Context) error {
	c.mu.Lock()
	st, done, err := c.state, c.done, c.err
	c.mu.Unlock()
	switch st {
	case stateReady:
		return nil
	case stateFailed:
		return err
	case stateIdle:
		return ErrNotReady
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateReady {
		return nil
	}
	return c.err
}

// Data returns the loaded snapshot.
func (c *Container) Data() (*snapshot.Data, error) {
	c.mu.Lock()
	st, d := c.state, c.data
	c.mu.Unlock()
	switch st {
	case stateReady:
		return d, nil
	case stateLoading:
		c.logger.Error("analysis data requested while loading")
		return nil, ErrLoadInProgress
	default:
		c.logger.Error("analysis data requested before initialisation")
		return nil, ErrNotReady
	}
}

// EntitiesMap returns the shared entity index.
func (c *Container) EntitiesMap() (*domain.IdentifiersMap[*domain.EntityNode], error) {
	d, err := c.Data()
	if err != nil {
		return nil, err
	}
	return d.Entities, nil
}

// InteractorsMap returns the shared interactor index.
func (c *Container) InteractorsMap() (*domain.IdentifiersMap[*domain.InteractorNode], error) {
	d, err := c.Data()
	if err != nil {
		return nil, err
	}
	return d.Interactors, nil
}

// Species lists the species present in the snapshot, in snapshot order.
func (c *Container) Species() ([]domain.SpeciesNode, error) {
	d, err := c.Data()
	if err != nil {
		return nil, err
	}
	out := make([]domain.SpeciesNode, 0, len(d.Hierarchies))
	for _, h := range d.Hierarchies {
		out = append(out, h.Species)
	}
	return out, nil
}

// Hierarchies returns a fresh analysis arena over the shared hierarchies.
// Every call returns an independent value.
func (c *Container) Hierarchies() (*domain.HierarchiesData, error) {
	d, err := c.Data()
	if err != nil {
		return nil, err
	}
	return domain.NewHierarchiesData(d.Hierarchies), nil
}
