// Package core is the service facade over the analysis engine: it waits for
// the shared data, issues tokens, persists and caches stored results, and
// reports every operation to metrics and tracing.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"pathwaycore/internal/analysis"
	"pathwaycore/internal/infra/persistence/memory"
	"pathwaycore/internal/logging"
	"pathwaycore/internal/result"
)

// DefaultCacheSize is the number of results kept in memory when unset.
const DefaultCacheSize = 64

// ErrTokenNotFound is returned for tokens with no stored result.
var ErrTokenNotFound = fmt.Errorf("core: unknown token: %w", result.ErrNotFound)

// DataSource is the shared analysis data the service analyses against.
// *data.Container satisfies it.
type DataSource interface {
	analysis.Data
	Wait(ctx context.Context) error
}

// AnalyseRequest carries the caller-controlled options of one analysis.
type AnalyseRequest struct {
	Projection  bool
	Interactors bool
	SampleName  string
	FileName    string
	Text        bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNoop(l) }
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the clock used for durations.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithResultStore sets where results are persisted. The default keeps them in memory.
func WithResultStore(r result.Repository) Option {
	return func(s *Service) {
		if r != nil {
			s.store = r
		}
	}
}

// WithCacheSize sets how many results are kept in memory.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// WithTokenGenerator replaces the UUID token generator.
func WithTokenGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newToken = fn
		}
	}
}

// WithReferenceSpecies sets the taxonomy id projections map onto.
func WithReferenceSpecies(taxID string) Option {
	return func(s *Service) {
		if taxID != "" {
			s.referenceTaxID = taxID
		}
	}
}

// WithLoadWait bounds how long an analysis waits for the data to load.
// Zero waits as long as the caller's context allows.
func WithLoadWait(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.loadWait = d
		}
	}
}

// Service runs analyses and serves their results. It is safe for concurrent use.
type Service struct {
	data           DataSource
	analyzer       *analysis.Analyzer
	store          result.Repository
	cache          *lru.Cache[string, *result.StoredResult]
	flight         singleflight.Group
	logger         logging.Logger
	metrics        MetricsRecorder
	tracer         Tracer
	now            func() time.Time
	newToken       func() string
	cacheSize      int
	referenceTaxID string
	loadWait       time.Duration
}

// NewService constructs a service over data.
func NewService(data DataSource, opts ...Option) (*Service, error) {
	if data == nil {
		return nil, errors.New("core: data source required")
	}
	s := &Service{
		data:           data,
		logger:         logging.Noop(),
		metrics:        noopMetrics{},
		tracer:         noopTracer{},
		now:            time.Now,
		newToken:       uuid.NewString,
		cacheSize:      DefaultCacheSize,
		referenceTaxID: analysis.DefaultReferenceTaxID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}
	cache, err := lru.New[string, *result.StoredResult](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	s.cache = cache
	s.analyzer = analysis.New(data,
		analysis.WithLogger(s.logger),
		analysis.WithReferenceTaxID(s.referenceTaxID))
	return s, nil
}

// ReferenceTaxID is the species projections map onto.
func (s *Service) ReferenceTaxID() string { return s.referenceTaxID }

// observe starts a span and returns the func that ends it and records metrics.
func (s *Service) observe(ctx context.Context, op string) (context.Context, func(error)) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, op)
	return ctx, func(err error) {
		span.End(err)
		s.metrics.Observe(ctx, op, err == nil, s.now().Sub(start))
	}
}

func (s *Service) waitForData(ctx context.Context) error {
	if s.loadWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadWait)
		defer cancel()
	}
	if err := s.data.Wait(ctx); err != nil {
		return fmt.Errorf("analysis data unavailable: %w", err)
	}
	return nil
}

// Analyse runs an analysis of ud under a fresh token, then persists and caches the result.
func (s *Service) Analyse(ctx context.Context, ud analysis.UserData, req AnalyseRequest) (res *result.StoredResult, err error) {
	ctx, done := s.observe(ctx, OpAnalyse)
	defer func() { done(err) }()
	if err = s.waitForData(ctx); err != nil {
		return nil, err
	}
	res, err = s.analyzer.Analyse(ctx, ud, analysis.Request{
		Token:       s.newToken(),
		Projection:  req.Projection,
		Interactors: req.Interactors,
		SampleName:  req.SampleName,
		FileName:    req.FileName,
		Text:        req.Text,
	})
	if err != nil {
		return nil, err
	}
	if err = s.keep(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// CompareSpecies compares a species against the reference species under a fresh token.
func (s *Service) CompareSpecies(ctx context.Context, speciesID int64) (res *result.StoredResult, err error) {
	ctx, done := s.observe(ctx, OpCompareSpecies)
	defer func() { done(err) }()
	if err = s.waitForData(ctx); err != nil {
		return nil, err
	}
	res, err = s.analyzer.CompareSpecies(ctx, speciesID, analysis.Request{Token: s.newToken()})
	if err != nil {
		return nil, err
	}
	if err = s.keep(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) keep(ctx context.Context, res *result.StoredResult) (err error) {
	ctx, done := s.observe(ctx, OpResultSave)
	defer func() { done(err) }()
	payload, err := result.Marshal(res)
	if err != nil {
		return err
	}
	if err = s.store.Save(ctx, res.Token(), payload); err != nil {
		s.logger.Error("persist result failed", "token", res.Token(), "error", err)
		return fmt.Errorf("persist result %s: %w", res.Token(), err)
	}
	s.cache.Add(res.Token(), res)
	return nil
}

// Result returns the stored result of token from the cache or the result
// store. Concurrent misses for one token share a single store read.
func (s *Service) Result(ctx context.Context, token string) (res *result.StoredResult, err error) {
	ctx, done := s.observe(ctx, OpResultLoad)
	defer func() { done(err) }()
	if cached, ok := s.cache.Get(token); ok {
		return cached, nil
	}
	s.logger.Debug("result cache miss", "token", token)
	v, err, _ := s.flight.Do(token, func() (any, error) {
		payload, err := s.store.Load(ctx, token)
		if errors.Is(err, result.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, token)
		}
		if err != nil {
			return nil, fmt.Errorf("load result %s: %w", token, err)
		}
		loaded, err := result.Unmarshal(payload)
		if err != nil {
			return nil, fmt.Errorf("decode result %s: %w", token, err)
		}
		s.logger.Debug("result loaded from store", "token", token)
		s.cache.Add(token, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*result.StoredResult), nil
}

// Tokens lists the tokens in the result store.
func (s *Service) Tokens(ctx context.Context) ([]string, error) {
	return s.store.Tokens(ctx)
}

// Forget drops a result from the cache and the store and reports whether
// the store held it.
func (s *Service) Forget(ctx context.Context, token string) (bool, error) {
	s.cache.Remove(token)
	return s.store.Delete(ctx, token)
}

// Close releases the result store.
func (s *Service) Close() error { return s.store.Close() }
