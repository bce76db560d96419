package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pathwaycore/internal/analysis"
	"pathwaycore/internal/analysistest"
	"pathwaycore/internal/blob"
	"pathwaycore/internal/config"
	"pathwaycore/internal/data"
	"pathwaycore/internal/infra/persistence/memory"
	"pathwaycore/internal/result"
	"pathwaycore/pkg/analysisapi"
	"pathwaycore/pkg/domain"
)

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(prefix, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, prefix+msg)
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d:", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i:", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w:", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e:", msg) }

func (c *captureLogger) has(entry string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call == entry {
			return true
		}
	}
	return false
}

func loadedContainer(t *testing.T, opts ...data.Option) *data.Container {
	t.Helper()
	c := data.New(data.NewBlobSource(analysistest.Store(t)), opts...)
	c.Initialize(analysistest.SnapshotKey)
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return c
}

func sequentialTokens() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("tok-%d", n.Add(1)) }
}

func newService(t *testing.T, c DataSource, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(c, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func userData(ids ...string) analysis.UserData {
	out := analysis.UserData{}
	for _, id := range ids {
		out.Identifiers = append(out.Identifiers, domain.NewAnalysisIdentifier(id))
	}
	return out
}

func TestAnalysePersistsAndCaches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newService(t, loadedContainer(t), WithResultStore(store), WithTokenGenerator(sequentialTokens()))

	res, err := svc.Analyse(ctx, userData("P10001", "P10002", "X00000"), AnalyseRequest{FileName: "in.txt"})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if res.Token() != "tok-1" || res.Summary().FileName != "in.txt" {
		t.Fatalf("summary = %+v", res.Summary())
	}
	tokens, err := svc.Tokens(ctx)
	if err != nil || len(tokens) != 1 || tokens[0] != "tok-1" {
		t.Fatalf("tokens = %v, %v", tokens, err)
	}
	cached, err := svc.Result(ctx, "tok-1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if cached != res {
		t.Fatalf("expected cached result instance")
	}
}

func TestDefaultTokensAreUnique(t *testing.T) {
	svc := newService(t, loadedContainer(t))
	a, err := svc.Analyse(context.Background(), userData("P10001"), AnalyseRequest{})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	b, err := svc.Analyse(context.Background(), userData("P10001"), AnalyseRequest{})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if a.Token() == "" || a.Token() == b.Token() {
		t.Fatalf("tokens %q and %q", a.Token(), b.Token())
	}
}

func TestResultLoadsFromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	c := loadedContainer(t)
	first := newService(t, c, WithResultStore(store), WithTokenGenerator(sequentialTokens()))
	original, err := first.Analyse(ctx, userData("P10001", "Q20001"), AnalyseRequest{Projection: true})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}

	logger := &captureLogger{}
	second := newService(t, c, WithResultStore(store), WithLogger(logger))
	loaded, err := second.Result(ctx, original.Token())
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if loaded == original {
		t.Fatalf("expected a result decoded from the store")
	}
	q := result.Query{SortBy: "NAME"}
	if got, want := loaded.ResultSummary(q).Pathways, original.ResultSummary(q).Pathways; len(got) != len(want) || got[0].StID != want[0].StID {
		t.Fatalf("loaded pathways = %+v, want %+v", got, want)
	}
	if !logger.has("d:result cache miss") || !logger.has("d:result loaded from store") {
		t.Fatalf("logs = %v", logger.calls)
	}
}

func TestResultUnknownToken(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	svc := newService(t, loadedContainer(t), WithMetricsRecorder(metrics), WithTracer(tracer))
	_, err := svc.Result(context.Background(), "missing")
	if !errors.Is(err, ErrTokenNotFound) || !errors.Is(err, result.ErrNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if !metrics.has(OpResultLoad, false) || !tracer.has(OpResultLoad, false) {
		t.Fatalf("expected failed result.load to be observed")
	}
}

type gatedRepo struct {
	*memory.Store
	release chan struct{}
	loads   atomic.Int32
}

func (g *gatedRepo) Load(ctx context.Context, token string) ([]byte, error) {
	g.loads.Add(1)
	<-g.release
	return g.Store.Load(ctx, token)
}

func TestConcurrentResultLoadsShareOneRead(t *testing.T) {
	ctx := context.Background()
	c := loadedContainer(t)
	repo := &gatedRepo{Store: memory.NewStore(), release: make(chan struct{})}
	writer := newService(t, c, WithResultStore(repo), WithTokenGenerator(func() string { return "shared" }))
	if _, err := writer.Analyse(ctx, userData("P10001"), AnalyseRequest{}); err != nil {
		t.Fatalf("analyse: %v", err)
	}

	tracer := &captureTracer{}
	reader := newService(t, c, WithResultStore(repo), WithTracer(tracer))
	const readers = 8
	results := make([]*result.StoredResult, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := reader.Result(ctx, "shared")
			if err != nil {
				t.Errorf("result: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	deadline := time.Now().Add(2 * time.Second)
	for tracer.startedCount() < readers && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	if n := repo.loads.Load(); n != 1 {
		t.Fatalf("store loads = %d, want 1", n)
	}
	for i := 1; i < readers; i++ {
		if results[i] != results[0] {
			t.Fatalf("reader %d got a different instance", i)
		}
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, loadedContainer(t), WithTokenGenerator(sequentialTokens()))
	if _, err := svc.Analyse(ctx, userData("P10001"), AnalyseRequest{}); err != nil {
		t.Fatalf("analyse: %v", err)
	}
	removed, err := svc.Forget(ctx, "tok-1")
	if err != nil || !removed {
		t.Fatalf("forget = %v, %v", removed, err)
	}
	if _, err := svc.Result(ctx, "tok-1"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected forgotten token to be unknown, got %v", err)
	}
	if removed, _ := svc.Forget(ctx, "tok-1"); removed {
		t.Fatalf("second forget reported removal")
	}
}

func TestCacheEvictionFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, loadedContainer(t), WithCacheSize(1), WithTokenGenerator(sequentialTokens()))
	first, err := svc.Analyse(ctx, userData("P10001"), AnalyseRequest{})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if _, err := svc.Analyse(ctx, userData("Q20001"), AnalyseRequest{}); err != nil {
		t.Fatalf("analyse: %v", err)
	}
	again, err := svc.Result(ctx, first.Token())
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if again == first || again.PathwaysFound() != first.PathwaysFound() {
		t.Fatalf("expected evicted result to be decoded from the store")
	}
}

type failingRepo struct{ *memory.Store }

func (failingRepo) Save(context.Context, string, []byte) error { return errors.New("disk full") }

func TestAnalyseReportsPersistenceFailure(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	svc := newService(t, loadedContainer(t),
		WithResultStore(failingRepo{memory.NewStore()}),
		WithLogger(logger),
		WithMetricsRecorder(metrics))
	if _, err := svc.Analyse(context.Background(), userData("P10001"), AnalyseRequest{}); err == nil {
		t.Fatalf("expected persistence error")
	}
	if !logger.has("e:persist result failed") {
		t.Fatalf("logs = %v", logger.calls)
	}
	if !metrics.has(OpAnalyse, false) || !metrics.has(OpResultSave, false) {
		t.Fatalf("expected failed analyse to be observed")
	}
}

func TestAnalyseBeforeDataLoad(t *testing.T) {
	c := data.New(data.NewBlobSource(blob.NewMemory()))
	svc := newService(t, c)
	if _, err := svc.Analyse(context.Background(), userData("P10001"), AnalyseRequest{}); !errors.Is(err, data.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

type slowSource struct {
	release chan struct{}
	payload []byte
}

func (s slowSource) Open(context.Context, string) (io.ReadCloser, error) {
	<-s.release
	return io.NopCloser(bytes.NewReader(s.payload)), nil
}

func TestAnalyseWaitsForLoad(t *testing.T) {
	src := slowSource{release: make(chan struct{}), payload: analysistest.Encoded(t)}
	c := data.New(src)
	c.Initialize(analysistest.SnapshotKey)

	impatient := newService(t, c, WithLoadWait(10*time.Millisecond))
	if _, err := impatient.Analyse(context.Background(), userData("P10001"), AnalyseRequest{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	patient := newService(t, c, WithLoadWait(5*time.Second))
	done := make(chan error, 1)
	go func() {
		_, err := patient.Analyse(context.Background(), userData("P10001"), AnalyseRequest{})
		done <- err
	}()
	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("analyse after load: %v", err)
	}
}

func TestServiceObservability(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	c := loadedContainer(t, data.WithLoadObserver(LoadObserver(metrics)))
	svc := newService(t, c, WithMetricsRecorder(metrics), WithTracer(tracer), WithTokenGenerator(sequentialTokens()))
	if _, err := svc.Analyse(context.Background(), userData("P10001"), AnalyseRequest{}); err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if _, err := svc.Result(context.Background(), "tok-1"); err != nil {
		t.Fatalf("result: %v", err)
	}
	for _, op := range []string{OpAnalyse, OpResultSave, OpResultLoad} {
		if !metrics.has(op, true) || !tracer.has(op, true) {
			t.Fatalf("expected %s to be observed", op)
		}
	}
	if !metrics.has(OpContainerLoad, true) {
		t.Fatalf("expected container load to be observed")
	}
}

func TestCompareSpeciesThroughService(t *testing.T) {
	svc := newService(t, loadedContainer(t), WithTokenGenerator(sequentialTokens()))
	res, err := svc.CompareSpecies(context.Background(), analysistest.MouseID)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if res.Summary().Type != analysisapi.TypeSpeciesComparison {
		t.Fatalf("type = %s", res.Summary().Type)
	}
	if _, err := svc.CompareSpecies(context.Background(), 1); !errors.Is(err, analysis.ErrUnknownSpecies) {
		t.Fatalf("expected ErrUnknownSpecies, got %v", err)
	}
}

func TestReferenceSpeciesOption(t *testing.T) {
	svc := newService(t, loadedContainer(t), WithReferenceSpecies(analysistest.MouseTaxID))
	if svc.ReferenceTaxID() != analysistest.MouseTaxID {
		t.Fatalf("reference = %s", svc.ReferenceTaxID())
	}
	res, err := svc.Analyse(context.Background(), userData("P10001"), AnalyseRequest{Projection: true})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if res.Summary().Species != analysistest.MouseID {
		t.Fatalf("species = %d", res.Summary().Species)
	}
}

func TestNewServiceRequiresData(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatalf("expected error without data source")
	}
}

func TestOpenResultStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cases := []struct {
		name string
		cfg  func(*config.Config)
	}{
		{"memory", func(c *config.Config) { c.Results.Driver = config.ResultsMemory }},
		{"sqlite", func(c *config.Config) {
			c.Results.Driver = config.ResultsSQLite
			c.Results.SQLitePath = filepath.Join(dir, "results.db")
		}},
		{"badger", func(c *config.Config) {
			c.Results.Driver = config.ResultsBadger
			c.Results.BadgerPath = filepath.Join(dir, "badger")
		}},
		{"blob", func(c *config.Config) {
			c.Results.Driver = config.ResultsBlob
			c.Blob.Driver = blob.DriverMemory
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.cfg(&cfg)
			repo, err := OpenResultStore(ctx, cfg, nil)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer func() { _ = repo.Close() }()
			if err := repo.Save(ctx, "tok", []byte(`{}`)); err != nil {
				t.Fatalf("save: %v", err)
			}
			if _, err := repo.Load(ctx, "tok"); err != nil {
				t.Fatalf("load: %v", err)
			}
		})
	}
	cfg := config.Default()
	cfg.Results.Driver = "cassandra"
	if _, err := OpenResultStore(ctx, cfg, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
