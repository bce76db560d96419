package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	expvarSeq atomic.Uint64
	spanSeq   atomic.Uint64
)

// OperationStats aggregates the observations of one operation.
type OperationStats struct {
	Success int64   `json:"success"`
	Error   int64   `json:"error"`
	TotalMS float64 `json:"total_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// ExpvarMetricsRecorder aggregates operation outcomes in memory and
// publishes them as one expvar variable, for processes that expose
// /debug/vars instead of a Prometheus endpoint.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]*OperationStats
}

// NewExpvarMetricsRecorder publishes a recorder under name. An empty name
// picks a unique one; expvar names can only be published once per process.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("pathway_operations_%d", expvarSeq.Add(1))
	}
	r := &ExpvarMetricsRecorder{name: name, ops: make(map[string]*OperationStats)}
	expvar.Publish(name, expvar.Func(func() any { return r.Snapshot() }))
	return r
}

// Name is the expvar variable the recorder is published under.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current per-operation stats.
func (r *ExpvarMetricsRecorder) Snapshot() map[string]OperationStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]OperationStats, len(r.ops))
	for op, s := range r.ops {
		out[op] = *s
	}
	return out
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.ops[operation]
	if !ok {
		s = &OperationStats{}
		r.ops[operation] = s
	}
	if success {
		s.Success++
	} else {
		s.Error++
	}
	s.TotalMS += ms
	s.MaxMS = max(s.MaxMS, ms)
}

// JSONTraceEntry is one finished span as written by JSONTraceTracer.
type JSONTraceEntry struct {
	SpanID     uint64    `json:"span_id"`
	ParentID   uint64    `json:"parent_id,omitempty"`
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

type spanKey struct{}

// JSONTraceTracer writes every finished span as one JSON line and keeps the
// entries for inspection. Spans started under another span's context record
// it as their parent.
type JSONTraceTracer struct {
	mu      sync.Mutex
	enc     *json.Encoder
	entries []JSONTraceEntry
	now     func() time.Time
}

// NewJSONTracer returns a tracer writing to w; a nil w only retains entries.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{now: time.Now}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries copies the finished spans in the order they ended.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	parent, _ := ctx.Value(spanKey{}).(uint64)
	span := &jsonSpan{
		tracer: t,
		entry: JSONTraceEntry{
			SpanID:    spanSeq.Add(1),
			ParentID:  parent,
			Operation: operation,
			StartedAt: t.now().UTC(),
		},
	}
	return context.WithValue(ctx, spanKey{}, span.entry.SpanID), span
}

func (t *JSONTraceTracer) record(e JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	if t.enc != nil {
		_ = t.enc.Encode(e)
	}
}

type jsonSpan struct {
	tracer *JSONTraceTracer
	entry  JSONTraceEntry
	once   sync.Once
}

func (s *jsonSpan) End(err error) {
	s.once.Do(func() {
		e := s.entry
		e.Status = "success"
		if err != nil {
			e.Status = "error"
			e.Error = err.Error()
		}
		e.DurationMS = float64(s.tracer.now().Sub(e.StartedAt)) / float64(time.Millisecond)
		s.tracer.record(e)
	})
}
