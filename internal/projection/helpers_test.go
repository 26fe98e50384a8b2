package projection

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	blobcore "vdypcore/internal/blob/core"
	"vdypcore/internal/growth"
	"vdypcore/internal/observability"
	"vdypcore/pkg/domain"
)

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	ended []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, observability.TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type logEntry struct {
	level string
	msg   string
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// scriptedRunner fails components with fixed return codes and records every
// call.
type scriptedRunner struct {
	codes map[domain.Component]growth.ReturnCode
	calls []domain.Component
}

func (r *scriptedRunner) Run(_ context.Context, component domain.Component, job Job) *StageFailure {
	r.calls = append(r.calls, component)
	if code, ok := r.codes[component]; ok && code != growth.CodeOK {
		return &StageFailure{Component: component, Type: job.Layer.Type, Code: code}
	}
	return nil
}

type memoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func (a *memoryArchive) Put(_ context.Context, key string, r io.Reader, opts blobcore.PutOptions) (blobcore.Info, error) {
	if a.fail {
		return blobcore.Info{}, fmt.Errorf("archive unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return blobcore.Info{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = make(map[string][]byte)
	}
	a.objects[key] = data
	return blobcore.Info{Key: key, Size: int64(len(data)), ContentType: opts.ContentType}, nil
}

type memoryRunStore struct {
	records []domain.RunRecord
}

func (s *memoryRunStore) SaveRun(_ context.Context, rec domain.RunRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryRunStore) GetRun(_ context.Context, id string) (domain.RunRecord, error) {
	for _, rec := range s.records {
		if rec.RunID == id {
			return rec, nil
		}
	}
	return domain.RunRecord{}, domain.ErrRunNotFound
}

func (s *memoryRunStore) ListRunsByPolygon(_ context.Context, polygonID string) ([]domain.RunRecord, error) {
	var out []domain.RunRecord
	for _, rec := range s.records {
		if rec.PolygonID == polygonID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memoryRunStore) Close() error { return nil }

func primaryLayer() domain.Layer {
	return domain.Layer{
		Type:         domain.ProjectionPrimary,
		CrownClosure: 55,
		Species: []domain.Species{
			{Genus: "FD", Percent: 60, SiteIndex: 28, TotalAge: 60, Height: 26},
			{Genus: "HW", Percent: 40, SiteIndex: 24, TotalAge: 55, Height: 21},
		},
	}
}

func testPolygon(standard domain.InventoryStandard, layers ...domain.Layer) *domain.Polygon {
	return &domain.Polygon{
		ID:            "13919428",
		FeatureID:     13919428,
		MapSheet:      "092L024",
		BECZone:       "CWH",
		ReferenceYear: 2013,
		Standard:      standard,
		Layers:        layers,
	}
}
