package projection

import (
	"context"
	"io"
	"time"

	blobcore "vdypcore/internal/blob/core"
	"vdypcore/internal/observability"
	"vdypcore/pkg/domain"
)

// Archive receives the artifacts of a finished run. blob.Store satisfies it.
type Archive interface {
	Put(ctx context.Context, key string, r io.Reader, opts blobcore.PutOptions) (blobcore.Info, error)
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetricsRecorder sets the recorder observing every stage and the
// polygon as a whole.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *Context) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracer sets the tracer opening a span per stage and per polygon.
func WithTracer(t observability.Tracer) Option {
	return func(c *Context) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithArchive stores yield tables and control files of the run.
func WithArchive(a Archive) Option {
	return func(c *Context) {
		c.archive = a
	}
}

// WithRunStore persists the run record.
func WithRunStore(s domain.RunStore) Option {
	return func(c *Context) {
		c.runs = s
	}
}

// WithCleaner sets the worker used by CleanupDelayed.
func WithCleaner(cl *Cleaner) Option {
	return func(c *Context) {
		c.cleaner = cl
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(c *Context) {
		if id != "" {
			c.runID = id
		}
	}
}

// WithClock overrides the time source of run timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}
