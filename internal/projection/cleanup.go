package projection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// CleanupStrategy selects how an execution folder is removed on Close.
type CleanupStrategy string

const (
	// CleanupImmediate deletes the folder synchronously.
	CleanupImmediate CleanupStrategy = "immediate"
	// CleanupDelayed hands the folder to a Cleaner after the retention delay.
	CleanupDelayed CleanupStrategy = "delayed"
	// CleanupNone keeps the folder.
	CleanupNone CleanupStrategy = "none"
)

// DefaultRetentionDelay is how long a folder is kept under CleanupDelayed.
const DefaultRetentionDelay = 30 * time.Minute

// ParseCleanupStrategy converts a configuration value into a strategy.
func ParseCleanupStrategy(s string) (CleanupStrategy, error) {
	switch CleanupStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case CleanupImmediate:
		return CleanupImmediate, nil
	case CleanupDelayed:
		return CleanupDelayed, nil
	case CleanupNone:
		return CleanupNone, nil
	default:
		return "", fmt.Errorf("unknown cleanup strategy %q", s)
	}
}

var (
	// ErrCleanupCancelled is reported by a handle cancelled before it ran.
	ErrCleanupCancelled = errors.New("cleanup cancelled")
	// ErrCleanerStopped is reported by handles the cleaner never ran.
	ErrCleanerStopped = errors.New("cleaner stopped")
)

// CleanupHandle tracks one scheduled folder deletion.
type CleanupHandle struct {
	dir      string
	deadline time.Time
	done     chan struct{}
	once     sync.Once
	err      error
}

func newCleanupHandle(dir string, deadline time.Time) *CleanupHandle {
	return &CleanupHandle{dir: dir, deadline: deadline, done: make(chan struct{})}
}

// Dir returns the folder the handle deletes.
func (h *CleanupHandle) Dir() string {
	return h.dir
}

// Deadline returns when the deletion is due.
func (h *CleanupHandle) Deadline() time.Time {
	return h.deadline
}

// Done is closed once the deletion ran, was cancelled or was abandoned.
func (h *CleanupHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the outcome after Done is closed.
func (h *CleanupHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Cancel withdraws a pending deletion. It has no effect once the deletion ran.
func (h *CleanupHandle) Cancel() {
	h.finish(ErrCleanupCancelled)
}

func (h *CleanupHandle) finish(err error) bool {
	finished := false
	h.once.Do(func() {
		h.err = err
		close(h.done)
		finished = true
	})
	return finished
}

func (h *CleanupHandle) cancelled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Cleaner deletes execution folders on a single background worker once
// their retention delay has passed.
type Cleaner struct {
	logger Logger
	remove func(string) error
	now    func() time.Time

	mu       sync.Mutex
	started  bool
	stopped  bool
	incoming []*CleanupHandle
	wake     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// CleanerOption configures a Cleaner.
type CleanerOption func(*Cleaner)

// WithCleanerLogger sets the logger used to report deletion failures.
func WithCleanerLogger(l Logger) CleanerOption {
	return func(c *Cleaner) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCleaner constructs a cleaner. Deletions scheduled before Start wait
// until the worker runs.
func NewCleaner(opts ...CleanerOption) *Cleaner {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cleaner{
		logger: noopLogger{},
		remove: os.RemoveAll,
		now:    time.Now,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins processing scheduled deletions. Later calls and calls after
// Stop do nothing.
func (c *Cleaner) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true
	c.wg.Add(1)
	go c.loop()
}

// Schedule queues dir for deletion after delay and never blocks. The returned
// handle is already done with ErrCleanerStopped when the cleaner has been
// stopped.
func (c *Cleaner) Schedule(dir string, delay time.Duration) *CleanupHandle {
	h := newCleanupHandle(dir, c.now().Add(delay))
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		h.finish(ErrCleanerStopped)
		return h
	}
	c.incoming = append(c.incoming, h)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return h
}

// drain takes the handles scheduled since the last call.
func (c *Cleaner) drain() []*CleanupHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.incoming
	c.incoming = nil
	return out
}

// Stop halts the worker and waits for it. Deletions that were not yet due
// are abandoned with ErrCleanerStopped and their folders are kept.
func (c *Cleaner) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = true
	started := c.started
	c.mu.Unlock()
	c.cancel()
	if !started {
		c.abandon(nil)
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cleaner) loop() {
	defer c.wg.Done()
	var pending []*CleanupHandle
	for {
		pending = c.runDue(append(pending, c.drain()...))
		var wake <-chan time.Time
		var timer *time.Timer
		if len(pending) > 0 {
			timer = time.NewTimer(pending[0].deadline.Sub(c.now()))
			wake = timer.C
		}
		select {
		case <-c.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			c.abandon(pending)
			return
		case <-c.wake:
		case <-wake:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// runDue deletes every due folder and returns the rest sorted by deadline.
func (c *Cleaner) runDue(pending []*CleanupHandle) []*CleanupHandle {
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].deadline.Before(pending[j].deadline)
	})
	now := c.now()
	rest := pending[:0]
	for _, h := range pending {
		if h.cancelled() {
			continue
		}
		if h.deadline.After(now) {
			rest = append(rest, h)
			continue
		}
		err := c.remove(h.dir)
		if err != nil {
			c.logger.Warn("execution folder cleanup failed", "dir", h.dir, "error", err)
		} else {
			c.logger.Debug("execution folder removed", "dir", h.dir)
		}
		h.finish(err)
	}
	return rest
}

func (c *Cleaner) abandon(pending []*CleanupHandle) {
	pending = append(pending, c.drain()...)
	for _, h := range pending {
		if h.finish(ErrCleanerStopped) {
			c.logger.Warn("execution folder cleanup abandoned", "dir", h.dir)
		}
	}
}
