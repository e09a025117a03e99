// Package tick provides schedulers for command hops.
//
// Loop is an authoritative update tick: tasks queue up from any goroutine and
// run one at a time, in submission order, on the goroutine that drives the loop.
// Immediate runs every task synchronously and is meant for hosts without a tick.
package tick

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/palaver/internal/logging"
)

// DefaultInterval is one game tick at 20 ticks per second.
const DefaultInterval = 50 * time.Millisecond

// Loop is a FIFO task queue drained once per tick.
type Loop struct {
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	queue []func(context.Context)
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates a stopped loop. Call Run to start ticking.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		interval: DefaultInterval,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Schedule queues task for the next tick. It never blocks.
func (l *Loop) Schedule(task func(ctx context.Context)) {
	if task == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Tick runs every task queued before the call and returns how many ran.
// Tasks scheduled while the batch runs wait for the next tick.
func (l *Loop) Tick(ctx context.Context) int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, task := range batch {
		l.run(ctx, task)
	}
	return len(batch)
}

// Run ticks until ctx is done, then returns ctx.Err().
// Tasks still queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

func (l *Loop) run(ctx context.Context, task func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("tick task panicked", "err", fmt.Errorf("%v", r))
		}
	}()
	task(ctx)
}

// Immediate runs tasks synchronously on the calling goroutine, one at a time.
type Immediate struct {
	mu  sync.Mutex
	ctx context.Context
}

// NewImmediate creates an Immediate scheduler whose tasks receive ctx.
func NewImmediate(ctx context.Context) *Immediate {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Immediate{ctx: ctx}
}

// Schedule runs task right away.
func (s *Immediate) Schedule(task func(ctx context.Context)) {
	if task == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	task(s.ctx)
}
