// Package turns runs conversation turns on a fixed set of shard workers.
// Work enqueued under the same key always lands on the same shard and runs
// in the order it was enqueued; different keys proceed in parallel.
package turns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/hrvbot/core/logger"
)

const component = "tg.turns"

var (
	// ErrQueueClosed is returned when enqueue is attempted after Close.
	ErrQueueClosed = errors.New("turns: queue closed")
	// ErrNilRun is returned when Enqueue receives no work.
	ErrNilRun = errors.New("turns: nil run function")
)

// Options controls the behaviour of the queue.
type Options struct {
	// Shards is the number of workers. Keys are spread across them.
	Shards int
	// QueueSize bounds pending work per shard. Enqueue blocks when full.
	QueueSize int
	// MaxDuration bounds a single turn; its context is cancelled afterwards.
	MaxDuration time.Duration
}

type job struct {
	ctx    context.Context
	key    int64
	action string
	run    func(context.Context) error
	queued time.Time
}

// Queue executes turns with per-key ordering.
type Queue struct {
	opts   Options
	shards []chan job

	mu     sync.RWMutex
	closed bool

	wg      sync.WaitGroup
	errs    atomic.Uint64
	handled atomic.Uint64
}

// NewQueue starts one worker per shard with defaults for zeroed options.
func NewQueue(opts Options) *Queue {
	if opts.Shards <= 0 {
		opts.Shards = 8
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 60 * time.Second
	}

	q := &Queue{
		opts:   opts,
		shards: make([]chan job, opts.Shards),
	}
	q.wg.Add(opts.Shards)
	for i := range q.shards {
		q.shards[i] = make(chan job, opts.QueueSize)
		go q.worker(i, q.shards[i])
	}
	return q
}

// Shard reports which worker serves key.
func (q *Queue) Shard(key int64) int {
	// splitmix64 finalizer spreads sequential user ids evenly.
	x := uint64(key)
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return int(x % uint64(len(q.shards)))
}

// Enqueue schedules run on the shard owning key. It blocks while the shard is
// full and returns early when ctx is done or the queue is closed.
func (q *Queue) Enqueue(ctx context.Context, key int64, action string, run func(context.Context) error) error {
	if run == nil {
		return ErrNilRun
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// The read lock keeps Close from closing the channel under a pending send.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	j := job{ctx: ctx, key: key, action: action, run: run, queued: time.Now()}
	select {
	case q.shards[q.Shard(key)] <- j:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("turns: enqueue %s: %w", action, ctx.Err())
	}
}

// ErrorCount returns the number of turns that failed or panicked.
func (q *Queue) ErrorCount() uint64 {
	return q.errs.Load()
}

// HandledCount returns the number of turns run to completion, failed or not.
func (q *Queue) HandledCount() uint64 {
	return q.handled.Load()
}

// Close rejects new work and waits for queued turns to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, ch := range q.shards {
		close(ch)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) worker(shard int, jobs <-chan job) {
	defer q.wg.Done()
	for j := range jobs {
		q.handleJob(shard, j)
	}
}

func (q *Queue) handleJob(shard int, j job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), q.opts.MaxDuration)
	defer cancel()
	defer q.handled.Add(1)

	start := time.Now()
	attrs := turnLogAttrs(ctx, j, shard)
	logger.Debug(ctx, component, "turn.start",
		append(attrs, slog.Int("wait_ms", durationToMS(start.Sub(j.queued))))...,
	)

	err := q.runSafe(ctx, j)
	elapsed := time.Since(start)
	if err != nil {
		q.errs.Add(1)
		logger.Error(ctx, component, "turn.fail",
			append(attrs,
				slog.String("error", sanitizeErrorMessage(err)),
				slog.String("error_kind", classifyError(err)),
				slog.Int("elapsed_ms", durationToMS(elapsed)),
			)...,
		)
		return
	}
	logger.Debug(ctx, component, "turn.done",
		append(attrs, slog.Int("elapsed_ms", durationToMS(elapsed)))...,
	)
}

func (q *Queue) runSafe(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, component, "turn.panic",
				slog.String("action", j.action),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("turns: %w in %s: %v", ErrPanic, j.action, r)
		}
	}()
	return j.run(ctx)
}

func turnLogAttrs(ctx context.Context, j job, shard int) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", j.action),
		slog.Int("shard", shard),
	}
	if rid := logger.RIDFrom(ctx); rid != "" {
		attrs = append(attrs, slog.String("rid", rid))
	}
	if updateID := logger.UpdateIDFrom(ctx); updateID != 0 {
		attrs = append(attrs, slog.Int("update_id", updateID))
	}
	if userID := logger.UserIDFrom(ctx); userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	} else {
		attrs = append(attrs, slog.Int64("user_id", j.key))
	}
	return attrs
}

func durationToMS(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(logger.RoundMS(d) / time.Millisecond)
}
