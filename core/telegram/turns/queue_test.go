package turns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"
)

func TestQueueKeepsPerKeyOrder(t *testing.T) {
	q := NewQueue(Options{Shards: 4, QueueSize: 8})

	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 50; i++ {
		for _, key := range []int64{1, 2, 3} {
			i, key := i, key
			err := q.Enqueue(context.Background(), key, "test", func(context.Context) error {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Fatalf("Enqueue() error = %v", err)
			}
		}
	}
	q.Close()

	for _, key := range []int64{1, 2, 3} {
		seq := got[key]
		if len(seq) != 50 {
			t.Fatalf("key %d ran %d turns, want 50", key, len(seq))
		}
		for i, v := range seq {
			if v != i {
				t.Fatalf("key %d turn %d ran as %d", key, i, v)
			}
		}
	}
	if q.HandledCount() != 150 {
		t.Fatalf("handled = %d, want 150", q.HandledCount())
	}
}

func TestQueueSameKeyNeverOverlaps(t *testing.T) {
	q := NewQueue(Options{Shards: 2})
	defer q.Close()

	var (
		mu      sync.Mutex
		running int
		overlap bool
		done    = make(chan struct{}, 10)
	)
	for i := 0; i < 10; i++ {
		_ = q.Enqueue(context.Background(), 42, "test", func(context.Context) error {
			mu.Lock()
			running++
			if running > 1 {
				overlap = true
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			done <- struct{}{}
			return nil
		})
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	if overlap {
		t.Fatal("turns for one key ran concurrently")
	}
}

func TestQueueCountsErrorsAndPanics(t *testing.T) {
	q := NewQueue(Options{Shards: 1})
	_ = q.Enqueue(context.Background(), 1, "fail", func(context.Context) error { return errors.New("boom") })
	_ = q.Enqueue(context.Background(), 1, "panic", func(context.Context) error { panic("kaboom") })
	_ = q.Enqueue(context.Background(), 1, "ok", func(context.Context) error { return nil })
	q.Close()

	if q.ErrorCount() != 2 {
		t.Fatalf("errors = %d, want 2", q.ErrorCount())
	}
	if q.HandledCount() != 3 {
		t.Fatalf("handled = %d, want 3", q.HandledCount())
	}
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := NewQueue(Options{})
	q.Close()
	q.Close()

	err := q.Enqueue(context.Background(), 1, "late", func(context.Context) error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Enqueue() error = %v, want ErrQueueClosed", err)
	}
	if err := q.Enqueue(context.Background(), 1, "nil", nil); !errors.Is(err, ErrNilRun) {
		t.Fatalf("Enqueue(nil) error = %v, want ErrNilRun", err)
	}
}

func TestQueueEnqueueHonoursContext(t *testing.T) {
	q := NewQueue(Options{Shards: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	_ = q.Enqueue(context.Background(), 1, "block", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	_ = q.Enqueue(context.Background(), 1, "fill", func(context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, 1, "overflow", func(context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Enqueue() error = %v, want deadline exceeded", err)
	}
	close(release)
	q.Close()
}

func TestQueueTurnContextIsBounded(t *testing.T) {
	q := NewQueue(Options{Shards: 1, MaxDuration: 10 * time.Millisecond})
	var got error
	_ = q.Enqueue(context.Background(), 1, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return got
	})
	q.Close()
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Fatalf("turn ctx err = %v, want deadline exceeded", got)
	}
}

func TestShardIsStable(t *testing.T) {
	q := NewQueue(Options{Shards: 5})
	defer q.Close()
	for _, key := range []int64{0, 1, 99, -7, 1 << 40} {
		s := q.Shard(key)
		if s < 0 || s >= 5 {
			t.Fatalf("Shard(%d) = %d out of range", key, s)
		}
		if q.Shard(key) != s {
			t.Fatalf("Shard(%d) not stable", key)
		}
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123:ABC-def/sendMessage": timeout`)
	got := sanitizeErrorMessage(err)
	if got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout` {
		t.Fatalf("sanitize = %q", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "cancelled"},
		{errors.New("telegram: Bad Request (400)"), "http_4xx"},
		{fmt.Errorf("turns: %w in x: y", ErrPanic), "panic"},
		{errors.New("telegram: Internal Server Error (502)"), "http_5xx"},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{errors.New("disk full"), "unknown"},
	}
	for _, tt := range tests {
		if got := classifyError(tt.err); got != tt.want {
			t.Fatalf("classifyError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
