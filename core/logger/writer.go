package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"time"
)

// idleFlush bounds how long a line may sit in the buffer when traffic stops.
const idleFlush = 200 * time.Millisecond

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter moves formatting off the caller's goroutine. Lines are fanned
// out to every sink through one buffer that is flushed when the queue goes
// idle, on Flush, and on Close.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error

	out *bufio.Writer
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]io.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, w)
		}
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
		out:     bufio.NewWriterSize(io.MultiWriter(sinks...), bufSize),
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	idle := time.NewTimer(idleFlush)
	defer idle.Stop()
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.fail(w.out.Flush())
				return
			}
			if _, err := w.out.Write(line); err != nil {
				w.fail(err)
			}
			idle.Reset(idleFlush)
		case <-idle.C:
			w.fail(w.out.Flush())
		case ack := <-w.flushes:
			w.drain()
			err := w.out.Flush()
			w.fail(err)
			ack <- err
		}
	}
}

// drain writes whatever is already queued so Flush covers earlier lines.
func (w *asyncWriter) drain() {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				return
			}
			if _, err := w.out.Write(line); err != nil {
				w.fail(err)
			}
		default:
			return
		}
	}
}

// Write queues a copy of p. It blocks only while the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	line := append([]byte(nil), p...)
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.lines <- line
	return nil
}

// Flush blocks until every line queued before the call reached the sinks.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return w.firstErr()
	}
	ack := make(chan error, 1)
	w.flushes <- ack
	w.mu.RUnlock()
	return <-ack
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
