// Copyright 2025 James Ross

// Package queue is the bounded hand-off between the HTTP admission
// path and the single dispatcher goroutine (spec.md §3, §4.2). It
// replaces the reference module's Redis-backed queue entirely: there
// is no broker, no persistence, and no cross-process visibility. A
// Go channel is the whole implementation, matching
// original_source/src/state.rs's tokio::sync::mpsc::Sender<Job>.
package queue

import (
	"errors"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
)

// ErrFull is returned by TrySend when the channel's buffer is at
// capacity. The caller (admission) rolls back any reservation it made
// and rejects the submission with a queue_full error.
var ErrFull = errors.New("queue: full")

// ErrClosed is returned by TrySend after Close has been called.
// cmd/sandboxd closes the queue during graceful shutdown; any
// submission racing the shutdown is rejected rather than leaked.
var ErrClosed = errors.New("queue: closed")

// Queue is a single-producer-many / single-consumer bounded hand-off.
// Many HTTP handler goroutines call TrySend concurrently; exactly one
// dispatcher goroutine calls Recv in a loop.
type Queue struct {
	ch     chan domain.Job
	closed chan struct{}
}

// New constructs a Queue with the given buffer size (config's
// queue_length, spec.md §6).
func New(capacity int) *Queue {
	return &Queue{
		ch:     make(chan domain.Job, capacity),
		closed: make(chan struct{}),
	}
}

// TrySend attempts a non-blocking enqueue. It never blocks: when the
// buffer is full it returns ErrFull immediately, which is exactly the
// signal admission needs to roll back its rate-limit reservation.
func (q *Queue) TrySend(job domain.Job) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- job:
		return nil
	default:
		return ErrFull
	}
}

// Recv blocks until a job is available or the queue is closed and
// drained, returning ok=false in the latter case.
func (q *Queue) Recv() (domain.Job, bool) {
	job, ok := <-q.ch
	return job, ok
}

// Close stops accepting new jobs and closes the underlying channel
// right away; Recv still returns the jobs already buffered before it
// reports closed. Safe to call once during shutdown.
func (q *Queue) Close() {
	select {
	case <-q.closed:
		return
	default:
		close(q.closed)
	}
	close(q.ch)
}

// Len reports the current depth, for the queue_depth gauge.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap reports the configured buffer size.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
