// Package eventloop provides the shell's single UI-thread task loop.
//
// Browser-surface events, navigation decisions, bridge messages and readiness
// ticks all run as tasks on one Loop goroutine, so the shell core needs no
// locking. Deferred work is scheduled with AfterFunc, which posts the task
// back onto the loop when the timer fires; nothing ever sleeps on the loop.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("event loop is closed")

// Scheduler defers a task onto the UI thread. The returned function cancels
// the task if it has not started yet.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func())
}

// Loop serializes tasks onto one goroutine
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// New creates a loop; call Run to start processing
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. Posting to a closed loop drops the task.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// AfterFunc posts fn onto the loop once d has elapsed
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() {
	var (
		mu        sync.Mutex
		cancelled bool
	)
	timer := time.AfterFunc(d, func() {
		l.Post(func() {
			mu.Lock()
			skip := cancelled
			mu.Unlock()
			if !skip {
				fn()
			}
		})
	})
	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		timer.Stop()
	}
}

// Call runs fn on the loop and waits for it to finish. Must not be called
// from a task running on the loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks until ctx is cancelled. Pending tasks are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer l.shutdown()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return
			}
			fn()
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Done is closed once Run has returned
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
	close(l.done)
}
