//go:build unix

package proc

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// exitWaiter blocks until the process may have exited or d elapsed. Returning doesn't
// mean the process exited, callers check again with a non-blocking reap.
type exitWaiter interface {
	wait(d time.Duration) error
	close() error
}

// backoffWaiter sleeps with growing pauses, for systems that can't wait on a process
// without reaping it
type backoffWaiter struct {
	mu sync.Mutex
	b  *backoff.ExponentialBackOff
}

func newBackoffWaiter() *backoffWaiter {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 0
	b.Reset()
	return &backoffWaiter{b: b}
}

func (w *backoffWaiter) wait(d time.Duration) error {
	w.mu.Lock()
	next := w.b.NextBackOff()
	w.mu.Unlock()

	if next == backoff.Stop || next > d {
		next = d
	}
	time.Sleep(next)
	return nil
}

func (w *backoffWaiter) close() error {
	return nil
}
