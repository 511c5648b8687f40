// Package task implements cooperative tasks for a single event loop.
//
// Every task runs on its own goroutine, but the scheduler passes a baton so that
// at any moment either the loop goroutine or exactly one of its tasks is running.
// State owned by the loop can therefore be touched from tasks without locking.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/xid"
)

var (
	ErrNoCurrentTask = errors.New("no task is running in this context")
	ErrNotSuspended  = errors.New("task is not suspended")
	ErrShutdown      = errors.New("task scheduler has been shut down")
)

type Status int32

const (
	StatusRunning Status = iota
	StatusSuspended
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusDone:
		return "done"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Func is the body of a task. ctx carries the task itself, see Current.
type Func func(ctx context.Context)

// PanicError is returned to the loop when a task panics
type PanicError struct {
	TaskID string
	Value  interface{}
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.TaskID, e.Value)
}

type resumeValue struct {
	value interface{}
	err   error
}

type Task struct {
	id     xid.ID
	sched  *Scheduler
	status int32
	reason string
	// wake hands the baton to the task, yield hands it back to the loop
	wake     chan resumeValue
	yield    chan struct{}
	panicked *PanicError
}

func newTask(sched *Scheduler) *Task {
	return &Task{
		id:     xid.New(),
		sched:  sched,
		status: int32(StatusRunning),
		wake:   make(chan resumeValue),
		yield:  make(chan struct{}),
	}
}

func (t *Task) ID() string {
	return t.id.String()
}

func (t *Task) Status() Status {
	return Status(atomic.LoadInt32(&t.status))
}

// Reason is the tag given to the last Suspend call
func (t *Task) Reason() string {
	return t.reason
}

func (t *Task) setStatus(s Status) {
	atomic.StoreInt32(&t.status, int32(s))
}

// Suspend parks the calling task and gives control back to the loop. It returns the
// value and error passed to the matching Scheduler.Resume call.
// Suspend must be called from the task's own goroutine.
func (t *Task) Suspend(reason string) (interface{}, error) {
	if t.Status() != StatusRunning || t.sched.current != t {
		return nil, ErrNoCurrentTask
	}
	if t.sched.closed {
		return nil, ErrShutdown
	}

	t.reason = reason
	t.setStatus(StatusSuspended)
	t.sched.park(t)

	t.yield <- struct{}{}
	rv := <-t.wake
	return rv.value, rv.err
}

func (t *Task) run(ctx context.Context, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			t.panicked = &PanicError{TaskID: t.ID(), Value: r, Stack: stack()}
		}
		t.setStatus(StatusDone)
		t.yield <- struct{}{}
	}()
	fn(ctx)
}

// result reports a panic once, after the task finished
func (t *Task) result() error {
	if t.Status() != StatusDone || t.panicked == nil {
		return nil
	}
	err := t.panicked
	t.panicked = nil
	return err
}

type contextKey struct{}

// WithTask returns a copy of ctx carrying t
func WithTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the task carried by ctx, if any
func FromContext(ctx context.Context) (*Task, bool) {
	t, ok := ctx.Value(contextKey{}).(*Task)
	return t, ok && t != nil
}

// Current returns the task executing with ctx. It fails when ctx carries no task or
// the task isn't the one holding the baton.
func Current(ctx context.Context) (*Task, error) {
	t, ok := FromContext(ctx)
	if !ok || t.Status() != StatusRunning {
		return nil, ErrNoCurrentTask
	}
	return t, nil
}
