// Package reactor multiplexes process-exit waits of many cooperative tasks onto the
// periodic ticks of a single event loop.
//
// A task calls Register and is suspended. Each loop iteration calls Tick, which probes
// every pending process with a bounded poll and resumes the tasks whose process exited.
// All of it happens on the loop's goroutine, the monitor table is never locked.
//
// Tick probes monitors one after another, so with K pending monitors a single tick can
// block the loop for up to K times the probe timeout while every process keeps running.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/hedisam/goexec/internal/task"
	"github.com/hedisam/goexec/proc"
)

// DefaultInterval bounds both the loop's idle wait while monitors are pending and a
// single probe
const DefaultInterval = 100 * time.Millisecond

const suspendReason = "execwait"

var (
	ErrUnsupportedEventKind = errors.New("unsupported event kind")
	ErrAlreadyWaiting       = errors.New("task is already waiting on a process")
	ErrShutdown             = errors.New("reactor has been shut down")
)

// ProbeError is handed to a waiting task when its process couldn't be probed
type ProbeError struct {
	Process Process
	Err     error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %v: %v", e.Process, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Registrar is implemented by event loop backends able to suspend a task until a
// process event happens
type Registrar interface {
	Register(ctx context.Context, p Process, kind EventKind) (proc.ExitStatus, error)
}

type Reactor struct {
	logger       *zap.Logger
	sched        *task.Scheduler
	table        *table
	interval     time.Duration
	probeTimeout time.Duration
	closed       bool
}

type Option func(r *Reactor)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Reactor) {
		r.logger = logger
	}
}

// WithInterval sets how often pending monitors are probed
func WithInterval(d time.Duration) Option {
	return func(r *Reactor) {
		r.interval = d
	}
}

// WithProbeTimeout sets the default bound of a single probe, the interval when unset
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Reactor) {
		r.probeTimeout = d
	}
}

// New returns a reactor resuming tasks of sched. It must only be used by the loop
// running sched.
func New(sched *task.Scheduler, opts ...Option) *Reactor {
	r := &Reactor{
		logger:   zap.NewNop(),
		sched:    sched,
		table:    newTable(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.interval <= 0 {
		r.interval = DefaultInterval
	}
	if r.probeTimeout <= 0 {
		r.probeTimeout = r.interval
	}
	r.logger = r.logger.With(zap.String("component", "reactor"))
	return r
}

// Register suspends the task running with ctx until p produces the kind event, then
// returns its exit status. To the caller it is a blocking wait.
func (r *Reactor) Register(ctx context.Context, p Process, kind EventKind) (proc.ExitStatus, error) {
	t, err := task.Current(ctx)
	if err != nil {
		return proc.ExitStatus{}, fmt.Errorf("register %s: %w", kind, err)
	}
	if r.closed {
		return proc.ExitStatus{}, ErrShutdown
	}

	m := &Monitor{Task: t, Process: p, Kind: kind}
	if !r.table.add(m) {
		return proc.ExitStatus{}, fmt.Errorf("register %s: %w", kind, ErrAlreadyWaiting)
	}
	r.logger.Debug("monitor registered", zap.String("task", t.ID()), zap.Stringer("kind", kind))

	value, err := t.Suspend(suspendReason)
	if err != nil {
		// the task may be resumed with an error while its monitor is still in the table,
		// e.g. by the scheduler's shutdown. remove is a no-op when the reactor dropped it.
		r.table.remove(t.ID())
		return proc.ExitStatus{}, err
	}

	status, _ := value.(proc.ExitStatus)
	return status, nil
}

// Tick probes every pending monitor once. timeout bounds each probe, the configured
// probe timeout is used when it's not positive.
//
// Probe and resume failures are local to their monitor and reported together after the
// whole table has been processed. An unsupported event kind is fatal and returned at once.
func (r *Reactor) Tick(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = r.probeTimeout
	}

	n := r.table.len()
	if n == 0 {
		return nil
	}
	r.logger.Debug("finding a process which is ready", zap.Int("monitors", n))

	var result *multierror.Error
	// only the monitors present on entry, tasks resumed below may register again
	for i := 0; i < n; i++ {
		m := r.table.pop()

		switch m.Kind {
		case Wait:
			status, exited, err := m.Process.PollExit(timeout)
			switch {
			case err != nil:
				r.table.drop(m)
				r.logger.Warn("probe failed", zap.String("task", m.Task.ID()), zap.Error(err))
				result = appendErr(result, r.resume(m, proc.ExitStatus{}, &ProbeError{Process: m.Process, Err: err}))
			case exited:
				r.table.drop(m)
				result = appendErr(result, r.resume(m, status, nil))
			default:
				r.table.pushBack(m)
			}
		default:
			r.table.pushBack(m)
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrUnsupportedEventKind, m))
			return result.ErrorOrNil()
		}
	}

	return result.ErrorOrNil()
}

func (r *Reactor) resume(m *Monitor, status proc.ExitStatus, err error) error {
	if rerr := r.sched.Resume(m.Task, status, err); rerr != nil {
		return fmt.Errorf("resume %s: %w", m, rerr)
	}
	return nil
}

func appendErr(result *multierror.Error, err error) *multierror.Error {
	if err == nil {
		return result
	}
	return multierror.Append(result, err)
}

// Pending returns the number of monitors waiting for their process
func (r *Reactor) Pending() int {
	return r.table.len()
}

// Interval is the longest the loop may idle while monitors are pending
func (r *Reactor) Interval() time.Duration {
	return r.interval
}

// Wakeup is called by the loop when a message interrupts its wait
func (r *Reactor) Wakeup() {
	r.logger.Debug("wakeup", zap.Int("monitors", r.table.len()))
}

// Shutdown purges every monitor and resumes its task with ErrShutdown
func (r *Reactor) Shutdown() {
	r.closed = true
	monitors := r.table.drain()
	r.logger.Info("shutdown", zap.Int("monitors", len(monitors)))

	for _, m := range monitors {
		if err := r.resume(m, proc.ExitStatus{}, ErrShutdown); err != nil {
			r.logger.Warn("task failed on shutdown", zap.Error(err))
		}
	}
}

type registrarKey struct{}

// NewContext returns a copy of ctx marking it as evented by r
func NewContext(ctx context.Context, r Registrar) context.Context {
	return context.WithValue(ctx, registrarKey{}, r)
}

// FromContext returns the registrar of an evented ctx
func FromContext(ctx context.Context) (Registrar, bool) {
	r, ok := ctx.Value(registrarKey{}).(Registrar)
	return r, ok && r != nil
}
