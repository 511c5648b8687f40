package task

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Scheduler runs the tasks of one event loop. Spawn, Resume and Shutdown must be called
// from the loop goroutine, or from a task of the same scheduler while it holds the baton.
type Scheduler struct {
	logger  *zap.Logger
	parked  map[xid.ID]*Task
	current *Task
	closed  bool
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger: logger.With(zap.String("component", "scheduler")),
		parked: make(map[xid.ID]*Task),
	}
}

// Spawn starts fn as a new task and runs it until it suspends or returns.
// A panic inside the task is returned as a *PanicError.
func (s *Scheduler) Spawn(ctx context.Context, fn Func) error {
	if s.closed {
		return ErrShutdown
	}
	t := newTask(s)

	prev := s.current
	s.current = t
	go t.run(WithTask(ctx, t), fn)
	<-t.yield
	s.current = prev

	return t.result()
}

// Resume wakes a suspended task, handing it value and err as the result of Suspend,
// and runs it until it suspends again or returns.
func (s *Scheduler) Resume(t *Task, value interface{}, err error) error {
	if t == nil || t.sched != s {
		return fmt.Errorf("resume: task doesn't belong to this scheduler")
	}
	if t.Status() != StatusSuspended {
		return fmt.Errorf("resume task %s: %w", t.ID(), ErrNotSuspended)
	}

	delete(s.parked, t.id)
	s.logger.Debug("resuming task", zap.String("task", t.ID()), zap.String("reason", t.reason))

	prev := s.current
	s.current = t
	t.setStatus(StatusRunning)
	t.wake <- resumeValue{value: value, err: err}
	<-t.yield
	s.current = prev

	return t.result()
}

func (s *Scheduler) park(t *Task) {
	s.parked[t.id] = t
	s.logger.Debug("task suspended", zap.String("task", t.ID()), zap.String("reason", t.reason))
}

// Current returns the task holding the baton, nil while the loop itself runs
func (s *Scheduler) Current() *Task {
	return s.current
}

// Suspended returns the number of parked tasks
func (s *Scheduler) Suspended() int {
	return len(s.parked)
}

// Shutdown resumes every parked task with err (ErrShutdown when nil). Tasks that try to
// suspend afterwards get ErrShutdown right away.
func (s *Scheduler) Shutdown(err error) {
	if err == nil {
		err = ErrShutdown
	}
	s.closed = true

	parked := make([]*Task, 0, len(s.parked))
	for _, t := range s.parked {
		parked = append(parked, t)
	}
	if len(parked) > 0 {
		s.logger.Info("waking parked tasks on shutdown", zap.Int("tasks", len(parked)))
	}
	for _, t := range parked {
		if rerr := s.Resume(t, nil, err); rerr != nil {
			s.logger.Warn("parked task failed on shutdown", zap.String("task", t.ID()), zap.Error(rerr))
		}
	}
}

func stack() []byte {
	return debug.Stack()
}
