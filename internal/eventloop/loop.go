// Package eventloop runs an actor's messages as cooperative tasks and services the
// loop's backend between messages.
package eventloop

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hedisam/goexec/internal/mailbox"
	"github.com/hedisam/goexec/internal/task"
	"github.com/hedisam/goexec/reactor"
	"github.com/hedisam/goexec/sysmsg"
)

// busyTickTimeout is short enough for a probe to only check for an exit
const busyTickTimeout = time.Nanosecond

// Handler handles a user message inside its own task. Returning false stops the loop
// once the task completes.
type Handler func(ctx context.Context, message interface{}) (loop bool)

// SystemHandler handles system messages on the loop itself
type SystemHandler interface {
	HandleSystemMessage(message interface{}) (passToUser bool, msg interface{})
}

type Loop struct {
	logger      *zap.Logger
	mailbox     mailbox.Mailbox
	sched       *task.Scheduler
	backend     Backend
	idleTimeout time.Duration
	stopping    bool

	backendFactory BackendFactory
}

type Option func(l *Loop)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithIdleTimeout makes the handler receive a sysmsg.Timeout whenever nothing arrived
// for d and no backend work is pending
func WithIdleTimeout(d time.Duration) Option {
	return func(l *Loop) {
		l.idleTimeout = d
	}
}

// WithBackend sets the backend built around the loop's scheduler
func WithBackend(factory BackendFactory) Option {
	return func(l *Loop) {
		l.backendFactory = factory
	}
}

func New(m mailbox.Mailbox, opts ...Option) *Loop {
	l := &Loop{
		logger:  zap.NewNop(),
		mailbox: m,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.sched = task.NewScheduler(l.logger)
	l.backend = NopBackend{}
	if l.backendFactory != nil {
		l.backend = l.backendFactory(l.sched)
	}
	return l
}

func (l *Loop) Scheduler() *task.Scheduler {
	return l.sched
}

func (l *Loop) Backend() Backend {
	return l.backend
}

// Run receives messages until a handler returns false, a sysmsg.Shutdown arrives, the
// mailbox is disposed or ctx is done. It returns an error when a task panics or the
// backend fails. Whatever the reason, the backend is shut down and suspended tasks are
// resumed with an error before Run returns.
func (l *Loop) Run(ctx context.Context, sys SystemHandler, handler Handler) (err error) {
	defer func() {
		l.backend.Shutdown()
		l.sched.Shutdown(task.ErrShutdown)
	}()

	stop := context.AfterFunc(ctx, func() {
		l.mailbox.SendSystemMessage(sysmsg.Shutdown{})
	})
	defer stop()

	taskCtx := ctx
	if registrar, ok := l.backend.(reactor.Registrar); ok {
		taskCtx = reactor.NewContext(ctx, registrar)
	}

	for !l.stopping {
		pending := l.backend.Pending() > 0
		timeout := l.idleTimeout
		if pending {
			timeout = l.backend.Interval()
		}

		var msg interface{}
		l.mailbox.ReceiveWithTimeout(timeout, func(message interface{}) bool {
			msg = message
			return false
		})

		switch m := msg.(type) {
		case sysmsg.Timeout:
			if !pending && l.idleTimeout > 0 {
				if err := l.dispatch(taskCtx, handler, m); err != nil {
					return err
				}
			}
		case sysmsg.Shutdown:
			l.logger.Debug("shutdown requested")
			return nil
		case sysmsg.SystemMessage:
			if sys == nil {
				break
			}
			if pass, out := sys.HandleSystemMessage(m); pass {
				if err := l.dispatch(taskCtx, handler, out); err != nil {
					return err
				}
			}
		default:
			if msg == mailbox.ErrDisposed {
				l.logger.Debug("mailbox disposed")
				return nil
			}
			if err := l.dispatch(taskCtx, handler, msg); err != nil {
				return err
			}
		}

		if _, timedOut := msg.(sysmsg.Timeout); pending && !timedOut {
			l.backend.Wakeup()
		}

		if l.backend.Pending() > 0 {
			if err := l.backend.Tick(l.tickTimeout()); err != nil {
				return fmt.Errorf("event loop backend: %w", err)
			}
		}
	}

	return nil
}

// tickTimeout keeps probes from waiting while messages are queued, so a burst of
// messages gets dispatched before the backend blocks. Zero selects the backend's bound.
func (l *Loop) tickTimeout() time.Duration {
	if l.mailbox.Len() > 0 {
		return busyTickTimeout
	}
	return 0
}

func (l *Loop) dispatch(ctx context.Context, handler Handler, msg interface{}) error {
	return l.sched.Spawn(ctx, func(ctx context.Context) {
		if !handler(ctx, msg) {
			l.stopping = true
		}
	})
}
