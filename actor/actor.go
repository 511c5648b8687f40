package actor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hedisam/goexec/config"
	"github.com/hedisam/goexec/internal/eventloop"
	"github.com/hedisam/goexec/internal/task"
	"github.com/hedisam/goexec/reactor"
	"github.com/hedisam/goexec/sysmsg"
)

type Func func(a *Actor)

// Handler handles one message inside its own task. ctx belongs to that task, pass it
// on to supervised.Process.Wait so the wait suspends the task rather than the actor.
type Handler = eventloop.Handler

type Actor struct {
	self    *PID
	args    []interface{}
	ctx     context.Context
	cfg     config.Config
	evented bool
	name    string
	logger  *zap.Logger
	// actors that are monitoring me. one way communication
	monitors map[string]*PID
}

func (a *Actor) Self() *PID {
	return a.self
}

func (a *Actor) Args() []interface{} {
	return a.args
}

// Context is canceled once the actor has been stopped
func (a *Actor) Context() context.Context {
	return a.ctx
}

func (a *Actor) Done() <-chan struct{} {
	return a.ctx.Done()
}

func (a *Actor) Logger() *zap.Logger {
	return a.logger
}

// Evented reports whether the actor's loop runs a reactor
func (a *Actor) Evented() bool {
	return a.evented
}

// Receive runs the actor's event loop, handling every message in a task of its own,
// until a handler returns false or the actor is stopped. A fatal loop error (a panicking
// task, an unsupported wait) terminates the actor like a panic does.
func (a *Actor) Receive(handler Handler) {
	a.receive(0, handler)
}

// ReceiveWithTimeout is Receive, with a sysmsg.Timeout handed to handler whenever
// nothing happened for d
func (a *Actor) ReceiveWithTimeout(d time.Duration, handler Handler) {
	a.receive(d, handler)
}

func (a *Actor) receive(idle time.Duration, handler Handler) {
	opts := []eventloop.Option{
		eventloop.WithLogger(a.logger),
		eventloop.WithIdleTimeout(idle),
	}
	if a.evented {
		opts = append(opts, eventloop.WithBackend(a.newReactor))
	}

	loop := eventloop.New(a.self.pid.Mailbox(), opts...)
	if err := loop.Run(a.ctx, &systemHandler{actor: a}, handler); err != nil {
		panic(err)
	}
}

func (a *Actor) newReactor(sched *task.Scheduler) eventloop.Backend {
	return reactor.New(sched,
		reactor.WithLogger(a.logger),
		reactor.WithInterval(a.cfg.PollInterval),
		reactor.WithProbeTimeout(a.cfg.EffectiveProbeTimeout()),
	)
}

// Monitor asks for a sysmsg.Exit once pid terminates. It arrives right away when pid
// has already terminated.
func (a *Actor) Monitor(pid *PID) {
	if !pid.sendSystemMessage(sysmsg.Monitor{Parent: a.self}) {
		a.self.sendSystemMessage(sysmsg.Exit{
			Who:      pid,
			Reason:   sysmsg.Reason{Type: sysmsg.NoProc},
			Relation: sysmsg.Monitored,
		})
	}
}

func (a *Actor) Demonitor(pid *PID) {
	pid.sendSystemMessage(sysmsg.Monitor{Parent: a.self, Revert: true})
}

// SpawnMonitor spawns an actor monitored by the caller
func (a *Actor) SpawnMonitor(fn Func, opts ...Option) (*PID, error) {
	return SpawnWithOptions(fn, append(opts, WithMonitor(a.self))...)
}

func (a *Actor) monitoredBy(pid *PID) {
	a.monitors[pid.ID()] = pid
}

func (a *Actor) demonitoredBy(pid *PID) {
	delete(a.monitors, pid.ID())
}

func (a *Actor) handleTermination() {
	// close the mailbox so it can't accept any further messages, monitor requests that
	// arrived too late to be handled still get their exit notification
	for _, message := range a.self.pid.Mailbox().Close() {
		if monitor, ok := message.(sysmsg.Monitor); ok {
			(&systemHandler{actor: a}).HandleSystemMessage(monitor)
		}
	}
	a.self.pid.ShutdownFn()()
	if a.name != "" {
		unregister(a.name, a.self)
	}

	exit := sysmsg.Exit{
		Who:    a.self,
		Reason: sysmsg.Reason{Type: sysmsg.Normal},
	}
	if r := recover(); r != nil {
		exit.Reason = sysmsg.Reason{Type: sysmsg.Panic, Details: r}
		a.logger.Error("actor terminated", zap.String("pid", a.self.ID()), zap.Any("reason", r))
	} else {
		a.logger.Debug("actor exited", zap.String("pid", a.self.ID()))
	}

	a.notifyMonitors(exit)
}

func (a *Actor) notifyMonitors(message sysmsg.Exit) {
	message.Relation = sysmsg.Monitored
	for _, monitor := range a.monitors {
		monitor.sendSystemMessage(message)
	}
}
