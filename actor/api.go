package actor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hedisam/goexec/internal/mailbox"
	"github.com/hedisam/goexec/internal/pid"
)

// Spawn spawns a plain actor with the default configuration
func Spawn(fn Func, args ...interface{}) *PID {
	return mustSpawn(fn, WithArgs(args...))
}

// SpawnEvented spawns an actor whose handlers can wait on processes without blocking it
func SpawnEvented(fn Func, args ...interface{}) *PID {
	return mustSpawn(fn, WithArgs(args...), WithReactor())
}

func mustSpawn(fn Func, opts ...Option) *PID {
	p, err := SpawnWithOptions(fn, opts...)
	if err != nil {
		// the default configuration is always valid
		panic(err)
	}
	return p
}

func SpawnWithOptions(fn Func, opts ...Option) (*PID, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}
	m, err := mailbox.New(o.cfg.Mailbox.Kind, o.cfg.Mailbox.Capacity)
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	actorPID := pid.NewPID(m)
	actorPID.SetShutdownFn(cancel)

	a := &Actor{
		self:     &PID{pid: actorPID},
		args:     o.args,
		ctx:      ctx,
		cfg:      o.cfg,
		evented:  o.evented,
		name:     o.name,
		logger:   o.logger.With(zap.String("actor", actorPID.ID())),
		monitors: make(map[string]*PID),
	}
	if o.monitor != nil {
		a.monitoredBy(o.monitor)
	}
	if o.name != "" {
		Register(o.name, a.self)
	}

	spawn(fn, a)
	return a.self, nil
}

func spawn(fn Func, a *Actor) {
	go func() {
		defer a.handleTermination()
		fn(a)
	}()
}

func Send(pid *PID, message interface{}) {
	pid.sendUserMessage(message)
}

// SendNamed sends to an actor registered under name, it returns false if there's none
func SendNamed(name string, message interface{}) bool {
	namedPID := WhereIs(name)
	if namedPID == nil {
		return false
	}
	Send(namedPID, message)
	return true
}

// Stop makes the actor leave its event loop. Tasks still waiting are resumed with an
// error.
func Stop(pid *PID) {
	pid.pid.ShutdownFn()()
}
