// Package supervised wraps a child process with a Wait that adapts to its caller:
// inside an evented actor the calling task is suspended until the reactor sees the
// exit, anywhere else the calling goroutine blocks.
package supervised

import (
	"context"

	"go.uber.org/zap"

	"github.com/hedisam/goexec/internal/task"
	"github.com/hedisam/goexec/proc"
	"github.com/hedisam/goexec/reactor"
)

type Process struct {
	process *proc.Process
}

// Build returns a process for argv, it isn't started
func Build(argv ...string) *Process {
	return &Process{process: proc.Build(argv...)}
}

func (p *Process) SetDir(dir string) *Process {
	p.process.SetDir(dir)
	return p
}

func (p *Process) SetEnv(env []string) *Process {
	p.process.SetEnv(env)
	return p
}

func (p *Process) SetLogger(logger *zap.Logger) *Process {
	p.process.SetLogger(logger)
	return p
}

func (p *Process) Start() error {
	return p.process.Start()
}

// Wait returns once the process exited. The strategy is picked on every call since the
// same process may be waited on from different contexts.
func (p *Process) Wait(ctx context.Context) (proc.ExitStatus, error) {
	if registrar, ok := evented(ctx); ok {
		return registrar.Register(ctx, p.process, reactor.Wait)
	}
	return p.process.Wait()
}

// Evented reports whether Wait called with ctx would suspend a task rather than block
func Evented(ctx context.Context) bool {
	_, ok := evented(ctx)
	return ok
}

func evented(ctx context.Context) (reactor.Registrar, bool) {
	if ctx == nil {
		return nil, false
	}
	registrar, ok := reactor.FromContext(ctx)
	if !ok {
		return nil, false
	}
	if _, err := task.Current(ctx); err != nil {
		return nil, false
	}
	return registrar, true
}

func (p *Process) IO() *proc.IO {
	return p.process.IO()
}

func (p *Process) SetDuplex(duplex bool) {
	p.process.SetDuplex(duplex)
}

func (p *Process) Duplex() bool {
	return p.process.Duplex()
}

func (p *Process) Pid() int {
	return p.process.Pid()
}

func (p *Process) Exited() bool {
	return p.process.Exited()
}

func (p *Process) String() string {
	return p.process.String()
}
