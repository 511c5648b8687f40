//go:build unix

// Package proc spawns OS processes and detects their exit, either with a blocking wait
// or with a probe bounded by a timeout.
package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrNotStarted     = errors.New("process has not been started")
	ErrAlreadyStarted = errors.New("process has already been started")
)

// nullDevice receives the unset streams of a child
var nullDevice = os.DevNull

// IO holds the standard streams of a process. Unset streams are connected to the null
// device. Stdin is set by Start in duplex mode and must be closed by the caller.
type IO struct {
	Stdin  io.WriteCloser
	Stdout *os.File
	Stderr *os.File
}

// Process is a child process. It is reaped exactly once, by whichever of Wait or
// PollExit observes the exit first, and later calls return the recorded status.
type Process struct {
	argv   []string
	dir    string
	env    []string
	io     IO
	duplex bool
	logger *zap.Logger

	mu      sync.Mutex
	started bool
	process *os.Process
	pid     int
	waiter  exitWaiter
	status  *ExitStatus

	// reapMu serializes wait4 calls
	reapMu sync.Mutex
}

// Build returns a process for argv without starting it
func Build(argv ...string) *Process {
	return &Process{
		argv:   argv,
		logger: zap.NewNop(),
	}
}

func (p *Process) SetDir(dir string) *Process {
	p.dir = dir
	return p
}

// SetEnv replaces the environment, the parent's one is inherited when unset
func (p *Process) SetEnv(env []string) *Process {
	p.env = env
	return p
}

func (p *Process) SetLogger(logger *zap.Logger) *Process {
	p.logger = logger
	return p
}

func (p *Process) IO() *IO {
	return &p.io
}

// SetDuplex makes Start create a pipe for the child's stdin, see IO.Stdin
func (p *Process) SetDuplex(duplex bool) {
	p.duplex = duplex
}

func (p *Process) Duplex() bool {
	return p.duplex
}

func (p *Process) Args() []string {
	return p.argv
}

// Pid returns 0 until the process is started
func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	if len(p.argv) == 0 {
		return ErrEmptyCommand
	}

	path, err := exec.LookPath(p.argv[0])
	if err != nil {
		return fmt.Errorf("start %q: %w", p.argv[0], err)
	}

	var closeAfterStart []io.Closer
	defer func() {
		for _, c := range closeAfterStart {
			c.Close() //nolint:errcheck
		}
	}()
	// the parent's end of the stdin pipe only survives a successful start
	started := false
	defer func() {
		if !started && p.io.Stdin != nil && p.duplex {
			p.io.Stdin.Close() //nolint:errcheck
			p.io.Stdin = nil
		}
	}()

	devNull := func() (*os.File, error) {
		f, err := os.OpenFile(nullDevice, os.O_RDWR, 0)
		if err != nil {
			return nil, err
		}
		closeAfterStart = append(closeAfterStart, f)
		return f, nil
	}

	var stdin *os.File
	if p.duplex {
		pr, pw, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("stdin pipe: %w", err)
		}
		stdin = pr
		closeAfterStart = append(closeAfterStart, pr)
		p.io.Stdin = pw
	} else if stdin, err = devNull(); err != nil {
		return err
	}

	stdout, stderr := p.io.Stdout, p.io.Stderr
	if stdout == nil {
		if stdout, err = devNull(); err != nil {
			return err
		}
	}
	if stderr == nil {
		if stderr, err = devNull(); err != nil {
			return err
		}
	}

	env := p.env
	if env == nil {
		env = os.Environ()
	}

	process, err := os.StartProcess(path, p.argv, &os.ProcAttr{
		Dir:   p.dir,
		Env:   env,
		Files: []*os.File{stdin, stdout, stderr},
	})
	if err != nil {
		return fmt.Errorf("start %q: %w", p.argv[0], err)
	}

	started = true
	p.started = true
	p.process = process
	p.pid = process.Pid
	p.waiter = newExitWaiter(process.Pid)

	p.logger.Debug("process started", zap.Strings("argv", p.argv), zap.Int("pid", p.pid))

	return nil
}

// Wait blocks the calling goroutine until the process exits
func (p *Process) Wait() (ExitStatus, error) {
	if status, ok := p.exitStatus(); ok {
		return status, nil
	}
	if !p.isStarted() {
		return ExitStatus{}, ErrNotStarted
	}

	p.reapMu.Lock()
	defer p.reapMu.Unlock()

	if status, ok := p.exitStatus(); ok {
		return status, nil
	}

	status, _, err := p.reap(0)
	if err != nil {
		return ExitStatus{}, err
	}
	p.complete(status)

	return status, nil
}

// PollExit waits at most timeout for the process to exit. exited is false when it is
// still running afterwards, which is not an error.
func (p *Process) PollExit(timeout time.Duration) (status ExitStatus, exited bool, err error) {
	if !p.isStarted() {
		return ExitStatus{}, false, ErrNotStarted
	}

	deadline := time.Now().Add(timeout)
	for {
		status, exited, err = p.tryReap()
		if err != nil || exited {
			return status, exited, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ExitStatus{}, false, nil
		}
		if err = p.exitWaiter().wait(remaining); err != nil {
			return ExitStatus{}, false, err
		}
	}
}

// Exited reports whether the exit has already been observed
func (p *Process) Exited() bool {
	_, ok := p.exitStatus()
	return ok
}

func (p *Process) String() string {
	return fmt.Sprintf("Process(%q, pid=%d)", p.argv, p.Pid())
}

func (p *Process) tryReap() (ExitStatus, bool, error) {
	if status, ok := p.exitStatus(); ok {
		return status, true, nil
	}
	// a blocking Wait holds the lock, let it reap
	if !p.reapMu.TryLock() {
		return ExitStatus{}, false, nil
	}
	defer p.reapMu.Unlock()

	if status, ok := p.exitStatus(); ok {
		return status, true, nil
	}

	status, exited, err := p.reap(unix.WNOHANG)
	if err != nil || !exited {
		return ExitStatus{}, false, err
	}
	p.complete(status)

	return status, true, nil
}

// reap calls wait4 on the child, reapMu must be held
func (p *Process) reap(options int) (ExitStatus, bool, error) {
	var (
		ws     unix.WaitStatus
		rusage unix.Rusage
	)
	for {
		wpid, err := unix.Wait4(p.pid, &ws, options, &rusage)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return ExitStatus{}, false, fmt.Errorf("wait4 pid %d: %w", p.pid, err)
		}
		if wpid == 0 {
			// WNOHANG and still running
			return ExitStatus{}, false, nil
		}
		return newExitStatus(ws), true, nil
	}
}

func (p *Process) complete(status ExitStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = &status
	if err := p.waiter.close(); err != nil {
		p.logger.Warn("closing exit waiter", zap.Int("pid", p.pid), zap.Error(err))
	}
	p.process.Release() //nolint:errcheck

	p.logger.Debug("process exited", zap.Int("pid", p.pid), zap.Stringer("status", status))
}

func (p *Process) exitStatus() (ExitStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		return ExitStatus{}, false
	}
	return *p.status, true
}

func (p *Process) isStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *Process) exitWaiter() exitWaiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waiter
}

func newExitStatus(ws unix.WaitStatus) ExitStatus {
	if ws.Signaled() {
		return ExitStatus{
			Code:     -1,
			Signaled: true,
			Signal:   ws.Signal(),
			CoreDump: ws.CoreDump(),
		}
	}
	return ExitStatus{Code: ws.ExitStatus()}
}
